package codegen

import (
	"fmt"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/pp07/pkg/config"
	"github.com/xplshn/pp07/pkg/ir"
)

// machine runs a resolved listing on a single sprockell with id 0
type machine struct {
	regs    [ir.RegPC + 1]int
	local   map[int]int
	shared  map[int]int
	stack   []int
	pending []int
}

const maxSteps = 1 << 20

func newMachine() *machine {
	return &machine{local: make(map[int]int), shared: make(map[int]int)}
}

func (m *machine) set(r ir.Reg, v int) {
	if r != ir.Reg0 {
		m.regs[r] = v
	}
}

func (m *machine) addr(op ir.Operand) int {
	switch a := op.(type) {
	case ir.DirAddr:
		return int(a)
	case ir.IndAddr:
		return m.regs[ir.Reg(a)]
	}
	panic(fmt.Sprintf("not an address: %s", op))
}

func (m *machine) target(op ir.Operand) int {
	switch a := op.(type) {
	case ir.Abs:
		return int(a)
	case ir.Ind:
		return m.regs[ir.Reg(a)]
	}
	panic(fmt.Sprintf("not a target: %s", op))
}

// run executes until EndProg and returns regA
func (m *machine) run(prog *ir.Program) (int, error) {
	pc := 0
	for step := 0; step < maxSteps; step++ {
		if pc < 0 || pc >= prog.Len() {
			return 0, fmt.Errorf("pc %d out of program", pc)
		}
		in := prog.Instrs[pc]
		pc++
		switch in.Op {
		case ir.OpCompute:
			a, b := m.regs[in.Args[1].(ir.Reg)], m.regs[in.Args[2].(ir.Reg)]
			v, err := alu(in.Args[0].(ir.Operator), a, b)
			if err != nil {
				return 0, fmt.Errorf("line %d: %w", pc-1, err)
			}
			m.set(in.Args[3].(ir.Reg), v)
		case ir.OpLoad:
			dst := in.Args[1].(ir.Reg)
			if imm, ok := in.Args[0].(ir.Imm); ok {
				m.set(dst, int(imm))
			} else {
				m.set(dst, m.local[m.addr(in.Args[0])])
			}
		case ir.OpStore:
			m.local[m.addr(in.Args[1])] = m.regs[in.Args[0].(ir.Reg)]
		case ir.OpBranch:
			if m.regs[in.Args[0].(ir.Reg)] != 0 {
				pc = m.target(in.Args[1])
			}
		case ir.OpJump:
			pc = m.target(in.Args[0])
		case ir.OpPush:
			m.stack = append(m.stack, m.regs[in.Args[0].(ir.Reg)])
		case ir.OpPop:
			if len(m.stack) == 0 {
				return 0, fmt.Errorf("line %d: pop from an empty stack", pc-1)
			}
			m.set(in.Args[0].(ir.Reg), m.stack[len(m.stack)-1])
			m.stack = m.stack[:len(m.stack)-1]
		case ir.OpReadInstr:
			m.pending = append(m.pending, m.shared[m.addr(in.Args[0])])
		case ir.OpTestAndSet:
			a := m.addr(in.Args[0])
			if m.shared[a] == 0 {
				m.shared[a] = 1
				m.pending = append(m.pending, 1)
			} else {
				m.pending = append(m.pending, 0)
			}
		case ir.OpReceive:
			if len(m.pending) == 0 {
				return 0, fmt.Errorf("line %d: receive without a request", pc-1)
			}
			m.set(in.Args[0].(ir.Reg), m.pending[0])
			m.pending = m.pending[1:]
		case ir.OpWriteInstr:
			m.shared[m.addr(in.Args[1])] = m.regs[in.Args[0].(ir.Reg)]
		case ir.OpNop:
		case ir.OpEndProg:
			return m.regs[ir.RegA], nil
		default:
			return 0, fmt.Errorf("line %d: unhandled %s", pc-1, in.Op)
		}
	}
	return 0, fmt.Errorf("no EndProg after %d steps", maxSteps)
}

// alu follows Haskell's div, mod and ^ on the sprockell
func alu(op ir.Operator, a, b int) (int, error) {
	truth := func(c bool) int {
		if c {
			return 1
		}
		return 0
	}
	switch op {
	case ir.Add:
		return a + b, nil
	case ir.Sub:
		return a - b, nil
	case ir.Mul:
		return a * b, nil
	case ir.Div, ir.Mod:
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		q, r := a/b, a%b
		if r != 0 && (r < 0) != (b < 0) {
			q, r = q-1, r+b
		}
		if op == ir.Div {
			return q, nil
		}
		return r, nil
	case ir.Pow:
		if b < 0 {
			return 0, fmt.Errorf("negative exponent")
		}
		v := 1
		for range b {
			v *= a
		}
		return v, nil
	case ir.Equal:
		return truth(a == b), nil
	case ir.NEq:
		return truth(a != b), nil
	case ir.Gt:
		return truth(a > b), nil
	case ir.Lt:
		return truth(a < b), nil
	case ir.GtE:
		return truth(a >= b), nil
	case ir.LtE:
		return truth(a <= b), nil
	case ir.And:
		return a & b, nil
	case ir.Or:
		return a | b, nil
	}
	return 0, fmt.Errorf("unknown operator %s", op)
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{"left associative subtraction", "int main() { return 10 - 3 - 2; }", 5},
		{"left associative division", "int main() { return 20 / 2 / 5; }", 2},
		{"floor division and modulo", "int main() { return -7 / 2 * 10 + -7 % 2; }", -39},
		{"power binds right", "int main() { return 2 ** 3 ** 2; }", 512},
		{"unary minus", "int main() { int x = 4; return -x - -2; }", -2},
		{"comparison and not", "int main() { bool b = !(3 < 2) && 2 >= 2; if (b) { return 1; } return 0; }", 1},
		{
			"recursive factorial",
			"int fact(int n) { if (n <= 1) { return 1; } return n * fact(n - 1); } int main() { return fact(5); }",
			120,
		},
		{
			"recursive fibonacci",
			"int fib(int n) { if (n < 2) { return n; } return fib(n - 1) + fib(n - 2); } int main() { return fib(10); }",
			55,
		},
		{
			"iterative loop",
			"int main() { int i = 0; int s = 0; while (i < 5) { i = i + 1; s = s + i; } return s; }",
			15,
		},
		{
			"shadowed local keeps its own cell",
			"int main() { int x = 10; { int x = 3; x = x * 100; } return x + 7; }",
			17,
		},
		{
			"parameters bind in order",
			"int f(int a, int b, int c) { return a - b * c; } int main() { return f(1, 2, 50); }",
			-99,
		},
		{
			"caller locals survive a call",
			"int sq(int n) { int r = n * n; return r; } int main() { int a = 3; int b = sq(4); return a * 100 + b; }",
			316,
		},
		{
			"globals initialize before main",
			"int g = 40; int bump(int n) { g = g + n; return g; } int main() { bump(1); return bump(1); }",
			42,
		},
		{
			"else branch",
			"int main() { int x = 0; if (x > 0) { x = 1; } else { x = 2; } return x; }",
			2,
		},
		{"run and join", concurrent, 2},
		{"fall off the end returns zero", "int f() { int x = 1; } int main() { return f() + 9; }", 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit := checked(t, tt.src)
			prog, err := NewContext(config.NewConfig()).Generate(unit.Tree, unit.Result)
			be.Err(t, err, nil)

			m := newMachine()
			got, err := m.run(prog)
			be.Err(t, err, nil)
			be.Equal(t, got, tt.want)
			be.Equal(t, len(m.stack), 0)
			be.Equal(t, len(m.pending), 0)
		})
	}
}
