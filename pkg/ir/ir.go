// Package ir is the linear Sprockell instruction list produced by the code
// generator. Jump targets are symbolic labels until Resolve backpatches them.
package ir

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

type Op int

const (
	OpCompute Op = iota
	OpLoad
	OpStore
	OpBranch
	OpJump
	OpPush
	OpPop
	OpNop
	OpEndProg
	OpReadInstr
	OpReceive
	OpWriteInstr
	OpTestAndSet
)

var opNames = [...]string{
	OpCompute: "Compute", OpLoad: "Load", OpStore: "Store", OpBranch: "Branch",
	OpJump: "Jump", OpPush: "Push", OpPop: "Pop", OpNop: "Nop", OpEndProg: "EndProg",
	OpReadInstr: "ReadInstr", OpReceive: "Receive", OpWriteInstr: "WriteInstr",
	OpTestAndSet: "TestAndSet",
}

func (o Op) String() string { return opNames[o] }

// Operator is the ALU operation of a Compute instruction
type Operator int

const (
	Add Operator = iota
	Sub
	Mul
	Div
	Mod
	Pow
	Equal
	NEq
	Gt
	Lt
	GtE
	LtE
	And
	Or
)

var operatorNames = [...]string{
	Add: "Add", Sub: "Sub", Mul: "Mul", Div: "Div", Mod: "Mod", Pow: "Pow",
	Equal: "Equal", NEq: "NEq", Gt: "Gt", Lt: "Lt", GtE: "GtE", LtE: "LtE",
	And: "And", Or: "Or",
}

type Reg int

const (
	Reg0 Reg = iota
	RegSprID
	RegA
	RegB
	RegC
	RegD
	RegE
	RegF
	RegSP
	RegPC
)

var regNames = [...]string{
	Reg0: "reg0", RegSprID: "regSprID", RegA: "regA", RegB: "regB", RegC: "regC",
	RegD: "regD", RegE: "regE", RegF: "regF", RegSP: "regSP", RegPC: "regPC",
}

// Operand is one argument of an instruction
type Operand interface {
	isOperand()
	String() string
}

type Imm int     // ImmValue n
type DirAddr int // DirAddr n
type IndAddr Reg // IndAddr reg
type Abs int     // Abs n
type Ind Reg     // Ind reg

// RefForm selects how a label renders once resolved
type RefForm int

const (
	RefAbs RefForm = iota // Abs n, a jump target
	RefImm                // ImmValue n, a return address
)

// LabelRef is a symbolic operand that Resolve rewrites to Abs or Imm
type LabelRef struct {
	Label *Label
	Form  RefForm
}

func (Reg) isOperand()      {}
func (Operator) isOperand() {}
func (Imm) isOperand()      {}
func (DirAddr) isOperand()  {}
func (IndAddr) isOperand()  {}
func (Abs) isOperand()      {}
func (Ind) isOperand()      {}
func (LabelRef) isOperand() {}

func (r Reg) String() string      { return regNames[r] }
func (o Operator) String() string { return operatorNames[o] }
func (i Imm) String() string {
	if i < 0 {
		return fmt.Sprintf("(ImmValue (%d))", int(i))
	}
	return fmt.Sprintf("(ImmValue %d)", int(i))
}
func (a DirAddr) String() string  { return fmt.Sprintf("(DirAddr %d)", int(a)) }
func (a IndAddr) String() string  { return fmt.Sprintf("(IndAddr %s)", Reg(a)) }
func (a Abs) String() string      { return fmt.Sprintf("(Abs %d)", int(a)) }
func (a Ind) String() string      { return fmt.Sprintf("(Ind %s)", Reg(a)) }
func (l LabelRef) String() string { return l.Label.String() }

// Label is a jump target. Line stays -1 until the label is placed.
type Label struct {
	ID   int
	Line int
}

func (l *Label) Placed() bool   { return l.Line >= 0 }
func (l *Label) String() string { return fmt.Sprintf("#L%d#", l.ID) }

type Instruction struct {
	Op   Op
	Args []Operand
}

func (in *Instruction) String() string {
	if len(in.Args) == 0 {
		return in.Op.String()
	}
	parts := make([]string, 0, len(in.Args)+1)
	parts = append(parts, in.Op.String())
	for _, a := range in.Args {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, " ")
}

type Program struct {
	Instrs []*Instruction
	Labels []*Label
}

func NewProgram() *Program { return &Program{} }

// Len is the line number the next emitted instruction will get
func (p *Program) Len() int { return len(p.Instrs) }

func (p *Program) Emit(op Op, args ...Operand) *Instruction {
	in := &Instruction{Op: op, Args: args}
	p.Instrs = append(p.Instrs, in)
	return in
}

func (p *Program) NewLabel() *Label {
	l := &Label{ID: len(p.Labels), Line: -1}
	p.Labels = append(p.Labels, l)
	return l
}

// Place binds l to the next emitted line. A label can be placed once.
func (p *Program) Place(l *Label) error {
	if l.Placed() {
		return fmt.Errorf("label %s already placed at line %d", l, l.Line)
	}
	l.Line = p.Len()
	return nil
}

// Resolve backpatches every label operand with its line number. It fails if
// any referenced label was never placed.
func (p *Program) Resolve() error {
	for line, in := range p.Instrs {
		for i, arg := range in.Args {
			ref, ok := arg.(LabelRef)
			if !ok {
				continue
			}
			if !ref.Label.Placed() {
				return fmt.Errorf("line %d: label %s was never placed", line, ref.Label)
			}
			switch ref.Form {
			case RefImm:
				in.Args[i] = Imm(ref.Label.Line)
			default:
				in.Args[i] = Abs(ref.Label.Line)
			}
		}
	}
	return nil
}

// Resolved reports whether no label operand remains
func (p *Program) Resolved() bool {
	for _, in := range p.Instrs {
		for _, arg := range in.Args {
			if _, ok := arg.(LabelRef); ok {
				return false
			}
		}
	}
	return true
}

// Lines renders one instruction per line
func (p *Program) Lines() []string {
	out := make([]string, len(p.Instrs))
	for i, in := range p.Instrs {
		out[i] = in.String()
	}
	return out
}

func (p *Program) String() string { return strings.Join(p.Lines(), "\n") }

// Fingerprint hashes the rendered instruction list
func (p *Program) Fingerprint() uint64 {
	d := xxhash.New()
	for _, line := range p.Lines() {
		d.WriteString(line)
		d.WriteString("\n")
	}
	return d.Sum64()
}
