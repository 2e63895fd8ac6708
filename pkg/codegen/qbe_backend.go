package codegen

import (
	"fmt"
	"strings"

	"github.com/xplshn/pp07/pkg/ast"
	"github.com/xplshn/pp07/pkg/config"
	"github.com/xplshn/pp07/pkg/token"
)

// qbeBackend lowers the checked tree straight to QBE IL. Every PP07 value is
// a QBE word; locks and runs execute sequentially.
type qbeBackend struct {
	out        *strings.Builder
	body       *strings.Builder
	allocs     *strings.Builder
	unit       *Unit
	globals    map[string]string
	scopes     []map[string]string
	tempCount  int
	labelCount int
	terminated bool
}

func NewQBEBackend() Backend { return &qbeBackend{} }

const qbePrefix = "pp07_"

// GenerateIR renders the program as QBE IL
func (b *qbeBackend) GenerateIR(unit *Unit, cfg *config.Config) (string, error) {
	if unit == nil || unit.Tree == nil || unit.Result == nil {
		return "", fmt.Errorf("qbe: unit has not been checked")
	}
	b.out = &strings.Builder{}
	b.unit = unit
	b.globals = make(map[string]string)
	b.tempCount, b.labelCount = 0, 0

	b.genData()

	var topLevel []*ast.Node
	for _, stmt := range ast.Stmts(unit.Tree.Root) {
		if stmt.Type == ast.FuncDecl {
			b.genFunc(stmt.Data.(ast.FuncDeclNode))
		} else {
			topLevel = append(topLevel, stmt)
		}
	}
	b.genInit(topLevel)
	b.genPowHelper()

	fmt.Fprintf(b.out, "\nexport function w $main() {\n@start\n")
	fmt.Fprintf(b.out, "\tcall $%sinit()\n", qbePrefix)
	fmt.Fprintf(b.out, "\t%%r =w call $%smain()\n", qbePrefix)
	b.out.WriteString("\tret %r\n}\n")
	return b.out.String(), nil
}

// genData declares every global variable, enum and lock or run cell
func (b *qbeBackend) genData() {
	declare := func(name, sym string, cells int) {
		if _, ok := b.globals[name]; ok {
			return
		}
		b.globals[name] = sym
		fmt.Fprintf(b.out, "data $%s = { z %d }\n", sym, cells*4)
	}
	ast.Walk(b.unit.Tree.Root, func(n *ast.Node) bool {
		switch d := n.Data.(type) {
		case ast.VarDeclNode:
			if d.IsGlobal || (n.Parent != nil && n.Parent.Type == ast.Program) {
				declare(d.Name, qbePrefix+"g_"+d.Name, 1)
			}
		case ast.EnumDeclNode:
			declare(d.Name, qbePrefix+"g_"+d.Name, len(d.Members))
		case ast.LockNode:
			declare(lockPrefix+d.Name, qbePrefix+"lock_"+d.Name, 1)
		case ast.UnlockNode:
			declare(lockPrefix+d.Name, qbePrefix+"lock_"+d.Name, 1)
		case ast.LockedNode:
			declare(lockPrefix+d.Name, qbePrefix+"lock_"+d.Name, 1)
		case ast.RunNode:
			declare(runPrefix+d.Name, qbePrefix+"run_"+d.Name, 1)
		case ast.JoinNode:
			declare(runPrefix+d.Name, qbePrefix+"run_"+d.Name, 1)
		}
		return true
	})
}

func (b *qbeBackend) newTemp() string {
	b.tempCount++
	return fmt.Sprintf("%%t%d", b.tempCount)
}

func (b *qbeBackend) newLabel(hint string) string {
	b.labelCount++
	return fmt.Sprintf("@%s%d", hint, b.labelCount)
}

// ins writes one instruction, opening a fresh block after a terminator
func (b *qbeBackend) ins(format string, args ...interface{}) {
	if b.terminated {
		b.label(b.newLabel("dead"))
	}
	fmt.Fprintf(b.body, "\t"+format+"\n", args...)
}

func (b *qbeBackend) label(l string) {
	fmt.Fprintf(b.body, "%s\n", l)
	b.terminated = false
}

func (b *qbeBackend) terminate(format string, args ...interface{}) {
	b.ins(format, args...)
	b.terminated = true
}

func (b *qbeBackend) openScope()  { b.scopes = append(b.scopes, make(map[string]string)) }
func (b *qbeBackend) closeScope() { b.scopes = b.scopes[:len(b.scopes)-1] }

func (b *qbeBackend) declareLocal(name string) string {
	slot := fmt.Sprintf("%%%s_%d", name, b.tempCount+1)
	b.tempCount++
	fmt.Fprintf(b.allocs, "\t%s =l alloc4 4\n", slot)
	b.scopes[len(b.scopes)-1][name] = slot
	return slot
}

// address returns the QBE address of a variable visible at this point
func (b *qbeBackend) address(name string) string {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if slot, ok := b.scopes[i][name]; ok {
			return slot
		}
	}
	if sym, ok := b.globals[name]; ok {
		return "$" + sym
	}
	panic(fmt.Sprintf("qbe: unresolved symbol '%s' in a checked tree", name))
}

func (b *qbeBackend) beginFunc() {
	b.body = &strings.Builder{}
	b.allocs = &strings.Builder{}
	b.scopes = nil
	b.terminated = false
}

func (b *qbeBackend) endFunc(header string) {
	if !b.terminated {
		b.terminate("ret 0")
	}
	fmt.Fprintf(b.out, "\n%s {\n@start\n%s\tjmp @body\n@body\n%s}\n", header, b.allocs.String(), b.body.String())
}

func (b *qbeBackend) genFunc(d ast.FuncDeclNode) {
	b.beginFunc()
	b.openScope()
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		name := p.Data.(ast.ParamNode).Name
		params[i] = "w %p_" + name
		slot := b.declareLocal(name)
		b.ins("storew %%p_%s, %s", name, slot)
	}
	b.genStmt(d.Body)
	b.closeScope()
	b.endFunc(fmt.Sprintf("function w $%s%s(%s)", qbePrefix, d.Name, strings.Join(params, ", ")))
}

// genInit collects the top-level statements into one function run before main
func (b *qbeBackend) genInit(stmts []*ast.Node) {
	b.beginFunc()
	for _, stmt := range stmts {
		b.genStmt(stmt)
	}
	b.endFunc(fmt.Sprintf("function w $%sinit()", qbePrefix))
}

func (b *qbeBackend) genPowHelper() {
	fmt.Fprintf(b.out, `
function w $%[1]spow(w %%base, w %%exp) {
@start
	%%acc =w copy 1
	%%e =w copy %%exp
	jmp @loop
@loop
	%%more =w csgtw %%e, 0
	jnz %%more, @step, @done
@step
	%%acc =w mul %%acc, %%base
	%%e =w sub %%e, 1
	jmp @loop
@done
	ret %%acc
}
`, qbePrefix)
}

func (b *qbeBackend) genStmt(node *ast.Node) {
	switch d := node.Data.(type) {
	case ast.VarDeclNode:
		val := "0"
		if d.Init != nil {
			val = b.genExpr(d.Init)
		}
		var addr string
		if d.IsGlobal || len(b.scopes) == 0 {
			addr = "$" + b.globals[d.Name]
		} else {
			addr = b.declareLocal(d.Name)
		}
		b.ins("storew %s, %s", val, addr)
	case ast.AssignNode:
		val := b.genExpr(d.Expr)
		b.ins("storew %s, %s", val, b.address(d.Name))
	case ast.EnumDeclNode:
	case ast.IfNode:
		cond := b.genExpr(d.Cond)
		thenL, endL := b.newLabel("then"), b.newLabel("endif")
		elseL := endL
		if d.ElseBody != nil {
			elseL = b.newLabel("else")
		}
		b.terminate("jnz %s, %s, %s", cond, thenL, elseL)
		b.label(thenL)
		b.genStmt(d.ThenBody)
		if d.ElseBody != nil {
			b.terminate("jmp %s", endL)
			b.label(elseL)
			b.genStmt(d.ElseBody)
		}
		b.terminate("jmp %s", endL)
		b.label(endL)
	case ast.WhileNode:
		condL, bodyL, endL := b.newLabel("cond"), b.newLabel("loop"), b.newLabel("endloop")
		b.terminate("jmp %s", condL)
		b.label(condL)
		cond := b.genExpr(d.Cond)
		b.terminate("jnz %s, %s, %s", cond, bodyL, endL)
		b.label(bodyL)
		b.genStmt(d.Body)
		b.terminate("jmp %s", condL)
		b.label(endL)
	case ast.BlockNode:
		b.openScope()
		for _, stmt := range d.Stmts {
			b.genStmt(stmt)
		}
		b.closeScope()
	case ast.ExprStmtNode:
		b.genExpr(d.Expr)
	case ast.RunNode:
		val := b.genCall(d.Func, d.Args)
		b.ins("storew %s, %s", val, b.address(runPrefix+d.Name))
	case ast.LockNode:
		b.ins("storew 1, %s", b.address(lockPrefix+d.Name))
	case ast.UnlockNode:
		b.ins("storew 0, %s", b.address(lockPrefix+d.Name))
	case ast.ReturnNode:
		val := "0"
		if d.Expr != nil {
			val = b.genExpr(d.Expr)
		}
		b.terminate("ret %s", val)
	default:
		panic(fmt.Sprintf("qbe: unexpected statement node %s", node.Type))
	}
}

func (b *qbeBackend) genCall(name string, args []*ast.Node) string {
	vals := make([]string, len(args))
	for i, arg := range args {
		vals[i] = "w " + b.genExpr(arg)
	}
	res := b.newTemp()
	b.ins("%s =w call $%s%s(%s)", res, qbePrefix, name, strings.Join(vals, ", "))
	return res
}

// genExpr returns a QBE value holding the result of node
func (b *qbeBackend) genExpr(node *ast.Node) string {
	switch d := node.Data.(type) {
	case ast.NumberNode:
		return fmt.Sprint(d.Value)
	case ast.CharNode:
		return fmt.Sprint(int(d.Value))
	case ast.BoolNode:
		if d.Value {
			return "1"
		}
		return "0"
	case ast.IdentNode:
		res := b.newTemp()
		b.ins("%s =w loadw %s", res, b.address(d.Name))
		return res
	case ast.ParenNode:
		return b.genExpr(d.Expr)
	case ast.UnaryOpNode:
		val := b.genExpr(d.Expr)
		res := b.newTemp()
		if d.Op == token.Not {
			b.ins("%s =w ceqw %s, 0", res, val)
		} else {
			b.ins("%s =w sub 0, %s", res, val)
		}
		return res
	case ast.BinaryOpNode:
		l := b.genExpr(d.Left)
		r := b.genExpr(d.Right)
		res := b.newTemp()
		if d.Op == token.StarStar {
			b.ins("%s =w call $%spow(w %s, w %s)", res, qbePrefix, l, r)
		} else {
			b.ins("%s =w %s %s, %s", res, qbeOp(d.Op), l, r)
		}
		return res
	case ast.FuncCallNode:
		return b.genCall(d.Name, d.Args)
	case ast.JoinNode:
		res := b.newTemp()
		b.ins("%s =w loadw %s", res, b.address(runPrefix+d.Name))
		return res
	case ast.LockedNode:
		addr := b.address(lockPrefix + d.Name)
		held, res := b.newTemp(), b.newTemp()
		b.ins("%s =w loadw %s", held, addr)
		b.ins("storew 0, %s", addr)
		b.ins("%s =w cnew %s, 0", res, held)
		return res
	}
	panic(fmt.Sprintf("qbe: unexpected expression node %s", node.Type))
}

func qbeOp(op token.Type) string {
	switch op {
	case token.Plus: return "add"
	case token.Minus: return "sub"
	case token.Star: return "mul"
	case token.Slash: return "div"
	case token.Rem: return "rem"
	case token.EqEq: return "ceqw"
	case token.Neq: return "cnew"
	case token.Lt: return "csltw"
	case token.Gt: return "csgtw"
	case token.Lte: return "cslew"
	case token.Gte: return "csgew"
	case token.AndAnd: return "and"
	case token.OrOr: return "or"
	}
	panic(fmt.Sprintf("qbe: no instruction for %s", op))
}
