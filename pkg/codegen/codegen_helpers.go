package codegen

import (
	"fmt"

	"github.com/xplshn/pp07/pkg/ast"
	"github.com/xplshn/pp07/pkg/ir"
	"github.com/xplshn/pp07/pkg/token"
)

func (ctx *Context) codegenExpr(node *ast.Node) {
	switch d := node.Data.(type) {
	case ast.NumberNode:
		ctx.pushConst(int(d.Value))
	case ast.CharNode:
		ctx.pushConst(int(d.Value))
	case ast.BoolNode:
		if d.Value {
			ctx.pushConst(1)
		} else {
			ctx.emit(ir.OpPush, ir.Reg0)
		}
	case ast.IdentNode:
		ctx.load(d.Name)
	case ast.ParenNode:
		ctx.codegenExpr(d.Expr)
	case ast.UnaryOpNode:
		ctx.codegenExpr(d.Expr)
		ctx.emit(ir.OpPop, ir.RegA)
		if d.Op == token.Not {
			ctx.emit(ir.OpCompute, ir.Equal, ir.RegA, ir.Reg0, ir.RegA)
		} else {
			ctx.emit(ir.OpCompute, ir.Sub, ir.Reg0, ir.RegA, ir.RegA)
		}
		ctx.emit(ir.OpPush, ir.RegA)
	case ast.BinaryOpNode:
		ctx.codegenExpr(d.Left)
		ctx.codegenExpr(d.Right)
		ctx.emit(ir.OpPop, ir.RegB)
		ctx.emit(ir.OpPop, ir.RegA)
		ctx.emit(ir.OpCompute, binaryOperator(d.Op), ir.RegA, ir.RegB, ir.RegA)
		ctx.emit(ir.OpPush, ir.RegA)
	case ast.FuncCallNode:
		ctx.codegenCall(d.Name, d.Args)
	case ast.JoinNode:
		ctx.emit(ir.OpReadInstr, ctx.slot(runPrefix, d.Name))
		ctx.emit(ir.OpReceive, ir.RegA)
		ctx.emit(ir.OpPush, ir.RegA)
	case ast.LockedNode:
		addr := ctx.slot(lockPrefix, d.Name)
		ctx.emit(ir.OpReadInstr, addr)
		ctx.emit(ir.OpReceive, ir.RegA)
		ctx.emit(ir.OpWriteInstr, ir.Reg0, addr)
		ctx.emit(ir.OpCompute, ir.NEq, ir.RegA, ir.Reg0, ir.RegA)
		ctx.emit(ir.OpPush, ir.RegA)
	default:
		panic(fmt.Sprintf("codegen: unexpected expression node %s", node.Type))
	}
}

// codegenIf branches on a false condition, so the then body falls through
func (ctx *Context) codegenIf(d ast.IfNode) {
	end := ctx.newLabel()
	target := end
	var elseL *ir.Label
	if d.ElseBody != nil {
		elseL = ctx.newLabel()
		target = elseL
	}
	ctx.codegenExpr(d.Cond)
	ctx.emit(ir.OpPop, ir.RegA)
	ctx.emit(ir.OpCompute, ir.Equal, ir.RegA, ir.Reg0, ir.RegA)
	ctx.emit(ir.OpBranch, ir.RegA, ir.LabelRef{Label: target})
	ctx.codegenStmt(d.ThenBody)
	if elseL != nil {
		ctx.jump(end)
		ctx.place(elseL)
		ctx.codegenStmt(d.ElseBody)
	}
	ctx.place(end)
}

// codegenWhile evaluates the condition once per iteration, at the tail
func (ctx *Context) codegenWhile(d ast.WhileNode) {
	body, check := ctx.newLabel(), ctx.newLabel()
	ctx.jump(check)
	ctx.place(body)
	ctx.codegenStmt(d.Body)
	ctx.place(check)
	ctx.codegenExpr(d.Cond)
	ctx.emit(ir.OpPop, ir.RegA)
	ctx.emit(ir.OpBranch, ir.RegA, ir.LabelRef{Label: body})
}

func binaryOperator(op token.Type) ir.Operator {
	switch op {
	case token.Plus: return ir.Add
	case token.Minus: return ir.Sub
	case token.Star: return ir.Mul
	case token.Slash: return ir.Div
	case token.Rem: return ir.Mod
	case token.StarStar: return ir.Pow
	case token.EqEq: return ir.Equal
	case token.Neq: return ir.NEq
	case token.Gt: return ir.Gt
	case token.Lt: return ir.Lt
	case token.Gte: return ir.GtE
	case token.Lte: return ir.LtE
	case token.AndAnd: return ir.And
	case token.OrOr: return ir.Or
	}
	panic(fmt.Sprintf("codegen: no operator for %s", op))
}
