package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Sexpr renders n as a compact S-expression, used by parser tests and
// the driver's --dump-ast output.
func Sexpr(n *Node) string {
	var sb strings.Builder
	writeSexpr(&sb, n)
	return sb.String()
}

func writeSexpr(sb *strings.Builder, n *Node) {
	if n == nil {
		sb.WriteString("nil")
		return
	}
	list := func(head string, parts []string, children ...*Node) {
		sb.WriteString("(" + head)
		for _, p := range parts {
			sb.WriteString(" " + p)
		}
		for _, c := range children {
			sb.WriteByte(' ')
			writeSexpr(sb, c)
		}
		sb.WriteByte(')')
	}

	switch d := n.Data.(type) {
	case NumberNode: list("num", []string{strconv.FormatInt(d.Value, 10)})
	case CharNode: list("char", []string{strconv.QuoteRune(d.Value)})
	case BoolNode: list("bool", []string{strconv.FormatBool(d.Value)})
	case IdentNode: list("ident", []string{d.Name})
	case BinaryOpNode: list(d.Op.String(), nil, d.Left, d.Right)
	case UnaryOpNode: list(d.Op.String(), nil, d.Expr)
	case ParenNode: list("paren", nil, d.Expr)
	case FuncCallNode: list("call", []string{d.Name}, d.Args...)
	case JoinNode: list("join", []string{d.Name})
	case LockedNode: list("locked", []string{d.Name})
	case ProgramNode: list("program", nil, d.Stmts...)
	case TypeSpecNode: sb.WriteString(d.Type.String())
	case VarDeclNode:
		head := "decl"
		if d.IsGlobal {
			head = "global"
		}
		parts := []string{SpecType(d.TypeSpec).String(), d.Name}
		if d.Init != nil {
			list(head, parts, d.Init)
		} else {
			list(head, parts)
		}
	case AssignNode: list("assign", []string{d.Name}, d.Expr)
	case EnumDeclNode: list("enum", append([]string{d.Name}, d.Members...))
	case IfNode:
		if d.ElseBody != nil {
			list("if", nil, d.Cond, d.ThenBody, d.ElseBody)
		} else {
			list("if", nil, d.Cond, d.ThenBody)
		}
	case WhileNode: list("while", nil, d.Cond, d.Body)
	case BlockNode: list("block", nil, d.Stmts...)
	case FuncDeclNode:
		children := append(append([]*Node{}, d.Params...), d.Body)
		list("func", []string{SpecType(d.ReturnType).String(), d.Name}, children...)
	case ParamNode: list("param", []string{SpecType(d.TypeSpec).String(), d.Name})
	case ExprStmtNode: list("expr", nil, d.Expr)
	case RunNode: list("run", []string{d.Name, d.Func}, d.Args...)
	case LockNode: list("lock", []string{d.Name})
	case UnlockNode: list("unlock", []string{d.Name})
	case ReturnNode:
		if d.Expr != nil {
			list("return", nil, d.Expr)
		} else {
			list("return", nil)
		}
	default:
		fmt.Fprintf(sb, "(? %s)", n.Type)
	}
}
