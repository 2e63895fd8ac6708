// Package ast defines the arena-allocated Abstract Syntax Tree of PP07
package ast

import (
	"github.com/xplshn/pp07/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Expressions
	Number NodeType = iota
	Char
	Bool
	Ident
	BinaryOp
	UnaryOp
	Paren
	FuncCall
	Join
	Locked

	// Statements
	Program
	VarDecl
	Assign
	EnumDecl
	If
	While
	Block
	FuncDecl
	Param
	ExprStmt
	Run
	Lock
	Unlock
	Return
	TypeSpec
)

var nodeTypeNames = [...]string{
	Number: "num", Char: "char", Bool: "bool", Ident: "ident", BinaryOp: "binary",
	UnaryOp: "unary", Paren: "paren", FuncCall: "call", Join: "join", Locked: "locked",
	Program: "program", VarDecl: "decl", Assign: "assign", EnumDecl: "enum", If: "if",
	While: "while", Block: "block", FuncDecl: "func", Param: "param", ExprStmt: "expr",
	Run: "run", Lock: "lock", Unlock: "unlock", Return: "return", TypeSpec: "type",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "?"
}

// IsExpr reports whether nodes of this type produce a value
func (t NodeType) IsExpr() bool { return t <= Locked }

// NodeID is a stable handle of a node inside its Tree. The zero value means
// "no node".
type NodeID int

const NoNode NodeID = 0

// Node represents a node in the Abstract Syntax Tree
type Node struct {
	ID     NodeID
	Type   NodeType
	Tok    token.Token
	Parent *Node
	Data   interface{}
}

// --- Node Data Structs ---
type NumberNode struct{ Value int64 }
type CharNode struct{ Value rune }
type BoolNode struct{ Value bool }
type IdentNode struct{ Name string }
type BinaryOpNode struct{ Op token.Type; Left, Right *Node }
type UnaryOpNode struct{ Op token.Type; Expr *Node }
type ParenNode struct{ Expr *Node }
type FuncCallNode struct{ Name string; Args []*Node }
type JoinNode struct{ Name string }
type LockedNode struct{ Name string }

type ProgramNode struct{ Stmts []*Node }
type VarDeclNode struct {
	Name     string
	TypeSpec *Node
	IsGlobal bool
	Init     *Node
}
type AssignNode struct{ Name string; Expr *Node }
type EnumDeclNode struct{ Name string; Members []string }
type IfNode struct{ Cond, ThenBody, ElseBody *Node }
type WhileNode struct{ Cond, Body *Node }
type BlockNode struct{ Stmts []*Node }
type FuncDeclNode struct {
	Name       string
	ReturnType *Node
	Params     []*Node
	Body       *Node
}
type ParamNode struct{ Name string; TypeSpec *Node }
type ExprStmtNode struct{ Expr *Node }
type RunNode struct {
	Name string
	Func string
	Args []*Node
}
type LockNode struct{ Name string }
type UnlockNode struct{ Name string }
type ReturnNode struct{ Expr *Node }
type TypeSpecNode struct{ Type Type }

// Tree owns every node of one parsed program. Node IDs index into Nodes.
type Tree struct {
	Nodes []*Node
	Root  *Node
}

func NewTree() *Tree { return &Tree{Nodes: []*Node{nil}} }

// Node returns the node for id, or nil for NoNode and out of range handles.
func (t *Tree) Node(id NodeID) *Node {
	if id <= NoNode || int(id) >= len(t.Nodes) {
		return nil
	}
	return t.Nodes[id]
}

// Len returns the number of allocated nodes
func (t *Tree) Len() int { return len(t.Nodes) - 1 }

// --- Node Constructors ---

func (t *Tree) newNode(tok token.Token, nodeType NodeType, data interface{}, children ...*Node) *Node {
	node := &Node{ID: NodeID(len(t.Nodes)), Type: nodeType, Tok: tok, Data: data}
	t.Nodes = append(t.Nodes, node)
	for _, child := range children {
		if child != nil {
			child.Parent = node
		}
	}
	return node
}

func (t *Tree) NewNumber(tok token.Token, value int64) *Node {
	return t.newNode(tok, Number, NumberNode{Value: value})
}
func (t *Tree) NewChar(tok token.Token, value rune) *Node {
	return t.newNode(tok, Char, CharNode{Value: value})
}
func (t *Tree) NewBool(tok token.Token, value bool) *Node {
	return t.newNode(tok, Bool, BoolNode{Value: value})
}
func (t *Tree) NewIdent(tok token.Token, name string) *Node {
	return t.newNode(tok, Ident, IdentNode{Name: name})
}
func (t *Tree) NewBinaryOp(tok token.Token, op token.Type, left, right *Node) *Node {
	return t.newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right}, left, right)
}
func (t *Tree) NewUnaryOp(tok token.Token, op token.Type, expr *Node) *Node {
	return t.newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr}, expr)
}
func (t *Tree) NewParen(tok token.Token, expr *Node) *Node {
	return t.newNode(tok, Paren, ParenNode{Expr: expr}, expr)
}
func (t *Tree) NewFuncCall(tok token.Token, name string, args []*Node) *Node {
	return t.newNode(tok, FuncCall, FuncCallNode{Name: name, Args: args}, args...)
}
func (t *Tree) NewJoin(tok token.Token, name string) *Node {
	return t.newNode(tok, Join, JoinNode{Name: name})
}
func (t *Tree) NewLocked(tok token.Token, name string) *Node {
	return t.newNode(tok, Locked, LockedNode{Name: name})
}

// NewProgram also sets the tree root
func (t *Tree) NewProgram(tok token.Token, stmts []*Node) *Node {
	t.Root = t.newNode(tok, Program, ProgramNode{Stmts: stmts}, stmts...)
	return t.Root
}
func (t *Tree) NewTypeSpec(tok token.Token, typ Type) *Node {
	return t.newNode(tok, TypeSpec, TypeSpecNode{Type: typ})
}
func (t *Tree) NewVarDecl(tok token.Token, name string, typeSpec *Node, isGlobal bool, init *Node) *Node {
	return t.newNode(tok, VarDecl, VarDeclNode{Name: name, TypeSpec: typeSpec, IsGlobal: isGlobal, Init: init}, typeSpec, init)
}
func (t *Tree) NewAssign(tok token.Token, name string, expr *Node) *Node {
	return t.newNode(tok, Assign, AssignNode{Name: name, Expr: expr}, expr)
}
func (t *Tree) NewEnumDecl(tok token.Token, name string, members []string) *Node {
	return t.newNode(tok, EnumDecl, EnumDeclNode{Name: name, Members: members})
}
func (t *Tree) NewIf(tok token.Token, cond, thenBody, elseBody *Node) *Node {
	return t.newNode(tok, If, IfNode{Cond: cond, ThenBody: thenBody, ElseBody: elseBody}, cond, thenBody, elseBody)
}
func (t *Tree) NewWhile(tok token.Token, cond, body *Node) *Node {
	return t.newNode(tok, While, WhileNode{Cond: cond, Body: body}, cond, body)
}
func (t *Tree) NewBlock(tok token.Token, stmts []*Node) *Node {
	return t.newNode(tok, Block, BlockNode{Stmts: stmts}, stmts...)
}
func (t *Tree) NewParam(tok token.Token, name string, typeSpec *Node) *Node {
	return t.newNode(tok, Param, ParamNode{Name: name, TypeSpec: typeSpec}, typeSpec)
}
func (t *Tree) NewFuncDecl(tok token.Token, name string, returnType *Node, params []*Node, body *Node) *Node {
	children := append([]*Node{returnType, body}, params...)
	return t.newNode(tok, FuncDecl, FuncDeclNode{Name: name, ReturnType: returnType, Params: params, Body: body}, children...)
}
func (t *Tree) NewExprStmt(tok token.Token, expr *Node) *Node {
	return t.newNode(tok, ExprStmt, ExprStmtNode{Expr: expr}, expr)
}
func (t *Tree) NewRun(tok token.Token, name, fn string, args []*Node) *Node {
	return t.newNode(tok, Run, RunNode{Name: name, Func: fn, Args: args}, args...)
}
func (t *Tree) NewLock(tok token.Token, name string) *Node {
	return t.newNode(tok, Lock, LockNode{Name: name})
}
func (t *Tree) NewUnlock(tok token.Token, name string) *Node {
	return t.newNode(tok, Unlock, UnlockNode{Name: name})
}
func (t *Tree) NewReturn(tok token.Token, expr *Node) *Node {
	return t.newNode(tok, Return, ReturnNode{Expr: expr}, expr)
}

// SpecType returns the type named by a TypeSpec node
func SpecType(n *Node) Type { return n.Data.(TypeSpecNode).Type }

// Stmts returns the statement list of a Program or Block node
func Stmts(n *Node) []*Node {
	switch d := n.Data.(type) {
	case ProgramNode: return d.Stmts
	case BlockNode: return d.Stmts
	}
	return nil
}

// Children returns the direct children of n in source order
func Children(n *Node) []*Node {
	var out []*Node
	add := func(nodes ...*Node) {
		for _, c := range nodes {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	switch d := n.Data.(type) {
	case BinaryOpNode: add(d.Left, d.Right)
	case UnaryOpNode: add(d.Expr)
	case ParenNode: add(d.Expr)
	case FuncCallNode: add(d.Args...)
	case ProgramNode: add(d.Stmts...)
	case VarDeclNode: add(d.TypeSpec, d.Init)
	case AssignNode: add(d.Expr)
	case IfNode: add(d.Cond, d.ThenBody, d.ElseBody)
	case WhileNode: add(d.Cond, d.Body)
	case BlockNode: add(d.Stmts...)
	case FuncDeclNode:
		add(d.ReturnType)
		add(d.Params...)
		add(d.Body)
	case ParamNode: add(d.TypeSpec)
	case ExprStmtNode: add(d.Expr)
	case RunNode: add(d.Args...)
	case ReturnNode: add(d.Expr)
	}
	return out
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the current node.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}
