package typeChecker

import (
	"fmt"

	"github.com/xplshn/pp07/pkg/ast"
	"github.com/xplshn/pp07/pkg/config"
	"github.com/xplshn/pp07/pkg/registry"
	"github.com/xplshn/pp07/pkg/symtab"
	"github.com/xplshn/pp07/pkg/token"
	"github.com/xplshn/pp07/pkg/util"
)

type Checker struct {
	cfg      *config.Config
	tree     *ast.Tree
	result   *Result
	symbols  *symtab.Table
	regs     *Registries
	curFunc  *registry.Function
	errors   []*util.Diagnostic
	warnings []util.Warning

	joined   map[string]bool
	released map[string]bool
	lockToks map[string]token.Token
	runToks  map[string]token.Token
}

func NewChecker(cfg *config.Config) *Checker {
	return &Checker{cfg: cfg}
}

// Check runs the preparation pass and the checker over tree. User errors are
// accumulated and returned together as a *util.CompileError; an invariant
// violation aborts the pass with an *InternalError.
func (c *Checker) Check(tree *ast.Tree) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*InternalError)
			if !ok {
				panic(r)
			}
			res, err = nil, ie
		}
	}()
	if tree == nil || tree.Root == nil || tree.Root.Type != ast.Program {
		internalf("checker requires a program tree")
	}

	regs, diags := Prepare(tree)
	c.tree = tree
	c.regs = regs
	c.result = NewResult()
	c.result.Functions = regs.Functions
	c.symbols = symtab.New()
	c.curFunc = nil
	c.errors = diags
	c.warnings = nil
	c.joined = make(map[string]bool)
	c.released = make(map[string]bool)
	c.lockToks = make(map[string]token.Token)
	c.runToks = make(map[string]token.Token)

	c.checkProgram(tree.Root)
	c.collectWarnings()

	if len(c.errors) > 0 {
		return nil, &util.CompileError{Diags: c.errors}
	}
	return c.result, nil
}

// Warnings returns the enabled warnings found by the last Check
func (c *Checker) Warnings() []util.Warning { return c.warnings }

func (c *Checker) addError(kind util.ErrorKind, tok token.Token, format string, args ...interface{}) {
	c.errors = append(c.errors, util.NewDiagnostic(kind, tok, format, args...))
}

func (c *Checker) warn(wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if !c.cfg.IsWarningEnabled(wt) {
		return
	}
	c.warnings = append(c.warnings, util.Warning{Warning: wt, Tok: tok, Msg: fmt.Sprintf(format, args...)})
}

func (c *Checker) typeOf(n *ast.Node) ast.Type { return c.result.Type(n.ID) }
func (c *Checker) entryOf(n *ast.Node) ast.NodeID { return c.result.Entry(n.ID) }

func (c *Checker) checkProgram(node *ast.Node) {
	stmts := ast.Stmts(node)
	if len(stmts) == 0 {
		c.addError(util.SyntaxStructure, node.Tok, "Empty program")
		c.result.SetEntry(node.ID, node.ID)
		return
	}
	for _, stmt := range stmts {
		c.checkNode(stmt)
	}
	if !c.regs.Functions.HasFunction("main") {
		c.addError(util.SyntaxStructure, node.Tok, "Program contains no main method")
	}
	c.result.SetEntry(node.ID, c.entryOf(stmts[0]))
}

func (c *Checker) checkNode(node *ast.Node) {
	switch d := node.Data.(type) {
	case ast.VarDeclNode:
		c.checkVarDecl(node, d)
	case ast.AssignNode:
		c.checkAssign(node, d)
	case ast.EnumDeclNode:
		size, _ := ast.ENUM.SizeOf(len(d.Members))
		if !c.symbols.AddGlobalSized(d.Name, ast.ENUM, size) {
			c.addError(util.NameResolution, node.Tok, "Variable name %s already declared in global scope", d.Name)
		}
		c.result.SetEntry(node.ID, node.ID)
	case ast.IfNode:
		c.checkExpr(d.Cond)
		c.checkCondition(d.Cond, "if")
		c.checkNode(d.ThenBody)
		if d.ElseBody != nil {
			c.checkNode(d.ElseBody)
		}
		c.result.SetEntry(node.ID, d.Cond.ID)
	case ast.WhileNode:
		c.checkExpr(d.Cond)
		c.checkCondition(d.Cond, "while")
		c.checkNode(d.Body)
		c.result.SetEntry(node.ID, d.Cond.ID)
	case ast.BlockNode:
		c.symbols.OpenScope()
		for _, stmt := range d.Stmts {
			c.checkNode(stmt)
		}
		if len(d.Stmts) > 0 {
			c.result.SetEntry(node.ID, c.entryOf(d.Stmts[0]))
		} else {
			c.result.SetEntry(node.ID, node.ID)
		}
		c.symbols.CloseScope()
	case ast.FuncDeclNode:
		c.checkFuncDecl(node, d)
	case ast.ExprStmtNode:
		c.checkExpr(d.Expr)
		switch d.Expr.Type {
		case ast.FuncCall, ast.Join, ast.Locked:
		default:
			c.warn(config.WarnExtra, node.Tok, "Expression result is unused")
		}
		c.result.SetEntry(node.ID, c.entryOf(d.Expr))
	case ast.RunNode:
		for _, arg := range d.Args {
			c.checkExpr(arg)
		}
		if _, seen := c.runToks[d.Name]; !seen {
			c.runToks[d.Name] = node.Tok
		}
		c.result.SetEntry(node.ID, c.checkCall(node, d.Func, d.Args))
	case ast.LockNode:
		if _, seen := c.lockToks[d.Name]; !seen {
			c.lockToks[d.Name] = node.Tok
		}
		c.result.SetEntry(node.ID, node.ID)
	case ast.UnlockNode:
		c.released[d.Name] = true
		if !c.regs.Locks.ReleaseLock(d.Name) {
			c.addError(util.NameResolution, node.Tok, "Lock %s never declared in program", d.Name)
		}
		c.result.SetEntry(node.ID, node.ID)
	case ast.ReturnNode:
		c.checkReturn(node, d)
	default:
		internalf("unexpected statement node %s", node.Type)
	}
}

func (c *Checker) checkVarDecl(node *ast.Node, d ast.VarDeclNode) {
	declType := ast.SpecType(d.TypeSpec)
	c.result.SetType(d.TypeSpec.ID, declType)
	if d.Init != nil {
		c.checkExpr(d.Init)
	}

	if _, err := declType.Size(); err != nil {
		c.addError(util.TypeMismatch, d.TypeSpec.Tok, "%s", err.Error())
	}

	global := d.IsGlobal || c.symbols.Depth() == 0
	if global {
		if !c.symbols.AddGlobal(d.Name, declType) {
			c.addError(util.NameResolution, node.Tok, "Variable name %s already declared in global scope", d.Name)
		}
	} else {
		if _, outer := c.symbols.Resolve(d.Name); outer && !c.symbols.InCurrentScope(d.Name) {
			c.warn(config.WarnShadow, node.Tok, "Declaration of '%s' shadows a variable of an enclosing scope", d.Name)
		}
		if !c.symbols.Add(d.Name, declType) {
			c.addError(util.NameResolution, node.Tok, "Variable name %s already declared in local scope", d.Name)
		}
	}

	if d.Init == nil {
		c.result.SetEntry(node.ID, node.ID)
		return
	}
	if initType := c.typeOf(d.Init); initType != ast.Unknown && declType != ast.VOID && initType != declType {
		c.addError(util.TypeMismatch, d.Init.Tok, "Variable '%s' declared as %s but assigned %s", d.Name, declType, initType)
	}
	c.result.SetEntry(node.ID, d.Init.ID)
}

func (c *Checker) checkAssign(node *ast.Node, d ast.AssignNode) {
	c.checkExpr(d.Expr)
	exprType := c.typeOf(d.Expr)
	target, ok := c.symbols.Type(d.Name)
	if !ok {
		c.addError(util.NameResolution, node.Tok, "\"%s\" was not declared in any scope", d.Name)
		target = ast.Unknown
	}
	if exprType != ast.Unknown && target != exprType {
		c.addError(util.TypeMismatch, d.Expr.Tok, "Assignment to %s is of wrong type. Expected: %s Actual: %s", d.Name, target, exprType)
	}
	c.result.SetEntry(node.ID, d.Expr.ID)
}

func (c *Checker) checkCondition(cond *ast.Node, stmt string) {
	if t := c.typeOf(cond); t != ast.BOOL && t != ast.Unknown {
		c.addError(util.TypeMismatch, cond.Tok, "Condition of %s expected type 'bool' but found '%s'", stmt, t)
	}
}

func (c *Checker) checkFuncDecl(node *ast.Node, d ast.FuncDeclNode) {
	retType := ast.SpecType(d.ReturnType)
	c.result.SetType(d.ReturnType.ID, retType)
	fn, _ := c.regs.Functions.Function(d.Name)
	// a duplicate declaration is checked against its own signature
	if fn == nil || fn.Decl != node.ID {
		params := make([]ast.Type, len(d.Params))
		for i, p := range d.Params {
			params[i] = ast.SpecType(p.Data.(ast.ParamNode).TypeSpec)
		}
		fn = &registry.Function{Name: d.Name, ReturnType: retType, Params: params, Decl: node.ID}
	}

	if d.Name == "main" && len(d.Params) > 0 {
		c.warn(config.WarnMainParams, node.Tok, "Function main declares %d parameter(s) but is called without arguments", len(d.Params))
	}

	prev := c.curFunc
	c.curFunc = fn
	c.symbols.OpenScope()
	for _, p := range d.Params {
		pd := p.Data.(ast.ParamNode)
		pt := ast.SpecType(pd.TypeSpec)
		c.result.SetType(pd.TypeSpec.ID, pt)
		if _, err := pt.Size(); err != nil {
			c.addError(util.TypeMismatch, pd.TypeSpec.Tok, "%s", err.Error())
		}
		if !c.symbols.Add(pd.Name, pt) {
			c.addError(util.NameResolution, p.Tok, "Variable name %s already declared in local scope", pd.Name)
		}
		c.result.SetEntry(p.ID, p.ID)
	}
	c.checkNode(d.Body)
	c.symbols.CloseScope()
	c.curFunc = prev

	c.result.SetEntry(node.ID, c.entryOf(d.Body))
	if registered, ok := c.regs.Functions.Function(d.Name); ok && registered.Decl == node.ID {
		if err := registered.SetContext(node.ID); err != nil {
			internalf("%v", err)
		}
	}
}

func (c *Checker) checkReturn(node *ast.Node, d ast.ReturnNode) {
	if d.Expr != nil {
		c.checkExpr(d.Expr)
	}
	if parent := node.Parent; parent != nil {
		if stmts := ast.Stmts(parent); len(stmts) == 0 || stmts[len(stmts)-1] != node {
			c.addError(util.SyntaxStructure, node.Tok, "Return statement is not last statement.")
		}
	}

	if c.curFunc == nil {
		c.addError(util.SyntaxStructure, node.Tok, "Return statement outside of a function.")
	} else {
		actual := ast.VOID
		if d.Expr != nil {
			actual = c.typeOf(d.Expr)
		}
		if actual != ast.Unknown && actual != c.curFunc.ReturnType {
			c.addError(util.TypeMismatch, node.Tok, "Return type of function %s did not match. Expected: %s Actual: %s",
				c.curFunc.Name, c.curFunc.ReturnType, actual)
		}
	}

	if d.Expr != nil {
		c.result.SetEntry(node.ID, d.Expr.ID)
	} else {
		c.result.SetEntry(node.ID, node.ID)
	}
}

// checkCall verifies arity and argument types against the named function and
// returns the call's control-flow entry. Arguments must already be checked.
func (c *Checker) checkCall(node *ast.Node, name string, args []*ast.Node) ast.NodeID {
	fn, ok := c.regs.Functions.Function(name)
	if !ok {
		c.addError(util.NameResolution, node.Tok, "Function %s not defined", name)
		return node.ID
	}
	if len(args) != len(fn.Params) {
		c.addError(util.ArityMismatch, node.Tok, "Argument count of call %s did not match. Expected: %d Actual: %d",
			name, len(fn.Params), len(args))
	} else {
		for i, arg := range args {
			if at := c.typeOf(arg); at != ast.Unknown && at != fn.Params[i] {
				c.addError(util.TypeMismatch, arg.Tok, "Argument %d of call %s did not match expected type. Expected: %s Actual: %s",
					i, name, fn.Params[i], at)
			}
		}
	}
	if ctx, bound := fn.Context(); bound {
		return c.entryOf(c.tree.Node(ctx))
	}
	return fn.Decl
}

func (c *Checker) checkExpr(node *ast.Node) {
	typ, entry := ast.Unknown, node.ID
	switch d := node.Data.(type) {
	case ast.NumberNode:
		typ = ast.INT
	case ast.CharNode:
		typ = ast.INT
	case ast.BoolNode:
		typ = ast.BOOL
	case ast.IdentNode:
		if t, ok := c.symbols.Type(d.Name); ok {
			typ = t
		} else {
			c.addError(util.NameResolution, node.Tok, "ID: %s is not defined.", d.Name)
		}
	case ast.ParenNode:
		c.checkExpr(d.Expr)
		typ, entry = c.typeOf(d.Expr), c.entryOf(d.Expr)
	case ast.UnaryOpNode:
		c.checkExpr(d.Expr)
		typ = c.unaryOpResultType(d.Op, c.typeOf(d.Expr), node.Tok)
		entry = c.entryOf(d.Expr)
	case ast.BinaryOpNode:
		c.checkExpr(d.Left)
		c.checkExpr(d.Right)
		typ = c.binaryOpResultType(d.Op, c.typeOf(d.Left), c.typeOf(d.Right), node.Tok)
		entry = c.entryOf(d.Left)
	case ast.FuncCallNode:
		for _, arg := range d.Args {
			c.checkExpr(arg)
		}
		entry = c.checkCall(node, d.Name, d.Args)
		if fn, ok := c.regs.Functions.Function(d.Name); ok {
			typ = fn.ReturnType
		}
	case ast.JoinNode:
		c.joined[d.Name] = true
		if t, ok := c.regs.Runs.Type(d.Name); ok {
			typ = t
		} else {
			c.addError(util.NameResolution, node.Tok, "Run statement with ID %s not declared", d.Name)
		}
	case ast.LockedNode:
		c.released[d.Name] = true
		if !c.regs.Locks.ReleaseLock(d.Name) {
			c.addError(util.NameResolution, node.Tok, "Lock %s never declared in program", d.Name)
		}
		typ = ast.BOOL
	default:
		internalf("unexpected expression node %s", node.Type)
	}
	c.result.SetType(node.ID, typ)
	c.result.SetEntry(node.ID, entry)
}

func (c *Checker) unaryOpResultType(op token.Type, operand ast.Type, tok token.Token) ast.Type {
	want := ast.INT
	if op == token.Not {
		want = ast.BOOL
	}
	if operand != want {
		if operand != ast.Unknown {
			c.addError(util.TypeMismatch, tok, "Operation \"%s\" is not defined for operand %s", op, operand)
		}
		return ast.Unknown
	}
	return want
}

func (c *Checker) binaryOpResultType(op token.Type, left, right ast.Type, tok token.Token) ast.Type {
	var ok bool
	result := ast.BOOL
	switch op {
	case token.Plus, token.Minus, token.Star, token.Slash, token.Rem, token.StarStar:
		ok = left == ast.INT && right == ast.INT
		result = ast.INT
	case token.AndAnd, token.OrOr:
		ok = left == ast.BOOL && right == ast.BOOL
	case token.EqEq, token.Neq:
		ok = left == right && (left == ast.INT || left == ast.BOOL)
	case token.Lt, token.Lte, token.Gt, token.Gte:
		ok = left == ast.INT && right == ast.INT
	default:
		internalf("unexpected binary operator %s", op)
	}
	if !ok {
		if left != ast.Unknown && right != ast.Unknown {
			c.addError(util.TypeMismatch, tok, "Operation \"%s\" is not defined for operands %s and %s", op, left, right)
		}
		// ill-typed operations are Unknown
		return ast.Unknown
	}
	return result
}

func (c *Checker) collectWarnings() {
	for _, name := range c.regs.Runs.Names() {
		if !c.joined[name] {
			c.warn(config.WarnUnjoinedRun, c.runToks[name], "Result of run %s is never joined", name)
		}
	}
	for _, name := range c.regs.Locks.Names() {
		if !c.released[name] {
			c.warn(config.WarnUnreleasedLock, c.lockToks[name], "Lock %s is acquired but never unlocked", name)
		}
	}
}
