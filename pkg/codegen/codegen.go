package codegen

import (
	"fmt"

	"github.com/xplshn/pp07/pkg/ast"
	"github.com/xplshn/pp07/pkg/config"
	"github.com/xplshn/pp07/pkg/ir"
	"github.com/xplshn/pp07/pkg/symtab"
	"github.com/xplshn/pp07/pkg/typeChecker"
)

// frameHeader is the number of cells before the first local of a frame:
// the saved ARP and the return address.
const frameHeader = 2

// Prefixes of the shared memory cells backing locks and run results. They
// cannot collide with source identifiers.
const (
	lockPrefix = "@lock:"
	runPrefix  = "@run:"
)

// Context lowers a checked tree to a Sprockell instruction list. regF holds
// the ARP of the running frame; every expression leaves its value on the
// stack.
type Context struct {
	prog       *ir.Program
	tree       *ast.Tree
	result     *typeChecker.Result
	symbols    *symtab.Table
	cfg        *config.Config
	funcLabels map[string]*ir.Label
}

func NewContext(cfg *config.Config) *Context {
	return &Context{cfg: cfg}
}

// Generate emits the program and backpatches every label. The tree must have
// passed the checker; inconsistencies panic.
func (ctx *Context) Generate(tree *ast.Tree, result *typeChecker.Result) (*ir.Program, error) {
	ctx.prog = ir.NewProgram()
	ctx.tree = tree
	ctx.result = result
	ctx.symbols = symtab.New()
	ctx.funcLabels = make(map[string]*ir.Label)
	for _, name := range result.Functions.Names() {
		ctx.funcLabels[name] = ctx.prog.NewLabel()
	}

	end := ctx.prog.NewLabel()
	// only the first sprockell runs the program
	ctx.emit(ir.OpBranch, ir.RegSprID, ir.LabelRef{Label: end})
	for _, stmt := range ast.Stmts(tree.Root) {
		ctx.codegenStmt(stmt)
	}
	ctx.codegenCall("main", nil)
	ctx.emit(ir.OpPop, ir.RegA)
	ctx.place(end)
	ctx.emit(ir.OpEndProg)

	if err := ctx.prog.Resolve(); err != nil {
		return nil, err
	}
	return ctx.prog, nil
}

func (ctx *Context) emit(op ir.Op, args ...ir.Operand) { ctx.prog.Emit(op, args...) }

func (ctx *Context) newLabel() *ir.Label { return ctx.prog.NewLabel() }

func (ctx *Context) place(l *ir.Label) {
	if err := ctx.prog.Place(l); err != nil {
		panic(err)
	}
}

func (ctx *Context) jump(l *ir.Label) {
	ctx.emit(ir.OpJump, ir.LabelRef{Label: l})
}

func (ctx *Context) pushConst(n int) {
	ctx.emit(ir.OpLoad, ir.Imm(n), ir.RegA)
	ctx.emit(ir.OpPush, ir.RegA)
}

func (ctx *Context) resolve(name string) symtab.Symbol {
	sym, ok := ctx.symbols.Resolve(name)
	if !ok {
		panic(fmt.Sprintf("codegen: unresolved symbol '%s' in a checked tree", name))
	}
	return sym
}

// slot returns the shared memory address of a lock or run cell, allocating
// it on first use.
func (ctx *Context) slot(prefix, name string) ir.DirAddr {
	key := prefix + name
	if !ctx.symbols.HasGlobal(key) {
		ctx.symbols.AddGlobal(key, ast.INT)
	}
	return ir.DirAddr(ctx.resolve(key).Addr())
}

// localAddr leaves regF+frameHeader+addr in reg
func (ctx *Context) localAddr(addr int, reg ir.Reg) {
	ctx.emit(ir.OpLoad, ir.Imm(frameHeader+addr), reg)
	ctx.emit(ir.OpCompute, ir.Add, ir.RegF, reg, reg)
}

// load pushes the value of a variable
func (ctx *Context) load(name string) {
	sym := ctx.resolve(name)
	if sym.Global {
		ctx.emit(ir.OpReadInstr, ir.DirAddr(sym.Addr()))
		ctx.emit(ir.OpReceive, ir.RegA)
	} else {
		ctx.localAddr(sym.Addr(), ir.RegB)
		ctx.emit(ir.OpLoad, ir.IndAddr(ir.RegB), ir.RegA)
	}
	ctx.emit(ir.OpPush, ir.RegA)
}

// store writes src into a resolved variable
func (ctx *Context) store(sym symtab.Symbol, src ir.Reg) {
	if sym.Global {
		ctx.emit(ir.OpWriteInstr, src, ir.DirAddr(sym.Addr()))
		return
	}
	ctx.localAddr(sym.Addr(), ir.RegB)
	ctx.emit(ir.OpStore, src, ir.IndAddr(ir.RegB))
}

// returnFromFrame pops nothing: the return value is already on the stack
func (ctx *Context) returnFromFrame() {
	ctx.emit(ir.OpLoad, ir.Imm(1), ir.RegB)
	ctx.emit(ir.OpCompute, ir.Add, ir.RegF, ir.RegB, ir.RegB)
	ctx.emit(ir.OpLoad, ir.IndAddr(ir.RegB), ir.RegC)
	ctx.emit(ir.OpLoad, ir.IndAddr(ir.RegF), ir.RegF)
	ctx.emit(ir.OpJump, ir.Ind(ir.RegC))
}

func (ctx *Context) codegenStmt(node *ast.Node) {
	switch d := node.Data.(type) {
	case ast.VarDeclNode:
		ctx.codegenVarDecl(d)
	case ast.AssignNode:
		ctx.codegenExpr(d.Expr)
		ctx.emit(ir.OpPop, ir.RegA)
		ctx.store(ctx.resolve(d.Name), ir.RegA)
	case ast.EnumDeclNode:
		size, _ := ast.ENUM.SizeOf(len(d.Members))
		ctx.symbols.AddGlobalSized(d.Name, ast.ENUM, size)
	case ast.IfNode:
		ctx.codegenIf(d)
	case ast.WhileNode:
		ctx.codegenWhile(d)
	case ast.BlockNode:
		ctx.symbols.OpenScope()
		for _, stmt := range d.Stmts {
			ctx.codegenStmt(stmt)
		}
		ctx.symbols.CloseScope()
	case ast.FuncDeclNode:
		ctx.codegenFuncDecl(d)
	case ast.ExprStmtNode:
		ctx.codegenExpr(d.Expr)
		ctx.emit(ir.OpPop, ir.RegA)
	case ast.RunNode:
		ctx.codegenCall(d.Func, d.Args)
		ctx.emit(ir.OpPop, ir.RegA)
		ctx.emit(ir.OpWriteInstr, ir.RegA, ctx.slot(runPrefix, d.Name))
	case ast.LockNode:
		addr := ctx.slot(lockPrefix, d.Name)
		spin := ctx.newLabel()
		ctx.place(spin)
		ctx.emit(ir.OpTestAndSet, addr)
		ctx.emit(ir.OpReceive, ir.RegA)
		ctx.emit(ir.OpCompute, ir.Equal, ir.RegA, ir.Reg0, ir.RegA)
		ctx.emit(ir.OpBranch, ir.RegA, ir.LabelRef{Label: spin})
	case ast.UnlockNode:
		ctx.emit(ir.OpWriteInstr, ir.Reg0, ctx.slot(lockPrefix, d.Name))
	case ast.ReturnNode:
		if d.Expr != nil {
			ctx.codegenExpr(d.Expr)
		} else {
			ctx.emit(ir.OpPush, ir.Reg0)
		}
		ctx.returnFromFrame()
	default:
		panic(fmt.Sprintf("codegen: unexpected statement node %s", node.Type))
	}
}

func (ctx *Context) codegenVarDecl(d ast.VarDeclNode) {
	// the initializer sees the scope as it was before the declaration
	src := ir.Reg0
	if d.Init != nil {
		ctx.codegenExpr(d.Init)
		ctx.emit(ir.OpPop, ir.RegA)
		src = ir.RegA
	}
	typ := ctx.result.Type(d.TypeSpec.ID)
	if d.IsGlobal || ctx.symbols.Depth() == 0 {
		ctx.symbols.AddGlobal(d.Name, typ)
	} else {
		ctx.symbols.Add(d.Name, typ)
	}
	ctx.store(ctx.resolve(d.Name), src)
}

// codegenFuncDecl emits the function inline, behind a jump over its body
func (ctx *Context) codegenFuncDecl(d ast.FuncDeclNode) {
	label, ok := ctx.funcLabels[d.Name]
	if !ok || label.Placed() {
		// a duplicate declaration never reaches a checked tree
		panic(fmt.Sprintf("codegen: no pending label for function '%s'", d.Name))
	}
	skip := ctx.newLabel()
	ctx.jump(skip)
	ctx.place(label)

	ctx.symbols.OpenScope()
	for _, p := range d.Params {
		pd := p.Data.(ast.ParamNode)
		ctx.symbols.Add(pd.Name, ctx.result.Type(pd.TypeSpec.ID))
	}
	ctx.codegenStmt(d.Body)
	ctx.symbols.CloseScope()

	ctx.emit(ir.OpPush, ir.Reg0)
	ctx.returnFromFrame()
	ctx.place(skip)
}

// paramOffsets lays out the parameters of a function as its frame scope does
func (ctx *Context) paramOffsets(name string) []int {
	fn, ok := ctx.result.Functions.Function(name)
	if !ok {
		panic(fmt.Sprintf("codegen: call to unknown function '%s'", name))
	}
	offsets := make([]int, len(fn.Params))
	off := 0
	for i, t := range fn.Params {
		offsets[i] = off
		size, _ := t.Size()
		off += size
	}
	return offsets
}

// codegenCall builds the callee frame at the first free cell of the current
// frame, switches regF and jumps. The result is left on the stack.
func (ctx *Context) codegenCall(name string, args []*ast.Node) {
	offsets := ctx.paramOffsets(name)
	for _, arg := range args {
		ctx.codegenExpr(arg)
	}
	ctx.emit(ir.OpLoad, ir.Imm(frameHeader+ctx.symbols.Extent()), ir.RegE)
	ctx.emit(ir.OpCompute, ir.Add, ir.RegF, ir.RegE, ir.RegE)
	for i := len(args) - 1; i >= 0; i-- {
		ctx.emit(ir.OpPop, ir.RegA)
		ctx.emit(ir.OpLoad, ir.Imm(frameHeader+offsets[i]), ir.RegB)
		ctx.emit(ir.OpCompute, ir.Add, ir.RegE, ir.RegB, ir.RegB)
		ctx.emit(ir.OpStore, ir.RegA, ir.IndAddr(ir.RegB))
	}
	ret := ctx.newLabel()
	ctx.emit(ir.OpStore, ir.RegF, ir.IndAddr(ir.RegE))
	ctx.emit(ir.OpLoad, ir.LabelRef{Label: ret, Form: ir.RefImm}, ir.RegA)
	ctx.emit(ir.OpLoad, ir.Imm(1), ir.RegB)
	ctx.emit(ir.OpCompute, ir.Add, ir.RegE, ir.RegB, ir.RegB)
	ctx.emit(ir.OpStore, ir.RegA, ir.IndAddr(ir.RegB))
	ctx.emit(ir.OpCompute, ir.Add, ir.RegE, ir.Reg0, ir.RegF)
	ctx.jump(ctx.funcLabels[name])
	ctx.place(ret)
}
