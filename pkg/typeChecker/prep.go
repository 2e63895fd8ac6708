package typeChecker

import (
	"github.com/xplshn/pp07/pkg/ast"
	"github.com/xplshn/pp07/pkg/registry"
	"github.com/xplshn/pp07/pkg/util"
)

// Registries is the output of the preparation pass
type Registries struct {
	Functions *registry.Functions
	Locks     *registry.Locks
	Runs      *registry.Runs
}

// Prepare walks the tree once, registering every function declaration,
// acquiring every lock named by a lock statement and recording every run.
// Runs are resolved against the functions after the walk, so a run may name
// a function declared further down. A run naming an unknown function is
// registered as Unknown and left for the checker to report.
func Prepare(tree *ast.Tree) (*Registries, []*util.Diagnostic) {
	regs := &Registries{
		Functions: registry.NewFunctions(),
		Locks:     registry.NewLocks(),
		Runs:      registry.NewRuns(),
	}
	var diags []*util.Diagnostic
	var runs []*ast.Node

	ast.Walk(tree.Root, func(n *ast.Node) bool {
		switch d := n.Data.(type) {
		case ast.FuncDeclNode:
			params := make([]ast.Type, len(d.Params))
			for i, p := range d.Params {
				params[i] = ast.SpecType(p.Data.(ast.ParamNode).TypeSpec)
			}
			if !regs.Functions.AddFunction(d.Name, n.ID, ast.SpecType(d.ReturnType), params...) {
				diags = append(diags, util.NewDiagnostic(util.NameResolution, n.Tok, "Function %s already declared", d.Name))
			}
		case ast.LockNode:
			regs.Locks.AcquireLock(d.Name)
		case ast.RunNode:
			runs = append(runs, n)
		}
		return true
	})

	for _, n := range runs {
		d := n.Data.(ast.RunNode)
		t := ast.Unknown
		if fn, ok := regs.Functions.Function(d.Func); ok {
			t = fn.ReturnType
		}
		if !regs.Runs.AddRun(d.Name, t) {
			diags = append(diags, util.NewDiagnostic(util.NameResolution, n.Tok, "Run statement with ID %s already declared", d.Name))
		}
	}
	return regs, diags
}
