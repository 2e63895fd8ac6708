// Package registry holds the program-wide tables built before type checking:
// declared functions, named locks and named runs.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xplshn/pp07/pkg/ast"
)

// ErrContextSet is returned by SetContext on a second write
var ErrContextSet = errors.New("function context already set")

type Function struct {
	Name       string
	ReturnType ast.Type
	Params     []ast.Type
	// Decl is the FuncDecl node that declared the function
	Decl    ast.NodeID
	context ast.NodeID
}

// SetContext binds the node control transfers to when the function is called.
// It can be written exactly once.
func (f *Function) SetContext(entry ast.NodeID) error {
	if f.context != ast.NoNode {
		return fmt.Errorf("%s: %w", f.Name, ErrContextSet)
	}
	if entry == ast.NoNode {
		return fmt.Errorf("%s: cannot bind an empty context", f.Name)
	}
	f.context = entry
	return nil
}

func (f *Function) Context() (ast.NodeID, bool) { return f.context, f.context != ast.NoNode }

func (f *Function) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s %s(%s)", f.ReturnType, f.Name, strings.Join(params, ", "))
}

type Functions struct {
	byName map[string]*Function
}

func NewFunctions() *Functions {
	return &Functions{byName: make(map[string]*Function)}
}

// AddFunction registers name unless it already exists and reports whether it did.
func (fs *Functions) AddFunction(name string, decl ast.NodeID, returnType ast.Type, params ...ast.Type) bool {
	if _, exists := fs.byName[name]; exists {
		return false
	}
	fs.byName[name] = &Function{Name: name, ReturnType: returnType, Params: params, Decl: decl}
	return true
}

func (fs *Functions) Function(name string) (*Function, bool) {
	f, ok := fs.byName[name]
	return f, ok
}

func (fs *Functions) HasFunction(name string) bool {
	_, ok := fs.byName[name]
	return ok
}

// Names returns the registered names in sorted order
func (fs *Functions) Names() []string {
	names := make([]string, 0, len(fs.byName))
	for name := range fs.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
