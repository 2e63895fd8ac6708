package typeChecker

import (
	"fmt"

	"github.com/xplshn/pp07/pkg/ast"
	"github.com/xplshn/pp07/pkg/registry"
)

// InternalError is an invariant violation inside a pass. It is never caused
// by user input.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal compiler error: " + e.Msg }

func internalf(format string, args ...interface{}) {
	panic(&InternalError{Msg: fmt.Sprintf(format, args...)})
}

// Result holds the inferred type and control-flow entry of checked nodes.
// It is written by the Checker only and read by the code generator.
type Result struct {
	// Functions is the registry the program was checked against
	Functions *registry.Functions

	types   map[ast.NodeID]ast.Type
	entries map[ast.NodeID]ast.NodeID
}

func NewResult() *Result {
	return &Result{
		types:   make(map[ast.NodeID]ast.Type),
		entries: make(map[ast.NodeID]ast.NodeID),
	}
}

func (r *Result) SetType(id ast.NodeID, t ast.Type) { r.types[id] = t }

// Type panics with an *InternalError when no type was recorded for id
func (r *Result) Type(id ast.NodeID) ast.Type {
	t, ok := r.types[id]
	if !ok {
		internalf("missing inferred type of node %d", id)
	}
	return t
}

func (r *Result) HasType(id ast.NodeID) bool {
	_, ok := r.types[id]
	return ok
}

func (r *Result) SetEntry(id, entry ast.NodeID) {
	if entry == ast.NoNode {
		internalf("empty flow graph entry for node %d", id)
	}
	r.entries[id] = entry
}

// Entry panics with an *InternalError when no entry was recorded for id
func (r *Result) Entry(id ast.NodeID) ast.NodeID {
	e, ok := r.entries[id]
	if !ok {
		internalf("missing flow graph entry of node %d", id)
	}
	return e
}

func (r *Result) HasEntry(id ast.NodeID) bool {
	_, ok := r.entries[id]
	return ok
}
