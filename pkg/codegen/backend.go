package codegen

import (
	"bytes"
	"fmt"

	"github.com/xplshn/pp07/pkg/ast"
	"github.com/xplshn/pp07/pkg/config"
	"github.com/xplshn/pp07/pkg/typeChecker"
)

// Unit is a program that passed the checker
type Unit struct {
	Tree   *ast.Tree
	Result *typeChecker.Result
}

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate produces the final output of the backend for a checked unit.
	Generate(unit *Unit, cfg *config.Config) (*bytes.Buffer, error)
	// GenerateIR renders the backend's intermediate form, for -d.
	GenerateIR(unit *Unit, cfg *config.Config) (string, error)
}

// NewBackend selects a backend by its config name
func NewBackend(name string) (Backend, error) {
	switch name {
	case config.BackendSprockell:
		return NewSprockellBackend(), nil
	case config.BackendQBE:
		return NewQBEBackend(), nil
	}
	return nil, fmt.Errorf("unsupported backend '%s'", name)
}
