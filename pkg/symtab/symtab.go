// Package symtab implements the scoped variable table shared by the checker
// and the code generator. Locals are laid out per function frame: every open
// scope starts where the scope beneath it ends.
package symtab

import (
	"fmt"

	"github.com/xplshn/pp07/pkg/ast"
)

type Symbol struct {
	Name   string
	Type   ast.Type
	Offset int
	Size   int
	Global bool
	// Base is the ARP of the owning scope, always 0 for globals
	Base int
}

// Addr is the frame-relative address of a local, or the global address.
func (s Symbol) Addr() int { return s.Base + s.Offset }

type scope struct {
	symbols map[string]Symbol
	size    int
}

type Table struct {
	globals    map[string]Symbol
	globalSize int
	scopes     []*scope
}

func New() *Table {
	return &Table{globals: make(map[string]Symbol)}
}

// OpenScope pushes an empty local scope
func (t *Table) OpenScope() {
	t.scopes = append(t.scopes, &scope{symbols: make(map[string]Symbol)})
}

// CloseScope pops the innermost local scope. Closing with no open scope is a
// programming error.
func (t *Table) CloseScope() {
	if len(t.scopes) == 0 {
		panic("symtab: CloseScope with no open scope")
	}
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// Depth is the number of open local scopes
func (t *Table) Depth() int { return len(t.scopes) }

// Add declares id in the innermost scope. It reports false when no local scope
// is open or id already exists in that scope. Types without a plain size
// (void, enum, array) occupy no storage here; use AddSized for them.
func (t *Table) Add(id string, typ ast.Type) bool {
	size, _ := typ.Size()
	return t.AddSized(id, typ, size)
}

func (t *Table) AddSized(id string, typ ast.Type, size int) bool {
	if len(t.scopes) == 0 {
		return false
	}
	cur := t.scopes[len(t.scopes)-1]
	if _, exists := cur.symbols[id]; exists {
		return false
	}
	cur.symbols[id] = Symbol{Name: id, Type: typ, Offset: cur.size, Size: size}
	cur.size += size
	return true
}

// AddGlobal declares id in the global scope, independent of open local scopes.
func (t *Table) AddGlobal(id string, typ ast.Type) bool {
	size, _ := typ.Size()
	return t.AddGlobalSized(id, typ, size)
}

func (t *Table) AddGlobalSized(id string, typ ast.Type, size int) bool {
	if _, exists := t.globals[id]; exists {
		return false
	}
	t.globals[id] = Symbol{Name: id, Type: typ, Offset: t.globalSize, Size: size, Global: true}
	t.globalSize += size
	return true
}

// Resolve looks id up from the innermost scope outwards, then in the globals.
func (t *Table) Resolve(id string) (Symbol, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i].symbols[id]; ok {
			sym.Base = t.baseOf(i)
			return sym, true
		}
	}
	sym, ok := t.globals[id]
	return sym, ok
}

func (t *Table) Type(id string) (ast.Type, bool) {
	sym, ok := t.Resolve(id)
	return sym.Type, ok
}

func (t *Table) Offset(id string) (int, bool) {
	sym, ok := t.Resolve(id)
	return sym.Offset, ok
}

// InCurrentScope reports whether id is declared in the innermost open scope
// (or in the globals when none is open).
func (t *Table) InCurrentScope(id string) bool {
	if len(t.scopes) == 0 {
		_, ok := t.globals[id]
		return ok
	}
	_, ok := t.scopes[len(t.scopes)-1].symbols[id]
	return ok
}

// HasGlobal reports whether id is declared in the global scope
func (t *Table) HasGlobal(id string) bool {
	_, ok := t.globals[id]
	return ok
}

// ARP returns the cumulative size of the open scopes beneath the innermost one.
func (t *Table) ARP() int {
	if len(t.scopes) == 0 {
		return 0
	}
	return t.baseOf(len(t.scopes) - 1)
}

// Extent returns the cumulative size of every open local scope, the first
// free frame address.
func (t *Table) Extent() int { return t.baseOf(len(t.scopes)) }

// GlobalSize is the amount of global storage reserved so far
func (t *Table) GlobalSize() int { return t.globalSize }

func (t *Table) baseOf(depth int) int {
	base := 0
	for _, s := range t.scopes[:depth] {
		base += s.size
	}
	return base
}

func (s Symbol) String() string {
	if s.Global {
		return fmt.Sprintf("global %s %s @%d", s.Type, s.Name, s.Offset)
	}
	return fmt.Sprintf("%s %s @arp+%d+%d", s.Type, s.Name, s.Base, s.Offset)
}
