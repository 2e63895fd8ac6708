package registry

import (
	"sort"

	"github.com/xplshn/pp07/pkg/ast"
)

type Runs struct {
	types map[string]ast.Type
}

func NewRuns() *Runs { return &Runs{types: make(map[string]ast.Type)} }

// AddRun registers id with the result type of the function it runs
func (rs *Runs) AddRun(id string, t ast.Type) bool {
	if _, exists := rs.types[id]; exists {
		return false
	}
	rs.types[id] = t
	return true
}

func (rs *Runs) HasRun(id string) bool {
	_, ok := rs.types[id]
	return ok
}

func (rs *Runs) Type(id string) (ast.Type, bool) {
	t, ok := rs.types[id]
	return t, ok
}

func (rs *Runs) Names() []string {
	names := make([]string, 0, len(rs.types))
	for name := range rs.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
