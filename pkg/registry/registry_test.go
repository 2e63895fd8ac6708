package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/go-test/deep"
	"github.com/nalgeon/be"
	"github.com/xplshn/pp07/pkg/ast"
)

func TestFunctions(t *testing.T) {
	fs := NewFunctions()
	be.True(t, fs.AddFunction("main", 3, ast.INT))
	be.True(t, fs.AddFunction("add", 7, ast.INT, ast.INT, ast.INT))
	be.True(t, !fs.AddFunction("add", 9, ast.BOOL))

	fn, ok := fs.Function("add")
	be.True(t, ok)
	be.Equal(t, fn.Decl, ast.NodeID(7))
	be.Equal(t, fn.ReturnType, ast.INT)
	be.Equal(t, fn.String(), "int add(int, int)")
	be.True(t, !fs.HasFunction("sub"))

	if diff := deep.Equal(fs.Names(), []string{"add", "main"}); diff != nil {
		t.Error(diff)
	}
}

func TestFunctionContext(t *testing.T) {
	fs := NewFunctions()
	fs.AddFunction("f", 2, ast.VOID)
	fn, _ := fs.Function("f")

	_, ok := fn.Context()
	be.True(t, !ok)
	be.True(t, fn.SetContext(ast.NoNode) != nil)

	be.Err(t, fn.SetContext(5), nil)
	entry, ok := fn.Context()
	be.True(t, ok)
	be.Equal(t, entry, ast.NodeID(5))

	err := fn.SetContext(6)
	be.True(t, errors.Is(err, ErrContextSet))
	entry, _ = fn.Context()
	be.Equal(t, entry, ast.NodeID(5))
}

func TestLocks(t *testing.T) {
	ls := NewLocks()
	be.True(t, !ls.ReleaseLock("m"))
	be.True(t, ls.AcquireLock("m"))
	be.True(t, !ls.AcquireLock("m"))
	be.True(t, ls.HasLock("m"))
	be.True(t, ls.ReleaseLock("m"))
	be.True(t, ls.AcquireLock("m"))
	ls.AcquireLock("a")
	if diff := deep.Equal(ls.Names(), []string{"a", "m"}); diff != nil {
		t.Error(diff)
	}
}

func TestLockExclusion(t *testing.T) {
	ls := NewLocks()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ls.AcquireLock("m") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	be.Equal(t, wins, 1)
}

func TestRuns(t *testing.T) {
	rs := NewRuns()
	be.True(t, rs.AddRun("r", ast.INT))
	be.True(t, !rs.AddRun("r", ast.BOOL))
	typ, ok := rs.Type("r")
	be.True(t, ok)
	be.Equal(t, typ, ast.INT)
	be.True(t, !rs.HasRun("q"))
	rs.AddRun("a", ast.Unknown)
	if diff := deep.Equal(rs.Names(), []string{"a", "r"}); diff != nil {
		t.Error(diff)
	}
}
