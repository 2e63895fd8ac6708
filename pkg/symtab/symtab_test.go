package symtab

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/pp07/pkg/ast"
)

func TestAddRequiresScope(t *testing.T) {
	st := New()
	be.True(t, !st.Add("x", ast.INT))
	_, ok := st.Resolve("x")
	be.True(t, !ok)
}

func TestScopesAndOffsets(t *testing.T) {
	st := New()
	st.OpenScope()
	be.True(t, st.Add("a", ast.INT))
	be.True(t, st.Add("b", ast.BOOL))
	be.True(t, !st.Add("a", ast.BOOL))
	be.Equal(t, st.ARP(), 0)
	be.Equal(t, st.Extent(), 5)

	st.OpenScope()
	be.Equal(t, st.Depth(), 2)
	be.Equal(t, st.ARP(), 5)
	be.True(t, st.Add("a", ast.BOOL))
	be.True(t, st.Add("c", ast.INT))

	sym, ok := st.Resolve("a")
	be.True(t, ok)
	be.Equal(t, sym.Type, ast.BOOL)
	be.Equal(t, sym.Offset, 0)
	be.Equal(t, sym.Addr(), 5)

	off, ok := st.Offset("c")
	be.True(t, ok)
	be.Equal(t, off, 1)
	be.True(t, st.InCurrentScope("c"))
	be.True(t, !st.InCurrentScope("b"))
	be.Equal(t, st.Extent(), 10)

	st.CloseScope()
	typ, ok := st.Type("a")
	be.True(t, ok)
	be.Equal(t, typ, ast.INT)
	_, ok = st.Resolve("c")
	be.True(t, !ok)
}

func TestGlobals(t *testing.T) {
	st := New()
	be.True(t, st.AddGlobal("g", ast.INT))
	be.True(t, st.AddGlobal("h", ast.BOOL))
	be.True(t, !st.AddGlobal("g", ast.BOOL))
	be.Equal(t, st.GlobalSize(), 5)
	be.True(t, st.HasGlobal("h"))
	be.True(t, st.InCurrentScope("g"))

	st.OpenScope()
	be.True(t, st.Add("g", ast.BOOL))
	sym, _ := st.Resolve("g")
	be.True(t, !sym.Global)
	sym, _ = st.Resolve("h")
	be.True(t, sym.Global)
	be.Equal(t, sym.Addr(), 4)
}

func TestAddSized(t *testing.T) {
	st := New()
	st.OpenScope()
	size, err := ast.ENUM.SizeOf(3)
	be.Err(t, err, nil)
	be.True(t, st.AddSized("e", ast.ENUM, size))
	be.True(t, st.Add("v", ast.VOID))
	be.Equal(t, st.Extent(), 12)
}

func TestCloseScopePanicsWhenEmpty(t *testing.T) {
	defer func() {
		be.True(t, recover() != nil)
	}()
	New().CloseScope()
}

func TestSymbolString(t *testing.T) {
	st := New()
	st.AddGlobal("g", ast.INT)
	st.OpenScope()
	st.Add("a", ast.BOOL)
	g, _ := st.Resolve("g")
	a, _ := st.Resolve("a")
	be.Equal(t, g.String(), "global int g @0")
	be.Equal(t, a.String(), "bool a @arp+0+0")
}
