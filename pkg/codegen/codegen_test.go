package codegen

import (
	"slices"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/pp07/pkg/config"
	"github.com/xplshn/pp07/pkg/lexer"
	"github.com/xplshn/pp07/pkg/parser"
	"github.com/xplshn/pp07/pkg/typeChecker"
)

func checked(t *testing.T, src string) *Unit {
	t.Helper()
	cfg := config.NewConfig()
	toks, err := lexer.NewLexer([]rune(src), 0, cfg).Tokenize()
	be.Err(t, err, nil)
	tree, err := parser.NewParser(toks, cfg).Parse()
	be.Err(t, err, nil)
	res, err := typeChecker.NewChecker(cfg).Check(tree)
	be.Err(t, err, nil)
	return &Unit{Tree: tree, Result: res}
}

const concurrent = `
int counter = 0;
int work(int n) {
    lock m;
    counter = counter + n;
    unlock m;
    return counter;
}
int main() {
    run r = work(2);
    bool held = locked(m);
    return join(r);
}
`

func TestGenerateResolvesEveryLabel(t *testing.T) {
	unit := checked(t, concurrent)
	prog, err := NewContext(config.NewConfig()).Generate(unit.Tree, unit.Result)
	be.Err(t, err, nil)
	be.True(t, prog.Resolved())

	lines := prog.Lines()
	be.Equal(t, lines[len(lines)-1], "EndProg")
	be.True(t, strings.HasPrefix(lines[0], "Branch regSprID (Abs "))
	// counter takes the first global cells, then the lock and run slots
	be.True(t, slices.Contains(lines, "TestAndSet (DirAddr 4)"))
	be.True(t, slices.Contains(lines, "WriteInstr reg0 (DirAddr 4)"))
	be.True(t, slices.Contains(lines, "WriteInstr regA (DirAddr 8)"))
	be.True(t, slices.Contains(lines, "ReadInstr (DirAddr 8)"))
}

func TestGenerateIsDeterministic(t *testing.T) {
	var prints []uint64
	for range 2 {
		unit := checked(t, concurrent)
		prog, err := NewContext(config.NewConfig()).Generate(unit.Tree, unit.Result)
		be.Err(t, err, nil)
		prints = append(prints, prog.Fingerprint())
	}
	be.Equal(t, prints[0], prints[1])
}

func TestNewBackend(t *testing.T) {
	for _, name := range []string{config.BackendSprockell, config.BackendQBE} {
		b, err := NewBackend(name)
		be.Err(t, err, nil)
		be.True(t, b != nil)
	}
	_, err := NewBackend("llvm")
	be.Err(t, err, "unsupported backend 'llvm'")
}

func TestSprockellHaskell(t *testing.T) {
	unit := checked(t, "int main() { return 1; }")
	cfg := config.NewConfig()
	cfg.Sprockells = 2
	buf, err := NewSprockellBackend().Generate(unit, cfg)
	be.Err(t, err, nil)
	out := buf.String()
	be.True(t, strings.HasPrefix(out, "-- Code generated by pp07c. DO NOT EDIT.\n-- fingerprint: "))
	be.True(t, strings.Contains(out, "import Sprockell\n"))
	be.True(t, strings.Contains(out, "    [ Branch regSprID (Abs 25)\n"))
	be.True(t, strings.Contains(out, "    , EndProg\n    ]\n"))
	be.True(t, strings.HasSuffix(out, "main = run [prog,prog]\n"))

	cfg.Debugger = true
	buf, err = NewSprockellBackend().Generate(unit, cfg)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(buf.String(), "main = runWithDebugger (debuggerSimplePrint showLocalMem) [prog,prog]"))
}

func TestSprockellListing(t *testing.T) {
	unit := checked(t, "int main() { return 1; }")
	out, err := NewSprockellBackend().GenerateIR(unit, config.NewConfig())
	be.Err(t, err, nil)
	be.True(t, strings.HasPrefix(out, " 0  Branch regSprID (Abs 25)\n"))
	be.True(t, strings.HasSuffix(out, "25  EndProg\n"))
}

func TestBackendsRejectUncheckedUnits(t *testing.T) {
	_, err := NewSprockellBackend().GenerateIR(&Unit{}, config.NewConfig())
	be.Err(t, err, "sprockell: unit has not been checked")
	_, err = NewQBEBackend().GenerateIR(nil, config.NewConfig())
	be.Err(t, err, "qbe: unit has not been checked")
}

func TestQBEIR(t *testing.T) {
	out, err := NewQBEBackend().GenerateIR(checked(t, concurrent), config.NewConfig())
	be.Err(t, err, nil)
	for _, want := range []string{
		"data $pp07_g_counter = { z 4 }",
		"data $pp07_lock_m = { z 4 }",
		"data $pp07_run_r = { z 4 }",
		"function w $pp07_work(w %p_n) {",
		"function w $pp07_main() {",
		"function w $pp07_init() {",
		"function w $pp07_pow(w %base, w %exp) {",
		"export function w $main() {",
		"storew 1, $pp07_lock_m",
		"storew 0, $pp07_lock_m",
		"=w call $pp07_work(w 2)",
	} {
		be.True(t, strings.Contains(out, want))
	}
}

func TestQBEPow(t *testing.T) {
	out, err := NewQBEBackend().GenerateIR(checked(t, "int main() { return 2 ** 3; }"), config.NewConfig())
	be.Err(t, err, nil)
	be.True(t, strings.Contains(out, "=w call $pp07_pow(w 2, w 3)"))
}
