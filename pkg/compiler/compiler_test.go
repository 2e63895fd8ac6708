package compiler

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/nalgeon/be"
	"github.com/xplshn/pp07/pkg/ast"
	"github.com/xplshn/pp07/pkg/codegen"
	"github.com/xplshn/pp07/pkg/config"
	"github.com/xplshn/pp07/pkg/mdtest"
	"github.com/xplshn/pp07/pkg/util"
)

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.SetAllWarnings(true)
	return cfg
}

func TestMarkdownSuites(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.md"))
	be.Err(t, err, nil)
	be.True(t, len(files) > 0)

	for _, file := range files {
		cases, err := mdtest.ExtractFile(file)
		be.Err(t, err, nil)
		t.Run(filepath.Base(file), func(t *testing.T) {
			for _, tc := range cases {
				t.Run(tc.Name, func(t *testing.T) { runCase(t, tc) })
			}
		})
	}
}

func runCase(t *testing.T, tc mdtest.TestCase) {
	src := []util.SourceFileRecord{{Name: "test.pp07", Content: []rune(tc.Input)}}
	for _, a := range tc.Assertions {
		switch a.Type {
		case mdtest.AssertAST:
			tree, err := Parse(src, testConfig())
			be.Err(t, err, nil)
			be.Equal(t, ast.Sexpr(tree.Root), a.Content)

		case mdtest.AssertErrors:
			_, _, err := Check(src, testConfig())
			if diff := cmp.Diff(a.Lines(), errorMessages(err), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("line %d: errors mismatch (-want +got):\n%s", a.Line, diff)
			}

		case mdtest.AssertWarnings:
			_, warnings, _ := Check(src, testConfig())
			var got []string
			for _, w := range warnings {
				got = append(got, w.Msg)
			}
			if diff := cmp.Diff(a.Lines(), got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("line %d: warnings mismatch (-want +got):\n%s", a.Line, diff)
			}

		case mdtest.AssertSprockell:
			cfg := testConfig()
			unit, _, err := Check(src, cfg)
			be.Err(t, err, nil)
			prog, err := codegen.NewContext(cfg).Generate(unit.Tree, unit.Result)
			be.Err(t, err, nil)
			if diff := cmp.Diff(a.Lines(), prog.Lines()); diff != "" {
				t.Errorf("line %d: listing mismatch (-want +got):\n%s", a.Line, diff)
			}
		}
	}
}

func errorMessages(err error) []string {
	if err == nil {
		return nil
	}
	var cerr *util.CompileError
	if errors.As(err, &cerr) {
		return cerr.Messages()
	}
	var diag *util.Diagnostic
	if errors.As(err, &diag) {
		return []string{diag.Msg}
	}
	return []string{err.Error()}
}

func TestTokenizeJoinsFiles(t *testing.T) {
	cfg := config.NewConfig()
	files := []util.SourceFileRecord{
		{Name: "a.pp07", Content: []rune("int x;")},
		{Name: "b.pp07", Content: []rune("int main() { return x; }")},
	}
	toks, err := Tokenize(files, cfg)
	be.Err(t, err, nil)
	be.Equal(t, toks[len(toks)-1].FileIndex, 1)
	be.Equal(t, toks[0].FileIndex, 0)

	unit, _, err := Check(files, cfg)
	be.Err(t, err, nil)
	be.True(t, unit.Result.Functions.HasFunction("main"))
}

func TestCheckStringSyntaxError(t *testing.T) {
	_, _, err := CheckString("bad.pp07", "int main() { return 1 }", config.NewConfig())
	var diag *util.Diagnostic
	be.True(t, errors.As(err, &diag))
	be.Equal(t, diag.Kind, util.SyntaxStructure)
	be.Equal(t, diag.Msg, "Expected ';' after return statement.")
}

func TestCheckStringFeatureDisabled(t *testing.T) {
	cfg := config.NewConfig()
	be.Err(t, cfg.ApplyStd("core"), nil)
	_, _, err := CheckString("run.pp07", "int main() { lock m; return 0; }", cfg)
	var diag *util.Diagnostic
	be.True(t, errors.As(err, &diag))
	be.Equal(t, diag.Msg, "'lock' requires the 'concurrency' feature")
}
