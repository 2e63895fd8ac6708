package parser

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/pp07/pkg/ast"
	"github.com/xplshn/pp07/pkg/config"
	"github.com/xplshn/pp07/pkg/lexer"
	"github.com/xplshn/pp07/pkg/util"
)

func parse(src string, cfg *config.Config) (*ast.Tree, error) {
	toks, err := lexer.NewLexer([]rune(src), 0, cfg).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(toks, cfg).Parse()
}

func mustParse(t *testing.T, src string) *ast.Tree {
	t.Helper()
	tree, err := parse(src, config.NewConfig())
	be.Err(t, err, nil)
	return tree
}

func TestParseExpressions(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"int x = 1 + 2 * 3;", "(program (decl int x (+ (num 1) (* (num 2) (num 3)))))"},
		{"int x = (1 + 2) * 3;", "(program (decl int x (* (paren (+ (num 1) (num 2))) (num 3))))"},
		{"int x = -2 ** 2;", "(program (decl int x (** (- (num 2)) (num 2))))"},
		{"bool b = 1 < 2 && 3 >= 4 || !true;", "(program (decl bool b (|| (&& (< (num 1) (num 2)) (>= (num 3) (num 4))) (! (bool true)))))"},
		{"bool b = 1 == 2 != false;", "(program (decl bool b (!= (== (num 1) (num 2)) (bool false))))"},
		{"int x = f(1, g(), 3 % 2);", "(program (decl int x (call f (num 1) (call g) (% (num 3) (num 2)))))"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tree := mustParse(t, tt.src)
			be.Equal(t, ast.Sexpr(tree.Root), tt.want)
		})
	}
}

func TestParentLinks(t *testing.T) {
	tree := mustParse(t, "int main() { int a = 1; return a; }")
	fn := ast.Stmts(tree.Root)[0]
	be.Equal(t, fn.Type, ast.FuncDecl)
	body := fn.Data.(ast.FuncDeclNode).Body
	be.Equal(t, body.Parent, fn)
	ret := ast.Stmts(body)[1]
	be.Equal(t, ret.Type, ast.Return)
	be.Equal(t, ret.Parent, body)

	// every node is reachable through its handle
	for id := 1; id <= tree.Len(); id++ {
		be.Equal(t, tree.Node(ast.NodeID(id)).ID, ast.NodeID(id))
	}
}

func TestElseIfIsWrappedInABlock(t *testing.T) {
	tree := mustParse(t, "int main() { if (true) { } else if (false) { } return 0; }")
	body := ast.Stmts(tree.Root)[0].Data.(ast.FuncDeclNode).Body
	ifNode := ast.Stmts(body)[0].Data.(ast.IfNode)
	be.Equal(t, ifNode.ElseBody.Type, ast.Block)
	be.Equal(t, ast.Stmts(ifNode.ElseBody)[0].Type, ast.If)
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"missing semicolon", "int x = 1", "Expected ';' after variable declaration."},
		{"unclosed block", "int main() { return 0;", "Expected '}' to close a block."},
		{"missing expression", "int x = ;", "Expected an expression, found ';'."},
		{"nested function", "int main() { void f() { } return 0; }", "Function f must be declared at top level."},
		{"global function", "global int f() { return 0; }", "Function declarations cannot be 'global'."},
		{"bad type", "int f(x a) { return 0; }", "Expected a type, found 'identifier'."},
		{"join without parens", "int x = join r;", "Expected '(' after 'join'."},
		{"run without function", "int main() { run r = 1; return 0; }", "Expected a function name in run statement."},
		{"empty enum", "enum E { };", "Expected an enum member."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(tt.src, config.NewConfig())
			var diag *util.Diagnostic
			be.True(t, errors.As(err, &diag))
			be.Equal(t, diag.Kind, util.SyntaxStructure)
			be.Equal(t, diag.Msg, tt.msg)
		})
	}
}

func TestFeatureGates(t *testing.T) {
	tests := []struct {
		feat config.Feature
		src  string
		msg  string
	}{
		{config.FeatConcurrency, "int main() { run r = f(); return 0; }", "'run' requires the 'concurrency' feature"},
		{config.FeatConcurrency, "bool b = locked(m);", "'locked' requires the 'concurrency' feature"},
		{config.FeatGlobals, "global int g;", "'global' requires the 'globals' feature"},
		{config.FeatEnums, "enum E { A };", "'enum' requires the 'enums' feature"},
	}
	for _, tt := range tests {
		cfg := config.NewConfig()
		cfg.SetFeature(tt.feat, false)
		_, err := parse(tt.src, cfg)
		var diag *util.Diagnostic
		be.True(t, errors.As(err, &diag))
		be.Equal(t, diag.Msg, tt.msg)
	}
}

func TestEmptyInput(t *testing.T) {
	tree, err := NewParser(nil, config.NewConfig()).Parse()
	be.Err(t, err, nil)
	be.Equal(t, len(ast.Stmts(tree.Root)), 0)
}

func TestIntegerLimits(t *testing.T) {
	tree := mustParse(t, "int lo = -2147483648; int hi = 2147483647;")
	be.Equal(t, ast.Sexpr(tree.Root), "(program (decl int lo (- (num 2147483648))) (decl int hi (num 2147483647)))")

	for _, src := range []string{"int x = 2147483648;", "int x = -(2147483648);", "int x = 1 - 2147483648;"} {
		_, err := parse(src, config.NewConfig())
		var diag *util.Diagnostic
		be.True(t, errors.As(err, &diag))
		be.Equal(t, diag.Msg, "Integer constant out of range: 2147483648")
	}
}
