// Package compiler chains the front end passes: lexing, parsing and checking.
package compiler

import (
	"github.com/xplshn/pp07/pkg/ast"
	"github.com/xplshn/pp07/pkg/codegen"
	"github.com/xplshn/pp07/pkg/config"
	"github.com/xplshn/pp07/pkg/lexer"
	"github.com/xplshn/pp07/pkg/parser"
	"github.com/xplshn/pp07/pkg/token"
	"github.com/xplshn/pp07/pkg/typeChecker"
	"github.com/xplshn/pp07/pkg/util"
)

// Tokenize lexes every file and joins the streams behind a single EOF
func Tokenize(files []util.SourceFileRecord, cfg *config.Config) ([]token.Token, error) {
	var all []token.Token
	for i, f := range files {
		toks, err := lexer.NewLexer(f.Content, i, cfg).Tokenize()
		if err != nil {
			return nil, err
		}
		all = append(all, toks[:len(toks)-1]...)
	}
	last := max(len(files)-1, 0)
	return append(all, token.Token{Type: token.EOF, FileIndex: last}), nil
}

// Parse lexes and parses files into one tree
func Parse(files []util.SourceFileRecord, cfg *config.Config) (*ast.Tree, error) {
	toks, err := Tokenize(files, cfg)
	if err != nil {
		return nil, err
	}
	return parser.NewParser(toks, cfg).Parse()
}

// Check runs the front end over files. Lexer and parser failures are a
// *util.Diagnostic, semantic failures a *util.CompileError.
func Check(files []util.SourceFileRecord, cfg *config.Config) (*codegen.Unit, []util.Warning, error) {
	tree, err := Parse(files, cfg)
	if err != nil {
		return nil, nil, err
	}
	tc := typeChecker.NewChecker(cfg)
	res, err := tc.Check(tree)
	if err != nil {
		return nil, tc.Warnings(), err
	}
	return &codegen.Unit{Tree: tree, Result: res}, tc.Warnings(), nil
}

// CheckString is Check over a single in-memory source
func CheckString(name, src string, cfg *config.Config) (*codegen.Unit, []util.Warning, error) {
	return Check([]util.SourceFileRecord{{Name: name, Content: []rune(src)}}, cfg)
}
