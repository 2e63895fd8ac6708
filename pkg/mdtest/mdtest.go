// Package mdtest extracts compiler test cases from Markdown documents.
//
// A test case starts at a heading of the form "Test: <name>" and holds one
// pp07 input fence followed by any number of assertion fences:
//
//	## Test: a simple call
//	```pp07
//	int main() { return 1; }
//	```
//	```errors
//	```
package mdtest

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const InputFence = "pp07"

// AssertionType names what an assertion fence is compared against
type AssertionType string

const (
	// AssertAST is the S-expression of the parsed program
	AssertAST AssertionType = "ast"
	// AssertErrors lists the checker's messages, one per line. An empty
	// fence asserts a clean program.
	AssertErrors AssertionType = "errors"
	// AssertWarnings lists warning messages, one per line
	AssertWarnings AssertionType = "warnings"
	// AssertSprockell is the resolved Sprockell instruction listing
	AssertSprockell AssertionType = "sprockell"
)

type Assertion struct {
	Type    AssertionType
	Content string
	Line    int
}

// Lines splits the assertion into its non-empty lines
func (a Assertion) Lines() []string {
	var out []string
	for _, l := range strings.Split(a.Content, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

type TestCase struct {
	Name       string
	Input      string
	Line       int
	Assertions []Assertion
}

func isAssertion(lang string) bool {
	switch AssertionType(lang) {
	case AssertAST, AssertErrors, AssertWarnings, AssertSprockell:
		return true
	}
	return false
}

// ExtractFile reads and extracts the test cases of a Markdown file
func ExtractFile(path string) ([]TestCase, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cases, err := Extract(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// Extract parses a Markdown document and returns its test cases in order
func Extract(source []byte) ([]TestCase, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cases []TestCase
	var cur *TestCase
	flush := func() error {
		if cur == nil {
			return nil
		}
		if cur.Input == "" {
			return fmt.Errorf("line %d: test '%s' has no %s fence", cur.Line, cur.Name, InputFence)
		}
		if len(cur.Assertions) == 0 {
			return fmt.Errorf("line %d: test '%s' has no assertion fences", cur.Line, cur.Name)
		}
		cases = append(cases, *cur)
		cur = nil
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			heading := nodeText(n, source)
			if !strings.HasPrefix(heading, "Test: ") {
				return ast.WalkContinue, nil
			}
			if err := flush(); err != nil {
				return ast.WalkStop, err
			}
			cur = &TestCase{Name: strings.TrimPrefix(heading, "Test: "), Line: lineOf(n, source)}
		case *ast.FencedCodeBlock:
			lang := string(n.Language(source))
			line := lineOf(n, source)
			if lang == "" {
				return ast.WalkContinue, nil
			}
			if cur == nil {
				return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of a test case", line, lang)
			}
			content := strings.TrimRight(fenceContent(n, source), "\n")
			switch {
			case lang == InputFence:
				if cur.Input != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple %s fences in test '%s'", line, InputFence, cur.Name)
				}
				cur.Input = content
			case isAssertion(lang):
				cur.Assertions = append(cur.Assertions, Assertion{Type: AssertionType(lang), Content: content, Line: line})
			default:
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", line, lang, cur.Name)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cases, nil
}

func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	for i := 0; i < block.Lines().Len(); i++ {
		line := block.Lines().At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

// lineOf is the 1-based line of the node's first content line
func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	return bytes.Count(source[:node.Lines().At(0).Start], []byte("\n")) + 1
}
