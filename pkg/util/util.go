package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/pp07/pkg/config"
	"github.com/xplshn/pp07/pkg/token"
	"golang.org/x/term"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var sourceFiles []SourceFileRecord

// SetSourceFiles stores the source code for all input files for rich error messages
func SetSourceFiles(files []SourceFileRecord) { sourceFiles = files }

func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "<input>", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

type palette struct{ red, yellow, green, none string }

func paletteFor(w io.Writer) palette {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return palette{"\033[31m", "\033[33m", "\033[32m", "\033[0m"}
	}
	return palette{}
}

// printErrorLine prints the source line and a caret indicating the error position
func printErrorLine(w io.Writer, tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return
	}
	content := sourceFiles[tok.FileIndex].Content
	lineStart, lineNum := 0, tok.Line
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}
	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	p := paletteFor(w)
	fmt.Fprintf(w, "  %s\n", string(content[lineStart:lineEnd]))
	fmt.Fprintf(w, "  %s%s^", strings.Repeat(" ", max(tok.Column-1, 0)), p.green)
	if tok.Len > 1 {
		fmt.Fprint(w, strings.Repeat("~", tok.Len-1))
	}
	fmt.Fprintln(w, p.none)
}

func printHeader(w io.Writer, tok token.Token, color, label string) {
	p := paletteFor(w)
	filename, line, col := findFileAndLine(tok)
	if line == 0 {
		fmt.Fprintf(w, "%s: %s%s:%s ", filename, color, label, p.none)
		return
	}
	fmt.Fprintf(w, "%s:%d:%d: %s%s:%s ", filename, line, col, color, label, p.none)
}

// Error prints a formatted error message and exits the program
func Error(tok token.Token, format string, args ...interface{}) {
	printHeader(os.Stderr, tok, paletteFor(os.Stderr).red, "error")
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
	printErrorLine(os.Stderr, tok)
	os.Exit(1)
}

// Warn prints a formatted warning message if the corresponding warning is enabled
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	printHeader(os.Stderr, tok, paletteFor(os.Stderr).yellow, "warning")
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintf(os.Stderr, " [-W%s]\n", cfg.Warnings[wt].Name)
	printErrorLine(os.Stderr, tok)
}

// Report writes every diagnostic to w in source-annotated form.
func Report(w io.Writer, diags []*Diagnostic) {
	p := paletteFor(w)
	for _, d := range diags {
		printHeader(w, d.Tok, p.red, "error")
		fmt.Fprintln(w, d.Msg)
		printErrorLine(w, d.Tok)
	}
}
