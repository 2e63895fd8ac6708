package util

import (
	"fmt"
	"strings"

	"github.com/xplshn/pp07/pkg/config"
	"github.com/xplshn/pp07/pkg/token"
)

// ErrorKind classifies a user-facing compile error
type ErrorKind int

const (
	SyntaxStructure ErrorKind = iota
	NameResolution
	TypeMismatch
	ArityMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case SyntaxStructure: return "syntax"
	case NameResolution: return "name"
	case TypeMismatch: return "type"
	case ArityMismatch: return "arity"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Diagnostic is a single compile error anchored at a token
type Diagnostic struct {
	Kind ErrorKind
	Tok  token.Token
	Msg  string
}

func NewDiagnostic(kind ErrorKind, tok token.Token, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: kind, Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

func (d *Diagnostic) Error() string {
	if d.Tok.Line == 0 {
		return d.Msg
	}
	return fmt.Sprintf("%d:%d: %s", d.Tok.Line, d.Tok.Column, d.Msg)
}

// CompileError carries every diagnostic accumulated by a failed pass
type CompileError struct {
	Diags []*Diagnostic
}

func (e *CompileError) Error() string {
	msgs := make([]string, len(e.Diags))
	for i, d := range e.Diags {
		msgs[i] = d.Error()
	}
	return fmt.Sprintf("%d error(s):\n%s", len(e.Diags), strings.Join(msgs, "\n"))
}

// Messages returns the bare messages, in discovery order
func (e *CompileError) Messages() []string {
	msgs := make([]string, len(e.Diags))
	for i, d := range e.Diags {
		msgs[i] = d.Msg
	}
	return msgs
}

// Count returns how many diagnostics are of the given kind
func (e *CompileError) Count(kind ErrorKind) int {
	n := 0
	for _, d := range e.Diags {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Warning is a non-fatal finding, printed only when its flag is enabled
type Warning struct {
	Warning config.Warning
	Tok     token.Token
	Msg     string
}

// EmitWarnings prints the enabled warnings to stderr
func EmitWarnings(cfg *config.Config, warnings []Warning) {
	for _, w := range warnings {
		Warn(cfg, w.Warning, w.Tok, "%s", w.Msg)
	}
}
