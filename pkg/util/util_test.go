package util

import (
	"bytes"
	"testing"

	"github.com/go-test/deep"
	"github.com/nalgeon/be"
	"github.com/xplshn/pp07/pkg/token"
)

func TestDiagnosticError(t *testing.T) {
	d := NewDiagnostic(TypeMismatch, token.Token{Line: 3, Column: 7}, "Function %s not defined", "f")
	be.Equal(t, d.Error(), "3:7: Function f not defined")
	be.Equal(t, d.Kind.String(), "type")

	empty := NewDiagnostic(SyntaxStructure, token.Token{}, "Empty program")
	be.Equal(t, empty.Error(), "Empty program")
}

func TestCompileError(t *testing.T) {
	err := &CompileError{Diags: []*Diagnostic{
		NewDiagnostic(NameResolution, token.Token{Line: 1, Column: 1}, "ID: x is not defined."),
		NewDiagnostic(TypeMismatch, token.Token{Line: 2, Column: 4}, "Condition of if expected type 'bool' but found 'int'"),
		NewDiagnostic(NameResolution, token.Token{}, "Lock l never declared in program"),
	}}
	want := []string{
		"ID: x is not defined.",
		"Condition of if expected type 'bool' but found 'int'",
		"Lock l never declared in program",
	}
	if diff := deep.Equal(err.Messages(), want); diff != nil {
		t.Error(diff)
	}
	be.Equal(t, err.Count(NameResolution), 2)
	be.Equal(t, err.Count(ArityMismatch), 0)
	be.Equal(t, err.Error(), "3 error(s):\n1:1: ID: x is not defined.\n"+
		"2:4: Condition of if expected type 'bool' but found 'int'\nLock l never declared in program")
}

func TestReport(t *testing.T) {
	SetSourceFiles([]SourceFileRecord{{Name: "a.pp07", Content: []rune("int main() {\n    int x = true;\n}")}})
	defer SetSourceFiles(nil)

	var buf bytes.Buffer
	Report(&buf, []*Diagnostic{
		NewDiagnostic(TypeMismatch, token.Token{Line: 2, Column: 13, Len: 4}, "Variable 'x' declared as int but assigned bool"),
		NewDiagnostic(SyntaxStructure, token.Token{}, "Program contains no main method"),
	})
	want := "a.pp07:2:13: error: Variable 'x' declared as int but assigned bool\n" +
		"      int x = true;\n" +
		"              ^~~~\n" +
		"a.pp07: error: Program contains no main method\n"
	be.Equal(t, buf.String(), want)
}

func TestReportUnknownFile(t *testing.T) {
	SetSourceFiles(nil)
	var buf bytes.Buffer
	Report(&buf, []*Diagnostic{NewDiagnostic(NameResolution, token.Token{FileIndex: 3, Line: 1, Column: 2}, "Function f not defined")})
	be.Equal(t, buf.String(), "<input>:1:2: error: Function f not defined\n")
}
