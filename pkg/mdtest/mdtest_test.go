package mdtest

import (
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/nalgeon/be"
)

const fence = "```"

func TestExtractBasic(t *testing.T) {
	md := `# Calls

## Test: call
` + fence + `pp07
int main() { return 1; }
` + fence + `
` + fence + `errors
` + fence + `

## Test: missing
` + fence + `pp07
int main() { return f(); }
` + fence + `
` + fence + `errors
Function f not defined
` + fence + `
`
	cases, err := Extract([]byte(md))
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 2)

	be.Equal(t, cases[0].Name, "call")
	be.Equal(t, cases[0].Input, "int main() { return 1; }")
	be.Equal(t, len(cases[0].Assertions), 1)
	be.Equal(t, cases[0].Assertions[0].Type, AssertErrors)
	be.Equal(t, len(cases[0].Assertions[0].Lines()), 0)

	be.Equal(t, cases[1].Name, "missing")
	if diff := deep.Equal(cases[1].Assertions[0].Lines(), []string{"Function f not defined"}); diff != nil {
		t.Error(diff)
	}
}

func TestExtractMultipleAssertions(t *testing.T) {
	md := `## Test: both
` + fence + `pp07
int x = 1;
` + fence + `
` + fence + `ast
(program (decl int x (num 1)))
` + fence + `
` + fence + `warnings
` + fence + `
`
	cases, err := Extract([]byte(md))
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 1)
	be.Equal(t, len(cases[0].Assertions), 2)
	be.Equal(t, cases[0].Assertions[0].Type, AssertAST)
	be.Equal(t, cases[0].Assertions[0].Content, "(program (decl int x (num 1)))")
	be.Equal(t, cases[0].Assertions[1].Type, AssertWarnings)
}

func TestExtractPlainCodeBlocksIgnored(t *testing.T) {
	md := "Some prose.\n\n" + fence + "\nnot a test\n" + fence + "\n"
	cases, err := Extract([]byte(md))
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 0)
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name string
		md   string
		want string
	}{
		{
			name: "fence outside test",
			md:   fence + "pp07\nint x;\n" + fence + "\n",
			want: "outside of a test case",
		},
		{
			name: "unknown language",
			md:   "## Test: t\n" + fence + "pp07\nint x;\n" + fence + "\n" + fence + "python\nx\n" + fence + "\n",
			want: "unknown fence language 'python'",
		},
		{
			name: "no input",
			md:   "## Test: t\n" + fence + "errors\n" + fence + "\n",
			want: "has no pp07 fence",
		},
		{
			name: "no assertion",
			md:   "## Test: t\n" + fence + "pp07\nint x;\n" + fence + "\n",
			want: "has no assertion fences",
		},
		{
			name: "two inputs",
			md:   "## Test: t\n" + fence + "pp07\nint x;\n" + fence + "\n" + fence + "pp07\nint y;\n" + fence + "\n",
			want: "multiple pp07 fences",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract([]byte(tt.md))
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), tt.want))
		})
	}
}
