package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xplshn/pp07/pkg/config"
	"github.com/xplshn/pp07/pkg/ir"
)

type sprockellBackend struct{}

func NewSprockellBackend() Backend { return &sprockellBackend{} }

func (b *sprockellBackend) program(unit *Unit, cfg *config.Config) (*ir.Program, error) {
	if unit == nil || unit.Tree == nil || unit.Result == nil {
		return nil, fmt.Errorf("sprockell: unit has not been checked")
	}
	return NewContext(cfg).Generate(unit.Tree, unit.Result)
}

// GenerateIR lists the resolved instructions with their line numbers
func (b *sprockellBackend) GenerateIR(unit *Unit, cfg *config.Config) (string, error) {
	prog, err := b.program(unit, cfg)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	width := len(fmt.Sprint(prog.Len()))
	for i, line := range prog.Lines() {
		fmt.Fprintf(&sb, "%*d  %s\n", width, i, line)
	}
	return sb.String(), nil
}

// Generate writes a Haskell module runnable against the Sprockell library
func (b *sprockellBackend) Generate(unit *Unit, cfg *config.Config) (*bytes.Buffer, error) {
	prog, err := b.program(unit, cfg)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	writeHaskell(&buf, prog, cfg)
	return &buf, nil
}

func writeHaskell(buf *bytes.Buffer, prog *ir.Program, cfg *config.Config) {
	fmt.Fprintf(buf, "-- Code generated by pp07c. DO NOT EDIT.\n")
	fmt.Fprintf(buf, "-- fingerprint: %016x\n", prog.Fingerprint())
	buf.WriteString("import Sprockell\n\n")
	buf.WriteString("prog :: [Instruction]\n")
	buf.WriteString("prog =\n")
	for i, line := range prog.Lines() {
		sep := ","
		if i == 0 {
			sep = "["
		}
		fmt.Fprintf(buf, "    %s %s\n", sep, line)
	}
	if prog.Len() == 0 {
		buf.WriteString("    [ EndProg\n")
	}
	buf.WriteString("    ]\n\n")

	n := max(cfg.Sprockells, 1)
	progs := strings.TrimSuffix(strings.Repeat("prog,", n), ",")
	buf.WriteString("main :: IO ()\n")
	if cfg.Debugger {
		fmt.Fprintf(buf, "main = runWithDebugger (debuggerSimplePrint showLocalMem) [%s]\n\n", progs)
		buf.WriteString("showLocalMem :: DbgInput -> String\n")
		buf.WriteString("showLocalMem ( _ , systemState ) = show $ localMem $ head $ sprStates systemState\n")
		return
	}
	fmt.Fprintf(buf, "main = run [%s]\n", progs)
}
