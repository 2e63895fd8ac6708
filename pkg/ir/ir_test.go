package ir

import (
	"testing"

	"github.com/go-test/deep"
	"github.com/nalgeon/be"
)

func TestOperandStrings(t *testing.T) {
	tests := []struct {
		op   Operand
		want string
	}{
		{Imm(5), "(ImmValue 5)"},
		{Imm(-3), "(ImmValue (-3))"},
		{DirAddr(2), "(DirAddr 2)"},
		{IndAddr(RegB), "(IndAddr regB)"},
		{Abs(10), "(Abs 10)"},
		{Ind(RegC), "(Ind regC)"},
		{RegSprID, "regSprID"},
		{GtE, "GtE"},
	}
	for _, tt := range tests {
		be.Equal(t, tt.op.String(), tt.want)
	}
}

func TestInstructionString(t *testing.T) {
	p := NewProgram()
	p.Emit(OpCompute, Add, RegA, RegB, RegA)
	p.Emit(OpEndProg)
	want := []string{"Compute Add regA regB regA", "EndProg"}
	if diff := deep.Equal(p.Lines(), want); diff != nil {
		t.Error(diff)
	}
	be.Equal(t, p.String(), "Compute Add regA regB regA\nEndProg")
}

func TestLabelResolution(t *testing.T) {
	p := NewProgram()
	end := p.NewLabel()
	ret := p.NewLabel()
	p.Emit(OpJump, LabelRef{Label: end})
	p.Emit(OpLoad, LabelRef{Label: ret, Form: RefImm}, RegA)
	be.Err(t, p.Place(ret), nil)
	p.Emit(OpNop)
	be.Err(t, p.Place(end), nil)
	p.Emit(OpEndProg)

	be.True(t, !p.Resolved())
	be.Equal(t, p.Instrs[0].String(), "Jump #L0#")
	be.Err(t, p.Resolve(), nil)
	be.True(t, p.Resolved())

	want := []string{"Jump (Abs 3)", "Load (ImmValue 2) regA", "Nop", "EndProg"}
	if diff := deep.Equal(p.Lines(), want); diff != nil {
		t.Error(diff)
	}
}

func TestPlaceTwice(t *testing.T) {
	p := NewProgram()
	l := p.NewLabel()
	be.Err(t, p.Place(l), nil)
	p.Emit(OpNop)
	be.Err(t, p.Place(l), "already placed at line 0")
}

func TestResolveUnplacedLabel(t *testing.T) {
	p := NewProgram()
	p.Emit(OpNop)
	p.Emit(OpJump, LabelRef{Label: p.NewLabel()})
	be.Err(t, p.Resolve(), "line 1: label #L0# was never placed")
}

func TestFingerprint(t *testing.T) {
	build := func(n int) *Program {
		p := NewProgram()
		p.Emit(OpLoad, Imm(n), RegA)
		p.Emit(OpEndProg)
		return p
	}
	be.Equal(t, build(1).Fingerprint(), build(1).Fingerprint())
	be.True(t, build(1).Fingerprint() != build(2).Fingerprint())
}
