package insn

import (
	"testing"

	"github.com/retroenv/disasmutils/engine"
	"github.com/retroenv/disasmutils/engine/mocks"
	"github.com/retroenv/disasmutils/regs"
	"github.com/retroenv/retrogolib/assert"
)

func TestDecodeNoInstruction(t *testing.T) {
	e := mocks.New(0x1000, 0x100)

	_, ok := Decode(e, 0x1000)
	assert.False(t, ok)
}

func TestDecode(t *testing.T) {
	e := mocks.New(0x1000, 0x100)
	e.Instructions[0x1000] = mocks.Instruction{
		Size:  3,
		Itype: 42,
		Operands: []engine.OperandRecord{
			{Kind: engine.KindRegister, Reg: 0, Width: 4},
			{Kind: engine.KindImmediate, Value: 0x1234, Width: 4},
		},
	}

	ins, ok := Decode(e, 0x1000)
	assert.True(t, ok)
	assert.Equal(t, engine.Address(0x1000), ins.Address)
	assert.Equal(t, 3, ins.Size)
	assert.Equal(t, 42, ins.Itype)
	assert.Len(t, ins.Operands, 2)
	assert.Equal(t, engine.KindRegister, ins.Operands[0].Kind)
	assert.Equal(t, uint64(0x1234), ins.Operands[1].Raw.Value)
}

// An engine returning void at slot 0 yields an instruction without
// operands.
func TestDecodeVoidFirstOperand(t *testing.T) {
	e := mocks.New(0x1000, 0x100)
	e.Instructions[0x1000] = mocks.Instruction{Size: 1}

	ins, ok := Decode(e, 0x1000)
	assert.True(t, ok)
	assert.Equal(t, 0, len(ins.Operands))
}

func TestDecodeOperandLimit(t *testing.T) {
	e := mocks.New(0x1000, 0x100)
	e.MaxOps = 2

	ops := make([]engine.OperandRecord, 5)
	for i := range ops {
		ops[i] = engine.OperandRecord{Kind: engine.KindImmediate, Value: uint64(i)}
	}
	e.Instructions[0x1000] = mocks.Instruction{Size: 1, Operands: ops}

	ins, ok := Decode(e, 0x1000)
	assert.True(t, ok)
	assert.Len(t, ins.Operands, 2)
}

// Decoding a second address must not change an already returned
// instruction value.
func TestDecodeDetachedFromBuffer(t *testing.T) {
	e := mocks.New(0x1000, 0x100)
	e.Instructions[0x1000] = mocks.Instruction{Size: 2, Itype: 1}
	e.Instructions[0x1002] = mocks.Instruction{Size: 1, Itype: 2}

	first, ok := Decode(e, 0x1000)
	assert.True(t, ok)

	_, ok = Decode(e, 0x1002)
	assert.True(t, ok)

	assert.Equal(t, engine.Address(0x1000), first.Address)
	assert.Equal(t, 1, first.Itype)
	assert.Equal(t, 2, first.Size)
}

func TestOperandRegisterChecks(t *testing.T) {
	eax := regs.Register{Name: "eax", Reg: 0, Width: 4}
	ax := regs.Register{Name: "ax", Reg: 0, Width: 2}
	ecx := regs.Register{Name: "ecx", Reg: 1, Width: 4}

	regOp := Operand{Kind: engine.KindRegister, Reg: 0, Width: 4}
	memOp := Operand{Kind: engine.KindDisplacement, Reg: 0, Width: 4}

	// IsReg requires register kind plus matching id and width
	assert.True(t, regOp.IsReg(eax))
	assert.False(t, regOp.IsReg(ax), "width differs")
	assert.False(t, regOp.IsReg(ecx), "id differs")
	assert.False(t, memOp.IsReg(eax), "not a register operand")

	// HasReg only needs the id, regardless of kind and width
	assert.True(t, regOp.HasReg(eax))
	assert.True(t, regOp.HasReg(ax))
	assert.True(t, memOp.HasReg(eax))
	assert.False(t, regOp.HasReg(ecx))
}
