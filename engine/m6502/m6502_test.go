package m6502

import (
	"testing"

	"github.com/retroenv/disasmutils/engine"
	"github.com/retroenv/disasmutils/insn"
	"github.com/retroenv/disasmutils/walk"
	"github.com/retroenv/disasmutils/xref"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

// testEngine loads a small program with a subroutine, a branch, data
// accesses and one string:
//
//	8000: lda #$01
//	8002: sta $0200
//	8005: jsr $8010
//	8008: bne $8000
//	800a: jmp $8005
//	8010: ldx $10
//	8012: rts
func testEngine(t *testing.T) *Engine {
	t.Helper()

	data := make([]byte, 0x8000)
	code := []byte{
		0xa9, 0x01,
		0x8d, 0x00, 0x02,
		0x20, 0x10, 0x80,
		0xd0, 0xf6,
		0x4c, 0x05, 0x80,
	}
	copy(data, code)
	copy(data[0x10:], []byte{0xa6, 0x10, 0x60})
	copy(data[0x1000:], "HELLOWORLD\x00")
	data[0x1100] = 0x02 // invalid opcode

	// reset vector -> 0x8000
	data[0x7ffc] = 0x00
	data[0x7ffd] = 0x80

	return New(log.NewTestLogger(t), data, 0x8000)
}

func TestAnalyzeHeads(t *testing.T) {
	e := testEngine(t)

	heads := walk.Collect(walk.Heads(e, e.MinAddress(), e.MaxAddress()))
	assert.Equal(t, []engine.Address{0x8000, 0x8002, 0x8005, 0x8008, 0x800a, 0x8010, 0x8012}, heads)

	assert.True(t, e.IsUnitStart(0x8005))
	assert.False(t, e.IsUnitStart(0x8006))
}

func TestAnalyzeFunctions(t *testing.T) {
	e := testEngine(t)

	functions := walk.Collect(walk.Functions(e, e.MinAddress(), e.MaxAddress()))
	assert.Equal(t, []engine.Address{0x8000, 0x8010}, functions)

	assert.Equal(t, engine.Address(0x8000), e.FunctionAt(0x8008))
	assert.Equal(t, engine.Address(0x800d), e.FunctionEnd(0x8000))
	assert.Equal(t, engine.Address(0x8013), e.FunctionEnd(0x8010))

	items := walk.Collect(walk.FuncItems(e, 0x8010))
	assert.Equal(t, []engine.Address{0x8010, 0x8012}, items)

	chunks := walk.Collect(walk.Chunks(e, 0x8000))
	assert.Equal(t, []engine.Chunk{{Start: 0x8000, End: 0x800d}}, chunks)
}

func TestAnalyzeReferences(t *testing.T) {
	e := testEngine(t)

	calls := walk.Collect(xref.CodeRefsTo(e, 0x8010, false))
	assert.Equal(t, []engine.Address{0x8005}, calls)

	// branch plus ordinary flow from the preceding instruction
	jumps := walk.Collect(xref.CodeRefsTo(e, 0x8000, false))
	assert.Equal(t, []engine.Address{0x8008}, jumps)

	writes := walk.Collect(xref.DataRefsTo(e, 0x0200))
	assert.Equal(t, []engine.Address{0x8002}, writes)

	reads := walk.Collect(xref.DataRefsFrom(e, 0x8010))
	assert.Equal(t, []engine.Address{0x10}, reads)

	refs := walk.Collect(xref.XrefsFrom(e, 0x8005, engine.XrefAll))
	assert.Equal(t, []xref.Reference{
		{From: 0x8005, To: 0x8010, IsCode: true, Type: engine.RefCodeNearCall},
		{From: 0x8005, To: 0x8008, IsCode: true, Type: engine.RefOrdinaryFlow},
	}, refs)
}

func TestDecode(t *testing.T) {
	e := testEngine(t)

	ins, ok := insn.Decode(e, 0x8002)
	assert.True(t, ok)
	assert.Equal(t, 3, ins.Size)
	assert.Len(t, ins.Operands, 1)
	assert.Equal(t, engine.KindMemory, ins.Operands[0].Kind)
	assert.Equal(t, engine.Address(0x0200), ins.Operands[0].Raw.Addr)

	ins, ok = insn.Decode(e, 0x8005)
	assert.True(t, ok)
	assert.Equal(t, engine.KindNearAddress, ins.Operands[0].Kind)
	assert.Equal(t, engine.Address(0x8010), ins.Operands[0].Raw.Addr)

	// accumulator operand carries the register identity
	id, width, ok := e.ParseRegisterName("A")
	assert.True(t, ok)
	assert.Equal(t, regA, id)
	assert.Equal(t, uint8(1), width)
}

func TestDecodeNoInstruction(t *testing.T) {
	e := testEngine(t)

	_, ok := insn.Decode(e, 0x9100)
	assert.False(t, ok, "invalid opcode byte must not decode")

	_, ok = insn.Decode(e, 0x4000)
	assert.False(t, ok, "address outside the image must not decode")
}

func TestRegisters(t *testing.T) {
	e := testEngine(t)

	assert.NoError(t, e.SetRegisterValue("a", 0x42))
	value, err := e.RegisterValue("A")
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x42), value)

	_, err = e.RegisterValue("r15")
	assert.Error(t, err)
}

func TestAssembleLine(t *testing.T) {
	e := testEngine(t)

	tests := []struct {
		line     string
		expected []byte
	}{
		{"nop", []byte{0xea}},
		{"lda #$05", []byte{0xa9, 0x05}},
		{"sta $0200", []byte{0x8d, 0x00, 0x02}},
		{"ldx $10", []byte{0xa6, 0x10}},
		{"jmp $8000", []byte{0x4c, 0x00, 0x80}},
		{"jmp ($1234)", []byte{0x6c, 0x34, 0x12}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			buf, err := e.AssembleLine(0x9000, 0, 0x9000, 0, tt.line)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, buf)
		})
	}
}

func TestAssembleLineBranch(t *testing.T) {
	e := testEngine(t)

	// bne $8000 assembled at 0x8008: offset -10
	buf, err := e.AssembleLine(0x8008, 0, 0x8008, 0, "bne $8000")
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xd0, 0xf6}, buf)

	_, err = e.AssembleLine(0x8000, 0, 0x8000, 0, "bne $9000")
	assert.Error(t, err, "branch target out of range")
}

func TestAssembleLineCommits(t *testing.T) {
	e := testEngine(t)

	_, err := e.AssembleLine(0x9000, 0, 0x9000, 0, "lda #$05")
	assert.NoError(t, err)
	assert.Equal(t, uint8(0xa9), e.Byte(0x9000))
	assert.Equal(t, uint8(0x05), e.Byte(0x9001))
}

func TestAssembleLineErrors(t *testing.T) {
	e := testEngine(t)

	for _, line := range []string{"", "frob", "lda", "lda nope", "lda #$05 extra"} {
		_, err := e.AssembleLine(0x9000, 0, 0x9000, 0, line)
		assert.Error(t, err)
	}
}

func TestStringScan(t *testing.T) {
	e := testEngine(t)

	e.SetStringScanOptions(engine.StringScanOptions{
		Types:     engine.StringC,
		MinLength: 5,
		Only7Bit:  true,
	})
	e.RefreshStringList(e.MinAddress(), e.MaxAddress())

	assert.Equal(t, 1, e.StringListSize())
	info, ok := e.StringListItem(0)
	assert.True(t, ok)
	assert.Equal(t, engine.Address(0x9000), info.Address)
	assert.Equal(t, 10, info.Length)
	assert.Equal(t, "HELLOWORLD", e.StringAt(info.Address, info.Length, info.Kind))

	e.RefreshStringList(0x9000, 0x9000)
	assert.Equal(t, 0, e.StringListSize())
}

func TestInputFileMD5(t *testing.T) {
	e := testEngine(t)

	sum, ok := e.InputFileMD5()
	assert.True(t, ok)
	assert.Len(t, sum, 32)
}

func TestSegments(t *testing.T) {
	e := testEngine(t)

	assert.Equal(t, 1, e.SegmentCount())
	seg, ok := e.SegmentAt(0x9000)
	assert.True(t, ok)
	assert.Equal(t, engine.Address(0x8000), seg.Start)
	assert.Equal(t, "CODE", seg.Name)

	_, ok = e.SegmentAt(0x4000)
	assert.False(t, ok)
}
