package arm64

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/retroenv/disasmutils/engine"
	"github.com/retroenv/disasmutils/insn"
	"github.com/retroenv/disasmutils/walk"
	"github.com/retroenv/disasmutils/xref"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

// testEngine loads a small program with a subroutine, a conditional
// branch, a literal load and one string:
//
//	10000: mov w0, #1
//	10004: bl  0x10014
//	10008: cbz w0, 0x10000
//	1000c: ldr x1, 0x10020
//	10010: ret
//	10014: mov w0, #2
//	10018: ret
func testEngine(t *testing.T) *Engine {
	t.Helper()

	data := make([]byte, 0x40)
	code := []uint32{
		0x52800020,
		0x94000004,
		0x34ffffc0,
		0x580000a1,
		0xd65f03c0,
		0x52800040,
		0xd65f03c0,
	}
	for i, word := range code {
		binary.LittleEndian.PutUint32(data[i*4:], word)
	}
	copy(data[0x20:], "HELLOARM64\x00")

	return New(log.NewTestLogger(t), data, 0x10000)
}

func TestAnalyzeHeads(t *testing.T) {
	e := testEngine(t)

	heads := walk.Collect(walk.Heads(e, e.MinAddress(), e.MaxAddress()))
	assert.Equal(t, []engine.Address{
		0x10000, 0x10004, 0x10008, 0x1000c, 0x10010, 0x10014, 0x10018,
	}, heads)

	assert.True(t, e.IsUnitStart(0x10008))
	assert.False(t, e.IsUnitStart(0x10009))
	assert.False(t, e.IsUnitStart(0x10020), "string data must not be code")
}

func TestAnalyzeFunctions(t *testing.T) {
	e := testEngine(t)

	functions := walk.Collect(walk.Functions(e, e.MinAddress(), e.MaxAddress()))
	assert.Equal(t, []engine.Address{0x10000, 0x10014}, functions)

	assert.Equal(t, engine.Address(0x10000), e.FunctionAt(0x10008))
	assert.Equal(t, engine.Address(0x10014), e.FunctionEnd(0x10000))
	assert.Equal(t, engine.Address(0x1001c), e.FunctionEnd(0x10014))

	items := walk.Collect(walk.FuncItems(e, 0x10014))
	assert.Equal(t, []engine.Address{0x10014, 0x10018}, items)

	chunks := walk.Collect(walk.Chunks(e, 0x10000))
	assert.Equal(t, []engine.Chunk{{Start: 0x10000, End: 0x10014}}, chunks)
}

func TestAnalyzeReferences(t *testing.T) {
	e := testEngine(t)

	calls := walk.Collect(xref.CodeRefsTo(e, 0x10014, false))
	assert.Equal(t, []engine.Address{0x10004}, calls)

	jumps := walk.Collect(xref.CodeRefsTo(e, 0x10000, false))
	assert.Equal(t, []engine.Address{0x10008}, jumps)

	reads := walk.Collect(xref.DataRefsFrom(e, 0x1000c))
	assert.Equal(t, []engine.Address{0x10020}, reads)

	refs := walk.Collect(xref.XrefsFrom(e, 0x10004, engine.XrefAll))
	assert.Equal(t, []xref.Reference{
		{From: 0x10004, To: 0x10014, IsCode: true, Type: engine.RefCodeNearCall},
		{From: 0x10004, To: 0x10008, IsCode: true, Type: engine.RefOrdinaryFlow},
	}, refs)
}

func TestDecode(t *testing.T) {
	e := testEngine(t)

	ins, ok := insn.Decode(e, 0x10004)
	assert.True(t, ok)
	assert.Equal(t, 4, ins.Size)
	assert.Len(t, ins.Operands, 1)
	assert.Equal(t, engine.KindNearAddress, ins.Operands[0].Kind)
	assert.Equal(t, engine.Address(0x10014), ins.Operands[0].Raw.Addr)

	// literal load: register destination plus a PC relative source
	ins, ok = insn.Decode(e, 0x1000c)
	assert.True(t, ok)
	assert.Len(t, ins.Operands, 2)
	assert.Equal(t, engine.KindRegister, ins.Operands[0].Kind)
	assert.Equal(t, 1, ins.Operands[0].Reg)
	assert.Equal(t, uint8(8), ins.Operands[0].Width)
	assert.Equal(t, engine.KindMemory, ins.Operands[1].Kind)
	assert.Equal(t, engine.Address(0x10020), ins.Operands[1].Raw.Addr)

	ins, ok = insn.Decode(e, 0x10000)
	assert.True(t, ok)
	assert.Equal(t, engine.KindRegister, ins.Operands[0].Kind)
	assert.Equal(t, 0, ins.Operands[0].Reg)
	assert.Equal(t, uint8(4), ins.Operands[0].Width)
	assert.Equal(t, engine.KindImmediate, ins.Operands[1].Kind)
	assert.Equal(t, uint64(1), ins.Operands[1].Raw.Value)
}

func TestDecodeNoInstruction(t *testing.T) {
	e := testEngine(t)

	_, ok := insn.Decode(e, 0x10001)
	assert.False(t, ok, "unaligned address must not decode")

	_, ok = insn.Decode(e, 0x20000)
	assert.False(t, ok, "address outside the image must not decode")
}

func TestParseRegisterName(t *testing.T) {
	e := testEngine(t)

	id, width, ok := e.ParseRegisterName("X5")
	assert.True(t, ok)
	assert.Equal(t, 5, id)
	assert.Equal(t, uint8(8), width)

	id, width, ok = e.ParseRegisterName("w5")
	assert.True(t, ok)
	assert.Equal(t, 5, id)
	assert.Equal(t, uint8(4), width)

	id, width, ok = e.ParseRegisterName("sp")
	assert.True(t, ok)
	assert.Equal(t, regSP, id)
	assert.Equal(t, uint8(8), width)

	_, _, ok = e.ParseRegisterName("x31")
	assert.False(t, ok)
	_, _, ok = e.ParseRegisterName("r15")
	assert.False(t, ok)
}

func TestRegisters(t *testing.T) {
	e := testEngine(t)

	assert.NoError(t, e.SetRegisterValue("X3", 0x1234))
	value, err := e.RegisterValue("x3")
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x1234), value)

	_, err = e.RegisterValue("r15")
	assert.Error(t, err)
}

func TestAssembleLine(t *testing.T) {
	e := testEngine(t)

	_, err := e.AssembleLine(0x10000, 0, 0x10000, 2, "nop")
	assert.True(t, errors.Is(err, ErrNoAssembler))
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
	assert.Equal(t, engine.Address(0x10020), info.Address)
	assert.Equal(t, 10, info.Length)
	assert.Equal(t, "HELLOARM64", e.StringAt(info.Address, info.Length, info.Kind))

	e.RefreshStringList(0x10020, 0x10020)
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

	segments := walk.Collect(walk.Segments(e))
	assert.Len(t, segments, 1)
	seg, ok := e.SegmentAt(segments[0])
	assert.True(t, ok)
	assert.Equal(t, "text", seg.Name)
	assert.Equal(t, engine.Address(0x10000), seg.Start)
	assert.Equal(t, uint8(2), seg.Bitness)
}
