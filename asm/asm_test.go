package asm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/retroenv/disasmutils/engine"
	"github.com/retroenv/disasmutils/engine/mocks"
	"github.com/retroenv/retrogolib/assert"
)

type assembled struct {
	address engine.Address
	ip      engine.Address
	line    string
}

// testEngine scripts an assembler that emits 2 bytes for "nop", 3
// bytes for any other line and fails on "bad".
func testEngine() (*mocks.Engine, *[]assembled) {
	e := mocks.New(0x1000, 0x1000)
	e.Segs = []engine.Segment{
		{Start: 0x1000, End: 0x2000, Selector: 1, Bitness: 0},
	}
	e.Selectors[1] = 0x100

	var calls []assembled
	e.AssembleFunc = func(address engine.Address, selector uint64, ip engine.Address, bitness uint8, line string) ([]byte, error) {
		if line == "bad" {
			return nil, fmt.Errorf("syntax error")
		}
		calls = append(calls, assembled{address: address, ip: ip, line: line})
		if line == "nop" {
			return []byte{0x90, 0x90}, nil
		}
		return []byte{0x01, 0x02, 0x03}, nil
	}
	return e, &calls
}

func TestAssemble(t *testing.T) {
	e, _ := testEngine()

	buf, err := Assemble(e, 0x1000, "nop")
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x90, 0x90}, buf)
}

func TestAssembleLines(t *testing.T) {
	e, calls := testEngine()

	buffers, err := AssembleLines(e, 0x1000, []string{"nop", "mov"})
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{{0x90, 0x90}, {0x01, 0x02, 0x03}}, buffers)

	// the second line is assembled at the address advanced by the
	// first buffer's length
	assert.Len(t, *calls, 2)
	assert.Equal(t, engine.Address(0x1000), (*calls)[0].address)
	assert.Equal(t, engine.Address(0x1002), (*calls)[1].address)
}

func TestAssembleInstructionPointer(t *testing.T) {
	e, calls := testEngine()

	_, err := Assemble(e, 0x1008, "nop")
	assert.NoError(t, err)

	// ip = address - (selector value << 4) = 0x1008 - 0x1000
	assert.Equal(t, engine.Address(0x8), (*calls)[0].ip)
}

func TestAssembleNoSegment(t *testing.T) {
	e, _ := testEngine()

	_, err := Assemble(e, 0x5000, "nop")
	assert.True(t, errors.Is(err, ErrNoSegment))
	assert.False(t, e.Batch, "batch mode must be restored")
}

func TestAssembleFailingLine(t *testing.T) {
	e, calls := testEngine()

	buffers, err := AssembleLines(e, 0x1000, []string{"nop", "bad", "mov"})
	assert.Nil(t, buffers)

	var failed *FailedLineError
	assert.True(t, errors.As(err, &failed))
	assert.Equal(t, "bad", failed.Line)

	// the failing line aborts the batch, but the first line stays
	// committed
	assert.Len(t, *calls, 1)
	assert.Equal(t, "nop", (*calls)[0].line)
}

func TestAssembleBatchModeScope(t *testing.T) {
	e, _ := testEngine()

	sawBatch := false
	inner := e.AssembleFunc
	e.AssembleFunc = func(address engine.Address, selector uint64, ip engine.Address, bitness uint8, line string) ([]byte, error) {
		sawBatch = e.Batch
		return inner(address, selector, ip, bitness, line)
	}

	_, err := Assemble(e, 0x1000, "nop")
	assert.NoError(t, err)
	assert.True(t, sawBatch, "assembly must run in batch mode")
	assert.False(t, e.Batch, "previous mode restored on success")

	_, err = AssembleLines(e, 0x1000, []string{"bad"})
	assert.Error(t, err)
	assert.False(t, e.Batch, "previous mode restored on failure")
}

func TestAssembleBatchModePreserved(t *testing.T) {
	e, _ := testEngine()
	e.Batch = true

	_, err := Assemble(e, 0x1000, "nop")
	assert.NoError(t, err)
	assert.True(t, e.Batch, "a caller already in batch mode stays in it")
}
