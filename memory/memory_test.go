package memory

import (
	"errors"
	"testing"

	"github.com/retroenv/disasmutils/engine"
	"github.com/retroenv/disasmutils/engine/mocks"
	"github.com/retroenv/disasmutils/walk"
	"github.com/retroenv/retrogolib/assert"
)

func testEngine() *mocks.Engine {
	e := mocks.New(0x1000, 0x100)
	for i := range e.Mem {
		e.Mem[i] = byte(i + 1)
	}
	return e
}

func TestReadWords(t *testing.T) {
	e := testEngine()

	tests := []struct {
		name     string
		width    int
		count    int
		expected []uint64
	}{
		{
			name:     "bytes",
			width:    1,
			count:    4,
			expected: []uint64{0x01, 0x02, 0x03, 0x04},
		},
		{
			name:     "words",
			width:    2,
			count:    2,
			expected: []uint64{0x0201, 0x0403},
		},
		{
			name:     "longs",
			width:    4,
			count:    2,
			expected: []uint64{0x04030201, 0x08070605},
		},
		{
			name:     "quads",
			width:    8,
			count:    1,
			expected: []uint64{0x0807060504030201},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := ReadWords(e, 0x1000, tt.count, tt.width)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, walk.Collect(seq))
		})
	}
}

func TestReadWordsInvalidWidth(t *testing.T) {
	e := testEngine()

	for _, width := range []int{0, 3, 5, 16} {
		_, err := ReadWords(e, 0x1000, 1, width)
		assert.True(t, errors.Is(err, ErrInvalidWidth))
	}
}

// There is no quad patch primitive: width 8 is valid for reads but a
// contract violation for writes.
func TestWriteWordsNoQuadPatch(t *testing.T) {
	e := testEngine()

	err := WriteWords(e, 0x1000, []uint64{1}, 8)
	assert.True(t, errors.Is(err, ErrInvalidWidth))
	assert.Equal(t, uint8(0x01), e.Byte(0x1000), "memory must stay untouched")
}

func TestWriteReadRoundTrip(t *testing.T) {
	e := testEngine()

	for _, width := range []int{1, 2, 4} {
		seq, err := ReadWords(e, 0x1000, 8, width)
		assert.NoError(t, err)
		before := append([]byte{}, e.Mem...)

		assert.NoError(t, WriteWords(e, 0x1000, walk.Collect(seq), width))
		assert.Equal(t, before, e.Mem, "write back of read values must be a no-op")
	}
}

func TestWriteWords(t *testing.T) {
	e := testEngine()

	assert.NoError(t, WriteWords(e, 0x1000, []uint64{0xaabb, 0xccdd}, 2))
	assert.Equal(t, uint16(0xaabb), e.Word(0x1000))
	assert.Equal(t, uint16(0xccdd), e.Word(0x1002))
}

func TestMapWordsIdentity(t *testing.T) {
	e := testEngine()
	before := append([]byte{}, e.Mem...)

	err := MapWords(e, 0x1000, 16, func(value uint64) uint64 { return value }, 2)
	assert.NoError(t, err)
	assert.Equal(t, before, e.Mem)
}

// The whole read pass completes before the first patch: every
// transform input must be a pre-transform value even though read and
// write ranges are identical.
func TestMapWordsReadsBeforeWrites(t *testing.T) {
	e := testEngine()

	var inputs []uint64
	err := MapWords(e, 0x1000, 8, func(value uint64) uint64 {
		inputs = append(inputs, value)
		return value + 1
	}, 1)
	assert.NoError(t, err)

	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8}, inputs)
	for i := 0; i < 8; i++ {
		assert.Equal(t, uint8(i+2), e.Byte(0x1000+engine.Address(i)))
	}
}

func TestMapWordsInvalidWidth(t *testing.T) {
	e := testEngine()

	err := MapWords(e, 0x1000, 1, func(value uint64) uint64 { return value }, 3)
	assert.True(t, errors.Is(err, ErrInvalidWidth))

	// quad maps fail on the write side
	err = MapWords(e, 0x1000, 1, func(value uint64) uint64 { return value }, 8)
	assert.True(t, errors.Is(err, ErrInvalidWidth))
}
