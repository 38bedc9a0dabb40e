// Package memory provides typed fixed-width word access over a
// contiguous range of the engine's address space.
package memory

import (
	"fmt"

	"github.com/retroenv/disasmutils/engine"
	"github.com/retroenv/disasmutils/walk"
)

// ErrInvalidWidth is returned for word sizes the engine does not
// support: reads accept 1, 2, 4 and 8 bytes, patches only 1, 2 and 4.
// The engine exposes no validated quad patch primitive; the asymmetry
// is deliberate.
var ErrInvalidWidth = fmt.Errorf("invalid word width")

// ReadWords returns a lazy sequence of count unsigned words read at
// width byte strides starting at address. Valid widths are 1, 2, 4
// and 8.
func ReadWords(mem engine.Memory, address engine.Address, count, width int) (*walk.Sequence[uint64], error) {
	var read func(engine.Address) uint64
	switch width {
	case 1:
		read = func(a engine.Address) uint64 { return uint64(mem.Byte(a)) }
	case 2:
		read = func(a engine.Address) uint64 { return uint64(mem.Word(a)) }
	case 4:
		read = func(a engine.Address) uint64 { return uint64(mem.Long(a)) }
	case 8:
		read = mem.Quad
	default:
		return nil, fmt.Errorf("%w: read size %d, must be 1, 2, 4 or 8", ErrInvalidWidth, width)
	}

	current := address
	end := address + engine.Address(width*count)
	return walk.New(func() (uint64, bool) {
		if current >= end {
			return 0, false
		}
		value := read(current)
		current += engine.Address(width)
		return value, true
	}), nil
}

// WriteWords patches the values at width byte strides starting at
// address, in sequence order. Valid widths are 1, 2 and 4; there is no
// quad patch.
func WriteWords(mem engine.Memory, address engine.Address, values []uint64, width int) error {
	var write func(engine.Address, uint64)
	switch width {
	case 1:
		write = func(a engine.Address, v uint64) { mem.PatchByte(a, uint8(v)) }
	case 2:
		write = func(a engine.Address, v uint64) { mem.PatchWord(a, uint16(v)) }
	case 4:
		write = func(a engine.Address, v uint64) { mem.PatchLong(a, uint32(v)) }
	default:
		return fmt.Errorf("%w: patch size %d, must be 1, 2 or 4", ErrInvalidWidth, width)
	}

	for _, value := range values {
		write(address, value)
		address += engine.Address(width)
	}
	return nil
}

// MapWords reads count words at address, applies transform to each and
// patches the results back in place.
//
// The entire read pass is materialized before the first patch. When
// the read and write ranges overlap (they are the same range here),
// interleaving would let later reads observe already mutated bytes;
// the full pre-read guarantees every transform input is a
// pre-transform value.
func MapWords(mem engine.Memory, address engine.Address, count int, transform func(uint64) uint64, width int) error {
	words, err := ReadWords(mem, address, count, width)
	if err != nil {
		return err
	}

	values := walk.Collect(words)
	for i, value := range values {
		values[i] = transform(value)
	}

	return WriteWords(mem, address, values, width)
}
