// Package asm drives the engine's line assembler with scoped batch
// mode handling.
package asm

import (
	"fmt"

	"github.com/retroenv/disasmutils/engine"
)

// ErrNoSegment is returned when an assembly target address has no
// containing segment.
var ErrNoSegment = fmt.Errorf("no segment at address")

// FailedLineError reports the line the engine rejected.
type FailedLineError struct {
	Line    string
	Message string
}

func (e *FailedLineError) Error() string {
	return fmt.Sprintf("assembler failed: %s: %s", e.Line, e.Message)
}

// Engine is the engine surface the assembler needs.
type Engine interface {
	engine.Segments
	engine.Mode
	engine.Assembler
}

// Assemble assembles one line at address and returns the produced
// bytes. Batch mode is enabled for the duration of the call and the
// previous interaction mode restored on every exit path.
func Assemble(e Engine, address engine.Address, line string) ([]byte, error) {
	buffers, err := AssembleLines(e, address, []string{line})
	if err != nil {
		return nil, err
	}
	return buffers[0], nil
}

// AssembleLines assembles the lines in order, advancing the target
// address by each produced buffer's length. Batch mode is enabled for
// the duration of the call and restored afterwards, also on failure.
//
// A failing line aborts the remaining batch immediately; lines
// assembled before it remain committed in engine memory. Callers must
// treat partial application as possible.
func AssembleLines(e Engine, address engine.Address, lines []string) ([][]byte, error) {
	previous := e.SetBatchMode(true)
	defer e.SetBatchMode(previous)

	return assemble(e, address, lines)
}

func assemble(e Engine, address engine.Address, lines []string) ([][]byte, error) {
	buffers := make([][]byte, 0, len(lines))

	for _, line := range lines {
		seg, ok := e.SegmentAt(address)
		if !ok {
			return nil, fmt.Errorf("%w: %#x", ErrNoSegment, uint64(address))
		}

		ip := address - engine.Address(e.SelectorValue(seg.Selector)<<4)
		buf, err := e.AssembleLine(address, seg.Selector, ip, seg.Bitness, line)
		if err != nil {
			return nil, &FailedLineError{
				Line:    line,
				Message: err.Error(),
			}
		}

		address += engine.Address(len(buf))
		buffers = append(buffers, buf)
	}
	return buffers, nil
}
