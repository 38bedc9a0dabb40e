// Package mocks provides a scriptable in-memory engine implementation
// for testing.
package mocks

import (
	"fmt"

	"github.com/retroenv/disasmutils/engine"
	"github.com/retroenv/disasmutils/engine/refstore"
	"golang.org/x/exp/slices"
)

var _ engine.Engine = &Engine{}

// Ref scripts one cross-reference edge.
type Ref = refstore.Ref

// Function scripts one function with its chunks and code items.
type Function struct {
	Start  engine.Address
	End    engine.Address
	Chunks []engine.Chunk
	Items  []engine.Address
}

// Instruction scripts the decode result at one address.
type Instruction struct {
	Size     int
	Itype    int
	Flags    uint16
	Operands []engine.OperandRecord
}

// RegisterDef scripts one parseable register name.
type RegisterDef struct {
	Reg   int
	Width uint8
}

// Engine is a minimal scriptable engine session. All tables are
// exported so tests can populate exactly the behavior they need.
type Engine struct {
	*refstore.Store // reference edges, scripted through From and To

	MinAddr engine.Address
	MaxAddr engine.Address
	Mem     []byte // image bytes starting at MinAddr

	Units     []engine.Address // sorted unit start addresses
	Functions []Function       // sorted by start
	Segs      []engine.Segment
	Selectors map[uint64]uint64
	ThreadIDs []int

	Instructions map[engine.Address]Instruction
	MaxOps       int
	Registers    map[string]RegisterDef
	RegValues    map[string]uint64

	Batch        bool
	AssembleFunc func(address engine.Address, selector uint64, ip engine.Address, bitness uint8, line string) ([]byte, error)
	MD5          string

	// FailItems scripts transient string item fetch failures by index.
	FailItems map[int]bool

	scanOpts    engine.StringScanOptions
	stringItems []engine.StringInfo
	current     engine.InstructionRecord
	decoded     bool
}

// New creates an engine with an image of size bytes starting at min.
func New(min engine.Address, size int) *Engine {
	return &Engine{
		Store:        refstore.New(),
		MinAddr:      min,
		MaxAddr:      min + engine.Address(size),
		Mem:          make([]byte, size),
		Selectors:    map[uint64]uint64{},
		Instructions: map[engine.Address]Instruction{},
		MaxOps:       8,
		Registers:    map[string]RegisterDef{},
		RegValues:    map[string]uint64{},
	}
}

// MinAddress implements engine.Info.
func (e *Engine) MinAddress() engine.Address {
	return e.MinAddr
}

// MaxAddress implements engine.Info.
func (e *Engine) MaxAddress() engine.Address {
	return e.MaxAddr
}

func (e *Engine) offset(address engine.Address) (int, bool) {
	if address < e.MinAddr || address >= e.MaxAddr {
		return 0, false
	}
	return int(address - e.MinAddr), true
}

// Byte implements engine.Memory. Reads outside the image return 0.
func (e *Engine) Byte(address engine.Address) uint8 {
	i, ok := e.offset(address)
	if !ok {
		return 0
	}
	return e.Mem[i]
}

// Word implements engine.Memory, reading little endian.
func (e *Engine) Word(address engine.Address) uint16 {
	return uint16(e.Byte(address)) | uint16(e.Byte(address+1))<<8
}

// Long implements engine.Memory, reading little endian.
func (e *Engine) Long(address engine.Address) uint32 {
	return uint32(e.Word(address)) | uint32(e.Word(address+2))<<16
}

// Quad implements engine.Memory, reading little endian.
func (e *Engine) Quad(address engine.Address) uint64 {
	return uint64(e.Long(address)) | uint64(e.Long(address+4))<<32
}

// PatchByte implements engine.Memory. Writes outside the image are
// dropped.
func (e *Engine) PatchByte(address engine.Address, value uint8) {
	if i, ok := e.offset(address); ok {
		e.Mem[i] = value
	}
}

// PatchWord implements engine.Memory, writing little endian.
func (e *Engine) PatchWord(address engine.Address, value uint16) {
	e.PatchByte(address, uint8(value))
	e.PatchByte(address+1, uint8(value>>8))
}

// PatchLong implements engine.Memory, writing little endian.
func (e *Engine) PatchLong(address engine.Address, value uint32) {
	e.PatchWord(address, uint16(value))
	e.PatchWord(address+2, uint16(value>>16))
}

// IsUnitStart implements engine.Units.
func (e *Engine) IsUnitStart(address engine.Address) bool {
	return slices.Contains(e.Units, address)
}

// NextUnit implements engine.Units.
func (e *Engine) NextUnit(address, end engine.Address) engine.Address {
	for _, unit := range e.Units {
		if unit > address && unit < end {
			return unit
		}
	}
	return engine.BadAddress
}

func (e *Engine) function(address engine.Address) (Function, bool) {
	for _, fn := range e.Functions {
		if address >= fn.Start && address < fn.End {
			return fn, true
		}
	}
	return Function{}, false
}

// FunctionAt implements engine.Functions.
func (e *Engine) FunctionAt(address engine.Address) engine.Address {
	fn, ok := e.function(address)
	if !ok {
		return engine.BadAddress
	}
	return fn.Start
}

// NextFunction implements engine.Functions.
func (e *Engine) NextFunction(address engine.Address) engine.Address {
	for _, fn := range e.Functions {
		if fn.Start > address {
			return fn.Start
		}
	}
	return engine.BadAddress
}

// FunctionEnd implements engine.Functions.
func (e *Engine) FunctionEnd(address engine.Address) engine.Address {
	for _, fn := range e.Functions {
		if fn.Start == address {
			return fn.End
		}
	}
	return engine.BadAddress
}

// Chunks implements engine.Functions.
func (e *Engine) Chunks(address engine.Address) engine.ChunkCursor {
	fn, ok := e.function(address)
	return &chunkCursor{chunks: fn.Chunks, valid: ok}
}

// Items implements engine.Functions.
func (e *Engine) Items(address engine.Address) engine.ItemCursor {
	fn, ok := e.function(address)
	return &itemCursor{items: fn.Items, valid: ok}
}

type chunkCursor struct {
	chunks []engine.Chunk
	valid  bool
	index  int
}

func (c *chunkCursor) First() bool {
	c.index = 0
	return c.valid && len(c.chunks) > 0
}

func (c *chunkCursor) Next() bool {
	c.index++
	return c.valid && c.index < len(c.chunks)
}

func (c *chunkCursor) Chunk() engine.Chunk {
	return c.chunks[c.index]
}

type itemCursor struct {
	items []engine.Address
	valid bool
	index int
}

func (c *itemCursor) First() bool {
	c.index = 0
	return c.valid && len(c.items) > 0
}

func (c *itemCursor) Next() bool {
	c.index++
	return c.valid && c.index < len(c.items)
}

func (c *itemCursor) Current() engine.Address {
	return c.items[c.index]
}

// SegmentCount implements engine.Segments.
func (e *Engine) SegmentCount() int {
	return len(e.Segs)
}

// SegmentByIndex implements engine.Segments.
func (e *Engine) SegmentByIndex(n int) (engine.Segment, bool) {
	if n < 0 || n >= len(e.Segs) {
		return engine.Segment{}, false
	}
	seg := e.Segs[n]
	if seg.Start == seg.End { // scripted hole in the segment table
		return engine.Segment{}, false
	}
	return seg, true
}

// SegmentAt implements engine.Segments.
func (e *Engine) SegmentAt(address engine.Address) (engine.Segment, bool) {
	for _, seg := range e.Segs {
		if address >= seg.Start && address < seg.End {
			return seg, true
		}
	}
	return engine.Segment{}, false
}

// SelectorValue implements engine.Segments.
func (e *Engine) SelectorValue(selector uint64) uint64 {
	return e.Selectors[selector]
}

// ThreadCount implements engine.Threads.
func (e *Engine) ThreadCount() int {
	return len(e.ThreadIDs)
}

// ThreadID implements engine.Threads.
func (e *Engine) ThreadID(n int) int {
	return e.ThreadIDs[n]
}

// RegisterValue implements engine.Registers.
func (e *Engine) RegisterValue(name string) (uint64, error) {
	value, ok := e.RegValues[name]
	if !ok {
		return 0, fmt.Errorf("no register %s", name)
	}
	return value, nil
}

// SetRegisterValue implements engine.Registers.
func (e *Engine) SetRegisterValue(name string, value uint64) error {
	if _, ok := e.RegValues[name]; !ok {
		return fmt.Errorf("no register %s", name)
	}
	e.RegValues[name] = value
	return nil
}

// SetBatchMode implements engine.Mode.
func (e *Engine) SetBatchMode(enabled bool) bool {
	previous := e.Batch
	e.Batch = enabled
	return previous
}

// AssembleLine implements engine.Assembler.
func (e *Engine) AssembleLine(address engine.Address, selector uint64, ip engine.Address, bitness uint8, line string) ([]byte, error) {
	if e.AssembleFunc == nil {
		return nil, fmt.Errorf("no assembler scripted")
	}
	return e.AssembleFunc(address, selector, ip, bitness, line)
}

// InputFileMD5 implements engine.Files.
func (e *Engine) InputFileMD5() (string, bool) {
	return e.MD5, e.MD5 != ""
}
