// Package m6502 implements an engine session for raw 6502 binaries.
// The image is analyzed once on load with a trace sweep starting at
// the interrupt vectors; the resulting instruction starts, functions
// and references back the engine query primitives.
package m6502

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/retroenv/disasmutils/engine"
	"github.com/retroenv/disasmutils/engine/refstore"
	m6502 "github.com/retroenv/retrogolib/arch/cpu/cpu6502"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
	"golang.org/x/exp/slices"
)

var _ engine.Engine = &Engine{}

type function struct {
	start engine.Address
	end   engine.Address
	items []engine.Address
}

// Engine is one analysis session over a raw 6502 binary.
type Engine struct {
	*refstore.Store

	logger *log.Logger
	base   engine.Address
	mem    []byte
	md5    string

	heads     []engine.Address // sorted instruction starts
	headSet   set.Set[engine.Address]
	sizes     map[engine.Address]int
	functions []function
	segs      []engine.Segment

	regValues map[string]uint64
	batch     bool

	current engine.InstructionRecord
	ops     []engine.OperandRecord
	decoded bool

	scanOpts    engine.StringScanOptions
	stringItems []engine.StringInfo
}

// New creates an engine for a raw binary loaded at base and analyzes
// it.
func New(logger *log.Logger, data []byte, base uint16) *Engine {
	sum := md5.Sum(data)

	e := &Engine{
		Store:     refstore.New(),
		logger:    logger,
		base:      engine.Address(base),
		mem:       append([]byte{}, data...),
		md5:       hex.EncodeToString(sum[:]),
		headSet:   set.New[engine.Address](),
		sizes:     map[engine.Address]int{},
		regValues: map[string]uint64{},
	}
	e.segs = []engine.Segment{
		{Start: e.base, End: e.MaxAddress(), Name: "CODE"},
	}
	for _, reg := range registerNames {
		e.regValues[reg.name] = 0
	}

	e.analyze()
	return e
}

// MinAddress implements engine.Info.
func (e *Engine) MinAddress() engine.Address {
	return e.base
}

// MaxAddress implements engine.Info.
func (e *Engine) MaxAddress() engine.Address {
	return e.base + engine.Address(len(e.mem))
}

func (e *Engine) offset(address engine.Address) (int, bool) {
	if address < e.base || address >= e.MaxAddress() {
		return 0, false
	}
	return int(address - e.base), true
}

// Byte implements engine.Memory. Reads outside the image return 0.
func (e *Engine) Byte(address engine.Address) uint8 {
	i, ok := e.offset(address)
	if !ok {
		return 0
	}
	return e.mem[i]
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
		e.mem[i] = value
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
	return e.headSet.Contains(address)
}

// NextUnit implements engine.Units.
func (e *Engine) NextUnit(address, end engine.Address) engine.Address {
	index, _ := slices.BinarySearch(e.heads, address+1)
	if index >= len(e.heads) || e.heads[index] >= end {
		return engine.BadAddress
	}
	return e.heads[index]
}

func (e *Engine) function(address engine.Address) (function, bool) {
	for _, fn := range e.functions {
		if address >= fn.start && address < fn.end {
			return fn, true
		}
	}
	return function{}, false
}

// FunctionAt implements engine.Functions.
func (e *Engine) FunctionAt(address engine.Address) engine.Address {
	fn, ok := e.function(address)
	if !ok {
		return engine.BadAddress
	}
	return fn.start
}

// NextFunction implements engine.Functions.
func (e *Engine) NextFunction(address engine.Address) engine.Address {
	for _, fn := range e.functions {
		if fn.start > address {
			return fn.start
		}
	}
	return engine.BadAddress
}

// FunctionEnd implements engine.Functions.
func (e *Engine) FunctionEnd(address engine.Address) engine.Address {
	for _, fn := range e.functions {
		if fn.start == address {
			return fn.end
		}
	}
	return engine.BadAddress
}

// Chunks implements engine.Functions. 6502 functions are contiguous;
// every function has exactly one chunk.
func (e *Engine) Chunks(address engine.Address) engine.ChunkCursor {
	fn, ok := e.function(address)
	return &chunkCursor{
		chunk: engine.Chunk{Start: fn.start, End: fn.end},
		valid: ok,
	}
}

// Items implements engine.Functions.
func (e *Engine) Items(address engine.Address) engine.ItemCursor {
	fn, ok := e.function(address)
	return &itemCursor{items: fn.items, valid: ok}
}

type chunkCursor struct {
	chunk engine.Chunk
	valid bool
	done  bool
}

func (c *chunkCursor) First() bool {
	c.done = false
	return c.valid
}

func (c *chunkCursor) Next() bool {
	if c.done {
		return false
	}
	c.done = true
	return false
}

func (c *chunkCursor) Chunk() engine.Chunk {
	return c.chunk
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
	return len(e.segs)
}

// SegmentByIndex implements engine.Segments.
func (e *Engine) SegmentByIndex(n int) (engine.Segment, bool) {
	if n < 0 || n >= len(e.segs) {
		return engine.Segment{}, false
	}
	return e.segs[n], true
}

// SegmentAt implements engine.Segments.
func (e *Engine) SegmentAt(address engine.Address) (engine.Segment, bool) {
	for _, seg := range e.segs {
		if address >= seg.Start && address < seg.End {
			return seg, true
		}
	}
	return engine.Segment{}, false
}

// SelectorValue implements engine.Segments. The flat 6502 address
// space uses paragraph value 0 for all selectors.
func (e *Engine) SelectorValue(uint64) uint64 {
	return 0
}

// ThreadCount implements engine.Threads. The 6502 has no threads; a
// single pseudo thread is reported.
func (e *Engine) ThreadCount() int {
	return 1
}

// ThreadID implements engine.Threads.
func (e *Engine) ThreadID(int) int {
	return 1
}

// SetBatchMode implements engine.Mode.
func (e *Engine) SetBatchMode(enabled bool) bool {
	previous := e.batch
	e.batch = enabled
	return previous
}

// InputFileMD5 implements engine.Files.
func (e *Engine) InputFileMD5() (string, bool) {
	return e.md5, true
}

// analyze traces reachable code from the interrupt vectors, collecting
// instruction starts, references and function boundaries.
func (e *Engine) analyze() {
	entries := e.entryPoints()

	queue := append([]engine.Address{}, entries...)
	funcStarts := set.New[engine.Address]()
	for _, entry := range entries {
		funcStarts.Add(entry)
	}

	for len(queue) > 0 {
		address := queue[0]
		queue = queue[1:]

		if e.headSet.Contains(address) {
			continue
		}
		successors, callTargets := e.trace(address)
		queue = append(queue, successors...)
		for _, target := range callTargets {
			funcStarts.Add(target)
			e.logger.Debug("function detected", log.Hex("address", uint64(target)))
		}
	}

	slices.Sort(e.heads)
	e.buildFunctions(funcStarts)
}

// entryPoints returns the interrupt vector targets if the image covers
// the vector table, the load address otherwise.
func (e *Engine) entryPoints() []engine.Address {
	vectorsStart := engine.Address(m6502.InterruptVectorStartAddress)
	if e.base > vectorsStart || e.MaxAddress() < vectorsStart+6 {
		return []engine.Address{e.base}
	}

	var entries []engine.Address
	for _, vector := range []uint16{m6502.ResetAddress, m6502.NMIAddress, m6502.IrqAddress} {
		target := engine.Address(e.Word(engine.Address(vector)))
		if target >= e.base && target < vectorsStart {
			entries = append(entries, target)
		}
	}
	if len(entries) == 0 {
		entries = []engine.Address{e.base}
	}
	return entries
}

// trace decodes one instruction, records its references and returns
// the addresses to continue at plus any detected function starts.
func (e *Engine) trace(address engine.Address) ([]engine.Address, []engine.Address) {
	if _, ok := e.offset(address); !ok {
		return nil, nil
	}
	opcode := m6502.Opcodes[e.Byte(address)]
	if opcode.Instruction == nil {
		return nil, nil
	}
	size, ok := addressingSize[m6502.AddressingMode(opcode.Addressing)]
	if !ok || address+engine.Address(size) > e.MaxAddress() {
		return nil, nil
	}

	e.headSet.Add(address)
	e.heads = append(e.heads, address)
	e.sizes[address] = size

	return e.instructionTargets(address, opcode, size)
}

func (e *Engine) instructionTargets(address engine.Address, opcode m6502.Opcode, size int) ([]engine.Address, []engine.Address) {
	var successors, callTargets []engine.Address
	name := opcode.Instruction.Name
	next := address + engine.Address(size)
	addressing := m6502.AddressingMode(opcode.Addressing)

	flow := func() {
		e.Add(refstore.Ref{From: address, To: next, IsCode: true, Type: engine.RefOrdinaryFlow})
		successors = append(successors, next)
	}

	switch {
	case name == m6502.JmpName:
		if addressing == m6502.AbsoluteAddressing {
			target := engine.Address(e.Word(address + 1))
			e.Add(refstore.Ref{From: address, To: target, IsCode: true, Type: engine.RefCodeNearJump})
			successors = append(successors, target)
		} else { // indirect jump reads its pointer
			pointer := engine.Address(e.Word(address + 1))
			e.Add(refstore.Ref{From: address, To: pointer, Type: engine.RefDataRead})
		}

	case name == m6502.JsrName:
		target := engine.Address(e.Word(address + 1))
		e.Add(refstore.Ref{From: address, To: target, IsCode: true, Type: engine.RefCodeNearCall})
		successors = append(successors, target)
		callTargets = append(callTargets, target)
		flow()

	case name == m6502.RtsName, name == m6502.RtiName, name == m6502.BrkName:

	case addressing == m6502.RelativeAddressing:
		target := next + engine.Address(int8(e.Byte(address+1)))
		e.Add(refstore.Ref{From: address, To: target, IsCode: true, Type: engine.RefCodeNearJump})
		successors = append(successors, target)
		flow()

	default:
		e.addDataRefs(address, opcode, addressing)
		flow()
	}
	return successors, callTargets
}

// addDataRefs records read/write references for memory addressing
// modes.
func (e *Engine) addDataRefs(address engine.Address, opcode m6502.Opcode, addressing m6502.AddressingMode) {
	var target engine.Address
	switch addressing {
	case m6502.AbsoluteAddressing, m6502.AbsoluteXAddressing, m6502.AbsoluteYAddressing:
		target = engine.Address(e.Word(address + 1))
	case m6502.ZeroPageAddressing, m6502.ZeroPageXAddressing, m6502.ZeroPageYAddressing,
		m6502.IndirectXAddressing, m6502.IndirectYAddressing:
		target = engine.Address(e.Byte(address + 1))
	default:
		return
	}

	if opcode.WritesMemory(m6502.MemoryWriteInstructions) || opcode.ReadWritesMemory(m6502.MemoryReadWriteInstructions) {
		e.Add(refstore.Ref{From: address, To: target, Type: engine.RefDataWrite})
	}
	if opcode.ReadsMemory(m6502.MemoryReadInstructions) || opcode.ReadWritesMemory(m6502.MemoryReadWriteInstructions) {
		e.Add(refstore.Ref{From: address, To: target, Type: engine.RefDataRead})
	}
}

// buildFunctions derives contiguous function ranges from the detected
// starts: a function extends to its last traced instruction before the
// next function start.
func (e *Engine) buildFunctions(funcStarts set.Set[engine.Address]) {
	var starts []engine.Address
	for _, head := range e.heads {
		if funcStarts.Contains(head) {
			starts = append(starts, head)
		}
	}

	for i, start := range starts {
		limit := e.MaxAddress()
		if i+1 < len(starts) {
			limit = starts[i+1]
		}

		fn := function{start: start, end: start}
		for _, head := range e.heads {
			if head < start || head >= limit {
				continue
			}
			fn.items = append(fn.items, head)
			fn.end = head + engine.Address(e.sizes[head])
		}
		e.functions = append(e.functions, fn)
	}
}
