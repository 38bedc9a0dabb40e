// Package arm64 implements an engine session for raw ARM64 binaries,
// decoding with golang.org/x/arch/arm64/arm64asm. The image is
// analyzed once on load with a trace sweep from the load address; the
// resulting instruction starts, functions and references back the
// engine query primitives.
package arm64

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/retroenv/disasmutils/engine"
	"github.com/retroenv/disasmutils/engine/refstore"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/exp/slices"
)

var _ engine.Engine = &Engine{}

// ErrNoAssembler is returned by AssembleLine, no ARM64 assembler is
// wired into this session type.
var ErrNoAssembler = errors.New("no assembler available")

// instructionSize is the fixed ARM64 instruction width in bytes.
const instructionSize = 4

type function struct {
	start engine.Address
	end   engine.Address
	items []engine.Address
}

// Engine is one analysis session over a raw ARM64 binary.
type Engine struct {
	*refstore.Store

	logger *log.Logger
	base   engine.Address
	mem    []byte
	md5    string

	heads     []engine.Address // sorted instruction starts
	headSet   set.Set[engine.Address]
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
func New(logger *log.Logger, data []byte, base uint64) *Engine {
	sum := md5.Sum(data)

	e := &Engine{
		Store:     refstore.New(),
		logger:    logger,
		base:      engine.Address(base),
		mem:       append([]byte{}, data...),
		md5:       hex.EncodeToString(sum[:]),
		headSet:   set.New[engine.Address](),
		regValues: map[string]uint64{},
	}
	e.segs = []engine.Segment{
		{Start: e.base, End: e.MaxAddress(), Bitness: 2, Name: "text"},
	}
	for i := 0; i <= 30; i++ {
		e.regValues["x"+strconv.Itoa(i)] = 0
	}
	e.regValues["sp"] = 0
	e.regValues["pc"] = uint64(base)

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

// Chunks implements engine.Functions. Traced ARM64 functions are
// contiguous; every function has exactly one chunk.
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
}

func (c *chunkCursor) First() bool {
	return c.valid
}

func (c *chunkCursor) Next() bool {
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

// SelectorValue implements engine.Segments. The flat ARM64 address
// space uses paragraph value 0 for all selectors.
func (e *Engine) SelectorValue(uint64) uint64 {
	return 0
}

// ThreadCount implements engine.Threads. A raw image carries no thread
// information; a single pseudo thread is reported.
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

// AssembleLine implements engine.Assembler.
func (e *Engine) AssembleLine(engine.Address, uint64, engine.Address, uint8, string) ([]byte, error) {
	return nil, ErrNoAssembler
}

// InputFileMD5 implements engine.Files.
func (e *Engine) InputFileMD5() (string, bool) {
	return e.md5, true
}

// analyze traces reachable code from the load address, collecting
// instruction starts, references and function boundaries.
func (e *Engine) analyze() {
	queue := []engine.Address{e.base}
	funcStarts := set.New[engine.Address]()
	funcStarts.Add(e.base)

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

// trace decodes one instruction, records its references and returns
// the addresses to continue at plus any detected function starts.
func (e *Engine) trace(address engine.Address) ([]engine.Address, []engine.Address) {
	inst, ok := e.decodeAt(address)
	if !ok {
		return nil, nil
	}

	e.headSet.Add(address)
	e.heads = append(e.heads, address)

	return e.instructionTargets(address, inst)
}

// decodeAt decodes the aligned instruction word at address.
func (e *Engine) decodeAt(address engine.Address) (arm64asm.Inst, bool) {
	i, ok := e.offset(address)
	if !ok || (address-e.base)%instructionSize != 0 || i+instructionSize > len(e.mem) {
		return arm64asm.Inst{}, false
	}
	inst, err := arm64asm.Decode(e.mem[i : i+instructionSize])
	if err != nil {
		return arm64asm.Inst{}, false
	}
	return inst, true
}

// relTarget returns the target of the first PC relative argument.
func relTarget(address engine.Address, inst arm64asm.Inst) (engine.Address, bool) {
	for _, arg := range inst.Args {
		if rel, ok := arg.(arm64asm.PCRel); ok {
			return address + engine.Address(int64(rel)), true
		}
	}
	return 0, false
}

func (e *Engine) instructionTargets(address engine.Address, inst arm64asm.Inst) ([]engine.Address, []engine.Address) {
	var successors, callTargets []engine.Address
	next := address + instructionSize
	target, hasTarget := relTarget(address, inst)
	opName := inst.Op.String()

	flow := func() {
		e.Add(refstore.Ref{From: address, To: next, IsCode: true, Type: engine.RefOrdinaryFlow})
		successors = append(successors, next)
	}

	switch {
	case inst.Op == arm64asm.BL:
		if hasTarget {
			e.Add(refstore.Ref{From: address, To: target, IsCode: true, Type: engine.RefCodeNearCall})
			successors = append(successors, target)
			callTargets = append(callTargets, target)
		}
		flow()

	case inst.Op == arm64asm.B:
		if hasTarget {
			e.Add(refstore.Ref{From: address, To: target, IsCode: true, Type: engine.RefCodeNearJump})
			successors = append(successors, target)
		}
		if _, conditional := inst.Args[0].(arm64asm.Cond); conditional {
			flow()
		}

	case inst.Op == arm64asm.RET, inst.Op == arm64asm.ERET, inst.Op == arm64asm.BR:

	case strings.HasPrefix(opName, "CB"), strings.HasPrefix(opName, "TB"):
		if hasTarget {
			e.Add(refstore.Ref{From: address, To: target, IsCode: true, Type: engine.RefCodeNearJump})
			successors = append(successors, target)
		}
		flow()

	case inst.Op == arm64asm.ADR, inst.Op == arm64asm.ADRP:
		if hasTarget {
			e.Add(refstore.Ref{From: address, To: target, Type: engine.RefDataOffset})
		}
		flow()

	default:
		if hasTarget { // PC relative literal load
			e.Add(refstore.Ref{From: address, To: target, Type: engine.RefDataRead})
		}
		flow()
	}
	return successors, callTargets
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
			fn.end = head + instructionSize
		}
		e.functions = append(e.functions, fn)
	}
}
