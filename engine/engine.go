// Package engine defines the interface boundary to an external
// disassembly/analysis engine. The engine owns the binary image, its
// address space, decoding, reference and string-scan primitives; this
// package only names the capabilities the utility layer calls into.
//
// The engine's cursors (reference cursor, decode buffer, string-scan
// state) are process-wide mutable singletons. The whole layer assumes
// exclusive, non-concurrent access to one engine session: do not
// interleave two traversals of the same kind from concurrent goroutines,
// and do not resume a traversal after a database mutation that
// invalidates cursor state. Behavior in that case is undefined.
package engine

// Address identifies a byte position in the engine's address space.
type Address uint64

// BadAddress is the reserved sentinel denoting "no such address" or
// end-of-sequence.
const BadAddress Address = ^Address(0)

// Info provides the address-space bounds of the loaded image.
type Info interface {
	// MinAddress returns the lowest valid address of the image.
	MinAddress() Address
	// MaxAddress returns the first address past the image.
	MaxAddress() Address
}

// Memory provides fixed-width reads and patches on the image.
// There is no quad patch primitive; the engine does not validate
// 8 byte writes at this level.
type Memory interface {
	Byte(address Address) uint8
	Word(address Address) uint16
	Long(address Address) uint32
	Quad(address Address) uint64

	PatchByte(address Address, value uint8)
	PatchWord(address Address, value uint16)
	PatchLong(address Address, value uint32)
}

// Units enumerates the minimal addressable items (instructions or data)
// the engine recognizes.
type Units interface {
	// IsUnitStart returns whether address is the start of a unit.
	IsUnitStart(address Address) bool
	// NextUnit returns the start of the next unit after address,
	// limited to addresses below end, or BadAddress.
	NextUnit(address, end Address) Address
}

// Functions enumerates functions and their parts.
type Functions interface {
	// FunctionAt returns the start of the function containing address,
	// or BadAddress.
	FunctionAt(address Address) Address
	// NextFunction returns the start of the first function after
	// address, or BadAddress.
	NextFunction(address Address) Address
	// FunctionEnd returns the end of the function starting at address,
	// or BadAddress if there is none.
	FunctionEnd(address Address) Address

	// Chunks returns a fresh iterator over the chunks of the function
	// containing address.
	Chunks(address Address) ChunkCursor
	// Items returns a fresh iterator over the code items of the
	// function containing address.
	Items(address Address) ItemCursor
}

// Chunk is one contiguous piece of a function.
type Chunk struct {
	Start Address
	End   Address
}

// ChunkCursor iterates over the chunks of one function.
type ChunkCursor interface {
	// First positions on the main chunk, returning false if the
	// function does not exist.
	First() bool
	// Next advances to the next chunk.
	Next() bool
	// Chunk returns the current chunk.
	Chunk() Chunk
}

// ItemCursor iterates over the code items of one function.
type ItemCursor interface {
	// First positions on the first item, returning false if the
	// function does not exist.
	First() bool
	// Next advances to the next code item.
	Next() bool
	// Current returns the current item address.
	Current() Address
}

// Segment describes one segment (section) of the image.
type Segment struct {
	Start    Address
	End      Address
	Selector uint64
	Bitness  uint8 // 0: 16 bit, 1: 32 bit, 2: 64 bit
	Name     string
}

// Segments enumerates the segments of the image.
type Segments interface {
	SegmentCount() int
	// SegmentByIndex returns the nth segment; ok is false for holes in
	// the segment table.
	SegmentByIndex(n int) (Segment, bool)
	// SegmentAt returns the segment containing address.
	SegmentAt(address Address) (Segment, bool)
	// SelectorValue resolves a segment selector to its paragraph value.
	SelectorValue(selector uint64) uint64
}

// Threads enumerates the thread IDs of the debugged process.
type Threads interface {
	ThreadCount() int
	ThreadID(n int) int
}

// Registers provides live register value access by name. Values
// reflect current execution state and are re-fetched on every call.
type Registers interface {
	RegisterValue(name string) (uint64, error)
	SetRegisterValue(name string, value uint64) error
}

// Mode controls the engine's interaction mode. Batch mode suppresses
// interactive prompts during scripted operations.
type Mode interface {
	// SetBatchMode sets batch mode and returns the previous value.
	SetBatchMode(enabled bool) bool
}

// Assembler assembles a single line of assembly text.
type Assembler interface {
	// AssembleLine assembles line at address with the given segment
	// selector, effective instruction pointer and segment bitness.
	// It returns the produced bytes or an error.
	AssembleLine(address Address, selector uint64, ip Address, bitness uint8, line string) ([]byte, error)
}

// Files provides metadata about the input file the image was loaded from.
type Files interface {
	// InputFileMD5 returns the MD5 hash of the input binary file,
	// ok is false if no input file is associated.
	InputFileMD5() (string, bool)
}

// Engine is the full facade an engine session exposes. The utility
// layer's functions accept the narrow capability interfaces; Engine
// exists for callers holding a complete session.
type Engine interface {
	Info
	Memory
	References
	Units
	Functions
	Segments
	Threads
	Decoder
	StringScanner
	Registers
	Mode
	Assembler
	Files
}
