package engine

// OperandKind classifies one operand slot of a decoded instruction.
type OperandKind uint8

// Operand kinds. KindVoid terminates the operand list.
const (
	KindVoid OperandKind = iota
	KindRegister
	KindMemory
	KindPhrase
	KindDisplacement
	KindImmediate
	KindFarAddress
	KindNearAddress
)

// InstructionRecord is the engine's current-instruction buffer. The
// buffer is reused across Decode calls; callers must copy the fields
// they keep.
type InstructionRecord struct {
	Address Address
	Size    int
	Itype   int // engine-internal instruction type code
	Flags   uint16
}

// OperandRecord is one operand slot of the engine's current-instruction
// buffer. Like InstructionRecord it is reused across decodes.
type OperandRecord struct {
	Kind  OperandKind
	Reg   int   // register id for register operands
	Width uint8 // data width in bytes
	Value uint64
	Addr  Address
}

// Decoder provides the engine's instruction decode primitives.
type Decoder interface {
	// Decode decodes the unit at address and returns its length in
	// bytes. A zero length means no instruction at that address.
	Decode(address Address) int
	// Instruction returns the current decoded record. ok is false if
	// no decode result is available.
	Instruction() (InstructionRecord, bool)
	// Operand returns operand n of the current decoded record.
	Operand(n int) (OperandRecord, bool)
	// MaxOperands returns the architecture's operand slot count.
	MaxOperands() int

	// ParseRegisterName parses a register name into its id and data
	// width in bytes. ok is false for unknown names.
	ParseRegisterName(name string) (reg int, width uint8, ok bool)
}
