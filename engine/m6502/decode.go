package m6502

import (
	"fmt"
	"strings"

	"github.com/retroenv/disasmutils/engine"
	m6502 "github.com/retroenv/retrogolib/arch/cpu/cpu6502"
)

func errUnknownRegister(name string) error {
	return fmt.Errorf("unknown register %s", name)
}

// register ids of the operand model and name parser.
const (
	regA = iota
	regX
	regY
	regS
	regP
	regPC
)

var registerNames = []struct {
	name  string
	reg   int
	width uint8
}{
	{"a", regA, 1},
	{"x", regX, 1},
	{"y", regY, 1},
	{"s", regS, 1},
	{"p", regP, 1},
	{"pc", regPC, 2},
}

var addressingSize = map[m6502.AddressingMode]int{
	m6502.ImpliedAddressing:     1,
	m6502.AccumulatorAddressing: 1,
	m6502.ImmediateAddressing:   2,
	m6502.ZeroPageAddressing:    2,
	m6502.ZeroPageXAddressing:   2,
	m6502.ZeroPageYAddressing:   2,
	m6502.RelativeAddressing:    2,
	m6502.IndirectXAddressing:   2,
	m6502.IndirectYAddressing:   2,
	m6502.AbsoluteAddressing:    3,
	m6502.AbsoluteXAddressing:   3,
	m6502.AbsoluteYAddressing:   3,
	m6502.IndirectAddressing:    3,
}

// Decode implements engine.Decoder. Any address holding a valid opcode
// decodes, also outside the traced instruction starts.
func (e *Engine) Decode(address engine.Address) int {
	e.decoded = false
	if _, ok := e.offset(address); !ok {
		return 0
	}

	opcode := m6502.Opcodes[e.Byte(address)]
	if opcode.Instruction == nil {
		return 0
	}
	addressing := m6502.AddressingMode(opcode.Addressing)
	size, ok := addressingSize[addressing]
	if !ok || address+engine.Address(size) > e.MaxAddress() {
		return 0
	}

	e.current = engine.InstructionRecord{
		Address: address,
		Size:    size,
		Itype:   int(e.Byte(address)),
	}
	e.ops = e.operands(address, opcode, addressing)
	e.decoded = true
	return size
}

func (e *Engine) operands(address engine.Address, opcode m6502.Opcode, addressing m6502.AddressingMode) []engine.OperandRecord {
	switch addressing {
	case m6502.AccumulatorAddressing:
		return []engine.OperandRecord{{Kind: engine.KindRegister, Reg: regA, Width: 1}}

	case m6502.ImmediateAddressing:
		return []engine.OperandRecord{{Kind: engine.KindImmediate, Width: 1, Value: uint64(e.Byte(address + 1))}}

	case m6502.ZeroPageAddressing:
		return []engine.OperandRecord{{Kind: engine.KindMemory, Width: 1, Addr: engine.Address(e.Byte(address + 1))}}

	case m6502.ZeroPageXAddressing:
		return []engine.OperandRecord{{Kind: engine.KindDisplacement, Reg: regX, Width: 1, Addr: engine.Address(e.Byte(address + 1))}}

	case m6502.ZeroPageYAddressing:
		return []engine.OperandRecord{{Kind: engine.KindDisplacement, Reg: regY, Width: 1, Addr: engine.Address(e.Byte(address + 1))}}

	case m6502.RelativeAddressing:
		target := address + 2 + engine.Address(int8(e.Byte(address+1)))
		return []engine.OperandRecord{{Kind: engine.KindNearAddress, Width: 2, Addr: target}}

	case m6502.AbsoluteAddressing:
		target := engine.Address(e.Word(address + 1))
		name := opcode.Instruction.Name
		if name == m6502.JmpName || name == m6502.JsrName {
			return []engine.OperandRecord{{Kind: engine.KindNearAddress, Width: 2, Addr: target}}
		}
		return []engine.OperandRecord{{Kind: engine.KindMemory, Width: 1, Addr: target}}

	case m6502.AbsoluteXAddressing:
		return []engine.OperandRecord{{Kind: engine.KindDisplacement, Reg: regX, Width: 1, Addr: engine.Address(e.Word(address + 1))}}

	case m6502.AbsoluteYAddressing:
		return []engine.OperandRecord{{Kind: engine.KindDisplacement, Reg: regY, Width: 1, Addr: engine.Address(e.Word(address + 1))}}

	case m6502.IndirectAddressing:
		return []engine.OperandRecord{{Kind: engine.KindMemory, Width: 2, Addr: engine.Address(e.Word(address + 1))}}

	case m6502.IndirectXAddressing:
		return []engine.OperandRecord{{Kind: engine.KindPhrase, Reg: regX, Width: 1, Addr: engine.Address(e.Byte(address + 1))}}

	case m6502.IndirectYAddressing:
		return []engine.OperandRecord{{Kind: engine.KindPhrase, Reg: regY, Width: 1, Addr: engine.Address(e.Byte(address + 1))}}

	default: // implied
		return nil
	}
}

// Instruction implements engine.Decoder.
func (e *Engine) Instruction() (engine.InstructionRecord, bool) {
	return e.current, e.decoded
}

// Operand implements engine.Decoder.
func (e *Engine) Operand(n int) (engine.OperandRecord, bool) {
	if !e.decoded || n < 0 || n >= e.MaxOperands() {
		return engine.OperandRecord{}, false
	}
	if n >= len(e.ops) {
		return engine.OperandRecord{Kind: engine.KindVoid}, true
	}
	return e.ops[n], true
}

// MaxOperands implements engine.Decoder. 6502 instructions carry at
// most one explicit operand; a second slot holds the void terminator.
func (e *Engine) MaxOperands() int {
	return 2
}

// ParseRegisterName implements engine.Decoder. Names are matched case
// insensitively.
func (e *Engine) ParseRegisterName(name string) (int, uint8, bool) {
	lower := strings.ToLower(name)
	for _, reg := range registerNames {
		if reg.name == lower {
			return reg.reg, reg.width, true
		}
	}
	return 0, 0, false
}

// RegisterValue implements engine.Registers.
func (e *Engine) RegisterValue(name string) (uint64, error) {
	value, ok := e.regValues[strings.ToLower(name)]
	if !ok {
		return 0, errUnknownRegister(name)
	}
	return value, nil
}

// SetRegisterValue implements engine.Registers.
func (e *Engine) SetRegisterValue(name string, value uint64) error {
	lower := strings.ToLower(name)
	if _, ok := e.regValues[lower]; !ok {
		return errUnknownRegister(name)
	}
	e.regValues[lower] = value
	return nil
}
