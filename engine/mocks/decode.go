package mocks

import (
	"github.com/retroenv/disasmutils/engine"
)

// Decode implements engine.Decoder.
func (e *Engine) Decode(address engine.Address) int {
	ins, ok := e.Instructions[address]
	if !ok {
		e.decoded = false
		return 0
	}

	// reuse the current-instruction buffer across decodes
	e.current = engine.InstructionRecord{
		Address: address,
		Size:    ins.Size,
		Itype:   ins.Itype,
		Flags:   ins.Flags,
	}
	e.decoded = true
	return ins.Size
}

// Instruction implements engine.Decoder.
func (e *Engine) Instruction() (engine.InstructionRecord, bool) {
	return e.current, e.decoded
}

// Operand implements engine.Decoder.
func (e *Engine) Operand(n int) (engine.OperandRecord, bool) {
	if !e.decoded {
		return engine.OperandRecord{}, false
	}
	ins := e.Instructions[e.current.Address]
	if n < 0 || n >= e.MaxOps {
		return engine.OperandRecord{}, false
	}
	if n >= len(ins.Operands) {
		return engine.OperandRecord{Kind: engine.KindVoid}, true
	}
	return ins.Operands[n], true
}

// MaxOperands implements engine.Decoder.
func (e *Engine) MaxOperands() int {
	return e.MaxOps
}

// ParseRegisterName implements engine.Decoder.
func (e *Engine) ParseRegisterName(name string) (int, uint8, bool) {
	def, ok := e.Registers[name]
	if !ok {
		return 0, 0, false
	}
	return def.Reg, def.Width, true
}
