// Package insn decodes single instructions into detached values with a
// bounded, register-aware operand list.
package insn

import (
	"github.com/retroenv/disasmutils/engine"
	"github.com/retroenv/disasmutils/regs"
)

// Operand is one operand slot of a decoded instruction. The engine's
// operand buffer is copied on decode; an Operand does not alias engine
// state.
type Operand struct {
	Kind  engine.OperandKind
	Reg   int
	Width uint8
	Raw   engine.OperandRecord
}

// IsReg reports whether the operand is exactly the given processor
// register: a register kind operand with matching id and width.
// Addressing mode beyond the kind check does not participate.
func (op Operand) IsReg(reg regs.Register) bool {
	return op.Kind == engine.KindRegister && op.Reg == reg.Reg && op.Width == reg.Width
}

// HasReg reports whether the operand accesses the given processor
// register, regardless of width.
func (op Operand) HasReg(reg regs.Register) bool {
	return op.Reg == reg.Reg
}

// Instruction is one decoded instruction. Operands holds at most the
// architecture's operand slot count; the engine's void terminator is
// consumed, not stored.
type Instruction struct {
	Address  engine.Address
	Size     int
	Itype    int
	Flags    uint16
	Operands []Operand
}

// Decode decodes the unit at address. The second return value is false
// if there is no instruction at that address; absence is a normal
// outcome for data and undefined addresses, not an error.
func Decode(decoder engine.Decoder, address engine.Address) (Instruction, bool) {
	if decoder.Decode(address) == 0 {
		return Instruction{}, false
	}

	record, ok := decoder.Instruction()
	if !ok {
		return Instruction{}, false
	}

	ins := Instruction{
		Address: record.Address,
		Size:    record.Size,
		Itype:   record.Itype,
		Flags:   record.Flags,
	}

	for n := 0; n < decoder.MaxOperands(); n++ {
		op, ok := decoder.Operand(n)
		if !ok || op.Kind == engine.KindVoid {
			break
		}
		ins.Operands = append(ins.Operands, Operand{
			Kind:  op.Kind,
			Reg:   op.Reg,
			Width: op.Width,
			Raw:   op,
		})
	}
	return ins, true
}
