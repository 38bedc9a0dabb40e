package arm64

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/retroenv/disasmutils/engine"
	"golang.org/x/arch/arm64/arm64asm"
)

func errUnknownRegister(name string) error {
	return fmt.Errorf("unknown register %s", name)
}

// register ids of the operand model and name parser. The general
// registers use their number, x5 and w5 share id 5 and differ in
// width. SIMD registers start at regV0.
const (
	regSP = 31
	regZR = 32
	regPC = 33
	regV0 = 64
)

var simdWidths = map[byte]uint8{
	'b': 1,
	'h': 2,
	's': 4,
	'd': 8,
	'q': 16,
	'v': 16,
}

// parseRegister resolves a lowercase ARM64 register name.
func parseRegister(name string) (int, uint8, bool) {
	switch name {
	case "sp":
		return regSP, 8, true
	case "wsp":
		return regSP, 4, true
	case "xzr":
		return regZR, 8, true
	case "wzr":
		return regZR, 4, true
	case "pc":
		return regPC, 8, true
	}
	if len(name) < 2 {
		return 0, 0, false
	}

	number, err := strconv.Atoi(name[1:])
	if err != nil || number < 0 {
		return 0, 0, false
	}
	switch {
	case (name[0] == 'x' || name[0] == 'w') && number <= 30:
		width := uint8(8)
		if name[0] == 'w' {
			width = 4
		}
		return number, width, true
	case number <= 31:
		if width, ok := simdWidths[name[0]]; ok {
			return regV0 + number, width, true
		}
	}
	return 0, 0, false
}

// Decode implements engine.Decoder. Any aligned address holding a
// valid instruction word decodes, also outside the traced instruction
// starts.
func (e *Engine) Decode(address engine.Address) int {
	e.decoded = false
	inst, ok := e.decodeAt(address)
	if !ok {
		return 0
	}

	e.current = engine.InstructionRecord{
		Address: address,
		Size:    instructionSize,
		Itype:   int(inst.Op),
	}
	e.ops = e.operands(address, inst)
	e.decoded = true
	return instructionSize
}

// branchOp reports whether the op's PC relative argument is a code
// target rather than a literal or page address.
func branchOp(op arm64asm.Op) bool {
	if op == arm64asm.B || op == arm64asm.BL {
		return true
	}
	name := op.String()
	return strings.HasPrefix(name, "CB") || strings.HasPrefix(name, "TB")
}

func registerOperand(name string) engine.OperandRecord {
	id, width, ok := parseRegister(strings.ToLower(name))
	if !ok {
		return engine.OperandRecord{Kind: engine.KindRegister, Width: 8}
	}
	return engine.OperandRecord{Kind: engine.KindRegister, Reg: id, Width: width}
}

// immShiftValue recovers the immediate from the argument's rendered
// form, the package does not export its fields.
func immShiftValue(arg arm64asm.ImmShift) uint64 {
	text := arg.String()
	if shift := strings.Index(text, ","); shift >= 0 {
		text = text[:shift]
	}
	text = strings.TrimPrefix(text, "#")
	if strings.HasPrefix(text, "0x") {
		value, _ := strconv.ParseUint(text[2:], 16, 64)
		return value
	}
	value, _ := strconv.ParseUint(text, 10, 64)
	return value
}

func (e *Engine) operands(address engine.Address, inst arm64asm.Inst) []engine.OperandRecord {
	var ops []engine.OperandRecord
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		switch a := arg.(type) {
		case arm64asm.Reg:
			ops = append(ops, registerOperand(a.String()))

		case arm64asm.RegSP:
			ops = append(ops, registerOperand(a.String()))

		case arm64asm.PCRel:
			target := address + engine.Address(int64(a))
			kind := engine.KindMemory
			if branchOp(inst.Op) {
				kind = engine.KindNearAddress
			}
			ops = append(ops, engine.OperandRecord{Kind: kind, Width: 8, Addr: target})

		case arm64asm.Imm:
			ops = append(ops, engine.OperandRecord{Kind: engine.KindImmediate, Width: 4, Value: uint64(a.Imm)})

		case arm64asm.Imm64:
			ops = append(ops, engine.OperandRecord{Kind: engine.KindImmediate, Width: 8, Value: a.Imm})

		case arm64asm.ImmShift:
			ops = append(ops, engine.OperandRecord{Kind: engine.KindImmediate, Width: 4, Value: immShiftValue(a)})

		case arm64asm.MemImmediate:
			base := registerOperand(a.Base.String())
			ops = append(ops, engine.OperandRecord{Kind: engine.KindDisplacement, Reg: base.Reg, Width: base.Width})

		case arm64asm.MemExtend:
			base := registerOperand(a.Base.String())
			ops = append(ops, engine.OperandRecord{Kind: engine.KindPhrase, Reg: base.Reg, Width: base.Width})

		default:
			// conditions and shift/extend decorations are part of the
			// mnemonic in the operand model
		}
	}
	return ops
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

// MaxOperands implements engine.Decoder, matching the argument slots
// of the decoder.
func (e *Engine) MaxOperands() int {
	return 5
}

// ParseRegisterName implements engine.Decoder. Names are matched case
// insensitively.
func (e *Engine) ParseRegisterName(name string) (int, uint8, bool) {
	return parseRegister(strings.ToLower(name))
}

// RegisterValue implements engine.Registers. Values are tracked for
// the 64-bit register names.
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
