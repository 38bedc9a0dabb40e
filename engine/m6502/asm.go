package m6502

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/retroenv/disasmutils/engine"
	m6502 "github.com/retroenv/retrogolib/arch/cpu/cpu6502"
)

// AssembleLine implements engine.Assembler. A small subset of 6502
// syntax is supported: implied/accumulator instructions, "#$nn"
// immediates, "$nn" zero page, "$nnnn" absolute and "($nnnn)" indirect
// operands; branch instructions take an absolute target. Assembled
// bytes are committed to the image.
func (e *Engine) AssembleLine(address engine.Address, _ uint64, _ engine.Address, _ uint8, line string) ([]byte, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 || len(fields) > 2 {
		return nil, fmt.Errorf("unsupported line syntax: %q", line)
	}

	mnemonic := strings.ToLower(fields[0])
	operand := ""
	if len(fields) == 2 {
		operand = strings.ToLower(fields[1])
	}

	addressing, value, err := parseOperand(operand)
	if err != nil {
		return nil, err
	}

	buf, err := e.encode(address, mnemonic, addressing, value)
	if err != nil {
		return nil, err
	}

	for i, b := range buf {
		e.PatchByte(address+engine.Address(i), b)
	}
	return buf, nil
}

func parseOperand(operand string) (m6502.AddressingMode, uint16, error) {
	switch {
	case operand == "":
		return m6502.ImpliedAddressing, 0, nil

	case operand == "a":
		return m6502.AccumulatorAddressing, 0, nil

	case strings.HasPrefix(operand, "#$"):
		value, err := parseHex(operand[2:], 2)
		return m6502.ImmediateAddressing, value, err

	case strings.HasPrefix(operand, "($") && strings.HasSuffix(operand, ")"):
		value, err := parseHex(operand[2:len(operand)-1], 4)
		return m6502.IndirectAddressing, value, err

	case strings.HasPrefix(operand, "$") && len(operand) == 3:
		value, err := parseHex(operand[1:], 2)
		return m6502.ZeroPageAddressing, value, err

	case strings.HasPrefix(operand, "$") && len(operand) == 5:
		value, err := parseHex(operand[1:], 4)
		return m6502.AbsoluteAddressing, value, err

	default:
		return 0, 0, fmt.Errorf("unsupported operand syntax: %q", operand)
	}
}

func parseHex(s string, digits int) (uint16, error) {
	if len(s) != digits {
		return 0, fmt.Errorf("expected %d hex digits: %q", digits, s)
	}
	value, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("parsing hex value %q: %w", s, err)
	}
	return uint16(value), nil
}

// encode finds the opcode byte for the mnemonic/addressing pair in the
// instruction table and emits its encoding.
func (e *Engine) encode(address engine.Address, mnemonic string, addressing m6502.AddressingMode, value uint16) ([]byte, error) {
	if _, ok := m6502.BranchingInstructions[mnemonic]; ok && addressing == m6502.AbsoluteAddressing {
		if relative, ok := e.opcodeFor(mnemonic, m6502.RelativeAddressing); ok {
			offset := int64(value) - int64(address) - 2
			if offset < -128 || offset > 127 {
				return nil, fmt.Errorf("branch target out of range: $%04x", value)
			}
			return []byte{relative, uint8(int8(offset))}, nil
		}
	}

	opcode, ok := e.opcodeFor(mnemonic, addressing)
	if !ok {
		return nil, fmt.Errorf("no encoding for %s with this operand", mnemonic)
	}

	switch addressingSize[addressing] {
	case 1:
		return []byte{opcode}, nil
	case 2:
		return []byte{opcode, uint8(value)}, nil
	default:
		return []byte{opcode, uint8(value), uint8(value >> 8)}, nil
	}
}

func (e *Engine) opcodeFor(mnemonic string, addressing m6502.AddressingMode) (uint8, bool) {
	for b := 0; b < 256; b++ {
		opcode := m6502.Opcodes[b]
		if opcode.Instruction == nil || opcode.Instruction.Unofficial {
			continue
		}
		if strings.EqualFold(opcode.Instruction.Name, mnemonic) &&
			m6502.AddressingMode(opcode.Addressing) == addressing {
			return uint8(b), true
		}
	}
	return 0, false
}
