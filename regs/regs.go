// Package regs provides register name resolution and live register
// value access.
//
// Resolution and value access are distinct read patterns: a resolved
// descriptor is immutable and cached for the lifetime of the analysis
// session, while the live CPU proxy forwards every access to the
// engine so that values always reflect current execution state.
package regs

import (
	"fmt"

	"github.com/retroenv/disasmutils/engine"
)

var (
	// ErrUnknownRegister is returned when a name is not a register of
	// the loaded architecture.
	ErrUnknownRegister = fmt.Errorf("unknown register")
	// ErrReadOnlyRegister is returned on any attempt to store a
	// descriptor into the cache.
	ErrReadOnlyRegister = fmt.Errorf("register descriptors are read only")
)

// Register describes a processor register by id and data width.
// Two registers are equal iff both id and width match; a wider and a
// narrower view of the same register id are distinct descriptors.
type Register struct {
	Name  string
	Reg   int
	Width uint8 // in bytes
}

// Equal reports whether both descriptors name the same register at the
// same width.
func (r Register) Equal(other Register) bool {
	return r.Reg == other.Reg && r.Width == other.Width
}

// Cache memoizes register name resolution. A name is parsed by the
// engine once; the resulting descriptor is immutable and returned for
// every later resolution of the same name.
type Cache struct {
	parser  engine.Decoder
	entries map[string]Register
}

// NewCache creates a register descriptor cache backed by the engine's
// register name parser.
func NewCache(parser engine.Decoder) *Cache {
	return &Cache{
		parser:  parser,
		entries: map[string]Register{},
	}
}

// Resolve returns the descriptor for a register name, parsing it on
// first use. Unknown names return ErrUnknownRegister.
func (c *Cache) Resolve(name string) (Register, error) {
	if reg, ok := c.entries[name]; ok {
		return reg, nil
	}

	id, width, ok := c.parser.ParseRegisterName(name)
	if !ok {
		return Register{}, fmt.Errorf("%w: %s", ErrUnknownRegister, name)
	}

	reg := Register{
		Name:  name,
		Reg:   id,
		Width: width,
	}
	c.entries[name] = reg
	return reg, nil
}

// Store rejects every attempt to replace a descriptor, resolved or
// not. Descriptors are created by the engine's parser only.
func (c *Cache) Store(name string, _ Register) error {
	return fmt.Errorf("%w: %s", ErrReadOnlyRegister, name)
}

// CPU is a live register value proxy. Every Get and Set forwards
// directly to the engine; nothing is cached.
type CPU struct {
	registers engine.Registers
}

// NewCPU creates a live register proxy for an engine session.
func NewCPU(registers engine.Registers) *CPU {
	return &CPU{registers: registers}
}

// Get fetches the current value of a named register.
func (c *CPU) Get(name string) (uint64, error) {
	value, err := c.registers.RegisterValue(name)
	if err != nil {
		return 0, fmt.Errorf("reading register %s: %w", name, err)
	}
	return value, nil
}

// Set stores a value into a named register.
func (c *CPU) Set(name string, value uint64) error {
	if err := c.registers.SetRegisterValue(name, value); err != nil {
		return fmt.Errorf("writing register %s: %w", name, err)
	}
	return nil
}
