// Package options contains the program options.
package options

// Program options of the inspection tool.
type Program struct {
	Input  string
	Output string

	System string // target cpu: m6502, arm64
	Base   uint64 // load address of the raw image

	MinStringLength int
	NoStrings       bool

	Debug bool
	Quiet bool
}
