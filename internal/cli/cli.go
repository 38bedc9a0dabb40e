// Package cli handles command line interface logic
package cli

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/retroenv/disasmutils/internal/options"
)

// ParseFlags parses command line flags and returns the program options
func ParseFlags() (options.Program, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var opts options.Program
	var base string
	readOptionFlags(flags, &opts, &base)

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err != nil || len(args) == 0 {
		return opts, &UsageError{flags: flags}
	}

	if err := validateArgs(args); err != nil {
		return opts, err
	}

	if err := normalizeOptions(&opts, base); err != nil {
		return opts, err
	}

	opts.Input = args[0]
	return opts, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: disasmutils [options] <file to inspect>\n\n")
	e.flags.PrintDefaults()
	fmt.Println()
}

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && arg[0] == '-' {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after file to inspect, please pass the file to inspect as last argument", arg),
			}
		}
	}
	return nil
}

// normalizeOptions normalizes and validates option values
func normalizeOptions(opts *options.Program, base string) error {
	opts.System = strings.ToLower(opts.System)

	value, err := strconv.ParseUint(base, 0, 64)
	if err != nil {
		return fmt.Errorf("invalid base address %s: %w", base, err)
	}
	opts.Base = value

	switch opts.System {
	case "m6502":
		if opts.Base > math.MaxUint16 {
			return fmt.Errorf("base address %#x exceeds the m6502 address space", opts.Base)
		}
	case "arm64":
	default:
		return fmt.Errorf("unsupported system: %s. Valid options: m6502, arm64", opts.System)
	}

	if opts.MinStringLength < 1 {
		return fmt.Errorf("invalid minimum string length %d", opts.MinStringLength)
	}
	return nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program, base *string) {
	flags.StringVar(&opts.Output, "o", "", "name of the output report file, printed on console if no name given")
	flags.StringVar(&opts.System, "s", "m6502", "system cpu to analyze for (m6502, arm64)")
	flags.StringVar(base, "b", "0", "load address of the raw image, hex values use a 0x prefix")
	flags.IntVar(&opts.MinStringLength, "minstr", 5, "minimum length of detected strings")
	flags.BoolVar(&opts.NoStrings, "nostrings", false, "do not scan the image for strings")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
}
