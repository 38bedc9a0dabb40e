// Package main implements an inspection tool for raw binaries that
// reports the segments, functions, code and strings of an analyzed
// image.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/retroenv/disasmutils/engine"
	"github.com/retroenv/disasmutils/engine/arm64"
	"github.com/retroenv/disasmutils/engine/m6502"
	"github.com/retroenv/disasmutils/internal/cli"
	"github.com/retroenv/disasmutils/internal/config"
	"github.com/retroenv/disasmutils/internal/options"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx := app.Context()

	opts, err := cli.ParseFlags()
	if err != nil {
		logger := config.CreateLogger(opts.Debug, opts.Quiet)
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			printBanner(logger, opts)
			usageErr.ShowUsage()
		} else {
			logger.Fatal(err.Error())
		}
		os.Exit(1)
	}

	logger := config.CreateLogger(opts.Debug, opts.Quiet)
	printBanner(logger, opts)

	if err := run(ctx, logger, opts); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Operation cancelled")
			return
		}
		logger.Error("Inspection failed", log.Err(err))
		os.Exit(1)
	}
}

func printBanner(logger *log.Logger, opts options.Program) {
	if opts.Quiet {
		return
	}
	logger.Info("disasmutils", log.String("version", buildinfo.Version(version, commit, date)))
}

func run(ctx context.Context, logger *log.Logger, opts options.Program) error {
	data, err := os.ReadFile(opts.Input)
	if err != nil {
		return fmt.Errorf("reading input file: %w", err)
	}
	logger.Debug("input loaded",
		log.String("file", opts.Input),
		log.Int("size", len(data)),
		log.Hex("base", opts.Base))

	eng, err := createEngine(logger, opts, data)
	if err != nil {
		return err
	}

	var writer io.Writer = os.Stdout
	if opts.Output != "" {
		file, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer func() {
			_ = file.Close()
		}()
		writer = file
	}

	return report(ctx, eng, opts, writer)
}

func createEngine(logger *log.Logger, opts options.Program, data []byte) (engine.Engine, error) {
	switch opts.System {
	case "m6502":
		return m6502.New(logger, data, uint16(opts.Base)), nil
	case "arm64":
		return arm64.New(logger, data, opts.Base), nil
	}
	return nil, fmt.Errorf("unsupported system: %s", opts.System)
}
