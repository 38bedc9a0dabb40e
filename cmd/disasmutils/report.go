package main

import (
	"context"
	"fmt"
	"io"

	"github.com/retroenv/disasmutils/engine"
	"github.com/retroenv/disasmutils/insn"
	"github.com/retroenv/disasmutils/internal/options"
	"github.com/retroenv/disasmutils/strtable"
	"github.com/retroenv/disasmutils/walk"
	"github.com/retroenv/disasmutils/xref"
)

// report writes the analysis summary of the image: segments, function
// boundaries, the traced code with its outgoing references and the
// detected strings.
func report(ctx context.Context, eng engine.Engine, opts options.Program, w io.Writer) error {
	if sum, ok := eng.InputFileMD5(); ok {
		fmt.Fprintf(w, "input md5 %s\n", sum)
	}

	reportSegments(eng, w)
	if err := reportFunctions(ctx, eng, w); err != nil {
		return err
	}
	if err := reportCode(ctx, eng, w); err != nil {
		return err
	}
	if !opts.NoStrings {
		reportStrings(eng, opts, w)
	}
	return nil
}

func reportSegments(eng engine.Engine, w io.Writer) {
	fmt.Fprintf(w, "\nsegments:\n")
	for _, start := range walk.Collect(walk.Segments(eng)) {
		seg, ok := eng.SegmentAt(start)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %08x-%08x  %s\n", uint64(seg.Start), uint64(seg.End), seg.Name)
	}
}

func reportFunctions(ctx context.Context, eng engine.Engine, w io.Writer) error {
	fmt.Fprintf(w, "\nfunctions:\n")

	functions := walk.Functions(eng, eng.MinAddress(), eng.MaxAddress())
	for address, ok := functions.Next(); ok; address, ok = functions.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := eng.FunctionEnd(address)
		items := walk.Collect(walk.FuncItems(eng, address))
		callers := walk.Collect(xref.CodeRefsTo(eng, address, false))
		fmt.Fprintf(w, "  %08x-%08x  %d instructions, %d callers\n",
			uint64(address), uint64(end), len(items), len(callers))
	}
	return nil
}

func reportCode(ctx context.Context, eng engine.Engine, w io.Writer) error {
	fmt.Fprintf(w, "\ncode:\n")

	heads := walk.Heads(eng, eng.MinAddress(), eng.MaxAddress())
	for address, ok := heads.Next(); ok; address, ok = heads.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := fmt.Sprintf("  %08x", uint64(address))
		if ins, decoded := insn.Decode(eng, address); decoded {
			line += fmt.Sprintf("  itype %02x size %d", ins.Itype, ins.Size)
		}
		for _, ref := range walk.Collect(xref.XrefsFrom(eng, address, engine.XrefFar)) {
			name, err := xref.TypeName(ref.Type)
			if err != nil {
				name = "?"
			}
			line += fmt.Sprintf("  -> %08x %s", uint64(ref.To), name)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func reportStrings(eng engine.Engine, opts options.Program, w io.Writer) {
	table := strtable.New(eng, eng)
	cfg := strtable.DefaultConfig(eng)
	cfg.MinLength = opts.MinStringLength
	cfg.IgnoreCode = true
	table.Setup(cfg)

	fmt.Fprintf(w, "\nstrings: %d\n", table.Size())
	items := table.Items()
	for item, ok := items.Next(); ok; item, ok = items.Next() {
		fmt.Fprintf(w, "  %08x  %q\n", uint64(item.Address), item.Text(eng))
	}
}
