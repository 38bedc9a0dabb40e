// Package strscan implements the byte level string detection shared by
// the engine implementations in this module.
package strscan

import (
	"github.com/retroenv/disasmutils/engine"
	"golang.org/x/exp/slices"
)

// Context provides optional image knowledge to a scan.
type Context struct {
	// InCode reports whether an address lies inside an instruction.
	// Used when the scan options exclude strings in code. May be nil.
	InCode func(engine.Address) bool
	// Existing reports whether an address is already defined as string
	// data. Used by the only-existing filter. May be nil.
	Existing func(engine.Address) bool
}

// Scan detects string-like items in data per the scan options. data
// holds the image bytes starting at base; the options' range is
// clamped to it. Results are ordered by address.
func Scan(data []byte, base engine.Address, opts engine.StringScanOptions, ctx Context) []engine.StringInfo {
	if opts.Start >= opts.End {
		return nil
	}

	start, end := clamp(data, base, opts.Start, opts.End)
	if start >= end {
		return nil
	}

	var items []engine.StringInfo
	add := func(found []engine.StringInfo) {
		items = append(items, found...)
	}

	region := data[start-base : end-base]
	if opts.Types&engine.StringC != 0 {
		add(scanTerminated(region, start, engine.StringC, 1, opts))
	}
	if opts.Types&engine.StringUnicode != 0 {
		add(scanTerminated(region, start, engine.StringUnicode, 2, opts))
	}
	if opts.Types&engine.StringPascal != 0 {
		add(scanPrefixed(region, start, engine.StringPascal, 1, 1, opts))
	}
	if opts.Types&engine.StringLen2 != 0 {
		add(scanPrefixed(region, start, engine.StringLen2, 2, 1, opts))
	}
	if opts.Types&engine.StringLen4 != 0 {
		add(scanPrefixed(region, start, engine.StringLen4, 4, 1, opts))
	}
	if opts.Types&engine.StringULen2 != 0 {
		add(scanPrefixed(region, start, engine.StringULen2, 2, 2, opts))
	}
	if opts.Types&engine.StringULen4 != 0 {
		add(scanPrefixed(region, start, engine.StringULen4, 4, 2, opts))
	}

	items = filter(items, opts, ctx)
	slices.SortFunc(items, func(a, b engine.StringInfo) bool {
		return a.Address < b.Address
	})
	return items
}

func clamp(data []byte, base, start, end engine.Address) (engine.Address, engine.Address) {
	limit := base + engine.Address(len(data))
	if start < base {
		start = base
	}
	if end > limit {
		end = limit
	}
	return start, end
}

func filter(items []engine.StringInfo, opts engine.StringScanOptions, ctx Context) []engine.StringInfo {
	kept := items[:0]
	for _, item := range items {
		if opts.IgnoreCode && ctx.InCode != nil && ctx.InCode(item.Address) {
			continue
		}
		if opts.OnlyExisting && (ctx.Existing == nil || !ctx.Existing(item.Address)) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// scanTerminated finds NUL terminated character runs. charWidth 2
// detects little endian 16 bit characters with an ASCII low byte.
func scanTerminated(region []byte, base engine.Address, kind engine.StringKind, charWidth int, opts engine.StringScanOptions) []engine.StringInfo {
	var items []engine.StringInfo

	for i := 0; i < len(region); {
		length := runLength(region[i:], charWidth, opts.Only7Bit)
		if length >= opts.MinLength && terminated(region[i+length*charWidth:], charWidth) {
			items = append(items, engine.StringInfo{
				Address: base + engine.Address(i),
				Length:  length * charWidth,
				Kind:    kind,
			})
		}
		if length > 0 {
			i += length * charWidth
		} else {
			i++
		}
	}
	return items
}

// scanPrefixed finds length prefixed runs: a prefixSize byte little
// endian character count followed by that many characters.
func scanPrefixed(region []byte, base engine.Address, kind engine.StringKind, prefixSize, charWidth int, opts engine.StringScanOptions) []engine.StringInfo {
	var items []engine.StringInfo

	for i := 0; i+prefixSize < len(region); i++ {
		count := 0
		for b := prefixSize - 1; b >= 0; b-- {
			count = count<<8 | int(region[i+b])
		}
		if count < opts.MinLength {
			continue
		}

		payload := region[i+prefixSize:]
		if count*charWidth > len(payload) {
			continue
		}
		if runLength(payload, charWidth, opts.Only7Bit) < count {
			continue
		}
		items = append(items, engine.StringInfo{
			Address: base + engine.Address(i),
			Length:  prefixSize + count*charWidth,
			Kind:    kind,
		})
	}
	return items
}

// runLength counts leading printable characters of the given width.
func runLength(data []byte, charWidth int, only7Bit bool) int {
	count := 0
	for i := 0; i+charWidth <= len(data); i += charWidth {
		if !printable(data[i], only7Bit) {
			break
		}
		if charWidth == 2 && data[i+1] != 0 {
			break
		}
		count++
	}
	return count
}

func terminated(data []byte, charWidth int) bool {
	if len(data) < charWidth {
		return false
	}
	for i := 0; i < charWidth; i++ {
		if data[i] != 0 {
			return false
		}
	}
	return true
}

func printable(b uint8, only7Bit bool) bool {
	if b >= 0x20 && b < 0x7f {
		return true
	}
	if b == '\t' || b == '\n' || b == '\r' {
		return true
	}
	return !only7Bit && b >= 0xa0
}
