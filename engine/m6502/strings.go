package m6502

import (
	"github.com/retroenv/disasmutils/engine"
	"github.com/retroenv/disasmutils/internal/strscan"
)

// SetStringScanOptions implements engine.StringScanner.
func (e *Engine) SetStringScanOptions(opts engine.StringScanOptions) {
	e.scanOpts = opts
}

// RefreshStringList implements engine.StringScanner. An empty range
// clears the list.
func (e *Engine) RefreshStringList(start, end engine.Address) {
	if start == end {
		e.stringItems = nil
		return
	}

	opts := e.scanOpts
	opts.Start = start
	opts.End = end
	e.stringItems = strscan.Scan(e.mem, e.base, opts, strscan.Context{
		InCode: e.headSet.Contains,
	})
}

// StringListSize implements engine.StringScanner.
func (e *Engine) StringListSize() int {
	return len(e.stringItems)
}

// StringListItem implements engine.StringScanner.
func (e *Engine) StringListItem(n int) (engine.StringInfo, bool) {
	if n < 0 || n >= len(e.stringItems) {
		return engine.StringInfo{}, false
	}
	return e.stringItems[n], true
}

// StringAt implements engine.StringScanner. Only C strings occur in
// 6502 images; other kinds return the raw bytes.
func (e *Engine) StringAt(address engine.Address, length int, kind engine.StringKind) string {
	start, ok := e.offset(address)
	if !ok {
		return ""
	}
	end := start + length
	if end > len(e.mem) {
		end = len(e.mem)
	}
	if kind == engine.StringPascal && start < end {
		start++
	}
	return string(e.mem[start:end])
}
