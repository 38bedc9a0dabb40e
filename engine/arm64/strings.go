package arm64

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

// StringAt implements engine.StringScanner. Unicode kinds collect the
// low bytes of each UTF-16 unit.
func (e *Engine) StringAt(address engine.Address, length int, kind engine.StringKind) string {
	start, ok := e.offset(address)
	if !ok {
		return ""
	}
	end := start + length
	if end > len(e.mem) {
		end = len(e.mem)
	}

	switch kind {
	case engine.StringPascal:
		start++
	case engine.StringLen2, engine.StringULen2:
		start += 2
	case engine.StringLen4, engine.StringULen4:
		start += 4
	}
	if start >= end {
		return ""
	}

	width := 1
	switch kind {
	case engine.StringUnicode, engine.StringULen2, engine.StringULen4:
		width = 2
	}

	result := make([]byte, 0, (end-start)/width)
	for i := start; i+width <= end; i += width {
		result = append(result, e.mem[i])
	}
	return string(result)
}
