package mocks

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
	e.stringItems = strscan.Scan(e.Mem, e.MinAddr, opts, strscan.Context{
		InCode: func(address engine.Address) bool {
			_, ok := e.Instructions[address]
			return ok
		},
	})
}

// StringListSize implements engine.StringScanner.
func (e *Engine) StringListSize() int {
	return len(e.stringItems)
}

// StringListItem implements engine.StringScanner.
func (e *Engine) StringListItem(n int) (engine.StringInfo, bool) {
	if n < 0 || n >= len(e.stringItems) || e.FailItems[n] {
		return engine.StringInfo{}, false
	}
	return e.stringItems[n], true
}

// StringAt implements engine.StringScanner.
func (e *Engine) StringAt(address engine.Address, length int, kind engine.StringKind) string {
	start, ok := e.offset(address)
	if !ok {
		return ""
	}
	end := start + length
	if end > len(e.Mem) {
		end = len(e.Mem)
	}
	data := e.Mem[start:end]

	switch kind {
	case engine.StringPascal:
		data = skip(data, 1)
	case engine.StringLen2, engine.StringULen2:
		data = skip(data, 2)
	case engine.StringLen4, engine.StringULen4:
		data = skip(data, 4)
	}

	if kind == engine.StringUnicode || kind == engine.StringULen2 || kind == engine.StringULen4 {
		chars := make([]byte, 0, len(data)/2)
		for i := 0; i+1 < len(data); i += 2 {
			chars = append(chars, data[i])
		}
		return string(chars)
	}
	return string(data)
}

func skip(data []byte, n int) []byte {
	if len(data) < n {
		return nil
	}
	return data[n:]
}
