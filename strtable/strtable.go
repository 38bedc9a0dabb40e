// Package strtable caches the engine's string scan results as a
// randomly indexable snapshot.
package strtable

import (
	"fmt"

	"github.com/retroenv/disasmutils/engine"
	"github.com/retroenv/disasmutils/walk"
	"github.com/retroenv/retrogolib/set"
)

// ErrItemUnavailable is returned when fetching a string item by index
// failed transiently. The index stays valid; callers may retry or skip.
var ErrItemUnavailable = fmt.Errorf("string item unavailable")

// allKinds lists every string kind flag for mask conversion.
var allKinds = []engine.StringKind{
	engine.StringC,
	engine.StringPascal,
	engine.StringLen2,
	engine.StringUnicode,
	engine.StringLen4,
	engine.StringULen2,
	engine.StringULen4,
}

// Config controls what the string scan detects.
type Config struct {
	Types        set.Set[engine.StringKind] // kinds to detect
	MinLength    int
	Only7Bit     bool // reject strings with non 7 bit ASCII characters
	IgnoreCode   bool // skip string-like bytes inside instructions
	Start        engine.Address
	End          engine.Address
	OnlyExisting bool // only items already defined as string data
}

// DefaultConfig returns the scan defaults: C strings of at least
// 5 printable 7 bit characters over the whole image.
func DefaultConfig(info engine.Info) Config {
	types := set.New[engine.StringKind]()
	types.Add(engine.StringC)
	return Config{
		Types:     types,
		MinLength: 5,
		Only7Bit:  true,
		Start:     info.MinAddress(),
		End:       info.MaxAddress(),
	}
}

func (c Config) scanOptions() engine.StringScanOptions {
	var mask engine.StringKind
	for _, kind := range allKinds {
		if c.Types.Contains(kind) {
			mask |= kind
		}
	}
	return engine.StringScanOptions{
		Types:        mask,
		MinLength:    c.MinLength,
		Only7Bit:     c.Only7Bit,
		IgnoreCode:   c.IgnoreCode,
		Start:        c.Start,
		End:          c.End,
		OnlyExisting: c.OnlyExisting,
	}
}

// Item is one scanned string-like item. Its text is materialized on
// demand from engine memory, never cached.
type Item struct {
	Address engine.Address
	Length  int // in bytes
	Kind    engine.StringKind
}

// Text materializes the item's text from engine memory.
func (i Item) Text(scanner engine.StringScanner) string {
	return scanner.StringAt(i.Address, i.Length, i.Kind)
}

// Table is a snapshot cache over the engine's string list. Its index
// domain [0, Size) is recomputed only by Setup, Refresh and Clear; it
// is never mutated incrementally.
type Table struct {
	scanner engine.StringScanner
	info    engine.Info
	size    int
}

// New creates an empty table for an engine session. No scan is
// performed until Setup or Refresh is called.
func New(scanner engine.StringScanner, info engine.Info) *Table {
	return &Table{
		scanner: scanner,
		info:    info,
	}
}

// Setup installs the scan configuration and performs a full rescan,
// recomputing the table size.
func (t *Table) Setup(cfg Config) {
	t.scanner.SetStringScanOptions(cfg.scanOptions())
	t.RefreshAll()
}

// Refresh rescans [start, end) and recomputes the table size. An empty
// range (start == end) clears the table instead of populating it; this
// is an engine-level shortcut, exposed distinctly as Clear.
func (t *Table) Refresh(start, end engine.Address) {
	t.scanner.RefreshStringList(start, end)
	t.size = t.scanner.StringListSize()
}

// RefreshAll rescans the whole image.
func (t *Table) RefreshAll() {
	t.Refresh(t.info.MinAddress(), t.info.MaxAddress())
}

// Clear empties the table without rescanning.
func (t *Table) Clear() {
	t.Refresh(0, 0)
}

// Size returns the item count of the last scan.
func (t *Table) Size() int {
	return t.size
}

// Item returns the string item at index. ok is false with a nil error
// when index is outside [0, Size), which ends iteration; a transient
// engine fetch failure returns ErrItemUnavailable and may be retried.
func (t *Table) Item(index int) (Item, bool, error) {
	if index < 0 || index >= t.size {
		return Item{}, false, nil
	}

	info, ok := t.scanner.StringListItem(index)
	if !ok {
		return Item{}, false, fmt.Errorf("%w: index %d", ErrItemUnavailable, index)
	}
	return Item{
		Address: info.Address,
		Length:  info.Length,
		Kind:    info.Kind,
	}, true, nil
}

// Items walks all items of the last scan. Items that fail to fetch
// transiently are skipped.
func (t *Table) Items() *walk.Sequence[Item] {
	index := 0
	return walk.New(func() (Item, bool) {
		for ; index < t.size; index++ {
			item, ok, err := t.Item(index)
			if err != nil {
				continue
			}
			if ok {
				index++
				return item, true
			}
		}
		return Item{}, false
	})
}
