package walk

import (
	"github.com/retroenv/disasmutils/engine"
)

// Heads walks the unit starts (instructions or data) in [start, end).
// If start is not itself a unit start, the walk begins at the next one.
// The last unit's end may exceed end.
func Heads(units engine.Units, start, end engine.Address) *Sequence[engine.Address] {
	first := func() engine.Address {
		if units.IsUnitStart(start) {
			return start
		}
		return units.NextUnit(start, end)
	}
	next := func(current engine.Address) engine.Address {
		return units.NextUnit(current, end)
	}
	return Forward(first, next, engine.BadAddress)
}

// Functions walks the function start addresses in [start, end),
// beginning with the function containing start if there is one. The
// last function that starts before end is included even if it extends
// beyond end. A function with chunks in multiple segments is reported
// once per containing segment by the engine.
func Functions(funcs engine.Functions, start, end engine.Address) *Sequence[engine.Address] {
	clamp := func(address engine.Address) engine.Address {
		if address == engine.BadAddress || address >= end {
			return engine.BadAddress
		}
		return address
	}
	first := func() engine.Address {
		fn := funcs.FunctionAt(start)
		if fn == engine.BadAddress {
			fn = funcs.NextFunction(start)
		}
		return clamp(fn)
	}
	next := func(current engine.Address) engine.Address {
		return clamp(funcs.NextFunction(current))
	}
	return Forward(first, next, engine.BadAddress)
}

// Segments walks the start addresses of all segments of the image.
// Holes in the engine's segment table are skipped.
func Segments(segs engine.Segments) *Sequence[engine.Address] {
	count := segs.SegmentCount()
	n := 0
	return New(func() (engine.Address, bool) {
		for ; n < count; n++ {
			seg, ok := segs.SegmentByIndex(n)
			if ok {
				n++
				return seg.Start, true
			}
		}
		return 0, false
	})
}

// Chunks walks the chunks of the function containing address.
func Chunks(funcs engine.Functions, address engine.Address) *Sequence[engine.Chunk] {
	cursor := funcs.Chunks(address)
	started := false
	return New(func() (engine.Chunk, bool) {
		var ok bool
		if !started {
			started = true
			ok = cursor.First()
		} else {
			ok = cursor.Next()
		}
		if !ok {
			return engine.Chunk{}, false
		}
		return cursor.Chunk(), true
	})
}

// FuncItems walks the code item addresses of the function containing
// address.
func FuncItems(funcs engine.Functions, address engine.Address) *Sequence[engine.Address] {
	cursor := funcs.Items(address)
	started := false
	return New(func() (engine.Address, bool) {
		var ok bool
		if !started {
			started = true
			ok = cursor.First()
		} else {
			ok = cursor.Next()
		}
		if !ok {
			return 0, false
		}
		return cursor.Current(), true
	})
}

// Threads walks all thread IDs of the debugged process.
func Threads(threads engine.Threads) *Sequence[int] {
	count := threads.ThreadCount()
	n := 0
	return New(func() (int, bool) {
		if n >= count {
			return 0, false
		}
		id := threads.ThreadID(n)
		n++
		return id, true
	})
}
