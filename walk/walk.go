// Package walk implements lazy forward traversal over engine query
// primitives. A single generic skeleton produces a pull-style sequence
// from a first/next query pair; the concrete walkers for references,
// units, functions, segments, chunks and threads are instantiations
// of it.
package walk

// Sequence is a lazy pull iterator. Values are produced one at a time
// by Next; no background execution takes place between calls.
//
// A Sequence must not be shared between goroutines and must not be
// resumed after the engine database has been mutated in a way that
// invalidates the underlying cursor state.
type Sequence[T any] struct {
	next func() (T, bool)
}

// New creates a sequence from a pull function. next returns the
// following element and true, or the zero value and false at the end.
func New[T any](next func() (T, bool)) *Sequence[T] {
	return &Sequence[T]{next: next}
}

// Next returns the next element of the sequence. After the first false
// result every further call returns false.
func (s *Sequence[T]) Next() (T, bool) {
	if s.next == nil {
		var zero T
		return zero, false
	}
	value, ok := s.next()
	if !ok {
		s.next = nil
		var zero T
		return zero, false
	}
	return value, true
}

// Collect drains the sequence into a slice.
func Collect[T any](s *Sequence[T]) []T {
	var result []T
	for value, ok := s.Next(); ok; value, ok = s.Next() {
		result = append(result, value)
	}
	return result
}

// Forward produces the sequence first(), next(first()), ... continuing
// while the result is not the sentinel. first is evaluated lazily on
// the initial Next call.
//
// Termination relies on the supplied queries advancing monotonically
// through a finite address space. No cycle or progress guard is
// performed: a next that returns a non-advancing value loops forever.
func Forward[T comparable](first func() T, next func(current T) T, sentinel T) *Sequence[T] {
	started := false
	var current T
	return New(func() (T, bool) {
		if !started {
			started = true
			current = first()
		} else {
			current = next(current)
		}
		if current == sentinel {
			var zero T
			return zero, false
		}
		return current, true
	})
}
