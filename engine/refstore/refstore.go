// Package refstore implements a table backed reference store with the
// cursor and first/next query primitives of engine.References. Engine
// implementations embed a Store and fill it during analysis.
package refstore

import (
	"github.com/retroenv/disasmutils/engine"
)

// Ref is one stored reference edge.
type Ref struct {
	From   engine.Address
	To     engine.Address
	IsCode bool
	Type   engine.RefType
	User   bool
}

// Store indexes references by their from and to addresses, in
// insertion order.
type Store struct {
	From map[engine.Address][]Ref
	To   map[engine.Address][]Ref

	cursor *cursor
}

// New creates an empty reference store.
func New() *Store {
	return &Store{
		From: map[engine.Address][]Ref{},
		To:   map[engine.Address][]Ref{},
	}
}

// Add stores a reference edge.
func (s *Store) Add(r Ref) {
	s.From[r.From] = append(s.From[r.From], r)
	s.To[r.To] = append(s.To[r.To], r)
}

// Cursor implements engine.References. The same cursor instance is
// returned on every call; each First/Next repositions it in place.
func (s *Store) Cursor() engine.Cursor {
	if s.cursor == nil {
		s.cursor = &cursor{store: s}
	}
	return s.cursor
}

// cursor is the store's singleton reference cursor.
type cursor struct {
	store   *Store
	refs    []Ref
	index   int
	current Ref
}

func matches(r Ref, flags engine.XrefFlags) bool {
	if flags&engine.XrefData != 0 && r.IsCode {
		return false
	}
	if flags&engine.XrefFar != 0 && r.Type == engine.RefOrdinaryFlow {
		return false
	}
	return true
}

func (c *cursor) first(refs []Ref, flags engine.XrefFlags) bool {
	c.refs = c.refs[:0]
	for _, r := range refs {
		if matches(r, flags) {
			c.refs = append(c.refs, r)
		}
	}
	c.index = 0
	if len(c.refs) == 0 {
		return false
	}
	c.current = c.refs[0]
	return true
}

func (c *cursor) next() bool {
	c.index++
	if c.index >= len(c.refs) {
		return false
	}
	c.current = c.refs[c.index]
	return true
}

func (c *cursor) FirstFrom(address engine.Address, flags engine.XrefFlags) bool {
	return c.first(c.store.From[address], flags)
}

func (c *cursor) NextFrom() bool {
	return c.next()
}

func (c *cursor) FirstTo(address engine.Address, flags engine.XrefFlags) bool {
	return c.first(c.store.To[address], flags)
}

func (c *cursor) NextTo() bool {
	return c.next()
}

func (c *cursor) From() engine.Address {
	return c.current.From
}

func (c *cursor) To() engine.Address {
	return c.current.To
}

func (c *cursor) IsCode() bool {
	return c.current.IsCode
}

func (c *cursor) RefType() engine.RefType {
	return c.current.Type
}

func (c *cursor) IsUser() bool {
	return c.current.User
}

func codeRef(r Ref, flow bool) bool {
	if !r.IsCode {
		return false
	}
	if !flow && r.Type == engine.RefOrdinaryFlow {
		return false
	}
	return true
}

func dataRef(r Ref) bool {
	return !r.IsCode
}

func targets(refs []Ref, from bool, keep func(Ref) bool) []engine.Address {
	var result []engine.Address
	for _, r := range refs {
		if !keep(r) {
			continue
		}
		if from {
			result = append(result, r.To)
		} else {
			result = append(result, r.From)
		}
	}
	return result
}

func first(targets []engine.Address) engine.Address {
	if len(targets) == 0 {
		return engine.BadAddress
	}
	return targets[0]
}

func next(targets []engine.Address, current engine.Address) engine.Address {
	for i, target := range targets {
		if target == current && i+1 < len(targets) {
			return targets[i+1]
		}
	}
	return engine.BadAddress
}

// FirstCodeRefFrom implements engine.References.
func (s *Store) FirstCodeRefFrom(address engine.Address, flow bool) engine.Address {
	return first(targets(s.From[address], true, func(r Ref) bool { return codeRef(r, flow) }))
}

// NextCodeRefFrom implements engine.References.
func (s *Store) NextCodeRefFrom(address, current engine.Address, flow bool) engine.Address {
	return next(targets(s.From[address], true, func(r Ref) bool { return codeRef(r, flow) }), current)
}

// FirstCodeRefTo implements engine.References.
func (s *Store) FirstCodeRefTo(address engine.Address, flow bool) engine.Address {
	return first(targets(s.To[address], false, func(r Ref) bool { return codeRef(r, flow) }))
}

// NextCodeRefTo implements engine.References.
func (s *Store) NextCodeRefTo(address, current engine.Address, flow bool) engine.Address {
	return next(targets(s.To[address], false, func(r Ref) bool { return codeRef(r, flow) }), current)
}

// FirstDataRefFrom implements engine.References.
func (s *Store) FirstDataRefFrom(address engine.Address) engine.Address {
	return first(targets(s.From[address], true, dataRef))
}

// NextDataRefFrom implements engine.References.
func (s *Store) NextDataRefFrom(address, current engine.Address) engine.Address {
	return next(targets(s.From[address], true, dataRef), current)
}

// FirstDataRefTo implements engine.References.
func (s *Store) FirstDataRefTo(address engine.Address) engine.Address {
	return first(targets(s.To[address], false, dataRef))
}

// NextDataRefTo implements engine.References.
func (s *Store) NextDataRefTo(address, current engine.Address) engine.Address {
	return next(targets(s.To[address], false, dataRef), current)
}
