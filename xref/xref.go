// Package xref exposes the engine's cross-references as immutable
// snapshot values and lazy sequences.
package xref

import (
	"fmt"

	"github.com/retroenv/disasmutils/engine"
	"github.com/retroenv/disasmutils/walk"
)

// ErrUnknownReferenceType is returned when a type code outside the
// engine's closed reference type table is resolved.
var ErrUnknownReferenceType = fmt.Errorf("unknown reference type")

// Reference is one cross-reference edge. Instances are value snapshots
// of the engine's reference cursor; advancing the cursor after a
// Reference has been produced does not change its fields.
type Reference struct {
	From   engine.Address
	To     engine.Address
	IsCode bool
	Type   engine.RefType
	IsUser bool
}

var typeNames = map[engine.RefType]string{
	engine.RefDataUnknown:       "Data_Unknown",
	engine.RefDataOffset:        "Data_Offset",
	engine.RefDataWrite:         "Data_Write",
	engine.RefDataRead:          "Data_Read",
	engine.RefDataText:          "Data_Text",
	engine.RefDataInformational: "Data_Informational",
	engine.RefCodeFarCall:       "Code_Far_Call",
	engine.RefCodeNearCall:      "Code_Near_Call",
	engine.RefCodeFarJump:       "Code_Far_Jump",
	engine.RefCodeNearJump:      "Code_Near_Jump",
	engine.RefCodeUser:          "Code_User",
	engine.RefOrdinaryFlow:      "Ordinary_Flow",
}

// TypeName resolves a reference type code to its readable name.
// Codes outside the closed table return ErrUnknownReferenceType.
func TypeName(code engine.RefType) (string, error) {
	name, ok := typeNames[code]
	if !ok {
		return "", fmt.Errorf("%w: code %d", ErrUnknownReferenceType, code)
	}
	return name, nil
}

// snapshot copies the cursor's current fields into a detached value.
// The copy completes before control returns to the caller, so a later
// cursor advance cannot corrupt an already yielded Reference.
func snapshot(cursor engine.Cursor) Reference {
	return Reference{
		From:   cursor.From(),
		To:     cursor.To(),
		IsCode: cursor.IsCode(),
		Type:   cursor.RefType(),
		IsUser: cursor.IsUser(),
	}
}

// XrefsFrom returns all references from address. An address without
// references yields an empty sequence.
func XrefsFrom(refs engine.References, address engine.Address, flags engine.XrefFlags) *walk.Sequence[Reference] {
	cursor := refs.Cursor()
	started := false
	return walk.New(func() (Reference, bool) {
		var ok bool
		if !started {
			started = true
			ok = cursor.FirstFrom(address, flags)
		} else {
			ok = cursor.NextFrom()
		}
		if !ok {
			return Reference{}, false
		}
		return snapshot(cursor), true
	})
}

// XrefsTo returns all references to address.
func XrefsTo(refs engine.References, address engine.Address, flags engine.XrefFlags) *walk.Sequence[Reference] {
	cursor := refs.Cursor()
	started := false
	return walk.New(func() (Reference, bool) {
		var ok bool
		if !started {
			started = true
			ok = cursor.FirstTo(address, flags)
		} else {
			ok = cursor.NextTo()
		}
		if !ok {
			return Reference{}, false
		}
		return snapshot(cursor), true
	})
}

// CodeRefsTo returns the addresses of code references to address.
// With flow set, ordinary code flow edges are included; without it only
// calls and jumps are visited.
func CodeRefsTo(refs engine.References, address engine.Address, flow bool) *walk.Sequence[engine.Address] {
	first := func() engine.Address {
		return refs.FirstCodeRefTo(address, flow)
	}
	next := func(current engine.Address) engine.Address {
		return refs.NextCodeRefTo(address, current, flow)
	}
	return walk.Forward(first, next, engine.BadAddress)
}

// CodeRefsFrom returns the addresses of code references from address.
func CodeRefsFrom(refs engine.References, address engine.Address, flow bool) *walk.Sequence[engine.Address] {
	first := func() engine.Address {
		return refs.FirstCodeRefFrom(address, flow)
	}
	next := func(current engine.Address) engine.Address {
		return refs.NextCodeRefFrom(address, current, flow)
	}
	return walk.Forward(first, next, engine.BadAddress)
}

// DataRefsTo returns the addresses of data references to address.
func DataRefsTo(refs engine.References, address engine.Address) *walk.Sequence[engine.Address] {
	first := func() engine.Address {
		return refs.FirstDataRefTo(address)
	}
	next := func(current engine.Address) engine.Address {
		return refs.NextDataRefTo(address, current)
	}
	return walk.Forward(first, next, engine.BadAddress)
}

// DataRefsFrom returns the addresses of data references from address.
func DataRefsFrom(refs engine.References, address engine.Address) *walk.Sequence[engine.Address] {
	first := func() engine.Address {
		return refs.FirstDataRefFrom(address)
	}
	next := func(current engine.Address) engine.Address {
		return refs.NextDataRefFrom(address, current)
	}
	return walk.Forward(first, next, engine.BadAddress)
}
