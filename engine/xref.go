package engine

// RefType classifies a cross-reference. The enumeration is closed;
// codes outside this table are invalid.
type RefType uint8

// Reference type codes.
const (
	RefDataUnknown       RefType = 0
	RefDataOffset        RefType = 1
	RefDataWrite         RefType = 2
	RefDataRead          RefType = 3
	RefDataText          RefType = 4
	RefDataInformational RefType = 5
	RefCodeFarCall       RefType = 16
	RefCodeNearCall      RefType = 17
	RefCodeFarJump       RefType = 18
	RefCodeNearJump      RefType = 19
	RefCodeUser          RefType = 20
	RefOrdinaryFlow      RefType = 21
)

// XrefFlags filter the references a cursor visits.
type XrefFlags uint

// Cursor filter flags.
const (
	XrefAll  XrefFlags = 0 // all references
	XrefFar  XrefFlags = 1 // only non-flow references
	XrefData XrefFlags = 2 // only data references
)

// Cursor is the engine's reusable reference cursor. One cursor instance
// is repositioned in place by every First/Next call; its field accessors
// read the current position. Callers must copy the fields out before
// advancing if they need a stable snapshot.
type Cursor interface {
	// FirstFrom positions on the first reference from address,
	// returning false if there is none.
	FirstFrom(address Address, flags XrefFlags) bool
	// NextFrom advances to the next reference from the same address.
	NextFrom() bool
	// FirstTo positions on the first reference to address.
	FirstTo(address Address, flags XrefFlags) bool
	// NextTo advances to the next reference to the same address.
	NextTo() bool

	From() Address
	To() Address
	IsCode() bool
	RefType() RefType
	IsUser() bool
}

// References provides the engine's reference query primitives.
//
// The code reference pairs take a flow parameter: with flow set the
// ordinary-flow edges are included, without it only far references
// (calls and jumps) are visited.
type References interface {
	// Cursor returns the engine's reference cursor. The returned value
	// is a process-wide singleton, see the package comment.
	Cursor() Cursor

	FirstCodeRefFrom(address Address, flow bool) Address
	NextCodeRefFrom(address, current Address, flow bool) Address
	FirstCodeRefTo(address Address, flow bool) Address
	NextCodeRefTo(address, current Address, flow bool) Address

	FirstDataRefFrom(address Address) Address
	NextDataRefFrom(address, current Address) Address
	FirstDataRefTo(address Address) Address
	NextDataRefTo(address, current Address) Address
}
