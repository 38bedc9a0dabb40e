package engine

// StringKind is a bit flag describing how a string-like item is encoded.
type StringKind uint16

// String kinds, combinable as a scan mask.
const (
	StringC       StringKind = 0x0001 // C-style ASCII string
	StringPascal  StringKind = 0x0002 // Pascal-style, length byte
	StringLen2    StringKind = 0x0004 // Pascal-style, 2 byte length
	StringUnicode StringKind = 0x0008 // Unicode string
	StringLen4    StringKind = 0x0010 // Pascal-style, 4 byte length
	StringULen2   StringKind = 0x0020 // Pascal-style Unicode, 2 byte length
	StringULen4   StringKind = 0x0040 // Pascal-style Unicode, 4 byte length
)

// StringScanOptions configure the engine's string scanner.
type StringScanOptions struct {
	Types        StringKind // mask of kinds to detect
	MinLength    int
	Only7Bit     bool
	IgnoreCode   bool // skip strings inside instructions
	Start        Address
	End          Address
	OnlyExisting bool // only items already defined as string data
}

// StringInfo describes one scanned string-like item.
type StringInfo struct {
	Address Address
	Length  int // in bytes
	Kind    StringKind
}

// StringScanner provides the engine's string list primitives. The scan
// state is a singleton: setting options or refreshing replaces the one
// process-wide string list.
type StringScanner interface {
	// SetStringScanOptions installs the scan options without scanning.
	SetStringScanOptions(opts StringScanOptions)
	// RefreshStringList rescans [start, end). An empty range
	// (start == end) clears the list instead of populating it.
	RefreshStringList(start, end Address)
	// StringListSize returns the item count of the last scan.
	StringListSize() int
	// StringListItem fetches item n of the last scan. ok is false on a
	// transient fetch failure.
	StringListItem(n int) (StringInfo, bool)

	// StringAt materializes the text of a string item from memory.
	StringAt(address Address, length int, kind StringKind) string
}
