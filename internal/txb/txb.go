// Package txb builds ledger move-call payloads for SuiLocker vaults and
// entries. Builders are pure data-to-wire mappers: no I/O, no side
// effects. They exist so the positional call-argument encoding lives in
// exactly one place and is covered by round-trip tests.
package txb

// ArgKind discriminates the typed call-argument union.
type ArgKind int

const (
	// KindPure is a plain string argument.
	KindPure ArgKind = iota
	// KindOptString is an option-wrapped string. None means "leave the
	// ledger-side value untouched"; Some("") means "set to empty". The
	// distinction is load-bearing for partial updates.
	KindOptString
	// KindStrVector is a vector of strings (entry tags).
	KindStrVector
	// KindOptStrVector is an option-wrapped string vector.
	KindOptStrVector
	// KindObject is a reference to an owned ledger object.
	KindObject
	// KindU64 is an unsigned 64-bit integer.
	KindU64
	// KindOptU64 is an option-wrapped unsigned 64-bit integer.
	KindOptU64
	// KindBool is a boolean.
	KindBool
	// KindBytes is a raw byte vector (blob root hashes).
	KindBytes
)

// Arg is one positional call argument. Exactly the field selected by Kind
// is meaningful.
type Arg struct {
	Kind   ArgKind
	Str    string
	OptStr *string
	Vec    []string
	OptVec *[]string
	U64    uint64
	OptU64 *uint64
	Bool   bool
	Bytes  []byte
}

func Pure(s string) Arg            { return Arg{Kind: KindPure, Str: s} }
func OptString(p *string) Arg      { return Arg{Kind: KindOptString, OptStr: p} }
func StrVector(v []string) Arg     { return Arg{Kind: KindStrVector, Vec: v} }
func OptStrVector(p *[]string) Arg { return Arg{Kind: KindOptStrVector, OptVec: p} }
func Object(id string) Arg         { return Arg{Kind: KindObject, Str: id} }
func U64(v uint64) Arg             { return Arg{Kind: KindU64, U64: v} }
func OptU64(p *uint64) Arg         { return Arg{Kind: KindOptU64, OptU64: p} }
func Bool(v bool) Arg              { return Arg{Kind: KindBool, Bool: v} }
func Bytes(b []byte) Arg           { return Arg{Kind: KindBytes, Bytes: b} }

// IsNone reports whether an option-kinded argument encodes None.
func (a Arg) IsNone() bool {
	switch a.Kind {
	case KindOptString:
		return a.OptStr == nil
	case KindOptStrVector:
		return a.OptVec == nil
	case KindOptU64:
		return a.OptU64 == nil
	default:
		return false
	}
}

// Transaction is a single move call addressed to a published package.
type Transaction struct {
	Package  string
	Module   string
	Function string
	Args     []Arg
}
