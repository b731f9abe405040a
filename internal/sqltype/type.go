// Package sqltype models SQL column types as a small ordered lattice with
// an explicit widening order. Inference and schema reconciliation are both
// expressed as operations over this lattice, which keeps the "evolution
// never narrows" rule mechanically checkable.
package sqltype

import "fmt"

// Kind is the type tag of a SQL column type.
type Kind int

const (
	KindUnknown Kind = iota

	// Numeric family, narrowest to widest.
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindDecimal
	KindFloat64

	// Temporal family.
	KindDate
	KindDateTime

	// Variable-size families.
	KindString
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindDecimal:
		return "decimal"
	case KindFloat64:
		return "float64"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Type is a concrete SQL column type: a kind plus its size/precision.
type Type struct {
	Kind Kind

	// Size is the declared length for string/binary types.
	// Zero means unbounded (TEXT / BLOB).
	Size int

	// Precision and Scale apply to decimal types. Precision is also the
	// fractional-seconds precision for datetime types.
	Precision int
	Scale     int

	// Unicode marks national character types (NVARCHAR) on stores that
	// distinguish them. Dialects without the distinction ignore it.
	Unicode bool
}

func (t Type) String() string {
	switch t.Kind {
	case KindString, KindBinary:
		if t.Size == 0 {
			return t.Kind.String()
		}
		return fmt.Sprintf("%s(%d)", t.Kind, t.Size)
	case KindDecimal:
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	default:
		return t.Kind.String()
	}
}

// numericRank orders the numeric family. Higher rank can represent every
// value of any lower rank without precision loss (decimal is treated as
// wide enough for any integer; float64 is the top).
func numericRank(k Kind) int {
	switch k {
	case KindBool:
		return 1
	case KindInt8:
		return 2
	case KindInt16:
		return 3
	case KindInt32:
		return 4
	case KindInt64:
		return 5
	case KindDecimal:
		return 6
	case KindFloat64:
		return 7
	default:
		return 0
	}
}

func isNumeric(k Kind) bool { return numericRank(k) > 0 }

func isTemporal(k Kind) bool { return k == KindDate || k == KindDateTime }

// Text returns the unbounded string type.
func Text() Type { return Type{Kind: KindString} }

// Includes reports whether a column declared as t can hold every value a
// column declared as other currently holds — i.e. t is equal to or wider
// than other on the lattice. Sizes count: VARCHAR(10) does not include
// VARCHAR(50), but VARCHAR(0) (unbounded) includes everything stringy.
func (t Type) Includes(other Type) bool {
	switch {
	case t.Kind == other.Kind:
		switch t.Kind {
		case KindString, KindBinary:
			if other.Unicode && !t.Unicode {
				return false
			}
			return t.Size == 0 || (other.Size > 0 && t.Size >= other.Size)
		case KindDecimal:
			return t.Precision >= other.Precision && t.Scale >= other.Scale
		case KindDateTime:
			return t.Precision >= other.Precision
		default:
			return true
		}
	case isNumeric(t.Kind) && isNumeric(other.Kind):
		return numericRank(t.Kind) >= numericRank(other.Kind)
	case t.Kind == KindDateTime && other.Kind == KindDate:
		return true
	case t.Kind == KindString && t.Size == 0:
		// Unbounded text is the top of the whole lattice: any value has a
		// textual representation.
		return other.Kind != KindBinary
	}
	return false
}

// Widen returns the least type that includes both a and b, and reports
// whether the join stayed inside a single family. When the families are
// incompatible (e.g. date vs int) the join falls to unbounded text and
// ok is false, so callers can reject the fallback in strict mode.
func Widen(a, b Type) (Type, bool) {
	switch {
	case a.Kind == KindUnknown:
		return b, true
	case b.Kind == KindUnknown:
		return a, true
	case a.Includes(b):
		return a, true
	case b.Includes(a):
		return b, true
	}

	switch {
	case isNumeric(a.Kind) && isNumeric(b.Kind):
		// Same rank cannot happen here (Includes covers it); different
		// precision decimals meet above the larger of each dimension.
		if a.Kind == KindDecimal && b.Kind == KindDecimal {
			return Type{Kind: KindDecimal, Precision: maxInt(a.Precision, b.Precision), Scale: maxInt(a.Scale, b.Scale)}, true
		}
		if numericRank(a.Kind) >= numericRank(b.Kind) {
			return a, true
		}
		return b, true
	case isTemporal(a.Kind) && isTemporal(b.Kind):
		p := maxInt(a.Precision, b.Precision)
		return Type{Kind: KindDateTime, Precision: p}, true
	case a.Kind == KindString && b.Kind == KindString:
		if a.Size == 0 || b.Size == 0 {
			return Type{Kind: KindString, Unicode: a.Unicode || b.Unicode}, true
		}
		return Type{Kind: KindString, Size: maxInt(a.Size, b.Size), Unicode: a.Unicode || b.Unicode}, true
	case a.Kind == KindBinary && b.Kind == KindBinary:
		if a.Size == 0 || b.Size == 0 {
			return Type{Kind: KindBinary}, true
		}
		return Type{Kind: KindBinary, Size: maxInt(a.Size, b.Size)}, true
	}

	// No common supertype within one family: fall back to unbounded text.
	return Text(), false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
