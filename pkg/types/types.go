// Package types describes the small set of types the language supports and
// how they compare and combine. It has no dependency on pkg/lang: the
// parser produces syntax (lang.TypeExpr); the analyzer resolves that syntax
// into the descriptors defined here.
package types

import (
	"fmt"
)

// Kind is the closed set of type families.
type Kind int

const (
	KindNumber Kind = iota
	KindText
	KindNothing
	KindStructure
	KindArray
	KindLink
	KindInvalid // sentinel produced after a type error, suppresses cascades
)

// Type is a resolved type descriptor. Only Array and Link carry an
// Underlying type; only Structure carries a Name.
type Type struct {
	Kind       Kind
	Name       string // structure name, for KindStructure
	Underlying *Type  // element type for KindArray, pointee type for KindLink
	Dims       int    // number of index dimensions, for KindArray
}

var (
	Number  = Type{Kind: KindNumber}
	Text    = Type{Kind: KindText}
	Nothing = Type{Kind: KindNothing}
	Invalid = Type{Kind: KindInvalid}
)

// Structure builds a named structure type.
func Structure(name string) Type {
	return Type{Kind: KindStructure, Name: name}
}

// Array builds an array-of-elem type with the given index arity.
func Array(elem Type, dims int) Type {
	return Type{Kind: KindArray, Underlying: &elem, Dims: dims}
}

// Link builds a link-to-pointee type.
func Link(pointee Type) Type {
	return Type{Kind: KindLink, Underlying: &pointee}
}

// String renders a type the way diagnostics quote it, e.g. "array of
// number", "link to point", "structure point".
func (t Type) String() string {
	switch t.Kind {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindNothing:
		return "nothing"
	case KindStructure:
		return "structure " + t.Name
	case KindArray:
		return fmt.Sprintf("array of %s", t.Underlying.String())
	case KindLink:
		return "link to " + t.Underlying.String()
	default:
		return "<invalid>"
	}
}

// Equal reports whether two types are structurally identical. An array with
// Dims == 0 (unspecified bounds, as written in a parameter declaration)
// matches an array of the same element type with any concrete dimension
// count — spec.md's rule that a changeable array parameter accepts any
// array of the right element type regardless of the bounds the caller
// declared.
func Equal(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindStructure:
		return a.Name == b.Name
	case KindArray:
		if a.Dims != 0 && b.Dims != 0 && a.Dims != b.Dims {
			return false
		}
		return Equal(*a.Underlying, *b.Underlying)
	case KindLink:
		return Equal(*a.Underlying, *b.Underlying)
	default:
		return true
	}
}

// IsNumeric reports whether t supports arithmetic.
func IsNumeric(t Type) bool { return t.Kind == KindNumber }

// IsTextLike reports whether t may appear as an operand of the text
// concatenation relaxation described in spec.md §4.4 (text + number, or
// text + text, coerces both sides to text).
func IsTextLike(t Type) bool { return t.Kind == KindText }

// Valid reports whether t is a real, resolvable type (not the error
// sentinel produced when analysis of some sub-expression already failed).
func (t Type) Valid() bool { return t.Kind != KindInvalid }
