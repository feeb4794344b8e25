package types

// Compat classifies how a value of type `from` can be used where `to` is
// expected.
type Compat int

const (
	Incompatible Compat = iota
	Identical
	AssignableDirect   // assignable with no cast
	RequiresExplicitCast
	NarrowingWarns // Word -> Byte explicit cast: allowed but warns (W_CAST_LOSES_DATA)
)

// AssignabilityOf reports whether a value of type `from` may be assigned
// to a location of type `to`, and under what rule.
func (t *Table) AssignabilityOf(from, to ID) Compat {
	rf, rt := t.Resolve(from), t.Resolve(to)
	if rf == rt {
		return Identical
	}

	tf, tt := t.Get(rf), t.Get(rt)
	if tf == nil || tt == nil {
		return Incompatible
	}

	switch {
	// Byte assignable to Byte; Word assignable to Word (handled by
	// rf == rt above). Byte -> Word widening requires an explicit cast
	// (word(x)); it is never implicit.
	case tf.Kind == KindByte && tt.Kind == KindWord:
		return RequiresExplicitCast
	// Word -> Byte requires explicit byte(x) and narrows with a warning.
	case tf.Kind == KindWord && tt.Kind == KindByte:
		return RequiresExplicitCast

	// Address is Word for identity purposes; Resolve does not unwrap
	// Address (it is a primitive Kind, not an Alias), so compare kinds
	// directly: Word <-> Address interassign freely (documentary only).
	case tf.Kind == KindWord && tt.Kind == KindAddress,
		tf.Kind == KindAddress && tt.Kind == KindWord:
		return AssignableDirect

	// Array{T,N} assignable only to identical T and N (handled above by
	// structural interning: two Array types with equal elem+size already
	// share rf == rt). Anything else is incompatible.
	case tf.Kind == KindArray || tt.Kind == KindArray:
		return Incompatible

	// Enum member's type is the enum type itself; assigning an enum value
	// to its own Byte underlying type is allowed. Byte -> enum needs an
	// explicit cast.
	case tf.Kind == KindEnum && tt.Kind == KindByte:
		return AssignableDirect
	case tf.Kind == KindByte && tt.Kind == KindEnum:
		return RequiresExplicitCast

	// Bool has no implicit numeric conversion in either direction.
	case tf.Kind == KindBool || tt.Kind == KindBool:
		return Incompatible

	// Function types compare by parameter-and-return structural identity,
	// which structural interning already gives us via rf == rt.
	case tf.Kind == KindFunction || tt.Kind == KindFunction:
		return Incompatible

	default:
		return Incompatible
	}
}

// IsNumeric reports whether id resolves to Byte or Word (the two types
// the type checker's arithmetic operators accept).
func (t *Table) IsNumeric(id ID) bool {
	ty := t.Get(t.Resolve(id))
	return ty != nil && (ty.Kind == KindByte || ty.Kind == KindWord)
}

// IsBool reports whether id resolves to Bool.
func (t *Table) IsBool(id ID) bool {
	ty := t.Get(t.Resolve(id))
	return ty != nil && ty.Kind == KindBool
}

// Widen returns the common type two numeric operands widen to for a
// binary arithmetic/comparison op: Byte op Byte -> Byte, anything
// involving Word -> Word. Call sites pre-check IsNumeric on both operands.
func (t *Table) Widen(a, b ID) ID {
	ra, rb := t.Resolve(a), t.Resolve(b)
	ta, tb := t.Get(ra), t.Get(rb)
	if ta != nil && ta.Kind == KindWord {
		return t.Word()
	}
	if tb != nil && tb.Kind == KindWord {
		return t.Word()
	}
	return t.Byte()
}
