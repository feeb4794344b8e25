// Package types implements Blend65's structural type system: interned
// primitive, alias, enum, array, function, and address types, plus their
// compatibility/widening/narrowing rules.
//
// Enumeration style follows nevermosby-ebpf/types.go's tagged-constant +
// String() pattern (there for MapType, here for Kind).
package types

import "fmt"

// Kind tags a Type's shape.
type Kind int

const (
	KindByte Kind = iota
	KindWord
	KindVoid
	KindBool
	KindString // compile-time, length known
	KindArray
	KindFunction
	KindEnum
	KindAlias
	KindAddress // documentary alias for Word
)

func (k Kind) String() string {
	switch k {
	case KindByte:
		return "byte"
	case KindWord:
		return "word"
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindFunction:
		return "function"
	case KindEnum:
		return "enum"
	case KindAlias:
		return "alias"
	case KindAddress:
		return "address"
	default:
		return "unknown"
	}
}

// ID is the interned identity of a Type. Two types with equal structure
// always share the same ID after interning: types are structurally
// interned, so identity compare suffices.
type ID int

// Type is the interned, structural representation of a Blend65 type.
type Type struct {
	ID   ID
	Kind Kind

	// KindArray
	Elem ID
	Size int

	// KindFunction
	Params     []ID
	Return     ID
	IsCallback bool

	// KindEnum
	EnumName    string
	Members     []string
	Underlying  ID // always Byte

	// KindAlias
	AliasName string
	Target    ID

	// KindString (compile-time length)
	StrLen int
}

func (t *Type) String() string {
	switch t.Kind {
	case KindArray:
		return fmt.Sprintf("array[%d]", t.Size)
	case KindFunction:
		return "function"
	case KindEnum:
		return "enum " + t.EnumName
	case KindAlias:
		return "alias " + t.AliasName
	default:
		return t.Kind.String()
	}
}

// structKey is the interning key: a canonical string built from a type's
// structural shape. Two Types intern to the same ID iff their structKey
// matches.
func structKey(t *Type) string {
	switch t.Kind {
	case KindArray:
		return fmt.Sprintf("array(%d,%d)", t.Elem, t.Size)
	case KindFunction:
		return fmt.Sprintf("func(%v,%d,%v)", t.Params, t.Return, t.IsCallback)
	case KindEnum:
		return "enum:" + t.EnumName
	case KindAlias:
		return "alias:" + t.AliasName
	default:
		return t.Kind.String()
	}
}

// Table is the interning pool for one compilation. Append-only: readers
// always see a consistent snapshot since entries are never mutated or
// removed once interned.
type Table struct {
	byKey map[string]ID
	types []*Type
}

// NewTable creates a Table pre-populated with the primitive singleton
// types (Byte, Word, Void, Bool, Address).
func NewTable() *Table {
	t := &Table{byKey: make(map[string]ID)}
	t.intern(&Type{Kind: KindByte})
	t.intern(&Type{Kind: KindWord})
	t.intern(&Type{Kind: KindVoid})
	t.intern(&Type{Kind: KindBool})
	t.intern(&Type{Kind: KindAddress})
	return t
}

func (t *Table) intern(ty *Type) ID {
	key := structKey(ty)
	if id, ok := t.byKey[key]; ok {
		return id
	}
	id := ID(len(t.types))
	ty.ID = id
	t.types = append(t.types, ty)
	t.byKey[key] = id
	return id
}

// Byte, Word, Void, Bool, Address return the singleton primitive type IDs.
func (t *Table) Byte() ID    { return 0 }
func (t *Table) Word() ID    { return 1 }
func (t *Table) Void() ID    { return 2 }
func (t *Table) Bool() ID    { return 3 }
func (t *Table) Address() ID { return 4 }

// String interns (or reuses) a compile-time string type of the given
// length.
func (t *Table) String(length int) ID {
	return t.intern(&Type{Kind: KindString, StrLen: length})
}

// Array interns (or reuses) Array{elem, size}.
func (t *Table) Array(elem ID, size int) ID {
	return t.intern(&Type{Kind: KindArray, Elem: elem, Size: size})
}

// Function interns (or reuses) Function{params, return, is-callback}.
func (t *Table) Function(params []ID, ret ID, isCallback bool) ID {
	return t.intern(&Type{Kind: KindFunction, Params: append([]ID{}, params...), Return: ret, IsCallback: isCallback})
}

// Enum interns a new enum type. Enums are nominal (named), so two enum
// declarations with identical member lists are still distinct types —
// structKey includes the name, not the member list.
func (t *Table) Enum(name string, members []string) ID {
	return t.intern(&Type{Kind: KindEnum, EnumName: name, Members: append([]string{}, members...), Underlying: t.Byte()})
}

// Alias interns a new named alias of target. Aliases are nominal like
// enums: re-declaring the same name with a different target would be a
// duplicate-declaration error caught by the resolver, not a type-system
// concern.
func (t *Table) Alias(name string, target ID) ID {
	return t.intern(&Type{Kind: KindAlias, AliasName: name, Target: target})
}

// Get returns the Type for id.
func (t *Table) Get(id ID) *Type {
	if int(id) < 0 || int(id) >= len(t.types) {
		return nil
	}
	return t.types[id]
}

// Resolve follows Alias chains down to their non-alias target, the way a
// type checker needs to when deciding compatibility under an alias.
func (t *Table) Resolve(id ID) ID {
	for {
		ty := t.Get(id)
		if ty == nil || ty.Kind != KindAlias {
			return id
		}
		id = ty.Target
	}
}
