// Package symbols implements Blend65's scope tree, two-pass per-module
// resolution, cross-module import resolution, and the memory-layout
// arena tracker.
//
// The registry shape mirrors ajroetker-goat/arch.go's
// RegisterParser/GetParser pattern: a flat map keyed by name, here in the
// form of each Scope's Declare/Lookup pair and each ModuleTable's export
// map. Intrinsic names are held in no scope.
package symbols

import (
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/types"
)

// Kind tags what a Symbol denotes.
type Kind int

const (
	KindVariable Kind = iota
	KindConst
	KindParameter
	KindFunction
	KindType
	KindEnum
	KindEnumMember
	KindMapField
	KindModule
	KindImport
	KindIntrinsic
)

// Storage records which memory region a Symbol lives in.
type Storage int

const (
	StorageNone Storage = iota
	StorageZP
	StorageRAM
	StorageData
	StorageMap
	StorageStack
	StorageRegister
)

// Symbol is one resolved name in a scope.
type Symbol struct {
	Name       string
	ScopeID    int
	Kind       Kind
	TypeID     types.ID
	Storage    Storage
	Span       source.Span
	IsExported bool
	IsUsed     bool

	// MapFixedAddr is set for StorageMap symbols: the absolute address is
	// fixed at declaration and never allocated by the register allocator.
	MapFixedAddr int
	HasFixedAddr bool

	// OwningModule names the module this symbol was declared in, used by
	// cross-module import resolution and qualified diagnostics.
	OwningModule string

	// EnumOrdinal is the compile-time value of a KindEnumMember symbol
	// (its position in the enum's member list) — IL generation folds an
	// `Enum.Member` reference directly to this immediate rather than a
	// load.
	EnumOrdinal int
}

// Scope is one node in the scope tree: a parent pointer plus an ordered
// symbol map, so lookup and iteration stay deterministic through any pass
// that iterates a scope.
type Scope struct {
	ID     int
	Parent *Scope
	names  []string
	byName map[string]*Symbol
}

// NewScope creates a scope with the given parent (nil for the root global
// scope).
func NewScope(id int, parent *Scope) *Scope {
	return &Scope{ID: id, Parent: parent, byName: make(map[string]*Symbol)}
}

// Declare adds sym to the scope. Returns the existing symbol and false if
// name is already declared in this scope (caller decides whether that is
// E_DUPLICATE_DECLARATION or an allowed forward-declaration redefinition).
func (s *Scope) Declare(sym *Symbol) (*Symbol, bool) {
	if existing, ok := s.byName[sym.Name]; ok {
		return existing, false
	}
	s.byName[sym.Name] = sym
	s.names = append(s.names, sym.Name)
	return sym, true
}

// Replace overwrites an existing declaration in place — used for the one
// allowed re-declaration case: a forward-declared stub function being
// redefined with a body.
func (s *Scope) Replace(sym *Symbol) {
	if _, ok := s.byName[sym.Name]; !ok {
		s.names = append(s.names, sym.Name)
	}
	s.byName[sym.Name] = sym
}

// LookupLocal returns the symbol declared directly in this scope, without
// walking to parents.
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := s.byName[name]
	return sym, ok
}

// Lookup walks the scope chain from s up to the root, marking IsUsed on a
// hit.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if sym, ok := cur.byName[name]; ok {
			sym.IsUsed = true
			return sym, true
		}
	}
	return nil, false
}

// Names returns the declared names in declaration order.
func (s *Scope) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// All returns every symbol declared directly in this scope, in
// declaration order.
func (s *Scope) All() []*Symbol {
	out := make([]*Symbol, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, s.byName[n])
	}
	return out
}
