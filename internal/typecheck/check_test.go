package typecheck

import (
	"testing"

	"github.com/blendsdk/blend65/internal/lexer"
	"github.com/blendsdk/blend65/internal/parser"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/symbols"
	"github.com/blendsdk/blend65/internal/types"
)

func checkSource(t *testing.T, src string) *source.Sink {
	t.Helper()
	m := source.NewMap()
	fid := m.AddFile("t.b65", src)
	sink := source.NewSink(0, false)
	lx := lexer.New(lexer.FileText{ID: fid, Text: src}, sink)
	p := parser.New(lx, sink, fid)
	mod := p.ParseFile()

	tt := types.NewTable()
	planner := symbols.NewMemoryPlanner(256)
	r := symbols.NewResolver(tt, planner, sink)
	mt := r.ResolveModule(mod)

	ck := New(tt, sink)
	ck.CheckModule(mod, mt.Global)
	return sink
}

func TestTypeMismatchOnNarrowingAssignment(t *testing.T) {
	sink := checkSource(t, `
export function main() {
	let w: word = 300;
	let b: byte = w;
}
`)
	if !sink.HasErrors() {
		t.Fatalf("expected E_TYPE_MISMATCH for implicit word->byte narrowing")
	}
}

func TestExplicitCastAllowsNarrowing(t *testing.T) {
	sink := checkSource(t, `
export function main() {
	let w: word = 300;
	let b: byte = byte(w);
}
`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
}

func TestNonBoolConditionReported(t *testing.T) {
	sink := checkSource(t, `
export function main() {
	let x: byte = 1;
	if (x) {
		x = 2;
	}
}
`)
	if !sink.HasErrors() {
		t.Fatalf("expected E_NON_BOOL_CONDITION")
	}
}

func TestArgCountMismatchReported(t *testing.T) {
	sink := checkSource(t, `
function add(a: byte, b: byte): byte {
	return a + b;
}
export function main() {
	let x: byte = add(1);
}
`)
	found := false
	for _, d := range sink.All() {
		if d.Code == source.ErrArgCountMismatch {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E_ARGUMENT_COUNT_MISMATCH, got %v", sink.All())
	}
}

func TestWellTypedProgramHasNoErrors(t *testing.T) {
	sink := checkSource(t, `
function add(a: byte, b: byte): byte {
	return a + b;
}
export function main() {
	let x: byte = add(1, 2);
	let ok: bool = x == 3;
	if (ok) {
		x = x + 1;
	}
}
`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
}
