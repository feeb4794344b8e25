package symbols

import (
	"testing"

	"github.com/blendsdk/blend65/internal/lexer"
	"github.com/blendsdk/blend65/internal/parser"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/types"
)

func resolveSource(t *testing.T, text string) (*ModuleTable, *source.Sink) {
	t.Helper()
	m := source.NewMap()
	fid := m.AddFile("test.b65", text)
	sink := source.NewSink(0, false)
	lx := lexer.New(lexer.FileText{ID: fid, Text: text}, sink)
	p := parser.New(lx, sink, fid)
	mod := p.ParseFile()

	tt := types.NewTable()
	planner := NewMemoryPlanner(256)
	r := NewResolver(tt, planner, sink)
	mt := r.ResolveModule(mod)
	return mt, sink
}

func TestResolveSimpleVariableAndFunction(t *testing.T) {
	src := `
export function main() {
	let x: byte = 1;
	x = x + 1;
}
`
	mt, sink := resolveSource(t, src)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
	if _, ok := mt.Global.LookupLocal("main"); !ok {
		t.Fatalf("expected main to be declared")
	}
	if _, ok := mt.Exports["main"]; !ok {
		t.Fatalf("expected main to be exported")
	}
}

func TestUndefinedIdentifierReported(t *testing.T) {
	src := `
export function main() {
	let x: byte = y;
}
`
	_, sink := resolveSource(t, src)
	if !sink.HasErrors() {
		t.Fatalf("expected an undefined-identifier error")
	}
	found := false
	for _, d := range sink.All() {
		if d.Code == source.ErrUndefinedIdentifier {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E_UNDEFINED_IDENTIFIER, got %v", sink.All())
	}
}

func TestDuplicateDeclarationReported(t *testing.T) {
	src := `
let a: byte = 1;
let a: byte = 2;
`
	_, sink := resolveSource(t, src)
	if !sink.HasErrors() {
		t.Fatalf("expected duplicate-declaration error")
	}
}

func TestMapOverlapReported(t *testing.T) {
	src := `
@map a at $D020: byte;
@map b at $D020: byte;
`
	_, sink := resolveSource(t, src)
	found := false
	for _, d := range sink.All() {
		if d.Code == source.ErrMapOverlap {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E_MAP_OVERLAP, got %v", sink.All())
	}
}

func TestMapSequentialStructLaysOutFieldsContiguously(t *testing.T) {
	src := `
@map sprite type {
	x: byte;
	y: byte;
	ptr: word;
} end @map;
`
	mt, sink := resolveSource(t, src)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
	xSym, ok := mt.Global.LookupLocal("sprite.x")
	if !ok {
		t.Fatalf("expected sprite.x to be declared")
	}
	ySym, _ := mt.Global.LookupLocal("sprite.y")
	ptrSym, _ := mt.Global.LookupLocal("sprite.ptr")
	if xSym.MapFixedAddr != 0 || ySym.MapFixedAddr != 1 || ptrSym.MapFixedAddr != 2 {
		t.Fatalf("expected contiguous layout 0,1,2 got %d,%d,%d", xSym.MapFixedAddr, ySym.MapFixedAddr, ptrSym.MapFixedAddr)
	}
}

func TestImportLinking(t *testing.T) {
	libSrc := `
module lib;
export function helper() {
}
`
	mainSrc := `
module mainmod;
import helper from lib;
`
	tt := types.NewTable()
	planner := NewMemoryPlanner(256)
	sink := source.NewSink(0, false)

	mLib := source.NewMap()
	fidLib := mLib.AddFile("lib.b65", libSrc)
	lxLib := lexer.New(lexer.FileText{ID: fidLib, Text: libSrc}, sink)
	pLib := parser.New(lxLib, sink, fidLib)
	modLib := pLib.ParseFile()

	mMain := source.NewMap()
	fidMain := mMain.AddFile("main.b65", mainSrc)
	lxMain := lexer.New(lexer.FileText{ID: fidMain, Text: mainSrc}, sink)
	pMain := parser.New(lxMain, sink, fidMain)
	modMain := pMain.ParseFile()

	r := NewResolver(tt, planner, sink)
	libTable := r.ResolveModule(modLib)
	mainTable := r.ResolveModule(modMain)

	modules := map[string]*ModuleTable{"lib": libTable, "mainmod": mainTable}
	LinkImports(modules, sink)

	if sink.HasErrors() {
		t.Fatalf("unexpected import errors: %v", sink.All())
	}
	sym, ok := mainTable.Global.LookupLocal("helper")
	if !ok {
		t.Fatalf("expected helper import symbol")
	}
	if sym.Kind != KindFunction {
		t.Fatalf("expected linked import to adopt KindFunction, got %v", sym.Kind)
	}
}
