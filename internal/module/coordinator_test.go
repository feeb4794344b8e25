package module

import (
	"testing"

	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/lexer"
	"github.com/blendsdk/blend65/internal/parser"
	"github.com/blendsdk/blend65/internal/source"
)

func parseOne(t *testing.T, name, src string) *ast.Module {
	t.Helper()
	m := source.NewMap()
	fid := m.AddFile(name, src)
	sink := source.NewSink(0, false)
	lx := lexer.New(lexer.FileText{ID: fid, Text: src}, sink)
	p := parser.New(lx, sink, fid)
	mod := p.ParseFile()
	if sink.HasErrors() {
		t.Fatalf("parse errors in %s: %v", name, sink.All())
	}
	return mod
}

func TestCompileOrderRespectsDependencies(t *testing.T) {
	lib := parseOne(t, "lib.b65", `
module lib;
export function helper() {
}
`)
	main := parseOne(t, "main.b65", `
module mainmod;
import helper from lib;
export function main() {
}
`)

	sink := source.NewSink(0, false)
	g := NewGraph([]*ast.Module{main, lib})
	order := g.CompileOrder(sink)
	if sink.HasErrors() {
		t.Fatalf("unexpected cycle: %v", sink.All())
	}
	if len(order) != 2 || order[0].Name != "lib" || order[1].Name != "mainmod" {
		names := []string{}
		for _, m := range order {
			names = append(names, m.Name)
		}
		t.Fatalf("expected [lib mainmod], got %v", names)
	}
}

func TestCyclicImportDetected(t *testing.T) {
	a := parseOne(t, "a.b65", `
module a;
import x from b;
`)
	b := parseOne(t, "b.b65", `
module b;
import y from a;
`)

	sink := source.NewSink(0, false)
	g := NewGraph([]*ast.Module{a, b})
	g.CompileOrder(sink)
	if !sink.HasErrors() {
		t.Fatalf("expected E_CYCLIC_IMPORT")
	}
	found := false
	for _, d := range sink.All() {
		if d.Code == source.ErrCyclicImport {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E_CYCLIC_IMPORT code, got %v", sink.All())
	}
}

func TestResolveFullProgram(t *testing.T) {
	lib := parseOne(t, "lib.b65", `
module lib;
export function helper(): byte {
	return 1;
}
`)
	main := parseOne(t, "main.b65", `
module mainmod;
import helper from lib;
export function main() {
	let x: byte = helper();
}
`)

	sink := source.NewSink(0, false)
	prog := Resolve([]*ast.Module{lib, main}, 256, sink)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
	if len(prog.Order) != 2 {
		t.Fatalf("expected 2 modules in order, got %d", len(prog.Order))
	}
	if _, ok := prog.CFGs["mainmod"]["main"]; !ok {
		t.Fatalf("expected a CFG for mainmod.main")
	}
}
