package regalloc

import (
	"testing"

	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/il"
	"github.com/blendsdk/blend65/internal/lexer"
	"github.com/blendsdk/blend65/internal/module"
	"github.com/blendsdk/blend65/internal/parser"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/target"
)

func lowerAndPlan(t *testing.T, src string, zpBudget int) (*il.Program, *Plan, *module.Program) {
	t.Helper()
	m := source.NewMap()
	fid := m.AddFile("test.b65", src)
	sink := source.NewSink(0, false)
	lx := lexer.New(lexer.FileText{ID: fid, Text: src}, sink)
	p := parser.New(lx, sink, fid)
	mod := p.ParseFile()
	if sink.HasErrors() {
		t.Fatalf("parse errors: %v", sink.All())
	}
	prog := module.Resolve([]*ast.Module{mod}, zpBudget, sink)
	if sink.HasErrors() {
		t.Fatalf("resolve errors: %v", sink.All())
	}
	m0 := prog.Order[0]
	ilProg := il.Lower(m0, prog.Tables[m0.Name], prog.Types)
	desc, err := target.Get("c64")
	if err != nil {
		t.Fatalf("target: %v", err)
	}
	plan := Allocate(ilProg, prog.Planner, prog.Types, desc)
	return ilProg, plan, prog
}

func findFn(t *testing.T, p *il.Program, name string) *il.Function {
	t.Helper()
	for _, fn := range p.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %q not lowered", name)
	return nil
}

func TestForLoopCounterGetsXOrY(t *testing.T) {
	_, plan, _ := lowerAndPlan(t, `
export function main() {
	for i = 0 to 10 {
		poke(0x400, i);
	}
}
`, 64)
	fp := plan.Functions["main"]
	loc, ok := fp.Locals["i"]
	if !ok {
		t.Fatalf("loop counter i has no location")
	}
	if loc.Kind != LocX && loc.Kind != LocY {
		t.Fatalf("expected loop counter in X or Y, got %v", loc.Kind)
	}
}

func TestTwoLoopCountersGetDistinctRegisters(t *testing.T) {
	_, plan, _ := lowerAndPlan(t, `
export function main() {
	for i = 0 to 10 {
		for j = 0 to 5 {
			poke(0x400, i + j);
		}
	}
}
`, 64)
	fp := plan.Functions["main"]
	li, lj := fp.Locals["i"], fp.Locals["j"]
	if li.Kind == lj.Kind {
		t.Fatalf("expected distinct registers for nested loop counters, both got %v", li.Kind)
	}
	for _, k := range []LocKind{li.Kind, lj.Kind} {
		if k != LocX && k != LocY {
			t.Fatalf("expected both counters in X/Y, got %v", k)
		}
	}
}

func TestAddressTakenLocalNeverInRegister(t *testing.T) {
	_, plan, _ := lowerAndPlan(t, `
export function main() {
	let x: byte = 1;
	let p: word = @x;
	poke(0x400, x);
	poke(0x401, p);
}
`, 64)
	fp := plan.Functions["main"]
	loc, ok := fp.Locals["x"]
	if !ok {
		t.Fatalf("x has no location")
	}
	if loc.Kind == LocA || loc.Kind == LocX || loc.Kind == LocY {
		t.Fatalf("address-taken local must live in addressable memory, got %v", loc.Kind)
	}
}

func TestWordLocalGetsTwoBytes(t *testing.T) {
	_, plan, _ := lowerAndPlan(t, `
export function main() {
	let w: word = 0x1234;
	pokew(0x400, w);
}
`, 64)
	fp := plan.Functions["main"]
	loc, ok := fp.Locals["w"]
	if !ok {
		t.Fatalf("w has no location")
	}
	if loc.Size != 2 {
		t.Fatalf("expected a word local to occupy 2 bytes, got %d", loc.Size)
	}
}

func TestZeroPageExhaustionSpillsToRAM(t *testing.T) {
	_, plan, _ := lowerAndPlan(t, `
export function main() {
	let a: byte = 1;
	let b: byte = 2;
	let c: byte = 3;
	poke(0x400, a);
	poke(0x401, b);
	poke(0x402, c);
}
`, 1)
	fp := plan.Functions["main"]
	sawRAM := false
	for _, name := range []string{"a", "b", "c"} {
		if fp.Locals[name].Kind == LocRAM {
			sawRAM = true
		}
	}
	if !sawRAM {
		t.Fatalf("expected at least one local to spill to RAM once the 1-byte zero-page budget is exhausted")
	}
}

func TestCrossModuleZeroPageNeverOverlaps(t *testing.T) {
	srcA := `
export function a() {
	let x: byte = 1;
	let x2: byte = 2;
	poke(0x400, x);
	poke(0x401, x2);
}
`
	srcB := `
export function b() {
	let y: byte = 3;
	let y2: byte = 4;
	poke(0x402, y);
	poke(0x403, y2);
}
`
	m := source.NewMap()
	sink := source.NewSink(0, false)

	fidA := m.AddFile("a.b65", srcA)
	lxA := lexer.New(lexer.FileText{ID: fidA, Text: srcA}, sink)
	modA := parser.New(lxA, sink, fidA).ParseFile()

	fidB := m.AddFile("b.b65", srcB)
	lxB := lexer.New(lexer.FileText{ID: fidB, Text: srcB}, sink)
	modB := parser.New(lxB, sink, fidB).ParseFile()

	if sink.HasErrors() {
		t.Fatalf("parse errors: %v", sink.All())
	}

	prog := module.Resolve([]*ast.Module{modA, modB}, 64, sink)
	if sink.HasErrors() {
		t.Fatalf("resolve errors: %v", sink.All())
	}

	desc, _ := target.Get("c64")
	var plans []*Plan
	for _, mod := range prog.Order {
		ilProg := il.Lower(mod, prog.Tables[mod.Name], prog.Types)
		plans = append(plans, Allocate(ilProg, prog.Planner, prog.Types, desc))
	}

	seen := map[int]string{}
	for _, plan := range plans {
		for fnName, fp := range plan.Functions {
			for name, loc := range fp.Locals {
				if loc.Kind != LocZeroPage {
					continue
				}
				if owner, ok := seen[loc.Addr]; ok {
					t.Fatalf("zero-page address %d double-booked: %s.%s and %s", loc.Addr, plan.ModuleName, name, owner)
				}
				seen[loc.Addr] = plan.ModuleName + "." + fnName + "." + name
			}
		}
	}
	if len(seen) == 0 {
		t.Fatalf("expected at least one zero-page allocation across both modules")
	}
	if err := Validate(plans); err != nil {
		t.Fatalf("Validate reported a conflict over a correctly shared arena: %v", err)
	}
}

func TestLoadLocalRegisterAliasesLocalsCell(t *testing.T) {
	ilProg, plan, _ := lowerAndPlan(t, `
export function main() {
	let x: byte = 1;
	poke(0x400, x);
}
`, 64)
	fn := findFn(t, ilProg, "main")
	fp := plan.Functions["main"]
	var loadDst il.Reg
	found := false
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == il.OpLoadLocal && instr.Name == "x" {
				loadDst = instr.Dst
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("expected a load of x in main's body")
	}
	regLoc, ok := fp.Regs[loadDst]
	if !ok {
		t.Fatalf("expected the loaded register to have a Location")
	}
	if regLoc != fp.Locals["x"] {
		t.Fatalf("expected load's register to alias x's own Location, got %+v vs %+v", regLoc, fp.Locals["x"])
	}
}

func TestValidateCatchesInjectedOverlap(t *testing.T) {
	planA := &Plan{ModuleName: "a", Functions: map[string]*FunctionPlan{
		"f": {Name: "f", Locals: map[string]Location{"x": {Kind: LocZeroPage, Addr: 5, Size: 1}}, Regs: map[il.Reg]Location{}},
	}}
	planB := &Plan{ModuleName: "b", Functions: map[string]*FunctionPlan{
		"g": {Name: "g", Locals: map[string]Location{"y": {Kind: LocZeroPage, Addr: 5, Size: 1}}, Regs: map[il.Reg]Location{}},
	}}
	if err := Validate([]*Plan{planA, planB}); err == nil {
		t.Fatalf("expected Validate to catch two plans claiming zero-page address 5")
	}
}
