package iloptimizer

import (
	"testing"

	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/il"
	"github.com/blendsdk/blend65/internal/lexer"
	"github.com/blendsdk/blend65/internal/module"
	"github.com/blendsdk/blend65/internal/parser"
	"github.com/blendsdk/blend65/internal/source"
)

func lowerSource(t *testing.T, src string) *il.Program {
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
	prog := module.Resolve([]*ast.Module{mod}, 256, sink)
	if sink.HasErrors() {
		t.Fatalf("resolve errors: %v", sink.All())
	}
	m0 := prog.Order[0]
	return il.Lower(m0, prog.Tables[m0.Name], prog.Types)
}

func mainFn(t *testing.T, p *il.Program) *il.Function {
	t.Helper()
	for _, fn := range p.Functions {
		if fn.Name == "main" {
			return fn
		}
	}
	t.Fatalf("main not found")
	return nil
}

func allInstrs(fn *il.Function) []il.Instr {
	var out []il.Instr
	for _, b := range fn.Blocks {
		out = append(out, b.Instrs...)
	}
	return out
}

func TestOffLevelLeavesProgramUntouched(t *testing.T) {
	p := lowerSource(t, `
export function main() {
	let x: byte = 1 + 2;
	poke(0x400, x);
}
`)
	before := len(allInstrs(mainFn(t, p)))
	Optimize(p, Off)
	after := len(allInstrs(mainFn(t, p)))
	if before != after {
		t.Fatalf("Off level must not change instruction count: %d -> %d", before, after)
	}
}

func TestConstantFoldsArithmeticChain(t *testing.T) {
	p := lowerSource(t, `
export function main() {
	let x: byte = 1 + 2;
	let y: byte = x * 4;
	poke(0x400, y);
}
`)
	Optimize(p, Basic)
	fn := mainFn(t, p)
	for _, i := range allInstrs(fn) {
		if i.Op == il.OpBinary {
			t.Fatalf("expected every arithmetic op to fold away, found %v", i)
		}
	}
	found := false
	for _, i := range allInstrs(fn) {
		if i.Op == il.OpPoke && i.B.Kind == il.ValImm && i.B.Imm == 12 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected poke's value operand to fold to the immediate 12")
	}
}

func TestUnusedLocalLeavesNoLoad(t *testing.T) {
	p := lowerSource(t, `
export function main() {
	let x: byte = 1;
	let y: byte = 2;
	poke(0x400, y);
}
`)
	Optimize(p, Basic)
	fn := mainFn(t, p)
	for _, i := range allInstrs(fn) {
		if i.Op == il.OpLoadLocal && i.Name == "x" {
			t.Fatalf("unused local x should have no surviving load")
		}
	}
}

func TestVolatilePokeNeverRemoved(t *testing.T) {
	p := lowerSource(t, `
export function main() {
	poke(0xD020, 0);
	poke(0xD020, 0);
}
`)
	Optimize(p, Full)
	fn := mainFn(t, p)
	n := 0
	for _, i := range allInstrs(fn) {
		if i.Op == il.OpPoke {
			n++
		}
	}
	if n != 2 {
		t.Fatalf("expected both identical pokes to survive CSE, got %d", n)
	}
}

func TestStrengthReductionMulByPowerOfTwo(t *testing.T) {
	p := lowerSource(t, `
function scale(i: byte): byte {
	return i * 8;
}
`)
	Optimize(p, Full)
	var fn *il.Function
	for _, f := range p.Functions {
		if f.Name == "scale" {
			fn = f
		}
	}
	if fn == nil {
		t.Fatalf("scale not lowered")
	}
	sawShl := false
	for _, i := range allInstrs(fn) {
		if i.Op == il.OpBinary && i.BinOp == il.Mul {
			t.Fatalf("multiply by a power of two should have reduced to a shift")
		}
		if i.Op == il.OpBinary && i.BinOp == il.Shl {
			sawShl = true
		}
	}
	if !sawShl {
		t.Fatalf("expected the multiply to survive as a shift instruction")
	}
}

func TestCopyPropagationForwardsStoredLocal(t *testing.T) {
	p := lowerSource(t, `
export function main() {
	let x: byte = 5;
	let y: byte = x;
	poke(0x400, y);
}
`)
	Optimize(p, Full)
	fn := mainFn(t, p)
	found := false
	for _, i := range allInstrs(fn) {
		if i.Op == il.OpPoke && i.B.Kind == il.ValImm && i.B.Imm == 5 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected copy propagation + constant fold to resolve poke's value to 5")
	}
}

func TestUnreachableBlockAfterReturnRemoved(t *testing.T) {
	p := lowerSource(t, `
export function main() {
	return;
	poke(0x400, 1);
}
`)
	Optimize(p, Basic)
	fn := mainFn(t, p)
	for _, i := range allInstrs(fn) {
		if i.Op == il.OpPoke {
			t.Fatalf("code after an unconditional return should be unreachable and removed")
		}
	}
}
