package dataflow

import (
	"testing"

	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/lexer"
	"github.com/blendsdk/blend65/internal/module"
	"github.com/blendsdk/blend65/internal/parser"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/target"
)

func parseAndResolve(t *testing.T, src string) (*module.Program, *source.Sink) {
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
	return prog, sink
}

func analyzeFirst(t *testing.T, prog *module.Program, sink *source.Sink, hw *target.Descriptor) *ast.Module {
	t.Helper()
	mod := prog.Order[0]
	Analyze(mod, prog.Tables[mod.Name], prog.CFGs[mod.Name], hw, sink)
	return mod
}

func TestUseBeforeAssignReported(t *testing.T) {
	prog, sink := parseAndResolve(t, `
export function main() {
	let x: byte;
	let y: byte = x + 1;
}
`)
	analyzeFirst(t, prog, sink, nil)
	found := false
	for _, d := range sink.All() {
		if d.Code == source.ErrUseBeforeAssign {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E_USE_BEFORE_ASSIGN, got %v", sink.All())
	}
}

func TestUnusedVariableReported(t *testing.T) {
	prog, sink := parseAndResolve(t, `
export function main() {
	let unused: byte = 1;
}
`)
	analyzeFirst(t, prog, sink, nil)
	found := false
	for _, d := range sink.All() {
		if d.Code == source.WarnUnusedVariable {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected W_UNUSED_VARIABLE, got %v", sink.All())
	}
}

func TestDeadCodeAfterReturnReported(t *testing.T) {
	prog, sink := parseAndResolve(t, `
export function main() {
	return;
	let x: byte = 1;
}
`)
	analyzeFirst(t, prog, sink, nil)
	found := false
	for _, d := range sink.All() {
		if d.Code == source.WarnDeadCode {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected W_DEAD_CODE, got %v", sink.All())
	}
}

func TestRecursiveCycleWarned(t *testing.T) {
	prog, sink := parseAndResolve(t, `
function odd(n: byte): bool;
function even(n: byte): bool {
	if (n == 0) {
		return true;
	}
	return odd(n - 1);
}
function odd(n: byte): bool {
	if (n == 0) {
		return false;
	}
	return even(n - 1);
}
export function main() {
	even(4);
}
`)
	analyzeFirst(t, prog, sink, nil)
	found := false
	for _, d := range sink.All() {
		if d.Code == source.WarnRecursiveCycle {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected W_RECURSIVE_CALL_CYCLE, got %v", sink.All())
	}
}

func TestConstantFoldMarksLiteralArithmetic(t *testing.T) {
	prog, sink := parseAndResolve(t, `
export function main() {
	let x: byte = 1 + 2 * 3;
}
`)
	mod := analyzeFirst(t, prog, sink, nil)
	fn := findFunction(t, mod, "main")
	decl, ok := fn.Body.Stmts[0].(*ast.VarDeclStmt)
	if !ok {
		t.Fatalf("expected a var decl statement, got %T", fn.Body.Stmts[0])
	}
	if !decl.Decl.Init.Metadata().Bool(ast.MetaIsConstant) {
		t.Fatalf("expected the initializer to be marked constant")
	}
	if v := decl.Decl.Init.Metadata().Int(ast.MetaConstValue); v != 7 {
		t.Fatalf("expected folded value 7, got %d", v)
	}
}

func TestLoopCounterMarked(t *testing.T) {
	prog, sink := parseAndResolve(t, `
export function main() {
	for i = 0 to 9 {
		poke(0x400, i);
	}
}
`)
	mod := analyzeFirst(t, prog, sink, nil)
	fn := findFunction(t, mod, "main")
	forStmt, ok := fn.Body.Stmts[0].(*ast.For)
	if !ok {
		t.Fatalf("expected a for statement, got %T", fn.Body.Stmts[0])
	}
	if !forStmt.Metadata().Bool(ast.MetaIsLoopCounter) {
		t.Fatalf("expected the for statement to be marked as a loop counter")
	}
}

func TestSidControlConflictAcrossFunctions(t *testing.T) {
	prog, sink := parseAndResolve(t, `
export function startVoice1() {
	poke(0xD404, 0x21);
}
export function stopVoice1() {
	poke(0xD404, 0x20);
}
export function main() {
	startVoice1();
	stopVoice1();
}
`)
	hw, err := target.Get("c64")
	if err != nil {
		t.Fatal(err)
	}
	analyzeFirst(t, prog, sink, hw)
	found := false
	for _, d := range sink.All() {
		if d.Code == source.ErrSidControlConflict {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E_SID_CONTROL_CONFLICT, got %v", sink.All())
	}
}

func TestHardwareChecksSkippedWithoutTarget(t *testing.T) {
	prog, sink := parseAndResolve(t, `
export function main() {
	poke(0xD404, 0x21);
}
`)
	analyzeFirst(t, prog, sink, nil)
	for _, d := range sink.All() {
		if d.Code == source.ErrSidControlConflict {
			t.Fatalf("did not expect SID checks without a target, got %v", d)
		}
	}
}

func findFunction(t *testing.T, mod *ast.Module, name string) *ast.Function {
	t.Helper()
	for _, d := range mod.Decls {
		if fn := unwrapFunction(d); fn != nil && fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %q not found", name)
	return nil
}
