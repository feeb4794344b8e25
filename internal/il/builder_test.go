package il

import (
	"testing"

	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/lexer"
	"github.com/blendsdk/blend65/internal/module"
	"github.com/blendsdk/blend65/internal/parser"
	"github.com/blendsdk/blend65/internal/source"
)

func parseAndLower(t *testing.T, src string) *Program {
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
	return Lower(m0, prog.Tables[m0.Name], prog.Types)
}

func findFn(t *testing.T, p *Program, name string) *Function {
	t.Helper()
	for _, fn := range p.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %q not lowered", name)
	return nil
}

func allInstrs(fn *Function) []Instr {
	var out []Instr
	for _, b := range fn.Blocks {
		out = append(out, b.Instrs...)
	}
	return out
}

func countOp(fn *Function, op OpKind) int {
	n := 0
	for _, i := range allInstrs(fn) {
		if i.Op == op {
			n++
		}
	}
	return n
}

func TestStraightLineLowering(t *testing.T) {
	p := parseAndLower(t, `
export function main() {
	let x: byte = 1;
	let y: byte = x + 2;
	poke(0x400, y);
}
`)
	fn := findFn(t, p, "main")
	if len(fn.Blocks) != 1 {
		t.Fatalf("expected one block for straight-line code, got %d", len(fn.Blocks))
	}
	if fn.Entry.Term.Kind != TermReturnVoid {
		t.Fatalf("expected implicit void return, got %v", fn.Entry.Term.Kind)
	}
	if countOp(fn, OpPoke) != 1 {
		t.Fatalf("expected one poke instruction")
	}
}

func TestIfElseLowering(t *testing.T) {
	p := parseAndLower(t, `
export function main() {
	let x: byte = 1;
	if (x == 1) {
		poke(0x400, 1);
	} else {
		poke(0x400, 2);
	}
}
`)
	fn := findFn(t, p, "main")
	if len(fn.Blocks) != 4 {
		t.Fatalf("expected entry+then+else+join blocks, got %d", len(fn.Blocks))
	}
	if fn.Entry.Term.Kind != TermBranch {
		t.Fatalf("expected entry to end in a branch, got %v", fn.Entry.Term.Kind)
	}
}

func TestWhileLowering(t *testing.T) {
	p := parseAndLower(t, `
export function main() {
	let x: byte = 0;
	while (x < 10) {
		x = x + 1;
	}
}
`)
	fn := findFn(t, p, "main")
	var header *Block
	for _, b := range fn.Blocks {
		if b.Term.Kind == TermBranch {
			header = b
		}
	}
	if header == nil {
		t.Fatalf("expected a header block with a branch terminator")
	}
}

func TestForAscendingDesugars(t *testing.T) {
	p := parseAndLower(t, `
export function main() {
	for i = 0 to 9 {
		poke(0x400, i);
	}
}
`)
	fn := findFn(t, p, "main")
	found := false
	for _, i := range allInstrs(fn) {
		if i.Op == OpBinary && i.BinOp == Le {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an Le comparison for ascending for-loop")
	}
}

func TestForDowntoUsesGe(t *testing.T) {
	p := parseAndLower(t, `
export function main() {
	for i = 9 downto 0 {
		poke(0x400, i);
	}
}
`)
	fn := findFn(t, p, "main")
	foundGe, foundSub := false, false
	for _, i := range allInstrs(fn) {
		if i.Op == OpBinary && i.BinOp == Ge {
			foundGe = true
		}
		if i.Op == OpBinary && i.BinOp == Sub {
			foundSub = true
		}
	}
	if !foundGe {
		t.Fatalf("expected a Ge comparison for downto for-loop")
	}
	if !foundSub {
		t.Fatalf("expected the step to subtract for downto for-loop")
	}
}

func TestDoWhileLowersConditionAfterBody(t *testing.T) {
	p := parseAndLower(t, `
export function main() {
	let x: byte = 0;
	do {
		x = x + 1;
	} while (x < 5);
}
`)
	fn := findFn(t, p, "main")
	if len(fn.Blocks) < 3 {
		t.Fatalf("expected at least body/cond/after blocks, got %d", len(fn.Blocks))
	}
}

func TestSwitchCompactRangeUsesJumpTable(t *testing.T) {
	p := parseAndLower(t, `
export function main() {
	let x: byte = 1;
	switch (x) {
	case 0:
		poke(0x400, 0);
	case 1:
		poke(0x400, 1);
	case 2:
		poke(0x400, 2);
	}
}
`)
	fn := findFn(t, p, "main")
	found := false
	for _, b := range fn.Blocks {
		if b.Term.Kind == TermJumpTable {
			found = true
			if len(b.Term.Targets) != 3 {
				t.Fatalf("expected 3 dense jump targets, got %d", len(b.Term.Targets))
			}
		}
	}
	if !found {
		t.Fatalf("expected a compact case set to lower to a jump table")
	}
}

func TestSwitchSparseUsesCompareChain(t *testing.T) {
	p := parseAndLower(t, `
export function main() {
	let x: byte = 1;
	switch (x) {
	case 1:
		poke(0x400, 1);
	case 200:
		poke(0x400, 2);
	}
}
`)
	fn := findFn(t, p, "main")
	for _, b := range fn.Blocks {
		if b.Term.Kind == TermJumpTable {
			t.Fatalf("sparse case set should not lower to a jump table")
		}
	}
	if countOp(fn, OpBinary) == 0 {
		t.Fatalf("expected compare instructions for the chain form")
	}
}

func TestShortCircuitAndSkipsRHSOnFalseLHS(t *testing.T) {
	p := parseAndLower(t, `
function rhs(): bool {
	return true;
}
export function main() {
	let x: bool = false && rhs();
}
`)
	fn := findFn(t, p, "main")
	sawBranch := false
	for _, b := range fn.Blocks {
		if b.Term.Kind == TermBranch {
			sawBranch = true
		}
	}
	if !sawBranch {
		t.Fatalf("expected && to lower to a conditional branch rather than unconditional evaluation")
	}
}

func TestCallVoidVsCallChosenFromReturnType(t *testing.T) {
	p := parseAndLower(t, `
function helper(): byte {
	return 1;
}
function sideEffect() {
}
export function main() {
	let x: byte = helper();
	sideEffect();
}
`)
	fn := findFn(t, p, "main")
	if countOp(fn, OpCall) != 1 {
		t.Fatalf("expected exactly one OpCall for the byte-returning callee")
	}
	if countOp(fn, OpCallVoid) != 1 {
		t.Fatalf("expected exactly one OpCallVoid for the void callee")
	}
}

func TestEnumMemberFoldsToOrdinal(t *testing.T) {
	p := parseAndLower(t, `
enum Color { Red, Green, Blue }
export function main() {
	let c: byte = byte(Color.Blue);
}
`)
	fn := findFn(t, p, "main")
	for _, i := range allInstrs(fn) {
		if i.Op == OpLoadGlobal && i.Name == "Color.Blue" {
			t.Fatalf("enum member access should fold to an immediate, not a load")
		}
	}
}

func TestIntrinsicPeekPokeLowering(t *testing.T) {
	p := parseAndLower(t, `
export function main() {
	let v: byte = peek(0xD020);
	poke(0xD020, v);
}
`)
	fn := findFn(t, p, "main")
	if countOp(fn, OpPeek) != 1 {
		t.Fatalf("expected one peek instruction")
	}
	if countOp(fn, OpPoke) != 1 {
		t.Fatalf("expected one poke instruction")
	}
}

func TestBreakJumpsToAfterLoop(t *testing.T) {
	p := parseAndLower(t, `
export function main() {
	let x: byte = 0;
	while (x < 10) {
		if (x == 5) {
			break;
		}
		x = x + 1;
	}
}
`)
	fn := findFn(t, p, "main")
	jumps := 0
	for _, b := range fn.Blocks {
		if b.Term.Kind == TermJump {
			jumps++
		}
	}
	if jumps == 0 {
		t.Fatalf("expected at least one unconditional jump (break target)")
	}
}
