package codegen

import (
	"strings"
	"testing"

	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/il"
	"github.com/blendsdk/blend65/internal/lexer"
	"github.com/blendsdk/blend65/internal/module"
	"github.com/blendsdk/blend65/internal/parser"
	"github.com/blendsdk/blend65/internal/regalloc"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/target"
)

func generateModule(t *testing.T, src string) *Unit {
	t.Helper()
	m := source.NewMap()
	fid := m.AddFile("test.b65", src)
	sink := source.NewSink(0, false)
	lx := lexer.New(lexer.FileText{ID: fid, Text: src}, sink)
	mod := parser.New(lx, sink, fid).ParseFile()
	if sink.HasErrors() {
		t.Fatalf("parse errors: %v", sink.All())
	}
	prog := module.Resolve([]*ast.Module{mod}, 64, sink)
	if sink.HasErrors() {
		t.Fatalf("resolve errors: %v", sink.All())
	}
	m0 := prog.Order[0]
	ilProg := il.Lower(m0, prog.Tables[m0.Name], prog.Types)
	desc, err := target.Get("c64")
	if err != nil {
		t.Fatalf("target: %v", err)
	}
	plan := regalloc.Allocate(ilProg, prog.Planner, prog.Types, desc)
	return Generate(ilProg, plan, prog.Types, desc, ParamNames([]*il.Program{ilProg}))
}

func TestGenerateEmitsFunctionEntryLabel(t *testing.T) {
	u := generateModule(t, `
export function main() {
	poke(0x400, 1);
}
`)
	text := u.String()
	if !strings.Contains(text, "fn_main:") {
		t.Fatalf("expected an fn_main label, got:\n%s", text)
	}
}

func TestGeneratePokeUsesIndirectIndexedAddressing(t *testing.T) {
	u := generateModule(t, `
export function main() {
	poke(0x400, 1);
}
`)
	text := u.String()
	if !strings.Contains(text, "($FB),Y") {
		t.Fatalf("expected poke to go through the (ptr),Y scratch pointer, got:\n%s", text)
	}
	if !strings.Contains(text, "RTS") {
		t.Fatalf("expected the function body to end in RTS, got:\n%s", text)
	}
}

func TestGenerateNeverEmitsSelfModifyingStoreIntoCode(t *testing.T) {
	u := generateModule(t, `
export function main() {
	switch (1) {
		case 0: poke(0x400, 0);
		case 1: poke(0x400, 1);
		default: poke(0x400, 2);
	}
}
`)
	text := u.String()
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "STA") && strings.Contains(trimmed, "_jt") {
			t.Fatalf("dispatch table must never be written to at runtime, found: %s", trimmed)
		}
	}
}

func TestGenerateSwitchUsesPushRTSComputedJump(t *testing.T) {
	u := generateModule(t, `
export function main() {
	switch (1) {
		case 0: poke(0x400, 0);
		case 1: poke(0x400, 1);
		default: poke(0x400, 2);
	}
}
`)
	text := u.String()
	if !strings.Contains(text, "PHA") || !strings.Contains(text, "RTS") {
		t.Fatalf("expected the push-address/RTS computed-jump idiom in a switch's dispatch, got:\n%s", text)
	}
	if strings.Contains(text, "JMP (") {
		t.Fatalf("classic 6502 has no indexed-indirect JMP; must not be emitted, got:\n%s", text)
	}
}

func TestGenerateLoopCounterUsesIndexRegisterTransfer(t *testing.T) {
	u := generateModule(t, `
export function main() {
	for i = 0 to 10 {
		poke(0x400, i);
	}
}
`)
	text := u.String()
	if !strings.Contains(text, "TXA") && !strings.Contains(text, "TYA") {
		t.Fatalf("expected the loop counter's register to feed a value via TXA/TYA, got:\n%s", text)
	}
}

func TestEmitOpRejectsIllegalAddressingMode(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected emitOp to panic on an undocumented mnemonic/mode pair")
		}
	}()
	g := &generator{unit: &Unit{}}
	g.emitOp("STX", ZeroPageX, "$10", "") // STX has no ZeroPageX mode, only ZeroPageY
}

func TestSupportsTableRejects65C02OnlyAddressingMode(t *testing.T) {
	// The classic 6502 JMP has no indexed-indirect mode; only Absolute and
	// plain Indirect are legal.
	if supports("JMP", IndirectX) {
		t.Fatalf("JMP (addr,X) is not a real 6502 encoding and must not be marked legal")
	}
}
