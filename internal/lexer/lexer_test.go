package lexer

import (
	"testing"

	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/token"
)

func scanAll(t *testing.T, src string) ([]token.Token, *source.Sink) {
	t.Helper()
	m := source.NewMap()
	fid := m.AddFile("t.b65", src)
	sink := source.NewSink(0, false)
	lx := New(FileText{ID: fid, Text: src}, sink)
	var toks []token.Token
	for {
		tok := lx.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks, sink
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tk := range toks {
		out[i] = tk.Kind
	}
	return out
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks, sink := scanAll(t, "function main x123")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
	got := kinds(toks)
	want := []token.Kind{token.KwFunction, token.Identifier, token.Identifier, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanStorageClassMarkers(t *testing.T) {
	toks, sink := scanAll(t, "@zp @ram @data @map @address")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
	want := []token.Kind{token.AtZp, token.AtRam, token.AtData, token.AtMap, token.AtAddress, token.EOF}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanBareAtIsAddressOf(t *testing.T) {
	toks, sink := scanAll(t, "@x")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
	if toks[0].Kind != token.AtSign {
		t.Fatalf("got %v, want AtSign", toks[0].Kind)
	}
	if toks[1].Kind != token.Identifier {
		t.Fatalf("got %v, want Identifier", toks[1].Kind)
	}
}

func TestScanUnknownMarkerFallsBackToAddressOf(t *testing.T) {
	toks, sink := scanAll(t, "@bogus")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
	if toks[0].Kind != token.AtSign {
		t.Fatalf("got %v, want AtSign", toks[0].Kind)
	}
	if toks[1].Kind != token.Identifier || toks[1].Literal.Symbol != "bogus" {
		t.Fatalf("got %v %q, want Identifier bogus", toks[1].Kind, toks[1].Literal.Symbol)
	}
}

func TestNumericWidthInference(t *testing.T) {
	cases := []struct {
		src   string
		width token.IntWidth
		value uint32
	}{
		{"0", token.WidthByte, 0},
		{"255", token.WidthByte, 255},
		{"256", token.WidthWord, 256},
		{"65535", token.WidthWord, 65535},
		{"$FF", token.WidthByte, 255},
		{"$100", token.WidthWord, 256},
		{"0xFF", token.WidthByte, 255},
		{"0b11111111", token.WidthByte, 255},
		{"0b100000000", token.WidthWord, 256},
	}
	for _, c := range cases {
		toks, sink := scanAll(t, c.src)
		if sink.HasErrors() {
			t.Fatalf("%s: unexpected errors: %v", c.src, sink.All())
		}
		if toks[0].Kind != token.IntLiteral {
			t.Fatalf("%s: got kind %v, want IntLiteral", c.src, toks[0].Kind)
		}
		if toks[0].Literal.IntWidth != c.width {
			t.Fatalf("%s: got width %v, want %v", c.src, toks[0].Literal.IntWidth, c.width)
		}
		if toks[0].Literal.IntValue != c.value {
			t.Fatalf("%s: got value %d, want %d", c.src, toks[0].Literal.IntValue, c.value)
		}
	}
}

func TestNumericLiteralOverflow(t *testing.T) {
	_, sink := scanAll(t, "65536")
	if !sink.HasErrors() {
		t.Fatalf("expected E_NUMERIC_LITERAL_TOO_BIG")
	}
	found := false
	for _, d := range sink.All() {
		if d.Code == source.ErrNumericLiteralTooBig {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E_NUMERIC_LITERAL_TOO_BIG, got %v", sink.All())
	}
}

func TestStringEscapeSequences(t *testing.T) {
	toks, sink := scanAll(t, `"a\nb\tc\\d\"e"`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
	want := "a\nb\tc\\d\"e"
	if toks[0].Literal.StringValue != want {
		t.Fatalf("got %q, want %q", toks[0].Literal.StringValue, want)
	}
}

func TestUnterminatedStringIsError(t *testing.T) {
	_, sink := scanAll(t, `"unterminated`)
	if !sink.HasErrors() {
		t.Fatalf("expected E_UNTERMINATED_STRING")
	}
}

func TestUnterminatedBlockCommentIsError(t *testing.T) {
	_, sink := scanAll(t, "/* never closes")
	if !sink.HasErrors() {
		t.Fatalf("expected E_UNTERMINATED_COMMENT")
	}
}

func TestLineCommentsAndWhitespaceAreSkipped(t *testing.T) {
	toks, sink := scanAll(t, "let // trailing comment\nx")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
	got := kinds(toks)
	want := []token.Kind{token.KwLet, token.Identifier, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTwoCharOperatorsPreferredOverOneChar(t *testing.T) {
	toks, sink := scanAll(t, "<= >= == != && || << >>")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
	want := []token.Kind{
		token.Le, token.Ge, token.Eq, token.Ne,
		token.AmpAmp, token.PipePipe, token.Shl, token.Shr, token.EOF,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	m := source.NewMap()
	fid := m.AddFile("t.b65", "function")
	sink := source.NewSink(0, false)
	lx := New(FileText{ID: fid, Text: "function"}, sink)
	p1 := lx.Peek()
	p2 := lx.Peek()
	if p1.Kind != token.KwFunction || p2.Kind != token.KwFunction {
		t.Fatalf("expected repeated Peek to return the same token, got %v then %v", p1.Kind, p2.Kind)
	}
	n := lx.Next()
	if n.Kind != token.KwFunction {
		t.Fatalf("expected Next to return the peeked token, got %v", n.Kind)
	}
	if lx.Next().Kind != token.EOF {
		t.Fatalf("expected EOF after the only token")
	}
}

func TestUnexpectedCharacterIsError(t *testing.T) {
	_, sink := scanAll(t, "`")
	if !sink.HasErrors() {
		t.Fatalf("expected E_UNEXPECTED_CHARACTER")
	}
}
