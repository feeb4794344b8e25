package source

import "testing"

func TestFilePositionResolvesLineAndColumn(t *testing.T) {
	f := NewFile(0, "t.b65", "abc\ndef\nghi")
	cases := []struct {
		offset   int
		line, col int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{4, 2, 1},
		{7, 2, 4}, // the newline itself
		{8, 3, 1},
		{10, 3, 3},
	}
	for _, c := range cases {
		pos := f.Position(c.offset)
		if pos.Line != c.line || pos.Column != c.col {
			t.Fatalf("Position(%d) = %d:%d, want %d:%d", c.offset, pos.Line, pos.Column, c.line, c.col)
		}
	}
}

func TestFilePositionClampsOutOfRangeOffsets(t *testing.T) {
	f := NewFile(0, "t.b65", "abc")
	neg := f.Position(-5)
	if neg.Line != 1 || neg.Column != 1 {
		t.Fatalf("expected negative offset to clamp to line 1 col 1, got %d:%d", neg.Line, neg.Column)
	}
	over := f.Position(1000)
	if over.Line != 1 {
		t.Fatalf("expected out-of-range offset to clamp within the file, got line %d", over.Line)
	}
}

func TestFileLineText(t *testing.T) {
	f := NewFile(0, "t.b65", "abc\ndef\nghi")
	if f.LineText(1) != "abc" {
		t.Fatalf("got %q, want abc", f.LineText(1))
	}
	if f.LineText(2) != "def" {
		t.Fatalf("got %q, want def", f.LineText(2))
	}
	if f.LineText(3) != "ghi" {
		t.Fatalf("got %q, want ghi", f.LineText(3))
	}
	if f.LineText(99) != "" {
		t.Fatalf("expected empty string for an out-of-range line")
	}
}

func TestSpanJoin(t *testing.T) {
	a := Span{File: 0, Offset: 2, Length: 3} // [2,5)
	b := Span{File: 0, Offset: 8, Length: 2} // [8,10)
	j := a.Join(b)
	if j.Offset != 2 || j.End() != 10 {
		t.Fatalf("got span [%d,%d), want [2,10)", j.Offset, j.End())
	}
}

func TestSpanJoinWithZeroLengthSpanIsIdentity(t *testing.T) {
	a := Span{File: 0, Offset: 2, Length: 3}
	zero := Span{}
	if a.Join(zero) != a {
		t.Fatalf("expected joining with a zero-length span to return the non-zero span unchanged")
	}
	if zero.Join(a) != a {
		t.Fatalf("expected joining a zero-length span with a non-zero one to return the non-zero span")
	}
}

func TestMapAddFileAndLookup(t *testing.T) {
	m := NewMap()
	id := m.AddFile("t.b65", "hello")
	if m.File(id) == nil {
		t.Fatalf("expected File to find the registered file")
	}
	if m.File(FileID(99)) != nil {
		t.Fatalf("expected File to return nil for an unregistered id")
	}
	if m.Text(Span{File: id, Offset: 1, Length: 3}) != "ell" {
		t.Fatalf("got %q, want ell", m.Text(Span{File: id, Offset: 1, Length: 3}))
	}
}

func TestSinkHasErrorsAndErrorCount(t *testing.T) {
	s := NewSink(0, false)
	s.Add(New(Note, NoteDiagnosticsTruncated, Span{}, "just a note"))
	if s.HasErrors() {
		t.Fatalf("expected a Note-only sink to report no errors")
	}
	s.Add(New(Warning, WarnUnusedVariable, Span{}, "unused"))
	if s.HasErrors() {
		t.Fatalf("expected a Warning to not count as an error")
	}
	s.Add(New(Error, ErrUndefinedIdentifier, Span{}, "undefined"))
	if !s.HasErrors() || s.ErrorCount() != 1 {
		t.Fatalf("expected one error, got HasErrors=%v ErrorCount=%d", s.HasErrors(), s.ErrorCount())
	}
	s.Add(New(Internal, ErrInternalInvariant, Span{}, "bug"))
	if s.ErrorCount() != 2 {
		t.Fatalf("expected Internal severity to also count as an error, got %d", s.ErrorCount())
	}
}

func TestSinkWarningsAsErrorsPromotion(t *testing.T) {
	s := NewSink(0, true)
	s.Add(New(Warning, WarnUnusedVariable, Span{}, "unused"))
	if !s.HasErrors() {
		t.Fatalf("expected warnings-as-errors to promote Warning to Error")
	}
	all := s.All()
	if all[0].Severity != Error {
		t.Fatalf("expected stored severity to be promoted to Error, got %v", all[0].Severity)
	}
}

func TestSinkTruncatesAtMaxDiagnostics(t *testing.T) {
	s := NewSink(2, false)
	s.Add(New(Error, ErrUndefinedIdentifier, Span{}, "e1"))
	s.Add(New(Error, ErrUndefinedIdentifier, Span{}, "e2"))
	s.Add(New(Error, ErrUndefinedIdentifier, Span{}, "e3"))
	s.Add(New(Error, ErrUndefinedIdentifier, Span{}, "e4"))

	all := s.All()
	if s.ErrorCount() != 2 {
		t.Fatalf("expected truncation to cap recorded errors at 2, got %d", s.ErrorCount())
	}
	last := all[len(all)-1]
	if last.Code != NoteDiagnosticsTruncated {
		t.Fatalf("expected a truncation note appended once, got code %v", last.Code)
	}
	// A second truncation note must never be appended.
	noteCount := 0
	for _, d := range all {
		if d.Code == NoteDiagnosticsTruncated {
			noteCount++
		}
	}
	if noteCount != 1 {
		t.Fatalf("expected exactly one truncation note, got %d", noteCount)
	}
}

func TestSinkAllReturnsACopy(t *testing.T) {
	s := NewSink(0, false)
	s.Add(New(Error, ErrUndefinedIdentifier, Span{}, "e1"))
	all := s.All()
	all[0].Message = "mutated"
	if s.All()[0].Message == "mutated" {
		t.Fatalf("expected All() to return an independent copy")
	}
}

func TestSortStablePreservesInsertionOrderForTies(t *testing.T) {
	d1 := New(Error, ErrUndefinedIdentifier, Span{File: 0, Offset: 5}, "first at 5")
	d2 := New(Error, ErrUndefinedIdentifier, Span{File: 0, Offset: 5}, "second at 5")
	d3 := New(Error, ErrUndefinedIdentifier, Span{File: 0, Offset: 1}, "at 1")
	sorted := SortStable([]Diagnostic{d1, d2, d3})
	if sorted[0].Message != "at 1" {
		t.Fatalf("expected the lowest offset diagnostic first, got %q", sorted[0].Message)
	}
	if sorted[1].Message != "first at 5" || sorted[2].Message != "second at 5" {
		t.Fatalf("expected ties at the same offset to preserve insertion order, got %q then %q",
			sorted[1].Message, sorted[2].Message)
	}
}

func TestDiagnosticWithRemedyAndRelated(t *testing.T) {
	d := New(Error, ErrTypeMismatch, Span{}, "mismatch").
		WithRemedy("try an explicit cast").
		WithRelated(Span{Offset: 3}, "declared here")
	if d.Remedy != "try an explicit cast" {
		t.Fatalf("got remedy %q", d.Remedy)
	}
	if len(d.Related) != 1 || d.Related[0].Message != "declared here" {
		t.Fatalf("got related %v", d.Related)
	}
}

func TestRenderIncludesCodeAndCaret(t *testing.T) {
	m := NewMap()
	fid := m.AddFile("t.b65", "let x: byte = bogus;\n")
	d := New(Error, ErrUndefinedIdentifier, Span{File: fid, Offset: 14, Length: 5}, "undefined identifier 'bogus'")
	out := Render(m, d)
	if out == "" {
		t.Fatalf("expected non-empty rendered output")
	}
	if !containsAll(out, "E_UNDEFINED_IDENTIFIER", "bogus", "^") {
		t.Fatalf("expected rendered diagnostic to include code, message, and caret, got:\n%s", out)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !contains(s, sub) {
			return false
		}
	}
	return true
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
