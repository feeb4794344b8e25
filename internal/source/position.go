// Package source tracks byte offsets inside compiled files and turns them
// into human-readable (line, column) positions on demand.
package source

import "fmt"

// FileID identifies one source file within a Compilation.
type FileID int

// Span is a half-open byte range (file, offset, length). It is the unit
// every token, AST node, diagnostic, and IL op carries to point back at
// source text.
type Span struct {
	File   FileID
	Offset int
	Length int
}

// End returns the offset one past the last byte covered by the span.
func (s Span) End() int { return s.Offset + s.Length }

// Join returns the smallest span covering both s and other. Both must
// belong to the same file.
func (s Span) Join(other Span) Span {
	if other.Length == 0 {
		return s
	}
	if s.Length == 0 {
		return other
	}
	start := s.Offset
	if other.Offset < start {
		start = other.Offset
	}
	end := s.End()
	if other.End() > end {
		end = other.End()
	}
	return Span{File: s.File, Offset: start, Length: end - start}
}

// File holds the decoded text and a lazily built line-index table for one
// source file.
type File struct {
	ID   FileID
	Name string
	Text string

	lineStarts []int // byte offset of the first byte of each line
}

// NewFile builds a File and its line-index table in one pass, the way a
// compiler front end indexes source once per file rather than per query.
func NewFile(id FileID, name, text string) *File {
	f := &File{ID: id, Name: name, Text: text}
	f.lineStarts = []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			f.lineStarts = append(f.lineStarts, i+1)
		}
	}
	return f
}

// Position is a resolved human-readable location: 1-based line and column.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Position resolves a byte offset to a (line, column) pair via binary
// search over the line-start table.
func (f *File) Position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(f.Text) {
		offset = len(f.Text)
	}
	lo, hi := 0, len(f.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	line := lo
	col := offset - f.lineStarts[line]
	return Position{File: f.Name, Line: line + 1, Column: col + 1}
}

// LineText returns the source text of the given 1-based line, without its
// trailing newline, for diagnostic rendering.
func (f *File) LineText(line int) string {
	idx := line - 1
	if idx < 0 || idx >= len(f.lineStarts) {
		return ""
	}
	start := f.lineStarts[idx]
	end := len(f.Text)
	if idx+1 < len(f.lineStarts) {
		end = f.lineStarts[idx+1] - 1
	}
	if end < start {
		end = start
	}
	if end > len(f.Text) {
		end = len(f.Text)
	}
	return f.Text[start:end]
}

// Map owns every File in a compilation and resolves spans to positions.
type Map struct {
	files []*File
}

// NewMap creates an empty source map.
func NewMap() *Map { return &Map{} }

// AddFile registers a new file's text and returns its FileID.
func (m *Map) AddFile(name, text string) FileID {
	id := FileID(len(m.files))
	m.files = append(m.files, NewFile(id, name, text))
	return id
}

// File returns the File for id, or nil if id is out of range.
func (m *Map) File(id FileID) *File {
	if int(id) < 0 || int(id) >= len(m.files) {
		return nil
	}
	return m.files[id]
}

// Position resolves a span's start offset to a human-readable position.
func (m *Map) Position(s Span) Position {
	f := m.File(s.File)
	if f == nil {
		return Position{}
	}
	return f.Position(s.Offset)
}

// Text returns the source text covered by a span.
func (m *Map) Text(s Span) string {
	f := m.File(s.File)
	if f == nil {
		return ""
	}
	if s.Offset < 0 || s.End() > len(f.Text) {
		return ""
	}
	return f.Text[s.Offset:s.End()]
}
