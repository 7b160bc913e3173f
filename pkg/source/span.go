// Package source provides file-scoped byte spans and a multi-file source
// map, shared by every stage from the lexer through to diagnostic
// rendering.
package source

// FileID is an opaque handle into a Map identifying one loaded file.
type FileID uint32

// NoFile is the FileID used by synthesized nodes which have no source
// location (e.g. compiler-inserted drops).
const NoFile FileID = 0xffffffff

// Span is a half-open, file-scoped byte range: [Start, End) within the
// text of File.
type Span struct {
	File  FileID
	Start int
	End   int
}

// NewSpan constructs a span, checking the half-open invariant holds.
func NewSpan(file FileID, start, end int) Span {
	if start > end {
		panic("source: invalid span (start > end)")
	}

	return Span{file, start, end}
}

// Dummy returns a synthesized span carrying no real source location, used
// for AST/HIR nodes introduced by the compiler itself (e.g. inserted
// drops, monomorphized specializations).
func Dummy() Span {
	return Span{NoFile, 0, 0}
}

// IsDummy reports whether this span was synthesized rather than read from
// a real file.
func (s Span) IsDummy() bool {
	return s.File == NoFile
}

// Len returns the number of bytes covered by this span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Merge returns the smallest span enclosing both s and other. Both spans
// must belong to the same file.
func (s Span) Merge(other Span) Span {
	if s.File != other.File {
		panic("source: cannot merge spans from different files")
	}

	start := min(s.Start, other.Start)
	end := max(s.End, other.End)

	return Span{s.File, start, end}
}
