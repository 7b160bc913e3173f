package source

import "fmt"

// Map owns the set of files participating in one compilation and hands
// out stable FileIDs. It is the one piece of state shared, read-only,
// across every pipeline stage for span-to-position resolution.
type Map struct {
	files []*File
	byID  map[FileID]*File
}

// NewMap constructs an empty source map.
func NewMap() *Map {
	return &Map{byID: make(map[FileID]*File)}
}

// Add registers a new file under the given logical path and returns the
// File handle it was assigned.
func (m *Map) Add(path, text string) *File {
	id := FileID(len(m.files) + 1)
	f := NewFile(id, path, text)
	m.files = append(m.files, f)
	m.byID[id] = f

	return f
}

// Get returns the file registered under id, or nil if none exists.
func (m *Map) Get(id FileID) *File {
	return m.byID[id]
}

// Files returns every file registered with this map, in registration
// order.
func (m *Map) Files() []*File {
	return m.files
}

// Describe renders a span as "path:line:col" for use in diagnostics and
// logging; synthesized (dummy) spans render as "<generated>".
func (m *Map) Describe(span Span) string {
	if span.IsDummy() {
		return "<generated>"
	}

	f := m.Get(span.File)
	if f == nil {
		return fmt.Sprintf("<unknown file %d>", span.File)
	}

	pos := f.PositionAt(span.Start)

	return fmt.Sprintf("%s:%d:%d", f.Path(), pos.Line, pos.Column)
}
