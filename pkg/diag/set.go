package diag

import "sort"

// Set accumulates diagnostics across one or more compiler stages, the
// way go-corset's compiler threads a growing []SyntaxError through
// ParseSourceFiles and friends.
type Set struct {
	items []Diagnostic
}

// Add appends one diagnostic.
func (s *Set) Add(d Diagnostic) {
	s.items = append(s.items, d)
}

// Merge appends every diagnostic from other.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}

	s.items = append(s.items, other.items...)
}

// HasErrors reports whether any accumulated diagnostic is Error severity.
func (s *Set) HasErrors() bool {
	for _, d := range s.items {
		if d.Severity == Error {
			return true
		}
	}

	return false
}

// Items returns every accumulated diagnostic, sorted deterministically
// by (file, start, end) so that repeated runs over the same input
// produce identically ordered output (spec §8 "Determinism").
func (s *Set) Items() []Diagnostic {
	out := make([]Diagnostic, len(s.items))
	copy(out, s.items)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Primary.Span, out[j].Primary.Span
		if a.File != b.File {
			return a.File < b.File
		}

		if a.Start != b.Start {
			return a.Start < b.Start
		}

		return a.End < b.End
	})

	return out
}

// Empty reports whether no diagnostics have been recorded at all.
func (s *Set) Empty() bool {
	return len(s.items) == 0
}
