package lexer

import (
	"strings"

	"github.com/neplg/neplg2/pkg/token"
)

var directiveNames = []string{
	"import", "include", "use", "extern", "entry", "target", "indent",
	"if", "prelude", "no_prelude",
}

// lexDirectiveOrRaw handles a '#' at the start of a potential directive or
// raw-block header. It recognizes "#wasm:" / "#llvmir:" at end-of-line
// as raw headers (spec §4.2, §9); otherwise it emits a Directive token
// naming the directive keyword and leaves the remainder of the line to
// be tokenized normally (arguments, "[target=wasm]" gate syntax, etc.).
func (l *Lexer) lexDirectiveOrRaw() {
	start := l.pos
	l.pos++ // '#'

	nameStart := l.pos

	for l.pos < len(l.text) {
		r, size := l.peekRune()
		if !isIdentCont(r) {
			break
		}

		l.pos += size
	}

	name := l.text[nameStart:l.pos]

	if (name == "wasm" || name == "llvmir") && l.restOfLineIsJustColon() {
		l.pos++ // ':'

		header := RawWasm
		kind := token.RawWasmHeader

		if name == "llvmir" {
			header = RawLLVMIR
			kind = token.RawLLVMIRHeader
		}

		l.emit(kind, start, l.pos, name)
		l.beginRawCapture(header)

		return
	}

	if !isKnownDirective(name) {
		// Not a recognized directive: treat the rest of the physical
		// line as a comment (spec §4.2 "comment-only line").
		if idx := strings.IndexByte(l.text[l.pos:], '\n'); idx >= 0 {
			l.pos += idx
		} else {
			l.pos = len(l.text)
		}

		return
	}

	l.emit(token.Directive, start, l.pos, name)
}

func isKnownDirective(name string) bool {
	for _, n := range directiveNames {
		if n == name {
			return true
		}
	}

	return false
}

// restOfLineIsJustColon reports whether, from the current position, the
// remainder of the physical line is exactly ":" (optional trailing
// whitespace), i.e. the raw-block header pattern from spec §9.
func (l *Lexer) restOfLineIsJustColon() bool {
	if l.pos >= len(l.text) || l.text[l.pos] != ':' {
		return false
	}

	rest := l.text[l.pos+1:]
	nl := strings.IndexByte(rest, '\n')

	if nl >= 0 {
		rest = rest[:nl]
	}

	return strings.TrimSpace(rest) == ""
}

func (l *Lexer) beginRawCapture(header RawHeader) {
	headerCol := l.indents[len(l.indents)-1]
	l.pendingRaw = &rawCapture{
		header:    header,
		headerCol: headerCol,
		baseCol:   headerCol + l.indentUnit,
	}
	l.rawTokenIdx = len(l.tokens) - 1 // index of the header token just emitted
}

// handleRawLineHead processes one physical line while in raw-capture
// mode: if its indentation is strictly greater than the header's, the
// line is captured verbatim (spec §4.2); otherwise raw mode ends and the
// position is rewound so normal offside handling processes the line.
func (l *Lexer) handleRawLineHead() bool {
	lineStart := l.pos
	rc := l.pendingRaw

	// A fully blank line belongs to the block; blank lines inside
	// mlstr: become empty string segments (resolved Open Question,
	// SPEC_FULL.md §12).
	restOfLine, nl := l.restOfCurrentLine()
	if strings.TrimRight(restOfLine, " \t\r") == "" {
		if l.pos >= len(l.text) {
			return true
		}

		rc.lines = append(rc.lines, token.RawLine{
			Span:   l.spanAt(lineStart, lineStart),
			Indent: 0,
			Text:   "",
		})
		l.pos += nl + 1

		return false
	}

	col := 0
	p := l.pos

	for p < len(l.text) {
		switch l.text[p] {
		case ' ':
			col++
			p++
		case '\t':
			col += l.indentUnit
			p++
		default:
			goto measured
		}
	}

measured:
	if col <= rc.headerCol {
		l.endRawCapture()
		l.pos = lineStart

		return false
	}

	// Capture everything after the header's own indentation column,
	// preserving deeper indentation (relative to base) verbatim.
	text := l.text[minInt(p, len(l.text)):]
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}

	text = strings.TrimRight(text, "\r")

	rc.lines = append(rc.lines, token.RawLine{
		Span:   l.spanAt(p, p+len(text)),
		Indent: col - rc.baseCol,
		Text:   text,
	})

	if idx := strings.IndexByte(l.text[lineStart:], '\n'); idx >= 0 {
		l.pos = lineStart + idx + 1
	} else {
		l.pos = len(l.text)
	}

	return l.pos >= len(l.text)
}

func (l *Lexer) endRawCapture() {
	if l.pendingRaw == nil {
		return
	}

	if l.rawBlocks != nil {
		l.rawBlocks[l.rawTokenIdx] = l.pendingRaw.lines
	}

	l.pendingRaw = nil
}

func (l *Lexer) restOfCurrentLine() (string, int) {
	rest := l.text[l.pos:]

	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return rest, len(rest)
	}

	return rest[:nl], nl
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}
