// Package lexer implements NEPL's offside-rule tokenizer (spec §4.2):
// leading-whitespace bookkeeping synthesizes Indent/Dedent/Newline
// tokens, and three recognized raw-block headers (#wasm:, #llvmir:,
// mlstr:) switch the scanner into verbatim-capture mode.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/source"
	"github.com/neplg/neplg2/pkg/token"
)

// DefaultIndentUnit is used when no "#indent N" directive is present.
const DefaultIndentUnit = 4

// DetectIndentUnit scans text for a leading "#indent N" directive
// without fully tokenizing it, since the lexer itself needs the unit
// before indentation-sensitive scanning can begin (spec §4.2).
func DetectIndentUnit(text string) int {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#indent") {
			continue
		}

		fields := strings.Fields(trimmed)
		if len(fields) != 2 {
			continue
		}

		n := 0

		for _, r := range fields[1] {
			if r < '0' || r > '9' {
				n = 0
				break
			}

			n = n*10 + int(r-'0')
		}

		if n > 0 {
			return n
		}
	}

	return DefaultIndentUnit
}

// RawHeader names the three raw-block introducers the lexer recognizes
// at end-of-line (spec §4.2, §9 "Raw embedded blocks").
type RawHeader int

const (
	NotRaw RawHeader = iota
	RawWasm
	RawLLVMIR
	RawMLStr
)

// Lexer tokenizes one file under the offside rule.
type Lexer struct {
	file       *source.File
	text       string
	indentUnit int
	pos        int // byte offset into text
	indents    []int
	atLineHead bool
	diags      *diag.Set
	tokens     []token.Token
	pendingRaw *rawCapture
	rawBlocks  map[int][]token.RawLine
	rawTokenIdx int
}

type rawCapture struct {
	header     RawHeader
	headerCol  int
	baseCol    int
	lines      []token.RawLine
}

// New constructs a Lexer for the given file, auto-detecting the indent
// unit per DetectIndentUnit.
func New(file *source.File, diags *diag.Set) *Lexer {
	return NewWithIndent(file, DetectIndentUnit(file.Text()), diags)
}

// NewWithIndent constructs a Lexer with an explicit indent unit.
func NewWithIndent(file *source.File, indentUnit int, diags *diag.Set) *Lexer {
	return &Lexer{
		file:       file,
		text:       file.Text(),
		indentUnit: indentUnit,
		indents:    []int{0},
		atLineHead: true,
		diags:      diags,
	}
}

// Tokenize runs the lexer to completion, returning every token
// (including synthesized Indent/Dedent/Newline and a final EOF) plus any
// raw lines captured for embedded blocks, keyed by the index of the
// RawWasmHeader/RawLLVMIRHeader/MLStrHeader token that introduced them.
func (l *Lexer) Tokenize() ([]token.Token, map[int][]token.RawLine) {
	rawBlocks := make(map[int][]token.RawLine)
	l.rawBlocks = rawBlocks

	for {
		if l.atLineHead {
			if done := l.handleLineHead(); done {
				break
			}
		}

		if l.pos >= len(l.text) {
			break
		}

		r, size := l.peekRune()

		switch {
		case r == '\n':
			l.pos += size
			l.emit(token.Newline, l.pos-size, l.pos, "")
			l.atLineHead = true
		case r == ' ' || r == '\t':
			l.pos += size
		case r == '#':
			l.lexDirectiveOrRaw()
		case r == '"':
			l.lexString()
		case unicode.IsDigit(r):
			l.lexNumber()
		case isIdentStart(r):
			l.lexIdentOrKeyword()
		default:
			l.lexPunct()
		}
	}

	l.endRawCapture()

	// Close any still-open indentation levels.
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.emit(token.Dedent, l.pos, l.pos, "")
	}

	l.emit(token.EOF, len(l.text), len(l.text), "")

	return l.tokens, rawBlocks
}

// handleLineHead consumes leading whitespace of a new logical line,
// synthesizes Indent/Dedent tokens per the offside rule, and returns
// true if end-of-input was reached while doing so. Blank and
// comment-only lines do not perturb the indentation stack (spec §4.2).
func (l *Lexer) handleLineHead() bool {
	if l.pendingRaw != nil {
		return l.handleRawLineHead()
	}

	start := l.pos
	col := 0

	for l.pos < len(l.text) {
		r, size := l.peekRune()
		if r == ' ' {
			col++
			l.pos += size
		} else if r == '\t' {
			col += l.indentUnit
			l.pos += size
		} else {
			break
		}
	}

	if l.pos >= len(l.text) {
		return true
	}

	r, _ := l.peekRune()
	if r == '\n' || r == '#' && l.isCommentAhead() {
		// Blank or comment-only line: restore position to line start so
		// normal scanning emits Newline and advances past the comment,
		// without touching the indent stack.
		l.pos = start
		l.atLineHead = false

		return false
	}

	top := l.indents[len(l.indents)-1]

	switch {
	case col > top:
		l.indents = append(l.indents, col)
		l.emit(token.Indent, l.pos, l.pos, "")
	case col < top:
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > col {
			l.indents = l.indents[:len(l.indents)-1]
			l.emit(token.Dedent, l.pos, l.pos, "")
		}

		if l.indents[len(l.indents)-1] != col {
			l.diags.Add(diag.New(diag.CodeBadIndent, l.spanAt(start, l.pos),
				"inconsistent indentation"))
			l.indents[len(l.indents)-1] = col
		}
	}

	l.atLineHead = false

	return false
}

func (l *Lexer) isCommentAhead() bool {
	return strings.HasPrefix(l.text[l.pos:], "#") && !l.looksLikeDirective()
}

func (l *Lexer) looksLikeDirective() bool {
	rest := l.text[l.pos+1:]

	if strings.HasPrefix(rest, "wasm:") || strings.HasPrefix(rest, "llvmir:") {
		return true
	}

	for _, name := range directiveNames {
		if strings.HasPrefix(rest, name) {
			return true
		}
	}

	return false
}

func (l *Lexer) emit(k token.Kind, start, end int, text string) {
	l.tokens = append(l.tokens, token.Token{Kind: k, Span: l.spanAt(start, end), Text: text})
}

func (l *Lexer) spanAt(start, end int) source.Span {
	return source.NewSpan(l.file.ID(), start, end)
}

func (l *Lexer) peekRune() (rune, int) {
	if l.pos >= len(l.text) {
		return 0, 0
	}

	return utf8.DecodeRuneInString(l.text[l.pos:])
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentCont(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
