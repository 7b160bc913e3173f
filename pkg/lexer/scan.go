package lexer

import (
	"strings"

	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/token"
)

func (l *Lexer) lexIdentOrKeyword() {
	start := l.pos

	for l.pos < len(l.text) {
		r, size := l.peekRune()
		if !isIdentCont(r) {
			break
		}

		l.pos += size
	}

	text := l.text[start:l.pos]

	if text == "mlstr" && l.restOfLineIsJustColon() {
		l.pos++ // ':'
		l.emit(token.MLStrHeader, start, l.pos, text)
		l.beginRawCapture(RawMLStr)

		return
	}

	if text == "true" || text == "false" {
		l.emit(token.BoolLit, start, l.pos, text)
		return
	}

	if kw, ok := token.Keywords[text]; ok {
		l.emit(kw, start, l.pos, text)
		return
	}

	l.emit(token.Ident, start, l.pos, text)
}

func (l *Lexer) lexNumber() {
	start := l.pos
	isFloat := false

	for l.pos < len(l.text) {
		r, size := l.peekRune()

		switch {
		case r >= '0' && r <= '9':
			l.pos += size
		case r == '.' && !isFloat && l.nextIsDigitAfterDot():
			isFloat = true
			l.pos += size
		default:
			goto done
		}
	}

done:
	text := l.text[start:l.pos]
	if isFloat {
		l.emit(token.FloatLit, start, l.pos, text)
	} else {
		l.emit(token.IntLit, start, l.pos, text)
	}
}

func (l *Lexer) nextIsDigitAfterDot() bool {
	if l.pos+1 >= len(l.text) {
		return false
	}

	c := l.text[l.pos+1]

	return c >= '0' && c <= '9'
}

func (l *Lexer) lexString() {
	start := l.pos
	l.pos++ // opening quote

	var sb strings.Builder

	for l.pos < len(l.text) {
		r, size := l.peekRune()

		switch {
		case r == '"':
			l.pos += size
			l.emit(token.StringLit, start, l.pos, sb.String())

			return
		case r == '\\':
			l.pos += size
			l.scanEscape(&sb)
		case r == '\n':
			goto unterminated
		default:
			sb.WriteRune(r)
			l.pos += size
		}
	}

unterminated:
	l.diags.Add(diag.New(diag.CodeUnterminatedLit, l.spanAt(start, l.pos), "unterminated string literal"))
	l.emit(token.StringLit, start, l.pos, sb.String())
}

func (l *Lexer) scanEscape(sb *strings.Builder) {
	if l.pos >= len(l.text) {
		l.diags.Add(diag.New(diag.CodeBadEscape, l.spanAt(l.pos, l.pos), "dangling escape"))
		return
	}

	r, size := l.peekRune()

	switch r {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case '\\', '"':
		sb.WriteRune(r)
	case '0':
		sb.WriteByte(0)
	default:
		l.diags.Add(diag.New(diag.CodeBadEscape, l.spanAt(l.pos, l.pos+size),
			"unrecognized escape sequence"))
		sb.WriteRune(r)
	}

	l.pos += size
}

func (l *Lexer) lexPunct() {
	start := l.pos
	r, size := l.peekRune()

	two := ""
	if l.pos+1 < len(l.text) {
		two = l.text[l.pos : l.pos+2]
	}

	switch two {
	case "::":
		l.pos += 2
		l.emit(token.ColonColon, start, l.pos, two)

		return
	case "->":
		l.pos += 2
		l.emit(token.Arrow, start, l.pos, two)

		return
	case "|>":
		l.pos += 2
		l.emit(token.Pipe, start, l.pos, two)

		return
	}

	var kind token.Kind

	switch r {
	case '(':
		kind = token.LParen
	case ')':
		kind = token.RParen
	case '[':
		kind = token.LBracket
	case ']':
		kind = token.RBracket
	case '<':
		kind = token.LAngle
	case '>':
		kind = token.RAngle
	case ':':
		kind = token.Colon
	case ',':
		kind = token.Comma
	case ';':
		kind = token.Semicolon
	case '.':
		kind = token.Dot
	case '&':
		kind = token.Amp
	case '*':
		kind = token.Star
	case '@':
		kind = token.At
	case '=':
		kind = token.Eq
	default:
		l.pos += size
		l.diags.Add(diag.New(diag.CodeUnexpectedToken, l.spanAt(start, l.pos),
			"unexpected character '"+string(r)+"'"))

		return
	}

	l.pos += size
	l.emit(kind, start, l.pos, string(r))
}
