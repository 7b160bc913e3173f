// Package parser turns a NEPL token stream into an ast.Module (spec
// §4.3). It follows go-corset's compiler/parser.go recursive-descent
// shape: a cursor over tokens, Parse* methods, and error-recovery that
// records a diagnostic and keeps going rather than aborting (spec §7
// "Recovery policy").
package parser

import (
	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/source"
	"github.com/neplg/neplg2/pkg/token"
)

// Parser holds the cursor over one file's token stream.
type Parser struct {
	file        *source.File
	toks        []token.Token
	raws        map[int][]token.RawLine
	pos         int
	diags       *diag.Set
	indentWidth int
}

// New constructs a Parser over an already-tokenized file. indentWidth is
// the value pkg/lexer resolved (via a "#indent N" directive or its
// default) for this file, carried through so the resulting ast.Module
// records it (spec §3 "A module is {indent_width, ...}").
func New(file *source.File, toks []token.Token, raws map[int][]token.RawLine, indentWidth int, diags *diag.Set) *Parser {
	return &Parser{file: file, toks: toks, raws: raws, indentWidth: indentWidth, diags: diags}
}

// ParseModule parses one file's tokens into an ast.Module. The returned
// module's Directives hold only the directives found at this file's top
// level (a directive inside a gated statement is not listed); pkg/loader is responsible
// for dropping file-scoped directives (#entry, #target, #indent) from
// imported/included modules before merging (spec §4.1).
func (p *Parser) ParseModule() *ast.Module {
	p.skipNewlines()

	root := &ast.Block{Sp: p.spanHere()}

	for !p.at(token.EOF) {
		p.skipNewlines()

		if p.at(token.EOF) {
			break
		}

		stmt := p.parseStmt()
		if stmt != nil {
			root.Stmts = append(root.Stmts, stmt)
		}
	}

	mod := &ast.Module{IndentWidth: p.indentWidth, Root: root}

	for _, st := range root.Stmts {
		if ds, ok := st.(*ast.DirectiveStmt); ok {
			mod.Directives = append(mod.Directives, ds.Directive)
		}
	}

	return mod
}

// ---- cursor helpers ----

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}

	return p.toks[p.pos]
}

func (p *Parser) at(k token.Kind) bool {
	return p.cur().Kind == k
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}

	return t
}

func (p *Parser) expect(k token.Kind, what string) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}

	p.diags.Add(diag.Newf(diag.CodeUnexpectedToken, p.cur().Span,
		"expected %s, found %s", what, p.cur().Kind))

	return p.cur(), false
}

func (p *Parser) skipNewlines() {
	for p.at(token.Newline) || p.at(token.Semicolon) {
		p.advance()
	}
}

func (p *Parser) spanHere() source.Span {
	t := p.cur()
	return source.NewSpan(t.Span.File, t.Span.Start, t.Span.Start)
}

// synchronize skips tokens until the next statement boundary after a
// parse error, so one bad statement doesn't cascade into spurious
// follow-on diagnostics (spec §7 recovery policy).
func (p *Parser) synchronize() {
	for !p.at(token.Newline) && !p.at(token.Dedent) && !p.at(token.EOF) {
		p.advance()
	}

	p.skipNewlines()
}

// parseBlock parses an Indent ... Dedent sequence of statements. Callers
// are expected to have just consumed whatever introduced the block
// (a colon, or the module start).
func (p *Parser) parseBlock() *ast.Block {
	start := p.spanHere()

	if _, ok := p.expect(token.Indent, "indented block"); !ok {
		return &ast.Block{Sp: start}
	}

	blk := &ast.Block{Sp: start}

	for {
		p.skipNewlines()

		if p.at(token.Dedent) || p.at(token.EOF) {
			break
		}

		stmt := p.parseStmt()
		if stmt != nil {
			blk.Stmts = append(blk.Stmts, stmt)
		}
	}

	if p.at(token.Dedent) {
		p.advance()
	}

	return blk
}
