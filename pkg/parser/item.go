package parser

import (
	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/source"
	"github.com/neplg/neplg2/pkg/token"
)

// atExprBoundary reports whether the cursor sits on a token that ends a
// flat prefix-item list: end of line, a block/group/tuple closer, or an
// if/else keyword belonging to an enclosing if (spec §9 "flatness").
func (p *Parser) atExprBoundary() bool {
	switch p.cur().Kind {
	case token.Newline, token.Semicolon, token.Dedent, token.EOF, token.Colon,
		token.RParen, token.RBracket, token.Comma, token.KwThen, token.KwElse:
		return true
	}

	return false
}

// parseItemList parses a flat sequence of prefix items up to the next
// expression boundary (spec §3, §9).
func (p *Parser) parseItemList() []ast.Item {
	var items []ast.Item

	for !p.atExprBoundary() {
		items = append(items, p.parseItem())
	}

	return items
}

// parseExprStmt parses one prefix-expression statement line: a flat item
// list, optional trailing semicolons, and (if nothing upstream already
// consumed it) a trailing colon-introduced block attached as a final
// BlockItem (spec §4.3).
func (p *Parser) parseExprStmt() ast.Stmt {
	start := p.spanHere()

	items := p.parseItemList()

	semi := false
	for p.at(token.Semicolon) {
		semi = true

		p.advance()
	}

	if p.at(token.Colon) {
		blk := p.parseColonBlock()
		items = append(items, &ast.BlockItem{Block: blk, Sp: blk.Sp})
	}

	p.skipNewlines()

	return &ast.ExprStmt{Items: items, Semicolon: semi, Sp: start.Merge(p.spanHere())}
}

// parseColonBlock parses ": <inline-stmt>" or ":\n  <indented block>",
// the colon-introduced body sugar shared by if/while/match, struct/enum
// field blocks, and ordinary statements (spec §4.3).
func (p *Parser) parseColonBlock() *ast.Block {
	p.expect(token.Colon, ":")
	p.skipNewlines()

	if p.at(token.Indent) {
		return p.parseBlock()
	}

	return p.parseInlineBlock()
}

func (p *Parser) parseItem() ast.Item {
	switch p.cur().Kind {
	case token.IntLit:
		tok := p.advance()
		return &ast.LiteralItem{Kind: ast.LitInt, Text: tok.Text, Sp: tok.Span}
	case token.FloatLit:
		tok := p.advance()
		return &ast.LiteralItem{Kind: ast.LitFloat, Text: tok.Text, Sp: tok.Span}
	case token.BoolLit:
		tok := p.advance()
		return &ast.LiteralItem{Kind: ast.LitBool, Text: tok.Text, Sp: tok.Span}
	case token.StringLit:
		tok := p.advance()
		return &ast.LiteralItem{Kind: ast.LitString, Text: tok.Text, Sp: tok.Span}
	case token.KwLet:
		return p.parseLet()
	case token.KwSet:
		return p.parseSet()
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwMatch:
		return p.parseMatch()
	case token.KwTuple:
		return p.parseTupleBlock()
	case token.LAngle:
		t := p.parseAngleTypeAnnotation()
		return &ast.TypeAnnotationItem{Type: t, Sp: t.Span()}
	case token.Pipe:
		tok := p.advance()
		return &ast.PipeItem{Sp: tok.Span}
	case token.Amp:
		return p.parseAddrOf()
	case token.Star:
		tok := p.advance()
		return &ast.DerefItem{Sp: tok.Span}
	case token.LParen:
		return p.parseParenOrLegacyTuple()
	case token.Ident:
		return p.parseSymbolItem()
	default:
		tok := p.advance()
		p.diags.Add(diag.Newf(diag.CodeUnexpectedToken, tok.Span,
			"unexpected %s in expression", tok.Kind))

		return &ast.LiteralItem{Kind: ast.LitInt, Text: "0", Sp: tok.Span}
	}
}

// parseSymbolItem parses a bare identifier, folding any "::"-qualified
// segments into one dotted name (e.g. "Wrapper::Val", spec §8 example
// 4's enum-variant construction syntax), then an optional adjacent
// "<T,U>" explicit type-argument list.
func (p *Parser) parseSymbolItem() ast.Item {
	id := p.advance()

	name := id.Text
	end := id.Span

	for p.at(token.ColonColon) && p.isAdjacent(end.End) {
		p.advance()

		seg, ok := p.expect(token.Ident, "qualified name segment")
		if !ok {
			break
		}

		if seg.Text == "field_set" {
			return p.finishFieldSet(name, id.Span.Merge(seg.Span))
		}

		name += "::" + seg.Text
		end = seg.Span
	}

	sym := &ast.SymbolItem{Name: name, Sp: id.Span.Merge(end)}

	if p.at(token.LAngle) && p.isAdjacent(end.End) {
		p.advance()

		sym.TypeArgs = p.parseGenericArgs()
		sym.Sp = sym.Sp.Merge(p.toks[p.pos-1].Span)
	}

	return sym
}

// finishFieldSet parses the instance, literal field name, and new value
// following "Struct::field_set" and folds them into one FieldSetItem.
// The field name is read directly as text rather than through
// parseItem, so it never hits the reduce stack's symbol resolution
// (spec §12's field update sugar would otherwise try, and fail, to look
// it up as a variable).
func (p *Parser) finishFieldSet(structName string, headSp source.Span) ast.Item {
	inst := p.parseItem()
	field := p.expectIdentText("struct field name")
	val := p.parseItem()

	return &ast.FieldSetItem{
		Struct:   structName,
		Instance: inst,
		Field:    field,
		Value:    val,
		Sp:       headSp.Merge(val.Span()),
	}
}

func (p *Parser) parseAddrOf() ast.Item {
	tok := p.advance()

	mut := false
	if p.at(token.KwMut) {
		p.advance()

		mut = true
	}

	return &ast.AddrOfItem{Mut: mut, Sp: tok.Span}
}

// parseParenOrLegacyTuple parses "(a)" as a grouping item or "(a, b, c)"
// as the legacy tuple literal form (spec §4.3 "Tuple syntax").
func (p *Parser) parseParenOrLegacyTuple() ast.Item {
	start := p.advance().Span // '('

	var groups [][]ast.Item

	groups = append(groups, p.parseItemList())

	legacy := false

	for p.at(token.Comma) {
		legacy = true

		p.advance()

		groups = append(groups, p.parseItemList())
	}

	end := p.cur().Span
	p.expect(token.RParen, ")")

	if legacy {
		return &ast.TupleItem{Elements: groups, Legacy: true, Sp: start.Merge(end)}
	}

	return &ast.GroupItem{Inner: groups[0], Sp: start.Merge(end)}
}

// parseTupleBlock parses the new "Tuple:" block form, one element per
// indented line (spec §4.3).
func (p *Parser) parseTupleBlock() ast.Item {
	start := p.advance().Span // 'Tuple'

	p.expect(token.Colon, ":")
	p.skipNewlines()

	var elems [][]ast.Item

	if p.at(token.Indent) {
		p.advance()

		for !p.at(token.Dedent) && !p.at(token.EOF) {
			p.skipNewlines()

			if p.at(token.Dedent) || p.at(token.EOF) {
				break
			}

			elems = append(elems, p.parseItemList())
			p.skipNewlines()
		}

		if p.at(token.Dedent) {
			p.advance()
		}
	}

	return &ast.TupleItem{Elements: elems, Legacy: false, Sp: start.Merge(p.spanHere())}
}

func (p *Parser) parseLet() ast.Item {
	start := p.advance().Span // 'let'

	mut := false
	if p.at(token.KwMut) {
		p.advance()

		mut = true
	}

	name := p.expectIdentText("let binding name")

	var ann ast.TypeExpr
	if p.at(token.LAngle) {
		ann = p.parseAngleTypeAnnotation()
	}

	return &ast.LetItem{Mut: mut, Name: name, Annotation: ann, Sp: start.Merge(p.spanHere())}
}

func (p *Parser) parseSet() ast.Item {
	start := p.advance().Span // 'set'

	name := p.expectIdentText("assignable binding name")

	return &ast.SetItem{Name: name, Sp: start.Merge(p.spanHere())}
}

// parseWhile parses "while C: body" (spec §4.3); the condition runs to
// the colon, which is unambiguous, so (unlike if) it may hold more than
// one flat item.
func (p *Parser) parseWhile() ast.Item {
	start := p.advance().Span // 'while'

	cond := p.parseItemList()
	blk := p.parseColonBlock()

	return &ast.WhileItem{Cond: cond, Body: blk, Sp: start.Merge(blk.Sp)}
}

// parseMatch parses "match scrutinee: Variant [binding]: body; ..."
// (spec §4.3). Exhaustiveness is left to pkg/typecheck.
func (p *Parser) parseMatch() ast.Item {
	start := p.advance().Span // 'match'

	scrutinee := []ast.Item{p.parseItem()}

	p.expect(token.Colon, ":")
	p.skipNewlines()

	var arms []ast.MatchArm

	if p.at(token.Indent) {
		p.advance()

		for !p.at(token.Dedent) && !p.at(token.EOF) {
			p.skipNewlines()

			if p.at(token.Dedent) || p.at(token.EOF) {
				break
			}

			arms = append(arms, p.parseMatchArm())
			p.skipNewlines()
		}

		if p.at(token.Dedent) {
			p.advance()
		}
	} else {
		arms = append(arms, p.parseMatchArm())

		for p.at(token.Semicolon) {
			p.advance()

			if p.at(token.Newline) || p.at(token.Dedent) || p.at(token.EOF) {
				break
			}

			arms = append(arms, p.parseMatchArm())
		}
	}

	return &ast.MatchItem{Scrutinee: scrutinee, Arms: arms, Sp: start.Merge(p.spanHere())}
}

func (p *Parser) parseMatchArm() ast.MatchArm {
	start := p.cur().Span

	variant := p.expectIdentText("variant name")

	binding := ""
	if p.at(token.Ident) {
		binding = p.advance().Text
	}

	p.expect(token.Colon, ":")

	blk := p.parseMatchArmBody()

	return ast.MatchArm{Variant: variant, Binding: binding, Body: blk, Sp: start.Merge(blk.Sp)}
}

// parseMatchArmBody parses one arm's body. Unlike parseColonBlock, an
// inline body here does not consume a trailing ';': that semicolon
// separates sibling arms (spec example "Some v: true; None: false"), not
// statements within the arm, so it must not coerce the arm's value to
// Unit the way an ordinary statement-terminating ';' would.
func (p *Parser) parseMatchArmBody() *ast.Block {
	if p.at(token.Newline) {
		p.skipNewlines()

		if p.at(token.Indent) {
			return p.parseBlock()
		}

		return &ast.Block{Sp: p.spanHere()}
	}

	start := p.spanHere()
	items := p.parseItemList()

	return &ast.Block{
		Stmts: []ast.Stmt{&ast.ExprStmt{Items: items, Sp: start.Merge(p.spanHere())}},
		Sp:    start,
	}
}

// parseIf normalizes every surface "if" form into the canonical
// (cond, then, else) triple (spec §4.3). The condition is a single
// prefix item; multi-item conditions are written with an explicit
// grouping "(...)", which itself parses as one item.
func (p *Parser) parseIf() ast.Item {
	start := p.advance().Span // 'if'

	if p.at(token.Colon) {
		var cond []ast.Item

		p.advance()
		p.skipNewlines()

		thenItems, elseItems := p.parseIfColonBlock(&cond)

		return &ast.IfItem{Cond: cond, Then: thenItems, Else: elseItems, Sp: start.Merge(p.spanHere())}
	}

	cond := []ast.Item{p.parseItem()}

	if p.at(token.Colon) {
		p.advance()
		p.skipNewlines()

		thenItems, elseItems := p.parseIfBodyBlock()

		return &ast.IfItem{Cond: cond, Then: thenItems, Else: elseItems, Sp: start.Merge(p.spanHere())}
	}

	if p.at(token.KwThen) {
		p.advance()
	}

	var thenItems, elseItems []ast.Item

	for !p.atExprBoundary() {
		thenItems = append(thenItems, p.parseItem())
	}

	if p.at(token.KwElse) {
		p.advance()

		for !p.atExprBoundary() {
			elseItems = append(elseItems, p.parseItem())
		}
	}

	return &ast.IfItem{Cond: cond, Then: thenItems, Else: elseItems, Sp: start.Merge(p.spanHere())}
}

// parseIfBodyBlock parses the indented "then ... / else ..." lines of a
// multi-line "if C:" (spec §4.3).
func (p *Parser) parseIfBodyBlock() (thenItems, elseItems []ast.Item) {
	if !p.at(token.Indent) {
		return nil, nil
	}

	p.advance()

	for !p.at(token.Dedent) && !p.at(token.EOF) {
		p.skipNewlines()

		if p.at(token.Dedent) || p.at(token.EOF) {
			break
		}

		switch {
		case p.at(token.KwThen):
			p.advance()

			thenItems = p.parseBranchLine()
		case p.at(token.KwElse):
			p.advance()

			elseItems = p.parseBranchLine()
		default:
			p.diags.Add(diag.Newf(diag.CodeUnexpectedToken, p.cur().Span,
				"expected 'then' or 'else', found %s", p.cur().Kind))
			p.synchronize()
		}

		p.skipNewlines()
	}

	if p.at(token.Dedent) {
		p.advance()
	}

	return thenItems, elseItems
}

// parseIfColonBlock parses the bare "if:" form, whose indented block
// holds an untagged condition line followed by "then"/"else" lines
// (spec §4.3, §9 "A concrete parse for this layout is not established"
// notes only the block-sugar head case; the plain positional case is
// unambiguous and handled here).
func (p *Parser) parseIfColonBlock(condOut *[]ast.Item) (thenItems, elseItems []ast.Item) {
	if !p.at(token.Indent) {
		return nil, nil
	}

	p.advance()

	for !p.at(token.Dedent) && !p.at(token.EOF) {
		p.skipNewlines()

		if p.at(token.Dedent) || p.at(token.EOF) {
			break
		}

		switch {
		case p.at(token.KwThen):
			p.advance()

			thenItems = p.parseBranchLine()
		case p.at(token.KwElse):
			p.advance()

			elseItems = p.parseBranchLine()
		case len(*condOut) == 0:
			*condOut = p.parseItemList()

			p.skipNewlines()
		default:
			p.diags.Add(diag.Newf(diag.CodeUnexpectedToken, p.cur().Span,
				"expected 'then' or 'else', found %s", p.cur().Kind))
			p.synchronize()
		}

		p.skipNewlines()
	}

	if p.at(token.Dedent) {
		p.advance()
	}

	return thenItems, elseItems
}

func (p *Parser) parseBranchLine() []ast.Item {
	if p.at(token.Colon) {
		blk := p.parseColonBlock()
		return []ast.Item{&ast.BlockItem{Block: blk, Sp: blk.Sp}}
	}

	items := p.parseItemList()

	p.skipNewlines()

	return items
}
