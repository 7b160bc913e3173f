package parser

import (
	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/token"
)

// parseOptionalTypeParamList parses a leading-dot generic parameter list
// ("<.T, .U>") if one is present at the cursor, stripping the leading dot
// from each name (spec §4.5: omitting it is a diagnostic, enforced here by
// simply requiring it).
func (p *Parser) parseOptionalTypeParamList() []string {
	if !p.at(token.LAngle) {
		return nil
	}

	// A generic-parameter-list group always opens with '.'; a signature
	// group opens with '(' or a bare type name. Peek past the LAngle.
	if p.pos+1 >= len(p.toks) || p.toks[p.pos+1].Kind != token.Dot {
		return nil
	}

	p.advance() // '<'

	var names []string

	for {
		p.expect(token.Dot, ".")

		if id, ok := p.expect(token.Ident, "type parameter name"); ok {
			names = append(names, id.Text)
		}

		if p.at(token.Comma) {
			p.advance()
			continue
		}

		break
	}

	p.expect(token.RAngle, ">")

	return names
}

// parseFuncTypeExpr parses an angle-bracketed function signature
// ("<(.T, U) -> R>"), as used by extern declarations and function
// definitions (spec §3, §4.5).
func (p *Parser) parseFuncTypeExpr() *ast.FuncTypeExpr {
	start := p.cur().Span

	p.expect(token.LAngle, "<")
	p.expect(token.LParen, "(")

	var params []ast.TypeExpr

	for !p.at(token.RParen) && !p.at(token.EOF) {
		params = append(params, p.parseTypeExpr())

		if p.at(token.Comma) {
			p.advance()
		}
	}

	p.expect(token.RParen, ")")
	p.expect(token.Arrow, "->")

	result := p.parseTypeExpr()

	end := p.cur().Span
	p.expect(token.RAngle, ">")

	return &ast.FuncTypeExpr{Params: params, Result: result, Effect: ast.Pure, Sp: start.Merge(end)}
}

// parseAngleTypeAnnotation parses a standalone "<T>" type-annotation item
// (spec §4.5's identity-function annotation), as distinct from a
// generic-argument list immediately trailing an identifier.
func (p *Parser) parseAngleTypeAnnotation() ast.TypeExpr {
	p.expect(token.LAngle, "<")

	t := p.parseTypeExpr()

	p.expect(token.RAngle, ">")

	return t
}

// parseGenericArgs parses the comma-separated type-argument list of an
// already-opened "name<...>" (the LAngle has just been consumed by the
// caller after an adjacency check).
func (p *Parser) parseGenericArgs() []ast.TypeExpr {
	var args []ast.TypeExpr

	for !p.at(token.RAngle) && !p.at(token.EOF) {
		args = append(args, p.parseTypeExpr())

		if p.at(token.Comma) {
			p.advance()
		}
	}

	p.expect(token.RAngle, ">")

	return args
}

// parseTypeExpr parses one type expression in type position (spec §3's
// type kinds): named types with optional generic args, generic parameter
// references, references, boxed types, and tuple types. Function types
// only occur inside an explicit "<...>" group, handled by
// parseFuncTypeExpr.
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	switch p.cur().Kind {
	case token.Dot:
		start := p.advance().Span

		id, _ := p.expect(token.Ident, "generic parameter name")

		return &ast.GenericParamTypeExpr{Name: id.Text, Sp: start.Merge(id.Span)}
	case token.Amp:
		start := p.advance().Span

		mut := false
		if p.at(token.KwMut) {
			p.advance()

			mut = true
		}

		inner := p.parseTypeExpr()

		return &ast.RefTypeExpr{Inner: inner, Mut: mut, Sp: start.Merge(inner.Span())}
	case token.LParen:
		start := p.advance().Span

		var elems []ast.TypeExpr

		for !p.at(token.RParen) && !p.at(token.EOF) {
			elems = append(elems, p.parseTypeExpr())

			if p.at(token.Comma) {
				p.advance()
			}
		}

		end := p.cur().Span
		p.expect(token.RParen, ")")

		return &ast.TupleTypeExpr{Elems: elems, Sp: start.Merge(end)}
	case token.LAngle:
		return p.parseAngleTypeAnnotation()
	default:
		id, ok := p.expect(token.Ident, "type name")
		if !ok {
			return &ast.NamedTypeExpr{Name: "?", Sp: id.Span}
		}

		name := &ast.NamedTypeExpr{Name: id.Text, Sp: id.Span}

		if p.at(token.LAngle) && p.isAdjacent(id.Span.End) {
			p.advance()

			name.Args = p.parseGenericArgs()
			name.Sp = name.Sp.Merge(p.toks[p.pos-1].Span)
		}

		if name.Name == "Box" && len(name.Args) == 1 {
			return &ast.BoxedTypeExpr{Inner: name.Args[0], Sp: name.Sp}
		}

		return name
	}
}

// isAdjacent reports whether the current token starts exactly at byte
// offset prevEnd, i.e. immediately follows some earlier token with no
// intervening whitespace/trivia. Used to tell "name<T>" generic
// arguments apart from a following, unrelated "<..." type-annotation
// item (spec §4.5).
func (p *Parser) isAdjacent(prevEnd int) bool {
	return p.cur().Span.Start == prevEnd
}
