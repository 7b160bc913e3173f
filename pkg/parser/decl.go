package parser

import (
	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/token"
)

func (p *Parser) expectIdentText(what string) string {
	id, _ := p.expect(token.Ident, what)
	return id.Text
}

// parseFuncDeclOrAlias parses "fn name ... (params): body" or the
// shorthand "fn alias = other" form (spec §3 "function alias").
func (p *Parser) parseFuncDeclOrAlias(vis ast.Visibility) ast.Stmt {
	start := p.advance().Span // 'fn'

	name := p.expectIdentText("function name")

	if p.at(token.Eq) {
		p.advance()

		other := p.expectIdentText("aliased function name")

		return &ast.FuncAlias{Vis: vis, Name: name, Alias: other, Sp: start.Merge(p.spanHere())}
	}

	typeParams := p.parseOptionalTypeParamList()

	var sig *ast.FuncTypeExpr
	if p.at(token.LAngle) {
		sig = p.parseFuncTypeExpr()
	}

	p.expect(token.LParen, "(")

	var params []ast.Param

	for !p.at(token.RParen) && !p.at(token.EOF) {
		pname := p.expectIdentText("parameter name")
		params = append(params, ast.Param{Name: pname})

		if p.at(token.Comma) {
			p.advance()
		}
	}

	p.expect(token.RParen, ")")

	if sig != nil && len(sig.Params) == len(params) {
		for i := range params {
			params[i].Type = sig.Params[i]
		}
	}

	fn := &ast.FuncDef{Vis: vis, Name: name, TypeParams: typeParams, Params: params, Effect: ast.Pure}
	if sig != nil {
		fn.Result = sig.Result
		fn.Effect = sig.Effect
	}

	p.parseFuncBody(fn)

	fn.Sp = start.Merge(p.spanHere())

	return fn
}

// parseFuncBody fills in fn's BodyKind/Body/RawWasm/RawLLVMIR from the
// colon-introduced body (spec §3 "Function bodies are one of: parsed
// block, raw wasm lines, raw llvm-ir lines").
func (p *Parser) parseFuncBody(fn *ast.FuncDef) {
	p.expect(token.Colon, ":")
	p.skipNewlines()

	switch {
	case p.at(token.RawWasmHeader):
		idx := p.pos
		p.advance()

		fn.BodyKind = ast.BodyRawWasm
		fn.RawWasm = p.convertRaw(idx)

		p.skipNewlines()
	case p.at(token.RawLLVMIRHeader):
		idx := p.pos
		p.advance()

		fn.BodyKind = ast.BodyRawLLVMIR
		fn.RawLLVMIR = p.convertRaw(idx)

		p.skipNewlines()
	case p.at(token.Indent):
		fn.BodyKind = ast.BodyBlock
		fn.Body = p.parseBlock()
	default:
		fn.BodyKind = ast.BodyBlock
		fn.Body = p.parseInlineBlock()
	}
}

// parseInlineBlock parses a same-line body as a sequence of
// semicolon-separated prefix-expression statements, the sugar used by
// bodies like "fn main <()->i32> (): add 1 2" and multi-statement
// variants like "let x v; let y x; let z x" (spec §4.3, §8 example 1).
// A Newline can only ever end such a body (declarations always use the
// indented-block form instead), so this does not recurse through the
// general statement dispatcher.
func (p *Parser) parseInlineBlock() *ast.Block {
	start := p.spanHere()
	blk := &ast.Block{Sp: start}

	for !p.at(token.Newline) && !p.at(token.Dedent) && !p.at(token.EOF) {
		stmtStart := p.spanHere()
		items := p.parseItemList()

		semi := false
		for p.at(token.Semicolon) {
			semi = true

			p.advance()
		}

		blk.Stmts = append(blk.Stmts, &ast.ExprStmt{Items: items, Semicolon: semi, Sp: stmtStart.Merge(p.spanHere())})

		if !semi {
			break
		}
	}

	p.skipNewlines()

	return blk
}

// parseStructDef parses "struct Name<.T,...>: field type; ...".
func (p *Parser) parseStructDef(vis ast.Visibility) ast.Stmt {
	start := p.advance().Span // 'struct'

	name := p.expectIdentText("struct name")
	typeParams := p.parseOptionalTypeParamList()

	p.expect(token.Colon, ":")
	p.skipNewlines()

	var fields []ast.FieldDef

	if p.at(token.Indent) {
		p.advance()

		for !p.at(token.Dedent) && !p.at(token.EOF) {
			p.skipNewlines()

			if p.at(token.Dedent) || p.at(token.EOF) {
				break
			}

			fields = append(fields, p.parseFieldDef())
			p.skipNewlines()
		}

		if p.at(token.Dedent) {
			p.advance()
		}
	} else {
		fields = append(fields, p.parseFieldDef())

		for p.at(token.Semicolon) {
			p.advance()

			if p.at(token.Newline) || p.at(token.Dedent) || p.at(token.EOF) {
				break
			}

			fields = append(fields, p.parseFieldDef())
		}

		p.skipNewlines()
	}

	return &ast.StructDef{Vis: vis, Name: name, TypeParams: typeParams, Fields: fields, Sp: start.Merge(p.spanHere())}
}

func (p *Parser) parseFieldDef() ast.FieldDef {
	name := p.expectIdentText("field name")
	typ := p.parseTypeExpr()

	return ast.FieldDef{Name: name, Type: typ}
}

// parseEnumDef parses "enum Name<.T,...>: Variant1; Variant2 payload...".
func (p *Parser) parseEnumDef(vis ast.Visibility) ast.Stmt {
	start := p.advance().Span // 'enum'

	name := p.expectIdentText("enum name")
	typeParams := p.parseOptionalTypeParamList()

	p.expect(token.Colon, ":")
	p.skipNewlines()

	var variants []ast.VariantDef

	if p.at(token.Indent) {
		p.advance()

		for !p.at(token.Dedent) && !p.at(token.EOF) {
			p.skipNewlines()

			if p.at(token.Dedent) || p.at(token.EOF) {
				break
			}

			variants = append(variants, p.parseVariantDef())
			p.skipNewlines()
		}

		if p.at(token.Dedent) {
			p.advance()
		}
	} else {
		variants = append(variants, p.parseVariantDef())

		for p.at(token.Semicolon) {
			p.advance()

			if p.at(token.Newline) || p.at(token.Dedent) || p.at(token.EOF) {
				break
			}

			variants = append(variants, p.parseVariantDef())
		}

		p.skipNewlines()
	}

	return &ast.EnumDef{Vis: vis, Name: name, TypeParams: typeParams, Variants: variants, Sp: start.Merge(p.spanHere())}
}

func (p *Parser) parseVariantDef() ast.VariantDef {
	name := p.expectIdentText("variant name")

	v := ast.VariantDef{Name: name}

	if p.at(token.Ident) || p.at(token.LAngle) || p.at(token.Amp) || p.at(token.LParen) || p.at(token.Dot) {
		v.Payload = append(v.Payload, ast.FieldDef{Name: name, Type: p.parseTypeExpr()})
	}

	return v
}

// parseTraitDef parses "trait Name<.T>: method sigs...".
func (p *Parser) parseTraitDef(vis ast.Visibility) ast.Stmt {
	start := p.advance().Span // 'trait'

	name := p.expectIdentText("trait name")
	typeParams := p.parseOptionalTypeParamList()

	p.expect(token.Colon, ":")
	p.skipNewlines()

	var methods []ast.TraitMethodSig

	if _, ok := p.expect(token.Indent, "trait body"); ok {
		for !p.at(token.Dedent) && !p.at(token.EOF) {
			p.skipNewlines()

			if p.at(token.Dedent) || p.at(token.EOF) {
				break
			}

			methods = append(methods, p.parseTraitMethodSig())
			p.skipNewlines()
		}

		if p.at(token.Dedent) {
			p.advance()
		}
	}

	return &ast.TraitDef{Vis: vis, Name: name, TypeParams: typeParams, Methods: methods, Sp: start.Merge(p.spanHere())}
}

func (p *Parser) parseTraitMethodSig() ast.TraitMethodSig {
	p.expect(token.KwFn, "fn")

	name := p.expectIdentText("method name")

	sig := &ast.FuncTypeExpr{Effect: ast.Pure}
	if p.at(token.LAngle) {
		sig = p.parseFuncTypeExpr()
	}

	return ast.TraitMethodSig{Name: name, Params: sig.Params, Result: sig.Result, Effect: sig.Effect}
}

// parseImplDef parses "impl Trait for Type: method bodies...".
func (p *Parser) parseImplDef() ast.Stmt {
	start := p.advance().Span // 'impl'

	trait := p.expectIdentText("trait name")

	var traitArgs []ast.TypeExpr
	if p.at(token.LAngle) {
		p.advance()

		traitArgs = p.parseGenericArgs()
	}

	forTok, ok := p.expect(token.Ident, "'for'")
	if !ok {
		p.synchronize()
		return nil
	}

	if forTok.Text != "for" {
		p.diags.Add(diag.Newf(diag.CodeUnexpectedToken, forTok.Span, "expected 'for', found %q", forTok.Text))
	}

	forType := p.parseTypeExpr()

	p.expect(token.Colon, ":")
	p.skipNewlines()

	var methods []*ast.FuncDef

	if _, ok := p.expect(token.Indent, "impl body"); ok {
		for !p.at(token.Dedent) && !p.at(token.EOF) {
			p.skipNewlines()

			if p.at(token.Dedent) || p.at(token.EOF) {
				break
			}

			if !p.at(token.KwFn) {
				p.diags.Add(diag.Newf(diag.CodeUnexpectedToken, p.cur().Span,
					"expected method definition inside impl, found %s", p.cur().Kind))
				p.synchronize()

				continue
			}

			if m, ok := p.parseFuncDeclOrAlias(ast.Public).(*ast.FuncDef); ok {
				methods = append(methods, m)
			}

			p.skipNewlines()
		}

		if p.at(token.Dedent) {
			p.advance()
		}
	}

	return &ast.ImplDef{Trait: trait, TraitArgs: traitArgs, ForType: forType, Methods: methods, Sp: start.Merge(p.spanHere())}
}
