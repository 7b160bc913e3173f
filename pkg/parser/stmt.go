package parser

import (
	"strconv"

	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/token"
)

// parseStmt parses one statement at the current indentation level (spec
// §3's statement kinds).
func (p *Parser) parseStmt() ast.Stmt {
	switch p.cur().Kind {
	case token.Directive:
		return p.parseDirectiveLine()
	case token.RawWasmHeader:
		return p.parseTopLevelRawWasm()
	case token.RawLLVMIRHeader:
		return p.parseTopLevelRawLLVMIR()
	case token.KwPub:
		p.advance()
		return p.parseVisibleDecl(ast.Public)
	case token.KwFn:
		return p.parseFuncDeclOrAlias(ast.Private)
	case token.KwStruct:
		return p.parseStructDef(ast.Private)
	case token.KwEnum:
		return p.parseEnumDef(ast.Private)
	case token.KwTrait:
		return p.parseTraitDef(ast.Private)
	case token.KwImpl:
		return p.parseImplDef()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseVisibleDecl(vis ast.Visibility) ast.Stmt {
	switch p.cur().Kind {
	case token.KwFn:
		return p.parseFuncDeclOrAlias(vis)
	case token.KwStruct:
		return p.parseStructDef(vis)
	case token.KwEnum:
		return p.parseEnumDef(vis)
	case token.KwTrait:
		return p.parseTraitDef(vis)
	case token.Directive:
		ds, ok := p.parseDirectiveLine().(*ast.DirectiveStmt)
		if !ok {
			return nil
		}

		if ds.Directive.Kind != ast.DirImport {
			p.diags.Add(diag.Newf(diag.CodeUnexpectedToken, ds.Sp,
				"'pub' may only precede an #import directive among directives, found #%s",
				directiveName(ds.Directive.Kind)))
		}

		ds.Directive.Vis = vis

		return ds
	default:
		p.diags.Add(diag.Newf(diag.CodeUnexpectedToken, p.cur().Span,
			"'pub' must be followed by fn/struct/enum/trait/#import, found %s", p.cur().Kind))
		p.synchronize()

		return nil
	}
}

func directiveName(k ast.DirectiveKind) string {
	switch k {
	case ast.DirEntry:
		return "entry"
	case ast.DirTarget:
		return "target"
	case ast.DirIndent:
		return "indent"
	case ast.DirImport:
		return "import"
	case ast.DirInclude:
		return "include"
	case ast.DirUse:
		return "use"
	case ast.DirExtern:
		return "extern"
	case ast.DirIfTarget, ast.DirIfProfile:
		return "if"
	case ast.DirPrelude:
		return "prelude"
	case ast.DirNoPrelude:
		return "no_prelude"
	default:
		return "?"
	}
}

func (p *Parser) parseTopLevelRawWasm() ast.Stmt {
	start := p.cur().Span
	idx := p.pos
	p.advance() // header

	lines := p.convertRaw(idx)
	p.skipNewlines()

	return &ast.RawWasmBlock{Lines: lines, Sp: start}
}

func (p *Parser) parseTopLevelRawLLVMIR() ast.Stmt {
	start := p.cur().Span
	idx := p.pos
	p.advance()

	lines := p.convertRaw(idx)
	p.skipNewlines()

	return &ast.RawLLVMIRBlock{Lines: lines, Sp: start}
}

func (p *Parser) convertRaw(headerTokenIdx int) []ast.RawLine {
	raw := p.raws[headerTokenIdx]
	out := make([]ast.RawLine, len(raw))

	for i, r := range raw {
		out[i] = ast.RawLine{Indent: r.Indent, Text: r.Text}
	}

	return out
}

// parseDirectiveLine parses one "#name ..." directive, consuming to the
// end of its logical line (spec §6).
func (p *Parser) parseDirectiveLine() ast.Stmt {
	tok := p.advance()
	start := tok.Span
	d := ast.Directive{Sp: start}

	switch tok.Text {
	case "entry":
		d.Kind = ast.DirEntry
		if id, ok := p.expect(token.Ident, "entry function name"); ok {
			d.EntryName = id.Text
		}
	case "target":
		d.Kind = ast.DirTarget
		if id, ok := p.expect(token.Ident, "target name"); ok {
			d.Target = id.Text
		}
	case "indent":
		d.Kind = ast.DirIndent
		if n, ok := p.expect(token.IntLit, "indent width"); ok {
			d.IndentWidth, _ = strconv.Atoi(n.Text)
		}
	case "import":
		d.Kind = ast.DirImport
		p.parseImportDirective(&d)
	case "include":
		d.Kind = ast.DirInclude
		if s, ok := p.expect(token.StringLit, "module path"); ok {
			d.Path = s.Text
		}
	case "use":
		d.Kind = ast.DirUse
		if s, ok := p.expect(token.StringLit, "symbol name"); ok {
			d.UseSymbol = s.Text
		}
	case "extern":
		d.Kind = ast.DirExtern
		p.parseExternDirective(&d)
	case "if":
		return p.parseGatedStmt(tok)
	case "prelude":
		d.Kind = ast.DirPrelude
		if s, ok := p.expect(token.StringLit, "prelude path"); ok {
			d.PreludePath = s.Text
		}
	case "no_prelude":
		d.Kind = ast.DirNoPrelude
	default:
		p.diags.Add(diag.Newf(diag.CodeBadDirective, start, "unknown directive #%s", tok.Text))
	}

	d.Sp = d.Sp.Merge(p.spanHere())
	p.skipNewlines()

	return &ast.DirectiveStmt{Directive: d}
}

func (p *Parser) parseImportDirective(d *ast.Directive) {
	s, ok := p.expect(token.StringLit, "import path")
	if !ok {
		return
	}

	d.Path = s.Text

	if !p.at(token.KwAs) {
		d.ImportClause = ast.ImportDefaultAlias
		return
	}

	p.advance()

	switch {
	case p.at(token.Star):
		p.advance()

		d.ImportClause = ast.ImportOpen
	case p.at(token.At):
		p.advance()

		if id, ok := p.expect(token.Ident, "merge"); ok && id.Text == "merge" {
			d.ImportClause = ast.ImportMerge
		}
	case p.at(token.LBracket):
		p.advance()

		d.ImportClause = ast.ImportSelective

		for !p.at(token.RBracket) && !p.at(token.EOF) {
			name, _ := p.expect(token.Ident, "imported name")
			sel := ast.SelectiveName{Name: name.Text, Alias: name.Text}

			if p.at(token.ColonColon) {
				p.advance()
				p.expect(token.Star, "*")
				sel.Name = name.Text + "::*"
				sel.Alias = sel.Name
			} else if p.at(token.KwAs) {
				p.advance()

				if alias, ok := p.expect(token.Ident, "alias"); ok {
					sel.Alias = alias.Text
				}
			}

			d.Selective = append(d.Selective, sel)

			if p.at(token.Comma) {
				p.advance()
			}
		}

		p.expect(token.RBracket, "]")
	default:
		if id, ok := p.expect(token.Ident, "alias"); ok {
			d.ImportClause = ast.ImportAlias
			d.ImportAlias = id.Text
		}
	}
}

func (p *Parser) parseExternDirective(d *ast.Directive) {
	if s, ok := p.expect(token.StringLit, "host module"); ok {
		d.ExternModule = s.Text
	}

	if s, ok := p.expect(token.StringLit, "host name"); ok {
		d.ExternName = s.Text
	}

	p.expect(token.KwFn, "fn")

	if id, ok := p.expect(token.Ident, "local name"); ok {
		d.ExternLocal = id.Text
	}

	if p.at(token.LAngle) {
		d.ExternSig = p.parseFuncTypeExpr()
	}
}

// parseGatedStmt parses "#if[target=X]" or "#if[profile=X]" followed by
// the single statement it guards (spec §4.5, §8).
func (p *Parser) parseGatedStmt(ifTok token.Token) ast.Stmt {
	start := ifTok.Span

	p.expect(token.LBracket, "[")

	name, _ := p.expect(token.Ident, "target or profile")
	p.expect(token.Eq, "=")

	value, _ := p.expect(token.Ident, "gate value")

	p.expect(token.RBracket, "]")
	p.skipNewlines()

	kind := ast.DirIfTarget
	if name.Text == "profile" {
		kind = ast.DirIfProfile
	}

	inner := p.parseStmt()
	if inner == nil {
		return nil
	}

	return &ast.GatedStmt{Gate: kind, On: value.Text, Inner: inner, Sp: start.Merge(inner.Span())}
}
