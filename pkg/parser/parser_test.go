package parser

import (
	"testing"

	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/lexer"
	"github.com/neplg/neplg2/pkg/source"
)

func parseModule(t *testing.T, text string) (*ast.Module, *diag.Set) {
	t.Helper()

	m := source.NewMap()
	f := m.Add("test.nepl", text)
	diags := &diag.Set{}

	toks, raws := lexer.New(f, diags).Tokenize()
	mod := New(f, toks, raws, lexer.DetectIndentUnit(text), diags).ParseModule()

	return mod, diags
}

func requireNoErrors(t *testing.T, diags *diag.Set) {
	t.Helper()

	if diags.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", diags.Items())
	}
}

func TestParser_SimpleArithmeticFunc(t *testing.T) {
	mod, diags := parseModule(t, "fn main <()->i32> (): add 1 2 |> add 3\n")
	requireNoErrors(t, diags)

	if len(mod.Root.Stmts) != 1 {
		t.Fatalf("expected 1 top-level statement, got %d", len(mod.Root.Stmts))
	}

	fn, ok := mod.Root.Stmts[0].(*ast.FuncDef)
	if !ok {
		t.Fatalf("expected *ast.FuncDef, got %T", mod.Root.Stmts[0])
	}

	if fn.Name != "main" || fn.BodyKind != ast.BodyBlock {
		t.Fatalf("unexpected func def: %+v", fn)
	}

	if len(fn.Body.Stmts) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(fn.Body.Stmts))
	}

	es, ok := fn.Body.Stmts[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected *ast.ExprStmt body, got %T", fn.Body.Stmts[0])
	}

	if len(es.Items) != 6 { // add 1 2 |> add 3
		t.Fatalf("expected 6 flat items, got %d: %+v", len(es.Items), es.Items)
	}
}

func TestParser_GenericIdentity(t *testing.T) {
	text := "fn id <.T> <(.T)->.T> (x): x\n"

	mod, diags := parseModule(t, text)
	requireNoErrors(t, diags)

	fn := mod.Root.Stmts[0].(*ast.FuncDef)

	if len(fn.TypeParams) != 1 || fn.TypeParams[0] != "T" {
		t.Fatalf("expected type param T, got %v", fn.TypeParams)
	}

	if len(fn.Params) != 1 || fn.Params[0].Name != "x" {
		t.Fatalf("expected single param x, got %+v", fn.Params)
	}

	if _, ok := fn.Params[0].Type.(*ast.GenericParamTypeExpr); !ok {
		t.Fatalf("expected param type resolved from signature, got %T", fn.Params[0].Type)
	}
}

func TestParser_IfOneLinePositional(t *testing.T) {
	text := "fn f <()->i32> (): if true block 1 else block 2\n"

	mod, diags := parseModule(t, text)
	requireNoErrors(t, diags)

	fn := mod.Root.Stmts[0].(*ast.FuncDef)
	es := fn.Body.Stmts[0].(*ast.ExprStmt)

	ifItem, ok := es.Items[0].(*ast.IfItem)
	if !ok {
		t.Fatalf("expected *ast.IfItem, got %T", es.Items[0])
	}

	if len(ifItem.Cond) != 1 {
		t.Fatalf("expected single-item condition, got %d", len(ifItem.Cond))
	}

	if len(ifItem.Then) != 2 || len(ifItem.Else) != 2 {
		t.Fatalf("expected 2-item then/else (block N), got then=%d else=%d",
			len(ifItem.Then), len(ifItem.Else))
	}
}

func TestParser_MatchEnumVariants(t *testing.T) {
	text := "fn is_some <.T> <(Option)->bool> (o): match o: Some v: true; None: false\n"

	mod, diags := parseModule(t, text)
	requireNoErrors(t, diags)

	fn := mod.Root.Stmts[0].(*ast.FuncDef)
	es := fn.Body.Stmts[0].(*ast.ExprStmt)

	m, ok := es.Items[0].(*ast.MatchItem)
	if !ok {
		t.Fatalf("expected *ast.MatchItem, got %T", es.Items[0])
	}

	if len(m.Arms) != 2 {
		t.Fatalf("expected 2 arms, got %d", len(m.Arms))
	}

	if m.Arms[0].Variant != "Some" || m.Arms[0].Binding != "v" {
		t.Fatalf("unexpected first arm: %+v", m.Arms[0])
	}

	if m.Arms[1].Variant != "None" || m.Arms[1].Binding != "" {
		t.Fatalf("unexpected second arm: %+v", m.Arms[1])
	}
}

func TestParser_MoveViolationShapeParses(t *testing.T) {
	text := "fn f <()->i32> (): let x Wrapper::Val 1; let y x; let z x\n"

	mod, diags := parseModule(t, text)
	requireNoErrors(t, diags)

	fn := mod.Root.Stmts[0].(*ast.FuncDef)
	if len(fn.Body.Stmts) != 3 {
		t.Fatalf("expected 3 statements (one per semicolon-separated let), got %d", len(fn.Body.Stmts))
	}

	for i, st := range fn.Body.Stmts {
		es := st.(*ast.ExprStmt)

		wantSemi := i < 2 // only "let x ...;" and "let y x;" carry a trailing ';'
		if es.Semicolon != wantSemi {
			t.Fatalf("statement %d: expected Semicolon=%v, got %+v", i, wantSemi, es)
		}
	}

	last := fn.Body.Stmts[2].(*ast.ExprStmt)
	if len(last.Items) != 2 {
		t.Fatalf("expected final 'let z x' to have 2 items, got %d: %+v", len(last.Items), last.Items)
	}
}

func TestParser_StructAndEnumDefs(t *testing.T) {
	text := "struct Point:\n    x i32\n    y i32\nenum Option<.T>:\n    None\n    Some .T\n"

	mod, diags := parseModule(t, text)
	requireNoErrors(t, diags)

	if len(mod.Root.Stmts) != 2 {
		t.Fatalf("expected 2 top-level defs, got %d", len(mod.Root.Stmts))
	}

	sd, ok := mod.Root.Stmts[0].(*ast.StructDef)
	if !ok || sd.Name != "Point" || len(sd.Fields) != 2 {
		t.Fatalf("unexpected struct def: %+v", mod.Root.Stmts[0])
	}

	ed, ok := mod.Root.Stmts[1].(*ast.EnumDef)
	if !ok || ed.Name != "Option" || len(ed.Variants) != 2 {
		t.Fatalf("unexpected enum def: %+v", mod.Root.Stmts[1])
	}

	if ed.Variants[0].Name != "None" || len(ed.Variants[0].Payload) != 0 {
		t.Fatalf("expected payload-less None variant, got %+v", ed.Variants[0])
	}

	if ed.Variants[1].Name != "Some" || len(ed.Variants[1].Payload) != 1 {
		t.Fatalf("expected Some<.T> to carry one payload field, got %+v", ed.Variants[1])
	}
}

func TestParser_RawWasmFunctionBody(t *testing.T) {
	text := "fn f <()->i32> ():\n    #wasm:\n        local.get $a\n        i32.const 1\n"

	mod, diags := parseModule(t, text)
	requireNoErrors(t, diags)

	fn := mod.Root.Stmts[0].(*ast.FuncDef)
	if fn.BodyKind != ast.BodyRawWasm {
		t.Fatalf("expected raw wasm body, got kind %v", fn.BodyKind)
	}

	if len(fn.RawWasm) != 2 {
		t.Fatalf("expected 2 raw lines, got %d", len(fn.RawWasm))
	}
}

func TestParser_ImportDirectiveSelective(t *testing.T) {
	text := "#import \"std/list\" as [map, filter as keep]\n"

	mod, _ := parseModule(t, text)

	if len(mod.Directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(mod.Directives))
	}

	d := mod.Directives[0]
	if d.Kind != ast.DirImport || d.ImportClause != ast.ImportSelective {
		t.Fatalf("unexpected directive: %+v", d)
	}

	if len(d.Selective) != 2 || d.Selective[1].Alias != "keep" {
		t.Fatalf("unexpected selective names: %+v", d.Selective)
	}
}

func TestParser_GatedFunctionDef(t *testing.T) {
	text := "#if[target=wasm]\nfn f <()->i32> (): 1\n"

	mod, diags := parseModule(t, text)
	requireNoErrors(t, diags)

	if len(mod.Root.Stmts) != 1 {
		t.Fatalf("expected 1 top-level statement, got %d", len(mod.Root.Stmts))
	}

	g, ok := mod.Root.Stmts[0].(*ast.GatedStmt)
	if !ok {
		t.Fatalf("expected *ast.GatedStmt, got %T", mod.Root.Stmts[0])
	}

	if g.Gate != ast.DirIfTarget || g.On != "wasm" {
		t.Fatalf("unexpected gate: %+v", g)
	}

	if _, ok := g.Inner.(*ast.FuncDef); !ok {
		t.Fatalf("expected guarded *ast.FuncDef, got %T", g.Inner)
	}
}

func TestParser_PubImportReexport(t *testing.T) {
	text := "pub #import \"std/list\" as *\n"

	mod, diags := parseModule(t, text)
	requireNoErrors(t, diags)

	ds, ok := mod.Root.Stmts[0].(*ast.DirectiveStmt)
	if !ok {
		t.Fatalf("expected *ast.DirectiveStmt, got %T", mod.Root.Stmts[0])
	}

	if ds.Directive.Vis != ast.Public || ds.Directive.Kind != ast.DirImport || ds.Directive.ImportClause != ast.ImportOpen {
		t.Fatalf("unexpected pub import: %+v", ds)
	}
}

func TestParser_LegacyTupleLiteral(t *testing.T) {
	text := "fn f <()->i32> (): let t (1, 2, 3)\n"

	mod, diags := parseModule(t, text)
	requireNoErrors(t, diags)

	fn := mod.Root.Stmts[0].(*ast.FuncDef)
	es := fn.Body.Stmts[0].(*ast.ExprStmt)

	if len(es.Items) != 2 {
		t.Fatalf("expected [LetItem, TupleItem], got %d items", len(es.Items))
	}

	tup, ok := es.Items[1].(*ast.TupleItem)
	if !ok || !tup.Legacy || len(tup.Elements) != 3 {
		t.Fatalf("expected legacy 3-tuple, got %+v", es.Items[1])
	}
}
