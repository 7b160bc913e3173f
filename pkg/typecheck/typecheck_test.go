package typecheck

import (
	"testing"

	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/loader"
	"github.com/neplg/neplg2/pkg/resolver"
	"github.com/neplg/neplg2/pkg/types"
)

func checkSource(t *testing.T, files map[string]string, entry, entryFn string) (*hir.Module, *diag.Set) {
	t.Helper()

	ld := loader.New(func(p string) (string, bool) {
		text, ok := files[p]
		return text, ok
	}, "std", nil)

	res, _, diags := ld.Load(entry)
	if diags.HasErrors() {
		t.Fatalf("unexpected loader errors: %v", diags.Items())
	}

	r := resolver.New(diags)
	mods := r.Resolve(res)

	mod := Check(diags, mods, res.EntryPath, entryFn, "wasm", "release")

	return mod, diags
}

func TestCheck_ArithmeticWithPipe(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn main <()->i32> (): add 1 2 |> add 3\n",
	}

	mod, diags := checkSource(t, files, "main.nepl", "main")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}

	if len(mod.Funcs) != 1 {
		t.Fatalf("expected 1 func, got %d", len(mod.Funcs))
	}

	fn := mod.Funcs[0]
	if fn.Result != mod.Types.Primitive(types.I32) {
		t.Fatalf("expected main to return i32, got %s", mod.Types.String(fn.Result))
	}

	if fn.Body == nil || fn.Body.Type() != fn.Result {
		t.Fatalf("expected body type to match declared result")
	}
}

func TestCheck_GenericIdentityReusedAtTwoTypes(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn id <.T> <(.T)->.T> (x): x\n" +
			"fn main <()->i32> (): add id 1 id 2\n",
	}

	_, diags := checkSource(t, files, "main.nepl", "main")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}
}

func TestCheck_MatchIsExhaustive(t *testing.T) {
	files := map[string]string{
		"main.nepl": "enum Option<.T>:\n" +
			"    None\n" +
			"    Some .T\n" +
			"fn unwrap_or <.T> <(Option<.T>, .T)->.T> (o, d): match o: Some v: v; None: d\n" +
			"fn main <()->i32> (): unwrap_or Some 1 0\n",
	}

	_, diags := checkSource(t, files, "main.nepl", "main")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}
}

func TestCheck_NonExhaustiveMatchDiagnosed(t *testing.T) {
	files := map[string]string{
		"main.nepl": "enum Option<.T>:\n" +
			"    None\n" +
			"    Some .T\n" +
			"fn main <()->i32> (): match Some 1: Some v: v\n",
	}

	_, diags := checkSource(t, files, "main.nepl", "main")

	found := false

	for _, d := range diags.Items() {
		if d.Code == diag.CodeNonExhaustiveMatch {
			found = true
		}
	}

	if !found {
		t.Fatalf("expected a non-exhaustive-match diagnostic, got %v", diags.Items())
	}
}

func TestCheck_OverloadResolvedByArgType(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn describe <(i32)->i32> (x): x\n" +
			"fn describe <(bool)->i32> (x): 1\n" +
			"fn main <()->i32> (): describe true\n",
	}

	_, diags := checkSource(t, files, "main.nepl", "main")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}
}

func TestCheck_AmbiguousOverloadDiagnosed(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn pick <.T> <(.T)->i32> (x): 1\n" +
			"fn pick <.U> <(.U)->i32> (x): 2\n" +
			"fn main <()->i32> (): pick 1\n",
	}

	_, diags := checkSource(t, files, "main.nepl", "main")

	found := false

	for _, d := range diags.Items() {
		if d.Code == diag.CodeUnresolvedOverload {
			found = true
		}
	}

	if !found {
		t.Fatalf("expected an unresolved-overload diagnostic, got %v", diags.Items())
	}
}

func TestCheck_ExternIsLowered(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#extern \"env\" \"log\" fn host_log <(i32)->i32>\n" +
			"fn main <()->i32> (): host_log 1\n",
	}

	mod, diags := checkSource(t, files, "main.nepl", "main")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}

	if len(mod.Externs) != 1 {
		t.Fatalf("expected 1 extern, got %d", len(mod.Externs))
	}
}

func TestCheck_MutabilityViolationDiagnosed(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn main <()->i32> (): let x 1; set x 2; x\n",
	}

	_, diags := checkSource(t, files, "main.nepl", "main")

	found := false

	for _, d := range diags.Items() {
		if d.Code == diag.CodeMutabilityViolated {
			found = true
		}
	}

	if !found {
		t.Fatalf("expected a mutability-violation diagnostic for setting an immutable let, got %v", diags.Items())
	}
}

func TestCheck_GenericParameterSyntax(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn bad <()->.T> (): 1\n",
	}

	_, diags := checkSource(t, files, "main.nepl", "bad")

	found := false

	for _, d := range diags.Items() {
		if d.Code == diag.CodeGenericSyntax {
			found = true
		}
	}

	if !found {
		t.Fatalf("expected a generic-parameter-syntax diagnostic for an undeclared .T, got %v", diags.Items())
	}
}

func TestCheck_BlockIntrinsicWrapsValueAsBlockExpr(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn main <()->i32> (): if true block 1 else block 2\n",
	}

	mod, diags := checkSource(t, files, "main.nepl", "main")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}

	body, ok := mod.Funcs[0].Body.(*hir.BlockExpr)
	if !ok {
		t.Fatalf("expected a block body, got %T", mod.Funcs[0].Body)
	}

	ifExpr, ok := body.Value.(*hir.IfExpr)
	if !ok {
		t.Fatalf("expected the body's value to be an IfExpr, got %T", body.Value)
	}

	if _, ok := ifExpr.Then.(*hir.BlockExpr); !ok {
		t.Fatalf("expected 'block 1' to lower to a BlockExpr, got %T", ifExpr.Then)
	}

	if _, ok := ifExpr.Else.(*hir.BlockExpr); !ok {
		t.Fatalf("expected 'block 2' to lower to a BlockExpr, got %T", ifExpr.Else)
	}
}

func TestCheck_BlockIsNotReserved(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn main <()->i32> (): let block 5; block\n",
	}

	mod, diags := checkSource(t, files, "main.nepl", "main")
	if diags.HasErrors() {
		t.Fatalf("expected 'block' to be usable as an ordinary binding name: %v", diags.Items())
	}

	if mod.Funcs[0].Result != mod.Types.Primitive(types.I32) {
		t.Fatalf("expected main to return i32")
	}
}

func TestCheck_BoxUnboxRoundTrip(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn main <()->i32> (): unbox box 1\n",
	}

	mod, diags := checkSource(t, files, "main.nepl", "main")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}

	if mod.Funcs[0].Result != mod.Types.Primitive(types.I32) {
		t.Fatalf("expected 'unbox box 1' to type as i32")
	}
}

func TestCheck_StrLenAndIndex(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn main <()->u8> (): index \"hi\" len \"hi\"\n",
	}

	mod, diags := checkSource(t, files, "main.nepl", "main")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}

	if mod.Funcs[0].Result != mod.Types.Primitive(types.U8) {
		t.Fatalf("expected 'index s (len s)' to type as u8")
	}
}

func TestCheck_FieldSetReconstructsStruct(t *testing.T) {
	files := map[string]string{
		"main.nepl": "struct Point:\n    x i32\n    y i32\n" +
			"fn main <()->i32> (): let q Point::field_set (Point 1 2) x 9; 0\n",
	}

	mod, diags := checkSource(t, files, "main.nepl", "main")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}

	block, ok := mod.Funcs[0].Body.(*hir.BlockExpr)
	if !ok || len(block.Stmts) == 0 {
		t.Fatalf("expected a block body with at least one statement, got %#v", mod.Funcs[0].Body)
	}

	let, ok := block.Stmts[0].(*hir.LetExpr)
	if !ok {
		t.Fatalf("expected first statement to be a let, got %T", block.Stmts[0])
	}

	wrapper, ok := let.Value.(*hir.BlockExpr)
	if !ok {
		t.Fatalf("expected field_set to lower to a synthetic block binding its instance once, got %T", let.Value)
	}

	construct, ok := wrapper.Value.(*hir.StructConstructExpr)
	if !ok {
		t.Fatalf("expected field_set's block value to be a struct reconstruction, got %T", wrapper.Value)
	}

	if len(construct.Fields) != 2 {
		t.Fatalf("expected 2 reconstructed fields, got %d", len(construct.Fields))
	}

	if _, ok := construct.Fields[0].(*hir.LitExpr); !ok {
		t.Fatalf("expected field 0 (x) to be replaced by the new literal value, got %T", construct.Fields[0])
	}

	if _, ok := construct.Fields[1].(*hir.FieldAccessExpr); !ok {
		t.Fatalf("expected field 1 (y) to be read back via FieldAccessExpr, got %T", construct.Fields[1])
	}
}

func TestCheck_FieldSetUnknownFieldDiagnosed(t *testing.T) {
	files := map[string]string{
		"main.nepl": "struct Point:\n    x i32\n    y i32\n" +
			"fn main <()->i32> (): let q Point::field_set (Point 1 2) z 9; 0\n",
	}

	_, diags := checkSource(t, files, "main.nepl", "main")
	if !diags.HasErrors() {
		t.Fatalf("expected an error for a struct field_set naming an unknown field")
	}
}
