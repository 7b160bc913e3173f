package lexer

import (
	"testing"

	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/source"
	"github.com/neplg/neplg2/pkg/token"
)

func tokenize(t *testing.T, text string) []token.Token {
	t.Helper()

	m := source.NewMap()
	f := m.Add("test.nepl", text)
	diags := &diag.Set{}
	toks, _ := New(f, diags).Tokenize()

	if diags.HasErrors() {
		t.Fatalf("unexpected lex errors: %v", diags.Items())
	}

	return toks
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tk := range toks {
		out[i] = tk.Kind
	}

	return out
}

func TestLexer_SimpleCall(t *testing.T) {
	toks := tokenize(t, "add 1 2\n")
	got := kinds(toks)
	want := []token.Kind{token.Ident, token.IntLit, token.IntLit, token.Newline, token.EOF}

	if !equalKinds(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLexer_IndentDedent(t *testing.T) {
	text := "fn main:\n    add 1 2\nfn other:\n    add 3 4\n"
	toks := tokenize(t, text)
	got := kinds(toks)

	wantHasIndent, wantHasDedent := false, false

	for _, k := range got {
		if k == token.Indent {
			wantHasIndent = true
		}

		if k == token.Dedent {
			wantHasDedent = true
		}
	}

	if !wantHasIndent || !wantHasDedent {
		t.Fatalf("expected both Indent and Dedent tokens, got %v", got)
	}
}

func TestLexer_RawWasmBlock(t *testing.T) {
	text := "fn f:\n    #wasm:\n        local.get $a\n        i32.const 1\n    add 1 2\n"
	toks := tokenize(t, text)
	m := source.NewMap()
	f := m.Add("test.nepl", text)
	diags := &diag.Set{}
	toks2, raws := New(f, diags).Tokenize()

	_ = toks

	idx := -1

	for i, tk := range toks2 {
		if tk.Kind == token.RawWasmHeader {
			idx = i
		}
	}

	if idx < 0 {
		t.Fatalf("expected a raw wasm header token")
	}

	lines := raws[idx]
	if len(lines) != 2 {
		t.Fatalf("expected 2 captured raw lines, got %d: %v", len(lines), lines)
	}
}

func TestLexer_MLStrBlankLinePreserved(t *testing.T) {
	text := "let s mlstr:\n    first\n\n    third\n"
	m := source.NewMap()
	f := m.Add("test.nepl", text)
	diags := &diag.Set{}
	toks, raws := New(f, diags).Tokenize()

	idx := -1

	for i, tk := range toks {
		if tk.Kind == token.MLStrHeader {
			idx = i
		}
	}

	if idx < 0 {
		t.Fatalf("expected an mlstr header token")
	}

	lines := raws[idx]
	if len(lines) != 3 {
		t.Fatalf("expected 3 captured lines (including blank), got %d", len(lines))
	}

	if lines[1].Text != "" {
		t.Fatalf("expected middle line to be an empty segment, got %q", lines[1].Text)
	}
}

func equalKinds(a, b []token.Kind) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
