package ast

import "github.com/neplg/neplg2/pkg/source"

// Item is one element of a flat prefix-expression line (spec §3, §4.3,
// §9). Arity is resolved later by pkg/typecheck; the parser never builds
// a call tree.
type Item interface {
	Node
	item()
}

// ExprStmt is a prefix-expression line: a flat ordered list of Items,
// optionally semicolon-terminated one or more times. Per spec §4.3, the
// *count* of trailing semicolons is irrelevant beyond "any semicolon at
// all coerces the statement to Unit."
type ExprStmt struct {
	Items        []Item
	Semicolon    bool
	Sp           source.Span
}

func (s *ExprStmt) Span() source.Span { return s.Sp }
func (*ExprStmt) stmt()               {}

// SymbolItem is a bare identifier reference, optionally with explicit
// type arguments ("name<T,U>"), and a "forced value" flag. pkg/parser
// never sets Forced (the lexer has no "!" token), so it is always false
// in a parsed module.
type SymbolItem struct {
	Name     string
	TypeArgs []TypeExpr
	Forced   bool
	Sp       source.Span
}

func (i *SymbolItem) Span() source.Span { return i.Sp }
func (*SymbolItem) item()               {}

// LiteralKind identifies which of spec §3's typed literals a
// LiteralItem holds.
type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitFloat
	LitBool
	LitString
)

// LiteralItem is a literal value with its span (spec §3).
type LiteralItem struct {
	Kind LiteralKind
	Text string // original text; typecheck parses it into the concrete value
	Sp   source.Span
}

func (i *LiteralItem) Span() source.Span { return i.Sp }
func (*LiteralItem) item()               {}

// TypeAnnotationItem is "<T>", modeling the identity function ".T -> .T"
// per spec §4.5: it constrains the following value without affecting
// runtime behavior. Multiple annotations compose left to right.
type TypeAnnotationItem struct {
	Type TypeExpr
	Sp   source.Span
}

func (i *TypeAnnotationItem) Span() source.Span { return i.Sp }
func (*TypeAnnotationItem) item()               {}

// LetItem is "let x v" or "let mut x v".
type LetItem struct {
	Mut        bool
	Name       string
	Annotation TypeExpr // nil if unannotated
	Sp         source.Span
}

func (i *LetItem) Span() source.Span { return i.Sp }
func (*LetItem) item()               {}

// SetItem is "set x v"; x must be a mutable, in-scope, unmoved binding
// (spec §4.5, §4.7).
type SetItem struct {
	Name string
	Sp   source.Span
}

func (i *SetItem) Span() source.Span { return i.Sp }
func (*SetItem) item()               {}

// IfItem is the canonical normalized form every surface "if" variant
// from spec §4.3 is parsed into: a (cond, then, else) triple, each a
// flat item list.
type IfItem struct {
	Cond []Item
	Then []Item
	Else []Item // empty if no else branch was given; typecheck treats as Unit
	Sp   source.Span
}

func (i *IfItem) Span() source.Span { return i.Sp }
func (*IfItem) item()               {}

// WhileItem is "while C: body".
type WhileItem struct {
	Cond []Item
	Body *Block
	Sp   source.Span
}

func (i *WhileItem) Span() source.Span { return i.Sp }
func (*WhileItem) item()               {}

// BlockItem embeds a nested colon-introduced block as a single item
// (e.g. the body of an if/while, or a standalone grouping block).
type BlockItem struct {
	Block *Block
	Sp    source.Span
}

func (i *BlockItem) Span() source.Span { return i.Sp }
func (*BlockItem) item()               {}

// GroupItem is a parenthesized group used purely for grouping a
// sub-expression, e.g. "(add 1 2)" as an argument.
type GroupItem struct {
	Inner []Item
	Sp    source.Span
}

func (i *GroupItem) Span() source.Span { return i.Sp }
func (*GroupItem) item()               {}

// PipeItem is "|>", rewritten by typecheck per spec §4.5: "x |> f args"
// becomes "f x args".
type PipeItem struct {
	Sp source.Span
}

func (i *PipeItem) Span() source.Span { return i.Sp }
func (*PipeItem) item()               {}

// AddrOfItem is "&x" / "&mut x".
type AddrOfItem struct {
	Mut bool
	Sp  source.Span
}

func (i *AddrOfItem) Span() source.Span { return i.Sp }
func (*AddrOfItem) item()               {}

// DerefItem is "*x".
type DerefItem struct {
	Sp source.Span
}

func (i *DerefItem) Span() source.Span { return i.Sp }
func (*DerefItem) item()               {}

// MatchArm is one "Variant [binding]: body" arm of a MatchItem.
type MatchArm struct {
	Variant string
	Binding string // "" if the variant carries no bound payload name
	Body    *Block
	Sp      source.Span
}

// MatchItem is "match scrutinee: arms..." (spec §4.3). Exhaustiveness is
// not checked by the parser (spec §4.3, deferred to typecheck per §4.5).
type MatchItem struct {
	Scrutinee []Item
	Arms      []MatchArm
	Sp        source.Span
}

func (i *MatchItem) Span() source.Span { return i.Sp }
func (*MatchItem) item()               {}

// FieldSetItem is "StructName::field_set inst field v" (SPEC_FULL §12's
// struct field update sugar). The parser folds it eagerly, since Field
// names a field rather than a value the reduce stack should resolve.
type FieldSetItem struct {
	Struct   string
	Instance Item
	Field    string
	Value    Item
	Sp       source.Span
}

func (i *FieldSetItem) Span() source.Span { return i.Sp }
func (*FieldSetItem) item()               {}

// TupleItem is either the new "Tuple:" block form or the legacy
// "(a, b, c)" parenthesized form (spec §4.3); Legacy distinguishes
// which surface syntax produced it since the type checker accepts them
// under different target/profile conditions (spec §9, resolved in
// SPEC_FULL.md §12).
type TupleItem struct {
	Elements [][]Item
	Legacy   bool
	Sp       source.Span
}

func (i *TupleItem) Span() source.Span { return i.Sp }
func (*TupleItem) item()               {}
