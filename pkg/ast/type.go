package ast

import "github.com/neplg/neplg2/pkg/source"

// TypeExpr is surface-syntax type annotation as written by the
// programmer (spec §3's type kinds, before resolution into pkg/types'
// arena).
type TypeExpr interface {
	Node
	typeExpr()
}

// NamedTypeExpr is a primitive (I32, U8, F32, Bool, Str, Unit, Never) or
// a user-defined struct/enum/trait name, optionally applied to type
// arguments ("Option<i32>").
type NamedTypeExpr struct {
	Name string
	Args []TypeExpr
	Sp   source.Span
}

func (t *NamedTypeExpr) Span() source.Span { return t.Sp }
func (*NamedTypeExpr) typeExpr()           {}

// GenericParamTypeExpr is a leading-dot type parameter reference
// (".T"); omitting the leading dot on a definition is a diagnostic
// (spec §4.5, §8).
type GenericParamTypeExpr struct {
	Name string
	Sp   source.Span
}

func (t *GenericParamTypeExpr) Span() source.Span { return t.Sp }
func (*GenericParamTypeExpr) typeExpr()           {}

// RefTypeExpr is "&T" or "&mut T".
type RefTypeExpr struct {
	Inner TypeExpr
	Mut   bool
	Sp    source.Span
}

func (t *RefTypeExpr) Span() source.Span { return t.Sp }
func (*RefTypeExpr) typeExpr()           {}

// BoxedTypeExpr wraps an explicitly heap-boxed type.
type BoxedTypeExpr struct {
	Inner TypeExpr
	Sp    source.Span
}

func (t *BoxedTypeExpr) Span() source.Span { return t.Sp }
func (*BoxedTypeExpr) typeExpr()           {}

// TupleTypeExpr is "(T1, T2, ...)" used in a type position.
type TupleTypeExpr struct {
	Elems []TypeExpr
	Sp    source.Span
}

func (t *TupleTypeExpr) Span() source.Span { return t.Sp }
func (*TupleTypeExpr) typeExpr()           {}

// Effect is a function type's purity qualifier (spec §3, §4.5).
type Effect int

const (
	Pure Effect = iota
	Impure
)

// FuncTypeExpr is "<(.T, U) -> R>" with an implicit effect (Pure unless
// the function body is later found to call an Impure function).
type FuncTypeExpr struct {
	TypeParams []string // generic parameter names, without leading '.'
	Params     []TypeExpr
	Result     TypeExpr
	Effect     Effect
	Sp         source.Span
}

func (t *FuncTypeExpr) Span() source.Span { return t.Sp }
func (*FuncTypeExpr) typeExpr()           {}
