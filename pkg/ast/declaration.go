package ast

import "github.com/neplg/neplg2/pkg/source"

// Visibility is "pub" or private (spec §4.4).
type Visibility int

const (
	Private Visibility = iota
	Public
)

// Param is one function parameter.
type Param struct {
	Name string
	Type TypeExpr
}

// FuncBodyKind distinguishes the three body forms spec §3 allows.
type FuncBodyKind int

const (
	BodyBlock FuncBodyKind = iota
	BodyRawWasm
	BodyRawLLVMIR
)

// FuncDef is "fn name <.T,...> <(params) -> result> (params): body",
// including the raw-body forms (spec §3, §4.3).
type FuncDef struct {
	Vis        Visibility
	Name       string
	TypeParams []string // leading '.' stripped; spec §4.5 generics
	Params     []Param
	Result     TypeExpr
	Effect     Effect
	BodyKind   FuncBodyKind
	Body       *Block     // BodyBlock
	RawWasm    []RawLine  // BodyRawWasm
	RawLLVMIR  []RawLine  // BodyRawLLVMIR
	Sp         source.Span
}

func (d *FuncDef) Span() source.Span { return d.Sp }
func (*FuncDef) stmt()               {}

// RawLine is one captured line of a raw embedded body, carried from
// pkg/token into the AST with the same relative-indent convention
// (spec §4.2).
type RawLine struct {
	Indent int
	Text   string
}

// FuncAlias is "fn alias = other_name", binding one more overload-set
// entry name to an existing function without re-specifying its body.
type FuncAlias struct {
	Vis   Visibility
	Name  string
	Alias string
	Sp    source.Span
}

func (d *FuncAlias) Span() source.Span { return d.Sp }
func (*FuncAlias) stmt()               {}

// FieldDef is one struct field or enum variant payload field.
type FieldDef struct {
	Name string
	Type TypeExpr
}

// StructDef is "struct Name<.T,...>: field type; ...".
type StructDef struct {
	Vis        Visibility
	Name       string
	TypeParams []string
	Fields     []FieldDef
	Sp         source.Span
}

func (d *StructDef) Span() source.Span { return d.Sp }
func (*StructDef) stmt()               {}

// VariantDef is one enum variant, optionally carrying a payload.
type VariantDef struct {
	Name    string
	Payload []FieldDef // empty for a payload-less variant
}

// EnumDef is "enum Name<.T,...>: Variant1; Variant2 payload...".
type EnumDef struct {
	Vis        Visibility
	Name       string
	TypeParams []string
	Variants   []VariantDef
	Sp         source.Span
}

func (d *EnumDef) Span() source.Span { return d.Sp }
func (*EnumDef) stmt()               {}

// TraitMethodSig is one method signature declared by a trait.
type TraitMethodSig struct {
	Name   string
	Params []TypeExpr
	Result TypeExpr
	Effect Effect
}

// TraitDef is "trait Name<.T>: method sigs...".
type TraitDef struct {
	Vis        Visibility
	Name       string
	TypeParams []string
	Methods    []TraitMethodSig
	Sp         source.Span
}

func (d *TraitDef) Span() source.Span { return d.Sp }
func (*TraitDef) stmt()               {}

// ImplDef is "impl Trait for Type: method bodies...".
type ImplDef struct {
	Trait      string
	TraitArgs  []TypeExpr
	ForType    TypeExpr
	Methods    []*FuncDef
	Sp         source.Span
}

func (d *ImplDef) Span() source.Span { return d.Sp }
func (*ImplDef) stmt()               {}

// RawWasmBlock is a top-level "#wasm:" block outside any function
// (spec §3 "raw wasm block" statement kind).
type RawWasmBlock struct {
	Lines []RawLine
	Sp    source.Span
}

func (d *RawWasmBlock) Span() source.Span { return d.Sp }
func (*RawWasmBlock) stmt()               {}

// RawLLVMIRBlock is a top-level "#llvmir:" block outside any function.
type RawLLVMIRBlock struct {
	Lines []RawLine
	Sp    source.Span
}

func (d *RawLLVMIRBlock) Span() source.Span { return d.Sp }
func (*RawLLVMIRBlock) stmt()               {}
