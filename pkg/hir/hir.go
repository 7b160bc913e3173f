// Package hir defines the High-level Intermediate Representation pkg/typecheck
// lowers an AST module into (spec §3 "HIR"). Every expression carries
// its resolved type id from pkg/types; no fresh type variable survives
// past monomorphization (spec §3 invariant (i)).
//
// The node shape — a `Node` sum-type interface satisfied by many small
// structs, each embedding Base and built as a plain struct literal (there
// is no wrapper type and there are no constructor functions) — is
// grounded on go-corset's `pkg/hir/expr.go` (`Expr{Term}` wrapping a
// `Term` interface satisfied by ColumnAccess/Constant/Add/...). NEPL's
// Node variants are spec §3's HIR expression kinds instead of Corset's
// arithmetic term kinds.
package hir

import (
	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/source"
	"github.com/neplg/neplg2/pkg/types"
)

// Node is one HIR expression. Every Node carries the type.ID the
// checker resolved it to.
type Node interface {
	Type() types.ID
	Span() source.Span
	node()
}

// Base is embedded by every Node to supply Type/Span without repeating
// the boilerplate in each variant. Exported so pkg/typecheck can build
// Node literals directly rather than through a constructor per kind.
type Base struct {
	Ty types.ID
	Sp source.Span
}

func (b Base) Type() types.ID    { return b.Ty }
func (b Base) Span() source.Span { return b.Sp }
func (Base) node()               {}

// UnitExpr is the single value of type Unit.
type UnitExpr struct{ Base }

// LitKind distinguishes a typed literal's representation.
type LitKind int

const (
	LitI32 LitKind = iota
	LitU8
	LitF32
	LitBool
	LitStr
)

// LitExpr is a typed literal. Str literals index into the HIR module's
// string pool (spec §3 "string-literal pool (each literal indexed)").
type LitExpr struct {
	Base
	Kind    LitKind
	IntVal  int64
	F32Val  float32
	BoolVal bool
	StrIdx  int
}

// VarExpr reads a local binding by name.
type VarExpr struct {
	Base
	Name string
}

// CallKind distinguishes how a Call's callee resolves.
type CallKind int

const (
	// CallDirect targets a single, already-disambiguated function name
	// (post overload-collapse mangling, spec §4.5).
	CallDirect CallKind = iota
	// CallIndirect targets a function value held in a local/argument.
	CallIndirect
	// CallIntrinsic targets a compiler-known builtin operator.
	CallIntrinsic
	// CallTrait targets a method resolved against the (trait, method,
	// concrete self type) map (spec §4.6 step 3).
	CallTrait
)

// CallExpr applies a callee to a fixed argument list.
type CallExpr struct {
	Base
	Kind     CallKind
	Callee   string // mangled function name, intrinsic name, or trait method name
	Trait    string // set only for CallKind == CallTrait
	Args     []Node
	CalleeFn Node // set only for CallKind == CallIndirect

	// TypeArgs is the generic callee's type arguments as resolved by
	// pkg/typecheck (explicit at the call site or unified from the
	// arguments/expected type). Empty for a non-generic callee.
	// pkg/mono reads this to seed its (generic_fn, type_args) worklist
	// (spec §4.6) and rewrites Callee to the specialization's mangled
	// name once substituted.
	TypeArgs []types.ID
}

// IfExpr is a two-armed conditional; both arms are present (spec §4.8
// notes "if/while branches push and pop their own scopes").
type IfExpr struct {
	Base
	Cond Node
	Then Node
	Else Node
}

// WhileExpr loops while Cond holds.
type WhileExpr struct {
	Base
	Cond Node
	Body Node
}

// BlockExpr is a sequence of statement nodes; Value is the tail
// expression contributing the block's type (nil for a Unit-typed
// block). Drops holds synthetic Drop statements pkg/drop appends after
// Value is computed (spec §4.8 guarantee (i): "the last non-drop
// expression of a block remains the block's value") — they run for
// their side effect only and never change Type, which stays Value's.
type BlockExpr struct {
	Base
	Stmts []Node
	Value Node
	Drops []Node
}

// MatchArm is one lowered match arm: the discriminant tag it matches,
// an optional payload binding name, and the arm's body.
type MatchArm struct {
	Tag     string
	Binding string // "" if the variant carries no payload or it is unused
	Body    Node
}

// MatchExpr dispatches on a scrutinee's variant tag. Exhaustiveness was
// already verified by pkg/typecheck (spec §4.5); Arms covers every
// variant of the scrutinee's enum.
type MatchExpr struct {
	Base
	Scrutinee Node
	Arms      []MatchArm
}

// EnumConstructExpr builds one variant value of an enum.
type EnumConstructExpr struct {
	Base
	Enum    string
	Variant string
	Payload []Node
}

// StructConstructExpr builds a struct value field by field, in
// declaration order.
type StructConstructExpr struct {
	Base
	Struct string
	Fields []Node
}

// FieldAccessExpr reads one field off a struct value by its declaration
// index. pkg/typecheck only ever produces this as part of lowering
// field update sugar (spec §12): the surface language has no general
// field-projection syntax, so this node never appears from an ordinary
// prefix item.
type FieldAccessExpr struct {
	Base
	Struct string
	Object Node
	Index  int
}

// TupleConstructExpr builds a tuple value.
type TupleConstructExpr struct {
	Base
	Elements []Node
}

// LetExpr introduces a new binding. Mut records whether a later Set may
// target it (spec §4.5 "let mut x v makes x assignable by set").
type LetExpr struct {
	Base
	Name  string
	Mut   bool
	Value Node
}

// SetExpr reassigns an existing mutable binding.
type SetExpr struct {
	Base
	Name  string
	Value Node
}

// AddrOfExpr takes a reference to a binding.
type AddrOfExpr struct {
	Base
	Name string
	Mut  bool
}

// DerefExpr dereferences a reference-typed value.
type DerefExpr struct {
	Base
	Ref Node
}

// DropExpr is a synthetic destructor call inserted by pkg/drop at a
// lexical scope exit (spec §4.8). It never appears in HIR produced
// directly by pkg/typecheck.
type DropExpr struct {
	Base
	Name string
}

// Func is one lowered function (spec §3 "functions (name, params,
// result, effect, body, span)"). Name is already overload-collapse
// mangled when the source name was ambiguous (spec §4.5).
type Func struct {
	Name       string
	TypeParams []string
	Params     []Param
	Result     types.ID
	Effect     types.Effect
	Body       Node
	Sp         source.Span

	// RawWasm/RawLLVMIR hold the captured lines of a raw-bodied function
	// (spec §4.3), copied straight off its ast.FuncDef; Body is nil
	// whenever either is non-nil (pkg/typecheck never checks a raw
	// body's expressions, only its declared signature). pkg/wasm and
	// pkg/llvmir read whichever applies directly off this Func rather
	// than re-deriving it from a separate ast-level index.
	RawWasm   []ast.RawLine
	RawLLVMIR []ast.RawLine

	// TypeVars holds, in TypeParams order, the fresh inference variable
	// pkg/typecheck allocated for each generic parameter when it
	// resolved this function's signature and body. pkg/mono binds
	// TypeVars[i] -> a call's concrete type argument i to substitute an
	// entire specialization in one pass, without having to rediscover
	// which IDs are "the T" by re-walking the signature's shape. Empty
	// for a non-generic function.
	TypeVars []types.ID
}

// Param is one lowered function parameter.
type Param struct {
	Name string
	Type types.ID
}

// Extern is a registered host import contributing a type to typecheck
// with no HIR body (spec §4.5 "Extern declarations").
type Extern struct {
	Module string
	Name   string
	Local  string
	Sig    types.ID
	Sp     source.Span
}

// TraitMethod is one method signature a Trait declares.
type TraitMethod struct {
	Name   string
	Params []types.ID
	Result types.ID
	Effect types.Effect
}

// Trait is a lowered trait declaration.
type Trait struct {
	Name       string
	TypeParams []string
	Methods    []TraitMethod
	Sp         source.Span
}

// Impl is one trait implementation for a concrete type, with its
// methods already lowered to concrete (non-generic-on-Self) Funcs.
type Impl struct {
	Trait   string
	ForType types.ID
	Methods []*Func
	Sp      source.Span
}

// Module is the complete lowered program (spec §3 "HIR ... functions,
// externs, string-literal pool ..., traits, impls, and the entry
// name").
type Module struct {
	Funcs   []*Func
	Externs []*Extern
	Traits  []*Trait
	Impls   []*Impl
	Strings []string // dense, stable indices (spec §3 invariant (iii))
	Entry   string
	Types   *types.Arena
}

// InternString appends s to the pool if not already present and
// returns its stable index.
func (m *Module) InternString(s string) int {
	for i, existing := range m.Strings {
		if existing == s {
			return i
		}
	}

	m.Strings = append(m.Strings, s)

	return len(m.Strings) - 1
}
