// Package types implements the compiler's type arena: a stable-id table
// of Kind values plus the structural kinds spec §3 names, and the
// Effect lattice used by the checker and monomorphizer.
//
// The arena-of-ids shape is grounded on go-corset's RegisterId/ColumnId
// pattern (pkg/schema/register.go): an opaque integer indexes into a
// table rather than types being compared by pointer or structural
// equality directly, so two occurrences of the same structural type
// (e.g. two calls each producing `Tuple(I32, I32)`) collapse to one id.
// The Kind interface itself (String, and a shape discriminator) follows
// go-corset's `ast.Type` interface (pkg/corset/ast/type.go).
package types

import (
	"fmt"
	"strings"
)

// ID is a stable handle into an Arena. The zero value never denotes a
// valid type; Arena reserves it.
type ID uint32

// Effect is a function's purity (spec §3, §4.5: "a pure function may
// not call an impure function").
type Effect int

const (
	Pure Effect = iota
	Impure
)

func (e Effect) String() string {
	if e == Impure {
		return "impure"
	}

	return "pure"
}

// Join is the least-upper-bound of two effects: impure dominates.
func (e Effect) Join(o Effect) Effect {
	if e == Impure || o == Impure {
		return Impure
	}

	return Pure
}

// Kind is one structural type shape (spec §3's Type kinds). Kind values
// are compared by the Arena after interning, never directly.
type Kind interface {
	String() string
	shape() string // a canonicalization key used for interning
}

// Primitive kinds (spec §3: Unit, I32, U8, F32, Bool, Never, Str).
type Primitive string

const (
	Unit  Primitive = "unit"
	I32   Primitive = "i32"
	U8    Primitive = "u8"
	F32   Primitive = "f32"
	Bool  Primitive = "bool"
	Never Primitive = "never"
	Str   Primitive = "str"
)

func (p Primitive) String() string { return string(p) }
func (p Primitive) shape() string  { return "prim:" + string(p) }

// Named is a nominal struct/enum/trait type with no type arguments.
type Named struct {
	Symbol string
}

func (n Named) String() string { return n.Symbol }
func (n Named) shape() string  { return "named:" + n.Symbol }

// Application is a generic nominal type instantiated with concrete type
// arguments, e.g. `Option<i32>` (spec §3 "Application(constructor,
// args)").
type Application struct {
	Constructor string
	Args        []ID
}

func (a Application) String() string {
	parts := make([]string, len(a.Args))
	for i, id := range a.Args {
		parts[i] = id.String()
	}

	return fmt.Sprintf("%s<%s>", a.Constructor, strings.Join(parts, ","))
}

func (a Application) shape() string {
	parts := make([]string, len(a.Args))
	for i, id := range a.Args {
		parts[i] = id.String()
	}

	return "app:" + a.Constructor + "<" + strings.Join(parts, ",") + ">"
}

// Boxed is a heap-indirected value (spec §3 "Boxed(inner)"; SPEC_FULL
// domain-stack `Box<T>` sugar).
type Boxed struct {
	Inner ID
}

func (b Boxed) String() string { return "Box<" + b.Inner.String() + ">" }
func (b Boxed) shape() string  { return "boxed:" + b.Inner.String() }

// Reference is a borrowed pointer to a value, mutable or not (spec §3
// "Reference(inner, is_mut)").
type Reference struct {
	Inner ID
	Mut   bool
}

func (r Reference) String() string {
	if r.Mut {
		return "&mut " + r.Inner.String()
	}

	return "&" + r.Inner.String()
}

func (r Reference) shape() string {
	mut := "0"
	if r.Mut {
		mut = "1"
	}

	return "ref:" + mut + ":" + r.Inner.String()
}

// Tuple is a fixed-arity, heterogeneous product (spec §3 "Tuple(list)").
type Tuple struct {
	Elements []ID
}

func (t Tuple) String() string {
	parts := make([]string, len(t.Elements))
	for i, id := range t.Elements {
		parts[i] = id.String()
	}

	return "(" + strings.Join(parts, ",") + ")"
}

func (t Tuple) shape() string { return "tuple:(" + strings.Join(idStrings(t.Elements), ",") + ")" }

// Function is a function type carrying its own generic parameters and
// effect (spec §3 "Function{params, result, effect, type_params}").
type Function struct {
	TypeParams []string
	Params     []ID
	Result     ID
	Effect     Effect
}

func (f Function) String() string {
	parts := make([]string, len(f.Params))
	for i, id := range f.Params {
		parts[i] = id.String()
	}

	return fmt.Sprintf("<(%s)->%s>", strings.Join(parts, ","), f.Result.String())
}

func (f Function) shape() string {
	parts := idStrings(f.Params)

	return fmt.Sprintf("fn:(%s)->%s:%s:%s", strings.Join(parts, ","), f.Result.String(),
		f.Effect.String(), strings.Join(f.TypeParams, ","))
}

// Label is a structural discriminator type used for variant-tag
// comparisons during exhaustiveness checking (spec §3 "a label type
// exists for structural variant discrimination").
type Label struct {
	Name string
}

func (l Label) String() string { return "#" + l.Name }
func (l Label) shape() string  { return "label:" + l.Name }

// Var is a fresh inference variable (spec §3 "a fresh-variable kind
// used during inference"). It never survives past monomorphization
// (spec §3 invariant (i)).
type Var struct {
	Seq uint32
}

func (v Var) String() string { return fmt.Sprintf("?%d", v.Seq) }
func (v Var) shape() string  { return fmt.Sprintf("var:%d", v.Seq) }

func idStrings(ids []ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}

	return out
}

func (id ID) String() string { return fmt.Sprintf("t%d", uint32(id)) }

// Arena interns Kind values behind stable IDs, so structurally equal
// types (e.g. two `Tuple(I32, I32)` occurrences built independently)
// collapse to the same ID and can be compared with `==` (spec §3 "a
// type arena assigns stable ids").
type Arena struct {
	kinds   []Kind
	byKey   map[string]ID
	nextVar uint32
}

// NewArena constructs an Arena pre-populated with the built-in
// primitive kinds, so Primitive(p) always finds p already interned.
func NewArena() *Arena {
	a := &Arena{byKey: make(map[string]ID)}
	a.kinds = append(a.kinds, nil) // ID 0 is reserved/invalid

	for _, p := range []Primitive{Unit, I32, U8, F32, Bool, Never, Str} {
		a.intern(p)
	}

	return a
}

func (a *Arena) intern(k Kind) ID {
	key := k.shape()

	if id, ok := a.byKey[key]; ok {
		return id
	}

	id := ID(len(a.kinds))
	a.kinds = append(a.kinds, k)
	a.byKey[key] = id

	return id
}

// Kind returns the Kind behind id.
func (a *Arena) Kind(id ID) Kind { return a.kinds[id] }

// Intern returns the stable ID for k, assigning a fresh one on first
// occurrence.
func (a *Arena) Intern(k Kind) ID { return a.intern(k) }

// Primitive interns one of the built-in primitive kinds.
func (a *Arena) Primitive(p Primitive) ID { return a.intern(p) }

// Fresh allocates a new, distinct inference variable: unlike every
// other Kind, two Fresh() calls are never interned together, even
// though both render as "?N" style names before assignment.
func (a *Arena) Fresh() ID {
	a.nextVar++
	id := a.intern(Var{Seq: a.nextVar})

	return id
}

// IsVar reports whether id still denotes an unresolved inference
// variable.
func (a *Arena) IsVar(id ID) bool {
	_, ok := a.kinds[id].(Var)
	return ok
}

// String renders id via its interned Kind.
func (a *Arena) String(id ID) string {
	if int(id) >= len(a.kinds) || a.kinds[id] == nil {
		return "<invalid type>"
	}

	return a.kinds[id].String()
}

// Copy reports whether id's values may be duplicated implicitly rather
// than moved (spec §4.7: "I32, U8, F32, Bool, Unit, references, and
// other by-value primitives" are Copy; "user-defined structs and enums
// with payloads are owned").
func (a *Arena) Copy(id ID) bool {
	switch k := a.kinds[id].(type) {
	case Primitive:
		return k != Str
	case Reference:
		return true
	case Tuple:
		for _, el := range k.Elements {
			if !a.Copy(el) {
				return false
			}
		}

		return true
	default:
		return false
	}
}
