package typecheck

import "github.com/neplg/neplg2/pkg/types"

// intrinsicClass distinguishes how an intrinsic's operand/result types
// relate, since NEPL has no operator syntax: "add 1 2" is plain prefix
// application of a compiler-known symbol (spec glossary "intrinsic
// invocations"), not sugar over a user-declared function.
type intrinsicClass int

const (
	intrinsicArith  intrinsicClass = iota // (T,T)->T over I32/U8/F32 (rem: I32/U8 only)
	intrinsicCmp                          // (T,T)->Bool over I32/U8/F32/Bool
	intrinsicLogic2                       // (Bool,Bool)->Bool
	intrinsicLogic1                       // (Bool)->Bool
	intrinsicNeg                          // (T)->T over I32/F32
	intrinsicBox                          // (T)->Boxed(T)
	intrinsicUnbox                        // (Boxed(T))->T
	intrinsicLen                          // (Str)->I32
	intrinsicIndex                        // (Str,I32)->U8
	intrinsicBlock                        // (T)->T; wraps its argument as a one-statement block (checkSymbol special-cases this)
)

var intrinsics = map[string]struct {
	arity int
	class intrinsicClass
}{
	"add":   {2, intrinsicArith},
	"sub":   {2, intrinsicArith},
	"mul":   {2, intrinsicArith},
	"div":   {2, intrinsicArith},
	"rem":   {2, intrinsicArith},
	"eq":    {2, intrinsicCmp},
	"ne":    {2, intrinsicCmp},
	"lt":    {2, intrinsicCmp},
	"le":    {2, intrinsicCmp},
	"gt":    {2, intrinsicCmp},
	"ge":    {2, intrinsicCmp},
	"and":   {2, intrinsicLogic2},
	"or":    {2, intrinsicLogic2},
	"not":   {1, intrinsicLogic1},
	"neg":   {1, intrinsicNeg},
	"box":   {1, intrinsicBox},
	"unbox": {1, intrinsicUnbox},
	"len":   {1, intrinsicLen},
	"index": {2, intrinsicIndex},
	"block": {1, intrinsicBlock},
}

func isNumeric(a *Checker, id types.ID) bool {
	p, ok := a.arena.Kind(id).(types.Primitive)
	return ok && (p == types.I32 || p == types.U8 || p == types.F32)
}

// intrinsicResult type-checks an intrinsic call's already-typed
// arguments and reports its result type. Intrinsics are always Pure:
// they have no side effects to join into a caller's inferred effect.
func (c *Checker) intrinsicResult(name string, argTypes []types.ID) (types.ID, bool) {
	spec := intrinsics[name]

	switch spec.class {
	case intrinsicArith, intrinsicNeg:
		if !isNumeric(c, argTypes[0]) {
			return 0, false
		}

		// wasm has no f32 remainder and no u8 negation.
		if (name == "rem" && argTypes[0] == c.arena.Primitive(types.F32)) ||
			(spec.class == intrinsicNeg && argTypes[0] == c.arena.Primitive(types.U8)) {
			return 0, false
		}

		for _, t := range argTypes[1:] {
			if t != argTypes[0] {
				return 0, false
			}
		}

		return argTypes[0], true

	case intrinsicCmp:
		if argTypes[0] != argTypes[1] {
			return 0, false
		}

		if !isNumeric(c, argTypes[0]) && argTypes[0] != c.arena.Primitive(types.Bool) {
			return 0, false
		}

		return c.arena.Primitive(types.Bool), true

	case intrinsicLogic1, intrinsicLogic2:
		b := c.arena.Primitive(types.Bool)
		for _, t := range argTypes {
			if t != b {
				return 0, false
			}
		}

		return b, true

	case intrinsicBox:
		return c.arena.Intern(types.Boxed{Inner: argTypes[0]}), true

	case intrinsicUnbox:
		boxed, ok := c.arena.Kind(argTypes[0]).(types.Boxed)
		if !ok {
			return 0, false
		}

		return boxed.Inner, true

	case intrinsicLen:
		if argTypes[0] != c.arena.Primitive(types.Str) {
			return 0, false
		}

		return c.arena.Primitive(types.I32), true

	case intrinsicIndex:
		if argTypes[0] != c.arena.Primitive(types.Str) || argTypes[1] != c.arena.Primitive(types.I32) {
			return 0, false
		}

		return c.arena.Primitive(types.U8), true

	default:
		return 0, false
	}
}
