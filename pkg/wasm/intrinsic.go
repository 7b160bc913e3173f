package wasm

import (
	"github.com/neplg/neplg2/internal/wasminsn"
	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/types"
	"github.com/neplg/neplg2/pkg/wasm/opcode"
)

// callExpr lowers a CallExpr, pushing its arguments in order and then
// either a single wasm call instruction (CallDirect to a function or
// extern) or an intrinsic's corresponding instruction sequence
// (CallIntrinsic). pkg/mono already resolves every reachable CallTrait
// to CallDirect (specCall); a CallTrait or CallIndirect reaching this
// pass unresolved means trait-object or function-value dispatch, which
// the grammar this front end accepts cannot currently produce (see
// pkg/move's DESIGN.md note on CallIndirect), so both fall back to an
// unsupported-construct diagnostic plus `unreachable`.
func (fg *funcGen) callExpr(v *hir.CallExpr, sc *scope) {
	if v.Kind == hir.CallIntrinsic && v.Callee == "neg" && len(v.Args) == 1 && !fg.isF32(v.Args[0].Type()) {
		// No standalone i32 negate in wasm: lower to 0 - x. x must be
		// pushed after the 0, so this bypasses the generic arg-push
		// order below.
		fg.b(opcode.OpI32Const)
		fg.s32(0)
		fg.emit(v.Args[0], sc)
		fg.b(opcode.OpI32Sub)

		return
	}

	if v.Kind == hir.CallIntrinsic && v.Callee == "box" && len(v.Args) == 1 {
		// box allocates its own heap block, so the pointer must exist
		// before the argument's value is stored into it: this bypasses
		// the generic arg-push-then-dispatch order below, mirroring
		// aggConstruct's alloc-then-store-fields shape.
		vt, ok := fg.g.valType(v.Args[0].Type())
		if !ok {
			fg.unsupported(v, "box of a void-typed value")
			return
		}

		ptr := fg.allocBlock(4)
		fg.localGet(ptr)
		fg.emit(v.Args[0], sc)
		fg.store(vt, 0)
		fg.localGet(ptr)

		return
	}

	for _, a := range v.Args {
		fg.emit(a, sc)
	}

	switch v.Kind {
	case hir.CallDirect:
		fg.call(v.Callee)

	case hir.CallIntrinsic:
		fg.intrinsic(v)

	default:
		fg.unsupported(v, "indirect or unresolved trait dispatch")
	}
}

// intrinsic lowers one of pkg/typecheck/intrinsics.go's compiler-known
// operator names to its wasm instruction, picking the signed/unsigned/
// float variant from the first argument's resolved type.
func (fg *funcGen) intrinsic(v *hir.CallExpr) {
	var operand types.ID
	if len(v.Args) > 0 {
		operand = v.Args[0].Type()
	}

	isF32 := fg.isF32(operand)
	isU8 := fg.isPrim(operand, types.U8)

	switch v.Callee {
	case "and":
		fg.b(opcode.OpI32And)
	case "or":
		fg.b(opcode.OpI32Or)
	case "not":
		fg.b(opcode.OpI32Eqz)
	case "neg":
		// Non-f32 neg is handled in callExpr before args are pushed.
		fg.b(opcode.OpF32Neg)
	case "rem":
		// No f32 remainder in wasm; typecheck never admits rem on F32,
		// so only the table's U8/Signed variants (not its F32 sentinel)
		// are ever reached here.
		fg.b(pick(isU8, opcode.OpI32RemU, opcode.OpI32RemS))
	case "unbox":
		// The boxed pointer is already on the stack (arg-push order
		// above); the result's own type tells us whether to load i32
		// or f32 back out.
		vt, ok := fg.g.valType(v.Type())
		if !ok {
			fg.unsupported(v, "unbox of a void-typed value")
			return
		}

		fg.load(vt, 0)
	case "len":
		// Str is a pointer to a 4-byte little-endian length followed by
		// its UTF-8 bytes (buildStringPool); len reads that prefix.
		fg.load(opcode.ValI32, 0)
	case "index":
		// args are [str_ptr, i]; byte address is str_ptr + i + 4, past
		// the length prefix. i32.add pops both pushed operands, so this
		// folds str_ptr+i first and adds the constant offset after.
		fg.b(opcode.OpI32Add)
		fg.b(opcode.OpI32Const)
		fg.s32(4)
		fg.b(opcode.OpI32Add)
		fg.b(opcode.OpI32Load8U)
		fg.memarg(opcode.OpI32Load8U, 0)
	default:
		variants, ok := wasminsn.Lookup(v.Callee)
		if !ok {
			fg.unsupported(v, "unknown intrinsic "+v.Callee)
			return
		}

		switch {
		case isF32:
			fg.b(variants.F32)
		case isU8:
			fg.b(variants.U8)
		default:
			fg.b(variants.Signed)
		}
	}
}

func (fg *funcGen) isF32(id types.ID) bool {
	return fg.isPrim(id, types.F32)
}

func (fg *funcGen) isPrim(id types.ID, p types.Primitive) bool {
	got, ok := fg.g.arena.Kind(id).(types.Primitive)
	return ok && got == p
}

func pick(cond bool, ifTrue, ifFalse opcode.Op) opcode.Op {
	if cond {
		return ifTrue
	}

	return ifFalse
}
