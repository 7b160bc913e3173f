package wasm

import (
	"math"

	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/source"
	"github.com/neplg/neplg2/pkg/types"
	"github.com/neplg/neplg2/pkg/wasm/assemble"
	"github.com/neplg/neplg2/pkg/wasm/module"
	"github.com/neplg/neplg2/pkg/wasm/opcode"
)

// binding is one in-scope name: its static type (needed by Drop/Copy
// checks and by Set), and its wasm local index when the type carries a
// runtime value at all.
type binding struct {
	ty     types.ID
	idx    uint32
	hasIdx bool
}

// scope is the lexical chain of visible bindings, mirroring pkg/drop's
// own declScope so shadowing resolves the same way both passes agree on.
type scope struct {
	parent *scope
	vars   map[string]binding
}

func newScope(parent *scope) *scope { return &scope{parent: parent, vars: map[string]binding{}} }

func (s *scope) child() *scope { return newScope(s) }

func (s *scope) lookup(name string) (binding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.vars[name]; ok {
			return b, true
		}
	}

	return binding{}, false
}

// funcGen compiles one hir.Func's body to wasm instruction bytes.
type funcGen struct {
	g         *Gen
	diags     *diag.Set
	file      source.FileID
	nextLocal uint32
	extra     []opcode.ValType // locals beyond the function's own parameters
	code      []byte
}

// compileFunc appends fn's wasm type, function-section entry, and code
// body to g.m, in that order so its index matches g.funcIdx[fn.Name].
func (g *Gen) compileFunc(fn *hir.Func) {
	params := make([]opcode.ValType, 0, len(fn.Params))
	top := newScope(nil)
	nextLocal := uint32(0)

	for _, p := range fn.Params {
		b := binding{ty: p.Type}
		if vt, ok := g.valType(p.Type); ok {
			b.idx, b.hasIdx = nextLocal, true
			nextLocal++
			params = append(params, vt)
		}

		top.vars[p.Name] = b
	}

	var results []opcode.ValType
	if vt, ok := g.valType(fn.Result); ok {
		results = []opcode.ValType{vt}
	}

	typeIdx := uint32(len(g.m.Types))
	g.m.Types = append(g.m.Types, module.FuncType{Params: params, Results: results})
	g.m.Funcs = append(g.m.Funcs, typeIdx)

	fg := &funcGen{g: g, diags: g.diags, file: fn.Sp.File, nextLocal: nextLocal}

	switch {
	case fn.RawWasm != nil:
		locals := make(assemble.MapLocals, len(fn.Params))
		for i, p := range fn.Params {
			locals[p.Name] = uint32(i)
		}

		fg.code = assemble.Assemble(fn.RawWasm, locals, g.diags, fn.Sp.File)
		fg.code = append(fg.code, byte(opcode.OpEnd))

	case fn.RawLLVMIR != nil:
		g.diags.Add(diag.Newf(diag.CodeRawBodyConflict, fn.Sp,
			"%q has a raw llvm-ir body under the wasm target", fn.Name))
		fg.code = []byte{byte(opcode.OpUnreachable), byte(opcode.OpEnd)}

	case fn.Body != nil:
		fg.emit(fn.Body, top)
		fg.code = append(fg.code, byte(opcode.OpEnd))

	default:
		g.diags.Add(diag.Newf(diag.CodeUnsupportedConstr, fn.Sp, "%q has no wasm-compilable body", fn.Name))
		fg.code = []byte{byte(opcode.OpUnreachable), byte(opcode.OpEnd)}
	}

	var locals []module.LocalEntry
	for _, vt := range fg.extra {
		locals = append(locals, module.LocalEntry{Count: 1, Type: vt})
	}

	g.m.Code = append(g.m.Code, module.FuncBody{Locals: locals, Code: fg.code})
}

func (fg *funcGen) b(op opcode.Op)    { fg.code = append(fg.code, byte(op)) }
func (fg *funcGen) raw(bs ...byte)    { fg.code = append(fg.code, bs...) }

func (fg *funcGen) u32(v uint32) {
	for {
		bb := byte(v & 0x7f)
		v >>= 7

		if v != 0 {
			bb |= 0x80
		}

		fg.code = append(fg.code, bb)

		if v == 0 {
			return
		}
	}
}

func (fg *funcGen) s32(v int32) {
	more := true
	for more {
		bb := byte(v & 0x7f)
		v >>= 7

		if (v == 0 && bb&0x40 == 0) || (v == -1 && bb&0x40 != 0) {
			more = false
		} else {
			bb |= 0x80
		}

		fg.code = append(fg.code, bb)
	}
}

func (fg *funcGen) f32bits(bits uint32) {
	fg.code = append(fg.code, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
}

// newLocal allocates a fresh function-scoped local of vt and returns its
// index. Locals are never reused across bindings; this front end trades
// a few extra wasm locals for a codegen pass with no liveness analysis.
func (fg *funcGen) newLocal(vt opcode.ValType) uint32 {
	idx := fg.nextLocal
	fg.nextLocal++
	fg.extra = append(fg.extra, vt)

	return idx
}

func (fg *funcGen) localGet(idx uint32) { fg.b(opcode.OpLocalGet); fg.u32(idx) }
func (fg *funcGen) localSet(idx uint32) { fg.b(opcode.OpLocalSet); fg.u32(idx) }

func (fg *funcGen) memarg(op opcode.Op, offset uint32) {
	fg.u32(opcode.MemargNaturalAlign(op))
	fg.u32(offset)
}

func (fg *funcGen) load(vt opcode.ValType, offset uint32) {
	if vt == opcode.ValF32 {
		fg.b(opcode.OpF32Load)
		fg.memarg(opcode.OpF32Load, offset)
	} else {
		fg.b(opcode.OpI32Load)
		fg.memarg(opcode.OpI32Load, offset)
	}
}

func (fg *funcGen) store(vt opcode.ValType, offset uint32) {
	if vt == opcode.ValF32 {
		fg.b(opcode.OpF32Store)
		fg.memarg(opcode.OpF32Store, offset)
	} else {
		fg.b(opcode.OpI32Store)
		fg.memarg(opcode.OpI32Store, offset)
	}
}

// blockType emits n's wasm result-type byte for an if/block/loop.
func (fg *funcGen) blockType(id types.ID) {
	if vt, ok := fg.g.valType(id); ok {
		fg.raw(byte(vt))
	} else {
		fg.raw(opcode.BlockTypeEmpty)
	}
}

func (fg *funcGen) unsupported(n hir.Node, what string) {
	fg.diags.Add(diag.Newf(diag.CodeUnsupportedConstr, n.Span(), "wasm codegen: unsupported construct %s", what))
	fg.b(opcode.OpUnreachable)
}

// emit compiles n, leaving exactly the wasm values fg.g.valType(n.Type())
// describes (zero for Unit/Never, one otherwise) on the stack.
func (fg *funcGen) emit(n hir.Node, sc *scope) {
	switch v := n.(type) {
	case nil:
		return

	case *hir.UnitExpr:
		// no runtime value

	case *hir.LitExpr:
		fg.lit(v)

	case *hir.VarExpr:
		if b, ok := sc.lookup(v.Name); ok && b.hasIdx {
			fg.localGet(b.idx)
		}

	case *hir.CallExpr:
		fg.callExpr(v, sc)

	case *hir.IfExpr:
		fg.emit(v.Cond, sc)
		fg.b(opcode.OpIf)
		fg.blockType(v.Type())
		fg.emit(v.Then, sc)
		fg.b(opcode.OpElse)
		fg.emit(v.Else, sc)
		fg.b(opcode.OpEnd)

	case *hir.WhileExpr:
		fg.whileExpr(v, sc)

	case *hir.BlockExpr:
		fg.block(v, sc)

	case *hir.MatchExpr:
		fg.match(v, sc)

	case *hir.EnumConstructExpr:
		fg.enumConstruct(v, sc)

	case *hir.StructConstructExpr:
		fg.aggConstruct(v.Type(), v.Fields, sc)

	case *hir.TupleConstructExpr:
		fg.aggConstruct(v.Type(), v.Elements, sc)

	case *hir.LetExpr:
		fg.let(v, sc)

	case *hir.SetExpr:
		if b, ok := sc.lookup(v.Name); ok {
			fg.emit(v.Value, sc)
			if b.hasIdx {
				fg.localSet(b.idx)
			}
		} else {
			fg.unsupported(n, "set of unknown binding "+v.Name)
		}

	case *hir.AddrOfExpr:
		// References share their referent's representation (a scalar
		// or heap pointer already), so &x compiles to the same value x
		// itself would: this front end never exposes a reference to a
		// Copy scalar's address as distinct from its value (no
		// field/deref-write op reaches that distinction in HIR).
		if b, ok := sc.lookup(v.Name); ok && b.hasIdx {
			fg.localGet(b.idx)
		}

	case *hir.DerefExpr:
		fg.emit(v.Ref, sc)

	case *hir.DropExpr:
		fg.dropName(v, sc)

	case *hir.FieldAccessExpr:
		fg.emit(v.Object, sc)

		vt, ok := fg.g.valType(v.Type())
		if !ok {
			fg.unsupported(v, "field access of a void-typed value")
			return
		}

		fg.load(vt, uint32(v.Index*4))

	default:
		fg.unsupported(n, "unknown node")
	}
}

func (fg *funcGen) lit(v *hir.LitExpr) {
	switch v.Kind {
	case hir.LitI32, hir.LitU8:
		fg.b(opcode.OpI32Const)
		fg.s32(int32(v.IntVal))

	case hir.LitBool:
		fg.b(opcode.OpI32Const)
		if v.BoolVal {
			fg.s32(1)
		} else {
			fg.s32(0)
		}

	case hir.LitF32:
		fg.b(opcode.OpF32Const)
		fg.f32bits(math.Float32bits(v.F32Val))

	case hir.LitStr:
		fg.b(opcode.OpI32Const)
		fg.s32(fg.g.strOffset[v.StrIdx])
	}
}

func (fg *funcGen) whileExpr(v *hir.WhileExpr, sc *scope) {
	fg.b(opcode.OpBlock)
	fg.raw(opcode.BlockTypeEmpty)
	fg.b(opcode.OpLoop)
	fg.raw(opcode.BlockTypeEmpty)

	fg.emit(v.Cond, sc)
	fg.b(opcode.OpI32Eqz)
	fg.b(opcode.OpBrIf)
	fg.u32(1)

	fg.emit(v.Body, sc)
	if _, ok := fg.g.valType(v.Body.Type()); ok {
		fg.b(opcode.OpDrop)
	}

	fg.b(opcode.OpBr)
	fg.u32(0)
	fg.b(opcode.OpEnd)
	fg.b(opcode.OpEnd)
}

func (fg *funcGen) block(v *hir.BlockExpr, parent *scope) {
	sc := parent.child()

	for _, stmt := range v.Stmts {
		fg.emit(stmt, sc)

		if _, ok := fg.g.valType(stmt.Type()); ok {
			fg.b(opcode.OpDrop)
		}
	}

	fg.emit(v.Value, sc)

	for _, d := range v.Drops {
		fg.emit(d, sc)
	}
}

func (fg *funcGen) let(v *hir.LetExpr, sc *scope) {
	fg.emit(v.Value, sc)

	b := binding{ty: v.Type()}
	if vt, ok := fg.g.valType(v.Type()); ok {
		b.idx, b.hasIdx = fg.newLocal(vt), true
		fg.localSet(b.idx)
	}

	sc.vars[v.Name] = b
}

func (fg *funcGen) dropName(v *hir.DropExpr, sc *scope) {
	b, ok := sc.lookup(v.Name)
	if !ok || fg.g.arena.Copy(b.ty) || !b.hasIdx {
		return
	}

	if p, ok := fg.g.arena.Kind(b.ty).(types.Primitive); ok && p == types.Str {
		fg.localGet(b.idx)
		fg.localGet(b.idx)
		fg.load(opcode.ValI32, 0)
		fg.b(opcode.OpI32Const)
		fg.s32(4)
		fg.b(opcode.OpI32Add)
		fg.call("dealloc")

		return
	}

	size, ok := fg.g.sizeOf[b.ty]
	if !ok {
		// Constructed nowhere in the compiled program: this binding
		// only ever arrived as a parameter, so no site recorded a
		// block size for its type. Nothing to safely deallocate.
		return
	}

	fg.localGet(b.idx)
	fg.b(opcode.OpI32Const)
	fg.s32(size)
	fg.call("dealloc")
}

func (fg *funcGen) call(name string) {
	idx, ok := fg.g.funcIdx[name]
	if !ok {
		return
	}

	fg.b(opcode.OpCall)
	fg.u32(idx)
}

func (fg *funcGen) aggConstruct(ty types.ID, fields []hir.Node, sc *scope) {
	size := int32(len(fields)) * 4
	if s, ok := fg.g.sizeOf[ty]; ok {
		size = s
	}

	ptr := fg.allocBlock(size)

	for i, f := range fields {
		fg.localGet(ptr)
		fg.emit(f, sc)

		vt, ok := fg.g.valType(f.Type())
		if !ok {
			fg.b(opcode.OpUnreachable)
			continue
		}

		fg.store(vt, uint32(i*4))
	}

	fg.localGet(ptr)
}

func (fg *funcGen) enumConstruct(v *hir.EnumConstructExpr, sc *scope) {
	size := 4 + int32(len(v.Payload))*4
	if s, ok := fg.g.sizeOf[v.Type()]; ok {
		size = s
	}

	ptr := fg.allocBlock(size)

	fg.localGet(ptr)
	fg.b(opcode.OpI32Const)
	fg.s32(fnv1a32(v.Variant))
	fg.store(opcode.ValI32, 0)

	for i, p := range v.Payload {
		fg.localGet(ptr)
		fg.emit(p, sc)

		vt, ok := fg.g.valType(p.Type())
		if !ok {
			fg.b(opcode.OpUnreachable)
			continue
		}

		fg.store(vt, uint32(4+i*4))
	}

	fg.localGet(ptr)
}

// allocBlock calls the mandatory alloc import with a constant size and
// stashes the returned pointer in a fresh local, returning its index.
func (fg *funcGen) allocBlock(size int32) uint32 {
	fg.b(opcode.OpI32Const)
	fg.s32(size)
	fg.call("alloc")

	ptr := fg.newLocal(opcode.ValI32)
	fg.localSet(ptr)

	return ptr
}

func (fg *funcGen) match(v *hir.MatchExpr, sc *scope) {
	fg.emit(v.Scrutinee, sc)

	ptr := fg.newLocal(opcode.ValI32)
	fg.localSet(ptr)

	tag := fg.newLocal(opcode.ValI32)
	fg.localGet(ptr)
	fg.load(opcode.ValI32, 0)
	fg.localSet(tag)

	fg.matchArm(v, 0, ptr, tag, sc)
}

// matchArm emits a nested if/else chain over v.Arms starting at i,
// compiling to a sequence of tag comparisons (the "br_if as
// appropriate" spec §4.9 asks for, expressed through the structural
// if/else form rather than raw br_if/br_table bytes). The last arm is
// taken unconditionally, relying on pkg/typecheck's exhaustiveness
// check (spec §4.5) rather than re-verifying it here.
func (fg *funcGen) matchArm(v *hir.MatchExpr, i int, ptr, tag uint32, parent *scope) {
	arm := v.Arms[i]

	if i == len(v.Arms)-1 {
		fg.armBody(v, arm, ptr, parent)
		return
	}

	fg.localGet(tag)
	fg.b(opcode.OpI32Const)
	fg.s32(fnv1a32(arm.Tag))
	fg.b(opcode.OpI32Eq)

	fg.b(opcode.OpIf)
	fg.blockType(v.Type())
	fg.armBody(v, arm, ptr, parent)
	fg.b(opcode.OpElse)
	fg.matchArm(v, i+1, ptr, tag, parent)
	fg.b(opcode.OpEnd)
}

func (fg *funcGen) armBody(v *hir.MatchExpr, arm hir.MatchArm, ptr uint32, parent *scope) {
	sc := parent.child()

	if arm.Binding != "" {
		vt := opcode.ValI32
		ty, found := findVarType(arm.Body, arm.Binding)
		if found {
			if t, _ := fg.g.valType(ty); t == opcode.ValF32 {
				vt = opcode.ValF32
			}
		} else {
			// Never read in this arm (or no per-field registry could
			// confirm its type): default to a Copy scalar so Drop
			// leaves it alone rather than risk a wrong dealloc.
			ty = fg.g.arena.Primitive(types.I32)
		}

		local := fg.newLocal(vt)
		fg.localGet(ptr)
		fg.load(vt, 4)
		fg.localSet(local)

		sc.vars[arm.Binding] = binding{ty: ty, idx: local, hasIdx: true}
	}

	fg.emit(arm.Body, sc)
}

// findVarType scans body for the first VarExpr reading name, returning
// its resolved type: a match arm's MatchArm only names its binding, not
// its type, so the binding's own reads (already typed by pkg/typecheck)
// are the only place codegen can recover whether to load it as i32 or
// f32 (see the field-registry note in DESIGN.md).
func findVarType(n hir.Node, name string) (types.ID, bool) {
	switch v := n.(type) {
	case nil:
		return 0, false

	case *hir.VarExpr:
		if v.Name == name {
			return v.Type(), true
		}

	case *hir.IfExpr:
		if ty, ok := findVarType(v.Cond, name); ok {
			return ty, true
		}
		if ty, ok := findVarType(v.Then, name); ok {
			return ty, true
		}
		return findVarType(v.Else, name)

	case *hir.WhileExpr:
		if ty, ok := findVarType(v.Cond, name); ok {
			return ty, true
		}
		return findVarType(v.Body, name)

	case *hir.BlockExpr:
		for _, s := range v.Stmts {
			if ty, ok := findVarType(s, name); ok {
				return ty, true
			}
		}
		return findVarType(v.Value, name)

	case *hir.MatchExpr:
		return findVarType(v.Scrutinee, name)

	case *hir.CallExpr:
		for _, a := range v.Args {
			if ty, ok := findVarType(a, name); ok {
				return ty, true
			}
		}

	case *hir.LetExpr:
		return findVarType(v.Value, name)

	case *hir.SetExpr:
		return findVarType(v.Value, name)

	case *hir.DerefExpr:
		return findVarType(v.Ref, name)

	case *hir.StructConstructExpr:
		for _, f := range v.Fields {
			if ty, ok := findVarType(f, name); ok {
				return ty, true
			}
		}

	case *hir.TupleConstructExpr:
		for _, e := range v.Elements {
			if ty, ok := findVarType(e, name); ok {
				return ty, true
			}
		}

	case *hir.EnumConstructExpr:
		for _, p := range v.Payload {
			if ty, ok := findVarType(p, name); ok {
				return ty, true
			}
		}
	}

	return 0, false
}
