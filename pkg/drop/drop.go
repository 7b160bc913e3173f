// Package drop implements spec §4.8's automatic destructor insertion: a
// lexical pass over HIR that appends synthetic Drop statements at every
// scope exit, in LIFO order of the scope's let declarations. It runs
// after pkg/mono and pkg/move, on the already-monomorphized,
// already-move-checked function bodies.
//
// Per spec §9's "Move+Drop together" design note, this pass must agree
// with pkg/move about which bindings are still live at a scope's exit:
// a binding already moved out by the time its own scope ends must not
// be dropped there. Rather than consult pkg/move's own diagnostics (it
// only reports violations, it doesn't hand back a per-binding liveness
// table), this pass tracks its own forward moved-state across the same
// value-consuming positions pkg/move defines — every bare read of a
// non-Copy binding moves it, address-of only borrows, and if/while/match
// branches join conservatively (moved after the join iff moved on any
// arm) — so the two passes reach the same verdict on every binding a
// successfully move-checked program can still contain.
package drop

import (
	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/source"
	"github.com/neplg/neplg2/pkg/types"
)

// Insert rewrites every function and impl-method body in mod in place,
// appending Drop statements at each lexical scope exit.
func Insert(mod *hir.Module) {
	for _, fn := range mod.Funcs {
		if fn.Body != nil {
			ins := newInserter(mod.Types)
			top := &declScope{vars: map[string]uint{}}

			for _, p := range fn.Params {
				top.vars[p.Name] = ins.declare()
			}

			fn.Body = ins.expr(fn.Body, top, ins.newMoved())
		}
	}

	for _, impl := range mod.Impls {
		for _, fn := range impl.Methods {
			if fn.Body == nil {
				continue
			}

			ins := newInserter(mod.Types)
			top := &declScope{vars: map[string]uint{}}

			for _, p := range fn.Params {
				top.vars[p.Name] = ins.declare()
			}

			fn.Body = ins.expr(fn.Body, top, ins.newMoved())
		}
	}
}

type inserter struct {
	arena  *types.Arena
	unitTy types.ID
	slots  uint
}

func newInserter(arena *types.Arena) *inserter {
	return &inserter{arena: arena, unitTy: arena.Primitive(types.Unit)}
}

func (ins *inserter) declare() uint {
	slot := ins.slots
	ins.slots++

	return slot
}

// declScope is the lexical chain of visible bindings, name to slot —
// mirrors pkg/move's own scope so a shadowed name resolves to the
// binding actually in effect at each read.
type declScope struct {
	parent *declScope
	vars   map[string]uint
}

func (s *declScope) child() *declScope {
	return &declScope{parent: s, vars: map[string]uint{}}
}

func lookupSlot(s *declScope, name string) (uint, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if slot, ok := cur.vars[name]; ok {
			return slot, true
		}
	}

	return 0, false
}

// moved is the forward move-state at one program point, keyed by slot.
func (ins *inserter) newMoved() map[uint]bool { return map[uint]bool{} }

func cloneMoved(m map[uint]bool) map[uint]bool {
	c := make(map[uint]bool, len(m))
	for k, v := range m {
		c[k] = v
	}

	return c
}

// mergeMoved folds other into m: a slot is moved after the join iff it
// was moved on either side (spec §4.7/§9's conservative join, which
// drop insertion must match exactly).
func mergeMoved(m, other map[uint]bool) {
	for k, v := range other {
		if v {
			m[k] = true
		}
	}
}

// expr walks n in execution order, recursing into every sub-expression
// so nested blocks at any depth get their own drops, and updating moved
// for every bare non-Copy variable read it passes over.
func (ins *inserter) expr(n hir.Node, sc *declScope, moved map[uint]bool) hir.Node {
	switch v := n.(type) {
	case nil:
		return nil

	case *hir.VarExpr:
		if slot, ok := lookupSlot(sc, v.Name); ok && !ins.arena.Copy(v.Type()) {
			moved[slot] = true
		}

		return v

	case *hir.AddrOfExpr:
		return v

	case *hir.DerefExpr:
		v.Ref = ins.expr(v.Ref, sc, moved)
		return v

	case *hir.BlockExpr:
		return ins.block(v, sc, moved)

	case *hir.IfExpr:
		v.Cond = ins.expr(v.Cond, sc, moved)

		thenMoved := cloneMoved(moved)
		v.Then = ins.scoped(v.Then, sc, thenMoved)

		elseMoved := cloneMoved(moved)
		if v.Else != nil {
			v.Else = ins.scoped(v.Else, sc, elseMoved)
		}

		for k := range moved {
			delete(moved, k)
		}

		mergeMoved(moved, thenMoved)
		mergeMoved(moved, elseMoved)

		return v

	case *hir.WhileExpr:
		v.Cond = ins.expr(v.Cond, sc, moved)
		v.Body = ins.scoped(v.Body, sc, moved)

		return v

	case *hir.MatchExpr:
		v.Scrutinee = ins.expr(v.Scrutinee, sc, moved)

		var joined map[uint]bool

		for i := range v.Arms {
			armMoved := cloneMoved(moved)
			ins.arm(&v.Arms[i], sc, armMoved)

			if joined == nil {
				joined = armMoved
			} else {
				mergeMoved(joined, armMoved)
			}
		}

		if joined != nil {
			for k := range moved {
				delete(moved, k)
			}

			mergeMoved(moved, joined)
		}

		return v

	case *hir.LetExpr:
		v.Value = ins.expr(v.Value, sc, moved)
		return v

	case *hir.SetExpr:
		v.Value = ins.expr(v.Value, sc, moved)
		return v

	case *hir.CallExpr:
		for i, a := range v.Args {
			v.Args[i] = ins.expr(a, sc, moved)
		}

		if v.CalleeFn != nil {
			v.CalleeFn = ins.expr(v.CalleeFn, sc, moved)
		}

		return v

	case *hir.EnumConstructExpr:
		for i, p := range v.Payload {
			v.Payload[i] = ins.expr(p, sc, moved)
		}

		return v

	case *hir.StructConstructExpr:
		for i, f := range v.Fields {
			v.Fields[i] = ins.expr(f, sc, moved)
		}

		return v

	case *hir.TupleConstructExpr:
		for i, e := range v.Elements {
			v.Elements[i] = ins.expr(e, sc, moved)
		}

		return v

	case *hir.FieldAccessExpr:
		v.Object = ins.expr(v.Object, sc, moved)
		return v

	default:
		return n
	}
}

// scoped treats n as its own lexical scope even when n is not literally
// a BlockExpr (spec §4.8: "if/while branches push and pop their own
// scopes", and an inline, colon-less branch is a single flat item
// sequence that reduces to one Node, not necessarily a block). A block
// already manages its own scope via block. A bare `let` tail is the one
// other shape that introduces a binding outside of a block, so it gets
// wrapped in a synthetic one-statement block carrying its own drop.
// Anything else introduces no binding of its own and is walked plainly.
func (ins *inserter) scoped(n hir.Node, sc *declScope, moved map[uint]bool) hir.Node {
	switch v := n.(type) {
	case nil:
		return nil

	case *hir.BlockExpr:
		return ins.block(v, sc, moved)

	case *hir.LetExpr:
		v.Value = ins.expr(v.Value, sc, moved)
		slot := ins.declare()
		sc.vars[v.Name] = slot

		var drops []hir.Node
		if !moved[slot] {
			drops = []hir.Node{dropOf(ins.unitTy, v.Sp, v.Name)}
		}

		return &hir.BlockExpr{
			Base:  hir.Base{Ty: v.Type(), Sp: v.Sp},
			Value: v,
			Drops: drops,
		}

	default:
		return ins.expr(v, sc, moved)
	}
}

// block processes one BlockExpr's own scope: every let-declared name
// (including the block's own let-typed tail, if any) that is still live
// at the block's exit gets a Drop appended in reverse declaration order
// after Value is computed, so Value remains the block's result (spec
// §4.8 guarantee (i)); a name already moved out by then is skipped
// (spec §9's Move+Drop agreement).
func (ins *inserter) block(b *hir.BlockExpr, parent *declScope, moved map[uint]bool) *hir.BlockExpr {
	child := parent.child()

	type decl struct {
		name string
		slot uint
	}

	var decls []decl

	for i, stmt := range b.Stmts {
		b.Stmts[i] = ins.expr(stmt, child, moved)

		if let, ok := b.Stmts[i].(*hir.LetExpr); ok {
			slot := ins.declare()
			child.vars[let.Name] = slot
			decls = append(decls, decl{let.Name, slot})
		}
	}

	b.Value = ins.expr(b.Value, child, moved)

	if let, ok := b.Value.(*hir.LetExpr); ok {
		slot := ins.declare()
		child.vars[let.Name] = slot
		decls = append(decls, decl{let.Name, slot})
	}

	for i := len(decls) - 1; i >= 0; i-- {
		if !moved[decls[i].slot] {
			b.Drops = append(b.Drops, dropOf(ins.unitTy, b.Sp, decls[i].name))
		}
	}

	return b
}

// arm processes one match arm as its own scope: a bound payload is
// declared before the arm body runs, so its Drop (if still live) is the
// outermost (last to run) of the arm's scope, after any drops the
// body's own block contributes.
func (ins *inserter) arm(arm *hir.MatchArm, parent *declScope, moved map[uint]bool) {
	child := parent.child()

	var bindSlot uint

	hasBind := arm.Binding != ""
	if hasBind {
		bindSlot = ins.declare()
		child.vars[arm.Binding] = bindSlot
	}

	body := arm.Body

	switch b := body.(type) {
	case *hir.BlockExpr:
		processed := ins.block(b, child, moved)

		if hasBind && !moved[bindSlot] {
			processed.Drops = append(processed.Drops, dropOf(ins.unitTy, processed.Sp, arm.Binding))
		}

		arm.Body = processed

		return

	case *hir.LetExpr:
		b.Value = ins.expr(b.Value, child, moved)
		letSlot := ins.declare()
		child.vars[b.Name] = letSlot
		body = b

		var drops []hir.Node
		if !moved[letSlot] {
			drops = append(drops, dropOf(ins.unitTy, body.Span(), b.Name))
		}

		if hasBind && !moved[bindSlot] {
			drops = append(drops, dropOf(ins.unitTy, body.Span(), arm.Binding))
		}

		if len(drops) == 0 && !hasBind {
			arm.Body = body
			return
		}

		arm.Body = &hir.BlockExpr{Base: hir.Base{Ty: body.Type(), Sp: body.Span()}, Value: body, Drops: drops}

		return

	default:
		body = ins.expr(body, child, moved)
	}

	if !hasBind {
		arm.Body = body
		return
	}

	var drops []hir.Node
	if !moved[bindSlot] {
		drops = append(drops, dropOf(ins.unitTy, body.Span(), arm.Binding))
	}

	arm.Body = &hir.BlockExpr{Base: hir.Base{Ty: body.Type(), Sp: body.Span()}, Value: body, Drops: drops}
}

func dropOf(unitTy types.ID, sp source.Span, name string) hir.Node {
	return &hir.DropExpr{Base: hir.Base{Ty: unitTy, Sp: sp}, Name: name}
}
