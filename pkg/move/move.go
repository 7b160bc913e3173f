// Package move implements spec §4.7's linear move checker: a
// flow-sensitive pass over each monomorphized function body tracking,
// per binding, whether its owned value is still Live or has been
// Moved. Reading an owned binding (by value) moves it; using an
// already-Moved binding is reported as UseOfMovedValue, with the move
// site attached as a secondary label.
//
// Every binding (parameter, let, match-arm payload) gets its own dense
// slot index, and "moved" is tracked with a bits-and-blooms/bitset
// rather than a map[string]bool — grounded on that library's presence
// in go-corset's own go.mod (promoted here from indirect to direct; see
// DESIGN.md).
package move

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/source"
	"github.com/neplg/neplg2/pkg/types"
)

// Check runs the move analysis over every function body in mod
// (top-level functions and impl methods alike), adding a diagnostic to
// diags for each violation found.
func Check(diags *diag.Set, mod *hir.Module) {
	for _, fn := range mod.Funcs {
		checkFunc(diags, mod.Types, fn)
	}

	for _, impl := range mod.Impls {
		for _, fn := range impl.Methods {
			checkFunc(diags, mod.Types, fn)
		}
	}
}

func checkFunc(diags *diag.Set, arena *types.Arena, fn *hir.Func) {
	if fn.Body == nil {
		return
	}

	c := &checker{diags: diags, arena: arena}
	top := &scope{vars: map[string]binding{}}

	for _, p := range fn.Params {
		top.vars[p.Name] = binding{slot: c.declare()}
	}

	c.walk(fn.Body, top, newState())
}

// checker carries the per-function slot table; a fresh checker is used
// per function since slot indices are only meaningful within one body.
type checker struct {
	diags *diag.Set
	arena *types.Arena
	slots int
}

func (c *checker) declare() uint {
	slot := uint(c.slots)
	c.slots++

	return slot
}

// binding is one name's resolved slot. mut records whether a later
// `set` of this name may resurrect a Moved binding to Live (spec §4.7).
type binding struct {
	slot uint
	mut  bool
}

// scope is a lexical chain of visible bindings, one child per block,
// if/while branch, and match arm — mirroring pkg/typecheck's scope.
type scope struct {
	parent *scope
	vars   map[string]binding
}

func (s *scope) child() *scope {
	return &scope{parent: s, vars: map[string]binding{}}
}

func lookup(sc *scope, name string) (binding, bool) {
	for cur := sc; cur != nil; cur = cur.parent {
		if b, ok := cur.vars[name]; ok {
			return b, true
		}
	}

	return binding{}, false
}

// state is the moved-set at one program point: which slots are
// currently Moved, and where each was moved (for the diagnostic's
// secondary label).
type state struct {
	moved    *bitset.BitSet
	moveSite map[uint]source.Span
}

func newState() *state {
	return &state{moved: bitset.New(64), moveSite: map[uint]source.Span{}}
}

func (s *state) clone() *state {
	site := make(map[uint]source.Span, len(s.moveSite))
	for slot, sp := range s.moveSite {
		site[slot] = sp
	}

	return &state{moved: s.moved.Clone(), moveSite: site}
}

// mergeMoved folds other's moved slots into s: a slot is Moved after a
// join iff it was Moved on any branch (spec §4.7's conservative join).
func (s *state) mergeMoved(other *state) {
	s.moved.InPlaceUnion(other.moved)

	for slot, sp := range other.moveSite {
		if _, ok := s.moveSite[slot]; !ok {
			s.moveSite[slot] = sp
		}
	}
}

func (s *state) moveOut(slot uint, at source.Span) {
	s.moved.Set(slot)
	s.moveSite[slot] = at
}

func (s *state) resurrect(slot uint) {
	s.moved.Clear(slot)
	delete(s.moveSite, slot)
}

// walk traverses n as a value-producing position: a bare reference to
// an owned (non-Copy) binding moves it, a value read from behind a
// reference is reported as MoveBehindRef, and every other node recurses
// into its own sub-expressions, each likewise a value position (spec
// §4.7's "passing an owned value as an argument moves it" generalizes
// uniformly to every place a Node appears in the tree).
func (c *checker) walk(n hir.Node, sc *scope, st *state) {
	switch v := n.(type) {
	case *hir.UnitExpr, *hir.LitExpr:
		return

	case *hir.VarExpr:
		c.useVar(v, sc, st)

	case *hir.AddrOfExpr:
		c.touch(v.Name, v.Sp, sc, st)

	case *hir.DerefExpr:
		c.walk(v.Ref, sc, st)

		if !c.arena.Copy(v.Type()) {
			c.diags.Add(diag.Newf(diag.CodeMoveBehindRef, v.Sp,
				"cannot move a value of type %s out from behind a reference", c.arena.String(v.Type())))
		}

	case *hir.CallExpr:
		for _, a := range v.Args {
			c.walk(a, sc, st)
		}

		if v.CalleeFn != nil {
			c.walk(v.CalleeFn, sc, st)
		}

	case *hir.IfExpr:
		c.walk(v.Cond, sc, st)
		c.branch(v.Then, v.Else, sc, st)

	case *hir.WhileExpr:
		c.walk(v.Cond, sc, st)
		c.loop(v.Body, sc, st)

	case *hir.BlockExpr:
		child := sc.child()

		for _, stmt := range v.Stmts {
			c.walk(stmt, child, st)
		}

		if v.Value != nil {
			c.walk(v.Value, child, st)
		}

	case *hir.MatchExpr:
		c.walkMatch(v, sc, st)

	case *hir.EnumConstructExpr:
		for _, p := range v.Payload {
			c.walk(p, sc, st)
		}

	case *hir.StructConstructExpr:
		for _, f := range v.Fields {
			c.walk(f, sc, st)
		}

	case *hir.TupleConstructExpr:
		for _, e := range v.Elements {
			c.walk(e, sc, st)
		}

	case *hir.LetExpr:
		c.walk(v.Value, sc, st)
		sc.vars[v.Name] = binding{slot: c.declare(), mut: v.Mut}

	case *hir.SetExpr:
		c.walk(v.Value, sc, st)

		if b, ok := lookup(sc, v.Name); ok && b.mut {
			st.resurrect(b.slot)
		}

	case *hir.DropExpr:
		return

	case *hir.FieldAccessExpr:
		// Deliberately does not walk v.Object: field update sugar is the
		// only source of this node, and its Object is always the sugar's
		// own synthetic whole-struct binding, read once per field without
		// being moved out from under the later reads (pkg/typecheck's
		// checkFieldSet).
		return
	}
}

// useVar is a value read of a bare binding: a Copy-typed binding is
// read freely; an owned binding is moved, or diagnosed if already Moved.
func (c *checker) useVar(v *hir.VarExpr, sc *scope, st *state) {
	b, ok := lookup(sc, v.Name)
	if !ok || c.arena.Copy(v.Type()) {
		return
	}

	if st.moved.Test(b.slot) {
		c.reportMoved(v.Name, v.Sp, st, b.slot)
		return
	}

	st.moveOut(b.slot, v.Sp)
}

// touch checks that name isn't already Moved without itself moving it —
// taking &x borrows rather than consumes (spec §4.7 only documents
// by-value moves; address-of is the one read position this checker
// treats as non-consuming).
func (c *checker) touch(name string, at source.Span, sc *scope, st *state) {
	b, ok := lookup(sc, name)
	if !ok {
		return
	}

	if st.moved.Test(b.slot) {
		c.reportMoved(name, at, st, b.slot)
	}
}

func (c *checker) reportMoved(name string, at source.Span, st *state, slot uint) {
	d := diag.Newf(diag.CodeUseOfMoved, at, "%q is used after being moved", name)

	if site, ok := st.moveSite[slot]; ok {
		d = d.WithSecondary(site, "value moved here")
	}

	c.diags.Add(d)
}

// branch analyzes an if's two arms independently from a shared starting
// state and joins them: a binding is Moved afterward iff it was Moved
// on either arm (spec §4.7). A missing else is the Unit literal
// pkg/typecheck already synthesizes, so nothing further moves there.
func (c *checker) branch(then, els hir.Node, sc *scope, st *state) {
	thenSt := st.clone()
	c.walk(then, sc, thenSt)

	elseSt := st.clone()
	c.walk(els, sc, elseSt)

	thenSt.mergeMoved(elseSt)
	*st = *thenSt
}

// loop analyzes a while body twice: a silent probe discovers which
// outer bindings the body itself moves, then the real pass re-walks the
// body starting from a state that already reflects those moves — so a
// use earlier in the body's own text, but logically reachable from a
// prior iteration's move later in the same text, is still flagged
// (spec §4.7: "a while body that moves a binding makes subsequent loop
// iterations reference a moved binding"). After the loop, anything the
// body might move is folded into the continuing state: the loop may
// run zero or more times, so it's moved on some path.
func (c *checker) loop(body hir.Node, sc *scope, st *state) {
	probe := st.clone()

	saved := c.diags
	c.diags = &diag.Set{}
	c.walk(body, sc, probe)
	c.diags = saved

	real := probe.clone()
	c.walk(body, sc, real)

	st.mergeMoved(real)
}

// walkMatch moves the scrutinee only when some arm binds its payload
// (spec §4.7: "a match x: pattern that binds the payload moves x");
// otherwise a bare-variable scrutinee is only checked, not consumed,
// since inspecting a variant's tag needs no ownership of its payload.
func (c *checker) walkMatch(v *hir.MatchExpr, sc *scope, st *state) {
	movesScrutinee := false

	for _, arm := range v.Arms {
		if arm.Binding != "" {
			movesScrutinee = true
			break
		}
	}

	switch scrut := v.Scrutinee.(type) {
	case *hir.VarExpr:
		if movesScrutinee {
			c.useVar(scrut, sc, st)
		} else {
			c.touch(scrut.Name, scrut.Sp, sc, st)
		}
	default:
		c.walk(v.Scrutinee, sc, st)
	}

	var joined *state

	for _, arm := range v.Arms {
		armSc := sc.child()
		armSt := st.clone()

		if arm.Binding != "" {
			armSc.vars[arm.Binding] = binding{slot: c.declare()}
		}

		c.walk(arm.Body, armSc, armSt)

		if joined == nil {
			joined = armSt
		} else {
			joined.mergeMoved(armSt)
		}
	}

	if joined != nil {
		*st = *joined
	}
}
