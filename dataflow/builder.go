package dataflow

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/renesugar/binaryen/wasmir"
)

// Result is everything a single call to Build produced: the Arena
// holding every Node, the final local state the function body flowed
// out with, and the metadata registries an external Souper exporter
// would walk (spec §3 "Set registry" / "Condition map" / "Parent map").
type Result struct {
	Arena *Arena

	Final LocalState

	Sets       []*wasmir.LocalSet
	SetValue   map[*wasmir.LocalSet]Ref
	Conditions map[*wasmir.If]condPair
	Parents    map[any]any
}

// Builder walks one wasmir.Func body and produces its DataFlow graph
// (spec §4). It is single-use: construct a fresh Builder per function,
// mirroring the teacher's back.Compiler/state split (one state per
// compiland).
type Builder struct {
	a *Arena

	f *wasmir.Func

	breaks *breakRegistry
	sets   *setRegistry
	conds  *conditionMap
	parent *parentMap

	locals LocalState
	curr   any // innermost enclosing wasmir node, for parentMap
}

// Build runs the structural walk of spec §4.3 over f.Body and returns
// the resulting graph. It never returns an error for a well-typed
// input: unsupported constructs silently degrade to Bad/Var per spec
// §7 "Error Handling". Build only fails if f itself is malformed
// (nil, or a local index out of range somewhere in the body) — callers
// reach that case through a recovered panic, converted into the typed
// error spec §9's redesign note calls for.
func Build(ctx context.Context, f *wasmir.Func) (res Result, err error) {
	if f == nil || f.Body == nil {
		return Result{}, errors.New("nil function body")
	}

	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "dataflow: build", "func", f.Name)
	defer tr.Finish("err", &err)

	defer func() {
		if p := recover(); p != nil {
			err = errors.New("dataflow.Build: %v", p)
		}
	}()

	b := newBuilder(f)

	b.locals = b.initialState()

	b.visitBlock(f.Body)

	tr.Printw("done", "nodes", b.a.Len())

	return Result{
		Arena:      b.a,
		Final:      b.locals,
		Sets:       b.sets.order,
		SetValue:   b.sets.value,
		Conditions: b.conds.byIf,
		Parents:    b.parent.byChild,
	}, nil
}

func newBuilder(f *wasmir.Func) *Builder {
	return &Builder{
		a:      NewArena(),
		f:      f,
		breaks: newBreakRegistry(),
		sets:   newSetRegistry(),
		conds:  newConditionMap(),
		parent: newParentMap(),
	}
}

// initialState seeds one slot per relevant local, per spec §3 "Initial
// reachable local state": parameters map to a fresh Var of their
// declared type (an unknown incoming value), non-parameter locals map
// to a zero-constant Expr of their declared type — matching the
// original's own makeZero/makeVar split at
// original_source/src/dataflow/builder.h:106-115. A local the predicate
// layer has ruled irrelevant (not integer-typed) starts as Bad; it is
// never read as a value.
func (b *Builder) initialState() LocalState {
	s := LocalState{Slots: make([]Ref, len(b.f.Locals))}

	for i := range s.Slots {
		li := wasmir.Local(i)
		if !isRelevantLocal(b.f, li) {
			s.Slots[i] = b.a.Bad()
			continue
		}
		if b.f.IsParam(li) {
			s.Slots[i] = b.a.AllocVar(b.f.LocalType(li))
		} else {
			s.Slots[i] = b.a.AllocExpr(constZeroOp, b.f.LocalType(li))
		}
	}

	return s
}

// withParent records curr's structural parent and makes curr the
// parent for the nested visit, restoring it on return.
func (b *Builder) withParent(curr any, visit func()) {
	b.parent.set(curr, b.curr)
	prev := b.curr
	b.curr = curr
	visit()
	b.curr = prev
}

// visitBlock walks a Block's body in order, then — if it carries a
// label some branch already targeted — folds every captured break
// state (plus the fallthrough state) into the block's own outgoing
// state (spec §4.3 "Block").
func (b *Builder) visitBlock(blk *wasmir.Block) {
	b.withParent(blk, func() {
		for _, e := range blk.Body {
			b.visit(e)
		}
	})

	if blk.Label == "" {
		return
	}

	states := b.breaks.take(blk.Label)
	if len(states) == 0 {
		return
	}

	preds := make([]Pred, 0, len(states)+1)
	for _, s := range states {
		preds = append(preds, Pred{State: s, Cond: b.a.Bad()})
	}
	preds = append(preds, Pred{State: b.locals, Cond: b.a.Bad()})

	b.locals = Merge(b.a, preds, len(b.f.Locals))
}

// visitIf evaluates the condition, walks each arm from the same
// pre-if snapshot, and merges. Without an Else arm the false side of
// the merge is simply the pre-if state itself — positionally, the
// merge always pairs its first state with the true-arm condition and
// its second with the false-arm condition, regardless of which arm
// that state came from (spec §4.3 "If").
func (b *Builder) visitIf(n *wasmir.If) Ref {
	cond := b.visit(n.Cond)

	trueCond := EnsureI1(b.a, cond)
	falseCond := zeroEq(b.a, cond)
	b.conds.byIf[n] = condPair{True: trueCond, False: falseCond}

	initial := b.locals.clone()

	b.withParent(n, func() {
		b.visitBlock(n.Then)
	})
	afterTrue := b.locals

	var aState, bState LocalState
	if n.Else != nil {
		b.locals = initial.clone()
		b.withParent(n, func() {
			b.visitBlock(n.Else)
		})
		afterFalse := b.locals

		aState, bState = afterTrue, afterFalse
	} else {
		aState, bState = initial, afterTrue
	}

	b.locals = Merge(b.a, []Pred{
		{State: aState, Cond: trueCond},
		{State: bState, Cond: falseCond},
	}, len(b.f.Locals))

	return b.a.Bad()
}

// visitLoop installs a provisional Var per relevant local at the loop
// head, walks the body once, collects every break targeting the
// loop's own label, resolves which of those provisional Vars turned
// out to be unnecessary (resolveLoopPhis), and leaves the rest as
// opaque loop-carried values (spec §4.3 "Loop").
func (b *Builder) visitLoop(n *wasmir.Loop) Ref {
	// An unlabelled loop can never be the target of a Br/BrIf, so no
	// phi is ever possible for it; walk its body in place.
	if n.Label == "" {
		b.withParent(n, func() {
			b.visitBlock(n.Body)
		})
		return b.a.Bad()
	}

	previous := b.locals.clone()
	if !previous.Reachable() {
		// Dead code: nothing reaches this loop, so nothing it contains
		// can contribute to any live state either.
		b.setUnreachable()
		return b.a.Bad()
	}

	vars := make([]Ref, len(b.f.Locals))
	for i := range vars {
		if b.a.IsBad(previous.Slots[i]) {
			vars[i] = b.a.Bad()
			continue
		}
		vars[i] = b.a.AllocVar(b.a.Type(previous.Slots[i]))
	}

	l0 := b.a.Len()

	b.locals = LocalState{Slots: append([]Ref(nil), vars...)}

	b.breaks.take(n.Label)

	b.withParent(n, func() {
		b.visitBlock(n.Body)
	})

	breakStates := b.breaks.take(n.Label)

	final := b.locals
	resolveLoopPhis(b.a, previous, vars, l0, &final, breakStates)
	b.locals = final

	return b.a.Bad()
}

// visit dispatches on n's concrete type, mirroring the teacher's
// compile7.go switch-per-AST-node style generalized from the old
// textual-source AST to this tree-shaped wasmir.Expr.
func (b *Builder) visit(e wasmir.Expr) Ref {
	if !b.locals.Reachable() {
		return b.a.Bad()
	}

	switch n := e.(type) {
	case *wasmir.Block:
		b.visitBlock(n)
		return b.a.Bad()
	case *wasmir.If:
		return b.visitIf(n)
	case *wasmir.Loop:
		return b.visitLoop(n)
	case *wasmir.Br:
		return b.visitBr(n)
	case *wasmir.BrIf:
		return b.visitBrIf(n)
	case *wasmir.BrTable:
		return b.visitBrTable(n)
	case *wasmir.Return:
		b.setUnreachable()
		return b.a.Bad()
	case wasmir.Unreachable:
		b.setUnreachable()
		return b.a.Bad()
	case wasmir.LocalGet:
		return b.visitLocalGet(n)
	case *wasmir.LocalSet:
		return b.visitLocalSet(n)
	case wasmir.Const:
		return b.a.Alloc(Node{Kind: KindExpr, Op: literalOp, Type: n.Type, Source: n})
	case *wasmir.UnaryOp:
		return b.visitUnary(n)
	case *wasmir.BinaryOp:
		return b.visitBinary(n)
	case *wasmir.Select:
		return b.visitSelect(n)
	case *wasmir.Call:
		return b.a.AllocVar(n.Type)
	case *wasmir.CallIndirect:
		return b.a.AllocVar(n.Type)
	case *wasmir.CallImport:
		return b.a.AllocVar(n.Type)
	case wasmir.GetGlobal:
		return b.a.AllocVar(n.Type)
	case *wasmir.SetGlobal:
		b.visit(n.Value)
		return b.a.Bad()
	case *wasmir.Load:
		b.visit(n.Addr)
		return b.a.AllocVar(n.Type)
	case *wasmir.Store:
		b.visit(n.Addr)
		b.visit(n.Value)
		return b.a.Bad()
	case *wasmir.AtomicRMW, *wasmir.AtomicCmpxchg, *wasmir.AtomicWait, *wasmir.AtomicWake:
		b.visitChildren(e)
		return b.a.Bad()
	case *wasmir.Drop:
		b.visit(n.X)
		return b.a.Bad()
	case *wasmir.Host:
		b.visitChildren(e)
		return b.a.Bad()
	case wasmir.Nop:
		return b.a.Bad()
	case *wasmir.GrowMemory:
		b.visit(n.Delta)
		return b.a.Bad()
	case wasmir.CurrentMemory:
		return b.a.Bad()
	default:
		b.visitChildren(e)
		return b.a.Bad()
	}
}

func (b *Builder) visitChildren(e wasmir.Expr) {
	for _, c := range e.Children() {
		if c != nil {
			b.visit(c)
		}
	}
}

// literalOp tags an Expr node built straight from a source-IR Const;
// the actual value lives on the Node's Source field, not on Op.
const literalOp wasmir.Op = -3

func (b *Builder) visitBr(n *wasmir.Br) Ref {
	if n.Value != nil {
		b.visit(n.Value)
	}
	b.breaks.record(n.Label, b.locals)
	b.setUnreachable()
	return b.a.Bad()
}

func (b *Builder) visitBrIf(n *wasmir.BrIf) Ref {
	b.visit(n.Cond)
	if n.Value != nil {
		b.visit(n.Value)
	}
	b.breaks.record(n.Label, b.locals)
	return b.a.Bad()
}

func (b *Builder) visitBrTable(n *wasmir.BrTable) Ref {
	b.visit(n.Index)
	if n.Value != nil {
		b.visit(n.Value)
	}

	targets := map[string]struct{}{n.Default: {}}
	for _, t := range n.Targets {
		targets[t] = struct{}{}
	}
	for t := range targets {
		b.breaks.record(t, b.locals)
	}

	b.setUnreachable()
	return b.a.Bad()
}

func (b *Builder) visitLocalGet(n wasmir.LocalGet) Ref {
	if !isRelevantLocal(b.f, n.Index) || !b.locals.Reachable() {
		return b.a.Bad()
	}
	return b.locals.Slots[int(n.Index)]
}

func (b *Builder) visitLocalSet(n *wasmir.LocalSet) Ref {
	if !isRelevantLocal(b.f, n.Index) || !b.locals.Reachable() {
		return b.a.Bad()
	}

	b.parent.set(n, b.curr)

	v := b.visit(n.Value)
	b.locals.Slots[int(n.Index)] = v
	b.sets.record(n, v)

	return b.a.Bad()
}

// visitUnary handles the popcount/clz/ctz family concretely and
// rewrites eqz into the equivalent zero-equality comparison; anything
// else degrades to an opaque Var of the node's declared type (spec
// §4.3 "Unary").
func (b *Builder) visitUnary(n *wasmir.UnaryOp) Ref {
	switch n.Op {
	case wasmir.Clz, wasmir.Ctz, wasmir.Popcnt:
		v := ExpandFromI1(b.a, b.visit(n.X))
		if b.a.IsBad(v) {
			return v
		}
		return b.a.AllocExpr(n.Op, n.Type, v)
	case wasmir.EqZ:
		v := ExpandFromI1(b.a, b.visit(n.X))
		if b.a.IsBad(v) {
			return v
		}
		return zeroEq(b.a, v)
	default:
		b.visit(n.X)
		return b.a.AllocVar(n.Type)
	}
}

// visitBinary evaluates the supported integer arithmetic/compare set
// concretely, normalizes Gt/Ge into the equivalent swapped Lt/Le
// before building the Expr, and otherwise degrades to Var (spec §4.3
// "Binary").
func (b *Builder) visitBinary(n *wasmir.BinaryOp) Ref {
	op, swapped := wasmir.NormalizeCompare(n.Op)

	if !wasmir.SupportedBinary(op) {
		b.visit(n.L)
		b.visit(n.R)
		return b.a.AllocVar(n.Type)
	}

	l, r := n.L, n.R
	if swapped {
		l, r = r, l
	}

	left := ExpandFromI1(b.a, b.visit(l))
	if b.a.IsBad(left) {
		return left
	}
	right := ExpandFromI1(b.a, b.visit(r))
	if b.a.IsBad(right) {
		return right
	}

	return b.a.AllocExpr(op, n.Type, left, right)
}

func (b *Builder) visitSelect(n *wasmir.Select) Ref {
	t := ExpandFromI1(b.a, b.visit(n.True))
	if b.a.IsBad(t) {
		return t
	}
	f := ExpandFromI1(b.a, b.visit(n.False))
	if b.a.IsBad(f) {
		return f
	}
	c := EnsureI1(b.a, b.visit(n.Cond))
	if b.a.IsBad(c) {
		return c
	}
	return b.a.AllocExpr(selectOp, n.Type, c, t, f)
}

// selectOp tags a three-child Expr as a select, distinct from both a
// real binary operator and constZeroOp (adapt.go).
const selectOp wasmir.Op = -2

// setUnreachable marks every subsequent statement in the current
// sequence dead (spec §4.3's Return/Unreachable/Br/BrTable cases) by
// dropping the local state to empty, matching LocalState.Reachable's
// contract.
func (b *Builder) setUnreachable() {
	b.locals = LocalState{}
}
