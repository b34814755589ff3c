package dataflow

import "github.com/renesugar/binaryen/wasmir"

// LocalState is a per-control-path mapping from local-variable index to
// the Node currently representing its value (spec §3 "Local state").
// A nil/empty Slots means Unreachable; len(Slots) == numLocals means
// Reachable, one slot per local.
type LocalState struct {
	Slots []Ref
}

// Reachable reports whether s represents a control path that can still
// flow onward.
func (s LocalState) Reachable() bool { return len(s.Slots) != 0 }

// clone returns an independent copy of s, the plain value-copy snapshot
// spec §9 says correctness never depends on anything more elaborate
// than (e.g. persistent/copy-on-write local vectors are an optimization,
// not a requirement).
func (s LocalState) clone() LocalState {
	if !s.Reachable() {
		return LocalState{}
	}
	cp := make([]Ref, len(s.Slots))
	copy(cp, s.Slots)
	return LocalState{Slots: cp}
}

// Pred pairs a captured LocalState with the Node that gates reaching
// it, mirroring the teacher's df.Pred (compiler/df/df.go) — Cond there
// is a textual condition name; here it is a Ref to a predicate Node
// (Bad when no condition applies, e.g. an unconditional branch).
type Pred struct {
	State LocalState
	Cond  Ref
}

// breakRegistry is the break-state registry of spec §3: for every
// label a branch has targeted from a reachable path, the LocalState
// captured at that branch.
type breakRegistry struct {
	byLabel map[string][]LocalState
}

func newBreakRegistry() *breakRegistry {
	return &breakRegistry{byLabel: make(map[string][]LocalState)}
}

func (r *breakRegistry) record(label string, s LocalState) {
	r.byLabel[label] = append(r.byLabel[label], s.clone())
}

func (r *breakRegistry) take(label string) []LocalState {
	states := r.byLabel[label]
	delete(r.byLabel, label)
	return states
}

// setRegistry is the ordered list of local-assignment expressions plus
// the Node each stored, in source order — the SSA-definition
// enumeration an external Souper exporter would walk (spec §3 "Set
// registry").
type setRegistry struct {
	order []*wasmir.LocalSet
	value map[*wasmir.LocalSet]Ref
}

func newSetRegistry() *setRegistry {
	return &setRegistry{value: make(map[*wasmir.LocalSet]Ref)}
}

func (r *setRegistry) record(set *wasmir.LocalSet, v Ref) {
	r.order = append(r.order, set)
	r.value[set] = v
}

// condPair is the two predicate Nodes recorded per if-expression: the
// true-arm and false-arm (zero-equality) conditions (spec §3
// "Condition map").
type condPair struct {
	True, False Ref
}

// conditionMap is metadata for downstream consumers, keyed by the
// *wasmir.If the conditions were derived from.
type conditionMap struct {
	byIf map[*wasmir.If]condPair
}

func newConditionMap() *conditionMap {
	return &conditionMap{byIf: make(map[*wasmir.If]condPair)}
}

// parentMap records, per control-flow expression and per recorded set,
// its immediate structural parent — purely descriptive metadata for
// consumers (spec §3 "Parent map").
type parentMap struct {
	byChild map[any]any
}

func newParentMap() *parentMap {
	return &parentMap{byChild: make(map[any]any)}
}

func (p *parentMap) set(child, parent any) {
	if parent != nil {
		p.byChild[child] = parent
	}
}
