package dataflow

import (
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

// resolveLoopPhis implements the loop-phi resolution pass of spec
// §4.3 "Loop" step 4: the one place the arena rewrites nodes allocated
// earlier in the walk (spec §9); Merge only fills in the Block it has
// just allocated.
//
// For each local index i, if every break-state captured for the
// loop's label structurally equals either the provisional Var
// installed at loop entry (vars[i], meaning the body never actually
// observed a divergent value) or the pre-loop value (previous[i],
// meaning some nested merge already collapsed back to it), the loop
// does not need a phi for i: every reference to vars[i] added since
// the loop entry checkpoint (l0) is rewritten to previous[i], and so
// is final.Slots[i] if it still holds vars[i]. Otherwise vars[i] is
// left in place — the value is opaque from here on, by design (it
// would otherwise require a cyclic phi, which the downstream consumer
// cannot reason about).
//
// An empty breakStates list (the loop body never branches back to its
// own label) satisfies the "every break-state" condition vacuously, so
// an unreachable-tail loop collapses to previous[i] too.
func resolveLoopPhis(a *Arena, previous LocalState, vars []Ref, l0 int, final *LocalState, breakStates []LocalState) {
	end := a.Len()

	for i := range vars {
		allMatch := true
		for _, bs := range breakStates {
			v := bs.Slots[i]
			if !structurallyEqual(a, v, vars[i]) && !structurallyEqual(a, v, previous.Slots[i]) {
				allMatch = false
				break
			}
		}
		if !allMatch {
			tlog.V("loopphi").Printw("local kept as var, needs a cyclic phi", "local", i, "var", vars[i], "from", loc.Callers(1, 3))
			continue
		}

		tlog.V("loopphi").Printw("local resolves to pre-loop value", "local", i, "var", vars[i], "previous", previous.Slots[i], "from", loc.Callers(1, 3))

		for r := l0; r < end; r++ {
			n := a.Node(Ref(r))

			changed := false
			for ci, c := range n.Children {
				if c == vars[i] {
					n.Children[ci] = previous.Slots[i]
					changed = true
				}
			}

			if changed {
				a.Set(Ref(r), n)
			}
		}

		if i < len(final.Slots) && final.Slots[i] == vars[i] {
			final.Slots[i] = previous.Slots[i]
		}
	}
}
