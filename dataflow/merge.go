package dataflow

import (
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

// Merge implements the merge/phi engine of spec §4.4. It takes the set
// of FlowStates captured at a control join and an arena to allocate
// into, and returns the merged LocalState.
//
// A Block node (and any Phi attached to it) is allocated lazily, at
// most once per call, and only if at least one local index actually
// diverges across the surviving preds — "a plain sequential scope of
// code produces no merge noise" (spec §4.4).
func Merge(a *Arena, preds []Pred, numLocals int) LocalState {
	live := make([]Pred, 0, len(preds))
	for _, p := range preds {
		if p.State.Reachable() {
			live = append(live, p)
		}
	}

	if len(live) == 0 {
		return LocalState{}
	}

	if len(live) == 1 {
		return live[0].State.clone()
	}

	out := LocalState{Slots: make([]Ref, numLocals)}

	var block Ref
	blockAllocated := false

	ensureBlock := func() Ref {
		if blockAllocated {
			return block
		}

		conds := make([]Ref, len(live))
		for i, p := range live {
			conds[i] = p.Cond
		}

		block = a.Alloc(Node{Kind: KindBlock, Children: conds})

		for i, p := range live {
			if a.IsBad(p.Cond) {
				continue
			}
			conds[i] = a.Alloc(Node{
				Kind:      KindCond,
				CondBlock: block,
				CondArm:   i,
				Children:  []Ref{p.Cond},
			})
		}
		a.Set(block, Node{Kind: KindBlock, Children: conds})

		blockAllocated = true

		return block
	}

	for i := 0; i < numLocals; i++ {
		anyBad := false
		for _, p := range live {
			if a.IsBad(p.State.Slots[i]) {
				anyBad = true
				break
			}
		}
		if anyBad {
			out.Slots[i] = a.Bad()
			continue
		}

		allEqual := true
		first := live[0].State.Slots[i]
		for _, p := range live[1:] {
			if p.State.Slots[i] != first {
				allEqual = false
				break
			}
		}
		if allEqual {
			out.Slots[i] = first
			continue
		}

		b := ensureBlock()

		inputs := make([]Ref, len(live))
		for j, p := range live {
			inputs[j] = ExpandFromI1(a, p.State.Slots[i])
		}

		out.Slots[i] = a.Alloc(Node{Kind: KindPhi, Block: b, Children: inputs})

		tlog.V("merge").Printw("local diverges at merge", "local", i, "block", b, "preds", len(live), "from", loc.Callers(1, 3))
	}

	return out
}
