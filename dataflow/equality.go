package dataflow

// structurallyEqual implements the structural node equality of spec
// §4.3/§9: two nodes are equal iff they are the same Kind, carry the
// same payload, and their child reference sequences are pointwise
// equal by reference identity. It is only ever used by loop-phi
// resolution to compare a freshly-created Var against a candidate
// break-state value from the same function walk, so reference
// identity on children is sufficient (spec's Open Questions: no deeper
// restructural check is attempted).
func structurallyEqual(a *Arena, x, y Ref) bool {
	if x == y {
		return true
	}

	nx, ny := a.Node(x), a.Node(y)

	if nx.Kind != ny.Kind {
		return false
	}

	switch nx.Kind {
	case KindExpr:
		if nx.Op != ny.Op || nx.Type != ny.Type {
			return false
		}
	case KindVar:
		if nx.Type != ny.Type {
			return false
		}
	case KindCond:
		if nx.CondBlock != ny.CondBlock || nx.CondArm != ny.CondArm {
			return false
		}
	case KindBlock, KindPhi, KindZext, KindBad:
		// no extra payload is compared beyond children; a Phi's Block
		// field is not compared.
	}

	if len(nx.Children) != len(ny.Children) {
		return false
	}
	for i := range nx.Children {
		if nx.Children[i] != ny.Children[i] {
			return false
		}
	}

	return true
}
