package dataflow

import (
	"github.com/nikandfor/hacked/hfmt"

	"github.com/renesugar/binaryen/wasmir"
)

// Dump renders every node of a, one per line, in allocation order — a
// plain-text view of the graph for debugging and the test suite,
// generalized from the teacher's format.Format over an ast.File to a
// flat Arena instead of a tree.
func Dump(b []byte, a *Arena) []byte {
	for r := 0; r < a.Len(); r++ {
		b = dumpNode(b, a, Ref(r))
	}
	return b
}

func dumpNode(b []byte, a *Arena, r Ref) []byte {
	n := a.Node(r)

	b = hfmt.Appendf(b, "%%%d = ", r)

	switch n.Kind {
	case KindBad:
		b = append(b, "bad"...)
	case KindVar:
		b = hfmt.Appendf(b, "var %v", n.Type)
	case KindExpr:
		b = dumpExpr(b, n)
	case KindPhi:
		b = hfmt.Appendf(b, "phi %%%d", n.Block)
		b = dumpChildren(b, n.Children)
	case KindBlock:
		b = append(b, "block"...)
		b = dumpChildren(b, n.Children)
	case KindCond:
		b = hfmt.Appendf(b, "cond %%%d[%d]", n.CondBlock, n.CondArm)
		b = dumpChildren(b, n.Children)
	case KindZext:
		b = append(b, "zext"...)
		b = dumpChildren(b, n.Children)
	}

	return append(b, '\n')
}

func dumpExpr(b []byte, n Node) []byte {
	switch n.Op {
	case literalOp:
		if c, ok := n.Source.(wasmir.Const); ok {
			if n.Type.IsInteger() {
				return hfmt.Appendf(b, "const %v %d", n.Type, c.I)
			}
			return hfmt.Appendf(b, "const %v %g", n.Type, c.F)
		}
		return hfmt.Appendf(b, "const %v ?", n.Type)
	case constZeroOp:
		return hfmt.Appendf(b, "const %v 0", n.Type)
	case selectOp:
		b = hfmt.Appendf(b, "select %v", n.Type)
		return dumpChildren(b, n.Children)
	default:
		b = hfmt.Appendf(b, "%v %v", n.Op, n.Type)
		return dumpChildren(b, n.Children)
	}
}

func dumpChildren(b []byte, cs []Ref) []byte {
	for _, c := range cs {
		b = hfmt.Appendf(b, " %%%d", c)
	}
	return b
}
