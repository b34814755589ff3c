// Package dataflow builds the DataFlow SSA graph described by the
// WebAssembly-to-Souper conversion: a directed graph of value-producing
// Nodes with explicit control-merge (Block/Phi/Cond) structure, over
// integer types only, with a Bad sentinel standing in for anything the
// graph does not track.
//
// The builder (Builder.Build) performs a single structural walk of a
// wasmir.Func body, consulting the merge engine (merge.go) at control
// joins and the loop-phi resolution pass (loopphi.go) at labelled loop
// exits.
package dataflow

import (
	"tlog.app/go/tlog/tlwire"

	"github.com/renesugar/binaryen/wasmir"
)

// Ref is a stable reference to a Node: an index into an Arena. Per the
// design notes (spec §9), index 0 is reserved for the canonical Bad
// node, so is_bad(r) is a plain equality test against BadRef.
type Ref int

// BadRef is the arena index reserved for the canonical Bad sentinel.
const BadRef Ref = 0

// Kind discriminates the Node variants of spec §3.
type Kind int

const (
	KindBad Kind = iota
	KindVar
	KindExpr
	KindPhi
	KindBlock
	KindCond
	KindZext
)

func (k Kind) String() string {
	switch k {
	case KindBad:
		return "bad"
	case KindVar:
		return "var"
	case KindExpr:
		return "expr"
	case KindPhi:
		return "phi"
	case KindBlock:
		return "block"
	case KindCond:
		return "cond"
	case KindZext:
		return "zext"
	default:
		return "kind(?)"
	}
}

// Node is a tagged union over the DataFlow graph vertex variants of
// spec §3. Only the fields relevant to Kind are meaningful; this
// mirrors the teacher's tagged-sum ir types (ir/ir5.go's Phi/PhiBranch)
// generalized to a single struct instead of one Go type per variant,
// since here every variant must also carry a child-reference sequence
// uniformly (the reimplementation note of spec §9).
type Node struct {
	Kind Kind

	// Expr: operator and result type. Var: declared type.
	Op   wasmir.Op
	Type wasmir.ValType

	// Source is the originating source-IR expression an Expr node was
	// built from, e.g. the wasmir.Const a literal's actual value lives
	// on. Nil for synthetic nodes the builder invents itself (zero
	// constants, select tags) and for every non-Expr Kind.
	Source wasmir.Expr

	// Expr children / Phi inputs / Zext inner value: indices into the
	// same Arena. Block's Children holds its per-arm condition Refs
	// (Bad where no condition is available).
	Children []Ref

	// Phi: the Block it belongs to.
	Block Ref

	// Cond: the Block it annotates and the arm index it gates.
	CondBlock Ref
	CondArm   int
}

// TlogAppend lets tlog render a Node compactly in trace output,
// mirroring the teacher's ir.PhiBranch.TlogAppend (ir/ir5.go).
func (n Node) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, -1)

	b = e.AppendKey(b, "kind")
	b = e.AppendString(b, n.Kind.String())

	switch n.Kind {
	case KindExpr:
		b = e.AppendKey(b, "op")
		b = e.AppendString(b, n.Op.String())
		b = e.AppendKey(b, "type")
		b = e.AppendString(b, n.Type.String())
	case KindVar:
		b = e.AppendKey(b, "type")
		b = e.AppendString(b, n.Type.String())
	case KindCond:
		b = e.AppendKeyInt64(b, "block", int64(n.CondBlock))
		b = e.AppendKeyInt64(b, "arm", int64(n.CondArm))
	}

	if len(n.Children) != 0 {
		b = e.AppendKey(b, "children")
		b = e.AppendArray(b, len(n.Children))
		for _, c := range n.Children {
			b = e.AppendInt64(b, int64(c))
		}
		b = e.AppendBreak(b)
	}

	b = e.AppendBreak(b)

	return b
}

// Arena is the append-only owner of every Node produced while building
// one function's DataFlow graph. It never shrinks and never
// deduplicates — correctness does not depend on node sharing (spec
// §4.1).
type Arena struct {
	nodes []Node
}

// NewArena returns an Arena with the canonical Bad node already
// allocated at index 0.
func NewArena() *Arena {
	a := &Arena{}
	a.nodes = append(a.nodes, Node{Kind: KindBad})
	return a
}

// Bad returns the canonical Bad reference.
func (a *Arena) Bad() Ref { return BadRef }

// IsBad reports whether r identifies the canonical Bad node.
func (a *Arena) IsBad(r Ref) bool { return r == BadRef }

// Alloc appends n and returns its stable reference.
func (a *Arena) Alloc(n Node) Ref {
	r := Ref(len(a.nodes))
	a.nodes = append(a.nodes, n)
	return r
}

// Len returns the number of allocated nodes, including Bad.
func (a *Arena) Len() int { return len(a.nodes) }

// Node dereferences r. Panics on an out-of-range reference, which can
// only happen from a builder bug (a Ref is never handed out before its
// node is allocated).
func (a *Arena) Node(r Ref) Node { return a.nodes[r] }

// Set overwrites the node at r in place. Callers are Merge (merge.go),
// which fills in the Cond children of the Block it has just allocated,
// and the loop-phi resolution pass (loopphi.go), which rewrites the
// children of nodes allocated earlier in the walk (spec §3 Lifecycles,
// §4.3, §9).
func (a *Arena) Set(r Ref, n Node) { a.nodes[r] = n }

// AllocVar allocates a fresh Var node of the given type.
func (a *Arena) AllocVar(t wasmir.ValType) Ref {
	return a.Alloc(Node{Kind: KindVar, Type: t})
}

// AllocExpr allocates an Expr node for op/type over children.
func (a *Arena) AllocExpr(op wasmir.Op, t wasmir.ValType, children ...Ref) Ref {
	return a.Alloc(Node{Kind: KindExpr, Op: op, Type: t, Children: children})
}

// AllocZext wraps inner (an i1-returning predicate) in a Zext back to
// an integer type.
func (a *Arena) AllocZext(inner Ref, t wasmir.ValType) Ref {
	return a.Alloc(Node{Kind: KindZext, Type: t, Children: []Ref{inner}})
}

// ReturnsI1 reports whether r is an Expr whose operator is one of the
// integer comparisons, after Gt/Ge normalization has already run
// (spec §4.2's returns_i1 predicate).
func (a *Arena) ReturnsI1(r Ref) bool {
	if a.IsBad(r) {
		return false
	}
	n := a.Node(r)
	return n.Kind == KindExpr && wasmir.IsIntCompare(n.Op)
}

// Type returns the Node's produced type. Zext exposes the integer type
// it extends to, not its i1 input's type; a Phi reports the type of
// its inputs; Bad/Block/Cond carry no value type and report
// wasmir.None.
func (a *Arena) Type(r Ref) wasmir.ValType {
	n := a.Node(r)
	switch n.Kind {
	case KindVar, KindExpr, KindZext:
		return n.Type
	case KindPhi:
		if len(n.Children) != 0 {
			return a.Type(n.Children[0])
		}
		return wasmir.None
	default:
		return wasmir.None
	}
}
