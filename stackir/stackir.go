// Package stackir flattens the tree-shaped wasmir.Expr into the linear
// slot sequence that mirrors the order instructions appear in the
// WebAssembly binary: operands before the operator that consumes them,
// with explicit marker slots standing in for the structural opcodes
// (`end`, `else`) a tree representation has no node for.
package stackir

import "github.com/renesugar/binaryen/wasmir"

// Marker distinguishes the structural slots a tree walk has no
// expression for: the closing `end` of a Block/Loop/If, and the
// `else` separator inside an If.
type Marker int

const (
	NoMarker Marker = iota
	BlockEnd
	IfElse
	IfEnd
)

func (m Marker) String() string {
	switch m {
	case BlockEnd:
		return "end"
	case IfElse:
		return "else"
	case IfEnd:
		return "end"
	default:
		return "marker(?)"
	}
}

// Kind discriminates a Slot's payload.
type Kind int

const (
	// Empty is a deleted slot: stack-IR optimization passes (out of
	// scope here) remove an instruction by zeroing its Slot instead of
	// splicing the sequence, since removal must be cheap. Build never
	// produces one; it exists so a future pass has somewhere to put it.
	Empty Kind = iota
	SlotExpr
	SlotMarker
)

// Slot is one position in the flattened sequence.
type Slot struct {
	Kind   Kind
	Expr   wasmir.Expr // valid when Kind == SlotExpr
	Marker Marker      // valid when Kind == SlotMarker
}

// Sequence is the full flattened instruction stream for one function
// body.
type Sequence []Slot

// Build flattens body into its Stack IR sequence.
func Build(body *wasmir.Block) Sequence {
	var seq Sequence
	seq = appendBlock(seq, body)
	return seq
}

func appendExpr(seq Sequence, e wasmir.Expr) Sequence {
	if e == nil {
		return seq
	}

	switch x := e.(type) {
	case *wasmir.Block:
		return appendBlock(seq, x)
	case *wasmir.If:
		return appendIf(seq, x)
	case *wasmir.Loop:
		seq = append(seq, Slot{Kind: SlotExpr, Expr: x})
		seq = appendBlock(seq, x.Body)
		return append(seq, Slot{Kind: SlotMarker, Marker: BlockEnd})
	case *wasmir.UnaryOp:
		seq = appendExpr(seq, x.X)
	case *wasmir.BinaryOp:
		seq = appendExpr(seq, x.L)
		seq = appendExpr(seq, x.R)
	case *wasmir.Select:
		seq = appendExpr(seq, x.True)
		seq = appendExpr(seq, x.False)
		seq = appendExpr(seq, x.Cond)
	case *wasmir.Br:
		seq = appendExpr(seq, x.Value)
	case *wasmir.BrIf:
		seq = appendExpr(seq, x.Value)
		seq = appendExpr(seq, x.Cond)
	case *wasmir.BrTable:
		seq = appendExpr(seq, x.Value)
		seq = appendExpr(seq, x.Index)
	case *wasmir.Return:
		for _, v := range x.Values {
			seq = appendExpr(seq, v)
		}
	case *wasmir.LocalSet:
		seq = appendExpr(seq, x.Value)
	case *wasmir.SetGlobal:
		seq = appendExpr(seq, x.Value)
	case *wasmir.Call:
		for _, a := range x.Args {
			seq = appendExpr(seq, a)
		}
	case *wasmir.CallIndirect:
		for _, a := range x.Args {
			seq = appendExpr(seq, a)
		}
		seq = appendExpr(seq, x.Table)
	case *wasmir.CallImport:
		for _, a := range x.Args {
			seq = appendExpr(seq, a)
		}
	case *wasmir.Load:
		seq = appendExpr(seq, x.Addr)
	case *wasmir.Store:
		seq = appendExpr(seq, x.Addr)
		seq = appendExpr(seq, x.Value)
	case *wasmir.AtomicRMW:
		seq = appendExpr(seq, x.Addr)
		seq = appendExpr(seq, x.Value)
	case *wasmir.AtomicCmpxchg:
		seq = appendExpr(seq, x.Addr)
		seq = appendExpr(seq, x.Expected)
		seq = appendExpr(seq, x.New)
	case *wasmir.AtomicWait:
		seq = appendExpr(seq, x.Addr)
		seq = appendExpr(seq, x.Expect)
		seq = appendExpr(seq, x.Timeout)
	case *wasmir.AtomicWake:
		seq = appendExpr(seq, x.Addr)
		seq = appendExpr(seq, x.Count)
	case *wasmir.Drop:
		seq = appendExpr(seq, x.X)
	case *wasmir.Host:
		for _, a := range x.Args {
			seq = appendExpr(seq, a)
		}
	case *wasmir.GrowMemory:
		seq = appendExpr(seq, x.Delta)
	}

	return append(seq, Slot{Kind: SlotExpr, Expr: e})
}

func appendBlock(seq Sequence, blk *wasmir.Block) Sequence {
	if blk == nil {
		return seq
	}

	seq = append(seq, Slot{Kind: SlotExpr, Expr: blk})
	for _, c := range blk.Body {
		seq = appendExpr(seq, c)
	}
	return append(seq, Slot{Kind: SlotMarker, Marker: BlockEnd})
}

func appendIf(seq Sequence, n *wasmir.If) Sequence {
	seq = appendExpr(seq, n.Cond)
	seq = append(seq, Slot{Kind: SlotExpr, Expr: n})

	if n.Then != nil {
		for _, c := range n.Then.Body {
			seq = appendExpr(seq, c)
		}
	}

	if n.Else != nil {
		seq = append(seq, Slot{Kind: SlotMarker, Marker: IfElse})
		for _, c := range n.Else.Body {
			seq = appendExpr(seq, c)
		}
	}

	return append(seq, Slot{Kind: SlotMarker, Marker: IfEnd})
}
