package dataflow

import (
	"context"
	"testing"

	"github.com/renesugar/binaryen/wasmir"
)

func block(label string, body ...wasmir.Expr) *wasmir.Block {
	return &wasmir.Block{Label: label, Body: body, Type: wasmir.None}
}

func TestIfUnchangedLocalsNoMerge(t *testing.T) {
	f := &wasmir.Func{
		Name:      "f",
		Locals:    []wasmir.ValType{wasmir.I32, wasmir.I32},
		NumParams: 2,
		Body: block("",
			&wasmir.If{
				Cond: wasmir.LocalGet{Index: 0, Type: wasmir.I32},
				Then: block("", wasmir.Nop{}),
				Else: block("", wasmir.Nop{}),
				Type: wasmir.None,
			},
		),
	}

	res, err := Build(context.Background(), f)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	for r := 1; r < res.Arena.Len(); r++ {
		if res.Arena.Node(Ref(r)).Kind == KindBlock {
			t.Errorf("unexpected Block node at %%%d", r)
		}
		if res.Arena.Node(Ref(r)).Kind == KindPhi {
			t.Errorf("unexpected Phi node at %%%d", r)
		}
	}

	varCount := 0
	for r := 1; r < res.Arena.Len(); r++ {
		if res.Arena.Node(Ref(r)).Kind == KindVar {
			varCount++
		}
	}
	if varCount != 2 {
		t.Errorf("var count = %d, want 2", varCount)
	}
}

func TestIfDivergentAssign(t *testing.T) {
	f := &wasmir.Func{
		Name:      "f",
		Locals:    []wasmir.ValType{wasmir.I32, wasmir.I32},
		NumParams: 1,
		Body: block("",
			&wasmir.If{
				Cond: wasmir.LocalGet{Index: 0, Type: wasmir.I32},
				Then: block("", &wasmir.LocalSet{Index: 1, Value: wasmir.Const{Type: wasmir.I32, I: 1}}),
				Else: block("", &wasmir.LocalSet{Index: 1, Value: wasmir.Const{Type: wasmir.I32, I: 2}}),
				Type: wasmir.None,
			},
		),
	}

	res, err := Build(context.Background(), f)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	phi := res.Final.Slots[1]
	n := res.Arena.Node(phi)
	if n.Kind != KindPhi {
		t.Fatalf("locals[1] kind = %v, want phi", n.Kind)
	}
	if len(n.Children) != 2 {
		t.Errorf("phi arity = %d, want 2", len(n.Children))
	}

	blk := res.Arena.Node(n.Block)
	if blk.Kind != KindBlock {
		t.Fatalf("phi.Block kind = %v, want block", blk.Kind)
	}
	if len(blk.Children) != 2 {
		t.Errorf("block condition count = %d, want 2", len(blk.Children))
	}
	if len(n.Children) != len(blk.Children) {
		t.Errorf("phi arity %d != block condition count %d", len(n.Children), len(blk.Children))
	}
}

func TestBranchOutOfBlockUnreachableTail(t *testing.T) {
	f := &wasmir.Func{
		Name:      "f",
		Locals:    []wasmir.ValType{wasmir.I32},
		NumParams: 0,
		Body: block("L",
			&wasmir.Br{Label: "L"},
			&wasmir.LocalSet{Index: 0, Value: wasmir.Const{Type: wasmir.I32, I: 5}},
		),
	}

	res, err := Build(context.Background(), f)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	for r := 1; r < res.Arena.Len(); r++ {
		if res.Arena.Node(Ref(r)).Kind == KindPhi {
			t.Errorf("unexpected phi at %%%d: local:=5 after br should be unreachable", r)
		}
	}

	final := res.Arena.Node(res.Final.Slots[0])
	if final.Kind != KindExpr || final.Op != constZeroOp {
		t.Errorf("locals[0] = %+v, want the initial zero-constant (local never assigned along the live path)", final)
	}
}

func TestLoopUntouchedLocalResolves(t *testing.T) {
	// Param 0 gates a conditional branch back to the loop head; param 1
	// is never written anywhere in the body. Neither should end up
	// pinned to the Var the loop installed at entry.
	f := &wasmir.Func{
		Name:      "f",
		Locals:    []wasmir.ValType{wasmir.I32, wasmir.I32},
		NumParams: 2,
		Body: block("",
			&wasmir.Loop{
				Label: "L",
				Body:  block("", &wasmir.BrIf{Label: "L", Cond: wasmir.LocalGet{Index: 0, Type: wasmir.I32}}),
				Type:  wasmir.None,
			},
		),
	}

	res, err := Build(context.Background(), f)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	const paramVar0, paramVar1 Ref = 1, 2 // allocated by initialState, in local order

	if res.Final.Slots[0] != paramVar0 {
		t.Errorf("locals[0] = %%%d, want %%%d (the pre-loop param var)", res.Final.Slots[0], paramVar0)
	}
	if res.Final.Slots[1] != paramVar1 {
		t.Errorf("locals[1] = %%%d, want %%%d (the pre-loop param var)", res.Final.Slots[1], paramVar1)
	}
}

func TestLoopModifiedLocalKeepsVar(t *testing.T) {
	f := &wasmir.Func{
		Name:      "f",
		Locals:    []wasmir.ValType{wasmir.I32, wasmir.I32},
		NumParams: 2,
		Body: block("",
			&wasmir.Loop{
				Label: "L",
				Body: block("",
					&wasmir.LocalSet{
						Index: 1,
						Value: &wasmir.BinaryOp{
							Op:   wasmir.Add,
							L:    wasmir.LocalGet{Index: 1, Type: wasmir.I32},
							R:    wasmir.Const{Type: wasmir.I32, I: 1},
							Type: wasmir.I32,
						},
					},
					&wasmir.BrIf{Label: "L", Cond: wasmir.LocalGet{Index: 0, Type: wasmir.I32}},
				),
				Type: wasmir.None,
			},
		),
	}

	res, err := Build(context.Background(), f)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// A phi would have been necessary (the body's result differs from
	// both the loop-entry Var and the pre-loop value), so resolution
	// leaves the loop-entry Var exactly where the body put it: as the
	// left operand of the add, still reachable from locals[1].
	add := res.Arena.Node(res.Final.Slots[1])
	if add.Kind != KindExpr || add.Op != wasmir.Add {
		t.Fatalf("locals[1] = %v/%v, want the unresolved add expr", add.Kind, add.Op)
	}
	if res.Arena.Node(add.Children[0]).Kind != KindVar {
		t.Errorf("add's left operand kind = %v, want var (the loop-entry var was not undone)", res.Arena.Node(add.Children[0]).Kind)
	}
}

func TestGtRewrittenToLt(t *testing.T) {
	f := &wasmir.Func{
		Name:      "f",
		Locals:    []wasmir.ValType{wasmir.I32, wasmir.I32},
		NumParams: 2,
		Body: block("",
			&wasmir.LocalSet{
				Index: 0,
				Value: &wasmir.BinaryOp{
					Op:   wasmir.GtS,
					L:    wasmir.LocalGet{Index: 0, Type: wasmir.I32},
					R:    wasmir.LocalGet{Index: 1, Type: wasmir.I32},
					Type: wasmir.I32,
				},
			},
		),
	}

	res, err := Build(context.Background(), f)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	v := res.SetValue[f.Body.Body[0].(*wasmir.LocalSet)]
	n := res.Arena.Node(v)

	if n.Op != wasmir.LtS {
		t.Fatalf("op = %v, want lt_s", n.Op)
	}
	if len(n.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(n.Children))
	}

	// x GtS y rewrites to y LtS x: operands swap.
	param1 := res.Arena.Node(n.Children[0])
	param0 := res.Arena.Node(n.Children[1])
	if param1.Kind != KindVar || param0.Kind != KindVar {
		t.Fatalf("expected both operands to be the original param Vars, got %v and %v", param1.Kind, param0.Kind)
	}
}

func TestBadNeverFlowsIntoAnExprChild(t *testing.T) {
	// Local 0 is f32, irrelevant to the integer-only graph: every get
	// of it resolves to Bad. Adding it to an i32 const must not build
	// an Expr whose child is that Bad reference.
	f := &wasmir.Func{
		Name:      "f",
		Locals:    []wasmir.ValType{wasmir.F32, wasmir.I32},
		NumParams: 1,
		Body: block("",
			&wasmir.LocalSet{
				Index: 1,
				Value: &wasmir.BinaryOp{
					Op:   wasmir.Add,
					L:    wasmir.LocalGet{Index: 0, Type: wasmir.F32},
					R:    wasmir.Const{Type: wasmir.I32, I: 1},
					Type: wasmir.I32,
				},
			},
		),
	}

	res, err := Build(context.Background(), f)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if !res.Arena.IsBad(res.Final.Slots[1]) {
		t.Errorf("locals[1] = %%%d, want bad (one operand was irrelevant)", res.Final.Slots[1])
	}

	for r := 1; r < res.Arena.Len(); r++ {
		n := res.Arena.Node(Ref(r))
		if n.Kind != KindExpr {
			continue
		}
		for _, c := range n.Children {
			if res.Arena.IsBad(c) {
				t.Errorf("node %%%d (op %v) has a Bad child", r, n.Op)
			}
		}
	}
}
