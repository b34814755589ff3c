package stackir

import (
	"testing"

	"github.com/renesugar/binaryen/wasmir"
)

func TestBuildIfOrdersOperatorAfterOperands(t *testing.T) {
	body := &wasmir.Block{Body: []wasmir.Expr{
		&wasmir.If{
			Cond: wasmir.LocalGet{Index: 0, Type: wasmir.I32},
			Then: &wasmir.Block{Body: []wasmir.Expr{wasmir.Nop{}}},
			Type: wasmir.None,
		},
	}}

	seq := Build(body)

	var kinds []Kind
	for _, s := range seq {
		kinds = append(kinds, s.Kind)
	}

	// body-block-open, cond, if-tag, nop, if-end-marker, body-block-close
	if len(seq) != 6 {
		t.Fatalf("len(seq) = %d, want 6: %v", len(seq), kinds)
	}

	if _, ok := seq[1].Expr.(wasmir.LocalGet); !ok {
		t.Errorf("seq[1].Expr = %T, want LocalGet (operand before operator)", seq[1].Expr)
	}
	if _, ok := seq[2].Expr.(*wasmir.If); !ok {
		t.Errorf("seq[2].Expr = %T, want *If", seq[2].Expr)
	}
	if seq[4].Kind != SlotMarker || seq[4].Marker != IfEnd {
		t.Errorf("seq[4] = %+v, want IfEnd marker", seq[4])
	}
	if seq[5].Kind != SlotMarker || seq[5].Marker != BlockEnd {
		t.Errorf("seq[5] = %+v, want BlockEnd marker", seq[5])
	}
}

func TestBuildBinaryOperandsBeforeOperator(t *testing.T) {
	body := &wasmir.Block{Body: []wasmir.Expr{
		&wasmir.Drop{X: &wasmir.BinaryOp{
			Op:   wasmir.Add,
			L:    wasmir.Const{Type: wasmir.I32, I: 1},
			R:    wasmir.Const{Type: wasmir.I32, I: 2},
			Type: wasmir.I32,
		}},
	}}

	seq := Build(body)

	// block-open, const(1), const(2), add, drop, block-close
	if len(seq) != 6 {
		t.Fatalf("len(seq) = %d, want 6", len(seq))
	}
	if _, ok := seq[1].Expr.(wasmir.Const); !ok {
		t.Fatalf("seq[1] = %T, want Const", seq[1].Expr)
	}
	if _, ok := seq[2].Expr.(wasmir.Const); !ok {
		t.Fatalf("seq[2] = %T, want Const", seq[2].Expr)
	}
	if bin, ok := seq[3].Expr.(*wasmir.BinaryOp); !ok || bin.Op != wasmir.Add {
		t.Fatalf("seq[3] = %+v, want the add", seq[3].Expr)
	}
	if _, ok := seq[4].Expr.(*wasmir.Drop); !ok {
		t.Fatalf("seq[4] = %T, want Drop", seq[4].Expr)
	}
}

func TestDumpSmoke(t *testing.T) {
	body := &wasmir.Block{Body: []wasmir.Expr{wasmir.Nop{}}}
	out := Dump(nil, Build(body))
	if len(out) == 0 {
		t.Fatal("dump produced no output")
	}
	t.Logf("dump:\n%s", out)
}
