package wasmwriter

import (
	"bytes"
	"context"
	"testing"

	"github.com/renesugar/binaryen/wasmir"
)

func TestUnreachableBlockEmission(t *testing.T) {
	inner := &wasmir.Block{
		Label: "",
		Body:  []wasmir.Expr{wasmir.Nop{}},
		Type:  wasmir.Unreachable,
	}
	f := &wasmir.Func{
		Name: "f",
		Body: &wasmir.Block{Label: "", Body: []wasmir.Expr{inner}},
	}

	got, err := New().Emit(context.Background(), nil, f)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	want := []byte{
		opBlock, 0x40, // none, replacing the unreachable block type
		opNop,
		opUnreachable, // inserted inside
		opEnd,
		opUnreachable, // inserted outside
		opEnd,         // function terminator
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got  % x\nwant % x", got, want)
	}
}

func TestIfBothArmsUnreachableExtraUnreachable(t *testing.T) {
	f := &wasmir.Func{
		Name: "f",
		Locals: []wasmir.ValType{wasmir.I32},
		Body: &wasmir.Block{Body: []wasmir.Expr{
			&wasmir.If{
				Cond: wasmir.LocalGet{Index: 0, Type: wasmir.I32},
				Then: &wasmir.Block{Body: []wasmir.Expr{&wasmir.Return{}}, Type: wasmir.Unreachable},
				Else: &wasmir.Block{Body: []wasmir.Expr{&wasmir.Return{}}, Type: wasmir.Unreachable},
				Type: wasmir.Unreachable,
			},
		}},
	}

	got, err := New().Emit(context.Background(), nil, f)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	want := []byte{
		opLocalGet, 0x00,
		opIf, 0x40,
		opReturn,
		opElse,
		opReturn,
		opEnd,
		opUnreachable, // both arms unreachable
		opEnd,         // function terminator
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got  % x\nwant % x", got, want)
	}
}

func TestBranchTargetNotFoundIsAnError(t *testing.T) {
	f := &wasmir.Func{
		Name: "f",
		Body: &wasmir.Block{Body: []wasmir.Expr{&wasmir.Br{Label: "nowhere"}}},
	}

	_, err := New().Emit(context.Background(), nil, f)
	if err == nil {
		t.Fatal("expected an error for an out-of-scope branch target, got nil")
	}
}

func TestLoopWithBrIfEmitsIndexZero(t *testing.T) {
	f := &wasmir.Func{
		Name:      "f",
		Locals:    []wasmir.ValType{wasmir.I32},
		NumParams: 1,
		Body: &wasmir.Block{Body: []wasmir.Expr{
			&wasmir.Loop{
				Label: "L",
				Type:  wasmir.None,
				Body: &wasmir.Block{Body: []wasmir.Expr{
					&wasmir.BrIf{Label: "L", Cond: wasmir.LocalGet{Index: 0, Type: wasmir.I32}, Type: wasmir.None},
				}},
			},
		}},
	}

	got, err := New().Emit(context.Background(), nil, f)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	want := []byte{
		opLoop, 0x40,
		opLocalGet, 0x00,
		opBrIf, 0x00, // depth 0: the loop is the innermost entry on the break stack
		opEnd,
		opEnd,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got  % x\nwant % x", got, want)
	}
}

func TestLEB128Unsigned(t *testing.T) {
	cases := []struct {
		in   uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
	}
	for _, c := range cases {
		got := appendVarU(nil, c.in)
		if !bytes.Equal(got, c.want) {
			t.Errorf("appendVarU(%d) = % x, want % x", c.in, got, c.want)
		}
	}
}

func TestLEB128Signed(t *testing.T) {
	cases := []struct {
		in   int64
		want []byte
	}{
		{0, []byte{0x00}},
		{-1, []byte{0x7f}},
		{63, []byte{0x3f}},
		{-64, []byte{0x40}},
		{64, []byte{0xc0, 0x00}},
		{-129, []byte{0xff, 0x7e}},
	}
	for _, c := range cases {
		got := appendVarS(nil, c.in)
		if !bytes.Equal(got, c.want) {
			t.Errorf("appendVarS(%d) = % x, want % x", c.in, got, c.want)
		}
	}
}

func TestConversionOpcodeVariesByDestinationType(t *testing.T) {
	// TruncS/U, ConvertS/U, Reinterpret, and ExtendS8/ExtendS16 all name
	// a destination type distinct from the operator identity; each case
	// here would have collapsed onto a different byte if the opcode
	// table were still keyed by Op alone.
	cases := []struct {
		name string
		op   wasmir.Op
		from wasmir.ValType
		to   wasmir.ValType
		want byte
	}{
		{"trunc_f32_s to i64", wasmir.TruncF32S, wasmir.F32, wasmir.I64, 0xae},
		{"trunc_f32_u to i64", wasmir.TruncF32U, wasmir.F32, wasmir.I64, 0xaf},
		{"trunc_f64_s to i64", wasmir.TruncF64S, wasmir.F64, wasmir.I64, 0xb0},
		{"trunc_f64_u to i64", wasmir.TruncF64U, wasmir.F64, wasmir.I64, 0xb1},
		{"convert_i32_s to f64", wasmir.ConvertI32S, wasmir.I32, wasmir.F64, 0xb7},
		{"convert_i32_u to f64", wasmir.ConvertI32U, wasmir.I32, wasmir.F64, 0xb8},
		{"convert_i64_s to f64", wasmir.ConvertI64S, wasmir.I64, wasmir.F64, 0xb9},
		{"convert_i64_u to f64", wasmir.ConvertI64U, wasmir.I64, wasmir.F64, 0xba},
		{"reinterpret i64<-f64", wasmir.Reinterpret, wasmir.F64, wasmir.I64, 0xbd},
		{"reinterpret f32<-i32", wasmir.Reinterpret, wasmir.I32, wasmir.F32, 0xbe},
		{"reinterpret f64<-i64", wasmir.Reinterpret, wasmir.I64, wasmir.F64, 0xbf},
		{"extend8_s to i64", wasmir.ExtendS8, wasmir.I64, wasmir.I64, 0xc2},
		{"extend16_s to i64", wasmir.ExtendS16, wasmir.I64, wasmir.I64, 0xc3},
	}

	for _, c := range cases {
		f := &wasmir.Func{
			Name:      "f",
			Locals:    []wasmir.ValType{c.from},
			NumParams: 1,
			Body: &wasmir.Block{Body: []wasmir.Expr{
				&wasmir.Drop{X: &wasmir.UnaryOp{
					Op:   c.op,
					X:    wasmir.LocalGet{Index: 0, Type: c.from},
					Type: c.to,
				}},
			}},
		}

		got, err := New().Emit(context.Background(), nil, f)
		if err != nil {
			t.Fatalf("%s: emit: %v", c.name, err)
		}

		want := []byte{opLocalGet, 0x00, c.want, opDrop, opEnd}
		if !bytes.Equal(got, want) {
			t.Errorf("%s: got % x, want % x", c.name, got, want)
		}
	}
}

func TestGtRewrittenOperandOrderRoundTrips(t *testing.T) {
	// The writer itself does not rewrite Gt/Ge (that's the DataFlow
	// builder's job); fed the already-rewritten form, it must emit the
	// Lt opcode with operands in the order given, unchanged.
	f := &wasmir.Func{
		Name:      "f",
		Locals:    []wasmir.ValType{wasmir.I32, wasmir.I32},
		NumParams: 2,
		Body: &wasmir.Block{Body: []wasmir.Expr{
			&wasmir.Drop{X: &wasmir.BinaryOp{
				Op:   wasmir.LtS,
				L:    wasmir.LocalGet{Index: 1, Type: wasmir.I32},
				R:    wasmir.LocalGet{Index: 0, Type: wasmir.I32},
				Type: wasmir.I32,
			}},
		}},
	}

	got, err := New().Emit(context.Background(), nil, f)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	want := []byte{
		opLocalGet, 0x01,
		opLocalGet, 0x00,
		0x48, // i32.lt_s
		opDrop,
		opEnd,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got  % x\nwant % x", got, want)
	}
}
