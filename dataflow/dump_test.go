package dataflow

import (
	"context"
	"testing"

	"github.com/renesugar/binaryen/wasmir"
)

func TestDumpSmoke(t *testing.T) {
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

	out := Dump(nil, res.Arena)
	if len(out) == 0 {
		t.Fatal("dump produced no output")
	}

	t.Logf("dump:\n%s", out)
}
