package main

import "github.com/renesugar/binaryen/wasmir"

// demos holds one built-in wasmir.Func per testable-property scenario
// (spec §8 "Concrete scenarios"), so `build`/`emit` have something to
// run without needing a real parser front-end.
var demos = map[string]func() *wasmir.Func{
	"if": func() *wasmir.Func {
		return &wasmir.Func{
			Name:      "if",
			Locals:    []wasmir.ValType{wasmir.I32, wasmir.I32},
			NumParams: 2,
			Body: &wasmir.Block{Body: []wasmir.Expr{
				&wasmir.If{
					Cond: wasmir.LocalGet{Index: 0, Type: wasmir.I32},
					Then: &wasmir.Block{Body: []wasmir.Expr{wasmir.Nop{}}},
					Else: &wasmir.Block{Body: []wasmir.Expr{wasmir.Nop{}}},
					Type: wasmir.None,
				},
			}},
		}
	},

	"if-assign": func() *wasmir.Func {
		return &wasmir.Func{
			Name:      "if-assign",
			Locals:    []wasmir.ValType{wasmir.I32, wasmir.I32},
			NumParams: 1,
			Body: &wasmir.Block{Body: []wasmir.Expr{
				&wasmir.If{
					Cond: wasmir.LocalGet{Index: 0, Type: wasmir.I32},
					Then: &wasmir.Block{Body: []wasmir.Expr{
						&wasmir.LocalSet{Index: 1, Value: wasmir.Const{Type: wasmir.I32, I: 1}},
					}},
					Else: &wasmir.Block{Body: []wasmir.Expr{
						&wasmir.LocalSet{Index: 1, Value: wasmir.Const{Type: wasmir.I32, I: 2}},
					}},
					Type: wasmir.None,
				},
			}},
		}
	},

	"branch": func() *wasmir.Func {
		return &wasmir.Func{
			Name:   "branch",
			Locals: []wasmir.ValType{wasmir.I32},
			Body: &wasmir.Block{Label: "L", Body: []wasmir.Expr{
				&wasmir.Br{Label: "L"},
				&wasmir.LocalSet{Index: 0, Value: wasmir.Const{Type: wasmir.I32, I: 5}},
			}},
		}
	},

	"loop": func() *wasmir.Func {
		return &wasmir.Func{
			Name:      "loop",
			Locals:    []wasmir.ValType{wasmir.I32, wasmir.I32},
			NumParams: 2,
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
	},

	"loop-modify": func() *wasmir.Func {
		return &wasmir.Func{
			Name:      "loop-modify",
			Locals:    []wasmir.ValType{wasmir.I32, wasmir.I32},
			NumParams: 2,
			Body: &wasmir.Block{Body: []wasmir.Expr{
				&wasmir.Loop{
					Label: "L",
					Type:  wasmir.None,
					Body: &wasmir.Block{Body: []wasmir.Expr{
						&wasmir.LocalSet{
							Index: 1,
							Value: &wasmir.BinaryOp{
								Op:   wasmir.Add,
								L:    wasmir.LocalGet{Index: 1, Type: wasmir.I32},
								R:    wasmir.Const{Type: wasmir.I32, I: 1},
								Type: wasmir.I32,
							},
						},
						&wasmir.BrIf{Label: "L", Cond: wasmir.LocalGet{Index: 0, Type: wasmir.I32}, Type: wasmir.None},
					}},
				},
			}},
		}
	},

	"unreachable-block": func() *wasmir.Func {
		return &wasmir.Func{
			Name: "unreachable-block",
			Body: &wasmir.Block{Body: []wasmir.Expr{
				&wasmir.Block{Body: []wasmir.Expr{wasmir.Nop{}}, Type: wasmir.Unreachable},
			}},
		}
	},

	"gt-rewrite": func() *wasmir.Func {
		return &wasmir.Func{
			Name:      "gt-rewrite",
			Locals:    []wasmir.ValType{wasmir.I32, wasmir.I32},
			NumParams: 2,
			Body: &wasmir.Block{Body: []wasmir.Expr{
				&wasmir.Drop{X: &wasmir.BinaryOp{
					Op:   wasmir.GtS,
					L:    wasmir.LocalGet{Index: 0, Type: wasmir.I32},
					R:    wasmir.LocalGet{Index: 1, Type: wasmir.I32},
					Type: wasmir.I32,
				}},
			}},
		}
	},
}
