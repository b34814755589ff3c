package dataflow

import "github.com/renesugar/binaryen/wasmir"

// IsIntegerType reports whether t is one of the two integer types the
// DataFlow builder tracks (spec §4.2 is_integer).
func IsIntegerType(t wasmir.ValType) bool {
	return t.IsInteger()
}

// isRelevantLocal reports whether local i of f is integer-relevant
// (spec §4.2 is_relevant_local).
func isRelevantLocal(f *wasmir.Func, i wasmir.Local) bool {
	return IsIntegerType(f.LocalType(i))
}
