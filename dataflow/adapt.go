package dataflow

import "github.com/renesugar/binaryen/wasmir"

// ExpandFromI1 wraps n in a Zext if n is a non-Bad i1-returning
// predicate, so it can be used where an integer value of its natural
// width is expected. Otherwise n is returned unchanged (spec §4.3
// expand_from_i1).
func ExpandFromI1(a *Arena, n Ref) Ref {
	if a.IsBad(n) || !a.ReturnsI1(n) {
		return n
	}
	return a.AllocZext(n, a.Type(n))
}

// EnsureI1 synthesizes `n Ne 0` when n is a non-Bad value that does not
// already return i1, so it can be used where a one-bit predicate is
// required (an if/select condition). Otherwise n is returned unchanged
// (spec §4.3 ensure_i1).
func EnsureI1(a *Arena, n Ref) Ref {
	if a.IsBad(n) || a.ReturnsI1(n) {
		return n
	}
	return zeroCompare(a, n, wasmir.Ne)
}

// zeroEq builds `n Eq 0`, the false-arm condition of an if (spec §4.3
// "Synthetic zero-equality").
func zeroEq(a *Arena, n Ref) Ref {
	if a.IsBad(n) {
		return a.Bad()
	}
	return zeroCompare(a, n, wasmir.Eq)
}

// zeroCompare allocates `expand_from_i1(n) op zero`, where zero is a
// concrete integer zero constant of n's natural integer width. Per the
// Type-consistency invariant (spec §8), the resulting compare Expr's
// Type is that same operand width, not a distinct "i1 type" — whether
// a Node is a one-bit predicate is purely a function of its operator
// (ReturnsI1), never of its Type field.
func zeroCompare(a *Arena, n Ref, op wasmir.Op) Ref {
	t := a.Type(n)

	n = ExpandFromI1(a, n)
	zero := a.AllocExpr(constZeroOp, t)

	return a.AllocExpr(op, t, n, zero)
}

// constZeroOp tags an Expr node as a zero-valued constant. There is no
// dedicated Const Kind in the Node model (spec §3 folds constants into
// Expr, "a concrete computation: constant or one of the supported
// integer ... operators"); constZeroOp distinguishes it from a real
// operator application for Dump and for structural equality.
const constZeroOp wasmir.Op = -1
