package stackir

import "github.com/nikandfor/hacked/hfmt"

// Dump renders seq, one slot per line: its position, its kind, and
// either the referenced expression's Go type (Stack IR carries no
// richer description of a source-IR node than that) or the marker
// name.
func Dump(b []byte, seq Sequence) []byte {
	for i, s := range seq {
		b = hfmt.Appendf(b, "[%d] ", i)
		switch s.Kind {
		case SlotExpr:
			b = hfmt.Appendf(b, "expr %T", s.Expr)
		case SlotMarker:
			b = hfmt.Appendf(b, "marker %v", s.Marker)
		case Empty:
			b = append(b, "empty"...)
		}
		b = append(b, '\n')
	}
	return b
}
