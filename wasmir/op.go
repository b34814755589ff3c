package wasmir

// Op enumerates every operator the binary opcode table in spec §6
// names. The DataFlow builder only gives concrete semantics to the
// integer arithmetic/compare/unary subset; everything else it treats
// opaquely (Var) or drops (Bad), but the full vocabulary is needed so
// the writer can round-trip every operator the binary format defines.
type Op int

const (
	OpNone Op = iota

	// Integer arithmetic, both i32 and i64.
	Add
	Sub
	Mul
	DivS
	DivU
	RemS
	RemU
	And
	Or
	Xor
	Shl
	ShrU
	ShrS
	RotL
	RotR

	// Integer compare.
	Eq
	Ne
	LtS
	LtU
	LeS
	LeU
	GtS
	GtU
	GeS
	GeU

	// Integer unary.
	Clz
	Ctz
	Popcnt
	EqZ

	// Sign extension.
	ExtendS8
	ExtendS16
	ExtendS32

	// Float arithmetic/compare/unary, pass-through only at the writer.
	FAdd
	FSub
	FMul
	FDiv
	FCopySign
	FMin
	FMax
	FNeg
	FAbs
	FCeil
	FFloor
	FTrunc
	FNearestInt
	FSqrt
	FEq
	FNe
	FLt
	FLe
	FGt
	FGe

	// Conversions.
	ExtendI32S
	ExtendI32U
	WrapI64
	TruncF32S
	TruncF32U
	TruncF64S
	TruncF64U
	ConvertI32S
	ConvertI32U
	ConvertI64S
	ConvertI64U
	Demote
	Promote
	Reinterpret

	// Atomics (opcode selected by operator+type+access size at the writer).
	AtomicAdd
	AtomicSub
	AtomicAnd
	AtomicOr
	AtomicXor
	AtomicXchg
	AtomicCmpxchgOp
	AtomicWaitOp
	AtomicWakeOp
)

var opNames = map[Op]string{
	Add: "add", Sub: "sub", Mul: "mul", DivS: "div_s", DivU: "div_u",
	RemS: "rem_s", RemU: "rem_u", And: "and", Or: "or", Xor: "xor",
	Shl: "shl", ShrU: "shr_u", ShrS: "shr_s", RotL: "rotl", RotR: "rotr",
	Eq: "eq", Ne: "ne", LtS: "lt_s", LtU: "lt_u", LeS: "le_s", LeU: "le_u",
	GtS: "gt_s", GtU: "gt_u", GeS: "ge_s", GeU: "ge_u",
	Clz: "clz", Ctz: "ctz", Popcnt: "popcnt", EqZ: "eqz",
}

// String renders op the way a disassembler would name it, falling
// back to the zero-value placeholder for operators Dump does not need
// a human name for (float/conversion/atomic ops are rendered by the
// writer directly from their opcode tables, not from this map).
func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return "op(?)"
}

// IsIntCompare reports whether op, as written in the source IR, is one
// of the six comparisons the DataFlow layer recognizes as i1-returning
// after Gt/Ge normalization (§4.2, §4.3). Gt/Ge variants never survive
// normalization so they are not members of this set.
func IsIntCompare(op Op) bool {
	switch op {
	case Eq, Ne, LtS, LtU, LeS, LeU:
		return true
	default:
		return false
	}
}

// SupportedBinary is the set of binary operators the DataFlow builder
// evaluates concretely for integer operands (spec §4.3 "Binary").
// GtS/GtU/GeS/GeU are handled by normalization before this set is
// consulted; they are intentionally absent here.
func SupportedBinary(op Op) bool {
	switch op {
	case Add, Sub, Mul, DivS, DivU, RemS, RemU, And, Or, Xor,
		Shl, ShrU, ShrS, RotL, RotR,
		Eq, Ne, LtS, LtU, LeS, LeU:
		return true
	default:
		return false
	}
}

// NormalizeCompare rewrites a Gt/Ge flavored comparison to the
// equivalent Lt/Le flavor with swapped operands, per spec §4.3:
// "a Gt b" becomes "b Lt a"; "a Ge b" becomes "b Le a", same
// signedness. Non Gt/Ge operators are returned unchanged with
// swapped=false.
func NormalizeCompare(op Op) (norm Op, swapped bool) {
	switch op {
	case GtS:
		return LtS, true
	case GtU:
		return LtU, true
	case GeS:
		return LeS, true
	case GeU:
		return LeU, true
	default:
		return op, false
	}
}
