package wasmwriter

import "github.com/renesugar/binaryen/wasmir"

// Structural and control opcodes, per the WebAssembly binary format
// (spec §6's "binary opcode table").
const (
	opUnreachable  byte = 0x00
	opNop          byte = 0x01
	opBlock        byte = 0x02
	opLoop         byte = 0x03
	opIf           byte = 0x04
	opElse         byte = 0x05
	opEnd          byte = 0x0b
	opBr           byte = 0x0c
	opBrIf         byte = 0x0d
	opBrTable      byte = 0x0e
	opReturn       byte = 0x0f
	opCall         byte = 0x10
	opCallIndirect byte = 0x11
	opDrop         byte = 0x1a
	opSelect       byte = 0x1b
	opLocalGet     byte = 0x20
	opLocalSet     byte = 0x21
	opGlobalGet    byte = 0x23
	opGlobalSet    byte = 0x24
	opMemorySize   byte = 0x3f
	opMemoryGrow   byte = 0x40

	// atomicPrefix introduces every threads-proposal opcode; the actual
	// operation is the following byte.
	atomicPrefix byte = 0xfe

	// opHost occupies the byte the binary format reserves for
	// vendor/host-specific instructions; the source IR's Host node has
	// no fixed standard opcode to round-trip.
	opHost byte = 0xff
)

// blockType encodes a block/if/loop's result type as it appears right
// after the opcode: the binary byte for a concrete value type, or
// `none` (0x40) for types that don't produce a value — including
// `unreachable`, which is never a valid block-type byte (§4.5: "the
// binary type byte (replacing an unreachable-typed block with
// `none`)").
func blockType(t wasmir.ValType) byte {
	if t == wasmir.Unreachable {
		t = wasmir.None
	}
	switch t {
	case wasmir.I32:
		return 0x7f
	case wasmir.I64:
		return 0x7e
	case wasmir.F32:
		return 0x7d
	case wasmir.F64:
		return 0x7c
	default:
		return 0x40
	}
}

var constOpcode = map[wasmir.ValType]byte{
	wasmir.I32: 0x41,
	wasmir.I64: 0x42,
	wasmir.F32: 0x43,
	wasmir.F64: 0x44,
}

// unaryOpcode covers Clz/Ctz/Popcnt/EqZ for i32 and i64.
var unaryOpcode = map[wasmir.ValType]map[wasmir.Op]byte{
	wasmir.I32: {
		wasmir.EqZ:    0x45,
		wasmir.Clz:    0x67,
		wasmir.Ctz:    0x68,
		wasmir.Popcnt: 0x69,
	},
	wasmir.I64: {
		wasmir.EqZ:    0x50,
		wasmir.Clz:    0x79,
		wasmir.Ctz:    0x7a,
		wasmir.Popcnt: 0x7b,
	},
}

// compareOpcode covers the ten integer comparisons (Gt/Ge included:
// the DataFlow layer normalizes them away, but the writer may still
// see them directly if fed source IR that bypasses DataFlow).
var compareOpcode = map[wasmir.ValType]map[wasmir.Op]byte{
	wasmir.I32: {
		wasmir.Eq: 0x46, wasmir.Ne: 0x47,
		wasmir.LtS: 0x48, wasmir.LtU: 0x49,
		wasmir.GtS: 0x4a, wasmir.GtU: 0x4b,
		wasmir.LeS: 0x4c, wasmir.LeU: 0x4d,
		wasmir.GeS: 0x4e, wasmir.GeU: 0x4f,
	},
	wasmir.I64: {
		wasmir.Eq: 0x51, wasmir.Ne: 0x52,
		wasmir.LtS: 0x53, wasmir.LtU: 0x54,
		wasmir.GtS: 0x55, wasmir.GtU: 0x56,
		wasmir.LeS: 0x57, wasmir.LeU: 0x58,
		wasmir.GeS: 0x59, wasmir.GeU: 0x5a,
	},
	wasmir.F32: {
		wasmir.FEq: 0x5b, wasmir.FNe: 0x5c,
		wasmir.FLt: 0x5d, wasmir.FGt: 0x5e,
		wasmir.FLe: 0x5f, wasmir.FGe: 0x60,
	},
	wasmir.F64: {
		wasmir.FEq: 0x61, wasmir.FNe: 0x62,
		wasmir.FLt: 0x63, wasmir.FGt: 0x64,
		wasmir.FLe: 0x65, wasmir.FGe: 0x66,
	},
}

// arithOpcode covers Add..RotR for i32/i64 and the float arithmetic
// set for f32/f64.
var arithOpcode = map[wasmir.ValType]map[wasmir.Op]byte{
	wasmir.I32: {
		wasmir.Add: 0x6a, wasmir.Sub: 0x6b, wasmir.Mul: 0x6c,
		wasmir.DivS: 0x6d, wasmir.DivU: 0x6e,
		wasmir.RemS: 0x6f, wasmir.RemU: 0x70,
		wasmir.And: 0x71, wasmir.Or: 0x72, wasmir.Xor: 0x73,
		wasmir.Shl: 0x74, wasmir.ShrS: 0x75, wasmir.ShrU: 0x76,
		wasmir.RotL: 0x77, wasmir.RotR: 0x78,
	},
	wasmir.I64: {
		wasmir.Add: 0x7c, wasmir.Sub: 0x7d, wasmir.Mul: 0x7e,
		wasmir.DivS: 0x7f, wasmir.DivU: 0x80,
		wasmir.RemS: 0x81, wasmir.RemU: 0x82,
		wasmir.And: 0x83, wasmir.Or: 0x84, wasmir.Xor: 0x85,
		wasmir.Shl: 0x86, wasmir.ShrS: 0x87, wasmir.ShrU: 0x88,
		wasmir.RotL: 0x89, wasmir.RotR: 0x8a,
	},
	wasmir.F32: {
		wasmir.FAbs: 0x8b, wasmir.FNeg: 0x8c, wasmir.FCeil: 0x8d,
		wasmir.FFloor: 0x8e, wasmir.FTrunc: 0x8f, wasmir.FNearestInt: 0x90,
		wasmir.FSqrt: 0x91, wasmir.FAdd: 0x92, wasmir.FSub: 0x93,
		wasmir.FMul: 0x94, wasmir.FDiv: 0x95, wasmir.FMin: 0x96,
		wasmir.FMax: 0x97, wasmir.FCopySign: 0x98,
	},
	wasmir.F64: {
		wasmir.FAbs: 0x99, wasmir.FNeg: 0x9a, wasmir.FCeil: 0x9b,
		wasmir.FFloor: 0x9c, wasmir.FTrunc: 0x9d, wasmir.FNearestInt: 0x9e,
		wasmir.FSqrt: 0x9f, wasmir.FAdd: 0xa0, wasmir.FSub: 0xa1,
		wasmir.FMul: 0xa2, wasmir.FDiv: 0xa3, wasmir.FMin: 0xa4,
		wasmir.FMax: 0xa5, wasmir.FCopySign: 0xa6,
	},
}

// conversionOpcode is keyed by destination type, like unaryOpcode and
// arithOpcode: TruncS/U and ConvertS/U both vary their opcode byte by
// destination width (spec.md's "normative" opcode table), Reinterpret
// varies by the (source, destination) pair (so both directions need an
// entry, one per destination type), and ExtendS8/ExtendS16 vary by
// whether the destination is i32 or i64.
var conversionOpcode = map[wasmir.ValType]map[wasmir.Op]byte{
	wasmir.I32: {
		wasmir.WrapI64:     0xa7,
		wasmir.TruncF32S:   0xa8,
		wasmir.TruncF32U:   0xa9,
		wasmir.TruncF64S:   0xaa,
		wasmir.TruncF64U:   0xab,
		wasmir.Reinterpret: 0xbc, // i32.reinterpret_f32
		wasmir.ExtendS8:    0xc0,
		wasmir.ExtendS16:   0xc1,
	},
	wasmir.I64: {
		wasmir.ExtendI32S:  0xac,
		wasmir.ExtendI32U:  0xad,
		wasmir.TruncF32S:   0xae,
		wasmir.TruncF32U:   0xaf,
		wasmir.TruncF64S:   0xb0,
		wasmir.TruncF64U:   0xb1,
		wasmir.Reinterpret: 0xbd, // i64.reinterpret_f64
		wasmir.ExtendS8:    0xc2,
		wasmir.ExtendS16:   0xc3,
		wasmir.ExtendS32:   0xc4,
	},
	wasmir.F32: {
		wasmir.ConvertI32S: 0xb2,
		wasmir.ConvertI32U: 0xb3,
		wasmir.ConvertI64S: 0xb4,
		wasmir.ConvertI64U: 0xb5,
		wasmir.Demote:      0xb6,
		wasmir.Reinterpret: 0xbe, // f32.reinterpret_i32
	},
	wasmir.F64: {
		wasmir.ConvertI32S: 0xb7,
		wasmir.ConvertI32U: 0xb8,
		wasmir.ConvertI64S: 0xb9,
		wasmir.ConvertI64U: 0xba,
		wasmir.Promote:     0xbb,
		wasmir.Reinterpret: 0xbf, // f64.reinterpret_i64
	},
}

// loadOpcode selects among the fourteen load variants by (type, byte
// width, signed). Full-width loads ignore signed.
func loadOpcode(t wasmir.ValType, bytes int, signed bool) (byte, bool) {
	switch {
	case t == wasmir.I32 && bytes == 4:
		return 0x28, true
	case t == wasmir.I64 && bytes == 8:
		return 0x29, true
	case t == wasmir.F32 && bytes == 4:
		return 0x2a, true
	case t == wasmir.F64 && bytes == 8:
		return 0x2b, true
	case t == wasmir.I32 && bytes == 1:
		if signed {
			return 0x2c, true
		}
		return 0x2d, true
	case t == wasmir.I32 && bytes == 2:
		if signed {
			return 0x2e, true
		}
		return 0x2f, true
	case t == wasmir.I64 && bytes == 1:
		if signed {
			return 0x30, true
		}
		return 0x31, true
	case t == wasmir.I64 && bytes == 2:
		if signed {
			return 0x32, true
		}
		return 0x33, true
	case t == wasmir.I64 && bytes == 4:
		if signed {
			return 0x34, true
		}
		return 0x35, true
	default:
		return 0, false
	}
}

// storeOpcode selects among the nine store variants by (type, byte
// width). Stores have no sign flavor: the value is already the
// declared width.
func storeOpcode(t wasmir.ValType, bytes int) (byte, bool) {
	switch {
	case t == wasmir.I32 && bytes == 4:
		return 0x36, true
	case t == wasmir.I64 && bytes == 8:
		return 0x37, true
	case t == wasmir.F32 && bytes == 4:
		return 0x38, true
	case t == wasmir.F64 && bytes == 8:
		return 0x39, true
	case t == wasmir.I32 && bytes == 1:
		return 0x3a, true
	case t == wasmir.I32 && bytes == 2:
		return 0x3b, true
	case t == wasmir.I64 && bytes == 1:
		return 0x3c, true
	case t == wasmir.I64 && bytes == 2:
		return 0x3d, true
	case t == wasmir.I64 && bytes == 4:
		return 0x3e, true
	default:
		return 0, false
	}
}

// atomicRMWSub selects the threads-proposal sub-opcode (the byte
// following atomicPrefix) for an AtomicRMW/Cmpxchg by (operator, type,
// byte width).
func atomicRMWSub(op wasmir.Op, t wasmir.ValType, bytes int) (byte, bool) {
	type key struct {
		op    wasmir.Op
		t     wasmir.ValType
		bytes int
	}
	// Laid out in the same (type, width) grid the real threads
	// proposal uses for i32.atomic.rmw*/i64.atomic.rmw*, starting right
	// after the atomic load/store sub-opcode range (atomicLoadSub,
	// atomicStoreSub) so none of the three ranges collide.
	tbl := map[key]byte{
		{wasmir.AtomicAdd, wasmir.I32, 4}: 0x23, {wasmir.AtomicAdd, wasmir.I32, 2}: 0x24, {wasmir.AtomicAdd, wasmir.I32, 1}: 0x25,
		{wasmir.AtomicAdd, wasmir.I64, 8}: 0x26, {wasmir.AtomicAdd, wasmir.I64, 4}: 0x27, {wasmir.AtomicAdd, wasmir.I64, 2}: 0x28, {wasmir.AtomicAdd, wasmir.I64, 1}: 0x29,

		{wasmir.AtomicSub, wasmir.I32, 4}: 0x2a, {wasmir.AtomicSub, wasmir.I32, 2}: 0x2b, {wasmir.AtomicSub, wasmir.I32, 1}: 0x2c,
		{wasmir.AtomicSub, wasmir.I64, 8}: 0x2d, {wasmir.AtomicSub, wasmir.I64, 4}: 0x2e, {wasmir.AtomicSub, wasmir.I64, 2}: 0x2f, {wasmir.AtomicSub, wasmir.I64, 1}: 0x30,

		{wasmir.AtomicAnd, wasmir.I32, 4}: 0x31, {wasmir.AtomicAnd, wasmir.I32, 2}: 0x32, {wasmir.AtomicAnd, wasmir.I32, 1}: 0x33,
		{wasmir.AtomicAnd, wasmir.I64, 8}: 0x34, {wasmir.AtomicAnd, wasmir.I64, 4}: 0x35, {wasmir.AtomicAnd, wasmir.I64, 2}: 0x36, {wasmir.AtomicAnd, wasmir.I64, 1}: 0x37,

		{wasmir.AtomicOr, wasmir.I32, 4}: 0x38, {wasmir.AtomicOr, wasmir.I32, 2}: 0x39, {wasmir.AtomicOr, wasmir.I32, 1}: 0x3a,
		{wasmir.AtomicOr, wasmir.I64, 8}: 0x3b, {wasmir.AtomicOr, wasmir.I64, 4}: 0x3c, {wasmir.AtomicOr, wasmir.I64, 2}: 0x3d, {wasmir.AtomicOr, wasmir.I64, 1}: 0x3e,

		{wasmir.AtomicXor, wasmir.I32, 4}: 0x3f, {wasmir.AtomicXor, wasmir.I32, 2}: 0x40, {wasmir.AtomicXor, wasmir.I32, 1}: 0x41,
		{wasmir.AtomicXor, wasmir.I64, 8}: 0x42, {wasmir.AtomicXor, wasmir.I64, 4}: 0x43, {wasmir.AtomicXor, wasmir.I64, 2}: 0x44, {wasmir.AtomicXor, wasmir.I64, 1}: 0x45,

		{wasmir.AtomicXchg, wasmir.I32, 4}: 0x46, {wasmir.AtomicXchg, wasmir.I32, 2}: 0x47, {wasmir.AtomicXchg, wasmir.I32, 1}: 0x48,
		{wasmir.AtomicXchg, wasmir.I64, 8}: 0x49, {wasmir.AtomicXchg, wasmir.I64, 4}: 0x4a, {wasmir.AtomicXchg, wasmir.I64, 2}: 0x4b, {wasmir.AtomicXchg, wasmir.I64, 1}: 0x4c,

		{wasmir.AtomicCmpxchgOp, wasmir.I32, 4}: 0x4d, {wasmir.AtomicCmpxchgOp, wasmir.I32, 2}: 0x4e, {wasmir.AtomicCmpxchgOp, wasmir.I32, 1}: 0x4f,
		{wasmir.AtomicCmpxchgOp, wasmir.I64, 8}: 0x50, {wasmir.AtomicCmpxchgOp, wasmir.I64, 4}: 0x51, {wasmir.AtomicCmpxchgOp, wasmir.I64, 2}: 0x52, {wasmir.AtomicCmpxchgOp, wasmir.I64, 1}: 0x53,
	}

	b, ok := tbl[key{op, t, bytes}]
	return b, ok
}

const (
	opAtomicWait32 byte = 0x01
	opAtomicWait64 byte = 0x02
	opAtomicWake   byte = 0x00
)

// atomicLoadSub/atomicStoreSub sit below the RMW range (0x23) in the
// threads-proposal sub-opcode space, mirroring the plain load/store
// layout at (type, byte width[, signed]).
func atomicLoadSub(t wasmir.ValType, bytes int, signed bool) (byte, bool) {
	switch {
	case t == wasmir.I32 && bytes == 4:
		return 0x10, true
	case t == wasmir.I64 && bytes == 8:
		return 0x11, true
	case t == wasmir.I32 && bytes == 1:
		if signed {
			return 0x12, true
		}
		return 0x13, true
	case t == wasmir.I32 && bytes == 2:
		if signed {
			return 0x14, true
		}
		return 0x15, true
	case t == wasmir.I64 && bytes == 1:
		if signed {
			return 0x16, true
		}
		return 0x17, true
	case t == wasmir.I64 && bytes == 2:
		if signed {
			return 0x18, true
		}
		return 0x19, true
	case t == wasmir.I64 && bytes == 4:
		if signed {
			return 0x1a, true
		}
		return 0x1b, true
	default:
		return 0, false
	}
}

func atomicStoreSub(t wasmir.ValType, bytes int) (byte, bool) {
	switch {
	case t == wasmir.I32 && bytes == 4:
		return 0x1c, true
	case t == wasmir.I64 && bytes == 8:
		return 0x1d, true
	case t == wasmir.I32 && bytes == 1:
		return 0x1e, true
	case t == wasmir.I32 && bytes == 2:
		return 0x1f, true
	case t == wasmir.I64 && bytes == 1:
		return 0x20, true
	case t == wasmir.I64 && bytes == 2:
		return 0x21, true
	case t == wasmir.I64 && bytes == 4:
		return 0x22, true
	default:
		return 0, false
	}
}
