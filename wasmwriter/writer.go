// Package wasmwriter serializes a wasmir.Func body to the WebAssembly
// binary format, applying the unreachable-type insertion and
// block-contents inlining rules the stack-machine encoding requires.
package wasmwriter

import (
	"context"
	"math"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/renesugar/binaryen/wasmir"
)

// Writer holds the walk's only piece of state: the stack of labels
// currently in scope, used to resolve branch targets to relative
// depths.
type Writer struct {
	breaks breakStack
}

func New() *Writer { return &Writer{} }

// Emit serializes f's body to the binary format, returning the
// accumulated bytes appended to b. Per the §4.8 redesign this never
// panics or aborts the process on malformed input (an out-of-scope
// branch target, an operator the switch has no case for); it returns
// an error instead, which the caller — ultimately cmd/wasmssa — is
// free to treat as fatal.
func (w *Writer) Emit(ctx context.Context, b []byte, f *wasmir.Func) (_ []byte, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "wasmwriter: emit", "func", f.Name)
	defer tr.Finish("err", &err)

	w.breaks = w.breaks[:0]

	if f.Body == nil {
		return b, errors.New("wasmwriter: nil function body")
	}

	w.breaks.push(f.Body.Label)
	for _, c := range f.Body.Body {
		b, err = w.emitExpr(b, c)
		if err != nil {
			return nil, errors.Wrap(err, "func %s", f.Name)
		}
	}
	w.breaks.pop()

	b = append(b, opEnd)

	tr.Printw("done", "bytes", len(b))
	return b, nil
}

// exprType recovers the static result type of e where the source-IR
// variant records one, falling back to None for pure control-flow
// nodes with no value and Unreachable for the handful of constructs
// that unconditionally terminate the block they're in.
func exprType(e wasmir.Expr) wasmir.ValType {
	switch x := e.(type) {
	case *wasmir.Block:
		return x.Type
	case *wasmir.If:
		return x.Type
	case *wasmir.Loop:
		return x.Type
	case *wasmir.Br:
		return x.Type
	case *wasmir.BrIf:
		return x.Type
	case *wasmir.BrTable:
		return wasmir.Unreachable
	case *wasmir.Return:
		return wasmir.Unreachable
	case wasmir.Unreachable:
		return wasmir.Unreachable
	case *wasmir.UnaryOp:
		return x.Type
	case *wasmir.BinaryOp:
		return x.Type
	case *wasmir.Select:
		return x.Type
	case *wasmir.Call:
		return x.Type
	case *wasmir.CallIndirect:
		return x.Type
	case *wasmir.CallImport:
		return x.Type
	case wasmir.LocalGet:
		return x.Type
	case wasmir.Const:
		return x.Type
	case wasmir.GetGlobal:
		return x.Type
	case *wasmir.Load:
		return x.Type
	case *wasmir.AtomicWait:
		return x.Type
	default:
		return wasmir.None
	}
}

func (w *Writer) emitExpr(b []byte, e wasmir.Expr) ([]byte, error) {
	switch x := e.(type) {
	case *wasmir.Block:
		return w.emitStandaloneBlock(b, x)
	case *wasmir.If:
		return w.emitIf(b, x)
	case *wasmir.Loop:
		return w.emitLoop(b, x)
	case *wasmir.Br:
		return w.emitBr(b, x)
	case *wasmir.BrIf:
		return w.emitBrIf(b, x)
	case *wasmir.BrTable:
		return w.emitBrTable(b, x)
	case *wasmir.Return:
		var err error
		for _, v := range x.Values {
			b, err = w.emitExpr(b, v)
			if err != nil {
				return nil, err
			}
		}
		return append(b, opReturn), nil
	case wasmir.Unreachable:
		return append(b, opUnreachable), nil
	case wasmir.Nop:
		return append(b, opNop), nil
	case wasmir.LocalGet:
		b = append(b, opLocalGet)
		return appendVarU(b, uint64(x.Index)), nil
	case *wasmir.LocalSet:
		b, err := w.emitExpr(b, x.Value)
		if err != nil {
			return nil, err
		}
		b = append(b, opLocalSet)
		return appendVarU(b, uint64(x.Index)), nil
	case wasmir.GetGlobal:
		b = append(b, opGlobalGet)
		return appendVarU(b, uint64(x.Index)), nil
	case *wasmir.SetGlobal:
		b, err := w.emitExpr(b, x.Value)
		if err != nil {
			return nil, err
		}
		b = append(b, opGlobalSet)
		return appendVarU(b, uint64(x.Index)), nil
	case wasmir.Const:
		return w.emitConst(b, x)
	case *wasmir.UnaryOp:
		return w.emitUnary(b, x)
	case *wasmir.BinaryOp:
		return w.emitBinary(b, x)
	case *wasmir.Select:
		return w.emitSelect(b, x)
	case *wasmir.Call:
		return w.emitCall(b, x)
	case *wasmir.CallIndirect:
		return w.emitCallIndirect(b, x)
	case *wasmir.CallImport:
		return w.emitCallImport(b, x)
	case *wasmir.Load:
		return w.emitLoad(b, x)
	case *wasmir.Store:
		return w.emitStore(b, x)
	case *wasmir.AtomicRMW:
		return w.emitAtomicRMW(b, x)
	case *wasmir.AtomicCmpxchg:
		return w.emitAtomicCmpxchg(b, x)
	case *wasmir.AtomicWait:
		return w.emitAtomicWait(b, x)
	case *wasmir.AtomicWake:
		return w.emitAtomicWake(b, x)
	case *wasmir.Drop:
		b, err := w.emitExpr(b, x.X)
		if err != nil {
			return nil, err
		}
		return append(b, opDrop), nil
	case *wasmir.Host:
		var err error
		for _, a := range x.Args {
			b, err = w.emitExpr(b, a)
			if err != nil {
				return nil, err
			}
		}
		return append(b, opHost), nil
	case *wasmir.GrowMemory:
		b, err := w.emitExpr(b, x.Delta)
		if err != nil {
			return nil, err
		}
		b = append(b, opMemoryGrow)
		return appendVarU(b, 0), nil
	case wasmir.CurrentMemory:
		b = append(b, opMemorySize)
		return appendVarU(b, 0), nil
	default:
		return nil, errors.New("wasmwriter: unsupported expr: %T", e)
	}
}

// emitStandaloneBlock handles a Block visited as a first-class node
// (not inlined into an enclosing If arm or Loop body): opBlock, the
// binary type byte, the children, the unreachable-type insertions
// inside and outside End (spec §4.5 "Block").
func (w *Writer) emitStandaloneBlock(b []byte, blk *wasmir.Block) ([]byte, error) {
	b = append(b, opBlock, blockType(blk.Type))
	w.breaks.push(blk.Label)

	var err error
	for _, c := range blk.Body {
		b, err = w.emitExpr(b, c)
		if err != nil {
			w.breaks.pop()
			return nil, err
		}
	}
	w.breaks.pop()

	if blk.Type == wasmir.Unreachable {
		b = append(b, opUnreachable)
	}
	b = append(b, opEnd)
	if blk.Type == wasmir.Unreachable {
		b = append(b, opUnreachable)
	}
	return b, nil
}

// emitInlineable walks blk the way an If arm or Loop body does: if
// nothing can branch to it by name, its children are spliced directly
// into the enclosing construct instead of wrapping them in a nested
// Block/End (spec §4.5 "Block-contents inlining"). A labelled block
// still gets the full wrapped treatment, since branches need
// somewhere on the break stack to target.
func (w *Writer) emitInlineable(b []byte, blk *wasmir.Block) ([]byte, error) {
	if blk == nil {
		return b, nil
	}
	if blk.Label != "" {
		return w.emitStandaloneBlock(b, blk)
	}

	var err error
	for _, c := range blk.Body {
		b, err = w.emitExpr(b, c)
		if err != nil {
			return nil, err
		}
	}

	if blk.Type == wasmir.Unreachable {
		last := wasmir.ValType(wasmir.None)
		if n := len(blk.Body); n > 0 {
			last = exprType(blk.Body[n-1])
		}
		if last != wasmir.Unreachable {
			b = append(b, opUnreachable)
		}
	}
	return b, nil
}

func (w *Writer) emitIf(b []byte, n *wasmir.If) ([]byte, error) {
	if exprType(n.Cond) == wasmir.Unreachable {
		b, err := w.emitExpr(b, n.Cond)
		if err != nil {
			return nil, err
		}
		return append(b, opUnreachable), nil
	}

	b, err := w.emitExpr(b, n.Cond)
	if err != nil {
		return nil, err
	}

	b = append(b, opIf, blockType(n.Type))

	b, err = w.emitInlineable(b, n.Then)
	if err != nil {
		return nil, err
	}

	if n.Else != nil {
		b = append(b, opElse)
		b, err = w.emitInlineable(b, n.Else)
		if err != nil {
			return nil, err
		}
	}

	b = append(b, opEnd)
	if n.Type == wasmir.Unreachable && n.Else != nil {
		b = append(b, opUnreachable)
	}
	return b, nil
}

func (w *Writer) emitLoop(b []byte, n *wasmir.Loop) ([]byte, error) {
	b = append(b, opLoop, blockType(n.Type))
	w.breaks.push(n.Label)

	b, err := w.emitInlineable(b, n.Body)
	w.breaks.pop()
	if err != nil {
		return nil, err
	}

	b = append(b, opEnd)
	if n.Type == wasmir.Unreachable {
		b = append(b, opUnreachable)
	}
	return b, nil
}

func (w *Writer) emitBr(b []byte, n *wasmir.Br) ([]byte, error) {
	var err error
	if n.Value != nil {
		b, err = w.emitExpr(b, n.Value)
		if err != nil {
			return nil, err
		}
	}

	idx, ok := w.breaks.index(n.Label)
	if !ok {
		return nil, errors.New("branch target not found: %s", n.Label)
	}
	b = append(b, opBr)
	return appendVarU(b, uint64(idx)), nil
}

func (w *Writer) emitBrIf(b []byte, n *wasmir.BrIf) ([]byte, error) {
	var err error
	if n.Value != nil {
		b, err = w.emitExpr(b, n.Value)
		if err != nil {
			return nil, err
		}
	}

	b, err = w.emitExpr(b, n.Cond)
	if err != nil {
		return nil, err
	}

	idx, ok := w.breaks.index(n.Label)
	if !ok {
		return nil, errors.New("branch target not found: %s", n.Label)
	}
	b = append(b, opBrIf)
	b = appendVarU(b, uint64(idx))
	if n.Type == wasmir.Unreachable {
		b = append(b, opUnreachable)
	}
	return b, nil
}

func (w *Writer) emitBrTable(b []byte, n *wasmir.BrTable) ([]byte, error) {
	if exprType(n.Index) == wasmir.Unreachable {
		b, err := w.emitExpr(b, n.Index)
		if err != nil {
			return nil, err
		}
		return append(b, opUnreachable), nil
	}

	var err error
	if n.Value != nil {
		b, err = w.emitExpr(b, n.Value)
		if err != nil {
			return nil, err
		}
	}

	b, err = w.emitExpr(b, n.Index)
	if err != nil {
		return nil, err
	}

	b = append(b, opBrTable)
	b = appendVarU(b, uint64(len(n.Targets)))
	for _, t := range n.Targets {
		idx, ok := w.breaks.index(t)
		if !ok {
			return nil, errors.New("branch target not found: %s", t)
		}
		b = appendVarU(b, uint64(idx))
	}

	defIdx, ok := w.breaks.index(n.Default)
	if !ok {
		return nil, errors.New("branch target not found: %s", n.Default)
	}
	return appendVarU(b, uint64(defIdx)), nil
}

func (w *Writer) emitCall(b []byte, n *wasmir.Call) ([]byte, error) {
	var err error
	for _, a := range n.Args {
		b, err = w.emitExpr(b, a)
		if err != nil {
			return nil, err
		}
	}
	b = append(b, opCall)
	b = appendVarU(b, uint64(n.FuncIndex))
	if n.Type == wasmir.Unreachable {
		b = append(b, opUnreachable)
	}
	return b, nil
}

func (w *Writer) emitCallImport(b []byte, n *wasmir.CallImport) ([]byte, error) {
	var err error
	for _, a := range n.Args {
		b, err = w.emitExpr(b, a)
		if err != nil {
			return nil, err
		}
	}
	b = append(b, opCall)
	b = appendVarU(b, uint64(n.ImportIndex))
	if n.Type == wasmir.Unreachable {
		b = append(b, opUnreachable)
	}
	return b, nil
}

func (w *Writer) emitCallIndirect(b []byte, n *wasmir.CallIndirect) ([]byte, error) {
	var err error
	for _, a := range n.Args {
		b, err = w.emitExpr(b, a)
		if err != nil {
			return nil, err
		}
	}
	b, err = w.emitExpr(b, n.Table)
	if err != nil {
		return nil, err
	}
	b = append(b, opCallIndirect)
	b = appendVarU(b, uint64(n.TypeIndex))
	b = appendVarU(b, 0) // reserved table-index flags byte
	if n.Type == wasmir.Unreachable {
		b = append(b, opUnreachable)
	}
	return b, nil
}

func (w *Writer) emitLoad(b []byte, n *wasmir.Load) ([]byte, error) {
	if n.Atomic && n.Type == wasmir.Unreachable {
		return append(b, opUnreachable), nil
	}

	b, err := w.emitExpr(b, n.Addr)
	if err != nil {
		return nil, err
	}

	var op byte
	var ok bool
	if n.Atomic {
		op, ok = atomicLoadSub(n.Type, n.Bytes, n.Signed)
	} else {
		op, ok = loadOpcode(n.Type, n.Bytes, n.Signed)
	}
	if !ok {
		return nil, errors.New("wasmwriter: no load opcode for %v/%d signed=%v atomic=%v", n.Type, n.Bytes, n.Signed, n.Atomic)
	}

	if n.Atomic {
		b = append(b, atomicPrefix)
	}
	b = append(b, op)
	b = appendVarU(b, log2Align(n.Align, n.Bytes))
	return appendVarU(b, uint64(n.Offset)), nil
}

func (w *Writer) emitStore(b []byte, n *wasmir.Store) ([]byte, error) {
	if n.Atomic && n.Type == wasmir.Unreachable {
		return append(b, opUnreachable), nil
	}

	b, err := w.emitExpr(b, n.Addr)
	if err != nil {
		return nil, err
	}
	b, err = w.emitExpr(b, n.Value)
	if err != nil {
		return nil, err
	}

	var op byte
	var ok bool
	if n.Atomic {
		op, ok = atomicStoreSub(n.Type, n.Bytes)
	} else {
		op, ok = storeOpcode(n.Type, n.Bytes)
	}
	if !ok {
		return nil, errors.New("wasmwriter: no store opcode for %v/%d atomic=%v", n.Type, n.Bytes, n.Atomic)
	}

	if n.Atomic {
		b = append(b, atomicPrefix)
	}
	b = append(b, op)
	b = appendVarU(b, log2Align(n.Align, n.Bytes))
	return appendVarU(b, uint64(n.Offset)), nil
}

func (w *Writer) emitAtomicRMW(b []byte, n *wasmir.AtomicRMW) ([]byte, error) {
	b, err := w.emitExpr(b, n.Addr)
	if err != nil {
		return nil, err
	}
	if exprType(n.Addr) == wasmir.Unreachable {
		return b, nil
	}

	b, err = w.emitExpr(b, n.Value)
	if err != nil {
		return nil, err
	}
	if exprType(n.Value) == wasmir.Unreachable {
		return b, nil
	}

	op, ok := atomicRMWSub(n.Op, n.Type, n.Bytes)
	if !ok {
		return nil, errors.New("wasmwriter: no atomic rmw opcode for %v/%v/%d", n.Op, n.Type, n.Bytes)
	}
	b = append(b, atomicPrefix, op)
	b = appendVarU(b, log2Align(0, n.Bytes))
	return appendVarU(b, uint64(n.Offset)), nil
}

func (w *Writer) emitAtomicCmpxchg(b []byte, n *wasmir.AtomicCmpxchg) ([]byte, error) {
	b, err := w.emitExpr(b, n.Addr)
	if err != nil {
		return nil, err
	}
	if exprType(n.Addr) == wasmir.Unreachable {
		return b, nil
	}

	b, err = w.emitExpr(b, n.Expected)
	if err != nil {
		return nil, err
	}
	if exprType(n.Expected) == wasmir.Unreachable {
		return b, nil
	}

	b, err = w.emitExpr(b, n.New)
	if err != nil {
		return nil, err
	}
	if exprType(n.New) == wasmir.Unreachable {
		return b, nil
	}

	op, ok := atomicRMWSub(wasmir.AtomicCmpxchgOp, n.Type, n.Bytes)
	if !ok {
		return nil, errors.New("wasmwriter: no atomic cmpxchg opcode for %v/%d", n.Type, n.Bytes)
	}
	b = append(b, atomicPrefix, op)
	b = appendVarU(b, log2Align(0, n.Bytes))
	return appendVarU(b, uint64(n.Offset)), nil
}

func (w *Writer) emitAtomicWait(b []byte, n *wasmir.AtomicWait) ([]byte, error) {
	b, err := w.emitExpr(b, n.Addr)
	if err != nil {
		return nil, err
	}
	if exprType(n.Addr) == wasmir.Unreachable {
		return b, nil
	}

	b, err = w.emitExpr(b, n.Expect)
	if err != nil {
		return nil, err
	}
	if exprType(n.Expect) == wasmir.Unreachable {
		return b, nil
	}

	b, err = w.emitExpr(b, n.Timeout)
	if err != nil {
		return nil, err
	}
	if exprType(n.Timeout) == wasmir.Unreachable {
		return b, nil
	}

	op := opAtomicWait32
	bytes := 4
	if n.Type == wasmir.I64 {
		op = opAtomicWait64
		bytes = 8
	}
	b = append(b, atomicPrefix, op)
	b = appendVarU(b, log2Align(0, bytes))
	return appendVarU(b, uint64(n.Offset)), nil
}

func (w *Writer) emitAtomicWake(b []byte, n *wasmir.AtomicWake) ([]byte, error) {
	b, err := w.emitExpr(b, n.Addr)
	if err != nil {
		return nil, err
	}
	if exprType(n.Addr) == wasmir.Unreachable {
		return b, nil
	}

	b, err = w.emitExpr(b, n.Count)
	if err != nil {
		return nil, err
	}
	if exprType(n.Count) == wasmir.Unreachable {
		return b, nil
	}

	b = append(b, atomicPrefix, opAtomicWake)
	b = appendVarU(b, log2Align(0, 4))
	return appendVarU(b, 0), nil
}

func (w *Writer) emitConst(b []byte, n wasmir.Const) ([]byte, error) {
	op, ok := constOpcode[n.Type]
	if !ok {
		return nil, errors.New("wasmwriter: no const opcode for %v", n.Type)
	}
	b = append(b, op)

	switch n.Type {
	case wasmir.I32:
		return appendVarS(b, n.I), nil
	case wasmir.I64:
		return appendVarS(b, n.I), nil
	case wasmir.F32:
		var buf [4]byte
		bits := math.Float32bits(float32(n.F))
		buf[0], buf[1], buf[2], buf[3] = byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24)
		return append(b, buf[:]...), nil
	case wasmir.F64:
		var buf [8]byte
		bits := math.Float64bits(n.F)
		for i := range buf {
			buf[i] = byte(bits >> (8 * i))
		}
		return append(b, buf[:]...), nil
	default:
		return nil, errors.New("wasmwriter: unsupported const type %v", n.Type)
	}
}

func (w *Writer) emitUnary(b []byte, n *wasmir.UnaryOp) ([]byte, error) {
	b, err := w.emitExpr(b, n.X)
	if err != nil {
		return nil, err
	}

	if m, ok := unaryOpcode[n.Type]; ok {
		if op, ok := m[n.Op]; ok {
			return append(b, op), nil
		}
	}
	// The single-operand float ops (FNeg, FAbs, FSqrt, ...) share the
	// arithOpcode table with the float binaries.
	if m, ok := arithOpcode[n.Type]; ok {
		if op, ok := m[n.Op]; ok {
			return append(b, op), nil
		}
	}
	if m, ok := conversionOpcode[n.Type]; ok {
		if op, ok := m[n.Op]; ok {
			return append(b, op), nil
		}
	}
	return nil, errors.New("wasmwriter: unsupported unary op %v/%v", n.Op, n.Type)
}

func (w *Writer) emitBinary(b []byte, n *wasmir.BinaryOp) ([]byte, error) {
	b, err := w.emitExpr(b, n.L)
	if err != nil {
		return nil, err
	}
	b, err = w.emitExpr(b, n.R)
	if err != nil {
		return nil, err
	}

	if m, ok := arithOpcode[n.Type]; ok {
		if op, ok := m[n.Op]; ok {
			return append(b, op), nil
		}
	}
	if m, ok := compareOpcode[n.Type]; ok {
		if op, ok := m[n.Op]; ok {
			return append(b, op), nil
		}
	}
	return nil, errors.New("wasmwriter: unsupported binary op %v/%v", n.Op, n.Type)
}

func (w *Writer) emitSelect(b []byte, n *wasmir.Select) ([]byte, error) {
	b, err := w.emitExpr(b, n.True)
	if err != nil {
		return nil, err
	}
	b, err = w.emitExpr(b, n.False)
	if err != nil {
		return nil, err
	}
	b, err = w.emitExpr(b, n.Cond)
	if err != nil {
		return nil, err
	}
	return append(b, opSelect), nil
}
