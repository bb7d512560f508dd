package lowerer

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/famasoon/asm2wasm/compiler/asmerr"
	"github.com/famasoon/asm2wasm/compiler/ir"
	"github.com/famasoon/asm2wasm/compiler/wasmtext"
)

// pushRef returns the instructions that leave v's value on top of the
// operand stack. Allocas, binops, zext, and calls are each given a
// local at definition time and read back with local.get - safe no
// matter what else has been pushed in between. const, load, and icmp
// have no local; pushRef instead rematerializes them by re-emitting
// whatever produced them, which is always correct since none of the
// three have a side effect. int-to-ptr and ptr-to-int are transparent
// and just forward to whatever produced their source.
func pushRef(defs map[ir.ValueID]ir.Op, localIdx map[ir.ValueID]int, v ir.ValueID) ([]wasmtext.Instr, error) {
	op, ok := defs[v]
	if !ok {
		return nil, asmerr.New(asmerr.UnsupportedLowering, "value %d has no definition", v)
	}
	switch x := op.(type) {
	case *ir.Alloca:
		return []wasmtext.Instr{wasmtext.LocalGet(localIdx[v])}, nil
	case *ir.BinOp:
		return []wasmtext.Instr{wasmtext.LocalGet(localIdx[v])}, nil
	case *ir.ZExt:
		return []wasmtext.Instr{wasmtext.LocalGet(localIdx[v])}, nil
	case *ir.Call:
		return []wasmtext.Instr{wasmtext.LocalGet(localIdx[v])}, nil
	case *ir.IntToPtr:
		return pushRef(defs, localIdx, x.Src)
	case *ir.PtrToInt:
		return pushRef(defs, localIdx, x.Src)
	case *ir.Const:
		return []wasmtext.Instr{wasmtext.Const(x.Value)}, nil
	case *ir.Load:
		out, err := pushRef(defs, localIdx, x.Ptr)
		if err != nil {
			return nil, err
		}
		return append(out, wasmtext.Op("i32.load")), nil
	case *ir.ICmp:
		mnem, err := cmpMnemonic(x.Pred)
		if err != nil {
			return nil, err
		}
		l, err := pushRef(defs, localIdx, x.L)
		if err != nil {
			return nil, err
		}
		r, err := pushRef(defs, localIdx, x.R)
		if err != nil {
			return nil, err
		}
		return append(append(l, r...), wasmtext.Op(mnem)), nil
	default:
		return nil, asmerr.New(asmerr.UnsupportedLowering, "%T cannot be pushed as a value", op)
	}
}

func binMnemonic(k ir.BinKind) (string, error) {
	switch k {
	case ir.Add:
		return "i32.add", nil
	case ir.Sub:
		return "i32.sub", nil
	case ir.Mul:
		return "i32.mul", nil
	case ir.SDiv:
		return "i32.div_s", nil
	default:
		return "", asmerr.New(asmerr.UnsupportedLowering, "unknown binop kind %d", k)
	}
}

func cmpMnemonic(pred ir.Cond) (string, error) {
	switch pred {
	case ir.CondEQ:
		return "i32.eq", nil
	case ir.CondNE:
		return "i32.ne", nil
	case ir.CondSLT:
		return "i32.lt_s", nil
	case ir.CondSGT:
		return "i32.gt_s", nil
	case ir.CondSLE:
		return "i32.le_s", nil
	case ir.CondSGE:
		return "i32.ge_s", nil
	default:
		return "", asmerr.New(asmerr.UnsupportedLowering, "unknown predicate %q", pred)
	}
}

// convertOp converts one mid-IR op to its stack-machine form. curBlock is
// the block the op lives in, needed only by branch ops to compute depth.
// Alloca, int-to-ptr, ptr-to-int, const, load, and icmp emit nothing of
// their own here; they are only ever realized through pushRef at a
// consumer's point of use.
func convertOp(ctx context.Context, op ir.Op, curBlock ir.BlockID, pos map[ir.BlockID]int, localIdx map[ir.ValueID]int, defs map[ir.ValueID]ir.Op, funcIndexOf func(ir.FuncID) int) ([]wasmtext.Instr, error) {
	switch x := op.(type) {
	case *ir.Alloca, *ir.IntToPtr, *ir.PtrToInt, *ir.Const, *ir.Load, *ir.ICmp:
		return nil, nil

	case *ir.Store:
		out, err := pushRef(defs, localIdx, x.Ptr)
		if err != nil {
			return nil, err
		}
		val, err := pushRef(defs, localIdx, x.Val)
		if err != nil {
			return nil, err
		}
		out = append(out, val...)
		return append(out, wasmtext.Op("i32.store")), nil

	case *ir.BinOp:
		mnem, err := binMnemonic(x.Kind)
		if err != nil {
			return nil, err
		}
		l, err := pushRef(defs, localIdx, x.L)
		if err != nil {
			return nil, err
		}
		r, err := pushRef(defs, localIdx, x.R)
		if err != nil {
			return nil, err
		}
		out := append(l, r...)
		out = append(out, wasmtext.Op(mnem))
		return append(out, wasmtext.LocalSet(localIdx[x.Result()])), nil

	case *ir.ZExt:
		out, err := pushRef(defs, localIdx, x.Src)
		if err != nil {
			return nil, err
		}
		return append(out, wasmtext.LocalSet(localIdx[x.Result()])), nil

	case *ir.Call:
		out := []wasmtext.Instr{wasmtext.Call(funcIndexOf(x.Func))}
		return append(out, wasmtext.LocalSet(localIdx[x.Result()])), nil

	case *ir.Ret:
		var out []wasmtext.Instr
		if x.HasVal {
			var err error
			out, err = pushRef(defs, localIdx, x.Val)
			if err != nil {
				return nil, err
			}
		}
		return append(out, wasmtext.Return()), nil

	case *ir.Br:
		d := branchDepth(pos, curBlock, x.Target)
		if tlog.If("lower") {
			tlog.SpanFromContext(ctx).Printw("branch depth", "from", curBlock, "to", x.Target, "depth", d)
		}
		return []wasmtext.Instr{wasmtext.Br(d)}, nil

	case *ir.CondBr:
		return convertCondBr(ctx, x, curBlock, pos, defs, localIdx)

	default:
		return nil, asmerr.New(asmerr.UnsupportedLowering, "unhandled op %T", op)
	}
}

// convertCondBr implements the polarity rule: branch straight to whichever
// target is not the physical successor, inverting the test when it is the
// true edge that falls through. When neither edge is adjacent there is no
// enclosing block to br_if out of at the right depth, so it falls back to
// br_if 0 - a known limitation, not a general solution.
func convertCondBr(ctx context.Context, x *ir.CondBr, cur ir.BlockID, pos map[ir.BlockID]int, defs map[ir.ValueID]ir.Op, localIdx map[ir.ValueID]int) ([]wasmtext.Instr, error) {
	p := pos[cur]
	cond, err := pushRef(defs, localIdx, x.Cond)
	if err != nil {
		return nil, err
	}

	switch {
	case pos[x.False] == p+1:
		d := branchDepth(pos, cur, x.True)
		if tlog.If("lower") {
			tlog.SpanFromContext(ctx).Printw("branch depth", "from", cur, "to", x.True, "depth", d)
		}
		return append(cond, wasmtext.BrIf(d)), nil

	case pos[x.True] == p+1:
		d := branchDepth(pos, cur, x.False)
		if tlog.If("lower") {
			tlog.SpanFromContext(ctx).Printw("branch depth", "from", cur, "to", x.False, "depth", d)
		}
		out := append(cond, wasmtext.Const(0), wasmtext.Op("i32.eq"))
		return append(out, wasmtext.BrIf(d)), nil

	default:
		return append(cond, wasmtext.BrIf(0)), nil
	}
}

// convertFunc lowers one function, assigning its locals first.
func convertFunc(ctx context.Context, fn *ir.Func, funcIndexOf func(ir.FuncID) int) (*wasmtext.Func, error) {
	localIdx, localTypes, defs := assignLocals(fn)
	pos := blockPositions(fn)

	if tlog.If("lower") {
		tlog.SpanFromContext(ctx).Printw("assigned locals", "func", fn.Name, "count", len(localTypes), "types", localTypes)
	}

	wf := &wasmtext.Func{
		Name:   fn.Name,
		Result: fn.ResultType,
		Locals: localTypes,
	}

	for _, blk := range fn.Blocks {
		for _, op := range blk.Ops {
			instrs, err := convertOp(ctx, op, blk.ID, pos, localIdx, defs, funcIndexOf)
			if err != nil {
				return nil, asmerr.Wrap(asmerr.UnsupportedLowering, err, "function %q block %q", fn.Name, blk.Name)
			}
			wf.Body = append(wf.Body, instrs...)
		}
	}

	return wf, nil
}
