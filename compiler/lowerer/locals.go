package lowerer

import "github.com/famasoon/asm2wasm/compiler/ir"

// assignLocals walks fn's blocks in two passes: every alloca first
// (these are the function's named registers and flags), then every
// binop/zext/call result in definition order. Those are exactly the ops
// whose result can't simply be recomputed at its point of use - a
// second push of the same constant or load is harmless, but calling a
// function twice or re-running an add is not the same program. Const,
// load, and icmp get no local at all: emit.go rematerializes them fresh
// at every reference instead. defs maps each ValueID back to the op
// that produced it, the lookup emit.go needs to decide which case
// applies.
func assignLocals(fn *ir.Func) (localIdx map[ir.ValueID]int, localTypes []ir.Type, defs map[ir.ValueID]ir.Op) {
	localIdx = map[ir.ValueID]int{}
	defs = map[ir.ValueID]ir.Op{}

	for _, blk := range fn.Blocks {
		for _, op := range blk.Ops {
			if r := op.Result(); r >= 0 {
				defs[r] = op
			}
		}
	}

	assign := func(id ir.ValueID, typ ir.Type) {
		if _, ok := localIdx[id]; ok {
			return
		}
		localIdx[id] = len(localTypes)
		localTypes = append(localTypes, typ)
	}

	for _, blk := range fn.Blocks {
		for _, op := range blk.Ops {
			if a, ok := op.(*ir.Alloca); ok {
				assign(a.Result(), a.Type)
			}
		}
	}

	for _, blk := range fn.Blocks {
		for _, op := range blk.Ops {
			switch x := op.(type) {
			case *ir.BinOp:
				assign(x.Result(), ir.I32)
			case *ir.ZExt:
				assign(x.Result(), ir.I32)
			case *ir.Call:
				assign(x.Result(), ir.I32)
			}
		}
	}

	return localIdx, localTypes, defs
}
