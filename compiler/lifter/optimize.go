package lifter

import "github.com/famasoon/asm2wasm/compiler/ir"

// Optimize applies the lifter's optional, behavior-preserving passes in
// place: unreachable block elimination (the "cont" blocks JMP leaves
// behind, plus any fallthrough that both branches have made
// unreachable), constant folding, commutative-operand canonicalization,
// same-block dead store elimination, and forward redundant-load
// elimination. None of these passes changes any function's observable
// result; tests must pass whether Optimize runs or not.
func Optimize(m *ir.Module) {
	for _, fn := range m.Funcs {
		removeUnreachableBlocks(fn)
		constantFoldBinOps(fn)
		canonicalizeCommutativeOperands(fn)
		for _, blk := range fn.Blocks {
			eliminateDeadStores(blk)
		}
		redundantLoadElimination(fn)
	}
}

// removeUnreachableBlocks drops every block not reachable from the
// entry block by following Br/CondBr edges, then renumbers the
// survivors and rewrites every Br/CondBr target accordingly.
func removeUnreachableBlocks(fn *ir.Func) {
	if len(fn.Blocks) == 0 {
		return
	}

	reachable := map[ir.BlockID]bool{0: true}
	worklist := []ir.BlockID{0}
	for len(worklist) > 0 {
		id := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		blk := fn.Blocks[id]
		if len(blk.Ops) == 0 {
			continue
		}
		switch x := blk.Ops[len(blk.Ops)-1].(type) {
		case *ir.Br:
			if !reachable[x.Target] {
				reachable[x.Target] = true
				worklist = append(worklist, x.Target)
			}
		case *ir.CondBr:
			if !reachable[x.True] {
				reachable[x.True] = true
				worklist = append(worklist, x.True)
			}
			if !reachable[x.False] {
				reachable[x.False] = true
				worklist = append(worklist, x.False)
			}
		}
	}

	if len(reachable) == len(fn.Blocks) {
		return
	}

	remap := map[ir.BlockID]ir.BlockID{}
	kept := make([]*ir.Block, 0, len(reachable))
	for _, blk := range fn.Blocks {
		if !reachable[blk.ID] {
			continue
		}
		newID := ir.BlockID(len(kept))
		remap[blk.ID] = newID
		blk.ID = newID
		kept = append(kept, blk)
	}

	for _, blk := range kept {
		switch x := blk.Ops[len(blk.Ops)-1].(type) {
		case *ir.Br:
			x.Target = remap[x.Target]
		case *ir.CondBr:
			x.True = remap[x.True]
			x.False = remap[x.False]
		}
	}

	fn.Blocks = kept
}

// eliminateDeadStores removes a Store to a slot when a later Store to
// the same slot, with no intervening Load of it, proves the earlier
// write is never observed.
func eliminateDeadStores(blk *ir.Block) {
	dead := make([]bool, len(blk.Ops))
	pending := map[ir.ValueID]int{}

	for i, op := range blk.Ops {
		switch x := op.(type) {
		case *ir.Store:
			if prev, ok := pending[x.Ptr]; ok {
				dead[prev] = true
			}
			pending[x.Ptr] = i
		case *ir.Load:
			delete(pending, x.Ptr)
		case *ir.Call:
			pending = map[ir.ValueID]int{}
		}
	}

	if !anyTrue(dead) {
		return
	}

	kept := make([]ir.Op, 0, len(blk.Ops))
	for i, op := range blk.Ops {
		if dead[i] {
			continue
		}
		kept = append(kept, op)
	}
	blk.Ops = kept
}

func anyTrue(bs []bool) bool {
	for _, b := range bs {
		if b {
			return true
		}
	}
	return false
}

// constantFoldBinOps replaces a BinOp whose two operands both trace back
// to a Const with a Const carrying the computed result, keeping the
// original op's ValueID so every existing reference stays valid. The
// operand Consts themselves are left in the block; they're harmless,
// since nothing still referencing them means pushRef never materializes
// them standalone.
func constantFoldBinOps(fn *ir.Func) {
	defs := map[ir.ValueID]ir.Op{}
	for _, blk := range fn.Blocks {
		for _, op := range blk.Ops {
			if r := op.Result(); r >= 0 {
				defs[r] = op
			}
		}
	}

	for _, blk := range fn.Blocks {
		for i, op := range blk.Ops {
			x, ok := op.(*ir.BinOp)
			if !ok {
				continue
			}
			lc, ok := defs[x.L].(*ir.Const)
			if !ok {
				continue
			}
			rc, ok := defs[x.R].(*ir.Const)
			if !ok {
				continue
			}
			v, ok := foldBin(x.Kind, lc.Value, rc.Value)
			if !ok {
				continue
			}
			folded := ir.NewConst(x.Result(), v)
			blk.Ops[i] = folded
			defs[x.Result()] = folded
		}
	}
}

func foldBin(k ir.BinKind, l, r int32) (int32, bool) {
	switch k {
	case ir.Add:
		return l + r, true
	case ir.Sub:
		return l - r, true
	case ir.Mul:
		return l * r, true
	case ir.SDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	default:
		return 0, false
	}
}

// canonicalizeCommutativeOperands puts the lower-numbered ValueID first
// on every add/mul, a source-independent canonical form that makes two
// differently-ordered but equivalent expressions compare equal.
func canonicalizeCommutativeOperands(fn *ir.Func) {
	for _, blk := range fn.Blocks {
		for _, op := range blk.Ops {
			x, ok := op.(*ir.BinOp)
			if !ok || (x.Kind != ir.Add && x.Kind != ir.Mul) {
				continue
			}
			if x.L > x.R {
				x.L, x.R = x.R, x.L
			}
		}
	}
}

// redundantLoadElimination drops a Load of a slot already loaded earlier
// in the same block, with no intervening Store to that slot or Call,
// keyed on (slot, block) - a forward pass, one block at a time. Every
// later reference to the dropped Load's result is rewritten to the
// surviving Load's result before the dead ops are removed.
func redundantLoadElimination(fn *ir.Func) {
	subst := map[ir.ValueID]ir.ValueID{}

	for _, blk := range fn.Blocks {
		lastLoad := map[ir.ValueID]ir.ValueID{}
		dead := make([]bool, len(blk.Ops))

		for i, op := range blk.Ops {
			switch x := op.(type) {
			case *ir.Load:
				if prev, ok := lastLoad[x.Ptr]; ok {
					subst[x.Result()] = prev
					dead[i] = true
				} else {
					lastLoad[x.Ptr] = x.Result()
				}
			case *ir.Store:
				delete(lastLoad, x.Ptr)
			case *ir.Call:
				lastLoad = map[ir.ValueID]ir.ValueID{}
			}
		}

		if !anyTrue(dead) {
			continue
		}
		kept := make([]ir.Op, 0, len(blk.Ops))
		for i, op := range blk.Ops {
			if !dead[i] {
				kept = append(kept, op)
			}
		}
		blk.Ops = kept
	}

	if len(subst) == 0 {
		return
	}
	for _, blk := range fn.Blocks {
		for _, op := range blk.Ops {
			substituteOperands(op, subst)
		}
	}
}

func substituteOperands(op ir.Op, subst map[ir.ValueID]ir.ValueID) {
	remap := func(v ir.ValueID) ir.ValueID {
		if nv, ok := subst[v]; ok {
			return nv
		}
		return v
	}
	switch x := op.(type) {
	case *ir.Load:
		x.Ptr = remap(x.Ptr)
	case *ir.Store:
		x.Ptr = remap(x.Ptr)
		x.Val = remap(x.Val)
	case *ir.BinOp:
		x.L = remap(x.L)
		x.R = remap(x.R)
	case *ir.ICmp:
		x.L = remap(x.L)
		x.R = remap(x.R)
	case *ir.ZExt:
		x.Src = remap(x.Src)
	case *ir.IntToPtr:
		x.Src = remap(x.Src)
	case *ir.PtrToInt:
		x.Src = remap(x.Src)
	case *ir.Ret:
		if x.HasVal {
			x.Val = remap(x.Val)
		}
	case *ir.CondBr:
		x.Cond = remap(x.Cond)
	}
}
