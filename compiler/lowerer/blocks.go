package lowerer

import "github.com/famasoon/asm2wasm/compiler/ir"

// blockPositions maps every block in fn to its index in fn.Blocks. Block
// IDs are kept equal to their slice index by both the lifter and its
// optional optimizer, but the lowerer never relies on that invariant
// directly; it always goes through this table.
func blockPositions(fn *ir.Func) map[ir.BlockID]int {
	pos := make(map[ir.BlockID]int, len(fn.Blocks))
	for i, b := range fn.Blocks {
		pos[b.ID] = i
	}
	return pos
}

// branchDepth computes the br/br_if depth argument for a branch from
// block from to block to: the count of blocks strictly between them when
// to lies ahead of from, zero when to is the immediate successor. A
// backward target (a loop header, which this block-nesting model has no
// way to express) falls back to depth zero, the same documented
// incompleteness as the conditional br_if fallback in emit.go's
// convertCondBr.
func branchDepth(pos map[ir.BlockID]int, from, to ir.BlockID) int {
	f, t := pos[from], pos[to]
	if t <= f+1 {
		return 0
	}
	return t - f - 1
}
