package lifter

import (
	"github.com/famasoon/asm2wasm/compiler/asmerr"
	"github.com/famasoon/asm2wasm/compiler/ir"
)

// Verify checks the four invariants of §3 against every function in m,
// returning IrVerificationFailed naming the first offending function.
func Verify(m *ir.Module) error {
	for _, fn := range m.Funcs {
		if len(fn.Blocks) == 0 {
			return asmerr.New(asmerr.IrVerificationFailed, "function %s has no blocks", fn.Name)
		}
		if err := verifyTerminators(fn); err != nil {
			return err
		}
		if err := verifyAllocasInEntry(fn); err != nil {
			return err
		}
		if err := verifyTargetsResolve(m, fn); err != nil {
			return err
		}
		if err := verifyReturnType(fn); err != nil {
			return err
		}
	}
	return nil
}

func verifyTerminators(fn *ir.Func) error {
	for _, blk := range fn.Blocks {
		if len(blk.Ops) == 0 {
			return asmerr.New(asmerr.IrVerificationFailed, "function %s: block %s has no terminator", fn.Name, blk.Name)
		}
		for i, op := range blk.Ops {
			_, isTerm := op.(ir.Terminator)
			if isTerm && i != len(blk.Ops)-1 {
				return asmerr.New(asmerr.IrVerificationFailed, "function %s: block %s has a terminator before its last op", fn.Name, blk.Name)
			}
			if !isTerm && i == len(blk.Ops)-1 {
				return asmerr.New(asmerr.IrVerificationFailed, "function %s: block %s does not end in a terminator", fn.Name, blk.Name)
			}
		}
	}
	return nil
}

func verifyAllocasInEntry(fn *ir.Func) error {
	for bi, blk := range fn.Blocks {
		for _, op := range blk.Ops {
			if _, ok := op.(*ir.Alloca); ok && bi != 0 {
				return asmerr.New(asmerr.IrVerificationFailed, "function %s: alloca outside entry block %s", fn.Name, blk.Name)
			}
		}
	}
	return nil
}

func verifyTargetsResolve(m *ir.Module, fn *ir.Func) error {
	for _, blk := range fn.Blocks {
		for _, op := range blk.Ops {
			switch x := op.(type) {
			case *ir.Br:
				if int(x.Target) < 0 || int(x.Target) >= len(fn.Blocks) {
					return asmerr.New(asmerr.IrVerificationFailed, "function %s: br targets unknown block %d", fn.Name, x.Target)
				}
			case *ir.CondBr:
				if int(x.True) < 0 || int(x.True) >= len(fn.Blocks) || int(x.False) < 0 || int(x.False) >= len(fn.Blocks) {
					return asmerr.New(asmerr.IrVerificationFailed, "function %s: cond_br targets unknown block", fn.Name)
				}
			case *ir.Call:
				if int(x.Func) < 0 || int(x.Func) >= len(m.Funcs) {
					return asmerr.New(asmerr.IrVerificationFailed, "function %s: call targets unknown function %d", fn.Name, x.Func)
				}
			}
		}
	}
	return nil
}

func verifyReturnType(fn *ir.Func) error {
	for _, blk := range fn.Blocks {
		last := blk.Ops[len(blk.Ops)-1]
		ret, ok := last.(*ir.Ret)
		if !ok {
			continue
		}
		if fn.ResultType != ir.Void && !ret.HasVal {
			return asmerr.New(asmerr.IrVerificationFailed, "function %s: ret without a value but result type is %s", fn.Name, fn.ResultType)
		}
	}
	return nil
}
