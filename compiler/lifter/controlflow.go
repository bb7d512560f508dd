package lifter

import (
	"fmt"

	"github.com/famasoon/asm2wasm/compiler/asmerr"
	"github.com/famasoon/asm2wasm/compiler/asmparse"
	"github.com/famasoon/asm2wasm/compiler/ir"
)

// liftJump handles JMP and the six conditional jumps. JMP branches
// unconditionally and advances the insertion point to a fresh,
// unreachable "cont" block so later instructions in the stream stay
// attached to something; conditional jumps read the flag slot the
// preceding CMP wrote, compare it to zero per the table in §4.1, and
// branch to a freshly numbered fallthrough block on the not-taken path.
func (b *builder) liftJump(inst *asmparse.Instruction) error {
	if len(inst.Operands) != 1 {
		return asmerr.New(asmerr.BadOperandCount, "%s requires 1 operand", inst.Op)
	}
	if inst.Operands[0].Kind != asmparse.LabelOperand {
		return asmerr.New(asmerr.BadOperandShape, "%s target must be a label", inst.Op)
	}

	target := b.getOrCreateBlock(inst.Operands[0].Value)

	if inst.Op == asmparse.JMP {
		b.terminate(&ir.Br{Target: target})
		b.cur.curBlock = b.newAnonBlock("cont")
		return nil
	}

	flagSlot, nonZeroTaken, err := flagFor(inst.Op)
	if err != nil {
		return err
	}

	flagReg := b.getOrCreateRegister(flagSlot)
	flagVal := b.emitLoad(flagReg)
	zero := b.emitConst(0)

	var cond ir.ValueID
	if nonZeroTaken {
		cond = b.emitICmp(ir.CondNE, flagVal, zero)
	} else {
		cond = b.emitICmp(ir.CondEQ, flagVal, zero)
	}

	fallthroughID := b.newAnonBlock(fmt.Sprintf("fallthrough_%d", b.cur.fallthroughN))
	b.cur.fallthroughN++

	b.terminate(&ir.CondBr{Cond: cond, True: target, False: fallthroughID})
	b.cur.curBlock = fallthroughID
	return nil
}

// flagFor maps a conditional jump opcode to the flag slot it reads and
// whether the target is taken when that flag is non-zero (true) or zero
// (JNE/JNZ, the one case taken on a zero flag).
func flagFor(op asmparse.Opcode) (slot string, nonZeroTaken bool, err error) {
	switch op {
	case asmparse.JE:
		return ir.SlotFlagZF, true, nil
	case asmparse.JNE:
		return ir.SlotFlagZF, false, nil
	case asmparse.JL:
		return ir.SlotFlagLT, true, nil
	case asmparse.JG:
		return ir.SlotFlagGT, true, nil
	case asmparse.JLE:
		return ir.SlotFlagLE, true, nil
	case asmparse.JGE:
		return ir.SlotFlagGE, true, nil
	default:
		return "", false, asmerr.New(asmerr.UnsupportedLowering, "not a conditional jump: %s", op)
	}
}
