package lifter

import (
	"strconv"

	"github.com/famasoon/asm2wasm/compiler/asmerr"
	"github.com/famasoon/asm2wasm/compiler/asmparse"
	"github.com/famasoon/asm2wasm/compiler/ir"
)

func (b *builder) liftInstruction(inst *asmparse.Instruction) error {
	switch inst.Op {
	case asmparse.ADD, asmparse.SUB, asmparse.MUL, asmparse.DIV:
		return b.liftArithmetic(inst)
	case asmparse.MOV:
		return b.liftMove(inst)
	case asmparse.CMP:
		return b.liftCompare(inst)
	case asmparse.JMP, asmparse.JE, asmparse.JNE, asmparse.JL, asmparse.JG, asmparse.JLE, asmparse.JGE:
		return b.liftJump(inst)
	case asmparse.CALL:
		return b.liftCall(inst)
	case asmparse.RET:
		return b.liftReturn(inst)
	case asmparse.PUSH, asmparse.POP:
		return b.liftStack(inst)
	case asmparse.LABEL:
		return nil
	default:
		return asmerr.New(asmerr.UnsupportedLowering, "unsupported instruction type: %s", inst.Op)
	}
}

// operandValue evaluates an operand to an I32 value: a register operand
// loads its slot, an immediate becomes a const, a memory operand
// evaluates to its computed address (not dereferenced — matching how
// arithmetic and CMP treat a memory operand as the address value
// itself). Label operands have no scalar value.
func (b *builder) operandValue(op asmparse.Operand) (ir.ValueID, error) {
	switch op.Kind {
	case asmparse.Register:
		reg := b.getOrCreateRegister(op.Value)
		return b.emitLoad(reg), nil
	case asmparse.Immediate:
		n, err := strconv.Atoi(op.Value)
		if err != nil {
			return 0, asmerr.Wrap(asmerr.BadOperandShape, err, "bad immediate %q", op.Value)
		}
		return b.emitConst(int32(n)), nil
	case asmparse.Memory:
		return b.calculateMemoryAddress(op.Value)
	default:
		return 0, asmerr.New(asmerr.BadOperandShape, "operand %q cannot be used as a value", op.Value)
	}
}

func (b *builder) liftArithmetic(inst *asmparse.Instruction) error {
	if len(inst.Operands) < 2 {
		return asmerr.New(asmerr.BadOperandCount, "%s requires at least 2 operands", inst.Op)
	}

	left, err := b.operandValue(inst.Operands[0])
	if err != nil {
		return err
	}
	right, err := b.operandValue(inst.Operands[1])
	if err != nil {
		return err
	}

	var kind ir.BinKind
	switch inst.Op {
	case asmparse.ADD:
		kind = ir.Add
	case asmparse.SUB:
		kind = ir.Sub
	case asmparse.MUL:
		kind = ir.Mul
	case asmparse.DIV:
		kind = ir.SDiv
	}

	result := b.emitBin(kind, left, right)

	if inst.Operands[0].Kind == asmparse.Register {
		reg := b.getOrCreateRegister(inst.Operands[0].Value)
		b.emitStore(reg, result)
	}

	return nil
}

func (b *builder) liftMove(inst *asmparse.Instruction) error {
	if len(inst.Operands) != 2 {
		return asmerr.New(asmerr.BadOperandCount, "MOV requires 2 operands")
	}
	dst, src := inst.Operands[0], inst.Operands[1]

	switch dst.Kind {
	case asmparse.Register:
		switch src.Kind {
		case asmparse.Register, asmparse.Immediate:
			val, err := b.operandValue(src)
			if err != nil {
				return err
			}
			reg := b.getOrCreateRegister(dst.Value)
			b.emitStore(reg, val)
			return nil
		case asmparse.Memory:
			addr, err := b.calculateMemoryAddress(src.Value)
			if err != nil {
				return err
			}
			ptr := b.emitIntToPtr(addr)
			val := b.emitLoad(ptr)
			reg := b.getOrCreateRegister(dst.Value)
			b.emitStore(reg, val)
			return nil
		default:
			return asmerr.New(asmerr.BadOperandShape, "MOV source %q cannot feed a register destination", src.Value)
		}

	case asmparse.Memory:
		addr, err := b.calculateMemoryAddress(dst.Value)
		if err != nil {
			return err
		}
		ptr := b.emitIntToPtr(addr)

		switch src.Kind {
		case asmparse.Register:
			reg := b.getOrCreateRegister(src.Value)
			val := b.emitLoad(reg)
			b.emitStore(ptr, val)
			return nil
		case asmparse.Immediate:
			val, err := b.operandValue(src)
			if err != nil {
				return err
			}
			b.emitStore(ptr, val)
			return nil
		default:
			return asmerr.New(asmerr.BadOperandShape, "MOV source must be a register or immediate for a memory destination")
		}

	default:
		return asmerr.New(asmerr.BadOperandShape, "MOV destination must be a register or memory access")
	}
}

func (b *builder) liftCompare(inst *asmparse.Instruction) error {
	if len(inst.Operands) != 2 {
		return asmerr.New(asmerr.BadOperandCount, "CMP requires 2 operands")
	}

	left, err := b.operandValue(inst.Operands[0])
	if err != nil {
		return err
	}
	right, err := b.operandValue(inst.Operands[1])
	if err != nil {
		return err
	}

	b.setFlag(ir.SlotFlagZF, ir.CondEQ, left, right)
	b.setFlag(ir.SlotFlagLT, ir.CondSLT, left, right)
	b.setFlag(ir.SlotFlagGT, ir.CondSGT, left, right)
	b.setFlag(ir.SlotFlagLE, ir.CondSLE, left, right)
	b.setFlag(ir.SlotFlagGE, ir.CondSGE, left, right)

	return nil
}

func (b *builder) setFlag(slot string, pred ir.Cond, left, right ir.ValueID) {
	cmp := b.emitICmp(pred, left, right)
	z := b.emitZExt(cmp)
	reg := b.getOrCreateRegister(slot)
	b.emitStore(reg, z)
}

func (b *builder) liftCall(inst *asmparse.Instruction) error {
	if len(inst.Operands) != 1 || inst.Operands[0].Kind != asmparse.LabelOperand {
		return asmerr.New(asmerr.BadOperandCount, "CALL requires one label operand")
	}

	fnID := b.getOrCreateFunction(inst.Operands[0].Value)
	id := b.newValue()
	b.emit(ir.NewCall(id, fnID))

	eax := b.getOrCreateRegister("%eax")
	b.emitStore(eax, id)
	return nil
}

func (b *builder) liftReturn(inst *asmparse.Instruction) error {
	if len(inst.Operands) == 0 {
		eax := b.getOrCreateRegister("%eax")
		val := b.emitLoad(eax)
		b.terminate(&ir.Ret{Val: val, HasVal: true})
		return nil
	}

	val, err := b.operandValue(inst.Operands[0])
	if err != nil {
		return err
	}
	b.terminate(&ir.Ret{Val: val, HasVal: true})
	return nil
}

func (b *builder) liftStack(inst *asmparse.Instruction) error {
	if len(inst.Operands) != 1 {
		return asmerr.New(asmerr.BadOperandCount, "%s requires 1 operand", inst.Op)
	}

	stackPtr := b.getOrCreateRegister(ir.SlotStackPtr)

	switch inst.Op {
	case asmparse.PUSH:
		val, err := b.operandValue(inst.Operands[0])
		if err != nil {
			return err
		}
		cur := b.emitLoad(stackPtr)
		four := b.emitConst(4)
		next := b.emitBin(ir.Sub, cur, four)
		b.emitStore(stackPtr, next)
		addr := b.emitIntToPtr(next)
		b.emitStore(addr, val)
		return nil

	case asmparse.POP:
		cur := b.emitLoad(stackPtr)
		addr := b.emitIntToPtr(cur)
		val := b.emitLoad(addr)
		four := b.emitConst(4)
		next := b.emitBin(ir.Add, cur, four)
		b.emitStore(stackPtr, next)

		if inst.Operands[0].Kind == asmparse.Register {
			reg := b.getOrCreateRegister(inst.Operands[0].Value)
			b.emitStore(reg, val)
		}
		return nil
	}

	return nil
}
