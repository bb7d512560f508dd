package lifter

import (
	"strconv"
	"strings"

	"github.com/famasoon/asm2wasm/compiler/asmerr"
	"github.com/famasoon/asm2wasm/compiler/ir"
)

// calculateMemoryAddress evaluates a parenthesized memory operand's
// address expression to an I32 value, per the five-form grammar in
// §4.1: base+index*scale, base+offset, base+offset_reg, bare register,
// bare integer. Grounded on original_source's calculateMemoryAddress.
func (b *builder) calculateMemoryAddress(raw string) (ir.ValueID, error) {
	if len(raw) < 2 || raw[0] != '(' || raw[len(raw)-1] != ')' {
		return 0, asmerr.New(asmerr.BadAddressExpression, "malformed memory operand %q", raw)
	}
	addr := raw[1 : len(raw)-1]

	if plus := strings.IndexByte(addr, '+'); plus >= 0 {
		basePart := addr[:plus]
		offsetPart := addr[plus+1:]

		var (
			result ir.ValueID = -1
			have   bool
		)
		if basePart != "" && basePart[0] == '%' {
			baseReg := b.getOrCreateRegister(basePart)
			result = b.emitLoad(baseReg)
			have = true
		}

		switch {
		case strings.ContainsRune(offsetPart, '*'):
			star := strings.IndexByte(offsetPart, '*')
			indexRegStr := offsetPart[:star]
			scaleStr := offsetPart[star+1:]
			if indexRegStr == "" || indexRegStr[0] != '%' {
				return 0, asmerr.New(asmerr.BadAddressExpression, "bad index register in %q", raw)
			}
			scale, err := strconv.Atoi(scaleStr)
			if err != nil {
				return 0, asmerr.Wrap(asmerr.BadAddressExpression, err, "bad scale in %q", raw)
			}
			indexReg := b.getOrCreateRegister(indexRegStr)
			indexVal := b.emitLoad(indexReg)
			scaleConst := b.emitConst(int32(scale))
			scaled := b.emitBin(ir.Mul, indexVal, scaleConst)
			if have {
				result = b.emitBin(ir.Add, result, scaled)
			} else {
				result, have = scaled, true
			}

		case isSignedDigits(offsetPart):
			off, err := strconv.Atoi(offsetPart)
			if err != nil {
				return 0, asmerr.Wrap(asmerr.BadAddressExpression, err, "bad offset in %q", raw)
			}
			offConst := b.emitConst(int32(off))
			if have {
				result = b.emitBin(ir.Add, result, offConst)
			} else {
				result, have = offConst, true
			}

		case len(offsetPart) > 0 && offsetPart[0] == '%':
			offReg := b.getOrCreateRegister(offsetPart)
			offVal := b.emitLoad(offReg)
			if have {
				result = b.emitBin(ir.Add, result, offVal)
			} else {
				result, have = offVal, true
			}

		default:
			return 0, asmerr.New(asmerr.BadAddressExpression, "unrecognized offset in %q", raw)
		}

		if !have {
			return 0, asmerr.New(asmerr.BadAddressExpression, "empty address expression %q", raw)
		}
		return result, nil
	}

	if strings.ContainsRune(addr, '%') {
		reg := b.getOrCreateRegister(addr)
		return b.emitLoad(reg), nil
	}

	n, err := strconv.Atoi(addr)
	if err != nil {
		return 0, asmerr.Wrap(asmerr.BadAddressExpression, err, "bad address %q", raw)
	}
	return b.emitConst(int32(n)), nil
}

func isSignedDigits(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if c == '-' || c == '+' {
			if i != 0 {
				return false
			}
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
