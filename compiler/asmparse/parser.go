// Package asmparse implements the parser side of the asm2wasm pipeline's
// external collaborator contract: it turns source text into a flat
// instruction stream plus a label table, exactly the shape the lifter
// expects. Grounded on original_source's assembly_parser.cpp, translated
// to idiomatic Go rather than ported line for line.
package asmparse

import (
	"bufio"
	"bytes"
	"context"
	"strconv"
	"strings"

	"tlog.app/go/tlog"

	"github.com/famasoon/asm2wasm/compiler/asmerr"
)

// Opcode is one of the mnemonics in the dialect's opcode set, plus the
// LABEL pseudo-opcode for label-only lines. Aliases (JZ/JNZ) are resolved
// to their canonical opcode at parse time.
type Opcode string

const (
	ADD   Opcode = "ADD"
	SUB   Opcode = "SUB"
	MUL   Opcode = "MUL"
	DIV   Opcode = "DIV"
	MOV   Opcode = "MOV"
	CMP   Opcode = "CMP"
	JMP   Opcode = "JMP"
	JE    Opcode = "JE"
	JNE   Opcode = "JNE"
	JL    Opcode = "JL"
	JG    Opcode = "JG"
	JLE   Opcode = "JLE"
	JGE   Opcode = "JGE"
	CALL  Opcode = "CALL"
	RET   Opcode = "RET"
	PUSH  Opcode = "PUSH"
	POP   Opcode = "POP"
	LABEL Opcode = "LABEL"
)

var mnemonics = map[string]Opcode{
	"ADD":  ADD,
	"SUB":  SUB,
	"MUL":  MUL,
	"DIV":  DIV,
	"MOV":  MOV,
	"CMP":  CMP,
	"JMP":  JMP,
	"JE":   JE,
	"JZ":   JE,
	"JNE":  JNE,
	"JNZ":  JNE,
	"JL":   JL,
	"JG":   JG,
	"JLE":  JLE,
	"JGE":  JGE,
	"CALL": CALL,
	"RET":  RET,
	"PUSH": PUSH,
	"POP":  POP,
}

// OperandKind classifies a parsed operand by its surface form.
type OperandKind int

const (
	Register OperandKind = iota
	Immediate
	Memory
	LabelOperand
)

func (k OperandKind) String() string {
	switch k {
	case Register:
		return "register"
	case Immediate:
		return "immediate"
	case Memory:
		return "memory"
	case LabelOperand:
		return "label"
	default:
		return "unknown"
	}
}

// Operand is one parsed operand, retaining its surface form verbatim
// (leading % for registers, enclosing parens for memory).
type Operand struct {
	Kind  OperandKind
	Value string
}

// Instruction is one parsed line: an opcode, its operands in source
// order, and the label attached to it, if any.
type Instruction struct {
	Op       Opcode
	Operands []Operand
	Label    string
}

// Labels maps a defined label name to the 0-based index, in the returned
// instruction slice, of the instruction that carries it.
type Labels map[string]int

// Parser wraps Parse on a value that remembers its last error, the way
// original_source's AssemblyParser exposes a getErrorMessage() accessor
// alongside its normal return-by-value result. The zero Parser is ready
// to use.
type Parser struct {
	lastErr error
}

// Parse runs Parse and records the outcome on p for a later Err() call.
func (p *Parser) Parse(ctx context.Context, text []byte) ([]Instruction, Labels, error) {
	instrs, labels, err := Parse(ctx, text)
	p.lastErr = err
	return instrs, labels, err
}

// Err returns the error from p's most recent Parse call, nil if it
// succeeded or p has not parsed anything yet.
func (p *Parser) Err() error {
	return p.lastErr
}

// Parse tokenizes assembly source into an instruction stream and a label
// table. It never panics; any malformed line is reported as an
// asmerr.UnknownInstruction error identifying the offending mnemonic.
func Parse(ctx context.Context, text []byte) ([]Instruction, Labels, error) {
	var (
		instrs []Instruction
		labels = Labels{}
	)

	sc := bufio.NewScanner(bytes.NewReader(text))
	lineNum := 0

	for sc.Scan() {
		lineNum++
		line := stripComment(sc.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		first := fields[0]
		if strings.HasSuffix(first, ":") {
			name := strings.TrimSuffix(first, ":")
			labels[name] = len(instrs)

			if len(fields) == 1 {
				instrs = append(instrs, Instruction{Op: LABEL, Label: name})
				continue
			}

			inst, err := buildInstruction(fields[1], fields[2:])
			if err != nil {
				return nil, nil, asmerr.Wrap(asmerr.UnknownInstruction, err, "line %d", lineNum)
			}
			inst.Label = name
			instrs = append(instrs, inst)
			continue
		}

		inst, err := buildInstruction(first, fields[1:])
		if err != nil {
			return nil, nil, asmerr.Wrap(asmerr.UnknownInstruction, err, "line %d", lineNum)
		}
		instrs = append(instrs, inst)
	}

	tlog.SpanFromContext(ctx).Printw("parsed assembly", "instructions", len(instrs), "labels", len(labels))

	return instrs, labels, nil
}

func buildInstruction(mnemonic string, operandTokens []string) (Instruction, error) {
	op, ok := mnemonics[strings.ToUpper(mnemonic)]
	if !ok {
		return Instruction{}, asmerr.New(asmerr.UnknownInstruction, "unknown instruction: %s", mnemonic)
	}

	operands := make([]Operand, 0, len(operandTokens))
	for _, tok := range operandTokens {
		operands = append(operands, parseOperand(tok))
	}

	return Instruction{Op: op, Operands: operands}, nil
}

func parseOperand(tok string) Operand {
	tok = strings.TrimSuffix(tok, ",")

	switch {
	case len(tok) >= 2 && tok[0] == '%':
		return Operand{Kind: Register, Value: tok}
	case len(tok) >= 3 && tok[0] == '(' && tok[len(tok)-1] == ')':
		return Operand{Kind: Memory, Value: tok}
	case isIntegerLiteral(tok):
		return Operand{Kind: Immediate, Value: tok}
	default:
		return Operand{Kind: LabelOperand, Value: tok}
	}
}

func isIntegerLiteral(s string) bool {
	if s == "" {
		return false
	}
	if _, err := strconv.Atoi(s); err != nil {
		return false
	}
	for _, c := range s {
		if !(c == '-' || c == '+' || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}
