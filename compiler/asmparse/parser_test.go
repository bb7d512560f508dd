package asmparse

import (
	"context"
	"testing"

	"github.com/famasoon/asm2wasm/compiler/asmerr"
)

func TestParseBasicInstruction(t *testing.T) {
	instrs, labels, err := Parse(context.Background(), []byte("MOV %eax, 42\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(labels) != 0 {
		t.Fatalf("labels = %v, want none", labels)
	}
	if len(instrs) != 1 {
		t.Fatalf("len(instrs) = %d, want 1", len(instrs))
	}

	inst := instrs[0]
	if inst.Op != MOV {
		t.Errorf("Op = %s, want MOV", inst.Op)
	}
	if len(inst.Operands) != 2 {
		t.Fatalf("operands = %v, want 2", inst.Operands)
	}
	if inst.Operands[0].Kind != Register || inst.Operands[0].Value != "%eax" {
		t.Errorf("operand 0 = %+v, want register %%eax", inst.Operands[0])
	}
	if inst.Operands[1].Kind != Immediate || inst.Operands[1].Value != "42" {
		t.Errorf("operand 1 = %+v, want immediate 42", inst.Operands[1])
	}
}

func TestParseCaseInsensitiveMnemonic(t *testing.T) {
	lower, _, err := Parse(context.Background(), []byte("mov %eax, 1\n"))
	if err != nil {
		t.Fatalf("Parse(lower): %v", err)
	}
	upper, _, err := Parse(context.Background(), []byte("MOV %eax, 1\n"))
	if err != nil {
		t.Fatalf("Parse(upper): %v", err)
	}
	if lower[0].Op != upper[0].Op {
		t.Errorf("mov and MOV parsed to different opcodes: %s vs %s", lower[0].Op, upper[0].Op)
	}
}

func TestParseJzJnzAliases(t *testing.T) {
	jz, _, err := Parse(context.Background(), []byte("JZ loop\n"))
	if err != nil {
		t.Fatalf("Parse(JZ): %v", err)
	}
	je, _, err := Parse(context.Background(), []byte("JE loop\n"))
	if err != nil {
		t.Fatalf("Parse(JE): %v", err)
	}
	if jz[0].Op != JE || je[0].Op != JE {
		t.Errorf("JZ/JE = %s/%s, want both JE", jz[0].Op, je[0].Op)
	}

	jnz, _, err := Parse(context.Background(), []byte("JNZ loop\n"))
	if err != nil {
		t.Fatalf("Parse(JNZ): %v", err)
	}
	if jnz[0].Op != JNE {
		t.Errorf("JNZ = %s, want JNE", jnz[0].Op)
	}
}

func TestParseLabelOnlyLine(t *testing.T) {
	instrs, labels, err := Parse(context.Background(), []byte("loop:\n  ADD %eax, %ebx\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if idx, ok := labels["loop"]; !ok || idx != 0 {
		t.Fatalf("labels[loop] = %d, %v, want 0, true", idx, ok)
	}
	if len(instrs) != 2 {
		t.Fatalf("len(instrs) = %d, want 2 (label + ADD)", len(instrs))
	}
	if instrs[0].Op != LABEL || instrs[0].Label != "loop" {
		t.Errorf("instrs[0] = %+v, want LABEL loop", instrs[0])
	}
}

func TestParseLabelSharingLineWithInstruction(t *testing.T) {
	instrs, labels, err := Parse(context.Background(), []byte("top: JMP top\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if idx, ok := labels["top"]; !ok || idx != 0 {
		t.Fatalf("labels[top] = %d, %v, want 0, true", idx, ok)
	}
	if len(instrs) != 1 {
		t.Fatalf("len(instrs) = %d, want 1", len(instrs))
	}
	if instrs[0].Op != JMP || instrs[0].Label != "top" {
		t.Errorf("instrs[0] = %+v, want JMP carrying label top", instrs[0])
	}
}

func TestParseStripsComments(t *testing.T) {
	instrs, _, err := Parse(context.Background(), []byte("# full line comment\nADD %eax, 1 # trailing\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(instrs) != 1 {
		t.Fatalf("len(instrs) = %d, want 1", len(instrs))
	}
	if len(instrs[0].Operands) != 2 {
		t.Fatalf("operands = %v, want 2 (comment stripped)", instrs[0].Operands)
	}
}

func TestParseMemoryOperand(t *testing.T) {
	instrs, _, err := Parse(context.Background(), []byte("MOV %eax, (%ebx)\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	op := instrs[0].Operands[1]
	if op.Kind != Memory || op.Value != "(%ebx)" {
		t.Errorf("operand 1 = %+v, want memory (%%ebx)", op)
	}
}

func TestParseUnknownInstructionRejected(t *testing.T) {
	_, _, err := Parse(context.Background(), []byte("FROB %eax, %ebx\n"))
	if err == nil {
		t.Fatalf("Parse: want error for unknown mnemonic, got nil")
	}
	if !asmerr.Is(err, asmerr.UnknownInstruction) {
		t.Errorf("Parse error = %v, want UnknownInstruction kind", err)
	}
}

func TestParserErrRetrievableAfterFailedCall(t *testing.T) {
	var p Parser
	if err := p.Err(); err != nil {
		t.Fatalf("Err on zero Parser = %v, want nil", err)
	}

	if _, _, err := p.Parse(context.Background(), []byte("FROB %eax\n")); err == nil {
		t.Fatalf("Parse: want error for unknown mnemonic, got nil")
	}
	if p.Err() == nil {
		t.Fatalf("Err after a failed Parse = nil, want the same error")
	}

	if _, _, err := p.Parse(context.Background(), []byte("MOV %eax, 1\n")); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Err() != nil {
		t.Errorf("Err after a successful Parse = %v, want nil", p.Err())
	}
}
