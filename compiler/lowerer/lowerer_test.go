package lowerer

import (
	"context"
	"testing"

	"github.com/famasoon/asm2wasm/compiler/asmparse"
	"github.com/famasoon/asm2wasm/compiler/ir"
	"github.com/famasoon/asm2wasm/compiler/lifter"
	"github.com/famasoon/asm2wasm/compiler/wasmtext"
)

func lower(t *testing.T, src string) *wasmtext.Module {
	t.Helper()
	instrs, labels, err := asmparse.Parse(context.Background(), []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m, err := lifter.Lift(context.Background(), instrs, labels)
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}
	wm, _, err := Lower(context.Background(), m)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	return wm
}

func mnemonics(instrs []wasmtext.Instr) []string {
	out := make([]string, len(instrs))
	for i, ins := range instrs {
		out[i] = ins.Mnemonic
	}
	return out
}

func containsSeq(haystack, needle []string) bool {
	if len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func TestLowerReturnConstant(t *testing.T) {
	wm := lower(t, "main:\n  MOV %eax, 42\n  RET\n")

	if len(wm.Funcs) != 1 {
		t.Fatalf("len(Funcs) = %d, want 1", len(wm.Funcs))
	}
	fn := wm.Funcs[0]
	if fn.Name != "main" {
		t.Errorf("Name = %q, want main", fn.Name)
	}
	if fn.Result != ir.I32 {
		t.Errorf("Result = %s, want i32", fn.Result)
	}
	if len(fn.Locals) == 0 {
		t.Errorf("Locals is empty, want at least one slot for %%eax")
	}

	got := mnemonics(fn.Body)
	if !containsSeq(got, []string{"i32.const", "i32.store"}) {
		t.Errorf("body %v, want a const/store pair storing into %%eax", got)
	}
	if got[len(got)-1] != "return" {
		t.Errorf("last instr = %q, want return", got[len(got)-1])
	}
}

func TestLowerArithmeticEndsInLocalSet(t *testing.T) {
	wm := lower(t, "main:\n  MOV %eax, 3\n  MOV %ebx, 4\n  ADD %eax, %ebx\n  RET\n")

	got := mnemonics(wm.Funcs[0].Body)
	if !containsSeq(got, []string{"local.get", "i32.load", "local.get", "i32.load", "i32.add", "local.set"}) {
		t.Errorf("body %v, want load/load/add/set for the ADD", got)
	}
}

func TestLowerConditionalJumpEmitsBrIf(t *testing.T) {
	wm := lower(t, "main:\n  MOV %eax, 1\n  CMP %eax, 1\n  JE hit\n  MOV %eax, 0\nhit:\n  RET\n")

	got := mnemonics(wm.Funcs[0].Body)
	var sawBrIf bool
	for _, m := range got {
		if m == "br_if" {
			sawBrIf = true
		}
	}
	if !sawBrIf {
		t.Errorf("body %v, want a br_if for the conditional jump", got)
	}
}

func TestLowerUnconditionalJumpEmitsBr(t *testing.T) {
	wm := lower(t, "main:\n  JMP skip\n  MOV %eax, 1\nskip:\n  RET\n")

	got := mnemonics(wm.Funcs[0].Body)
	var sawBr bool
	for _, m := range got {
		if m == "br" {
			sawBr = true
		}
	}
	if !sawBr {
		t.Errorf("body %v, want a br for the JMP", got)
	}
}

func TestLowerCallEmitsCallToFuncIndex(t *testing.T) {
	wm := lower(t, "main:\n  CALL foo\n  RET\nfoo:\n  MOV %eax, 9\n  RET\n")

	if len(wm.Funcs) != 2 {
		t.Fatalf("len(Funcs) = %d, want 2", len(wm.Funcs))
	}

	var sawCall bool
	for _, ins := range wm.Funcs[0].Body {
		if ins.Mnemonic == "call" {
			sawCall = true
			if ins.Imm != 1 {
				t.Errorf("call target = %d, want 1 (foo's index)", ins.Imm)
			}
		}
	}
	if !sawCall {
		t.Errorf("main body has no call instruction")
	}
}

func TestLowerPushPopUsesMemoryOps(t *testing.T) {
	wm := lower(t, "main:\n  PUSH 7\n  POP %eax\n  RET\n")

	got := mnemonics(wm.Funcs[0].Body)
	var loads, stores int
	for _, m := range got {
		switch m {
		case "i32.load":
			loads++
		case "i32.store":
			stores++
		}
	}
	if stores == 0 {
		t.Errorf("body %v, want at least one i32.store for PUSH", got)
	}
	if loads == 0 {
		t.Errorf("body %v, want at least one i32.load for POP", got)
	}
}

func TestLowerBinaryEnvelopeSizedPerFunction(t *testing.T) {
	instrs, labels, err := asmparse.Parse(context.Background(), []byte("main:\n  CALL foo\n  RET\nfoo:\n  MOV %eax, 1\n  RET\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m, err := lifter.Lift(context.Background(), instrs, labels)
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}
	_, bin, err := Lower(context.Background(), m)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	if len(bin) < 8 || string(bin[:4]) != "\x00asm" {
		t.Fatalf("binary header = %x, want wasm magic", bin[:8])
	}
	if bin[10] != 2 {
		t.Errorf("function section count = %d, want 2", bin[10])
	}
}

func TestLowererErrRetrievableAfterFailedCall(t *testing.T) {
	var lo Lowerer
	if err := lo.Err(); err != nil {
		t.Fatalf("Err on zero Lowerer = %v, want nil", err)
	}

	bad := &ir.Module{Funcs: []*ir.Func{{
		Name:       "main",
		ResultType: ir.I32,
		Blocks: []*ir.Block{
			{ID: 0, Name: "entry", Ops: []ir.Op{&ir.Ret{Val: 99, HasVal: true}}},
		},
	}}}
	if _, _, err := lo.Lower(context.Background(), bad); err == nil {
		t.Fatalf("Lower: want error for a ret referencing an undefined value, got nil")
	}
	if lo.Err() == nil {
		t.Fatalf("Err after a failed Lower = nil, want the same error")
	}

	instrs, labels, err := asmparse.Parse(context.Background(), []byte("main:\n  MOV %eax, 1\n  RET\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m, err := lifter.Lift(context.Background(), instrs, labels)
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}
	if _, _, err := lo.Lower(context.Background(), m); err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if lo.Err() != nil {
		t.Errorf("Err after a successful Lower = %v, want nil", lo.Err())
	}
}
