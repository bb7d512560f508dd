package compiler

import (
	"context"
	"strings"
	"testing"

	"github.com/famasoon/asm2wasm/compiler/asmerr"
)

func TestCompileSimpleReturn(t *testing.T) {
	art, err := Compile(context.Background(), "t.asm", []byte("main:\n  MOV %eax, 42\n  RET\n"))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if !strings.Contains(art.Text, "(module") {
		t.Errorf("Text = %q, want a (module ...) form", art.Text)
	}
	if !strings.Contains(art.Text, "(func $main") {
		t.Errorf("Text = %q, want a func named main", art.Text)
	}
	if len(art.Binary) < 8 || string(art.Binary[:4]) != "\x00asm" {
		t.Errorf("Binary = %x, want a wasm-magic header", art.Binary)
	}
	if len(art.IR.Funcs) != 1 {
		t.Errorf("IR.Funcs = %d, want 1", len(art.IR.Funcs))
	}
}

func TestCompileCallBetweenFunctions(t *testing.T) {
	src := "main:\n  CALL foo\n  RET\nfoo:\n  MOV %eax, 9\n  RET\n"
	art, err := Compile(context.Background(), "t.asm", []byte(src))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(art.Module.Funcs) != 2 {
		t.Fatalf("Module.Funcs = %d, want 2", len(art.Module.Funcs))
	}
}

func TestCompileUnknownMnemonicFailsAtParse(t *testing.T) {
	_, err := Compile(context.Background(), "t.asm", []byte("main:\n  XYZ %eax\n"))
	if err == nil {
		t.Fatalf("Compile: want error for unknown mnemonic")
	}
	if !asmerr.Is(err, asmerr.UnknownInstruction) {
		t.Errorf("err = %v, want Kind UnknownInstruction", err)
	}
}

func TestCompileFileMissing(t *testing.T) {
	_, err := CompileFile(context.Background(), "/nonexistent/path/to/file.asm")
	if err == nil {
		t.Fatalf("CompileFile: want error for missing file")
	}
	if !asmerr.Is(err, asmerr.IoOpen) {
		t.Errorf("err = %v, want Kind IoOpen", err)
	}
}
