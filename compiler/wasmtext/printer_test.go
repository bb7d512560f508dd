package wasmtext

import (
	"strings"
	"testing"

	"github.com/famasoon/asm2wasm/compiler/ir"
)

func TestPrintModuleShape(t *testing.T) {
	m := &Module{
		MemoryPages: 1,
		Funcs: []*Func{
			{
				Name:   "main",
				Result: ir.I32,
				Locals: []ir.Type{ir.I32},
				Body: []Instr{
					Const(42),
					LocalSet(0),
					LocalGet(0),
					Return(),
				},
			},
		},
	}

	var buf strings.Builder
	NewPrinter(&buf).PrintModule(m)
	out := buf.String()

	for _, want := range []string{
		"(module",
		"(memory 1)",
		"(func $main",
		"(result i32)",
		"(local i32)",
		"i32.const 42",
		"local.set 0",
		"local.get 0",
		"return",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
