package wasmtext

import (
	"fmt"
	"io"
)

// Printer renders a Module in WebAssembly text format.
type Printer struct {
	w io.Writer
}

func NewPrinter(w io.Writer) *Printer { return &Printer{w: w} }

// PrintModule writes the full `(module ...)` form.
func (p *Printer) PrintModule(m *Module) {
	fmt.Fprint(p.w, "(module\n")
	if m.MemoryMax > 0 {
		fmt.Fprintf(p.w, "  (memory %d %d)\n", m.MemoryPages, m.MemoryMax)
	} else {
		fmt.Fprintf(p.w, "  (memory %d)\n", m.MemoryPages)
	}
	for _, fn := range m.Funcs {
		p.PrintFunc(fn)
	}
	fmt.Fprint(p.w, ")\n")
}

// PrintFunc writes one `(func $name ...)` form, indented by two spaces.
func (p *Printer) PrintFunc(fn *Func) {
	fmt.Fprintf(p.w, "  (func $%s", fn.Name)
	for _, t := range fn.Params {
		fmt.Fprintf(p.w, " (param %s)", t)
	}
	fmt.Fprintf(p.w, " (result %s)", fn.Result)
	for _, t := range fn.Locals {
		fmt.Fprintf(p.w, " (local %s)", t)
	}
	fmt.Fprint(p.w, "\n")

	for _, ins := range fn.Body {
		fmt.Fprintf(p.w, "    %s\n", p.formatInstr(ins))
	}
	fmt.Fprint(p.w, "  )\n")
}

func (p *Printer) formatInstr(ins Instr) string {
	if !ins.HasImm {
		return ins.Mnemonic
	}
	return fmt.Sprintf("%s %d", ins.Mnemonic, ins.Imm)
}
