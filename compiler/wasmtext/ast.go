// Package wasmtext is the lowerer's output AST: a structured,
// stack-machine textual module and the printer that renders it in
// WebAssembly text format. Grounded on the printer idiom of ralph-cc's
// pkg/asm and pkg/rtl printers (NewPrinter(w io.Writer), a
// PrintProgram/PrintFunction pair, type-switch-driven instruction
// printing) rather than on any wasm-specific library, since nothing in
// the retrieved dependency set speaks the wasm text format.
package wasmtext

import "github.com/famasoon/asm2wasm/compiler/ir"

// Module is an ordered list of functions plus a memory declaration.
type Module struct {
	MemoryPages int
	MemoryMax   int // 0 means unbounded; §4.2's "(memory N [M])"
	Funcs       []*Func
}

// Func is one function: its WebAssembly-visible signature, its local
// slot table, and its body as a flat instruction list (structured
// nesting lives entirely in the br/br_if depth arguments, per §4.2).
type Func struct {
	Name    string
	Params  []ir.Type
	Result  ir.Type
	Locals  []ir.Type
	Body    []Instr
}

// Instr is one stack-machine instruction: a wasm mnemonic plus an
// optional single integer immediate (a local index, constant, call
// target, or branch depth).
type Instr struct {
	Mnemonic string
	HasImm   bool
	Imm      int64
}

func Op(mnemonic string) Instr { return Instr{Mnemonic: mnemonic} }

func OpImm(mnemonic string, imm int64) Instr {
	return Instr{Mnemonic: mnemonic, HasImm: true, Imm: imm}
}

func Const(n int32) Instr       { return OpImm("i32.const", int64(n)) }
func LocalGet(idx int) Instr    { return OpImm("local.get", int64(idx)) }
func LocalSet(idx int) Instr    { return OpImm("local.set", int64(idx)) }
func Br(depth int) Instr        { return OpImm("br", int64(depth)) }
func BrIf(depth int) Instr      { return OpImm("br_if", int64(depth)) }
func Call(idx int) Instr        { return OpImm("call", int64(idx)) }
func Return() Instr             { return Op("return") }
