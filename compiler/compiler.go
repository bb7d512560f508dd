package compiler

import (
	"bytes"
	"context"
	"os"

	"github.com/famasoon/asm2wasm/compiler/asmerr"
	"github.com/famasoon/asm2wasm/compiler/asmparse"
	"github.com/famasoon/asm2wasm/compiler/ir"
	"github.com/famasoon/asm2wasm/compiler/lifter"
	"github.com/famasoon/asm2wasm/compiler/lowerer"
	"github.com/famasoon/asm2wasm/compiler/wasmtext"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// Artifact bundles everything a successful compilation produces: the
// textual module (both structured and pre-rendered), the binary
// envelope stub, and the lifted mid-IR, kept around because several
// testable properties are stated over the IR rather than the text.
type Artifact struct {
	Module *wasmtext.Module
	Text   string
	Binary []byte
	IR     *ir.Module
}

// CompileFile reads name off disk and compiles it.
func CompileFile(ctx context.Context, name string) (*Artifact, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, asmerr.Wrap(asmerr.IoOpen, err, "read %v", name)
	}

	tlog.SpanFromContext(ctx).Printw("read file", "name", name, "size", len(text))

	return Compile(ctx, name, text)
}

// Compile runs the full pipeline: parse, lift, lower, render. Each stage
// is driven through its stateful wrapper (asmparse.Parser, lifter.Lifter,
// lowerer.Lowerer) rather than the bare functions, and a failing stage's
// error is read back from that wrapper's Err() before being wrapped with
// the stage name. The wrappers are local to Compile.
func Compile(ctx context.Context, name string, text []byte) (*Artifact, error) {
	var p asmparse.Parser
	instrs, labels, err := p.Parse(ctx, text)
	if err != nil {
		return nil, errors.Wrap(p.Err(), "parse %v", name)
	}

	var l lifter.Lifter
	m, err := l.Lift(ctx, instrs, labels)
	if err != nil {
		return nil, errors.Wrap(l.Err(), "lift %v", name)
	}

	var lo lowerer.Lowerer
	wm, bin, err := lo.Lower(ctx, m)
	if err != nil {
		return nil, errors.Wrap(lo.Err(), "lower %v", name)
	}

	var buf bytes.Buffer
	wasmtext.NewPrinter(&buf).PrintModule(wm)

	tlog.SpanFromContext(ctx).Printw("compiled", "name", name, "funcs", len(wm.Funcs), "binary_bytes", len(bin))

	return &Artifact{
		Module: wm,
		Text:   buf.String(),
		Binary: bin,
		IR:     m,
	}, nil
}
