// Package lowerer converts mid-IR into a stack-machine wasm text module
// and a matching binary envelope stub. It assigns one local per alloca
// (the function's registers and flags) plus one per binop/zext/call
// result, since those can't simply be recomputed at their point of use.
// const, load, and icmp values get no local at all and are rematerialized
// fresh at every reference instead. It then walks every block's ops in
// order, relying on the lifter having already produced them in
// stack-ready push order.
package lowerer

import (
	"context"

	"github.com/famasoon/asm2wasm/compiler/ir"
	"github.com/famasoon/asm2wasm/compiler/wasmtext"
	"tlog.app/go/tlog"
)

// Lowerer wraps Lower on a value that remembers its last error, the way
// original_source's WasmGenerator exposes a getErrorMessage() accessor
// alongside its normal return-by-value result. The zero Lowerer is
// ready to use.
type Lowerer struct {
	lastErr error
}

// Lower runs Lower and records the outcome on lo for a later Err() call.
func (lo *Lowerer) Lower(ctx context.Context, m *ir.Module) (*wasmtext.Module, []byte, error) {
	wm, bin, err := Lower(ctx, m)
	lo.lastErr = err
	return wm, bin, err
}

// Err returns the error from lo's most recent Lower call, nil if it
// succeeded or lo has not lowered anything yet.
func (lo *Lowerer) Err() error {
	return lo.lastErr
}

// Lower converts an entire module. The returned binary is a minimal
// envelope, not a faithfully encoded instruction stream; see binary.go.
func Lower(ctx context.Context, m *ir.Module) (*wasmtext.Module, []byte, error) {
	funcIndex := make(map[ir.FuncID]int, len(m.Funcs))
	for i := range m.Funcs {
		funcIndex[ir.FuncID(i)] = i
	}
	funcIndexOf := func(id ir.FuncID) int { return funcIndex[id] }

	wm := &wasmtext.Module{MemoryPages: 1}
	for _, fn := range m.Funcs {
		wf, err := convertFunc(ctx, fn, funcIndexOf)
		if err != nil {
			return nil, nil, err
		}
		wm.Funcs = append(wm.Funcs, wf)
	}

	bin := generateBinary(len(wm.Funcs))

	tlog.SpanFromContext(ctx).Printw("lowered module", "funcs", len(wm.Funcs), "binary_bytes", len(bin))
	return wm, bin, nil
}
