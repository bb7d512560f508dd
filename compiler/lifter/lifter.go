// Package lifter raises a flat, parsed instruction stream into the
// mid-level IR: functions of basic blocks over stack-slot-backed
// operations. Grounded on original_source's AssemblyLifter, split the
// same way across function discovery, per-opcode lowering, control flow,
// and address-expression handling, but rebuilt around an explicit
// per-function builder rather than global maps.
package lifter

import (
	"bytes"
	"context"

	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/famasoon/asm2wasm/compiler/asmerr"
	"github.com/famasoon/asm2wasm/compiler/asmparse"
	"github.com/famasoon/asm2wasm/compiler/ir"
)

// Option configures a Lift call.
type Option func(*options)

type options struct {
	optimize bool
}

// WithOptimize enables the lifter's optional, behavior-preserving passes
// (dead block elimination, constant folding, commutative-operand
// canonicalization, dead store elimination, redundant load elimination).
// Off by default.
func WithOptimize() Option {
	return func(o *options) { o.optimize = true }
}

// builder holds the state shared across an entire Lift call: the module
// under construction, the set of call sinks, and whichever function is
// currently being built.
type builder struct {
	ctx       context.Context
	module    *ir.Module
	funcIndex map[string]ir.FuncID
	callSinks map[string]bool
	cur       *funcState
}

// funcState is the per-function builder described in §4.1: current
// insertion block, slot table, local label table, and fallthrough
// counter. Reset every time a new function is opened.
type funcState struct {
	fn           *ir.Func
	blockIndex   map[string]ir.BlockID
	curBlock     ir.BlockID
	nextValue    ir.ValueID
	fallthroughN int
}

// Lifter wraps Lift on a value that remembers its last error, the way
// original_source's AssemblyLifter exposes a getErrorMessage() accessor
// alongside its normal return-by-value result. The zero Lifter is ready
// to use.
type Lifter struct {
	lastErr error
}

// Lift runs Lift and records the outcome on l for a later Err() call.
func (l *Lifter) Lift(ctx context.Context, instrs []asmparse.Instruction, labels asmparse.Labels, opts ...Option) (*ir.Module, error) {
	m, err := Lift(ctx, instrs, labels, opts...)
	l.lastErr = err
	return m, err
}

// Err returns the error from l's most recent Lift call, nil if it
// succeeded or l has not lifted anything yet.
func (l *Lifter) Err() error {
	return l.lastErr
}

// Lift consumes a parsed instruction stream and label table and produces
// a verified mid-IR module, or an error identifying which stage and
// function failed.
func Lift(ctx context.Context, instrs []asmparse.Instruction, labels asmparse.Labels, opts ...Option) (*ir.Module, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	b := &builder{
		ctx:       ctx,
		module:    &ir.Module{},
		funcIndex: map[string]ir.FuncID{},
		callSinks: collectCallSinks(instrs),
	}

	isFirstLabel := true

	for i := range instrs {
		inst := &instrs[i]

		if inst.Label != "" {
			name := inst.Label
			if name == "main" || name == "start" || b.callSinks[name] || isFirstLabel {
				if err := b.openFunction(name, name); err != nil {
					return nil, err
				}
				isFirstLabel = false
			} else {
				if b.cur == nil {
					if err := b.openFunction("main", "entry"); err != nil {
						return nil, err
					}
				}
				blk := b.getOrCreateBlock(name)
				b.cur.curBlock = blk
			}
		} else if b.cur == nil && isFirstLabel {
			if err := b.openFunction("main", "entry"); err != nil {
				return nil, err
			}
			isFirstLabel = false
		}

		if err := b.liftInstruction(inst); err != nil {
			return nil, asmerr.Wrap(errKindFor(err), err, "function %s, instruction %d", b.cur.fn.Name, i)
		}
	}

	closeOutUnterminatedBlocks(ctx, b.module)

	if o.optimize {
		Optimize(b.module)
	}

	if err := Verify(b.module); err != nil {
		if tlog.If("lift") {
			var buf bytes.Buffer
			ir.NewPrinter(&buf).PrintModule(b.module)
			tlog.SpanFromContext(ctx).Printw("verification failed", "err", err, "dump", buf.String())
		}
		return nil, err
	}

	tlog.SpanFromContext(ctx).Printw("lifted module", "funcs", len(b.module.Funcs))

	return b.module, nil
}

func errKindFor(err error) asmerr.Kind {
	if e, ok := err.(*asmerr.Error); ok {
		return e.Kind
	}
	return asmerr.IrVerificationFailed
}

func collectCallSinks(instrs []asmparse.Instruction) map[string]bool {
	sinks := map[string]bool{}
	for _, inst := range instrs {
		if inst.Op == asmparse.CALL && len(inst.Operands) == 1 && inst.Operands[0].Kind == asmparse.LabelOperand {
			sinks[inst.Operands[0].Value] = true
		}
	}
	return sinks
}

// openFunction starts (or resumes, if forward-declared by a CALL)
// function name, giving it a fresh entry block named entryName and
// resetting the per-function slot/block tables. entryName is the
// source label itself for an explicitly-labelled function, or "entry"
// for a function opened implicitly (spec's unlabelled-first-instruction
// and unrecognized-local-label fallbacks).
func (b *builder) openFunction(name, entryName string) error {
	id, ok := b.funcIndex[name]
	var fn *ir.Func
	if ok {
		fn = b.module.Funcs[id]
	} else {
		fn = &ir.Func{Name: name, ResultType: ir.I32, Slots: map[string]ir.ValueID{}}
		id = ir.FuncID(len(b.module.Funcs))
		b.module.Funcs = append(b.module.Funcs, fn)
		b.funcIndex[name] = id
	}

	entry := &ir.Block{ID: ir.BlockID(len(fn.Blocks)), Name: entryName}
	fn.Blocks = append(fn.Blocks, entry)

	b.cur = &funcState{
		fn:         fn,
		blockIndex: map[string]ir.BlockID{name: entry.ID},
		curBlock:   entry.ID,
	}

	if tlog.If("lift") {
		tlog.SpanFromContext(b.ctx).Printw("function open", "name", name, "entry", entry.ID, "from", loc.Caller(1))
	}

	return nil
}

// getOrCreateFunction resolves a (possibly forward) reference to a
// function by name, creating an empty declaration if it has not yet
// been opened.
func (b *builder) getOrCreateFunction(name string) ir.FuncID {
	if id, ok := b.funcIndex[name]; ok {
		return id
	}
	fn := &ir.Func{Name: name, ResultType: ir.I32, Slots: map[string]ir.ValueID{}}
	id := ir.FuncID(len(b.module.Funcs))
	b.module.Funcs = append(b.module.Funcs, fn)
	b.funcIndex[name] = id
	return id
}

// getOrCreateBlock resolves a local branch target within the current
// function, creating an empty block if this is the first reference.
func (b *builder) getOrCreateBlock(name string) ir.BlockID {
	if id, ok := b.cur.blockIndex[name]; ok {
		return id
	}
	blk := &ir.Block{ID: ir.BlockID(len(b.cur.fn.Blocks)), Name: name}
	b.cur.fn.Blocks = append(b.cur.fn.Blocks, blk)
	b.cur.blockIndex[name] = blk.ID
	return blk.ID
}

// newAnonBlock creates a block not reachable by name, used for the
// unreachable "cont" continuation after an unconditional JMP and for the
// numbered fallthrough block after a conditional jump.
func (b *builder) newAnonBlock(name string) ir.BlockID {
	blk := &ir.Block{ID: ir.BlockID(len(b.cur.fn.Blocks)), Name: name}
	b.cur.fn.Blocks = append(b.cur.fn.Blocks, blk)

	if tlog.If("lift") {
		tlog.SpanFromContext(b.ctx).Printw("synthesized block", "name", name, "id", blk.ID, "from", loc.Caller(1))
	}

	return blk.ID
}

func (b *builder) block() *ir.Block { return b.cur.fn.Blocks[b.cur.curBlock] }

func (b *builder) newValue() ir.ValueID {
	id := b.cur.nextValue
	b.cur.nextValue++
	return id
}

func (b *builder) emit(op ir.Op) {
	blk := b.block()
	blk.Ops = append(blk.Ops, op)
}

// terminate appends op as the current block's terminator. Callers must
// not emit further ops to this block afterward.
func (b *builder) terminate(op ir.Terminator) {
	b.emit(op)
}

// getOrCreateRegister materializes a slot's alloca in the entry block on
// first reference and returns the ValueID of that alloca, which callers
// load from or store to.
func (b *builder) getOrCreateRegister(name string) ir.ValueID {
	if id, ok := b.cur.fn.Slots[name]; ok {
		return id
	}
	id := b.newValue()
	alloca := ir.NewAlloca(id, name, ir.I32)
	entry := b.cur.fn.Blocks[0]
	entry.Ops = append([]ir.Op{alloca}, entry.Ops...)
	b.cur.fn.Slots[name] = id

	if tlog.If("lift") {
		tlog.SpanFromContext(b.ctx).Printw("slot created", "func", b.cur.fn.Name, "name", name, "id", id)
	}

	return id
}

func (b *builder) emitLoad(ptr ir.ValueID) ir.ValueID {
	id := b.newValue()
	b.emit(ir.NewLoad(id, ptr))
	return id
}

func (b *builder) emitStore(ptr, val ir.ValueID) {
	b.emit(ir.NewStore(ptr, val))
}

func (b *builder) emitConst(v int32) ir.ValueID {
	id := b.newValue()
	b.emit(ir.NewConst(id, v))
	return id
}

func (b *builder) emitBin(kind ir.BinKind, l, r ir.ValueID) ir.ValueID {
	id := b.newValue()
	b.emit(ir.NewBinOp(id, kind, l, r))
	return id
}

func (b *builder) emitICmp(pred ir.Cond, l, r ir.ValueID) ir.ValueID {
	id := b.newValue()
	b.emit(ir.NewICmp(id, pred, l, r))
	return id
}

func (b *builder) emitZExt(src ir.ValueID) ir.ValueID {
	id := b.newValue()
	b.emit(ir.NewZExt(id, src))
	return id
}

func (b *builder) emitIntToPtr(src ir.ValueID) ir.ValueID {
	id := b.newValue()
	b.emit(ir.NewIntToPtr(id, src))
	return id
}

// closeOutUnterminatedBlocks synthesizes a terminator for every block
// left open at the end of lifting: `ret (load %eax)` for entry blocks,
// `ret 0` for everything else (including unreachable JMP continuations).
func closeOutUnterminatedBlocks(ctx context.Context, m *ir.Module) {
	for _, fn := range m.Funcs {
		for bi, blk := range fn.Blocks {
			if hasTerminator(blk) {
				continue
			}
			if bi == 0 {
				eax := slotOrAlloca(fn, "%eax")
				id := nextValueID(fn)
				blk.Ops = append(blk.Ops, ir.NewLoad(id, eax))
				blk.Ops = append(blk.Ops, &ir.Ret{Val: id, HasVal: true})
			} else {
				id := nextValueID(fn)
				blk.Ops = append(blk.Ops, ir.NewConst(id, 0))
				blk.Ops = append(blk.Ops, &ir.Ret{Val: id, HasVal: true})
			}
			if tlog.If("lift") {
				tlog.SpanFromContext(ctx).Printw("synthesized terminator", "func", fn.Name, "block", blk.Name, "from", loc.Caller(1))
			}
		}
	}
}

func hasTerminator(b *ir.Block) bool {
	if len(b.Ops) == 0 {
		return false
	}
	_, ok := b.Ops[len(b.Ops)-1].(ir.Terminator)
	return ok
}

func slotOrAlloca(fn *ir.Func, name string) ir.ValueID {
	if id, ok := fn.Slots[name]; ok {
		return id
	}
	id := nextValueID(fn)
	alloca := ir.NewAlloca(id, name, ir.I32)
	entry := fn.Blocks[0]
	entry.Ops = append([]ir.Op{alloca}, entry.Ops...)
	fn.Slots[name] = id
	return id
}

// nextValueID scans every block for the highest ValueID in use and
// returns one past it. Only used by closeOutUnterminatedBlocks, which
// runs after the per-function builder that tracked this counter has
// gone out of scope.
func nextValueID(fn *ir.Func) ir.ValueID {
	max := ir.ValueID(-1)
	for _, blk := range fn.Blocks {
		for _, op := range blk.Ops {
			if v := op.Result(); v > max {
				max = v
			}
		}
	}
	return max + 1
}
