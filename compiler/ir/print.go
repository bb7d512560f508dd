package ir

import (
	"fmt"
	"io"
)

// Printer writes a debug dump of a module: one line per op, grouped by
// function and block. It is not the lowerer's canonical output — that is
// wasmtext.Printer — this exists for tlog dumps and test failure messages.
type Printer struct {
	w io.Writer
}

func NewPrinter(w io.Writer) *Printer { return &Printer{w: w} }

func (p *Printer) PrintModule(m *Module) {
	for _, f := range m.Funcs {
		p.PrintFunc(f)
	}
}

func (p *Printer) PrintFunc(f *Func) {
	fmt.Fprintf(p.w, "func %s() -> %s {\n", f.Name, f.ResultType)
	for _, b := range f.Blocks {
		fmt.Fprintf(p.w, "  block %d (%s):\n", b.ID, b.Name)
		for _, op := range b.Ops {
			fmt.Fprintf(p.w, "    %s\n", formatOp(op))
		}
	}
	fmt.Fprintln(p.w, "}")
}

func formatOp(op Op) string {
	switch x := op.(type) {
	case *Alloca:
		return fmt.Sprintf("%%%d = alloca %s %q", x.id, x.Type, x.Name)
	case *Const:
		return fmt.Sprintf("%%%d = const %d", x.id, x.Value)
	case *Load:
		return fmt.Sprintf("%%%d = load %%%d", x.id, x.Ptr)
	case *Store:
		return fmt.Sprintf("store %%%d, %%%d", x.Ptr, x.Val)
	case *BinOp:
		return fmt.Sprintf("%%%d = %s %%%d, %%%d", x.id, binKindName(x.Kind), x.L, x.R)
	case *ICmp:
		return fmt.Sprintf("%%%d = icmp_%s %%%d, %%%d", x.id, x.Pred, x.L, x.R)
	case *ZExt:
		return fmt.Sprintf("%%%d = zext %%%d", x.id, x.Src)
	case *IntToPtr:
		return fmt.Sprintf("%%%d = itp %%%d", x.id, x.Src)
	case *PtrToInt:
		return fmt.Sprintf("%%%d = pti %%%d", x.id, x.Src)
	case *Call:
		return fmt.Sprintf("%%%d = call %d", x.id, x.Func)
	case *Ret:
		if x.HasVal {
			return fmt.Sprintf("ret %%%d", x.Val)
		}
		return "ret"
	case *Br:
		return fmt.Sprintf("br %d", x.Target)
	case *CondBr:
		return fmt.Sprintf("cond_br %%%d, %d, %d", x.Cond, x.True, x.False)
	default:
		return fmt.Sprintf("<unknown %T>", op)
	}
}

func binKindName(k BinKind) string {
	switch k {
	case Add:
		return "add"
	case Sub:
		return "sub"
	case Mul:
		return "mul"
	case SDiv:
		return "sdiv"
	default:
		return "add"
	}
}
