package ir

import "testing"

func TestBlockByName(t *testing.T) {
	f := &Func{
		Name: "main",
		Blocks: []*Block{
			{ID: 0, Name: "entry"},
			{ID: 1, Name: "hit"},
		},
	}

	b, ok := f.BlockByName("hit")
	if !ok {
		t.Fatalf("block %q not found", "hit")
	}
	if b.ID != 1 {
		t.Errorf("BlockByName(hit).ID = %d, want 1", b.ID)
	}

	if _, ok := f.BlockByName("nope"); ok {
		t.Errorf("BlockByName(nope) found a block, want none")
	}
}

func TestFuncByName(t *testing.T) {
	m := &Module{
		Funcs: []*Func{
			{Name: "main"},
			{Name: "foo"},
		},
	}

	id, f, ok := m.FuncByName("foo")
	if !ok || id != 1 || f.Name != "foo" {
		t.Fatalf("FuncByName(foo) = %d, %v, %v", id, f, ok)
	}

	if _, _, ok := m.FuncByName("bar"); ok {
		t.Errorf("FuncByName(bar) found a function, want none")
	}
}

func TestTerminatorMarker(t *testing.T) {
	var ops = []Op{
		&Ret{HasVal: true, Val: 0},
		&Br{Target: 1},
		&CondBr{Cond: 0, True: 1, False: 2},
	}

	for _, op := range ops {
		if _, ok := op.(Terminator); !ok {
			t.Errorf("%T does not implement Terminator", op)
		}
	}

	nonTerm := []Op{NewConst(0, 1), NewAlloca(1, "%eax", I32)}
	for _, op := range nonTerm {
		if _, ok := op.(Terminator); ok {
			t.Errorf("%T unexpectedly implements Terminator", op)
		}
	}
}
