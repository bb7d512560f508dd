package asmerr

import "testing"

func TestIsMatchesWrappedKind(t *testing.T) {
	base := New(BadAddressExpression, "bad address: %s", "(%eax+)")
	wrapped := Wrap(BadAddressExpression, base, "lift MOV")

	if !Is(wrapped, BadAddressExpression) {
		t.Errorf("Is(wrapped, BadAddressExpression) = false, want true")
	}
	if Is(wrapped, UnknownInstruction) {
		t.Errorf("Is(wrapped, UnknownInstruction) = true, want false")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(IoOpen, nil, "read file") != nil {
		t.Errorf("Wrap(nil) should return nil")
	}
}
