package types

import "testing"

func TestOptional(t *testing.T) {
	var empty Optional[int]
	if !empty.Empty() {
		t.Error("zero Optional should be empty")
	}
	if _, ok := empty.Unpack(); ok {
		t.Error("Unpack of empty Optional should not be ok")
	}

	full := NewOptional(42)
	if full.Empty() {
		t.Error("NewOptional should not be empty")
	}
	if v, ok := full.Unpack(); !ok || v != 42 {
		t.Errorf("Unpack = %v, %v, want 42, true", v, ok)
	}
	if full.Value() != 42 {
		t.Errorf("Value = %v, want 42", full.Value())
	}
}

func TestOptionalValuePanicsWhenEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Value on empty Optional should panic")
		}
	}()
	var empty Optional[string]
	_ = empty.Value()
}
