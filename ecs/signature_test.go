package ecs

import (
	"testing"
)

func TestSignatureSetUnset(t *testing.T) {
	var sig Signature

	if !sig.IsZero() {
		t.Error("expected fresh signature to be zero")
	}

	sig.set(0)
	sig.set(63)
	sig.set(64)
	sig.set(255)

	for _, bit := range []uint8{0, 63, 64, 255} {
		if !sig.Has(bit) {
			t.Errorf("expected bit %d to be set", bit)
		}
	}
	if sig.Has(1) {
		t.Error("expected bit 1 to be clear")
	}
	if sig.Count() != 4 {
		t.Errorf("expected 4 bits set, got %d", sig.Count())
	}

	sig.unset(63)
	if sig.Has(63) {
		t.Error("expected bit 63 to be clear after unset")
	}
	if sig.Count() != 3 {
		t.Errorf("expected 3 bits set, got %d", sig.Count())
	}
}

func TestSignatureContainsAll(t *testing.T) {
	var super, sub, other Signature
	super.set(1)
	super.set(70)
	super.set(200)
	sub.set(1)
	sub.set(200)
	other.set(2)

	if !super.ContainsAll(sub) {
		t.Error("expected superset to contain subset")
	}
	if sub.ContainsAll(super) {
		t.Error("expected subset not to contain superset")
	}
	if super.ContainsAll(other) {
		t.Error("expected disjoint signature not to be contained")
	}

	// Every signature contains the empty one.
	if !sub.ContainsAll(Signature{}) {
		t.Error("expected any signature to contain the zero signature")
	}
}

func TestSignatureBitsAscending(t *testing.T) {
	var sig Signature
	want := []uint8{3, 64, 128, 250}
	for _, bit := range want {
		sig.set(bit)
	}

	var got []uint8
	sig.bits(func(bit uint8) bool {
		got = append(got, bit)
		return true
	})

	if len(got) != len(want) {
		t.Fatalf("expected %d bits, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bit %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestSignatureBitsEarlyStop(t *testing.T) {
	var sig Signature
	sig.set(1)
	sig.set(2)
	sig.set(3)

	visited := 0
	sig.bits(func(uint8) bool {
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Errorf("expected iteration to stop after 2 bits, got %d", visited)
	}
}
