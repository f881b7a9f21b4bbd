package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	s := DeterministicSine(1000, 48000, 1.0, 48)
	if len(s) != 48 {
		t.Fatalf("len = %d, want 48", len(s))
	}
	// First sample of a sine at phase 0 should be 0.
	if math.Abs(s[0]) > 1e-15 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
	for i, v := range s {
		if v < -1 || v > 1 {
			t.Fatalf("s[%d] = %v out of range", i, v)
		}
	}
}

func TestMix(t *testing.T) {
	got := Mix([]float64{1, 2, 3}, []float64{10, 20})
	want := []float64{11, 22}
	RequireSliceNearlyEqual(t, got, want, 0)

	if Mix() != nil {
		t.Fatal("Mix() with no signals should be nil")
	}
}
