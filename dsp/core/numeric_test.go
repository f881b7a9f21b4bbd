package core

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		min      float64
		max      float64
		expected float64
	}{
		{name: "inside", value: 0.5, min: 0, max: 1, expected: 0.5},
		{name: "below", value: -1, min: 0, max: 1, expected: 0},
		{name: "above", value: 2, min: 0, max: 1, expected: 1},
		{name: "swapped", value: 2, min: 1, max: 0, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.value, tt.min, tt.max)
			if got != tt.expected {
				t.Fatalf("Clamp() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestClampInt(t *testing.T) {
	tests := []struct {
		value, min, max, expected int
	}{
		{value: 0, min: 1, max: 16, expected: 1},
		{value: 8, min: 1, max: 16, expected: 8},
		{value: 40, min: 1, max: 16, expected: 16},
		{value: 40, min: 16, max: 1, expected: 16},
	}

	for _, tt := range tests {
		if got := ClampInt(tt.value, tt.min, tt.max); got != tt.expected {
			t.Fatalf("ClampInt(%d, %d, %d) = %d, want %d", tt.value, tt.min, tt.max, got, tt.expected)
		}
	}
}

func TestNearlyEqual(t *testing.T) {
	if !NearlyEqual(1.0, 1.0+1e-13, 1e-12) {
		t.Fatal("expected values to be nearly equal")
	}
	if NearlyEqual(1.0, 1.1, 1e-3) {
		t.Fatal("expected values to differ")
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(1) {
		t.Fatal("IsFinite(1) = false, want true")
	}
	if IsFinite(math.NaN()) || IsFinite(math.Inf(1)) || IsFinite(math.Inf(-1)) {
		t.Fatal("IsFinite accepted a non-finite value")
	}
}

func TestWrapUnit(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "in range", in: 0.25, want: 0.25},
		{name: "zero", in: 0, want: 0},
		{name: "exactly one", in: 1, want: 0},
		{name: "above one", in: 1.25, want: 0.25},
		{name: "many cycles", in: 7.5, want: 0.5},
		{name: "negative", in: -0.25, want: 0.75},
		{name: "tiny negative", in: -1e-18, want: 0},
		{name: "huge", in: 1e300, want: 0},
		{name: "positive infinity", in: math.Inf(1), want: 0},
		{name: "negative infinity", in: math.Inf(-1), want: 0},
		{name: "nan", in: math.NaN(), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapUnit(tt.in)
			if !NearlyEqual(got, tt.want, 1e-12) {
				t.Fatalf("WrapUnit(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if got < 0 || got >= 1 {
				t.Fatalf("WrapUnit(%v) = %v outside [0, 1)", tt.in, got)
			}
		})
	}
}
