//go:build !fastmath

package fm

import "math"

// pitchToFrequency converts a 1 V/oct pitch to Hz relative to refHz.
func pitchToFrequency(refHz, pitch float64) float64 {
	return refHz * math.Exp2(pitch)
}
