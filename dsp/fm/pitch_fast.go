//go:build fastmath

package fm

import "github.com/meko-christian/algo-approx"

// ln2 is the natural logarithm of 2.
const ln2 = 0.693147180559945309417232121458

// pitchToFrequency converts a 1 V/oct pitch to Hz relative to refHz using
// the identity 2^x = e^(x·ln2).
func pitchToFrequency(refHz, pitch float64) float64 {
	return refHz * approx.FastExp(pitch*ln2)
}
