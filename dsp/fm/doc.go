// Package fm implements a polyphonic nested frequency-modulation oscillator.
//
// Each of the up to 16 voices stacks four sine operators. Operator 4 is the
// deepest modulator; its output phase-modulates operator 3, which modulates
// operator 2, which modulates the carrier (operator 1):
//
//	f1 = ref * 2^pitch,  f2 = ratio*f1,  f3 = ratio*f2,  f4 = ratio*f3
//	y4 = sin(2π·p4 − 3·ratio³·delay)
//	y3 = sin(2π·p3 − 2·ratio²·delay + depth·y4)
//	y2 = sin(2π·p2 − ratio·delay   + depth·y3)
//	y1 = sin(2π·p1                 + depth·y2)
//
// The phase accumulators p1..p4 are kept in double precision and wrapped into
// [0, 1) independently after every sub-step. With oversampling N, every output
// sample averages N sub-steps of length sampleTime/N and is scaled by
// [OutputGain].
//
// [Bank] is the numeric kernel. [Module] adapts it to a modular-synth style
// host: panel [Knobs], polyphonic CV [Jack] inputs and a float32 [Output].
//
// Render paths never allocate, lock or return errors. Out-of-contract inputs
// such as a zero channel count or a non-positive oversampling factor are
// clamped to the nearest valid value.
package fm
