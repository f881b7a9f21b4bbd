package fm

import (
	"math"

	"github.com/cwbudde/algo-fractalfm/dsp/core"
)

const twoPi = 2 * math.Pi

// voice is the per-channel oscillator state: one phase accumulator per
// operator, index 0 being the carrier.
type voice struct {
	phase [Operators]float64
}

// render advances the voice by one output sample of steps sub-steps, each dt
// seconds long, and returns the averaged, gain-scaled cascade output.
func (v *voice) render(refHz float64, p Params, dt float64, steps int) float64 {
	freq := operatorFrequencies(refHz, p)
	offset := delayOffsets(p.Ratio, p.Delay)

	var inc [Operators]float64
	for k := range inc {
		inc[k] = freq[k] * dt
	}

	var sum float64
	for s := 0; s < steps; s++ {
		for k := range v.phase {
			v.phase[k] = core.WrapUnit(v.phase[k] + inc[k])
		}

		sum += cascade(&v.phase, &offset, p.Depth)
	}

	return OutputGain * sum / float64(steps)
}

// cascade evaluates the operator chain from the deepest modulator down to the
// carrier. Each stage adds depth times the previous stage's output to its own
// phase argument.
func cascade(phase, offset *[Operators]float64, depth float64) float64 {
	var y float64
	for k := Operators - 1; k >= 0; k-- {
		y = math.Sin(twoPi*phase[k] - offset[k] + depth*y)
	}

	return y
}

// operatorFrequencies returns f1..f4 where f1 follows pitch and every deeper
// operator runs at ratio times the frequency of the one above it.
func operatorFrequencies(refHz float64, p Params) [Operators]float64 {
	var f [Operators]float64

	f[0] = pitchToFrequency(refHz, p.Pitch)
	for k := 1; k < Operators; k++ {
		f[k] = f[k-1] * p.Ratio
	}

	return f
}

// delayOffsets returns the phase shift in radians of every operator:
// k·ratio^k·delay for operator index k.
func delayOffsets(ratio, delay float64) [Operators]float64 {
	var off [Operators]float64
	if delay == 0 {
		return off
	}

	scale := 1.0
	for k := 1; k < Operators; k++ {
		scale *= ratio
		off[k] = float64(k) * scale * delay
	}

	return off
}
