package fm

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-fractalfm/dsp/core"
)

const (
	// MaxChannels is the polyphony limit of a bank.
	MaxChannels = 16
	// Operators is the number of stacked sine operators per voice.
	Operators = 4
	// FreqC4 is the carrier frequency at pitch 0.
	FreqC4 = 261.6256
	// OutputGain scales the normalized cascade output to a ±5 V audio signal.
	OutputGain = 5.0
)

var (
	ErrInvalidSampleRate   = errors.New("fm: sample rate must be > 0 and finite")
	ErrInvalidOversampling = errors.New("fm: oversampling factor must be >= 1")
	ErrInvalidReference    = errors.New("fm: reference frequency must be > 0 and finite")
)

// Params are the effective per-channel synthesis values after panel knobs
// and control voltages have been combined.
type Params struct {
	// Pitch in octaves relative to the reference frequency (1 V/oct).
	Pitch float64
	// Ratio between successive operator frequencies.
	Ratio float64
	// Depth is the modulation index applied at every cascade stage.
	Depth float64
	// Delay shifts each modulator's phase by its order times its ratio power.
	Delay float64
}

// Option configures a Bank at construction.
type Option func(*config) error

type config struct {
	oversampling int
	refHz        float64
}

func defaultConfig() config {
	return config{
		oversampling: 1,
		refHz:        FreqC4,
	}
}

// WithOversampling sets the initial number of sub-steps per output sample.
func WithOversampling(factor int) Option {
	return func(cfg *config) error {
		if factor < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidOversampling, factor)
		}

		cfg.oversampling = factor

		return nil
	}
}

// WithReferenceFrequency sets the carrier frequency in Hz produced at pitch 0.
func WithReferenceFrequency(hz float64) Option {
	return func(cfg *config) error {
		if hz <= 0 || !core.IsFinite(hz) {
			return fmt.Errorf("%w: %f", ErrInvalidReference, hz)
		}

		cfg.refHz = hz

		return nil
	}
}

// Bank is a fixed set of MaxChannels FM voices sharing one engine
// configuration.
//
// SetSampleRate and SetOversampling may be called from a control goroutine
// while another goroutine renders. The render goroutine picks the new values
// up at its next Render call. Render, RenderBlock and Reset own the voice
// phases and must not run concurrently with each other.
type Bank struct {
	voices [MaxChannels]voice
	refHz  float64

	sampleTime   atomic.Uint64 // math.Float64bits of seconds per output sample
	oversampling atomic.Int64
}

// NewBank creates a bank with all phases at zero.
func NewBank(sampleRate float64, opts ...Option) (*Bank, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("%w: %f", ErrInvalidSampleRate, sampleRate)
	}

	cfg := defaultConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	b := &Bank{refHz: cfg.refHz}
	b.sampleTime.Store(math.Float64bits(1 / sampleRate))
	b.oversampling.Store(int64(cfg.oversampling))

	return b, nil
}

// SetSampleRate recomputes the sample time. Invalid rates are rejected and
// the previous sample time is kept.
func (b *Bank) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return fmt.Errorf("%w: %f", ErrInvalidSampleRate, sampleRate)
	}

	b.sampleTime.Store(math.Float64bits(1 / sampleRate))

	return nil
}

// SetOversampling sets the number of sub-steps per output sample.
// Factors below 1 are clamped to 1.
func (b *Bank) SetOversampling(factor int) {
	if factor < 1 {
		factor = 1
	}

	b.oversampling.Store(int64(factor))
}

// Oversampling returns the current sub-step count.
func (b *Bank) Oversampling() int { return int(b.oversampling.Load()) }

// SampleTime returns seconds per output sample.
func (b *Bank) SampleTime() float64 { return math.Float64frombits(b.sampleTime.Load()) }

// SampleRate returns the output sample rate in Hz.
func (b *Bank) SampleRate() float64 { return 1 / b.SampleTime() }

// ReferenceFrequency returns the carrier frequency at pitch 0.
func (b *Bank) ReferenceFrequency() float64 { return b.refHz }

// Reset returns every voice to its construction state.
func (b *Bank) Reset() {
	for i := range b.voices {
		b.voices[i] = voice{}
	}
}

// Phases returns the four phase accumulators of channel c, carrier first.
// Out-of-range channels report zero phases.
func (b *Bank) Phases(c int) [Operators]float64 {
	if c < 0 || c >= MaxChannels {
		return [Operators]float64{}
	}

	return b.voices[c].phase
}

// Frequencies returns the operator frequencies in Hz for p, carrier first.
func (b *Bank) Frequencies(p Params) [Operators]float64 {
	return operatorFrequencies(b.refHz, p)
}

// Render advances channels voices by one output sample and writes their
// voltages to out. The channel count is clamped to [1, MaxChannels] and to
// len(out); channels without an entry in params render with zero Params.
// It returns the number of channels written.
func (b *Bank) Render(channels int, params []Params, out []float64) int {
	channels = core.ClampInt(channels, 1, MaxChannels)
	if channels > len(out) {
		channels = len(out)
	}

	dt, steps := b.stepSize()

	for c := 0; c < channels; c++ {
		var p Params
		if c < len(params) {
			p = params[c]
		}

		out[c] = b.voices[c].render(b.refHz, p, dt, steps)
	}

	return channels
}

// RenderBlock renders len(dst[0]) output samples for each channel, holding
// params constant for the whole block. dst holds one buffer per channel; the
// channel count is clamped as in Render and additionally to len(dst).
// Buffers shorter than dst[0] limit the block length.
func (b *Bank) RenderBlock(channels int, params []Params, dst [][]float64) int {
	channels = core.ClampInt(channels, 1, MaxChannels)
	if channels > len(dst) {
		channels = len(dst)
	}
	if channels == 0 {
		return 0
	}

	frames := len(dst[0])
	for c := 1; c < channels; c++ {
		if len(dst[c]) < frames {
			frames = len(dst[c])
		}
	}

	dt, steps := b.stepSize()

	for c := 0; c < channels; c++ {
		var p Params
		if c < len(params) {
			p = params[c]
		}

		v := &b.voices[c]
		buf := dst[c][:frames]
		for i := range buf {
			buf[i] = v.render(b.refHz, p, dt, steps)
		}
	}

	return channels
}

// stepSize snapshots the engine configuration for one render call.
func (b *Bank) stepSize() (float64, int) {
	steps := int(b.oversampling.Load())
	if steps < 1 {
		steps = 1
	}

	return b.SampleTime() / float64(steps), steps
}
