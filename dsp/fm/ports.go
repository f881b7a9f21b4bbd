package fm

import (
	"math"

	"github.com/cwbudde/algo-fractalfm/dsp/core"
)

// cvFullScale is the control voltage that maps to a multiplier of 1.
const cvFullScale = 10.0

// Knob ranges of the panel parameters.
const (
	MinPitch, MaxPitch = 0.0, 1.0
	MinRatio, MaxRatio = 0.0, 10.0
	MinDepth, MaxDepth = 0.0, 3.0
	MinDelay, MaxDelay = 0.0, 2 * math.Pi
)

// Knobs are the panel parameter values shared by every channel.
type Knobs struct {
	Pitch float64
	Ratio float64
	Depth float64
	Delay float64
}

// DefaultKnobs returns the panel state of a freshly added module.
func DefaultKnobs() Knobs {
	return Knobs{Ratio: 1}
}

// Clamped returns k with every value limited to its panel range.
func (k Knobs) Clamped() Knobs {
	return Knobs{
		Pitch: core.Clamp(k.Pitch, MinPitch, MaxPitch),
		Ratio: core.Clamp(k.Ratio, MinRatio, MaxRatio),
		Depth: core.Clamp(k.Depth, MinDepth, MaxDepth),
		Delay: core.Clamp(k.Delay, MinDelay, MaxDelay),
	}
}

// Jack is one polyphonic control-voltage input.
type Jack struct {
	Voltages  [MaxChannels]float64
	Channels  int
	Connected bool
}

// SetMono connects the jack with a single channel carrying v.
func (j *Jack) SetMono(v float64) {
	j.Voltages = [MaxChannels]float64{v}
	j.Channels = 1
	j.Connected = true
}

// SetPoly connects the jack with one channel per value, up to MaxChannels.
// An empty slice connects a cable that carries no channels.
func (j *Jack) SetPoly(volts []float64) {
	j.Voltages = [MaxChannels]float64{}
	j.Channels = copy(j.Voltages[:], volts)
	j.Connected = true
}

// Disconnect removes the cable from the jack.
func (j *Jack) Disconnect() {
	*j = Jack{}
}

// ChannelCount returns the number of channels the jack carries.
func (j *Jack) ChannelCount() int {
	if !j.Connected {
		return 0
	}

	return core.ClampInt(j.Channels, 0, MaxChannels)
}

// Poly returns the voltage seen by channel c. A mono cable feeds every
// channel; channels the cable does not carry read 0 V.
func (j *Jack) Poly(c int) float64 {
	n := j.ChannelCount()
	if n == 1 {
		return j.Voltages[0]
	}

	if c < 0 || c >= n {
		return 0
	}

	return j.Voltages[c]
}

// Inputs groups the module's CV jacks.
type Inputs struct {
	Note  Jack
	Ratio Jack
	Depth Jack
	Delay Jack
}

// Controls is the complete host-side control state of a Module.
type Controls struct {
	Knobs  Knobs
	Inputs Inputs
}

// Channels returns the number of voices the controls ask for: the note
// input's channel count, but never less than 1.
func (c *Controls) Channels() int {
	return core.ClampInt(c.Inputs.Note.ChannelCount(), 1, MaxChannels)
}

// Combine returns the effective Params of channel c.
//
// Pitch and delay add their CV to the knob. Ratio and depth scale the knob by
// cv/10 (0 for non-positive voltages) when a cable is connected and use the
// knob unchanged otherwise.
func Combine(k Knobs, in *Inputs, c int) Params {
	p := Params{
		Pitch: k.Pitch + in.Note.Poly(c),
		Ratio: k.Ratio,
		Depth: k.Depth,
		Delay: k.Delay + in.Delay.Poly(c),
	}

	if in.Ratio.Connected {
		p.Ratio *= scaleCV(in.Ratio.Poly(c))
	}

	if in.Depth.Connected {
		p.Depth *= scaleCV(in.Depth.Poly(c))
	}

	return p
}

func scaleCV(v float64) float64 {
	if v > 0 {
		return v / cvFullScale
	}

	return 0
}

// Output is the module's polyphonic audio output. Voltages are emitted in
// single precision.
type Output struct {
	Voltages [MaxChannels]float32
	Channels int
}

// Module adapts a Bank to a modular-synth host: the host writes Knobs and
// Inputs, calls Process once per sample and reads Output.
type Module struct {
	Controls
	Output Output

	bank   *Bank
	params [MaxChannels]Params
	volts  [MaxChannels]float64
}

// NewModule creates a module with default knobs and no cables connected.
func NewModule(sampleRate float64, opts ...Option) (*Module, error) {
	bank, err := NewBank(sampleRate, opts...)
	if err != nil {
		return nil, err
	}

	return &Module{
		Controls: Controls{Knobs: DefaultKnobs()},
		bank:     bank,
	}, nil
}

// Bank returns the voice bank driven by the module.
func (m *Module) Bank() *Bank { return m.bank }

// SetControls replaces knobs and inputs in one step.
func (m *Module) SetControls(c Controls) { m.Controls = c }

// OnSampleRateChange is the host hook for sample-rate changes.
func (m *Module) OnSampleRateChange(sampleRate float64) error {
	return m.bank.SetSampleRate(sampleRate)
}

// SetOversampling forwards a factor chosen on the host's control surface.
func (m *Module) SetOversampling(factor int) {
	m.bank.SetOversampling(factor)
}

// Process renders one sample for every active channel and publishes the
// voltages and channel count on Output.
func (m *Module) Process() int {
	channels := m.Channels()

	for c := 0; c < channels; c++ {
		m.params[c] = Combine(m.Knobs, &m.Inputs, c)
	}

	n := m.bank.Render(channels, m.params[:channels], m.volts[:])
	for c := 0; c < n; c++ {
		m.Output.Voltages[c] = float32(m.volts[c])
	}

	for c := n; c < MaxChannels; c++ {
		m.Output.Voltages[c] = 0
	}

	m.Output.Channels = n

	return n
}
