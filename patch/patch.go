// Package patch stores module settings as versioned JSON documents and
// hot-reloads them from disk.
package patch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/cwbudde/algo-fractalfm/dsp/fm"
)

// FormatVersion is the version written by Save.
const FormatVersion = "1.0.0"

// supportedVersions is the range of format versions Parse accepts.
const supportedVersions = "^1"

var (
	ErrUnsupportedVersion = errors.New("patch: unsupported version")
	ErrInvalidSampleRate  = errors.New("patch: sample rate must not be negative")
	ErrInvalidOversample  = errors.New("patch: oversampling must not be negative")
	ErrTooManyChannels    = errors.New("patch: too many channels")
)

var versionConstraint = mustConstraint(supportedVersions)

func mustConstraint(expr string) *semver.Constraints {
	c, err := semver.NewConstraint(expr)
	if err != nil {
		panic(err)
	}
	return c
}

// Knobs mirrors fm.Knobs with JSON field names.
type Knobs struct {
	Pitch float64 `json:"pitch"`
	Ratio float64 `json:"ratio"`
	Depth float64 `json:"depth"`
	Delay float64 `json:"delay"`
}

// Patch is a saved module state. Notes holds one pitch voltage per voice;
// without notes the note input stays unpatched. A nil CV slice leaves the
// jack disconnected; an empty one connects a cable carrying no channels.
// Zero SampleRate and Oversampling keep the module's current values.
type Patch struct {
	Version      string     `json:"version"`
	SampleRate   float64    `json:"sampleRate,omitempty"`
	Oversampling int        `json:"oversampling,omitempty"`
	Knobs        Knobs      `json:"knobs"`
	Notes        []float64  `json:"notes,omitempty"`
	RatioCV      *[]float64 `json:"ratioCV,omitempty"`
	DepthCV      *[]float64 `json:"depthCV,omitempty"`
	DelayCV      *[]float64 `json:"delayCV,omitempty"`
}

// New returns a patch holding the panel state of a freshly added module.
func New() *Patch {
	k := fm.DefaultKnobs()

	return &Patch{
		Version: FormatVersion,
		Knobs:   Knobs(k),
	}
}

// FromControls captures the module controls c.
func FromControls(c fm.Controls) *Patch {
	p := New()
	p.Knobs = Knobs(c.Knobs)
	p.Notes = jackValues(&c.Inputs.Note)
	p.RatioCV = jackPointer(&c.Inputs.Ratio)
	p.DepthCV = jackPointer(&c.Inputs.Depth)
	p.DelayCV = jackPointer(&c.Inputs.Delay)

	return p
}

// Parse decodes and validates a patch. Fields missing from the document keep
// their defaults.
func Parse(r io.Reader) (*Patch, error) {
	p := New()
	p.Version = ""

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("patch: decode: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Load reads and parses the patch file at path.
func Load(path string) (*Patch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return p, nil
}

// Save writes p as indented JSON.
func (p *Patch) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("patch: encode: %w", err)
	}

	return nil
}

// Validate checks the version and value ranges of p.
func (p *Patch) Validate() error {
	v, err := semver.NewVersion(p.Version)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, p.Version)
	}

	if !versionConstraint.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, v, supportedVersions)
	}

	if p.SampleRate < 0 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRate, p.SampleRate)
	}

	if p.Oversampling < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOversample, p.Oversampling)
	}

	for name, values := range map[string]*[]float64{
		"notes":   &p.Notes,
		"ratioCV": p.RatioCV,
		"depthCV": p.DepthCV,
		"delayCV": p.DelayCV,
	} {
		if values != nil && len(*values) > fm.MaxChannels {
			return fmt.Errorf("%w: %s has %d, max %d", ErrTooManyChannels, name, len(*values), fm.MaxChannels)
		}
	}

	return nil
}

// Controls returns the module controls described by p. Knobs are clamped to
// their panel ranges.
func (p *Patch) Controls() fm.Controls {
	c := fm.Controls{Knobs: fm.Knobs(p.Knobs).Clamped()}

	if len(p.Notes) > 0 {
		c.Inputs.Note.SetPoly(p.Notes)
	}

	setJack(&c.Inputs.Ratio, p.RatioCV)
	setJack(&c.Inputs.Depth, p.DepthCV)
	setJack(&c.Inputs.Delay, p.DelayCV)

	return c
}

// Apply configures m from p.
func (p *Patch) Apply(m *fm.Module) error {
	if p.SampleRate > 0 {
		if err := m.OnSampleRateChange(p.SampleRate); err != nil {
			return fmt.Errorf("patch: %w", err)
		}
	}

	if p.Oversampling > 0 {
		m.SetOversampling(p.Oversampling)
	}

	m.SetControls(p.Controls())

	return nil
}

func setJack(j *fm.Jack, values *[]float64) {
	if values == nil {
		j.Disconnect()
		return
	}

	j.SetPoly(*values)
}

func jackValues(j *fm.Jack) []float64 {
	n := j.ChannelCount()
	if n == 0 {
		return nil
	}

	return append([]float64(nil), j.Voltages[:n]...)
}

func jackPointer(j *fm.Jack) *[]float64 {
	if !j.Connected {
		return nil
	}

	values := append([]float64{}, j.Voltages[:j.ChannelCount()]...)

	return &values
}
