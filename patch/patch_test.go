package patch

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/algo-fractalfm/dsp/fm"
)

func TestParseDefaults(t *testing.T) {
	p, err := Parse(strings.NewReader(`{"version": "1.0.0"}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got, want := fm.Knobs(p.Knobs), fm.DefaultKnobs(); got != want {
		t.Fatalf("Knobs = %+v, want %+v", got, want)
	}

	c := p.Controls()
	if c.Inputs.Note.Connected || c.Inputs.Ratio.Connected || c.Inputs.Depth.Connected || c.Inputs.Delay.Connected {
		t.Fatalf("default patch connected a jack: %+v", c.Inputs)
	}
}

func TestParse(t *testing.T) {
	doc := `{
		"version": "1.2.0",
		"sampleRate": 96000,
		"oversampling": 4,
		"knobs": {"pitch": 0.5, "ratio": 2.5, "depth": 1.2, "delay": 0.3},
		"notes": [0, 1, -1],
		"ratioCV": [5],
		"depthCV": []
	}`

	p, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if p.SampleRate != 96000 || p.Oversampling != 4 {
		t.Fatalf("SampleRate, Oversampling = %v, %v, want 96000, 4", p.SampleRate, p.Oversampling)
	}

	c := p.Controls()

	if got := c.Channels(); got != 3 {
		t.Fatalf("Channels() = %d, want 3", got)
	}

	if got := fm.Combine(c.Knobs, &c.Inputs, 2); got != (fm.Params{Pitch: -0.5, Ratio: 1.25, Depth: 0, Delay: 0.3}) {
		t.Fatalf("Combine(channel 2) = %+v", got)
	}

	if !c.Inputs.Depth.Connected || c.Inputs.Depth.Channels != 0 {
		t.Fatalf("empty depthCV should connect a cable without channels: %+v", c.Inputs.Depth)
	}

	if c.Inputs.Delay.Connected {
		t.Fatal("missing delayCV should leave the jack disconnected")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{name: "missing version", doc: `{}`, want: ErrUnsupportedVersion},
		{name: "bad version", doc: `{"version": "one"}`, want: ErrUnsupportedVersion},
		{name: "future major", doc: `{"version": "2.0.0"}`, want: ErrUnsupportedVersion},
		{name: "negative rate", doc: `{"version": "1.0.0", "sampleRate": -1}`, want: ErrInvalidSampleRate},
		{name: "negative oversampling", doc: `{"version": "1.0.0", "oversampling": -2}`, want: ErrInvalidOversample},
		{
			name: "too many notes",
			doc:  `{"version": "1.0.0", "notes": [0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0]}`,
			want: ErrTooManyChannels,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.doc)); !errors.Is(err, tt.want) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Parse(strings.NewReader(`{"version": "1.0.0", "volume": 3}`)); err == nil {
		t.Fatal("Parse() accepted an unknown field")
	}
}

func TestSaveParse(t *testing.T) {
	var c fm.Controls
	c.Knobs = fm.Knobs{Pitch: 0.25, Ratio: 3, Depth: 2, Delay: 1}
	c.Inputs.Note.SetPoly([]float64{0, 0.5})
	c.Inputs.Delay.SetMono(1.5)
	c.Inputs.Depth.SetPoly(nil)

	var buf bytes.Buffer
	if err := FromControls(c).Save(&buf); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	p, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	got := p.Controls()
	for ch := 0; ch < fm.MaxChannels; ch++ {
		if a, b := fm.Combine(got.Knobs, &got.Inputs, ch), fm.Combine(c.Knobs, &c.Inputs, ch); a != b {
			t.Fatalf("channel %d: Combine() = %+v after reload, want %+v", ch, a, b)
		}
	}

	if got.Channels() != c.Channels() {
		t.Fatalf("Channels() = %d, want %d", got.Channels(), c.Channels())
	}
}

func TestControlsClampKnobs(t *testing.T) {
	p := New()
	p.Knobs = Knobs{Pitch: 4, Ratio: 50, Depth: -1, Delay: 10}

	want := fm.Knobs{Pitch: fm.MaxPitch, Ratio: fm.MaxRatio, Depth: fm.MinDepth, Delay: fm.MaxDelay}
	if got := p.Controls().Knobs; got != want {
		t.Fatalf("Controls().Knobs = %+v, want %+v", got, want)
	}
}

func TestApply(t *testing.T) {
	m, err := fm.NewModule(44100)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	m.Inputs.Ratio.SetMono(3)

	p := New()
	p.SampleRate = 48000
	p.Oversampling = 8
	p.Knobs.Ratio = 2
	p.Notes = []float64{0, 1}

	if err := p.Apply(m); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got := m.Bank().SampleRate(); math.Abs(got-48000) > 1e-6 {
		t.Fatalf("SampleRate() = %v, want 48000", got)
	}

	if got := m.Bank().Oversampling(); got != 8 {
		t.Fatalf("Oversampling() = %d, want 8", got)
	}

	if m.Inputs.Ratio.Connected {
		t.Fatal("Apply() left the ratio jack connected")
	}

	if got := m.Process(); got != 2 {
		t.Fatalf("Process() = %d channels, want 2", got)
	}

	keep := New()
	if err := keep.Apply(m); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got := m.Bank().Oversampling(); got != 8 {
		t.Fatalf("zero oversampling changed the bank: Oversampling() = %d", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voice.json")

	if err := os.WriteFile(path, []byte(`{"version": "1.0.0", "knobs": {"ratio": 4}}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if p.Knobs.Ratio != 4 {
		t.Fatalf("Knobs.Ratio = %v, want 4", p.Knobs.Ratio)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load(missing) error = %v, want %v", err, os.ErrNotExist)
	}
}
