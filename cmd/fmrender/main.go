// Command fmrender renders the nested-FM oscillator to a WAV file, one WAV
// channel per voice, and optionally prints a spectral analysis of each voice.
//
// Usage:
//
//	fmrender [flags]
//
// Flags set on the command line override values loaded from -patch.
//
// Examples:
//
//	fmrender -ratio 2 -depth 1.5 -o bell.wav
//	fmrender -voices 4 -spread 0.25 -oversample 8 -analyze -o chord.wav
//	fmrender -patch lead.json -seconds 5 -bits 24 -o lead.wav
//	fmrender -in lead.wav -analyze
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-fractalfm/dsp/core"
	"github.com/cwbudde/algo-fractalfm/dsp/fm"
	"github.com/cwbudde/algo-fractalfm/dsp/window"
	"github.com/cwbudde/algo-fractalfm/measure/tone"
	"github.com/cwbudde/algo-fractalfm/patch"
	"github.com/cwbudde/algo-fractalfm/render"
)

type options struct {
	patchPath  string
	knobs      fm.Knobs
	oversample int
	rate       float64
	seconds    float64
	voices     int
	spread     float64
	bits       int
	output     string
	input      string
	analyze    bool
	window     string
	verbose    bool

	set map[string]bool
}

func main() {
	defaults := fm.DefaultKnobs()

	var o options
	flag.StringVar(&o.patchPath, "patch", "", "load knobs, CVs and engine settings from a JSON patch")
	flag.Float64Var(&o.knobs.Pitch, "pitch", defaults.Pitch, "pitch knob in volts (0 = C4)")
	flag.Float64Var(&o.knobs.Ratio, "ratio", defaults.Ratio, "operator frequency ratio")
	flag.Float64Var(&o.knobs.Depth, "depth", defaults.Depth, "modulation depth")
	flag.Float64Var(&o.knobs.Delay, "delay", defaults.Delay, "modulator phase delay in radians")
	flag.IntVar(&o.oversample, "oversample", 1, "sub-steps per output sample")
	flag.Float64Var(&o.rate, "rate", 48000, "sample rate in Hz")
	flag.Float64Var(&o.seconds, "seconds", 2, "duration in seconds")
	flag.IntVar(&o.voices, "voices", 0, "number of voices (0 = from patch, else 1)")
	flag.Float64Var(&o.spread, "spread", 1.0/12, "pitch offset between voices in volts")
	flag.IntVar(&o.bits, "bits", 16, "WAV bit depth (16, 24 or 32)")
	flag.StringVar(&o.output, "o", "fractal-fm.wav", "output WAV file")
	flag.StringVar(&o.input, "in", "", "analyze an existing WAV file instead of rendering")
	flag.BoolVar(&o.analyze, "analyze", false, "print a spectral analysis of every voice")
	flag.StringVar(&o.window, "window", "blackman-harris-4t", "analysis window")
	flag.BoolVar(&o.verbose, "v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fmrender [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Renders the nested-FM oscillator to a multichannel WAV file.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fmrender -ratio 2 -depth 1.5 -o bell.wav\n")
		fmt.Fprintf(os.Stderr, "  fmrender -voices 4 -spread 0.25 -oversample 8 -analyze\n")
		fmt.Fprintf(os.Stderr, "  fmrender -in bell.wav -analyze\n")
	}
	flag.Parse()

	o.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(o, logger, os.Stdout); err != nil {
		logger.Error("fmrender failed", "err", err)
		os.Exit(1)
	}
}

func run(o options, logger *slog.Logger, stdout io.Writer) error {
	winType, ok := window.Lookup(o.window)
	if !ok {
		return fmt.Errorf("unknown window %q (known: %v)", o.window, window.Names())
	}

	if o.input != "" {
		return analyzeFile(o.input, winType, logger, stdout)
	}

	m, err := buildModule(o, logger)
	if err != nil {
		return err
	}

	sampleRate := m.Bank().SampleRate()
	frames := int(math.Round(o.seconds * sampleRate))
	if frames <= 0 {
		return fmt.Errorf("duration %gs renders no samples", o.seconds)
	}

	logger.Debug("rendering",
		"voices", m.Channels(),
		"frames", frames,
		"sampleRate", sampleRate,
		"oversampling", m.Bank().Oversampling(),
		"knobs", fmt.Sprintf("%+v", m.Knobs),
	)

	bufs := render.Offline(m, frames)

	if err := writeFile(o.output, bufs, int(math.Round(sampleRate)), o.bits); err != nil {
		return err
	}

	logger.Info("wrote", "path", o.output, "voices", len(bufs), "seconds", float64(frames)/sampleRate)

	if !o.analyze {
		return nil
	}

	expected := make([]float64, len(bufs))
	for c := range expected {
		expected[c] = m.Bank().Frequencies(fm.Combine(m.Knobs, &m.Inputs, c))[0]
	}

	return printAnalysis(stdout, bufs, expected, sampleRate, winType)
}

// buildModule applies defaults, then the patch file, then explicit flags.
func buildModule(o options, logger *slog.Logger) (*fm.Module, error) {
	cfg := core.ApplyProcessorOptions(
		core.WithSampleRate(o.rate),
		core.WithOversampling(o.oversample),
	)

	m, err := fm.NewModule(cfg.SampleRate, fm.WithOversampling(cfg.Oversampling))
	if err != nil {
		return nil, err
	}

	if o.patchPath != "" {
		p, err := patch.Load(o.patchPath)
		if err != nil {
			return nil, err
		}

		if err := p.Apply(m); err != nil {
			return nil, err
		}

		logger.Debug("loaded patch", "path", o.patchPath, "version", p.Version)
	}

	if o.set["rate"] {
		if err := m.OnSampleRateChange(o.rate); err != nil {
			return nil, err
		}
	}

	if o.set["oversample"] {
		if o.oversample < 1 {
			return nil, fmt.Errorf("%w: %d", fm.ErrInvalidOversampling, o.oversample)
		}
		m.SetOversampling(o.oversample)
	}

	knobs := m.Knobs
	if o.set["pitch"] {
		knobs.Pitch = o.knobs.Pitch
	}
	if o.set["ratio"] {
		knobs.Ratio = o.knobs.Ratio
	}
	if o.set["depth"] {
		knobs.Depth = o.knobs.Depth
	}
	if o.set["delay"] {
		knobs.Delay = o.knobs.Delay
	}
	m.Knobs = knobs.Clamped()

	if m.Knobs != knobs {
		logger.Warn("knobs clamped to panel ranges", "requested", fmt.Sprintf("%+v", knobs), "used", fmt.Sprintf("%+v", m.Knobs))
	}

	if o.voices > 0 {
		if o.voices > fm.MaxChannels {
			return nil, fmt.Errorf("voices must be at most %d, got %d", fm.MaxChannels, o.voices)
		}

		notes := make([]float64, o.voices)
		for i := range notes {
			notes[i] = float64(i) * o.spread
		}
		m.Inputs.Note.SetPoly(notes)
	}

	return m, nil
}

func writeFile(path string, bufs [][]float64, sampleRate, bits int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return render.WriteWAV(f, bufs, sampleRate, bits)
}

func analyzeFile(path string, winType window.Type, logger *slog.Logger, stdout io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bufs, sampleRate, err := render.ReadWAV(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	logger.Debug("read", "path", path, "channels", len(bufs), "sampleRate", sampleRate)

	return printAnalysis(stdout, bufs, nil, float64(sampleRate), winType)
}

func printAnalysis(w io.Writer, bufs [][]float64, expected []float64, sampleRate float64, winType window.Type) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Voice\tExpected [Hz]\tMeasured [Hz]\tLevel [V]\tInharmonic [dB]\tPeak [V]\tRMS [V]\n")
	fmt.Fprintf(tw, "-----\t-------------\t-------------\t---------\t---------------\t--------\t-------\n")

	for c, buf := range bufs {
		res, err := tone.AnalyzeSignal(buf, tone.Config{SampleRate: sampleRate, WindowType: winType})
		if errors.Is(err, tone.ErrNoFundamental) {
			fmt.Fprintf(tw, "%d\t%s\t-\t-\t-\t%.3f\t%.3f\n", c+1, expectedColumn(expected, c), res.Peak, res.RMS)
			continue
		}
		if err != nil {
			return fmt.Errorf("voice %d: %w", c+1, err)
		}

		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.3f\t%.1f\t%.3f\t%.3f\n",
			c+1,
			expectedColumn(expected, c),
			res.FundamentalHz,
			res.FundamentalAmplitude,
			res.InharmonicDB(),
			res.Peak,
			res.RMS,
		)
	}

	return tw.Flush()
}

func expectedColumn(expected []float64, c int) string {
	if c >= len(expected) {
		return "-"
	}

	return fmt.Sprintf("%.2f", expected[c])
}
