// Package console implements the interactive control surface of fmplay:
// a small command language that edits the controls of a running stream.
package console

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-fractalfm/dsp/core"
	"github.com/cwbudde/algo-fractalfm/dsp/fm"
	"github.com/cwbudde/algo-fractalfm/patch"
	"github.com/cwbudde/algo-fractalfm/render"
)

// ErrQuit is returned by Eval for the quit command.
var ErrQuit = errors.New("console: quit")

// Session edits the controls of a render.Stream. Edits go through
// Stream.UpdateControls, so a Session may run alongside the audio goroutine
// and a patch reload without losing either side's changes.
type Session struct {
	stream *render.Stream
	logger *slog.Logger
}

// NewSession returns a session driving stream.
func NewSession(stream *render.Stream, logger *slog.Logger) *Session {
	return &Session{stream: stream, logger: logger}
}

type command struct {
	name  string
	usage string
	arity int
	run   func(s *Session, args []string) (string, error)
}

var commands []command

func init() {
	commands = []command{
		{"set", "set <pitch|ratio|depth|delay> <value>", 2, (*Session).set},
		{"note", "note <channel> <volts>", 2, (*Session).note},
		{"voices", "voices <n>", 1, (*Session).voices},
		{"cv", "cv <ratio|depth|delay> <volts|off>", 2, (*Session).cv},
		{"os", "os <factor>", 1, (*Session).oversample},
		{"gain", "gain <linear>", 1, (*Session).gain},
		{"show", "show", 0, (*Session).show},
		{"save", "save <path>", 1, (*Session).save},
		{"help", "help", 0, (*Session).help},
		{"quit", "quit", 0, func(*Session, []string) (string, error) { return "", ErrQuit }},
	}
}

// Eval runs one command line and returns its output.
func (s *Session) Eval(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}

	name, args := strings.ToLower(fields[0]), fields[1:]
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}

		if len(args) != cmd.arity {
			return "", fmt.Errorf("usage: %s", cmd.usage)
		}

		out, err := cmd.run(s, args)
		if err != nil && !errors.Is(err, ErrQuit) {
			return "", fmt.Errorf("%s: %w", name, err)
		}

		return out, err
	}

	return "", fmt.Errorf("unknown command: %s (try help)", name)
}

// ApplyPatch publishes the controls and oversampling of p. The stream's
// sample rate is fixed by the audio device, so a differing patch rate is
// only reported.
func (s *Session) ApplyPatch(p *patch.Patch) {
	bank := s.stream.Module().Bank()

	if p.SampleRate > 0 && !core.NearlyEqual(p.SampleRate, bank.SampleRate(), 1e-9) {
		s.logger.Warn("patch sample rate ignored", "patch", p.SampleRate, "device", bank.SampleRate())
	}

	if p.Oversampling > 0 {
		bank.SetOversampling(p.Oversampling)
	}

	s.stream.SetControls(p.Controls())
	s.logger.Debug("applied patch", "knobs", fmt.Sprintf("%+v", p.Knobs), "voices", len(p.Notes))
}

func (s *Session) update(fn func(c *fm.Controls)) {
	s.stream.UpdateControls(fn)
}

func parseFloat(arg string) (float64, error) {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", arg)
	}

	return v, nil
}

func parseInt(arg string) (int, error) {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", arg)
	}

	return v, nil
}

func (s *Session) set(args []string) (string, error) {
	v, err := parseFloat(args[1])
	if err != nil {
		return "", err
	}

	var knob *float64
	var applied float64

	s.update(func(c *fm.Controls) {
		switch strings.ToLower(args[0]) {
		case "pitch":
			knob = &c.Knobs.Pitch
		case "ratio":
			knob = &c.Knobs.Ratio
		case "depth":
			knob = &c.Knobs.Depth
		case "delay":
			knob = &c.Knobs.Delay
		default:
			return
		}

		*knob = v
		c.Knobs = c.Knobs.Clamped()
		applied = *knob
	})

	if knob == nil {
		return "", fmt.Errorf("unknown knob %q", args[0])
	}

	return fmt.Sprintf("%s = %g", strings.ToLower(args[0]), applied), nil
}

func noteValues(j *fm.Jack, n int) []float64 {
	values := make([]float64, n)
	copy(values, j.Voltages[:j.ChannelCount()])

	return values
}

func (s *Session) note(args []string) (string, error) {
	ch, err := parseInt(args[0])
	if err != nil {
		return "", err
	}

	if ch < 1 || ch > fm.MaxChannels {
		return "", fmt.Errorf("channel must be in 1..%d, got %d", fm.MaxChannels, ch)
	}

	v, err := parseFloat(args[1])
	if err != nil {
		return "", err
	}

	var voices int
	s.update(func(c *fm.Controls) {
		voices = max(c.Inputs.Note.ChannelCount(), ch)
		values := noteValues(&c.Inputs.Note, voices)
		values[ch-1] = v
		c.Inputs.Note.SetPoly(values)
	})

	return fmt.Sprintf("note %d = %g V (%d voices)", ch, v, voices), nil
}

func (s *Session) voices(args []string) (string, error) {
	n, err := parseInt(args[0])
	if err != nil {
		return "", err
	}

	if n < 1 || n > fm.MaxChannels {
		return "", fmt.Errorf("voices must be in 1..%d, got %d", fm.MaxChannels, n)
	}

	s.update(func(c *fm.Controls) {
		c.Inputs.Note.SetPoly(noteValues(&c.Inputs.Note, n))
	})

	return fmt.Sprintf("%d voices", n), nil
}

func (s *Session) cv(args []string) (string, error) {
	name := strings.ToLower(args[0])

	off := strings.EqualFold(args[1], "off")

	var v float64
	if !off {
		var err error
		if v, err = parseFloat(args[1]); err != nil {
			return "", err
		}
	}

	found := true
	s.update(func(c *fm.Controls) {
		var j *fm.Jack
		switch name {
		case "ratio":
			j = &c.Inputs.Ratio
		case "depth":
			j = &c.Inputs.Depth
		case "delay":
			j = &c.Inputs.Delay
		default:
			found = false
			return
		}

		if off {
			j.Disconnect()
			return
		}

		j.SetMono(v)
	})

	if !found {
		return "", fmt.Errorf("unknown input %q", args[0])
	}

	if off {
		return name + " cv disconnected", nil
	}

	return fmt.Sprintf("%s cv = %g V", name, v), nil
}

func (s *Session) oversample(args []string) (string, error) {
	n, err := parseInt(args[0])
	if err != nil {
		return "", err
	}

	bank := s.stream.Module().Bank()
	bank.SetOversampling(n)

	return fmt.Sprintf("oversampling = %d", bank.Oversampling()), nil
}

func (s *Session) gain(args []string) (string, error) {
	g, err := parseFloat(args[0])
	if err != nil {
		return "", err
	}

	if g < 0 || g > 1 {
		return "", fmt.Errorf("gain must be in 0..1, got %g", g)
	}

	s.stream.SetGain(g)

	return fmt.Sprintf("gain = %g", g), nil
}

func (s *Session) show([]string) (string, error) {
	c := s.stream.Controls()
	bank := s.stream.Module().Bank()

	var b strings.Builder
	fmt.Fprintf(&b, "knobs: pitch=%g ratio=%g depth=%g delay=%g\n",
		c.Knobs.Pitch, c.Knobs.Ratio, c.Knobs.Depth, c.Knobs.Delay)
	fmt.Fprintf(&b, "engine: rate=%g oversampling=%d gain=%g frames=%d\n",
		bank.SampleRate(), bank.Oversampling(), s.stream.Gain(), s.stream.Frames())

	for ch := 0; ch < c.Channels(); ch++ {
		p := fm.Combine(c.Knobs, &c.Inputs, ch)
		f := bank.Frequencies(p)
		fmt.Fprintf(&b, "voice %d: f1=%.2f Hz ratio=%g depth=%g delay=%g\n", ch+1, f[0], p.Ratio, p.Depth, p.Delay)
	}

	return strings.TrimSuffix(b.String(), "\n"), nil
}

func (s *Session) save(args []string) (string, error) {
	p := s.Patch()

	f, err := os.Create(args[0])
	if err != nil {
		return "", err
	}

	if err := p.Save(f); err != nil {
		f.Close()
		return "", err
	}

	if err := f.Close(); err != nil {
		return "", err
	}

	return "saved " + args[0], nil
}

// Patch captures the session state as a patch.
func (s *Session) Patch() *patch.Patch {
	bank := s.stream.Module().Bank()

	p := patch.FromControls(s.stream.Controls())
	p.SampleRate = bank.SampleRate()
	p.Oversampling = bank.Oversampling()

	return p
}

func (s *Session) help([]string) (string, error) {
	usages := make([]string, len(commands))
	for i, cmd := range commands {
		usages[i] = "  " + cmd.usage
	}
	sort.Strings(usages)

	return "commands:\n" + strings.Join(usages, "\n"), nil
}
