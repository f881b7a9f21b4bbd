// Command fmplay plays the nested-FM oscillator live on the default audio
// device. When stdin is a terminal it opens a command prompt for editing
// knobs, notes and CVs while the sound runs.
//
// Usage:
//
//	fmplay [flags]
//
// Examples:
//
//	fmplay
//	fmplay -patch lead.json -watch
//	fmplay -rate 44100 -oversample 4 -block 1024
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ebitengine/oto/v3"
	"golang.org/x/term"

	"github.com/cwbudde/algo-fractalfm/dsp/core"
	"github.com/cwbudde/algo-fractalfm/dsp/fm"
	"github.com/cwbudde/algo-fractalfm/internal/console"
	"github.com/cwbudde/algo-fractalfm/patch"
	"github.com/cwbudde/algo-fractalfm/render"
)

const outputChannels = 2

func main() {
	patchPath := flag.String("patch", "", "JSON patch to load at start")
	watch := flag.Bool("watch", false, "reload -patch whenever the file changes")
	rate := flag.Int("rate", 48000, "device sample rate in Hz")
	oversample := flag.Int("oversample", 1, "sub-steps per output sample")
	block := flag.Int("block", 0, "device buffer size in frames (0 = driver default)")
	gain := flag.Float64("gain", render.DefaultGain, "output gain (0..1)")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fmplay [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Plays the nested-FM oscillator on the default audio device.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *watch && *patchPath == "" {
		logger.Error("-watch needs -patch")
		os.Exit(2)
	}

	cfg := core.ApplyProcessorOptions(
		core.WithSampleRate(float64(*rate)),
		core.WithOversampling(*oversample),
		core.WithBlockSize(*block),
	)

	var buffer time.Duration
	if *block > 0 {
		buffer = time.Duration(float64(cfg.BlockSize) / cfg.SampleRate * float64(time.Second))
	}

	if err := run(cfg, *patchPath, *watch, buffer, *gain, logger); err != nil {
		logger.Error("fmplay failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg core.ProcessorConfig, patchPath string, watch bool, buffer time.Duration, gain float64, logger *slog.Logger) error {
	m, err := fm.NewModule(cfg.SampleRate, fm.WithOversampling(cfg.Oversampling))
	if err != nil {
		return err
	}

	stream, err := render.NewStream(m, outputChannels)
	if err != nil {
		return err
	}
	stream.SetGain(core.Clamp(gain, 0, 1))

	session := console.NewSession(stream, logger)

	if patchPath != "" {
		p, err := patch.Load(patchPath)
		if err != nil {
			return err
		}
		session.ApplyPatch(p)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(cfg.SampleRate),
		ChannelCount: outputChannels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   buffer,
	})
	if err != nil {
		return fmt.Errorf("audio device: %w", err)
	}
	<-ready

	player := otoCtx.NewPlayer(stream)
	player.Play()
	defer func() {
		if err := player.Close(); err != nil {
			logger.Warn("closing player", "err", err)
		}
	}()

	logger.Info("playing",
		"rate", cfg.SampleRate,
		"oversampling", m.Bank().Oversampling(),
		"voices", stream.Controls().Channels(),
	)

	if watch {
		go func() {
			err := patch.Watch(ctx, patchPath, func(p *patch.Patch, err error) {
				if err != nil {
					logger.Warn("patch reload failed", "path", patchPath, "err", err)
					return
				}
				session.ApplyPatch(p)
				logger.Info("patch reloaded", "path", patchPath)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("patch watcher stopped", "err", err)
			}
		}()
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		<-ctx.Done()
		return nil
	}

	errc := make(chan error, 1)
	go func() { errc <- console.Run(session, "fm> ", os.Stdout) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return nil
	}
}
