package render

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cwbudde/algo-fractalfm/dsp/core"
	"github.com/cwbudde/algo-fractalfm/dsp/fm"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

var (
	ErrNoChannels          = errors.New("render: no channels to write")
	ErrChannelLength       = errors.New("render: channel buffers differ in length")
	ErrUnsupportedBitDepth = errors.New("render: unsupported bit depth")
	ErrInvalidSampleRate   = errors.New("render: sample rate must be positive")
	ErrInvalidWAV          = errors.New("render: not a valid WAV file")
)

// WriteWAV encodes buffers as a PCM WAV file with one channel per buffer.
// Samples are module voltages: ±fm.OutputGain maps to full scale and
// anything beyond is clipped. bitDepth must be 16, 24 or 32.
func WriteWAV(w io.WriteSeeker, buffers [][]float64, sampleRate, bitDepth int) error {
	if len(buffers) == 0 {
		return ErrNoChannels
	}

	if sampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}

	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	frames := len(buffers[0])
	for _, b := range buffers[1:] {
		if len(b) != frames {
			return ErrChannelLength
		}
	}

	channels := len(buffers)
	fullScale := float64(int64(1)<<(bitDepth-1) - 1)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, frames*channels),
		SourceBitDepth: bitDepth,
	}

	for i := 0; i < frames; i++ {
		for c, b := range buffers {
			v := core.Clamp(b[i]/fm.OutputGain, -1, 1)
			buf.Data[i*channels+c] = int(math.Round(v * fullScale))
		}
	}

	enc := wav.NewEncoder(w, sampleRate, bitDepth, channels, wavFormatPCM)
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("render: write wav: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("render: close wav: %w", err)
	}

	return nil
}

// ReadWAV decodes a PCM WAV file into one buffer per channel, scaled back to
// module voltages. It returns the buffers and the file's sample rate.
func ReadWAV(r io.ReadSeeker) ([][]float64, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, ErrInvalidWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("render: decode wav: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, 0, ErrNoChannels
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	scale := fm.OutputGain / float64(int64(1)<<(bitDepth-1)-1)
	frames := len(buf.Data) / channels

	out := core.EnsureChannels(nil, channels, frames)
	for i := 0; i < frames; i++ {
		for c := range out {
			out[c][i] = float64(buf.Data[i*channels+c]) * scale
		}
	}

	return out, buf.Format.SampleRate, nil
}
