package render

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-fractalfm/dsp/fm"
)

const bytesPerSample = 4

// DefaultGain is the stream's initial output gain.
const DefaultGain = 0.5

var ErrInvalidChannels = errors.New("render: output channel count must be positive")

// Stream is an io.Reader producing interleaved little-endian float32 frames
// by running a Module one sample at a time. All active voices are mixed down
// and the mix is written to every output channel.
//
// Read must be called from a single goroutine. SetControls, UpdateControls,
// SetGain and the module's bank setters may be called concurrently with Read;
// new controls take effect at the start of the next Read. SetControls
// replaces the whole state and wins over edits published before it.
type Stream struct {
	m        *fm.Module
	channels int

	controls atomic.Pointer[fm.Controls]
	applied  *fm.Controls
	gain     atomic.Uint64
	frames   atomic.Uint64
}

var _ io.Reader = (*Stream)(nil)

// NewStream creates a stream with the given number of interleaved output
// channels. The module's current controls become the initial state.
func NewStream(m *fm.Module, channels int) (*Stream, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}

	s := &Stream{m: m, channels: channels}
	s.SetControls(m.Controls)
	s.SetGain(DefaultGain)

	return s, nil
}

// Module returns the module driven by the stream.
func (s *Stream) Module() *fm.Module { return s.m }

// Channels returns the number of interleaved output channels.
func (s *Stream) Channels() int { return s.channels }

// FrameSize returns the size of one interleaved frame in bytes.
func (s *Stream) FrameSize() int { return s.channels * bytesPerSample }

// SetControls publishes a new control state for the render goroutine.
func (s *Stream) SetControls(c fm.Controls) {
	s.controls.Store(&c)
}

// UpdateControls applies fn to a copy of the current controls and publishes
// the result. Concurrent updates are not lost: when another writer publishes
// first, fn runs again on the newer state, so it may be called more than once.
func (s *Stream) UpdateControls(fn func(c *fm.Controls)) {
	for {
		old := s.controls.Load()

		next := *old
		fn(&next)

		if s.controls.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Controls returns the most recently published control state.
func (s *Stream) Controls() fm.Controls {
	return *s.controls.Load()
}

// SetGain sets the linear gain applied to the normalized mix.
func (s *Stream) SetGain(g float64) {
	s.gain.Store(math.Float64bits(g))
}

// Gain returns the current output gain.
func (s *Stream) Gain() float64 {
	return math.Float64frombits(s.gain.Load())
}

// Frames returns the number of frames rendered so far.
func (s *Stream) Frames() uint64 {
	return s.frames.Load()
}

// Read fills p with whole frames. It returns io.ErrShortBuffer when p
// cannot hold a single frame.
func (s *Stream) Read(p []byte) (int, error) {
	frameSize := s.FrameSize()

	frames := len(p) / frameSize
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}

	if c := s.controls.Load(); c != s.applied {
		s.m.SetControls(*c)
		s.applied = c
	}

	gain := s.Gain()

	for i := 0; i < frames; i++ {
		n := s.m.Process()

		var sum float64
		for c := 0; c < n; c++ {
			sum += float64(s.m.Output.Voltages[c])
		}

		bits := math.Float32bits(float32(gain * sum / (fm.OutputGain * float64(n))))

		frame := p[i*frameSize : (i+1)*frameSize]
		for ch := 0; ch < s.channels; ch++ {
			binary.LittleEndian.PutUint32(frame[ch*bytesPerSample:], bits)
		}
	}

	s.frames.Add(uint64(frames))

	return frames * frameSize, nil
}
