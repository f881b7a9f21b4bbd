package render

import (
	"github.com/cwbudde/algo-fractalfm/dsp/core"
	"github.com/cwbudde/algo-fractalfm/dsp/fm"
)

// Offline renders frames samples for every channel the module's note input
// asks for, holding knobs and CVs constant. It returns one buffer per voice.
func Offline(m *fm.Module, frames int) [][]float64 {
	return OfflineInto(nil, m, frames)
}

// OfflineInto is Offline reusing the capacity of dst.
func OfflineInto(dst [][]float64, m *fm.Module, frames int) [][]float64 {
	if frames <= 0 {
		return dst[:0]
	}

	channels := m.Channels()

	var params [fm.MaxChannels]fm.Params
	for c := 0; c < channels; c++ {
		params[c] = fm.Combine(m.Knobs, &m.Inputs, c)
	}

	dst = core.EnsureChannels(dst, channels, frames)
	m.Bank().RenderBlock(channels, params[:channels], dst)

	return dst
}
