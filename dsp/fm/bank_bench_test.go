package fm

import "testing"

func benchmarkRender(b *testing.B, channels, oversampling int) {
	bank, err := NewBank(48000, WithOversampling(oversampling))
	if err != nil {
		b.Fatalf("NewBank() error = %v", err)
	}

	params := make([]Params, channels)
	for c := range params {
		params[c] = Params{Pitch: float64(c) / 12, Ratio: 1.5, Depth: 1.2, Delay: 0.3}
	}

	out := make([]float64, MaxChannels)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bank.Render(channels, params, out)
	}
}

func BenchmarkRenderMono(b *testing.B) { benchmarkRender(b, 1, 1) }
func BenchmarkRender16Voices(b *testing.B) { benchmarkRender(b, MaxChannels, 1) }
func BenchmarkRender16Voices8x(b *testing.B) { benchmarkRender(b, MaxChannels, 8) }

func BenchmarkModuleProcess(b *testing.B) {
	m, err := NewModule(48000, WithOversampling(2))
	if err != nil {
		b.Fatalf("NewModule() error = %v", err)
	}

	volts := make([]float64, MaxChannels)
	for c := range volts {
		volts[c] = float64(c) / 12
	}

	m.Inputs.Note.SetPoly(volts)
	m.Inputs.Depth.SetMono(7)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Process()
	}
}
