package core

import "testing"

func TestApplyProcessorOptions(t *testing.T) {
	cfg := ApplyProcessorOptions(WithSampleRate(44100), WithBlockSize(256), WithOversampling(4))
	if cfg.SampleRate != 44100 {
		t.Fatalf("sample rate = %v, want 44100", cfg.SampleRate)
	}
	if cfg.BlockSize != 256 {
		t.Fatalf("block size = %d, want 256", cfg.BlockSize)
	}
	if cfg.Oversampling != 4 {
		t.Fatalf("oversampling = %d, want 4", cfg.Oversampling)
	}
}

func TestInvalidOptionsIgnored(t *testing.T) {
	cfg := ApplyProcessorOptions(WithSampleRate(0), WithBlockSize(-1), WithOversampling(0), nil)
	def := DefaultProcessorConfig()
	if cfg != def {
		t.Fatalf("cfg = %#v, want %#v", cfg, def)
	}
}

func TestSampleTime(t *testing.T) {
	cfg := ApplyProcessorOptions(WithSampleRate(44100))
	if got := cfg.SampleTime(); !NearlyEqual(got, 1.0/44100, 1e-15) {
		t.Fatalf("SampleTime() = %v, want %v", got, 1.0/44100)
	}

	var zero ProcessorConfig
	if got := zero.SampleTime(); got != 0 {
		t.Fatalf("SampleTime() on zero config = %v, want 0", got)
	}
}
