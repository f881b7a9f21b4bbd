package core_test

import (
	"fmt"

	"github.com/cwbudde/algo-fractalfm/dsp/core"
)

func ExampleApplyProcessorOptions() {
	cfg := core.ApplyProcessorOptions(
		core.WithSampleRate(44100),
		core.WithOversampling(4),
	)

	fmt.Printf("sampleRate=%.0f blockSize=%d oversampling=%d\n", cfg.SampleRate, cfg.BlockSize, cfg.Oversampling)

	// Output:
	// sampleRate=44100 blockSize=512 oversampling=4
}

func ExampleWrapUnit() {
	fmt.Println(core.WrapUnit(2.25), core.WrapUnit(-0.25))

	// Output:
	// 0.25 0.75
}
