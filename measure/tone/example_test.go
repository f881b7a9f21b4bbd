package tone_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-fractalfm/measure/tone"
)

func ExampleAnalyzeSignal() {
	const sampleRate = 48000.0

	signal := make([]float64, 8192)
	for i := range signal {
		signal[i] = 0.5 * math.Sin(2*math.Pi*750*float64(i)/sampleRate)
	}

	res, err := tone.AnalyzeSignal(signal, tone.Config{SampleRate: sampleRate})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Printf("f0=%.0f Hz amplitude=%.2f\n", res.FundamentalHz, res.FundamentalAmplitude)

	// Output:
	// f0=750 Hz amplitude=0.50
}
