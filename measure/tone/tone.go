// Package tone measures the spectral content of periodic oscillator output:
// fundamental frequency, level, and how the power splits between the
// harmonic series of the fundamental and everything else (aliases, noise).
package tone

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-fractalfm/dsp/core"
	"github.com/cwbudde/algo-fractalfm/dsp/window"
)

const defaultMinFreq = 20.0

// captureBinsByWindow is the main-lobe half-width of each window in bins.
var captureBinsByWindow = map[window.Type]int{
	window.TypeHann:                3,
	window.TypeBlackmanHarris4Term: 4,
	window.TypeFlatTop:             6,
}

var (
	ErrEmptySignal       = errors.New("tone: signal is empty")
	ErrInvalidSampleRate = errors.New("tone: sample rate must be > 0 and finite")
	ErrInvalidFFTSize    = errors.New("tone: FFT size must be a power of two >= signal length")
	ErrNoFundamental     = errors.New("tone: no spectral peak in search range")
)

// Config holds analysis parameters.
type Config struct {
	SampleRate float64
	// FFTSize defaults to the next power of two >= len(signal).
	FFTSize int
	// WindowType defaults to TypeBlackmanHarris4Term when zero.
	WindowType window.Type
	// MinFreq and MaxFreq bound the fundamental search. MaxFreq defaults to Nyquist.
	MinFreq float64
	MaxFreq float64
	// CaptureBins is the half-width in bins attributed to each spectral line.
	// It defaults to the main-lobe half-width of the window.
	CaptureBins int
}

// Result holds the measurement.
type Result struct {
	FundamentalHz float64
	// FundamentalAmplitude is the estimated peak amplitude of the fundamental.
	FundamentalAmplitude float64
	TotalPower           float64
	HarmonicPower        float64
	InharmonicPower      float64
	// InharmonicRatio is InharmonicPower / TotalPower.
	InharmonicRatio float64
	Harmonics       int
	Peak            float64
	RMS             float64
}

// InharmonicDB returns the inharmonic-to-total power ratio in dB.
func (r Result) InharmonicDB() float64 {
	if r.InharmonicRatio <= 0 {
		return math.Inf(-1)
	}

	return 10 * math.Log10(r.InharmonicRatio)
}

// AnalyzeSignal windows signal, transforms it and evaluates the tone metrics.
//
//nolint:funlen
func AnalyzeSignal(signal []float64, cfg Config) (Result, error) {
	if len(signal) == 0 {
		return Result{}, ErrEmptySignal
	}

	if cfg.SampleRate <= 0 || !core.IsFinite(cfg.SampleRate) {
		return Result{}, fmt.Errorf("%w: %f", ErrInvalidSampleRate, cfg.SampleRate)
	}

	fftSize := cfg.FFTSize
	if fftSize <= 0 {
		fftSize = nextPowerOf2(len(signal))
	}

	if fftSize < len(signal) || fftSize&(fftSize-1) != 0 || fftSize < 4 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidFFTSize, fftSize)
	}

	winType := cfg.WindowType
	if winType == window.TypeRectangular {
		winType = window.TypeBlackmanHarris4Term
	}

	capture := cfg.CaptureBins
	if capture <= 0 {
		capture = captureBinsByWindow[winType]
	}

	if capture <= 0 {
		capture = 1
	}

	res := Result{}
	res.Peak, res.RMS = levels(signal)

	coeffs := window.Generate(winType, len(signal), window.WithPeriodic())

	windowed := make([]float64, len(signal))
	copy(windowed, signal)

	if err := window.ApplyCoefficientsInPlace(windowed, coeffs); err != nil {
		return Result{}, err
	}

	inData := make([]complex128, fftSize)
	for i, v := range windowed {
		inData[i] = complex(v, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return Result{}, fmt.Errorf("tone: FFT plan: %w", err)
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, inData); err != nil {
		return Result{}, fmt.Errorf("tone: FFT: %w", err)
	}

	binCount := fftSize/2 + 1
	power := powerSpectrum(out[:binCount])

	binHz := cfg.SampleRate / float64(fftSize)
	nyquist := cfg.SampleRate / 2

	minFreq := cfg.MinFreq
	if minFreq <= 0 {
		minFreq = defaultMinFreq
	}

	maxFreq := cfg.MaxFreq
	if maxFreq <= 0 || maxFreq > nyquist {
		maxFreq = nyquist
	}

	maxBin := binCount - 1
	if maxBin-1 < capture+1 {
		return res, ErrNoFundamental
	}

	lowerBin := core.ClampInt(int(math.Ceil(minFreq/binHz)), capture+1, maxBin-1)
	upperBin := core.ClampInt(int(math.Floor(maxFreq/binHz)), lowerBin, maxBin-1)

	peakBin := lowerBin
	for k := lowerBin + 1; k <= upperBin; k++ {
		if power[k] > power[peakBin] {
			peakBin = k
		}
	}

	if power[peakBin] <= 0 {
		return res, ErrNoFundamental
	}

	res.FundamentalHz = (float64(peakBin) + parabolicOffset(power, peakBin)) * binHz

	// Bins at or below the capture width hold DC and are not part of the tone.
	inLine := make([]bool, binCount)

	var fundamentalPower float64
	for k := peakBin - capture; k <= peakBin+capture; k++ {
		if k > capture && k <= maxBin {
			fundamentalPower += power[k]
		}
	}

	for h := 1; float64(h)*res.FundamentalHz < nyquist; h++ {
		center := int(math.Round(float64(h) * res.FundamentalHz / binHz))
		for k := center - capture; k <= center+capture; k++ {
			if k > capture && k <= maxBin {
				inLine[k] = true
			}
		}

		res.Harmonics = h
	}

	for k := capture + 1; k <= maxBin; k++ {
		res.TotalPower += power[k]
		if inLine[k] {
			res.HarmonicPower += power[k]
		}
	}

	res.InharmonicPower = math.Max(0, res.TotalPower-res.HarmonicPower)
	if res.TotalPower > 0 {
		res.InharmonicRatio = res.InharmonicPower / res.TotalPower
	}

	var sumSquares float64
	for _, w := range coeffs {
		sumSquares += w * w
	}

	if sumSquares > 0 {
		res.FundamentalAmplitude = math.Sqrt(4 * fundamentalPower / (float64(fftSize) * sumSquares))
	}

	return res, nil
}

// powerSpectrum returns |X[k]|² for each bin.
func powerSpectrum(bins []complex128) []float64 {
	re := make([]float64, len(bins))
	im := make([]float64, len(bins))

	for i, c := range bins {
		re[i] = real(c)
		im[i] = imag(c)
	}

	out := make([]float64, len(bins))
	vecmath.Power(out, re, im)

	return out
}

// parabolicOffset refines the peak at bin k by fitting a parabola through the
// log power of its neighbours. The result lies in [-0.5, 0.5].
func parabolicOffset(power []float64, k int) float64 {
	if k <= 0 || k >= len(power)-1 {
		return 0
	}

	a, b, c := power[k-1], power[k], power[k+1]
	if a <= 0 || b <= 0 || c <= 0 {
		return 0
	}

	la, lb, lc := math.Log(a), math.Log(b), math.Log(c)

	den := la - 2*lb + lc
	if den == 0 {
		return 0
	}

	return core.Clamp(0.5*(la-lc)/den, -0.5, 0.5)
}

func levels(signal []float64) (peak, rms float64) {
	var sum float64
	for _, v := range signal {
		if a := math.Abs(v); a > peak {
			peak = a
		}

		sum += v * v
	}

	return peak, math.Sqrt(sum / float64(len(signal)))
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
