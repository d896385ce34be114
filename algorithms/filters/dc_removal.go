package filters

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// DCMode selects how the DC component is removed before analysis
type DCMode string

const (
	DCModeNone    DCMode = "none"
	DCModeMean    DCMode = "mean"
	DCModeBlocker DCMode = "blocker"
)

// DefaultDCCutoffHz is the -3dB point of the blocker
const DefaultDCCutoffHz = 10.0

// ParseDCMode maps a config value to a DCMode. Empty means DCModeNone.
func ParseDCMode(name string) (DCMode, error) {
	switch DCMode(name) {
	case "", DCModeNone:
		return DCModeNone, nil
	case DCModeMean, DCModeBlocker:
		return DCMode(name), nil
	default:
		return "", fmt.Errorf("unknown dc filter %q", name)
	}
}

// RemoveDC returns signal with its DC component removed.
//
// Parameters:
//   - signal: mono samples at sampleRate
//   - sampleRate: rate used to place the blocker's cutoff
//   - mode: DCModeMean subtracts the mean, DCModeBlocker runs a fresh
//     DCBlocker at DefaultDCCutoffHz, DCModeNone returns signal unchanged
func RemoveDC(signal []float64, sampleRate int, mode DCMode) []float64 {
	switch mode {
	case DCModeMean:
		return RemoveMean(signal)
	case DCModeBlocker:
		return NewDCBlocker(sampleRate, DefaultDCCutoffHz).ProcessBuffer(signal)
	default:
		return signal
	}
}

// RemoveMean subtracts the arithmetic mean, which zeroes bin 0 of an
// unwindowed transform.
func RemoveMean(signal []float64) []float64 {
	out := make([]float64, len(signal))
	if len(signal) == 0 {
		return out
	}

	mean := stat.Mean(signal, nil)
	for i, v := range signal {
		out[i] = v - mean
	}
	return out
}

// DCBlocker implements a one-pole DC blocking (high-pass) filter.
//
// References:
//   - Julius O. Smith III, "Introduction to Digital Filters with Audio Applications"
//     https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html
//
// Difference equation:
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// The zero at z = 1 removes DC exactly; the pole R sets the cutoff. A step
// input passes through on the first sample and then decays as R^n, so the
// first few time constants of the output carry a transient.
type DCBlocker struct {
	pole float64 // R, 0 < R < 1

	// State
	x1 float64 // x[n-1]
	y1 float64 // y[n-1]
}

// NewDCBlocker creates a blocker with its -3dB point near cutoffHz.
//
// The pole location is computed with the small-angle approximation
//
//	R = 1 - 2*pi*fc/fs
//
// and clamped to [0.001, 0.999]. A non-positive sampleRate or cutoffHz
// falls back to R = 0.995, about 35 Hz at 44.1 kHz.
func NewDCBlocker(sampleRate int, cutoffHz float64) *DCBlocker {
	pole := 0.995
	if sampleRate > 0 && cutoffHz > 0 {
		pole = 1.0 - 2.0*math.Pi*cutoffHz/float64(sampleRate)
	}
	pole = math.Min(math.Max(pole, 0.001), 0.999)

	return &DCBlocker{pole: pole}
}

// Pole returns R
func (b *DCBlocker) Pole() float64 {
	return b.pole
}

// Cutoff returns the approximate -3dB frequency at sampleRate,
// fc = (1-R)*fs/(2*pi).
func (b *DCBlocker) Cutoff(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return (1.0 - b.pole) * float64(sampleRate) / (2.0 * math.Pi)
}

// Process filters one sample
func (b *DCBlocker) Process(x float64) float64 {
	y := x - b.x1 + b.pole*b.y1
	b.x1 = x
	b.y1 = y
	return y
}

// ProcessBuffer filters input into a new slice. State carries across calls;
// call Reset between unrelated signals.
func (b *DCBlocker) ProcessBuffer(input []float64) []float64 {
	out := make([]float64, len(input))
	for i, x := range input {
		out[i] = b.Process(x)
	}
	return out
}

func (b *DCBlocker) Reset() {
	b.x1, b.y1 = 0, 0
}
