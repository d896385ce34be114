package windowing

import (
	"math"
)

// Hann is a symmetric Hann (raised cosine) window.
//
// References:
//   - F. J. Harris, "On the Use of Windows for Harmonic Analysis with the
//     Discrete Fourier Transform", Proc. IEEE, vol. 66, no. 1, 1978
//
// Coefficients:
//
//	w[n] = 0.5 * (1 - cos(2*pi*n / (M-1))),  n = 0 .. M-1
//
// Properties:
//   - Endpoints are zero; for odd M the midpoint is one
//   - First sidelobe at -31.5 dB, falling off at 18 dB per octave
//   - Coherent gain 0.5, so windowed peak magnitudes are about half the
//     rectangular ones; peak position is unaffected
//
// The symmetric form is used because the whole clip is one frame. The
// periodic (DFT-even) form only matters for overlapped frames.
type Hann struct {
	coefficients []float64
}

// NewHann precomputes the coefficients for a window of the given size.
// A single-sample window is defined as {1}.
func NewHann(size int) *Hann {
	coeffs := make([]float64, max(size, 0))

	switch {
	case size == 1:
		coeffs[0] = 1.0
	case size > 1:
		step := 2 * math.Pi / float64(size-1)
		for n := range coeffs {
			coeffs[n] = 0.5 * (1.0 - math.Cos(step*float64(n)))
		}
	}

	return &Hann{coefficients: coeffs}
}

// Apply multiplies signal by the window and returns a new slice.
// It returns nil when the lengths disagree.
func (h *Hann) Apply(signal []float64) []float64 {
	if len(signal) != len(h.coefficients) {
		return nil
	}

	windowed := make([]float64, len(signal))
	for n, w := range h.coefficients {
		windowed[n] = signal[n] * w
	}
	return windowed
}

// Coefficients returns a copy of the window
func (h *Hann) Coefficients() []float64 {
	out := make([]float64, len(h.coefficients))
	copy(out, h.coefficients)
	return out
}

// Size is M
func (h *Hann) Size() int { return len(h.coefficients) }

func (h *Hann) Type() Type { return TypeHann }
