package harmonic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultSearchFraction searches the whole spectrum
const DefaultSearchFraction = 1.0

// Peak is the dominant bin of a magnitude spectrum
type Peak struct {
	Bin       int     `json:"bin"`
	Magnitude float64 `json:"magnitude"`
	Frequency float64 `json:"frequency"` // Hz
	// SearchBins is the number of bins that were considered
	SearchBins int `json:"search_bins"`
}

// PeakEstimator finds the dominant frequency of a magnitude spectrum.
//
// The search covers bins [0, floor(N*SearchFraction)), clamped to the
// non-mirrored half [0, N/2]. Bins above N/2 of a real-input transform
// mirror bins below it; their magnitudes agree only up to rounding, so
// they are never searched.
//
// Typical fractions:
//   - 1.0: every bin up to Nyquist
//   - 0.25: the lowest quarter of the transform, i.e. up to fs/4, for bass
//     material where high partials can outweigh the fundamental
type PeakEstimator struct {
	SearchFraction float64
}

// NewPeakEstimator validates fraction, which must lie in (0, 1].
// Zero selects DefaultSearchFraction.
func NewPeakEstimator(fraction float64) (*PeakEstimator, error) {
	if fraction == 0 {
		fraction = DefaultSearchFraction
	}
	if math.IsNaN(fraction) || fraction <= 0 || fraction > 1 {
		return nil, fmt.Errorf("search fraction %v outside (0, 1]", fraction)
	}
	return &PeakEstimator{SearchFraction: fraction}, nil
}

// Find returns the peak of magnitudes given the sample rate the spectrum was
// computed at. The transform size is len(magnitudes).
func (pe *PeakEstimator) Find(magnitudes []float64, sampleRate int) Peak {
	n := len(magnitudes)
	limit := int(math.Floor(float64(n) * pe.SearchFraction))
	limit = min(max(limit, 0), SearchableBins(n))

	bin := PeakIndex(magnitudes[:limit])

	peak := Peak{Bin: bin, SearchBins: limit}
	if n > 0 {
		peak.Magnitude = magnitudes[bin]
		peak.Frequency = BinFrequency(bin, sampleRate, n)
	}
	return peak
}

// SearchableBins is the number of non-mirrored bins of an n-point real
// transform, 0 through n/2 inclusive.
func SearchableBins(n int) int {
	if n <= 0 {
		return 0
	}
	return n/2 + 1
}

// PeakIndex returns the index of the largest value, the first one on ties.
// NaN ranks below every number. An empty slice yields 0.
func PeakIndex(values []float64) int {
	if len(values) == 0 {
		return 0
	}

	clean := values
	copied := false
	for i, v := range values {
		if !math.IsNaN(v) {
			continue
		}
		if !copied {
			clean = make([]float64, len(values))
			copy(clean, values)
			copied = true
		}
		clean[i] = math.Inf(-1)
	}

	return floats.MaxIdx(clean)
}

// BinFrequency converts bin k of an n-point transform to Hz
func BinFrequency(k, sampleRate, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(k) * float64(sampleRate) / float64(n)
}
