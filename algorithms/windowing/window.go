package windowing

import (
	"fmt"
)

// Type names a window function
type Type string

const (
	TypeHann        Type = "hann"
	TypeRectangular Type = "rectangular"
)

// Window is an analysis window with precomputed coefficients
type Window interface {
	Apply(signal []float64) []float64
	Coefficients() []float64
	Size() int
	Type() Type
}

// New builds a window of the given type and size
func New(t Type, size int) (Window, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid window size %d", size)
	}

	switch t {
	case TypeHann:
		return NewHann(size), nil
	case TypeRectangular:
		return NewRectangular(size), nil
	default:
		return nil, fmt.Errorf("unknown window type %q", t)
	}
}

// ApplyStage windows a whole signal before spectral analysis.
//
// Parameters:
//   - signal: the conditioned mono signal, left untouched
//   - enabled: Hann when true; otherwise the rectangular window, which
//     returns an unmodified copy
//
// It returns the windowed copy and the window type used. Nothing is logged
// here; the caller reports the stage with its own logger.
func ApplyStage(signal []float64, enabled bool) ([]float64, Type) {
	t := TypeRectangular
	if enabled {
		t = TypeHann
	}

	w, _ := New(t, len(signal))
	return w.Apply(signal), t
}
