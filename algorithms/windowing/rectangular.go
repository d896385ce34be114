package windowing

// Rectangular is the boxcar window. Selecting it is equivalent to not
// windowing at all and accepting the leakage that comes with it.
type Rectangular struct {
	size int
}

// NewRectangular creates a boxcar of the given size; negative sizes become 0
func NewRectangular(size int) *Rectangular {
	return &Rectangular{size: max(size, 0)}
}

// Apply returns a copy of signal, or nil when the lengths disagree.
func (r *Rectangular) Apply(signal []float64) []float64 {
	if len(signal) != r.size {
		return nil
	}

	out := make([]float64, len(signal))
	copy(out, signal)
	return out
}

// Coefficients returns size ones
func (r *Rectangular) Coefficients() []float64 {
	out := make([]float64, r.size)
	for i := range out {
		out[i] = 1.0
	}
	return out
}

// Size is the number of samples the window accepts
func (r *Rectangular) Size() int { return r.size }

func (r *Rectangular) Type() Type { return TypeRectangular }
