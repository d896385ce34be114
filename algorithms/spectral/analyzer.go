package spectral

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/logging"
)

// DefaultParallelThreshold is the transform size from which magnitudes are
// computed on several goroutines.
const DefaultParallelThreshold = 1 << 16

// minBinsPerWorker keeps small chunks from costing more than they save
const minBinsPerWorker = 4096

// TransformSize returns the transform length for m input samples: the next
// power of two when padding is requested, m itself otherwise.
func TransformSize(m int, padToPowerOfTwo bool) int {
	if padToPowerOfTwo {
		return common.NextPowerOfTwo(m)
	}
	return m
}

// Plan binds a transform size to an FFT backend. A Plan is not safe for
// concurrent use because gonum plans keep scratch space.
type Plan struct {
	size              int
	backend           Backend
	fft               FFT
	parallelThreshold int
	logger            logging.Logger
}

// NewPlan prepares a forward transform of size n.
// parallelThreshold <= 0 selects DefaultParallelThreshold.
func NewPlan(n int, backend Backend, parallelThreshold int) (*Plan, error) {
	f, err := NewFFT(backend, n)
	if err != nil {
		return nil, err
	}
	if backend == "" {
		backend = BackendGonum
	}
	if parallelThreshold <= 0 {
		parallelThreshold = DefaultParallelThreshold
	}

	return &Plan{
		size:              n,
		backend:           backend,
		fft:               f,
		parallelThreshold: parallelThreshold,
		logger: logging.WithFields(logging.Fields{
			"component": "spectral_analyzer",
			"fft_size":  n,
			"backend":   backend,
		}),
	}, nil
}

// WithLogger replaces the plan's logger, which defaults to one derived from
// the global logger. It returns p.
func (p *Plan) WithLogger(logger logging.Logger) *Plan {
	if logger != nil {
		p.logger = logger.WithFields(logging.Fields{
			"component": "spectral_analyzer",
			"fft_size":  p.size,
			"backend":   p.backend,
		})
	}
	return p
}

// Size is the transform length N. Execute always returns N magnitudes.
func (p *Plan) Size() int { return p.size }

func (p *Plan) Backend() Backend { return p.backend }

// Execute zero-pads samples to the plan size, runs the forward transform and
// returns the magnitude of every bin in [0, N).
//
// The input is real, so bins N/2+1 .. N-1 mirror bins N/2-1 .. 1. They are
// returned for completeness but agree with their partners only up to
// rounding, which differs between backends; peak searches must stop at N/2.
//
// Magnitudes are |X[k]| = sqrt(re^2 + im^2) without normalization by N.
func (p *Plan) Execute(samples []float64) ([]float64, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if len(samples) > p.size {
		return nil, fmt.Errorf("signal length (%d) exceeds transform size (%d)", len(samples), p.size)
	}

	buf := make([]complex128, p.size)
	for i, s := range samples {
		buf[i] = complex(s, 0)
	}

	coeffs := p.fft.Forward(buf)
	magnitudes := p.magnitudes(coeffs)

	p.logger.Debug("Transform executed", logging.Fields{
		"function":      "Execute",
		"signal_length": len(samples),
		"zero_padding":  p.size - len(samples),
	})

	return magnitudes, nil
}

func (p *Plan) magnitudes(coeffs []complex128) []float64 {
	out := make([]float64, len(coeffs))

	workers := p.workerCount(len(coeffs))
	if workers <= 1 {
		magnitudeRange(coeffs, out, 0, len(coeffs))
		return out
	}

	// each worker owns a disjoint bin range, so results do not depend on scheduling
	chunk := (len(coeffs) + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < len(coeffs); start += chunk {
		end := min(start+chunk, len(coeffs))
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			magnitudeRange(coeffs, out, lo, hi)
		}(start, end)
	}
	wg.Wait()

	return out
}

func (p *Plan) workerCount(bins int) int {
	if bins < p.parallelThreshold {
		return 1
	}
	return max(1, min(runtime.NumCPU(), bins/minBinsPerWorker))
}

func magnitudeRange(coeffs []complex128, out []float64, lo, hi int) {
	for k := lo; k < hi; k++ {
		c := coeffs[k]
		out[k] = math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
	}
}

// MagnitudeSpectrum is the one-shot form: plan, pad and transform.
func MagnitudeSpectrum(samples []float64, padToPowerOfTwo bool, backend Backend) ([]float64, int, error) {
	n := TransformSize(len(samples), padToPowerOfTwo)
	plan, err := NewPlan(n, backend, 0)
	if err != nil {
		return nil, 0, err
	}

	magnitudes, err := plan.Execute(samples)
	if err != nil {
		return nil, 0, err
	}
	return magnitudes, n, nil
}
