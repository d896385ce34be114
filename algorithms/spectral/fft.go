package spectral

import (
	"fmt"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Backend selects the FFT implementation
type Backend string

const (
	// BackendGonum uses gonum's CmplxFFT (FFTPACK port), the default.
	BackendGonum Backend = "gonum"
	// BackendGoDSP uses mjibson/go-dsp: radix-2 for powers of two,
	// Bluestein otherwise.
	BackendGoDSP Backend = "go-dsp"
)

// ParseBackend maps a backend name to a Backend. Empty selects gonum.
func ParseBackend(name string) (Backend, error) {
	switch Backend(name) {
	case "", BackendGonum:
		return BackendGonum, nil
	case BackendGoDSP:
		return BackendGoDSP, nil
	default:
		return "", fmt.Errorf("unknown FFT backend %q", name)
	}
}

// FFT is a forward complex transform of a fixed size
type FFT interface {
	Size() int
	Forward(buf []complex128) []complex128
}

// NewFFT plans a forward transform of size n on the given backend
func NewFFT(backend Backend, n int) (FFT, error) {
	if n < 1 {
		return nil, fmt.Errorf("invalid transform size %d", n)
	}

	switch backend {
	case "", BackendGonum:
		return &gonumFFT{plan: fourier.NewCmplxFFT(n), n: n}, nil
	case BackendGoDSP:
		return &goDSPFFT{n: n}, nil
	default:
		return nil, fmt.Errorf("unknown FFT backend %q", backend)
	}
}

type gonumFFT struct {
	plan *fourier.CmplxFFT
	n    int
}

func (g *gonumFFT) Size() int { return g.n }

func (g *gonumFFT) Forward(buf []complex128) []complex128 {
	return g.plan.Coefficients(nil, buf)
}

type goDSPFFT struct {
	n int
}

func (g *goDSPFFT) Size() int { return g.n }

func (g *goDSPFFT) Forward(buf []complex128) []complex128 {
	return fft.FFT(buf)
}
