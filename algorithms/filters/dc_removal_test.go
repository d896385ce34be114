package filters

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDCMode(t *testing.T) {
	for name, want := range map[string]DCMode{"": DCModeNone, "none": DCModeNone, "mean": DCModeMean, "blocker": DCModeBlocker} {
		got, err := ParseDCMode(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseDCMode("notch")
	assert.Error(t, err)
}

func TestRemoveMean(t *testing.T) {
	out := RemoveMean([]float64{1, 2, 3, 6})

	assert.InDeltaSlice(t, []float64{-2, -1, 0, 3}, out, 1e-12)
	assert.Empty(t, RemoveMean(nil))
}

func TestRemoveDCNoneIsIdentity(t *testing.T) {
	in := []float64{0.5, 0.5}
	assert.Equal(t, in, RemoveDC(in, 8000, DCModeNone))
}

func TestDCBlockerSettlesToZero(t *testing.T) {
	b := NewDCBlocker(8000, DefaultDCCutoffHz)
	assert.InDelta(t, DefaultDCCutoffHz, b.Cutoff(8000), 1e-9)

	constant := make([]float64, 8000)
	for i := range constant {
		constant[i] = 0.75
	}
	out := b.ProcessBuffer(constant)

	assert.Equal(t, 0.75, out[0])
	assert.Less(t, math.Abs(out[len(out)-1]), 1e-6)
}

func TestDCBlockerPassesTone(t *testing.T) {
	const rate = 8000
	in := make([]float64, rate)
	for i := range in {
		in[i] = 0.3 + math.Sin(2*math.Pi*440*float64(i)/rate)
	}
	out := RemoveDC(in, rate, DCModeBlocker)

	// after the transient the tone keeps nearly all of its amplitude
	peak := 0.0
	for _, v := range out[rate/2:] {
		peak = math.Max(peak, math.Abs(v))
	}
	assert.InDelta(t, 1.0, peak, 0.02)
}

func TestDCBlockerReset(t *testing.T) {
	b := NewDCBlocker(0, 0)
	assert.Equal(t, 0.995, b.Pole())

	first := b.Process(1)
	b.Process(1)
	b.Reset()
	assert.Equal(t, first, b.Process(1))
}
