package common

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Downmix averages each frame of an interleaved signal into a single mono sample.
// A trailing partial frame is dropped.
func Downmix(interleaved []float64, channels int) ([]float64, error) {
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if channels == 1 {
		return interleaved, nil
	}

	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := range frames {
		mono[i] = floats.Sum(interleaved[i*channels:(i+1)*channels]) / float64(channels)
	}

	return mono, nil
}

// Decimate keeps every factor-th sample starting at index 0 and returns the
// new effective sample rate (integer division).
//
// No anti-aliasing filter is applied, so content above the new Nyquist limit
// folds back into the band. Callers choose factors for material they know is
// low-passed already.
//
// maxDuration > 0 truncates the output to round(rate*maxDuration) samples.
func Decimate(samples []float64, sampleRate, factor int, maxDuration float64) ([]float64, int, error) {
	if factor < 1 {
		return nil, 0, fmt.Errorf("invalid decimation factor %d", factor)
	}
	if maxDuration < 0 {
		return nil, 0, fmt.Errorf("invalid max duration %.3fs", maxDuration)
	}

	rate := sampleRate / factor
	out := samples
	if factor > 1 {
		out = make([]float64, 0, (len(samples)+factor-1)/factor)
		for i := 0; i < len(samples); i += factor {
			out = append(out, samples[i])
		}
	}

	if maxDuration > 0 {
		limit := int(math.Round(float64(rate) * maxDuration))
		if limit < len(out) {
			out = out[:limit]
		}
	}

	return out, rate, nil
}
