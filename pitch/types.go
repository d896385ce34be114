package pitch

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/algorithms/harmonic"
	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
)

// SampleEncoding is the bit depth and format of raw sample words
type SampleEncoding = common.SampleEncoding

const (
	Int16   = common.Int16
	Int24   = common.Int24
	Int32   = common.Int32
	Float32 = common.Float32
)

// NoteName is a note letter and MIDI-convention octave (A4 = MIDI 69)
type NoteName = tonal.Note

// AudioStream is a fully decoded clip: interleaved raw sample words plus the
// format needed to interpret them. Int24 words are left-justified in the
// 32-bit container; Float32 words carry IEEE-754 bits. Treat as read-only.
type AudioStream struct {
	Encoding   SampleEncoding `json:"encoding"`
	Channels   int            `json:"channels"`
	SampleRate int            `json:"sample_rate"`
	Samples    []int32        `json:"-"`
}

// NewIntStream wraps integer sample words
func NewIntStream(enc SampleEncoding, channels, sampleRate int, words []int32) *AudioStream {
	return &AudioStream{Encoding: enc, Channels: channels, SampleRate: sampleRate, Samples: words}
}

// NewFloatStream stores float samples as Float32 words
func NewFloatStream(channels, sampleRate int, samples []float32) *AudioStream {
	words := make([]int32, len(samples))
	for i, s := range samples {
		words[i] = common.FloatWord(s)
	}
	return &AudioStream{Encoding: Float32, Channels: channels, SampleRate: sampleRate, Samples: words}
}

// Frames returns the number of complete interleaved frames
func (s *AudioStream) Frames() int {
	if s.Channels < 1 {
		return 0
	}
	return len(s.Samples) / s.Channels
}

// Validate checks the stream once before processing. It does not reject
// empty streams or partial trailing frames; those are handled by the pipeline.
func (s *AudioStream) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil stream", ErrInvalidStream)
	}
	if !s.Encoding.Valid() {
		return fmt.Errorf("%w: %v", ErrUnsupportedEncoding, s.Encoding)
	}
	if s.Channels < 1 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidStream, s.Channels)
	}
	if s.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidStream, s.SampleRate)
	}

	switch s.Encoding {
	case Int16:
		for i, w := range s.Samples {
			if w < math.MinInt16 || w > math.MaxInt16 {
				return fmt.Errorf("%w: sample %d = %d exceeds 16-bit range", ErrInvalidStream, i, w)
			}
		}
	case Float32:
		for i, w := range s.Samples {
			f := float64(math.Float32frombits(uint32(w)))
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("%w: sample %d is not finite", ErrInvalidStream, i)
			}
		}
	}

	return nil
}

// NormalizedSignal is a mono signal in roughly [-1, 1] at its effective rate
type NormalizedSignal struct {
	Samples    []float64
	SampleRate int
}

// Duration in seconds
func (n *NormalizedSignal) Duration() float64 {
	if n.SampleRate == 0 {
		return 0
	}
	return float64(len(n.Samples)) / float64(n.SampleRate)
}

// Spectrum is the magnitude of every bin of an N-point transform.
// Only bins below N/2 are meaningful; the rest mirror them.
type Spectrum struct {
	Magnitudes []float64
	SampleRate int
	Size       int
}

// BinWidth is the frequency spacing of adjacent bins in Hz
func (s *Spectrum) BinWidth() float64 {
	return harmonic.BinFrequency(1, s.SampleRate, s.Size)
}

// BinFrequency returns the center frequency of bin k in Hz
func (s *Spectrum) BinFrequency(k int) float64 {
	return harmonic.BinFrequency(k, s.SampleRate, s.Size)
}

// PitchResult is the verdict of one run
type PitchResult struct {
	FrequencyHz float64   `json:"frequency_hz"`
	Note        *NoteName `json:"note,omitempty"`
	InRange     bool      `json:"in_range"`

	Cents      float64 `json:"cents"`        // deviation from Note
	NoteHz     float64 `json:"note_hz"`      // exact frequency of Note
	PeakBin    int     `json:"peak_bin"`     // dominant bin index
	BinWidthHz float64 `json:"bin_width_hz"` // frequency resolution
	SampleRate int     `json:"sample_rate"`  // effective rate after decimation
	FFTSize    int     `json:"fft_size"`
}
