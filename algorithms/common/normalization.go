package common

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedEncoding is returned for bit depth / format pairs the
// normalizer has no full-scale value for.
var ErrUnsupportedEncoding = errors.New("unsupported sample encoding")

// SampleEncoding identifies how raw sample words are stored
type SampleEncoding int

const (
	EncodingUnknown SampleEncoding = iota
	Int16
	Int24 // left-justified in a 32-bit container
	Int32
	Float32 // IEEE-754 bits carried in the sample word
)

// Full-scale divisors
const (
	int16FullScale = float64(math.MaxInt16)
	int24FullScale = float64(1 << 23)
	int32FullScale = float64(math.MaxInt32)
)

func (e SampleEncoding) String() string {
	switch e {
	case Int16:
		return "int16"
	case Int24:
		return "int24"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("unknown(%d)", int(e))
	}
}

// BitDepth returns the nominal bit depth of the encoding, 0 if unknown.
func (e SampleEncoding) BitDepth() int {
	switch e {
	case Int16:
		return 16
	case Int24:
		return 24
	case Int32, Float32:
		return 32
	default:
		return 0
	}
}

// Valid reports whether e is one of the four supported encodings.
func (e SampleEncoding) Valid() bool {
	return e >= Int16 && e <= Float32
}

// EncodingFor resolves a bit depth and sample format to an encoding.
func EncodingFor(bitDepth int, isFloat bool) (SampleEncoding, error) {
	switch {
	case !isFloat && bitDepth == 16:
		return Int16, nil
	case !isFloat && bitDepth == 24:
		return Int24, nil
	case !isFloat && bitDepth == 32:
		return Int32, nil
	case isFloat && bitDepth == 32:
		return Float32, nil
	}

	format := "integer"
	if isFloat {
		format = "float"
	}
	return EncodingUnknown, fmt.Errorf("%w: %d-bit %s", ErrUnsupportedEncoding, bitDepth, format)
}

// NormalizeSample converts one raw sample word to a float in roughly [-1, 1].
//
// Scaling per encoding:
//
//	Int16    word / 32767             (-32768 maps just below -1)
//	Int24    (word >> 8) / 2^23       arithmetic shift keeps the sign
//	Int32    word / 2147483647
//	Float32  IEEE-754 bits, passed through unscaled
//
// Any other encoding returns ErrUnsupportedEncoding.
func NormalizeSample(word int32, enc SampleEncoding) (float64, error) {
	switch enc {
	case Int16:
		return float64(word) / int16FullScale, nil
	case Int24:
		return float64(word>>8) / int24FullScale, nil
	case Int32:
		return float64(word) / int32FullScale, nil
	case Float32:
		return float64(math.Float32frombits(uint32(word))), nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedEncoding, enc)
	}
}

// NormalizeSamples normalizes a whole block of sample words.
// The encoding is checked once up front rather than per sample.
func NormalizeSamples(words []int32, enc SampleEncoding) ([]float64, error) {
	if !enc.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedEncoding, enc)
	}

	out := make([]float64, len(words))
	switch enc {
	case Int16:
		for i, w := range words {
			out[i] = float64(w) / int16FullScale
		}
	case Int24:
		for i, w := range words {
			out[i] = float64(w>>8) / int24FullScale
		}
	case Int32:
		for i, w := range words {
			out[i] = float64(w) / int32FullScale
		}
	case Float32:
		for i, w := range words {
			out[i] = float64(math.Float32frombits(uint32(w)))
		}
	}

	return out, nil
}

// PackInt24 left-justifies a sign-extended 24-bit value into its 32-bit container.
func PackInt24(v int32) int32 {
	return int32(uint32(v) << 8)
}

// FloatWord stores an IEEE-754 float32 in a sample word.
func FloatWord(f float32) int32 {
	return int32(math.Float32bits(f))
}
