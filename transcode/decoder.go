package transcode

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-audio/wav"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/pitch"
)

// WAVE format tags
const (
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatExtensible = 0xFFFE
)

// ErrInvalidContainer is returned when the input is not a readable WAVE file
var ErrInvalidContainer = errors.New("invalid WAV container")

// StreamMetadata describes the decoded container
type StreamMetadata struct {
	Path       string        `json:"path,omitempty"`
	Format     string        `json:"format"`
	FormatTag  int           `json:"format_tag"`
	BitDepth   int           `json:"bit_depth"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Frames     int           `json:"frames"`
	Duration   time.Duration `json:"duration"`
	Truncated  bool          `json:"truncated"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	// MaxDuration stops decoding after this much audio, 0 = whole file
	MaxDuration time.Duration `json:"max_duration"`
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		MaxDuration: 0, // No limit
	}
}

// Decoder turns WAV containers into pitch.AudioStream values
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// GetConfig returns decoder configuration information
func (d *Decoder) GetConfig() map[string]any {
	return map[string]any{
		"max_duration": d.config.MaxDuration,
	}
}

// DecodeFile decodes a WAV file
func (d *Decoder) DecodeFile(filename string) (*pitch.AudioStream, *StreamMetadata, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  filename,
	})

	f, err := os.Open(filename)
	if err != nil {
		logger.Error(err, "Failed to open audio file")
		return nil, nil, err
	}
	defer f.Close()

	stream, meta, err := d.decode(f, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filename, err)
	}
	meta.Path = filename

	return stream, meta, nil
}

// DecodeReader decodes a WAV container from r
func (d *Decoder) DecodeReader(r io.ReadSeeker) (*pitch.AudioStream, *StreamMetadata, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeReader",
	})

	return d.decode(r, logger)
}

func (d *Decoder) decode(r io.ReadSeeker, logger logging.Logger) (*pitch.AudioStream, *StreamMetadata, error) {
	logger.Debug("Starting audio decode")

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		err := ErrInvalidContainer
		if dec.Err() != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidContainer, dec.Err())
		}
		logger.Error(err, "Not a WAV file")
		return nil, nil, err
	}

	formatTag := int(dec.WavAudioFormat)
	bitDepth := int(dec.BitDepth)
	channels := int(dec.NumChans)
	sampleRate := int(dec.SampleRate)

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_format_tag":  formatTag,
		"input_bit_depth":   bitDepth,
		"input_channels":    channels,
		"input_sample_rate": sampleRate,
	})

	encoding, err := encodingForTag(formatTag, bitDepth)
	if err != nil {
		logger.Error(err, "Unsupported sample encoding")
		return nil, nil, err
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		logger.Error(err, "Failed to read PCM data")
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidContainer, err)
	}

	data := buf.Data
	truncated := false
	if d.config.MaxDuration > 0 && channels > 0 {
		// same rounding as the pipeline's duration cap
		maxFrames := int(math.Round(d.config.MaxDuration.Seconds() * float64(sampleRate)))
		if maxFrames*channels < len(data) {
			data = data[:maxFrames*channels]
			truncated = true
		}
	}

	words := make([]int32, len(data))
	for i, v := range data {
		words[i] = toWord(v, encoding)
	}

	frames := 0
	if channels > 0 {
		frames = len(words) / channels
	}
	meta := &StreamMetadata{
		Format:     encoding.String(),
		FormatTag:  formatTag,
		BitDepth:   bitDepth,
		SampleRate: sampleRate,
		Channels:   channels,
		Frames:     frames,
		Truncated:  truncated,
	}
	if sampleRate > 0 {
		meta.Duration = time.Duration(frames) * time.Second / time.Duration(sampleRate)
	}

	logger.Debug("Audio decode completed", logging.Fields{
		"samples":   len(words),
		"frames":    frames,
		"duration":  meta.Duration.Seconds(),
		"truncated": truncated,
	})

	return pitch.NewIntStream(encoding, channels, sampleRate, words), meta, nil
}

// encodingForTag maps a WAVE format tag and bit depth to a sample encoding.
//
// WAVE_FORMAT_EXTENSIBLE moves the real format into a subformat GUID that the
// decoder does not expose. 16 and 24-bit extensible data can only be integer
// PCM; at 32 bits it may be either integer or IEEE float, so it is rejected
// rather than guessed.
func encodingForTag(formatTag, bitDepth int) (pitch.SampleEncoding, error) {
	switch formatTag {
	case formatPCM:
		return common.EncodingFor(bitDepth, false)
	case formatExtensible:
		if bitDepth == 32 {
			return common.EncodingUnknown, fmt.Errorf("%w: 32-bit WAVE_FORMAT_EXTENSIBLE (integer or float subformat unknown)",
				pitch.ErrUnsupportedEncoding)
		}
		return common.EncodingFor(bitDepth, false)
	case formatIEEEFloat:
		return common.EncodingFor(bitDepth, true)
	default:
		return common.EncodingUnknown, fmt.Errorf("%w: WAVE format tag %#x", pitch.ErrUnsupportedEncoding, formatTag)
	}
}

// toWord places a decoded sample into its container word. go-audio returns
// 24-bit samples sign-extended, so they are shifted up to be left-justified;
// 32-bit samples already hold the raw word (IEEE bits for float files).
func toWord(v int, enc pitch.SampleEncoding) int32 {
	if enc == pitch.Int24 {
		return common.PackInt24(int32(v))
	}
	return int32(v)
}
