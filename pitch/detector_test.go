package pitch

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/pitch/config"
)

func sineSamples(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

func int16Stream(freq float64, sampleRate, n int) *AudioStream {
	words := make([]int32, n)
	for i, s := range sineSamples(freq, sampleRate, n) {
		words[i] = int32(math.Round(0.8 * s * math.MaxInt16))
	}
	return NewIntStream(Int16, 1, sampleRate, words)
}

func newTestDetector(t *testing.T, cfg *config.Config, opts ...Option) *Detector {
	t.Helper()
	opts = append([]Option{WithLogger(&logging.NoOpLogger{})}, opts...)
	d, err := NewDetector(cfg, opts...)
	require.NoError(t, err)
	return d
}

// requireNote fails the test instead of panicking when r has no note
func requireNote(t *testing.T, r *PitchResult) string {
	t.Helper()
	require.NotNil(t, r)
	require.NotNil(t, r.Note, "%.2f Hz (bin %d of %d) has no note", r.FrequencyHz, r.PeakBin, r.FFTSize)
	return r.Note.String()
}

func TestDetectPureA440(t *testing.T) {
	d := newTestDetector(t, nil)

	result, err := d.Detect(int16Stream(440, 44100, 44100))
	require.NoError(t, err)

	assert.Equal(t, 65536, result.FFTSize)
	assert.Equal(t, 44100, result.SampleRate)
	assert.InDelta(t, 44100.0/65536.0, result.BinWidthHz, 1e-12)
	assert.InDelta(t, 440.0, result.FrequencyHz, result.BinWidthHz)
	require.True(t, result.InRange)
	require.NotNil(t, result.Note)
	assert.Equal(t, "A", result.Note.Letter)
	assert.Equal(t, 4, result.Note.Octave)
	assert.Less(t, math.Abs(result.Cents), 5.0)
}

func TestDetectStereoInt24MiddleC(t *testing.T) {
	const rate = 48000
	mono := sineSamples(261.63, rate, rate)
	words := make([]int32, 0, 2*len(mono))
	for _, s := range mono {
		v := int32(math.Round(0.5 * s * (1<<23 - 1)))
		// right channel a little quieter, same pitch
		words = append(words, common.PackInt24(v), common.PackInt24(v/2))
	}

	d := newTestDetector(t, nil)
	result, err := d.Detect(NewIntStream(Int24, 2, rate, words))
	require.NoError(t, err)

	assert.Equal(t, "C4", requireNote(t, result))
	assert.InDelta(t, 261.63, result.FrequencyHz, result.BinWidthHz)
}

func TestDetectFloat32WithDecimation(t *testing.T) {
	const rate = 22050
	samples := make([]float32, rate)
	for i, s := range sineSamples(220, rate, rate) {
		samples[i] = float32(0.9 * s)
	}

	cfg := config.DefaultConfig()
	cfg.DecimationFactor = 2

	result, err := newTestDetector(t, cfg).Detect(NewFloatStream(1, rate, samples))
	require.NoError(t, err)

	assert.Equal(t, 11025, result.SampleRate)
	assert.Equal(t, 16384, result.FFTSize)
	assert.Equal(t, "A3", requireNote(t, result))
}

func TestDetectInt32ExactTransform(t *testing.T) {
	const rate = 8000
	words := make([]int32, rate)
	for i, s := range sineSamples(1000, rate, rate) {
		words[i] = int32(math.Round(0.5 * s * math.MaxInt32))
	}

	cfg, err := config.GetPresetConfig(config.PresetExact)
	require.NoError(t, err)

	result, err := newTestDetector(t, cfg).Detect(NewIntStream(Int32, 1, rate, words))
	require.NoError(t, err)

	assert.Equal(t, rate, result.FFTSize)
	assert.Equal(t, 1000, result.PeakBin)
	assert.Equal(t, 1000.0, result.FrequencyHz)
	assert.Equal(t, "B5", requireNote(t, result))
}

func TestDetectLowFrequencyPreset(t *testing.T) {
	cfg, err := config.GetPresetConfig(config.PresetLowFrequency)
	require.NoError(t, err)

	result, err := newTestDetector(t, cfg).Detect(int16Stream(110, 44100, 44100))
	require.NoError(t, err)

	assert.Equal(t, 11025, result.SampleRate)
	assert.Equal(t, "A2", requireNote(t, result))
}

func TestDetectRawPresetStillFindsTone(t *testing.T) {
	cfg, err := config.GetPresetConfig(config.PresetRaw)
	require.NoError(t, err)

	result, err := newTestDetector(t, cfg).Detect(int16Stream(440, 44100, 44100))
	require.NoError(t, err)
	assert.Equal(t, "A4", requireNote(t, result))
}

func TestDetectBackendsAgree(t *testing.T) {
	stream := int16Stream(523.25, 44100, 22050)

	gonumResult, err := newTestDetector(t, nil).Detect(stream)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Backend = "go-dsp"
	dspResult, err := newTestDetector(t, cfg).Detect(stream)
	require.NoError(t, err)

	assert.Equal(t, gonumResult.PeakBin, dspResult.PeakBin)
	assert.Equal(t, "C5", requireNote(t, dspResult))
}

func TestDetectPeakStaysBelowNyquist(t *testing.T) {
	const rate = 44100

	for _, backend := range []string{"gonum", "go-dsp"} {
		cfg := config.DefaultConfig()
		cfg.Backend = backend
		d := newTestDetector(t, cfg)

		for _, n := range []int{4000, 8000, 11025} {
			for freq := 100.0; freq <= 2000; freq += 7.3 {
				result, err := d.Detect(int16Stream(freq, rate, n))
				require.NoError(t, err)

				msg := fmt.Sprintf("%s n=%d f=%.1f", backend, n, freq)
				require.LessOrEqual(t, result.PeakBin, result.FFTSize/2, msg)
				require.True(t, result.InRange, msg)
				require.InDelta(t, freq, result.FrequencyHz, result.BinWidthHz, msg)
			}
		}
	}
}

func TestDetectorUsesInjectedLogger(t *testing.T) {
	var global, injected bytes.Buffer

	prev := logging.GetGlobalLogger()
	globalLogger := logging.NewWriterLogger(&global, &global)
	globalLogger.SetLevel(logging.DebugLevel)
	logging.SetGlobalLogger(globalLogger)
	t.Cleanup(func() { logging.SetGlobalLogger(prev) })

	logger := logging.NewWriterLogger(&injected, &injected)
	logger.SetLevel(logging.DebugLevel)

	d, err := NewDetector(nil, WithLogger(logger))
	require.NoError(t, err)
	_, err = d.Detect(int16Stream(440, 8000, 4000))
	require.NoError(t, err)

	assert.Empty(t, global.String())
	assert.Contains(t, injected.String(), "Stage completed")
	assert.Contains(t, injected.String(), "Transform executed")
	assert.Contains(t, injected.String(), "window_type=hann")
	assert.Contains(t, injected.String(), "radix2=true")
}

func TestDetectOutOfRange(t *testing.T) {
	result, err := newTestDetector(t, nil).Detect(int16Stream(5000, 44100, 44100))
	require.NoError(t, err)

	assert.False(t, result.InRange)
	assert.Nil(t, result.Note)
	assert.InDelta(t, 5000.0, result.FrequencyHz, result.BinWidthHz)
}

func TestDetectDCOffset(t *testing.T) {
	const rate = 44100
	words := make([]int32, rate)
	for i, s := range sineSamples(440, rate, rate) {
		words[i] = int32(math.Round((0.6 + 0.3*s) * math.MaxInt16))
	}
	stream := NewIntStream(Int16, 1, rate, words)

	// the offset owns bin 0
	result, err := newTestDetector(t, nil).Detect(stream)
	require.NoError(t, err)
	assert.Equal(t, 0, result.PeakBin)
	assert.False(t, result.InRange)

	for _, mode := range []string{"mean", "blocker"} {
		cfg := config.DefaultConfig()
		cfg.DCFilter = mode

		var stages []Stage
		d := newTestDetector(t, cfg, WithObserver(func(e StageEvent) {
			stages = append(stages, e.Stage)
		}))
		result, err := d.Detect(stream)
		require.NoError(t, err, mode)
		assert.Equal(t, "A4", requireNote(t, result), mode)
		assert.Contains(t, stages, StageDCFilter, mode)
	}
}

func TestDetectEmptyInput(t *testing.T) {
	d := newTestDetector(t, nil)

	result, err := d.Detect(NewIntStream(Int16, 1, 44100, nil))
	assert.Nil(t, result)
	require.ErrorIs(t, err, ErrEmptyInput)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageNormalize, stageErr.Stage)
}

func TestDetectEmptyAfterDownmix(t *testing.T) {
	result, err := newTestDetector(t, nil).Detect(NewIntStream(Int16, 2, 44100, []int32{100}))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestDetectEmptyAfterDurationCap(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxDurationSeconds = 0.00001

	result, err := newTestDetector(t, cfg).Detect(int16Stream(440, 44100, 1000))
	assert.Nil(t, result)
	require.ErrorIs(t, err, ErrEmptyInput)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageDecimate, stageErr.Stage)
	assert.Contains(t, err.Error(), "max_duration")
}

func TestDetectRejectsInvalidStreams(t *testing.T) {
	d := newTestDetector(t, nil)

	tests := []struct {
		name   string
		stream *AudioStream
		want   error
	}{
		{"nil stream", nil, ErrInvalidStream},
		{"unknown encoding", NewIntStream(SampleEncoding(0), 1, 44100, []int32{1}), ErrUnsupportedEncoding},
		{"zero channels", NewIntStream(Int16, 0, 44100, []int32{1}), ErrInvalidStream},
		{"zero rate", NewIntStream(Int16, 1, 0, []int32{1}), ErrInvalidStream},
		{"int16 overflow", NewIntStream(Int16, 1, 44100, []int32{1 << 20}), ErrInvalidStream},
		{"float nan", NewFloatStream(1, 44100, []float32{float32(math.NaN())}), ErrInvalidStream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := d.Detect(tt.stream)
			assert.Nil(t, result)
			require.ErrorIs(t, err, tt.want)

			var stageErr *StageError
			require.True(t, errors.As(err, &stageErr))
			assert.Equal(t, StageValidate, stageErr.Stage)
		})
	}
}

func TestDetectDecimationBelowOneHertz(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DecimationFactor = 16

	_, err := newTestDetector(t, cfg).Detect(NewIntStream(Int16, 1, 8, make([]int32, 64)))
	assert.ErrorIs(t, err, ErrInvalidStream)
}

func TestObserverSeesEveryStageInOrder(t *testing.T) {
	var stages []Stage
	d := newTestDetector(t, nil, WithObserver(func(e StageEvent) {
		stages = append(stages, e.Stage)
	}))

	_, err := d.Detect(int16Stream(440, 8000, 4000))
	require.NoError(t, err)

	assert.Equal(t, []Stage{
		StageValidate, StageNormalize, StageDownmix, StageDecimate,
		StageWindow, StageTransform, StagePeak, StageNote,
	}, stages)
}

func TestAnalyzeReturnsSpectrum(t *testing.T) {
	result, spectrum, err := newTestDetector(t, nil).Analyze(int16Stream(440, 8000, 8000))
	require.NoError(t, err)

	assert.Len(t, spectrum.Magnitudes, 8192)
	assert.Equal(t, 8192, spectrum.Size)
	assert.Equal(t, result.FrequencyHz, spectrum.BinFrequency(result.PeakBin))
	assert.Equal(t, spectrum.BinWidth(), result.BinWidthHz)
}

func TestConditionStereo(t *testing.T) {
	words := []int32{32767, -32767, 16384, 16384, 7}
	signal, err := newTestDetector(t, nil).Condition(NewIntStream(Int16, 2, 100, words))
	require.NoError(t, err)

	require.Len(t, signal.Samples, 2)
	assert.InDelta(t, 0.0, signal.Samples[0], 1e-9)
	assert.InDelta(t, 0.5, signal.Samples[1], 1e-4)
	assert.Equal(t, 100, signal.SampleRate)
	assert.Equal(t, 0.02, signal.Duration())
}

func TestConditionWithoutDownmixKeepsInterleaving(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Downmix = false

	signal, err := newTestDetector(t, cfg).Condition(NewIntStream(Int16, 2, 100, []int32{1, 2, 3, 4}))
	require.NoError(t, err)
	assert.Len(t, signal.Samples, 4)
}

func TestNewDetectorRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SearchFraction = 2

	_, err := NewDetector(cfg)
	assert.Error(t, err)
}

func TestDetectorCopiesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	d := newTestDetector(t, cfg)

	cfg.DecimationFactor = 0
	assert.Equal(t, 1, d.Config().DecimationFactor)
}

func TestDetectPitchDefaults(t *testing.T) {
	prev := logging.GetGlobalLogger()
	logging.SetGlobalLogger(&logging.NoOpLogger{})
	t.Cleanup(func() { logging.SetGlobalLogger(prev) })

	result, err := DetectPitch(int16Stream(440, 44100, 44100))
	require.NoError(t, err)
	assert.Equal(t, "A4", requireNote(t, result))
}

func TestStreamFrames(t *testing.T) {
	assert.Equal(t, 2, NewIntStream(Int16, 2, 100, make([]int32, 5)).Frames())
	assert.Equal(t, 0, NewIntStream(Int16, 0, 100, make([]int32, 5)).Frames())
}
