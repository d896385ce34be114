package pitch

import (
	"fmt"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/algorithms/filters"
	"github.com/RyanBlaney/sonido-pitch/algorithms/harmonic"
	"github.com/RyanBlaney/sonido-pitch/algorithms/spectral"
	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/algorithms/windowing"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/pitch/config"
)

// Stage names one step of the pipeline
type Stage string

const (
	StageValidate  Stage = "validate"
	StageNormalize Stage = "normalize"
	StageDownmix   Stage = "downmix"
	StageDecimate  Stage = "decimate"
	StageDCFilter  Stage = "dc_filter"
	StageWindow    Stage = "window"
	StageTransform Stage = "transform"
	StagePeak      Stage = "peak"
	StageNote      Stage = "note"
)

// StageEvent describes what a stage produced
type StageEvent struct {
	Stage  Stage
	Fields logging.Fields
}

// Observer receives one event per completed stage. It must not retain Fields.
type Observer func(StageEvent)

// Option configures a Detector
type Option func(*Detector)

// WithLogger replaces the logger stage events are written to (Debug level)
func WithLogger(logger logging.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithObserver registers a callback for stage events
func WithObserver(observer Observer) Option {
	return func(d *Detector) {
		d.observer = observer
	}
}

// Detector runs the pitch detection pipeline:
// normalize -> downmix -> decimate [-> dc filter] -> window -> transform ->
// peak -> note.
// A Detector holds only immutable configuration and may be shared; each call
// allocates its own buffers.
type Detector struct {
	cfg      config.Config
	backend  spectral.Backend
	dc       filters.DCMode
	peaks    *harmonic.PeakEstimator
	notes    *tonal.NoteMapper
	observer Observer
	logger   logging.Logger
}

// NewDetector validates cfg and builds a detector. A nil cfg uses the defaults.
func NewDetector(cfg *config.Config, opts ...Option) (*Detector, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pitch config: %w", err)
	}

	backend, err := spectral.ParseBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	dc, err := filters.ParseDCMode(cfg.DCFilter)
	if err != nil {
		return nil, err
	}
	peaks, err := harmonic.NewPeakEstimator(cfg.SearchFraction)
	if err != nil {
		return nil, err
	}

	d := &Detector{
		cfg:     *cfg,
		backend: backend,
		dc:      dc,
		peaks:   peaks,
		notes:   cfg.NoteMapper(),
		logger: logging.WithFields(logging.Fields{
			"component": "pitch_detector",
		}),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// DetectPitch runs the default pipeline on stream
func DetectPitch(stream *AudioStream) (*PitchResult, error) {
	d, err := NewDetector(nil)
	if err != nil {
		return nil, err
	}
	return d.Detect(stream)
}

// Config returns a copy of the detector's configuration
func (d *Detector) Config() config.Config {
	return d.cfg
}

// Detect returns the dominant pitch of stream. It either returns a complete
// result or an error; there are no partial results.
func (d *Detector) Detect(stream *AudioStream) (*PitchResult, error) {
	result, _, err := d.Analyze(stream)
	return result, err
}

// Analyze is Detect that also returns the magnitude spectrum
func (d *Detector) Analyze(stream *AudioStream) (*PitchResult, *Spectrum, error) {
	if err := stream.Validate(); err != nil {
		return nil, nil, d.fail(&StageError{Stage: StageValidate, Err: err})
	}
	d.emit(StageValidate, logging.Fields{
		"encoding":    stream.Encoding.String(),
		"channels":    stream.Channels,
		"sample_rate": stream.SampleRate,
		"samples":     len(stream.Samples),
	})

	signal, err := d.condition(stream)
	if err != nil {
		return nil, nil, d.fail(err)
	}

	spectrum, err := d.transform(signal)
	if err != nil {
		return nil, nil, d.fail(err)
	}

	peak := d.peaks.Find(spectrum.Magnitudes, spectrum.SampleRate)
	d.emit(StagePeak, logging.Fields{
		"peak_bin":     peak.Bin,
		"search_bins":  peak.SearchBins,
		"magnitude":    peak.Magnitude,
		"frequency_hz": peak.Frequency,
	})

	mapping := d.notes.Map(peak.Frequency)
	result := &PitchResult{
		FrequencyHz: peak.Frequency,
		Note:        mapping.Note,
		InRange:     mapping.InRange,
		Cents:       mapping.Cents,
		NoteHz:      mapping.NoteHz,
		PeakBin:     peak.Bin,
		BinWidthHz:  spectrum.BinWidth(),
		SampleRate:  spectrum.SampleRate,
		FFTSize:     spectrum.Size,
	}

	noteFields := logging.Fields{"in_range": result.InRange}
	if result.Note != nil {
		noteFields["note"] = result.Note.String()
		noteFields["cents"] = result.Cents
	}
	d.emit(StageNote, noteFields)

	return result, spectrum, nil
}

// Condition runs the time-domain stages only: normalize, downmix, decimate.
func (d *Detector) Condition(stream *AudioStream) (*NormalizedSignal, error) {
	if err := stream.Validate(); err != nil {
		return nil, &StageError{Stage: StageValidate, Err: err}
	}
	return d.condition(stream)
}

func (d *Detector) condition(stream *AudioStream) (*NormalizedSignal, error) {
	samples, err := common.NormalizeSamples(stream.Samples, stream.Encoding)
	if err != nil {
		return nil, stageErr(StageNormalize, err, "encoding=%v", stream.Encoding)
	}
	if len(samples) == 0 {
		return nil, stageErr(StageNormalize, ErrEmptyInput, "stream has no samples")
	}
	d.emit(StageNormalize, logging.Fields{
		"samples":  len(samples),
		"peak_abs": common.PeakAbs(samples),
		"rms":      common.RMS(samples),
	})

	if d.cfg.Downmix {
		samples, err = common.Downmix(samples, stream.Channels)
		if err != nil {
			return nil, stageErr(StageDownmix, err, "channels=%d", stream.Channels)
		}
		if len(samples) == 0 {
			return nil, stageErr(StageDownmix, ErrEmptyInput, "%d samples do not fill one %d-channel frame",
				len(stream.Samples), stream.Channels)
		}
	}
	d.emit(StageDownmix, logging.Fields{
		"enabled":  d.cfg.Downmix,
		"channels": stream.Channels,
		"dropped":  len(stream.Samples) % stream.Channels,
		"samples":  len(samples),
	})

	decimated, rate, err := common.Decimate(samples, stream.SampleRate, d.cfg.DecimationFactor, d.cfg.MaxDurationSeconds)
	if err != nil {
		return nil, stageErr(StageDecimate, err, "factor=%d", d.cfg.DecimationFactor)
	}
	if rate <= 0 {
		return nil, stageErr(StageDecimate, ErrInvalidStream, "rate %d / factor %d leaves no sample rate",
			stream.SampleRate, d.cfg.DecimationFactor)
	}
	if len(decimated) == 0 {
		return nil, stageErr(StageDecimate, ErrEmptyInput, "factor=%d max_duration=%.3fs",
			d.cfg.DecimationFactor, d.cfg.MaxDurationSeconds)
	}
	d.emit(StageDecimate, logging.Fields{
		"factor":         d.cfg.DecimationFactor,
		"max_duration":   d.cfg.MaxDurationSeconds,
		"effective_rate": rate,
		"samples":        len(decimated),
	})

	if d.dc != filters.DCModeNone {
		decimated = filters.RemoveDC(decimated, rate, d.dc)
		d.emit(StageDCFilter, logging.Fields{
			"mode": d.dc,
			"mean": common.Mean(decimated),
		})
	}

	return &NormalizedSignal{Samples: decimated, SampleRate: rate}, nil
}

func (d *Detector) transform(signal *NormalizedSignal) (*Spectrum, error) {
	windowed, windowType := windowing.ApplyStage(signal.Samples, d.cfg.Window)
	d.emit(StageWindow, logging.Fields{
		"window_type": windowType,
		"samples":     len(windowed),
	})

	n := spectral.TransformSize(len(windowed), d.cfg.PadToPowerOfTwo)
	plan, err := spectral.NewPlan(n, d.backend, d.cfg.ParallelThreshold)
	if err != nil {
		return nil, stageErr(StageTransform, err, "size=%d", n)
	}
	plan.WithLogger(d.logger)
	magnitudes, err := plan.Execute(windowed)
	if err != nil {
		return nil, stageErr(StageTransform, err, "size=%d", n)
	}

	spectrum := &Spectrum{Magnitudes: magnitudes, SampleRate: signal.SampleRate, Size: n}
	d.emit(StageTransform, logging.Fields{
		"fft_size":     n,
		"radix2":       common.IsPowerOfTwo(n),
		"backend":      plan.Backend(),
		"zero_padding": n - len(windowed),
		"bin_width_hz": spectrum.BinWidth(),
	})

	return spectrum, nil
}

func (d *Detector) emit(stage Stage, fields logging.Fields) {
	d.logger.Debug("Stage completed", logging.Fields{"stage": stage}, fields)
	if d.observer != nil {
		d.observer(StageEvent{Stage: stage, Fields: fields})
	}
}

func (d *Detector) fail(err error) error {
	d.logger.Error(err, "Pitch detection failed")
	return err
}
