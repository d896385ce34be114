package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/RyanBlaney/sonido-pitch/algorithms/filters"
	"github.com/RyanBlaney/sonido-pitch/algorithms/harmonic"
	"github.com/RyanBlaney/sonido-pitch/algorithms/spectral"
	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
)

// Config parameterizes one pitch detection run
type Config struct {
	// Conditioning
	Downmix            bool    `json:"downmix"`              // false reads interleaved samples as one sequence
	DecimationFactor   int     `json:"decimation_factor"`    // keep every Nth sample, 1 = off
	MaxDurationSeconds float64 `json:"max_duration_seconds"` // 0 = no cap
	DCFilter           string  `json:"dc_filter"`            // "none", "mean", "blocker"

	// Spectral analysis
	Window            bool   `json:"window"`              // Hann window before the transform
	PadToPowerOfTwo   bool   `json:"pad_to_power_of_two"` // false = exact-length transform
	Backend           string `json:"backend"`             // "gonum", "go-dsp"
	ParallelThreshold int    `json:"parallel_threshold"`  // 0 = spectral.DefaultParallelThreshold

	// Peak search
	SearchFraction float64 `json:"search_fraction"` // (0, 1], lowest fraction of bins searched

	// Note mapping
	ReferenceHz   float64 `json:"reference_hz"`
	ReferenceMIDI int     `json:"reference_midi"`
	MinHz         float64 `json:"min_hz"`
	MaxHz         float64 `json:"max_hz"`
}

// Preset names
const (
	PresetStandard     = "standard"
	PresetLowFrequency = "low-frequency"
	PresetExact        = "exact"
	PresetRaw          = "raw"
)

// DefaultConfig returns the standard pipeline: downmix, Hann window,
// power-of-two transform, peak search up to Nyquist, A4 = 440 Hz.
func DefaultConfig() *Config {
	return &Config{
		Downmix:            true,
		DecimationFactor:   1,
		MaxDurationSeconds: 0,
		DCFilter:           string(filters.DCModeNone),
		Window:             true,
		PadToPowerOfTwo:    true,
		Backend:            string(spectral.BackendGonum),
		ParallelThreshold:  spectral.DefaultParallelThreshold,
		SearchFraction:     harmonic.DefaultSearchFraction,
		ReferenceHz:        tonal.DefaultReferenceHz,
		ReferenceMIDI:      tonal.DefaultReferenceMIDI,
		MinHz:              tonal.DefaultMinHz,
		MaxHz:              tonal.DefaultMaxHz,
	}
}

// GetPresetConfig returns a named variant of the default configuration
func GetPresetConfig(name string) (*Config, error) {
	cfg := DefaultConfig()

	switch name {
	case "", PresetStandard:
		// defaults

	case PresetLowFrequency:
		// bass and low instruments: fewer samples, search the bottom quarter only
		cfg.DecimationFactor = 4
		cfg.MaxDurationSeconds = 5.0
		cfg.SearchFraction = 0.25

	case PresetExact:
		cfg.PadToPowerOfTwo = false

	case PresetRaw:
		// no conditioning beyond normalization; expect leakage
		cfg.Window = false
		cfg.Downmix = false

	default:
		return nil, fmt.Errorf("unknown preset %q", name)
	}

	return cfg, nil
}

// Presets lists the preset names
func Presets() []string {
	return []string{PresetStandard, PresetLowFrequency, PresetExact, PresetRaw}
}

// Validate checks every field's range
func (c *Config) Validate() error {
	if c.DecimationFactor < 1 {
		return fmt.Errorf("decimation_factor must be >= 1, got %d", c.DecimationFactor)
	}
	if c.MaxDurationSeconds < 0 || math.IsNaN(c.MaxDurationSeconds) {
		return fmt.Errorf("max_duration_seconds must be >= 0, got %v", c.MaxDurationSeconds)
	}
	if _, err := filters.ParseDCMode(c.DCFilter); err != nil {
		return err
	}
	if _, err := spectral.ParseBackend(c.Backend); err != nil {
		return err
	}
	if c.ParallelThreshold < 0 {
		return fmt.Errorf("parallel_threshold must be >= 0, got %d", c.ParallelThreshold)
	}
	if _, err := harmonic.NewPeakEstimator(c.SearchFraction); err != nil {
		return err
	}
	return c.NoteMapper().Validate()
}

// NoteMapper builds the note mapper described by c
func (c *Config) NoteMapper() *tonal.NoteMapper {
	return &tonal.NoteMapper{
		ReferenceHz:   c.ReferenceHz,
		ReferenceMIDI: c.ReferenceMIDI,
		MinHz:         c.MinHz,
		MaxHz:         c.MaxHz,
	}
}

// Load reads a JSON config file on top of the defaults. Fields missing from
// the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PITCH_* environment variables. Unset or
// unparsable variables leave the field alone.
func ApplyEnv(c *Config) *Config {
	c.Downmix = envBool("PITCH_DOWNMIX", c.Downmix)
	c.DecimationFactor = envInt("PITCH_DECIMATION_FACTOR", c.DecimationFactor)
	c.MaxDurationSeconds = envFloat("PITCH_MAX_DURATION", c.MaxDurationSeconds)
	c.DCFilter = envStr("PITCH_DC_FILTER", c.DCFilter)
	c.Window = envBool("PITCH_WINDOW", c.Window)
	c.PadToPowerOfTwo = envBool("PITCH_PAD_POW2", c.PadToPowerOfTwo)
	c.Backend = envStr("PITCH_FFT_BACKEND", c.Backend)
	c.ParallelThreshold = envInt("PITCH_PARALLEL_THRESHOLD", c.ParallelThreshold)
	c.SearchFraction = envFloat("PITCH_SEARCH_FRACTION", c.SearchFraction)
	c.ReferenceHz = envFloat("PITCH_REFERENCE_HZ", c.ReferenceHz)
	c.ReferenceMIDI = envInt("PITCH_REFERENCE_MIDI", c.ReferenceMIDI)
	c.MinHz = envFloat("PITCH_MIN_HZ", c.MinHz)
	c.MaxHz = envFloat("PITCH_MAX_HZ", c.MaxHz)
	return c
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
