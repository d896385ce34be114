package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/pitch"
	"github.com/RyanBlaney/sonido-pitch/pitch/config"
	"github.com/RyanBlaney/sonido-pitch/transcode"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath     string
	preset         string
	decimate       int
	maxDuration    float64
	searchFraction float64
	noWindow       bool
	exact          bool
	noDownmix      bool
	dcFilter       string
	reference      float64
	backend        string
	jsonOut        bool
	verbose        bool
}

type report struct {
	File   string                    `json:"file"`
	Stream *transcode.StreamMetadata `json:"stream"`
	Result *pitch.PitchResult        `json:"result"`
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pitchdetect", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.configPath, "config", "", "JSON config file (replaces -preset)")
	fs.StringVar(&o.preset, "preset", config.PresetStandard, "pipeline preset: "+strings.Join(config.Presets(), ", "))
	fs.IntVar(&o.decimate, "decimate", 1, "keep every Nth sample")
	fs.Float64Var(&o.maxDuration, "max-duration", 0, "analyze at most this many seconds, 0 = all")
	fs.Float64Var(&o.searchFraction, "search-fraction", 1, "lowest fraction of bins searched for the peak")
	fs.BoolVar(&o.noWindow, "no-window", false, "skip the Hann window")
	fs.BoolVar(&o.exact, "exact", false, "transform at the exact signal length instead of padding")
	fs.BoolVar(&o.noDownmix, "no-downmix", false, "read interleaved channels as one sequence")
	fs.StringVar(&o.dcFilter, "dc-filter", "none", "DC removal before the window: none, mean, blocker")
	fs.Float64Var(&o.reference, "reference", 440, "reference frequency for A4 in Hz")
	fs.StringVar(&o.backend, "backend", "gonum", "FFT backend: gonum, go-dsp")
	fs.BoolVar(&o.jsonOut, "json", false, "print the result as JSON")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: pitchdetect [flags] <file.wav>")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	path := fs.Arg(0)

	logger := logging.NewWriterLogger(stderr, stderr)
	logger.SetLevel(logging.WarnLevel)
	if lvl := os.Getenv("PITCH_LOG_LEVEL"); lvl != "" {
		logger.SetLevel(logging.ParseLevel(lvl))
	}
	if o.verbose {
		logger.SetLevel(logging.DebugLevel)
	}
	logging.SetGlobalLogger(logger)

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := buildConfig(&o, set)
	if err != nil {
		logger.Error(err, "Invalid configuration")
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	decoder := transcode.NewDecoder(&transcode.DecoderConfig{
		MaxDuration: time.Duration(cfg.MaxDurationSeconds * float64(time.Second)),
	})
	logger.Debug("Decoder configured", decoder.GetConfig())
	stream, meta, err := decoder.DecodeFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	detector, err := pitch.NewDetector(cfg, pitch.WithLogger(logger.WithFields(logging.Fields{
		"component": "pitchdetect",
		"file":      path,
	})))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	result, err := detector.Detect(stream)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	if o.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report{File: path, Stream: meta, Result: result}); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitError
		}
		return exitOK
	}

	out := color.New(color.FgGreen)
	if !result.InRange {
		out = color.New(color.FgYellow)
	}
	out.Fprint(stdout, pitch.RenderText(result))
	return exitOK
}

// buildConfig layers preset or config file, PITCH_* environment and
// explicitly set flags, in that order.
func buildConfig(o *options, set map[string]bool) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		if set["preset"] {
			logging.Warn("Both -config and -preset given, using config file", logging.Fields{
				"config": o.configPath,
				"preset": o.preset,
			})
		}
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.GetPresetConfig(o.preset)
	}
	if err != nil {
		return nil, err
	}

	config.ApplyEnv(cfg)

	if set["decimate"] {
		cfg.DecimationFactor = o.decimate
	}
	if set["max-duration"] {
		cfg.MaxDurationSeconds = o.maxDuration
	}
	if set["search-fraction"] {
		cfg.SearchFraction = o.searchFraction
	}
	if set["reference"] {
		cfg.ReferenceHz = o.reference
	}
	if set["dc-filter"] {
		cfg.DCFilter = o.dcFilter
	}
	if set["backend"] {
		cfg.Backend = o.backend
	}
	if o.noWindow {
		cfg.Window = false
	}
	if o.exact {
		cfg.PadToPowerOfTwo = false
	}
	if o.noDownmix {
		cfg.Downmix = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
