package pitch

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
)

var (
	// ErrUnsupportedEncoding: the bit depth / format pair has no normalization rule.
	ErrUnsupportedEncoding = common.ErrUnsupportedEncoding
	// ErrEmptyInput: no samples left to analyze.
	ErrEmptyInput = errors.New("empty input")
	// ErrInvalidStream: stream metadata or samples failed validation.
	ErrInvalidStream = errors.New("invalid audio stream")
)

// StageError reports which pipeline stage failed and on what value.
type StageError struct {
	Stage  Stage
	Detail string
	Err    error
}

func (e *StageError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v (%s)", e.Stage, e.Err, e.Detail)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error, format string, args ...any) error {
	return &StageError{Stage: stage, Detail: fmt.Sprintf(format, args...), Err: err}
}
