package pitch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
)

func TestRenderTextInRange(t *testing.T) {
	note := tonal.NoteFromMIDI(69)
	out := RenderText(&PitchResult{FrequencyHz: 440.0917, Note: &note, InRange: true})

	assert.Equal(t, "Dominant frequency: 440.09 Hz\nClosest musical note: A4\n", out)
}

func TestRenderTextOutOfRange(t *testing.T) {
	out := RenderText(&PitchResult{FrequencyHz: 5000.004, InRange: false})

	assert.Equal(t, "Dominant frequency: 5000.00 Hz\nDominant frequency out of expected range: 5000.00 Hz\n", out)
}

func TestStageErrorFormatting(t *testing.T) {
	err := stageErr(StageDecimate, ErrEmptyInput, "factor=%d", 4)
	assert.Equal(t, "decimate: empty input (factor=4)", err.Error())
	assert.True(t, errors.Is(err, ErrEmptyInput))

	bare := &StageError{Stage: StageValidate, Err: ErrInvalidStream}
	assert.Equal(t, "validate: invalid audio stream", bare.Error())
}
