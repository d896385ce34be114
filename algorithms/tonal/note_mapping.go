package tonal

import (
	"fmt"
	"math"
)

const (
	DefaultReferenceHz   = 440.0 // A4
	DefaultReferenceMIDI = 69
	DefaultMinHz         = 20.0
	DefaultMaxHz         = 4000.0
)

// NoteNames is the chromatic scale starting at C
var NoteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Note is an equal-tempered note in MIDI octave numbering (C4 = MIDI 60)
type Note struct {
	Letter string `json:"letter"`
	Octave int    `json:"octave"`
	MIDI   int    `json:"midi"`
}

// String renders letter and octave, e.g. "C#3"
func (n Note) String() string {
	return fmt.Sprintf("%s%d", n.Letter, n.Octave)
}

// NoteMapping is the result of mapping one frequency
type NoteMapping struct {
	Note    *Note   `json:"note,omitempty"` // nil when out of range
	InRange bool    `json:"in_range"`
	Cents   float64 `json:"cents"`   // deviation from Note, within [-50, 50]
	NoteHz  float64 `json:"note_hz"` // exact frequency of Note
}

// NoteMapper maps frequencies to the nearest 12-tone equal-tempered note.
//
// The continuous note number of a frequency f is
//
//	n = ReferenceMIDI + 12 * log2(f / ReferenceHz)
//
// which is rounded half away from zero to pick the note. Letters follow
// NoteNames and octaves follow the MIDI convention, octave = floor(n/12) - 1,
// so MIDI 60 is C4 and MIDI 69 is A4.
//
// Fields:
//   - ReferenceHz, ReferenceMIDI: the tuning anchor, A4 = 440 Hz by default
//   - MinHz, MaxHz: the acceptance band; anything outside has no note
type NoteMapper struct {
	ReferenceHz   float64 `json:"reference_hz"`
	ReferenceMIDI int     `json:"reference_midi"`
	MinHz         float64 `json:"min_hz"`
	MaxHz         float64 `json:"max_hz"`
}

// NewNoteMapper returns a mapper tuned to A4 = 440 Hz accepting 20-4000 Hz
func NewNoteMapper() *NoteMapper {
	return &NoteMapper{
		ReferenceHz:   DefaultReferenceHz,
		ReferenceMIDI: DefaultReferenceMIDI,
		MinHz:         DefaultMinHz,
		MaxHz:         DefaultMaxHz,
	}
}

// Validate checks the mapper's tuning and acceptance band
func (nm *NoteMapper) Validate() error {
	if !(nm.ReferenceHz > 0) || math.IsInf(nm.ReferenceHz, 0) {
		return fmt.Errorf("reference pitch must be positive, got %v", nm.ReferenceHz)
	}
	if !(nm.MinHz > 0) || !(nm.MaxHz >= nm.MinHz) {
		return fmt.Errorf("invalid acceptance band [%v, %v] Hz", nm.MinHz, nm.MaxHz)
	}
	return nil
}

// Map maps frequency to the nearest note. Frequencies outside
// [MinHz, MaxHz] are reported as out of range with no note.
func (nm *NoteMapper) Map(frequency float64) NoteMapping {
	if math.IsNaN(frequency) || frequency < nm.MinHz || frequency > nm.MaxHz {
		return NoteMapping{InRange: false}
	}

	continuous := nm.FrequencyToMIDI(frequency)
	// math.Round rounds half away from zero
	midi := int(math.Round(continuous))
	note := NoteFromMIDI(midi)

	return NoteMapping{
		Note:    &note,
		InRange: true,
		Cents:   100 * (continuous - float64(midi)),
		NoteHz:  nm.MIDIToFrequency(midi),
	}
}

// FrequencyToMIDI returns the continuous note number of frequency
func (nm *NoteMapper) FrequencyToMIDI(frequency float64) float64 {
	return 12*math.Log2(frequency/nm.ReferenceHz) + float64(nm.ReferenceMIDI)
}

// MIDIToFrequency returns the equal-tempered frequency of note number midi
func (nm *NoteMapper) MIDIToFrequency(midi int) float64 {
	return nm.ReferenceHz * math.Pow(2, float64(midi-nm.ReferenceMIDI)/12)
}

// NoteFromMIDI names a MIDI note number; octave 4 spans MIDI 60-71.
func NoteFromMIDI(midi int) Note {
	return Note{
		Letter: NoteNames[((midi%12)+12)%12],
		Octave: floorDiv(midi, 12) - 1,
		MIDI:   midi,
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
