package pitch

import (
	"fmt"
	"strings"
)

// RenderText formats a result the way the command line prints it
func RenderText(r *PitchResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Dominant frequency: %.2f Hz\n", r.FrequencyHz)
	if r.InRange && r.Note != nil {
		fmt.Fprintf(&b, "Closest musical note: %s\n", r.Note)
	} else {
		fmt.Fprintf(&b, "Dominant frequency out of expected range: %.2f Hz\n", r.FrequencyHz)
	}

	return b.String()
}
