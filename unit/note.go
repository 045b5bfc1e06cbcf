package unit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var semitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// ParseNote parses a note name such as "A4", "C#5" or "Eb3", a MIDI step
// number such as "69", or a frequency with an explicit unit such as "440hz".
// It returns the frequency in Hz.
func ParseNote(s string) (float64, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return 0, fmt.Errorf("empty note")
	}
	if lower := strings.ToLower(in); strings.HasSuffix(lower, "hz") {
		hz, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(lower, "hz")), 64)
		if err != nil || hz <= 0 {
			return 0, fmt.Errorf("invalid frequency %q", s)
		}
		return hz, nil
	}
	if step, err := strconv.ParseFloat(in, 64); err == nil {
		return stepHzExact(step), nil
	}

	semi, ok := semitones[strings.ToUpper(in[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("invalid note name %q", s)
	}
	rest := in[1:]
	for len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b') {
		if rest[0] == '#' {
			semi++
		} else {
			semi--
		}
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid octave in note %q", s)
	}
	return stepHzExact(float64((octave+1)*12 + semi)), nil
}

func stepHzExact(step float64) float64 {
	return a4Hz * math.Exp2((step-a4Step)/12.0)
}
