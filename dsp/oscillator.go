// Package dsp holds the small signal-processing blocks used to turn voice
// frames into audio.
package dsp

import (
	"fmt"
	"math"
	"strings"
)

// Waveform is the shape of an Oscillator.
type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Saw
	Square
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Triangle:
		return "triangle"
	case Saw:
		return "saw"
	case Square:
		return "square"
	default:
		return fmt.Sprintf("Waveform(%d)", int(w))
	}
}

// ParseWaveform parses a waveform name.
func ParseWaveform(s string) (Waveform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sine", "sin", "":
		return Sine, nil
	case "triangle", "tri":
		return Triangle, nil
	case "saw", "sawtooth":
		return Saw, nil
	case "square", "pulse":
		return Square, nil
	}
	return 0, fmt.Errorf("unknown waveform %q (expected sine, triangle, saw or square)", s)
}

// Oscillator is a phase accumulator. The frequency may change every sample,
// which keeps glides free of phase discontinuities.
type Oscillator struct {
	Waveform   Waveform
	sampleRate float64
	phase      float64 // [0,1)
}

// NewOscillator creates an oscillator running at sampleRate.
func NewOscillator(w Waveform, sampleRate int) *Oscillator {
	return &Oscillator{Waveform: w, sampleRate: float64(sampleRate)}
}

// Next returns the current sample at hz and advances the phase.
func (o *Oscillator) Next(hz float64) float32 {
	var s float64
	p := o.phase
	switch o.Waveform {
	case Triangle:
		s = 1 - 4*math.Abs(p-0.5)
	case Saw:
		s = 2*p - 1
	case Square:
		if p < 0.5 {
			s = 1
		} else {
			s = -1
		}
	default:
		s = math.Sin(2 * math.Pi * p)
	}

	if o.sampleRate > 0 && hz > 0 {
		o.phase += hz / o.sampleRate
		o.phase -= math.Floor(o.phase)
	}
	return float32(s)
}

// Reset rewinds the phase to zero.
func (o *Oscillator) Reset() {
	o.phase = 0
}
