// Package unit provides the pitch and time conversions used by the instrument
// core: Hz, Mel and semitone steps for pitch, and durations to frame counts
// for envelope timing.
package unit

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

// A4 reference used for the step scale (step 69 = 440 Hz, MIDI numbering).
const (
	a4Hz   = 440.0
	a4Step = 69.0
)

// HzToStep converts a frequency to a fractional semitone step.
func HzToStep(hz float64) float64 {
	if hz <= 0 {
		return math.Inf(-1)
	}
	return a4Step + 12.0*math.Log2(hz/a4Hz)
}

// StepToHz converts a fractional semitone step to a frequency.
// It uses a fast exponential, so round trips are accurate to a few cents.
func StepToHz(step float64) float64 {
	return a4Hz * float64(pow2Approx(float32((step-a4Step)/12.0)))
}

// HzToMel converts a frequency to the Mel scale.
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts a Mel value back to a frequency.
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10, mel/2595.0) - 1.0)
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}
