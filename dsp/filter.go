package dsp

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// maxCutoffRatio keeps the cutoff below Nyquist, where the RBJ design has no
// valid coefficients.
const maxCutoffRatio = 0.49

// Lowpass is a per-voice second-order lowpass on a float32 signal path.
type Lowpass struct {
	sec *biquad.Section
}

// NewLowpass designs an RBJ lowpass. A cutoff at or above Nyquist, or not
// positive, is clamped to just below Nyquist so voices pitched near the top of
// the range stay stable. q <= 0 selects a Butterworth response.
func NewLowpass(cutoff, sampleRate, q float32) *Lowpass {
	sr := float64(sampleRate)
	maxFc := maxCutoffRatio * sr
	fc := math.Min(float64(cutoff), maxFc)
	if fc <= 0 {
		fc = maxFc
	}
	return &Lowpass{sec: biquad.NewSection(design.Lowpass(fc, float64(q), sr))}
}

// Process filters one sample.
func (l *Lowpass) Process(input float32) float32 {
	return float32(dspcore.FlushDenormals(l.sec.ProcessSample(float64(input))))
}

// Reset clears the filter state.
func (l *Lowpass) Reset() {
	l.sec.Reset()
}
