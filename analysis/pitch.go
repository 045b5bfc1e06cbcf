// Package analysis measures rendered audio: dominant pitch, RMS envelope and
// decay rate.
package analysis

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
)

const (
	minFFTSize = 256
	maxFFTSize = 16384
)

// PeakHz returns the frequency of the strongest spectral peak in x, refined
// by parabolic interpolation of the log magnitudes around the peak bin.
func PeakHz(x []float64, sampleRate int) (float64, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	size := fftSize(len(x))
	if size == 0 {
		return 0, fmt.Errorf("need at least %d samples, got %d", minFFTSize, len(x))
	}
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return 0, fmt.Errorf("fft plan: %w", err)
	}

	buf := make([]float64, size)
	copy(buf, x)
	window.Apply(window.TypeHann, buf, window.WithPeriodic())
	spec := make([]complex128, size/2+1)
	plan.Forward(spec, buf)

	mags := make([]float64, len(spec))
	peak := 1
	for k := range spec {
		mags[k] = math.Hypot(real(spec[k]), imag(spec[k]))
		if k >= 1 && k < len(spec)-1 && mags[k] > mags[peak] {
			peak = k
		}
	}
	if mags[peak] < 1e-12 {
		return 0, fmt.Errorf("no spectral peak in silent signal")
	}

	a := LinToDB(mags[peak-1])
	b := LinToDB(mags[peak])
	c := LinToDB(mags[peak+1])
	offset := 0.0
	if den := a - 2*b + c; den != 0 {
		offset = 0.5 * (a - c) / den
	}
	return (float64(peak) + offset) * float64(sampleRate) / float64(size), nil
}

// PitchTrack returns the peak frequency of consecutive frames of x. Silent
// frames report 0.
func PitchTrack(x []float64, sampleRate, frame, hop int) ([]float64, error) {
	if frame < minFFTSize || hop <= 0 {
		return nil, fmt.Errorf("invalid frame %d / hop %d", frame, hop)
	}
	var out []float64
	for start := 0; start+frame <= len(x); start += hop {
		seg := x[start : start+frame]
		if rms(seg) < 1e-9 {
			out = append(out, 0)
			continue
		}
		hz, err := PeakHz(seg, sampleRate)
		if err != nil {
			return nil, err
		}
		out = append(out, hz)
	}
	return out, nil
}

// fftSize returns the largest power of two not above n, within the
// supported range, or 0 if n is too short.
func fftSize(n int) int {
	if n < minFFTSize {
		return 0
	}
	size := minFFTSize
	for size*2 <= n && size*2 <= maxFFTSize {
		size *= 2
	}
	return size
}
