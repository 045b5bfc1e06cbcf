package unit

import (
	"time"

	"github.com/gopxl/beep"
)

// Frames converts a duration into a whole number of frames at sampleRate.
// Non-positive durations or sample rates yield 0.
func Frames(d time.Duration, sampleRate int) uint64 {
	if d <= 0 || sampleRate <= 0 {
		return 0
	}
	n := beep.SampleRate(sampleRate).N(d)
	if n < 0 {
		return 0
	}
	return uint64(n)
}

// Duration converts a frame count back into a duration at sampleRate.
func Duration(frames uint64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return beep.SampleRate(sampleRate).D(int(frames))
}

// Ms converts fractional milliseconds to a time.Duration.
func Ms(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// ToMs converts a duration to fractional milliseconds.
func ToMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
