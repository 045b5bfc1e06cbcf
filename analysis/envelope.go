package analysis

import "math"

// LinToDB converts a linear amplitude to dB, floored at -240 dB.
func LinToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// Envelope is the RMS level of a rendered buffer, one value per hop.
type Envelope struct {
	Levels []float64
	HopSec float64
}

// StereoEnvelope measures the RMS of interleaved stereo samples over windows
// of frame stereo frames, advancing by hop frames. Both channels contribute to
// every window. The result is empty when the buffer is shorter than a window.
func StereoEnvelope(interleaved []float32, sampleRate, frame, hop int) Envelope {
	env := Envelope{}
	if sampleRate <= 0 || frame <= 0 || hop <= 0 {
		return env
	}
	env.HopSec = float64(hop) / float64(sampleRate)
	frames := len(interleaved) / 2
	if frames < frame {
		return env
	}

	// energy[i] is the summed squares of the first i stereo frames.
	energy := make([]float64, frames+1)
	for i := 0; i < frames; i++ {
		l, r := float64(interleaved[2*i]), float64(interleaved[2*i+1])
		energy[i+1] = energy[i] + l*l + r*r
	}
	norm := 1 / float64(2*frame)
	for start := 0; start+frame <= frames; start += hop {
		e := (energy[start+frame] - energy[start]) * norm
		env.Levels = append(env.Levels, math.Sqrt(math.Max(e, 0)))
	}
	return env
}

// DecayRate returns the slope in dB per second of the decay that follows the
// loudest point, fitted over the levels until they fall rangeDB below the
// peak. ok is false when too few levels follow the peak.
func (e Envelope) DecayRate(rangeDB float64) (dbPerS float64, ok bool) {
	if len(e.Levels) < 8 || e.HopSec <= 0 {
		return 0, false
	}
	db := make([]float64, len(e.Levels))
	peak := 0
	for i, v := range e.Levels {
		db[i] = LinToDB(v)
		if db[i] > db[peak] {
			peak = i
		}
	}

	floor := db[peak] - rangeDB
	tail := db[peak+1:]
	for i, v := range tail {
		if v < floor {
			tail = tail[:i]
			break
		}
	}
	if len(tail) < 6 {
		return 0, false
	}
	return slope(tail, e.HopSec)
}

// slope fits y[i] = a + b*i*dx by least squares around the centred abscissa
// and returns b.
func slope(y []float64, dx float64) (float64, bool) {
	n := float64(len(y))
	mid := (n - 1) / 2
	var meanY float64
	for _, v := range y {
		meanY += v
	}
	meanY /= n
	var num, den float64
	for i, v := range y {
		x := (float64(i) - mid) * dx
		num += x * (v - meanY)
		den += x * x
	}
	if den < 1e-12 {
		return 0, false
	}
	return num / den, true
}
