package render

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/cwbudde/algo-instrument/dsp"
)

// RoomConfig controls the synthetic stereo room impulse response used when
// no IR file is given.
type RoomConfig struct {
	SampleRate int
	Length     time.Duration
	Seed       uint64
	// EarlyCount is the number of discrete reflections in the first 50ms.
	EarlyCount int
	// LateLevel scales the diffuse tail relative to the reflections.
	LateLevel float64
	// Width spreads the reflections between the channels, 0 is mono.
	Width float64
	// Decay is the time the tail takes to fall by 60 dB.
	Decay time.Duration
	// DampingHz is the lowpass cutoff of the tail noise.
	DampingHz float32
	// Mix is the level of the wet signal; the dry path is a unit impulse.
	Mix float64
}

// DefaultRoomConfig returns a small, fairly dry room.
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		SampleRate: 48000,
		Length:     600 * time.Millisecond,
		Seed:       1,
		EarlyCount: 24,
		LateLevel:  0.3,
		Width:      0.6,
		Decay:      500 * time.Millisecond,
		DampingHz:  4000,
		Mix:        0.25,
	}
}

func (c *RoomConfig) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	}
	if c.Length <= 0 {
		return fmt.Errorf("room length must be > 0")
	}
	if c.EarlyCount < 0 {
		return fmt.Errorf("early count must be >= 0")
	}
	if c.LateLevel < 0 {
		return fmt.Errorf("late level must be >= 0")
	}
	if c.Width < 0 || c.Width > 1 {
		return fmt.Errorf("width must be in [0,1]")
	}
	if c.Decay <= 0 {
		return fmt.Errorf("decay must be > 0")
	}
	if c.Mix < 0 {
		return fmt.Errorf("mix must be >= 0")
	}
	return nil
}

// GenerateRoom synthesizes a stereo room IR: a dry impulse, early reflections
// and a damped noise tail with an exponential decay. The wet part is
// normalized to Mix.
func GenerateRoom(cfg RoomConfig) ([]float32, []float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	sr := float64(cfg.SampleRate)
	n := max(int(math.Round(cfg.Length.Seconds()*sr)), 1)
	left := make([]float64, n)
	right := make([]float64, n)
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	// Early reflections, 1-50ms.
	for i := 0; i < cfg.EarlyCount; i++ {
		t := 0.001 + 0.049*rng.Float64()
		idx := int(t * sr)
		if idx <= 0 || idx >= n {
			continue
		}
		amp := (0.1 + 0.35*rng.Float64()) * math.Exp(-t*20.0)
		pan := (rng.Float64()*2.0 - 1.0) * cfg.Width
		left[idx] += amp * (1.0 - 0.5*pan)
		right[idx] += amp * (1.0 + 0.5*pan)
	}

	if cfg.LateLevel > 0 {
		// -60 dB after Decay.
		k := math.Log(1000) / cfg.Decay.Seconds()
		lpL := dsp.NewLowpass(cfg.DampingHz, float32(sr), 0.7071)
		lpR := dsp.NewLowpass(cfg.DampingHz, float32(sr), 0.7071)
		for i := 1; i < n; i++ {
			env := cfg.LateLevel * math.Exp(-k*float64(i)/sr)
			left[i] += env * float64(lpL.Process(float32(rng.NormFloat64())))
			right[i] += env * float64(lpR.Process(float32(rng.NormFloat64())))
		}
	}
	fadeOut(left, cfg.SampleRate)
	fadeOut(right, cfg.SampleRate)

	peak := max(peakAbs(left), peakAbs(right), 1e-12)
	s := cfg.Mix / peak
	outL := make([]float32, n)
	outR := make([]float32, n)
	for i := range n {
		outL[i] = float32(left[i] * s)
		outR[i] = float32(right[i] * s)
	}
	outL[0] += 1
	outR[0] += 1
	return outL, outR, nil
}

// fadeOut applies a 10ms cosine fade to the end of buf.
func fadeOut(buf []float64, sampleRate int) {
	fade := min(sampleRate/100, len(buf))
	start := len(buf) - fade
	for i := 0; i < fade; i++ {
		t := float64(i) / float64(fade)
		buf[start+i] *= 0.5 * (1.0 + math.Cos(t*math.Pi))
	}
}

func peakAbs(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		m = max(m, math.Abs(v))
	}
	return m
}
