package dsp

import (
	"math"
	"testing"
)

func TestParseWaveform(t *testing.T) {
	cases := map[string]Waveform{
		"sine":     Sine,
		"":         Sine,
		"TRI":      Triangle,
		"sawtooth": Saw,
		"square":   Square,
	}
	for in, want := range cases {
		got, err := ParseWaveform(in)
		if err != nil {
			t.Fatalf("ParseWaveform(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseWaveform(%q)=%v want %v", in, got, want)
		}
	}
	if _, err := ParseWaveform("noise"); err == nil {
		t.Fatalf("expected error for unknown waveform")
	}
}

func TestOscillatorSinePeriod(t *testing.T) {
	const sr = 48000
	o := NewOscillator(Sine, sr)
	// 1 kHz at 48 kHz repeats every 48 samples.
	first := make([]float32, 48)
	for i := range first {
		first[i] = o.Next(1000)
	}
	for i := range first {
		v := o.Next(1000)
		if math.Abs(float64(v-first[i])) > 1e-4 {
			t.Fatalf("sample %d: got %f want %f", i, v, first[i])
		}
	}
	if first[0] != 0 {
		t.Fatalf("sine should start at zero phase, got %f", first[0])
	}
	if math.Abs(float64(first[12])-1) > 1e-4 {
		t.Fatalf("quarter period should peak, got %f", first[12])
	}
}

func TestOscillatorRange(t *testing.T) {
	for _, w := range []Waveform{Sine, Triangle, Saw, Square} {
		o := NewOscillator(w, 44100)
		for i := 0; i < 2000; i++ {
			v := o.Next(523.25)
			if v < -1.0001 || v > 1.0001 {
				t.Fatalf("%v sample %d out of range: %f", w, i, v)
			}
		}
	}
}

func TestOscillatorHoldsPhaseAtZeroHz(t *testing.T) {
	o := NewOscillator(Saw, 1000)
	o.Next(250)
	a := o.Next(0)
	b := o.Next(0)
	if a != b {
		t.Fatalf("phase moved at 0 Hz: %f vs %f", a, b)
	}
	o.Reset()
	if v := o.Next(0); v != -1 {
		t.Fatalf("reset saw should restart at -1, got %f", v)
	}
}

func TestLowpassPassesDCAndAttenuatesNyquist(t *testing.T) {
	const sr = 48000
	lp := NewLowpass(1000, sr, 0.7071)
	var dc float32
	for i := 0; i < 4000; i++ {
		dc = lp.Process(1)
	}
	if math.Abs(float64(dc)-1) > 1e-3 {
		t.Fatalf("DC gain: got %f want 1", dc)
	}

	lp.Reset()
	var peak float32
	for i := 0; i < 4000; i++ {
		x := float32(1)
		if i%2 == 1 {
			x = -1
		}
		y := lp.Process(x)
		if i > 2000 && float32(math.Abs(float64(y))) > peak {
			peak = float32(math.Abs(float64(y)))
		}
	}
	if peak > 0.01 {
		t.Fatalf("nyquist should be attenuated, peak %f", peak)
	}
}

func TestLowpassHalfPowerAtCutoff(t *testing.T) {
	const (
		sr = 48000
		fc = 1000
	)
	lp := NewLowpass(fc, sr, 0.7071)
	var peak float64
	for i := 0; i < 9600; i++ {
		x := math.Sin(2 * math.Pi * fc * float64(i) / sr)
		y := math.Abs(float64(lp.Process(float32(x))))
		if i > 4800 && y > peak {
			peak = y
		}
	}
	if math.Abs(peak-math.Sqrt2/2) > 0.01 {
		t.Fatalf("gain at cutoff: got %f want %f", peak, math.Sqrt2/2)
	}
}

func TestLowpassDefaultsQ(t *testing.T) {
	a := NewLowpass(2000, 48000, 0)
	b := NewLowpass(2000, 48000, 0.7071)
	for i := 0; i < 256; i++ {
		x := float32(math.Sin(float64(i) * 0.3))
		ya, yb := a.Process(x), b.Process(x)
		if math.Abs(float64(ya-yb)) > 1e-3 {
			t.Fatalf("sample %d: q=0 gave %f, Butterworth gave %f", i, ya, yb)
		}
	}
}

func TestLowpassClampsCutoff(t *testing.T) {
	lp := NewLowpass(1e6, 8000, 0.7071)
	for i := 0; i < 1000; i++ {
		y := lp.Process(float32(math.Sin(float64(i))))
		if math.IsNaN(float64(y)) || math.IsInf(float64(y), 0) {
			t.Fatalf("unstable output at %d: %f", i, y)
		}
	}
}
