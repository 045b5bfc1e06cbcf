package instrument

import (
	"testing"
	"time"
)

// testRate makes one frame last one millisecond.
const testRate = 1000

func newConstant(t *testing.T, mode Mode, voices int) *Instrument[ConstantFreq] {
	t.Helper()
	inst, err := New[ConstantFreq](mode, Constant{}, voices)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return inst
}

// withLongAttack keeps playheads counting so voice ages can be compared.
func withLongAttack[F NoteFreq[F]](inst *Instrument[F]) *Instrument[F] {
	return inst.WithAttack(10 * time.Second)
}

// frame pulls one output frame for every voice.
func frame[F NoteFreq[F]](inst *Instrument[F]) []Frame {
	c := inst.BeginFrame(testRate)
	out := make([]Frame, 0, inst.NumVoices())
	for {
		f, ok := c.Next()
		if !ok {
			return out
		}
		out = append(out, f)
	}
}

func pull[F NoteFreq[F]](inst *Instrument[F], n int) {
	for i := 0; i < n; i++ {
		frame(inst)
	}
}

func playheads[F NoteFreq[F]](inst *Instrument[F]) []uint64 {
	out := make([]uint64, 0, inst.NumVoices())
	for _, v := range inst.Voices() {
		out = append(out, v.Playhead)
	}
	return out
}

func noteHz[F NoteFreq[F]](t *testing.T, inst *Instrument[F], i int) float64 {
	t.Helper()
	v := inst.Voices()[i]
	if v.Note == nil {
		t.Fatalf("voice %d has no note", i)
	}
	return v.Note.Hz
}
