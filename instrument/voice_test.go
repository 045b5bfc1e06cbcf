package instrument

import (
	"math"
	"testing"
)

func TestVoiceSilentWithoutNote(t *testing.T) {
	v := NewVoice[ConstantFreq]()
	if _, _, ok := v.NextVelHz(10, 10); ok {
		t.Fatalf("expected silent voice")
	}
	if v.IsActive() || v.IsPlaying() {
		t.Fatalf("new voice should be free")
	}
}

func TestVoiceAttackRampsToFullVelocity(t *testing.T) {
	const attack = 4
	v := NewVoice[ConstantFreq]()
	v.NoteOn(440, ConstantFreq(440), 0.8)

	prev := float32(-1)
	for i := 0; i < attack; i++ {
		vel, hz, ok := v.NextVelHz(attack, 0)
		if !ok {
			t.Fatalf("frame %d: expected sounding voice", i)
		}
		if hz != 440 {
			t.Fatalf("frame %d: hz=%f want=440", i, hz)
		}
		if vel <= prev {
			t.Fatalf("frame %d: attack not increasing: prev=%f curr=%f", i, prev, vel)
		}
		want := 0.8 * float32(i) / attack
		if math.Abs(float64(vel-want)) > 1e-6 {
			t.Fatalf("frame %d: vel=%f want=%f", i, vel, want)
		}
		prev = vel
	}
	for i := 0; i < 3; i++ {
		vel, _, _ := v.NextVelHz(attack, 0)
		if vel != 0.8 {
			t.Fatalf("expected full velocity after attack, got %f", vel)
		}
	}
	if v.Playhead != attack {
		t.Fatalf("playhead should stop at attack: got=%d want=%d", v.Playhead, attack)
	}
}

func TestVoiceZeroAttackIsFullAmplitude(t *testing.T) {
	v := NewVoice[ConstantFreq]()
	v.NoteOn(220, ConstantFreq(220), 0.5)
	vel, _, ok := v.NextVelHz(0, 0)
	if !ok || vel != 0.5 {
		t.Fatalf("expected full velocity with zero attack, got vel=%f ok=%v", vel, ok)
	}
	if v.Playhead != 0 {
		t.Fatalf("playhead should not move without attack, got %d", v.Playhead)
	}
}

func TestVoiceReleaseRampsThenClears(t *testing.T) {
	const release = 4
	v := NewVoice[ConstantFreq]()
	v.NoteOn(440, ConstantFreq(440), 1)
	v.NoteOff()

	want := []float32{1, 0.75, 0.5, 0.25}
	for i, w := range want {
		vel, _, ok := v.NextVelHz(0, release)
		if !ok {
			t.Fatalf("release frame %d: voice went silent early", i)
		}
		if vel != w {
			t.Fatalf("release frame %d: vel=%f want=%f", i, vel, w)
		}
	}
	if _, _, ok := v.NextVelHz(0, release); ok {
		t.Fatalf("expected silence exactly %d frames after note-off", release)
	}
	if v.Note != nil {
		t.Fatalf("finished note should be cleared")
	}
}

func TestVoiceZeroReleaseClearsImmediately(t *testing.T) {
	v := NewVoice[ConstantFreq]()
	v.NoteOn(440, ConstantFreq(440), 1)
	v.NoteOff()
	if _, _, ok := v.NextVelHz(0, 0); ok {
		t.Fatalf("expected immediate silence with zero release")
	}
	if v.IsActive() {
		t.Fatalf("voice should be free")
	}
}

func TestVoiceAttackContinuesDuringRelease(t *testing.T) {
	v := NewVoice[ConstantFreq]()
	v.NoteOn(440, ConstantFreq(440), 1)
	v.NextVelHz(10, 4)
	v.NextVelHz(10, 4)
	v.NoteOff()

	vel, _, _ := v.NextVelHz(10, 4)
	if math.Abs(float64(vel)-0.2) > 1e-6 {
		t.Fatalf("first release frame: vel=%f want=0.2", vel)
	}
	vel, _, _ = v.NextVelHz(10, 4)
	if math.Abs(float64(vel)-0.3*0.75) > 1e-6 {
		t.Fatalf("second release frame: vel=%f want=%f", vel, 0.3*0.75)
	}
}

func TestVoiceNoteOnKeepsPlayhead(t *testing.T) {
	v := NewVoice[ConstantFreq]()
	v.NoteOn(440, ConstantFreq(440), 1)
	for i := 0; i < 5; i++ {
		v.NextVelHz(100, 0)
	}
	v.NoteOn(660, ConstantFreq(660), 1)
	if v.Playhead != 5 {
		t.Fatalf("note-on must not touch the playhead: got %d", v.Playhead)
	}
	if !v.IsPlaying() || v.Note.Hz != 660 {
		t.Fatalf("expected new playing note, got %+v", v.Note)
	}

	v.ResetPlayhead()
	if v.Playhead != 0 {
		t.Fatalf("ResetPlayhead: got %d", v.Playhead)
	}
}

func TestVoiceNoteOffWithoutNoteIsNoop(t *testing.T) {
	v := NewVoice[ConstantFreq]()
	v.NoteOff()
	if v.Note != nil {
		t.Fatalf("note-off must not create a note")
	}
}

func TestVoiceStop(t *testing.T) {
	v := NewVoice[ConstantFreq]()
	v.NoteOn(440, ConstantFreq(440), 1)
	v.NextVelHz(10, 0)
	v.Stop()
	if v.Note != nil || v.Playhead != 0 {
		t.Fatalf("stop should clear note and playhead: %+v", v)
	}
}

func TestVoiceCloneDoesNotAlias(t *testing.T) {
	v := NewVoice[ConstantFreq]()
	v.NoteOn(440, ConstantFreq(440), 1)
	c := v.Clone()
	c.NoteOff()
	if !v.IsPlaying() {
		t.Fatalf("releasing a clone must not release the original")
	}
}
