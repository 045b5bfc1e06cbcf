package instrument

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHzMatch(t *testing.T) {
	assert.True(t, HzMatch(440, 440))
	assert.True(t, HzMatch(440.2, 440))
	assert.True(t, HzMatch(439.8, 440))
	assert.False(t, HzMatch(440.3, 440))
	assert.False(t, HzMatch(440.25, 440))
	assert.False(t, HzMatch(550, 440))
}

func TestMonoRetriggerStacksAndRestores(t *testing.T) {
	mono := NewRetrigger()
	inst := withLongAttack(newConstant(t, mono, 2))

	inst.NoteOn(440, 0.9)
	pull(inst, 5)
	assert.Equal(t, []uint64{5, 5}, playheads(inst))

	inst.NoteOn(550, 0.7)
	assert.Equal(t, []float64{440}, mono.Stack)
	assert.Equal(t, []uint64{0, 0}, playheads(inst))
	for i := 0; i < 2; i++ {
		assert.Equal(t, 550.0, noteHz(t, inst, i))
	}

	pull(inst, 3)
	inst.NoteOff(550)
	assert.Empty(t, mono.Stack)
	assert.Equal(t, []uint64{0, 0}, playheads(inst))
	for i, v := range inst.Voices() {
		require.NotNil(t, v.Note, "voice %d", i)
		assert.Equal(t, 440.0, v.Note.Hz)
		assert.True(t, v.Note.State.Playing())
		assert.Equal(t, float32(0.7), v.Note.Vel, "fallback keeps the sounding velocity")
	}
}

func TestMonoLegatoKeepsPlayheads(t *testing.T) {
	mono := NewLegato()
	inst := withLongAttack(newConstant(t, mono, 2))

	inst.NoteOn(440, 1)
	pull(inst, 5)
	inst.NoteOn(550, 1)
	assert.Equal(t, []uint64{5, 5}, playheads(inst))
	assert.Equal(t, []float64{440}, mono.Stack)

	pull(inst, 3)
	inst.NoteOff(550)
	assert.Equal(t, []uint64{8, 8}, playheads(inst))
	for i := 0; i < 2; i++ {
		assert.Equal(t, 440.0, noteHz(t, inst, i))
	}
}

func TestMonoNoteOffForQueuedNoteOnlyEditsStack(t *testing.T) {
	mono := NewRetrigger()
	inst := newConstant(t, mono, 1)

	inst.NoteOn(440, 1)
	inst.NoteOn(550, 1)
	inst.NoteOff(440.3)
	assert.Equal(t, []float64{440}, mono.Stack, "0.3 Hz away is a different note")

	inst.NoteOff(440.1)
	assert.Empty(t, mono.Stack)
	v := inst.Voices()[0]
	require.NotNil(t, v.Note)
	assert.Equal(t, 550.0, v.Note.Hz)
	assert.True(t, v.Note.State.Playing())

	inst.NoteOff(550)
	v = inst.Voices()[0]
	require.NotNil(t, v.Note)
	assert.True(t, v.Note.State.Released, "empty stack releases the voice")
}

func TestMonoRepeatedNoteDoesNotDoubleStack(t *testing.T) {
	mono := NewLegato()
	inst := newConstant(t, mono, 1)

	inst.NoteOn(440, 1)
	inst.NoteOn(440, 1)
	assert.Empty(t, mono.Stack)
	assert.True(t, inst.Voices()[0].IsPlaying())

	inst.NoteOn(330, 1)
	inst.NoteOn(330, 1)
	assert.Equal(t, []float64{440}, mono.Stack)
}

func TestMonoNoteOnAfterReleaseClearsStack(t *testing.T) {
	mono := NewLegato()
	inst := withLongAttack(newConstant(t, mono, 1))

	inst.NoteOn(440, 1)
	pull(inst, 4)
	inst.NoteOff(440)
	mono.Stack = append(mono.Stack, 123)

	inst.NoteOn(660, 1)
	assert.Empty(t, mono.Stack)
	assert.Equal(t, []uint64{0}, playheads(inst), "fresh start resets playheads in legato too")
}

func TestMonoStopClearsStack(t *testing.T) {
	mono := NewRetrigger()
	inst := newConstant(t, mono, 1)
	inst.NoteOn(440, 1)
	inst.NoteOn(550, 1)
	mono.Stop()
	assert.Empty(t, mono.Stack)
}

func TestPolyUsesFirstFreeVoice(t *testing.T) {
	inst := newConstant(t, NewPoly(), 3)
	inst.NoteOn(100, 1)
	inst.NoteOn(200, 1)
	assert.Equal(t, 100.0, noteHz(t, inst, 0))
	assert.Equal(t, 200.0, noteHz(t, inst, 1))
	assert.Nil(t, inst.Voices()[2].Note)

	inst.NoteOff(100)
	frame(inst)
	require.Nil(t, inst.Voices()[0].Note, "zero release frees the voice on the next frame")

	inst.NoteOn(300, 1)
	assert.Equal(t, 300.0, noteHz(t, inst, 0))
	assert.Nil(t, inst.Voices()[2].Note)
}

func TestPolyStealsOldestVoice(t *testing.T) {
	inst := withLongAttack(newConstant(t, NewPoly(), 2))
	inst.NoteOn(100, 1)
	pull(inst, 3)
	inst.NoteOn(200, 1)
	pull(inst, 1)
	require.Equal(t, []uint64{4, 1}, playheads(inst))

	inst.NoteOn(300, 1)
	assert.Equal(t, 300.0, noteHz(t, inst, 0))
	assert.Equal(t, 200.0, noteHz(t, inst, 1))
	assert.Equal(t, []uint64{0, 1}, playheads(inst))
}

func TestPolyStealTieGoesToLaterVoice(t *testing.T) {
	inst := newConstant(t, NewPoly(), 2)
	inst.NoteOn(100, 1)
	inst.NoteOn(200, 1)
	inst.NoteOn(300, 1)
	assert.Equal(t, 100.0, noteHz(t, inst, 0))
	assert.Equal(t, 300.0, noteHz(t, inst, 1))
}

func TestPolyNoteOffReleasesOldestMatch(t *testing.T) {
	inst := withLongAttack(newConstant(t, NewPoly(), 3))
	inst.NoteOn(440, 1)
	pull(inst, 2)
	inst.NoteOn(440.1, 1)
	pull(inst, 1)

	inst.NoteOff(440)
	voices := inst.Voices()
	assert.True(t, voices[0].Note.State.Released)
	assert.True(t, voices[1].Note.State.Playing())

	inst.NoteOff(440)
	voices = inst.Voices()
	assert.True(t, voices[0].Note.State.Released)
	assert.True(t, voices[1].Note.State.Playing(), "the older released note still matches first")
}

func TestPolyNoteOffMatchesReleasedNote(t *testing.T) {
	inst := withLongAttack(newConstant(t, NewPoly(), 2)).WithRelease(time.Second)
	inst.NoteOn(440, 1)
	pull(inst, 4)
	inst.NoteOff(440)
	pull(inst, 3)
	inst.NoteOn(440, 1)
	pull(inst, 1)

	voices := inst.Voices()
	require.NotNil(t, voices[0].Note)
	require.True(t, voices[0].Note.State.Released)
	require.Equal(t, uint64(4), voices[0].Note.State.ReleasePlayhead)
	require.True(t, voices[1].Note.State.Playing())
	require.Greater(t, voices[0].Playhead, voices[1].Playhead)

	inst.NoteOff(440)
	voices = inst.Voices()
	assert.True(t, voices[1].Note.State.Playing())
	assert.Equal(t, uint64(4), voices[0].Note.State.ReleasePlayhead, "fade keeps its position")
}

func TestPolyRepeatedNoteOffKeepsFade(t *testing.T) {
	inst := newConstant(t, NewPoly(), 1).WithRelease(time.Second)
	inst.NoteOn(440, 1)
	inst.NoteOff(440)
	pull(inst, 3)
	inst.NoteOff(440)

	v := inst.Voices()[0]
	require.NotNil(t, v.Note)
	assert.True(t, v.Note.State.Released)
	assert.Equal(t, uint64(3), v.Note.State.ReleasePlayhead)
}

func TestPolyNoteOffIgnoresUnknownPitch(t *testing.T) {
	inst := newConstant(t, NewPoly(), 2)
	inst.NoteOn(440, 1)
	inst.NoteOff(445)
	assert.True(t, inst.Voices()[0].IsPlaying())
}

func TestPolyGlideAnchorsOnNewestVoice(t *testing.T) {
	inst, err := New[PortamentoFreq](NewPoly(), Portamento{Samples: 100}, 3)
	require.NoError(t, err)
	withLongAttack(inst)

	inst.NoteOn(220, 1)
	pull(inst, 10)
	inst.NoteOn(440, 1)
	v1 := inst.Voices()[1]
	require.NotNil(t, v1.Note)
	assert.InDelta(t, 220, v1.Note.Freq.Hz(), 1e-9, "second note glides from the only active voice")

	pull(inst, 5)
	anchorHz := inst.Voices()[1].Note.Freq.Hz()
	inst.NoteOn(880, 1)
	v2 := inst.Voices()[2]
	require.NotNil(t, v2.Note)
	assert.InDelta(t, anchorHz, v2.Note.Freq.Hz(), 1e-9, "third note glides from the most recent voice")
	assert.Greater(t, anchorHz, 221.0, "anchor should be mid-glide")
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"poly", "poly"},
		{"", "poly"},
		{"mono", "mono-retrigger"},
		{"Retrigger", "mono-retrigger"},
		{"mono-legato", "mono-legato"},
		{"legato", "mono-legato"},
	}
	for _, tt := range tests {
		m, err := ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, m.String())
	}
	_, err := ParseMode("arp")
	assert.Error(t, err)
}
