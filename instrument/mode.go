package instrument

import (
	"fmt"
	"strings"
)

// HzTolerance is the absolute distance under which two frequencies are the
// same note. It absorbs the jitter of detuned triggers.
const HzTolerance = 0.25

// HzMatch reports whether hz is within HzTolerance of target.
func HzMatch(hz, target float64) bool {
	return hz > target-HzTolerance && hz < target+HzTolerance
}

// NoteInfo describes the note held by a voice.
type NoteInfo struct {
	Hz    float64
	Vel   float32
	State NoteState
}

// VoiceBank is the view of an Instrument's voices handed to a Mode. Trigger
// generates a new trajectory (with the bank's detune and generator) relative
// to voice ref, or to no voice when ref < 0, and starts the note on voice i.
type VoiceBank interface {
	Len() int
	Note(i int) (NoteInfo, bool)
	Playhead(i int) uint64
	ResetPlayhead(i int)
	Trigger(i int, hz float64, vel float32, ref int)
	Release(i int)
}

// Mode decides which voices handle note events. The implementations are *Mono
// and Poly; an Instrument can switch between them at runtime.
type Mode interface {
	NoteOn(hz float64, vel float32, bank VoiceBank)
	NoteOff(hz float64, bank VoiceBank)
	Stop()
	String() string
	isMode()
}

// MonoKind selects how Mono handles overlapping notes.
type MonoKind int

const (
	// Retrigger restarts the envelope of every voice on each new note.
	Retrigger MonoKind = iota
	// Legato keeps the envelope running when a note is already playing.
	Legato
)

func (k MonoKind) String() string {
	switch k {
	case Retrigger:
		return "retrigger"
	case Legato:
		return "legato"
	default:
		return fmt.Sprintf("MonoKind(%d)", int(k))
	}
}

// Mono plays one note at a time in unison on all voices. Notes held while a
// newer note sounds are kept on Stack and fall back into place on note-off.
type Mono struct {
	Kind MonoKind
	// Stack holds fallback note frequencies, most recent last.
	Stack []float64
}

// NewRetrigger returns a Mono mode in Retrigger kind.
func NewRetrigger() *Mono {
	return &Mono{Kind: Retrigger, Stack: make([]float64, 0, 16)}
}

// NewLegato returns a Mono mode in Legato kind.
func NewLegato() *Mono {
	return &Mono{Kind: Legato, Stack: make([]float64, 0, 16)}
}

func (*Mono) isMode() {}

func (m *Mono) String() string {
	return "mono-" + m.Kind.String()
}

func (m *Mono) NoteOn(hz float64, vel float32, bank VoiceBank) {
	// Release the same note first so repeated note-ons do not stack twice.
	m.NoteOff(hz, bank)

	if cur, ok := bank.Note(0); ok && cur.State.Playing() {
		m.Stack = append(m.Stack, cur.Hz)
		if m.Kind == Retrigger {
			resetPlayheads(bank)
		}
	} else {
		m.Stack = m.Stack[:0]
		resetPlayheads(bank)
	}

	for i := 0; i < bank.Len(); i++ {
		bank.Trigger(i, hz, vel, i)
	}
}

func (m *Mono) NoteOff(hz float64, bank VoiceBank) {
	cur, ok := bank.Note(0)
	if !ok || !cur.State.Playing() || !HzMatch(cur.Hz, hz) {
		// A queued note was cancelled before it sounded again.
		kept := m.Stack[:0]
		for _, stacked := range m.Stack {
			if !HzMatch(stacked, hz) {
				kept = append(kept, stacked)
			}
		}
		m.Stack = kept
		return
	}

	if n := len(m.Stack); n > 0 {
		fallback := m.Stack[n-1]
		m.Stack = m.Stack[:n-1]
		if m.Kind == Retrigger {
			resetPlayheads(bank)
		}
		for i := 0; i < bank.Len(); i++ {
			bank.Trigger(i, fallback, cur.Vel, i)
		}
		return
	}

	for i := 0; i < bank.Len(); i++ {
		bank.Release(i)
	}
}

func (m *Mono) Stop() {
	m.Stack = m.Stack[:0]
}

// Poly distributes notes across voices, stealing the oldest voice when all
// are busy.
type Poly struct{}

// NewPoly returns a Poly mode.
func NewPoly() Poly {
	return Poly{}
}

func (Poly) isMode() {}

func (Poly) String() string { return "poly" }

func (Poly) NoteOn(hz float64, vel float32, bank VoiceBank) {
	// The most recently triggered active voice anchors the new trajectory.
	anchor := -1
	for i := 0; i < bank.Len(); i++ {
		if _, ok := bank.Note(i); !ok {
			continue
		}
		if anchor < 0 || bank.Playhead(i) < bank.Playhead(anchor) {
			anchor = i
		}
	}

	oldest := -1
	var maxPlayhead uint64
	for i := 0; i < bank.Len(); i++ {
		if _, ok := bank.Note(i); !ok {
			bank.ResetPlayhead(i)
			bank.Trigger(i, hz, vel, anchor)
			return
		}
		if p := bank.Playhead(i); p >= maxPlayhead {
			maxPlayhead = p
			oldest = i
		}
	}
	if oldest >= 0 {
		bank.ResetPlayhead(oldest)
		bank.Trigger(oldest, hz, vel, anchor)
	}
}

// NoteOff considers released notes that are still fading as well as playing
// ones. If the oldest match is already released its fade continues untouched.
func (Poly) NoteOff(hz float64, bank VoiceBank) {
	match := -1
	for i := 0; i < bank.Len(); i++ {
		n, ok := bank.Note(i)
		if !ok || !HzMatch(n.Hz, hz) {
			continue
		}
		if match < 0 || bank.Playhead(i) >= bank.Playhead(match) {
			match = i
		}
	}
	if match < 0 {
		return
	}
	if n, _ := bank.Note(match); n.State.Playing() {
		bank.Release(match)
	}
}

func (Poly) Stop() {}

func resetPlayheads(bank VoiceBank) {
	for i := 0; i < bank.Len(); i++ {
		bank.ResetPlayhead(i)
	}
}

// ParseMode builds a Mode from its name: "poly", "mono-retrigger" (or
// "mono", "retrigger") and "mono-legato" (or "legato").
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "poly", "":
		return NewPoly(), nil
	case "mono", "retrigger", "mono-retrigger":
		return NewRetrigger(), nil
	case "legato", "mono-legato":
		return NewLegato(), nil
	}
	return nil, fmt.Errorf("unknown mode %q (expected poly, mono-retrigger or mono-legato)", name)
}
