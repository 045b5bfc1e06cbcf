package instrument

import "time"

// Voice is a single slot of an Instrument. It plays at most one note at a time.
type Voice[F NoteFreq[F]] struct {
	// Note is the note currently performed by the voice, nil when free.
	Note *Note[F] `json:"note,omitempty"`
	// Playhead counts the frames played since the note (or note segment) began.
	// It survives the note being cleared so that voice stealing can compare ages.
	Playhead uint64 `json:"playhead"`
}

// Note is an active note performed by a Voice.
type Note[F NoteFreq[F]] struct {
	State NoteState `json:"state"`
	// Freq is the pitch trajectory produced by the NoteFreqGenerator.
	Freq F `json:"freq"`
	// Hz is the frequency of the note-on event, used to match note-offs.
	Hz float64 `json:"hz"`
	// Vel is the velocity of the note-on event.
	Vel float32 `json:"vel"`
	// OnsetTime is the wall-clock time of the note-on. Informational only.
	OnsetTime time.Time `json:"onset_time"`
}

// NoteState is Playing (zero value) or Released with a release playhead.
type NoteState struct {
	Released bool `json:"released"`
	// ReleasePlayhead counts frames since the note was released.
	ReleasePlayhead uint64 `json:"release_playhead,omitempty"`
}

// Playing reports whether the note has not been released.
func (s NoteState) Playing() bool {
	return !s.Released
}

// NewVoice returns a free voice.
func NewVoice[F NoteFreq[F]]() Voice[F] {
	return Voice[F]{}
}

// IsActive reports whether the voice has a note, playing or releasing.
func (v *Voice[F]) IsActive() bool {
	return v.Note != nil
}

// IsPlaying reports whether the voice has a note that has not been released.
func (v *Voice[F]) IsPlaying() bool {
	return v.Note != nil && v.Note.State.Playing()
}

// ResetPlayhead rewinds the attack envelope to the start.
func (v *Voice[F]) ResetPlayhead() {
	v.Playhead = 0
}

// NoteOn replaces the current note with a new playing note. The playhead is
// left untouched; callers decide whether the envelope restarts.
func (v *Voice[F]) NoteOn(hz float64, freq F, vel float32) {
	v.Note = &Note[F]{
		Freq:      freq,
		Hz:        hz,
		Vel:       vel,
		OnsetTime: time.Now(),
	}
}

// NoteOff releases the current note if there is one.
func (v *Voice[F]) NoteOff() {
	if v.Note != nil {
		v.Note.State = NoteState{Released: true}
	}
}

// Stop clears the note and resets the playhead.
func (v *Voice[F]) Stop() {
	v.Note = nil
	v.Playhead = 0
}

// Clone returns a deep copy of the voice.
func (v Voice[F]) Clone() Voice[F] {
	if v.Note != nil {
		n := *v.Note
		v.Note = &n
	}
	return v
}

// NextVelHz advances the voice by one frame and returns its velocity and
// frequency. ok is false when the voice is silent. A released note whose
// release playhead reached release frames is cleared here, which is what
// frees the voice again.
func (v *Voice[F]) NextVelHz(attack, release uint64) (vel float32, hz float64, ok bool) {
	n := v.Note
	if n == nil {
		return 0, 0, false
	}
	if n.State.Playing() {
		amp := v.nextAttackAmp(attack)
		return n.Vel * amp, nextHz(&n.Freq), true
	}
	if r := n.State.ReleasePlayhead; r < release {
		amp := v.nextAttackAmp(attack)
		releaseAmp := float32(release-r) / float32(release)
		n.State.ReleasePlayhead++
		return n.Vel * amp * releaseAmp, nextHz(&n.Freq), true
	}
	v.Note = nil
	return 0, 0, false
}

// nextAttackAmp returns the attack amplitude and steps the playhead until the
// attack is complete.
func (v *Voice[F]) nextAttackAmp(attack uint64) float32 {
	if v.Playhead < attack {
		amp := float32(v.Playhead) / float32(attack)
		v.Playhead++
		return amp
	}
	return 1.0
}
