// Package instrument turns note-on and note-off events into a per-frame stream
// of (velocity, frequency) pairs for a bank of voices, suitable for driving a
// synthesizer or sampler.
//
// An Instrument owns a Mode (voice allocation policy), its Voices and a
// NoteFreqGenerator (pitch trajectory strategy). Note events go through the
// Mode; audio code pulls one Frame per voice per output sample through a
// FrameCursor obtained from BeginFrame.
package instrument

import (
	"iter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-instrument/unit"
)

// Instrument is a performable instrument handling playback mode, voice
// allocation, detune, pitch trajectories and attack/release fades.
//
// An Instrument is not safe for concurrent use.
type Instrument[F NoteFreq[F]] struct {
	mode    Mode
	voices  []Voice[F]
	detune  float32
	gen     NoteFreqGenerator[F]
	attack  time.Duration
	release time.Duration
	paused  bool
	log     *logrus.Entry
}

// New creates an Instrument with numVoices voices. A nil mode defaults to Poly.
func New[F NoteFreq[F]](mode Mode, gen NoteFreqGenerator[F], numVoices int) (*Instrument[F], error) {
	log := logrus.WithField("component", "instrument")
	if gen == nil {
		return nil, &ConfigError{Field: "generator", Value: nil, Err: errNilGenerator}
	}
	if mode == nil {
		mode = NewPoly()
	}
	inst := &Instrument[F]{
		mode:   mode,
		voices: []Voice[F]{NewVoice[F]()},
		gen:    gen,
		log:    log,
	}
	if err := inst.SetNumVoices(numVoices); err != nil {
		return nil, err
	}
	return inst, nil
}

// WithDetune sets the random detune amount, in steps, applied to each note-on.
func (in *Instrument[F]) WithDetune(detune float32) *Instrument[F] {
	in.SetDetune(detune)
	return in
}

// WithAttack sets the fade-in duration of each note.
func (in *Instrument[F]) WithAttack(attack time.Duration) *Instrument[F] {
	in.SetAttack(attack)
	return in
}

// WithRelease sets the fade-out duration after each note-off.
func (in *Instrument[F]) WithRelease(release time.Duration) *Instrument[F] {
	in.SetRelease(release)
	return in
}

// WithFade sets both attack and release.
func (in *Instrument[F]) WithFade(attack, release time.Duration) *Instrument[F] {
	in.SetAttack(attack)
	in.SetRelease(release)
	return in
}

// WithLogger replaces the logger used for configuration and event tracing.
func (in *Instrument[F]) WithLogger(log *logrus.Entry) *Instrument[F] {
	if log != nil {
		in.log = log
	}
	return in
}

// SetDetune sets the detune amount. Negative values are clamped to zero.
func (in *Instrument[F]) SetDetune(detune float32) {
	if detune < 0 {
		detune = 0
	}
	in.detune = detune
}

// SetAttack sets the attack duration.
func (in *Instrument[F]) SetAttack(attack time.Duration) {
	in.attack = max(attack, 0)
}

// SetRelease sets the release duration.
func (in *Instrument[F]) SetRelease(release time.Duration) {
	in.release = max(release, 0)
}

func (in *Instrument[F]) Detune() float32 { return in.detune }

func (in *Instrument[F]) Attack() time.Duration { return in.attack }

func (in *Instrument[F]) Release() time.Duration { return in.release }

// Mode returns the current playback mode.
func (in *Instrument[F]) Mode() Mode { return in.mode }

// Generator returns the current note frequency generator.
func (in *Instrument[F]) Generator() NoteFreqGenerator[F] { return in.gen }

// SetMode switches the playback mode. The state of the previous mode is
// cleared; sounding voices keep playing.
func (in *Instrument[F]) SetMode(mode Mode) {
	if mode == nil {
		mode = NewPoly()
	}
	in.mode.Stop()
	in.log.WithFields(logrus.Fields{
		"function": "SetMode",
		"from":     in.mode.String(),
		"to":       mode.String(),
	}).Debug("Switching playback mode")
	in.mode = mode
}

// SetNoteFreqGenerator replaces the frequency generator and re-derives the
// trajectory of every active voice so in-flight notes keep their pitch. The
// new trajectory starts from the frequency the voice currently produces,
// which already carries its detune, so no fresh detune offset is drawn.
func (in *Instrument[F]) SetNoteFreqGenerator(gen NoteFreqGenerator[F]) error {
	if gen == nil {
		return &ConfigError{Field: "generator", Value: nil, Err: errNilGenerator}
	}
	in.gen = gen
	rederived := 0
	for i := range in.voices {
		v := &in.voices[i]
		if v.Note == nil {
			continue
		}
		v.Note.Freq = gen.Generate(v.Note.Freq.Hz(), 0, v)
		rederived++
	}
	in.log.WithFields(logrus.Fields{
		"function":  "SetNoteFreqGenerator",
		"rederived": rederived,
	}).Debug("Replaced note frequency generator")
	return nil
}

// SetNumVoices resizes the voice bank. Growing copies the state of the last
// voice; shrinking drops the trailing voices without a fade. A count below one
// is rejected and leaves the bank unchanged.
func (in *Instrument[F]) SetNumVoices(n int) error {
	if n < 1 {
		err := &ConfigError{Field: "voice count", Value: n, Err: ErrNoVoices}
		in.log.WithFields(logrus.Fields{
			"function":  "SetNumVoices",
			"requested": n,
			"current":   len(in.voices),
		}).Warn("Rejected voice count")
		return err
	}
	switch cur := len(in.voices); {
	case cur < n:
		last := in.voices[cur-1]
		for len(in.voices) < n {
			in.voices = append(in.voices, last.Clone())
		}
	case cur > n:
		clear(in.voices[n:])
		in.voices = in.voices[:n]
	}
	return nil
}

// NumVoices returns the size of the voice bank.
func (in *Instrument[F]) NumVoices() int {
	return len(in.voices)
}

// Voices returns a deep copy of the current voice states.
func (in *Instrument[F]) Voices() []Voice[F] {
	out := make([]Voice[F], len(in.voices))
	for i, v := range in.voices {
		out[i] = v.Clone()
	}
	return out
}

// IsActive reports whether any voice holds a note. A paused instrument is
// never active.
func (in *Instrument[F]) IsActive() bool {
	if in.paused {
		return false
	}
	for i := range in.voices {
		if in.voices[i].Note != nil {
			return true
		}
	}
	return false
}

// NoteOn starts a note. In Poly mode a free voice is used if there is one,
// otherwise the voice that has been playing the longest is stolen.
func (in *Instrument[F]) NoteOn(hz float64, vel float32) {
	if in.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		in.log.WithFields(logrus.Fields{
			"function": "NoteOn",
			"hz":       hz,
			"velocity": vel,
			"mode":     in.mode.String(),
		}).Trace("Note on")
	}
	in.mode.NoteOn(hz, vel, in.bank())
}

// NoteOff releases the note that was started with a matching frequency.
func (in *Instrument[F]) NoteOff(hz float64) {
	if in.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		in.log.WithFields(logrus.Fields{
			"function": "NoteOff",
			"hz":       hz,
			"mode":     in.mode.String(),
		}).Trace("Note off")
	}
	in.mode.NoteOff(hz, in.bank())
}

// Stop silences every voice immediately and clears the mode state.
func (in *Instrument[F]) Stop() {
	in.mode.Stop()
	for i := range in.voices {
		in.voices[i].Stop()
	}
	in.log.WithField("function", "Stop").Debug("Stopped all voices")
}

// Pause suspends frame generation. Note events are still applied.
func (in *Instrument[F]) Pause() { in.paused = true }

// Unpause resumes frame generation.
func (in *Instrument[F]) Unpause() { in.paused = false }

// Paused reports whether the instrument is paused.
func (in *Instrument[F]) Paused() bool { return in.paused }

func (in *Instrument[F]) bank() *voiceBank[F] {
	return &voiceBank[F]{voices: in.voices, gen: in.gen, detune: in.detune}
}

// Frame is the output of one voice for one sample.
type Frame struct {
	Velocity float32
	Hz       float64
	// Sounding is false when the voice is silent for this frame.
	Sounding bool
}

// FrameCursor walks the voices of an Instrument for a single output frame.
// Each call to Next advances one voice by one sample.
type FrameCursor[F NoteFreq[F]] struct {
	voices  []Voice[F]
	attack  uint64
	release uint64
	paused  bool
	next    int
}

// BeginFrame returns a cursor over the voices for the next output frame. The
// attack and release durations are converted to frames at sampleRate here.
// Call it once per output sample.
func (in *Instrument[F]) BeginFrame(sampleRate int) FrameCursor[F] {
	return FrameCursor[F]{
		voices:  in.voices,
		attack:  unit.Frames(in.attack, sampleRate),
		release: unit.Frames(in.release, sampleRate),
		paused:  in.paused,
	}
}

// Next returns the frame of the next voice. ok is false once every voice has
// been visited.
func (c *FrameCursor[F]) Next() (f Frame, ok bool) {
	if c.next >= len(c.voices) {
		return Frame{}, false
	}
	v := &c.voices[c.next]
	c.next++
	if c.paused {
		return Frame{}, true
	}
	vel, hz, sounding := v.NextVelHz(c.attack, c.release)
	return Frame{Velocity: vel, Hz: hz, Sounding: sounding}, true
}

// All yields the voice index and frame of every remaining voice.
func (c *FrameCursor[F]) All() iter.Seq2[int, Frame] {
	return func(yield func(int, Frame) bool) {
		for {
			i := c.next
			f, ok := c.Next()
			if !ok || !yield(i, f) {
				return
			}
		}
	}
}

// voiceBank binds the voices to the detune amount and generator for a Mode.
type voiceBank[F NoteFreq[F]] struct {
	voices []Voice[F]
	gen    NoteFreqGenerator[F]
	detune float32
}

func (b *voiceBank[F]) Len() int { return len(b.voices) }

func (b *voiceBank[F]) Note(i int) (NoteInfo, bool) {
	n := b.voices[i].Note
	if n == nil {
		return NoteInfo{}, false
	}
	return NoteInfo{Hz: n.Hz, Vel: n.Vel, State: n.State}, true
}

func (b *voiceBank[F]) Playhead(i int) uint64 { return b.voices[i].Playhead }

func (b *voiceBank[F]) ResetPlayhead(i int) { b.voices[i].ResetPlayhead() }

func (b *voiceBank[F]) Trigger(i int, hz float64, vel float32, ref int) {
	var r *Voice[F]
	if ref >= 0 && ref < len(b.voices) {
		r = &b.voices[ref]
	}
	freq := b.gen.Generate(hz, b.detune, r)
	b.voices[i].NoteOn(hz, freq, vel)
}

func (b *voiceBank[F]) Release(i int) { b.voices[i].NoteOff() }
