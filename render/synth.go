// Package render turns the frames of an instrument into audio: one oscillator
// and lowpass per voice, an optional room impulse response, and a
// beep.Streamer for playback.
package render

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-instrument/dsp"
	"github.com/cwbudde/algo-instrument/instrument"
)

// Config controls how voice frames are turned into samples.
type Config struct {
	SampleRate int
	Waveform   dsp.Waveform
	// CutoffHz is the voice lowpass cutoff. Zero disables the filter.
	CutoffHz float32
	// Gain scales the voice mix before the room convolver.
	Gain float32
	// IRWavPath optionally names a room impulse response.
	IRWavPath string
	// Room synthesizes an impulse response when IRWavPath is empty.
	Room *RoomConfig
}

// DefaultConfig returns a sine voice at 48 kHz without room response.
func DefaultConfig() Config {
	return Config{
		SampleRate: 48000,
		Waveform:   dsp.Sine,
		CutoffHz:   8000,
		Gain:       0.25,
	}
}

// Synth renders an Instrument to interleaved stereo. Note events and
// processing may come from different goroutines.
type Synth[F instrument.NoteFreq[F]] struct {
	mu   sync.Mutex
	inst *instrument.Instrument[F]
	cfg  Config
	log  *logrus.Entry

	oscs    []*dsp.Oscillator
	filters []*dsp.Lowpass
	active  []bool

	room *RoomConvolver
	mono []float32
}

// NewSynth wraps inst. The room impulse response in cfg, if any, is loaded
// here; without one the mix is copied to both channels.
func NewSynth[F instrument.NoteFreq[F]](inst *instrument.Instrument[F], cfg Config) (*Synth[F], error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	s := &Synth[F]{
		inst: inst,
		cfg:  cfg,
		log:  logrus.WithField("component", "render"),
	}
	switch {
	case cfg.IRWavPath != "":
		room, err := NewRoomConvolver(cfg.SampleRate)
		if err != nil {
			return nil, err
		}
		if err := room.SetIRFromWAV(cfg.IRWavPath); err != nil {
			return nil, err
		}
		s.room = room
		s.log.WithFields(logrus.Fields{
			"function": "NewSynth",
			"ir":       cfg.IRWavPath,
			"ir_len":   room.IRLen(),
		}).Debug("Loaded room impulse response")
	case cfg.Room != nil:
		rc := *cfg.Room
		rc.SampleRate = cfg.SampleRate
		left, right, err := GenerateRoom(rc)
		if err != nil {
			return nil, err
		}
		room, err := NewRoomConvolver(cfg.SampleRate)
		if err != nil {
			return nil, err
		}
		if err := room.SetIR(left, right); err != nil {
			return nil, err
		}
		s.room = room
		s.log.WithFields(logrus.Fields{
			"function": "NewSynth",
			"ir_len":   room.IRLen(),
		}).Debug("Generated room impulse response")
	}
	return s, nil
}

// Instrument returns the wrapped instrument. Callers must not use it
// concurrently with Process.
func (s *Synth[F]) Instrument() *instrument.Instrument[F] {
	return s.inst
}

// SampleRate returns the output sample rate.
func (s *Synth[F]) SampleRate() int {
	return s.cfg.SampleRate
}

// NoteOn starts a note on the instrument.
func (s *Synth[F]) NoteOn(hz float64, vel float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inst.NoteOn(hz, vel)
}

// NoteOff releases a note on the instrument.
func (s *Synth[F]) NoteOff(hz float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inst.NoteOff(hz)
}

// Stop silences the instrument and clears the room reverb tail.
func (s *Synth[F]) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inst.Stop()
	if s.room != nil {
		s.room.Reset()
	}
}

// IsActive reports whether the instrument still has sounding voices.
func (s *Synth[F]) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inst.IsActive()
}

// Process renders a block of audio samples (stereo interleaved)
func (s *Synth[F]) Process(numFrames int) []float32 {
	out := make([]float32, numFrames*2)
	if err := s.ProcessTo(out); err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "Process",
			"error":    err.Error(),
		}).Error("Room convolution failed")
	}
	return out
}

// ProcessTo renders len(dst)/2 stereo frames into dst.
func (s *Synth[F]) ProcessTo(dst []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(dst) / 2
	if cap(s.mono) < n {
		s.mono = make([]float32, n)
	}
	mono := s.mono[:n]
	for i := range mono {
		mono[i] = s.nextSample()
	}
	if s.room != nil {
		return s.room.ProcessTo(dst, mono)
	}
	for i, x := range mono {
		dst[2*i] = x
		dst[2*i+1] = x
	}
	return nil
}

func (s *Synth[F]) nextSample() float32 {
	s.ensureVoices(s.inst.NumVoices())

	var sum float32
	c := s.inst.BeginFrame(s.cfg.SampleRate)
	for i, f := range c.All() {
		if !f.Sounding {
			if s.active[i] {
				s.oscs[i].Reset()
				s.filters[i].Reset()
				s.active[i] = false
			}
			continue
		}
		s.active[i] = true
		x := s.oscs[i].Next(f.Hz) * f.Velocity
		if s.cfg.CutoffHz > 0 {
			x = s.filters[i].Process(x)
		}
		sum += x
	}
	return sum * s.cfg.Gain
}

func (s *Synth[F]) ensureVoices(n int) {
	for len(s.oscs) < n {
		s.oscs = append(s.oscs, dsp.NewOscillator(s.cfg.Waveform, s.cfg.SampleRate))
		s.filters = append(s.filters, dsp.NewLowpass(s.cfg.CutoffHz, float32(s.cfg.SampleRate), 0.7071))
		s.active = append(s.active, false)
	}
}
