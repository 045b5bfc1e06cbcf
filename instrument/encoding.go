package instrument

import (
	"fmt"

	"github.com/cwbudde/algo-instrument/unit"
)

// ModeState is the serializable form of a Mode.
type ModeState struct {
	Name  string    `json:"name"`
	Stack []float64 `json:"stack,omitempty"`
}

// EncodeMode captures the state of m.
func EncodeMode(m Mode) ModeState {
	s := ModeState{Name: m.String()}
	if mono, ok := m.(*Mono); ok && len(mono.Stack) > 0 {
		s.Stack = append([]float64(nil), mono.Stack...)
	}
	return s
}

// DecodeMode rebuilds a Mode from its state.
func DecodeMode(s ModeState) (Mode, error) {
	m, err := ParseMode(s.Name)
	if err != nil {
		return nil, err
	}
	if mono, ok := m.(*Mono); ok {
		mono.Stack = append(mono.Stack, s.Stack...)
	} else if len(s.Stack) > 0 {
		return nil, fmt.Errorf("mode %s does not keep a note stack", m)
	}
	return m, nil
}

// Snapshot is the complete performable state of an Instrument apart from its
// generator.
type Snapshot[F NoteFreq[F]] struct {
	Mode      ModeState  `json:"mode"`
	Voices    []Voice[F] `json:"voices"`
	Detune    float32    `json:"detune"`
	AttackMs  float64    `json:"attack_ms"`
	ReleaseMs float64    `json:"release_ms"`
	Paused    bool       `json:"paused,omitempty"`
}

// Snapshot captures the instrument state.
func (in *Instrument[F]) Snapshot() Snapshot[F] {
	return Snapshot[F]{
		Mode:      EncodeMode(in.mode),
		Voices:    in.Voices(),
		Detune:    in.detune,
		AttackMs:  unit.ToMs(in.attack),
		ReleaseMs: unit.ToMs(in.release),
		Paused:    in.paused,
	}
}

// Restore replaces the instrument state with s. The instrument is left
// untouched when s is invalid.
func (in *Instrument[F]) Restore(s Snapshot[F]) error {
	if len(s.Voices) == 0 {
		return &ConfigError{Field: "voice count", Value: 0, Err: ErrNoVoices}
	}
	if s.Detune < 0 {
		return &ConfigError{Field: "detune", Value: s.Detune, Err: fmt.Errorf("must be >= 0")}
	}
	mode, err := DecodeMode(s.Mode)
	if err != nil {
		return &ConfigError{Field: "mode", Value: s.Mode.Name, Err: err}
	}
	voices := make([]Voice[F], len(s.Voices))
	for i, v := range s.Voices {
		voices[i] = v.Clone()
	}
	in.mode = mode
	in.voices = voices
	in.detune = s.Detune
	in.SetAttack(unit.Ms(s.AttackMs))
	in.SetRelease(unit.Ms(s.ReleaseMs))
	in.paused = s.Paused
	return nil
}
