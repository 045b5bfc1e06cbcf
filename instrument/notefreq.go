package instrument

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/cwbudde/algo-instrument/unit"
)

// NoteFreq is a per-voice pitch trajectory. Implementations are values: Advance
// returns the trajectory stepped forward by one frame and leaves the receiver
// untouched, so copying a voice never shares trajectory state.
type NoteFreq[F any] interface {
	// Hz returns the current frequency.
	Hz() float64
	// Advance returns the trajectory one frame later.
	Advance() F
}

// NoteFreqGenerator builds the trajectory for a new note from the requested
// frequency, the detune amount in steps, and an optional reference voice whose
// live pitch the trajectory may start from.
type NoteFreqGenerator[F NoteFreq[F]] interface {
	Generate(hz float64, detune float32, ref *Voice[F]) F
}

// nextHz returns the current frequency of f and advances it by one frame.
func nextHz[F NoteFreq[F]](f *F) float64 {
	hz := (*f).Hz()
	*f = (*f).Advance()
	return hz
}

// detuneHz applies a uniformly random offset in [-detune, +detune] steps.
func detuneHz(hz float64, detune float32) float64 {
	if detune <= 0 {
		return hz
	}
	offset := rand.Float64()*2*float64(detune) - float64(detune)
	return unit.StepToHz(unit.HzToStep(hz) + offset)
}

// playingHz returns the live frequency of ref if it is playing a note.
func playingHz[F NoteFreq[F]](ref *Voice[F]) (float64, bool) {
	if ref == nil || !ref.IsPlaying() {
		return 0, false
	}
	return ref.Note.Freq.Hz(), true
}

// ConstantFreq is a fixed frequency trajectory.
type ConstantFreq float64

func (c ConstantFreq) Hz() float64 { return float64(c) }

func (c ConstantFreq) Advance() ConstantFreq { return c }

// Constant generates ConstantFreq trajectories.
type Constant struct{}

func (Constant) Generate(hz float64, detune float32, _ *Voice[ConstantFreq]) ConstantFreq {
	return ConstantFreq(detuneHz(hz, detune))
}

// Portamento generates trajectories that glide from the pitch of the reference
// voice to the new note over a fixed number of samples.
type Portamento struct {
	Samples uint64 `json:"samples"`
}

// PortamentoFreq interpolates linearly in Mel between two pitches.
type PortamentoFreq struct {
	CurrentSample uint64  `json:"current_sample"`
	TargetSamples uint64  `json:"target_samples"`
	StartMel      float64 `json:"start_mel"`
	TargetMel     float64 `json:"target_mel"`
	// TargetHz is returned verbatim once the glide completes.
	TargetHz float64 `json:"target_hz"`
}

func newPortamentoFreq(samples uint64, hz float64, detune float32, startHz float64, glide bool) PortamentoFreq {
	target := detuneHz(hz, detune)
	if !glide {
		startHz = target
	}
	return PortamentoFreq{
		TargetSamples: samples,
		StartMel:      unit.HzToMel(startHz),
		TargetMel:     unit.HzToMel(target),
		TargetHz:      target,
	}
}

func (p Portamento) Generate(hz float64, detune float32, ref *Voice[PortamentoFreq]) PortamentoFreq {
	startHz, glide := playingHz(ref)
	return newPortamentoFreq(p.Samples, hz, detune, startHz, glide)
}

func (p PortamentoFreq) Hz() float64 {
	if p.CurrentSample < p.TargetSamples {
		perc := float64(p.CurrentSample) / float64(p.TargetSamples)
		return unit.MelToHz(p.StartMel + perc*(p.TargetMel-p.StartMel))
	}
	return p.TargetHz
}

func (p PortamentoFreq) Advance() PortamentoFreq {
	if p.CurrentSample < p.TargetSamples {
		p.CurrentSample++
	}
	return p
}

// FreqKind selects the strategy of a DynamicGenerator.
type FreqKind int

const (
	FreqConstant FreqKind = iota
	FreqPortamento
)

func (k FreqKind) String() string {
	switch k {
	case FreqConstant:
		return "constant"
	case FreqPortamento:
		return "portamento"
	default:
		return fmt.Sprintf("FreqKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k FreqKind) MarshalText() ([]byte, error) {
	switch k {
	case FreqConstant, FreqPortamento:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("unknown frequency kind %d", int(k))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FreqKind) UnmarshalText(b []byte) error {
	kind, err := ParseFreqKind(string(b))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseFreqKind parses "constant" or "portamento".
func ParseFreqKind(s string) (FreqKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "constant", "":
		return FreqConstant, nil
	case "portamento", "glide":
		return FreqPortamento, nil
	}
	return 0, fmt.Errorf("unknown frequency generator %q (expected constant or portamento)", s)
}

// DynamicGenerator switches between Constant and Portamento at runtime.
type DynamicGenerator struct {
	Kind       FreqKind   `json:"kind"`
	Portamento Portamento `json:"portamento"`
}

// DynamicFreq is the trajectory produced by a DynamicGenerator.
type DynamicFreq struct {
	Kind       FreqKind       `json:"kind"`
	Constant   ConstantFreq   `json:"constant,omitempty"`
	Portamento PortamentoFreq `json:"portamento"`
}

// ConstantGenerator returns a DynamicGenerator producing constant pitches.
func ConstantGenerator() DynamicGenerator {
	return DynamicGenerator{Kind: FreqConstant}
}

// PortamentoGenerator returns a DynamicGenerator gliding over samples frames.
func PortamentoGenerator(samples uint64) DynamicGenerator {
	return DynamicGenerator{Kind: FreqPortamento, Portamento: Portamento{Samples: samples}}
}

func (g DynamicGenerator) Generate(hz float64, detune float32, ref *Voice[DynamicFreq]) DynamicFreq {
	switch g.Kind {
	case FreqPortamento:
		startHz, glide := playingHz(ref)
		return DynamicFreq{
			Kind:       FreqPortamento,
			Portamento: newPortamentoFreq(g.Portamento.Samples, hz, detune, startHz, glide),
		}
	default:
		return DynamicFreq{Kind: FreqConstant, Constant: ConstantFreq(detuneHz(hz, detune))}
	}
}

func (d DynamicFreq) Hz() float64 {
	if d.Kind == FreqPortamento {
		return d.Portamento.Hz()
	}
	return d.Constant.Hz()
}

func (d DynamicFreq) Advance() DynamicFreq {
	if d.Kind == FreqPortamento {
		d.Portamento = d.Portamento.Advance()
	}
	return d
}
