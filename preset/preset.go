// Package preset loads instrument presets from JSON or YAML files.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-instrument/dsp"
	"github.com/cwbudde/algo-instrument/instrument"
	"github.com/cwbudde/algo-instrument/render"
	"github.com/cwbudde/algo-instrument/unit"
)

// DefaultPresetPath is where the command-line tools look for a preset.
const DefaultPresetPath = "assets/presets/default.json"

// Params is a complete instrument and renderer configuration.
type Params struct {
	Mode         string
	Voices       int
	Detune       float32
	AttackMs     float64
	ReleaseMs    float64
	Generator    instrument.FreqKind
	PortamentoMs float64

	Waveform   dsp.Waveform
	CutoffHz   float32
	OutputGain float32
	IRWavPath  string
	// Room is the synthetic room used when IRWavPath is empty; nil is dry.
	Room *render.RoomConfig
}

// NewDefaultParams returns an 8-voice poly instrument with short fades.
func NewDefaultParams() *Params {
	return &Params{
		Mode:       "poly",
		Voices:     8,
		AttackMs:   5,
		ReleaseMs:  120,
		Generator:  instrument.FreqConstant,
		Waveform:   dsp.Sine,
		CutoffHz:   8000,
		OutputGain: 0.25,
	}
}

// File is the on-disk preset schema. Every field is optional and overrides
// the corresponding default.
type File struct {
	Mode         *string  `json:"mode" yaml:"mode"`
	Voices       *int     `json:"voices" yaml:"voices"`
	Detune       *float32 `json:"detune" yaml:"detune"`
	AttackMs     *float64 `json:"attack_ms" yaml:"attack_ms"`
	ReleaseMs    *float64 `json:"release_ms" yaml:"release_ms"`
	Generator    *string  `json:"generator" yaml:"generator"`
	PortamentoMs *float64 `json:"portamento_ms" yaml:"portamento_ms"`
	Waveform     *string  `json:"waveform" yaml:"waveform"`
	CutoffHz     *float32 `json:"cutoff_hz" yaml:"cutoff_hz"`
	OutputGain   *float32 `json:"output_gain" yaml:"output_gain"`
	IRWavPath    string   `json:"ir_wav_path" yaml:"ir_wav_path"`
	Room         *Room    `json:"room" yaml:"room"`
}

// Room is a partial override of the synthetic room. Its presence enables
// the room.
type Room struct {
	LengthMs   *float64 `json:"length_ms" yaml:"length_ms"`
	DecayMs    *float64 `json:"decay_ms" yaml:"decay_ms"`
	EarlyCount *int     `json:"early_count" yaml:"early_count"`
	LateLevel  *float64 `json:"late_level" yaml:"late_level"`
	Width      *float64 `json:"width" yaml:"width"`
	DampingHz  *float32 `json:"damping_hz" yaml:"damping_hz"`
	Mix        *float64 `json:"mix" yaml:"mix"`
	Seed       *uint64  `json:"seed" yaml:"seed"`
}

// Load reads a preset file and applies it on top of default params. Files
// ending in .yaml or .yml are parsed as YAML, everything else as JSON.
func Load(path string) (*Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &f)
	default:
		err = json.Unmarshal(b, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse preset %s: %w", path, err)
	}

	p := NewDefaultParams()
	if err := ApplyFile(p, &f); err != nil {
		return nil, fmt.Errorf("preset %s: %w", path, err)
	}

	if p.IRWavPath != "" && !filepath.IsAbs(p.IRWavPath) {
		base := filepath.Dir(path)
		p.IRWavPath = filepath.Clean(filepath.Join(base, p.IRWavPath))
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing params object.
func ApplyFile(dst *Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	if f.Mode != nil {
		if _, err := instrument.ParseMode(*f.Mode); err != nil {
			return err
		}
		dst.Mode = strings.TrimSpace(*f.Mode)
	}
	if f.Voices != nil {
		if *f.Voices < 1 {
			return fmt.Errorf("voices must be >= 1")
		}
		dst.Voices = *f.Voices
	}
	if f.Detune != nil {
		if *f.Detune < 0 {
			return fmt.Errorf("detune must be >= 0")
		}
		dst.Detune = *f.Detune
	}
	if f.AttackMs != nil {
		if *f.AttackMs < 0 {
			return fmt.Errorf("attack_ms must be >= 0")
		}
		dst.AttackMs = *f.AttackMs
	}
	if f.ReleaseMs != nil {
		if *f.ReleaseMs < 0 {
			return fmt.Errorf("release_ms must be >= 0")
		}
		dst.ReleaseMs = *f.ReleaseMs
	}
	if f.Generator != nil {
		kind, err := instrument.ParseFreqKind(*f.Generator)
		if err != nil {
			return err
		}
		dst.Generator = kind
	}
	if f.PortamentoMs != nil {
		if *f.PortamentoMs < 0 {
			return fmt.Errorf("portamento_ms must be >= 0")
		}
		dst.PortamentoMs = *f.PortamentoMs
	}
	if f.Waveform != nil {
		w, err := dsp.ParseWaveform(*f.Waveform)
		if err != nil {
			return err
		}
		dst.Waveform = w
	}
	if f.CutoffHz != nil {
		if *f.CutoffHz < 0 {
			return fmt.Errorf("cutoff_hz must be >= 0")
		}
		dst.CutoffHz = *f.CutoffHz
	}
	if f.OutputGain != nil {
		if *f.OutputGain <= 0 {
			return fmt.Errorf("output_gain must be > 0")
		}
		dst.OutputGain = *f.OutputGain
	}
	if f.IRWavPath != "" {
		dst.IRWavPath = strings.TrimSpace(f.IRWavPath)
	}
	if f.Room != nil {
		return applyRoom(dst, f.Room)
	}
	return nil
}

func applyRoom(dst *Params, r *Room) error {
	room := render.DefaultRoomConfig()
	if dst.Room != nil {
		room = *dst.Room
	}
	if r.LengthMs != nil {
		room.Length = unit.Ms(*r.LengthMs)
	}
	if r.DecayMs != nil {
		room.Decay = unit.Ms(*r.DecayMs)
	}
	if r.EarlyCount != nil {
		room.EarlyCount = *r.EarlyCount
	}
	if r.LateLevel != nil {
		room.LateLevel = *r.LateLevel
	}
	if r.Width != nil {
		room.Width = *r.Width
	}
	if r.DampingHz != nil {
		room.DampingHz = *r.DampingHz
	}
	if r.Mix != nil {
		room.Mix = *r.Mix
	}
	if r.Seed != nil {
		room.Seed = *r.Seed
	}
	if err := room.Validate(); err != nil {
		return fmt.Errorf("room: %w", err)
	}
	dst.Room = &room
	return nil
}

// NoteFreqGenerator returns the frequency generator described by p. The portamento
// time is converted to frames at sampleRate.
func (p *Params) NoteFreqGenerator(sampleRate int) instrument.DynamicGenerator {
	if p.Generator == instrument.FreqPortamento {
		return instrument.PortamentoGenerator(unit.Frames(unit.Ms(p.PortamentoMs), sampleRate))
	}
	return instrument.ConstantGenerator()
}

// Build constructs the instrument described by p.
func (p *Params) Build(sampleRate int) (*instrument.Instrument[instrument.DynamicFreq], error) {
	mode, err := instrument.ParseMode(p.Mode)
	if err != nil {
		return nil, err
	}
	inst, err := instrument.New[instrument.DynamicFreq](mode, p.NoteFreqGenerator(sampleRate), p.Voices)
	if err != nil {
		return nil, err
	}
	return inst.
		WithDetune(p.Detune).
		WithFade(unit.Ms(p.AttackMs), unit.Ms(p.ReleaseMs)), nil
}

// Synth constructs the instrument and wraps it in a renderer.
func (p *Params) Synth(sampleRate int) (*render.Synth[instrument.DynamicFreq], error) {
	inst, err := p.Build(sampleRate)
	if err != nil {
		return nil, err
	}
	return render.NewSynth(inst, render.Config{
		SampleRate: sampleRate,
		Waveform:   p.Waveform,
		CutoffHz:   p.CutoffHz,
		Gain:       p.OutputGain,
		IRWavPath:  p.IRWavPath,
		Room:       p.Room,
	})
}
