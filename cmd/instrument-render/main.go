package main

import (
	"flag"
	"math"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-instrument/analysis"
	"github.com/cwbudde/algo-instrument/internal/wavio"
	"github.com/cwbudde/algo-instrument/preset"
	"github.com/cwbudde/algo-instrument/render"
	"github.com/cwbudde/algo-instrument/unit"
)

func main() {
	// Command-line flags
	presetPath := flag.String("preset", preset.DefaultPresetPath, "Preset file path (.json, .yaml or .yml)")
	notes := flag.String("notes", "C4,E4,G4,C5", "Comma-separated notes: names (A4, C#5), MIDI steps (69) or frequencies (440hz)")
	velocity := flag.Float64("velocity", 0.8, "Note velocity (0-1)")
	step := flag.Float64("step", 0.25, "Seconds between note-ons")
	gate := flag.Float64("gate", 0.2, "Seconds each note is held; longer than -step makes notes overlap")
	chord := flag.Bool("chord", false, "Start all notes together instead of one after another")
	mode := flag.String("mode", "", "Mode override: poly, mono-retrigger or mono-legato")
	voices := flag.Int("voices", 0, "Voice count override (0 = preset)")
	duration := flag.Float64("duration", 0, "Fixed render length in seconds (0 = stop on decay)")
	decayDBFS := flag.Float64("decay-dbfs", -90, "Auto-stop when stereo block RMS falls below this dBFS")
	decayHoldBlocks := flag.Int("decay-hold-blocks", 6, "Consecutive below-threshold blocks required to stop in auto-decay mode")
	maxDuration := flag.Float64("max-duration", 20.0, "Maximum render duration in seconds when auto-stopping")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	outputRate := flag.Int("output-rate", 0, "Resample the result to this rate before writing (0 = sample rate)")
	irPath := flag.String("ir", "", "Room IR WAV path override (optional)")
	output := flag.String("output", "output.wav", "Output WAV file path")
	logLevel := flag.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid log level")
	}
	logrus.SetLevel(level)
	log := logrus.WithField("component", "instrument-render")

	params, err := preset.Load(*presetPath)
	if err != nil {
		log.WithError(err).WithField("preset", *presetPath).Error("Error loading preset")
		os.Exit(1)
	}
	if *mode != "" {
		params.Mode = *mode
	}
	if *voices > 0 {
		params.Voices = *voices
	}
	if *irPath != "" {
		params.IRWavPath = *irPath
	}

	hz, err := parseNotes(*notes)
	if err != nil {
		log.WithError(err).Error("Error parsing notes")
		os.Exit(1)
	}

	synth, err := params.Synth(*sampleRate)
	if err != nil {
		log.WithError(err).Error("Error building instrument")
		os.Exit(1)
	}

	stepDur := seconds(*step)
	if *chord {
		stepDur = 0
	}
	events := render.Sequence(hz, float32(*velocity), stepDur, seconds(*gate))

	log.WithFields(logrus.Fields{
		"preset":      *presetPath,
		"mode":        params.Mode,
		"voices":      params.Voices,
		"notes":       len(hz),
		"sample_rate": *sampleRate,
	}).Info("Rendering")

	var samples []float32
	if *duration > 0 {
		samples, err = render.Render(synth, events, seconds(*duration))
	} else {
		samples, err = render.RenderUntilSilent(synth, events, render.AutoStop{
			ThresholdDBFS: *decayDBFS,
			HoldBlocks:    *decayHoldBlocks,
			BlockSize:     128,
			Max:           seconds(*maxDuration),
		})
	}
	if err != nil {
		log.WithError(err).Error("Error rendering")
		os.Exit(1)
	}

	rate := *sampleRate
	if *outputRate > 0 && *outputRate != rate {
		samples, err = resampleStereo(samples, rate, *outputRate)
		if err != nil {
			log.WithError(err).Error("Error resampling")
			os.Exit(1)
		}
		rate = *outputRate
	}

	if err := wavio.WriteStereoInterleaved(*output, samples, rate); err != nil {
		log.WithError(err).Error("Error writing WAV file")
		os.Exit(1)
	}

	frames := len(samples) / 2
	fields := logrus.Fields{
		"output":   *output,
		"frames":   frames,
		"seconds":  unit.Duration(uint64(frames), rate).Seconds(),
		"rms_dbfs": analysis.LinToDB(wavio.RMS(samples)),
	}
	mono := stereoToMono64(samples)
	if hz, err := analysis.PeakHz(mono, rate); err == nil {
		fields["peak_hz"] = math.Round(hz*10) / 10
	}
	hop := rate / 100
	if decay, ok := analysis.StereoEnvelope(samples, rate, 2*hop, hop).DecayRate(60); ok {
		fields["decay_db_per_s"] = math.Round(decay*10) / 10
	}
	log.WithFields(fields).Info("Successfully wrote WAV")
}

func stereoToMono64(st []float32) []float64 {
	n := len(st) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = 0.5 * (float64(st[i*2]) + float64(st[i*2+1]))
	}
	return out
}

func parseNotes(s string) ([]float64, error) {
	var out []float64
	for _, field := range strings.Split(s, ",") {
		if strings.TrimSpace(field) == "" {
			continue
		}
		hz, err := unit.ParseNote(field)
		if err != nil {
			return nil, err
		}
		out = append(out, hz)
	}
	return out, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func resampleStereo(interleaved []float32, from, to int) ([]float32, error) {
	n := len(interleaved) / 2
	left := make([]float32, n)
	right := make([]float32, n)
	for i := 0; i < n; i++ {
		left[i] = interleaved[2*i]
		right[i] = interleaved[2*i+1]
	}
	left, err := wavio.Resample(left, from, to)
	if err != nil {
		return nil, err
	}
	right, err = wavio.Resample(right, from, to)
	if err != nil {
		return nil, err
	}
	m := min(len(left), len(right))
	out := make([]float32, 2*m)
	for i := 0; i < m; i++ {
		out[2*i] = left[i]
		out[2*i+1] = right[i]
	}
	return out, nil
}
