package render

import (
	"cmp"
	"slices"
	"time"

	"github.com/cwbudde/algo-instrument/instrument"
	"github.com/cwbudde/algo-instrument/internal/wavio"
	"github.com/cwbudde/algo-instrument/unit"
)

// Event is a note-on or note-off at a point of the rendered timeline.
type Event struct {
	At  time.Duration
	Hz  float64
	Vel float32
	Off bool
}

// Sequence plays the frequencies one after another, step apart, each held
// for gate. A gate longer than step makes consecutive notes overlap.
func Sequence(hz []float64, vel float32, step, gate time.Duration) []Event {
	events := make([]Event, 0, 2*len(hz))
	for i, f := range hz {
		on := time.Duration(i) * step
		events = append(events,
			Event{At: on, Hz: f, Vel: vel},
			Event{At: on + gate, Hz: f, Off: true},
		)
	}
	return events
}

// sortEvents orders events by time. Note-offs go first on ties so a note
// ending exactly when the next begins frees its voice beforehand.
func sortEvents(events []Event) []Event {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b Event) int {
		if c := cmp.Compare(a.At, b.At); c != 0 {
			return c
		}
		switch {
		case a.Off && !b.Off:
			return -1
		case !a.Off && b.Off:
			return 1
		}
		return 0
	})
	return sorted
}

// Render plays events through s and returns length worth of interleaved
// stereo samples. Events at or after length are dropped.
func Render[F instrument.NoteFreq[F]](s *Synth[F], events []Event, length time.Duration) ([]float32, error) {
	sr := s.SampleRate()
	total := int(unit.Frames(length, sr))
	out := make([]float32, total*2)

	pos := 0
	for _, ev := range sortEvents(events) {
		at := min(int(unit.Frames(ev.At, sr)), total)
		if at > pos {
			if err := s.ProcessTo(out[pos*2 : at*2]); err != nil {
				return nil, err
			}
			pos = at
		}
		if at >= total {
			break
		}
		if ev.Off {
			s.NoteOff(ev.Hz)
		} else {
			s.NoteOn(ev.Hz, ev.Vel)
		}
	}
	if pos < total {
		if err := s.ProcessTo(out[pos*2:]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AutoStop ends a render once the output has decayed.
type AutoStop struct {
	// ThresholdDBFS is the block RMS level considered silent.
	ThresholdDBFS float64
	// HoldBlocks is the number of consecutive silent blocks required.
	HoldBlocks int
	BlockSize  int
	// Max bounds the total render length.
	Max time.Duration
}

// DefaultAutoStop stops after six 128-frame blocks below -90 dBFS, or 20s.
func DefaultAutoStop() AutoStop {
	return AutoStop{ThresholdDBFS: -90, HoldBlocks: 6, BlockSize: 128, Max: 20 * time.Second}
}

// RenderUntilSilent plays every event, then keeps rendering until the output
// stays below the threshold for HoldBlocks blocks or Max is reached.
func RenderUntilSilent[F instrument.NoteFreq[F]](s *Synth[F], events []Event, stop AutoStop) ([]float32, error) {
	def := DefaultAutoStop()
	if stop.HoldBlocks < 1 {
		stop.HoldBlocks = def.HoldBlocks
	}
	if stop.BlockSize < 1 {
		stop.BlockSize = def.BlockSize
	}
	if stop.Max <= 0 {
		stop.Max = def.Max
	}

	var last time.Duration
	for _, ev := range events {
		last = max(last, ev.At)
	}
	// Render one extra frame so events at the very end still apply.
	head := min(last+unit.Duration(1, s.SampleRate()), stop.Max)
	out, err := Render(s, events, head)
	if err != nil {
		return nil, err
	}

	maxFrames := int(unit.Frames(stop.Max, s.SampleRate()))
	threshold := wavio.DBFSToLinear(stop.ThresholdDBFS)
	below := 0
	block := make([]float32, stop.BlockSize*2)
	for len(out)/2 < maxFrames {
		n := min(stop.BlockSize, maxFrames-len(out)/2)
		if err := s.ProcessTo(block[:n*2]); err != nil {
			return nil, err
		}
		out = append(out, block[:n*2]...)
		if wavio.RMS(block[:n*2]) < threshold {
			below++
			if below >= stop.HoldBlocks {
				break
			}
		} else {
			below = 0
		}
	}
	return out, nil
}
