package render

import (
	"github.com/gopxl/beep"

	"github.com/cwbudde/algo-instrument/instrument"
)

// Streamer adapts a Synth to beep.Streamer. It never drains; wrap it with
// beep.Take to bound its length.
type Streamer[F instrument.NoteFreq[F]] struct {
	synth *Synth[F]
	buf   []float32
	err   error
}

// Streamer returns a beep.Streamer over s.
func (s *Synth[F]) Streamer() *Streamer[F] {
	return &Streamer[F]{synth: s}
}

// Format describes the stream for beep consumers.
func (st *Streamer[F]) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(st.synth.SampleRate()),
		NumChannels: 2,
		Precision:   2,
	}
}

func (st *Streamer[F]) Stream(samples [][2]float64) (n int, ok bool) {
	if st.err != nil {
		return 0, false
	}
	if cap(st.buf) < 2*len(samples) {
		st.buf = make([]float32, 2*len(samples))
	}
	buf := st.buf[:2*len(samples)]
	if err := st.synth.ProcessTo(buf); err != nil {
		st.err = err
		return 0, false
	}
	for i := range samples {
		samples[i][0] = float64(buf[2*i])
		samples[i][1] = float64(buf[2*i+1])
	}
	return len(samples), true
}

func (st *Streamer[F]) Err() error {
	return st.err
}
