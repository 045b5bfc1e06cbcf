package render

import (
	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"

	"github.com/cwbudde/algo-instrument/internal/wavio"
)

// RoomConvolver applies a stereo impulse response to the mono voice mix using
// partitioned overlap-add convolution.
type RoomConvolver struct {
	sampleRate int
	partSize   int
	irLen      int

	leftOLA  *dspconv.StreamingOverlapAddT[float32, complex64]
	rightOLA *dspconv.StreamingOverlapAddT[float32, complex64]

	// Pre-allocated buffers for zero-allocation processing
	block    []float32
	fill     int
	leftOut  []float32
	rightOut []float32
}

// NewRoomConvolver creates a pass-through convolver.
func NewRoomConvolver(sampleRate int) (*RoomConvolver, error) {
	c := &RoomConvolver{
		sampleRate: sampleRate,
		partSize:   128,
	}
	c.block = make([]float32, c.partSize)
	if err := c.SetIR([]float32{1.0}, []float32{1.0}); err != nil {
		return nil, err
	}
	return c, nil
}

// IRLen returns the length of the longer impulse response channel.
func (c *RoomConvolver) IRLen() int {
	return c.irLen
}

// Latency returns the delay, in frames, between input and convolved output.
func (c *RoomConvolver) Latency() int {
	return c.partSize
}

// ProcessTo convolves mono input with the IR and writes interleaved stereo
// to dst, which must hold 2*len(input) samples. Input is gathered into
// partSize blocks, so any block length may be passed.
func (c *RoomConvolver) ProcessTo(dst []float32, input []float32) error {
	for i, x := range input {
		dst[2*i] = c.leftOut[c.fill]
		dst[2*i+1] = c.rightOut[c.fill]
		c.block[c.fill] = x
		c.fill++
		if c.fill < c.partSize {
			continue
		}
		c.fill = 0
		if err := c.leftOLA.ProcessBlockTo(c.leftOut, c.block); err != nil {
			return err
		}
		if err := c.rightOLA.ProcessBlockTo(c.rightOut, c.block); err != nil {
			return err
		}
	}
	return nil
}

// SetIR configures left/right impulse responses. Empty channels fall back to
// a unit impulse.
func (c *RoomConvolver) SetIR(leftIR []float32, rightIR []float32) error {
	if len(leftIR) == 0 {
		leftIR = []float32{1.0}
	}
	if len(rightIR) == 0 {
		rightIR = []float32{1.0}
	}

	leftOLA, err := dspconv.NewStreamingOverlapAdd32(leftIR, c.partSize)
	if err != nil {
		return err
	}
	rightOLA, err := dspconv.NewStreamingOverlapAdd32(rightIR, c.partSize)
	if err != nil {
		return err
	}
	c.leftOLA = leftOLA
	c.rightOLA = rightOLA
	c.irLen = max(len(leftIR), len(rightIR))

	c.leftOut = make([]float32, c.partSize)
	c.rightOut = make([]float32, c.partSize)

	c.Reset()
	return nil
}

// SetIRFromWAV loads a mono or stereo impulse response, resampled to the
// convolver rate.
func (c *RoomConvolver) SetIRFromWAV(path string) error {
	left, right, srcRate, err := wavio.ReadStereo(path)
	if err != nil {
		return err
	}
	if left, err = wavio.Resample(left, srcRate, c.sampleRate); err != nil {
		return err
	}
	if right, err = wavio.Resample(right, srcRate, c.sampleRate); err != nil {
		return err
	}
	return c.SetIR(left, right)
}

// Reset clears convolver history and overlap buffers.
func (c *RoomConvolver) Reset() {
	clear(c.block)
	clear(c.leftOut)
	clear(c.rightOut)
	c.fill = 0
	if c.leftOLA != nil {
		c.leftOLA.Reset()
	}
	if c.rightOLA != nil {
		c.rightOLA.Reset()
	}
}
