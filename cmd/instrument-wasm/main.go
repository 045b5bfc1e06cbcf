//go:build js && wasm

package main

import (
	"os"
	"syscall/js"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-instrument/instrument"
	"github.com/cwbudde/algo-instrument/preset"
	"github.com/cwbudde/algo-instrument/render"
)

const blockFrames = 128

var (
	globalSynth  *render.Synth[instrument.DynamicFreq]
	globalParams *preset.Params
	sampleRate   int
	outputBuffer []float32
)

func main() {
	// Keep program running
	c := make(chan struct{})

	logrus.SetLevel(logrus.WarnLevel)

	// Export functions to JavaScript
	js.Global().Set("wasmInit", js.FuncOf(wasmInit))
	js.Global().Set("wasmNoteOn", js.FuncOf(wasmNoteOn))
	js.Global().Set("wasmNoteOff", js.FuncOf(wasmNoteOff))
	js.Global().Set("wasmStop", js.FuncOf(wasmStop))
	js.Global().Set("wasmSetMode", js.FuncOf(wasmSetMode))
	js.Global().Set("wasmLoadIR", js.FuncOf(wasmLoadIR))
	js.Global().Set("wasmProcessBlock", js.FuncOf(wasmProcessBlock))
	js.Global().Set("wasmGetMemoryBuffer", js.FuncOf(wasmGetMemoryBuffer))

	println("WASM instrument module loaded")
	<-c
}

func rebuild() bool {
	synth, err := globalParams.Synth(sampleRate)
	if err != nil {
		println("Failed to build instrument:", err.Error())
		return false
	}
	globalSynth = synth
	return true
}

func wasmInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	sampleRate = args[0].Int()
	globalParams = preset.NewDefaultParams()
	if !rebuild() {
		return nil
	}

	// Pre-allocate output buffer for one stereo block
	outputBuffer = make([]float32, blockFrames*2)

	println("Instrument initialized at", sampleRate, "Hz")
	return nil
}

func wasmNoteOn(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || globalSynth == nil {
		return nil
	}
	globalSynth.NoteOn(args[0].Float(), float32(args[1].Float()))
	return nil
}

func wasmNoteOff(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalSynth == nil {
		return nil
	}
	globalSynth.NoteOff(args[0].Float())
	return nil
}

func wasmStop(this js.Value, args []js.Value) interface{} {
	if globalSynth != nil {
		globalSynth.Stop()
	}
	return nil
}

func wasmSetMode(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalSynth == nil {
		return nil
	}
	mode, err := instrument.ParseMode(args[0].String())
	if err != nil {
		println("Invalid mode:", err.Error())
		return nil
	}
	globalSynth.Stop()
	globalSynth.Instrument().SetMode(mode)
	globalParams.Mode = mode.String()
	return nil
}

func wasmLoadIR(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalParams == nil {
		return nil
	}

	// Get ArrayBuffer from JavaScript
	arrayBuffer := js.Global().Get("Uint8Array").New(args[0])
	length := arrayBuffer.Get("byteLength").Int()
	if length == 0 {
		println("IR data is empty")
		return nil
	}

	// Copy data from JS to Go
	irData := make([]byte, length)
	js.CopyBytesToGo(irData, arrayBuffer)

	tmpFile := "/tmp/ir.wav"
	if err := os.WriteFile(tmpFile, irData, 0o644); err != nil {
		println("Failed to write IR file:", err.Error())
		return nil
	}
	globalParams.IRWavPath = tmpFile
	if rebuild() {
		println("IR loaded successfully:", length, "bytes")
	}
	return nil
}

func wasmProcessBlock(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalSynth == nil {
		return 0
	}

	numFrames := min(args[0].Int(), blockFrames)
	if err := globalSynth.ProcessTo(outputBuffer[:numFrames*2]); err != nil {
		println("Process failed:", err.Error())
	}

	// Return pointer to buffer in WASM linear memory
	ptr := &outputBuffer[0]
	return js.ValueOf(uintptr(unsafe.Pointer(ptr)))
}

func wasmGetMemoryBuffer(this js.Value, args []js.Value) interface{} {
	// Return WASM memory buffer for access from JS
	return js.Global().Get("Go").Get("_inst").Get("exports").Get("mem").Get("buffer")
}
