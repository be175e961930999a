package midifm

import (
	"encoding/binary"
	"time"

	intmf "github.com/cbegin/midifm-go/internal/midifile"
	intseq "github.com/cbegin/midifm-go/internal/sequencer"
)

const (
	renderBlock = 1024
	// maxRenderTail bounds rendering past the last event when notes never
	// release.
	maxRenderTail = 30 * time.Second
)

// RenderEvents renders events to interleaved stereo PCM, stopping once the
// last note and its effect tail have died away. Looping is ignored.
func RenderEvents(events []Event, sampleRate int, opts ...PlayerOption) []int16 {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	seq := intseq.New(cfg.newSynth(cfg.volume), events, sampleRate)
	limit := durationFrames(intmf.Duration(events)+maxRenderTail, sampleRate)
	out := make([]int16, 0, 2*durationFrames(intmf.Duration(events)+time.Second, sampleRate))
	buf := make([]int16, 2*renderBlock)
	for frames := 0; frames < limit && !seq.Finished(); frames += renderBlock {
		seq.Process(buf)
		out = append(out, buf...)
	}
	return out
}

// RenderFile loads a Standard MIDI File and renders it.
func RenderFile(path string, sampleRate int, opts ...PlayerOption) ([]int16, error) {
	events, err := intmf.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return RenderEvents(events, sampleRate, opts...), nil
}

func durationFrames(d time.Duration, sampleRate int) int {
	return int(d.Seconds() * float64(sampleRate))
}

// EncodeWAV16LE wraps interleaved 16-bit samples in a PCM WAV container.
func EncodeWAV16LE(samples []int16, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 2
	byteRate := sampleRate * channels * 2
	blockAlign := channels * 2
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 16)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[44+i*2:], uint16(s))
	}
	return out
}
