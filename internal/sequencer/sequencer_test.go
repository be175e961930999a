package sequencer

import (
	"testing"
	"time"

	"github.com/cbegin/midifm-go/internal/bank"
	"github.com/cbegin/midifm-go/internal/midifile"
	"github.com/cbegin/midifm-go/internal/synth"
)

type call struct {
	frame  int64
	status int
	d1, d2 int
}

// recordingSynth logs the frame position of every message it receives.
type recordingSynth struct {
	frame  int64
	calls  []call
	sysex  [][]byte
	voices int
	blocks []int
}

func (r *recordingSynth) MIDIEvent(status, d1, d2 int) {
	r.calls = append(r.calls, call{r.frame, status, d1, d2})
	switch status & 0xF0 {
	case 0x90:
		r.voices++
	case 0x80:
		r.voices--
	}
}

func (r *recordingSynth) SysexMessage(b []byte) bool {
	r.sysex = append(r.sysex, b)
	return true
}

func (r *recordingSynth) Synthesize(out []int16, count int, sampleRate float64) int {
	r.frame += int64(count)
	r.blocks = append(r.blocks, count)
	return r.voices
}

func (r *recordingSynth) ActiveVoices() int { return r.voices }

func TestProcessDispatchesAtExactFrames(t *testing.T) {
	events := []midifile.Event{
		{At: 0, Data: []byte{0x90, 60, 100}},
		{At: 10 * time.Millisecond, Data: []byte{0x80, 60, 0}},
		{At: 10 * time.Millisecond, Data: []byte{0xF0, 0x7E, 0x7F, 0x09, 0x01, 0xF7}},
		{At: 25 * time.Millisecond, Data: []byte{0xB0, 7, 90}},
	}
	r := &recordingSynth{}
	seq := New(r, events, 48000)
	buf := make([]int16, 2*256)
	for i := 0; i < 8; i++ {
		seq.Process(buf)
	}
	want := []call{
		{0, 0x90, 60, 100},
		{480, 0x80, 60, 0},
		{1200, 0xB0, 7, 90},
	}
	if len(r.calls) != len(want) {
		t.Fatalf("calls = %v", r.calls)
	}
	for i := range want {
		if r.calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, r.calls[i], want[i])
		}
	}
	if len(r.sysex) != 1 {
		t.Fatalf("sysex calls = %d", len(r.sysex))
	}
	if r.frame != 8*256 {
		t.Fatalf("rendered %d frames", r.frame)
	}
}

func TestPlaybackEndsAfterTail(t *testing.T) {
	var ended int
	r := &recordingSynth{}
	seq := NewWithOptions(r, []midifile.Event{
		{At: 0, Data: []byte{0x90, 60, 100}},
		{At: time.Millisecond, Data: []byte{0x80, 60, 0}},
	}, 1000, Options{ReleaseTailFrames: 10, OnEvent: func(k EventKind) {
		if k == EventPlaybackEnded {
			ended++
		}
	}})
	buf := make([]int16, 2*5)
	seq.Process(buf)
	if seq.Finished() {
		t.Fatal("finished before the release tail")
	}
	for i := 0; i < 5; i++ {
		seq.Process(buf)
	}
	if !seq.Finished() || ended != 1 {
		t.Fatalf("finished=%v ended events=%d", seq.Finished(), ended)
	}
}

func TestLoopRestartsPlayback(t *testing.T) {
	var loops int
	r := &recordingSynth{}
	seq := NewWithOptions(r, []midifile.Event{
		{At: 0, Data: []byte{0x90, 60, 100}},
		{At: 2 * time.Millisecond, Data: []byte{0x80, 60, 0}},
	}, 1000, Options{Loop: true, ReleaseTailFrames: 3, OnEvent: func(k EventKind) {
		if k == EventLoopCompleted {
			loops++
		}
	}})
	buf := make([]int16, 2*10)
	for i := 0; i < 5; i++ {
		seq.Process(buf)
	}
	if loops < 2 {
		t.Fatalf("expected repeated loops, got %d", loops)
	}
	if seq.Finished() {
		t.Fatal("looping playback never finishes")
	}
	var resets int
	for _, c := range r.calls {
		if c.status&0xF0 == 0xB0 && c.d1 == 0x79 {
			resets++
		}
	}
	if resets != 16*loops {
		t.Fatalf("expected controller resets on every channel per loop, got %d", resets)
	}
}

func TestPushAppliesLiveMessages(t *testing.T) {
	r := &recordingSynth{}
	seq := New(r, nil, 48000)
	seq.Push([]byte{0x91, 64, 80})
	seq.Push(nil)
	seq.Process(make([]int16, 64))
	if len(r.calls) != 1 || r.calls[0].status != 0x91 {
		t.Fatalf("calls = %v", r.calls)
	}
}

func TestRewindAndPosition(t *testing.T) {
	r := &recordingSynth{}
	seq := New(r, []midifile.Event{{At: 0, Data: []byte{0xC0, 1}}}, 1000)
	seq.Process(make([]int16, 2*500))
	if got := seq.Position(); got != 500*time.Millisecond {
		t.Fatalf("position = %v", got)
	}
	seq.Rewind()
	if seq.Position() != 0 {
		t.Fatal("rewind should reset position")
	}
	seq.Process(make([]int16, 2))
	if len(r.calls) != 2 {
		t.Fatalf("rewind should replay events, calls %v", r.calls)
	}
}

func TestDispatchIgnoresDataBytes(t *testing.T) {
	r := &recordingSynth{}
	Dispatch(r, []byte{0x40, 0x10})
	Dispatch(r, nil)
	Dispatch(r, []byte{0xD2, 0x30})
	if len(r.calls) != 1 || r.calls[0] != (call{0, 0xD2, 0x30, 0}) {
		t.Fatalf("calls = %v", r.calls)
	}
}

func TestSequencerDrivesSynthesizer(t *testing.T) {
	p := synth.DefaultParams()
	s := synth.New(bank.New(), p)
	seq := New(s, []midifile.Event{
		{At: 0, Data: []byte{0x90, 60, 100}},
		{At: 100 * time.Millisecond, Data: []byte{0x80, 60, 0}},
	}, 48000)
	buf := make([]int16, 48000/4*2)
	seq.Process(buf)
	var energy int64
	for _, v := range buf {
		if v < 0 {
			energy -= int64(v)
		} else {
			energy += int64(v)
		}
	}
	if energy == 0 {
		t.Fatal("expected non-zero audio energy")
	}
}

func BenchmarkSequencerProcess(b *testing.B) {
	events := make([]midifile.Event, 0, 64)
	for i := 0; i < 32; i++ {
		at := time.Duration(i) * 20 * time.Millisecond
		events = append(events,
			midifile.Event{At: at, Data: []byte{0x90, byte(48 + i%24), 100}},
			midifile.Event{At: at + 15*time.Millisecond, Data: []byte{0x80, byte(48 + i%24), 0}})
	}
	buf := make([]int16, 2048*2)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		seq := New(synth.New(bank.New(), synth.DefaultParams()), events, 48000)
		seq.Process(buf)
	}
}

func TestHoldNeverEnds(t *testing.T) {
	r := &recordingSynth{}
	seq := NewWithOptions(r, nil, 1000, Options{Hold: true, ReleaseTailFrames: 1})
	for i := 0; i < 4; i++ {
		seq.Process(make([]int16, 2*100))
	}
	if seq.Finished() {
		t.Fatal("held sequencer finished")
	}
	var ran bool
	seq.WithLock(func() { ran = true })
	if !ran {
		t.Fatal("WithLock did not run")
	}
}
