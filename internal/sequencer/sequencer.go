// Package sequencer plays a timed MIDI event list through a synthesizer,
// dispatching each event at its exact sample position.
package sequencer

import (
	"sync"
	"time"

	"github.com/cbegin/midifm-go/internal/midifile"
)

// Target receives MIDI messages.
type Target interface {
	MIDIEvent(status, data1, data2 int)
	SysexMessage(b []byte) bool
}

// Synth is the tone generator driven by the sequencer.
type Synth interface {
	Target
	Synthesize(out []int16, count int, sampleRate float64) int
	ActiveVoices() int
}

// EventKind identifies sequencer lifecycle events.
type EventKind int

const (
	EventLoopCompleted EventKind = iota
	EventPlaybackEnded
)

type Options struct {
	Loop    bool
	OnEvent func(EventKind) // called from Process; must not call back into the Sequencer
	// ReleaseTailFrames is rendered after the last event once no voices
	// remain, so effect tails ring out (0 = one second).
	ReleaseTailFrames int
	// Hold keeps the sequencer running after the last event, for live input.
	Hold bool
}

// Sequencer is safe for concurrent use: Push may be called from any
// goroutine while the audio goroutine calls Process.
type Sequencer struct {
	mu         sync.Mutex
	synth      Synth
	events     []midifile.Event
	sampleRate int
	next       int
	frame      int64 // frames since the start of the current pass
	live       [][]byte

	loop        bool
	hold        bool
	onEvent     func(EventKind)
	releaseTail int
	tailLeft    int
	ended       bool
}

func New(synth Synth, events []midifile.Event, sampleRate int) *Sequencer {
	return NewWithOptions(synth, events, sampleRate, Options{})
}

func NewWithOptions(synth Synth, events []midifile.Event, sampleRate int, opts Options) *Sequencer {
	tail := opts.ReleaseTailFrames
	if tail <= 0 {
		tail = sampleRate
	}
	return &Sequencer{
		synth:       synth,
		events:      events,
		sampleRate:  sampleRate,
		loop:        opts.Loop,
		hold:        opts.Hold,
		onEvent:     opts.OnEvent,
		releaseTail: tail,
		tailLeft:    tail,
	}
}

// Push queues a live message; it is applied at the start of the next
// Process call.
func (s *Sequencer) Push(msg []byte) {
	if len(msg) == 0 {
		return
	}
	s.mu.Lock()
	s.live = append(s.live, append([]byte(nil), msg...))
	s.mu.Unlock()
}

// Process fills dst (interleaved stereo) with the next len(dst)/2 frames.
func (s *Sequencer) Process(dst []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.live {
		Dispatch(s.synth, m)
	}
	s.live = s.live[:0]

	frames := len(dst) / 2
	rate := float64(s.sampleRate)
	for done := 0; done < frames; {
		for s.next < len(s.events) && s.eventFrame(s.next) <= s.frame {
			Dispatch(s.synth, s.events[s.next].Data)
			s.next++
		}
		n := frames - done
		if s.next < len(s.events) {
			if until := s.eventFrame(s.next) - s.frame; until < int64(n) {
				n = int(until)
			}
		}
		s.synth.Synthesize(dst[2*done:2*(done+n)], n, rate)
		done += n
		s.frame += int64(n)
		s.advanceTail(n)
	}
}

func (s *Sequencer) eventFrame(i int) int64 {
	return int64(s.events[i].At) * int64(s.sampleRate) / int64(time.Second)
}

// advanceTail counts down the release tail once every event has been
// played and the synthesizer has gone quiet, then loops or ends.
func (s *Sequencer) advanceTail(n int) {
	if s.ended || s.hold || s.next < len(s.events) || s.synth.ActiveVoices() > 0 {
		return
	}
	s.tailLeft -= n
	if s.tailLeft > 0 {
		return
	}
	if s.loop {
		s.next = 0
		s.frame = 0
		s.tailLeft = s.releaseTail
		for ch := 0; ch < 16; ch++ {
			s.synth.MIDIEvent(0xB0|ch, 0x79, 0)
		}
		s.fire(EventLoopCompleted)
		return
	}
	s.ended = true
	s.fire(EventPlaybackEnded)
}

func (s *Sequencer) fire(kind EventKind) {
	if s.onEvent != nil {
		s.onEvent(kind)
	}
}

// WithLock runs fn while no block is being rendered.
func (s *Sequencer) WithLock(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Finished reports whether playback ended. A looping sequencer never
// finishes.
func (s *Sequencer) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Position returns the playback time within the current pass.
func (s *Sequencer) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.frame * int64(time.Second) / int64(s.sampleRate))
}

// Rewind restarts playback from the first event.
func (s *Sequencer) Rewind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = 0
	s.frame = 0
	s.tailLeft = s.releaseTail
	s.ended = false
}

// Dispatch sends one raw MIDI message to t. Running status is not
// supported; messages must carry their status byte.
func Dispatch(t Target, msg []byte) {
	if len(msg) == 0 {
		return
	}
	status := msg[0]
	switch {
	case status == 0xF0:
		t.SysexMessage(msg)
	case status >= 0x80:
		var d1, d2 int
		if len(msg) > 1 {
			d1 = int(msg[1])
		}
		if len(msg) > 2 {
			d2 = int(msg[2])
		}
		t.MIDIEvent(int(status), d1, d2)
	}
}
