package midifm

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"

	intaudio "github.com/cbegin/midifm-go/internal/audio"
	intbank "github.com/cbegin/midifm-go/internal/bank"
	intmf "github.com/cbegin/midifm-go/internal/midifile"
	intseq "github.com/cbegin/midifm-go/internal/sequencer"
	intsynth "github.com/cbegin/midifm-go/internal/synth"
)

// ErrNoSource is returned by Send when nothing is playing.
var ErrNoSource = errors.New("midifm: no active playback")

// Event is a MIDI message at an absolute time.
type Event = intmf.Event

// NoteFactory builds voices for the synthesizer.
type NoteFactory = intsynth.NoteFactory

// SystemMode selects GM/GS/XG compatibility behavior.
type SystemMode = intsynth.SystemMode

// Params tunes the synthesis engine.
type Params = intsynth.Params

const (
	ModeDefault = intsynth.ModeDefault
	ModeGM      = intsynth.ModeGM
	ModeGM2     = intsynth.ModeGM2
	ModeGS      = intsynth.ModeGS
	ModeXG      = intsynth.ModeXG
)

// PlaybackEvent carries playback events from Watch().
type PlaybackEvent struct {
	Kind int // EventLoopCompleted or EventPlaybackEnded
}

const (
	EventLoopCompleted int = iota
	EventPlaybackEnded
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	mode    SystemMode
	factory NoteFactory
	params  Params
	loop    bool
	volume  float64
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{params: DefaultParams(), volume: 1}
}

func WithSystemMode(mode SystemMode) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.mode = mode
	}
}

// WithBank replaces the built-in program bank.
func WithBank(f NoteFactory) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.factory = f
	}
}

func WithParams(p Params) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.params = p
	}
}

// WithLoop restarts file playback from the top after it ends.
func WithLoop(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.loop = enabled
	}
}

// WithMainVolume sets the initial host output gain.
func WithMainVolume(volume float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.volume = max(volume, 0)
	}
}

func DefaultParams() Params { return intsynth.DefaultParams() }

// DefaultBank returns the built-in General MIDI style bank.
func DefaultBank() NoteFactory { return intbank.New() }

// LoadBank reads patch definitions from path on top of the built-in bank.
func LoadBank(path string) (NoteFactory, error) {
	b := intbank.New()
	if _, err := b.LoadFile(path); err != nil {
		return nil, err
	}
	return b, nil
}

// ParseSystemMode accepts default, gm, gm2, gs and xg.
func ParseSystemMode(name string) (SystemMode, error) {
	m, ok := intsynth.ParseSystemMode(name)
	if !ok {
		return 0, fmt.Errorf("unknown system mode %q (expected default|gm|gm2|gs|xg)", name)
	}
	return m, nil
}

func (cfg playerConfig) newSynth(volume float64) *intsynth.Synthesizer {
	f := cfg.factory
	if f == nil {
		f = intbank.New()
	}
	s := intsynth.New(f, cfg.params)
	s.SetSystemMode(cfg.mode)
	s.SetMainVolume(volume)
	return s
}

type Player struct {
	mu         sync.Mutex
	cfg        playerConfig
	sampleRate int
	volume     float64
	synth      *intsynth.Synthesizer
	seq        *intseq.Sequencer
	audio      *intaudio.Player
	done       chan struct{}
	eventCh    chan PlaybackEvent
	eventChMu  sync.Mutex
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Player{cfg: cfg, sampleRate: sampleRate, volume: cfg.volume}, nil
}

// PlayFile loads a Standard MIDI File and starts playing it.
func (p *Player) PlayFile(path string) error {
	events, err := intmf.LoadFile(path)
	if err != nil {
		return err
	}
	return p.PlayEvents(events)
}

// PlayEvents starts playing a time-ordered event list, replacing any
// current playback.
func (p *Player) PlayEvents(events []Event) error {
	return p.start(events, false)
}

// Start opens the output for live input only; use Send to play.
func (p *Player) Start() error {
	return p.start(nil, true)
}

func (p *Player) start(events []Event, hold bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Signal any existing Wait() that the previous playback was replaced
	if p.done != nil {
		close(p.done)
	}
	p.done = make(chan struct{})

	// A fresh synthesizer per playback keeps controller and voice state
	// from leaking between songs.
	synth := p.cfg.newSynth(p.volume)
	seq := intseq.NewWithOptions(synth, events, p.sampleRate, intseq.Options{
		Loop:    p.cfg.loop && !hold,
		Hold:    hold,
		OnEvent: p.onSequencerEvent,
	})
	backend, err := intaudio.NewPlayer(p.sampleRate, seq)
	if err != nil {
		close(p.done)
		p.done = nil
		return err
	}
	if p.audio != nil {
		_ = p.audio.Stop()
	}
	p.synth = synth
	p.seq = seq
	p.audio = backend
	p.audio.Play()
	return nil
}

// onSequencerEvent runs on the audio goroutine.
func (p *Player) onSequencerEvent(kind intseq.EventKind) {
	switch kind {
	case intseq.EventLoopCompleted:
		p.sendEvent(PlaybackEvent{Kind: EventLoopCompleted})
	case intseq.EventPlaybackEnded:
		p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
		go p.signalDone()
	}
}

// Send queues a live MIDI message for the current playback.
func (p *Player) Send(msg midi.Message) error {
	p.mu.Lock()
	seq := p.seq
	p.mu.Unlock()
	if seq == nil {
		return ErrNoSource
	}
	seq.Push(msg)
	return nil
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

func (p *Player) signalDone() {
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

func (p *Player) Stop() error {
	p.mu.Lock()
	if p.audio == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	p.seq = nil
	p.synth = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	if done != nil {
		close(done)
	}
	return err
}

// Wait blocks until the current playback ends. Looping and live playback
// only end through Stop. Wait returns immediately if nothing is playing.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel that receives playback events. The channel is
// buffered (cap 8); only the most recent Watch() channel receives events.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// SetMainVolume sets the host output gain. 1.0 is default.
func (p *Player) SetMainVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	if p.seq != nil {
		synth := p.synth
		p.seq.WithLock(func() { synth.SetMainVolume(volume) })
	}
}

func (p *Player) MainVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Position returns what the listener has heard of the current playback.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return a.Position()
}
