package synth

import (
	"time"

	"github.com/cbegin/midifm-go/internal/effects"
)

// SystemMode selects which compatibility rules the synthesizer follows.
type SystemMode int

const (
	ModeDefault SystemMode = iota
	ModeGM
	ModeGM2
	ModeGS
	ModeXG
)

func (m SystemMode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeGM:
		return "gm"
	case ModeGM2:
		return "gm2"
	case ModeGS:
		return "gs"
	case ModeXG:
		return "xg"
	}
	return "unknown"
}

// ParseSystemMode accepts the names produced by String.
func ParseSystemMode(s string) (SystemMode, bool) {
	for m := ModeDefault; m <= ModeXG; m++ {
		if m.String() == s {
			return m, true
		}
	}
	return ModeDefault, false
}

// NumChannels is the number of MIDI channels.
const NumChannels = 16

const (
	rhythmChannel = 9
	fxTailSeconds = 4.0
)

// Params controls engine-wide behavior.
type Params struct {
	// MaxVoices caps the voice pool; 0 means unbounded.
	MaxVoices int
	// ActiveSensing is the watchdog window armed by 0xFE.
	ActiveSensing time.Duration
	// Effects enables the reverb, chorus and delay send buses.
	Effects     bool
	Reverb      effects.ReverbParams
	Chorus      effects.ChorusParams
	Delay       effects.DelayParams
	ReverbLevel float32
	ChorusLevel float32
	DelayLevel  float32
}

// DefaultParams returns the engine defaults.
func DefaultParams() Params {
	return Params{
		MaxVoices:     256,
		ActiveSensing: 330 * time.Millisecond,
		Effects:       true,
		Reverb:        effects.DefaultReverbParams(),
		Chorus:        effects.DefaultChorusParams(),
		Delay:         effects.DefaultDelayParams(),
		ReverbLevel:   0.6,
		ChorusLevel:   0.5,
		DelayLevel:    0.5,
	}
}

// Synthesizer is a 16-channel FM tone generator. It is not safe for
// concurrent use; all calls must come from the goroutine that renders.
type Synthesizer struct {
	params   Params
	pool     *Pool
	channels [NumChannels]*Channel
	mode     SystemMode

	mainVolume    float64
	masterVolume  int
	masterBalance int
	masterFine    int
	masterCoarse  int

	sensingArmed bool
	sensingLeft  float64 // seconds of audio time

	acc     []int32
	scratch []int32

	reverb *effects.Bus
	chorus *effects.Bus
	delay  *effects.Bus
	fxRate float64
	fxTail int
}

// New creates a synthesizer that builds voices with factory.
func New(factory NoteFactory, p Params) *Synthesizer {
	s := &Synthesizer{params: p, pool: NewPool(p.MaxVoices), mainVolume: 1}
	for i := range s.channels {
		s.channels[i] = newChannel(s.pool, defaultBankFor(i))
		s.channels[i].SetFactory(factory)
	}
	s.Reset()
	return s
}

func defaultBankFor(ch int) int {
	if ch == rhythmChannel {
		return percussionBank
	}
	return 0
}

// Channel returns channel ch (0-15).
func (s *Synthesizer) Channel(ch int) *Channel { return s.channels[ch&0x0F] }

// SetFactory swaps the note factory on every channel.
func (s *Synthesizer) SetFactory(f NoteFactory) {
	for _, c := range s.channels {
		c.SetFactory(f)
	}
}

// SystemMode returns the current compatibility mode.
func (s *Synthesizer) SystemMode() SystemMode { return s.mode }

// SetSystemMode resets the device and switches every channel to mode.
func (s *Synthesizer) SetSystemMode(mode SystemMode) {
	s.Reset()
	s.mode = mode
	for _, c := range s.channels {
		c.SetSystemMode(mode)
	}
}

// Reset silences everything at once and restores power-on state. The
// system mode is kept.
func (s *Synthesizer) Reset() {
	for i, c := range s.channels {
		c.AllSoundOffImmediately()
		c.defaultBank = defaultBankFor(i)
		c.ResetAllParameters()
	}
	s.masterVolume = max14
	s.masterBalance = center14
	s.masterFine = center14
	s.masterCoarse = 64
	s.applyMasterTune()
	s.sensingArmed = false
	s.sensingLeft = 0
	if s.reverb != nil {
		s.reverb.Reset()
		s.chorus.Reset()
		s.delay.Reset()
	}
	s.fxTail = 0
}

// SetMainVolume sets the host output gain (0..1, values above 1 amplify).
func (s *Synthesizer) SetMainVolume(v float64) {
	if v < 0 {
		v = 0
	}
	s.mainVolume = v
}

func (s *Synthesizer) MainVolume() float64 { return s.mainVolume }

// MasterVolume, MasterBalance and MasterFineTuning are 14-bit values set by
// universal SysEx; MasterCoarseTuning is 7-bit with 64 = no shift.
func (s *Synthesizer) MasterVolume() int       { return s.masterVolume }
func (s *Synthesizer) MasterBalance() int      { return s.masterBalance }
func (s *Synthesizer) MasterFineTuning() int   { return s.masterFine }
func (s *Synthesizer) MasterCoarseTuning() int { return s.masterCoarse }

func (s *Synthesizer) applyMasterTune() {
	semis := float64(s.masterCoarse-64) + float64(s.masterFine-center14)/center14
	for _, c := range s.channels {
		c.setMasterTune(semis)
	}
}

// ActiveVoices returns the number of voices held by all channels.
func (s *Synthesizer) ActiveVoices() int {
	n := 0
	for _, c := range s.channels {
		n += c.ActiveVoices()
	}
	return n
}

// AllSoundOff forces every voice on every channel into its fast fade.
func (s *Synthesizer) AllSoundOff() {
	for _, c := range s.channels {
		c.AllSoundOff()
	}
}

// SensingArmed reports whether the active-sensing watchdog is running.
func (s *Synthesizer) SensingArmed() bool { return s.sensingArmed }

// MIDIEvent handles a short MIDI message.
func (s *Synthesizer) MIDIEvent(status, data1, data2 int) {
	if s.sensingArmed {
		s.sensingLeft = s.params.ActiveSensing.Seconds()
	}
	switch {
	case status == 0xFE:
		s.sensingArmed = true
		s.sensingLeft = s.params.ActiveSensing.Seconds()
		return
	case status == 0xFF:
		s.Reset()
		return
	case status < 0x80 || status >= 0xF0:
		return
	}
	data1 &= 0x7F
	data2 &= 0x7F
	c := s.channels[status&0x0F]
	switch status & 0xF0 {
	case 0x80:
		c.NoteOff(data1, data2)
	case 0x90:
		c.NoteOn(data1, data2)
	case 0xA0:
		c.PolyPressure(data1, data2)
	case 0xB0:
		c.ControlChange(data1, data2)
	case 0xC0:
		c.ProgramChange(data1)
	case 0xD0:
		c.ChannelPressure(data1)
	case 0xE0:
		c.PitchBend(data2<<7 | data1)
	}
}

// Synthesize renders count stereo frames into out (interleaved, len >=
// 2*count), overwriting it. It returns the number of voices processed.
func (s *Synthesizer) Synthesize(out []int16, count int, sampleRate float64) int {
	out = out[:2*count]
	if s.ActiveVoices() == 0 && s.fxTail <= 0 {
		clear(out)
		s.tickSensing(count, sampleRate)
		return 0
	}
	if cap(s.acc) < 2*count {
		s.acc = make([]int32, 2*count)
	}
	acc := s.acc[:2*count]
	clear(acc)
	n := s.SynthesizeMixing(acc, count, sampleRate)
	for i, v := range acc {
		out[i] = saturate16(v)
	}
	return n
}

// SynthesizeMixing adds count stereo frames into acc. The caller owns the
// prior contents of acc.
func (s *Synthesizer) SynthesizeMixing(acc []int32, count int, sampleRate float64) int {
	s.tickSensing(count, sampleRate)
	acc = acc[:2*count]
	master := s.mainVolume * float64(s.masterVolume) / max14

	fx := s.prepareEffects(count, sampleRate)
	n := 0
	for _, c := range s.channels {
		if c.ActiveVoices() == 0 {
			continue
		}
		if !fx || (c.reverbSend == 0 && c.chorusSend == 0 && c.delaySend == 0) {
			n += c.Synthesize(acc, count, sampleRate, master, s.masterBalance)
			continue
		}
		if cap(s.scratch) < 2*count {
			s.scratch = make([]int32, 2*count)
		}
		dry := s.scratch[:2*count]
		clear(dry)
		n += c.Synthesize(dry, count, sampleRate, master, s.masterBalance)
		for i, v := range dry {
			acc[i] += v
		}
		s.reverb.Send(dry, float32(c.reverbSend)/127)
		s.chorus.Send(dry, float32(c.chorusSend)/127)
		s.delay.Send(dry, float32(c.delaySend)/127)
	}
	if fx {
		if s.reverb.Used() || s.chorus.Used() || s.delay.Used() {
			s.fxTail = int(fxTailSeconds * sampleRate)
		}
		if s.fxTail > 0 {
			s.reverb.Return(acc)
			s.chorus.Return(acc)
			s.delay.Return(acc)
			s.fxTail -= count
		}
	}
	return n
}

// tickSensing counts the watchdog down; on expiry every voice is forced
// off once and the watchdog disarms.
func (s *Synthesizer) tickSensing(count int, sampleRate float64) {
	if !s.sensingArmed {
		return
	}
	if s.sensingLeft <= 0 {
		s.sensingArmed = false
		s.AllSoundOff()
		return
	}
	if sampleRate > 0 {
		s.sensingLeft -= float64(count) / sampleRate
	}
}

func (s *Synthesizer) prepareEffects(count int, sampleRate float64) bool {
	if !s.params.Effects || sampleRate <= 0 {
		return false
	}
	if s.reverb == nil || s.fxRate != sampleRate {
		rate := int(sampleRate)
		s.reverb = effects.NewBus(effects.NewReverb(rate, s.params.Reverb), s.params.ReverbLevel)
		s.chorus = effects.NewBus(effects.NewChorus(rate, s.params.Chorus), s.params.ChorusLevel)
		s.delay = effects.NewBus(effects.NewDelay(rate, s.params.Delay), s.params.DelayLevel)
		s.fxRate = sampleRate
	}
	s.reverb.Begin(count)
	s.chorus.Begin(count)
	s.delay.Begin(count)
	return true
}
