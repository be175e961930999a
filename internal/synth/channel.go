package synth

import "math"

const (
	// percussionBank is the default bank of a rhythm channel (MSB 120).
	percussionBank = 0x3C00
	// xgDrumBank is the XG drum region (MSB 127).
	xgDrumBank  = 0x3F80
	bankMSBMask = 0x3F80

	rpnNull = 0x3FFF

	rpnBendSensitivity = 0x0000
	rpnFineTuning      = 0x0001
	rpnCoarseTuning    = 0x0002
	rpnModulationRange = 0x0005

	vibratoHz       = 5.5
	tremoloHz       = 6.0
	maxTremoloDepth = 0.5
)

type activeVoice struct {
	ref      VoiceRef
	key      int
	on       bool
	pressure int
}

// Channel is one MIDI channel: controller state plus its active voices.
// Controller values are 14-bit (MSB<<7 | LSB) unless noted.
type Channel struct {
	pool    *Pool
	factory NoteFactory
	mode    SystemMode

	defaultBank int
	bank        int
	program     int

	volume     int
	expression int
	pan        int

	pitchBend       int
	bendSensitivity int
	fineTuning      int
	coarseTuning    int
	masterTune      float64 // semitones, set by the synthesizer

	modulation      int
	modulationRange int
	pressure        int // 0-127

	damper    int // 0-127
	sostenuto int
	freeze    int

	reverbSend int // 0-127
	chorusSend int
	delaySend  int

	rpn          int
	nrpn         int
	nrpnSelected bool

	mono bool
	mute bool

	freqMul float64
	voices  []activeVoice
	pending Voice
}

func newChannel(pool *Pool, defaultBank int) *Channel {
	c := &Channel{pool: pool, defaultBank: defaultBank, freqMul: 1}
	c.ResetAllParameters()
	return c
}

// SetFactory replaces the note factory used for subsequent note-ons.
func (c *Channel) SetFactory(f NoteFactory) { c.factory = f }

// SetSystemMode changes how bank select is interpreted.
func (c *Channel) SetSystemMode(m SystemMode) { c.mode = m }

// NoteOn starts a note. Velocity 0 is a note-off.
func (c *Channel) NoteOn(key, velocity int) {
	key &= 0x7F
	velocity &= 0x7F
	c.NoteOff(key, 0)
	if velocity == 0 || c.factory == nil {
		return
	}
	if c.mono {
		c.AllSoundOff()
	}

	// Build first so a refused note never steals a sounding voice.
	if !c.build(&c.pending, key, velocity) {
		return
	}
	ref, v := c.pool.Alloc()
	*v = c.pending
	if group := v.AssignGroup(); group != 0 {
		for _, av := range c.voices {
			if o := c.pool.Get(av.ref); o != nil && o.AssignGroup() == group {
				o.SoundOff()
			}
		}
	}
	v.SetFreeze(c.freeze)
	v.SetDamper(c.damper)
	v.SetSostenuto(c.sostenuto)
	v.SetVibrato(c.vibratoCents(), vibratoHz)
	v.SetTremolo(tremoloDepth(c.pressure), tremoloHz)
	c.voices = append(c.voices, activeVoice{ref: ref, key: key, on: true})
}

func (c *Channel) build(v *Voice, key, velocity int) bool {
	if c.IsPercussion() {
		df, ok := c.factory.(DrumFactory)
		if !ok {
			return false
		}
		return df.Drum(v, (c.bank&0x7F)<<7|c.program, key, velocity, c.freqMul)
	}
	return c.factory.Note(v, c.ProgramID(), key, velocity, c.freqMul)
}

// NoteOff releases the sounding voice on key.
func (c *Channel) NoteOff(key, velocity int) {
	key &= 0x7F
	for i := range c.voices {
		av := &c.voices[i]
		if !av.on || av.key != key {
			continue
		}
		av.on = false
		if v := c.pool.Get(av.ref); v != nil {
			v.NoteOff()
		}
	}
}

// AllNoteOff releases every voice gracefully.
func (c *Channel) AllNoteOff() {
	c.each(func(av *activeVoice, v *Voice) {
		av.on = false
		v.NoteOff()
	})
}

// AllSoundOff forces every voice into its fast fade.
func (c *Channel) AllSoundOff() {
	c.each(func(av *activeVoice, v *Voice) {
		av.on = false
		v.SoundOff()
	})
}

// AllSoundOffImmediately drops every voice with no tail.
func (c *Channel) AllSoundOffImmediately() {
	for _, av := range c.voices {
		c.pool.Release(av.ref)
	}
	c.voices = c.voices[:0]
}

func (c *Channel) each(fn func(av *activeVoice, v *Voice)) {
	for i := range c.voices {
		if v := c.pool.Get(c.voices[i].ref); v != nil {
			fn(&c.voices[i], v)
		}
	}
}

// ControlChange handles a control change message.
func (c *Channel) ControlChange(controller, value int) {
	value &= 0x7F
	switch controller & 0x7F {
	case 0x00:
		c.BankSelect(value<<7 | c.bank&0x7F)
	case 0x20:
		c.BankSelect(c.bank&bankMSBMask | value)
	case 0x01:
		c.SetModulation(msb(value))
	case 0x21:
		c.SetModulation(lsb(c.modulation, value))
	case 0x06:
		if cur, ok := c.parameter(); ok {
			c.setParameter(cur&0x7F | value<<7)
		}
	case 0x26:
		if cur, ok := c.parameter(); ok {
			c.setParameter(lsb(cur, value))
		}
	case 0x07:
		c.volume = msb(value)
	case 0x27:
		c.volume = lsb(c.volume, value)
	case 0x0A:
		c.pan = msb(value)
	case 0x2A:
		c.pan = lsb(c.pan, value)
	case 0x0B:
		c.expression = msb(value)
	case 0x2B:
		c.expression = lsb(c.expression, value)
	case 0x40:
		c.SetDamper(value)
	case 0x42:
		c.SetSostenuto(value)
	case 0x45:
		c.SetFreeze(value)
	case 0x5B:
		c.reverbSend = value
	case 0x5D:
		c.chorusSend = value
	case 0x5E:
		c.delaySend = value
	case 0x60:
		if cur, ok := c.parameter(); ok && cur < max14 {
			c.setParameter(cur + 1)
		}
	case 0x61:
		if cur, ok := c.parameter(); ok && cur > 0 {
			c.setParameter(cur - 1)
		}
	case 0x62:
		c.nrpn = c.nrpn&bankMSBMask | value
		c.nrpnSelected = true
	case 0x63:
		c.nrpn = value<<7 | c.nrpn&0x7F
		c.nrpnSelected = true
	case 0x64:
		c.rpn = c.rpn&bankMSBMask | value
		c.nrpnSelected = false
	case 0x65:
		c.rpn = value<<7 | c.rpn&0x7F
		c.nrpnSelected = false
	case 0x78:
		c.AllSoundOff()
	case 0x79:
		c.ResetAllController()
	case 0x7B, 0x7C, 0x7D:
		c.AllNoteOff()
	case 0x7E:
		c.AllNoteOff()
		c.mono = true
	case 0x7F:
		c.AllNoteOff()
		c.mono = false
	}
}

func msb(v int) int      { return v << 7 }
func lsb(cur, v int) int { return cur&bankMSBMask | v }

// parameter returns the value of the selected RPN. No NRPNs are mapped.
func (c *Channel) parameter() (int, bool) {
	if c.nrpnSelected {
		return 0, false
	}
	switch c.rpn {
	case rpnBendSensitivity:
		return c.bendSensitivity, true
	case rpnFineTuning:
		return c.fineTuning, true
	case rpnCoarseTuning:
		return c.coarseTuning, true
	case rpnModulationRange:
		return c.modulationRange, true
	}
	return 0, false
}

func (c *Channel) setParameter(v int) {
	v = clampInt(v, 0, max14)
	switch c.rpn {
	case rpnBendSensitivity:
		c.bendSensitivity = v
		c.retune()
	case rpnFineTuning:
		c.fineTuning = v
		c.retune()
	case rpnCoarseTuning:
		c.coarseTuning = v
		c.retune()
	case rpnModulationRange:
		c.modulationRange = v
		c.applyVibrato()
	}
}

// BankSelect sets the bank, reproducing each mode's bank switching rules.
func (c *Channel) BankSelect(value int) {
	value &= max14
	drumDefault := c.defaultBank == percussionBank
	switch c.mode {
	case ModeGM:
	case ModeGM2:
		c.bank = value
	case ModeGS:
		// Banks never cross the percussion region; rhythm parts switch
		// through the GS rhythm-part message.
		if (c.bank&bankMSBMask == percussionBank) != (value&bankMSBMask == percussionBank) {
			return
		}
		c.bank = value
	case ModeXG:
		switch {
		case value&bankMSBMask == xgDrumBank:
			c.bank = percussionBank | value&0x7F
		case drumDefault && value>>7 == 0:
			c.bank = percussionBank | value&0x7F
		default:
			c.bank = value
		}
	default:
		if drumDefault {
			c.bank = percussionBank | value&0x7F
		} else {
			c.bank = value
		}
	}
}

// ProgramChange selects a program within the current bank.
func (c *Channel) ProgramChange(program int) { c.program = program & 0x7F }

// ProgramID is bank<<7 | program.
func (c *Channel) ProgramID() int { return c.bank<<7 | c.program }

// IsPercussion reports whether the current bank is a rhythm bank.
func (c *Channel) IsPercussion() bool { return c.bank&bankMSBMask == percussionBank }

// PitchBend takes a 14-bit value, 8192 = center.
func (c *Channel) PitchBend(value int) {
	c.pitchBend = clampInt(value, 0, max14)
	c.retune()
}

// ChannelPressure sets tremolo depth on every voice.
func (c *Channel) ChannelPressure(value int) {
	c.pressure = value & 0x7F
	c.each(func(av *activeVoice, v *Voice) {
		v.SetTremolo(tremoloDepth(max(c.pressure, av.pressure)), tremoloHz)
	})
}

// PolyPressure sets tremolo depth on the voices playing key.
func (c *Channel) PolyPressure(key, value int) {
	key &= 0x7F
	value &= 0x7F
	c.each(func(av *activeVoice, v *Voice) {
		if av.key != key {
			return
		}
		av.pressure = value
		v.SetTremolo(tremoloDepth(max(c.pressure, value)), tremoloHz)
	})
}

func tremoloDepth(pressure int) float64 {
	return float64(pressure) / 127 * maxTremoloDepth
}

// SetModulation sets the 14-bit modulation wheel depth.
func (c *Channel) SetModulation(value int) {
	c.modulation = clampInt(value, 0, max14)
	c.applyVibrato()
}

func (c *Channel) applyVibrato() {
	cents := c.vibratoCents()
	c.each(func(_ *activeVoice, v *Voice) { v.SetVibrato(cents, vibratoHz) })
}

// vibratoCents scales the wheel by the modulation depth range RPN
// (MSB semitones, LSB 1/128 semitone).
func (c *Channel) vibratoCents() float64 {
	rng := float64(c.modulationRange>>7)*100 + float64(c.modulationRange&0x7F)*100/128
	return float64(c.modulation) / max14 * rng
}

func (c *Channel) SetDamper(value int) {
	c.damper = value & 0x7F
	c.each(func(_ *activeVoice, v *Voice) { v.SetDamper(c.damper) })
}

func (c *Channel) SetSostenuto(value int) {
	c.sostenuto = value & 0x7F
	c.each(func(_ *activeVoice, v *Voice) { v.SetSostenuto(c.sostenuto) })
}

func (c *Channel) SetFreeze(value int) {
	c.freeze = value & 0x7F
	c.each(func(_ *activeVoice, v *Voice) { v.SetFreeze(c.freeze) })
}

// SetMute silences the channel without stopping its voices.
func (c *Channel) SetMute(mute bool) { c.mute = mute }

func (c *Channel) setMasterTune(semitones float64) {
	c.masterTune = semitones
	c.retune()
}

// FrequencyMultiplier is the pitch factor applied to new and sounding
// voices: bend, coarse, fine and master tuning combined.
func (c *Channel) FrequencyMultiplier() float64 { return c.freqMul }

func (c *Channel) retune() {
	sens := float64(c.bendSensitivity>>7) + float64(c.bendSensitivity&0x7F)/100
	bend := float64(c.pitchBend-center14) / center14 * sens
	coarse := float64(c.coarseTuning>>7 - 64)
	fine := float64(c.fineTuning-center14) / center14
	mul := math.Exp2((bend + coarse + fine + c.masterTune) / 12)
	if mul == c.freqMul {
		return
	}
	c.freqMul = mul
	c.each(func(_ *activeVoice, v *Voice) { v.SetFrequencyMultiplier(mul) })
}

// Synthesize mixes every active voice into out (interleaved stereo) and
// prunes voices that finished. It returns the number of voices processed.
func (c *Channel) Synthesize(out []int32, count int, sampleRate, master float64, balance int) int {
	gain := 0.0
	if !c.mute {
		gain = volumeGain(master, c.volume, c.expression)
	}
	n := 0
	live := c.voices[:0]
	for _, av := range c.voices {
		v := c.pool.Get(av.ref)
		if v == nil {
			continue
		}
		n++
		l, r := panGains(v.Pan(), c.pan, balance, gain)
		if v.Synthesize(out, count, sampleRate, l, r) {
			live = append(live, av)
		} else {
			c.pool.Release(av.ref)
		}
	}
	clear(c.voices[len(live):])
	c.voices = live
	return n
}

// ActiveVoices returns the number of voices the channel holds.
func (c *Channel) ActiveVoices() int { return len(c.voices) }

// ResetAllParameters restores power-on defaults.
func (c *Channel) ResetAllParameters() {
	c.bank = c.defaultBank
	c.program = 0
	c.volume = 100 << 7
	c.pan = center14
	c.bendSensitivity = 2 << 7
	c.fineTuning = center14
	c.coarseTuning = 64 << 7
	c.modulationRange = 64
	c.reverbSend = 40
	c.chorusSend = 0
	c.delaySend = 0
	c.mono = false
	c.mute = false
	c.ResetAllController()
}

// ResetAllController resets the controllers covered by Reset All
// Controllers; volume, pan, bank and program are kept.
func (c *Channel) ResetAllController() {
	c.expression = max14
	c.modulation = 0
	c.pressure = 0
	c.rpn = rpnNull
	c.nrpn = rpnNull
	c.nrpnSelected = false
	for i := range c.voices {
		c.voices[i].pressure = 0
	}
	c.SetDamper(0)
	c.SetSostenuto(0)
	c.SetFreeze(0)
	c.applyVibrato()
	c.ChannelPressure(0)
	c.PitchBend(center14)
}

// Program returns the program number (0-127).
func (c *Channel) Program() int { return c.program }

// Bank returns the 14-bit bank.
func (c *Channel) Bank() int { return c.bank }

func (c *Channel) Volume() int     { return c.volume }
func (c *Channel) Expression() int { return c.expression }
func (c *Channel) Pan() int        { return c.pan }
func (c *Channel) Mono() bool      { return c.mono }
func (c *Channel) ReverbSend() int { return c.reverbSend }
func (c *Channel) ChorusSend() int { return c.chorusSend }
func (c *Channel) DelaySend() int  { return c.delaySend }
