package synth

import "github.com/cbegin/midifm-go/internal/fm"

// Voice is one sounding note. Velocity, pan and assign group are fixed when
// the voice is initialised.
type Voice struct {
	gen      fm.Generator
	velocity int32 // velocity+1, 2..128
	pan      int   // 0..16383
	assign   int
	pitchKey int
	released bool
}

// Init prepares the voice. pitchKey selects the sounding pitch (the played
// key for melodic voices, the fixed key for drums), velocity is 1-127, pan
// is 14-bit (8192 = center) and assign is the exclusive group (0 = none).
func (v *Voice) Init(p fm.VoiceParams, pitchKey, velocity, pan, assign int, freqMul float64) {
	v.pitchKey = pitchKey
	v.velocity = int32(clampInt(velocity, 1, 127) + 1)
	v.pan = clampInt(pan, 0, 16383)
	v.assign = assign
	v.released = false
	v.gen.Init(p, pitchKey, fm.KeyFrequency(pitchKey)*freqMul)
}

// Synthesize adds count stereo frames into buf (interleaved L/R). The gains
// are Q15 and get scaled by velocity. It reports whether the voice is still
// sounding.
func (v *Voice) Synthesize(buf []int32, count int, sampleRate float64, left, right int32) bool {
	if v.gen.SampleRate() != sampleRate {
		v.gen.SetRate(sampleRate)
	}
	l := int64(left) * int64(v.velocity) >> 7
	r := int64(right) * int64(v.velocity) >> 7
	for i := 0; i < count; i++ {
		s := int64(v.gen.Next())
		buf[2*i] += int32(s * l >> 15)
		buf[2*i+1] += int32(s * r >> 15)
	}
	return !v.gen.Finished()
}

// NoteOff releases the note.
func (v *Voice) NoteOff() {
	v.released = true
	v.gen.KeyOff()
}

// SoundOff forces the fast fade.
func (v *Voice) SoundOff() {
	v.released = true
	v.gen.SoundOff()
}

func (v *Voice) SetDamper(value int)    { v.gen.SetDamper(value) }
func (v *Voice) SetSostenuto(value int) { v.gen.SetSostenuto(value) }
func (v *Voice) SetFreeze(value int)    { v.gen.SetFreeze(value) }

// SetFrequencyMultiplier re-tunes the voice relative to its key.
func (v *Voice) SetFrequencyMultiplier(mul float64) {
	v.gen.SetFrequency(fm.KeyFrequency(v.pitchKey) * mul)
}

// SetVibrato sets vibrato depth in cents and rate in Hz.
func (v *Voice) SetVibrato(cents, hz float64) { v.gen.SetVibrato(cents, hz) }

// SetTremolo sets tremolo depth (0..1) and rate in Hz.
func (v *Voice) SetTremolo(depth, hz float64) { v.gen.SetTremolo(depth, hz) }

func (v *Voice) Pan() int         { return v.pan }
func (v *Voice) AssignGroup() int { return v.assign }
func (v *Voice) Released() bool   { return v.released }

// Finished reports whether every carrier envelope has finished.
func (v *Voice) Finished() bool { return v.gen.Finished() }

// Level is the summed carrier envelope level, used to pick steal victims.
func (v *Voice) Level() int32 { return v.gen.Level() }

// Generator exposes the underlying FM generator.
func (v *Voice) Generator() *fm.Generator { return &v.gen }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
