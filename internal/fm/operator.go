package fm

import "math"

// Operator is one oscillator plus its envelope.
type Operator struct {
	osc       Oscillator
	env       Envelope
	mul       float64
	detune    float64
	amsFactor int32 // Q15, applied to the AM LFO sample
	amsBias   int32 // Q15
}

// Init loads the operator for a note on key.
func (op *Operator) Init(p OperatorParams, key int) {
	p = p.Clamp()
	rate := op.env.sampleRate
	op.osc = Oscillator{}
	op.env = Envelope{sampleRate: rate}
	op.env.Init(
		scaledRate(p.AR*2, key, p.KS),
		scaledRate(p.DR*2, key, p.KS),
		scaledRate(p.SR*2, key, p.KS),
		scaledRate(p.RR*4+2, key, p.KS),
		p.SL,
		p.TL,
	)
	if p.ML == 0 {
		op.mul = 0.5
	} else {
		op.mul = float64(p.ML)
	}
	op.detune = detuneHz[p.DT&3] * math.Exp2(float64(key)/32)
	if p.DT >= 4 {
		op.detune = -op.detune
	}
	depth := 1 - math.Pow(10, -amsDepthDB[p.AMS]/20)
	op.amsFactor = -int32(depth * 32768)
	op.amsBias = 32768
}

// SetFreqRate sets the note frequency and sample rate. The effective
// frequency is baseFreq*multiplier + detune.
func (op *Operator) SetFreqRate(baseFreq, sampleRate float64) {
	freq := baseFreq*op.mul + op.detune
	if freq > 0 && sampleRate > 0 {
		op.osc.SetCycle(sampleRate / freq)
	} else {
		op.osc.SetCycle(0)
	}
	op.env.SetRate(sampleRate)
}

// Next returns the oscillator sample scaled by the envelope.
func (op *Operator) Next() int32 {
	return int32(int64(op.osc.Next()) * int64(op.env.Next()) >> 15)
}

// NextMod is Next with phase modulation.
func (op *Operator) NextMod(modulation int32) int32 {
	return int32(int64(op.osc.NextMod(modulation)) * int64(op.env.Next()) >> 15)
}

// NextAM is NextMod followed by amplitude modulation; am is the shared AM
// LFO sample in 0..SampleMax.
func (op *Operator) NextAM(am, modulation int32) int32 {
	s := int64(op.NextMod(modulation))
	gain := int64(am)*int64(op.amsFactor)>>15 + int64(op.amsBias)
	return int32(s * gain >> 15)
}

// AddModulation forwards a phase offset to the oscillator.
func (op *Operator) AddModulation(x int32) { op.osc.AddModulation(x) }

func (op *Operator) KeyOff()   { op.env.KeyOff() }
func (op *Operator) SoundOff() { op.env.SoundOff() }

// SetHold sets the sustain-pedal amount (0..1).
func (op *Operator) SetHold(hold float64) { op.env.SetHold(hold) }

// SetFreeze sets the freeze amount (0..1).
func (op *Operator) SetFreeze(freeze float64) { op.env.SetFreeze(freeze) }

// Level returns the current envelope output.
func (op *Operator) Level() int32 { return op.env.Level() }

// EnvState returns the envelope phase.
func (op *Operator) EnvState() EnvState { return op.env.State() }

func (op *Operator) Finished() bool { return op.env.Finished() }
