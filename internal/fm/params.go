package fm

import "math"

// OperatorParams holds the OPN-style register values of one operator.
type OperatorParams struct {
	AR  int // attack rate 0-31
	DR  int // decay rate 0-31
	SR  int // sustain rate 0-31
	RR  int // release rate 0-15
	SL  int // sustain level 0-15
	TL  int // total level 0-127
	KS  int // key scale 0-3
	ML  int // multiple 0-15 (0 = x0.5)
	DT  int // detune 0-7 (4-7 negative)
	AMS int // amplitude modulation sensitivity 0-3
}

// VoiceParams describes one FM timbre.
type VoiceParams struct {
	ALG int // algorithm 0-7
	FB  int // op1 feedback 0-7
	LFO int // amplitude-mod LFO frequency index 0-7
	Op  [4]OperatorParams
}

// DrumVoiceParams is a percussion timbre bound to a fixed pitch, pan and
// assign group.
type DrumVoiceParams struct {
	VoiceParams
	Key    int // fixed MIDI key used for pitch
	Pan    int // 0-127, 64 = center
	Assign int // assign group, 0 = none
}

// Clamp forces every field into its register range.
func (p OperatorParams) Clamp() OperatorParams {
	p.AR = clampInt(p.AR, 0, 31)
	p.DR = clampInt(p.DR, 0, 31)
	p.SR = clampInt(p.SR, 0, 31)
	p.RR = clampInt(p.RR, 0, 15)
	p.SL = clampInt(p.SL, 0, 15)
	p.TL = clampInt(p.TL, 0, 127)
	p.KS = clampInt(p.KS, 0, 3)
	p.ML = clampInt(p.ML, 0, 15)
	p.DT = clampInt(p.DT, 0, 7)
	p.AMS = clampInt(p.AMS, 0, 3)
	return p
}

// Clamp forces the voice and all of its operators into range.
func (p VoiceParams) Clamp() VoiceParams {
	p.ALG = clampInt(p.ALG, 0, 7)
	p.FB = clampInt(p.FB, 0, 7)
	p.LFO = clampInt(p.LFO, 0, 7)
	for i := range p.Op {
		p.Op[i] = p.Op[i].Clamp()
	}
	return p
}

// Clamp forces the drum fields and the embedded voice into range.
func (p DrumVoiceParams) Clamp() DrumVoiceParams {
	p.VoiceParams = p.VoiceParams.Clamp()
	p.Key = clampInt(p.Key, 0, 127)
	p.Pan = clampInt(p.Pan, 0, 127)
	if p.Assign < 0 {
		p.Assign = 0
	}
	return p
}

// KeyFrequency returns the equal-tempered frequency of a MIDI key (A4 = 440 Hz).
func KeyFrequency(key int) float64 {
	return 440 * math.Pow(2, float64(key-69)/12)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
