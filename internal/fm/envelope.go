package fm

import "math"

// EnvState is the phase of an Envelope.
type EnvState int

const (
	EnvAttack EnvState = iota
	EnvDecay
	EnvSustain
	EnvRelease
	EnvAttackRelease
	EnvDecayRelease
	EnvSoundOff
	EnvFinished
)

var envStateNames = [...]string{
	EnvAttack:        "ATTACK",
	EnvDecay:         "DECAY",
	EnvSustain:       "SASTAIN",
	EnvRelease:       "RELEASE",
	EnvAttackRelease: "ATTACK_RELEASE",
	EnvDecayRelease:  "DECAY_RELEASE",
	EnvSoundOff:      "SOUNDOFF",
	EnvFinished:      "FINISHED",
}

func (s EnvState) String() string {
	if s < 0 || int(s) >= len(envStateNames) {
		return "UNKNOWN"
	}
	return envStateNames[s]
}

// Envelope is a per-operator amplitude envelope.
//
// While attacking, current is a linear level in [0, peak]. From the end of
// the attack on, current holds log10 of the level and the output is decoded
// from it. The two domains meet only at the attack→decay boundary and at a
// forced SoundOff during the attack.
type Envelope struct {
	state   EnvState
	current float64

	ar, dr, sr, rr int // key-scaled rates 0-63
	tl             int
	peak           float64
	peakLog        float64
	sustainLog     float64

	sampleRate float64
	hold       float64
	freeze     float64

	attack   float64
	decay    float64
	sustain  float64
	release  float64
	soundOff float64
}

// Init prepares the envelope for a new note. Rates are key-scaled 6-bit
// rates (see scaledRate); sl is 0-15 and tl 0-127.
func (e *Envelope) Init(ar, dr, sr, rr, sl, tl int) {
	*e = Envelope{
		state:      EnvAttack,
		ar:         clampInt(ar, 0, 63),
		dr:         clampInt(dr, 0, 63),
		sr:         clampInt(sr, 0, 63),
		rr:         clampInt(rr, 0, 63),
		tl:         clampInt(tl, 0, 127),
		sampleRate: e.sampleRate,
	}
	e.peak = peakLevel[e.tl]
	e.peakLog = math.Log10(math.Max(e.peak, 1))
	sl = clampInt(sl, 0, 15)
	if sl == 15 {
		e.sustainLog = e.peakLog - 93.0/20
	} else {
		e.sustainLog = e.peakLog - float64(sl)*3/20
	}
	e.UpdateParameters()
}

// State returns the current phase.
func (e *Envelope) State() EnvState { return e.state }

// Finished reports whether the envelope reached FINISHED.
func (e *Envelope) Finished() bool { return e.state == EnvFinished }

// SetRate sets the sample rate and rescales all per-sample increments.
func (e *Envelope) SetRate(sampleRate float64) {
	if e.sampleRate == sampleRate {
		return
	}
	e.sampleRate = sampleRate
	e.UpdateParameters()
}

// SetHold sets the sustain-pedal amount (0..1).
func (e *Envelope) SetHold(hold float64) {
	hold = clamp(hold, 0, 1)
	if e.hold == hold {
		return
	}
	e.hold = hold
	e.UpdateParameters()
}

// SetFreeze sets the freeze amount (0..1).
func (e *Envelope) SetFreeze(freeze float64) {
	freeze = clamp(freeze, 0, 1)
	if e.freeze == freeze {
		return
	}
	e.freeze = freeze
	e.UpdateParameters()
}

// UpdateParameters recomputes the per-sample increments from the rates,
// levels, sample rate, hold and freeze.
func (e *Envelope) UpdateParameters() {
	if !(e.sampleRate > 0) {
		e.attack, e.decay, e.sustain, e.release, e.soundOff = 0, 0, 0, 0, 0
		return
	}
	inv := 1 / e.sampleRate
	move := 1 - e.freeze
	e.attack = attackTable[e.ar][e.tl] * inv
	e.decay = decayTable[e.dr] * inv * move
	e.sustain = decayTable[e.sr] * inv * move
	// Held notes fall back toward the sustain slope.
	release := decayTable[e.rr] * inv * move
	e.release = release*(1-e.hold) + e.sustain*e.hold
	e.soundOff = maxLevelLog / soundOffTime * inv
}

// KeyOff moves the envelope into its release branch.
func (e *Envelope) KeyOff() {
	switch e.state {
	case EnvAttack:
		e.state = EnvAttackRelease
	case EnvDecay:
		e.state = EnvDecayRelease
	case EnvSustain:
		e.state = EnvRelease
	}
}

// SoundOff forces the fast SOUNDOFF fade. Calling it again has no effect.
func (e *Envelope) SoundOff() {
	switch e.state {
	case EnvAttack, EnvAttackRelease:
		e.current = math.Log10(math.Max(e.current, 1))
		e.state = EnvSoundOff
	case EnvDecay, EnvSustain, EnvRelease, EnvDecayRelease:
		e.state = EnvSoundOff
	}
}

// Level returns the decoded output level without advancing.
func (e *Envelope) Level() int32 {
	switch e.state {
	case EnvAttack, EnvAttackRelease:
		return int32(e.current)
	case EnvFinished:
		return 0
	default:
		return decode(e.current)
	}
}

// Next advances one sample and returns the decoded level (0..SampleMax).
func (e *Envelope) Next() int32 {
	switch e.state {
	case EnvAttack, EnvAttackRelease:
		if e.state == EnvAttackRelease && e.attack == 0 {
			e.current = math.Log10(math.Max(e.current, 1))
			e.state = EnvRelease
			break
		}
		e.current += e.attack
		if e.current >= e.peak {
			e.current = e.peakLog
			if e.state == EnvAttack {
				e.state = EnvDecay
			} else {
				e.state = EnvDecayRelease
			}
		}
	case EnvDecay:
		e.current -= e.decay
		if e.current <= e.sustainLog {
			e.current = e.sustainLog
			e.state = EnvSustain
		}
	case EnvDecayRelease:
		if e.decay == 0 {
			e.state = EnvRelease
			break
		}
		e.current -= e.decay
		if e.current <= e.sustainLog {
			e.current = e.sustainLog
			e.state = EnvRelease
		}
	case EnvSustain:
		e.current -= e.sustain
		if e.current <= 0 {
			e.finish()
		}
	case EnvRelease:
		e.current -= e.release
		if e.current <= 0 {
			e.finish()
		} else if decode(e.current) < soundOffThreshold {
			e.state = EnvSoundOff
		}
	case EnvSoundOff:
		e.current -= e.soundOff
		if e.current <= 0 {
			e.finish()
		}
	}
	return e.Level()
}

func (e *Envelope) finish() {
	e.current = 0
	e.state = EnvFinished
}
