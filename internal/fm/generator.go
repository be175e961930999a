package fm

import (
	"math"

	"github.com/cbegin/midifm-go/internal/lfo"
)

// Generator routes four operators through one of eight algorithms.
//
//	ALG 0: 1→2→3→4            ALG 4: 1→2 + 3→4
//	ALG 1: (1+2)→3→4          ALG 5: 1→2 + 1→3 + 1→4
//	ALG 2: (1+(2→3))→4        ALG 6: 1→2 + 3 + 4
//	ALG 3: ((1→2)+3)→4        ALG 7: 1 + 2 + 3 + 4
//
// Operator 1 feeds back into itself.
type Generator struct {
	ops     [4]Operator
	alg     int
	fbShift uint
	fbPrev  int32

	freq       float64
	sampleRate float64

	amLFO     lfo.LFO
	amEnabled bool
	am        int32

	vibrato lfo.LFO
	tremolo lfo.LFO

	damper    int
	sostenuto int
	freeze    int
}

// Init loads a timbre for a note on key sounding at freq Hz. The sample
// rate of a previous note is kept; SetRate must still be called before the
// first sample of a fresh Generator.
func (g *Generator) Init(p VoiceParams, key int, freq float64) {
	p = p.Clamp()
	rate := g.sampleRate
	*g = Generator{
		alg:     p.ALG,
		fbShift: feedbackShift[p.FB],
		freq:    freq,
	}
	for i := range g.ops {
		g.ops[i].Init(p.Op[i], key)
		if p.Op[i].AMS > 0 {
			g.amEnabled = true
		}
	}
	if g.amEnabled {
		g.amLFO.Set(1, lfoFrequency[p.LFO], lfo.Triangle)
	}
	if rate > 0 {
		g.SetRate(rate)
	}
}

// SetRate changes the sample rate.
func (g *Generator) SetRate(sampleRate float64) {
	g.sampleRate = sampleRate
	for i := range g.ops {
		g.ops[i].SetFreqRate(g.freq, sampleRate)
	}
}

// SampleRate returns the rate last passed to SetRate.
func (g *Generator) SampleRate() float64 { return g.sampleRate }

// SetFrequency re-tunes every operator, e.g. after a pitch bend.
func (g *Generator) SetFrequency(freq float64) {
	g.freq = freq
	for i := range g.ops {
		g.ops[i].SetFreqRate(freq, g.sampleRate)
	}
}

// Frequency returns the current base frequency.
func (g *Generator) Frequency() float64 { return g.freq }

// SetVibrato sets pitch modulation depth in cents and its rate in Hz.
func (g *Generator) SetVibrato(cents, hz float64) {
	g.vibrato.Set(cents, hz, lfo.Sine)
}

// SetTremolo sets amplitude modulation depth (0..1) and its rate in Hz.
func (g *Generator) SetTremolo(depth, hz float64) {
	g.tremolo.Set(clamp(depth, 0, 1), hz, lfo.Sine)
}

// Algorithm returns the selected ALG.
func (g *Generator) Algorithm() int { return g.alg }

// Operator exposes operator i (0-3) for inspection.
func (g *Generator) Operator(i int) *Operator { return &g.ops[i] }

// Next produces one sample.
func (g *Generator) Next() int32 {
	if g.vibrato.Active() {
		cents := g.vibrato.Sample(g.sampleRate)
		x := int32((math.Exp2(cents/1200) - 1) * 65536)
		for i := range g.ops {
			g.ops[i].AddModulation(x)
		}
	}
	if g.amEnabled {
		g.am = int32((g.amLFO.Sample(g.sampleRate) + 1) * 0.5 * SampleMax)
	}

	o1 := g.out(0, (g.fbPrev<<1)>>g.fbShift)
	g.fbPrev = o1

	var s int32
	switch g.alg {
	case 0:
		o2 := g.out(1, o1<<1)
		o3 := g.out(2, o2<<1)
		s = g.out(3, o3<<1)
	case 1:
		o2 := g.out(1, 0)
		o3 := g.out(2, (o1+o2)<<1)
		s = g.out(3, o3<<1)
	case 2:
		o2 := g.out(1, 0)
		o3 := g.out(2, o2<<1)
		s = g.out(3, (o1+o3)<<1)
	case 3:
		o2 := g.out(1, o1<<1)
		o3 := g.out(2, 0)
		s = g.out(3, (o2+o3)<<1)
	case 4:
		o2 := g.out(1, o1<<1)
		o3 := g.out(2, 0)
		s = o2 + g.out(3, o3<<1)
	case 5:
		m := o1 << 1
		s = g.out(1, m) + g.out(2, m) + g.out(3, m)
	case 6:
		s = g.out(1, o1<<1) + g.out(2, 0) + g.out(3, 0)
	default:
		s = o1 + g.out(1, 0) + g.out(2, 0) + g.out(3, 0)
	}

	if g.tremolo.Active() {
		d := g.tremolo.Depth()
		gain := 1 - (g.tremolo.Sample(g.sampleRate)+d)*0.5
		s = int32(float64(s) * gain)
	}
	return s
}

func (g *Generator) out(i int, modulation int32) int32 {
	if g.amEnabled {
		return g.ops[i].NextAM(g.am, modulation)
	}
	return g.ops[i].NextMod(modulation)
}

// Finished reports whether every carrier of the algorithm has finished.
// Modulators are ignored.
func (g *Generator) Finished() bool {
	mask := carrierMask[g.alg]
	for i := range g.ops {
		if mask&(1<<uint(i)) != 0 && !g.ops[i].Finished() {
			return false
		}
	}
	return true
}

// Level sums the envelope levels of the carriers.
func (g *Generator) Level() int32 {
	mask := carrierMask[g.alg]
	var sum int32
	for i := range g.ops {
		if mask&(1<<uint(i)) != 0 {
			sum += g.ops[i].Level()
		}
	}
	return sum
}

func (g *Generator) KeyOff() {
	for i := range g.ops {
		g.ops[i].KeyOff()
	}
}

func (g *Generator) SoundOff() {
	for i := range g.ops {
		g.ops[i].SoundOff()
	}
}

// SetDamper sets the damper pedal value (0-127).
func (g *Generator) SetDamper(value int) {
	g.damper = clampInt(value, 0, 127)
	g.updateHold()
}

// SetSostenuto sets the sostenuto pedal value (0-127).
func (g *Generator) SetSostenuto(value int) {
	g.sostenuto = clampInt(value, 0, 127)
	g.updateHold()
}

// SetFreeze sets the freeze (hold 2) value (0-127).
func (g *Generator) SetFreeze(value int) {
	g.freeze = clampInt(value, 0, 127)
	f := float64(g.freeze) / 127
	for i := range g.ops {
		g.ops[i].SetFreeze(f)
	}
}

func (g *Generator) updateHold() {
	hold := 1 - (1-float64(g.damper)/127)*(1-float64(g.sostenuto)/127)
	for i := range g.ops {
		g.ops[i].SetHold(hold)
	}
}
