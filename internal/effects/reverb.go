package effects

// Reverb is a Schroeder reverb: four parallel comb filters into two
// allpass stages per side. The right side uses slightly longer delays for
// stereo width. Output is fully wet, suited to a send bus.
type Reverb struct {
	combs   [2][4]combFilter
	allpass [2][2]allpassFilter
	damp    float32
}

type combFilter struct {
	buf   []float32
	pos   int
	fb    float32
	store float32
}

type allpassFilter struct {
	buf []float32
	pos int
	fb  float32
}

// ReverbParams configures a reverb.
type ReverbParams struct {
	RoomSize float32 // 0..1, scales delay lengths
	Feedback float32 // 0..0.95, decay time
	Damping  float32 // 0..1, high-frequency loss inside the combs
}

// DefaultReverbParams is a medium hall used for the CC 91 send.
func DefaultReverbParams() ReverbParams {
	return ReverbParams{RoomSize: 0.6, Feedback: 0.78, Damping: 0.3}
}

const stereoSpread = 23

// NewReverb creates a reverb for the given sample rate.
func NewReverb(sampleRate int, p ReverbParams) *Reverb {
	base := int(float32(sampleRate) * clamp(p.RoomSize, 0, 1) * 0.05)
	if base < 10 {
		base = 10
	}
	fb := clamp(p.Feedback, 0, 0.95)
	r := &Reverb{damp: clamp(p.Damping, 0, 1)}
	// Comb lengths use prime-ish ratios to avoid stacked resonances.
	combLens := [4]int{base, base * 1117 / 1000, base * 1271 / 1000, base * 1437 / 1000}
	apLens := [2]int{base * 347 / 1000, base * 213 / 1000}
	for side := range r.combs {
		spread := side * stereoSpread
		for i := range r.combs[side] {
			r.combs[side][i] = combFilter{buf: make([]float32, combLens[i]+spread), fb: fb}
		}
		for i := range r.allpass[side] {
			r.allpass[side][i] = allpassFilter{buf: make([]float32, maxInt(apLens[i]+spread, 1)), fb: 0.5}
		}
	}
	return r
}

func (r *Reverb) Process(l, r2 float32) (float32, float32) {
	mono := (l + r2) * 0.5
	return r.side(0, mono), r.side(1, mono)
}

func (r *Reverb) side(s int, in float32) float32 {
	var out float32
	for i := range r.combs[s] {
		out += r.combs[s][i].process(in, r.damp)
	}
	out *= 0.25
	for i := range r.allpass[s] {
		out = r.allpass[s][i].process(out)
	}
	return out
}

func (r *Reverb) Reset() {
	for s := range r.combs {
		for i := range r.combs[s] {
			c := &r.combs[s][i]
			clear(c.buf)
			c.pos = 0
			c.store = 0
		}
		for i := range r.allpass[s] {
			a := &r.allpass[s][i]
			clear(a.buf)
			a.pos = 0
		}
	}
}

func (c *combFilter) process(in, damp float32) float32 {
	out := c.buf[c.pos]
	c.store = out*(1-damp) + c.store*damp
	c.buf[c.pos] = in + c.store*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
