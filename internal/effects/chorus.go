package effects

import "math"

// Chorus is a modulated stereo delay. The two sides read the delay line
// with LFOs a quarter cycle apart. Output is fully wet.
type Chorus struct {
	bufL, bufR []float32
	pos        int
	size       int
	depth      float32 // samples
	rate       float64 // radians per sample
	phase      float64
	feedback   float32
}

// ChorusParams configures a chorus.
type ChorusParams struct {
	DelayMs  float32 // base delay, typically 5-30
	DepthMs  float32
	RateHz   float32 // typically 0.1-5
	Feedback float32 // 0..0.9
}

// DefaultChorusParams is the setting used for the CC 93 send.
func DefaultChorusParams() ChorusParams {
	return ChorusParams{DelayMs: 12, DepthMs: 3, RateHz: 0.4, Feedback: 0.1}
}

// NewChorus creates a chorus for the given sample rate.
func NewChorus(sampleRate int, p ChorusParams) *Chorus {
	baseSamples := int(float64(p.DelayMs) * float64(sampleRate) / 1000.0)
	depthSamples := float64(p.DepthMs) * float64(sampleRate) / 1000.0
	size := 2*(baseSamples+int(depthSamples)) + 2
	if size < 4 {
		size = 4
	}
	return &Chorus{
		bufL:     make([]float32, size),
		bufR:     make([]float32, size),
		size:     size,
		depth:    float32(depthSamples),
		rate:     2.0 * math.Pi * float64(p.RateHz) / float64(sampleRate),
		feedback: clamp(p.Feedback, 0, 0.9),
	}
}

func (c *Chorus) Process(l, r float32) (float32, float32) {
	modL := float32(math.Sin(c.phase)) * c.depth
	modR := float32(math.Cos(c.phase)) * c.depth
	c.phase += c.rate
	if c.phase > 2*math.Pi {
		c.phase -= 2 * math.Pi
	}
	c.bufL[c.pos] = l
	c.bufR[c.pos] = r

	delL := c.read(c.bufL, modL)
	delR := c.read(c.bufR, modR)

	c.bufL[c.pos] += delL * c.feedback
	c.bufR[c.pos] += delR * c.feedback

	c.pos++
	if c.pos >= c.size {
		c.pos = 0
	}
	return delL, delR
}

// read interpolates the delay line at the modulated tap.
func (c *Chorus) read(buf []float32, mod float32) float32 {
	readPos := float32(c.pos) - (float32(c.size/2) + mod)
	for readPos < 0 {
		readPos += float32(c.size)
	}
	idx := int(readPos)
	if idx >= c.size {
		idx -= c.size
	}
	frac := readPos - float32(int(readPos))
	idx2 := idx + 1
	if idx2 >= c.size {
		idx2 = 0
	}
	return buf[idx]*(1-frac) + buf[idx2]*frac
}

func (c *Chorus) Reset() {
	clear(c.bufL)
	clear(c.bufR)
	c.pos = 0
	c.phase = 0
}
