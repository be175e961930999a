package effects

// Delay is a stereo echo with feedback and cross-channel mixing, used for
// the delay/variation send. Output is fully wet.
type Delay struct {
	bufL, bufR []float32
	pos        int
	feedback   float32
	cross      float32
}

// DelayParams configures a delay.
type DelayParams struct {
	TimeMs   float32
	Feedback float32 // 0..0.95
	Cross    float32 // 0 = straight, 1 = ping-pong
}

// DefaultDelayParams is the setting used for the CC 94 send.
func DefaultDelayParams() DelayParams {
	return DelayParams{TimeMs: 340, Feedback: 0.35, Cross: 0.5}
}

// NewDelay creates a delay for the given sample rate.
func NewDelay(sampleRate int, p DelayParams) *Delay {
	samples := int(float64(p.TimeMs) * float64(sampleRate) / 1000.0)
	if samples < 1 {
		samples = 1
	}
	return &Delay{
		bufL:     make([]float32, samples),
		bufR:     make([]float32, samples),
		feedback: clamp(p.Feedback, 0, 0.95),
		cross:    clamp(p.Cross, 0, 1),
	}
}

func (d *Delay) Process(l, r float32) (float32, float32) {
	delL := d.bufL[d.pos]
	delR := d.bufR[d.pos]
	straight := d.feedback * (1 - d.cross)
	crossed := d.feedback * d.cross
	d.bufL[d.pos] = l + delL*straight + delR*crossed
	d.bufR[d.pos] = r + delR*straight + delL*crossed
	d.pos++
	if d.pos >= len(d.bufL) {
		d.pos = 0
	}
	return delL, delR
}

func (d *Delay) Reset() {
	clear(d.bufL)
	clear(d.bufR)
	d.pos = 0
}
