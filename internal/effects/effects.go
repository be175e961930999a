package effects

// Effector processes one stereo frame.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

func (c *Chain) Len() int { return len(c.effects) }

// Bus is an effect send: channels add a scaled copy of their dry signal,
// then Return runs the effect and mixes the wet result into the output.
// Buffers are interleaved stereo int32 at the synthesizer's mixing scale.
type Bus struct {
	fx    Effector
	level float32
	in    []float32
	used  bool
}

// NewBus wraps fx. level scales the wet return (0..1).
func NewBus(fx Effector, level float32) *Bus {
	return &Bus{fx: fx, level: clamp(level, 0, 1)}
}

// Begin prepares the bus for a block of frames.
func (b *Bus) Begin(frames int) {
	n := frames * 2
	if cap(b.in) < n {
		b.in = make([]float32, n)
	}
	b.in = b.in[:n]
	for i := range b.in {
		b.in[i] = 0
	}
	b.used = false
}

// Send adds src scaled by amount (0..1) into the bus input.
func (b *Bus) Send(src []int32, amount float32) {
	if amount <= 0 {
		return
	}
	n := len(b.in)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		b.in[i] += float32(src[i]) * amount
	}
	b.used = true
}

// Return processes the block and adds the wet signal into dst. The effect
// keeps running on silence so tails ring out after the last send.
func (b *Bus) Return(dst []int32) {
	frames := len(b.in) / 2
	if len(dst)/2 < frames {
		frames = len(dst) / 2
	}
	for i := 0; i < frames; i++ {
		l, r := b.fx.Process(b.in[2*i], b.in[2*i+1])
		dst[2*i] += int32(l * b.level)
		dst[2*i+1] += int32(r * b.level)
	}
}

// Used reports whether anything was sent since Begin.
func (b *Bus) Used() bool { return b.used }

func (b *Bus) Reset() {
	b.fx.Reset()
	for i := range b.in {
		b.in[i] = 0
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
