package synth

// VoiceRef is a handle to a pooled voice. A ref goes stale once its slot is
// released or stolen.
type VoiceRef struct {
	slot int32
	gen  uint32
}

type poolSlot struct {
	voice Voice
	gen   uint32
	used  bool
}

// Pool is the voice arena shared by all channels. Slots are recycled, so a
// warm pool allocates nothing on note-on.
type Pool struct {
	slots []*poolSlot
	free  []int32
	max   int
	live  int
}

// NewPool creates a pool holding at most max voices; max <= 0 means no cap.
func NewPool(max int) *Pool {
	p := &Pool{max: max}
	if max > 0 {
		p.slots = make([]*poolSlot, 0, max)
		p.free = make([]int32, 0, max)
	}
	return p
}

// Alloc returns a fresh slot. When the pool is at its cap the quietest
// released voice (or, failing that, the quietest voice) is stolen.
func (p *Pool) Alloc() (VoiceRef, *Voice) {
	var idx int32
	switch {
	case len(p.free) > 0:
		idx = p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		p.live++
	case p.max <= 0 || len(p.slots) < p.max:
		idx = int32(len(p.slots))
		p.slots = append(p.slots, &poolSlot{})
		p.live++
	default:
		idx = p.victim()
		p.slots[idx].gen++
	}
	s := p.slots[idx]
	s.used = true
	return VoiceRef{slot: idx, gen: s.gen}, &s.voice
}

func (p *Pool) victim() int32 {
	best := int32(-1)
	var bestLevel int32
	bestReleased := false
	for i, s := range p.slots {
		if !s.used {
			continue
		}
		lvl := s.voice.Level()
		rel := s.voice.Released()
		if best < 0 || (rel && !bestReleased) || (rel == bestReleased && lvl < bestLevel) {
			best = int32(i)
			bestLevel = lvl
			bestReleased = rel
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// Get resolves a ref, returning nil if it went stale.
func (p *Pool) Get(ref VoiceRef) *Voice {
	if ref.slot < 0 || int(ref.slot) >= len(p.slots) {
		return nil
	}
	s := p.slots[ref.slot]
	if !s.used || s.gen != ref.gen {
		return nil
	}
	return &s.voice
}

// Release returns a slot to the free list. Stale refs are ignored.
func (p *Pool) Release(ref VoiceRef) {
	if p.Get(ref) == nil {
		return
	}
	s := p.slots[ref.slot]
	s.used = false
	s.gen++
	p.free = append(p.free, ref.slot)
	p.live--
}

// Len returns the number of voices in use.
func (p *Pool) Len() int { return p.live }

// Cap returns the configured voice cap (0 = unbounded).
func (p *Pool) Cap() int { return p.max }
