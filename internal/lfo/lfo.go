// Package lfo provides the low-frequency oscillators behind vibrato,
// tremolo and operator amplitude modulation.
package lfo

import "math"

// Waveform selects the LFO shape.
type Waveform int

const (
	Triangle Waveform = iota
	Sine
)

// LFO produces a per-sample value in [-depth, +depth]. The zero value is
// silent.
type LFO struct {
	depth float64 // cents for vibrato, gain fraction for tremolo and AM
	rate  float64 // Hz
	wave  Waveform
	phase float64 // [0, 1)
}

// Set configures the LFO. The phase is kept so depth changes from
// controllers do not click. Unknown waveforms play as a triangle.
func (l *LFO) Set(depth, rateHz float64, wave Waveform) {
	if wave != Sine {
		wave = Triangle
	}
	l.depth, l.rate, l.wave = depth, rateHz, wave
}

func (l *LFO) Depth() float64 { return l.depth }

// Active reports whether Sample can return a non-zero value.
func (l *LFO) Active() bool {
	return l.depth != 0 && l.rate != 0
}

// Sample returns the value at the current phase, then advances one sample.
func (l *LFO) Sample(sampleRate float64) float64 {
	if !l.Active() || sampleRate <= 0 {
		return 0
	}
	var v float64
	if l.wave == Sine {
		v = math.Sin(2 * math.Pi * l.phase)
	} else if l.phase < 0.5 {
		v = 4*l.phase - 1
	} else {
		v = 3 - 4*l.phase
	}
	l.phase += l.rate / sampleRate
	l.phase -= math.Floor(l.phase)
	return v * l.depth
}
