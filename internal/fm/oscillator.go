package fm

import "math"

const (
	sineTableBits = 12
	sineTableLen  = 1 << sineTableBits
	sineTableMask = sineTableLen - 1
	phaseShift    = 32 - sineTableBits

	// SampleMax is the peak amplitude of oscillator and envelope output.
	SampleMax = 32767
)

var sineTable [sineTableLen]int32

func init() {
	for i := range sineTable {
		sineTable[i] = int32(math.Round(math.Sin(float64(i)*twoPi/sineTableLen) * SampleMax))
	}
}

// Oscillator is a phase-accumulator sine source. A full cycle is 2^32 phase
// units; modulation inputs use 65536 units per cycle.
type Oscillator struct {
	position uint32
	step     uint32
}

// SetCycle sets the period in samples. Zero, negative, NaN or sub-Nyquist
// periods produce a zero step (silence).
func (o *Oscillator) SetCycle(samplesPerCycle float64) {
	if !(samplesPerCycle >= 2) || math.IsInf(samplesPerCycle, 0) {
		o.step = 0
		return
	}
	o.step = uint32((1 << 32) / samplesPerCycle)
}

// Step returns the current phase increment.
func (o *Oscillator) Step() uint32 { return o.step }

// Reset rewinds the phase to zero.
func (o *Oscillator) Reset() { o.position = 0 }

// Next advances one sample and returns the table value.
func (o *Oscillator) Next() int32 {
	if o.step == 0 {
		return 0
	}
	o.position += o.step
	return sineTable[o.position>>phaseShift]
}

// NextMod advances one sample and returns the table value read at the phase
// offset by modulation (65536 = one cycle).
func (o *Oscillator) NextMod(modulation int32) int32 {
	if o.step == 0 {
		return 0
	}
	o.position += o.step
	idx := (o.position>>phaseShift + uint32(modulation>>(16-sineTableBits))) & sineTableMask
	return sineTable[idx]
}

// AddModulation shifts the phase by step*x/65536, i.e. a momentary
// frequency deviation of x/65536 of the current pitch.
func (o *Oscillator) AddModulation(x int32) {
	o.position += uint32(int64(o.step) * int64(x) >> 16)
}
