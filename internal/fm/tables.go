package fm

import "math"

const (
	twoPi = math.Pi * 2

	// Time for a full attack at rate 0 and a full 96 dB decay at rate 0;
	// every 4 rate steps halve the time.
	attackTimeBase = 16.0
	decayTimeBase  = 80.0

	// Attack rates at or above this complete in one sample.
	instantAttackRate = 62

	// soundOffTime is the fixed fade applied by SOUNDOFF across the full
	// decoded range.
	soundOffTime = 0.02

	// Below this decoded level RELEASE hands over to SOUNDOFF.
	soundOffThreshold = 16

	maxLevelLog = 4.515438 // log10(SampleMax)

	decodeSteps = 1024 // per log10 unit

	decodeTableLen = 4626 // covers maxLevelLog*decodeSteps
)

// feedbackShift maps FB 0-7 to the right shift applied to op1's previous
// output. 31 disables feedback.
var feedbackShift = [8]uint{31, 6, 5, 4, 3, 2, 1, 0}

// lfoFrequency is the amplitude-mod LFO rate for LFO index 0-7.
var lfoFrequency = [8]float64{3.98, 5.56, 6.02, 6.37, 6.88, 9.63, 48.1, 72.2}

// amsDepthDB is the tremolo depth per AMS value.
var amsDepthDB = [4]float64{0, 1.4, 5.9, 11.8}

// detuneHz is the base detune per DT&3 at key 0.
var detuneHz = [4]float64{0, 0.053, 0.106, 0.159}

// carrierMask marks which operators sum into the output for each algorithm.
var carrierMask = [8]uint8{0x8, 0x8, 0x8, 0x8, 0xA, 0xE, 0xE, 0xF}

var (
	// attackTable holds the linear level increment per second for
	// [key-scaled rate][TL]; the slope tracks each TL's peak so the attack
	// time is independent of level.
	attackTable [64][128]float64
	// decayTable holds the log10 decrement per second for [key-scaled rate].
	// A constant log slope is a constant dB/s slope at every level.
	decayTable [64]float64
	// peakLevel is the linear peak for each TL (0.75 dB steps).
	peakLevel [128]float64
	// decodeTable converts log10 levels to linear output.
	decodeTable [decodeTableLen]int32
)

func init() {
	for tl := range peakLevel {
		peakLevel[tl] = SampleMax * math.Pow(10, -float64(tl)*0.75/20)
	}
	for rate := 0; rate < 64; rate++ {
		if rate == 0 {
			continue
		}
		at := attackTimeBase * math.Exp2(-float64(rate)/4)
		dt := decayTimeBase * math.Exp2(-float64(rate)/4)
		for tl := range attackTable[rate] {
			if rate >= instantAttackRate {
				attackTable[rate][tl] = peakLevel[tl] * 1e6
			} else {
				attackTable[rate][tl] = peakLevel[tl] / at
			}
		}
		decayTable[rate] = 96.0 / 20.0 / dt
	}
	for i := range decodeTable {
		decodeTable[i] = int32(math.Min(math.Pow(10, float64(i)/decodeSteps), SampleMax))
	}
}

// decode converts a log10 level to the linear output scale.
func decode(logLevel float64) int32 {
	if logLevel <= 0 {
		if logLevel == 0 {
			return 1
		}
		return 0
	}
	i := int(logLevel * decodeSteps)
	if i >= len(decodeTable) {
		return SampleMax
	}
	return decodeTable[i]
}

// scaledRate applies OPN key scaling to a 5-bit (or pre-doubled) rate.
// A zero rate stays zero.
func scaledRate(rate2x int, key int, ks int) int {
	if rate2x <= 0 {
		return 0
	}
	keyCode := clampInt(key, 0, 127) >> 2
	r := rate2x + keyCode>>(3-uint(clampInt(ks, 0, 3)))
	return clampInt(r, 0, 63)
}
