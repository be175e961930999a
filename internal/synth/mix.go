package synth

import "math"

const (
	center14 = 8192
	max14    = 16383
	unityQ15 = 32767
)

// volumeGain applies the squared loudness law to 14-bit volume and
// expression and scales by master (0..1).
func volumeGain(master float64, volume, expression int) float64 {
	v := float64(volume) / max14
	e := float64(expression) / max14
	return master * v * v * e * e
}

// panGains composes voice pan, channel pan and master balance (all 14-bit,
// 8192 = center) into Q15 left/right gains scaled by gain. The position is
// mapped piecewise-linearly so 8192 lands exactly on the quarter-sine
// midpoint.
func panGains(voicePan, channelPan, balance int, gain float64) (int32, int32) {
	p := voicePan + channelPan + balance - 2*center14
	if p < 0 {
		p = 0
	} else if p > max14 {
		p = max14
	}
	var t float64
	if p <= center14 {
		t = 0.5 * float64(p) / center14
	} else {
		t = 0.5 + 0.5*float64(p-center14)/(max14-center14)
	}
	angle := t * math.Pi / 2
	l := math.Cos(angle) * gain * unityQ15
	r := math.Sin(angle) * gain * unityQ15
	return int32(math.Round(l)), int32(math.Round(r))
}

// saturate16 narrows a mixed sample to int16.
func saturate16(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
