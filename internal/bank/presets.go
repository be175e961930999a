package bank

import "github.com/cbegin/midifm-go/internal/fm"

// op builds operator parameters in OPM patch order.
func op(ar, dr, sr, rr, sl, tl, ks, ml, dt int) fm.OperatorParams {
	return fm.OperatorParams{AR: ar, DR: dr, SR: sr, RR: rr, SL: sl, TL: tl, KS: ks, ML: ml, DT: dt}
}

func voice(alg, fb int, ops ...fm.OperatorParams) fm.VoiceParams {
	p := fm.VoiceParams{ALG: alg, FB: fb}
	copy(p.Op[:], ops)
	return p
}

// familyPresets holds one template per GM family (program>>3). They are
// rough approximations.
var familyPresets = [16]fm.VoiceParams{
	// piano
	voice(4, 5, op(31, 12, 3, 7, 3, 32, 1, 1, 3), op(31, 8, 4, 7, 2, 0, 1, 1, 0), op(31, 14, 3, 7, 4, 38, 1, 3, 7), op(31, 9, 4, 7, 2, 4, 1, 1, 0)),
	// chromatic percussion
	voice(4, 3, op(31, 14, 6, 8, 5, 30, 2, 7, 0), op(31, 12, 7, 8, 4, 0, 2, 1, 0), op(31, 16, 6, 8, 6, 34, 2, 4, 3), op(31, 11, 7, 8, 4, 6, 2, 1, 0)),
	// organ
	voice(7, 4, op(31, 0, 0, 9, 0, 8, 0, 1, 0), op(31, 0, 0, 9, 0, 12, 0, 2, 0), op(31, 0, 0, 9, 0, 16, 0, 4, 0), op(31, 0, 0, 9, 0, 20, 0, 8, 0)),
	// guitar
	voice(3, 6, op(31, 10, 4, 8, 4, 34, 1, 3, 0), op(31, 14, 4, 8, 5, 40, 1, 1, 0), op(31, 12, 5, 8, 4, 30, 1, 1, 3), op(31, 6, 5, 8, 2, 0, 1, 1, 0)),
	// bass
	voice(0, 5, op(31, 14, 6, 8, 6, 28, 0, 0, 0), op(31, 12, 6, 8, 4, 36, 0, 1, 0), op(31, 10, 6, 8, 4, 30, 0, 1, 0), op(31, 8, 4, 8, 2, 0, 0, 1, 0)),
	// strings
	voice(2, 3, op(18, 4, 0, 6, 2, 30, 0, 1, 3), op(16, 4, 0, 6, 2, 38, 0, 1, 7), op(18, 4, 0, 6, 2, 36, 0, 2, 0), op(16, 3, 0, 6, 1, 0, 0, 1, 0)),
	// ensemble
	voice(5, 4, op(16, 5, 0, 6, 2, 34, 0, 1, 0), op(16, 3, 0, 6, 1, 4, 0, 1, 3), op(16, 3, 0, 6, 1, 6, 0, 2, 7), op(16, 3, 0, 6, 1, 8, 0, 1, 0)),
	// brass
	voice(2, 6, op(20, 6, 0, 7, 3, 28, 0, 1, 0), op(22, 8, 0, 7, 3, 36, 0, 1, 3), op(20, 8, 0, 7, 3, 30, 0, 1, 0), op(22, 4, 0, 7, 1, 0, 0, 1, 0)),
	// reed
	voice(3, 5, op(24, 6, 0, 7, 3, 30, 0, 3, 0), op(22, 6, 0, 7, 3, 34, 0, 1, 0), op(24, 6, 0, 7, 3, 40, 0, 2, 3), op(24, 4, 0, 7, 1, 0, 0, 1, 0)),
	// pipe
	voice(4, 2, op(20, 4, 0, 7, 2, 40, 0, 1, 0), op(20, 2, 0, 7, 1, 4, 0, 1, 0), op(20, 4, 0, 7, 2, 44, 0, 2, 0), op(20, 2, 0, 7, 1, 10, 0, 2, 0)),
	// synth lead
	voice(1, 7, op(31, 4, 0, 8, 2, 26, 0, 1, 0), op(31, 4, 0, 8, 2, 30, 0, 2, 0), op(31, 6, 0, 8, 2, 28, 0, 1, 3), op(31, 2, 0, 8, 1, 0, 0, 1, 0)),
	// synth pad
	voice(5, 3, op(12, 3, 0, 5, 2, 36, 0, 1, 0), op(10, 2, 0, 4, 1, 6, 0, 1, 3), op(10, 2, 0, 4, 1, 8, 0, 1, 7), op(10, 2, 0, 4, 1, 10, 0, 2, 0)),
	// synth effects
	voice(6, 6, op(14, 6, 2, 5, 4, 24, 0, 7, 5), op(14, 4, 1, 5, 2, 8, 0, 1, 0), op(16, 5, 2, 5, 3, 14, 0, 3, 2), op(12, 4, 1, 5, 2, 12, 0, 5, 1)),
	// ethnic
	voice(4, 4, op(31, 12, 5, 8, 4, 32, 1, 3, 0), op(31, 10, 5, 8, 3, 2, 1, 1, 0), op(31, 12, 5, 8, 4, 36, 1, 5, 0), op(31, 10, 5, 8, 3, 6, 1, 1, 0)),
	// percussive
	voice(4, 6, op(31, 18, 10, 9, 8, 24, 2, 1, 0), op(31, 16, 10, 9, 7, 0, 2, 1, 0), op(31, 18, 10, 9, 8, 28, 2, 3, 0), op(31, 16, 10, 9, 7, 4, 2, 1, 0)),
	// sound effects
	voice(0, 7, op(31, 10, 6, 9, 5, 10, 0, 15, 7), op(31, 10, 6, 9, 5, 16, 0, 11, 3), op(31, 10, 6, 9, 5, 14, 0, 5, 0), op(31, 8, 6, 9, 3, 0, 0, 1, 0)),
}

// defaultDrum is a short noisy click used when no drum voice matches.
func defaultDrum() fm.VoiceParams {
	return voice(0, 7, op(31, 20, 14, 12, 8, 10, 0, 15, 7), op(31, 18, 14, 12, 8, 20, 0, 11, 3), op(31, 18, 14, 12, 8, 24, 0, 3, 0), op(31, 16, 12, 12, 6, 0, 0, 1, 0))
}

func drum(p fm.VoiceParams, key, pan, assign int) fm.DrumVoiceParams {
	return fm.DrumVoiceParams{VoiceParams: p, Key: key, Pan: pan, Assign: assign}
}

var (
	kick  = voice(0, 0, op(31, 18, 0, 10, 15, 127, 0, 1, 0), op(31, 18, 0, 10, 15, 127, 0, 1, 0), op(31, 20, 0, 10, 15, 30, 0, 1, 0), op(31, 14, 12, 10, 6, 0, 0, 1, 0))
	snare = voice(4, 7, op(31, 16, 12, 11, 8, 6, 0, 15, 7), op(31, 16, 12, 11, 8, 8, 0, 1, 0), op(31, 18, 12, 11, 8, 26, 0, 1, 0), op(31, 16, 12, 11, 7, 4, 0, 1, 0))
	tom   = voice(0, 2, op(31, 18, 0, 10, 15, 127, 0, 1, 0), op(31, 18, 0, 10, 15, 127, 0, 1, 0), op(31, 18, 0, 10, 12, 36, 0, 1, 0), op(31, 12, 10, 10, 5, 0, 0, 1, 0))
	hat   = voice(4, 7, op(31, 22, 16, 13, 10, 4, 0, 15, 7), op(31, 22, 16, 13, 10, 10, 0, 1, 0), op(31, 22, 16, 13, 10, 8, 0, 13, 3), op(31, 22, 16, 13, 10, 12, 0, 1, 0))
	open  = voice(4, 7, op(31, 10, 8, 9, 6, 4, 0, 15, 7), op(31, 10, 8, 9, 6, 10, 0, 1, 0), op(31, 10, 8, 9, 6, 8, 0, 13, 3), op(31, 10, 8, 9, 6, 12, 0, 1, 0))
	cymb  = voice(4, 7, op(31, 6, 5, 7, 4, 2, 0, 15, 7), op(31, 6, 5, 7, 4, 8, 0, 1, 0), op(31, 6, 5, 7, 4, 6, 0, 11, 5), op(31, 6, 5, 7, 4, 10, 0, 1, 0))
	clap  = voice(5, 7, op(31, 14, 12, 11, 8, 0, 0, 15, 7), op(31, 18, 12, 11, 8, 10, 0, 1, 0), op(31, 18, 12, 11, 8, 12, 0, 2, 0), op(31, 18, 12, 11, 8, 14, 0, 3, 0))
)

// standardKit covers the GM percussion map for kit 0. Hi-hats share
// assign group 1.
var standardKit = map[int]fm.DrumVoiceParams{
	35: drum(kick, 28, 64, 0),
	36: drum(kick, 31, 64, 0),
	37: drum(snare, 60, 64, 0),
	38: drum(snare, 57, 64, 0),
	39: drum(clap, 64, 56, 0),
	40: drum(snare, 59, 64, 0),
	41: drum(tom, 41, 40, 0),
	42: drum(hat, 84, 80, 1),
	43: drum(tom, 43, 48, 0),
	44: drum(hat, 82, 80, 1),
	45: drum(tom, 45, 56, 0),
	46: drum(open, 84, 80, 1),
	47: drum(tom, 47, 64, 0),
	48: drum(tom, 50, 72, 0),
	49: drum(cymb, 90, 48, 0),
	50: drum(tom, 53, 88, 0),
	51: drum(cymb, 95, 88, 0),
	52: drum(cymb, 88, 40, 0),
	53: drum(cymb, 98, 88, 0),
	55: drum(cymb, 92, 56, 0),
	57: drum(cymb, 91, 80, 0),
	59: drum(cymb, 96, 40, 0),
}
