package synth

import (
	"fmt"
	"math"
	"testing"

	"github.com/cbegin/midifm-go/internal/fm"
)

type testFactory struct {
	params fm.VoiceParams
	groups map[int]int
	notes  []int
	drums  []int
}

func (f *testFactory) Note(v *Voice, program, key, velocity int, freqMul float64) bool {
	f.notes = append(f.notes, program)
	v.Init(f.params, key, velocity, center14, 0, freqMul)
	return true
}

func (f *testFactory) Drum(v *Voice, kit, key, velocity int, freqMul float64) bool {
	f.drums = append(f.drums, kit)
	v.Init(f.params, key, velocity, center14, f.groups[key], freqMul)
	return true
}

func sustainVoice(ar, dr, sl int) fm.VoiceParams {
	p := fm.VoiceParams{ALG: 7}
	for i := range p.Op {
		p.Op[i] = fm.OperatorParams{AR: ar, DR: dr, SL: sl, RR: 8, ML: 1}
	}
	return p
}

func newTestChannel(f NoteFactory, defaultBank int) *Channel {
	c := newChannel(NewPool(0), defaultBank)
	c.SetFactory(f)
	return c
}

func voiceAt(c *Channel, i int) *Voice {
	return c.pool.Get(c.voices[i].ref)
}

func render(c *Channel, frames int) []int32 {
	buf := make([]int32, frames*2)
	c.Synthesize(buf, frames, 48000, 1, center14)
	return buf
}

func TestPanCenterGivesEqualGains(t *testing.T) {
	l, r := panGains(center14, center14, center14, 1)
	if l != r {
		t.Fatalf("center pan gains differ: l=%d r=%d", l, r)
	}
	if l == 0 {
		t.Fatal("center gain should not be silent")
	}
	hardL, zeroR := panGains(0, center14, center14, 1)
	if zeroR != 0 || hardL != unityQ15 {
		t.Fatalf("hard left = (%d, %d)", hardL, zeroR)
	}
	zeroL, hardR := panGains(max14, center14, center14, 1)
	if zeroL != 0 || hardR != unityQ15 {
		t.Fatalf("hard right = (%d, %d)", zeroL, hardR)
	}
}

func TestVolumeLawIsSquared(t *testing.T) {
	full := volumeGain(1, max14, max14)
	half := volumeGain(1, max14/2, max14)
	if math.Abs(full-1) > 1e-9 {
		t.Fatalf("full volume gain = %f", full)
	}
	if math.Abs(half-0.25) > 0.001 {
		t.Fatalf("half volume gain = %f, want ~0.25", half)
	}
}

func TestNoteOnVelocityZeroIsNoteOff(t *testing.T) {
	f := &testFactory{params: sustainVoice(31, 0, 0)}
	c := newTestChannel(f, 0)
	c.NoteOn(60, 100)
	c.NoteOn(60, 0)
	if c.voices[0].on {
		t.Fatal("velocity 0 should release the note")
	}
	if len(f.notes) != 1 {
		t.Fatalf("velocity 0 must not create a voice, factory calls %d", len(f.notes))
	}
}

func TestNoteOnSameKeyReleasesPrevious(t *testing.T) {
	f := &testFactory{params: sustainVoice(31, 0, 0)}
	c := newTestChannel(f, 0)
	c.NoteOn(60, 100)
	c.NoteOn(60, 100)
	on := 0
	for _, av := range c.voices {
		if av.on {
			on++
		}
	}
	if on != 1 {
		t.Fatalf("expected exactly one note-on voice per key, got %d", on)
	}
	if !voiceAt(c, 0).Released() {
		t.Fatal("first voice should be released")
	}
}

func TestMonoModeChokesBeforeNewVoice(t *testing.T) {
	c := newTestChannel(&testFactory{params: sustainVoice(31, 0, 0)}, 0)
	c.ControlChange(0x7E, 1)
	c.NoteOn(60, 100)
	render(c, 64)
	c.NoteOn(64, 100)
	first := voiceAt(c, 0)
	for i := 0; i < 4; i++ {
		if s := first.Generator().Operator(i).EnvState(); s != fm.EnvSoundOff {
			t.Fatalf("op%d of choked voice in %v, want SOUNDOFF", i+1, s)
		}
	}
	if st := voiceAt(c, 1).Generator().Operator(0).EnvState(); st != fm.EnvAttack {
		t.Fatalf("new voice state %v", st)
	}
}

func TestAssignGroupChokesDrum(t *testing.T) {
	f := &testFactory{params: sustainVoice(20, 0, 0), groups: map[int]int{42: 1, 46: 1, 36: 0}}
	c := newTestChannel(f, percussionBank)
	c.NoteOn(46, 100)
	c.NoteOn(36, 100)
	render(c, 100)
	if s := voiceAt(c, 0).Generator().Operator(0).EnvState(); s != fm.EnvAttack {
		t.Fatalf("open hat should still be attacking, got %v", s)
	}
	c.NoteOn(42, 100)
	if s := voiceAt(c, 0).Generator().Operator(0).EnvState(); s != fm.EnvSoundOff {
		t.Fatalf("open hat should be choked, got %v", s)
	}
	if s := voiceAt(c, 1).Generator().Operator(0).EnvState(); s != fm.EnvAttack {
		t.Fatalf("kick has no group and must keep sounding, got %v", s)
	}
	if len(f.drums) != 3 || len(f.notes) != 0 {
		t.Fatalf("percussion channel should use Drum: drums %d notes %d", len(f.drums), len(f.notes))
	}
}

func TestNoteOnNoteOffScenario(t *testing.T) {
	t.Run("small AR", func(t *testing.T) {
		c := newTestChannel(&testFactory{params: sustainVoice(5, 8, 3)}, 0)
		c.NoteOn(60, 100)
		render(c, 16)
		c.NoteOff(60, 64)
		if s := voiceAt(c, 0).Generator().Operator(0).EnvState(); s != fm.EnvAttackRelease {
			t.Fatalf("state %v, want ATTACK_RELEASE", s)
		}
	})
	t.Run("decay-completing AR", func(t *testing.T) {
		c := newTestChannel(&testFactory{params: sustainVoice(31, 31, 0)}, 0)
		c.NoteOn(60, 100)
		render(c, 16)
		c.NoteOff(60, 64)
		if s := voiceAt(c, 0).Generator().Operator(0).EnvState(); s != fm.EnvRelease {
			t.Fatalf("state %v, want RELEASE", s)
		}
	})
}

func TestSynthesizePrunesFinishedVoices(t *testing.T) {
	c := newTestChannel(&testFactory{params: sustainVoice(31, 0, 0)}, 0)
	c.NoteOn(60, 100)
	render(c, 100)
	c.AllSoundOff()
	for i := 0; i < 100 && c.ActiveVoices() > 0; i++ {
		render(c, 480)
	}
	if c.ActiveVoices() != 0 {
		t.Fatalf("voices left after sound off: %d", c.ActiveVoices())
	}
	if c.pool.Len() != 0 {
		t.Fatalf("pool still holds %d voices", c.pool.Len())
	}
}

func TestAllSoundOffImmediately(t *testing.T) {
	c := newTestChannel(&testFactory{params: sustainVoice(31, 0, 0)}, 0)
	c.NoteOn(60, 100)
	c.NoteOn(64, 100)
	c.AllSoundOffImmediately()
	if c.ActiveVoices() != 0 || c.pool.Len() != 0 {
		t.Fatalf("expected no voices, channel %d pool %d", c.ActiveVoices(), c.pool.Len())
	}
	for _, s := range render(c, 32) {
		if s != 0 {
			t.Fatal("expected silence")
		}
	}
}

func TestChannelMuteSilences(t *testing.T) {
	c := newTestChannel(&testFactory{params: sustainVoice(31, 0, 0)}, 0)
	c.SetMute(true)
	c.NoteOn(60, 100)
	for _, s := range render(c, 256) {
		if s != 0 {
			t.Fatal("muted channel produced output")
		}
	}
}

func TestRPNBendSensitivityAndPitchBend(t *testing.T) {
	c := newTestChannel(&testFactory{params: sustainVoice(31, 0, 0)}, 0)
	c.ControlChange(0x65, 0)
	c.ControlChange(0x64, 0)
	c.ControlChange(0x06, 12)
	c.ControlChange(0x26, 0)
	if c.bendSensitivity != 12<<7 {
		t.Fatalf("bend sensitivity = %d", c.bendSensitivity)
	}
	c.PitchBend(max14)
	want := math.Exp2(12 * float64(max14-center14) / center14 / 12)
	if got := c.FrequencyMultiplier(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("multiplier = %f, want %f", got, want)
	}
	c.PitchBend(center14)
	if got := c.FrequencyMultiplier(); got != 1 {
		t.Fatalf("centered bend multiplier = %f", got)
	}
}

func TestRPNCoarseTuningAndIncrement(t *testing.T) {
	c := newTestChannel(&testFactory{params: sustainVoice(31, 0, 0)}, 0)
	c.ControlChange(0x65, 0)
	c.ControlChange(0x64, 2)
	c.ControlChange(0x06, 76)
	if got := c.FrequencyMultiplier(); math.Abs(got-2) > 1e-9 {
		t.Fatalf("coarse +12 multiplier = %f", got)
	}
	c.ControlChange(0x64, 0)
	c.ControlChange(0x60, 0)
	if c.bendSensitivity != 2<<7+1 {
		t.Fatalf("increment gave %d", c.bendSensitivity)
	}
	c.ControlChange(0x61, 0)
	c.ControlChange(0x61, 0)
	if c.bendSensitivity != 2<<7-1 {
		t.Fatalf("decrement gave %d", c.bendSensitivity)
	}
}

func TestRPNUnknownAndNRPNAreNoOps(t *testing.T) {
	c := newTestChannel(&testFactory{params: sustainVoice(31, 0, 0)}, 0)
	before := *c
	c.ControlChange(0x65, 0x3D)
	c.ControlChange(0x64, 0x00)
	c.ControlChange(0x06, 99)
	c.ControlChange(0x63, 0)
	c.ControlChange(0x62, 0)
	c.ControlChange(0x06, 99)
	if c.bendSensitivity != before.bendSensitivity || c.fineTuning != before.fineTuning ||
		c.coarseTuning != before.coarseTuning || c.modulationRange != before.modulationRange {
		t.Fatal("unknown RPN or NRPN changed a registered parameter")
	}
}

func TestBankSelectPerMode(t *testing.T) {
	tests := []struct {
		name        string
		mode        SystemMode
		defaultBank int
		msb, lsb    int
		want        int
	}{
		{"gm ignores", ModeGM, 0, 1, 2, 0},
		{"gm2 sets", ModeGM2, 0, 121, 1, 121<<7 | 1},
		{"gs melodic", ModeGS, 0, 8, 0, 8 << 7},
		{"gs rejects drum bank", ModeGS, 0, 120, 0, 0},
		{"gs rhythm part fixed", ModeGS, percussionBank, 8, 0, percussionBank},
		{"gs rhythm part switches kits", ModeGS, percussionBank, 120, 5, percussionBank | 5},
		{"xg drum region", ModeXG, 0, 127, 0, percussionBank},
		{"xg drum default msb 0", ModeXG, percussionBank, 0, 3, percussionBank | 3},
		{"xg melodic", ModeXG, 0, 0, 5, 5},
		{"default drum keeps region", ModeDefault, percussionBank, 1, 4, percussionBank | 4},
		{"default melodic", ModeDefault, 0, 2, 1, 2<<7 | 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestChannel(&testFactory{}, tt.defaultBank)
			c.SetSystemMode(tt.mode)
			c.ControlChange(0x00, tt.msb)
			c.ControlChange(0x20, tt.lsb)
			if c.Bank() != tt.want {
				t.Fatalf("bank = %#x, want %#x", c.Bank(), tt.want)
			}
		})
	}
}

func TestProgramIDCarriesBank(t *testing.T) {
	f := &testFactory{params: sustainVoice(31, 0, 0)}
	c := newTestChannel(f, 0)
	c.SetSystemMode(ModeGM2)
	c.ControlChange(0x00, 0)
	c.ControlChange(0x20, 7)
	c.ProgramChange(55)
	c.NoteOn(60, 100)
	if len(f.notes) != 1 || f.notes[0] != 7<<7|55 {
		t.Fatalf("factory program ids %v", f.notes)
	}
}

func TestResetAllControllerKeepsVolumeAndPan(t *testing.T) {
	c := newTestChannel(&testFactory{}, 0)
	c.ControlChange(0x07, 50)
	c.ControlChange(0x0A, 10)
	c.ControlChange(0x0B, 20)
	c.ControlChange(0x01, 90)
	c.ControlChange(0x40, 127)
	c.PitchBend(0)
	c.ControlChange(0x79, 0)
	if c.Volume() != 50<<7 || c.Pan() != 10<<7 {
		t.Fatalf("volume/pan changed: %d %d", c.Volume(), c.Pan())
	}
	if c.Expression() != max14 || c.modulation != 0 || c.damper != 0 || c.pitchBend != center14 {
		t.Fatalf("controllers not reset: expr %d mod %d damper %d bend %d",
			c.Expression(), c.modulation, c.damper, c.pitchBend)
	}
	if c.rpn != rpnNull {
		t.Fatalf("rpn not nulled: %#x", c.rpn)
	}
}

func TestResetAllParametersDefaults(t *testing.T) {
	c := newTestChannel(&testFactory{}, 0)
	c.ControlChange(0x07, 1)
	c.ControlChange(0x5B, 0)
	c.ControlChange(0x5E, 90)
	c.ControlChange(0x7E, 0)
	c.ResetAllParameters()
	if c.Volume() != 100<<7 || c.Pan() != center14 || c.ReverbSend() != 40 || c.ChorusSend() != 0 || c.DelaySend() != 0 || c.Mono() {
		t.Fatal("power-on defaults not restored")
	}
}

func TestPressureDrivesTremolo(t *testing.T) {
	plain := newTestChannel(&testFactory{params: sustainVoice(31, 0, 0)}, 0)
	pressed := newTestChannel(&testFactory{params: sustainVoice(31, 0, 0)}, 0)
	plain.NoteOn(69, 100)
	pressed.NoteOn(69, 100)
	pressed.ChannelPressure(127)
	a, b := render(plain, 4800), render(pressed, 4800)
	differs := false
	for i := range a {
		if a[i] != b[i] {
			differs = true
			break
		}
	}
	if !differs {
		t.Fatal("channel pressure had no audible effect")
	}
}

func BenchmarkChannelSynthesize(b *testing.B) {
	c := newTestChannel(&testFactory{params: sustainVoice(31, 0, 0)}, 0)
	for k := 48; k < 56; k++ {
		c.NoteOn(k, 100)
	}
	buf := make([]int32, 1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Synthesize(buf, 512, 48000, 1, center14)
	}
}

func TestEffectSendControllers(t *testing.T) {
	tests := []struct {
		cc   int
		send func(*Channel) int
	}{
		{0x5B, (*Channel).ReverbSend},
		{0x5D, (*Channel).ChorusSend},
		{0x5E, (*Channel).DelaySend},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("cc%#x", tt.cc), func(t *testing.T) {
			c := newTestChannel(&testFactory{}, 0)
			c.ControlChange(tt.cc, 77)
			if got := tt.send(c); got != 77 {
				t.Fatalf("send = %d, want 77", got)
			}
		})
	}
}
