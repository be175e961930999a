package fm

import (
	"fmt"
	"testing"
)

func newTestEnvelope(rate float64, ar, dr, sr, rr, sl, tl int) *Envelope {
	e := &Envelope{}
	e.Init(scaledRate(ar*2, 60, 0), scaledRate(dr*2, 60, 0), scaledRate(sr*2, 60, 0), scaledRate(rr*4+2, 60, 0), sl, tl)
	e.SetRate(rate)
	return e
}

func TestEnvelopeKeyOffAfterAttackIsMonotonicAndFinishes(t *testing.T) {
	const rate = 8000
	for _, ar := range []int{20, 31} {
		for _, dr := range []int{0, 10, 31} {
			for _, sl := range []int{0, 8, 15} {
				for _, rr := range []int{0, 7, 15} {
					name := fmt.Sprintf("ar%d_dr%d_sl%d_rr%d", ar, dr, sl, rr)
					t.Run(name, func(t *testing.T) {
						e := newTestEnvelope(rate, ar, dr, 4, rr, sl, 0)
						for i := 0; i < 2000; i++ {
							e.Next()
						}
						e.KeyOff()
						prev := e.Level()
						limit := 60 * rate
						for i := 0; i < limit && !e.Finished(); i++ {
							lvl := e.Next()
							if lvl > prev {
								t.Fatalf("level rose after key off at sample %d: %d > %d (state %v)", i, lvl, prev, e.State())
							}
							prev = lvl
						}
						if !e.Finished() {
							t.Fatalf("envelope did not finish, state %v level %d", e.State(), e.Level())
						}
					})
				}
			}
		}
	}
}

// A key off during the attack lets the level keep rising to the peak before
// the release branch takes over.
func TestEnvelopeKeyOffDuringAttackRisesThenFalls(t *testing.T) {
	const rate = 8000
	for _, dr := range []int{0, 10} {
		for _, rr := range []int{0, 7} {
			t.Run(fmt.Sprintf("dr%d_rr%d", dr, rr), func(t *testing.T) {
				e := newTestEnvelope(rate, 20, dr, 4, rr, 8, 0)
				e.Next()
				e.KeyOff()
				if e.State() != EnvAttackRelease {
					t.Fatalf("state after early key off = %v", e.State())
				}
				prev := e.Level()
				limit := 60 * rate
				i := 0
				for ; i < limit && e.State() == EnvAttackRelease; i++ {
					lvl := e.Next()
					if e.State() == EnvAttackRelease && lvl < prev {
						t.Fatalf("attack fell at sample %d: %d < %d", i, lvl, prev)
					}
					prev = lvl
				}
				if e.State() == EnvAttackRelease {
					t.Fatal("attack never reached the peak")
				}
				for ; i < limit && !e.Finished(); i++ {
					lvl := e.Next()
					if lvl > prev {
						t.Fatalf("level rose after the peak at sample %d: %d > %d (state %v)", i, lvl, prev, e.State())
					}
					prev = lvl
				}
				if !e.Finished() {
					t.Fatalf("envelope did not finish, state %v level %d", e.State(), e.Level())
				}
			})
		}
	}
}

func TestEnvelopeSoundOffIsIdempotent(t *testing.T) {
	for _, warmup := range []int{1, 50, 5000} {
		once := newTestEnvelope(48000, 12, 8, 4, 6, 3, 10)
		twice := newTestEnvelope(48000, 12, 8, 4, 6, 3, 10)
		for i := 0; i < warmup; i++ {
			once.Next()
			twice.Next()
		}
		once.SoundOff()
		twice.SoundOff()
		twice.SoundOff()
		if once.State() != twice.State() || once.current != twice.current {
			t.Fatalf("warmup %d: once=(%v,%f) twice=(%v,%f)", warmup, once.State(), once.current, twice.State(), twice.current)
		}
		if once.State() != EnvSoundOff {
			t.Fatalf("warmup %d: expected SOUNDOFF, got %v", warmup, once.State())
		}
	}
}

func TestEnvelopeSoundOffFromAttackConvertsToLog(t *testing.T) {
	e := newTestEnvelope(48000, 5, 8, 4, 6, 3, 0)
	for i := 0; i < 4800; i++ {
		e.Next()
	}
	if e.State() != EnvAttack {
		t.Fatalf("expected slow attack still running, got %v", e.State())
	}
	before := e.Level()
	e.SoundOff()
	after := e.Level()
	if diff := before - after; diff < -2 || diff > before/100+2 {
		t.Fatalf("level jumped across domain conversion: before %d after %d", before, after)
	}
}

func TestEnvelopeAttackReleaseScenario(t *testing.T) {
	slow := newTestEnvelope(48000, 5, 8, 4, 6, 3, 0)
	slow.Next()
	slow.KeyOff()
	if slow.State() != EnvAttackRelease {
		t.Fatalf("small AR: expected ATTACK_RELEASE, got %v", slow.State())
	}

	fast := newTestEnvelope(48000, 31, 31, 0, 6, 0, 0)
	seen := []EnvState{fast.State()}
	for i := 0; i < 10; i++ {
		fast.Next()
		if s := fast.State(); s != seen[len(seen)-1] {
			seen = append(seen, s)
		}
	}
	fast.KeyOff()
	seen = append(seen, fast.State())
	want := []EnvState{EnvAttack, EnvDecay, EnvSustain, EnvRelease}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Fatalf("states = %v, want %v", seen, want)
	}
}

func TestEnvelopeAttackReleaseReachesPeakThenReleases(t *testing.T) {
	e := newTestEnvelope(8000, 20, 10, 4, 10, 2, 0)
	e.Next()
	e.KeyOff()
	sawDecayRelease := false
	for i := 0; i < 8000*30 && !e.Finished(); i++ {
		e.Next()
		if e.State() == EnvDecayRelease {
			sawDecayRelease = true
		}
	}
	if !sawDecayRelease {
		t.Fatalf("expected ATTACK_RELEASE to continue into DECAY_RELEASE")
	}
	if !e.Finished() {
		t.Fatalf("expected finish, state %v", e.State())
	}
}

func TestEnvelopeFreezeStopsDecay(t *testing.T) {
	e := newTestEnvelope(48000, 31, 20, 20, 10, 15, 0)
	e.Next()
	e.SetFreeze(1)
	lvl := e.Next()
	for i := 0; i < 48000; i++ {
		if got := e.Next(); got != lvl {
			t.Fatalf("frozen envelope moved: %d -> %d", lvl, got)
		}
	}
	e.SetFreeze(0)
	for i := 0; i < 480; i++ {
		e.Next()
	}
	if e.Level() >= lvl {
		t.Fatalf("expected decay to resume after freeze release")
	}
}

func TestEnvelopeDamperSlowsRelease(t *testing.T) {
	free := newTestEnvelope(48000, 31, 0, 2, 12, 0, 0)
	held := newTestEnvelope(48000, 31, 0, 2, 12, 0, 0)
	held.SetHold(1)
	for i := 0; i < 100; i++ {
		free.Next()
		held.Next()
	}
	free.KeyOff()
	held.KeyOff()
	for i := 0; i < 4800; i++ {
		free.Next()
		held.Next()
	}
	if held.Level() <= free.Level() {
		t.Fatalf("held release should stay louder: held %d free %d", held.Level(), free.Level())
	}
}

func TestEnvelopeWithoutRateIsFrozen(t *testing.T) {
	e := &Envelope{}
	e.Init(40, 20, 20, 30, 4, 0)
	for i := 0; i < 100; i++ {
		if lvl := e.Next(); lvl != 0 {
			t.Fatalf("expected silence before SetRate, got %d", lvl)
		}
	}
}

func TestEnvStateString(t *testing.T) {
	if got := EnvSustain.String(); got != "SASTAIN" {
		t.Fatalf("EnvSustain = %q", got)
	}
	if got := EnvState(99).String(); got != "UNKNOWN" {
		t.Fatalf("unknown state = %q", got)
	}
}
