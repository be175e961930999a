// Package bank maps MIDI programs and drum keys to FM timbres.
//
// Lookups never fail: a missing program falls back through progressively
// coarser ids until it reaches the sentinel entry, which always exists.
package bank

import (
	"github.com/cbegin/midifm-go/internal/fm"
	"github.com/cbegin/midifm-go/internal/synth"
)

// SentinelID is the id of the default entry in both tables.
const SentinelID = -1

const centerPan = 64

// ProgramBank holds melodic programs keyed by bank<<7|program and drum
// voices keyed by kit*128+key. It implements synth.DrumFactory.
type ProgramBank struct {
	programs map[int]fm.VoiceParams
	drums    map[int]fm.DrumVoiceParams
}

var _ synth.DrumFactory = (*ProgramBank)(nil)

// NewEmpty returns a bank holding only the sentinel entries.
func NewEmpty() *ProgramBank {
	b := &ProgramBank{
		programs: make(map[int]fm.VoiceParams),
		drums:    make(map[int]fm.DrumVoiceParams),
	}
	b.programs[SentinelID] = pureSine()
	b.drums[SentinelID] = fm.DrumVoiceParams{VoiceParams: defaultDrum(), Pan: centerPan}
	return b
}

// New returns a bank with the built-in presets: one template per GM
// instrument family and a standard drum kit.
func New() *ProgramBank {
	b := NewEmpty()
	for program := 0; program < 128; program++ {
		b.programs[program] = familyPresets[program>>3]
	}
	for key, d := range standardKit {
		b.drums[key] = d
	}
	return b
}

// pureSine is a single carrier at full level with the modulators muted.
func pureSine() fm.VoiceParams {
	p := fm.VoiceParams{ALG: 0}
	for i := range p.Op {
		p.Op[i] = fm.OperatorParams{AR: 31, DR: 0, SR: 0, RR: 7, SL: 0, TL: 127, ML: 1}
	}
	p.Op[3].TL = 0
	return p
}

// SetProgram stores a melodic timbre under id (bank<<7|program).
func (b *ProgramBank) SetProgram(id int, p fm.VoiceParams) {
	b.programs[id] = p.Clamp()
}

// SetDrum stores a percussion timbre for key in kit.
func (b *ProgramBank) SetDrum(kit, key int, p fm.DrumVoiceParams) {
	b.drums[drumID(kit, key)] = p.Clamp()
}

func drumID(kit, key int) int { return kit*128 + key }

// Len returns the number of programs and drum voices, sentinels included.
func (b *ProgramBank) Len() (programs, drums int) {
	return len(b.programs), len(b.drums)
}

// Program resolves id: exact, then id&0x3FFF, then id&0x7F, then the
// sentinel.
func (b *ProgramBank) Program(id int) fm.VoiceParams {
	for _, k := range [...]int{id, id & 0x3FFF, id & 0x7F} {
		if p, ok := b.programs[k]; ok {
			return p
		}
	}
	return b.programs[SentinelID]
}

// DrumVoice resolves key in kit: exact, then the kit without bank bits,
// then the bare key, then the sentinel. The sentinel plays at key.
func (b *ProgramBank) DrumVoice(kit, key int) fm.DrumVoiceParams {
	key &= 0x7F
	for _, k := range [...]int{drumID(kit, key), drumID(kit&0x7F, key), key} {
		if d, ok := b.drums[k]; ok {
			return d
		}
	}
	d := b.drums[SentinelID]
	d.Key = key
	return d
}

// Note initialises v with the program's timbre at key.
func (b *ProgramBank) Note(v *synth.Voice, program, key, velocity int, freqMul float64) bool {
	v.Init(b.Program(program), key, velocity, 64<<7, 0, freqMul)
	return true
}

// Drum initialises v with the drum voice for key in kit.
func (b *ProgramBank) Drum(v *synth.Voice, kit, key, velocity int, freqMul float64) bool {
	d := b.DrumVoice(kit, key)
	v.Init(d.VoiceParams, d.Key, velocity, d.Pan<<7, d.Assign, freqMul)
	return true
}

// MelodicOnly hides the drum capability, so rhythm channels stay silent.
func (b *ProgramBank) MelodicOnly() synth.NoteFactory {
	return melodicOnly{b}
}

type melodicOnly struct{ b *ProgramBank }

func (m melodicOnly) Note(v *synth.Voice, program, key, velocity int, freqMul float64) bool {
	return m.b.Note(v, program, key, velocity, freqMul)
}
