package synth

// NoteFactory initialises melodic voices. program carries the bank in its
// upper bits (bank<<7 | program). Implementations return false when they
// have nothing to play, in which case the note is dropped.
type NoteFactory interface {
	Note(v *Voice, program, key, velocity int, freqMul float64) bool
}

// DrumFactory is a NoteFactory that can also build percussion voices. kit
// is (drum bank LSB)<<7 | program.
type DrumFactory interface {
	NoteFactory
	Drum(v *Voice, kit, key, velocity int, freqMul float64) bool
}

// NoteFactoryFunc adapts a function to NoteFactory.
type NoteFactoryFunc func(v *Voice, program, key, velocity int, freqMul float64) bool

func (f NoteFactoryFunc) Note(v *Voice, program, key, velocity int, freqMul float64) bool {
	return f(v, program, key, velocity, freqMul)
}
