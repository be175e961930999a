package synth

const (
	sysexStart = 0xF0
	sysexEnd   = 0xF7

	idUniversalNonRealtime = 0x7E
	idUniversalRealtime    = 0x7F
	idRoland               = 0x41
	idYamaha               = 0x43

	gsModel = 0x42
	xgModel = 0x4C
)

// SysexMessage handles a system exclusive message framed by F0 ... F7. It
// reports whether the message was recognised; anything else is ignored.
func (s *Synthesizer) SysexMessage(b []byte) bool {
	if s.sensingArmed {
		s.sensingLeft = s.params.ActiveSensing.Seconds()
	}
	if len(b) < 4 || b[0] != sysexStart || b[len(b)-1] != sysexEnd {
		return false
	}
	for _, v := range b[1 : len(b)-1] {
		if v > 0x7F {
			return false
		}
	}
	switch b[1] {
	case idUniversalNonRealtime:
		return s.universalNonRealtime(b)
	case idUniversalRealtime:
		return s.universalRealtime(b)
	case idRoland:
		return s.roland(b)
	case idYamaha:
		return s.yamaha(b)
	}
	return false
}

// F0 7E dd 09 0n F7: GM on (1), GM off (2), GM2 on (3).
func (s *Synthesizer) universalNonRealtime(b []byte) bool {
	if len(b) != 6 || b[3] != 0x09 {
		return false
	}
	switch b[4] {
	case 0x01:
		s.SetSystemMode(ModeGM)
	case 0x02:
		s.SetSystemMode(ModeDefault)
	case 0x03:
		s.SetSystemMode(ModeGM2)
	default:
		return false
	}
	return true
}

// F0 7F dd 04 0n ll mm F7: device control.
func (s *Synthesizer) universalRealtime(b []byte) bool {
	if len(b) != 8 || b[3] != 0x04 {
		return false
	}
	v := int(b[6])<<7 | int(b[5])
	switch b[4] {
	case 0x01:
		s.masterVolume = v
	case 0x02:
		s.masterBalance = v
	case 0x03:
		s.masterFine = v
		s.applyMasterTune()
	case 0x04:
		s.masterCoarse = int(b[6])
		s.applyMasterTune()
	default:
		return false
	}
	return true
}

// Roland GS: F0 41 1d 42 12 aa aa aa vv cs F7.
func (s *Synthesizer) roland(b []byte) bool {
	if len(b) != 11 || b[2]&0xF0 != 0x10 || b[3] != gsModel || b[4] != 0x12 {
		return false
	}
	if !gsChecksumOK(b[5:10]) {
		return false
	}
	addr := [3]byte{b[5], b[6], b[7]}
	switch {
	case addr == [3]byte{0x40, 0x00, 0x7F} && b[8] == 0x00:
		s.SetSystemMode(ModeGS)
		return true
	case addr[0] == 0x40 && addr[1]&0xF0 == 0x10 && addr[2] == 0x15:
		s.useForRhythmPart(gsPartChannel(addr[1]&0x0F), b[8])
		return true
	}
	return false
}

// gsChecksumOK checks a Roland checksum over address and data bytes.
func gsChecksumOK(b []byte) bool {
	sum := 0
	for _, v := range b {
		sum += int(v)
	}
	return sum&0x7F == 0
}

// gsPartChannel maps a GS part block nibble to a MIDI channel: block 0 is
// part 10, blocks 1-9 are parts 1-9, blocks A-F are parts 11-16.
func gsPartChannel(block byte) int {
	switch {
	case block == 0:
		return rhythmChannel
	case block <= 9:
		return int(block) - 1
	}
	return int(block)
}

// useForRhythmPart switches a channel between melodic (0) and a drum map
// (1, 2) and reissues program 0.
func (s *Synthesizer) useForRhythmPart(ch int, mode byte) {
	c := s.channels[ch]
	if mode == 0 {
		c.defaultBank = 0
	} else {
		c.defaultBank = percussionBank
	}
	c.bank = c.defaultBank
	c.ProgramChange(0)
}

// Yamaha XG System On: F0 43 1n 4C 00 00 7E 00 F7.
func (s *Synthesizer) yamaha(b []byte) bool {
	if len(b) != 9 || b[2]&0xF0 != 0x10 || b[3] != xgModel {
		return false
	}
	if b[4] == 0x00 && b[5] == 0x00 && b[6] == 0x7E && b[7] == 0x00 {
		s.SetSystemMode(ModeXG)
		return true
	}
	return false
}
