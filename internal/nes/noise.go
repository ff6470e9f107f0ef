package nes

// noiseTable gives the timer period in CPU cycles for each of the 16
// rates of $400E.
var noiseTable = [16]uint16{
	4, 8, 16, 32, 64, 96, 128, 160, 202, 254, 380, 508, 762, 1016, 2034, 4068,
}

type noise struct {
	enabled bool

	mode          bool
	shiftRegister uint16

	lengthEnabled bool
	lengthValue   uint8

	timerPeriod uint16
	timerValue  uint16

	envelopeEnabled bool
	envelopeLoop    bool
	envelopeStart   bool
	envelopePeriod  uint8
	envelopeValue   uint8
	envelopeVolume  uint8
	constantVolume  uint8
}

func (n *noise) writeControl(data uint8) {
	n.lengthEnabled = data&0x20 == 0
	n.envelopeLoop = data&0x20 > 0
	n.envelopeEnabled = data&0x10 == 0
	n.envelopePeriod = data & 0x0f
	n.constantVolume = data & 0x0f
	n.envelopeStart = true
}

func (n *noise) writePeriod(data uint8) {
	n.mode = data&0x80 > 0
	n.timerPeriod = noiseTable[data&0x0f]
}

func (n *noise) writeLength(data uint8) {
	if n.enabled {
		n.lengthValue = lengthTable[data>>3]
	}
	n.envelopeStart = true
}

// stepTimer clocks the 15-bit LFSR. Mode 1 taps bit 6 instead of bit 1,
// which shortens the sequence to a buzzy 93 steps.
func (n *noise) stepTimer() {
	if n.timerValue > 0 {
		n.timerValue--
		return
	}
	n.timerValue = n.timerPeriod
	shift := uint8(1)
	if n.mode {
		shift = 6
	}
	b1 := n.shiftRegister & 1
	b2 := (n.shiftRegister >> shift) & 1
	n.shiftRegister >>= 1
	n.shiftRegister |= (b1 ^ b2) << 14
}

func (n *noise) stepEnvelope() {
	if n.envelopeStart {
		n.envelopeVolume = 15
		n.envelopeValue = n.envelopePeriod
		n.envelopeStart = false
		return
	}
	if n.envelopeValue > 0 {
		n.envelopeValue--
		return
	}
	if n.envelopeVolume > 0 {
		n.envelopeVolume--
	} else if n.envelopeLoop {
		n.envelopeVolume = 15
	}
	n.envelopeValue = n.envelopePeriod
}

func (n *noise) stepLength() {
	if n.lengthEnabled && n.lengthValue > 0 {
		n.lengthValue--
	}
}

func (n *noise) output() uint8 {
	if !n.enabled {
		return 0
	}
	if n.lengthValue == 0 {
		return 0
	}
	if n.shiftRegister&1 == 1 {
		return 0
	}
	if n.envelopeEnabled {
		return n.envelopeVolume
	}
	return n.constantVolume
}
