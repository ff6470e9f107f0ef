package nes

// lengthTable maps the 5-bit length index of $4003/$4007/$400B/$400F to
// a frame count.
var lengthTable = [32]uint8{
	10, 254, 20, 2, 40, 4, 80, 6, 160, 8, 60, 10, 14, 12, 26, 14,
	12, 16, 24, 18, 48, 20, 96, 22, 192, 24, 72, 26, 16, 28, 32, 30,
}

var dutyTable = [4][8]uint8{
	{0, 1, 0, 0, 0, 0, 0, 0},
	{0, 1, 1, 0, 0, 0, 0, 0},
	{0, 1, 1, 1, 1, 0, 0, 0},
	{1, 0, 0, 1, 1, 1, 1, 1},
}

// pulse is one of the two square wave channels. The channel number only
// matters for the sweep unit: pulse 1 negates with one's complement,
// pulse 2 with two's complement.
type pulse struct {
	enabled bool
	channel uint8

	lengthEnabled bool
	lengthValue   uint8

	timerPeriod uint16
	timerValue  uint16
	dutyMode    uint8
	dutyValue   uint8

	sweepReload  bool
	sweepEnabled bool
	sweepNegate  bool
	sweepShift   uint8
	sweepPeriod  uint8
	sweepValue   uint8

	envelopeEnabled bool
	envelopeLoop    bool
	envelopeStart   bool
	envelopePeriod  uint8
	envelopeValue   uint8
	envelopeVolume  uint8
	constantVolume  uint8
}

func (p *pulse) writeControl(data uint8) {
	p.dutyMode = (data >> 6) & 3
	p.lengthEnabled = data&0x20 == 0
	p.envelopeLoop = data&0x20 > 0
	p.envelopeEnabled = data&0x10 == 0
	p.envelopePeriod = data & 0x0f
	p.constantVolume = data & 0x0f
	p.envelopeStart = true
}

func (p *pulse) writeSweep(data uint8) {
	p.sweepEnabled = data&0x80 > 0
	p.sweepPeriod = (data>>4)&7 + 1
	p.sweepNegate = data&0x08 > 0
	p.sweepShift = data & 7
	p.sweepReload = true
}

func (p *pulse) writeTimerLow(data uint8) {
	p.timerPeriod = (p.timerPeriod & 0xff00) | uint16(data)
}

func (p *pulse) writeTimerHigh(data uint8) {
	if p.enabled {
		p.lengthValue = lengthTable[data>>3]
	}
	p.timerPeriod = (p.timerPeriod & 0x00ff) | uint16(data&7)<<8
	p.envelopeStart = true
	p.dutyValue = 0
}

func (p *pulse) stepTimer() {
	if p.timerValue == 0 {
		p.timerValue = p.timerPeriod
		p.dutyValue = (p.dutyValue + 1) % 8
	} else {
		p.timerValue--
	}
}

func (p *pulse) stepEnvelope() {
	if p.envelopeStart {
		p.envelopeVolume = 15
		p.envelopeValue = p.envelopePeriod
		p.envelopeStart = false
		return
	}
	if p.envelopeValue > 0 {
		p.envelopeValue--
		return
	}
	if p.envelopeVolume > 0 {
		p.envelopeVolume--
	} else if p.envelopeLoop {
		p.envelopeVolume = 15
	}
	p.envelopeValue = p.envelopePeriod
}

func (p *pulse) stepSweep() {
	switch {
	case p.sweepReload:
		if p.sweepEnabled && p.sweepValue == 0 {
			p.sweep()
		}
		p.sweepValue = p.sweepPeriod
		p.sweepReload = false
	case p.sweepValue > 0:
		p.sweepValue--
	default:
		if p.sweepEnabled {
			p.sweep()
		}
		p.sweepValue = p.sweepPeriod
	}
}

func (p *pulse) sweep() {
	delta := p.timerPeriod >> p.sweepShift
	if p.sweepNegate {
		p.timerPeriod -= delta
		if p.channel == 1 {
			p.timerPeriod--
		}
	} else {
		p.timerPeriod += delta
	}
}

func (p *pulse) stepLength() {
	if p.lengthEnabled && p.lengthValue > 0 {
		p.lengthValue--
	}
}

func (p *pulse) output() uint8 {
	if !p.enabled {
		return 0
	}
	if p.lengthValue == 0 {
		return 0
	}
	if dutyTable[p.dutyMode][p.dutyValue] == 0 {
		return 0
	}
	if p.timerPeriod < 8 || p.timerPeriod > 0x7ff {
		return 0
	}
	if p.envelopeEnabled {
		return p.envelopeVolume
	}
	return p.constantVolume
}
