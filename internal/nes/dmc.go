package nes

// dmcTable gives the delta timer period in CPU cycles for each of the
// 16 rates of $4010.
var dmcTable = [16]uint16{
	428, 380, 340, 320, 286, 254, 226, 214, 190, 160, 142, 128, 106, 84, 72, 54,
}

// dmc plays 1-bit delta-encoded samples fetched directly from CPU
// address space.
type dmc struct {
	mem ReadWriter

	enabled   bool
	value     uint8
	loop      bool
	irqEnable bool
	irq       bool

	sampleAddress  uint16
	sampleLength   uint16
	currentAddress uint16
	currentLength  uint16

	shiftRegister uint8
	bitCount      uint8
	tickPeriod    uint16
	tickValue     uint16

	// CPU cycles owed for sample fetches, drained by the console
	stall int
}

func (d *dmc) writeControl(data uint8) {
	d.irqEnable = data&0x80 > 0
	if !d.irqEnable {
		d.irq = false
	}
	d.loop = data&0x40 > 0
	d.tickPeriod = dmcTable[data&0x0f]
}

func (d *dmc) writeValue(data uint8) {
	d.value = data & 0x7f
}

func (d *dmc) writeAddress(data uint8) {
	// sample address is $C000 + data*64
	d.sampleAddress = 0xc000 | uint16(data)<<6
}

func (d *dmc) writeLength(data uint8) {
	// sample length is data*16 + 1 bytes
	d.sampleLength = uint16(data)<<4 | 1
}

func (d *dmc) restart() {
	d.currentAddress = d.sampleAddress
	d.currentLength = d.sampleLength
}

func (d *dmc) stepTimer() {
	if !d.enabled {
		return
	}
	d.stepReader()
	if d.tickValue > 0 {
		d.tickValue--
		return
	}
	d.tickValue = d.tickPeriod
	d.stepShifter()
}

func (d *dmc) stepReader() {
	if d.currentLength == 0 || d.bitCount != 0 {
		return
	}
	// the DPCM unit steals the bus for the fetch
	d.shiftRegister = d.mem.Read8(d.currentAddress)
	d.stall += 4
	d.bitCount = 8
	d.currentAddress++
	if d.currentAddress == 0 {
		d.currentAddress = 0x8000
	}
	d.currentLength--
	if d.currentLength == 0 {
		if d.loop {
			d.restart()
		} else if d.irqEnable {
			d.irq = true
		}
	}
}

func (d *dmc) stepShifter() {
	if d.bitCount == 0 {
		return
	}
	if d.shiftRegister&1 == 1 {
		if d.value <= 125 {
			d.value += 2
		}
	} else {
		if d.value >= 2 {
			d.value -= 2
		}
	}
	d.shiftRegister >>= 1
	d.bitCount--
}

func (d *dmc) output() uint8 {
	return d.value
}
