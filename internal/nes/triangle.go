package nes

// triangleTable is the 32-step output sequence: 15 down to 0, then back
// up to 15.
var triangleTable = [32]uint8{
	15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0,
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

type triangle struct {
	enabled bool

	lengthEnabled bool
	lengthValue   uint8

	timerPeriod uint16
	timerValue  uint16
	dutyValue   uint8

	counterPeriod uint8
	counterValue  uint8
	counterReload bool
}

func (t *triangle) writeControl(data uint8) {
	t.lengthEnabled = data&0x80 == 0
	t.counterPeriod = data & 0x7f
}

func (t *triangle) writeTimerLow(data uint8) {
	t.timerPeriod = (t.timerPeriod & 0xff00) | uint16(data)
}

func (t *triangle) writeTimerHigh(data uint8) {
	if t.enabled {
		t.lengthValue = lengthTable[data>>3]
	}
	t.timerPeriod = (t.timerPeriod & 0x00ff) | uint16(data&7)<<8
	t.timerValue = t.timerPeriod
	t.counterReload = true
}

// stepTimer runs at the CPU clock. The sequencer only advances while
// both the length counter and the linear counter are nonzero.
func (t *triangle) stepTimer() {
	if t.timerValue > 0 {
		t.timerValue--
		return
	}
	t.timerValue = t.timerPeriod
	if t.lengthValue > 0 && t.counterValue > 0 {
		t.dutyValue = (t.dutyValue + 1) % 32
	}
}

func (t *triangle) stepLength() {
	if t.lengthEnabled && t.lengthValue > 0 {
		t.lengthValue--
	}
}

func (t *triangle) stepCounter() {
	if t.counterReload {
		t.counterValue = t.counterPeriod
	} else if t.counterValue > 0 {
		t.counterValue--
	}
	if t.lengthEnabled {
		t.counterReload = false
	}
}

func (t *triangle) output() uint8 {
	if !t.enabled {
		return 0
	}
	if t.lengthValue == 0 || t.counterValue == 0 {
		return 0
	}
	return triangleTable[t.dutyValue]
}
