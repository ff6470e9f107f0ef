package nes

const cpuFrequency = 1789773

// frame sequencer event offsets in CPU cycles from the start of a
// sequence
const (
	seqStep1 = 7457
	seqStep2 = 14913
	seqStep3 = 22371
	seqStep4 = 29829
	seqStep5 = 37281

	seq4StepPeriod = 29830
	seq5StepPeriod = 37282
)

// mixer lookup tables, precomputed from the canonical nonlinear formulas
var (
	pulseTable [31]float32
	tndTable   [203]float32
)

func init() {
	for i := 1; i < len(pulseTable); i++ {
		pulseTable[i] = 95.52 / (8128.0/float32(i) + 100)
	}
	for i := 1; i < len(tndTable); i++ {
		tndTable[i] = 163.67 / (24329.0/float32(i) + 100)
	}
}

// APU is the audio unit. Tic advances it by one CPU cycle; the pulse
// channels divide that clock by two internally.
type APU struct {
	pulse1   pulse
	pulse2   pulse
	triangle triangle
	noise    noise
	dmc      dmc

	cycle      uint64
	frameCycle uint64
	fiveStep   bool
	irqInhibit bool
	frameIRQ   bool

	cyclesPerSample float64
	filters         filterChain
	samples         chan float32
}

func NewAPU(mem ReadWriter) *APU {
	a := &APU{
		samples: make(chan float32, 4096),
	}
	a.pulse1.channel = 1
	a.pulse2.channel = 2
	a.noise.shiftRegister = 1
	a.dmc.mem = mem
	return a
}

// SetSampleRate configures output sampling in Hz. With a zero rate the
// APU still runs but produces no samples.
func (a *APU) SetSampleRate(hz int) {
	if hz <= 0 {
		a.cyclesPerSample = 0
		return
	}
	a.cyclesPerSample = float64(cpuFrequency) / float64(hz)
	a.filters = newFilterChain(float32(hz))
}

// Samples returns the channel the mixed output is delivered on. Samples
// are dropped when the consumer falls behind.
func (a *APU) Samples() <-chan float32 {
	return a.samples
}

// IRQ reports whether the frame counter or the DMC holds an interrupt.
func (a *APU) IRQ() bool {
	return a.frameIRQ || a.dmc.irq
}

// Stall returns the CPU cycles consumed by DMC sample fetches since the
// last call.
func (a *APU) Stall() int {
	n := a.dmc.stall
	a.dmc.stall = 0
	return n
}

func (a *APU) Reset() {
	a.writeRegister(0x4015, 0)
	a.writeRegister(0x4017, 0)
	a.frameIRQ = false
	a.frameCycle = 0
	a.dmc.stall = 0
}

// Tic advances the APU by one CPU cycle.
func (a *APU) Tic() {
	a.stepTimers()
	a.stepFrameCounter()

	if a.cyclesPerSample > 0 {
		s1 := int(float64(a.cycle) / a.cyclesPerSample)
		s2 := int(float64(a.cycle+1) / a.cyclesPerSample)
		if s1 != s2 {
			a.sendSample()
		}
	}
	a.cycle++
}

func (a *APU) stepTimers() {
	if a.cycle%2 == 0 {
		a.pulse1.stepTimer()
		a.pulse2.stepTimer()
	}
	a.triangle.stepTimer()
	a.noise.stepTimer()
	a.dmc.stepTimer()
}

func (a *APU) stepFrameCounter() {
	a.frameCycle++
	if a.fiveStep {
		switch a.frameCycle {
		case seqStep1, seqStep3:
			a.stepEnvelopes()
		case seqStep2, seqStep5:
			a.stepEnvelopes()
			a.stepSweeps()
			a.stepLengths()
		case seq5StepPeriod:
			a.frameCycle = 0
		}
		return
	}
	switch a.frameCycle {
	case seqStep1, seqStep3:
		a.stepEnvelopes()
	case seqStep2:
		a.stepEnvelopes()
		a.stepSweeps()
		a.stepLengths()
	case seqStep4:
		a.stepEnvelopes()
		a.stepSweeps()
		a.stepLengths()
		if !a.irqInhibit {
			a.frameIRQ = true
		}
	case seq4StepPeriod:
		a.frameCycle = 0
	}
}

func (a *APU) stepEnvelopes() {
	a.pulse1.stepEnvelope()
	a.pulse2.stepEnvelope()
	a.triangle.stepCounter()
	a.noise.stepEnvelope()
}

func (a *APU) stepSweeps() {
	a.pulse1.stepSweep()
	a.pulse2.stepSweep()
}

func (a *APU) stepLengths() {
	a.pulse1.stepLength()
	a.pulse2.stepLength()
	a.triangle.stepLength()
	a.noise.stepLength()
}

func (a *APU) output() float32 {
	p := uint16(a.pulse1.output()) + uint16(a.pulse2.output())
	tnd := 3*uint16(a.triangle.output()) + 2*uint16(a.noise.output()) + uint16(a.dmc.output())
	return pulseTable[p] + tndTable[tnd]
}

func (a *APU) sendSample() {
	s := a.filters.Step(a.output())
	select {
	case a.samples <- s:
	default:
	}
}

func (a *APU) readRegister(addr uint16) uint8 {
	if addr == 0x4015 {
		return a.readStatus()
	}
	return 0
}

func (a *APU) readStatus() uint8 {
	var r uint8
	if a.pulse1.lengthValue > 0 {
		r |= 0x01
	}
	if a.pulse2.lengthValue > 0 {
		r |= 0x02
	}
	if a.triangle.lengthValue > 0 {
		r |= 0x04
	}
	if a.noise.lengthValue > 0 {
		r |= 0x08
	}
	if a.dmc.currentLength > 0 {
		r |= 0x10
	}
	if a.frameIRQ {
		r |= 0x40
	}
	if a.dmc.irq {
		r |= 0x80
	}
	a.frameIRQ = false
	return r
}

func (a *APU) writeRegister(addr uint16, data uint8) {
	switch addr {
	case 0x4000:
		a.pulse1.writeControl(data)
	case 0x4001:
		a.pulse1.writeSweep(data)
	case 0x4002:
		a.pulse1.writeTimerLow(data)
	case 0x4003:
		a.pulse1.writeTimerHigh(data)
	case 0x4004:
		a.pulse2.writeControl(data)
	case 0x4005:
		a.pulse2.writeSweep(data)
	case 0x4006:
		a.pulse2.writeTimerLow(data)
	case 0x4007:
		a.pulse2.writeTimerHigh(data)
	case 0x4008:
		a.triangle.writeControl(data)
	case 0x400a:
		a.triangle.writeTimerLow(data)
	case 0x400b:
		a.triangle.writeTimerHigh(data)
	case 0x400c:
		a.noise.writeControl(data)
	case 0x400e:
		a.noise.writePeriod(data)
	case 0x400f:
		a.noise.writeLength(data)
	case 0x4010:
		a.dmc.writeControl(data)
	case 0x4011:
		a.dmc.writeValue(data)
	case 0x4012:
		a.dmc.writeAddress(data)
	case 0x4013:
		a.dmc.writeLength(data)
	case 0x4015:
		a.writeStatus(data)
	case 0x4017:
		a.writeFrameCounter(data)
	}
}

func (a *APU) writeStatus(data uint8) {
	a.pulse1.enabled = data&0x01 > 0
	a.pulse2.enabled = data&0x02 > 0
	a.triangle.enabled = data&0x04 > 0
	a.noise.enabled = data&0x08 > 0
	a.dmc.enabled = data&0x10 > 0

	if !a.pulse1.enabled {
		a.pulse1.lengthValue = 0
	}
	if !a.pulse2.enabled {
		a.pulse2.lengthValue = 0
	}
	if !a.triangle.enabled {
		a.triangle.lengthValue = 0
	}
	if !a.noise.enabled {
		a.noise.lengthValue = 0
	}
	if !a.dmc.enabled {
		a.dmc.currentLength = 0
	} else if a.dmc.currentLength == 0 {
		a.dmc.restart()
	}
	a.dmc.irq = false
}

func (a *APU) writeFrameCounter(data uint8) {
	a.fiveStep = data&0x80 > 0
	a.irqInhibit = data&0x40 > 0
	if a.irqInhibit {
		a.frameIRQ = false
	}
	a.frameCycle = 0
	if a.fiveStep {
		a.stepEnvelopes()
		a.stepSweeps()
		a.stepLengths()
	}
}
