package nes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ticAPU(a *APU, n int) {
	for i := 0; i < n; i++ {
		a.Tic()
	}
}

func Test_APU_FrameSequencer(t *testing.T) {
	t.Run("quarter frame clocks envelopes", func(t *testing.T) {
		a := NewAPU(nil)
		a.writeRegister(0x4015, 0x01)
		a.writeRegister(0x4000, 0x04) // envelope enabled, period 4
		a.writeRegister(0x4003, 0x08) // restarts the envelope

		ticAPU(a, seqStep1)

		assert.False(t, a.pulse1.envelopeStart)
		assert.Equal(t, uint8(15), a.pulse1.envelopeVolume)
	})

	t.Run("half frame clocks length counters", func(t *testing.T) {
		a := NewAPU(nil)
		a.writeRegister(0x4015, 0x01)
		a.writeRegister(0x4000, 0x00)
		a.writeRegister(0x4003, 0x08) // length index 1 loads 254

		assert.Equal(t, uint8(254), a.pulse1.lengthValue)
		ticAPU(a, seqStep2)
		assert.Equal(t, uint8(253), a.pulse1.lengthValue)
	})

	t.Run("length halt stops the counter", func(t *testing.T) {
		a := NewAPU(nil)
		a.writeRegister(0x4015, 0x01)
		a.writeRegister(0x4000, 0x20) // halt bit
		a.writeRegister(0x4003, 0x08)

		ticAPU(a, seqStep2)

		assert.Equal(t, uint8(254), a.pulse1.lengthValue)
	})

	t.Run("4-step mode raises the frame IRQ", func(t *testing.T) {
		a := NewAPU(nil)

		ticAPU(a, seqStep4)

		assert.True(t, a.IRQ())
	})

	t.Run("IRQ inhibited", func(t *testing.T) {
		a := NewAPU(nil)
		a.writeRegister(0x4017, 0x40)

		ticAPU(a, seq4StepPeriod)

		assert.False(t, a.IRQ())
	})

	t.Run("5-step mode raises no IRQ", func(t *testing.T) {
		a := NewAPU(nil)
		a.writeRegister(0x4017, 0x80)

		ticAPU(a, seq5StepPeriod)

		assert.False(t, a.IRQ())
	})

	t.Run("switching to 5-step clocks immediately", func(t *testing.T) {
		a := NewAPU(nil)
		a.writeRegister(0x4015, 0x01)
		a.writeRegister(0x4000, 0x00)
		a.writeRegister(0x4003, 0x08)

		a.writeRegister(0x4017, 0x80)

		assert.Equal(t, uint8(253), a.pulse1.lengthValue)
	})
}

func Test_APU_Status(t *testing.T) {
	t.Run("length counters show up", func(t *testing.T) {
		a := NewAPU(nil)
		a.writeRegister(0x4015, 0x05)
		a.writeRegister(0x4003, 0x08)
		a.writeRegister(0x400b, 0x08)

		assert.Equal(t, uint8(0x05), a.readStatus()&0x0f)
	})

	t.Run("disabling a channel clears its length", func(t *testing.T) {
		a := NewAPU(nil)
		a.writeRegister(0x4015, 0x01)
		a.writeRegister(0x4003, 0x08)

		a.writeRegister(0x4015, 0x00)

		assert.Zero(t, a.pulse1.lengthValue)
		assert.Zero(t, a.readStatus()&0x01)
	})

	t.Run("length not loaded while disabled", func(t *testing.T) {
		a := NewAPU(nil)
		a.writeRegister(0x4003, 0x08)

		assert.Zero(t, a.pulse1.lengthValue)
	})

	t.Run("reading clears the frame IRQ", func(t *testing.T) {
		a := NewAPU(nil)
		ticAPU(a, seqStep4)

		first := a.readStatus()
		second := a.readStatus()

		assert.NotZero(t, first&0x40)
		assert.Zero(t, second&0x40)
	})
}

func Test_Pulse_Output(t *testing.T) {
	newAudiblePulse := func() *pulse {
		p := &pulse{
			enabled:        true,
			lengthValue:    10,
			timerPeriod:    100,
			dutyMode:       2, // 50%: 0 1 1 1 1 0 0 0
			constantVolume: 7,
		}
		return p
	}

	t.Run("follows the duty sequence", func(t *testing.T) {
		p := newAudiblePulse()
		p.dutyValue = 1
		assert.Equal(t, uint8(7), p.output())
		p.dutyValue = 0
		assert.Zero(t, p.output())
	})

	t.Run("silent when period is out of range", func(t *testing.T) {
		p := newAudiblePulse()
		p.dutyValue = 1

		p.timerPeriod = 7
		assert.Zero(t, p.output())
		p.timerPeriod = 0x800
		assert.Zero(t, p.output())
	})

	t.Run("silent when length expired", func(t *testing.T) {
		p := newAudiblePulse()
		p.dutyValue = 1
		p.lengthValue = 0
		assert.Zero(t, p.output())
	})
}

func Test_Pulse_Sweep(t *testing.T) {
	t.Run("pulse 1 negates with one's complement", func(t *testing.T) {
		p := &pulse{channel: 1, timerPeriod: 0x100, sweepShift: 2, sweepNegate: true}
		p.sweep()
		// 0x100 - 0x40 - 1
		assert.Equal(t, uint16(0xbf), p.timerPeriod)
	})

	t.Run("pulse 2 negates with two's complement", func(t *testing.T) {
		p := &pulse{channel: 2, timerPeriod: 0x100, sweepShift: 2, sweepNegate: true}
		p.sweep()
		assert.Equal(t, uint16(0xc0), p.timerPeriod)
	})

	t.Run("sweep up", func(t *testing.T) {
		p := &pulse{channel: 1, timerPeriod: 0x100, sweepShift: 2}
		p.sweep()
		assert.Equal(t, uint16(0x140), p.timerPeriod)
	})
}

func Test_Triangle_LinearCounter(t *testing.T) {
	tr := &triangle{enabled: true, lengthValue: 10, timerPeriod: 4}

	tr.writeControl(0x05) // control clear, reload value 5
	tr.counterReload = true
	tr.stepCounter()
	assert.Equal(t, uint8(5), tr.counterValue)

	// sequencer advances only while both counters are live
	before := tr.dutyValue
	tr.timerValue = 0
	tr.stepTimer()
	assert.NotEqual(t, before, tr.dutyValue)

	tr.counterValue = 0
	tr.timerValue = 0
	step := tr.dutyValue
	tr.stepTimer()
	assert.Equal(t, step, tr.dutyValue)
	assert.Zero(t, tr.output())
}

func Test_Noise_LFSR(t *testing.T) {
	t.Run("mode 0 taps bit 1", func(t *testing.T) {
		n := &noise{shiftRegister: 1}
		n.stepTimer()
		assert.Equal(t, uint16(0x4000), n.shiftRegister)
	})

	t.Run("mode 1 taps bit 6", func(t *testing.T) {
		n := &noise{shiftRegister: 0x41, mode: true}
		n.stepTimer()
		// bit0=1 xor bit6=1 -> feedback 0
		assert.Equal(t, uint16(0x20), n.shiftRegister)
	})

	t.Run("period table", func(t *testing.T) {
		n := &noise{}
		n.writePeriod(0x0f)
		assert.Equal(t, uint16(4068), n.timerPeriod)
		n.writePeriod(0x00)
		assert.Equal(t, uint16(4), n.timerPeriod)
	})
}

func Test_DMC(t *testing.T) {
	t.Run("address and length registers", func(t *testing.T) {
		d := &dmc{}
		d.writeAddress(0x04)
		d.writeLength(0x02)
		assert.Equal(t, uint16(0xc100), d.sampleAddress)
		assert.Equal(t, uint16(0x21), d.sampleLength)
	})

	t.Run("enable restarts an empty sample", func(t *testing.T) {
		a := NewAPU(nil)
		a.dmc.writeAddress(0x04)
		a.dmc.writeLength(0x02)

		a.writeRegister(0x4015, 0x10)

		assert.Equal(t, uint16(0xc100), a.dmc.currentAddress)
		assert.Equal(t, uint16(0x21), a.dmc.currentLength)
	})

	t.Run("sample fetch requests a CPU stall", func(t *testing.T) {
		d := &dmc{mem: new(flatMem), enabled: true}
		d.writeControl(0x0f)
		d.writeLength(0x00) // 1 byte
		d.restart()

		d.stepReader()

		assert.Equal(t, uint8(8), d.bitCount)
		assert.Equal(t, 4, d.stall)
	})

	t.Run("delta output clamps", func(t *testing.T) {
		d := &dmc{value: 126, shiftRegister: 0xff, bitCount: 8}
		d.stepShifter()
		assert.Equal(t, uint8(126), d.value, "no step above 125")

		d = &dmc{value: 1, shiftRegister: 0x00, bitCount: 8}
		d.stepShifter()
		assert.Equal(t, uint8(1), d.value, "no step below 2")
	})

	t.Run("rate table", func(t *testing.T) {
		d := &dmc{}
		d.writeControl(0x00)
		assert.Equal(t, uint16(428), d.tickPeriod)
		d.writeControl(0x0f)
		assert.Equal(t, uint16(54), d.tickPeriod)
	})
}

func Test_APU_Mixer(t *testing.T) {
	a := NewAPU(nil)

	assert.Zero(t, a.output(), "all channels silent")

	a.pulse1 = pulse{enabled: true, lengthValue: 1, timerPeriod: 100, dutyMode: 3, dutyValue: 0, constantVolume: 15}
	out := a.output()
	assert.InDelta(t, 0.1494, float64(out), 0.001, "pulse table entry for 15")
}

func Test_APU_Sampling(t *testing.T) {
	a := NewAPU(nil)
	a.SetSampleRate(44100)

	ticAPU(a, cpuFrequency/100)

	// one hundredth of a second of samples, give or take one
	assert.InDelta(t, 441, len(a.samples), 1)
}
