package nes

import (
	"image"
	"image/color"
	"strings"
)

const ppuDotsPerCPUCycle = 3

// Console wires the CPU, PPU, APU, RAM, cartridge and controllers
// together and drives them in lockstep: every CPU cycle advances the
// PPU by three dots and the APU by one cycle.
type Console struct {
	cpu  *CPU
	ppu  *PPU
	apu  *APU
	cart *Cart
	ram  *RAM
	joy1 *Joypad
	joy2 *Joypad

	mem         ReadWriter
	stallCycles int
	dmaPending  bool
	ticCounter  uint64
}

func NewConsole(cart *Cart) *Console {
	c := &Console{
		cart: cart,
		ram:  NewRAM(),
		joy1: NewJoypad(),
		joy2: NewJoypad(),
	}
	mem := c.newCpuMemory()
	c.mem = mem
	c.cpu = NewCPU(mem)
	c.ppu = NewPPU(cart)
	c.apu = NewAPU(mem)
	c.cpu.Reset()
	return c
}

// Reset asserts the reset line. RAM keeps its contents, as on hardware.
func (c *Console) Reset() {
	c.cpu.Reset()
	c.ppu.Reset()
	c.apu.Reset()
	c.stallCycles = 0
	c.dmaPending = false
	c.ticCounter = 0
}

// StepInstruction runs exactly one CPU instruction and clocks the PPU
// and APU for every cycle it consumed, including DMA stalls. It returns
// the number of CPU cycles elapsed.
func (c *Console) StepInstruction() int {
	if c.ppu.PollNMI() {
		c.cpu.RequestNMI()
	}
	if c.apu.IRQ() {
		c.cpu.RequestIRQ()
	}

	cycles := c.cpu.Step()
	if c.dmaPending {
		c.dmaPending = false
		// the DMA unit takes over on the cycle after the $4014
		// write, the last cycle of the store instruction
		c.stallCycles += 513
		if c.cpu.TotalCycles()%2 == 1 {
			c.stallCycles++
		}
	}
	cycles += c.stallCycles
	c.stallCycles = 0

	for i := 0; i < cycles; i++ {
		for j := 0; j < ppuDotsPerCPUCycle; j++ {
			c.ppu.Tic()
		}
		c.apu.Tic()
	}
	c.stallCycles += c.apu.Stall()
	c.ticCounter += uint64(cycles)
	return cycles
}

// StepFrame runs instructions until the PPU finishes the current frame.
func (c *Console) StepFrame() int {
	cycles := 0
	frame := c.ppu.Frame()
	for frame == c.ppu.Frame() {
		cycles += c.StepInstruction()
	}
	return cycles
}

// oamDMA copies a 256-byte page from CPU address space into OAM. The
// CPU is suspended for 513 cycles, 514 when the transfer begins on an
// odd cycle; parity is settled once the triggering store retires.
func (c *Console) oamDMA(page uint8) {
	addr := uint16(page) << 8
	for i := 0; i < 256; i++ {
		c.ppu.writeOAM(c.mem.Read8(addr + uint16(i)))
	}
	c.dmaPending = true
}

// SetButtons updates the held-button state of a controller port (1 or 2).
func (c *Console) SetButtons(port int, state uint8) {
	switch port {
	case 1:
		c.joy1.SetButtons(state)
	case 2:
		c.joy2.SetButtons(state)
	}
}

// Screen returns the last completed 256x240 frame.
func (c *Console) Screen() *image.RGBA {
	return c.ppu.Screen()
}

// Frame returns the number of completed video frames.
func (c *Console) Frame() uint64 {
	return c.ppu.Frame()
}

// SetAudioSampleRate configures APU output sampling in Hz.
func (c *Console) SetAudioSampleRate(hz int) {
	c.apu.SetSampleRate(hz)
}

// AudioSamples returns the channel delivering mixed APU output.
func (c *Console) AudioSamples() <-chan float32 {
	return c.apu.Samples()
}

// Halted reports whether the CPU executed a JAM opcode.
func (c *Console) Halted() bool {
	return c.cpu.Halted()
}

// Disassemble decodes all of CPU address space as instructions.
func (c *Console) Disassemble() map[uint16]string {
	return c.cpu.Disassemble()
}

// GetPatternTable renders pattern table 0 or 1 through a frame palette.
func (c *Console) GetPatternTable(table, paletteId uint8) *image.RGBA {
	return c.ppu.GetPatternTable(table, paletteId)
}

// GetColorFromPalette resolves an entry of a frame palette to a color.
func (c *Console) GetColorFromPalette(paletteId, pixel uint8) color.RGBA {
	return c.ppu.GetColorFromPalette(paletteId, pixel)
}

// DebugInfo is a snapshot of machine state for tracing and on-screen
// debug output.
type DebugInfo struct {
	A, X, Y  uint8
	P, SP    uint8
	PC       uint16
	Cycles   uint64
	ScanLine int
	Dot      int
	Frame    uint64
}

// StatusString renders the P register as NV-BDIZC with cleared flags in
// lowercase.
func (d DebugInfo) StatusString() string {
	names := "CZIDBUVN"
	var sb strings.Builder
	for i := 7; i >= 0; i-- {
		ch := names[i]
		if d.P&(1<<i) == 0 {
			ch += 'a' - 'A'
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

func (c *Console) Debug() DebugInfo {
	return DebugInfo{
		A:        c.cpu.a,
		X:        c.cpu.x,
		Y:        c.cpu.y,
		P:        c.cpu.p,
		SP:       c.cpu.sp,
		PC:       c.cpu.pc,
		Cycles:   c.cpu.totalCycles,
		ScanLine: c.ppu.scanLine,
		Dot:      c.ppu.dot,
		Frame:    c.ppu.frame,
	}
}
