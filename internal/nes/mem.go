package nes

type ReadWriter interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, data uint8)
}

// $0000-$07FF: 2 KB of internal RAM
// $0800-$1FFF: Mirrors of $0000-$07FF
// $2000-$2007: PPU (Picture Processing Unit) registers
// $2008-$3FFF: Mirrors of $2000-$2007 (every 8 bytes)
// $4000-$4017: APU (Audio Processing Unit) and I/O registers
// $4018-$401F: APU and I/O functionality that is normally disabled
// $4020-$FFFF: Cartridge space, including PRG-ROM, PRG-RAM, and mapper registers
type cpuMemory struct {
	console *Console
}

func (c *Console) newCpuMemory() *cpuMemory {
	return &cpuMemory{console: c}
}

func (c cpuMemory) Read8(addr uint16) uint8 {
	switch {
	case addr < 0x2000:
		return c.console.ram.Read8(addr)
	case addr < 0x4000:
		return c.console.ppu.readRegister(addr)
	case addr == 0x4015:
		return c.console.apu.readRegister(addr)
	case addr == 0x4016:
		return c.console.joy1.Read()
	case addr == 0x4017:
		return c.console.joy2.Read()
	case addr < 0x4020:
		// write-only APU registers and the disabled test range
		return 0
	default:
		return c.console.cart.ReadCPU(addr)
	}
}

func (c *cpuMemory) Write8(addr uint16, data uint8) {
	switch {
	case addr < 0x2000:
		c.console.ram.Write8(addr, data)
	case addr < 0x4000:
		c.console.ppu.writeRegister(addr, data)
	case addr == 0x4014:
		c.console.oamDMA(data)
	case addr == 0x4016:
		// strobe is shared by both controller ports
		c.console.joy1.Write(data)
		c.console.joy2.Write(data)
	case addr < 0x4018:
		c.console.apu.writeRegister(addr, data)
	case addr < 0x4020:
		// disabled test range
	default:
		c.console.cart.WriteCPU(addr, data)
	}
}
