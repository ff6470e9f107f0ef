package nes

const ramSizeBytes = 0x800

// RAM is the console's 2 KB of internal work RAM. The chip decodes only
// 11 address lines, so $0800-$1FFF mirror the first 2 KB.
type RAM struct {
	ram [ramSizeBytes]uint8
}

func NewRAM() *RAM {
	return &RAM{}
}

func (r *RAM) Read8(addr uint16) uint8 {
	return r.ram[addr&(ramSizeBytes-1)]
}

func (r *RAM) Write8(addr uint16, data uint8) {
	r.ram[addr&(ramSizeBytes-1)] = data
}
