package nes

// Mirroring selects how the two physical nametables are laid out in the
// PPU's $2000-$2FFF window.
type Mirroring uint8

const (
	MirrorHorizontal Mirroring = iota
	MirrorVertical
	MirrorSingleScreen
	MirrorFourScreen
)

func (m Mirroring) String() string {
	switch m {
	case MirrorHorizontal:
		return "horizontal"
	case MirrorVertical:
		return "vertical"
	case MirrorSingleScreen:
		return "single-screen"
	case MirrorFourScreen:
		return "four-screen"
	}
	return "???"
}

// Mapper is the cartridge-side address translation boundary. The bus and
// the PPU only ever talk to it through these entry points, so new boards
// are added as new implementations, never as branches in bus or PPU code.
type Mapper interface {
	ReadCPU(addr uint16) uint8
	WriteCPU(addr uint16, data uint8)
	ReadPPU(addr uint16) uint8
	WritePPU(addr uint16, data uint8)
	Mirroring() Mirroring
}

func newMapper(cart *Cart) (Mapper, error) {
	switch cart.mapperID {
	case 0:
		return &nrom{cart: cart}, nil
	}
	return nil, UnsupportedMapperError{Mapper: cart.mapperID}
}

// nrom is mapper 0: all PRG statically at $8000-$FFFF (a single 16 KB bank
// is mirrored), all CHR statically at PPU $0000-$1FFF. No registers.
type nrom struct {
	cart *Cart
}

func (m *nrom) prgOffset(addr uint16) uint16 {
	if m.cart.prgBanks > 1 {
		return addr & 0x7fff
	}
	return addr & 0x3fff
}

func (m *nrom) ReadCPU(addr uint16) uint8 {
	if addr >= 0x8000 {
		return m.cart.prgMem[m.prgOffset(addr)]
	}
	// $4020-$7FFF is unpopulated on an NROM board
	return 0
}

func (m *nrom) WriteCPU(addr uint16, data uint8) {
	// PRG is ROM and the board has no registers: writes are dropped
	_ = addr
	_ = data
}

func (m *nrom) ReadPPU(addr uint16) uint8 {
	return m.cart.chrMem[addr&0x1fff]
}

func (m *nrom) WritePPU(addr uint16, data uint8) {
	if m.cart.chrRAM {
		m.cart.chrMem[addr&0x1fff] = data
	}
}

func (m *nrom) Mirroring() Mirroring {
	return m.cart.mirror
}
