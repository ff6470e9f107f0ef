package nes

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

const (
	inesMagic        = 0x1a53454e
	headerSizeBytes  = 16
	trainerSizeBytes = 512
	prgBankSizeBytes = 0x4000
	chrBankSizeBytes = 0x2000
)

// ErrInvalidROM is returned when the iNES header is malformed or the file
// is shorter than the header claims.
var ErrInvalidROM = errors.New("invalid iNES image")

// UnsupportedMapperError names a mapper the emulator does not implement.
// Loading fails instead of silently mis-mapping memory.
type UnsupportedMapperError struct {
	Mapper uint8
}

func (e UnsupportedMapperError) Error() string {
	return fmt.Sprintf("unsupported mapper %d", e.Mapper)
}

type Cart struct {
	prgMem []uint8
	chrMem []uint8

	prgBanks uint8
	chrBanks uint8
	mapperID uint8
	mirror   Mirroring
	chrRAM   bool

	mapper Mapper
}

// NewCart parses an iNES image from memory.
// PRG and CHR ROM are immutable after this point; CHR RAM, when the header
// declares zero CHR banks, stays writable.
func NewCart(data []byte) (*Cart, error) {
	if len(data) < headerSizeBytes {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrInvalidROM, len(data))
	}
	if binary.LittleEndian.Uint32(data[0:4]) != inesMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidROM)
	}

	prgBanks := data[4]
	chrBanks := data[5]
	flags6 := data[6]
	flags7 := data[7]

	// flags6 carries the low mapper nibble, flags7 the high one
	mapperID := (flags7 & 0xf0) | (flags6 >> 4)

	mirror := MirrorHorizontal
	if flags6&0x1 != 0 {
		mirror = MirrorVertical
	}
	if flags6&0x8 != 0 {
		mirror = MirrorFourScreen
	}

	offset := headerSizeBytes
	if flags6&0x4 != 0 {
		offset += trainerSizeBytes
	}

	prgSize := int(prgBanks) * prgBankSizeBytes
	chrSize := int(chrBanks) * chrBankSizeBytes
	if len(data) < offset+prgSize+chrSize {
		return nil, fmt.Errorf("%w: expected %d bytes of bank data, have %d",
			ErrInvalidROM, prgSize+chrSize, len(data)-offset)
	}

	cart := &Cart{
		prgMem:   make([]uint8, prgSize),
		chrMem:   make([]uint8, chrSize),
		prgBanks: prgBanks,
		chrBanks: chrBanks,
		mapperID: mapperID,
		mirror:   mirror,
	}
	copy(cart.prgMem, data[offset:offset+prgSize])
	copy(cart.chrMem, data[offset+prgSize:offset+prgSize+chrSize])

	if chrBanks == 0 {
		// no CHR ROM: the board carries 8 KB of CHR RAM instead
		cart.chrMem = make([]uint8, chrBankSizeBytes)
		cart.chrRAM = true
	}

	mapper, err := newMapper(cart)
	if err != nil {
		return nil, err
	}
	cart.mapper = mapper

	return cart, nil
}

// NewCartFromFile reads a .nes file and returns a Cart struct.
// Supported NES format: iNES
func NewCartFromFile(path string) (*Cart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read the file: %w", err)
	}
	return NewCart(data)
}

func (c *Cart) ReadCPU(addr uint16) uint8 {
	return c.mapper.ReadCPU(addr)
}

func (c *Cart) WriteCPU(addr uint16, data uint8) {
	c.mapper.WriteCPU(addr, data)
}

func (c *Cart) ReadPPU(addr uint16) uint8 {
	return c.mapper.ReadPPU(addr)
}

func (c *Cart) WritePPU(addr uint16, data uint8) {
	c.mapper.WritePPU(addr, data)
}

func (c *Cart) Mirroring() Mirroring {
	return c.mapper.Mirroring()
}
