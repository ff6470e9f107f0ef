package nes

import (
	"image"
	"image/color"
)

const (
	screenWidth  = 256
	screenHeight = 240

	dotsPerLine    = 341
	linesPerFrame  = 262
	visibleLines   = 240
	vblankLine     = 241
	preRenderLine  = 261
	vblankSetDot   = 1
	vblankClearDot = 1
)

const (
	ctrlNametable   = uint8(0x03)
	ctrlIncrement   = uint8(0x04)
	ctrlSpriteTable = uint8(0x08)
	ctrlBgTable     = uint8(0x10)
	ctrlSpriteSize  = uint8(0x20)
	ctrlNMIEnable   = uint8(0x80)
)

const (
	maskGrayscale      = uint8(0x01)
	maskShowLeftBg     = uint8(0x02)
	maskShowLeftSprite = uint8(0x04)
	maskShowBg         = uint8(0x08)
	maskShowSprite     = uint8(0x10)
)

// PPU is a dot-accurate 2C02. Tic advances it by exactly one dot; the
// console clocks it three times per CPU cycle.
type PPU struct {
	cart *Cart

	ppuctrl uint8
	ppumask uint8
	oamaddr uint8

	statusVblank   bool
	statusSprite0  bool
	statusOverflow bool

	// internal scroll registers
	v uint16 // current VRAM address
	t uint16 // temporary VRAM address
	x uint8  // fine X scroll
	w bool   // write toggle

	dataBuffer uint8 // post-fetch buffer for $2007 reads
	latch      uint8 // last value driven on the register bus

	nameTable [0x800]uint8
	palette   [0x20]uint8
	oam       [0x100]uint8

	dot      int
	scanLine int
	frame    uint64

	nmiPending bool

	// background fetch pipeline
	nameTableByte uint8
	attrTableByte uint8
	lowTileByte   uint8
	highTileByte  uint8
	tileData      uint64

	// sprites selected for the current scanline
	spriteCount      int
	spritePatterns   [8]uint32
	spritePositions  [8]uint8
	spritePriorities [8]uint8
	spriteIndexes    [8]uint8

	front *image.RGBA
	back  *image.RGBA
}

func NewPPU(cart *Cart) *PPU {
	p := &PPU{
		cart:  cart,
		front: image.NewRGBA(image.Rect(0, 0, screenWidth, screenHeight)),
		back:  image.NewRGBA(image.Rect(0, 0, screenWidth, screenHeight)),
	}
	p.Reset()
	return p
}

func (p *PPU) Reset() {
	p.dot = 340
	p.scanLine = 240
	p.frame = 0
	p.ppuctrl = 0
	p.ppumask = 0
	p.oamaddr = 0
	p.v = 0
	p.t = 0
	p.x = 0
	p.w = false
	p.statusVblank = false
	p.statusSprite0 = false
	p.statusOverflow = false
	p.nmiPending = false
}

// Screen returns the last completed frame. The buffer is swapped at the
// start of vblank, so its contents are stable for a full frame.
func (p *PPU) Screen() *image.RGBA {
	return p.front
}

// Frame returns the number of completed frames since reset.
func (p *PPU) Frame() uint64 {
	return p.frame
}

// PollNMI reports whether the PPU raised an NMI since the last poll and
// clears the latch.
func (p *PPU) PollNMI() bool {
	if p.nmiPending {
		p.nmiPending = false
		return true
	}
	return false
}

func (p PPU) nmiEnabled() bool         { return p.ppuctrl&ctrlNMIEnable > 0 }
func (p PPU) showBackground() bool     { return p.ppumask&maskShowBg > 0 }
func (p PPU) showSprites() bool        { return p.ppumask&maskShowSprite > 0 }
func (p PPU) showLeftBackground() bool { return p.ppumask&maskShowLeftBg > 0 }
func (p PPU) showLeftSprites() bool    { return p.ppumask&maskShowLeftSprite > 0 }
func (p PPU) renderingEnabled() bool   { return p.showBackground() || p.showSprites() }

func (p PPU) spriteHeight() int {
	if p.ppuctrl&ctrlSpriteSize > 0 {
		return 16
	}
	return 8
}

func (p PPU) vramIncrement() uint16 {
	if p.ppuctrl&ctrlIncrement > 0 {
		return 32
	}
	return 1
}

// readRegister handles CPU reads of $2000-$2007. Write-only registers
// return the last value left on the bus.
func (p *PPU) readRegister(addr uint16) uint8 {
	switch addr & 0x7 {
	case 0x2:
		return p.readStatus()
	case 0x4:
		return p.oam[p.oamaddr]
	case 0x7:
		return p.readData()
	default:
		return p.latch
	}
}

func (p *PPU) writeRegister(addr uint16, data uint8) {
	p.latch = data
	switch addr & 0x7 {
	case 0x0:
		p.writeControl(data)
	case 0x1:
		p.ppumask = data
	case 0x3:
		p.oamaddr = data
	case 0x4:
		p.oam[p.oamaddr] = data
		p.oamaddr++
	case 0x5:
		p.writeScroll(data)
	case 0x6:
		p.writeAddress(data)
	case 0x7:
		p.writeData(data)
	}
}

func (p *PPU) writeControl(data uint8) {
	wasEnabled := p.nmiEnabled()
	p.ppuctrl = data
	p.t = (p.t & 0xf3ff) | uint16(data&ctrlNametable)<<10
	// enabling NMI mid-vblank fires one immediately
	if !wasEnabled && p.nmiEnabled() && p.statusVblank {
		p.nmiPending = true
	}
}

func (p *PPU) readStatus() uint8 {
	r := p.latch & 0x1f
	if p.statusOverflow {
		r |= 0x20
	}
	if p.statusSprite0 {
		r |= 0x40
	}
	if p.statusVblank {
		r |= 0x80
	}
	p.statusVblank = false
	p.w = false
	return r
}

func (p *PPU) writeScroll(data uint8) {
	if !p.w {
		p.t = (p.t & 0xffe0) | uint16(data)>>3
		p.x = data & 0x07
	} else {
		p.t = (p.t & 0x8fff) | uint16(data&0x07)<<12
		p.t = (p.t & 0xfc1f) | uint16(data&0xf8)<<2
	}
	p.w = !p.w
}

func (p *PPU) writeAddress(data uint8) {
	if !p.w {
		p.t = (p.t & 0x80ff) | uint16(data&0x3f)<<8
	} else {
		p.t = (p.t & 0xff00) | uint16(data)
		p.v = p.t
	}
	p.w = !p.w
}

func (p *PPU) readData() uint8 {
	value := p.ppuRead(p.v)
	if p.v%0x4000 < 0x3f00 {
		// reads below the palettes go through the internal buffer
		value, p.dataBuffer = p.dataBuffer, value
	} else {
		// palette reads are direct, but the buffer still loads the
		// nametable byte underneath
		p.dataBuffer = p.ppuRead(p.v - 0x1000)
	}
	p.v += p.vramIncrement()
	return value
}

func (p *PPU) writeData(data uint8) {
	p.ppuWrite(p.v, data)
	p.v += p.vramIncrement()
}

// writeOAM is the $4014 DMA path. The console feeds it 256 bytes.
func (p *PPU) writeOAM(data uint8) {
	p.oam[p.oamaddr] = data
	p.oamaddr++
}

var mirrorLookup = [4][4]uint16{
	MirrorHorizontal:   {0, 0, 1, 1},
	MirrorVertical:     {0, 1, 0, 1},
	MirrorSingleScreen: {0, 0, 0, 0},
	MirrorFourScreen:   {0, 1, 2, 3},
}

func (p PPU) mirrorAddr(addr uint16) uint16 {
	addr = (addr - 0x2000) % 0x1000
	table := mirrorLookup[p.cart.Mirroring()][addr/0x400]
	return (table*0x400 + addr%0x400) & 0x7ff
}

func (p *PPU) ppuRead(addr uint16) uint8 {
	addr %= 0x4000
	switch {
	case addr < 0x2000:
		return p.cart.ReadPPU(addr)
	case addr < 0x3f00:
		return p.nameTable[p.mirrorAddr(addr)]
	default:
		return p.readPalette(addr)
	}
}

func (p *PPU) ppuWrite(addr uint16, data uint8) {
	addr %= 0x4000
	switch {
	case addr < 0x2000:
		p.cart.WritePPU(addr, data)
	case addr < 0x3f00:
		p.nameTable[p.mirrorAddr(addr)] = data
	default:
		p.writePalette(addr, data)
	}
}

// paletteIndex folds the $10/$14/$18/$1C mirrors onto their background
// counterparts.
func paletteIndex(addr uint16) uint16 {
	addr %= 0x20
	if addr >= 0x10 && addr%4 == 0 {
		addr -= 0x10
	}
	return addr
}

func (p PPU) readPalette(addr uint16) uint8 {
	return p.palette[paletteIndex(addr)]
}

func (p *PPU) writePalette(addr uint16, data uint8) {
	p.palette[paletteIndex(addr)] = data
}

func (p *PPU) advanceDot() {
	if p.renderingEnabled() && p.frame&1 == 1 &&
		p.scanLine == preRenderLine && p.dot == dotsPerLine-2 {
		// odd frames drop the last dot of the pre-render line
		p.dot = 0
		p.scanLine = 0
		p.frame++
		return
	}
	p.dot++
	if p.dot >= dotsPerLine {
		p.dot = 0
		p.scanLine++
		if p.scanLine >= linesPerFrame {
			p.scanLine = 0
			p.frame++
		}
	}
}

// Tic advances the PPU by one dot.
func (p *PPU) Tic() {
	p.advanceDot()

	visibleLine := p.scanLine < visibleLines
	preLine := p.scanLine == preRenderLine
	renderLine := preLine || visibleLine
	preFetchDot := p.dot >= 321 && p.dot <= 336
	visibleDot := p.dot >= 1 && p.dot <= 256
	fetchDot := preFetchDot || visibleDot

	if p.renderingEnabled() {
		if visibleLine && visibleDot {
			p.renderPixel()
		}
		if renderLine && fetchDot {
			p.tileData <<= 4
			switch p.dot % 8 {
			case 1:
				p.fetchNameTableByte()
			case 3:
				p.fetchAttrTableByte()
			case 5:
				p.fetchLowTileByte()
			case 7:
				p.fetchHighTileByte()
			case 0:
				p.storeTileData()
			}
		}
		if preLine && p.dot >= 280 && p.dot <= 304 {
			p.copyY()
		}
		if renderLine {
			if fetchDot && p.dot%8 == 0 {
				p.incrementX()
			}
			if p.dot == 256 {
				p.incrementY()
			}
			if p.dot == 257 {
				p.copyX()
			}
		}
		if p.dot == 257 {
			if visibleLine {
				p.evaluateSprites()
			} else {
				p.spriteCount = 0
			}
		}
	}

	if p.scanLine == vblankLine && p.dot == vblankSetDot {
		p.setVblank()
	}
	if preLine && p.dot == vblankClearDot {
		p.statusVblank = false
		p.statusSprite0 = false
		p.statusOverflow = false
	}
}

func (p *PPU) setVblank() {
	p.front, p.back = p.back, p.front
	p.statusVblank = true
	if p.nmiEnabled() {
		p.nmiPending = true
	}
}

func (p *PPU) fetchNameTableByte() {
	addr := 0x2000 | (p.v & 0x0fff)
	p.nameTableByte = p.ppuRead(addr)
}

func (p *PPU) fetchAttrTableByte() {
	v := p.v
	addr := 0x23c0 | (v & 0x0c00) | ((v >> 4) & 0x38) | ((v >> 2) & 0x07)
	shift := ((v >> 4) & 4) | (v & 2)
	p.attrTableByte = ((p.ppuRead(addr) >> shift) & 3) << 2
}

func (p PPU) bgPatternAddr() uint16 {
	fineY := (p.v >> 12) & 7
	table := uint16(0)
	if p.ppuctrl&ctrlBgTable > 0 {
		table = 0x1000
	}
	return table + uint16(p.nameTableByte)*16 + fineY
}

func (p *PPU) fetchLowTileByte() {
	p.lowTileByte = p.ppuRead(p.bgPatternAddr())
}

func (p *PPU) fetchHighTileByte() {
	p.highTileByte = p.ppuRead(p.bgPatternAddr() + 8)
}

func (p *PPU) storeTileData() {
	var data uint32
	for i := 0; i < 8; i++ {
		a := p.attrTableByte
		p1 := (p.lowTileByte & 0x80) >> 7
		p2 := (p.highTileByte & 0x80) >> 6
		p.lowTileByte <<= 1
		p.highTileByte <<= 1
		data <<= 4
		data |= uint32(a | p1 | p2)
	}
	p.tileData |= uint64(data)
}

func (p *PPU) incrementX() {
	if p.v&0x001f == 31 {
		p.v &= 0xffe0
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

func (p *PPU) incrementY() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
		return
	}
	p.v &= 0x8fff
	y := (p.v & 0x03e0) >> 5
	switch y {
	case 29:
		y = 0
		p.v ^= 0x0800
	case 31:
		y = 0
	default:
		y++
	}
	p.v = (p.v & 0xfc1f) | y<<5
}

func (p *PPU) copyX() {
	p.v = (p.v & 0xfbe0) | (p.t & 0x041f)
}

func (p *PPU) copyY() {
	p.v = (p.v & 0x841f) | (p.t & 0x7be0)
}

// evaluateSprites selects up to 8 OAM entries for the next scanline.
// Finding a ninth sets the overflow flag.
func (p *PPU) evaluateSprites() {
	h := p.spriteHeight()
	count := 0
	for i := 0; i < 64; i++ {
		y := p.oam[i*4+0]
		a := p.oam[i*4+2]
		x := p.oam[i*4+3]
		row := p.scanLine - int(y)
		if row < 0 || row >= h {
			continue
		}
		if count < 8 {
			p.spritePatterns[count] = p.fetchSpritePattern(i, row)
			p.spritePositions[count] = x
			p.spritePriorities[count] = (a >> 5) & 1
			p.spriteIndexes[count] = uint8(i)
		}
		count++
	}
	if count > 8 {
		count = 8
		p.statusOverflow = true
	}
	p.spriteCount = count
}

func (p *PPU) fetchSpritePattern(i, row int) uint32 {
	tile := p.oam[i*4+1]
	attr := p.oam[i*4+2]
	var addr uint16
	if p.spriteHeight() == 8 {
		if attr&0x80 > 0 {
			row = 7 - row
		}
		table := uint16(0)
		if p.ppuctrl&ctrlSpriteTable > 0 {
			table = 0x1000
		}
		addr = table + uint16(tile)*16 + uint16(row)
	} else {
		if attr&0x80 > 0 {
			row = 15 - row
		}
		table := uint16(tile&1) * 0x1000
		tile &= 0xfe
		if row > 7 {
			tile++
			row -= 8
		}
		addr = table + uint16(tile)*16 + uint16(row)
	}
	a := (attr & 3) << 2
	lowTileByte := p.ppuRead(addr)
	highTileByte := p.ppuRead(addr + 8)
	var data uint32
	for j := 0; j < 8; j++ {
		var p1, p2 uint8
		if attr&0x40 > 0 {
			p1 = lowTileByte & 1
			p2 = (highTileByte & 1) << 1
			lowTileByte >>= 1
			highTileByte >>= 1
		} else {
			p1 = (lowTileByte & 0x80) >> 7
			p2 = (highTileByte & 0x80) >> 6
			lowTileByte <<= 1
			highTileByte <<= 1
		}
		data <<= 4
		data |= uint32(a | p1 | p2)
	}
	return data
}

func (p *PPU) backgroundPixel() uint8 {
	if !p.showBackground() {
		return 0
	}
	data := uint32(p.tileData>>32) >> ((7 - p.x) * 4)
	return uint8(data & 0x0f)
}

func (p *PPU) spritePixel() (uint8, uint8) {
	if !p.showSprites() {
		return 0, 0
	}
	for i := 0; i < p.spriteCount; i++ {
		offset := (p.dot - 1) - int(p.spritePositions[i])
		if offset < 0 || offset > 7 {
			continue
		}
		offset = 7 - offset
		clr := uint8((p.spritePatterns[i] >> uint8(offset*4)) & 0x0f)
		if clr%4 == 0 {
			continue
		}
		return uint8(i), clr
	}
	return 0, 0
}

func (p *PPU) renderPixel() {
	x := p.dot - 1
	y := p.scanLine
	bg := p.backgroundPixel()
	i, sprite := p.spritePixel()
	if x < 8 && !p.showLeftBackground() {
		bg = 0
	}
	if x < 8 && !p.showLeftSprites() {
		sprite = 0
	}
	b := bg%4 != 0
	s := sprite%4 != 0
	var clr uint8
	switch {
	case !b && !s:
		clr = 0
	case !b && s:
		clr = sprite | 0x10
	case b && !s:
		clr = bg
	default:
		if p.spriteIndexes[i] == 0 && x < 255 {
			p.statusSprite0 = true
		}
		if p.spritePriorities[i] == 0 {
			clr = sprite | 0x10
		} else {
			clr = bg
		}
	}
	p.back.SetRGBA(x, y, systemPalette[p.readPalette(uint16(clr))%64])
}

// GetColorFromPalette resolves an entry of one of the 8 frame palettes
// against the system palette. Used by the pattern-table viewer.
func (p *PPU) GetColorFromPalette(paletteId, pixel uint8) color.RGBA {
	return systemPalette[p.readPalette(uint16(paletteId)*4+uint16(pixel))%64]
}

// GetPatternTable renders one of the two 128x128 pattern tables with the
// given frame palette applied. Debug aid, not used during emulation.
func (p *PPU) GetPatternTable(table, paletteId uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 128, 128))
	base := uint16(table) * 0x1000
	for tileY := 0; tileY < 16; tileY++ {
		for tileX := 0; tileX < 16; tileX++ {
			offset := base + uint16(tileY)*256 + uint16(tileX)*16
			for row := 0; row < 8; row++ {
				lo := p.ppuRead(offset + uint16(row))
				hi := p.ppuRead(offset + uint16(row) + 8)
				for col := 0; col < 8; col++ {
					pixel := ((hi & 0x80) >> 6) | ((lo & 0x80) >> 7)
					lo <<= 1
					hi <<= 1
					c := systemPalette[p.readPalette(uint16(paletteId)*4+uint16(pixel))%64]
					img.SetRGBA(tileX*8+col, tileY*8+row, c)
				}
			}
		}
	}
	return img
}
