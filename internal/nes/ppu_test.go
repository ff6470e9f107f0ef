package nes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPPU(t *testing.T) *PPU {
	t.Helper()
	// CHR RAM board so tests can write pattern data
	cart, err := NewCart(testROM{prgBanks: 1, flags6: 0x01}.build())
	require.NoError(t, err)
	return NewPPU(cart)
}

// ticTo advances the PPU until it sits on the given scanline and dot.
func ticTo(t *testing.T, p *PPU, scanLine, dot int) {
	t.Helper()
	for i := 0; i < dotsPerLine*linesPerFrame*2; i++ {
		if p.scanLine == scanLine && p.dot == dot {
			return
		}
		p.Tic()
	}
	t.Fatalf("never reached scanline %d dot %d", scanLine, dot)
}

func Test_PPU_VblankTiming(t *testing.T) {
	p := newTestPPU(t)

	ticTo(t, p, vblankLine, vblankSetDot)
	assert.True(t, p.statusVblank, "vblank set at (241,1)")

	ticTo(t, p, preRenderLine, vblankClearDot)
	assert.False(t, p.statusVblank, "vblank cleared at (261,1)")
}

func Test_PPU_NMI(t *testing.T) {
	t.Run("raised at vblank when enabled", func(t *testing.T) {
		p := newTestPPU(t)
		p.writeRegister(0x2000, 0x80)

		ticTo(t, p, vblankLine, vblankSetDot)

		assert.True(t, p.PollNMI())
		assert.False(t, p.PollNMI(), "poll clears the latch")
	})

	t.Run("not raised when disabled", func(t *testing.T) {
		p := newTestPPU(t)

		ticTo(t, p, vblankLine, vblankSetDot)

		assert.False(t, p.PollNMI())
	})

	t.Run("enabling mid-vblank fires immediately", func(t *testing.T) {
		p := newTestPPU(t)
		ticTo(t, p, vblankLine, 10)
		require.True(t, p.statusVblank)

		p.writeRegister(0x2000, 0x80)

		assert.True(t, p.PollNMI())
	})
}

func Test_PPU_StatusRead(t *testing.T) {
	p := newTestPPU(t)
	p.statusVblank = true
	p.w = true

	r := p.readRegister(0x2002)

	assert.Equal(t, uint8(0x80), r&0x80)
	assert.False(t, p.statusVblank, "read clears vblank")
	assert.False(t, p.w, "read resets the write toggle")
}

func Test_PPU_AddressRegister(t *testing.T) {
	p := newTestPPU(t)

	p.writeRegister(0x2006, 0x21)
	p.writeRegister(0x2006, 0x08)

	assert.Equal(t, uint16(0x2108), p.v)
}

func Test_PPU_DataPort(t *testing.T) {
	t.Run("write and buffered read", func(t *testing.T) {
		p := newTestPPU(t)
		p.writeRegister(0x2006, 0x21)
		p.writeRegister(0x2006, 0x00)
		p.writeRegister(0x2007, 0x42)

		p.writeRegister(0x2006, 0x21)
		p.writeRegister(0x2006, 0x00)
		first := p.readRegister(0x2007)  // stale buffer
		second := p.readRegister(0x2007) // now the real value

		assert.NotEqual(t, uint8(0x42), first)
		assert.Equal(t, uint8(0x42), second)
	})

	t.Run("palette reads are direct", func(t *testing.T) {
		p := newTestPPU(t)
		p.palette[0x01] = 0x2a
		p.writeRegister(0x2006, 0x3f)
		p.writeRegister(0x2006, 0x01)

		assert.Equal(t, uint8(0x2a), p.readRegister(0x2007))
	})

	t.Run("increment by 1", func(t *testing.T) {
		p := newTestPPU(t)
		p.writeRegister(0x2006, 0x20)
		p.writeRegister(0x2006, 0x00)

		p.writeRegister(0x2007, 0x00)

		assert.Equal(t, uint16(0x2001), p.v)
	})

	t.Run("increment by 32", func(t *testing.T) {
		p := newTestPPU(t)
		p.writeRegister(0x2000, ctrlIncrement)
		p.writeRegister(0x2006, 0x20)
		p.writeRegister(0x2006, 0x00)

		p.writeRegister(0x2007, 0x00)

		assert.Equal(t, uint16(0x2020), p.v)
	})
}

func Test_PPU_PaletteMirroring(t *testing.T) {
	p := newTestPPU(t)

	p.ppuWrite(0x3f10, 0x15)

	assert.Equal(t, uint8(0x15), p.ppuRead(0x3f00), "$3F10 mirrors $3F00")
	assert.Equal(t, uint8(0x15), p.ppuRead(0x3f20), "palette repeats every 32 bytes")
}

func Test_PPU_NametableMirroring(t *testing.T) {
	p := newTestPPU(t) // vertical mirroring cart

	p.ppuWrite(0x2000, 0x42)

	assert.Equal(t, uint8(0x42), p.ppuRead(0x2800), "vertical: $2000 and $2800 share a table")
	assert.Equal(t, uint8(0x42), p.ppuRead(0x3000), "$3000 mirrors $2000")
	assert.Zero(t, p.ppuRead(0x2400))
}

func Test_PPU_OAM(t *testing.T) {
	p := newTestPPU(t)

	p.writeRegister(0x2003, 0x10)
	p.writeRegister(0x2004, 0xaa)
	p.writeRegister(0x2004, 0xbb)

	assert.Equal(t, uint8(0xaa), p.oam[0x10])
	assert.Equal(t, uint8(0xbb), p.oam[0x11])

	p.writeRegister(0x2003, 0x10)
	assert.Equal(t, uint8(0xaa), p.readRegister(0x2004))
	assert.Equal(t, uint8(0x10), p.oamaddr, "OAM reads do not increment the address")
}

func Test_PPU_OddFrameSkip(t *testing.T) {
	t.Run("rendering on, odd frame drops a dot", func(t *testing.T) {
		p := newTestPPU(t)
		p.writeRegister(0x2001, maskShowBg)
		p.frame = 1
		p.scanLine = preRenderLine
		p.dot = 339

		p.Tic()

		assert.Equal(t, 0, p.scanLine)
		assert.Equal(t, 0, p.dot)
		assert.Equal(t, uint64(2), p.frame)
	})

	t.Run("rendering off, full line", func(t *testing.T) {
		p := newTestPPU(t)
		p.frame = 1
		p.scanLine = preRenderLine
		p.dot = 339

		p.Tic()

		assert.Equal(t, preRenderLine, p.scanLine)
		assert.Equal(t, 340, p.dot)
	})
}

func Test_PPU_SpriteZeroHit(t *testing.T) {
	p := newTestPPU(t)

	// tile 0 fully opaque in CHR RAM
	for row := uint16(0); row < 8; row++ {
		p.cart.WritePPU(row, 0xff)
	}
	// sprite 0 in the top-left corner, nametable already points at tile 0
	p.oam[0] = 0 // y
	p.oam[1] = 0 // tile
	p.oam[2] = 0 // attributes
	p.oam[3] = 0 // x
	p.writeRegister(0x2001, maskShowBg|maskShowSprite|maskShowLeftBg|maskShowLeftSprite)

	ticTo(t, p, 240, 0)

	assert.True(t, p.statusSprite0)
}

func Test_PPU_FrameSwapsOnVblank(t *testing.T) {
	p := newTestPPU(t)
	back := p.back

	ticTo(t, p, vblankLine, vblankSetDot)

	assert.Same(t, back, p.Screen(), "rendered buffer becomes visible at vblank")
}

func Test_PPU_GetPatternTable(t *testing.T) {
	p := newTestPPU(t)

	img := p.GetPatternTable(0, 0)

	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 128, img.Bounds().Dy())
}
