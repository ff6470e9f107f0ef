package nes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testROM struct {
	prgBanks uint8
	chrBanks uint8
	flags6   uint8
	flags7   uint8
	trainer  bool
	fillPRG  uint8
	fillCHR  uint8
}

func (r testROM) build() []byte {
	header := []byte{'N', 'E', 'S', 0x1a, r.prgBanks, r.chrBanks, r.flags6, r.flags7,
		0, 0, 0, 0, 0, 0, 0, 0}
	data := header
	if r.trainer {
		data = append(data, make([]byte, trainerSizeBytes)...)
	}
	prg := make([]byte, int(r.prgBanks)*prgBankSizeBytes)
	for i := range prg {
		prg[i] = r.fillPRG
	}
	chr := make([]byte, int(r.chrBanks)*chrBankSizeBytes)
	for i := range chr {
		chr[i] = r.fillCHR
	}
	data = append(data, prg...)
	return append(data, chr...)
}

func Test_NewCart(t *testing.T) {
	t.Run("valid NROM image", func(t *testing.T) {
		cart, err := NewCart(testROM{prgBanks: 2, chrBanks: 1, fillPRG: 0xaa, fillCHR: 0xbb}.build())
		require.NoError(t, err)

		assert.Equal(t, uint8(2), cart.prgBanks)
		assert.Equal(t, uint8(1), cart.chrBanks)
		assert.Equal(t, uint8(0), cart.mapperID)
		assert.Equal(t, MirrorHorizontal, cart.Mirroring())
		assert.Equal(t, uint8(0xaa), cart.ReadCPU(0x8000))
		assert.Equal(t, uint8(0xbb), cart.ReadPPU(0x0000))
	})

	t.Run("bad magic", func(t *testing.T) {
		data := testROM{prgBanks: 1}.build()
		data[0] = 'X'

		_, err := NewCart(data)

		assert.ErrorIs(t, err, ErrInvalidROM)
	})

	t.Run("too short for header", func(t *testing.T) {
		_, err := NewCart([]byte{'N', 'E', 'S', 0x1a})
		assert.ErrorIs(t, err, ErrInvalidROM)
	})

	t.Run("truncated bank data", func(t *testing.T) {
		data := testROM{prgBanks: 2, chrBanks: 1}.build()

		_, err := NewCart(data[:len(data)-1])

		assert.ErrorIs(t, err, ErrInvalidROM)
	})

	t.Run("unsupported mapper", func(t *testing.T) {
		_, err := NewCart(testROM{prgBanks: 1, flags6: 0x10}.build()) // mapper 1

		var mapperErr UnsupportedMapperError
		require.ErrorAs(t, err, &mapperErr)
		assert.Equal(t, uint8(1), mapperErr.Mapper)
	})

	t.Run("mapper id spans both flag bytes", func(t *testing.T) {
		_, err := NewCart(testROM{prgBanks: 1, flags6: 0x40, flags7: 0x40}.build()) // mapper 68

		var mapperErr UnsupportedMapperError
		require.ErrorAs(t, err, &mapperErr)
		assert.Equal(t, uint8(68), mapperErr.Mapper)
	})

	t.Run("vertical mirroring flag", func(t *testing.T) {
		cart, err := NewCart(testROM{prgBanks: 1, flags6: 0x01}.build())
		require.NoError(t, err)

		assert.Equal(t, MirrorVertical, cart.Mirroring())
	})

	t.Run("four screen flag wins", func(t *testing.T) {
		cart, err := NewCart(testROM{prgBanks: 1, flags6: 0x09}.build())
		require.NoError(t, err)

		assert.Equal(t, MirrorFourScreen, cart.Mirroring())
	})

	t.Run("trainer is skipped", func(t *testing.T) {
		cart, err := NewCart(testROM{prgBanks: 1, trainer: true, flags6: 0x04, fillPRG: 0x42}.build())
		require.NoError(t, err)

		assert.Equal(t, uint8(0x42), cart.ReadCPU(0x8000))
	})

	t.Run("zero CHR banks means CHR RAM", func(t *testing.T) {
		cart, err := NewCart(testROM{prgBanks: 1}.build())
		require.NoError(t, err)

		assert.True(t, cart.chrRAM)
		cart.WritePPU(0x1234, 0x99)
		assert.Equal(t, uint8(0x99), cart.ReadPPU(0x1234))
	})

	t.Run("CHR ROM ignores writes", func(t *testing.T) {
		cart, err := NewCart(testROM{prgBanks: 1, chrBanks: 1, fillCHR: 0x11}.build())
		require.NoError(t, err)

		cart.WritePPU(0x0000, 0x99)
		assert.Equal(t, uint8(0x11), cart.ReadPPU(0x0000))
	})
}

func Test_NROM_Mirroring(t *testing.T) {
	t.Run("16K PRG mirrors the single bank", func(t *testing.T) {
		data := testROM{prgBanks: 1}.build()
		data[headerSizeBytes] = 0x42 // first PRG byte
		cart, err := NewCart(data)
		require.NoError(t, err)

		assert.Equal(t, uint8(0x42), cart.ReadCPU(0x8000))
		assert.Equal(t, uint8(0x42), cart.ReadCPU(0xc000))
	})

	t.Run("32K PRG maps both banks", func(t *testing.T) {
		data := testROM{prgBanks: 2}.build()
		data[headerSizeBytes] = 0x11
		data[headerSizeBytes+prgBankSizeBytes] = 0x22
		cart, err := NewCart(data)
		require.NoError(t, err)

		assert.Equal(t, uint8(0x11), cart.ReadCPU(0x8000))
		assert.Equal(t, uint8(0x22), cart.ReadCPU(0xc000))
	})

	t.Run("reads below PRG window return zero", func(t *testing.T) {
		cart, err := NewCart(testROM{prgBanks: 1, fillPRG: 0x42}.build())
		require.NoError(t, err)

		assert.Equal(t, uint8(0), cart.ReadCPU(0x6000))
	})
}
