package ui

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/XEN486/NES/internal/nes"
	"github.com/XEN486/NES/internal/wavwriter"
)

const audioSampleRate = 44100

// Tab - show debug info
// P - pause
// R - one instruction and stop
// C - cycle debug palette

type UI struct {
	console *nes.Console
	disasm  map[uint16]string

	scale     int
	palette   uint8
	paused    bool
	showDebug bool

	audioCtx    *oto.Context
	audioPlayer *oto.Player
	wav         *wavwriter.WavWriter
}

type Config struct {
	Scale   int
	WavFile string
}

func New(console *nes.Console, cfg Config) (*UI, error) {
	if cfg.Scale <= 0 {
		cfg.Scale = 2
	}
	ui := &UI{
		console: console,
		disasm:  console.Disassemble(),
		scale:   cfg.Scale,
	}
	if cfg.WavFile != "" {
		ui.wav = wavwriter.New(cfg.WavFile, audioSampleRate)
	}
	if err := ui.initAudio(); err != nil {
		return nil, fmt.Errorf("couldn't init audio: %w", err)
	}
	return ui, nil
}

func (ui *UI) initAudio() error {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   audioSampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return err
	}
	<-ready

	ui.console.SetAudioSampleRate(audioSampleRate)
	ui.audioCtx = ctx
	ui.audioPlayer = ctx.NewPlayer(&sampleReader{
		samples: ui.console.AudioSamples(),
		wav:     ui.wav,
	})
	ui.audioPlayer.Play()
	return nil
}

// Close stops playback and flushes the WAV capture if one was requested.
func (ui *UI) Close() error {
	if ui.audioPlayer != nil {
		_ = ui.audioPlayer.Close()
	}
	if ui.wav != nil {
		return ui.wav.End()
	}
	return nil
}

// sampleReader converts the mixed float output into signed 16-bit
// little-endian mono for the audio device, teeing into the WAV capture
// along the way. When the emulation falls behind it pads with silence
// instead of starving the device.
type sampleReader struct {
	samples <-chan float32
	wav     *wavwriter.WavWriter
}

func (r *sampleReader) Read(p []byte) (int, error) {
	n := 0
	for n+1 < len(p) {
		var s float32
		select {
		case s = <-r.samples:
		default:
		}
		if r.wav != nil {
			r.wav.SetAudio([]float32{s})
		}
		v := int16(s * 32767)
		p[n] = byte(v)
		p[n+1] = byte(v >> 8)
		n += 2
	}
	return n, nil
}

var buttonKeys = map[ebiten.Key]uint8{
	ebiten.KeyZ:          nes.ButtonA,
	ebiten.KeyX:          nes.ButtonB,
	ebiten.KeyShiftRight: nes.ButtonSelect,
	ebiten.KeyEnter:      nes.ButtonStart,
	ebiten.KeyArrowUp:    nes.ButtonUp,
	ebiten.KeyArrowDown:  nes.ButtonDown,
	ebiten.KeyArrowLeft:  nes.ButtonLeft,
	ebiten.KeyArrowRight: nes.ButtonRight,
}

func (ui *UI) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		ui.showDebug = !ui.showDebug
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		ui.palette++
		if ui.palette > 7 {
			ui.palette = 0
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		ui.paused = !ui.paused
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		ui.console.StepInstruction()
		ui.paused = true
	}

	var buttons uint8
	for key, mask := range buttonKeys {
		if ebiten.IsKeyPressed(key) {
			buttons |= mask
		}
	}
	ui.console.SetButtons(1, buttons)

	if !ui.paused && !ui.console.Halted() {
		ui.console.StepFrame()
	}
	return nil
}

func (ui *UI) Draw(screen *ebiten.Image) {
	img := ebiten.NewImageFromImage(ui.console.Screen())
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(ui.scale), float64(ui.scale))
	screen.DrawImage(img, op)

	if !ui.showDebug {
		return
	}

	info := ui.console.Debug()
	var infoStr strings.Builder
	fmt.Fprintf(&infoStr, " FPS: %0.0f\n", ebiten.ActualFPS())
	fmt.Fprintf(&infoStr, " PALETTE: %d\n", ui.palette)
	fmt.Fprintf(&infoStr, " STATUS: %s\n", info.StatusString())
	fmt.Fprintf(&infoStr, " PC: %04X\n", info.PC)
	fmt.Fprintf(&infoStr, " A: $%02X [%03d]", info.A, info.A)
	fmt.Fprintf(&infoStr, " X: $%02X [%03d]", info.X, info.X)
	fmt.Fprintf(&infoStr, " Y: $%02X [%03d]\n", info.Y, info.Y)
	fmt.Fprintf(&infoStr, " SP: $%02X\n", info.SP)
	fmt.Fprintf(&infoStr, " SL: %3d DOT: %3d FRAME: %d\n", info.ScanLine, info.Dot, info.Frame)
	if ui.console.Halted() {
		infoStr.WriteString(" CPU HALTED\n")
	}

	for i := max(0, info.PC-7); i < info.PC; i++ {
		infoStr.WriteString(" " + ui.disasm[i] + "\n")
	}
	infoStr.WriteString("*" + ui.disasm[info.PC] + "\n")
	for i := info.PC + 1; i < min(0xFFFF, info.PC+7); i++ {
		infoStr.WriteString(" " + ui.disasm[i] + "\n")
	}

	debugOffsetX := float32(gameScreenWidth * ui.scale)
	debugHeight := float32(gameScreenHeight * ui.scale)
	vector.DrawFilledRect(screen, debugOffsetX, 0, debugScreenWidth, debugHeight, color.RGBA{50, 50, 50, 255}, false)
	ebitenutil.DebugPrintAt(screen, infoStr.String(), int(debugOffsetX), 0)

	for i := 0; i < 8; i++ {
		paletteImg := ebiten.NewImage(4, 1)
		paletteImg.Set(0, 0, ui.console.GetColorFromPalette(uint8(i), 0))
		paletteImg.Set(1, 0, ui.console.GetColorFromPalette(uint8(i), 1))
		paletteImg.Set(2, 0, ui.console.GetColorFromPalette(uint8(i), 2))
		paletteImg.Set(3, 0, ui.console.GetColorFromPalette(uint8(i), 3))

		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(4, 4)
		op.GeoM.Translate(float64(debugOffsetX)+10+float64(i*35), float64(debugHeight)-128-20)
		screen.DrawImage(paletteImg, op)
	}

	for i := 0; i < 2; i++ {
		tilesImg := ebiten.NewImageFromImage(ui.console.GetPatternTable(uint8(i), ui.palette))
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(debugOffsetX)+10+(float64(i)*(128+5)), float64(debugHeight)-128-10)
		screen.DrawImage(tilesImg, op)
	}
}

const (
	gameScreenWidth  = 256
	gameScreenHeight = 240

	debugScreenWidth = 286
)

func (ui *UI) Layout(_, _ int) (int, int) {
	w := gameScreenWidth * ui.scale
	h := gameScreenHeight * ui.scale
	if ui.showDebug {
		w += debugScreenWidth
	}
	return w, h
}

func RunUI(ui *UI) error {
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowTitle("NES")
	ebiten.SetWindowSize(gameScreenWidth*ui.scale+debugScreenWidth, gameScreenHeight*ui.scale)
	ebiten.SetTPS(60)
	return ebiten.RunGame(ui)
}
