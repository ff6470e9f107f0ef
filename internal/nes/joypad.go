package nes

// Button bits of the 8-bit controller state, LSB first on the wire.
const (
	ButtonA uint8 = 1 << iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

// Joypad models the standard controller's shift register. While strobe is
// held high the register keeps reloading, so reads repeat the A button;
// once strobe drops, each read shifts out the next bit. Reads past the
// eighth bit return 1, as the real controller does.
type Joypad struct {
	strobe  bool
	index   uint8
	buttons uint8
}

func NewJoypad() *Joypad {
	return &Joypad{}
}

// SetButtons replaces the controller's button snapshot.
func (j *Joypad) SetButtons(state uint8) {
	j.buttons = state
}

func (j *Joypad) Write(data uint8) {
	j.strobe = data&0x1 == 1
	if j.strobe {
		j.index = 0
	}
}

func (j *Joypad) Read() uint8 {
	if j.index > 7 {
		return 1
	}
	bit := (j.buttons >> j.index) & 0x1
	if !j.strobe {
		j.index++
	}
	return bit
}
