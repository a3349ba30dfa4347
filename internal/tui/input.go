package tui

import (
	"github.com/san-kum/cartpole/internal/control"
	"github.com/san-kum/cartpole/internal/dynamo"
)

// keyHold is how many ticks one arrow-key event pushes the cart. Terminals
// send key repeats rather than key-up events.
const keyHold = 6

// keyboard turns key events into per-tick commands. Up and down toggle
// between the automatic law and manual driving; in manual mode the arrow
// keys deflect the axis fully for keyHold ticks.
type keyboard struct {
	manual bool
	axis   float64
	hold   int
}

func (k *keyboard) toggle() {
	k.manual = !k.manual
	k.axis, k.hold = 0, 0
}

func (k *keyboard) push(axis float64) {
	k.axis = axis
	k.hold = keyHold
}

func (k *keyboard) Next(frame int, x dynamo.State) control.Command {
	if !k.manual {
		return control.Automatic()
	}
	if k.hold == 0 {
		return control.Manual(0)
	}
	k.hold--
	return control.Manual(k.axis)
}
