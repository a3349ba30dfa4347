package sim

import (
	"github.com/san-kum/cartpole/internal/control"
	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/integrators"
)

// InputSource supplies the command for each tick. Keyboards, scripts and
// tests all sit behind it.
type InputSource interface {
	Next(frame int, x dynamo.State) control.Command
}

// InputFunc adapts a plain function to InputSource.
type InputFunc func(frame int, x dynamo.State) control.Command

func (f InputFunc) Next(frame int, x dynamo.State) control.Command {
	return f(frame, x)
}

// Hold returns an input source that repeats cmd forever.
func Hold(cmd control.Command) InputSource {
	return InputFunc(func(int, dynamo.State) control.Command { return cmd })
}

// Script replays a fixed sequence of commands and then falls back to the
// automatic law.
type Script []control.Command

func (s Script) Next(frame int, x dynamo.State) control.Command {
	if frame < len(s) {
		return s[frame]
	}
	return control.Automatic()
}

// Plotter consumes an offline trajectory, for example to draw a chart.
type Plotter interface {
	Plot(tr *integrators.Trajectory) error
}
