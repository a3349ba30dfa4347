package config

import (
	"fmt"
	"sort"
)

var params = map[string]func(*Config, float64){
	"mass_cart":   func(c *Config, v float64) { c.Constants.MassCart = v },
	"mass_pole":   func(c *Config, v float64) { c.Constants.MassPole = v },
	"pole_length": func(c *Config, v float64) { c.Constants.PoleLength = v },
	"dissipation": func(c *Config, v float64) { c.Constants.Dissipation = v },
	"gravity":     func(c *Config, v float64) { c.Constants.Gravity = v },
	"target":      func(c *Config, v float64) { c.Target = v },
	"theta0":      func(c *Config, v float64) { c.InitState.Random = false; c.InitState.Theta = v },
	"r":           func(c *Config, v float64) { c.ControllerParams.R = v },
	"q_x":         qEntry(0),
	"q_v":         qEntry(1),
	"q_theta":     qEntry(2),
	"q_omega":     qEntry(3),
}

func qEntry(i int) func(*Config, float64) {
	return func(c *Config, v float64) {
		if len(c.ControllerParams.Q) != 4 {
			c.ControllerParams.Q = append([]float64(nil), DefaultQ...)
		}
		c.ControllerParams.Q[i] = v
	}
}

// SetParam assigns a numeric parameter by name.
func (c *Config) SetParam(name string, v float64) error {
	set, ok := params[name]
	if !ok {
		return fmt.Errorf("unknown parameter: %s", name)
	}
	set(c, v)
	return nil
}

func ParamNames() []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
