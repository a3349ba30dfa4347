package config

import "sort"

var Presets = map[string]*Config{
	"balance": preset(func(c *Config) {
		c.Control = "lqr"
		c.Integrator = "rk4"
		c.InitState = InitStateConfig{Theta: 0.1}
	}),
	"recover": preset(func(c *Config) {
		c.Control = "lqr"
		c.Integrator = "rk4"
		c.InitState = InitStateConfig{Pos: -1, Theta: 0.4, Omega: -0.2}
	}),
	"place": preset(func(c *Config) {
		c.Control = "pole_placement"
		c.InitState = InitStateConfig{Theta: 0.1}
	}),
	"track": preset(func(c *Config) {
		c.Control = "lqr"
		c.Target = 10
		c.Ticks = 5000
		c.Duration = 50
	}),
	"freefall": preset(func(c *Config) {
		c.Control = "none"
		c.Integrator = "rk4"
		c.InitState = InitStateConfig{Theta: 0.1}
		c.Ticks = 1000
		c.Duration = 10
	}),
	"hanging": preset(func(c *Config) {
		c.Control = "lqr"
		c.Damped = true
		c.Constants.Downwards = 1
		c.Constants.Dissipation = 0.4
		c.InitState = InitStateConfig{Theta: 1.0}
	}),
	"linearized": preset(func(c *Config) {
		c.Model = "linearized"
		c.Control = "lqr"
		c.InitState = InitStateConfig{Theta: 0.3}
	}),
	"random": preset(func(c *Config) {
		c.Control = "none"
		c.Integrator = "rk4"
		c.InitState = InitStateConfig{Random: true}
		c.Seed = 1
	}),
}

func preset(edit func(*Config)) *Config {
	c := DefaultConfig()
	edit(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
