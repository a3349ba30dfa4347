package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/physics"
)

func newCartPole(t *testing.T) *physics.CartPole {
	t.Helper()
	cp, err := physics.NewCartPole(physics.DefaultConstants())
	if err != nil {
		t.Fatalf("new cart-pole: %v", err)
	}
	return cp
}

func TestEnergyAveragesHamiltonian(t *testing.T) {
	cp := newCartPole(t)
	m := NewEnergy(cp)

	a := dynamo.State{0, 0, 0, 0}
	b := dynamo.State{0, 1, 0.3, -0.2}
	m.Observe(a, nil, 0)
	m.Observe(b, nil, 0.01)

	want := (cp.Energy(a) + cp.Energy(b)) / 2
	if math.Abs(m.Value()-want) > 1e-12 {
		t.Errorf("expected energy %f, got %f", want, m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	cp := newCartPole(t)
	m := NewEnergyDrift(cp)

	x := dynamo.State{0, 0, 0, 0}
	e0 := cp.Energy(x)
	m.Observe(x, nil, 0)
	if m.Value() != 0 {
		t.Errorf("expected zero drift after one sample, got %g", m.Value())
	}

	y := dynamo.State{0, 0, 0.5, 0}
	m.Observe(y, nil, 0.1)
	want := math.Abs(cp.Energy(y)-e0) / math.Abs(e0)
	if math.Abs(m.Value()-want) > 1e-12 {
		t.Errorf("expected drift %g, got %g", want, m.Value())
	}

	// Returning to the start does not lower the recorded peak.
	m.Observe(x, nil, 0.2)
	if math.Abs(m.Value()-want) > 1e-12 {
		t.Errorf("peak drift lost: got %g", m.Value())
	}
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	for _, f := range []float64{1, -3, 2} {
		m.Observe(nil, dynamo.Control{f}, 0)
	}
	if m.Value() != 2 {
		t.Errorf("expected mean effort 2, got %g", m.Value())
	}
	if m.Peak() != 3 {
		t.Errorf("expected peak 3, got %g", m.Peak())
	}
	m.Reset()
	if m.Value() != 0 || m.Peak() != 0 {
		t.Error("expected reset effort")
	}
}

func TestTracking(t *testing.T) {
	target := dynamo.State{10, 0, 0, 0}
	tests := []struct {
		name   string
		states []dynamo.State
		inBand float64
		rms    float64
	}{
		{"at target", []dynamo.State{{10, 0, 0, 0}, {10, 0, 0, 0}}, 1, 0},
		{"one miss", []dynamo.State{{10, 0, 0, 0}, {13, 0, 0, 4}}, 0.5, math.Sqrt(25.0 / 2)},
		{"within threshold", []dynamo.State{{10.01, 0, -0.01, 0}}, 1, math.Sqrt(2e-4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewTracking(target, 0.05)
			for _, x := range tt.states {
				m.Observe(x, nil, 0)
			}
			if m.Value() != tt.inBand {
				t.Errorf("expected in-band fraction %g, got %g", tt.inBand, m.Value())
			}
			if math.Abs(m.RMS()-tt.rms) > 1e-12 {
				t.Errorf("expected rms %g, got %g", tt.rms, m.RMS())
			}
		})
	}
}

func TestStandardSet(t *testing.T) {
	cp := newCartPole(t)
	ms := Standard(cp, dynamo.State{0, 0, 0, 0})
	names := map[string]bool{}
	for _, m := range ms {
		names[m.Name()] = true
	}
	for _, want := range []string{"control_effort", "tracking", "energy_drift", "energy"} {
		if !names[want] {
			t.Errorf("missing metric %s", want)
		}
	}

	lin := physics.NewLinear(physics.Linearize(physics.DefaultConstants()))
	if got := len(Standard(lin, nil)); got != 3 {
		t.Errorf("linear model should skip energy, got %d metrics", got)
	}
}

func TestDetails(t *testing.T) {
	effort := NewControlEffort()
	track := NewTracking(dynamo.State{0, 0, 0, 0}, 0.05)
	ms := []dynamo.Metric{effort, track, NewEnergyDrift(nil)}

	for _, f := range []float64{1, -4, 2} {
		x := dynamo.State{0.3, 0, 0.4, 0}
		for _, m := range ms[:2] {
			m.Observe(x, dynamo.Control{f}, 0)
		}
	}

	got := Details(ms)
	if len(got) != 2 {
		t.Fatalf("expected 2 readings, got %v", got)
	}
	if got["peak_force"] != 4 {
		t.Errorf("peak_force = %g, want 4", got["peak_force"])
	}
	if math.Abs(got["tracking_rms"]-0.5) > 1e-12 {
		t.Errorf("tracking_rms = %g, want 0.5", got["tracking_rms"])
	}
}
