package metrics

import (
	"math"

	"github.com/san-kum/cartpole/internal/dynamo"
)

// Energy averages the mechanical energy of the observed states.
type Energy struct {
	h       dynamo.Hamiltonian
	samples int
	total   float64
}

func NewEnergy(h dynamo.Hamiltonian) *Energy {
	return &Energy{h: h}
}

func (e *Energy) Name() string { return "energy" }

func (e *Energy) Observe(x dynamo.State, u dynamo.Control, t float64) {
	e.total += e.h.Energy(x)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *Energy) Reset() {
	e.total = 0
	e.samples = 0
}

// EnergyDrift tracks the largest relative deviation from the first observed
// energy. Systems without an energy function report zero.
type EnergyDrift struct {
	initial  float64
	maxDrift float64
	samples  int
	dyn      dynamo.System
}

func NewEnergyDrift(dyn dynamo.System) *EnergyDrift {
	return &EnergyDrift{dyn: dyn}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Observe(x dynamo.State, u dynamo.Control, t float64) {
	h, ok := e.dyn.(dynamo.Hamiltonian)
	if !ok {
		return
	}

	energy := h.Energy(x)
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}

// Standard returns the metric set recorded for every cart-pole run.
func Standard(dyn dynamo.System, target dynamo.State) []dynamo.Metric {
	ms := []dynamo.Metric{NewControlEffort(), NewTracking(target, 0.05), NewEnergyDrift(dyn)}
	if h, ok := dyn.(dynamo.Hamiltonian); ok {
		ms = append(ms, NewEnergy(h))
	}
	return ms
}
