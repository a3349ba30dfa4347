package metrics

import "github.com/san-kum/cartpole/internal/dynamo"

// Details collects the readings of ms that Value does not carry: the peak
// force of a ControlEffort and the RMS error of a Tracking.
func Details(ms []dynamo.Metric) map[string]float64 {
	out := make(map[string]float64)
	for _, m := range ms {
		switch m := m.(type) {
		case *ControlEffort:
			out["peak_force"] = m.Peak()
		case *Tracking:
			out["tracking_rms"] = m.RMS()
		}
	}
	return out
}
