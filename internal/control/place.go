package control

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/physics"
)

// DefaultPoles is the closed-loop spectrum used when none is configured.
var DefaultPoles = []float64{-2, -2.1, -2.2, -2.3}

// Place returns K such that eig(A - B·K) equals poles, using Ackermann's
// formula K = eₙᵀ·C⁻¹·φ(A) with φ(s) = Π(s - pᵢ). Poles must be real,
// strictly negative and distinct.
func Place(ss physics.StateSpace, poles []float64) (Gain, error) {
	n, m := ss.Dims()
	if m != 1 {
		return nil, &dynamo.ControlDesignError{Method: "place", Detail: "single input only", Wrapped: dynamo.ErrDimensionMismatch}
	}
	if err := checkPoles(n, poles); err != nil {
		return nil, err
	}
	if err := checkControllable("place", ss); err != nil {
		return nil, err
	}
	return ackermann(ss, poles)
}

func checkPoles(n int, poles []float64) error {
	fail := func(detail string) error {
		return &dynamo.ControlDesignError{Method: "place", Detail: detail, Wrapped: dynamo.ErrDegeneratePoles}
	}
	if len(poles) != n {
		return fail(fmt.Sprintf("%d poles for %d states", len(poles), n))
	}
	for _, p := range poles {
		if math.IsNaN(p) || math.IsInf(p, 0) || p >= 0 {
			return fail(fmt.Sprintf("pole %g is not strictly negative", p))
		}
	}
	sorted := append([]float64(nil), poles...)
	sort.Float64s(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] <= 1e-9*math.Max(1, math.Abs(sorted[i])) {
			return fail(fmt.Sprintf("repeated pole %g", sorted[i]))
		}
	}
	return nil
}

func ackermann(ss physics.StateSpace, poles []float64) (Gain, error) {
	n, _ := ss.Dims()

	e := mat.NewVecDense(n, nil)
	e.SetVec(n-1, 1)
	var w mat.VecDense
	if err := w.SolveVec(Controllability(ss.A, ss.B).T(), e); err != nil {
		return nil, &dynamo.ControlDesignError{Method: "place", Detail: err.Error(), Wrapped: dynamo.ErrUncontrollable}
	}

	phi := identity(n)
	for _, p := range poles {
		shifted := mat.DenseCopyOf(ss.A)
		for i := 0; i < n; i++ {
			shifted.Set(i, i, shifted.At(i, i)-p)
		}
		var next mat.Dense
		next.Mul(phi, shifted)
		phi = &next
	}

	var k mat.VecDense
	k.MulVec(phi.T(), &w)
	return Gain(mat.Col(nil, 0, &k)), nil
}

func identity(n int) *mat.Dense {
	id := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		id.Set(i, i, 1)
	}
	return id
}
