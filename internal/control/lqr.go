package control

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/physics"
)

const (
	riccatiMaxIter = 100
	riccatiTol     = 1e-12
)

// CostWeights penalise state deviation (Q) and force (R) in the regulator cost.
type CostWeights struct {
	Q mat.Symmetric
	R float64
}

// DefaultWeights returns Q = diag(1, 1, 10, 100), R = 0.1.
func DefaultWeights() CostWeights {
	return CostWeights{Q: Diag(1, 1, 10, 100), R: 0.1}
}

// Diag builds a diagonal symmetric matrix.
func Diag(d ...float64) *mat.SymDense {
	q := mat.NewSymDense(len(d), nil)
	for i, v := range d {
		q.SetSym(i, i, v)
	}
	return q
}

func (w CostWeights) validate(n int) error {
	fail := func(detail string) error {
		return &dynamo.ControlDesignError{Method: "lqr", Detail: detail, Wrapped: dynamo.ErrIndefiniteWeights}
	}
	if w.Q == nil || w.Q.SymmetricDim() != n {
		return fail(fmt.Sprintf("Q must be %dx%d", n, n))
	}
	if math.IsNaN(w.R) || math.IsInf(w.R, 0) || w.R <= 0 {
		return fail(fmt.Sprintf("R = %g is not positive", w.R))
	}

	var eig mat.EigenSym
	if !eig.Factorize(w.Q, false) {
		return fail("eigen decomposition of Q failed")
	}
	vals := eig.Values(nil)
	scale := 1.0
	for _, v := range vals {
		scale = math.Max(scale, math.Abs(v))
	}
	for _, v := range vals {
		if math.IsNaN(v) || v < -1e-12*scale {
			return fail(fmt.Sprintf("Q has eigenvalue %g", v))
		}
	}
	return nil
}

// LQR returns K = R⁻¹·Bᵀ·P where P solves the continuous algebraic Riccati
// equation for (A, B, Q, R).
func LQR(ss physics.StateSpace, w CostWeights) (Gain, error) {
	p, err := SolveCARE(ss, w)
	if err != nil {
		return nil, err
	}
	return riccatiGain(ss, w.R, p), nil
}

// SolveCARE solves AᵀP + PA - PBR⁻¹BᵀP + Q = 0 for the stabilizing P by
// Newton-Kleinman iteration: each step solves a Lyapunov equation for the
// current closed loop and updates K from the new P. The iteration is
// seeded with a stabilizing Ackermann gain when A itself is not stable.
func SolveCARE(ss physics.StateSpace, w CostWeights) (*mat.SymDense, error) {
	n, m := ss.Dims()
	if m != 1 {
		return nil, &dynamo.ControlDesignError{Method: "lqr", Detail: "single input only", Wrapped: dynamo.ErrDimensionMismatch}
	}
	if err := w.validate(n); err != nil {
		return nil, err
	}
	if err := checkControllable("lqr", ss); err != nil {
		return nil, err
	}

	k, err := initialGain(ss)
	if err != nil {
		return nil, err
	}

	for iter := 0; iter < riccatiMaxIter; iter++ {
		acl := closedLoop(ss, k)

		rhs := mat.NewDense(n, n, nil)
		rhs.Copy(w.Q)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				rhs.Set(i, j, rhs.At(i, j)+k[i]*w.R*k[j])
			}
		}

		p, err := lyapunov(acl, rhs)
		if err != nil {
			return nil, err
		}

		next := riccatiGain(ss, w.R, p)
		delta, norm := 0.0, 1.0
		for i := range next {
			delta = math.Max(delta, math.Abs(next[i]-k[i]))
			norm = math.Max(norm, math.Abs(next[i]))
		}
		k = next
		if delta <= riccatiTol*norm {
			return p, nil
		}
	}

	return nil, &dynamo.ControlDesignError{
		Method:  "lqr",
		Detail:  fmt.Sprintf("no convergence after %d iterations", riccatiMaxIter),
		Wrapped: dynamo.ErrNoConvergence,
	}
}

func riccatiGain(ss physics.StateSpace, r float64, p mat.Matrix) Gain {
	var btp mat.Dense
	btp.Mul(ss.B.T(), p)
	_, n := btp.Dims()
	k := make(Gain, n)
	for j := 0; j < n; j++ {
		k[j] = btp.At(0, j) / r
	}
	return k
}

func initialGain(ss physics.StateSpace) (Gain, error) {
	n, _ := ss.Dims()
	if IsStable(eigenvalues(ss.A)) {
		return make(Gain, n), nil
	}
	r := math.Max(1, 2*spectralRadius(ss.A))
	poles := make([]float64, n)
	for i := range poles {
		poles[i] = -r * (1 + 0.25*float64(i))
	}
	return ackermann(ss, poles)
}

// lyapunov solves AᵀP + PA + M = 0 through the Kronecker form
// (I⊗Aᵀ + Aᵀ⊗I)·vec(P) = -vec(M), with vec stacking columns.
func lyapunov(a, m mat.Matrix) (*mat.SymDense, error) {
	n, _ := a.Dims()
	nn := n * n

	l := mat.NewDense(nn, nn, nil)
	rhs := mat.NewVecDense(nn, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			row := i + j*n
			for k := 0; k < n; k++ {
				l.Set(row, k+j*n, l.At(row, k+j*n)+a.At(k, i))
				l.Set(row, i+k*n, l.At(row, i+k*n)+a.At(k, j))
			}
			rhs.SetVec(row, -m.At(i, j))
		}
	}

	var vec mat.VecDense
	if err := vec.SolveVec(l, rhs); err != nil {
		return nil, &dynamo.ControlDesignError{Method: "lqr", Detail: "lyapunov solve: " + err.Error(), Wrapped: dynamo.ErrNoConvergence}
	}

	p := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			p.SetSym(i, j, 0.5*(vec.AtVec(i+j*n)+vec.AtVec(j+i*n)))
		}
	}
	return p, nil
}
