package control

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/physics"
)

// rankTol is the singular value cutoff relative to the largest one.
const rankTol = 1e-10

// Gain is a single-input state-feedback row vector.
type Gain []float64

func (k Gain) Matrix() *mat.Dense {
	return mat.NewDense(1, len(k), append([]float64(nil), k...))
}

// Controllability returns [B, AB, A²B, ..., Aⁿ⁻¹B].
func Controllability(a, b mat.Matrix) *mat.Dense {
	n, _ := a.Dims()
	_, m := b.Dims()

	c := mat.NewDense(n, n*m, nil)
	blk := mat.DenseCopyOf(b)
	for k := 0; k < n; k++ {
		c.Slice(0, n, k*m, (k+1)*m).(*mat.Dense).Copy(blk)
		next := new(mat.Dense)
		next.Mul(a, blk)
		blk = next
	}
	return c
}

func rank(m mat.Matrix) int {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDNone) {
		return 0
	}
	s := svd.Values(nil)
	if len(s) == 0 || s[0] == 0 {
		return 0
	}
	r := 0
	for _, v := range s {
		if v > rankTol*s[0] {
			r++
		}
	}
	return r
}

// Controllable reports whether the controllability matrix has full rank.
func Controllable(ss physics.StateSpace) bool {
	n, _ := ss.Dims()
	return rank(Controllability(ss.A, ss.B)) == n
}

func checkControllable(method string, ss physics.StateSpace) error {
	n, _ := ss.Dims()
	if r := rank(Controllability(ss.A, ss.B)); r < n {
		return &dynamo.ControlDesignError{
			Method:  method,
			Detail:  fmt.Sprintf("controllability rank %d < %d", r, n),
			Wrapped: dynamo.ErrUncontrollable,
		}
	}
	return nil
}

func closedLoop(ss physics.StateSpace, k Gain) *mat.Dense {
	var bk mat.Dense
	bk.Mul(ss.B, k.Matrix())
	var acl mat.Dense
	acl.Sub(ss.A, &bk)
	return &acl
}

// ClosedLoopPoles returns the eigenvalues of A - B·K sorted by real part.
func ClosedLoopPoles(ss physics.StateSpace, k Gain) []complex128 {
	return eigenvalues(closedLoop(ss, k))
}

func eigenvalues(a mat.Matrix) []complex128 {
	var eig mat.Eigen
	if !eig.Factorize(a, mat.EigenNone) {
		return nil
	}
	vals := eig.Values(nil)
	sort.Slice(vals, func(i, j int) bool {
		if real(vals[i]) != real(vals[j]) {
			return real(vals[i]) < real(vals[j])
		}
		return imag(vals[i]) < imag(vals[j])
	})
	return vals
}

// IsStable reports whether every pole has a strictly negative real part.
func IsStable(poles []complex128) bool {
	if len(poles) == 0 {
		return false
	}
	for _, p := range poles {
		if cmplx.IsNaN(p) || real(p) >= 0 {
			return false
		}
	}
	return true
}

func spectralRadius(a mat.Matrix) float64 {
	r := 0.0
	for _, v := range eigenvalues(a) {
		r = math.Max(r, cmplx.Abs(v))
	}
	return r
}
