package control

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/physics"
)

func careResidual(ss physics.StateSpace, w CostWeights, p mat.Matrix) float64 {
	var atp, pa, pb, pbbp mat.Dense
	atp.Mul(ss.A.T(), p)
	pa.Mul(p, ss.A)
	pb.Mul(p, ss.B)
	pbbp.Mul(&pb, pb.T())
	pbbp.Scale(1/w.R, &pbbp)

	var res mat.Dense
	res.Add(&atp, &pa)
	res.Sub(&res, &pbbp)
	res.Add(&res, w.Q)
	return mat.Norm(&res, math.Inf(1))
}

var _ = Describe("LQR", func() {
	DescribeTable("stabilizes the closed loop",
		func(ss physics.StateSpace, w CostWeights) {
			k, err := LQR(ss, w)
			Expect(err).NotTo(HaveOccurred())
			poles := ClosedLoopPoles(ss, k)
			Expect(IsStable(poles)).To(BeTrue(), "poles %v", poles)
		},
		Entry("upright, default weights", uprightModel(), DefaultWeights()),
		Entry("hanging, default weights", hangingModel(), DefaultWeights()),
		Entry("upright, position-only state cost", uprightModel(), CostWeights{Q: Diag(1, 0, 0, 0), R: 1}),
		Entry("upright, cheap control", uprightModel(), CostWeights{Q: Diag(10, 1, 100, 10), R: 0.001}),
		Entry("upright, coupled Q", uprightModel(), CostWeights{
			Q: mat.NewSymDense(4, []float64{
				2, 1, 0, 0,
				1, 2, 0, 0,
				0, 0, 5, 1,
				0, 0, 1, 5,
			}),
			R: 0.5,
		}),
	)

	It("solves the Riccati equation", func() {
		ss := uprightModel()
		w := DefaultWeights()
		p, err := SolveCARE(ss, w)
		Expect(err).NotTo(HaveOccurred())
		Expect(careResidual(ss, w, p)).To(BeNumerically("<", 1e-8))

		var eig mat.EigenSym
		Expect(eig.Factorize(p, false)).To(BeTrue())
		for _, v := range eig.Values(nil) {
			Expect(v).To(BeNumerically(">", 0))
		}
	})

	It("reproduces the reference gain for the default cart-pole", func() {
		k, err := LQR(uprightModel(), DefaultWeights())
		Expect(err).NotTo(HaveOccurred())
		// The cart position enters as a pure integrator chain, so its
		// gain is -sqrt(q11/R).
		Expect(k[0]).To(BeNumerically("~", -math.Sqrt(10), 1e-8))
		want := []float64{-3.162277660168842, -8.313943931642687, 102.9849465675887, 60.00088030653213}
		for i := range want {
			Expect(k[i]).To(BeNumerically("~", want[i], 1e-6*math.Abs(want[i])))
		}
	})

	DescribeTable("rejects invalid weights",
		func(w CostWeights) {
			_, err := LQR(uprightModel(), w)
			Expect(err).To(MatchError(dynamo.ErrIndefiniteWeights))
		},
		Entry("zero R", CostWeights{Q: Diag(1, 1, 1, 1), R: 0}),
		Entry("negative R", CostWeights{Q: Diag(1, 1, 1, 1), R: -1}),
		Entry("indefinite Q", CostWeights{Q: Diag(1, -1, 1, 1), R: 1}),
		Entry("wrong size Q", CostWeights{Q: Diag(1, 1), R: 1}),
		Entry("missing Q", CostWeights{R: 1}),
	)

	It("rejects an uncontrollable pair", func() {
		_, err := LQR(decoupledModel(), DefaultWeights())
		Expect(err).To(MatchError(dynamo.ErrUncontrollable))
	})
})
