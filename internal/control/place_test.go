package control

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/physics"
)

var _ = Describe("Controllability", func() {
	It("holds for the cart-pole in both frames", func() {
		Expect(Controllable(uprightModel())).To(BeTrue())
		Expect(Controllable(hangingModel())).To(BeTrue())
	})

	It("detects an unreachable state", func() {
		Expect(Controllable(decoupledModel())).To(BeFalse())
	})

	It("stacks A^k B column blocks", func() {
		ss := uprightModel()
		c := Controllability(ss.A, ss.B)
		r, cols := c.Dims()
		Expect(r).To(Equal(4))
		Expect(cols).To(Equal(4))
		Expect(c.At(1, 0)).To(Equal(ss.B.At(1, 0)))
		// A·B moves the velocity input into position.
		Expect(c.At(0, 1)).To(BeNumerically("~", ss.B.At(1, 0), 1e-15))
	})
})

var _ = Describe("Place", func() {
	poles := []float64{-2, -2.1, -2.2, -2.3}

	DescribeTable("places the requested spectrum",
		func(ss physics.StateSpace) {
			k, err := Place(ss, poles)
			Expect(err).NotTo(HaveOccurred())
			Expect(k).To(HaveLen(4))

			got := ClosedLoopPoles(ss, k)
			Expect(got).To(HaveLen(4))
			want := []float64{-2.3, -2.2, -2.1, -2}
			for i, p := range got {
				Expect(real(p)).To(BeNumerically("~", want[i], 1e-6))
				Expect(imag(p)).To(BeNumerically("~", 0, 1e-6))
			}
			Expect(IsStable(got)).To(BeTrue())
		},
		Entry("upright", uprightModel()),
		Entry("hanging with dissipation", hangingModel()),
	)

	It("matches the Ackermann gain for the default cart-pole", func() {
		k, err := Place(uprightModel(), poles)
		Expect(err).NotTo(HaveOccurred())
		want := []float64{-5.4159021406727845, -10.103465851172276, 94.09625535168195, 46.75866462793068}
		for i := range want {
			Expect(k[i]).To(BeNumerically("~", want[i], 1e-6))
		}
	})

	It("does not depend on the order of the poles", func() {
		a, _ := Place(uprightModel(), poles)
		b, _ := Place(uprightModel(), []float64{-2.3, -2, -2.2, -2.1})
		for i := range a {
			Expect(b[i]).To(BeNumerically("~", a[i], 1e-9))
		}
	})

	DescribeTable("rejects degenerate pole sets",
		func(p []float64) {
			_, err := Place(uprightModel(), p)
			Expect(err).To(MatchError(dynamo.ErrDegeneratePoles))
			var de *dynamo.ControlDesignError
			Expect(errors.As(err, &de)).To(BeTrue())
			Expect(de.Method).To(Equal("place"))
		},
		Entry("repeated", []float64{-2, -2, -3, -4}),
		Entry("unstable", []float64{1, -2, -3, -4}),
		Entry("marginal", []float64{0, -2, -3, -4}),
		Entry("too few", []float64{-1, -2, -3}),
	)

	It("rejects an uncontrollable pair", func() {
		_, err := Place(decoupledModel(), poles)
		Expect(err).To(MatchError(dynamo.ErrUncontrollable))
	})
})
