package control

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/cartpole/internal/dynamo"
)

var _ = Describe("Feedback", func() {
	k := Gain{1, 2, 3, 4}
	target := dynamo.State{10, 0, 0, 0}

	It("is zero at the target", func() {
		f := NewFeedback(k, target, DefaultForceMag)
		Expect(f.Force(dynamo.State{10, 0, 0, 0}, Automatic())).To(BeZero())
	})

	It("applies -K·(x - target)", func() {
		f := NewFeedback(k, target, DefaultForceMag)
		x := dynamo.State{11, 0.5, -0.1, 0.2}
		want := -(1*1 + 2*0.5 + 3*-0.1 + 4*0.2)
		Expect(f.Force(x, Automatic())).To(BeNumerically("~", want, 1e-12))
		Expect(f.Compute(x, 0)).To(Equal(dynamo.Control{f.Law(x)}))
	})

	It("lets a manual command bypass the law", func() {
		f := NewFeedback(k, target, 30)
		x := dynamo.State{0, 0, 1, 0}
		Expect(f.Force(x, Manual(1))).To(Equal(30.0))
		Expect(f.Force(x, Manual(-1))).To(Equal(-30.0))
		Expect(f.Force(x, Manual(0))).To(BeZero())
	})

	It("clamps manual deflection to the force magnitude", func() {
		f := NewFeedback(k, target, 30)
		Expect(f.Force(nil, Manual(5))).To(Equal(30.0))
		Expect(f.Force(nil, Manual(-2))).To(Equal(-30.0))
		Expect(f.Force(nil, Manual(0.5))).To(Equal(15.0))
	})

	It("produces no force without a gain", func() {
		f := NewFeedback(nil, target, 30)
		Expect(f.Force(dynamo.State{0, 1, 2, 3}, Automatic())).To(BeZero())
	})

	It("tracks a moved set-point without a new gain", func() {
		f := NewFeedback(k, target, 30)
		f.SetTarget(dynamo.State{5, 0, 0, 0})
		Expect(f.Force(dynamo.State{5, 0, 0, 0}, Automatic())).To(BeZero())
		Expect(f.K).To(Equal(k))
	})

	It("describes commands", func() {
		Expect(Automatic().String()).To(Equal("automatic"))
		Expect(Manual(-1).String()).To(Equal("manual(-1.00)"))
	})
})

var _ = Describe("Design", func() {
	ss := uprightModel()
	target := dynamo.State{10, 0, 0, 0}

	It("builds an empty law for mode none", func() {
		f, err := Design(ss, DesignSpec{Mode: ModeNone, Target: target})
		Expect(err).NotTo(HaveOccurred())
		Expect(f.K).To(BeNil())
		Expect(f.ForceMag).To(Equal(DefaultForceMag))
	})

	It("defaults the pole set and the weights", func() {
		placed, err := Design(ss, DesignSpec{Mode: ModePolePlacement, Target: target})
		Expect(err).NotTo(HaveOccurred())
		Expect(IsStable(ClosedLoopPoles(ss, placed.K))).To(BeTrue())

		lqr, err := Design(ss, DesignSpec{Mode: ModeLQR, Target: target})
		Expect(err).NotTo(HaveOccurred())
		Expect(IsStable(ClosedLoopPoles(ss, lqr.K))).To(BeTrue())
		Expect(lqr.Target).To(Equal(target))
	})

	It("refuses the learning-based mode", func() {
		_, err := Design(ss, DesignSpec{Mode: ModeReinforcement})
		Expect(err).To(MatchError(dynamo.ErrNotImplemented))
	})

	DescribeTable("parses mode names",
		func(in string, want Mode) {
			got, err := ParseMode(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("none", "none", ModeNone),
		Entry("empty", "", ModeNone),
		Entry("pole placement", "pole_placement", ModePolePlacement),
		Entry("legacy place", "linear_place", ModePolePlacement),
		Entry("lqr", "lqr", ModeLQR),
		Entry("legacy lqr", "linear_qr", ModeLQR),
	)

	It("rejects unknown mode names", func() {
		_, err := ParseMode("mpc")
		Expect(err).To(HaveOccurred())
	})
})
