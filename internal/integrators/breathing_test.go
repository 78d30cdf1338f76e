package integrators_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/holosym/internal/dynamo"
	"github.com/san-kum/holosym/internal/integrators"
	"github.com/san-kum/holosym/internal/physics"
)

func tightConfig() integrators.Config {
	cfg := integrators.DefaultConfig()
	cfg.Tolerances = dynamo.Tolerances{Abs: 1e-11, Rel: 1e-10}
	return cfg
}

var _ = Describe("Dormand-Prince on the breathing model", func() {
	var (
		ctx  context.Context
		span dynamo.Span
		y0   dynamo.State
	)

	BeforeEach(func() {
		ctx = context.Background()
		span = dynamo.Span{Start: 0, End: 100}
		y0 = dynamo.State{0.01, 0, 0, 0}
	})

	Context("with the reference configuration", func() {
		var traj *dynamo.Trajectory

		BeforeEach(func() {
			sys := physics.NewBreathing(physics.DefaultParams())
			var err error
			traj, err = integrators.NewRK45().Integrate(ctx, sys, y0, span, 5000)
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns exactly the requested samples on the uniform grid", func() {
			Expect(traj.Times).To(HaveLen(5000))
			Expect(traj.Times[0]).To(Equal(0.0))
			Expect(traj.Times[4999]).To(Equal(100.0))
			for i := 1; i < traj.Len(); i++ {
				Expect(traj.Times[i]).To(BeNumerically(">", traj.Times[i-1]))
			}
		})

		It("starts from the initial state with χ at rest", func() {
			_, first := traj.At(0)
			Expect(first[physics.Phi]).To(Equal(0.01))
			Expect(first[physics.Chi]).To(Equal(0.0))
		})

		It("stays finite with velocities bounded by the energy", func() {
			// ½κφ̇² + ½χ̇² <= E - min V, and min V >= -Λ⁴(1 + γ²Λ⁴/g0).
			for _, s := range traj.States {
				Expect(s.IsValid()).To(BeTrue())
				Expect(math.Abs(s[physics.PhiDot])).To(BeNumerically("<", 2.5))
				Expect(math.Abs(s[physics.ChiDot])).To(BeNumerically("<", 2.5))
			}
		})

		It("never accepts a step above the error tolerance", func() {
			Expect(traj.Stats.Accepted).To(BeNumerically(">", 0))
			Expect(traj.Stats.MaxAcceptedError).To(BeNumerically("<=", 1.0))
		})
	})

	It("conserves energy along the coupled trajectory", func() {
		sys := physics.NewBreathing(physics.DefaultParams())
		traj, err := integrators.NewDormandPrince(tightConfig()).Integrate(ctx, sys, y0, span, 2000)
		Expect(err).NotTo(HaveOccurred())

		e0 := sys.Energy(y0)
		for _, s := range traj.States {
			Expect(sys.Energy(s)).To(BeNumerically("~", e0, 1e-5))
		}
	})

	It("conserves pendulum energy when the fields decouple", func() {
		p := physics.Params{Kappa: 1, Lambda4: 1, G0: 0.5, GammaPP: 0}
		sys := physics.NewBreathing(p)
		start := dynamo.State{0.01, 0, 0, 0}
		traj, err := integrators.NewDormandPrince(tightConfig()).Integrate(ctx, sys, start, span, 2000)
		Expect(err).NotTo(HaveOccurred())

		pendulum := func(s dynamo.State) float64 {
			return 0.5*p.Kappa*s[physics.PhiDot]*s[physics.PhiDot] + p.Lambda4*math.Cos(s[physics.Phi])
		}
		e0 := pendulum(start)
		for _, s := range traj.States {
			Expect(s[physics.Chi]).To(Equal(0.0))
			Expect(pendulum(s)).To(BeNumerically("~", e0, 1e-5))
		}
	})

	It("matches the analytic compensator oscillation when φ is pinned at zero", func() {
		// φ ≡ 0 and γ = 0 leave χ̈ = -2g0χ.
		p := physics.Params{Kappa: 1, Lambda4: 1, G0: 0.5, GammaPP: 0}
		traj, err := integrators.NewDormandPrince(tightConfig()).Integrate(ctx, physics.NewBreathing(p), dynamo.State{0, 0, 0.3, 0}, dynamo.Span{Start: 0, End: 20}, 201)
		Expect(err).NotTo(HaveOccurred())

		omega := math.Sqrt(2 * p.G0)
		for i, tm := range traj.Times {
			s := traj.States[i]
			Expect(s[physics.Phi]).To(Equal(0.0))
			Expect(s[physics.Chi]).To(BeNumerically("~", 0.3*math.Cos(omega*tm), 1e-6))
		}
	})

	It("matches the small-angle pendulum for a negative potential scale", func() {
		// Λ⁴ < 0 makes φ = 0 stable with ω = sqrt(|Λ⁴|/κ).
		p := physics.Params{Kappa: 4, Lambda4: -1, G0: 0, GammaPP: 0}
		cfg := integrators.DefaultConfig()
		cfg.Tolerances = dynamo.Tolerances{Abs: 1e-12, Rel: 1e-10}
		traj, err := integrators.NewDormandPrince(cfg).Integrate(ctx, physics.NewBreathing(p), dynamo.State{1e-3, 0, 0, 0}, dynamo.Span{Start: 0, End: 20}, 201)
		Expect(err).NotTo(HaveOccurred())

		omega := 0.5
		for i, tm := range traj.Times {
			Expect(traj.States[i][physics.Phi]).To(BeNumerically("~", 1e-3*math.Cos(omega*tm), 1e-8))
		}
	})

	It("agrees with a fine fixed-step RK4 reference", func() {
		sys := physics.NewBreathing(physics.DefaultParams())
		short := dynamo.Span{Start: 0, End: 10}

		ref, err := integrators.NewRK4WithSubsteps(10).Integrate(ctx, sys, y0, short, 1001)
		Expect(err).NotTo(HaveOccurred())

		cfg := integrators.DefaultConfig()
		cfg.Tolerances = dynamo.Tolerances{Abs: 1e-12, Rel: 1e-12}
		got, err := integrators.NewDormandPrince(cfg).Integrate(ctx, sys, y0, short, 1001)
		Expect(err).NotTo(HaveOccurred())

		for i := range ref.States {
			for k := range ref.States[i] {
				Expect(got.States[i][k]).To(BeNumerically("~", ref.States[i][k], 1e-4))
			}
		}
	})

	It("is deterministic", func() {
		sys := physics.NewBreathing(physics.DefaultParams())
		integ := integrators.NewRK45()

		a, err := integ.Integrate(ctx, sys, y0, span, 500)
		Expect(err).NotTo(HaveOccurred())
		b, err := integ.Integrate(ctx, sys, y0, span, 500)
		Expect(err).NotTo(HaveOccurred())

		Expect(a.States).To(Equal(b.States))
		Expect(a.Times).To(Equal(b.Times))
	})

	It("returns only the endpoints for two samples", func() {
		sys := physics.NewBreathing(physics.DefaultParams())
		integ := integrators.NewRK45()

		pair, err := integ.Integrate(ctx, sys, y0, span, 2)
		Expect(err).NotTo(HaveOccurred())
		full, err := integ.Integrate(ctx, sys, y0, span, 5000)
		Expect(err).NotTo(HaveOccurred())

		Expect(pair.Times).To(Equal([]float64{0, 100}))
		_, last := full.Final()
		Expect(pair.States[1]).To(Equal(last))
		Expect(pair.States[0]).To(Equal(y0))
	})

	It("reports divergence for overflowing couplings instead of NaN output", func() {
		p := physics.Params{Kappa: 1, Lambda4: 1, G0: 1e200, GammaPP: 0.1}
		traj, err := integrators.NewRK45().Integrate(ctx, physics.NewBreathing(p), dynamo.State{0, 0, 1e200, 0}, span, 100)

		Expect(traj).To(BeNil())
		Expect(err).To(MatchError(dynamo.ErrDiverged))
		partial := dynamo.PartialTrajectory(err)
		Expect(partial).NotTo(BeNil())
		for _, s := range partial.States {
			Expect(s.IsValid()).To(BeTrue())
		}
	})

	It("keeps grid samples as accurate as the steps at default tolerances", func() {
		sys := physics.NewBreathing(physics.DefaultParams())
		short := dynamo.Span{Start: 0, End: 10}

		cfg := integrators.DefaultConfig()
		cfg.Tolerances = dynamo.Tolerances{Abs: 1e-13, Rel: 1e-12}
		ref, err := integrators.NewDormandPrince(cfg).Integrate(ctx, sys, y0, short, 1001)
		Expect(err).NotTo(HaveOccurred())

		got, err := integrators.NewRK45().Integrate(ctx, sys, y0, short, 1001)
		Expect(err).NotTo(HaveOccurred())

		e0 := sys.Energy(y0)
		for i := range ref.States {
			Expect(got.States[i][physics.Phi]).To(BeNumerically("~", ref.States[i][physics.Phi], 2e-5))
			Expect(sys.Energy(got.States[i])).To(BeNumerically("~", e0, 2e-5))
		}
	})

	It("reports divergence after the run has started", func() {
		// With φ ≡ 0 and g0 < 0, χ grows like exp(10t) until χ² overflows
		// in φ̈ near t = 35.
		p := physics.Params{Kappa: 1, Lambda4: 1, G0: -50, GammaPP: 0}
		traj, err := integrators.NewRK45().Integrate(ctx, physics.NewBreathing(p), dynamo.State{0, 0, 1, 0}, span, 1001)

		Expect(traj).To(BeNil())
		Expect(err).To(MatchError(dynamo.ErrDiverged))
		Expect(dynamo.Outcome(err)).To(Equal("diverged"))

		var ie *dynamo.IntegrationError
		Expect(errors.As(err, &ie)).To(BeTrue())
		Expect(ie.Step).To(BeNumerically(">", 0))
		Expect(ie.Time).To(BeNumerically(">", 30))
		Expect(ie.Time).To(BeNumerically("<", span.End))
		Expect(ie.State.IsValid()).To(BeTrue())

		partial := dynamo.PartialTrajectory(err)
		Expect(partial.Len()).To(BeNumerically(">", 1))
		Expect(partial.Len()).To(BeNumerically("<", 1001))
		for i, s := range partial.States {
			Expect(s.IsValid()).To(BeTrue())
			Expect(partial.Times[i]).To(BeNumerically("<=", ie.Time))
		}
	})

	It("lets independent runs proceed in parallel", func() {
		sys := physics.NewBreathing(physics.DefaultParams())
		integ := integrators.NewRK45()

		jobs := make([]dynamo.Job, 6)
		for i := range jobs {
			jobs[i] = dynamo.Job{
				System:     sys,
				Integrator: integ,
				Y0:         dynamo.State{0.01 * float64(i+1), 0, 0, 0},
				Span:       dynamo.Span{Start: 0, End: 20},
				Samples:    200,
			}
		}
		results := dynamo.NewEnsemble(3).Run(ctx, jobs)
		Expect(dynamo.FirstError(results)).NotTo(HaveOccurred())

		for i, r := range results {
			serial, err := integ.Integrate(ctx, sys, jobs[i].Y0, jobs[i].Span, jobs[i].Samples)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Trajectory.States).To(Equal(serial.States))
		}
	})
})
