package integrators

import (
	"context"
	"log/slog"
	"math"

	"github.com/san-kum/holosym/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// Continuous extension of order 4 (Hairer, Nørsett & Wanner II.6). Row i
// holds the coefficients of θ, θ², θ³, θ⁴ multiplying stage k(i+1).
var dense = [7][4]float64{
	{1, -8048581381.0 / 2820520608.0, 8663915743.0 / 2820520608.0, -12715105075.0 / 11282082432.0},
	{0, 0, 0, 0},
	{0, 131558114200.0 / 32700410799.0, -68118460800.0 / 10900136933.0, 87487479700.0 / 32700410799.0},
	{0, -1754552775.0 / 470086768.0, 14199869525.0 / 1410260304.0, -10690763975.0 / 1880347072.0},
	{0, 127303824393.0 / 49829197408.0, -318862633887.0 / 49829197408.0, 701980252875.0 / 199316789632.0},
	{0, -282668133.0 / 205662961.0, 2019193451.0 / 616988883.0, -1453857185.0 / 822651844.0},
	{0, 40617522.0 / 29380423.0, -110615467.0 / 29380423.0, 69997945.0 / 29380423.0},
}

// Config controls the Dormand-Prince step-size controller.
type Config struct {
	Tolerances dynamo.Tolerances `yaml:"tolerances"`
	Safety     float64           `yaml:"safety"`
	MinScale   float64           `yaml:"min_scale"`
	MaxScale   float64           `yaml:"max_scale"`
	// InitialStep <= 0 selects the step from the initial derivative.
	InitialStep float64 `yaml:"initial_step"`
	// MaxStep <= 0 means the span length.
	MaxStep float64 `yaml:"max_step"`
	// MinStepFraction is the collapse threshold relative to the span length.
	MinStepFraction float64 `yaml:"min_step_fraction"`
	// MaxSteps bounds accepted plus rejected trial steps.
	MaxSteps int `yaml:"max_steps"`
	// Substeps is the number of RK4 steps per sample interval.
	Substeps int `yaml:"substeps"`

	Logger *slog.Logger `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		Tolerances:      dynamo.DefaultTolerances(),
		Safety:          0.9,
		MinScale:        0.2,
		MaxScale:        5.0,
		MinStepFraction: 1e-12,
		MaxSteps:        1_000_000,
		Substeps:        10,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Tolerances.Abs == 0 && c.Tolerances.Rel == 0 {
		c.Tolerances = d.Tolerances
	}
	if c.Safety <= 0 {
		c.Safety = d.Safety
	}
	if c.MinScale <= 0 {
		c.MinScale = d.MinScale
	}
	if c.MaxScale <= 0 {
		c.MaxScale = d.MaxScale
	}
	if c.MinStepFraction <= 0 {
		c.MinStepFraction = d.MinStepFraction
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = d.MaxSteps
	}
	if c.Substeps <= 0 {
		c.Substeps = d.Substeps
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// DormandPrince is an adaptive embedded Runge-Kutta 4(5) integrator with
// FSAL stages and the method's fourth-order dense output. It keeps no
// per-call state and may be shared between goroutines.
type DormandPrince struct {
	cfg Config
}

func NewDormandPrince(cfg Config) *DormandPrince {
	return &DormandPrince{cfg: cfg.withDefaults()}
}

func NewRK45() *DormandPrince {
	return NewDormandPrince(DefaultConfig())
}

func (r *DormandPrince) Name() string { return "rk45" }

func (r *DormandPrince) Config() Config { return r.cfg }

// Integrate advances sys from span.Start to span.End and samples the
// solution at samples uniformly spaced times.
func (r *DormandPrince) Integrate(ctx context.Context, sys dynamo.System, y0 dynamo.State, span dynamo.Span, samples int) (*dynamo.Trajectory, error) {
	if err := dynamo.ValidateRequest(sys, y0, span, samples); err != nil {
		return nil, err
	}
	cfg := r.cfg
	if err := cfg.Tolerances.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	debug := log.Enabled(ctx, slog.LevelDebug)

	grid := span.Grid(samples)
	out := dynamo.NewTrajectory(samples)
	st := newDopriStepper(sys, len(y0), cfg.Tolerances)

	length := span.Length()
	hMin := cfg.MinStepFraction * length
	hMax := cfg.MaxStep
	if hMax <= 0 || hMax > length {
		hMax = length
	}

	t := span.Start
	y := y0.Clone()
	f := st.derive(t, y)

	fail := func(kind error, step int, cause error) (*dynamo.Trajectory, error) {
		out.Stats = st.stats
		return nil, &dynamo.IntegrationError{
			Kind:    kind,
			Step:    step,
			Time:    t,
			State:   y.Clone(),
			Partial: out,
			Cause:   cause,
		}
	}

	out.Append(grid[0], y.Clone())
	next := 1

	if !f.IsValid() {
		return fail(dynamo.ErrDiverged, 0, nil)
	}

	h := cfg.InitialStep
	if h <= 0 {
		h = st.initialStep(t, y, f, hMax)
	}
	h = math.Max(math.Min(h, hMax), hMin)

	iterations := 0
	rejectedLast := false
	for t < span.End {
		if iterations >= cfg.MaxSteps {
			return fail(dynamo.ErrStepBudgetExceeded, st.stats.Accepted, nil)
		}
		iterations++

		last := false
		if t+h >= span.End-hMin {
			h = span.End - t
			last = true
		}

		yNew, k, errNorm, finite := st.step(t, y, f, h)
		if !finite || errNorm > 1 {
			st.stats.Rejected++
			scale := cfg.MinScale
			if finite {
				scale = math.Max(cfg.MinScale, cfg.Safety*math.Pow(errNorm, -0.2))
			}
			if debug {
				log.Debug("step rejected", "t", t, "h", h, "err", errNorm, "finite", finite)
			}
			h *= scale
			rejectedLast = true
			if h < hMin {
				if !finite {
					return fail(dynamo.ErrDiverged, st.stats.Accepted, nil)
				}
				return fail(dynamo.ErrStepSizeCollapsed, st.stats.Accepted, nil)
			}
			continue
		}

		tNew := t + h
		if last {
			tNew = span.End
		}
		for next < samples && grid[next] <= tNew {
			if grid[next] == tNew {
				out.Append(grid[next], yNew.Clone())
			} else {
				out.Append(grid[next], interpolate(t, y, h, k, grid[next]))
			}
			next++
		}

		st.accept(h, errNorm)
		if debug {
			log.Debug("step accepted", "t", tNew, "h", h, "err", errNorm)
		}
		t, y, f = tNew, yNew, k[6]

		scale := cfg.MaxScale
		if errNorm > 0 {
			scale = math.Min(cfg.MaxScale, math.Max(cfg.MinScale, cfg.Safety*math.Pow(errNorm, -0.2)))
		}
		if rejectedLast {
			scale = math.Min(scale, 1)
		}
		rejectedLast = false
		h = math.Min(h*scale, hMax)

		if t < span.End {
			if err := ctx.Err(); err != nil {
				return fail(dynamo.ErrCanceled, st.stats.Accepted, err)
			}
		}
	}

	// Rounding in the grid can leave End unsampled only if the loop exits
	// without an accepted final step, which the clamp above prevents.
	for next < samples {
		out.Append(grid[next], y.Clone())
		next++
	}

	out.Stats = st.stats
	return out, nil
}

// dopriStepper holds the scratch space of one Integrate call.
type dopriStepper struct {
	sys     dynamo.System
	tol     dynamo.Tolerances
	scratch dynamo.State
	stats   dynamo.Stats
}

func newDopriStepper(sys dynamo.System, n int, tol dynamo.Tolerances) *dopriStepper {
	return &dopriStepper{
		sys:     sys,
		tol:     tol,
		scratch: make(dynamo.State, n),
	}
}

func (s *dopriStepper) derive(t float64, y dynamo.State) dynamo.State {
	s.stats.Evaluations++
	return s.sys.Derive(t, y)
}

func (s *dopriStepper) accept(h, errNorm float64) {
	st := &s.stats
	if st.Accepted == 0 || h < st.MinStep {
		st.MinStep = h
	}
	if h > st.MaxStep {
		st.MaxStep = h
	}
	st.LastStep = h
	st.MaxAcceptedError = math.Max(st.MaxAcceptedError, errNorm)
	st.Accepted++
}

// stages are k1..k7 of one Dormand-Prince step; k7 is f at the new point.
type stages [7]dynamo.State

// step takes one trial step of size h from (t, y) with k1 = f. It returns
// the fifth-order solution, the stages (k[6] is the FSAL derivative), and
// the RMS scaled error of the embedded fourth-order estimate.
func (s *dopriStepper) step(t float64, y, k1 dynamo.State, h float64) (dynamo.State, *stages, float64, bool) {
	n := len(y)
	x := s.scratch

	for i := 0; i < n; i++ {
		x[i] = y[i] + h*b21*k1[i]
	}
	k2 := s.derive(t+a2*h, x)

	for i := 0; i < n; i++ {
		x[i] = y[i] + h*(b31*k1[i]+b32*k2[i])
	}
	k3 := s.derive(t+a3*h, x)

	for i := 0; i < n; i++ {
		x[i] = y[i] + h*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := s.derive(t+a4*h, x)

	for i := 0; i < n; i++ {
		x[i] = y[i] + h*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := s.derive(t+a5*h, x)

	for i := 0; i < n; i++ {
		x[i] = y[i] + h*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := s.derive(t+h, x)

	yNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		yNew[i] = y[i] + h*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}
	if !yNew.IsValid() {
		return nil, nil, math.Inf(1), false
	}

	k7 := s.derive(t+h, yNew)
	if !k7.IsValid() {
		return nil, nil, math.Inf(1), false
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		errEst := h * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := s.tol.Abs + s.tol.Rel*math.Max(math.Abs(y[i]), math.Abs(yNew[i]))
		e := errEst / scale
		sum += e * e
	}
	errNorm := math.Sqrt(sum / float64(n))
	if math.IsNaN(errNorm) || math.IsInf(errNorm, 0) {
		return nil, nil, errNorm, false
	}

	return yNew, &stages{k1, k2, k3, k4, k5, k6, k7}, errNorm, true
}

// initialStep estimates a first step from the size of y0 and f(y0) and a
// finite-difference second derivative (Hairer, Nørsett & Wanner II.4).
func (s *dopriStepper) initialStep(t float64, y, f dynamo.State, hMax float64) float64 {
	n := len(y)
	rms := func(v func(i int) float64) float64 {
		sum := 0.0
		for i := 0; i < n; i++ {
			x := v(i) / (s.tol.Abs + s.tol.Rel*math.Abs(y[i]))
			sum += x * x
		}
		return math.Sqrt(sum / float64(n))
	}

	d0 := rms(func(i int) float64 { return y[i] })
	d1 := rms(func(i int) float64 { return f[i] })

	h0 := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h0 = 0.01 * d0 / d1
	}
	h0 = math.Min(h0, hMax)

	y1 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		y1[i] = y[i] + h0*f[i]
	}
	f1 := s.derive(t+h0, y1)
	if !f1.IsValid() {
		return h0
	}

	d2 := rms(func(i int) float64 { return f1[i] - f[i] }) / h0

	var h1 float64
	if d1 <= 1e-15 && d2 <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 0.2)
	}

	return math.Min(math.Min(100*h0, h1), hMax)
}

// interpolate evaluates the continuous extension of the accepted step of
// size h from (t0, y0) at tau in [t0, t0+h].
func interpolate(t0 float64, y0 dynamo.State, h float64, k *stages, tau float64) dynamo.State {
	th := (tau - t0) / h

	var w [7]float64
	for j := range w {
		p := dense[j]
		w[j] = th * (p[0] + th*(p[1]+th*(p[2]+th*p[3])))
	}

	out := make(dynamo.State, len(y0))
	for i := range out {
		acc := 0.0
		for j := range w {
			acc += w[j] * k[j][i]
		}
		out[i] = y0[i] + h*acc
	}
	return out
}
