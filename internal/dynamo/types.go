package dynamo

import (
	"context"
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// IsValid reports whether every component is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// System is an ODE right-hand side dy/dt = f(t, y). Derive must not
// modify y and must be safe to call concurrently.
type System interface {
	Derive(t float64, y State) State
	StateDim() int
}

type Hamiltonian interface {
	Energy(y State) float64
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Integrator advances a System over a span and samples the solution on a
// uniform grid of the requested size.
type Integrator interface {
	Name() string
	Integrate(ctx context.Context, sys System, y0 State, span Span, samples int) (*Trajectory, error)
}

type Span struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

func (s Span) Length() float64 { return s.End - s.Start }

func (s Span) Validate() error {
	if math.IsNaN(s.Start) || math.IsInf(s.Start, 0) || math.IsNaN(s.End) || math.IsInf(s.End, 0) {
		return fmt.Errorf("%w: span bounds must be finite, got [%g, %g]", ErrInvalidConfig, s.Start, s.End)
	}
	if s.End <= s.Start {
		return fmt.Errorf("%w: span end %g must be greater than start %g", ErrInvalidConfig, s.End, s.Start)
	}
	return nil
}

// Grid returns n uniformly spaced times covering the span. The first and
// last entries are exactly Start and End.
func (s Span) Grid(n int) []float64 {
	grid := make([]float64, n)
	if n == 1 {
		grid[0] = s.Start
		return grid
	}
	step := s.Length() / float64(n-1)
	for i := range grid {
		grid[i] = s.Start + float64(i)*step
	}
	grid[n-1] = s.End
	return grid
}

type Tolerances struct {
	Abs float64 `json:"abs" yaml:"abs"`
	Rel float64 `json:"rel" yaml:"rel"`
}

func DefaultTolerances() Tolerances {
	return Tolerances{Abs: 1e-9, Rel: 1e-6}
}

func (t Tolerances) Validate() error {
	for _, v := range []float64{t.Abs, t.Rel} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: tolerances must be positive and finite, got abs=%g rel=%g", ErrInvalidConfig, t.Abs, t.Rel)
		}
	}
	return nil
}

// ValidateRequest checks the inputs shared by every Integrator.
func ValidateRequest(sys System, y0 State, span Span, samples int) error {
	if sys == nil {
		return fmt.Errorf("%w: system is required", ErrInvalidConfig)
	}
	if len(y0) != sys.StateDim() {
		return fmt.Errorf("%w: initial state has %d components, system expects %d", ErrInvalidConfig, len(y0), sys.StateDim())
	}
	if !y0.IsValid() {
		return fmt.Errorf("%w: initial state %v is not finite", ErrInvalidConfig, []float64(y0))
	}
	if err := span.Validate(); err != nil {
		return err
	}
	if samples < 2 {
		return fmt.Errorf("%w: sample count must be at least 2, got %d", ErrInvalidConfig, samples)
	}
	return nil
}

// Stats summarizes the work done by one integration call.
type Stats struct {
	Accepted         int     `json:"accepted"`
	Rejected         int     `json:"rejected"`
	Evaluations      int     `json:"evaluations"`
	LastStep         float64 `json:"last_step"`
	MinStep          float64 `json:"min_step"`
	MaxStep          float64 `json:"max_step"`
	MaxAcceptedError float64 `json:"max_accepted_error"`
}

// Trajectory is a time-ordered sampling of a solution. It is owned by the
// caller once returned.
type Trajectory struct {
	Times  []float64
	States []State
	Stats  Stats
}

func NewTrajectory(capacity int) *Trajectory {
	return &Trajectory{
		Times:  make([]float64, 0, capacity),
		States: make([]State, 0, capacity),
	}
}

func (tr *Trajectory) Append(t float64, y State) {
	tr.Times = append(tr.Times, t)
	tr.States = append(tr.States, y)
}

func (tr *Trajectory) Len() int {
	if tr == nil {
		return 0
	}
	return len(tr.Times)
}

func (tr *Trajectory) At(i int) (float64, State) {
	return tr.Times[i], tr.States[i]
}

func (tr *Trajectory) Final() (float64, State) {
	return tr.At(tr.Len() - 1)
}

// Column extracts component k of every sample.
func (tr *Trajectory) Column(k int) []float64 {
	if tr == nil {
		return nil
	}
	col := make([]float64, len(tr.States))
	for i, s := range tr.States {
		if k < len(s) {
			col[i] = s[k]
		}
	}
	return col
}
