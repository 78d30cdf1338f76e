package metrics

import (
	"math"

	"github.com/san-kum/holosym/internal/dynamo"
)

// Stability is the fraction of samples whose components all stay within
// threshold in magnitude.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(t float64, x dynamo.State) {
	s.samples++
	for _, val := range x {
		if math.Abs(val) > s.threshold || math.IsNaN(val) {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Amplitude is the largest magnitude reached by one state component.
type Amplitude struct {
	name  string
	index int
	peak  float64
}

func NewAmplitude(name string, index int) *Amplitude {
	return &Amplitude{name: name, index: index}
}

func (a *Amplitude) Name() string { return a.name }

func (a *Amplitude) Observe(t float64, x dynamo.State) {
	if a.index < len(x) {
		a.peak = math.Max(a.peak, math.Abs(x[a.index]))
	}
}

func (a *Amplitude) Value() float64 { return a.peak }

func (a *Amplitude) Reset() { a.peak = 0 }
