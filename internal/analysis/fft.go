package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/san-kum/holosym/internal/dynamo"
)

// FFT is a radix-2 transform. Inputs whose length is not a power of two
// are zero-padded.
func FFT(data []float64) []complex128 {
	n := nextPow2(len(data))
	padded := make([]float64, n)
	copy(padded, data)
	return fft(padded)
}

func fft(data []float64) []complex128 {
	n := len(data)
	if n <= 1 {
		result := make([]complex128, n)
		for i := range data {
			result[i] = complex(data[i], 0)
		}
		return result
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)

	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	feven := fft(even)
	fodd := fft(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}

	return result
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// PowerSpectrum returns the magnitudes of the non-negative frequency bins.
func PowerSpectrum(data []float64) []float64 {
	out := FFT(data)
	ps := make([]float64, len(out)/2)

	for i := range ps {
		ps[i] = cmplx.Abs(out[i])
	}

	return ps
}

// Spectrum is the power spectrum of one component of a uniformly sampled
// trajectory.
type Spectrum struct {
	Frequencies []float64
	Power       []float64
}

// ComponentSpectrum removes the mean of component idx and transforms it.
// Frequencies are in cycles per unit time.
func ComponentSpectrum(traj *dynamo.Trajectory, idx int) (*Spectrum, error) {
	if traj.Len() < 4 {
		return nil, fmt.Errorf("need at least 4 samples, got %d", traj.Len())
	}
	if idx < 0 || idx >= len(traj.States[0]) {
		return nil, fmt.Errorf("component %d out of range", idx)
	}

	series := traj.Column(idx)
	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))
	for i := range series {
		series[i] -= mean
	}

	dt := (traj.Times[traj.Len()-1] - traj.Times[0]) / float64(traj.Len()-1)
	power := PowerSpectrum(series)
	n := 2 * len(power)

	freqs := make([]float64, len(power))
	for k := range freqs {
		freqs[k] = float64(k) / (float64(n) * dt)
	}
	return &Spectrum{Frequencies: freqs, Power: power}, nil
}

// Dominant returns the frequency of the strongest non-zero bin, or 0 for
// a flat signal.
func (s *Spectrum) Dominant() float64 {
	best, bestPower := 0, 0.0
	for k := 1; k < len(s.Power); k++ {
		if s.Power[k] > bestPower {
			best, bestPower = k, s.Power[k]
		}
	}
	if best == 0 {
		return 0
	}
	return s.Frequencies[best]
}
