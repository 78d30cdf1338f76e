// Package analysis post-processes sampled trajectories.
//
//   - [PhasePortrait]: projection onto two state components, e.g. φ vs φ̇
//   - [PhasePortraitToASCII]: terminal rendering of a projection
//   - [GeneratePoincareSection]: interpolated crossings of a threshold
//   - [ComponentSpectrum]: power spectrum and dominant frequency
//   - [LyapunovExponent]: largest exponent via trajectory separation
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda, err := analysis.LyapunovExponent(ctx, sys, integ, x0, 1, 200, 1e-8)
//	if err == nil && lambda > 0 {
//	    // System is chaotic
//	}
package analysis
