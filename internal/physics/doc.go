// Package physics provides the two-field breathing oscillator model.
//
// The state is (φ, φ̇, χ, χ̇): a breathing field φ with inertia κ in the
// potential Λ⁴cos φ, nonlinearly coupled to a compensator field χ. [Field]
// is the pure vector field; [Breathing] binds a [Params] record to it and
// implements [dynamo.System], [dynamo.Hamiltonian] and
// [dynamo.Configurable].
//
// # Energy Conservation
//
// The equations derive from the potential
//
//	V(φ, χ) = Λ⁴cos φ + ½g0χ²(1 + cos φ) − γΛ⁴χ sin φ
//
// so [Breathing.Energy] is constant along exact solutions and is the
// primary correctness check for integrators:
//
//	sys := physics.NewBreathing(physics.DefaultParams())
//	drift := sys.Energy(yEnd) - sys.Energy(y0)
package physics
