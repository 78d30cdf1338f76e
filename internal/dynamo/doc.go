// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types for numerical
// integration of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dy/dt = f(t, y))
//   - [Integrator]: integrates a System over a [Span] onto a sample grid
//   - [Trajectory]: uniformly sampled solution returned to the caller
//   - [IntegrationError]: tagged failure carrying the partial trajectory
//
// # Example
//
//	sys := physics.NewBreathing(physics.DefaultParams())
//	integ := integrators.NewDormandPrince(integrators.DefaultConfig())
//	traj, err := integ.Integrate(ctx, sys, y0, dynamo.Span{Start: 0, End: 100}, 5000)
//
// # Thread Safety
//
// A single integration is sequential. Independent runs can execute in
// parallel through [Ensemble], each with its own initial state.
package dynamo
