// Package solver defines the contract between the run-state evaluator and a
// numerical ODE integrator, and ships the integrators models can assign to
// their ODE equations.
//
// An Integrator advances one coupled system by one external timestep. The
// evaluator owns one Integrator per (batch, index combination) pair, so an
// Integrator only keeps scratch buffers and never state that would tie two
// calls together.
//
// Fixed-step methods (Euler, RK4) divide the external timestep into equal
// sub-steps. RKMerson adapts its sub-step to a tolerance. ImplicitEuler solves
// every sub-step with Newton iterations and therefore needs a Jacobian.
package solver
