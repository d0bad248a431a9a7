package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrStepTooSmall is returned by adaptive methods when the error estimate
	// cannot be met with a sub-step above the configured minimum.
	ErrStepTooSmall = errors.New("solver step below minimum")
	// ErrNoConvergence is returned by implicit methods when Newton iterations
	// do not converge or the iteration matrix is singular.
	ErrNoConvergence = errors.New("solver did not converge")
	// ErrMissingJacobian is returned when a method that needs a Jacobian is
	// advanced without one.
	ErrMissingJacobian = errors.New("solver requires a jacobian")
)

// DerivFunc writes the derivative of every state variable at y into dydt.
// Both slices have the length of the system.
type DerivFunc func(y, dydt []float64)

// JacobianFunc fills jac (n x n, zeroed by the caller) with the partial
// derivatives d(dydt[i])/d(y[j]) at y.
type JacobianFunc func(y []float64, jac *mat.Dense)

// Method is a named integration scheme that can create integrators.
type Method interface {
	Name() string
	// RequiresJacobian reports whether Advance needs a non-nil JacobianFunc.
	RequiresJacobian() bool
	// NewIntegrator returns an integrator for a system of n state variables.
	NewIntegrator(n int) Integrator
}

// Integrator advances a system over one external timestep.
type Integrator interface {
	// Advance integrates y in place from t to t+dt. It must not keep
	// references to y or call f and jac after returning.
	Advance(y []float64, dt float64, f DerivFunc, jac JacobianFunc) error
}

// substeps returns the number of equal sub-steps of at most h covering dt.
func substeps(dt, h float64) int {
	if h <= 0 || h >= dt {
		return 1
	}
	return int(math.Ceil(dt/h - 1e-9))
}

// Euler is the explicit forward Euler method with a fixed sub-step.
type Euler struct {
	// Step is the sub-step length as a fraction of the external timestep.
	// Zero or anything above 1 means a single step.
	Step float64
}

func (Euler) Name() string           { return "euler" }
func (Euler) RequiresJacobian() bool { return false }

func (e Euler) NewIntegrator(n int) Integrator {
	return &euler{step: e.Step, k: make([]float64, n)}
}

type euler struct {
	step float64
	k    []float64
}

func (e *euler) Advance(y []float64, dt float64, f DerivFunc, _ JacobianFunc) error {
	steps := substeps(dt, e.step*dt)
	h := dt / float64(steps)
	for s := 0; s < steps; s++ {
		f(y, e.k)
		for i := range y {
			y[i] += h * e.k[i]
		}
	}
	return nil
}

// RK4 is the classical fourth-order Runge-Kutta method with a fixed sub-step.
type RK4 struct {
	Step float64
}

func (RK4) Name() string           { return "rk4" }
func (RK4) RequiresJacobian() bool { return false }

func (r RK4) NewIntegrator(n int) Integrator {
	return &rk4{
		step: r.Step,
		k1:   make([]float64, n), k2: make([]float64, n),
		k3: make([]float64, n), k4: make([]float64, n),
		tmp: make([]float64, n),
	}
}

type rk4 struct {
	step               float64
	k1, k2, k3, k4, tmp []float64
}

func (r *rk4) Advance(y []float64, dt float64, f DerivFunc, _ JacobianFunc) error {
	steps := substeps(dt, r.step*dt)
	h := dt / float64(steps)
	for s := 0; s < steps; s++ {
		f(y, r.k1)
		for i := range y {
			r.tmp[i] = y[i] + h*r.k1[i]/2
		}
		f(r.tmp, r.k2)
		for i := range y {
			r.tmp[i] = y[i] + h*r.k2[i]/2
		}
		f(r.tmp, r.k3)
		for i := range y {
			r.tmp[i] = y[i] + h*r.k3[i]
		}
		f(r.tmp, r.k4)
		for i := range y {
			y[i] += h * (r.k1[i] + 2*(r.k2[i]+r.k3[i]) + r.k4[i]) / 6
		}
	}
	return nil
}

// Lookup returns the method registered under name, configured with step as
// its sub-step (or initial sub-step for adaptive methods). It is used by
// dataset files to override a model's solver choice.
func Lookup(name string, step float64) (Method, error) {
	switch name {
	case "euler":
		return Euler{Step: step}, nil
	case "rk4":
		return RK4{Step: step}, nil
	case "rkmerson", "rk_merson":
		return RKMerson{Config: Config{InitialStep: step}}, nil
	case "implicit_euler", "backward_euler":
		return ImplicitEuler{Config: Config{InitialStep: step}}, nil
	default:
		return nil, fmt.Errorf("unknown solver method %q", name)
	}
}
