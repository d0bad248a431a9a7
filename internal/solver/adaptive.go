package solver

import (
	"fmt"
	"math"
)

// Config tunes the adaptive and implicit methods. Step lengths are fractions
// of the external timestep. Zero values select the defaults.
type Config struct {
	// InitialStep is the first sub-step tried in every Advance (default 0.1).
	InitialStep float64
	// MinStep aborts the step with ErrStepTooSmall (default 1e-8).
	MinStep float64
	// AbsTol and RelTol bound the per-variable error estimate (default 1e-6).
	AbsTol float64
	RelTol float64
	// MaxIterations bounds Newton iterations per sub-step (default 20).
	MaxIterations int
}

func (c Config) withDefaults(initial float64) Config {
	if c.InitialStep <= 0 || c.InitialStep > 1 {
		c.InitialStep = initial
	}
	if c.MinStep <= 0 {
		c.MinStep = 1e-8
	}
	if c.AbsTol <= 0 {
		c.AbsTol = 1e-6
	}
	if c.RelTol <= 0 {
		c.RelTol = 1e-6
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 20
	}
	return c
}

// RKMerson is the Runge-Kutta-Merson method with an embedded error estimate
// and adaptive sub-step. Every Advance starts again from InitialStep.
type RKMerson struct {
	Config Config
}

func (RKMerson) Name() string           { return "rkmerson" }
func (RKMerson) RequiresJacobian() bool { return false }

func (r RKMerson) NewIntegrator(n int) Integrator {
	it := &rkMerson{cfg: r.Config.withDefaults(0.1), tmp: make([]float64, n)}
	for i := range it.k {
		it.k[i] = make([]float64, n)
	}
	return it
}

type rkMerson struct {
	cfg Config
	k   [5][]float64
	tmp []float64
}

const maxAdaptiveSteps = 100000

func (r *rkMerson) Advance(y []float64, dt float64, f DerivFunc, _ JacobianFunc) error {
	k1, k2, k3, k4, k5 := r.k[0], r.k[1], r.k[2], r.k[3], r.k[4]
	h := r.cfg.InitialStep * dt
	minStep := r.cfg.MinStep * dt
	t := 0.0

	for n := 0; t < dt; n++ {
		if n > maxAdaptiveSteps {
			return fmt.Errorf("%w: more than %d sub-steps", ErrStepTooSmall, maxAdaptiveSteps)
		}
		last := false
		if t+h >= dt {
			h = dt - t
			last = true
		}

		f(y, k1)
		for i := range y {
			r.tmp[i] = y[i] + h*k1[i]/3
		}
		f(r.tmp, k2)
		for i := range y {
			r.tmp[i] = y[i] + h*(k1[i]+k2[i])/6
		}
		f(r.tmp, k3)
		for i := range y {
			r.tmp[i] = y[i] + h*(k1[i]+3*k3[i])/8
		}
		f(r.tmp, k4)
		for i := range y {
			r.tmp[i] = y[i] + h*(k1[i]-3*k3[i]+4*k4[i])/2
		}
		f(r.tmp, k5)

		ratio := 0.0
		for i := range y {
			est := math.Abs((2*k1[i] - 9*k3[i] + 8*k4[i] - k5[i]) * h / 30)
			tol := r.cfg.AbsTol + r.cfg.RelTol*math.Abs(y[i])
			ratio = math.Max(ratio, est/tol)
		}
		if math.IsNaN(ratio) {
			ratio = math.Inf(1)
		}

		if ratio <= 1 {
			for i := range y {
				y[i] += h * (k1[i] + 4*k4[i] + k5[i]) / 6
			}
			if last {
				return nil
			}
			t += h
		}

		grow := 5.0
		if ratio > 0 {
			grow = math.Min(5, math.Max(0.2, 0.8*math.Pow(ratio, -0.2)))
		}
		h *= grow
		if h < minStep {
			return fmt.Errorf("%w: %g at t=%g", ErrStepTooSmall, h, t)
		}
	}
	return nil
}
