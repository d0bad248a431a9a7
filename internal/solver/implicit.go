package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ImplicitEuler is the backward Euler method. Every sub-step solves
// z = y + h*f(z) with Newton iterations on the matrix I - h*J.
type ImplicitEuler struct {
	Config Config
}

func (ImplicitEuler) Name() string           { return "implicit_euler" }
func (ImplicitEuler) RequiresJacobian() bool { return true }

func (m ImplicitEuler) NewIntegrator(n int) Integrator {
	return &implicitEuler{
		cfg:   m.Config.withDefaults(1),
		n:     n,
		start: make([]float64, n),
		fz:    make([]float64, n),
		jac:   mat.NewDense(n, n, nil),
		a:     mat.NewDense(n, n, nil),
		rhs:   mat.NewVecDense(n, nil),
		delta: mat.NewVecDense(n, nil),
	}
}

type implicitEuler struct {
	cfg       Config
	n         int
	start, fz []float64
	jac, a    *mat.Dense
	rhs       *mat.VecDense
	delta     *mat.VecDense
	lu        mat.LU
}

func (m *implicitEuler) Advance(y []float64, dt float64, f DerivFunc, jac JacobianFunc) error {
	if jac == nil {
		return ErrMissingJacobian
	}
	steps := substeps(dt, m.cfg.InitialStep*dt)
	h := dt / float64(steps)
	for s := 0; s < steps; s++ {
		if err := m.step(y, h, f, jac); err != nil {
			return err
		}
	}
	return nil
}

// step replaces y with the backward Euler solution after h. y doubles as the
// Newton iterate and starts at the explicit state.
func (m *implicitEuler) step(y []float64, h float64, f DerivFunc, jac JacobianFunc) error {
	copy(m.start, y)
	for iter := 0; iter < m.cfg.MaxIterations; iter++ {
		f(y, m.fz)
		for i := 0; i < m.n; i++ {
			m.rhs.SetVec(i, -(y[i] - m.start[i] - h*m.fz[i]))
		}

		m.jac.Zero()
		jac(y, m.jac)
		for i := 0; i < m.n; i++ {
			for j := 0; j < m.n; j++ {
				v := -h * m.jac.At(i, j)
				if i == j {
					v++
				}
				m.a.Set(i, j, v)
			}
		}
		m.lu.Factorize(m.a)
		if err := m.lu.SolveVecTo(m.delta, false, m.rhs); err != nil {
			return fmt.Errorf("%w: %v", ErrNoConvergence, err)
		}

		norm := 0.0
		for i := 0; i < m.n; i++ {
			d := m.delta.AtVec(i)
			y[i] += d
			norm = math.Max(norm, math.Abs(d)/(m.cfg.AbsTol+m.cfg.RelTol*math.Abs(y[i])))
		}
		if math.IsNaN(norm) {
			break
		}
		if norm <= 1 {
			return nil
		}
	}
	return fmt.Errorf("%w after %d newton iterations", ErrNoConvergence, m.cfg.MaxIterations)
}
