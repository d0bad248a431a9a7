package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const decayRate = 0.5

func decay(y, dydt []float64) {
	for i := range y {
		dydt[i] = -decayRate * y[i]
	}
}

func decayJacobian(y []float64, jac *mat.Dense) {
	for i := range y {
		jac.Set(i, i, -decayRate)
	}
}

// integrate advances y0 over steps external timesteps of length 1 and returns
// the largest absolute error against y0*exp(-k*t).
func integrate(t *testing.T, m Method, steps int) float64 {
	t.Helper()
	y := []float64{10}
	it := m.NewIntegrator(1)
	var worst float64
	for s := 1; s <= steps; s++ {
		var jac JacobianFunc
		if m.RequiresJacobian() {
			jac = decayJacobian
		}
		require.NoError(t, it.Advance(y, 1, decay, jac))
		want := 10 * math.Exp(-decayRate*float64(s))
		worst = math.Max(worst, math.Abs(y[0]-want))
	}
	return worst
}

func TestFixedStepConvergence(t *testing.T) {
	tests := []struct {
		name   string
		method func(step float64) Method
		// tolerance for step = 0.1 of the external timestep
		tolerance float64
	}{
		{name: "euler", method: func(h float64) Method { return Euler{Step: h} }, tolerance: 0.15},
		{name: "rk4", method: func(h float64) Method { return RK4{Step: h} }, tolerance: 1e-5},
		{name: "implicit euler", method: func(h float64) Method { return ImplicitEuler{Config: Config{InitialStep: h}} }, tolerance: 0.15},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			coarse := integrate(t, tc.method(0.5), 10)
			fine := integrate(t, tc.method(0.1), 10)
			finer := integrate(t, tc.method(0.01), 10)

			assert.Less(t, fine, tc.tolerance)
			assert.Less(t, fine, coarse, "error must shrink with the step")
			assert.Less(t, finer, fine, "error must shrink with the step")
		})
	}
}

func TestEulerSingleStep(t *testing.T) {
	y := []float64{10}
	require.NoError(t, Euler{}.NewIntegrator(1).Advance(y, 1, decay, nil))
	assert.InDelta(t, 10-decayRate*10, y[0], 1e-12)
}

func TestImplicitEulerMatchesClosedForm(t *testing.T) {
	// backward Euler on a linear decay gives y/(1+k*h) per sub-step.
	y := []float64{10, 4}
	it := ImplicitEuler{Config: Config{InitialStep: 0.25}}.NewIntegrator(2)
	require.NoError(t, it.Advance(y, 1, decay, decayJacobian))
	factor := math.Pow(1/(1+decayRate*0.25), 4)
	assert.InDelta(t, 10*factor, y[0], 1e-9)
	assert.InDelta(t, 4*factor, y[1], 1e-9)
}

func TestImplicitEulerRequiresJacobian(t *testing.T) {
	it := ImplicitEuler{}.NewIntegrator(1)
	err := it.Advance([]float64{1}, 1, decay, nil)
	assert.ErrorIs(t, err, ErrMissingJacobian)
}

func TestImplicitEulerSingularMatrix(t *testing.T) {
	// I - h*J is singular when J = 1/h.
	it := ImplicitEuler{}.NewIntegrator(1)
	f := func(y, dydt []float64) { dydt[0] = y[0] }
	jac := func(y []float64, j *mat.Dense) { j.Set(0, 0, 1) }
	err := it.Advance([]float64{1}, 1, f, jac)
	assert.ErrorIs(t, err, ErrNoConvergence)
}

func TestRKMersonMeetsTolerance(t *testing.T) {
	m := RKMerson{Config: Config{AbsTol: 1e-9, RelTol: 1e-9}}
	assert.Less(t, integrate(t, m, 10), 1e-6)

	loose := RKMerson{Config: Config{AbsTol: 1e-3, RelTol: 1e-3}}
	assert.Greater(t, integrate(t, loose, 10), integrate(t, m, 10))
}

func TestRKMersonStepTooSmall(t *testing.T) {
	m := RKMerson{Config: Config{MinStep: 0.01, AbsTol: 1e-12, RelTol: 1e-12}}
	blowUp := func(y, dydt []float64) { dydt[0] = math.Exp(50 * y[0]) }
	err := m.NewIntegrator(1).Advance([]float64{1}, 1, blowUp, nil)
	assert.ErrorIs(t, err, ErrStepTooSmall)
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"euler", "rk4", "rkmerson", "implicit_euler"} {
		m, err := Lookup(name, 0.1)
		require.NoError(t, err, name)
		assert.Equal(t, name, m.Name())
	}
	m, err := Lookup("implicit_euler", 0.1)
	require.NoError(t, err)
	assert.True(t, m.RequiresJacobian())

	_, err = Lookup("leapfrog", 0.1)
	assert.ErrorContains(t, err, `unknown solver method "leapfrog"`)
}
