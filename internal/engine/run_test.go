package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/specialistvlad/equagrid/internal/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_LaggedRecurrence(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		eq := must[registry.EquationHandle](t)
		var a, b registry.EquationHandle
		a = eq(r.RegisterEquation("a", "", func(v registry.Values) float64 { return v.LastResult(b) + 1 }))
		b = eq(r.RegisterEquation("b", "", func(v registry.Values) float64 { return 2 * v.LastResult(a) }))
	})
	ds, err := GenerateDataSet(m, 12)
	require.NoError(t, err)

	run := runModel(t, ds, Options{CheckNaN: true})

	wantA, wantB := make([]float64, 12), make([]float64, 12)
	prevA, prevB := 0.0, 0.0
	for i := range wantA {
		wantA[i], wantB[i] = prevB+1, 2*prevA
		prevA, prevB = wantA[i], wantB[i]
	}
	assert.Equal(t, wantA, series(t, run, "a"))
	assert.Equal(t, wantB, series(t, run, "b"))
}

func TestRun_Deterministic(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		land := basicSet(t, r, "landscape", "forest", "arable")
		k := must[registry.ParameterHandle](t)(r.RegisterParameter(registry.Parameter{Name: "k", Default: 0.3, Sets: []indexset.Handle{land}}))
		rain := must[registry.InputHandle](t)(r.RegisterInput("rain", "mm"))
		s := must[registry.SolverHandle](t)(r.RegisterSolver("soil", solver.RKMerson{}))
		var store registry.EquationHandle
		store = must[registry.EquationHandle](t)(r.RegisterEquationODE("store", "mm", func(v registry.Values) float64 {
			return v.Input(rain) - v.Param(k)*v.Result(store)
		}))
		require.NoError(t, r.SetSolver(store, s))
	})
	ds, err := GenerateDataSet(m, 20)
	require.NoError(t, err)
	rain := make([]float64, 20)
	for i := range rain {
		rain[i] = math.Sin(float64(i)) + 1
	}
	require.NoError(t, ds.SetInputSeries("rain", nil, rain))
	require.NoError(t, ds.SetParameter("k", []string{"arable"}, 0.7))

	first := runModel(t, ds.Clone(), Options{})
	second := runModel(t, ds.Clone(), Options{})
	for _, idx := range []string{"forest", "arable"} {
		assert.Equal(t, series(t, first, "store", idx), series(t, second, "store", idx))
	}
	assert.NotEqual(t, series(t, first, "store", "forest"), series(t, first, "store", "arable"))
}

func TestRun_Cumulative(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		s := basicSet(t, r, "s", "x", "y", "z")
		par := must[registry.ParameterHandle](t)
		eq := must[registry.EquationHandle](t)
		value := par(r.RegisterParameter(registry.Parameter{Name: "value", Sets: []indexset.Handle{s}}))
		weight := par(r.RegisterParameter(registry.Parameter{Name: "weight", Default: 1, Sets: []indexset.Handle{s}}))
		scale := must[registry.InputHandle](t)(r.RegisterInput("scale", ""))
		v := eq(r.RegisterEquation("v", "", func(vals registry.Values) float64 {
			return vals.Param(value) * vals.Input(scale)
		}))
		eq(r.RegisterEquationCumulative("total", v, s, registry.NoParameter))
		eq(r.RegisterEquationCumulative("weighted", v, s, weight))
	})
	ds, err := GenerateDataSet(m, 3)
	require.NoError(t, err)
	require.NoError(t, ds.SetParameterValues("value", []float64{-1, 0, 2.5}))
	require.NoError(t, ds.SetParameterValues("weight", []float64{2, 1, 0.5}))
	require.NoError(t, ds.SetInputSeries("scale", nil, []float64{1, -2, 0}))

	run := runModel(t, ds, Options{CheckNaN: true})
	assert.Equal(t, []float64{1.5, -3, 0}, series(t, run, "total"))
	assert.Equal(t, []float64{-0.75, 1.5, 0}, series(t, run, "weighted"))
	assert.Equal(t, []float64{2.5, -5, 0}, series(t, run, "v", "z"))
}

func TestRun_ODEDecay(t *testing.T) {
	build := func(method solver.Method) *Dataset {
		m := finalize(t, func(r *registry.Registry) {
			par := must[registry.ParameterHandle](t)
			k := par(r.RegisterParameter(registry.Parameter{Name: "k", Default: 0.5}))
			x0 := par(r.RegisterParameter(registry.Parameter{Name: "x0", Default: 1}))
			s := must[registry.SolverHandle](t)(r.RegisterSolver("decay", method))
			var x registry.EquationHandle
			x = must[registry.EquationHandle](t)(r.RegisterEquationODE("x", "", func(v registry.Values) float64 {
				return -v.Param(k) * v.Result(x)
			}))
			require.NoError(t, r.SetSolver(x, s))
			require.NoError(t, r.SetInitialValue(x, registry.InitialParameter(x0)))
		})
		ds, err := GenerateDataSet(m, 10)
		require.NoError(t, err)
		return ds
	}
	maxError := func(method solver.Method) float64 {
		run := runModel(t, build(method), Options{CheckNaN: true})
		worst := 0.0
		for i, got := range series(t, run, "x") {
			want := math.Exp(-0.5 * float64(i+1))
			worst = math.Max(worst, math.Abs(got-want))
		}
		return worst
	}

	coarse := maxError(solver.Euler{Step: 0.1})
	fine := maxError(solver.Euler{Step: 0.01})
	assert.Less(t, coarse, 0.015)
	assert.Less(t, fine, 0.0015)
	assert.Less(t, fine, coarse/5, "error shrinks with the sub-step")
	assert.Less(t, maxError(solver.RK4{Step: 0.1}), 1e-6)
	assert.Less(t, maxError(solver.RKMerson{Config: solver.Config{AbsTol: 1e-9, RelTol: 1e-9}}), 1e-6)
	assert.Less(t, maxError(solver.ImplicitEuler{Config: solver.Config{InitialStep: 0.01}}), 0.0015)
}

func TestRun_BranchAggregation(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		sets := r.IndexSets()
		reach := must[indexset.Handle](t)(sets.RegisterBranchedIndexSet("reach"))
		require.NoError(t, sets.AddIndex(reach, "a"))
		require.NoError(t, sets.AddBranchIndex(reach, "b", []string{"a"}))
		require.NoError(t, sets.AddIndex(reach, "d"))
		require.NoError(t, sets.AddBranchIndex(reach, "c", []string{"b", "d"}))

		eq := must[registry.EquationHandle](t)
		runoff := must[registry.ParameterHandle](t)(r.RegisterParameter(registry.Parameter{Name: "runoff", Sets: []indexset.Handle{reach}}))
		local := eq(r.RegisterEquation("local", "", func(v registry.Values) float64 { return v.Param(runoff) }))
		eq(r.RegisterEquation("upstream", "", func(v registry.Values) float64 {
			sum := 0.0
			for _, up := range v.BranchInputs(reach) {
				sum += v.ResultAt(local, reach, up)
			}
			return sum
		}))
		var total registry.EquationHandle
		total = eq(r.RegisterEquation("total", "", func(v registry.Values) float64 {
			sum := v.Result(local)
			for _, up := range v.BranchInputs(reach) {
				sum += v.ResultAt(total, reach, up)
			}
			return sum
		}))
	})
	ds, err := GenerateDataSet(m, 2)
	require.NoError(t, err)
	require.NoError(t, ds.SetParameterValues("runoff", []float64{1, 2, 4, 8}))

	run := runModel(t, ds, Options{CheckNaN: true})
	tests := []struct {
		index           string
		upstream, total float64
	}{
		{"a", 0, 1},
		{"b", 1, 3},
		{"d", 0, 4},
		{"c", 6, 15},
	}
	for _, tt := range tests {
		t.Run(tt.index, func(t *testing.T) {
			assert.Equal(t, []float64{tt.upstream, tt.upstream}, series(t, run, "upstream", tt.index))
			assert.Equal(t, []float64{tt.total, tt.total}, series(t, run, "total", tt.index))
		})
	}
}

func TestRun_ConditionalGating(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		eq := must[registry.EquationHandle](t)
		on := must[registry.ParameterHandle](t)(r.RegisterParameter(registry.Parameter{Name: "on", Kind: registry.ParameterBool}))
		missing := must[registry.InputHandle](t)(r.RegisterInput("missing", ""))
		gated := eq(r.RegisterEquation("gated", "", func(v registry.Values) float64 { return 2 * v.Input(missing) }))
		require.NoError(t, r.SetConditional(gated, registry.Conditional{Parameter: on, Value: 1}))
		require.NoError(t, r.SetInitialValue(gated, registry.InitialValueOf(-1)))
		eq(r.RegisterEquation("consumer", "", func(v registry.Values) float64 { return v.Result(gated) + 1 }))
	})
	gatedBatch := m.Schedule().BatchOf[0]

	t.Run("gate closed", func(t *testing.T) {
		ds, err := GenerateDataSet(m, 3)
		require.NoError(t, err)
		run := runModel(t, ds, Options{})
		assert.NotContains(t, run.ExecutedBatches(), gatedBatch)
		assert.Equal(t, []float64{-1, -1, -1}, series(t, run, "gated"))
		assert.Equal(t, []float64{0, 0, 0}, series(t, run, "consumer"))
	})

	t.Run("gate open without input", func(t *testing.T) {
		ds, err := GenerateDataSet(m, 3)
		require.NoError(t, err)
		require.NoError(t, ds.SetParameterBool("on", nil, true))
		_, err = RunModel(ctxlog.Discard(), ds, Options{})
		assert.ErrorContains(t, err, `input "missing" read by "gated"`)
	})

	t.Run("gate open", func(t *testing.T) {
		ds, err := GenerateDataSet(m, 3)
		require.NoError(t, err)
		require.NoError(t, ds.SetParameterBool("on", nil, true))
		require.NoError(t, ds.SetInputSeries("missing", nil, []float64{1, 2, 3}))
		run := runModel(t, ds, Options{})
		assert.Contains(t, run.ExecutedBatches(), gatedBatch)
		assert.Equal(t, []float64{2, 4, 6}, series(t, run, "gated"))
		assert.Equal(t, []float64{3, 5, 7}, series(t, run, "consumer"))
	})
}

func TestRun_ConditionalPerTuple(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		land := basicSet(t, r, "landscape", "forest", "arable")
		active := must[registry.ParameterHandle](t)(r.RegisterParameter(registry.Parameter{Name: "active", Kind: registry.ParameterBool, Sets: []indexset.Handle{land}}))
		var growth registry.EquationHandle
		growth = must[registry.EquationHandle](t)(r.RegisterEquation("growth", "", func(v registry.Values) float64 {
			return v.LastResult(growth) + 1
		}))
		require.NoError(t, r.SetConditional(growth, registry.Conditional{Parameter: active, Value: 1}))
	})
	ds, err := GenerateDataSet(m, 3)
	require.NoError(t, err)
	require.NoError(t, ds.SetParameterBool("active", []string{"forest"}, true))

	run := runModel(t, ds, Options{})
	assert.Equal(t, []float64{1, 2, 3}, series(t, run, "growth", "forest"))
	assert.Equal(t, []float64{0, 0, 0}, series(t, run, "growth", "arable"))
}

func TestRun_InitialValues(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		land := basicSet(t, r, "landscape", "forest", "arable")
		eq := must[registry.EquationHandle](t)
		depth := must[registry.ParameterHandle](t)(r.RegisterParameter(registry.Parameter{Name: "depth", Default: 2, Sets: []indexset.Handle{land}}))
		perUnit := eq(r.RegisterEquationInitialValue("unit_init", "", func(v registry.Values) float64 { return 10 * v.Param(depth) }))
		sum := eq(r.RegisterEquationCumulative("sum_init", perUnit, land, registry.NoParameter))

		var counter, storage, total registry.EquationHandle
		counter = eq(r.RegisterEquation("counter", "", func(v registry.Values) float64 { return v.LastResult(counter) + 1 }))
		storage = eq(r.RegisterEquation("storage", "", func(v registry.Values) float64 { return v.LastResult(storage) + v.Param(depth) }))
		total = eq(r.RegisterEquation("total", "", func(v registry.Values) float64 { return v.LastResult(total) + v.Result(sum) }))
		require.NoError(t, r.SetInitialValue(counter, registry.InitialValueOf(10)))
		require.NoError(t, r.SetInitialValue(storage, registry.InitialEquation(perUnit)))
		require.NoError(t, r.SetInitialValue(total, registry.InitialParameter(must[registry.ParameterHandle](t)(
			r.RegisterParameter(registry.Parameter{Name: "total_init", Default: 100})))))
	})
	ds, err := GenerateDataSet(m, 3)
	require.NoError(t, err)
	require.NoError(t, ds.SetParameter("depth", []string{"arable"}, 1))

	run := runModel(t, ds, Options{CheckNaN: true})
	assert.Equal(t, []float64{11, 12, 13}, series(t, run, "counter"))
	assert.Equal(t, []float64{22, 24, 26}, series(t, run, "storage", "forest"))
	assert.Equal(t, []float64{11, 12, 13}, series(t, run, "storage", "arable"))
	assert.Equal(t, []float64{130, 160, 190}, series(t, run, "total"))
	assert.Equal(t, []float64{30, 30, 30}, series(t, run, "sum_init"))
}

func TestRun_EarlierResult(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		eq := must[registry.EquationHandle](t)
		e := eq(r.RegisterEquation("e", "", func(v registry.Values) float64 { return float64(v.Timestep() + 1) }))
		eq(r.RegisterEquation("delayed", "", func(v registry.Values) float64 { return v.EarlierResult(e, 3) }))
	})
	assert.Equal(t, 3, m.Schedule().LagDepth[0])
	ds, err := GenerateDataSet(m, 5)
	require.NoError(t, err)

	run := runModel(t, ds, Options{})
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, series(t, run, "e"))
	assert.Equal(t, []float64{0, 0, 0, 1, 2}, series(t, run, "delayed"))
}

func TestRun_EarlierResultFromParameter(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		eq := must[registry.EquationHandle](t)
		delay := must[registry.ParameterHandle](t)(r.RegisterParameter(registry.Parameter{Name: "delay", Kind: registry.ParameterUInt, Default: 1}))
		x := eq(r.RegisterEquation("x", "", func(v registry.Values) float64 { return float64(v.Timestep() + 1) }))
		require.NoError(t, r.SetInitialValue(x, registry.InitialValueOf(-1)))
		eq(r.RegisterEquation("delayed", "", func(v registry.Values) float64 {
			return v.EarlierResult(x, int(v.Param(delay)))
		}))
	})
	assert.Equal(t, 1, m.Schedule().LagDepth[0], "the traced lag is one step")

	for _, tc := range []struct {
		delay float64
		want  []float64
	}{
		{delay: 1, want: []float64{-1, 1, 2, 3, 4}},
		{delay: 3, want: []float64{-1, -1, -1, 1, 2}},
		{delay: 7, want: []float64{-1, -1, -1, -1, -1}},
	} {
		t.Run(fmt.Sprintf("delay %g", tc.delay), func(t *testing.T) {
			ds, err := GenerateDataSet(m, 5)
			require.NoError(t, err)
			require.NoError(t, ds.SetParameter("delay", nil, tc.delay))
			run := runModel(t, ds, Options{})
			assert.Equal(t, tc.want, series(t, run, "delayed"))
		})
	}

	t.Run("zero delay", func(t *testing.T) {
		ds, err := GenerateDataSet(m, 5)
		require.NoError(t, err)
		require.NoError(t, ds.SetParameter("delay", nil, 0))
		_, err = RunModel(ctxlog.Discard(), ds, Options{})
		var evalErr *EvaluationError
		require.True(t, errors.As(err, &evalErr))
		assert.Equal(t, "delayed", evalErr.Equation)
		assert.ErrorContains(t, err, `"x" cannot be read 0 timesteps back`)
	})
}

func TestRun_ComputedExternally(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		eq := must[registry.EquationHandle](t)
		var ext registry.EquationHandle
		writer := eq(r.RegisterEquation("writer", "", func(v registry.Values) float64 {
			v.SetResult(ext, float64(3*(v.Timestep()+1)))
			return 1
		}))
		ext = eq(r.RegisterEquationExternal("ext", ""))
		require.NoError(t, r.SetComputedBy(ext, writer))
		eq(r.RegisterEquation("reader", "", func(v registry.Values) float64 { return v.Result(ext) + v.Result(writer) }))
	})
	ds, err := GenerateDataSet(m, 3)
	require.NoError(t, err)

	run := runModel(t, ds, Options{CheckNaN: true})
	assert.Equal(t, []float64{3, 6, 9}, series(t, run, "ext"))
	assert.Equal(t, []float64{4, 7, 10}, series(t, run, "reader"))
}

func TestRun_Calendar(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		must[registry.EquationHandle](t)(r.RegisterEquation("day", "", func(v registry.Values) float64 { return float64(v.DayOfYear()) }))
	})
	ds, err := GenerateDataSet(m, 3)
	require.NoError(t, err)
	require.NoError(t, ds.SetStart(time.Date(2020, time.December, 30, 0, 0, 0, 0, time.UTC), 24*time.Hour))

	run := runModel(t, ds, Options{})
	assert.Equal(t, []float64{365, 366, 1}, series(t, run, "day"))
}

func TestRun_StateMachine(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		must[registry.EquationHandle](t)(r.RegisterEquation("one", "", func(v registry.Values) float64 { return 1 }))
	})
	ds, err := GenerateDataSet(m, 2)
	require.NoError(t, err)
	var seen []int
	run, err := NewRun(ds, Options{OnTimestep: func(step int) { seen = append(seen, step) }})
	require.NoError(t, err)
	ctx := ctxlog.Discard()

	assert.Equal(t, Uninitialized, run.State())
	assert.ErrorIs(t, run.Step(ctx), ErrNotInitialized)

	require.NoError(t, run.Initialize(ctx))
	assert.Equal(t, InitialValuesComputed, run.State())
	assert.Error(t, run.Initialize(ctx))

	require.NoError(t, run.Step(ctx))
	assert.Equal(t, Running, run.State())
	assert.Equal(t, 1, run.Timestep())
	require.NoError(t, run.Step(ctx))
	assert.Equal(t, Finished, run.State())
	assert.ErrorIs(t, run.Step(ctx), ErrFinished)
	assert.Equal(t, []int{0, 1}, seen)

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctxlog.Discard())
		cancel()
		run, err := RunModel(ctx, ds, Options{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, run.Timestep())
	})
}

func TestRun_NumericError(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		land := basicSet(t, r, "landscape", "forest", "arable")
		area := must[registry.ParameterHandle](t)(r.RegisterParameter(registry.Parameter{Name: "area", Default: 1, Sets: []indexset.Handle{land}}))
		must[registry.EquationHandle](t)(r.RegisterEquation("density", "", func(v registry.Values) float64 { return 1 / v.Param(area) }))
	})
	ds, err := GenerateDataSet(m, 2)
	require.NoError(t, err)
	require.NoError(t, ds.SetParameter("area", []string{"arable"}, 0))

	_, err = RunModel(ctxlog.Discard(), ds, Options{CheckNaN: true})
	var numErr *NumericError
	require.True(t, errors.As(err, &numErr))
	assert.Equal(t, "density", numErr.Equation)
	assert.Equal(t, 0, numErr.Timestep)
	assert.Equal(t, []string{"arable"}, numErr.Indices)
	assert.True(t, math.IsInf(numErr.Value, 1))
	assert.EqualError(t, err, "equation density[arable] produced +Inf at timestep 0")

	run := runModel(t, ds, Options{})
	assert.True(t, math.IsInf(series(t, run, "density", "arable")[1], 1), "unchecked runs keep going")
}

func TestRun_EvaluationError(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		must[registry.EquationHandle](t)(r.RegisterEquation("fragile", "", func(v registry.Values) float64 {
			if v.Timestep() == 2 {
				panic("boom")
			}
			return 1
		}))
	})
	ds, err := GenerateDataSet(m, 4)
	require.NoError(t, err)

	run, err := RunModel(ctxlog.Discard(), ds, Options{})
	var evalErr *EvaluationError
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, "fragile", evalErr.Equation)
	assert.Equal(t, 2, evalErr.Timestep)
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, []float64{1, 1}, series(t, run, "fragile"), "completed timesteps stay readable")
	assert.Equal(t, err, run.Step(ctxlog.Discard()), "a failed run stays failed")
}

func TestRun_ReadsNotComputedYet(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		sets := r.IndexSets()
		reach := must[indexset.Handle](t)(sets.RegisterBranchedIndexSet("reach"))
		require.NoError(t, sets.AddIndex(reach, "a"))
		require.NoError(t, sets.AddBranchIndex(reach, "b", []string{"a"}))
		var flow registry.EquationHandle
		flow = must[registry.EquationHandle](t)(r.RegisterEquation("flow", "", func(v registry.Values) float64 {
			// Reads downstream from the second timestep on.
			if v.Timestep() > 0 && v.CurrentIndex(reach) == 0 {
				return v.ResultAt(flow, reach, 1)
			}
			sum := 1.0
			for _, up := range v.BranchInputs(reach) {
				sum += v.ResultAt(flow, reach, up)
			}
			return sum
		}))
	})
	ds, err := GenerateDataSet(m, 2)
	require.NoError(t, err)

	_, err = RunModel(ctxlog.Discard(), ds, Options{})
	var evalErr *EvaluationError
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, []string{"a"}, evalErr.Indices)
	assert.ErrorContains(t, err, `"flow" is not computed yet at index 1 of "reach"`)
}

func TestRun_ResultNotComputedYet(t *testing.T) {
	m := finalize(t, func(r *registry.Registry) {
		eq := must[registry.EquationHandle](t)
		mode := must[registry.ParameterHandle](t)(r.RegisterParameter(registry.Parameter{
			Name: "mode", Kind: registry.ParameterEnum, EnumValues: []string{"off", "simple", "full"},
		}))
		var b registry.EquationHandle
		a := eq(r.RegisterEquation("a", "", func(v registry.Values) float64 {
			// Only taken for "full", which tracing never sees.
			if v.Param(mode) == 2 {
				return v.Result(b)
			}
			return 0
		}))
		b = eq(r.RegisterEquation("b", "", func(v registry.Values) float64 {
			return 0*v.Result(a) + float64(v.Timestep()+1)
		}))
	})

	t.Run("branch not taken", func(t *testing.T) {
		ds, err := GenerateDataSet(m, 3)
		require.NoError(t, err)
		require.NoError(t, ds.SetParameterEnum("mode", nil, "simple"))
		run := runModel(t, ds, Options{})
		assert.Equal(t, []float64{0, 0, 0}, series(t, run, "a"))
		assert.Equal(t, []float64{1, 2, 3}, series(t, run, "b"))
	})

	t.Run("branch taken", func(t *testing.T) {
		ds, err := GenerateDataSet(m, 3)
		require.NoError(t, err)
		require.NoError(t, ds.SetParameterEnum("mode", nil, "full"))
		run, err := RunModel(ctxlog.Discard(), ds, Options{})
		var evalErr *EvaluationError
		require.True(t, errors.As(err, &evalErr))
		assert.Equal(t, "a", evalErr.Equation)
		assert.Equal(t, 0, evalErr.Timestep)
		assert.ErrorContains(t, err, `"b" is not computed yet at timestep 0`)
		assert.Equal(t, 0, run.Timestep())
	})
}
