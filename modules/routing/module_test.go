package routing

import (
	"testing"

	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/engine"
	"github.com/specialistvlad/equagrid/internal/model"
	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDataset(t *testing.T, timesteps int) *engine.Dataset {
	t.Helper()
	ctx := ctxlog.Discard()
	r := registry.New()
	require.NoError(t, r.Load(ctx, &Module{}))
	sets := r.IndexSets()
	reach, err := sets.Lookup("reach")
	require.NoError(t, err)
	require.NoError(t, sets.AddIndex(reach, "upper"))
	require.NoError(t, sets.AddBranchIndex(reach, "lower", []string{"upper"}))

	m, err := model.Finalize(ctx, r)
	require.NoError(t, err)
	ds, err := engine.GenerateDataSet(m, timesteps)
	require.NoError(t, err)
	return ds
}

func TestRouting(t *testing.T) {
	const steps = 30
	ds := newDataset(t, steps)
	// 8.64 km² turns 10 mm/day into 1 m³/s.
	require.NoError(t, ds.SetParameterValues("reach_area", []float64{8.64, 8.64}))
	runoff := make([]float64, steps)
	for i := range runoff {
		runoff[i] = 10
	}
	require.NoError(t, ds.SetInputSeries("reach_runoff", []string{"upper"}, runoff))
	require.NoError(t, ds.SetInputSeries("reach_runoff", []string{"lower"}, make([]float64, steps)))

	run, err := engine.RunModel(ctxlog.Discard(), ds, engine.Options{CheckNaN: true})
	require.NoError(t, err)

	get := func(name, reach string) []float64 {
		s, err := run.ResultSeries(name, reach)
		require.NoError(t, err)
		return s
	}
	lateral := get("lateral_inflow", "upper")
	assert.InDelta(t, 1, lateral[0], 1e-12)

	upperFlow := get("reach_flow", "upper")
	lowerIn := get("upstream_inflow", "lower")
	assert.Equal(t, make([]float64, steps), get("upstream_inflow", "upper"), "the upper reach has no branch inputs")
	assert.Equal(t, 0.0, lowerIn[0], "flows start at zero")
	for step := 1; step < steps; step++ {
		assert.Equal(t, upperFlow[step-1], lowerIn[step], "the lower reach receives the upper outflow of the previous day")
	}

	assert.InDelta(t, 1, upperFlow[steps-1], 1e-5, "steady state outflow equals inflow")
	assert.InDelta(t, 1, get("reach_flow", "lower")[steps-1], 1e-3)
}

func TestRouting_ReachSetMustBeBranched(t *testing.T) {
	r := registry.New()
	_, err := r.IndexSets().RegisterIndexSet("reach")
	require.NoError(t, err)
	err = r.Load(ctxlog.Discard(), &Module{})
	assert.ErrorContains(t, err, `module "routing"`)
	assert.ErrorContains(t, err, "branched")
}

var _ registry.Module = (*Module)(nil)
