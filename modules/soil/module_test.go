package soil

import (
	"math"
	"testing"

	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/engine"
	"github.com/specialistvlad/equagrid/internal/model"
	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/specialistvlad/equagrid/modules/snow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDataset(t *testing.T, timesteps int, modules ...registry.Module) *engine.Dataset {
	t.Helper()
	ctx := ctxlog.Discard()
	r := registry.New()
	require.NoError(t, r.Load(ctx, modules...))
	land, err := r.IndexSets().Lookup("landscape")
	require.NoError(t, err)
	require.NoError(t, r.IndexSets().AddIndex(land, "forest"))
	require.NoError(t, r.IndexSets().AddIndex(land, "arable"))

	m, err := model.Finalize(ctx, r)
	require.NoError(t, err)
	ds, err := engine.GenerateDataSet(m, timesteps)
	require.NoError(t, err)
	return ds
}

func TestSoil_Drainage(t *testing.T) {
	ds := newDataset(t, 5, &Module{})
	require.NoError(t, ds.SetParameterValues("drainage_rate", []float64{0.1, 0.1}))
	require.NoError(t, ds.SetParameterValues("initial_soil_water", []float64{100, 40}))
	require.NoError(t, ds.SetParameterValues("land_fraction", []float64{0.25, 0.75}))
	for _, land := range []string{"forest", "arable"} {
		require.NoError(t, ds.SetInputSeries("precipitation", []string{land}, make([]float64, 5)))
	}

	run, err := engine.RunModel(ctxlog.Discard(), ds, engine.Options{CheckNaN: true})
	require.NoError(t, err)

	forest, err := run.ResultSeries("soil_water", "forest")
	require.NoError(t, err)
	drainage, err := run.ResultSeries("drainage", "forest")
	require.NoError(t, err)
	runoff, err := run.ResultSeries("soil_runoff", "forest")
	require.NoError(t, err)
	total, err := run.ResultSeries("catchment_runoff")
	require.NoError(t, err)

	for step := range forest {
		decay := math.Exp(-0.1 * float64(step+1))
		assert.InDelta(t, 100*decay, forest[step], 1e-6)
		assert.InDelta(t, 0.1*forest[step], drainage[step], 1e-9)
		assert.InDelta(t, drainage[step], runoff[step], 1e-9, "no overflow below capacity")
		assert.InDelta(t, 0.25*10*decay+0.75*4*decay, total[step], 1e-6)
	}
}

func TestSoil_Overflow(t *testing.T) {
	ds := newDataset(t, 3, &Module{})
	require.NoError(t, ds.SetParameterValues("initial_soil_water", []float64{200, 50}))
	for _, land := range []string{"forest", "arable"} {
		require.NoError(t, ds.SetInputSeries("precipitation", []string{land}, make([]float64, 3)))
	}

	run, err := engine.RunModel(ctxlog.Discard(), ds, engine.Options{CheckNaN: true})
	require.NoError(t, err)
	water, err := run.ResultSeries("soil_water", "forest")
	require.NoError(t, err)

	assert.Greater(t, water[0], 140.0)
	assert.Less(t, water[0], 155.0, "water above field capacity leaves within a day")
	assert.Less(t, water[1], water[0])
}

func TestSoil_InflowSource(t *testing.T) {
	t.Run("precipitation without snow", func(t *testing.T) {
		ds := newDataset(t, 1, &Module{})
		r := ds.Model().Registry()
		assert.Equal(t, 1, r.NumInputs())
		_, err := r.LookupInput("precipitation")
		assert.NoError(t, err)
	})

	t.Run("water input from snow", func(t *testing.T) {
		ds := newDataset(t, 2, &snow.Module{}, &Module{})
		assert.Equal(t, 2, ds.Model().Registry().NumInputs(), "soil reuses the snow module's inputs")

		require.NoError(t, ds.SetParameterValues("drainage_rate", []float64{0, 0}))
		require.NoError(t, ds.SetParameterValues("initial_soil_water", []float64{0, 0}))
		for _, land := range []string{"forest", "arable"} {
			require.NoError(t, ds.SetInputSeries("precipitation", []string{land}, []float64{4, 4}))
			require.NoError(t, ds.SetInputSeries("air_temperature", []string{land}, []float64{-1, 10}))
		}

		run, err := engine.RunModel(ctxlog.Discard(), ds, engine.Options{CheckNaN: true})
		require.NoError(t, err)
		water, err := run.ResultSeries("soil_water", "arable")
		require.NoError(t, err)
		assert.InDelta(t, 0, water[0], 1e-9, "the first day's precipitation is held as snow")
		assert.InDelta(t, 8, water[1], 1e-9, "snow and rain both reach the soil")
	})
}
