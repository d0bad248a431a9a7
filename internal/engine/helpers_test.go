package engine

import (
	"testing"

	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/model"
	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/stretchr/testify/require"
)

func must[T any](t *testing.T) func(T, error) T {
	return func(v T, err error) T {
		t.Helper()
		require.NoError(t, err)
		return v
	}
}

// finalize declares a model with declare and finalizes it.
func finalize(t *testing.T, declare func(r *registry.Registry)) *model.Model {
	t.Helper()
	r := registry.New()
	declare(r)
	m, err := model.Finalize(ctxlog.Discard(), r)
	require.NoError(t, err)
	return m
}

// basicSet registers an index set with the given indices.
func basicSet(t *testing.T, r *registry.Registry, name string, indices ...string) indexset.Handle {
	t.Helper()
	h, err := r.IndexSets().RegisterIndexSet(name)
	require.NoError(t, err)
	for _, idx := range indices {
		require.NoError(t, r.IndexSets().AddIndex(h, idx))
	}
	return h
}

func runModel(t *testing.T, ds *Dataset, opts Options) *Run {
	t.Helper()
	run, err := RunModel(ctxlog.Discard(), ds, opts)
	require.NoError(t, err)
	require.Equal(t, Finished, run.State())
	return run
}

func series(t *testing.T, run *Run, name string, indices ...string) []float64 {
	t.Helper()
	s, err := run.ResultSeries(name, indices...)
	require.NoError(t, err)
	return s
}
