// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import (
	"bytes"
	"errors"
	"testing"

	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalize(t *testing.T) {
	r := registry.New()
	var a, b registry.EquationHandle
	a, err := r.RegisterEquation("a", "", func(v registry.Values) float64 { return v.LastResult(b) + 1 })
	require.NoError(t, err)
	b, err = r.RegisterEquation("b", "", func(v registry.Values) float64 { return 2 * v.Result(a) })
	require.NoError(t, err)

	m, err := Finalize(ctxlog.Discard(), r)
	require.NoError(t, err)
	assert.True(t, r.Frozen())
	assert.Same(t, r, m.Registry())
	require.Len(t, m.Schedule().Batches, 1)
	assert.Equal(t, []registry.EquationHandle{a, b}, m.Schedule().Batches[0].Equations)
	assert.Len(t, m.Reads(b).Dependencies, 1)

	var out bytes.Buffer
	require.NoError(t, m.Describe(&out))
	assert.Equal(t, "group 0 []\n  batch 0\n    a, b\n", out.String())

	t.Run("frozen registry rejects declarations", func(t *testing.T) {
		_, err := r.RegisterEquation("c", "", func(v registry.Values) float64 { return 0 })
		assert.ErrorIs(t, err, registry.ErrAlreadyFinalized)
		assert.ErrorIs(t, r.SetSolver(a, 0), registry.ErrAlreadyFinalized)
		_, err = Finalize(ctxlog.Discard(), r)
		assert.ErrorIs(t, err, registry.ErrAlreadyFinalized)
	})
}

func TestFinalize_ReportsEveryIssue(t *testing.T) {
	r := registry.New()
	var a, b registry.EquationHandle
	a, err := r.RegisterEquation("a", "", func(v registry.Values) float64 { return v.Result(b) })
	require.NoError(t, err)
	b, err = r.RegisterEquation("b", "", func(v registry.Values) float64 { return v.Result(a) })
	require.NoError(t, err)
	_, err = r.RegisterEquation("broken", "", func(v registry.Values) float64 { panic("boom") })
	require.NoError(t, err)

	_, err = Finalize(ctxlog.Discard(), r)
	var cfgErr *registry.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.True(t, cfgErr.Has(registry.IssueTrace, "broken"))
	assert.False(t, r.Frozen(), "a failed finalization leaves the registry open")

	// Trace issues are reported before scheduling, so the cycle shows up once
	// the broken body is fixed.
	r2 := registry.New()
	a, _ = r2.RegisterEquation("a", "", func(v registry.Values) float64 { return v.Result(b) })
	b, _ = r2.RegisterEquation("b", "", func(v registry.Values) float64 { return v.Result(a) })
	_, err = Finalize(ctxlog.Discard(), r2)
	require.True(t, errors.As(err, &cfgErr))
	assert.True(t, cfgErr.Has(registry.IssueCycle, "a"))
	assert.True(t, cfgErr.Has(registry.IssueCycle, "b"))
}
