// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import (
	"context"
	"fmt"
	"io"

	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/specialistvlad/equagrid/internal/scheduler"
	"github.com/specialistvlad/equagrid/internal/trace"
)

// Model is a finalized registry together with its schedule.
type Model struct {
	registry *registry.Registry
	schedule *scheduler.Schedule
	records  []trace.Record
}

// Finalize traces every equation of r, builds the schedule and freezes the
// registry. All configuration problems are returned together in a
// *registry.ConfigurationError; the registry stays mutable in that case.
func Finalize(ctx context.Context, r *registry.Registry) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	if r.Frozen() {
		return nil, registry.ErrAlreadyFinalized
	}

	records, issues := trace.Run(ctx, r)
	if err := issues.Err(); err != nil {
		return nil, err
	}
	s, err := scheduler.Build(ctx, r, records)
	if err != nil {
		return nil, err
	}
	r.Freeze()

	logger.Info("Model finalized.",
		"modules", len(r.Modules()),
		"equations", r.NumEquations(),
		"batches", len(s.Batches),
		"groups", len(s.Groups),
	)
	return &Model{registry: r, schedule: s, records: records}, nil
}

// Registry returns the frozen registry of the model.
func (m *Model) Registry() *registry.Registry {
	return m.registry
}

// IndexSets returns the frozen index sets of the model.
func (m *Model) IndexSets() *indexset.Registry {
	return m.registry.IndexSets()
}

// Schedule returns the execution plan. It must not be modified.
func (m *Model) Schedule() *scheduler.Schedule {
	return m.schedule
}

// Reads returns what the equation's body was traced to read.
func (m *Model) Reads(e registry.EquationHandle) trace.Record {
	return m.records[e]
}

// Describe writes the schedule in human readable form.
func (m *Model) Describe(w io.Writer) error {
	if err := m.schedule.Describe(w, m.registry); err != nil {
		return fmt.Errorf("failed to describe schedule: %w", err)
	}
	return nil
}
