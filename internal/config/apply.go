package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/specialistvlad/equagrid/internal/solver"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Declare adds the dataset's index sets, indices and solver overrides to r.
// It must be called after the modules are loaded and before the model is
// finalized.
func (d *Dataset) Declare(ctx context.Context, r *registry.Registry) error {
	logger := ctxlog.FromContext(ctx)
	sets := r.IndexSets()

	for _, s := range d.IndexSets {
		h, err := sets.Lookup(s.Name)
		if errors.Is(err, indexset.ErrNotFound) {
			h, err = registerIndexSet(sets, s)
			if err == nil {
				logger.Debug("Index set declared by dataset.", "index_set", s.Name)
			}
		}
		if err != nil {
			return fmt.Errorf("index set %q: %w", s.Name, err)
		}
		for _, idx := range s.Indices {
			if err := sets.AddBranchIndex(h, idx.Name, idx.Inputs); err != nil {
				return err
			}
		}
		for _, sub := range s.SubIndices {
			for _, name := range sub.Indices {
				if err := sets.AddSubIndex(h, sub.Parent, name); err != nil {
					return err
				}
			}
		}
	}

	for _, s := range d.Solvers {
		h, err := r.LookupSolver(s.Name)
		if err != nil {
			return err
		}
		m, err := solver.Lookup(s.Method, s.Step)
		if err != nil {
			return fmt.Errorf("solver %q: %w", s.Name, err)
		}
		if err := r.SetSolverMethod(h, m); err != nil {
			return err
		}
		logger.Debug("Solver method overridden by dataset.", "solver", s.Name, "method", m.Name())
	}
	return nil
}

func registerIndexSet(sets *indexset.Registry, s *IndexSet) (indexset.Handle, error) {
	if s.Parent != "" {
		p, err := sets.Lookup(s.Parent)
		if err != nil {
			return indexset.None, err
		}
		return sets.RegisterSubIndexSet(s.Name, p)
	}
	branched := s.Branched || slices.ContainsFunc(s.Indices, func(i Index) bool { return len(i.Inputs) > 0 })
	if branched {
		return sets.RegisterBranchedIndexSet(s.Name)
	}
	return sets.RegisterIndexSet(s.Name)
}

// Fill copies the start date, parameter values and input series into t.
// Every failing assignment is reported.
func (d *Dataset) Fill(ctx context.Context, t Target) error {
	logger := ctxlog.FromContext(ctx)

	if !d.Start.IsZero() || d.Step != 0 {
		start, step := d.Start, d.Step
		if start.IsZero() {
			start = t.Start()
		}
		if step == 0 {
			step = t.Step()
		}
		if err := t.SetStart(start, step); err != nil {
			return err
		}
	}

	var errs []error
	for _, p := range d.Parameters {
		if err := fillParameter(t, p); err != nil {
			errs = append(errs, err)
		}
	}
	for _, in := range d.Inputs {
		if err := t.SetInputSeries(in.Name, in.Indices, in.Series); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.Debug("Dataset values applied.", "parameters", len(d.Parameters), "inputs", len(d.Inputs))
	return nil
}

func fillParameter(t Target, p *Parameter) error {
	v := p.Value
	if v.IsNull() || !v.IsKnown() {
		return fmt.Errorf("parameter %q has no value", p.Name)
	}

	ty := v.Type()
	if ty.IsListType() || ty.IsTupleType() || ty.IsSetType() {
		if len(p.Indices) > 0 {
			return fmt.Errorf("parameter %q: a list of values cannot be given together with indices", p.Name)
		}
		values, err := Numbers(v)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		return t.SetParameterValues(p.Name, values)
	}

	switch ty {
	case cty.String:
		s := v.AsString()
		if date, err := time.Parse(DateLayout, s); err == nil {
			return t.SetParameterTime(p.Name, p.Indices, date)
		}
		return t.SetParameterEnum(p.Name, p.Indices, s)
	case cty.Number, cty.Bool:
		if len(p.Indices) == 0 {
			current, err := t.ParameterValues(p.Name)
			if err != nil {
				return err
			}
			if len(current) > 1 {
				f, err := Number(v)
				if err != nil {
					return fmt.Errorf("parameter %q: %w", p.Name, err)
				}
				return t.SetParameterValues(p.Name, slices.Repeat([]float64{f}, len(current)))
			}
		}
		if ty == cty.Bool {
			return t.SetParameterBool(p.Name, p.Indices, v.True())
		}
		f, err := Number(v)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		return t.SetParameter(p.Name, p.Indices, f)
	default:
		return fmt.Errorf("parameter %q: unsupported value type %s", p.Name, ty.FriendlyName())
	}
}

// Number converts a number or bool value to float64.
func Number(v cty.Value) (float64, error) {
	if v.IsNull() || !v.IsKnown() {
		return 0, fmt.Errorf("value is null")
	}
	switch v.Type() {
	case cty.Bool:
		if v.True() {
			return 1, nil
		}
		return 0, nil
	case cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return 0, err
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected a number or bool, got %s", v.Type().FriendlyName())
	}
}

// Numbers converts a list, set or tuple of numbers and bools to float64s.
func Numbers(v cty.Value) ([]float64, error) {
	if v.IsNull() || !v.IsKnown() || !v.CanIterateElements() {
		return nil, fmt.Errorf("expected a list of numbers, got %s", v.Type().FriendlyName())
	}
	out := make([]float64, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, e := it.Element()
		f, err := Number(e)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", len(out), err)
		}
		out = append(out, f)
	}
	return out, nil
}
