package executor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/engine"
	"github.com/specialistvlad/equagrid/internal/inmemorystore"
	"github.com/specialistvlad/equagrid/internal/seriesid"
	"golang.org/x/sync/errgroup"
)

// Vary samples a parameter uniformly within [Min, Max] for every member.
type Vary struct {
	Parameter string
	// Indices names one value to vary. Without indices every value of the
	// parameter is drawn independently.
	Indices  []string
	Min, Max float64
}

func (v Vary) draw(rng *rand.Rand) float64 {
	return v.Min + rng.Float64()*(v.Max-v.Min)
}

// Ensemble configures an ensemble run.
type Ensemble struct {
	Members int
	// Workers bounds the number of members running at once.
	Workers int
	// Seed makes sampling reproducible: a member draws the same values for
	// the same seed regardless of scheduling.
	Seed uint64
	Vary []Vary
	// Series lists the results collected from every member.
	Series []*seriesid.Address
	// Options are passed to every member's run. OnTimestep is called from
	// several goroutines.
	Options engine.Options
	// Store receives member status; a fresh store is used when nil.
	Store *inmemorystore.Store
	// OnMemberDone is called once per finished member, from its worker.
	OnMemberDone func(member int, err error)
}

// Member is the outcome of one ensemble member.
type Member struct {
	Index int
	// Parameters holds the sampled values of every varied parameter.
	Parameters map[string][]float64
	// Series holds the collected results in the order of Ensemble.Series.
	Series [][]float64
	Err    error
}

func (e *Ensemble) validate() error {
	if e.Members <= 0 {
		return fmt.Errorf("ensemble needs at least one member, got %d", e.Members)
	}
	for _, v := range e.Vary {
		if v.Min > v.Max {
			return fmt.Errorf("vary %q: min %g is above max %g", v.Parameter, v.Min, v.Max)
		}
	}
	return nil
}

// Run runs every member over a copy of ds. A failed member does not stop the
// others: its error is kept in its Member and joined into the returned error.
// Cancelling ctx stops members that have not started yet.
func (e *Ensemble) Run(ctx context.Context, ds *engine.Dataset) ([]Member, error) {
	logger := ctxlog.FromContext(ctx)
	if err := e.validate(); err != nil {
		return nil, err
	}
	store := e.Store
	if store == nil {
		store = inmemorystore.New()
	}
	workers := max(1, e.Workers)
	logger.Info("Ensemble starting.", "members", e.Members, "workers", workers, "seed", e.Seed)

	members := make([]Member, e.Members)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for m := 0; m < e.Members; m++ {
		store.SetStatus(ctx, m, inmemorystore.Pending)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			members[m] = e.runMember(ctxlog.With(gctx, "member", m), store, ds, m)
			if e.OnMemberDone != nil {
				e.OnMemberDone(m, members[m].Err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return members, err
	}

	var errs []error
	for _, m := range members {
		if m.Err != nil {
			errs = append(errs, fmt.Errorf("member %d: %w", m.Index, m.Err))
		}
	}
	logger.Info("Ensemble finished.", "members", e.Members, "failed", len(errs))
	return members, errors.Join(errs...)
}

// runMember samples, runs and collects one member.
func (e *Ensemble) runMember(ctx context.Context, store *inmemorystore.Store, ds *engine.Dataset, m int) Member {
	logger := ctxlog.FromContext(ctx)
	store.SetStatus(ctx, m, inmemorystore.Running)
	member := Member{Index: m}

	fail := func(err error) Member {
		logger.Warn("Ensemble member failed.", "error", err)
		member.Err = err
		store.SetError(ctx, m, err)
		store.SetStatus(ctx, m, inmemorystore.Failed)
		return member
	}

	clone := ds.Clone()
	params, err := e.sample(clone, m)
	if err != nil {
		return fail(err)
	}
	member.Parameters = params

	run, err := engine.RunModel(ctx, clone, e.Options)
	if err != nil {
		return fail(err)
	}
	for _, addr := range e.Series {
		s, err := run.ResultSeries(addr.Name, addr.Indices...)
		if err != nil {
			return fail(fmt.Errorf("series %s: %w", addr, err))
		}
		member.Series = append(member.Series, s)
	}

	store.SetOutput(ctx, m, member.Series)
	store.SetStatus(ctx, m, inmemorystore.Completed)
	logger.Debug("Ensemble member completed.")
	return member
}

// sample draws the varied parameters of member m into ds. Every member has
// its own random stream derived from the seed and the member number.
func (e *Ensemble) sample(ds *engine.Dataset, m int) (map[string][]float64, error) {
	rng := rand.New(rand.NewPCG(e.Seed, uint64(m)))
	for _, v := range e.Vary {
		if len(v.Indices) > 0 {
			if err := ds.SetParameter(v.Parameter, v.Indices, v.draw(rng)); err != nil {
				return nil, err
			}
			continue
		}
		values, err := ds.ParameterValues(v.Parameter)
		if err != nil {
			return nil, err
		}
		for i := range values {
			values[i] = v.draw(rng)
		}
		if err := ds.SetParameterValues(v.Parameter, values); err != nil {
			return nil, err
		}
	}

	params := make(map[string][]float64, len(e.Vary))
	for _, v := range e.Vary {
		if _, ok := params[v.Parameter]; ok {
			continue
		}
		values, err := ds.ParameterValues(v.Parameter)
		if err != nil {
			return nil, err
		}
		params[v.Parameter] = values
	}
	return params, nil
}
