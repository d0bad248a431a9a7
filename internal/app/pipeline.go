package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/equagrid/internal/config"
	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/engine"
	"github.com/specialistvlad/equagrid/internal/executor"
	"github.com/specialistvlad/equagrid/internal/model"
	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/specialistvlad/equagrid/internal/seriesid"
)

// load reads the dataset files, registers the modules and the dataset's
// declarations, and finalizes the model.
func (a *App) load(ctx context.Context) (*config.Dataset, *model.Model, error) {
	logger := ctxlog.FromContext(ctx)

	dataset, err := a.loader.Load(ctx, a.config.DatasetPaths...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	modules, err := selectModules(a.modules, a.config.Modules)
	if err != nil {
		return nil, nil, err
	}
	r := registry.New()
	if err := r.Load(ctx, modules...); err != nil {
		return nil, nil, fmt.Errorf("failed to load modules: %w", err)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := dataset.Declare(ctx, r); err != nil {
		return nil, nil, fmt.Errorf("failed to declare dataset: %w", err)
	}
	m, err := model.Finalize(ctx, r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to finalize model: %w", err)
	}
	return dataset, m, nil
}

// prepare loads the model and builds the engine dataset of a run.
func (a *App) prepare(ctx context.Context) (*config.Dataset, *engine.Dataset, []*seriesid.Address, error) {
	dataset, m, err := a.load(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	timesteps := a.config.Timesteps
	if timesteps == 0 {
		timesteps = dataset.Timesteps
	}
	if timesteps == 0 {
		return nil, nil, nil, errors.New("the number of timesteps is not set: add a run block to the dataset or pass --timesteps")
	}
	ds, err := engine.GenerateDataSet(m, timesteps)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := dataset.Fill(ctx, ds); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to apply dataset: %w", err)
	}
	if a.config.CheckBounds {
		if err := ds.CheckBounds(); err != nil {
			return nil, nil, nil, err
		}
	}

	addrs, err := resolveSeries(m, a.config.Series)
	if err != nil {
		return nil, nil, nil, err
	}
	return dataset, ds, addrs, nil
}

func (a *App) options() (engine.Options, error) {
	jac, err := engine.ParseJacobianStrategy(a.config.Jacobian)
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{CheckNaN: a.config.CheckNaN, Jacobian: jac}, nil
}

func (a *App) describe(ctx context.Context) error {
	_, m, err := a.load(ctx)
	if err != nil {
		return err
	}
	return m.Describe(a.outW)
}

func (a *App) runOnce(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	opts, err := a.options()
	if err != nil {
		return err
	}
	_, ds, addrs, err := a.prepare(ctx)
	if err != nil {
		return err
	}

	a.status.start(ds.Timesteps(), 0)
	bar := a.newProgress(ds.Timesteps())
	opts.OnTimestep = func(int) {
		a.status.timestepDone()
		bar.incr()
	}

	logger.Info("Run starting.", "timesteps", ds.Timesteps(), "series", len(addrs))
	run, err := engine.RunModel(ctx, ds, opts)
	bar.stop()
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	values := make([][]float64, len(addrs))
	for i, addr := range addrs {
		if values[i], err = run.ResultSeries(addr.Name, addr.Indices...); err != nil {
			return fmt.Errorf("series %s: %w", addr, err)
		}
	}
	if err := a.writeOutput(func(w *csvWriter) error { return w.run(ds, addrs, values) }); err != nil {
		return err
	}
	logger.Info("Run finished.", "timesteps", run.Timestep())
	return nil
}

func (a *App) runEnsemble(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	opts, err := a.options()
	if err != nil {
		return err
	}
	dataset, ds, addrs, err := a.prepare(ctx)
	if err != nil {
		return err
	}

	e := &executor.Ensemble{
		Workers: a.config.Workers,
		Series:  addrs,
		Options: opts,
		Store:   a.status.store,
	}
	if dataset.Ensemble != nil {
		e.Members = dataset.Ensemble.Members
		e.Seed = dataset.Ensemble.Seed
		for _, v := range dataset.Ensemble.Vary {
			e.Vary = append(e.Vary, executor.Vary{Parameter: v.Parameter, Indices: v.Indices, Min: v.Min, Max: v.Max})
		}
	}
	if a.config.Members > 0 {
		e.Members = a.config.Members
	}
	if a.config.SeedSet {
		e.Seed = a.config.Seed
	}
	if e.Members == 0 {
		return errors.New("the ensemble size is not set: add an ensemble block to the dataset or pass --members")
	}
	if len(e.Vary) == 0 {
		logger.Warn("Ensemble varies no parameter, every member runs the same dataset.")
	}

	a.status.start(ds.Timesteps(), e.Members)
	bar := a.newProgress(ds.Timesteps() * e.Members)
	e.Options.OnTimestep = func(int) {
		a.status.timestepDone()
		bar.incr()
	}

	members, runErr := e.Run(ctx, ds)
	bar.stop()
	if members == nil {
		return runErr
	}

	err = a.writeOutput(func(w *csvWriter) error {
		if a.config.Summary {
			return w.summary(ds, addrs, executor.Summarize(members, len(addrs)))
		}
		return w.ensemble(ds, addrs, members)
	})
	if err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("ensemble failed: %w", runErr)
	}
	return nil
}
