// Package routing routes runoff down a branched river network. Every reach
// is a linear reservoir; its outflow of the previous timestep feeds the
// reaches it is a branch input of.
package routing

import (
	"errors"

	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/specialistvlad/equagrid/internal/solver"
)

// Name is the name the module is registered and selected by.
const Name = "routing"

// mmKm2PerDay converts mm/day over one km² to m³/s.
const mmKm2PerDay = 1000.0 / 86400.0

// Module implements the registry.Module interface for this package.
type Module struct{}

func (m *Module) Name() string { return Name }

// Register declares the reach reservoirs over the branched reach index set.
func (m *Module) Register(r *registry.Registry) error {
	reach, err := r.IndexSets().LookupOrRegister("reach", true)
	if err != nil {
		return err
	}
	sets := []indexset.Handle{reach}

	area, err := r.RegisterParameter(registry.Parameter{
		Name: "reach_area", Unit: "km²", Default: 10, Min: 0, Max: 1e6, Sets: sets,
		Description: "Area draining laterally into the reach.",
	})
	if err != nil {
		return err
	}
	residence, err := r.RegisterParameter(registry.Parameter{
		Name: "residence_time", Unit: "day", Default: 1, Min: 0.01, Max: 100, Sets: sets,
	})
	if err != nil {
		return err
	}
	initial, err := r.RegisterParameter(registry.Parameter{
		Name: "initial_reach_volume", Unit: "m³/s·day", Default: 0, Min: 0, Max: 1e9, Sets: sets,
	})
	if err != nil {
		return err
	}

	runoff, err := runoffOf(r, reach)
	if err != nil {
		return err
	}

	lateral, err := r.RegisterEquation("lateral_inflow", "m³/s", func(v registry.Values) float64 {
		return runoff(v) * v.Param(area) * mmKm2PerDay
	})
	if err != nil {
		return err
	}

	var flow registry.EquationHandle
	upstream, err := r.RegisterEquation("upstream_inflow", "m³/s", func(v registry.Values) float64 {
		sum := 0.0
		for _, up := range v.BranchInputs(reach) {
			sum += v.LastResultAt(flow, reach, up)
		}
		return sum
	})
	if err != nil {
		return err
	}

	s, err := r.RegisterSolver("routing", solver.RKMerson{})
	if err != nil {
		return err
	}
	var volume registry.EquationHandle
	flow, err = r.RegisterEquation("reach_flow", "m³/s", func(v registry.Values) float64 {
		return v.Result(volume) / v.Param(residence)
	})
	if err != nil {
		return err
	}
	volume, err = r.RegisterEquationODE("reach_volume", "m³/s·day", func(v registry.Values) float64 {
		return v.Result(lateral) + v.Result(upstream) - v.Result(flow)
	})
	if err != nil {
		return err
	}
	for _, e := range []registry.EquationHandle{flow, volume} {
		if err := r.SetSolver(e, s); err != nil {
			return err
		}
	}
	return r.SetInitialValue(volume, registry.InitialParameter(initial))
}

// runoffOf returns how a reach reads its lateral runoff in mm/day: the soil
// module's catchment runoff when it is loaded, a per-reach input otherwise.
func runoffOf(r *registry.Registry, reach indexset.Handle) (func(registry.Values) float64, error) {
	e, err := r.LookupEquation("catchment_runoff")
	if err == nil {
		return func(v registry.Values) float64 { return v.Result(e) }, nil
	}
	if !errors.Is(err, registry.ErrUnknownName) {
		return nil, err
	}
	in, err := r.RegisterInput("reach_runoff", "mm/day", reach)
	if err != nil {
		return nil, err
	}
	return func(v registry.Values) float64 { return v.Input(in) }, nil
}
