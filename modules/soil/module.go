// Package soil is a single bucket soil water module solved as an ODE system.
// Water enters from the snow module's water_input when it is loaded, or
// straight from the precipitation input otherwise. The bucket drains
// linearly and overflows quickly above field capacity; the landscape runoff
// is summed into catchment_runoff, weighted by the area fraction of every
// land use.
package soil

import (
	"errors"

	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/specialistvlad/equagrid/internal/solver"
)

// Name is the name the module is registered and selected by.
const Name = "soil"

// overflowRate is the rate, per day, at which water above field capacity
// leaves the bucket.
const overflowRate = 10

// Module implements the registry.Module interface for this package.
type Module struct{}

func (m *Module) Name() string { return Name }

// Register declares the soil bucket over the landscape index set.
func (m *Module) Register(r *registry.Registry) error {
	land, err := r.IndexSets().LookupOrRegister("landscape", false)
	if err != nil {
		return err
	}
	sets := []indexset.Handle{land}

	capacity, err := r.RegisterParameter(registry.Parameter{
		Name: "field_capacity", Unit: "mm", Default: 150, Min: 0, Max: 1000, Sets: sets,
	})
	if err != nil {
		return err
	}
	drain, err := r.RegisterParameter(registry.Parameter{
		Name: "drainage_rate", Unit: "1/day", Default: 0.05, Min: 0, Max: 1, Sets: sets,
	})
	if err != nil {
		return err
	}
	initial, err := r.RegisterParameter(registry.Parameter{
		Name: "initial_soil_water", Unit: "mm", Default: 50, Min: 0, Max: 1000, Sets: sets,
	})
	if err != nil {
		return err
	}
	fraction, err := r.RegisterParameter(registry.Parameter{
		Name: "land_fraction", Default: 1, Min: 0, Max: 1, Sets: sets,
		Description: "Share of the catchment area covered by the land use.",
	})
	if err != nil {
		return err
	}

	inflow, err := inflowOf(r, land)
	if err != nil {
		return err
	}

	s, err := r.RegisterSolver("soil", solver.RK4{Step: 0.1})
	if err != nil {
		return err
	}

	var water registry.EquationHandle
	drainage, err := r.RegisterEquation("drainage", "mm/day", func(v registry.Values) float64 {
		return v.Param(drain) * v.Result(water)
	})
	if err != nil {
		return err
	}
	overflow, err := r.RegisterEquation("overflow", "mm/day", func(v registry.Values) float64 {
		if excess := v.Result(water) - v.Param(capacity); excess > 0 {
			return overflowRate * excess
		}
		return 0
	})
	if err != nil {
		return err
	}
	water, err = r.RegisterEquationODE("soil_water", "mm", func(v registry.Values) float64 {
		return inflow(v) - v.Result(drainage) - v.Result(overflow)
	})
	if err != nil {
		return err
	}
	for _, e := range []registry.EquationHandle{drainage, overflow, water} {
		if err := r.SetSolver(e, s); err != nil {
			return err
		}
	}
	if err := r.SetInitialValue(water, registry.InitialParameter(initial)); err != nil {
		return err
	}

	runoff, err := r.RegisterEquation("soil_runoff", "mm/day", func(v registry.Values) float64 {
		return v.Result(drainage) + v.Result(overflow)
	})
	if err != nil {
		return err
	}
	_, err = r.RegisterEquationCumulative("catchment_runoff", runoff, land, fraction)
	return err
}

// inflowOf returns how the bucket reads its inflow.
func inflowOf(r *registry.Registry, land indexset.Handle) (func(registry.Values) float64, error) {
	e, err := r.LookupEquation("water_input")
	if err == nil {
		return func(v registry.Values) float64 { return v.Result(e) }, nil
	}
	if !errors.Is(err, registry.ErrUnknownName) {
		return nil, err
	}
	in, err := r.LookupInput("precipitation")
	if errors.Is(err, registry.ErrUnknownName) {
		in, err = r.RegisterInput("precipitation", "mm/day", land)
	}
	if err != nil {
		return nil, err
	}
	return func(v registry.Values) float64 { return v.Input(in) }, nil
}
