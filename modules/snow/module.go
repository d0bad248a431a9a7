// Package snow is a degree-day snow module. Precipitation falls as snow at
// or below a threshold temperature, the pack melts in proportion to the
// degrees above it, and the water reaching the ground is published as
// water_input for the soil module.
package snow

import (
	"math"

	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/registry"
)

// Name is the name the module is registered and selected by.
const Name = "snow"

// Module implements the registry.Module interface for this package.
type Module struct{}

func (m *Module) Name() string { return Name }

// Register declares the snow equations over the landscape index set.
func (m *Module) Register(r *registry.Registry) error {
	land, err := r.IndexSets().LookupOrRegister("landscape", false)
	if err != nil {
		return err
	}
	sets := []indexset.Handle{land}

	enabled, err := r.RegisterParameter(registry.Parameter{
		Name: "snow_enabled", Kind: registry.ParameterBool, Default: 1,
		Description: "Simulate the snow pack; without it all precipitation is rain.",
	})
	if err != nil {
		return err
	}
	ddf, err := r.RegisterParameter(registry.Parameter{
		Name: "degree_day_factor", Unit: "mm/°C/day", Default: 3, Min: 0, Max: 20, Sets: sets,
	})
	if err != nil {
		return err
	}
	threshold, err := r.RegisterParameter(registry.Parameter{
		Name: "snow_threshold", Unit: "°C", Default: 0, Min: -5, Max: 5,
	})
	if err != nil {
		return err
	}
	initial, err := r.RegisterParameter(registry.Parameter{
		Name: "initial_snow", Unit: "mm", Default: 0, Min: 0, Max: 1e4, Sets: sets,
	})
	if err != nil {
		return err
	}

	precip, err := r.RegisterInput("precipitation", "mm/day", land)
	if err != nil {
		return err
	}
	temp, err := r.RegisterInput("air_temperature", "°C", land)
	if err != nil {
		return err
	}

	snowfall, err := r.RegisterEquation("snowfall", "mm/day", func(v registry.Values) float64 {
		if v.Input(temp) <= v.Param(threshold) {
			return v.Input(precip)
		}
		return 0
	})
	if err != nil {
		return err
	}

	var pack registry.EquationHandle
	melt, err := r.RegisterEquation("snow_melt", "mm/day", func(v registry.Values) float64 {
		potential := math.Max(0, v.Param(ddf)*(v.Input(temp)-v.Param(threshold)))
		return math.Min(potential, v.LastResult(pack)+v.Result(snowfall))
	})
	if err != nil {
		return err
	}
	pack, err = r.RegisterEquation("snow_pack", "mm", func(v registry.Values) float64 {
		return v.LastResult(pack) + v.Result(snowfall) - v.Result(melt)
	})
	if err != nil {
		return err
	}
	if err := r.SetInitialValue(pack, registry.InitialParameter(initial)); err != nil {
		return err
	}

	gate := registry.Conditional{Parameter: enabled, Value: 1}
	for _, e := range []registry.EquationHandle{snowfall, melt, pack} {
		if err := r.SetConditional(e, gate); err != nil {
			return err
		}
	}

	_, err = r.RegisterEquation("water_input", "mm/day", func(v registry.Values) float64 {
		return v.Input(precip) - v.Result(snowfall) + v.Result(melt)
	})
	return err
}
