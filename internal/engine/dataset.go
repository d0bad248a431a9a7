package engine

import (
	"fmt"
	"slices"
	"time"

	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/model"
	"github.com/specialistvlad/equagrid/internal/registry"
)

// DefaultStart is the start date of a dataset that does not set one.
var DefaultStart = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Dataset holds the parameter values and input series of one model run.
// Parameters start at their declared defaults.
type Dataset struct {
	model     *model.Model
	timesteps int
	start     time.Time
	step      time.Duration

	paramSpaces []*indexset.Space
	inputSpaces []*indexset.Space
	params      [][]float64
	// inputs holds timesteps*size values per input, nil until provided.
	inputs [][]float64
}

// GenerateDataSet allocates a dataset shaped by the model's index sets.
func GenerateDataSet(m *model.Model, timesteps int) (*Dataset, error) {
	if timesteps < 0 {
		return nil, fmt.Errorf("timesteps must not be negative, got %d", timesteps)
	}
	r := m.Registry()
	sets := m.IndexSets()
	d := &Dataset{
		model:       m,
		timesteps:   timesteps,
		start:       DefaultStart,
		step:        24 * time.Hour,
		paramSpaces: make([]*indexset.Space, r.NumParameters()),
		inputSpaces: make([]*indexset.Space, r.NumInputs()),
		params:      make([][]float64, r.NumParameters()),
		inputs:      make([][]float64, r.NumInputs()),
	}
	for i := range d.params {
		p := r.Parameter(registry.ParameterHandle(i))
		sp, err := sets.NewSpace(sets.Canonical(p.Sets))
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		d.paramSpaces[i] = sp
		d.params[i] = make([]float64, sp.Size())
		for k := range d.params[i] {
			d.params[i][k] = p.Default
		}
	}
	for i := range d.inputs {
		in := r.Input(registry.InputHandle(i))
		sp, err := sets.NewSpace(sets.Canonical(in.Sets))
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", in.Name, err)
		}
		d.inputSpaces[i] = sp
	}
	return d, nil
}

// Model returns the model the dataset was generated for.
func (d *Dataset) Model() *model.Model { return d.model }

// Timesteps returns the number of timesteps a run over the dataset takes.
func (d *Dataset) Timesteps() int { return d.timesteps }

// Start returns the date of timestep 0.
func (d *Dataset) Start() time.Time { return d.start }

// Step returns the length of one timestep.
func (d *Dataset) Step() time.Duration { return d.step }

// SetStart sets the date of timestep 0 and the length of a timestep.
func (d *Dataset) SetStart(start time.Time, step time.Duration) error {
	if step <= 0 {
		return fmt.Errorf("timestep length must be positive, got %s", step)
	}
	d.start, d.step = start, step
	return nil
}

// resolveTuple maps one index name per set of sp to positions.
func resolveTuple(sets *indexset.Registry, sp *indexset.Space, what string, indices []string) ([]int, error) {
	hs := sp.Sets()
	if len(indices) != len(hs) {
		return nil, fmt.Errorf("%s is indexed over %d index sets, got %d indices", what, len(hs), len(indices))
	}
	tuple := make([]int, len(hs))
	for l, h := range hs {
		parentPos := 0
		if p, tied := sets.Parent(h); tied {
			parentPos = tuple[slices.Index(hs, p)]
		}
		pos, err := sets.SubIndexPosition(h, parentPos, indices[l])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", what, err)
		}
		tuple[l] = pos
	}
	return tuple, nil
}

func (d *Dataset) parameter(name string) (registry.ParameterHandle, *registry.Parameter, error) {
	r := d.model.Registry()
	h, err := r.LookupParameter(name)
	if err != nil {
		return registry.NoParameter, nil, err
	}
	return h, r.Parameter(h), nil
}

func (d *Dataset) parameterOffset(name string, indices []string) (registry.ParameterHandle, *registry.Parameter, int, error) {
	h, p, err := d.parameter(name)
	if err != nil {
		return h, nil, 0, err
	}
	sp := d.paramSpaces[h]
	tuple, err := resolveTuple(d.model.IndexSets(), sp, fmt.Sprintf("parameter %q", name), indices)
	if err != nil {
		return h, nil, 0, err
	}
	return h, p, sp.Offset(tuple), nil
}

// SetParameter sets a parameter value at the tuple named by indices, one
// index name per index set of the parameter.
func (d *Dataset) SetParameter(name string, indices []string, value float64) error {
	h, _, off, err := d.parameterOffset(name, indices)
	if err != nil {
		return err
	}
	d.params[h][off] = value
	return nil
}

// SetParameterBool sets a bool parameter.
func (d *Dataset) SetParameterBool(name string, indices []string, value bool) error {
	h, p, off, err := d.parameterOffset(name, indices)
	if err != nil {
		return err
	}
	if p.Kind != registry.ParameterBool {
		return fmt.Errorf("parameter %q is %s, not bool", name, p.Kind)
	}
	d.params[h][off] = 0
	if value {
		d.params[h][off] = 1
	}
	return nil
}

// SetParameterEnum sets an enum parameter to one of its named values.
func (d *Dataset) SetParameterEnum(name string, indices []string, value string) error {
	h, p, off, err := d.parameterOffset(name, indices)
	if err != nil {
		return err
	}
	if p.Kind != registry.ParameterEnum {
		return fmt.Errorf("parameter %q is %s, not enum", name, p.Kind)
	}
	v, err := d.model.Registry().EnumValue(h, value)
	if err != nil {
		return err
	}
	d.params[h][off] = v
	return nil
}

// SetParameterTime sets a time parameter.
func (d *Dataset) SetParameterTime(name string, indices []string, value time.Time) error {
	h, p, off, err := d.parameterOffset(name, indices)
	if err != nil {
		return err
	}
	if p.Kind != registry.ParameterTime {
		return fmt.Errorf("parameter %q is %s, not time", name, p.Kind)
	}
	d.params[h][off] = registry.TimeValue(value)
	return nil
}

// SetParameterValues replaces every value of a parameter. Values are in
// tuple order, the first index set varying slowest.
func (d *Dataset) SetParameterValues(name string, values []float64) error {
	h, _, err := d.parameter(name)
	if err != nil {
		return err
	}
	if len(values) != len(d.params[h]) {
		return fmt.Errorf("parameter %q has %d values, got %d", name, len(d.params[h]), len(values))
	}
	copy(d.params[h], values)
	return nil
}

// ParameterValues returns a copy of every value of a parameter in tuple order.
func (d *Dataset) ParameterValues(name string) ([]float64, error) {
	h, _, err := d.parameter(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(d.params[h]), nil
}

// Parameter returns a parameter value at the tuple named by indices.
func (d *Dataset) Parameter(name string, indices ...string) (float64, error) {
	h, _, off, err := d.parameterOffset(name, indices)
	if err != nil {
		return 0, err
	}
	return d.params[h][off], nil
}

// SetInputSeries sets an input series at the tuple named by indices. The
// series needs a value for every timestep; extra values are ignored.
// Tuples of a provided input that are never set read zero.
func (d *Dataset) SetInputSeries(name string, indices []string, series []float64) error {
	r := d.model.Registry()
	h, err := r.LookupInput(name)
	if err != nil {
		return err
	}
	sp := d.inputSpaces[h]
	tuple, err := resolveTuple(d.model.IndexSets(), sp, fmt.Sprintf("input %q", name), indices)
	if err != nil {
		return err
	}
	if len(series) < d.timesteps {
		return fmt.Errorf("input %q%s has %d values, need %d", name, formatIndices(indices), len(series), d.timesteps)
	}
	if d.inputs[h] == nil {
		d.inputs[h] = make([]float64, d.timesteps*sp.Size())
	}
	size, off := sp.Size(), sp.Offset(tuple)
	for t := 0; t < d.timesteps; t++ {
		d.inputs[h][t*size+off] = series[t]
	}
	return nil
}

// HasInput reports whether any series of the input was provided.
func (d *Dataset) HasInput(h registry.InputHandle) bool {
	return d.inputs[h] != nil
}

// Clone returns a deep copy of the dataset's values. The model and the
// index spaces are shared.
func (d *Dataset) Clone() *Dataset {
	c := *d
	c.params = make([][]float64, len(d.params))
	for i, v := range d.params {
		c.params[i] = slices.Clone(v)
	}
	c.inputs = make([][]float64, len(d.inputs))
	for i, v := range d.inputs {
		c.inputs[i] = slices.Clone(v)
	}
	return &c
}

// CheckBounds reports every parameter value outside its declared range in a
// *BoundsError. Bounds are informational and only checked on request.
func (d *Dataset) CheckBounds() error {
	r := d.model.Registry()
	sets := d.model.IndexSets()
	var violations []string
	for i, values := range d.params {
		p := r.Parameter(registry.ParameterHandle(i))
		sp := d.paramSpaces[i]
		for k, v := range values {
			if v >= p.Min && v <= p.Max {
				continue
			}
			violations = append(violations, fmt.Sprintf("parameter %s%s is %g, outside [%g, %g]",
				p.Name, formatIndices(tupleNames(sets, sp.Sets(), sp.Tuple(k))), v, p.Min, p.Max))
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return &BoundsError{Violations: violations}
}

// tupleNames returns the index names of a tuple over hs.
func tupleNames(sets *indexset.Registry, hs []indexset.Handle, tuple []int) []string {
	names := make([]string, len(hs))
	for l, h := range hs {
		parentPos := 0
		if p, tied := sets.Parent(h); tied {
			parentPos = tuple[slices.Index(hs, p)]
		}
		names[l] = sets.IndexName(h, parentPos, tuple[l])
	}
	return names
}
