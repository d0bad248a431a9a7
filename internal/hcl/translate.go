package hcl

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/equagrid/internal/config"
	"github.com/specialistvlad/equagrid/internal/schema"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// translator merges decoded files into one config.Dataset.
type translator struct {
	evalCtx *hcl.EvalContext
	dataset *config.Dataset

	runFile      string
	ensembleFile string
}

func newTranslator(evalCtx *hcl.EvalContext) *translator {
	return &translator{evalCtx: evalCtx, dataset: &config.Dataset{}}
}

func (t *translator) addFile(file string, root *schema.File) error {
	if root.Run != nil {
		if t.runFile != "" {
			return fmt.Errorf("run block defined in both %s and %s", t.runFile, file)
		}
		t.runFile = file
		if err := t.translateRun(root.Run); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	for _, s := range root.IndexSets {
		set, err := translateIndexSet(s)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		t.dataset.IndexSets = append(t.dataset.IndexSets, set)
	}
	for _, p := range root.Parameters {
		par, err := t.translateParameter(p)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		t.dataset.Parameters = append(t.dataset.Parameters, par)
	}
	for _, in := range root.Inputs {
		input, err := t.translateInput(in)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		t.dataset.Inputs = append(t.dataset.Inputs, input)
	}
	for _, s := range root.Solvers {
		t.dataset.Solvers = append(t.dataset.Solvers, &config.Solver{Name: s.Name, Method: s.Method, Step: s.Step})
	}
	if root.Ensemble != nil {
		if t.ensembleFile != "" {
			return fmt.Errorf("ensemble block defined in both %s and %s", t.ensembleFile, file)
		}
		t.ensembleFile = file
		e, err := translateEnsemble(root.Ensemble)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		t.dataset.Ensemble = e
	}
	return nil
}

func (t *translator) translateRun(r *schema.Run) error {
	if r.Timesteps < 0 {
		return fmt.Errorf("run: timesteps cannot be negative, got %d", r.Timesteps)
	}
	t.dataset.Timesteps = r.Timesteps
	if r.StartDate != "" {
		start, err := time.Parse(config.DateLayout, r.StartDate)
		if err != nil {
			return fmt.Errorf("run: start_date: %w", err)
		}
		t.dataset.Start = start
	}
	if r.Step != "" {
		step, err := time.ParseDuration(r.Step)
		if err != nil {
			return fmt.Errorf("run: step: %w", err)
		}
		if step <= 0 {
			return fmt.Errorf("run: step must be positive, got %s", step)
		}
		t.dataset.Step = step
	}
	return nil
}

func translateIndexSet(s *schema.IndexSet) (*config.IndexSet, error) {
	set := &config.IndexSet{Name: s.Name, Parent: s.Parent, Branched: s.Branched}
	if s.Parent != "" {
		if len(s.Indices) > 0 || len(s.Index) > 0 {
			return nil, fmt.Errorf("index set %q is tied to %q, list its indices in sub_indices blocks", s.Name, s.Parent)
		}
		if s.Branched {
			return nil, fmt.Errorf("index set %q is tied to %q and cannot be branched", s.Name, s.Parent)
		}
		for _, sub := range s.SubIndices {
			set.SubIndices = append(set.SubIndices, config.SubIndices{Parent: sub.Parent, Indices: sub.Indices})
		}
		return set, nil
	}
	if len(s.SubIndices) > 0 {
		return nil, fmt.Errorf("index set %q has sub_indices but no parent", s.Name)
	}
	for _, name := range s.Indices {
		set.Indices = append(set.Indices, config.Index{Name: name})
	}
	for _, idx := range s.Index {
		set.Indices = append(set.Indices, config.Index{Name: idx.Name, Inputs: idx.Inputs})
	}
	return set, nil
}

// isSet reports whether an optional attribute was given.
func isSet(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	// gohcl fills missing optional attributes with a static null.
	v, diags := expr.Value(nil)
	return diags.HasErrors() || !v.IsNull()
}

func (t *translator) translateParameter(p *schema.Parameter) (*config.Parameter, error) {
	hasValue, hasValues := isSet(p.Value), isSet(p.Values)
	switch {
	case hasValue && hasValues:
		return nil, fmt.Errorf("parameter %q sets both value and values", p.Name)
	case !hasValue && !hasValues:
		return nil, fmt.Errorf("parameter %q sets neither value nor values", p.Name)
	}

	if hasValues {
		if len(p.Indices) > 0 {
			return nil, fmt.Errorf("parameter %q: values lists every value and cannot be combined with indices", p.Name)
		}
		v, diags := p.Values.Value(t.evalCtx)
		if err := diagsError(fmt.Sprintf("parameter %q", p.Name), diags); err != nil {
			return nil, err
		}
		ty := v.Type()
		if !ty.IsListType() && !ty.IsTupleType() {
			return nil, fmt.Errorf("parameter %q: values must be a list, got %s", p.Name, ty.FriendlyName())
		}
		return &config.Parameter{Name: p.Name, Value: v}, nil
	}

	v, diags := p.Value.Value(t.evalCtx)
	if err := diagsError(fmt.Sprintf("parameter %q", p.Name), diags); err != nil {
		return nil, err
	}
	if !v.Type().IsPrimitiveType() {
		return nil, fmt.Errorf("parameter %q: value must be a number, bool or string, got %s", p.Name, v.Type().FriendlyName())
	}
	return &config.Parameter{Name: p.Name, Indices: p.Indices, Value: v}, nil
}

func (t *translator) translateInput(in *schema.Input) (*config.Input, error) {
	v, diags := in.Series.Value(t.evalCtx)
	if err := diagsError(fmt.Sprintf("input %q", in.Name), diags); err != nil {
		return nil, err
	}
	list, err := convert.Convert(v, cty.List(cty.Number))
	if err != nil {
		return nil, fmt.Errorf("input %q: series must be a list of numbers: %w", in.Name, err)
	}
	var series []float64
	if err := gocty.FromCtyValue(list, &series); err != nil {
		return nil, fmt.Errorf("input %q: %w", in.Name, err)
	}
	return &config.Input{Name: in.Name, Indices: in.Indices, Series: series}, nil
}

func translateEnsemble(e *schema.Ensemble) (*config.Ensemble, error) {
	if e.Members <= 0 {
		return nil, fmt.Errorf("ensemble: members must be positive, got %d", e.Members)
	}
	if e.Seed < 0 {
		return nil, fmt.Errorf("ensemble: seed cannot be negative, got %d", e.Seed)
	}
	out := &config.Ensemble{Members: e.Members, Seed: uint64(e.Seed)}
	for _, v := range e.Vary {
		if v.Min > v.Max {
			return nil, fmt.Errorf("ensemble: vary %q: min %g is above max %g", v.Parameter, v.Min, v.Max)
		}
		out.Vary = append(out.Vary, config.Vary{Parameter: v.Parameter, Indices: v.Indices, Min: v.Min, Max: v.Max})
	}
	return out, nil
}
