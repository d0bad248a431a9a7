package config

import (
	"time"

	"github.com/zclconf/go-cty/cty"
)

// DateLayout is the layout of dates in dataset files.
const DateLayout = "2006-01-02"

// Dataset is the unified, format-agnostic representation of a dataset file.
type Dataset struct {
	// Timesteps is zero when the file has no run block.
	Timesteps int
	// Start and Step are zero when not given; the engine defaults apply.
	Start time.Time
	Step  time.Duration

	IndexSets  []*IndexSet
	Parameters []*Parameter
	Inputs     []*Input
	Solvers    []*Solver
	Ensemble   *Ensemble
}

// IndexSet lists the indices a dataset adds to an index set. Sets unknown to
// the loaded modules are registered by the dataset.
type IndexSet struct {
	Name string
	// Parent makes the set tied; indices are then given in SubIndices.
	Parent   string
	Branched bool
	Indices  []Index
	// SubIndices holds the indices of a tied set, per parent index.
	SubIndices []SubIndices
}

// Index is one index of an untied set.
type Index struct {
	Name string
	// Inputs are the branch inputs; only branched sets may have them.
	Inputs []string
}

// SubIndices are the indices of a tied set under one parent index.
type SubIndices struct {
	Parent  string
	Indices []string
}

// Parameter assigns values to a parameter. Value is either a single value,
// applied to Indices or to every value of the parameter when Indices is
// empty, or a list holding every value in layout order.
type Parameter struct {
	Name    string
	Indices []string
	Value   cty.Value
}

// Input is one input series.
type Input struct {
	Name    string
	Indices []string
	Series  []float64
}

// Solver replaces the method of a solver declared by a module.
type Solver struct {
	Name   string
	Method string
	// Step is the initial step; zero keeps the method default.
	Step float64
}

// Ensemble describes a set of runs with sampled parameters.
type Ensemble struct {
	Members int
	Seed    uint64
	Vary    []Vary
}

// Vary samples a parameter uniformly within [Min, Max].
type Vary struct {
	Parameter string
	Indices   []string
	Min, Max  float64
}
