// Package schema holds the HCL block structures of dataset files, decoded
// with gohcl.
package schema

import "github.com/hashicorp/hcl/v2"

// File is the root of one dataset file. A dataset may be split over several
// files; run and ensemble may appear in only one of them.
type File struct {
	Run        *Run         `hcl:"run,block"`
	IndexSets  []*IndexSet  `hcl:"index_set,block"`
	Parameters []*Parameter `hcl:"parameter,block"`
	Inputs     []*Input     `hcl:"input,block"`
	Solvers    []*Solver    `hcl:"solver,block"`
	Ensemble   *Ensemble    `hcl:"ensemble,block"`
}

// Run is the `run` block.
type Run struct {
	Timesteps int    `hcl:"timesteps"`
	StartDate string `hcl:"start_date,optional"`
	Step      string `hcl:"step,optional"`
}

// IndexSet is an `index_set` block. Indices are listed either with the
// `indices` attribute, with `index` blocks, or per parent index with
// `sub_indices` blocks.
type IndexSet struct {
	Name       string        `hcl:"name,label"`
	Parent     string        `hcl:"parent,optional"`
	Branched   bool          `hcl:"branched,optional"`
	Indices    []string      `hcl:"indices,optional"`
	Index      []*Index      `hcl:"index,block"`
	SubIndices []*SubIndices `hcl:"sub_indices,block"`
}

// Index is an `index` block inside an index set.
type Index struct {
	Name   string   `hcl:"name,label"`
	Inputs []string `hcl:"inputs,optional"`
}

// SubIndices is a `sub_indices` block, labelled by the parent index.
type SubIndices struct {
	Parent  string   `hcl:"parent,label"`
	Indices []string `hcl:"indices"`
}

// Parameter is a `parameter` block. Exactly one of value and values is set;
// they are kept as expressions because their type depends on the parameter.
type Parameter struct {
	Name    string         `hcl:"name,label"`
	Indices []string       `hcl:"indices,optional"`
	Value   hcl.Expression `hcl:"value,optional"`
	Values  hcl.Expression `hcl:"values,optional"`
}

// Input is an `input` block.
type Input struct {
	Name    string         `hcl:"name,label"`
	Indices []string       `hcl:"indices,optional"`
	Series  hcl.Expression `hcl:"series"`
}

// Solver is a `solver` block.
type Solver struct {
	Name   string  `hcl:"name,label"`
	Method string  `hcl:"method"`
	Step   float64 `hcl:"step,optional"`
}

// Ensemble is the `ensemble` block.
type Ensemble struct {
	Members int     `hcl:"members"`
	Seed    int64   `hcl:"seed,optional"`
	Vary    []*Vary `hcl:"vary,block"`
}

// Vary is a `vary` block inside the ensemble block.
type Vary struct {
	Parameter string   `hcl:"parameter,label"`
	Indices   []string `hcl:"indices,optional"`
	Min       float64  `hcl:"min"`
	Max       float64  `hcl:"max"`
}
