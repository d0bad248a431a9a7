// Package executor runs ensembles: many simulations of one frozen model,
// each over its own copy of a dataset with sampled parameter values.
//
// Members run concurrently on a bounded number of workers. The model and its
// schedule are shared read-only; everything a member mutates (its dataset
// copy and its run state) is owned by that member alone.
package executor
