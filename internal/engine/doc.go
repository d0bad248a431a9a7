// Package engine is the run-time side of a model: datasets holding parameter
// values and input series, and runs that evaluate a finalized model over
// them one timestep at a time.
//
// A Run walks the model's schedule for every timestep: group by group, over
// every index tuple of the group, batch by batch. Plain batches evaluate
// their equations in order; solver batches hand their ODE equations to one
// integrator per batch and re-evaluate the batch's other equations inside
// the derivative callback. Lagged reads are served from a rolling history
// and never from the timestep in progress.
//
// Runs own all of their mutable state. The model and the dataset are only
// read, so any number of runs may share them concurrently.
package engine
