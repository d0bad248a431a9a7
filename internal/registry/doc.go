// Package registry is the declaration side of a model: the builder context
// that domain modules register index sets, parameters, inputs, equations and
// solvers into before the model is finalized.
//
// Parameters, inputs, equations and solvers live in separate namespaces and
// are addressed by typed integer handles, assigned in registration order.
// Equation bodies are plain closures over a Values evaluation context, which
// lets the same body run against the tracer at finalization and against the
// run-state evaluator at run time.
//
// A Registry is mutable until Freeze is called by model finalization; every
// later mutation fails with ErrAlreadyFinalized.
package registry
