// Package config defines the format-agnostic dataset model: the run length,
// index sets, parameter values, input series, solver overrides and the
// ensemble setup read from a dataset file.
//
// A Loader produces a Dataset; Declare adds its index sets and solver
// overrides to a model registry before finalization, and Fill copies its
// values into a generated engine dataset. Concrete loaders, such as the HCL
// one, live in separate packages.
package config
