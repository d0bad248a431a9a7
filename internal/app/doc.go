// Package app contains the core application logic. It wires the dataset
// loader, the compiled-in modules, model finalization and the engine into the
// run, schedule and ensemble commands, decoupled from any specific
// entrypoint like a CLI.
package app
