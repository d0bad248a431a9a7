// Package inmemorystore provides an ephemeral, thread-safe, in-memory store
// for the state of ensemble members.
//
// # Purpose
//
// Ensemble members run concurrently on a shared, frozen model. Each worker
// records the status, outputs and error of its member here, and the status
// endpoint reads the same store while the ensemble is still running.
//
// # Concurrency Model
//
// The store uses sync.Map: every member writes only its own keys, the key
// space (member numbers) is known up front, and readers poll concurrently
// with writers.
//
// For ensembles whose outputs do not fit in memory, a different
// implementation (e.g., one streaming results to disk) would be needed.
package inmemorystore
