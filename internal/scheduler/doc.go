// Package scheduler turns traced equation reads into the frozen execution
// order of a model: batches of equations, grouped by the index sets they are
// evaluated over, in an order that respects every current-timestep read.
//
// # Why Scheduler Exists
//
// Equation bodies only state what they read. Deciding which index sets an
// equation runs over, which equations a solver integrates together, and in
// which order batches run within a timestep is done once, here, so the
// evaluator only walks a precomputed plan.
//
// # How It Works
//
//  1. Signatures: every equation is evaluated over the index sets it reads
//     through, closed transitively. Cross-index and cumulative reads drop the
//     set they move along.
//  2. Solver units: equations assigned to the same solver that read each
//     other are promoted to one signature and integrated together.
//  3. Cycle checks: current-timestep reads must form a DAG. Reads across a
//     branched index set at upstream positions may close a cycle; such
//     equations are evaluated together, position by position.
//  4. Ordering: units are ordered with Kahn's algorithm, preferring to stay
//     on the signature of the previous unit and then registration order, so
//     equivalent models always get identical schedules.
//  5. Batches and groups: consecutive units with the same signature, solver
//     and conditional form a batch; consecutive batches with the same
//     signature form a group iterated over one index loop.
//  6. Jacobian structure: for solvers needing a Jacobian, the ODE columns
//     every derivative depends on, directly or through intermediate
//     equations of the batch.
//
// Initial value equations are ordered separately and evaluated once before
// the first timestep.
package scheduler
