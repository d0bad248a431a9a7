// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model finalizes a registry into the immutable Model that runs are
// executed against.
//
// # Core Concepts
//
//   - Registry: the mutable builder context domain modules declare index
//     sets, parameters, inputs, equations and solvers into.
//
//   - Schedule: the frozen execution plan computed from the traced reads of
//     every equation body.
//
//   - Model: the pair of a frozen registry and its schedule. It is never
//     modified after Finalize and may be shared by any number of concurrent
//     runs.
//
// Why a separate model package?
//
// Finalization is the single point where the definition phase ends. Keeping
// it apart from the registry and the scheduler means neither of them depends
// on the other's lifecycle, and the engine only ever sees a finished Model.
package model
