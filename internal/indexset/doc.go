// Package indexset stores the named dimensions a model is indexed over.
//
// # Kinds of index sets
//
//   - **Basic:** a flat ordered list of named indices ("forest", "arable").
//   - **Branched:** every index may list earlier indices of the same set as
//     its branch inputs, forming a forest such as a river network. Inputs may
//     only reference indices that were added before, so the positional order
//     of a branched set is always a valid upstream-to-downstream order.
//   - **Tied:** a basic set whose indices are listed separately for each index
//     of a parent set (soil layers per landscape unit).
//
// Index identity is positional after configuration. Names are only resolved
// at configuration and I/O boundaries; the engine works with positions.
//
// # Spaces
//
// A Space is the cross-product of an ordered list of index sets, possibly
// ragged when tied sets are involved. It enumerates index tuples with the
// outer set varying slowest and maps every tuple to a dense flat offset, which
// is what the engine uses to address parameter, input and result storage.
package indexset
