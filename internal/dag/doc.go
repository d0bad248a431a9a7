// Package dag holds the graph algorithms used by the batch scheduler: a
// directed graph over integer nodes, strongly connected components and a
// deterministic topological order with a caller supplied tie-break.
//
// Nodes are dense integers (equation handles, unit or cluster positions), and
// adjacency lists are kept sorted so every traversal visits nodes in the same
// order regardless of how edges were added.
package dag
