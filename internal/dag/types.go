package dag

// Graph is a directed graph over the nodes 0..n-1. An edge from -> to means
// that to depends on from. Graphs are built once and then only read, so no
// locking is done.
type Graph struct {
	// deps[v] lists the nodes v depends on (predecessors), sorted.
	deps [][]int
	// dependents[v] lists the nodes depending on v (successors), sorted.
	dependents [][]int
	edges      int
}
