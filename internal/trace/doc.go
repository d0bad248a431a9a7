// Package trace discovers what every equation body reads by running it
// against an instrumented evaluation context.
//
// Each body runs twice, once with every read returning 0 and once with every
// read returning 1, so that bodies branching on a value are traced down both
// sides of simple conditionals. Reads are recorded with their kind (current,
// lagged, cross-index) and are the only source of dependency information:
// there is no static analysis of bodies and no hand-written dependency list.
package trace
