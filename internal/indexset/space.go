package indexset

import "fmt"

// Space is the cross-product of an ordered list of index sets. Tuples are
// enumerated with the first set varying slowest. Tied sets contribute as many
// positions as their parent index has sub-indices, so a Space may be ragged.
type Space struct {
	sets []Handle
	// starts[l][p] is the first flat position at depth l for the prefix with
	// flat position p at depth l-1. starts[0] is {0, count(sets[0])}.
	starts [][]int
	// tuples holds every tuple back to back, len(sets) values each.
	tuples []int
	size   int
}

// NewSpace builds the cross-product space of sets, which must be canonical
// (see Registry.Canonical): every tied set's parent must appear before it.
func (r *Registry) NewSpace(sets []Handle) (*Space, error) {
	sp := &Space{sets: append([]Handle(nil), sets...)}
	levelOf := make(map[Handle]int, len(sets))

	prefixes := [][]int{{}}
	for l, h := range sets {
		s, err := r.get(h)
		if err != nil {
			return nil, err
		}
		parentLevel := -1
		if s.parent != None {
			pl, ok := levelOf[s.parent]
			if !ok {
				return nil, fmt.Errorf("index set %q is tied to %q, which must precede it in the space", s.name, r.sets[s.parent].name)
			}
			parentLevel = pl
		}
		levelOf[h] = l

		starts := make([]int, len(prefixes)+1)
		next := make([][]int, 0, len(prefixes))
		running := 0
		for p, prefix := range prefixes {
			starts[p] = running
			parentPos := 0
			if parentLevel >= 0 {
				parentPos = prefix[parentLevel]
			}
			n := r.Count(h, parentPos)
			for i := 0; i < n; i++ {
				t := make([]int, len(prefix)+1)
				copy(t, prefix)
				t[len(prefix)] = i
				next = append(next, t)
			}
			running += n
		}
		starts[len(prefixes)] = running
		sp.starts = append(sp.starts, starts)
		prefixes = next
	}

	sp.size = len(prefixes)
	sp.tuples = make([]int, 0, sp.size*len(sets))
	for _, t := range prefixes {
		sp.tuples = append(sp.tuples, t...)
	}
	return sp, nil
}

// Sets returns the index sets spanning the space.
func (s *Space) Sets() []Handle {
	return s.sets
}

// Size returns the number of tuples in the space.
func (s *Space) Size() int {
	return s.size
}

// Tuple returns the i-th tuple. The returned slice must not be modified.
func (s *Space) Tuple(i int) []int {
	k := len(s.sets)
	return s.tuples[i*k : (i+1)*k : (i+1)*k]
}

// Offset maps a tuple (one position per set of the space) to its flat position.
func (s *Space) Offset(tuple []int) int {
	o := 0
	for l, i := range tuple {
		o = s.starts[l][o] + i
	}
	return o
}

// OffsetOf maps a binding, a position per index set handle, to a flat position.
// Only the sets of the space are read from the binding.
func (s *Space) OffsetOf(binding []int) int {
	o := 0
	for l, h := range s.sets {
		o = s.starts[l][o] + binding[h]
	}
	return o
}

// Contains reports whether a binding addresses a valid tuple of the space.
func (s *Space) Contains(binding []int) bool {
	o := 0
	for l, h := range s.sets {
		i := binding[h]
		if i < 0 || o+1 >= len(s.starts[l]) || s.starts[l][o]+i >= s.starts[l][o+1] {
			return false
		}
		o = s.starts[l][o] + i
	}
	return true
}
