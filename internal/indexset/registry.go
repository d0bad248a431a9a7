package indexset

import (
	"fmt"
	"sort"
)

// Handle identifies an index set within its Registry. Handles are assigned in
// registration order, which is also the canonical order of index sets inside
// a signature.
type Handle int

// None marks the absence of an index set.
const None Handle = -1

// set is one registered index set. Untied sets keep their indices in rows[0];
// tied sets keep one row per index of the parent set.
type set struct {
	name     string
	branched bool
	parent   Handle
	rows     [][]string
	lookup   []map[string]int
	// inputs[i] lists the branch inputs of index i (branched sets only).
	inputs [][]int
}

// Registry holds all index sets of one model.
type Registry struct {
	sets   []*set
	byName map[string]Handle
	frozen bool
}

// NewRegistry creates an empty index set registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Handle)}
}

func (r *Registry) register(name string, branched bool, parent Handle) (Handle, error) {
	if r.frozen {
		return None, ErrFrozen
	}
	if name == "" {
		return None, fmt.Errorf("index set name cannot be empty")
	}
	if _, ok := r.byName[name]; ok {
		return None, fmt.Errorf("index set %q: %w", name, ErrDuplicateIndexSet)
	}
	h := Handle(len(r.sets))
	s := &set{name: name, branched: branched, parent: parent}
	if parent == None {
		s.rows = [][]string{nil}
		s.lookup = []map[string]int{make(map[string]int)}
	}
	r.sets = append(r.sets, s)
	r.byName[name] = h
	return h, nil
}

// RegisterIndexSet registers a basic index set.
func (r *Registry) RegisterIndexSet(name string) (Handle, error) {
	return r.register(name, false, None)
}

// RegisterBranchedIndexSet registers an index set whose indices may have
// branch inputs.
func (r *Registry) RegisterBranchedIndexSet(name string) (Handle, error) {
	return r.register(name, true, None)
}

// RegisterSubIndexSet registers a basic index set tied to parent: its indices
// are listed separately for every index of the parent.
func (r *Registry) RegisterSubIndexSet(name string, parent Handle) (Handle, error) {
	p, err := r.get(parent)
	if err != nil {
		return None, err
	}
	if p.parent != None {
		return None, fmt.Errorf("index set %q cannot be tied to %q: nested ties are not supported", name, p.name)
	}
	return r.register(name, false, parent)
}

func (r *Registry) get(h Handle) (*set, error) {
	if h < 0 || int(h) >= len(r.sets) {
		return nil, fmt.Errorf("index set handle %d: %w", h, ErrNotFound)
	}
	return r.sets[h], nil
}

func (r *Registry) mustGet(h Handle) *set {
	s, err := r.get(h)
	if err != nil {
		panic(err)
	}
	return s
}

// AddIndex appends a named index to a basic or branched set. For branched
// sets the index has no branch inputs.
func (r *Registry) AddIndex(h Handle, name string) error {
	return r.AddBranchIndex(h, name, nil)
}

// AddBranchIndex appends a named index whose branch inputs are the given,
// already present, indices of the same set.
func (r *Registry) AddBranchIndex(h Handle, name string, inputNames []string) error {
	if r.frozen {
		return ErrFrozen
	}
	s, err := r.get(h)
	if err != nil {
		return err
	}
	if s.parent != None {
		return fmt.Errorf("index set %q is tied to %q, use AddSubIndex", s.name, r.sets[s.parent].name)
	}
	if len(inputNames) > 0 && !s.branched {
		return fmt.Errorf("index set %q is not branched, index %q cannot have inputs", s.name, name)
	}
	if _, ok := s.lookup[0][name]; ok {
		return fmt.Errorf("index %q in index set %q: %w", name, s.name, ErrDuplicateIndex)
	}

	inputs := make([]int, 0, len(inputNames))
	seen := make(map[int]struct{}, len(inputNames))
	for _, in := range inputNames {
		pos, ok := s.lookup[0][in]
		if !ok {
			return fmt.Errorf("index %q in index set %q names input %q which is not declared before it: %w", name, s.name, in, ErrForwardBranchReference)
		}
		if _, dup := seen[pos]; dup {
			return fmt.Errorf("index %q in index set %q lists input %q twice", name, s.name, in)
		}
		seen[pos] = struct{}{}
		inputs = append(inputs, pos)
	}

	s.lookup[0][name] = len(s.rows[0])
	s.rows[0] = append(s.rows[0], name)
	if s.branched {
		s.inputs = append(s.inputs, inputs)
	}
	return nil
}

// AddSubIndex appends a named index to a tied set under the given parent index.
func (r *Registry) AddSubIndex(h Handle, parentIndex, name string) error {
	if r.frozen {
		return ErrFrozen
	}
	s, err := r.get(h)
	if err != nil {
		return err
	}
	if s.parent == None {
		return fmt.Errorf("index set %q is not tied, use AddIndex", s.name)
	}
	p := r.sets[s.parent]
	ppos, ok := p.lookup[0][parentIndex]
	if !ok {
		return &IndexError{Set: p.name, Name: parentIndex}
	}
	for len(s.rows) < len(p.rows[0]) {
		s.rows = append(s.rows, nil)
		s.lookup = append(s.lookup, make(map[string]int))
	}
	if _, ok := s.lookup[ppos][name]; ok {
		return fmt.Errorf("index %q under %q in index set %q: %w", name, parentIndex, s.name, ErrDuplicateIndex)
	}
	s.lookup[ppos][name] = len(s.rows[ppos])
	s.rows[ppos] = append(s.rows[ppos], name)
	return nil
}

// Freeze rejects every further modification.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Len returns the number of registered index sets.
func (r *Registry) Len() int {
	return len(r.sets)
}

// Lookup resolves an index set by name.
func (r *Registry) Lookup(name string) (Handle, error) {
	h, ok := r.byName[name]
	if !ok {
		return None, &IndexError{Set: name}
	}
	return h, nil
}

// LookupOrRegister resolves an untied index set by name, registering it when
// no module declared it yet. An existing set must agree on being branched.
func (r *Registry) LookupOrRegister(name string, branched bool) (Handle, error) {
	h, ok := r.byName[name]
	if !ok {
		return r.register(name, branched, None)
	}
	s := r.sets[h]
	if s.parent != None {
		return None, fmt.Errorf("index set %q is tied to %q", name, r.sets[s.parent].name)
	}
	if s.branched != branched {
		return None, fmt.Errorf("index set %q is declared with branched=%t, requested branched=%t", name, s.branched, branched)
	}
	return h, nil
}

// Name returns the name of an index set.
func (r *Registry) Name(h Handle) string {
	return r.mustGet(h).name
}

// IsBranched reports whether the set was registered as branched.
func (r *Registry) IsBranched(h Handle) bool {
	return r.mustGet(h).branched
}

// Parent returns the set a tied set is tied to.
func (r *Registry) Parent(h Handle) (Handle, bool) {
	s := r.mustGet(h)
	return s.parent, s.parent != None
}

// IndexCount returns the number of indices of an untied set. For a tied set
// it returns the total over all parent indices.
func (r *Registry) IndexCount(h Handle) int {
	s := r.mustGet(h)
	n := 0
	for _, row := range s.rows {
		n += len(row)
	}
	return n
}

// Count returns the number of indices of h under the given parent position.
// The parent position is ignored for untied sets.
func (r *Registry) Count(h Handle, parentPos int) int {
	s := r.mustGet(h)
	if s.parent == None {
		return len(s.rows[0])
	}
	if parentPos < 0 || parentPos >= len(s.rows) {
		return 0
	}
	return len(s.rows[parentPos])
}

// IndexPosition resolves an index name of an untied set to its position.
func (r *Registry) IndexPosition(h Handle, name string) (int, error) {
	return r.SubIndexPosition(h, 0, name)
}

// SubIndexPosition resolves an index name to its position under the given
// parent position. The parent position is ignored for untied sets.
func (r *Registry) SubIndexPosition(h Handle, parentPos int, name string) (int, error) {
	s, err := r.get(h)
	if err != nil {
		return -1, err
	}
	row := 0
	if s.parent != None {
		row = parentPos
	}
	if row < 0 || row >= len(s.lookup) {
		return -1, &IndexError{Set: s.name, Name: name}
	}
	pos, ok := s.lookup[row][name]
	if !ok {
		return -1, &IndexError{Set: s.name, Name: name}
	}
	return pos, nil
}

// IndexName returns the name of the index at pos (under parentPos for tied sets).
func (r *Registry) IndexName(h Handle, parentPos, pos int) string {
	s := r.mustGet(h)
	row := 0
	if s.parent != None {
		row = parentPos
	}
	if row < 0 || row >= len(s.rows) || pos < 0 || pos >= len(s.rows[row]) {
		return fmt.Sprintf("#%d", pos)
	}
	return s.rows[row][pos]
}

// BranchInputs returns the positions of the branch inputs of index pos. The
// returned slice must not be modified.
func (r *Registry) BranchInputs(h Handle, pos int) []int {
	s := r.mustGet(h)
	if !s.branched || pos < 0 || pos >= len(s.inputs) {
		return nil
	}
	return s.inputs[pos]
}

// Canonical returns the given sets deduplicated, closed over tie parents and
// sorted in registration order. Parents are always registered before the sets
// tied to them, so parents precede their children in the result.
func (r *Registry) Canonical(sets []Handle) []Handle {
	seen := make(map[Handle]struct{}, len(sets))
	out := make([]Handle, 0, len(sets))
	var add func(h Handle)
	add = func(h Handle) {
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		out = append(out, h)
		if p := r.mustGet(h).parent; p != None {
			add(p)
		}
	}
	for _, h := range sets {
		add(h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Without returns the canonical sets minus h and every set tied to h.
func (r *Registry) Without(sets []Handle, h Handle) []Handle {
	out := make([]Handle, 0, len(sets))
	for _, s := range sets {
		if s == h || r.mustGet(s).parent == h {
			continue
		}
		out = append(out, s)
	}
	return out
}
