package app

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/model"
	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/specialistvlad/equagrid/internal/seriesid"
)

// resolveSeries parses and checks the requested series against the model.
// Without a request every tuple of every time-dependent equation is
// returned, equations in declaration order.
func resolveSeries(m *model.Model, raw []string) ([]*seriesid.Address, error) {
	r := m.Registry()
	if len(raw) == 0 {
		var out []*seriesid.Address
		for e := registry.EquationHandle(0); int(e) < r.NumEquations(); e++ {
			eq := r.Equation(e)
			if eq.Kind == registry.InitialValue {
				continue
			}
			sig := m.Schedule().Signatures[e]
			sp, err := m.IndexSets().NewSpace(sig)
			if err != nil {
				return nil, err
			}
			for i := 0; i < sp.Size(); i++ {
				out = append(out, seriesid.New(eq.Name, tupleNames(m.IndexSets(), sig, sp.Tuple(i))...))
			}
		}
		return out, nil
	}

	addrs, err := seriesid.ParseAll(raw)
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		if err := checkSeries(m, addr); err != nil {
			return nil, err
		}
	}
	return addrs, nil
}

func checkSeries(m *model.Model, addr *seriesid.Address) error {
	r := m.Registry()
	e, err := r.LookupEquation(addr.Name)
	if err != nil {
		return fmt.Errorf("series %s: %w", addr, err)
	}
	if r.Equation(e).Kind == registry.InitialValue {
		return fmt.Errorf("series %s: initial value equations have no time series", addr)
	}
	sig := m.Schedule().Signatures[e]
	if len(addr.Indices) != len(sig) {
		return fmt.Errorf("series %s: %q is indexed over %d index sets, got %d indices", addr, addr.Name, len(sig), len(addr.Indices))
	}
	sets := m.IndexSets()
	tuple := make([]int, len(sig))
	for l, h := range sig {
		parentPos := 0
		if p, tied := sets.Parent(h); tied {
			parentPos = tuple[slices.Index(sig, p)]
		}
		if tuple[l], err = sets.SubIndexPosition(h, parentPos, addr.Indices[l]); err != nil {
			return fmt.Errorf("series %s: %w", addr, err)
		}
	}
	return nil
}

func tupleNames(sets *indexset.Registry, sig []indexset.Handle, tuple []int) []string {
	names := make([]string, len(sig))
	for l, h := range sig {
		parentPos := 0
		if p, tied := sets.Parent(h); tied {
			parentPos = tuple[slices.Index(sig, p)]
		}
		names[l] = sets.IndexName(h, parentPos, tuple[l])
	}
	return names
}
