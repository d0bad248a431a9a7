package app

import (
	"fmt"

	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/specialistvlad/equagrid/modules/routing"
	"github.com/specialistvlad/equagrid/modules/snow"
	"github.com/specialistvlad/equagrid/modules/soil"
)

// CoreModules returns every module compiled into the equagrid binary, in
// load order: a module may use the declarations of the ones before it.
func CoreModules() []registry.Module {
	return []registry.Module{
		&snow.Module{},
		&soil.Module{},
		&routing.Module{},
	}
}

// selectModules keeps the named modules of all, in the order of all.
func selectModules(all []registry.Module, names []string) ([]registry.Module, error) {
	if len(names) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = false
	}
	var out []registry.Module
	for _, m := range all {
		if _, ok := want[m.Name()]; ok {
			want[m.Name()] = true
			out = append(out, m)
		}
	}
	for _, n := range names {
		if !want[n] {
			return nil, fmt.Errorf("unknown module %q", n)
		}
	}
	return out, nil
}
