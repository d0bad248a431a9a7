package seriesid

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	addressRegex = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_.-]*)((?:\[[^\[\]]*\])*)$`)
	indexRegex   = regexp.MustCompile(`\[([^\[\]]*)\]`)
)

// Parse creates an Address from its canonical string form.
func Parse(raw string) (*Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("series address cannot be empty")
	}
	matches := addressRegex.FindStringSubmatch(raw)
	if matches == nil {
		return nil, fmt.Errorf("invalid series address: %q", raw)
	}

	addr := &Address{Name: matches[1]}
	for _, m := range indexRegex.FindAllStringSubmatch(matches[2], -1) {
		idx := strings.TrimSpace(m[1])
		if idx == "" {
			return nil, fmt.Errorf("series address %q has an empty index", raw)
		}
		addr.Indices = append(addr.Indices, idx)
	}
	return addr, nil
}

// ParseAll parses every address, reporting the first invalid one.
func ParseAll(raw []string) ([]*Address, error) {
	out := make([]*Address, 0, len(raw))
	for _, r := range raw {
		addr, err := Parse(r)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}
