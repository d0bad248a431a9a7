package seriesid

import (
	"slices"
	"strings"
)

// String serializes the Address into its canonical form.
func (a *Address) String() string {
	if a == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(a.Name)
	for _, idx := range a.Indices {
		sb.WriteByte('[')
		sb.WriteString(idx)
		sb.WriteByte(']')
	}
	return sb.String()
}

// Equal checks two addresses for equality.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.Name == other.Name && slices.Equal(a.Indices, other.Indices)
}
