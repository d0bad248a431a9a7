package testutil

import (
	"encoding/csv"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Table is CSV output parsed into a header and rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// ParseCSV parses the output of a run.
func ParseCSV(t *testing.T, s string) *Table {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records, "output has no header")
	return &Table{Header: records[0], Rows: records[1:]}
}

// Column returns the values of the named column as floats.
func (tb *Table) Column(t *testing.T, name string) []float64 {
	t.Helper()
	col := -1
	for i, h := range tb.Header {
		if h == name {
			col = i
		}
	}
	require.GreaterOrEqual(t, col, 0, "column %q not in header %v", name, tb.Header)

	out := make([]float64, len(tb.Rows))
	for i, row := range tb.Rows {
		v, err := strconv.ParseFloat(row[col], 64)
		require.NoError(t, err, "row %d of column %q", i, name)
		out[i] = v
	}
	return out
}
