package seriesid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name         string
		raw          string
		expectErr    bool
		expectedAddr *Address
	}{
		{name: "scalar", raw: "total", expectedAddr: &Address{Name: "total"}},
		{name: "one index", raw: "flow[lower]", expectedAddr: New("flow", "lower")},
		{name: "two indices", raw: "soil_water[forest][top]", expectedAddr: New("soil_water", "forest", "top")},
		{name: "surrounding spaces", raw: "  flow[ lower ] ", expectedAddr: New("flow", "lower")},
		{name: "error - empty", raw: "", expectErr: true},
		{name: "error - empty index", raw: "flow[]", expectErr: true},
		{name: "error - unclosed bracket", raw: "flow[lower", expectErr: true},
		{name: "error - nested brackets", raw: "flow[[lower]]", expectErr: true},
		{name: "error - leading digit", raw: "1flow", expectErr: true},
		{name: "error - text after index", raw: "flow[lower]x", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, err := Parse(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expectedAddr.Equal(addr), "got %s", addr)
		})
	}
}

func TestParseAll(t *testing.T) {
	addrs, err := ParseAll([]string{"flow[lower]", "total"})
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	assert.Equal(t, "flow[lower]", addrs[0].String())

	_, err = ParseAll([]string{"flow", "bad["})
	assert.ErrorContains(t, err, `"bad["`)
}
