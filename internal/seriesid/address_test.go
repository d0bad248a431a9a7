package seriesid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress_String(t *testing.T) {
	testCases := []struct {
		name        string
		addr        *Address
		expectedStr string
	}{
		{name: "scalar", addr: New("total"), expectedStr: "total"},
		{name: "indexed", addr: New("soil_water", "forest", "top"), expectedStr: "soil_water[forest][top]"},
		{name: "nil address", addr: nil, expectedStr: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedStr, tc.addr.String())
		})
	}
}

func TestAddress_RoundTrip(t *testing.T) {
	for _, id := range []string{"flow", "flow[lower]", "soil_water[forest][top]", "snow.depth[high-alpine]"} {
		t.Run(id, func(t *testing.T) {
			addr, err := Parse(id)
			require.NoError(t, err)
			assert.Equal(t, id, addr.String())

			again, err := Parse(addr.String())
			require.NoError(t, err)
			assert.True(t, addr.Equal(again))
		})
	}
}

func TestAddress_Equal(t *testing.T) {
	a := New("flow", "lower")
	assert.True(t, a.Equal(New("flow", "lower")))
	assert.False(t, a.Equal(New("flow", "upper")))
	assert.False(t, a.Equal(New("flow")))
	assert.False(t, a.Equal(New("runoff", "lower")))
	assert.False(t, a.Equal(nil))
	assert.False(t, (*Address)(nil).Equal(a))
	assert.True(t, (*Address)(nil).Equal(nil))
}
