package integrationtests

import (
	"strconv"
	"testing"

	"github.com/specialistvlad/equagrid/internal/app"
	"github.com/specialistvlad/equagrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ensembleHCL = `
ensemble {
  members = 8
  seed    = 42
  vary "degree_day_factor" {
    indices = ["forest"]
    min     = 1
    max     = 3
  }
}
`

// Test for: ensemble members sample the varied parameter independently.
func TestEnsemble_Members(t *testing.T) {
	result := testutil.RunIntegrationTest(t, catchmentFiles(ensembleHCL), app.Config{
		Command: app.CommandEnsemble,
		Series:  []string{"snow_pack[forest]"},
		Workers: 4,
	})
	require.NoError(t, result.Err)

	table := testutil.ParseCSV(t, result.Output)
	require.Len(t, table.Rows, 8*6)
	packs := table.Column(t, "snow_pack[forest]")

	seen := make(map[float64]struct{})
	for i, row := range table.Rows {
		step, err := strconv.Atoi(row[1])
		require.NoError(t, err)
		switch step {
		case 0:
			assert.InDelta(t, 20, packs[i], 1e-9, "nothing melts below the threshold")
		case 1:
			assert.GreaterOrEqual(t, packs[i], 5.0-1e-9)
			assert.LessOrEqual(t, packs[i], 15.0+1e-9)
			seen[packs[i]] = struct{}{}
		}
	}
	assert.Len(t, seen, 8, "every member draws its own melt factor")
}

// Test for: the summary reports statistics over members per timestep.
func TestEnsemble_Summary(t *testing.T) {
	result := testutil.RunIntegrationTest(t, catchmentFiles(ensembleHCL), app.Config{
		Command: app.CommandEnsemble,
		Series:  []string{"snow_pack[forest]", "reach_flow[lower]"},
		Summary: true,
		Members: 5,
	})
	require.NoError(t, result.Err)

	table := testutil.ParseCSV(t, result.Output)
	require.Len(t, table.Rows, 6*2)
	stddev := table.Column(t, "stddev")
	members := table.Column(t, "members")

	assert.Equal(t, "snow_pack[forest]", table.Rows[0][2])
	assert.Equal(t, 5.0, members[0], "the members flag overrides the ensemble block")
	assert.InDelta(t, 0, stddev[0], 1e-12)
	assert.InDelta(t, 20, table.Column(t, "mean")[0], 1e-9)
	assert.Equal(t, "snow_pack[forest]", table.Rows[2][2])
	assert.Greater(t, stddev[2], 0.0)
}

// Test for: a seed gives the same ensemble regardless of worker count.
func TestEnsemble_Reproducible(t *testing.T) {
	run := func(workers int) string {
		result := testutil.RunIntegrationTest(t, catchmentFiles(ensembleHCL), app.Config{
			Command: app.CommandEnsemble,
			Series:  []string{"reach_flow[lower]"},
			Workers: workers,
		})
		require.NoError(t, result.Err)
		return result.Output
	}
	assert.Equal(t, run(1), run(8))
}
