package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out, logs := &bytes.Buffer{}, &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, logs, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, logs.String(), "Usage:", "Expected help text to be printed to the log writer")
	require.Empty(t, out.String(), "help must not end up in the results")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"run", "dataset.hcl", "--this-is-not-a-valid-flag"}

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}

func TestRun_InvalidDataset(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	invalidHCL := `
		index_set "landscape" {
			indices = ["forest"]
		// Missing closing brace here
	`
	filePath := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0600), "failed to set up test file")

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"run", filePath, "--log-format", "text"})

	// --- Assert ---
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load dataset")
	require.Contains(t, err.Error(), "failed to parse")
}

func TestRun_Schedule(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dataset := `
		index_set "landscape" {
			indices = ["forest", "arable"]
		}
		index_set "reach" {
			index "upper" {}
			index "lower" {
				inputs = ["upper"]
			}
		}
	`
	filePath := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(dataset), 0600))
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"schedule", filePath, "--log-format", "text"})

	// --- Assert ---
	require.NoError(t, err)
	require.Contains(t, out.String(), "if snow_enabled=1")
	require.Contains(t, out.String(), "ode: soil_water")
	require.Contains(t, out.String(), "ode: reach_volume")
}
