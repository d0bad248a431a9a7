package config

import (
	"context"
	"time"
)

// Loader is the interface for a format-specific dataset loader.
type Loader interface {
	// Load reads the dataset from the given paths and translates it into the
	// format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Dataset, error)
}

// Target receives the values of a Dataset. *engine.Dataset implements it.
type Target interface {
	Start() time.Time
	Step() time.Duration
	SetStart(start time.Time, step time.Duration) error
	SetParameter(name string, indices []string, value float64) error
	SetParameterBool(name string, indices []string, value bool) error
	SetParameterEnum(name string, indices []string, value string) error
	SetParameterTime(name string, indices []string, value time.Time) error
	SetParameterValues(name string, values []float64) error
	ParameterValues(name string) ([]float64, error)
	SetInputSeries(name string, indices []string, series []float64) error
}
