package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/equagrid/internal/engine"
	"github.com/specialistvlad/equagrid/internal/seriesid"
)

// Command selects what the App does with the loaded model.
type Command string

const (
	// CommandRun runs the model once and writes the requested series.
	CommandRun Command = "run"
	// CommandSchedule prints the batch structure of the finalized model.
	CommandSchedule Command = "schedule"
	// CommandEnsemble runs many members with sampled parameters.
	CommandEnsemble Command = "ensemble"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command      Command
	DatasetPaths []string // hcl files or directories
	// Modules names the compiled-in modules to load; empty loads all.
	Modules []string
	// Timesteps overrides the dataset's run length when positive.
	Timesteps int
	// Series lists result addresses such as "reach_flow[lower]". Empty
	// writes every series of every equation.
	Series []string
	// OutputPath is the CSV destination; empty or "-" is the output writer.
	OutputPath string
	// Summary writes per-timestep ensemble statistics instead of members.
	Summary bool

	LogFormat string
	LogLevel  string

	CheckNaN    bool
	CheckBounds bool
	Jacobian    string

	Workers int
	// Members and Seed override the dataset's ensemble block when set.
	Members int
	Seed    uint64
	SeedSet bool

	StatusPort int
	Progress   bool
}

// NewConfig validates cfg and returns a normalized copy.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CommandRun, CommandSchedule, CommandEnsemble:
	case "":
		return nil, errors.New("Command is a required configuration field and cannot be empty")
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
	if len(cfg.DatasetPaths) == 0 {
		return nil, errors.New("DatasetPaths is a required configuration field and cannot be empty")
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, errors.New("invalid log-format: must be 'text' or 'json'")
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	if _, err := engine.ParseJacobianStrategy(cfg.Jacobian); err != nil {
		return nil, err
	}
	if _, err := seriesid.ParseAll(cfg.Series); err != nil {
		return nil, err
	}
	if cfg.Timesteps < 0 {
		return nil, fmt.Errorf("timesteps cannot be negative, got %d", cfg.Timesteps)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers cannot be negative, got %d", cfg.Workers)
	}
	if cfg.Members < 0 {
		return nil, fmt.Errorf("members cannot be negative, got %d", cfg.Members)
	}
	if cfg.StatusPort < 0 || cfg.StatusPort > 65535 {
		return nil, fmt.Errorf("status port %d is outside [0, 65535]", cfg.StatusPort)
	}
	if cfg.Summary && cfg.Command != CommandEnsemble {
		return nil, errors.New("summary output is only available for ensembles")
	}
	return &cfg, nil
}
