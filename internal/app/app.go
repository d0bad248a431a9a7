package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/equagrid/internal/config"
	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	progressW  io.Writer
	logger     *slog.Logger
	config     *Config
	loader     config.Loader
	modules    []registry.Module
	status     *runStatus
	httpServer *http.Server
}

// NewApp is the constructor for the main application. Results are written to
// outW, logs and the progress bar to logW. Without modules the compiled-in
// CoreModules are used.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")
	if len(modules) == 0 {
		modules = CoreModules()
	}
	return &App{
		outW:      outW,
		progressW: logW,
		logger:    logger,
		config:    cfg,
		loader:    loader,
		modules:   modules,
		status:    newRunStatus(cfg.Command),
	}
}

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	if a.config.StatusPort > 0 {
		a.startStatusServer(ctx, a.config.StatusPort)
		defer a.closeStatusServer(ctx)
	}

	var err error
	switch a.config.Command {
	case CommandSchedule:
		err = a.describe(ctx)
	case CommandEnsemble:
		err = a.runEnsemble(ctx)
	default:
		err = a.runOnce(ctx)
	}
	a.status.finish(err)

	a.logger.Debug("App.Run method finished.", "error", err)
	return err
}
