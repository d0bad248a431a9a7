package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/inmemorystore"
)

// runStatus tracks the progress of the current command for the status
// endpoint. Counters are updated from ensemble workers concurrently.
type runStatus struct {
	command Command
	started time.Time
	store   *inmemorystore.Store

	total atomic.Int64
	done  atomic.Int64

	mu    sync.Mutex
	state string
	err   string
}

// statusReport is the body of the /status endpoint.
type statusReport struct {
	Command        string         `json:"command"`
	State          string         `json:"state"`
	Error          string         `json:"error,omitempty"`
	ElapsedSeconds float64        `json:"elapsed_seconds"`
	TimestepsDone  int64          `json:"timesteps_completed"`
	TimestepsTotal int64          `json:"timesteps_total"`
	Members        map[string]int `json:"members,omitempty"`
}

func newRunStatus(cmd Command) *runStatus {
	return &runStatus{command: cmd, started: time.Now(), store: inmemorystore.New(), state: "loading"}
}

// start records the expected work: timesteps per run, over members runs
// for an ensemble.
func (s *runStatus) start(timesteps, members int) {
	s.total.Store(int64(timesteps * max(1, members)))
	s.mu.Lock()
	s.state = "running"
	s.mu.Unlock()
}

func (s *runStatus) timestepDone() {
	s.done.Add(1)
}

func (s *runStatus) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state, s.err = "failed", err.Error()
		return
	}
	s.state = "finished"
}

func (s *runStatus) report() statusReport {
	s.mu.Lock()
	r := statusReport{Command: string(s.command), State: s.state, Error: s.err}
	s.mu.Unlock()
	r.ElapsedSeconds = time.Since(s.started).Seconds()
	r.TimestepsDone = s.done.Load()
	r.TimestepsTotal = s.total.Load()
	if s.command == CommandEnsemble {
		r.Members = make(map[string]int)
		for st, n := range s.store.Counts() {
			r.Members[st.String()] = n
		}
	}
	return r
}

// healthHandler answers liveness checks.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// statusHandler reports the progress of the running command as JSON.
func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Status endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.status.report()); err != nil {
		a.logger.Error("Status encoding failed.", "error", err)
	}
}

func (a *App) statusMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /status", a.statusHandler)
	return mux
}

// startStatusServer runs the health and status server in the background.
func (a *App) startStatusServer(ctx context.Context, port int) {
	logger := ctxlog.FromContext(ctx)
	addr := fmt.Sprintf(":%d", port)
	a.httpServer = &http.Server{
		Addr:              addr,
		Handler:           a.statusMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Status server starting.", "address", fmt.Sprintf("http://localhost%s/status", addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server failed unexpectedly.", "error", err)
		}
	}()
}

func (a *App) closeStatusServer(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	if a.httpServer == nil {
		logger.Debug("Status server was not running.")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Status server shutdown failed.", "error", err)
		return
	}
	logger.Debug("Status server shut down gracefully.")
}
