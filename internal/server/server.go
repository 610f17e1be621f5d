// Package server exposes the dashboard over HTTP.
//
// The /api routes mirror the original Express API (health, check-tables,
// columns, agents, proposals, rules, conflicts, metrics, vote and
// simulation/start) so existing clients keep working. On top of those it
// serves the poll controller's state, the rendered network graph, click and
// selection handling, and a websocket that pushes every new state.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/govdash/pkg/pipeline"
	"github.com/matzehuels/govdash/pkg/poll"
	"github.com/matzehuels/govdash/pkg/source"
)

// Options configures a Server.
type Options struct {
	// CORSOrigin is sent as Access-Control-Allow-Origin. Empty disables
	// CORS headers.
	CORSOrigin string
	// ShutdownTimeout bounds graceful shutdown in ListenAndServe.
	ShutdownTimeout time.Duration
}

// Server serves the dashboard API.
type Server struct {
	src    source.Source
	ctrl   *poll.Controller
	runner *pipeline.Runner
	logger *log.Logger
	opts   Options

	upgrader websocket.Upgrader
	router   chi.Router
}

// New creates a server. The controller should poll the same source.
func New(src source.Source, ctrl *poll.Controller, runner *pipeline.Runner, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		src:    src,
		ctrl:   ctrl,
		runner: runner,
		logger: logger,
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/check-tables", s.handleCheckTables)
		r.Get("/columns/{table}", s.handleColumns)

		r.Get("/agents", s.handleList(source.KindAgents))
		r.Get("/proposals", s.handleList(source.KindProposals))
		r.Get("/rules", s.handleList(source.KindRules))
		r.Get("/conflicts", s.handleList(source.KindConflicts))
		r.Get("/metrics", s.handleList(source.KindMetrics))
		r.Get("/dashboard", s.handleDashboard)

		r.Post("/vote", s.handleVote)
		r.Post("/simulation/start", s.handleStartSimulation)
		r.Get("/simulation/scenarios", s.handleScenarios)

		r.Get("/state", s.handleState)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/graph", s.handleGraph(""))
		r.Get("/graph.{format}", s.handleGraph("format"))
		r.Post("/graph/click", s.handleClick)
		r.Put("/graph/selection", s.handleSelect)
		r.Delete("/graph/selection", s.handleDeselect)

		r.Get("/ws", s.handleWS)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("API server listening", "addr", addr, "source", s.src.Name())
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// accessLog logs one line per request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"took", time.Since(start).Round(time.Microsecond),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Warn("request", args...)
			return
		}
		s.logger.Debug("request", args...)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	if s.opts.CORSOrigin == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.opts.CORSOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
