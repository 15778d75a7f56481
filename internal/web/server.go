package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hpungsan/tabstash/internal/metrics"
	"github.com/hpungsan/tabstash/internal/notify"
	"github.com/hpungsan/tabstash/internal/ops"
	"github.com/hpungsan/tabstash/internal/protocol"
	"github.com/hpungsan/tabstash/internal/tabhost"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Options wires the server to the engine and its collaborators.
// Snapshot, Events and Metrics are optional; their routes report an error
// (or 404 for /metrics) when unset.
type Options struct {
	Engine   *ops.Engine
	Snapshot *tabhost.Snapshot
	Events   *notify.Broadcaster
	Metrics  *metrics.Recorder
	Logger   *slog.Logger
	Version  string
}

// NewHandler builds the routed, header-wrapped handler.
func NewHandler(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handlers{
		engine:     opts.Engine,
		dispatcher: protocol.NewDispatcher(opts.Engine, logger),
		snapshot:   opts.Snapshot,
		events:     opts.Events,
		renderer:   NewRenderer(opts.Version, logger),
		logger:     logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.HandleOverview)
	mux.HandleFunc("GET /groups", h.HandleList)
	mux.HandleFunc("GET /groups/{id}", h.HandleDetail)
	mux.HandleFunc("DELETE /groups/{id}", h.HandleDelete)
	mux.HandleFunc("GET /deleted", h.HandleDeleted)
	mux.HandleFunc("POST /command", h.HandleCommand)
	mux.HandleFunc("PUT /tabs", h.HandlePutTabs)
	mux.HandleFunc("GET /events", h.HandleEvents)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	return securityHeaders(mux)
}

// NewServer creates and configures the HTTP server.
func NewServer(opts Options, bind string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           NewHandler(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run serves srv until ctx is done, then shuts it down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	// Request contexts end with ctx so /events streams close on shutdown.
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("tabstash server running", "url", "http://"+srv.Addr)
	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
