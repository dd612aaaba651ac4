// Package api exposes the HTTP surface: single-item submission, history,
// metrics, bulk upload, and a WebSocket stream of live events, plus a
// health check. Adapted from the teacher's internal/api/server.go
// (Server struct wrapping an *http.Server; no response is cached) and routes_registration.go
// (one register*Routes(r, s) function per concern), generalized away
// from the teacher's Flow-chain domain.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vli777/feedback-analyzer/internal/broadcaster"
	"github.com/vli777/feedback-analyzer/internal/bulk"
	"github.com/vli777/feedback-analyzer/internal/config"
	"github.com/vli777/feedback-analyzer/internal/llm"
	"github.com/vli777/feedback-analyzer/internal/store"
)

// DroppedCounter is the subset of the bridge the health endpoint reports
// on: the count of events dropped because the inbound queue was full.
type DroppedCounter interface {
	DroppedCount() int64
}

// Server owns the HTTP surface and its collaborators.
type Server struct {
	records    *store.RecordStore
	analyzer   *llm.Analyzer
	bcast      *broadcaster.Broadcaster
	bulkEngine *bulk.Engine
	dropped    DroppedCounter
	cfg        *config.Config
	httpServer *http.Server
}

// NewServer wires a router over records/analyzer/bcast/bulkEngine and
// binds it to cfg.HTTPPort. dropped may be nil if no bridge is wired
// (e.g. in tests exercising only the REST surface).
func NewServer(cfg *config.Config, records *store.RecordStore, analyzer *llm.Analyzer, bcast *broadcaster.Broadcaster, bulkEngine *bulk.Engine, dropped DroppedCounter) *Server {
	s := &Server{
		records:    records,
		analyzer:   analyzer,
		bcast:      bcast,
		bulkEngine: bulkEngine,
		dropped:    dropped,
		cfg:        cfg,
	}

	r := mux.NewRouter()
	r.Use(commonMiddleware)
	registerRoutes(r, s)

	s.httpServer = &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}
	return s
}

// Start begins serving HTTP; it blocks until the server stops.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func commonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
