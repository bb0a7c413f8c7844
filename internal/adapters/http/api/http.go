// Package api serves Rt evaluations, option lists and service state over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/rtmonitor/internal/adapters/mq/queue"
	"github.com/okian/rtmonitor/internal/adapters/repository"
	service "github.com/okian/rtmonitor/internal/app"
	"github.com/okian/rtmonitor/internal/domain/estimate"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Evaluate(ctx context.Context, region, municipality string) (estimate.Evaluation, error)
	Regions(ctx context.Context) ([]string, error)
	Municipalities(ctx context.Context, region string) ([]string, error)
	Status(ctx context.Context) service.Status
	RequestReload(ctx context.Context) (queue.Request, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	rtHandler      *RtHandler
	catalogHandler *CatalogHandler
	reloadHandler  *ReloadHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		statsHandler:   NewStatsHandler(statsProvider, deps),
		rtHandler:      NewRtHandler(deps),
		catalogHandler: NewCatalogHandler(deps),
		reloadHandler:  NewReloadHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/status", MetricsMiddleware(s.statsHandler.HandleStatus, "status"))
	mux.HandleFunc("/rt", MetricsMiddleware(s.rtHandler.HandleGetRt, "rt"))
	mux.HandleFunc("/regions", MetricsMiddleware(s.catalogHandler.HandleGetRegions, "regions"))
	mux.HandleFunc("/municipalities", MetricsMiddleware(s.catalogHandler.HandleGetMunicipalities, "municipalities"))
	mux.HandleFunc("/reload", MetricsMiddleware(s.reloadHandler.HandlePostReload, "reload"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeUpstreamError maps service errors to a status and code.
func writeUpstreamError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotReady), errors.Is(err, service.ErrNotStarted), errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "not_ready", WrapKind(op, ErrUnavailable, err))
	case errors.Is(err, repository.ErrUnknownRegion):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "timeout", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// methodNotAllowed answers requests whose method a route does not serve.
func methodNotAllowed(w http.ResponseWriter, op string, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodAllowed))
}
