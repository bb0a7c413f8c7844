package api

import (
	"net/http"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler handles stats and status requests.
type StatsHandler struct {
	statsProvider StatsProvider
	deps          Dependencies
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider, deps Dependencies) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, deps: deps}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "api.get_stats", http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, h.statsProvider.GetStats())
}

// HandleStatus handles GET /status requests: the loaded snapshot, its
// normalization report and the outcome of the last reload.
func (h *StatsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "api.get_status", http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Status(r.Context()))
}
