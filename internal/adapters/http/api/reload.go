package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/okian/rtmonitor/internal/adapters/mq/queue"
)

// ReloadHandler handles reload requests.
type ReloadHandler struct {
	deps Dependencies
}

// NewReloadHandler creates a new reload handler.
func NewReloadHandler(deps Dependencies) *ReloadHandler {
	return &ReloadHandler{deps: deps}
}

type reloadResponse struct {
	Status      string    `json:"status"`
	RequestID   string    `json:"request_id,omitempty"`
	RequestedAt time.Time `json:"requested_at,omitzero"`
}

// HandlePostReload handles POST /reload requests. The reload runs in the
// background; a request arriving while one is already queued is merged
// into it and answered with status "pending".
func (h *ReloadHandler) HandlePostReload(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_reload"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, op, http.MethodPost)
		return
	}
	req, err := h.deps.RequestReload(r.Context())
	switch {
	case errors.Is(err, queue.ErrPending):
		writeJSON(w, http.StatusAccepted, reloadResponse{Status: "pending"})
	case err != nil:
		writeUpstreamError(w, op, err)
	default:
		writeJSON(w, http.StatusAccepted, reloadResponse{Status: "queued", RequestID: req.ID, RequestedAt: req.RequestedAt})
	}
}
