package api

import (
	"net/http"
	"strings"
)

// RtHandler handles Rt evaluation requests.
type RtHandler struct {
	deps Dependencies
}

// NewRtHandler creates a new Rt handler.
func NewRtHandler(deps Dependencies) *RtHandler {
	return &RtHandler{deps: deps}
}

// HandleGetRt handles GET /rt?region=&municipality= requests. Both
// parameters are optional; a selection without records answers 200 with
// status "no_data".
func (h *RtHandler) HandleGetRt(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rt"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, op, http.MethodGet)
		return
	}
	q := r.URL.Query()
	region := strings.TrimSpace(q.Get("region"))
	municipality := strings.TrimSpace(q.Get("municipality"))
	if len(region) > maxParamLen || len(municipality) > maxParamLen {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	ev, err := h.deps.Evaluate(r.Context(), region, municipality)
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
