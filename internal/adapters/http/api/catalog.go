package api

import (
	"net/http"
	"strings"
)

// maxParamLen bounds region and municipality query values.
const maxParamLen = 128

// CatalogHandler serves the region and municipality option lists.
type CatalogHandler struct {
	deps Dependencies
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps Dependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

type catalogResponse struct {
	Region string   `json:"region,omitempty"`
	Items  []string `json:"items"`
}

// HandleGetRegions handles GET /regions requests.
func (h *CatalogHandler) HandleGetRegions(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_regions"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, op, http.MethodGet)
		return
	}
	regions, err := h.deps.Regions(r.Context())
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{Items: nonNil(regions)})
}

// HandleGetMunicipalities handles GET /municipalities?region= requests.
// Without a region every municipality is listed.
func (h *CatalogHandler) HandleGetMunicipalities(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_municipalities"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, op, http.MethodGet)
		return
	}
	region := strings.TrimSpace(r.URL.Query().Get("region"))
	if len(region) > maxParamLen {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	towns, err := h.deps.Municipalities(r.Context(), region)
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{Region: region, Items: nonNil(towns)})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
