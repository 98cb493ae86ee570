package schema

import (
	"errors"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
)

// Handler serves get_schema_details.
type Handler struct {
	registry *Registry
}

// NewHandler constructs the schema handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

type detailsRequest struct {
	Resource string `json:"resource"`
}

// GetSchemaDetails answers with one resource schema, or all of them when no
// resource is named.
func (h *Handler) GetSchemaDetails(w http.ResponseWriter, r *http.Request) {
	var req detailsRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	resource := strings.TrimSpace(req.Resource)
	if resource == "" {
		httpx.JSON(w, http.StatusOK, map[string]any{"resources": h.registry.All()})
		return
	}
	details, err := h.registry.Details(resource)
	if err != nil {
		if errors.Is(err, ErrUnknownResource) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, details)
}

// RespondProjectionError maps projection failures.
func RespondProjectionError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUnknownColumn) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.RespondError(w, err)
}
