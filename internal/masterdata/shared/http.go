package shared

import (
	"net/http"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	internalShared "github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// Principal returns the caller or answers 401.
func Principal(w http.ResponseWriter, r *http.Request) (internalShared.Principal, bool) {
	p, ok := internalShared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
	}
	return p, ok
}

// ListResponse is the envelope of every master data listing.
type ListResponse struct {
	Columns    any                       `json:"columns,omitempty"`
	Data       any                       `json:"data"`
	Pagination internalShared.Pagination `json:"pagination"`
}

// NewListResponse builds the listing envelope.
func NewListResponse(columns, data any, filters ListFilters, total int) ListResponse {
	return ListResponse{Columns: columns, Data: data, Pagination: internalShared.NewPagination(filters.Page, filters.Limit, total)}
}
