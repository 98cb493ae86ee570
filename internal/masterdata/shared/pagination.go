package shared

import (
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
)

// ListFilters represents standard list filters.
type ListFilters struct {
	Page     int
	Limit    int
	Search   string
	SortBy   string
	SortDir  string
	IsActive *bool

	// Entity specific filters
	OrganizationID int64
	WarehouseID    *int64
	GoodsTypeID    *int64
}

// Offset returns the row offset of the current page.
func (f ListFilters) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// Direction returns the SQL sort direction.
func (f ListFilters) Direction() string {
	if strings.EqualFold(f.SortDir, SortDesc) {
		return "DESC"
	}
	return "ASC"
}

// ParseListFilters reads page, limit, search, sort, dir and is_active.
func ParseListFilters(r *http.Request) (ListFilters, error) {
	page, err := httpx.QueryInt(r, "page", DefaultPage)
	if err != nil {
		return ListFilters{}, err
	}
	limit, err := httpx.QueryInt(r, "limit", DefaultLimit)
	if err != nil {
		return ListFilters{}, err
	}
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}
	q := r.URL.Query()
	f := ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  strings.TrimSpace(q.Get("search")),
		SortBy:  strings.TrimSpace(q.Get("sort")),
		SortDir: strings.TrimSpace(q.Get("dir")),
	}
	if raw := strings.TrimSpace(q.Get("is_active")); raw != "" {
		active, err := httpx.QueryBool(r, "is_active")
		if err != nil {
			return ListFilters{}, err
		}
		f.IsActive = &active
	}
	return f, nil
}
