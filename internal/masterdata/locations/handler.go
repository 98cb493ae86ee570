package locations

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/shared"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
	"github.com/odyssey-erp/odyssey-wms/internal/schema"
	internalShared "github.com/odyssey-erp/odyssey-wms/internal/shared"
)

var Table = schema.Table[Location]{
	Resource: "locations",
	Title:    "Locations",
	Columns: []schema.Column[Location]{
		{ColumnSpec: schema.ColumnSpec{Key: "id", Label: "ID", Type: schema.TypeInteger}, Value: func(l Location) any { return l.ID }},
		{ColumnSpec: schema.ColumnSpec{Key: "warehouse_id", Label: "Warehouse", Type: schema.TypeInteger, DefaultVisible: true, Sortable: true}, Value: func(l Location) any { return l.WarehouseID }},
		{ColumnSpec: schema.ColumnSpec{Key: "code", Label: "Code", Type: schema.TypeText, DefaultVisible: true, Sortable: true}, Value: func(l Location) any { return l.Code }},
		{ColumnSpec: schema.ColumnSpec{Key: "name", Label: "Name", Type: schema.TypeText, DefaultVisible: true, Sortable: true}, Value: func(l Location) any { return l.Name }},
		{ColumnSpec: schema.ColumnSpec{Key: "is_receivable", Label: "Receivable", Type: schema.TypeBoolean, DefaultVisible: true}, Value: func(l Location) any { return l.IsReceivable }},
		{ColumnSpec: schema.ColumnSpec{Key: "is_active", Label: "Active", Type: schema.TypeBoolean, DefaultVisible: true}, Value: func(l Location) any { return l.IsActive }},
		{ColumnSpec: schema.ColumnSpec{Key: "restriction", Label: "Restriction", Type: schema.TypeEnum,
			Enum: []string{string(RestrictionNone), string(RestrictionAllowed), string(RestrictionDisallowed)}}, Value: func(l Location) any { return l.Restriction }},
		{ColumnSpec: schema.ColumnSpec{Key: "restricted_model_ids", Label: "Restricted models", Type: schema.TypeText}, Value: func(l Location) any { return l.RestrictedModelIDs }},
	},
}

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(internalShared.PermMasterDataView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(internalShared.PermMasterDataEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.Principal(w, r)
	if !ok {
		return
	}
	filters, err := shared.ParseListFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filters.OrganizationID = p.OrganizationID
	warehouseID, err := httpx.QueryInt64(r, "warehouse_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if warehouseID > 0 {
		filters.WarehouseID = &warehouseID
	}

	rows, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list locations failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	projection, err := Table.Project(rows, schema.ParseColumns(r.URL.Query().Get("columns")))
	if err != nil {
		schema.RespondProjectionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.NewListResponse(projection.Columns, projection.Rows, filters, total))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.Principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	location, err := h.service.Get(r.Context(), p.OrganizationID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, location)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Location, bool) {
	p, ok := shared.Principal(w, r)
	if !ok {
		return Location{}, false
	}
	var req LocationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return Location{}, false
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return Location{}, false
	}
	location := req.toLocation()
	location.OrganizationID = p.OrganizationID
	return location, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	location, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), location)
	if err != nil {
		h.logger.Error("create location failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	location, ok := h.decode(w, r)
	if !ok {
		return
	}
	location.ID = id
	updated, err := h.service.Update(r.Context(), location)
	if err != nil {
		h.logger.Error("update location failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.Principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), p.OrganizationID, id); err != nil {
		h.logger.Error("delete location failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
