package warehouses

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/shared"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
	"github.com/odyssey-erp/odyssey-wms/internal/schema"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
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

	warehouses, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list warehouses failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	projection, err := Table.Project(warehouses, schema.ParseColumns(r.URL.Query().Get("columns")))
	if err != nil {
		schema.RespondProjectionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.NewListResponse(projection.Columns, projection.Rows, filters, total))
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.Principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	warehouse, err := h.service.Get(r.Context(), p.OrganizationID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, warehouse)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.Principal(w, r)
	if !ok {
		return
	}
	var req WarehouseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	warehouse := req.toWarehouse()
	warehouse.OrganizationID = p.OrganizationID

	created, err := h.service.Create(r.Context(), warehouse)
	if err != nil {
		h.logger.Error("create warehouse failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.Principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req WarehouseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	warehouse := req.toWarehouse()
	warehouse.ID = id
	warehouse.OrganizationID = p.OrganizationID

	updated, err := h.service.Update(r.Context(), warehouse)
	if err != nil {
		h.logger.Error("update warehouse failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
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
		h.logger.Error("delete warehouse failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
