package goodstypes

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

// Table is the column schema of the goods type listing.
var Table = schema.Table[GoodsType]{
	Resource: "goods-types",
	Title:    "Goods types",
	Columns: []schema.Column[GoodsType]{
		{ColumnSpec: schema.ColumnSpec{Key: "id", Label: "ID", Type: schema.TypeInteger}, Value: func(g GoodsType) any { return g.ID }},
		{ColumnSpec: schema.ColumnSpec{Key: "code", Label: "Code", Type: schema.TypeText, DefaultVisible: true, Sortable: true}, Value: func(g GoodsType) any { return g.Code }},
		{ColumnSpec: schema.ColumnSpec{Key: "name", Label: "Name", Type: schema.TypeText, DefaultVisible: true, Sortable: true}, Value: func(g GoodsType) any { return g.Name }},
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
	filters, err := shared.ParseListFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list goods types failed", "error", err)
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
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	gt, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, gt)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (GoodsType, bool) {
	var req GoodsTypeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return GoodsType{}, false
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return GoodsType{}, false
	}
	return GoodsType{Code: req.Code, Name: req.Name}, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	gt, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), gt)
	if err != nil {
		h.logger.Error("create goods type failed", "error", err)
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
	gt, ok := h.decode(w, r)
	if !ok {
		return
	}
	gt.ID = id
	updated, err := h.service.Update(r.Context(), gt)
	if err != nil {
		h.logger.Error("update goods type failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete goods type failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
