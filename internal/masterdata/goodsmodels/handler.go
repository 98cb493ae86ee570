package goodsmodels

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

// Table is the column schema of the goods model listing.
var Table = schema.Table[GoodsModel]{
	Resource: "goods-models",
	Title:    "Goods models",
	Columns: []schema.Column[GoodsModel]{
		{ColumnSpec: schema.ColumnSpec{Key: "id", Label: "ID", Type: schema.TypeInteger}, Value: func(m GoodsModel) any { return m.ID }},
		{ColumnSpec: schema.ColumnSpec{Key: "code", Label: "Code", Type: schema.TypeText, DefaultVisible: true, Sortable: true}, Value: func(m GoodsModel) any { return m.Code }},
		{ColumnSpec: schema.ColumnSpec{Key: "name", Label: "Name", Type: schema.TypeText, DefaultVisible: true, Sortable: true}, Value: func(m GoodsModel) any { return m.Name }},
		{ColumnSpec: schema.ColumnSpec{Key: "goods_type_id", Label: "Goods type", Type: schema.TypeInteger}, Value: func(m GoodsModel) any { return m.GoodsTypeID }},
		{ColumnSpec: schema.ColumnSpec{Key: "base_uom", Label: "UoM", Type: schema.TypeText, DefaultVisible: true}, Value: func(m GoodsModel) any { return m.BaseUOM }},
		{ColumnSpec: schema.ColumnSpec{Key: "tracking_type", Label: "Tracking", Type: schema.TypeEnum, DefaultVisible: true, Sortable: true,
			Enum: []string{string(TrackingNone), string(TrackingLot), string(TrackingSerial)}}, Value: func(m GoodsModel) any { return m.TrackingType }},
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
	if typeID, err := httpx.QueryInt64(r, "goods_type_id"); err != nil {
		httpx.RespondError(w, err)
		return
	} else if typeID > 0 {
		filters.GoodsTypeID = &typeID
	}
	rows, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list goods models failed", "error", err)
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
	m, err := h.service.Get(r.Context(), p.OrganizationID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (GoodsModel, bool) {
	p, ok := shared.Principal(w, r)
	if !ok {
		return GoodsModel{}, false
	}
	var req GoodsModelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return GoodsModel{}, false
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return GoodsModel{}, false
	}
	tracking, err := ParseTrackingType(req.TrackingType)
	if err != nil {
		httpx.RespondError(w, httpx.Invalid("tracking_type", err.Error()))
		return GoodsModel{}, false
	}
	return GoodsModel{
		OrganizationID: p.OrganizationID,
		Code:           req.Code,
		Name:           req.Name,
		GoodsTypeID:    req.GoodsTypeID,
		BaseUOM:        req.BaseUOM,
		TrackingType:   tracking,
	}, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	m, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), m)
	if err != nil {
		h.logger.Error("create goods model failed", "error", err)
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
	m, ok := h.decode(w, r)
	if !ok {
		return
	}
	m.ID = id
	updated, err := h.service.Update(r.Context(), m)
	if err != nil {
		h.logger.Error("update goods model failed", "error", err, "id", id)
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
		h.logger.Error("delete goods model failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
