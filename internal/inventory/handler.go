package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
	"github.com/odyssey-erp/odyssey-wms/internal/schema"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermInventoryView))
		r.Get("/onhand", h.listOnhand)
		r.Get("/balance", h.getBalance)
		r.Get("/movements", h.listMovements)
		r.Get("/summary", h.summary)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermInventoryVerify))
		r.Get("/verify", h.verify)
	})
}

// ClassifyError maps ledger errors to problem documents.
func ClassifyError(err error) (httpx.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return httpx.ProblemDetail{Type: "insufficient_stock", Title: "Insufficient Stock", Status: http.StatusConflict, Detail: err.Error()}, true
	case errors.Is(err, ErrTrackingMismatch):
		return httpx.ProblemDetail{Type: "tracking_mismatch", Title: "Tracking Mismatch", Status: http.StatusUnprocessableEntity, Detail: err.Error()}, true
	case errors.Is(err, ErrLocationRestriction):
		return httpx.ProblemDetail{Type: "location_restriction", Title: "Location Restriction", Status: http.StatusUnprocessableEntity, Detail: err.Error()}, true
	case errors.Is(err, ErrInvalidKey):
		return httpx.ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest, Detail: err.Error()}, true
	}
	return httpx.ProblemDetail{}, false
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (shared.Principal, bool) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
	}
	return p, ok
}

func keyFromQuery(r *http.Request) (Key, error) {
	var key Key
	var err error
	if key.WarehouseID, err = httpx.QueryInt64(r, "warehouse_id"); err != nil {
		return Key{}, err
	}
	if key.LocationID, err = httpx.QueryInt64(r, "location_id"); err != nil {
		return Key{}, err
	}
	if key.GoodsModelID, err = httpx.QueryInt64(r, "goods_model_id"); err != nil {
		return Key{}, err
	}
	q := r.URL.Query()
	key.LotNumber = strings.TrimSpace(q.Get("lot_number"))
	key.SerialNumber = strings.TrimSpace(q.Get("serial_number"))
	return key, nil
}

func (h *Handler) listOnhand(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	key, err := keyFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	nonZero, err := httpx.QueryBool(r, "non_zero")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := httpx.QueryInt(r, "page", 1)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	perPage, err := httpx.QueryInt(r, "per_page", 50)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pg := shared.NewPagination(page, perPage, 0)
	rows, total, err := h.service.ListBalances(r.Context(), BalanceFilter{
		OrganizationID: p.OrganizationID,
		WarehouseID:    key.WarehouseID,
		LocationID:     key.LocationID,
		GoodsModelID:   key.GoodsModelID,
		LotNumber:      key.LotNumber,
		SerialNumber:   key.SerialNumber,
		NonZero:        nonZero,
		Limit:          pg.PerPage,
		Offset:         pg.Offset(),
	})
	if err != nil {
		h.logger.Error("list onhand", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	projection, err := OnhandTable.Project(rows, schema.ParseColumns(r.URL.Query().Get("columns")))
	if err != nil {
		schema.RespondProjectionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"columns":    projection.Columns,
		"data":       projection.Rows,
		"pagination": shared.NewPagination(pg.Page, pg.PerPage, total),
	})
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	key, err := keyFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	balance, err := h.service.GetBalance(r.Context(), p.OrganizationID, key)
	if err != nil {
		httpx.RespondError(w, err, ClassifyError)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"balance":            balance,
		"quantity_available": balance.Available(),
	})
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	key, err := keyFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	documentID, err := httpx.QueryInt64(r, "document_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit, err := httpx.QueryInt(r, "limit", 200)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q := r.URL.Query()
	filter := MovementFilter{
		OrganizationID: p.OrganizationID,
		WarehouseID:    key.WarehouseID,
		LocationID:     key.LocationID,
		GoodsModelID:   key.GoodsModelID,
		LotNumber:      key.LotNumber,
		SerialNumber:   key.SerialNumber,
		DocumentType:   strings.ToUpper(strings.TrimSpace(q.Get("document_type"))),
		DocumentID:     documentID,
		Type:           MovementType(strings.ToUpper(strings.TrimSpace(q.Get("movement_type")))),
		Limit:          limit,
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown movement_type")
		return
	}
	if filter.From, err = parseDate(q.Get("from")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.To, err = parseDate(q.Get("to")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	projection, err := MovementTable.Project(rows, schema.ParseColumns(q.Get("columns")))
	if err != nil {
		schema.RespondProjectionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"columns": projection.Columns, "data": projection.Rows})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	warehouseID, err := httpx.QueryInt64(r, "warehouse_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	modelID, err := httpx.QueryInt64(r, "goods_model_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Summary(r.Context(), SummaryFilter{OrganizationID: p.OrganizationID, WarehouseID: warehouseID, GoodsModelID: modelID})
	if err != nil {
		h.logger.Error("stock summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	projection, err := SummaryTable.Project(rows, schema.ParseColumns(r.URL.Query().Get("columns")))
	if err != nil {
		schema.RespondProjectionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"columns": projection.Columns, "data": projection.Rows})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	warehouseID, err := httpx.QueryInt64(r, "warehouse_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.Verify(r.Context(), p.OrganizationID, warehouseID)
	if err != nil {
		h.logger.Error("verify ledger", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"consistent": report.Consistent(), "report": report})
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.Join(httpx.ErrValidation, err)
	}
	return t, nil
}
