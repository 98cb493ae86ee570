package documents

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/movement"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
	"github.com/odyssey-erp/odyssey-wms/internal/schema"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// IdempotencyHeader carries the client supplied replay key.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes document endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers the CRUD and transition routes of every document type.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, res := range resources {
		res := res
		table := documentTable(res)
		r.Route("/"+res.Path, func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(h.rbac.RequireAny(shared.PermDocumentsView))
				r.Get("/", h.list(res.Type, table))
				r.Get("/{id}", h.show(res.Type))
			})
			r.Group(func(r chi.Router) {
				r.Use(h.rbac.RequireAll(shared.PermDocumentsEdit))
				r.Post("/", h.create(res.Type))
				r.Put("/{id}", h.update(res.Type))
				r.Delete("/{id}", h.delete(res.Type))
			})
			r.Group(func(r chi.Router) {
				r.Use(h.rbac.RequireAny(shared.PermDocumentsExecute, shared.PermDocumentsCancel))
				r.Post("/{id}/transitions", h.transition(res.Type))
			})
		})
	}
}

// MountRPC registers the line level workflow calls.
func (h *Handler) MountRPC(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDocumentsExecute))
		r.Post("/gr_confirm_line", rpc(h, h.service.GRConfirmLine))
		r.Post("/gi_pick_line", rpc(h, h.service.GIPickLine))
		r.Post("/gt_receive_line", rpc(h, h.service.GTReceiveLine))
		r.Post("/putaway_execute_line", rpc(h, h.service.PutawayExecuteLine))
		r.Post("/ic_record_count", rpc(h, h.service.ICRecordCount))
		r.Post("/gr_confirm_receipt", rpc(h, byDocument(h.service.GRConfirmReceipt)))
		r.Post("/gt_confirm", rpc(h, byDocument(h.service.GTConfirm)))
	})
}

// ClassifyError maps workflow errors to problem documents.
func ClassifyError(err error) (httpx.ProblemDetail, bool) {
	var lineErr *movement.LineError
	if errors.As(err, &lineErr) {
		status := http.StatusUnprocessableEntity
		if lineErr.Kind() == movement.KindInsufficientStock {
			status = http.StatusConflict
		}
		return httpx.ProblemDetail{
			Type:   strings.ToLower(string(lineErr.Kind())),
			Title:  "Line Rejected",
			Status: status,
			Detail: lineErr.Error(),
			Extensions: map[string]any{
				"line_number": lineErr.LineNumber,
				"violations":  lineErr.Violations,
			},
		}, true
	}
	switch {
	case errors.Is(err, ErrInvalidTransition):
		return httpx.ProblemDetail{Type: "invalid_transition", Title: "Invalid Transition", Status: http.StatusConflict, Detail: err.Error()}, true
	case errors.Is(err, shared.ErrIdempotencyConflict):
		return httpx.ProblemDetail{Type: "idempotency_conflict", Title: "Duplicate Request", Status: http.StatusConflict, Detail: err.Error()}, true
	case errors.Is(err, ErrNotFound):
		return httpx.ProblemDetail{Title: "Not Found", Status: http.StatusNotFound, Detail: err.Error()}, true
	case errors.Is(err, ErrValidation), errors.Is(err, movement.ErrValidation):
		return httpx.ProblemDetail{Title: "Unprocessable Entity", Status: http.StatusUnprocessableEntity, Detail: err.Error()}, true
	}
	return inventory.ClassifyError(err)
}

type documentRef struct {
	DocumentID int64 `json:"document_id" validate:"required,gt=0"`
}

func byDocument(fn func(context.Context, shared.Principal, int64, string) (Result, error)) func(context.Context, shared.Principal, documentRef, string) (Result, error) {
	return func(ctx context.Context, p shared.Principal, in documentRef, key string) (Result, error) {
		return fn(ctx, p, in.DocumentID, key)
	}
}

func rpc[In any](h *Handler, fn func(context.Context, shared.Principal, In, string) (Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.principal(w, r)
		if !ok {
			return
		}
		var in In
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.RespondError(w, err)
			return
		}
		if err := httpx.Validate(in); err != nil {
			httpx.RespondError(w, err)
			return
		}
		result, err := fn(r.Context(), p, in, r.Header.Get(IdempotencyHeader))
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, result)
	}
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (shared.Principal, bool) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
	}
	return p, ok
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if problem, ok := ClassifyError(err); !ok || problem.Status >= http.StatusInternalServerError {
		h.logger.Error("document request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err, ClassifyError)
}

func (h *Handler) list(t Type, table schema.Table[Document]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.principal(w, r)
		if !ok {
			return
		}
		warehouseID, err := httpx.QueryInt64(r, "warehouse_id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		page, err := httpx.QueryInt(r, "page", 1)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		perPage, err := httpx.QueryInt(r, "per_page", 20)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		filter := ListFilter{
			OrganizationID: p.OrganizationID,
			Type:           t,
			WarehouseID:    warehouseID,
			Search:         strings.TrimSpace(r.URL.Query().Get("search")),
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			if filter.Status, err = ParseStatus(t, raw); err != nil {
				h.respondError(w, r, err)
				return
			}
		}
		pg := shared.NewPagination(page, perPage, 0)
		filter.Page, filter.Limit = pg.Page, pg.PerPage
		docs, total, err := h.service.List(r.Context(), filter)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		projection, err := table.Project(docs, schema.ParseColumns(r.URL.Query().Get("columns")))
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
}

func (h *Handler) show(t Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.principal(w, r)
		if !ok {
			return
		}
		id, err := httpx.URLParamInt64(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		doc, err := h.service.Get(r.Context(), p, t, id)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, doc)
	}
}

func (h *Handler) create(t Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.principal(w, r)
		if !ok {
			return
		}
		var in DocumentInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.RespondError(w, err)
			return
		}
		in.Type = t
		doc, err := h.service.Create(r.Context(), p, in, r.Header.Get(IdempotencyHeader))
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, doc)
	}
}

func (h *Handler) update(t Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.principal(w, r)
		if !ok {
			return
		}
		id, err := httpx.URLParamInt64(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		var in DocumentInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.RespondError(w, err)
			return
		}
		in.Type = t
		doc, err := h.service.Update(r.Context(), p, id, in)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, doc)
	}
}

func (h *Handler) delete(t Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.principal(w, r)
		if !ok {
			return
		}
		id, err := httpx.URLParamInt64(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		if err := h.service.Delete(r.Context(), p, t, id); err != nil {
			h.respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) transition(t Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.principal(w, r)
		if !ok {
			return
		}
		id, err := httpx.URLParamInt64(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		var in TransitionInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.RespondError(w, err)
			return
		}
		if err := httpx.Validate(in); err != nil {
			httpx.RespondError(w, err)
			return
		}
		perm := shared.PermDocumentsExecute
		if strings.EqualFold(strings.TrimSpace(in.Status), string(StatusCancelled)) {
			perm = shared.PermDocumentsCancel
		}
		allowed, err := h.rbac.Allowed(r.Context(), p, perm)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		if !allowed {
			httpx.RespondError(w, httpx.ErrForbidden)
			return
		}
		result, err := h.service.Transition(r.Context(), p, t, id, in.Status, r.Header.Get(IdempotencyHeader))
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, result)
	}
}
