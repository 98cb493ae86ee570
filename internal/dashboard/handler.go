package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// Handler exposes the dashboard RPC.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs the dashboard handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRPC registers get_dashboard_stats on the RPC router.
func (h *Handler) MountRPC(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermDashboardView)).Post("/get_dashboard_stats", h.stats)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var f Filter
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &f); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	if err := httpx.Validate(f); err != nil {
		httpx.RespondError(w, err)
		return
	}
	f.OrganizationID = p.OrganizationID
	stats, err := h.service.Stats(r.Context(), f)
	if err != nil {
		h.logger.Error("dashboard stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
