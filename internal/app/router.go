package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/odyssey-erp/odyssey-wms/internal/audit/http"
	"github.com/odyssey-erp/odyssey-wms/internal/auth"
	"github.com/odyssey-erp/odyssey-wms/internal/dashboard"
	"github.com/odyssey-erp/odyssey-wms/internal/documents"
	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/goodsmodels"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/goodstypes"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/locations"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/warehouses"
	"github.com/odyssey-erp/odyssey-wms/internal/observability"
	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
	"github.com/odyssey-erp/odyssey-wms/internal/schema"
	"github.com/odyssey-erp/odyssey-wms/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Verifier *auth.Verifier

	WarehouseHandler   *warehouses.Handler
	LocationHandler    *locations.Handler
	GoodsTypeHandler   *goodstypes.Handler
	GoodsModelHandler  *goodsmodels.Handler
	InventoryHandler   *inventory.Handler
	DocumentsHandler   *documents.Handler
	DashboardHandler   *dashboard.Handler
	AuditHandler       *audithttp.Handler
	SchemaHandler      *schema.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(params.Verifier, params.Logger))

		if params.WarehouseHandler != nil {
			r.Route("/warehouses", params.WarehouseHandler.MountRoutes)
		}
		if params.LocationHandler != nil {
			r.Route("/locations", params.LocationHandler.MountRoutes)
		}
		if params.GoodsTypeHandler != nil {
			r.Route("/goods-types", params.GoodsTypeHandler.MountRoutes)
		}
		if params.GoodsModelHandler != nil {
			r.Route("/goods-models", params.GoodsModelHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
		if params.DocumentsHandler != nil {
			params.DocumentsHandler.MountRoutes(r)
		}

		r.Route("/rpc", func(r chi.Router) {
			if params.DocumentsHandler != nil {
				params.DocumentsHandler.MountRPC(r)
			}
			if params.DashboardHandler != nil {
				params.DashboardHandler.MountRPC(r)
			}
			if params.SchemaHandler != nil {
				r.Post("/get_schema_details", params.SchemaHandler.GetSchemaDetails)
			}
		})
	})

	return r
}

// SchemaRegistry registers the column schema of every list resource.
func SchemaRegistry() *schema.Registry {
	registry := schema.NewRegistry(
		warehouses.Table,
		locations.Table,
		goodstypes.Table,
		goodsmodels.Table,
		inventory.OnhandTable,
		inventory.MovementTable,
		inventory.SummaryTable,
	)
	for _, t := range documents.Tables() {
		registry.Register(t)
	}
	return registry
}
