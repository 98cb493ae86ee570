package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-wms/internal/app"
	"github.com/odyssey-erp/odyssey-wms/internal/audit"
	audithttp "github.com/odyssey-erp/odyssey-wms/internal/audit/http"
	"github.com/odyssey-erp/odyssey-wms/internal/auth"
	"github.com/odyssey-erp/odyssey-wms/internal/dashboard"
	"github.com/odyssey-erp/odyssey-wms/internal/documents"
	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/goodsmodels"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/goodstypes"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/locations"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/warehouses"
	"github.com/odyssey-erp/odyssey-wms/internal/movement"
	"github.com/odyssey-erp/odyssey-wms/internal/observability"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/db"
	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
	"github.com/odyssey-erp/odyssey-wms/internal/schema"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
	"github.com/odyssey-erp/odyssey-wms/jobs"
)

// summaryNamespace is shared by the stock summary and the dashboard so one
// bump after a ledger mutation invalidates both.
const summaryNamespace = "stock-summary"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if args := os.Args[1:]; len(args) > 0 && args[0] != "serve" {
		code := runCommand(ctx, cfg, logger, args)
		stop()
		os.Exit(code)
	}

	if cfg.MigrateOnStart {
		if err := migrateUp(cfg, logger); err != nil {
			logger.Error("migrate on start", slog.Any("error", err))
			os.Exit(1)
		}
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	var redisClient *redis.Client
	redisClient, err = cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}
	summaryCache := cache.NewVersioned(redisClient, summaryNamespace, cfg.SummaryCacheTTL)

	verifier, err := auth.NewVerifier(auth.Config{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   30 * time.Second,
	})
	if err != nil {
		logger.Error("init token verifier", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	rbacService := rbac.NewService(rbac.NewPGStore(dbpool))
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	warehouseService := warehouses.NewService(warehouses.NewRepository(dbpool))
	locationService := locations.NewService(locations.NewRepository(dbpool))
	goodsTypeService := goodstypes.NewService(goodstypes.NewRepository(dbpool))
	goodsModelService := goodsmodels.NewService(goodsmodels.NewRepository(dbpool))

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), summaryCache, logger, inventory.ServiceConfig{})
	engine := movement.NewEngine(movement.ServiceCatalog{Models: goodsModelService, Locations: locationService}, metrics)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	documentService := documents.NewService(documents.Deps{
		Repo:        documents.NewRepository(dbpool),
		Engine:      engine,
		Warehouses:  warehouseService,
		Audit:       auditLogger,
		Idempotency: idempotencyStore,
		Summary:     inventoryService,
		Snapshots:   jobClient,
		Logger:      logger,
	}, documents.Config{
		TxMaxRetries:  cfg.TxMaxRetries,
		SnapshotChunk: cfg.CountSnapshotChunk,
	})

	dashboardService := dashboard.NewService(dashboard.NewRepository(dbpool), summaryCache, logger)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Verifier:           verifier,
		WarehouseHandler:   warehouses.NewHandler(logger, warehouseService, rbacMiddleware),
		LocationHandler:    locations.NewHandler(logger, locationService, rbacMiddleware),
		GoodsTypeHandler:   goodstypes.NewHandler(logger, goodsTypeService, rbacMiddleware),
		GoodsModelHandler:  goodsmodels.NewHandler(logger, goodsModelService, rbacMiddleware),
		InventoryHandler:   inventory.NewHandler(logger, inventoryService, rbacMiddleware),
		DocumentsHandler:   documents.NewHandler(logger, documentService, rbacMiddleware),
		DashboardHandler:   dashboard.NewHandler(logger, dashboardService, rbacMiddleware),
		AuditHandler:       audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), rbacMiddleware),
		SchemaHandler:      schema.NewHandler(app.SchemaRegistry()),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func migrateUp(cfg *app.Config, logger *slog.Logger) error {
	migrator, err := db.NewMigrator(cfg.PGDSN, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Warn("migrator close", slog.Any("error", err))
		}
	}()
	return migrator.Up()
}
