package documents

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/warehouses"
	"github.com/odyssey-erp/odyssey-wms/internal/movement"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/db"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, organizationID, id int64) (Document, error)
	List(ctx context.Context, filter ListFilter) ([]Document, int, error)
}

// WarehousePort resolves the warehouses a document refers to.
type WarehousePort interface {
	Get(ctx context.Context, organizationID, id int64) (warehouses.Warehouse, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards replays of mutating calls.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// SummaryInvalidator is told after every committed ledger mutation.
type SummaryInvalidator interface {
	InvalidateSummary(ctx context.Context) error
}

// SnapshotScheduler queues whole-scope count snapshots.
type SnapshotScheduler interface {
	EnqueueCountSnapshot(ctx context.Context, organizationID, documentID int64) error
}

// Config groups optional settings.
type Config struct {
	// TxMaxRetries bounds retries of serialization failures and deadlocks.
	TxMaxRetries int
	// SnapshotChunk is the number of ledger entries snapshotted per transaction.
	SnapshotChunk int
	Now           func() time.Time
}

// Service runs document workflows.
type Service struct {
	repo        RepositoryPort
	engine      *movement.Engine
	warehouses  WarehousePort
	audit       AuditPort
	idempotency IdempotencyPort
	summary     SummaryInvalidator
	snapshots   SnapshotScheduler
	logger      *slog.Logger
	retries     int
	chunk       int
	now         func() time.Time
}

// Deps collects the collaborators of Service. Only Repo, Engine and
// Warehouses are required.
type Deps struct {
	Repo        RepositoryPort
	Engine      *movement.Engine
	Warehouses  WarehousePort
	Audit       AuditPort
	Idempotency IdempotencyPort
	Summary     SummaryInvalidator
	Snapshots   SnapshotScheduler
	Logger      *slog.Logger
}

// NewService constructs the documents service.
func NewService(deps Deps, cfg Config) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.TxMaxRetries <= 0 {
		cfg.TxMaxRetries = 3
	}
	if cfg.SnapshotChunk <= 0 {
		cfg.SnapshotChunk = 500
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:        deps.Repo,
		engine:      deps.Engine,
		warehouses:  deps.Warehouses,
		audit:       deps.Audit,
		idempotency: deps.Idempotency,
		summary:     deps.Summary,
		snapshots:   deps.Snapshots,
		logger:      deps.Logger,
		retries:     cfg.TxMaxRetries,
		chunk:       cfg.SnapshotChunk,
		now:         cfg.Now,
	}
}

// Get returns one document of the given type.
func (s *Service) Get(ctx context.Context, p shared.Principal, t Type, id int64) (Document, error) {
	doc, err := s.repo.Get(ctx, p.OrganizationID, id)
	if err != nil {
		return Document{}, err
	}
	if t != "" && doc.Type != t {
		return Document{}, fmt.Errorf("%w: %s %d", ErrNotFound, t, id)
	}
	return doc, nil
}

// List returns document headers.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Document, int, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 20
	}
	return s.repo.List(ctx, filter)
}

// Create stores a new DRAFT document.
func (s *Service) Create(ctx context.Context, p shared.Principal, in DocumentInput, idempotencyKey string) (Document, error) {
	if err := s.validateInput(ctx, p, in); err != nil {
		return Document{}, err
	}
	var created Document
	err := s.guard(ctx, idempotencyKey, "documents.create", func() error {
		return db.Retry(ctx, s.retries, func(ctx context.Context) error {
			return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
				now := s.now()
				code, err := tx.NextCode(ctx, in.Type, now)
				if err != nil {
					return err
				}
				created, err = tx.Insert(ctx, Document{
					Type:            in.Type,
					Code:            code,
					OrganizationID:  p.OrganizationID,
					WarehouseID:     in.WarehouseID,
					ToWarehouseID:   in.ToWarehouseID,
					ScopeLocationID: in.ScopeLocationID,
					Status:          StatusDraft,
					Reference:       in.Reference,
					Note:            in.Note,
					CreatedBy:       p.UserID,
					Lines:           in.lines(),
				})
				return err
			})
		})
	})
	if err != nil {
		return Document{}, err
	}
	s.recordAudit(ctx, p, "DOCUMENT_CREATE", created, map[string]any{"code": created.Code, "lines": len(created.Lines)})
	return created, nil
}

// Update rewrites header and lines of a DRAFT document.
func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, in DocumentInput) (Document, error) {
	var updated Document
	err := db.Retry(ctx, s.retries, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			doc, err := tx.GetForUpdate(ctx, p.OrganizationID, id)
			if err != nil {
				return err
			}
			if in.Type == "" {
				in.Type = doc.Type
			}
			if in.Type != doc.Type {
				return fmt.Errorf("%w: %s %d", ErrNotFound, in.Type, id)
			}
			if doc.Status != StatusDraft {
				return fmt.Errorf("%w: %s is %s, only DRAFT documents can be edited", ErrInvalidTransition, doc.Code, doc.Status)
			}
			if err := s.validateInput(ctx, p, in); err != nil {
				return err
			}
			doc.WarehouseID = in.WarehouseID
			doc.ToWarehouseID = in.ToWarehouseID
			doc.ScopeLocationID = in.ScopeLocationID
			doc.Reference = in.Reference
			doc.Note = in.Note
			if err := tx.UpdateHeader(ctx, doc); err != nil {
				return err
			}
			if err := tx.ReplaceLines(ctx, doc.ID, in.lines()); err != nil {
				return err
			}
			updated, err = tx.GetForUpdate(ctx, p.OrganizationID, id)
			return err
		})
	})
	if err != nil {
		return Document{}, err
	}
	s.recordAudit(ctx, p, "DOCUMENT_UPDATE", updated, map[string]any{"lines": len(updated.Lines)})
	return updated, nil
}

// Delete removes a DRAFT document.
func (s *Service) Delete(ctx context.Context, p shared.Principal, t Type, id int64) error {
	var deleted Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetForUpdate(ctx, p.OrganizationID, id)
		if err != nil {
			return err
		}
		if doc.Type != t {
			return fmt.Errorf("%w: %s %d", ErrNotFound, t, id)
		}
		if doc.Status != StatusDraft {
			return fmt.Errorf("%w: %s is %s, only DRAFT documents can be deleted", ErrInvalidTransition, doc.Code, doc.Status)
		}
		deleted = doc
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, p, "DOCUMENT_DELETE", deleted, nil)
	return nil
}

type step func(ctx context.Context, tx TxRepository, doc *Document, mc movement.Context) ([]inventory.Movement, error)

// execute runs one workflow step in its own transaction and returns the
// reloaded document with the movements written.
func (s *Service) execute(ctx context.Context, p shared.Principal, t Type, id int64, action, idempotencyKey string, fn step) (Result, error) {
	if p.IsZero() {
		return Result{}, shared.ErrUnauthenticated
	}
	var result Result
	err := s.guard(ctx, idempotencyKey, "documents."+action, func() error {
		return db.Retry(ctx, s.retries, func(ctx context.Context) error {
			result = Result{}
			return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
				doc, err := tx.GetForUpdate(ctx, p.OrganizationID, id)
				if err != nil {
					return err
				}
				if t != "" && doc.Type != t {
					return fmt.Errorf("%w: %s %d", ErrNotFound, t, id)
				}
				mc := movement.Context{Principal: p, At: s.now(), OperationID: uuid.New()}
				movements, err := fn(ctx, tx, &doc, mc)
				if err != nil {
					return err
				}
				reloaded, err := tx.GetForUpdate(ctx, p.OrganizationID, id)
				if err != nil {
					return err
				}
				if movements == nil {
					movements = []inventory.Movement{}
				}
				result = Result{Document: reloaded, Movements: movements}
				return nil
			})
		})
	})
	if err != nil {
		s.logger.Warn("document step rejected",
			slog.String("action", action),
			slog.Int64("document_id", id),
			slog.Any("error", err))
		return Result{}, err
	}

	if len(result.Movements) > 0 && s.summary != nil {
		if err := s.summary.InvalidateSummary(ctx); err != nil {
			s.logger.Warn("invalidate summary cache", slog.Any("error", err))
		}
	}
	s.recordAudit(ctx, p, "DOCUMENT_"+action, result.Document, map[string]any{
		"status":    result.Document.Status,
		"movements": len(result.Movements),
	})
	s.logger.Info("document step applied",
		slog.String("action", action),
		slog.Int64("document_id", id),
		slog.String("code", result.Document.Code),
		slog.String("status", string(result.Document.Status)),
		slog.Int("movements", len(result.Movements)))
	return result, nil
}

// guard claims the idempotency key for the duration of fn and releases it
// again when fn fails so the caller may retry.
func (s *Service) guard(ctx context.Context, key, module string, fn func() error) error {
	if key == "" || s.idempotency == nil {
		return fn()
	}
	if err := s.idempotency.CheckAndInsert(ctx, key, module); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if delErr := s.idempotency.Delete(context.WithoutCancel(ctx), key, module); delErr != nil {
			s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", delErr))
		}
		return err
	}
	return nil
}

func (s *Service) apply(ctx context.Context, tx TxRepository, ins movement.Instruction, mc movement.Context) ([]inventory.Movement, error) {
	return s.engine.ApplyLine(ctx, tx.Ledger(), ins, mc)
}

func instruction(doc *Document, line *Line, action movement.Action) movement.Instruction {
	return movement.Instruction{
		Action:                action,
		DocumentType:          string(doc.Type),
		DocumentID:            doc.ID,
		DocumentCode:          doc.Code,
		LineID:                line.ID,
		LineNumber:            line.LineNumber,
		WarehouseID:           doc.WarehouseID,
		SourceLocationID:      line.source(),
		DestinationLocationID: line.destination(),
		GoodsModelID:          line.GoodsModelID,
		LotNumber:             line.LotNumber,
		SerialNumber:          line.SerialNumber,
		Quantity:              line.Quantity,
		ExpiryDate:            line.ExpiryDate,
	}
}

func (s *Service) recordAudit(ctx context.Context, p shared.Principal, action string, doc Document, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["organization_id"] = doc.OrganizationID
	meta["document_type"] = doc.Type
	meta["code"] = doc.Code
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.UserID,
		Action:   action,
		Entity:   "document",
		EntityID: strconv.FormatInt(doc.ID, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("record audit", slog.String("action", action), slog.Any("error", err))
	}
}

func invalidTransition(doc *Document, to Status) error {
	return fmt.Errorf("%w: %s %s cannot move from %s to %s", ErrInvalidTransition, doc.Type, doc.Code, doc.Status, to)
}

func requireStatus(doc *Document, want Status, action string) error {
	if doc.Status != want {
		return fmt.Errorf("%w: %s requires %s, %s is %s", ErrInvalidTransition, action, want, doc.Code, doc.Status)
	}
	return nil
}
