package inventory

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/cache"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	ListBalances(ctx context.Context, filter BalanceFilter) ([]Balance, int, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	ListSummary(ctx context.Context, filter SummaryFilter) ([]SummaryRow, error)
	WithSnapshot(ctx context.Context, fn func(context.Context, SnapshotReader) error) error
}

// Service serves ledger reads, the summary view and replay verification.
type Service struct {
	repo      RepositoryPort
	summary   *cache.Versioned
	logger    *slog.Logger
	batchSize int
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// VerifyBatchSize bounds the rows fetched per round trip during verification.
	VerifyBatchSize int
}

// NewService builds Service. A nil summary cache reads the view directly.
func NewService(repo RepositoryPort, summary *cache.Versioned, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.VerifyBatchSize <= 0 {
		cfg.VerifyBatchSize = 1000
	}
	return &Service{repo: repo, summary: summary, logger: logger, batchSize: cfg.VerifyBatchSize}
}

// GetBalance returns the balance of one key within the organisation. A key
// that was never written reports zero quantities.
func (s *Service) GetBalance(ctx context.Context, organizationID int64, key Key) (Balance, error) {
	if err := key.Validate(); err != nil {
		return Balance{}, err
	}
	rows, _, err := s.repo.ListBalances(ctx, BalanceFilter{
		OrganizationID: organizationID,
		WarehouseID:    key.WarehouseID,
		LocationID:     key.LocationID,
		GoodsModelID:   key.GoodsModelID,
		LotNumber:      key.LotNumber,
		SerialNumber:   key.SerialNumber,
		Limit:          50,
	})
	if err != nil {
		return Balance{}, err
	}
	for _, b := range rows {
		if b.Key == key {
			return b, nil
		}
	}
	return Balance{Key: key}, nil
}

// ListBalances lists onhand entries.
func (s *Service) ListBalances(ctx context.Context, filter BalanceFilter) ([]Balance, int, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListBalances(ctx, filter)
}

// ListMovements lists movement history, newest first.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 200
	}
	return s.repo.ListMovements(ctx, filter)
}

// Summary returns per warehouse and goods model totals from the cached view.
func (s *Service) Summary(ctx context.Context, filter SummaryFilter) ([]SummaryRow, error) {
	loader := func(ctx context.Context) (any, error) {
		return s.repo.ListSummary(ctx, filter)
	}
	key, err := s.summary.BuildKey(ctx,
		"org", strconv.FormatInt(filter.OrganizationID, 10),
		"wh", strconv.FormatInt(filter.WarehouseID, 10),
		"model", strconv.FormatInt(filter.GoodsModelID, 10))
	if err != nil {
		s.logger.Warn("summary cache unavailable", slog.Any("error", err))
		return s.repo.ListSummary(ctx, filter)
	}
	var rows []SummaryRow
	if err := s.summary.FetchJSON(ctx, key, &rows, loader); err != nil {
		s.logger.Warn("summary cache fetch", slog.String("key", key), slog.Any("error", err))
		return s.repo.ListSummary(ctx, filter)
	}
	return rows, nil
}

// InvalidateSummary drops every cached summary after a committed ledger mutation.
func (s *Service) InvalidateSummary(ctx context.Context) error {
	return s.summary.Bump(ctx)
}

// Verify replays the movement log from zero and compares the result with the
// stored ledger entries of the organisation or warehouse.
func (s *Service) Verify(ctx context.Context, organizationID, warehouseID int64) (VerifyReport, error) {
	report := VerifyReport{OrganizationID: organizationID, WarehouseID: warehouseID}
	err := s.repo.WithSnapshot(ctx, func(ctx context.Context, snap SnapshotReader) error {
		replayer := NewReplayer()
		filter := ScanFilter{OrganizationID: organizationID, WarehouseID: warehouseID, Limit: s.batchSize}
		for {
			batch, err := snap.ListMovementsAfter(ctx, filter)
			if err != nil {
				return err
			}
			for _, m := range batch {
				replayer.Apply(m)
				filter.AfterID = m.ID
			}
			if len(batch) < filter.Limit {
				break
			}
		}
		report.Movements = replayer.Count()
		replayed := replayer.Balances()

		filter.AfterID = 0
		for {
			batch, err := snap.ListBalancesAfter(ctx, filter)
			if err != nil {
				return err
			}
			for _, stored := range batch {
				report.Entries++
				expected := replayed[stored.Key]
				delete(replayed, stored.Key)
				if !stored.Onhand.Equal(expected.Onhand) || !stored.Reserved.Equal(expected.Reserved) {
					report.Drifts = append(report.Drifts, Drift{
						Key:              stored.Key,
						StoredOnhand:     stored.Onhand,
						StoredReserved:   stored.Reserved,
						ReplayedOnhand:   expected.Onhand,
						ReplayedReserved: expected.Reserved,
					})
				}
				filter.AfterID = stored.ID
			}
			if len(batch) < filter.Limit {
				break
			}
		}
		for key, orphan := range replayed {
			if orphan.IsZero() {
				continue
			}
			report.Drifts = append(report.Drifts, Drift{Key: key, ReplayedOnhand: orphan.Onhand, ReplayedReserved: orphan.Reserved})
		}
		return nil
	})
	if err != nil {
		return VerifyReport{}, err
	}
	sort.Slice(report.Drifts, func(i, j int) bool { return report.Drifts[i].Key.Less(report.Drifts[j].Key) })
	report.VerifiedAt = time.Now().UTC()
	if !report.Consistent() {
		s.logger.Warn("ledger drift detected",
			slog.Int64("organization_id", organizationID),
			slog.Int64("warehouse_id", warehouseID),
			slog.Int("drifts", len(report.Drifts)))
	}
	return report, nil
}
