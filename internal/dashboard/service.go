package dashboard

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/cache"
)

// StatsReader runs the aggregate queries behind the dashboard.
type StatsReader interface {
	StockTotals(ctx context.Context, f Filter) (StockTotals, error)
	MasterDataCounts(ctx context.Context, f Filter) (MasterDataCounts, error)
	OpenDocuments(ctx context.Context, f Filter) ([]DocumentCount, error)
	MovementsSince(ctx context.Context, f Filter, since time.Time) ([]MovementCount, error)
}

// Service assembles dashboard statistics.
type Service struct {
	repo   StatsReader
	cache  *cache.Versioned
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewService builds Service. The cache should share the stock summary
// namespace so ledger mutations invalidate the dashboard as well.
func NewService(repo StatsReader, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: c, logger: logger, now: time.Now}
}

// WithClock overrides the time source used for the movement window.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Stats returns the cached dashboard statistics for the filter.
func (s *Service) Stats(ctx context.Context, f Filter) (Stats, error) {
	key, err := s.cache.BuildKey(ctx, "dashboard",
		"org", strconv.FormatInt(f.OrganizationID, 10),
		"wh", strconv.FormatInt(f.WarehouseID, 10))
	if err != nil {
		s.logger.Warn("dashboard cache unavailable", slog.Any("error", err))
		return s.load(ctx, f)
	}

	ch := s.group.DoChan(key, func() (any, error) {
		var stats Stats
		err := s.cache.FetchJSON(ctx, key, &stats, func(ctx context.Context) (any, error) {
			return s.load(ctx, f)
		})
		if err != nil {
			s.logger.Warn("dashboard cache fetch", slog.String("key", key), slog.Any("error", err))
			return s.load(ctx, f)
		}
		return stats, nil
	})
	select {
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Stats{}, res.Err
		}
		return res.Val.(Stats), nil
	}
}

func (s *Service) load(ctx context.Context, f Filter) (Stats, error) {
	now := s.now().UTC()
	stats := Stats{WarehouseID: f.WarehouseID, GeneratedAt: now}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := s.repo.StockTotals(ctx, f)
		if err != nil {
			return err
		}
		stats.Stock = totals
		return nil
	})
	g.Go(func() error {
		counts, err := s.repo.MasterDataCounts(ctx, f)
		if err != nil {
			return err
		}
		stats.MasterData = counts
		return nil
	})
	g.Go(func() error {
		docs, err := s.repo.OpenDocuments(ctx, f)
		if err != nil {
			return err
		}
		stats.OpenDocuments = docs
		return nil
	})
	g.Go(func() error {
		moves, err := s.repo.MovementsSince(ctx, f, now.Add(-24*time.Hour))
		if err != nil {
			return err
		}
		stats.Movements24h = moves
		return nil
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	if stats.OpenDocuments == nil {
		stats.OpenDocuments = []DocumentCount{}
	}
	if stats.Movements24h == nil {
		stats.Movements24h = []MovementCount{}
	}
	return stats, nil
}
