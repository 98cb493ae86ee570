package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-wms/internal/jobs"
)

// DefaultIdempotencyRetention applies when the payload carries none.
const DefaultIdempotencyRetention = 72 * time.Hour

// IdempotencyPurger deletes keys older than the retention.
type IdempotencyPurger interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob purges processed idempotency keys.
type IdempotencyCleanupJob struct {
	Store   IdempotencyPurger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle executes TaskIdempotencyCleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Retention <= 0 {
		payload.Retention = DefaultIdempotencyRetention
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() { err = tracker.End(err) }()

	purged, err := j.Store.Cleanup(ctx, payload.Retention)
	if err != nil {
		loggerOr(j.Logger).Error("idempotency cleanup failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddItems(TaskIdempotencyCleanup, purged)
	loggerOr(j.Logger).Info("idempotency keys purged", slog.Int64("purged", purged), slog.Duration("retention", payload.Retention))
	return nil
}
