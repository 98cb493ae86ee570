package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-wms/internal/jobs"
)

// CountSnapshotter fills a count document from the ledger.
type CountSnapshotter interface {
	SnapshotCount(ctx context.Context, organizationID, documentID int64) (int, error)
}

// CountSnapshotJob runs whole-warehouse count snapshots off the request path.
type CountSnapshotJob struct {
	Counts  CountSnapshotter
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle executes TaskCountSnapshot. The snapshot skips lines it already
// wrote, so asynq retries resume where the failed attempt stopped.
func (j *CountSnapshotJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Counts == nil {
		return errors.New("count snapshot: handler not configured")
	}
	var payload CountSnapshotPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.OrganizationID <= 0 || payload.DocumentID <= 0 {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskCountSnapshot)
	defer func() { err = tracker.End(err) }()

	logger := loggerOr(j.Logger).With(
		slog.Int64("organization_id", payload.OrganizationID),
		slog.Int64("document_id", payload.DocumentID))
	added, err := j.Counts.SnapshotCount(ctx, payload.OrganizationID, payload.DocumentID)
	j.Metrics.AddItems(TaskCountSnapshot, int64(added))
	if err != nil {
		logger.Error("count snapshot failed", slog.Int("lines", added), slog.Any("error", err))
		return err
	}
	logger.Info("count snapshot done", slog.Int("lines", added))
	return nil
}

func loggerOr(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
