package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCountSnapshot fills a whole-warehouse inventory count from the ledger.
	TaskCountSnapshot = "count:snapshot"
	// TaskInventoryVerify replays the movement log against stored balances.
	TaskInventoryVerify = "inventory:verify"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// CountSnapshotPayload names the count document to snapshot.
type CountSnapshotPayload struct {
	OrganizationID int64 `json:"organization_id"`
	DocumentID     int64 `json:"document_id"`
}

// NewCountSnapshotTask constructs an Asynq task. The task id makes a second
// enqueue for the same document a no-op while the first is pending.
func NewCountSnapshotTask(payload CountSnapshotPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCountSnapshot, body,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(5),
		asynq.TaskID(fmt.Sprintf("%s:%d", TaskCountSnapshot, payload.DocumentID)),
	), nil
}

// InventoryVerifyPayload scopes a verification run. Zero ids verify everything.
type InventoryVerifyPayload struct {
	OrganizationID int64     `json:"organization_id,omitempty"`
	WarehouseID    int64     `json:"warehouse_id,omitempty"`
	ScheduledFor   time.Time `json:"scheduled_for"`
}

// NewInventoryVerifyTask constructs an Asynq task for ledger verification.
func NewInventoryVerifyTask(payload InventoryVerifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryVerify, body, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}

// IdempotencyCleanupPayload carries the retention applied by the cleanup.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs an Asynq task purging old keys.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
