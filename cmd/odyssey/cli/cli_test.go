package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/auth"
	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/jobs"
)

type stubVerifier struct {
	report inventory.VerifyReport
	err    error
	org    int64
	wh     int64
}

func (s *stubVerifier) Verify(_ context.Context, org, wh int64) (inventory.VerifyReport, error) {
	s.org, s.wh = org, wh
	return s.report, s.err
}

func TestVerifyCommandJSONClean(t *testing.T) {
	stub := &stubVerifier{report: inventory.VerifyReport{OrganizationID: 1, WarehouseID: 10, Movements: 12, Entries: 3}}
	c, err := NewVerifyCLI(stub)
	require.NoError(t, err)

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	code := c.VerifyCommand(context.Background(), VerifyOptions{OrganizationID: 1, WarehouseID: 10, JSONOutput: true, Stdout: stdout, Stderr: stderr})
	require.Zero(t, code)
	require.Empty(t, stderr.String())
	require.Equal(t, int64(10), stub.wh)

	var summary VerifySummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.True(t, summary.OK)
	require.Equal(t, 12, summary.Movements)
	require.Empty(t, summary.Drifts)
}

func TestVerifyCommandReportsDrift(t *testing.T) {
	stub := &stubVerifier{report: inventory.VerifyReport{
		Movements: 2,
		Entries:   1,
		Drifts: []inventory.Drift{{
			Key:            inventory.Key{WarehouseID: 10, LocationID: 100, GoodsModelID: 7, LotNumber: "L1"},
			StoredOnhand:   decimal.NewFromInt(40),
			ReplayedOnhand: decimal.NewFromInt(35),
		}},
	}}
	c, err := NewVerifyCLI(stub)
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	code := c.VerifyCommand(context.Background(), VerifyOptions{Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, ExitDrift, code)
	require.Contains(t, stdout.String(), "all organizations")
	require.Contains(t, stdout.String(), "1 drift(s) detected")
	require.Contains(t, stdout.String(), "10/100/7/L1/ onhand 40 (replay 35)")
}

func TestVerifyCommandErrors(t *testing.T) {
	c, err := NewVerifyCLI(&stubVerifier{err: errors.New("db down")})
	require.NoError(t, err)

	stderr := new(bytes.Buffer)
	require.Equal(t, 1, c.VerifyCommand(context.Background(), VerifyOptions{Stdout: new(bytes.Buffer), Stderr: stderr}))
	require.Contains(t, stderr.String(), "db down")

	stderr.Reset()
	require.Equal(t, 1, c.VerifyCommand(context.Background(), VerifyOptions{OrganizationID: -1, Stdout: new(bytes.Buffer), Stderr: stderr}))
	require.Contains(t, stderr.String(), "must not be negative")

	_, err = NewVerifyCLI(nil)
	require.Error(t, err)
}

type recordingEnqueuer struct {
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (r *recordingEnqueuer) Close() error { return nil }

type stubInspector struct{}

func (stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return &asynq.QueueInfo{Queue: queue, Pending: 3, Active: 1, Retry: 2}, nil
}

func (stubInspector) ListScheduledTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return []*asynq.TaskInfo{{ID: "s1"}}, nil
}

func (stubInspector) Close() error { return nil }

func TestJobsCLITrigger(t *testing.T) {
	enq := &recordingEnqueuer{}
	c := NewJobsCLIWith(enq, stubInspector{})
	ctx := context.Background()

	info, err := c.Trigger(ctx, jobs.TaskInventoryVerify, TriggerParams{OrganizationID: 1, WarehouseID: 10})
	require.NoError(t, err)
	require.Equal(t, jobs.TaskInventoryVerify, info.Type)
	var verify jobs.InventoryVerifyPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &verify))
	require.Equal(t, int64(10), verify.WarehouseID)

	_, err = c.Trigger(ctx, jobs.TaskIdempotencyCleanup, TriggerParams{Retention: 24 * time.Hour})
	require.NoError(t, err)

	_, err = c.Trigger(ctx, jobs.TaskCountSnapshot, TriggerParams{OrganizationID: 1})
	require.Error(t, err)
	_, err = c.Trigger(ctx, jobs.TaskCountSnapshot, TriggerParams{OrganizationID: 1, DocumentID: 5})
	require.NoError(t, err)

	_, err = c.Trigger(ctx, "unknown", TriggerParams{})
	require.ErrorContains(t, err, "unsupported job")
	require.Len(t, enq.tasks, 3)
}

func TestJobsCLIInspect(t *testing.T) {
	c := NewJobsCLIWith(&recordingEnqueuer{}, stubInspector{})

	stats, err := c.InspectQueue(context.Background())
	require.NoError(t, err)
	require.Equal(t, QueueStats{Queue: jobs.QueueDefault, Pending: 3, Active: 1, Retry: 2}, stats)

	scheduled, err := c.ListScheduled(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	require.NoError(t, c.Close())
}

func TestTokenCommand(t *testing.T) {
	v, err := auth.NewVerifier(auth.Config{Secret: "cli-test-secret-at-least-32-chars", Audience: "odyssey-wms"})
	require.NoError(t, err)

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	code := TokenCommand(v, TokenOptions{Subject: "ops", OrganizationID: 1, Roles: "admin, viewer", Audience: "odyssey-wms", Stdout: stdout, Stderr: stderr})
	require.Zero(t, code, stderr.String())

	p, err := v.Verify(strings.TrimSpace(stdout.String()))
	require.NoError(t, err)
	require.Equal(t, []string{"admin", "viewer"}, p.Roles)

	require.Equal(t, 1, TokenCommand(v, TokenOptions{Subject: "ops", Stdout: stdout, Stderr: stderr}))
}
