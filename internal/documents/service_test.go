package documents_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/documents"
	"github.com/odyssey-erp/odyssey-wms/internal/documents/documentstest"
	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/inventory/inventorytest"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/goodsmodels"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/locations"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/warehouses"
	"github.com/odyssey-erp/odyssey-wms/internal/movement"
	"github.com/odyssey-erp/odyssey-wms/internal/movement/movementtest"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

const (
	org     = int64(1)
	central = int64(10)
	branch  = int64(20)
	dock    = int64(100)
	shelfA  = int64(101)
	shelfB  = int64(102)
	cold    = int64(103)
	inbound = int64(200)
	boltID  = int64(7)
)

var operator = shared.Principal{UserID: "u-1", OrganizationID: org, Roles: []string{shared.RoleOperator}}

type fixture struct {
	ledger  *inventorytest.Ledger
	store   *documentstest.Store
	service *documents.Service
}

type fixtureOption func(*documents.Deps, *documents.Config)

func newFixture(t *testing.T, opts ...fixtureOption) fixture {
	t.Helper()
	catalog := movementtest.NewCatalog()
	catalog.AddModel(goodsmodels.GoodsModel{ID: boltID, OrganizationID: org, Code: "BOLT", TrackingType: goodsmodels.TrackingLot})
	catalog.AddLocation(locations.Location{ID: dock, OrganizationID: org, WarehouseID: central, Code: "DOCK", IsReceivable: true, IsActive: true})
	catalog.AddLocation(locations.Location{ID: shelfA, OrganizationID: org, WarehouseID: central, Code: "A", IsActive: true})
	catalog.AddLocation(locations.Location{ID: shelfB, OrganizationID: org, WarehouseID: central, Code: "B", IsActive: true})
	catalog.AddLocation(locations.Location{ID: cold, OrganizationID: org, WarehouseID: central, Code: "COLD", IsActive: true,
		Restriction: locations.RestrictionDisallowed, RestrictedModelIDs: []int64{boltID}})
	catalog.AddLocation(locations.Location{ID: inbound, OrganizationID: org, WarehouseID: branch, Code: "IN", IsReceivable: true, IsActive: true})

	whs := documentstest.Warehouses{}
	whs.Add(warehouses.Warehouse{ID: central, OrganizationID: org, Code: "MAIN", IsActive: true})
	whs.Add(warehouses.Warehouse{ID: branch, OrganizationID: org, Code: "BRANCH", IsActive: true})

	ledger := inventorytest.NewLedger()
	ledger.Warehouses[central] = org
	ledger.Warehouses[branch] = org
	store := documentstest.NewStore(ledger)

	deps := documents.Deps{
		Repo:       store,
		Engine:     movement.NewEngine(catalog, nil),
		Warehouses: whs,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	cfg := documents.Config{Now: func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }}
	for _, opt := range opts {
		opt(&deps, &cfg)
	}
	return fixture{ledger: ledger, store: store, service: documents.NewService(deps, cfg)}
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func ptr(v int64) *int64 { return &v }

func boltKey(warehouse, location int64) inventory.Key {
	return inventory.Key{WarehouseID: warehouse, LocationID: location, GoodsModelID: boltID, LotNumber: "L1"}
}

func (f fixture) seed(location int64, onhand int64) {
	f.ledger.Seed(inventory.Balance{Key: boltKey(central, location), Onhand: qty(onhand), Reserved: decimal.Zero})
}

func (f fixture) onhand(warehouse, location int64) string {
	return f.ledger.Balance(boltKey(warehouse, location)).Onhand.String()
}

func (f fixture) create(t *testing.T, in documents.DocumentInput) documents.Document {
	t.Helper()
	if in.WarehouseID == 0 {
		in.WarehouseID = central
	}
	doc, err := f.service.Create(context.Background(), operator, in, "")
	require.NoError(t, err)
	require.Equal(t, documents.StatusDraft, doc.Status)
	return doc
}

func (f fixture) walk(t *testing.T, doc documents.Document, statuses ...documents.Status) documents.Result {
	t.Helper()
	var res documents.Result
	for _, s := range statuses {
		var err error
		res, err = f.service.Transition(context.Background(), operator, doc.Type, doc.ID, string(s), "")
		require.NoError(t, err, "transition to %s", s)
		require.Equal(t, s, res.Document.Status)
	}
	return res
}

func boltLine(n int64, source, destination *int64) documents.LineInput {
	return documents.LineInput{GoodsModelID: boltID, Quantity: qty(n), LotNumber: "L1", SourceLocationID: source, DestinationLocationID: destination}
}

func requireReplayMatches(t *testing.T, ledger *inventorytest.Ledger) {
	t.Helper()
	replayed := inventory.Replay(ledger.Movements())
	for _, b := range ledger.Balances() {
		r := replayed[b.Key]
		require.True(t, b.Onhand.Equal(r.Onhand), "onhand of %s: ledger %s replay %s", b.Key, b.Onhand, r.Onhand)
		require.True(t, b.Reserved.Equal(r.Reserved), "reserved of %s: ledger %s replay %s", b.Key, b.Reserved, r.Reserved)
	}
}

func TestReceiptThenPutaway(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gr := f.create(t, documents.DocumentInput{Type: documents.TypeGoodsReceipt, Lines: []documents.LineInput{boltLine(100, nil, ptr(dock))}})
	require.Equal(t, "GR-20260301-00001", gr.Code)
	f.walk(t, gr, documents.StatusCreated, documents.StatusReceiving)

	res, err := f.service.GRConfirmLine(ctx, operator, documents.GRConfirmLineInput{DocumentID: gr.ID, LineNumber: 1, Quantity: qty(100)}, "")
	require.NoError(t, err)
	require.Len(t, res.Movements, 1)
	require.Equal(t, inventory.MovementReceipt, res.Movements[0].Type)

	res, err = f.service.GRConfirmReceipt(ctx, operator, gr.ID, "")
	require.NoError(t, err)
	require.Equal(t, documents.StatusApproved, res.Document.Status)
	f.walk(t, gr, documents.StatusCompleted)
	require.Equal(t, "100", f.onhand(central, dock))

	pa := f.create(t, documents.DocumentInput{Type: documents.TypePutaway, Lines: []documents.LineInput{boltLine(60, ptr(dock), ptr(shelfA))}})
	require.Equal(t, "PA-20260301-00001", pa.Code)
	f.walk(t, pa, documents.StatusMoving)

	res, err = f.service.PutawayExecuteLine(ctx, operator, documents.PutawayExecuteLineInput{DocumentID: pa.ID, LineNumber: 1}, "")
	require.NoError(t, err)
	require.Equal(t, documents.StatusCompleted, res.Document.Status)
	require.Len(t, res.Movements, 2)
	require.Equal(t, "40", f.onhand(central, dock))
	require.Equal(t, "60", f.onhand(central, shelfA))
	requireReplayMatches(t, f.ledger)
}

func TestReceiptRejectsOverReceiptAndContradictingLot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gr := f.create(t, documents.DocumentInput{Type: documents.TypeGoodsReceipt, Lines: []documents.LineInput{boltLine(10, nil, ptr(dock))}})
	f.walk(t, gr, documents.StatusCreated, documents.StatusReceiving)

	_, err := f.service.GRConfirmLine(ctx, operator, documents.GRConfirmLineInput{DocumentID: gr.ID, LineNumber: 1, Quantity: qty(11)}, "")
	require.ErrorIs(t, err, documents.ErrValidation)
	var lineErr *movement.LineError
	require.ErrorAs(t, err, &lineErr)
	require.Equal(t, 1, lineErr.LineNumber)
	require.Equal(t, movement.KindValidation, lineErr.Kind())
	_, err = f.service.GRConfirmLine(ctx, operator, documents.GRConfirmLineInput{DocumentID: gr.ID, LineNumber: 1, Quantity: qty(5), LotNumber: "L2"}, "")
	require.ErrorIs(t, err, documents.ErrValidation)

	_, err = f.service.GRConfirmLine(ctx, operator, documents.GRConfirmLineInput{DocumentID: gr.ID, LineNumber: 1, Quantity: qty(4)}, "")
	require.NoError(t, err)
	res, err := f.service.GRConfirmReceipt(ctx, operator, gr.ID, "")
	require.NoError(t, err)
	require.Equal(t, documents.StatusPartialReceived, res.Document.Status)
	require.Equal(t, "4", f.onhand(central, dock))
}

func TestIssueOversellIsRejectedAtomically(t *testing.T) {
	f := newFixture(t)
	f.seed(shelfA, 100)
	f.seed(shelfB, 20)

	gi := f.create(t, documents.DocumentInput{Type: documents.TypeGoodsIssue, Lines: []documents.LineInput{
		boltLine(10, ptr(shelfB), nil),
		boltLine(150, ptr(shelfA), nil),
	}})
	f.walk(t, gi, documents.StatusCreated)

	_, err := f.service.Transition(context.Background(), operator, documents.TypeGoodsIssue, gi.ID, string(documents.StatusPicking), "")
	var lineErr *movement.LineError
	require.ErrorAs(t, err, &lineErr)
	require.Equal(t, 2, lineErr.LineNumber)
	require.Equal(t, movement.KindInsufficientStock, lineErr.Kind())
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	require.Equal(t, documents.StatusCreated, f.store.Document(gi.ID).Status)
	require.True(t, f.ledger.Balance(boltKey(central, shelfB)).Reserved.IsZero())
	require.Empty(t, f.ledger.Movements())
}

func TestIssueShortPickReleasesRemainder(t *testing.T) {
	f := newFixture(t)
	f.seed(shelfA, 100)
	gi := f.create(t, documents.DocumentInput{Type: documents.TypeGoodsIssue, Lines: []documents.LineInput{boltLine(30, ptr(shelfA), nil)}})
	f.walk(t, gi, documents.StatusCreated, documents.StatusPicking)
	require.Equal(t, "30", f.ledger.Balance(boltKey(central, shelfA)).Reserved.String())

	res, err := f.service.GIPickLine(context.Background(), operator, documents.GIPickLineInput{DocumentID: gi.ID, LineNumber: 1, PickedQuantity: qty(25)}, "")
	require.NoError(t, err)
	require.Equal(t, documents.StatusPicked, res.Document.Status)

	b := f.ledger.Balance(boltKey(central, shelfA))
	require.Equal(t, "75", b.Onhand.String())
	require.True(t, b.Reserved.IsZero())
	f.walk(t, gi, documents.StatusCompleted)
}

func TestIssueCancelReleasesReservation(t *testing.T) {
	f := newFixture(t)
	f.seed(shelfA, 100)
	gi := f.create(t, documents.DocumentInput{Type: documents.TypeGoodsIssue, Lines: []documents.LineInput{boltLine(30, ptr(shelfA), nil)}})
	f.walk(t, gi, documents.StatusCreated, documents.StatusPicking, documents.StatusCancelled)

	b := f.ledger.Balance(boltKey(central, shelfA))
	require.Equal(t, "100", b.Onhand.String())
	require.True(t, b.Reserved.IsZero())
	require.NotNil(t, f.store.Document(gi.ID).CancelledAt)
}

func TestIssueCancelAfterPickReturnsStock(t *testing.T) {
	f := newFixture(t)
	f.seed(shelfA, 100)
	gi := f.create(t, documents.DocumentInput{Type: documents.TypeGoodsIssue, Lines: []documents.LineInput{boltLine(30, ptr(shelfA), nil)}})
	f.walk(t, gi, documents.StatusCreated, documents.StatusPicking, documents.StatusPicked)
	require.Equal(t, "70", f.onhand(central, shelfA))

	res := f.walk(t, gi, documents.StatusCancelled)
	require.Len(t, res.Movements, 1)
	require.Equal(t, inventory.MovementIssue, res.Movements[0].Type)
	require.Equal(t, "30", res.Movements[0].QuantityChange.String())

	b := f.ledger.Balance(boltKey(central, shelfA))
	require.Equal(t, "100", b.Onhand.String())
	require.True(t, b.Reserved.IsZero())

	var net decimal.Decimal
	for _, m := range f.ledger.Movements() {
		net = net.Add(m.QuantityChange)
	}
	require.True(t, net.IsZero(), "cancelled issue left a net change of %s", net)
}

func TestIssueCancelMidPickingReturnsPickedAndReleasesRest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(shelfA, 100)
	f.seed(shelfB, 50)
	gi := f.create(t, documents.DocumentInput{Type: documents.TypeGoodsIssue, Lines: []documents.LineInput{
		boltLine(30, ptr(shelfA), nil),
		boltLine(20, ptr(shelfB), nil),
	}})
	f.walk(t, gi, documents.StatusCreated, documents.StatusPicking)

	_, err := f.service.GIPickLine(ctx, operator, documents.GIPickLineInput{DocumentID: gi.ID, LineNumber: 1, PickedQuantity: qty(25)}, "")
	require.NoError(t, err)
	require.Equal(t, "75", f.onhand(central, shelfA))
	require.Equal(t, "20", f.ledger.Balance(boltKey(central, shelfB)).Reserved.String())

	f.walk(t, gi, documents.StatusCancelled)
	for _, loc := range []int64{shelfA, shelfB} {
		b := f.ledger.Balance(boltKey(central, loc))
		require.True(t, b.Reserved.IsZero(), "reserved at %d", loc)
	}
	require.Equal(t, "100", f.onhand(central, shelfA))
	require.Equal(t, "50", f.onhand(central, shelfB))
}

func TestConcurrentIssuesNeverOversell(t *testing.T) {
	f := newFixture(t)
	f.seed(shelfA, 100)
	var ids []int64
	for range 2 {
		gi := f.create(t, documents.DocumentInput{Type: documents.TypeGoodsIssue, Lines: []documents.LineInput{boltLine(60, ptr(shelfA), nil)}})
		f.walk(t, gi, documents.StatusCreated)
		ids = append(ids, gi.ID)
	}

	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.service.Transition(context.Background(), operator, documents.TypeGoodsIssue, id, string(documents.StatusPicking), "")
		}()
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, inventory.ErrInsufficientStock)
			failed++
		}
	}
	require.Equal(t, 1, failed)
	b := f.ledger.Balance(boltKey(central, shelfA))
	require.Equal(t, "60", b.Reserved.String())
	require.Equal(t, "100", b.Onhand.String())
}

func TestCountAdjustsDifference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(shelfA, 100)

	ic := f.create(t, documents.DocumentInput{Type: documents.TypeCount, Lines: []documents.LineInput{boltLine(0, ptr(shelfA), nil)}})
	res := f.walk(t, ic, documents.StatusCreated)
	require.Equal(t, "100", res.Document.Lines[0].SystemQuantity.String())
	f.walk(t, ic, documents.StatusCounting)

	_, err := f.service.Transition(ctx, operator, documents.TypeCount, ic.ID, string(documents.StatusCompleted), "")
	require.ErrorIs(t, err, documents.ErrValidation)

	_, err = f.service.ICRecordCount(ctx, operator, documents.ICRecordCountInput{DocumentID: ic.ID, LineNumber: 1, CountedQuantity: qty(95)}, "")
	require.NoError(t, err)
	res = f.walk(t, ic, documents.StatusCompleted)
	require.Len(t, res.Movements, 1)
	require.Equal(t, inventory.MovementCountAdjustment, res.Movements[0].Type)
	require.Equal(t, "-5", res.Movements[0].QuantityChange.String())
	require.Equal(t, "95", f.onhand(central, shelfA))
}

func TestCountWithoutDifferenceWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.seed(shelfA, 100)
	ic := f.create(t, documents.DocumentInput{Type: documents.TypeCount, Lines: []documents.LineInput{boltLine(0, ptr(shelfA), nil)}})
	f.walk(t, ic, documents.StatusCreated, documents.StatusCounting)
	_, err := f.service.ICRecordCount(context.Background(), operator, documents.ICRecordCountInput{DocumentID: ic.ID, LineNumber: 1, CountedQuantity: qty(100)}, "")
	require.NoError(t, err)
	res := f.walk(t, ic, documents.StatusCompleted)
	require.Empty(t, res.Movements)
	require.Empty(t, f.ledger.Movements())
}

func TestPutawayIntoRestrictedLocationLeavesLedgerUnchanged(t *testing.T) {
	f := newFixture(t)
	f.seed(dock, 100)
	pa := f.create(t, documents.DocumentInput{Type: documents.TypePutaway, Lines: []documents.LineInput{boltLine(60, ptr(dock), ptr(cold))}})
	f.walk(t, pa, documents.StatusMoving)

	_, err := f.service.PutawayExecuteLine(context.Background(), operator, documents.PutawayExecuteLineInput{DocumentID: pa.ID, LineNumber: 1}, "")
	var lineErr *movement.LineError
	require.ErrorAs(t, err, &lineErr)
	require.Equal(t, movement.KindLocationRestriction, lineErr.Kind())
	require.Equal(t, "100", f.onhand(central, dock))
	require.Equal(t, "0", f.onhand(central, cold))
	require.Empty(t, f.ledger.Movements())
	require.Equal(t, documents.StatusMoving, f.store.Document(pa.ID).Status)
}

func TestTransferArrivesReceivedQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(shelfA, 100)
	gt := f.create(t, documents.DocumentInput{Type: documents.TypeGoodsTransfer, ToWarehouseID: ptr(branch),
		Lines: []documents.LineInput{boltLine(30, ptr(shelfA), ptr(inbound))}})

	_, err := f.service.Transition(ctx, operator, documents.TypeGoodsTransfer, gt.ID, string(documents.StatusCreated), "")
	require.NoError(t, err)
	res, err := f.service.GTConfirm(ctx, operator, gt.ID, "")
	require.NoError(t, err)
	require.Equal(t, documents.StatusInTransit, res.Document.Status)
	require.Equal(t, "70", f.onhand(central, shelfA))

	f.walk(t, gt, documents.StatusReceiving)
	_, err = f.service.GTReceiveLine(ctx, operator, documents.GTReceiveLineInput{DocumentID: gt.ID, LineNumber: 1, ReceivedQuantity: qty(25)}, "")
	require.NoError(t, err)
	res = f.walk(t, gt, documents.StatusCompleted)
	require.Len(t, res.Movements, 1)
	require.Equal(t, inventory.MovementTransferIn, res.Movements[0].Type)
	require.Equal(t, "25", f.onhand(branch, inbound))
}

func TestTransferCancelReturnsStockToSource(t *testing.T) {
	f := newFixture(t)
	f.seed(shelfA, 100)
	gt := f.create(t, documents.DocumentInput{Type: documents.TypeGoodsTransfer, ToWarehouseID: ptr(branch),
		Lines: []documents.LineInput{boltLine(30, ptr(shelfA), ptr(inbound))}})
	f.walk(t, gt, documents.StatusCreated, documents.StatusInTransit)
	require.Equal(t, "70", f.onhand(central, shelfA))

	f.walk(t, gt, documents.StatusCancelled)
	require.Equal(t, "100", f.onhand(central, shelfA))
	require.Equal(t, "0", f.onhand(branch, inbound))
}

type recordingScheduler struct {
	calls []int64
	err   error
}

func (s *recordingScheduler) EnqueueCountSnapshot(_ context.Context, _, documentID int64) error {
	s.calls = append(s.calls, documentID)
	return s.err
}

func TestWholeWarehouseCountIsSnapshottedInChunks(t *testing.T) {
	f := newFixture(t, func(_ *documents.Deps, cfg *documents.Config) { cfg.SnapshotChunk = 1 })
	f.seed(shelfA, 100)
	f.seed(shelfB, 0)
	f.seed(dock, 7)

	ic := f.create(t, documents.DocumentInput{Type: documents.TypeCount})
	res := f.walk(t, ic, documents.StatusCreated)
	require.Len(t, res.Document.Lines, 2)
	for i, l := range res.Document.Lines {
		require.Equal(t, i+1, l.LineNumber)
		require.NotNil(t, l.SystemQuantity)
		require.True(t, l.SystemQuantity.Equal(l.Quantity))
	}

	added, err := f.service.SnapshotCount(context.Background(), org, ic.ID)
	require.NoError(t, err)
	require.Zero(t, added)
}

func TestWholeWarehouseCountIsQueued(t *testing.T) {
	scheduler := &recordingScheduler{}
	f := newFixture(t, func(deps *documents.Deps, _ *documents.Config) { deps.Snapshots = scheduler })
	f.seed(shelfA, 100)

	ic := f.create(t, documents.DocumentInput{Type: documents.TypeCount})
	res := f.walk(t, ic, documents.StatusCreated)
	require.Equal(t, []int64{ic.ID}, scheduler.calls)
	require.Empty(t, res.Document.Lines)

	scheduler.err = errors.New("redis down")
	ic2 := f.create(t, documents.DocumentInput{Type: documents.TypeCount})
	res = f.walk(t, ic2, documents.StatusCreated)
	require.Len(t, res.Document.Lines, 1)
}

func TestQueuedCountCannotStartBeforeSnapshot(t *testing.T) {
	scheduler := &recordingScheduler{}
	f := newFixture(t, func(deps *documents.Deps, _ *documents.Config) { deps.Snapshots = scheduler })
	ctx := context.Background()
	f.seed(shelfA, 100)

	ic := f.create(t, documents.DocumentInput{Type: documents.TypeCount})
	f.walk(t, ic, documents.StatusCreated)

	_, err := f.service.Transition(ctx, operator, documents.TypeCount, ic.ID, string(documents.StatusCounting), "")
	require.ErrorIs(t, err, documents.ErrValidation)
	require.Equal(t, documents.StatusCreated, f.store.Document(ic.ID).Status)

	added, err := f.service.SnapshotCount(ctx, org, ic.ID)
	require.NoError(t, err)
	require.Equal(t, 1, added)
	f.walk(t, ic, documents.StatusCounting)
}

func TestDraftOnlyEditing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gr := f.create(t, documents.DocumentInput{Type: documents.TypeGoodsReceipt, Lines: []documents.LineInput{boltLine(5, nil, ptr(dock))}})

	updated, err := f.service.Update(ctx, operator, gr.ID, documents.DocumentInput{Type: documents.TypeGoodsReceipt, WarehouseID: central, Reference: "PO-9",
		Lines: []documents.LineInput{boltLine(5, nil, ptr(dock)), boltLine(6, nil, ptr(dock))}})
	require.NoError(t, err)
	require.Equal(t, "PO-9", updated.Reference)
	require.Len(t, updated.Lines, 2)

	f.walk(t, gr, documents.StatusCreated)
	_, err = f.service.Update(ctx, operator, gr.ID, documents.DocumentInput{Type: documents.TypeGoodsReceipt, WarehouseID: central})
	require.ErrorIs(t, err, documents.ErrInvalidTransition)
	require.ErrorIs(t, f.service.Delete(ctx, operator, documents.TypeGoodsReceipt, gr.ID), documents.ErrInvalidTransition)

	_, err = f.service.Transition(ctx, operator, documents.TypeGoodsReceipt, gr.ID, string(documents.StatusCompleted), "")
	require.ErrorIs(t, err, documents.ErrInvalidTransition)
}

func TestCreateValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := map[string]documents.DocumentInput{
		"unknown warehouse":    {Type: documents.TypeGoodsReceipt, WarehouseID: 99, Lines: []documents.LineInput{boltLine(1, nil, ptr(dock))}},
		"transfer target":      {Type: documents.TypeGoodsTransfer, WarehouseID: central, Lines: []documents.LineInput{boltLine(1, ptr(shelfA), ptr(inbound))}},
		"zero quantity":        {Type: documents.TypeGoodsIssue, WarehouseID: central, Lines: []documents.LineInput{boltLine(0, ptr(shelfA), nil)}},
		"missing destination":  {Type: documents.TypeGoodsReceipt, WarehouseID: central, Lines: []documents.LineInput{boltLine(1, nil, nil)}},
		"scoped count w/lines": {Type: documents.TypeCount, WarehouseID: central, ScopeLocationID: ptr(shelfA), Lines: []documents.LineInput{boltLine(0, ptr(shelfA), nil)}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.service.Create(ctx, operator, in, "")
			require.Error(t, err)
		})
	}
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[module+"/"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+"/"+key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, module+"/"+key)
	return nil
}

func TestIdempotencyKeyGuardsReplays(t *testing.T) {
	idem := &memoryIdempotency{keys: map[string]bool{}}
	f := newFixture(t, func(deps *documents.Deps, _ *documents.Config) { deps.Idempotency = idem })
	ctx := context.Background()
	f.seed(shelfA, 10)
	gi := f.create(t, documents.DocumentInput{Type: documents.TypeGoodsIssue, Lines: []documents.LineInput{boltLine(20, ptr(shelfA), nil)}})
	f.walk(t, gi, documents.StatusCreated)

	_, err := f.service.Transition(ctx, operator, documents.TypeGoodsIssue, gi.ID, string(documents.StatusPicking), "k-1")
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	f.seed(shelfA, 50)
	_, err = f.service.Transition(ctx, operator, documents.TypeGoodsIssue, gi.ID, string(documents.StatusPicking), "k-1")
	require.NoError(t, err)

	_, err = f.service.Transition(ctx, operator, documents.TypeGoodsIssue, gi.ID, string(documents.StatusPicking), "k-1")
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
}
