package movement_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/inventory/inventorytest"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/goodsmodels"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/locations"
	"github.com/odyssey-erp/odyssey-wms/internal/movement"
	"github.com/odyssey-erp/odyssey-wms/internal/movement/movementtest"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

const (
	org       = int64(1)
	warehouse = int64(10)
	dock      = int64(100)
	shelfA    = int64(101)
	shelfB    = int64(102)
	cold      = int64(103)
	boltID    = int64(7)
	phoneID   = int64(8)
)

type countingObserver struct {
	mu       sync.Mutex
	recorded map[inventory.MovementType]int
	rejected map[movement.Kind]int
}

func (o *countingObserver) MovementRecorded(t inventory.MovementType) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recorded[t]++
}

func (o *countingObserver) LineRejected(k movement.Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected[k]++
}

type fixture struct {
	ledger   *inventorytest.Ledger
	engine   *movement.Engine
	observer *countingObserver
	mc       movement.Context
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	catalog := movementtest.NewCatalog()
	catalog.AddModel(goodsmodels.GoodsModel{ID: boltID, OrganizationID: org, Code: "BOLT", TrackingType: goodsmodels.TrackingLot})
	catalog.AddModel(goodsmodels.GoodsModel{ID: phoneID, OrganizationID: org, Code: "PHONE", TrackingType: goodsmodels.TrackingSerial})
	catalog.AddLocation(locations.Location{ID: dock, OrganizationID: org, WarehouseID: warehouse, Code: "DOCK", IsReceivable: true, IsActive: true})
	catalog.AddLocation(locations.Location{ID: shelfA, OrganizationID: org, WarehouseID: warehouse, Code: "A", IsActive: true})
	catalog.AddLocation(locations.Location{ID: shelfB, OrganizationID: org, WarehouseID: warehouse, Code: "B", IsActive: true})
	catalog.AddLocation(locations.Location{ID: cold, OrganizationID: org, WarehouseID: warehouse, Code: "COLD", IsActive: true,
		Restriction: locations.RestrictionDisallowed, RestrictedModelIDs: []int64{boltID}})

	ledger := inventorytest.NewLedger()
	ledger.Warehouses[warehouse] = org
	observer := &countingObserver{recorded: map[inventory.MovementType]int{}, rejected: map[movement.Kind]int{}}
	return fixture{
		ledger:   ledger,
		engine:   movement.NewEngine(catalog, observer),
		observer: observer,
		mc: movement.Context{
			Principal:   shared.Principal{UserID: "u-1", OrganizationID: org},
			At:          time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
			OperationID: uuid.New(),
		},
	}
}

func (f fixture) apply(t *testing.T, ins movement.Instruction) ([]inventory.Movement, error) {
	t.Helper()
	var out []inventory.Movement
	err := f.ledger.WithTx(context.Background(), func(ctx context.Context, tx inventory.TxRepository) error {
		var err error
		out, err = f.engine.ApplyLine(ctx, tx, ins, f.mc)
		return err
	})
	return out, err
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func boltKey(location int64) inventory.Key {
	return inventory.Key{WarehouseID: warehouse, LocationID: location, GoodsModelID: boltID, LotNumber: "L1"}
}

func receiveBolts(t *testing.T, f fixture, n int64) {
	t.Helper()
	_, err := f.apply(t, movement.Instruction{
		Action: movement.ActionReceive, DocumentType: "GR", DocumentID: 1, DocumentCode: "GR-20260301-00001", LineID: 11, LineNumber: 1,
		WarehouseID: warehouse, DestinationLocationID: dock, GoodsModelID: boltID, LotNumber: "L1", Quantity: qty(n),
	})
	require.NoError(t, err)
}

func TestReceiveThenPutaway(t *testing.T) {
	f := newFixture(t)
	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	moves, err := f.apply(t, movement.Instruction{
		Action: movement.ActionReceive, DocumentType: "GR", DocumentID: 1, LineID: 11, LineNumber: 1,
		WarehouseID: warehouse, DestinationLocationID: dock, GoodsModelID: boltID, LotNumber: "L1",
		Quantity: qty(100), ExpiryDate: &expiry,
	})
	require.NoError(t, err)
	require.Len(t, moves, 1)
	require.Equal(t, inventory.MovementReceipt, moves[0].Type)
	require.Equal(t, "u-1", moves[0].ActorID)

	moves, err = f.apply(t, movement.Instruction{
		Action: movement.ActionMove, DocumentType: "PUTAWAY", DocumentID: 2, LineID: 21, LineNumber: 1,
		WarehouseID: warehouse, SourceLocationID: dock, DestinationLocationID: shelfA, GoodsModelID: boltID, LotNumber: "L1",
		Quantity: qty(60),
	})
	require.NoError(t, err)
	require.Len(t, moves, 2)
	for _, m := range moves {
		require.Equal(t, inventory.MovementPutaway, m.Type)
		require.Equal(t, int64(21), m.LineID)
	}
	require.True(t, moves[0].QuantityChange.Add(moves[1].QuantityChange).IsZero())

	require.True(t, f.ledger.Balance(boltKey(dock)).Onhand.Equal(qty(40)))
	shelf := f.ledger.Balance(boltKey(shelfA))
	require.True(t, shelf.Onhand.Equal(qty(60)))
	require.NotNil(t, shelf.ExpiryDate)
	require.True(t, shelf.ExpiryDate.Equal(expiry))

	replayed := inventory.Replay(f.ledger.Movements())
	for _, b := range f.ledger.Balances() {
		require.True(t, replayed[b.Key].Onhand.Equal(b.Onhand), b.Key.String())
		require.True(t, replayed[b.Key].Reserved.Equal(b.Reserved), b.Key.String())
	}
	require.Equal(t, 1, f.observer.recorded[inventory.MovementReceipt])
	require.Equal(t, 2, f.observer.recorded[inventory.MovementPutaway])
}

func TestReserveRejectsOversell(t *testing.T) {
	f := newFixture(t)
	receiveBolts(t, f, 100)
	before := f.ledger.Movements()

	_, err := f.apply(t, movement.Instruction{
		Action: movement.ActionReserve, DocumentType: "GI", DocumentID: 3, LineID: 31, LineNumber: 1,
		WarehouseID: warehouse, SourceLocationID: dock, GoodsModelID: boltID, LotNumber: "L1", Quantity: qty(150),
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	var le *movement.LineError
	require.ErrorAs(t, err, &le)
	require.Equal(t, 1, le.LineNumber)

	b := f.ledger.Balance(boltKey(dock))
	require.True(t, b.Onhand.Equal(qty(100)))
	require.True(t, b.Reserved.IsZero())
	require.Equal(t, before, f.ledger.Movements())
	require.Equal(t, 1, f.observer.rejected[movement.KindInsufficientStock])
}

func TestPutawayIntoDisallowedLocationLeavesLedgerUnchanged(t *testing.T) {
	f := newFixture(t)
	receiveBolts(t, f, 100)
	before := f.ledger.Balances()

	_, err := f.apply(t, movement.Instruction{
		Action: movement.ActionMove, DocumentType: "PUTAWAY", DocumentID: 4, LineID: 41, LineNumber: 1,
		WarehouseID: warehouse, SourceLocationID: dock, DestinationLocationID: cold, GoodsModelID: boltID, LotNumber: "L1", Quantity: qty(10),
	})
	require.ErrorIs(t, err, inventory.ErrLocationRestriction)
	require.Equal(t, before, f.ledger.Balances())
	require.Len(t, f.ledger.Movements(), 1)
}

func TestViolationsAreAggregated(t *testing.T) {
	f := newFixture(t)

	_, err := f.apply(t, movement.Instruction{
		Action: movement.ActionReceive, DocumentType: "GR", DocumentID: 5, LineID: 51, LineNumber: 3,
		WarehouseID: warehouse, DestinationLocationID: shelfA, GoodsModelID: boltID, Quantity: qty(5),
	})
	var le *movement.LineError
	require.ErrorAs(t, err, &le)
	require.Equal(t, 3, le.LineNumber)
	require.Len(t, le.Violations, 2)
	require.ErrorIs(t, err, inventory.ErrTrackingMismatch)
	require.ErrorIs(t, err, inventory.ErrLocationRestriction)
	require.Empty(t, f.ledger.Movements())
}

func TestSerialQuantityMustBeOne(t *testing.T) {
	f := newFixture(t)

	_, err := f.apply(t, movement.Instruction{
		Action: movement.ActionReceive, DocumentType: "GR", DocumentID: 6, LineID: 61, LineNumber: 1,
		WarehouseID: warehouse, DestinationLocationID: dock, GoodsModelID: phoneID, SerialNumber: "SN-1", Quantity: qty(2),
	})
	require.ErrorIs(t, err, inventory.ErrTrackingMismatch)

	_, err = f.apply(t, movement.Instruction{
		Action: movement.ActionReceive, DocumentType: "GR", DocumentID: 6, LineID: 61, LineNumber: 1,
		WarehouseID: warehouse, DestinationLocationID: dock, GoodsModelID: phoneID, SerialNumber: "SN-1", Quantity: qty(1),
	})
	require.NoError(t, err)
}

func TestShortPickReleasesRemainder(t *testing.T) {
	f := newFixture(t)
	receiveBolts(t, f, 100)

	_, err := f.apply(t, movement.Instruction{
		Action: movement.ActionReserve, DocumentType: "GI", DocumentID: 7, LineID: 71, LineNumber: 1,
		WarehouseID: warehouse, SourceLocationID: dock, GoodsModelID: boltID, LotNumber: "L1", Quantity: qty(10),
	})
	require.NoError(t, err)
	require.True(t, f.ledger.Balance(boltKey(dock)).Available().Equal(qty(90)))

	moves, err := f.apply(t, movement.Instruction{
		Action: movement.ActionPick, DocumentType: "GI", DocumentID: 7, LineID: 71, LineNumber: 1,
		WarehouseID: warehouse, SourceLocationID: dock, GoodsModelID: boltID, LotNumber: "L1", Quantity: qty(7), Reserved: qty(10),
	})
	require.NoError(t, err)
	require.Len(t, moves, 1)
	require.True(t, moves[0].QuantityChange.Equal(qty(-7)))
	require.True(t, moves[0].ReservedChange.Equal(qty(-10)))

	b := f.ledger.Balance(boltKey(dock))
	require.True(t, b.Onhand.Equal(qty(93)))
	require.True(t, b.Reserved.IsZero())
}

func TestAdjustBringsLedgerToCountedQuantity(t *testing.T) {
	f := newFixture(t)
	receiveBolts(t, f, 100)

	adjust := movement.Instruction{
		Action: movement.ActionAdjust, DocumentType: "IC", DocumentID: 8, LineID: 81, LineNumber: 1,
		WarehouseID: warehouse, SourceLocationID: dock, GoodsModelID: boltID, LotNumber: "L1", Quantity: qty(95),
	}
	moves, err := f.apply(t, adjust)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	require.Equal(t, inventory.MovementCountAdjustment, moves[0].Type)
	require.True(t, moves[0].QuantityChange.Equal(qty(-5)))
	require.True(t, f.ledger.Balance(boltKey(dock)).Onhand.Equal(qty(95)))

	moves, err = f.apply(t, adjust)
	require.NoError(t, err)
	require.Empty(t, moves)
}

func TestShipAndArriveAcrossWarehouses(t *testing.T) {
	f := newFixture(t)
	receiveBolts(t, f, 20)

	_, err := f.apply(t, movement.Instruction{
		Action: movement.ActionShip, DocumentType: "GT", DocumentID: 9, LineID: 91, LineNumber: 1,
		WarehouseID: warehouse, SourceLocationID: dock, GoodsModelID: boltID, LotNumber: "L1", Quantity: qty(25),
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	_, err = f.apply(t, movement.Instruction{
		Action: movement.ActionShip, DocumentType: "GT", DocumentID: 9, LineID: 91, LineNumber: 1,
		WarehouseID: warehouse, SourceLocationID: dock, GoodsModelID: boltID, LotNumber: "L1", Quantity: qty(20),
	})
	require.NoError(t, err)

	_, err = f.apply(t, movement.Instruction{
		Action: movement.ActionArrive, DocumentType: "GT", DocumentID: 9, LineID: 91, LineNumber: 1,
		WarehouseID: warehouse, ToWarehouseID: warehouse, DestinationLocationID: cold, GoodsModelID: boltID, LotNumber: "L1", Quantity: qty(20),
	})
	require.ErrorIs(t, err, inventory.ErrLocationRestriction)

	_, err = f.apply(t, movement.Instruction{
		Action: movement.ActionArrive, DocumentType: "GT", DocumentID: 9, LineID: 91, LineNumber: 1,
		WarehouseID: warehouse, DestinationLocationID: shelfB, GoodsModelID: boltID, LotNumber: "L1", Quantity: qty(18),
	})
	require.NoError(t, err)
	require.True(t, f.ledger.Balance(boltKey(shelfB)).Onhand.Equal(qty(18)))
	require.True(t, f.ledger.Balance(boltKey(dock)).Onhand.IsZero())
}

func TestUnknownLocationIsValidationError(t *testing.T) {
	f := newFixture(t)
	_, err := f.apply(t, movement.Instruction{
		Action: movement.ActionReceive, DocumentType: "GR", DocumentID: 1, LineID: 1, LineNumber: 1,
		WarehouseID: warehouse, DestinationLocationID: 999, GoodsModelID: boltID, LotNumber: "L1", Quantity: qty(1),
	})
	require.ErrorIs(t, err, movement.ErrValidation)
}

func phoneKey(location int64) inventory.Key {
	return inventory.Key{WarehouseID: warehouse, LocationID: location, GoodsModelID: phoneID, SerialNumber: "SN-1"}
}

func TestSerialIsOnHandOnceInWarehouse(t *testing.T) {
	f := newFixture(t)
	receive := movement.Instruction{
		Action: movement.ActionReceive, DocumentType: "GR", DocumentID: 12, LineID: 121, LineNumber: 1,
		WarehouseID: warehouse, DestinationLocationID: dock, GoodsModelID: phoneID, SerialNumber: "SN-1", Quantity: qty(1),
	}
	_, err := f.apply(t, receive)
	require.NoError(t, err)

	_, err = f.apply(t, receive)
	require.ErrorIs(t, err, inventory.ErrTrackingMismatch)
	require.True(t, f.ledger.Balance(phoneKey(dock)).Onhand.Equal(qty(1)))

	_, err = f.apply(t, movement.Instruction{
		Action: movement.ActionArrive, DocumentType: "GT", DocumentID: 13, LineID: 131, LineNumber: 2,
		WarehouseID: warehouse, DestinationLocationID: shelfA, GoodsModelID: phoneID, SerialNumber: "SN-1", Quantity: qty(1),
	})
	var le *movement.LineError
	require.ErrorAs(t, err, &le)
	require.Equal(t, 2, le.LineNumber)
	require.Equal(t, movement.KindTrackingMismatch, le.Kind())
	require.True(t, f.ledger.Balance(phoneKey(shelfA)).Onhand.IsZero())

	moves, err := f.apply(t, movement.Instruction{
		Action: movement.ActionMove, DocumentType: "PUTAWAY", DocumentID: 14, LineID: 141, LineNumber: 1,
		WarehouseID: warehouse, SourceLocationID: dock, DestinationLocationID: shelfA, GoodsModelID: phoneID, SerialNumber: "SN-1", Quantity: qty(1),
	})
	require.NoError(t, err)
	require.Len(t, moves, 2)
	require.True(t, f.ledger.Balance(phoneKey(dock)).Onhand.IsZero())
	require.True(t, f.ledger.Balance(phoneKey(shelfA)).Onhand.Equal(qty(1)))

	_, err = f.apply(t, receive)
	require.ErrorIs(t, err, inventory.ErrTrackingMismatch)
	require.Len(t, f.ledger.Movements(), 3)
	require.Equal(t, 3, f.observer.rejected[movement.KindTrackingMismatch])
}

func TestPutawaySourceMustBeReceiving(t *testing.T) {
	f := newFixture(t)
	receiveBolts(t, f, 50)
	_, err := f.apply(t, movement.Instruction{
		Action: movement.ActionMove, DocumentType: "PUTAWAY", DocumentID: 15, LineID: 151, LineNumber: 1,
		WarehouseID: warehouse, SourceLocationID: dock, DestinationLocationID: shelfA, GoodsModelID: boltID, LotNumber: "L1", Quantity: qty(20),
	})
	require.NoError(t, err)

	_, err = f.apply(t, movement.Instruction{
		Action: movement.ActionMove, DocumentType: "PUTAWAY", DocumentID: 16, LineID: 161, LineNumber: 1,
		WarehouseID: warehouse, SourceLocationID: shelfA, DestinationLocationID: shelfB, GoodsModelID: boltID, LotNumber: "L1", Quantity: qty(5),
	})
	require.ErrorIs(t, err, inventory.ErrLocationRestriction)
	require.True(t, f.ledger.Balance(boltKey(shelfA)).Onhand.Equal(qty(20)))
	require.True(t, f.ledger.Balance(boltKey(shelfB)).Onhand.IsZero())
}

func TestShipCannotTakeReservedStock(t *testing.T) {
	f := newFixture(t)
	receiveBolts(t, f, 100)
	_, err := f.apply(t, movement.Instruction{
		Action: movement.ActionReserve, DocumentType: "GI", DocumentID: 17, LineID: 171, LineNumber: 1,
		WarehouseID: warehouse, SourceLocationID: dock, GoodsModelID: boltID, LotNumber: "L1", Quantity: qty(80),
	})
	require.NoError(t, err)

	_, err = f.apply(t, movement.Instruction{
		Action: movement.ActionShip, DocumentType: "GT", DocumentID: 18, LineID: 181, LineNumber: 1,
		WarehouseID: warehouse, SourceLocationID: dock, GoodsModelID: boltID, LotNumber: "L1", Quantity: qty(30),
	})
	var le *movement.LineError
	require.ErrorAs(t, err, &le)
	require.Equal(t, movement.KindInsufficientStock, le.Kind())
	require.Contains(t, le.Violations[0].Message, "available 20")

	b := f.ledger.Balance(boltKey(dock))
	require.True(t, b.Onhand.Equal(qty(100)))
	require.True(t, b.Reserved.Equal(qty(80)))
}
