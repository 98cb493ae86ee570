package inventory_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/inventory/inventorytest"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/cache"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func qty(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func post(t *testing.T, ledger *inventorytest.Ledger, typ inventory.MovementType, key inventory.Key, onhand, reserved string) {
	t.Helper()
	err := ledger.WithTx(context.Background(), func(ctx context.Context, tx inventory.TxRepository) error {
		b, err := tx.GetBalanceForUpdate(ctx, key)
		if err != nil {
			return err
		}
		next, err := inventory.ApplyDelta(b, qty(onhand), qty(reserved))
		if err != nil {
			return err
		}
		if err := tx.UpsertBalance(ctx, next); err != nil {
			return err
		}
		_, err = tx.InsertMovement(ctx, inventory.Movement{Type: typ, Key: key, QuantityChange: qty(onhand), ReservedChange: qty(reserved)})
		return err
	})
	require.NoError(t, err)
}

func TestVerifyReportsConsistentLedger(t *testing.T) {
	ledger := inventorytest.NewLedger()
	ledger.Warehouses[1] = 7
	key := inventory.Key{WarehouseID: 1, LocationID: 10, GoodsModelID: 100}
	post(t, ledger, inventory.MovementReceipt, key, "100", "0")
	post(t, ledger, inventory.MovementIssue, key, "0", "20")
	post(t, ledger, inventory.MovementIssue, key, "-20", "-20")

	svc := inventory.NewService(ledger, nil, quietLogger(), inventory.ServiceConfig{VerifyBatchSize: 2})
	report, err := svc.Verify(context.Background(), 7, 0)
	require.NoError(t, err)
	require.True(t, report.Consistent())
	require.Equal(t, 3, report.Movements)
	require.Equal(t, 1, report.Entries)
}

func TestVerifyDetectsDrift(t *testing.T) {
	ledger := inventorytest.NewLedger()
	key := inventory.Key{WarehouseID: 1, LocationID: 10, GoodsModelID: 100}
	post(t, ledger, inventory.MovementReceipt, key, "100", "0")

	tampered := ledger.Balance(key)
	tampered.Onhand = qty("90")
	ledger.Seed(tampered)
	orphan := inventory.Key{WarehouseID: 1, LocationID: 11, GoodsModelID: 100}
	ledger.Seed(inventory.Balance{Key: orphan, Onhand: qty("3")})

	svc := inventory.NewService(ledger, nil, quietLogger(), inventory.ServiceConfig{})
	report, err := svc.Verify(context.Background(), 0, 1)
	require.NoError(t, err)
	require.False(t, report.Consistent())
	require.Len(t, report.Drifts, 2)
	require.Equal(t, key, report.Drifts[0].Key)
	require.True(t, report.Drifts[0].StoredOnhand.Equal(qty("90")))
	require.True(t, report.Drifts[0].ReplayedOnhand.Equal(qty("100")))
	require.Equal(t, orphan, report.Drifts[1].Key)
	require.True(t, report.Drifts[1].ReplayedOnhand.IsZero())
}

func TestSummaryCachedUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ledger := inventorytest.NewLedger()
	ledger.Warehouses[1] = 7
	a := inventory.Key{WarehouseID: 1, LocationID: 10, GoodsModelID: 100}
	b := inventory.Key{WarehouseID: 1, LocationID: 11, GoodsModelID: 100}
	post(t, ledger, inventory.MovementReceipt, a, "60", "0")
	post(t, ledger, inventory.MovementReceipt, b, "40", "0")
	post(t, ledger, inventory.MovementIssue, b, "0", "15")

	svc := inventory.NewService(ledger, cache.NewVersioned(client, "inventory:summary", time.Minute), quietLogger(), inventory.ServiceConfig{})
	ctx := context.Background()

	rows, err := svc.Summary(ctx, inventory.SummaryFilter{OrganizationID: 7})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Onhand.Equal(qty("100")))
	require.True(t, rows[0].Reserved.Equal(qty("15")))
	require.True(t, rows[0].Available.Equal(qty("85")))

	post(t, ledger, inventory.MovementReceipt, a, "5", "0")
	rows, err = svc.Summary(ctx, inventory.SummaryFilter{OrganizationID: 7})
	require.NoError(t, err)
	require.True(t, rows[0].Onhand.Equal(qty("100")), "served from cache")

	require.NoError(t, svc.InvalidateSummary(ctx))
	rows, err = svc.Summary(ctx, inventory.SummaryFilter{OrganizationID: 7})
	require.NoError(t, err)
	require.True(t, rows[0].Onhand.Equal(qty("105")))
}

func TestGetBalanceUnknownKeyIsZero(t *testing.T) {
	ledger := inventorytest.NewLedger()
	svc := inventory.NewService(ledger, nil, quietLogger(), inventory.ServiceConfig{})
	key := inventory.Key{WarehouseID: 1, LocationID: 10, GoodsModelID: 100, LotNumber: "L9"}
	b, err := svc.GetBalance(context.Background(), 0, key)
	require.NoError(t, err)
	require.Equal(t, key, b.Key)
	require.True(t, b.Onhand.IsZero())

	_, err = svc.GetBalance(context.Background(), 0, inventory.Key{})
	require.ErrorIs(t, err, inventory.ErrInvalidKey)
}

func TestFailedTransactionLeavesLedgerUntouched(t *testing.T) {
	ledger := inventorytest.NewLedger()
	key := inventory.Key{WarehouseID: 1, LocationID: 10, GoodsModelID: 100}
	post(t, ledger, inventory.MovementReceipt, key, "10", "0")

	err := ledger.WithTx(context.Background(), func(ctx context.Context, tx inventory.TxRepository) error {
		b, err := tx.GetBalanceForUpdate(ctx, key)
		if err != nil {
			return err
		}
		next, err := inventory.ApplyDelta(b, qty("-4"), decimal.Zero)
		if err != nil {
			return err
		}
		if err := tx.UpsertBalance(ctx, next); err != nil {
			return err
		}
		_, err = inventory.ApplyDelta(next, qty("-7"), decimal.Zero)
		return err
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	require.True(t, ledger.Balance(key).Onhand.Equal(qty("10")))
	require.Len(t, ledger.Movements(), 1)
}
