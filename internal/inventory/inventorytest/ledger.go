// Package inventorytest provides an in-memory stock ledger for tests.
package inventorytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
)

// Ledger is an in-memory ledger. Transactions are serialised and staged on a
// copy so a failed callback leaves no trace.
type Ledger struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state state
	// Warehouses maps warehouse ids to their organisation for scoped queries.
	Warehouses map[int64]int64
	Now        func() time.Time
}

type state struct {
	balances       map[inventory.Key]inventory.Balance
	movements      []inventory.Movement
	nextBalanceID  int64
	nextMovementID int64
}

func (s state) clone() state {
	out := state{
		balances:       make(map[inventory.Key]inventory.Balance, len(s.balances)),
		movements:      make([]inventory.Movement, len(s.movements)),
		nextBalanceID:  s.nextBalanceID,
		nextMovementID: s.nextMovementID,
	}
	for k, v := range s.balances {
		out.balances[k] = v
	}
	copy(out.movements, s.movements)
	return out
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		state:      state{balances: make(map[inventory.Key]inventory.Balance)},
		Warehouses: make(map[int64]int64),
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// Tx is a staged transaction over the ledger.
type Tx struct {
	ledger *Ledger
	state  state
}

// Begin locks the ledger for writing and stages a copy of its state. Every
// Begin must be followed by Commit or Rollback.
func (l *Ledger) Begin() *Tx {
	l.txMu.Lock()
	l.mu.RLock()
	staged := l.state.clone()
	l.mu.RUnlock()
	return &Tx{ledger: l, state: staged}
}

// Commit publishes the staged state and releases the write lock.
func (l *Ledger) Commit(tx *Tx) {
	l.mu.Lock()
	l.state = tx.state
	l.mu.Unlock()
	l.txMu.Unlock()
}

// Rollback discards the staged state and releases the write lock.
func (l *Ledger) Rollback(*Tx) {
	l.txMu.Unlock()
}

// WithTx runs fn in a staged transaction.
func (l *Ledger) WithTx(ctx context.Context, fn func(context.Context, inventory.TxRepository) error) error {
	tx := l.Begin()
	if err := fn(ctx, tx); err != nil {
		l.Rollback(tx)
		return err
	}
	if err := ctx.Err(); err != nil {
		l.Rollback(tx)
		return err
	}
	l.Commit(tx)
	return nil
}

// Seed writes a balance directly, bypassing the movement log.
func (l *Ledger) Seed(b inventory.Balance) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.state.balances[b.Key]; ok {
		b.ID = existing.ID
	} else {
		l.state.nextBalanceID++
		b.ID = l.state.nextBalanceID
	}
	l.state.balances[b.Key] = b
}

// Balance returns the committed balance of a key.
func (l *Ledger) Balance(key inventory.Key) inventory.Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.state.balances[key]; ok {
		return b
	}
	return inventory.Balance{Key: key}
}

// Movements returns the committed movement log in insertion order.
func (l *Ledger) Movements() []inventory.Movement {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]inventory.Movement, len(l.state.movements))
	copy(out, l.state.movements)
	return out
}

// Balances returns every committed balance ordered by id.
func (l *Ledger) Balances() []inventory.Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return sortedBalances(l.state.balances)
}

func sortedBalances(m map[inventory.Key]inventory.Balance) []inventory.Balance {
	out := make([]inventory.Balance, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (tx *Tx) GetBalance(_ context.Context, key inventory.Key) (inventory.Balance, error) {
	if b, ok := tx.state.balances[key]; ok {
		return b, nil
	}
	return inventory.Balance{Key: key}, inventory.ErrBalanceNotFound
}

func (tx *Tx) GetBalanceForUpdate(_ context.Context, key inventory.Key) (inventory.Balance, error) {
	if err := key.Validate(); err != nil {
		return inventory.Balance{}, err
	}
	if b, ok := tx.state.balances[key]; ok {
		return b, nil
	}
	tx.state.nextBalanceID++
	b := inventory.Balance{ID: tx.state.nextBalanceID, Key: key}
	tx.state.balances[key] = b
	return b, nil
}

func (tx *Tx) UpsertBalance(_ context.Context, b inventory.Balance) error {
	existing, ok := tx.state.balances[b.Key]
	if ok {
		b.ID = existing.ID
		if b.ReceivedDate == nil {
			b.ReceivedDate = existing.ReceivedDate
		}
		if b.ExpiryDate == nil {
			b.ExpiryDate = existing.ExpiryDate
		}
	} else {
		tx.state.nextBalanceID++
		b.ID = tx.state.nextBalanceID
	}
	b.UpdatedAt = tx.ledger.Now()
	tx.state.balances[b.Key] = b
	return nil
}

func (tx *Tx) InsertMovement(_ context.Context, m inventory.Movement) (inventory.Movement, error) {
	tx.state.nextMovementID++
	m.ID = tx.state.nextMovementID
	m.CreatedAt = tx.ledger.Now()
	tx.state.movements = append(tx.state.movements, m)
	return m, nil
}

func (tx *Tx) ListBalancesAfter(_ context.Context, filter inventory.ScanFilter) ([]inventory.Balance, error) {
	return tx.ledger.balancesAfter(sortedBalances(tx.state.balances), filter), nil
}

func (tx *Tx) ListSerialHoldings(_ context.Context, warehouseID, goodsModelID int64, serial string) ([]inventory.Balance, error) {
	var out []inventory.Balance
	for _, b := range sortedBalances(tx.state.balances) {
		if b.WarehouseID == warehouseID && b.GoodsModelID == goodsModelID && b.SerialNumber == serial && b.Onhand.IsPositive() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (l *Ledger) inOrg(orgID, warehouseID int64) bool {
	if orgID == 0 {
		return true
	}
	return l.Warehouses[warehouseID] == orgID
}

func (l *Ledger) balancesAfter(all []inventory.Balance, filter inventory.ScanFilter) []inventory.Balance {
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	var out []inventory.Balance
	for _, b := range all {
		if b.ID <= filter.AfterID || !l.inOrg(filter.OrganizationID, b.WarehouseID) {
			continue
		}
		if filter.WarehouseID != 0 && b.WarehouseID != filter.WarehouseID {
			continue
		}
		if filter.LocationID != 0 && b.LocationID != filter.LocationID {
			continue
		}
		out = append(out, b)
		if len(out) == limit {
			break
		}
	}
	return out
}

// ListBalances implements inventory.RepositoryPort.
func (l *Ledger) ListBalances(_ context.Context, f inventory.BalanceFilter) ([]inventory.Balance, int, error) {
	var matched []inventory.Balance
	for _, b := range l.Balances() {
		if !l.inOrg(f.OrganizationID, b.WarehouseID) ||
			(f.WarehouseID != 0 && b.WarehouseID != f.WarehouseID) ||
			(f.LocationID != 0 && b.LocationID != f.LocationID) ||
			(f.GoodsModelID != 0 && b.GoodsModelID != f.GoodsModelID) ||
			(f.LotNumber != "" && b.LotNumber != f.LotNumber) ||
			(f.SerialNumber != "" && b.SerialNumber != f.SerialNumber) ||
			(f.NonZero && b.IsZero()) {
			continue
		}
		matched = append(matched, b)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Key.Less(matched[j].Key) })
	total := len(matched)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

// ListMovements implements inventory.RepositoryPort.
func (l *Ledger) ListMovements(_ context.Context, f inventory.MovementFilter) ([]inventory.Movement, error) {
	all := l.Movements()
	var out []inventory.Movement
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if !l.inOrg(f.OrganizationID, m.WarehouseID) ||
			(f.WarehouseID != 0 && m.WarehouseID != f.WarehouseID) ||
			(f.LocationID != 0 && m.LocationID != f.LocationID) ||
			(f.GoodsModelID != 0 && m.GoodsModelID != f.GoodsModelID) ||
			(f.DocumentType != "" && m.DocumentType != f.DocumentType) ||
			(f.DocumentID != 0 && m.DocumentID != f.DocumentID) ||
			(f.Type != "" && m.Type != f.Type) {
			continue
		}
		out = append(out, m)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// ListSummary implements inventory.RepositoryPort.
func (l *Ledger) ListSummary(_ context.Context, f inventory.SummaryFilter) ([]inventory.SummaryRow, error) {
	type group struct{ warehouse, model int64 }
	rows := make(map[group]inventory.SummaryRow)
	for _, b := range l.Balances() {
		if !l.inOrg(f.OrganizationID, b.WarehouseID) ||
			(f.WarehouseID != 0 && b.WarehouseID != f.WarehouseID) ||
			(f.GoodsModelID != 0 && b.GoodsModelID != f.GoodsModelID) {
			continue
		}
		g := group{b.WarehouseID, b.GoodsModelID}
		row, ok := rows[g]
		if !ok {
			row = inventory.SummaryRow{WarehouseID: b.WarehouseID, GoodsModelID: b.GoodsModelID,
				Onhand: decimal.Zero, Reserved: decimal.Zero, Available: decimal.Zero}
		}
		row.Onhand = row.Onhand.Add(b.Onhand)
		row.Reserved = row.Reserved.Add(b.Reserved)
		row.Available = row.Available.Add(b.Available())
		if b.UpdatedAt.After(row.LastUpdatedAt) {
			row.LastUpdatedAt = b.UpdatedAt
		}
		rows[g] = row
	}
	out := make([]inventory.SummaryRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WarehouseID != out[j].WarehouseID {
			return out[i].WarehouseID < out[j].WarehouseID
		}
		return out[i].GoodsModelID < out[j].GoodsModelID
	})
	return out, nil
}

// WithSnapshot implements inventory.RepositoryPort.
func (l *Ledger) WithSnapshot(ctx context.Context, fn func(context.Context, inventory.SnapshotReader) error) error {
	l.mu.RLock()
	snap := snapshot{ledger: l, state: l.state.clone()}
	l.mu.RUnlock()
	return fn(ctx, snap)
}

type snapshot struct {
	ledger *Ledger
	state  state
}

func (s snapshot) ListBalancesAfter(_ context.Context, filter inventory.ScanFilter) ([]inventory.Balance, error) {
	return s.ledger.balancesAfter(sortedBalances(s.state.balances), filter), nil
}

func (s snapshot) ListMovementsAfter(_ context.Context, filter inventory.ScanFilter) ([]inventory.Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	var out []inventory.Movement
	for _, m := range s.state.movements {
		if m.ID <= filter.AfterID || !s.ledger.inOrg(filter.OrganizationID, m.WarehouseID) {
			continue
		}
		if filter.WarehouseID != 0 && m.WarehouseID != filter.WarehouseID {
			continue
		}
		if filter.LocationID != 0 && m.LocationID != filter.LocationID {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
