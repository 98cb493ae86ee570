package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/db"
)

// TxRepository exposes the row-locked ledger operations used inside a
// document transaction.
type TxRepository interface {
	GetBalance(ctx context.Context, key Key) (Balance, error)
	GetBalanceForUpdate(ctx context.Context, key Key) (Balance, error)
	UpsertBalance(ctx context.Context, balance Balance) error
	InsertMovement(ctx context.Context, movement Movement) (Movement, error)
	ListBalancesAfter(ctx context.Context, filter ScanFilter) ([]Balance, error)
	// ListSerialHoldings returns the entries of a serial with stock on hand
	// anywhere in the warehouse.
	ListSerialHoldings(ctx context.Context, warehouseID, goodsModelID int64, serial string) ([]Balance, error)
}

// Repository persists the ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NewTxRepository binds the ledger operations to an open transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{tx: tx}
}

type txRepo struct {
	tx pgx.Tx
}

const balanceColumns = `l.id, l.warehouse_id, l.location_id, l.goods_model_id, l.lot_number, l.serial_number,
	l.quantity_onhand, l.quantity_reserved, l.received_date, l.expiry_date, l.updated_at`

const keyPredicate = `l.warehouse_id = $1 AND l.location_id = $2 AND l.goods_model_id = $3 AND l.lot_number = $4 AND l.serial_number = $5`

func keyArgs(k Key) []any {
	return []any{k.WarehouseID, k.LocationID, k.GoodsModelID, k.LotNumber, k.SerialNumber}
}

func scanBalance(row pgx.Row) (Balance, error) {
	var b Balance
	err := row.Scan(&b.ID, &b.WarehouseID, &b.LocationID, &b.GoodsModelID, &b.LotNumber, &b.SerialNumber,
		&b.Onhand, &b.Reserved, &b.ReceivedDate, &b.ExpiryDate, &b.UpdatedAt)
	return b, err
}

func (r *txRepo) GetBalance(ctx context.Context, key Key) (Balance, error) {
	b, err := scanBalance(r.tx.QueryRow(ctx, `SELECT `+balanceColumns+` FROM stock_ledger l WHERE `+keyPredicate, keyArgs(key)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{Key: key}, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

// GetBalanceForUpdate ensures the ledger row exists and locks it until the
// surrounding transaction ends.
func (r *txRepo) GetBalanceForUpdate(ctx context.Context, key Key) (Balance, error) {
	if err := key.Validate(); err != nil {
		return Balance{}, err
	}
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_ledger (warehouse_id, location_id, goods_model_id, lot_number, serial_number)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (warehouse_id, location_id, goods_model_id, lot_number, serial_number) DO NOTHING`, keyArgs(key)...)
	if err != nil {
		return Balance{}, fmt.Errorf("inventory: ensure ledger row: %w", err)
	}
	b, err := scanBalance(r.tx.QueryRow(ctx, `SELECT `+balanceColumns+` FROM stock_ledger l WHERE `+keyPredicate+` FOR UPDATE`, keyArgs(key)...))
	if err != nil {
		return Balance{}, fmt.Errorf("inventory: lock ledger row: %w", err)
	}
	return b, nil
}

func (r *txRepo) UpsertBalance(ctx context.Context, b Balance) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_ledger (warehouse_id, location_id, goods_model_id, lot_number, serial_number,
	quantity_onhand, quantity_reserved, received_date, expiry_date, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
ON CONFLICT (warehouse_id, location_id, goods_model_id, lot_number, serial_number) DO UPDATE SET
	quantity_onhand = EXCLUDED.quantity_onhand,
	quantity_reserved = EXCLUDED.quantity_reserved,
	received_date = COALESCE(EXCLUDED.received_date, stock_ledger.received_date),
	expiry_date = COALESCE(EXCLUDED.expiry_date, stock_ledger.expiry_date),
	updated_at = NOW()`,
		b.WarehouseID, b.LocationID, b.GoodsModelID, b.LotNumber, b.SerialNumber,
		b.Onhand, b.Reserved, b.ReceivedDate, b.ExpiryDate)
	return err
}

func (r *txRepo) InsertMovement(ctx context.Context, m Movement) (Movement, error) {
	if !m.Type.IsValid() {
		return Movement{}, fmt.Errorf("inventory: unknown movement type %q", m.Type)
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (movement_type, warehouse_id, location_id, goods_model_id, lot_number, serial_number,
	quantity_change, reserved_change, document_type, document_id, document_code, line_id, line_number, operation_id, note, actor_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING id, created_at`,
		string(m.Type), m.WarehouseID, m.LocationID, m.GoodsModelID, m.LotNumber, m.SerialNumber,
		m.QuantityChange, m.ReservedChange, m.DocumentType, m.DocumentID, m.DocumentCode, m.LineID, m.LineNumber,
		m.OperationID, m.Note, m.ActorID).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Movement{}, err
	}
	return m, nil
}

func (r *txRepo) ListBalancesAfter(ctx context.Context, filter ScanFilter) ([]Balance, error) {
	return listBalancesAfter(ctx, r.tx, filter)
}

func (r *txRepo) ListSerialHoldings(ctx context.Context, warehouseID, goodsModelID int64, serial string) ([]Balance, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+balanceColumns+` FROM stock_ledger l
WHERE l.warehouse_id = $1 AND l.goods_model_id = $2 AND l.serial_number = $3 AND l.quantity_onhand > 0
ORDER BY l.id`, warehouseID, goodsModelID, serial)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Balance, error) {
		return scanBalance(row)
	})
}

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listBalancesAfter(ctx context.Context, q rowQuerier, filter ScanFilter) ([]Balance, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	sql := `SELECT ` + balanceColumns + ` FROM stock_ledger l JOIN warehouses w ON w.id = l.warehouse_id WHERE l.id > $1`
	args := []any{filter.AfterID}
	argCount := 1
	if filter.OrganizationID != 0 {
		argCount++
		sql += fmt.Sprintf(" AND w.organization_id = $%d", argCount)
		args = append(args, filter.OrganizationID)
	}
	if filter.WarehouseID != 0 {
		argCount++
		sql += fmt.Sprintf(" AND l.warehouse_id = $%d", argCount)
		args = append(args, filter.WarehouseID)
	}
	if filter.LocationID != 0 {
		argCount++
		sql += fmt.Sprintf(" AND l.location_id = $%d", argCount)
		args = append(args, filter.LocationID)
	}
	argCount++
	sql += fmt.Sprintf(" ORDER BY l.id LIMIT $%d", argCount)
	args = append(args, limit)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Balance, error) { return scanBalance(row) })
}

// ListBalances returns onhand entries and the total matching count.
func (r *Repository) ListBalances(ctx context.Context, filter BalanceFilter) ([]Balance, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argCount := 0
	add := func(clause string, value any) {
		argCount++
		where += fmt.Sprintf(clause, argCount)
		args = append(args, value)
	}
	if filter.OrganizationID != 0 {
		add(" AND w.organization_id = $%d", filter.OrganizationID)
	}
	if filter.WarehouseID != 0 {
		add(" AND l.warehouse_id = $%d", filter.WarehouseID)
	}
	if filter.LocationID != 0 {
		add(" AND l.location_id = $%d", filter.LocationID)
	}
	if filter.GoodsModelID != 0 {
		add(" AND l.goods_model_id = $%d", filter.GoodsModelID)
	}
	if filter.LotNumber != "" {
		add(" AND l.lot_number = $%d", filter.LotNumber)
	}
	if filter.SerialNumber != "" {
		add(" AND l.serial_number = $%d", filter.SerialNumber)
	}
	if filter.NonZero {
		where += " AND (l.quantity_onhand <> 0 OR l.quantity_reserved <> 0)"
	}
	from := " FROM stock_ledger l JOIN warehouses w ON w.id = l.warehouse_id"

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+from+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT " + balanceColumns + from + where +
		fmt.Sprintf(" ORDER BY l.warehouse_id, l.location_id, l.goods_model_id, l.lot_number, l.serial_number LIMIT $%d OFFSET $%d", argCount+1, argCount+2)
	args = append(args, limit, filter.Offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	balances, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Balance, error) { return scanBalance(row) })
	if err != nil {
		return nil, 0, err
	}
	return balances, total, nil
}

const movementColumns = `m.id, m.movement_type, m.warehouse_id, m.location_id, m.goods_model_id, m.lot_number, m.serial_number,
	m.quantity_change, m.reserved_change, m.document_type, m.document_id, m.document_code, m.line_id, m.line_number,
	m.operation_id, m.note, m.actor_id, m.created_at`

func scanMovement(row pgx.Row) (Movement, error) {
	var m Movement
	var typ string
	err := row.Scan(&m.ID, &typ, &m.WarehouseID, &m.LocationID, &m.GoodsModelID, &m.LotNumber, &m.SerialNumber,
		&m.QuantityChange, &m.ReservedChange, &m.DocumentType, &m.DocumentID, &m.DocumentCode, &m.LineID, &m.LineNumber,
		&m.OperationID, &m.Note, &m.ActorID, &m.CreatedAt)
	m.Type = MovementType(typ)
	return m, err
}

// ListMovements returns the newest movements matching the filter.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	query := "SELECT " + movementColumns + " FROM stock_movements m JOIN warehouses w ON w.id = m.warehouse_id WHERE 1=1"
	args := []any{}
	argCount := 0
	add := func(clause string, value any) {
		argCount++
		query += fmt.Sprintf(clause, argCount)
		args = append(args, value)
	}
	if filter.OrganizationID != 0 {
		add(" AND w.organization_id = $%d", filter.OrganizationID)
	}
	if filter.WarehouseID != 0 {
		add(" AND m.warehouse_id = $%d", filter.WarehouseID)
	}
	if filter.LocationID != 0 {
		add(" AND m.location_id = $%d", filter.LocationID)
	}
	if filter.GoodsModelID != 0 {
		add(" AND m.goods_model_id = $%d", filter.GoodsModelID)
	}
	if filter.LotNumber != "" {
		add(" AND m.lot_number = $%d", filter.LotNumber)
	}
	if filter.SerialNumber != "" {
		add(" AND m.serial_number = $%d", filter.SerialNumber)
	}
	if filter.DocumentType != "" {
		add(" AND m.document_type = $%d", filter.DocumentType)
	}
	if filter.DocumentID != 0 {
		add(" AND m.document_id = $%d", filter.DocumentID)
	}
	if filter.Type != "" {
		add(" AND m.movement_type = $%d", string(filter.Type))
	}
	if !filter.From.IsZero() {
		add(" AND m.created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add(" AND m.created_at < $%d", filter.To)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	add(" ORDER BY m.id DESC LIMIT $%d", limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Movement, error) { return scanMovement(row) })
}

func listMovementsAfter(ctx context.Context, q rowQuerier, filter ScanFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query := "SELECT " + movementColumns + " FROM stock_movements m JOIN warehouses w ON w.id = m.warehouse_id WHERE m.id > $1"
	args := []any{filter.AfterID}
	argCount := 1
	if filter.OrganizationID != 0 {
		argCount++
		query += fmt.Sprintf(" AND w.organization_id = $%d", argCount)
		args = append(args, filter.OrganizationID)
	}
	if filter.WarehouseID != 0 {
		argCount++
		query += fmt.Sprintf(" AND m.warehouse_id = $%d", argCount)
		args = append(args, filter.WarehouseID)
	}
	if filter.LocationID != 0 {
		argCount++
		query += fmt.Sprintf(" AND m.location_id = $%d", argCount)
		args = append(args, filter.LocationID)
	}
	argCount++
	query += fmt.Sprintf(" ORDER BY m.id LIMIT $%d", argCount)
	args = append(args, limit)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Movement, error) { return scanMovement(row) })
}

// SnapshotReader pages through the ledger and the movement log as of one
// consistent snapshot.
type SnapshotReader interface {
	ListBalancesAfter(ctx context.Context, filter ScanFilter) ([]Balance, error)
	ListMovementsAfter(ctx context.Context, filter ScanFilter) ([]Movement, error)
}

type snapshotRepo struct {
	tx pgx.Tx
}

func (r snapshotRepo) ListBalancesAfter(ctx context.Context, filter ScanFilter) ([]Balance, error) {
	return listBalancesAfter(ctx, r.tx, filter)
}

func (r snapshotRepo) ListMovementsAfter(ctx context.Context, filter ScanFilter) ([]Movement, error) {
	return listMovementsAfter(ctx, r.tx, filter)
}

// WithSnapshot runs fn inside a read-only repeatable-read transaction.
func (r *Repository) WithSnapshot(ctx context.Context, fn func(context.Context, SnapshotReader) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		return fn(ctx, snapshotRepo{tx: tx})
	})
}

// ListSummary reads the stock_summary view.
func (r *Repository) ListSummary(ctx context.Context, filter SummaryFilter) ([]SummaryRow, error) {
	query := `SELECT s.warehouse_id, s.goods_model_id, s.quantity_onhand, s.quantity_reserved, s.quantity_available, s.last_updated_at
FROM stock_summary s JOIN warehouses w ON w.id = s.warehouse_id WHERE 1=1`
	args := []any{}
	argCount := 0
	if filter.OrganizationID != 0 {
		argCount++
		query += fmt.Sprintf(" AND w.organization_id = $%d", argCount)
		args = append(args, filter.OrganizationID)
	}
	if filter.WarehouseID != 0 {
		argCount++
		query += fmt.Sprintf(" AND s.warehouse_id = $%d", argCount)
		args = append(args, filter.WarehouseID)
	}
	if filter.GoodsModelID != 0 {
		argCount++
		query += fmt.Sprintf(" AND s.goods_model_id = $%d", argCount)
		args = append(args, filter.GoodsModelID)
	}
	query += " ORDER BY s.warehouse_id, s.goods_model_id"
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SummaryRow, error) {
		var s SummaryRow
		err := row.Scan(&s.WarehouseID, &s.GoodsModelID, &s.Onhand, &s.Reserved, &s.Available, &s.LastUpdatedAt)
		return s, err
	})
}
