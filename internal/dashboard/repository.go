package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the dashboard aggregate queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// scopeClause filters by organisation and, when $2 is set, one warehouse.
const scopeClause = ` w.organization_id = $1 AND ($2::bigint IS NULL OR w.id = $2)`

func scope(f Filter) []any {
	var warehouse *int64
	if f.WarehouseID > 0 {
		warehouse = &f.WarehouseID
	}
	return []any{f.OrganizationID, warehouse}
}

// StockTotals sums the ledger entries in scope.
func (r *Repository) StockTotals(ctx context.Context, f Filter) (StockTotals, error) {
	var t StockTotals
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(b.quantity_onhand), 0), COALESCE(SUM(b.quantity_reserved), 0), COUNT(*)
FROM stock_ledger b JOIN warehouses w ON w.id = b.warehouse_id
WHERE`+scopeClause, scope(f)...).Scan(&t.Onhand, &t.Reserved, &t.Entries)
	if err != nil {
		return StockTotals{}, err
	}
	t.Available = t.Onhand.Sub(t.Reserved)
	return t, nil
}

// MasterDataCounts counts active warehouses, locations and goods models.
func (r *Repository) MasterDataCounts(ctx context.Context, f Filter) (MasterDataCounts, error) {
	var c MasterDataCounts
	err := r.pool.QueryRow(ctx, `SELECT
  (SELECT COUNT(*) FROM warehouses w WHERE w.is_active AND`+scopeClause+`),
  (SELECT COUNT(*) FROM locations l JOIN warehouses w ON w.id = l.warehouse_id WHERE l.is_active AND`+scopeClause+`),
  (SELECT COUNT(*) FROM goods_models g WHERE g.organization_id = $1)`, scope(f)...).Scan(&c.Warehouses, &c.Locations, &c.GoodsModels)
	return c, err
}

// OpenDocuments counts documents that are neither completed nor cancelled.
func (r *Repository) OpenDocuments(ctx context.Context, f Filter) ([]DocumentCount, error) {
	rows, err := r.pool.Query(ctx, `SELECT d.document_type, d.status, COUNT(*)
FROM documents d JOIN warehouses w ON w.id = d.warehouse_id
WHERE d.status NOT IN ('COMPLETED', 'CANCELLED') AND`+scopeClause+`
GROUP BY d.document_type, d.status ORDER BY d.document_type, d.status`, scope(f)...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[DocumentCount])
}

// MovementsSince counts movements per type written after since.
func (r *Repository) MovementsSince(ctx context.Context, f Filter, since time.Time) ([]MovementCount, error) {
	args := append(scope(f), since)
	rows, err := r.pool.Query(ctx, `SELECT m.movement_type, COUNT(*)
FROM stock_movements m JOIN warehouses w ON w.id = m.warehouse_id
WHERE m.created_at >= $3 AND`+scopeClause+`
GROUP BY m.movement_type ORDER BY m.movement_type`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[MovementCount])
}
