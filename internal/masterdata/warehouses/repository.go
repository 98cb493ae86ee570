package warehouses

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Warehouse, int, error)
	Get(ctx context.Context, organizationID, id int64) (Warehouse, error)
	Create(ctx context.Context, warehouse Warehouse) (Warehouse, error)
	Update(ctx context.Context, warehouse Warehouse) (Warehouse, error)
	Delete(ctx context.Context, organizationID, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectColumns = `id, organization_id, code, name, address, is_active, created_at, updated_at`

func scanWarehouse(row pgx.Row) (Warehouse, error) {
	var w Warehouse
	err := row.Scan(&w.ID, &w.OrganizationID, &w.Code, &w.Name, &w.Address, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

// List uses a dynamic query due to filter complexity
func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Warehouse, int, error) {
	where := ` WHERE organization_id = $1`
	args := []any{filters.OrganizationID}
	argCount := 1

	if filters.IsActive != nil {
		argCount++
		where += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM warehouses`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + selectColumns + ` FROM warehouses` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.Direction())
	if filters.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
		args = append(args, filters.Limit, filters.Offset())
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	warehouses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Warehouse, error) { return scanWarehouse(row) })
	if err != nil {
		return nil, 0, err
	}
	return warehouses, total, nil
}

func (r *repository) Get(ctx context.Context, organizationID, id int64) (Warehouse, error) {
	w, err := scanWarehouse(r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM warehouses WHERE organization_id = $1 AND id = $2`, organizationID, id))
	return w, shared.MapPgError(err, "warehouse")
}

func (r *repository) Create(ctx context.Context, w Warehouse) (Warehouse, error) {
	created, err := scanWarehouse(r.pool.QueryRow(ctx, `INSERT INTO warehouses (organization_id, code, name, address, is_active)
VALUES ($1, $2, $3, $4, $5) RETURNING `+selectColumns, w.OrganizationID, w.Code, w.Name, w.Address, w.IsActive))
	return created, shared.MapPgError(err, "warehouse")
}

func (r *repository) Update(ctx context.Context, w Warehouse) (Warehouse, error) {
	updated, err := scanWarehouse(r.pool.QueryRow(ctx, `UPDATE warehouses SET code = $3, name = $4, address = $5, is_active = $6, updated_at = NOW()
WHERE organization_id = $1 AND id = $2 RETURNING `+selectColumns, w.OrganizationID, w.ID, w.Code, w.Name, w.Address, w.IsActive))
	return updated, shared.MapPgError(err, "warehouse")
}

func (r *repository) Delete(ctx context.Context, organizationID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM warehouses WHERE organization_id = $1 AND id = $2`, organizationID, id)
	if err != nil {
		return shared.MapPgError(err, "warehouse")
	}
	if tag.RowsAffected() == 0 {
		return shared.MapPgError(pgx.ErrNoRows, "warehouse")
	}
	return nil
}

func sortOrder(sortBy, dir string) string {
	switch sortBy {
	case "code":
		return "code " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
