package locations

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error)
	Get(ctx context.Context, organizationID, id int64) (Location, error)
	Create(ctx context.Context, location Location) (Location, error)
	Update(ctx context.Context, location Location) (Location, error)
	Delete(ctx context.Context, organizationID, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Locations belong to an organization through their warehouse.
const selectLocation = `SELECT l.id, w.organization_id, l.warehouse_id, l.code, l.name, l.is_receivable, l.is_active, l.restriction,
       COALESCE((SELECT array_agg(r.goods_model_id ORDER BY r.goods_model_id) FROM location_model_restrictions r WHERE r.location_id = l.id), '{}'),
       l.created_at, l.updated_at
FROM locations l
JOIN warehouses w ON w.id = l.warehouse_id`

func scanLocation(row pgx.Row) (Location, error) {
	var l Location
	var restriction string
	err := row.Scan(&l.ID, &l.OrganizationID, &l.WarehouseID, &l.Code, &l.Name, &l.IsReceivable, &l.IsActive,
		&restriction, &l.RestrictedModelIDs, &l.CreatedAt, &l.UpdatedAt)
	l.Restriction = Restriction(restriction)
	return l, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	where := ` WHERE w.organization_id = $1`
	args := []any{filters.OrganizationID}
	argCount := 1
	if filters.WarehouseID != nil {
		argCount++
		where += ` AND l.warehouse_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.WarehouseID)
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND l.is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (l.name ILIKE $` + strconv.Itoa(argCount) + ` OR l.code ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM locations l JOIN warehouses w ON w.id = l.warehouse_id` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectLocation + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.Direction())
	if filters.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
		args = append(args, filters.Limit, filters.Offset())
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Location, error) { return scanLocation(row) })
	return out, total, err
}

func (r *repository) Get(ctx context.Context, organizationID, id int64) (Location, error) {
	l, err := scanLocation(r.pool.QueryRow(ctx, selectLocation+` WHERE w.organization_id = $1 AND l.id = $2`, organizationID, id))
	return l, shared.MapPgError(err, "location")
}

func (r *repository) Create(ctx context.Context, l Location) (Location, error) {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var ok bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM warehouses WHERE id = $1 AND organization_id = $2)`,
			l.WarehouseID, l.OrganizationID).Scan(&ok); err != nil {
			return err
		}
		if !ok {
			return pgx.ErrNoRows
		}
		if err := tx.QueryRow(ctx, `INSERT INTO locations (warehouse_id, code, name, is_receivable, is_active, restriction)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			l.WarehouseID, l.Code, l.Name, l.IsReceivable, l.IsActive, string(l.Restriction)).Scan(&l.ID); err != nil {
			return err
		}
		return replaceRestrictions(ctx, tx, l.ID, l.RestrictedModelIDs)
	})
	if err != nil {
		return Location{}, shared.MapPgError(err, "location")
	}
	return r.Get(ctx, l.OrganizationID, l.ID)
}

// Update rewrites the location and replaces its restricted model set.
func (r *repository) Update(ctx context.Context, l Location) (Location, error) {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE locations l SET code = $3, name = $4, is_receivable = $5, is_active = $6, restriction = $7, updated_at = NOW()
FROM warehouses w
WHERE w.id = l.warehouse_id AND w.organization_id = $1 AND l.id = $2`,
			l.OrganizationID, l.ID, l.Code, l.Name, l.IsReceivable, l.IsActive, string(l.Restriction))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return replaceRestrictions(ctx, tx, l.ID, l.RestrictedModelIDs)
	})
	if err != nil {
		return Location{}, shared.MapPgError(err, "location")
	}
	return r.Get(ctx, l.OrganizationID, l.ID)
}

func (r *repository) Delete(ctx context.Context, organizationID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM locations l USING warehouses w
WHERE w.id = l.warehouse_id AND w.organization_id = $1 AND l.id = $2`, organizationID, id)
	if err != nil {
		return shared.MapPgError(err, "location")
	}
	if tag.RowsAffected() == 0 {
		return shared.MapPgError(pgx.ErrNoRows, "location")
	}
	return nil
}

func replaceRestrictions(ctx context.Context, tx pgx.Tx, locationID int64, modelIDs []int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM location_model_restrictions WHERE location_id = $1`, locationID); err != nil {
		return err
	}
	if len(modelIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `INSERT INTO location_model_restrictions (location_id, goods_model_id)
SELECT $1, unnest($2::bigint[]) ON CONFLICT DO NOTHING`, locationID, modelIDs)
	return err
}

func sortOrder(sortBy, dir string) string {
	switch sortBy {
	case "name":
		return "l.name " + dir
	case "warehouse_id":
		return "l.warehouse_id " + dir + ", l.code"
	default:
		return "l.code " + dir
	}
}
