package goodsmodels

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]GoodsModel, int, error)
	Get(ctx context.Context, organizationID, id int64) (GoodsModel, error)
	Create(ctx context.Context, model GoodsModel) (GoodsModel, error)
	Update(ctx context.Context, model GoodsModel) (GoodsModel, error)
	Delete(ctx context.Context, organizationID, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectColumns = `id, organization_id, code, name, goods_type_id, base_uom, tracking_type, created_at, updated_at`

func scanModel(row pgx.Row) (GoodsModel, error) {
	var m GoodsModel
	var tracking string
	err := row.Scan(&m.ID, &m.OrganizationID, &m.Code, &m.Name, &m.GoodsTypeID, &m.BaseUOM, &tracking, &m.CreatedAt, &m.UpdatedAt)
	m.TrackingType = TrackingType(tracking)
	return m, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]GoodsModel, int, error) {
	where := ` WHERE organization_id = $1`
	args := []any{filters.OrganizationID}
	argCount := 1
	if filters.GoodsTypeID != nil {
		argCount++
		where += ` AND goods_type_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.GoodsTypeID)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM goods_models`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + selectColumns + ` FROM goods_models` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.Direction())
	if filters.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
		args = append(args, filters.Limit, filters.Offset())
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (GoodsModel, error) { return scanModel(row) })
	return out, total, err
}

func (r *repository) Get(ctx context.Context, organizationID, id int64) (GoodsModel, error) {
	m, err := scanModel(r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM goods_models WHERE organization_id = $1 AND id = $2`, organizationID, id))
	return m, shared.MapPgError(err, "goods model")
}

func (r *repository) Create(ctx context.Context, m GoodsModel) (GoodsModel, error) {
	created, err := scanModel(r.pool.QueryRow(ctx, `INSERT INTO goods_models (organization_id, code, name, goods_type_id, base_uom, tracking_type)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+selectColumns,
		m.OrganizationID, m.Code, m.Name, m.GoodsTypeID, m.BaseUOM, string(m.TrackingType)))
	return created, shared.MapPgError(err, "goods model")
}

// Update never touches the code column.
func (r *repository) Update(ctx context.Context, m GoodsModel) (GoodsModel, error) {
	updated, err := scanModel(r.pool.QueryRow(ctx, `UPDATE goods_models SET name = $3, goods_type_id = $4, base_uom = $5, tracking_type = $6, updated_at = NOW()
WHERE organization_id = $1 AND id = $2 RETURNING `+selectColumns,
		m.OrganizationID, m.ID, m.Name, m.GoodsTypeID, m.BaseUOM, string(m.TrackingType)))
	return updated, shared.MapPgError(err, "goods model")
}

func (r *repository) Delete(ctx context.Context, organizationID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM goods_models WHERE organization_id = $1 AND id = $2`, organizationID, id)
	if err != nil {
		return shared.MapPgError(err, "goods model")
	}
	if tag.RowsAffected() == 0 {
		return shared.MapPgError(pgx.ErrNoRows, "goods model")
	}
	return nil
}

func sortOrder(sortBy, dir string) string {
	switch sortBy {
	case "code":
		return "code " + dir
	case "tracking_type":
		return "tracking_type " + dir + ", name"
	default:
		return "name " + dir
	}
}
