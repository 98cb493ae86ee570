package goodstypes

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]GoodsType, int, error)
	Get(ctx context.Context, id int64) (GoodsType, error)
	Create(ctx context.Context, gt GoodsType) (GoodsType, error)
	Update(ctx context.Context, gt GoodsType) (GoodsType, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func scanGoodsType(row pgx.Row) (GoodsType, error) {
	var gt GoodsType
	err := row.Scan(&gt.ID, &gt.Code, &gt.Name, &gt.CreatedAt, &gt.UpdatedAt)
	return gt, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]GoodsType, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0
	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM goods_types`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	order := "name"
	if filters.SortBy == "code" {
		order = "code"
	}
	query := `SELECT id, code, name, created_at, updated_at FROM goods_types` + where + ` ORDER BY ` + order + ` ` + filters.Direction()
	if filters.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
		args = append(args, filters.Limit, filters.Offset())
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (GoodsType, error) { return scanGoodsType(row) })
	return out, total, err
}

func (r *repository) Get(ctx context.Context, id int64) (GoodsType, error) {
	gt, err := scanGoodsType(r.pool.QueryRow(ctx, `SELECT id, code, name, created_at, updated_at FROM goods_types WHERE id = $1`, id))
	return gt, shared.MapPgError(err, "goods type")
}

func (r *repository) Create(ctx context.Context, gt GoodsType) (GoodsType, error) {
	created, err := scanGoodsType(r.pool.QueryRow(ctx, `INSERT INTO goods_types (code, name) VALUES ($1, $2)
RETURNING id, code, name, created_at, updated_at`, gt.Code, gt.Name))
	return created, shared.MapPgError(err, "goods type")
}

func (r *repository) Update(ctx context.Context, gt GoodsType) (GoodsType, error) {
	updated, err := scanGoodsType(r.pool.QueryRow(ctx, `UPDATE goods_types SET code = $2, name = $3, updated_at = NOW() WHERE id = $1
RETURNING id, code, name, created_at, updated_at`, gt.ID, gt.Code, gt.Name))
	return updated, shared.MapPgError(err, "goods type")
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM goods_types WHERE id = $1`, id)
	if err != nil {
		return shared.MapPgError(err, "goods type")
	}
	if tag.RowsAffected() == 0 {
		return shared.MapPgError(pgx.ErrNoRows, "goods type")
	}
	return nil
}
