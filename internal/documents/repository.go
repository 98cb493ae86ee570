package documents

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/db"
)

// TxRepository exposes document persistence inside one transaction together
// with the ledger bound to the same transaction.
type TxRepository interface {
	Ledger() inventory.TxRepository
	NextCode(ctx context.Context, t Type, at time.Time) (string, error)
	Insert(ctx context.Context, doc Document) (Document, error)
	GetForUpdate(ctx context.Context, organizationID, id int64) (Document, error)
	UpdateHeader(ctx context.Context, doc Document) error
	UpdateStatus(ctx context.Context, id int64, status Status, at time.Time) error
	ReplaceLines(ctx context.Context, documentID int64, lines []Line) error
	AppendLines(ctx context.Context, documentID int64, lines []Line) error
	UpdateLine(ctx context.Context, line Line) error
	Delete(ctx context.Context, id int64) error
}

// Repository persists documents in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn in a READ COMMITTED transaction. Ledger rows are protected by
// explicit row locks, so the weaker isolation level lets a waiting writer
// re-read the committed balance.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, ledger: inventory.NewTxRepository(tx)})
	})
}

type txRepo struct {
	tx     pgx.Tx
	ledger inventory.TxRepository
}

func (r *txRepo) Ledger() inventory.TxRepository { return r.ledger }

const documentColumns = `d.id, d.document_type, d.code, d.organization_id, d.warehouse_id, d.to_warehouse_id, d.scope_location_id,
	d.status, d.reference, d.note, d.created_by, d.created_at, d.updated_at, d.completed_at, d.cancelled_at`

const lineColumns = `id, document_id, line_number, goods_model_id, quantity, lot_number, serial_number, expiry_date,
	source_location_id, destination_location_id, processed_quantity, system_quantity, counted_quantity, executed_at`

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	var docType, status string
	err := row.Scan(&d.ID, &docType, &d.Code, &d.OrganizationID, &d.WarehouseID, &d.ToWarehouseID, &d.ScopeLocationID,
		&status, &d.Reference, &d.Note, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt, &d.CompletedAt, &d.CancelledAt)
	d.Type = Type(docType)
	d.Status = Status(status)
	return d, err
}

func scanLine(row pgx.Row) (Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.DocumentID, &l.LineNumber, &l.GoodsModelID, &l.Quantity, &l.LotNumber, &l.SerialNumber, &l.ExpiryDate,
		&l.SourceLocationID, &l.DestinationLocationID, &l.ProcessedQuantity, &l.SystemQuantity, &l.CountedQuantity, &l.ExecutedAt)
	return l, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadLines(ctx context.Context, q querier, documentID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM document_lines WHERE document_id = $1 ORDER BY line_number`, documentID)
	if err != nil {
		return nil, err
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Line, error) { return scanLine(row) })
	if lines == nil {
		lines = []Line{}
	}
	return lines, err
}

func getDocument(ctx context.Context, q querier, organizationID, id int64, lock bool) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents d WHERE d.organization_id = $1 AND d.id = $2`
	if lock {
		query += ` FOR UPDATE`
	}
	d, err := scanDocument(q.QueryRow(ctx, query, organizationID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, fmt.Errorf("%w: document %d", ErrNotFound, id)
		}
		return Document{}, err
	}
	d.Lines, err = loadLines(ctx, q, d.ID)
	return d, err
}

// Get loads a document with its lines.
func (r *Repository) Get(ctx context.Context, organizationID, id int64) (Document, error) {
	return getDocument(ctx, r.pool, organizationID, id, false)
}

// List returns document headers without lines.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Document, int, error) {
	where := ` WHERE d.organization_id = $1 AND d.document_type = $2`
	args := []any{filter.OrganizationID, string(filter.Type)}
	argCount := 2
	if filter.WarehouseID != 0 {
		argCount++
		where += ` AND d.warehouse_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.WarehouseID)
	}
	if filter.Status != "" {
		argCount++
		where += ` AND d.status = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.Status))
	}
	if filter.Search != "" {
		argCount++
		where += ` AND (d.code ILIKE $` + strconv.Itoa(argCount) + ` OR d.reference ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filter.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents d`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + documentColumns + ` FROM documents d` + where + ` ORDER BY d.created_at DESC, d.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
		args = append(args, filter.Limit, filter.Offset())
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Document, error) { return scanDocument(row) })
	return docs, total, err
}

func (r *txRepo) NextCode(ctx context.Context, t Type, at time.Time) (string, error) {
	var seq int64
	if err := r.tx.QueryRow(ctx, `SELECT nextval('document_code_seq')`).Scan(&seq); err != nil {
		return "", fmt.Errorf("documents: next code: %w", err)
	}
	return FormatCode(t, at, seq), nil
}

func (r *txRepo) Insert(ctx context.Context, d Document) (Document, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO documents (document_type, code, organization_id, warehouse_id, to_warehouse_id, scope_location_id,
	status, reference, note, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, created_at, updated_at`,
		string(d.Type), d.Code, d.OrganizationID, d.WarehouseID, d.ToWarehouseID, d.ScopeLocationID,
		string(d.Status), d.Reference, d.Note, d.CreatedBy).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	if err := r.AppendLines(ctx, d.ID, d.Lines); err != nil {
		return Document{}, err
	}
	return getDocument(ctx, r.tx, d.OrganizationID, d.ID, false)
}

func (r *txRepo) GetForUpdate(ctx context.Context, organizationID, id int64) (Document, error) {
	return getDocument(ctx, r.tx, organizationID, id, true)
}

func (r *txRepo) UpdateHeader(ctx context.Context, d Document) error {
	_, err := r.tx.Exec(ctx, `UPDATE documents SET warehouse_id = $2, to_warehouse_id = $3, scope_location_id = $4,
	reference = $5, note = $6, updated_at = NOW() WHERE id = $1`,
		d.ID, d.WarehouseID, d.ToWarehouseID, d.ScopeLocationID, d.Reference, d.Note)
	return err
}

func (r *txRepo) UpdateStatus(ctx context.Context, id int64, status Status, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE documents SET status = $2, updated_at = $3,
	completed_at = CASE WHEN $2 = 'COMPLETED' THEN $3 ELSE completed_at END,
	cancelled_at = CASE WHEN $2 = 'CANCELLED' THEN $3 ELSE cancelled_at END
WHERE id = $1`, id, string(status), at)
	return err
}

func (r *txRepo) ReplaceLines(ctx context.Context, documentID int64, lines []Line) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM document_lines WHERE document_id = $1`, documentID); err != nil {
		return err
	}
	return r.AppendLines(ctx, documentID, lines)
}

func (r *txRepo) AppendLines(ctx context.Context, documentID int64, lines []Line) error {
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`INSERT INTO document_lines (document_id, line_number, goods_model_id, quantity, lot_number, serial_number, expiry_date,
	source_location_id, destination_location_id, processed_quantity, system_quantity, counted_quantity, executed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			documentID, l.LineNumber, l.GoodsModelID, l.Quantity, l.LotNumber, l.SerialNumber, l.ExpiryDate,
			l.SourceLocationID, l.DestinationLocationID, l.ProcessedQuantity, l.SystemQuantity, l.CountedQuantity, l.ExecutedAt)
	}
	return r.tx.SendBatch(ctx, batch).Close()
}

func (r *txRepo) UpdateLine(ctx context.Context, l Line) error {
	_, err := r.tx.Exec(ctx, `UPDATE document_lines SET lot_number = $2, serial_number = $3, expiry_date = $4,
	processed_quantity = $5, system_quantity = $6, counted_quantity = $7, executed_at = $8
WHERE id = $1`,
		l.ID, l.LotNumber, l.SerialNumber, l.ExpiryDate, l.ProcessedQuantity, l.SystemQuantity, l.CountedQuantity, l.ExecutedAt)
	return err
}

func (r *txRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}
