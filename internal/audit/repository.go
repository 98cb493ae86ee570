package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository membaca audit dokumen dari audit_logs. Organisasi diambil dari
// meta yang ditulis saat pencatatan sehingga dokumen yang sudah dihapus tetap
// muncul.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository membuat PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const timelineQuery = `SELECT a.id, a.occurred_at, a.actor_id, a.action, a.entity_id,
  COALESCE(a.meta->>'document_type', ''), COALESCE(a.meta->>'code', ''), a.meta
FROM audit_logs a
WHERE a.entity = 'document'
  AND a.meta->>'organization_id' = $1::bigint::text
  AND ($2::timestamptz IS NULL OR a.occurred_at >= $2)
  AND ($3::timestamptz IS NULL OR a.occurred_at < $3)
  AND ($4::text IS NULL OR a.actor_id = $4)
  AND ($5::text IS NULL OR a.action = $5)
  AND ($6::text IS NULL OR a.entity_id = $6)
ORDER BY a.occurred_at DESC, a.id DESC
OFFSET $7 LIMIT $8`

// Timeline implements Repository.
func (r *PGRepository) Timeline(ctx context.Context, f TimelineFilters, window Window) ([]TimelineRow, error) {
	var documentID *string
	if f.DocumentID > 0 {
		id := strconv.FormatInt(f.DocumentID, 10)
		documentID = &id
	}
	rows, err := r.pool.Query(ctx, timelineQuery,
		f.OrganizationID, optionalTime(f.From), optionalTime(f.To),
		optionalText(f.Actor), optionalText(f.Action), documentID,
		window.Offset, window.Limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var out TimelineRow
		var entityID string
		if err := row.Scan(&out.ID, &out.At, &out.Actor, &out.Action, &entityID, &out.DocumentType, &out.DocumentCode, &out.Meta); err != nil {
			return TimelineRow{}, err
		}
		out.DocumentID, _ = strconv.ParseInt(entityID, 10, 64)
		return out, nil
	})
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func optionalText(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
