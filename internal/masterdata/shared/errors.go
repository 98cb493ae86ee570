package shared

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/db"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
)

var (
	ErrNotFound      = fmt.Errorf("masterdata: %w", httpx.ErrNotFound)
	ErrDuplicate     = fmt.Errorf("masterdata: %w", httpx.ErrDuplicate)
	ErrInvalidID     = fmt.Errorf("masterdata: invalid ID: %w", httpx.ErrValidation)
	ErrInUse         = fmt.Errorf("masterdata: record is referenced: %w", httpx.ErrConflict)
	ErrImmutableCode = errors.New("code cannot be changed after creation")
)

// MapPgError translates driver errors into master data sentinels.
func MapPgError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%w: %s code already exists", ErrDuplicate, what)
	case db.ErrorCode(err) == db.CodeForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrInUse, what)
	}
	return err
}
