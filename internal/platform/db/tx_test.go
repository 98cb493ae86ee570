package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Retry(context.Background(), 5, func(context.Context) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestRetryRepeatsSerializationFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("apply: %w", &pgconn.PgError{Code: CodeSerializationFailure})
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetryGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 2, func(context.Context) error {
		calls++
		return &pgconn.PgError{Code: CodeDeadlockDetected}
	})
	require.True(t, IsRetryable(err))
	require.Equal(t, 2, calls)
}

func TestErrorCodeHelpers(t *testing.T) {
	require.True(t, IsUniqueViolation(&pgconn.PgError{Code: CodeUniqueViolation}))
	require.False(t, IsUniqueViolation(errors.New("plain")))
	require.Equal(t, "", ErrorCode(nil))
}
