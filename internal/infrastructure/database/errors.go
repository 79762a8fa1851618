package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"signupd/internal/domain"
)

// SQLSTATE codes worth retrying the whole transaction for.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateQueryCanceled        = "57014"
)

// classify maps driver errors onto domain errors. notFound is returned for
// pgx.ErrNoRows; retryable failures become domain.ErrTransient so the caller
// can rerun the transaction.
func classify(err error, notFound *domain.Error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound.Wrap(fmt.Errorf("%s: %w", op, err))
	}
	if isTransient(err) {
		return domain.ErrTransient.Wrap(fmt.Errorf("%s: %w", op, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected,
			sqlStateUniqueViolation, sqlStateLockNotAvailable, sqlStateQueryCanceled:
			return true
		}
		return false
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	return false
}
