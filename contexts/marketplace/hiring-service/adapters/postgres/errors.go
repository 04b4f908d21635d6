package postgresadapter

import (
	"context"
	"errors"
	"fmt"

	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes that mean "another transaction got in the way; retry".
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
	pgUniqueViolation      = "23505"
)

// classifyError maps driver failures onto the domain taxonomy. Errors that
// are not infrastructure contention pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable, pgQueryCanceled:
			return fmt.Errorf("%w: %s (%s)", domainerrors.ErrTransientFailure, pgErr.Message, pgErr.Code)
		case pgUniqueViolation:
			switch pgErr.ConstraintName {
			case oneHiredPerPostingIndex:
				return domainerrors.ErrConcurrentAssignment
			case uniqueSubmitterIndex:
				return domainerrors.ErrDuplicateProposal
			default:
				return domainerrors.ErrRepositoryInvariantBroke
			}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domainerrors.ErrTransientFailure, err)
	}
	return err
}
