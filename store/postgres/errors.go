package postgres

import (
	"errors"
	"fmt"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode      = "23505"
	checkViolationCode       = "23514"
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
)

// translatePgError maps server error codes onto the generic taxonomy.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolationCode:
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, generic.ErrAlreadyExists)
	case checkViolationCode:
		return generic.NewValidationError(pgErr.ConstraintName, pgErr.Message)
	case serializationFailureCode, deadlockDetectedCode:
		return fmt.Errorf("%s: %w", pgErr.Message, generic.ErrConcurrentModification)
	default:
		return err
	}
}
