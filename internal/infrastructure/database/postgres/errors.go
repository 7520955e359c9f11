// internal/infrastructure/database/postgres/errors.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/your-org/coating-shop/internal/pkg/apperr"
	"gorm.io/gorm"
)

// PostgreSQL error codes the store translates
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeNotNullViolation     = "23502"
)

// mapError translates driver errors into application error kinds. notFound
// replaces gorm.ErrRecordNotFound when given.
func mapError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil {
		return notFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return &apperr.Error{Kind: apperr.ErrConflict, Msg: fmt.Sprintf("concurrent update, retry the request: %s", pgErr.Message)}
		case codeUniqueViolation, codeForeignKeyViolation, codeCheckViolation, codeNotNullViolation:
			return &apperr.Error{Kind: apperr.ErrIntegrity, Msg: fmt.Sprintf("%s (%s)", pgErr.Message, pgErr.ConstraintName)}
		}
	}
	return err
}
