package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"marketplace/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func pick(db *sql.DB, tx *sql.Tx) querier {
	if tx == nil {
		return db
	}
	return tx
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgStringTooLong       = "22001"
	pgNumericOutOfRange   = "22003"
)

// translate maps constraint violations onto the domain taxonomy and leaves
// every other error as is.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return &domain.Error{
			Code:    domain.CodeConflict,
			Message: pgErr.Detail,
			Details: map[string]any{"constraint": pgErr.ConstraintName},
		}
	case pgForeignKeyViolation:
		return &domain.Error{
			Code:    domain.CodeNotFound,
			Message: pgErr.Detail,
			Details: map[string]any{"constraint": pgErr.ConstraintName},
		}
	case pgCheckViolation, pgStringTooLong, pgNumericOutOfRange:
		field := pgErr.ColumnName
		if field == "" {
			field = pgErr.ConstraintName
		}
		return &domain.Error{
			Code:    domain.CodeValidation,
			Message: pgErr.Message,
			Details: map[string]any{"field": field},
		}
	}
	return err
}
