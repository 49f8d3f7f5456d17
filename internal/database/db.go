package database

import (
	"context"
	"errors"

	"github.com/BradenHooton/usermanager/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapPostgresError translates driver errors into model sentinels
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.ErrStoreUnavailable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return models.ErrDuplicateEmail
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return models.ErrStoreUnavailable
		}
	}

	return err
}

// WithTransaction runs fn inside a transaction, committing on success and
// rolling back on error or panic
func (db *DB) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return MapPostgresError(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = MapPostgresError(tx.Commit(ctx))
		}
	}()

	err = fn(tx)
	return err
}
