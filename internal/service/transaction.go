package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/appointments-api/internal/repository"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// errTxUnavailable is returned when a service was wired without a database.
var errTxUnavailable = errors.New("transaction provider missing")

// runInTx executes fn in one transaction, committing on success and rolling
// back on any error. Serialization failures restart the whole unit up to
// attempts times; the last such failure is returned as is.
func runInTx(ctx context.Context, provider txProvider, opts *sql.TxOptions, attempts int, onRetry func(attempt int, err error), fn func(tx *sqlx.Tx) error) error {
	if provider == nil {
		return errTxUnavailable
	}
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = runOnce(ctx, provider, opts, fn)
		if err == nil || !errors.Is(err, repository.ErrSerialization) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if onRetry != nil && attempt < attempts {
			onRetry(attempt, err)
		}
	}
	return err
}

func runOnce(ctx context.Context, provider txProvider, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := provider.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		// a serializable commit can still fail with 40001
		return fmt.Errorf("commit transaction: %w", repository.Classify(err))
	}
	return nil
}
