package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes the scheduling core reacts to.
const (
	sqlStateExclusionViolation   = "23P01"
	sqlStateUniqueViolation      = "23505"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateCheckViolation       = "23514"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

var (
	// ErrOverlap signals that storage rejected a row because it would
	// overlap another active appointment of the same customer.
	ErrOverlap = errors.New("appointment overlaps an existing appointment")
	// ErrSerialization signals a transaction that lost a serializable
	// conflict and may be retried from the start.
	ErrSerialization = errors.New("could not serialize access")
	// ErrDuplicate signals a unique index violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrReference signals a missing parent row.
	ErrReference = errors.New("referenced record does not exist")
	// ErrCheck signals a CHECK constraint violation.
	ErrCheck = errors.New("check constraint violated")
)

// classify maps driver errors to the sentinels above by SQLSTATE, keeping
// the original error in the chain. Anything unrecognised passes through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case sqlStateExclusionViolation:
		return fmt.Errorf("%w: %w", ErrOverlap, err)
	case sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	case sqlStateUniqueViolation:
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	case sqlStateForeignKeyViolation:
		return fmt.Errorf("%w: %w", ErrReference, err)
	case sqlStateCheckViolation:
		return fmt.Errorf("%w: %w", ErrCheck, err)
	default:
		return err
	}
}

// Classify applies the same mapping to errors raised outside a repository
// call, such as a failed COMMIT.
func Classify(err error) error {
	return classify(err)
}
