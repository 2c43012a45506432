package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("conflict")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// mapWriteError converts driver errors into store errors.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ErrConflict
	}
	return err
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}

func rowsAffected(affected int64, err error) error {
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
