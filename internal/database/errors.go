package database

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicateRoom is returned when a room insert loses the race
	// against a concurrent insert for the same identity key. Callers
	// re-fetch the winning row.
	ErrDuplicateRoom = errors.New("duplicate room")
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}
