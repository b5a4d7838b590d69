package bidding

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionExists is returned when a session id is already taken (Conflict).
	ErrSessionExists = errors.New("session already exists")

	// ErrSessionNotFound is returned when no session has the requested id (NotFound).
	ErrSessionNotFound = errors.New("session not found")

	// ErrInsufficientBudget is returned by a deduction larger than the remaining budget.
	// Nothing is mutated when it is returned.
	ErrInsufficientBudget = errors.New("insufficient budget")
)

// IsConflict returns true if err reports a duplicate session.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSessionExists)
}

// IsNotFound returns true if err reports a missing session or a Redis "key not found".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, redis.Nil)
}
