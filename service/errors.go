package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a body or query parameter fails validation.
	ErrInvalidInput = errors.New("lepidoptera: invalid input")

	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("lepidoptera: not found")

	// ErrInvalidSortOrder is returned by ScoreService.List for a sort order
	// other than "asc" or "desc".
	ErrInvalidSortOrder = fmt.Errorf("%w: sort order must be one of asc, desc", ErrInvalidInput)

	// ErrNoScores is returned by ScoreService.List when the user has no
	// scores. Callers see it as ErrNotFound; an unknown user and a user
	// without scores are reported identically.
	ErrNoScores = fmt.Errorf("%w: no scores for user", ErrNotFound)
)

// invalid wraps a validation failure so that both ErrInvalidInput and the
// underlying *schema.ValidationError are reachable through errors.Is/As.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}
