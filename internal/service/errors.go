package service

import "errors"

// Error taxonomy. Callers match with errors.Is; concrete causes are wrapped.
var (
	// ErrValidation rejects an input before any network call
	ErrValidation = errors.New("validation error")
	// ErrInterpretation means the interpreter failed or returned an unusable payload
	ErrInterpretation = errors.New("interpretation failed")
	// ErrFilterService means the filtering call failed
	ErrFilterService = errors.New("filter service failed")
	// ErrPersistence is a failed profile or cache write; never fatal
	ErrPersistence = errors.New("persistence failed")
	// ErrCatalog means the full catalog could not be fetched at session start
	ErrCatalog = errors.New("catalog fetch failed")
	// ErrTurnInProgress rejects a submit while another turn is outstanding
	ErrTurnInProgress = errors.New("a turn is already in progress")
	// ErrCompareFull rejects adding beyond the comparison limit
	ErrCompareFull = errors.New("compare set is full")
	// ErrSessionNotFound is returned for unknown session ids
	ErrSessionNotFound = errors.New("session not found")
	// ErrPropertyNotFound is returned when a property id is not in the session's catalog
	ErrPropertyNotFound = errors.New("property not found")
)

// IsRetryable reports whether the user can simply try the same turn again
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInterpretation) || errors.Is(err, ErrFilterService)
}
