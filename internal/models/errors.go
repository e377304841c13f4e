package models

import "errors"

// Error kinds surfaced to callers. Wrap them with fmt.Errorf("...: %w", ErrX)
// and test with errors.Is.
var (
	ErrConflict           = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrFetch              = errors.New("fetch failed")
	ErrParse              = errors.New("parse failed")
	ErrLockTimeout        = errors.New("lock wait timed out")
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrDuplicate          = errors.New("already in progress")
	ErrUnknownSource      = errors.New("unknown source")
	ErrInvalidIdentifier  = errors.New("invalid identifier")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrConflict, "conflict"},
	{ErrNotFound, "not_found"},
	{ErrAccessDenied, "access_denied"},
	{ErrFetch, "fetch_error"},
	{ErrParse, "parse_failure"},
	{ErrLockTimeout, "lock_timeout"},
	{ErrMaxRetriesExceeded, "max_retries_exceeded"},
	{ErrDuplicate, "duplicate"},
	{ErrUnknownSource, "unknown_source"},
	{ErrInvalidIdentifier, "invalid_identifier"},
}

// Kind returns a stable name for the error kind carried by err.
// Returns "" for nil and "internal" for errors outside the taxonomy.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
