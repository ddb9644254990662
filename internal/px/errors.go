package px

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an id has no attachment or resource.
	ErrNotFound = errors.New("not found")

	// ErrLocked is returned when encrypted content is read before Unlock.
	ErrLocked = errors.New("encrypted content is locked")
)

// ValidationError reports a caller-level problem with a specific id.
type ValidationError struct {
	ID     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request for %s: %s", e.ID, e.Reason)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}
