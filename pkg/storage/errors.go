package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound if the requested record or user does not exist, or is not visible to
	// the caller.
	ErrNotFound = errors.New("not found")

	// ErrTransient if the store failed in a way that may succeed when retried, such as a
	// lost leader or an expired deadline.
	ErrTransient = errors.New("transient datastore failure")

	// ErrInvalidCapability if a capability other than CAN_EDIT or CAN_DELETE is granted
	// or revoked.
	ErrInvalidCapability = errors.New("invalid capability")
)

func InvalidCapabilityError(c string) error {
	return fmt.Errorf("capability '%s' cannot be granted or revoked: %w", c, ErrInvalidCapability)
}
