// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrInvalidRepoFormat is returned when a repository string in the config is not in 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// ErrTransientStore marks a store failure that is expected to clear up on its
// own, such as a lock timeout or a serialization failure. Work that fails
// with it is abandoned and picked up again by the next sync pass.
var ErrTransientStore = errors.New("transient store error")

// IsTransient reports whether err is a transient store failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientStore)
}

// ErrUserNotFound is returned by read queries for an unknown user name.
var ErrUserNotFound = errors.New("user not found")
