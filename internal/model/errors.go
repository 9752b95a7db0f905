package model

import (
	"errors"
	"fmt"
)

// NotFoundError means a business could not be resolved at all. It is a fatal
// pipeline error: the audit fails with this message.
type NotFoundError struct {
	Name     string
	Location string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("business %q not found in %s", e.Name, e.Location)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
