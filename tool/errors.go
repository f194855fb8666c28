package tool

import (
	"errors"
	"fmt"
)

// NotFoundError reports an Execute call against an unknown tool name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found", e.Name)
}

// IsNotFound reports whether err is a tool lookup failure.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
