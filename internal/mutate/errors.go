package mutate

import (
	"errors"
	"fmt"
)

// ErrRootDelete is returned when a delete targets the root person.
var ErrRootDelete = errors.New("the root person cannot be deleted")

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
