package cli

import (
	"errors"
	"fmt"

	"familytree/internal/app"
	"familytree/internal/mutate"
	"familytree/internal/store"
	"familytree/internal/syncgw"
	"familytree/internal/treepath"
)

type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

func errUsage(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// Exit codes.
const (
	exitError    = 1
	exitUsage    = 2
	exitNotFound = 3
	exitSync     = 4
)

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	var ue usageError
	var fe mutate.FieldError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ue),
		errors.As(err, &fe),
		errors.Is(err, treepath.ErrInvalidPath),
		errors.Is(err, store.ErrInvalidImport),
		errors.Is(err, mutate.ErrRootDelete):
		return exitUsage
	case errors.Is(err, treepath.ErrNodeNotFound):
		return exitNotFound
	case errors.Is(err, syncgw.ErrLoad), errors.Is(err, syncgw.ErrPersist), errors.Is(err, app.ErrNotLoaded):
		return exitSync
	default:
		return exitError
	}
}
