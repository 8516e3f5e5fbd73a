package game

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned when a game cannot start with the given settings.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidTransition is returned when an action is invoked while its precondition fails.
	// The engine state is left untouched.
	ErrInvalidTransition = errors.New("invalid transition")
)

func invalidTransition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

// invariant panics when an unreachable state is detected. Roster corruption must never go unnoticed.
func invariant(ok bool, format string, args ...any) {
	if !ok {
		panic("game: invariant violated: " + fmt.Sprintf(format, args...))
	}
}
