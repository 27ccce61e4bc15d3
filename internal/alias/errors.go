package alias

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPhase is returned when a round operation is called out of order.
	ErrPhase = fmt.Errorf("%w: round is in another phase", ErrConflict)

	ErrNoUnusedWords = fmt.Errorf("%w: no unused words", ErrNotFound)
)

// Errorf wraps kind with a formatted message so errors.Is still matches kind.
func Errorf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
