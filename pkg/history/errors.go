package history

import (
	"errors"
	"fmt"
)

var (
	ErrMissingURI     = errors.New("history store URI is not set")
	ErrUnsupportedURI = errors.New("unsupported history store URI")
	ErrStoreClosed    = errors.New("history store is closed")
	ErrInvalidTurn    = errors.New("invalid turn")
)

// InvalidTurnError reports a turn that cannot be persisted.
type InvalidTurnError struct {
	Field  string
	Reason string
}

func (e *InvalidTurnError) Error() string {
	if e == nil {
		return ErrInvalidTurn.Error()
	}
	return fmt.Sprintf("%s (%s): %s", ErrInvalidTurn, e.Field, e.Reason)
}

func (e *InvalidTurnError) Is(target error) bool { return target == ErrInvalidTurn }
