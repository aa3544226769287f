package export

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("store failure")
	ErrStaging    = errors.New("staging failure")
)

// Error is returned by every Service operation. Kind is one of the sentinel
// errors above; Message is safe to show to clients, Cause is not.
type Error struct {
	Kind    error
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func badRequest(format string, args ...any) *Error {
	return &Error{Kind: ErrBadRequest, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func storeFailure(op string, err error) *Error {
	return &Error{Kind: ErrStore, Message: "Failed to retrieve images", Cause: fmt.Errorf("%s: %w", op, err)}
}

func stagingFailure(op string, err error) *Error {
	return &Error{Kind: ErrStaging, Message: "Failed to create download", Cause: fmt.Errorf("%s: %w", op, err)}
}
