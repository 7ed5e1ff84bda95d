package response

import (
	"errors"
)

// Error is an error that knows its HTTP status. Cause carries the underlying
// failure that is reported back to the caller.
type Error struct {
	Code  int
	Err   error
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Err.Error() + ": " + e.Cause.Error()
	}
	return e.Err.Error()
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(code int, err string) error {
	return &Error{Code: code, Err: errors.New(err)}
}

// Wrap attaches cause to a sentinel created by NewError. The result still
// matches the sentinel with errors.Is.
func Wrap(sentinel error, cause error) error {
	var base *Error
	if !errors.As(sentinel, &base) {
		return errors.Join(sentinel, cause)
	}
	return &Error{Code: base.Code, Err: base.Err, Cause: cause}
}
