package errors

import "fmt"

// UnavailableError marks failures caused by the store being unreachable,
// as opposed to a bad query. Callers use it to decide when to fall back
// to offline storage.
type UnavailableError struct {
	message string
}

func (v *UnavailableError) Error() string {
	return v.message
}

func UnavailableErrorf(format string, args ...interface{}) *UnavailableError {
	return &UnavailableError{
		message: fmt.Sprintf(format, args...),
	}
}

var _ error = &UnavailableError{}
