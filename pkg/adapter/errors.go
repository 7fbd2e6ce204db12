package adapter

import "errors"

var (
	// ErrUnsupportedMethod is matched by every UnsupportedMethodError.
	ErrUnsupportedMethod = errors.New("adapter method not supported")

	// ErrAccountNotFound means the network has no record of the address.
	ErrAccountNotFound = errors.New("account not found")
)

// UnsupportedMethodError is returned when the configured adapter lacks the
// capability a call needs.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return "adapter does not support " + e.Method
}

// Is reports whether target is ErrUnsupportedMethod.
func (e *UnsupportedMethodError) Is(target error) bool {
	return target == ErrUnsupportedMethod
}
