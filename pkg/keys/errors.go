package keys

import (
	"errors"
	"fmt"
)

// ErrDomainNotReady is returned when a domain is used before Initialize.
var ErrDomainNotReady = errors.New("key domain not initialized")

// PersistenceError reports a failed durable write of a key index. The
// in-memory index is not advanced when it is returned.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist key index %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
