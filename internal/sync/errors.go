package sync

import (
	"errors"
	"fmt"
)

// Error kinds produced while draining the queue. Transport and rejection
// failures only count against an item's retries; they never abort Sync.
var (
	ErrTransport      = errors.New("transport failure")
	ErrItemRejected   = errors.New("item rejected")
	ErrRetryExhausted = errors.New("retry limit exceeded")
)

// StorageError wraps a queue or record store failure. It aborts the
// current Sync since bookkeeping can no longer be trusted.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
