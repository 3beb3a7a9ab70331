package speeddial

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrValidation indicates an empty or otherwise unacceptable required field.
	ErrValidation = eris.New("validation failed")
	// ErrCapacityExceeded indicates the page already holds SlotsPerPage links.
	ErrCapacityExceeded = eris.New("page link capacity exceeded")
	// ErrInvariantViolation indicates an operation that would break a data model rule.
	ErrInvariantViolation = eris.New("invariant violation")
	// ErrNotFound indicates a missing page or link.
	ErrNotFound = eris.New("not found")
	// ErrStorage is matched by every *StorageError.
	ErrStorage = eris.New("storage failure")
)

// StorageError reports an I/O or schema failure in the persistence store.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a storage failure for the named operation.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStorage) match any storage failure.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// ImageTooLargeError rejects a link image above the configured limit. It
// matches ErrValidation.
type ImageTooLargeError struct {
	Size  int
	Limit int
}

func (e *ImageTooLargeError) Error() string {
	return fmt.Sprintf("image of %d bytes exceeds the %d byte limit", e.Size, e.Limit)
}

func (e *ImageTooLargeError) Is(target error) bool {
	return target == ErrValidation
}

// IsImageTooLarge reports whether err rejected an oversized image.
func IsImageTooLarge(err error) bool {
	var tooLarge *ImageTooLargeError
	return errors.As(err, &tooLarge)
}

// IsStorage reports whether err originated in the persistence store.
func IsStorage(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr)
}
