package biddingerrors

import (
	"errors"
	"fmt"
)

// Lookup errors
var (
	ErrNotFound        = errors.New("not found")
	ErrItemNotFound    = fmt.Errorf("item %w", ErrNotFound)
	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)
	ErrAlreadyExists   = errors.New("already exists")
)

// Bid rejections. None of them leave any mutation behind.
var (
	ErrInvalidBid          = errors.New("invalid bid")
	ErrInvalidItem         = errors.New("invalid item")
	ErrInvalidAccount      = errors.New("invalid account")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrItemClosed          = errors.New("item closed")
)

// Infrastructure errors
var (
	ErrLockTimeout   = errors.New("lock acquisition timed out")
	ErrInternalStore = errors.New("internal store error")
	ErrSlowConsumer  = errors.New("subscriber fell behind")
)

// Error codes reported to bid submitters
const (
	CodeNotFound            = "NotFound"
	CodeInsufficientCredits = "InsufficientCredits"
	CodeItemClosed          = "ItemClosed"
	CodeLockTimeout         = "LockTimeout"
	CodeInvalidRequest      = "InvalidRequest"
	CodeInternalError       = "InternalError"
)

// Code maps an error to its reported error code
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInsufficientCredits):
		return CodeInsufficientCredits
	case errors.Is(err, ErrItemClosed):
		return CodeItemClosed
	case errors.Is(err, ErrLockTimeout):
		return CodeLockTimeout
	case errors.Is(err, ErrInvalidBid), errors.Is(err, ErrInvalidItem), errors.Is(err, ErrInvalidAccount):
		return CodeInvalidRequest
	default:
		return CodeInternalError
	}
}

// Retryable reports whether the caller may resubmit the same request
func Retryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
