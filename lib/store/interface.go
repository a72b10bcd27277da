package store

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the interface for interacting with a versioned key-value store.
// Every mutation returns a Result describing the new and the previous state of the key.
//
// Mutations are fire-and-forget by default: they are queued and applied in submission order by
// a single writer, and the returned Result only reports that the mutation was queued. With
// WithWait() the mutation is applied before the call returns and its errors are reported.
// Reads are served from a periodically refreshed snapshot unless WithWait() is given.
type IStore interface {
	// Get returns the record stored under key.
	// Returns an error matching ErrNotFound if the key does not exist.
	Get(key string, opts ...Option) (result Result, err error)

	// List returns one result per key of the root space, or of a namespace if WithNamespace
	// is given. The results are sorted by key. A missing namespace yields an empty list.
	List(opts ...Option) (results []Result, err error)

	// Set stores value under key. The value must be json-serializable.
	// With WithPrevNode/WithPrevAbsent the write is a compare-and-swap.
	Set(key string, value any, opts ...Option) (result Result, err error)

	// Delete removes key.
	// With WithPrevNode the delete is a compare-and-delete.
	Delete(key string, opts ...Option) (result Result, err error)

	// Flush removes every key and namespace.
	Flush() (err error)

	// Close drains queued mutations and stops all background work.
	// Closing twice is a no-op, every other call after Close returns an error matching ErrClosed.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is an *Error with the same code.
// ErrVersionConflict matches both compare-and-swap and compare-and-delete failures.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == RetCVersionConflict {
		return e.Code == RetCCompareAndSwapFailed || e.Code == RetCCompareAndDeleteFailed || e.Code == RetCVersionConflict
	}
	return t.Code == e.Code
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Sentinel errors for use with errors.Is. Only the code is compared.
var (
	ErrNotFound         = NewError(RetCNotFound, "not found")
	ErrInvalidKey       = NewError(RetCInvalidKey, "invalid key")
	ErrCompareAndSwap   = NewError(RetCCompareAndSwapFailed, "compare and swap failed")
	ErrCompareAndDelete = NewError(RetCCompareAndDeleteFailed, "compare and delete failed")
	ErrVersionConflict  = NewError(RetCVersionConflict, "version conflict")
	ErrClosed           = NewError(RetCClosed, "store is closed")
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess                RetCode = iota // 0: Command executed successfully.
	RetCInternalError                         // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                  // 2: Operation is not supported by the store.
	RetCInvalidOperation                      // 3: Invalid operation.
	RetCNotFound                              // 4: The key does not exist.
	RetCInvalidKey                            // 5: The key is reserved.
	RetCCompareAndSwapFailed                  // 6: The expected version of a set does not match.
	RetCCompareAndDeleteFailed                // 7: The expected version of a delete does not match.
	RetCVersionConflict                       // 8: Matches 6 and 7, only used for errors.Is.
	RetCClosed                                // 9: The store has been closed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCNotFound:
		return "NotFound"
	case RetCInvalidKey:
		return "InvalidKey"
	case RetCCompareAndSwapFailed:
		return "CompareAndSwap"
	case RetCCompareAndDeleteFailed:
		return "CompareAndDelete"
	case RetCVersionConflict:
		return "VersionConflict"
	case RetCClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
