package lockmgr

import "time"

// ILockManager defines the interface for a lock provider.
type ILockManager interface {
	// AcquireLock acquires the lock for the given key. A timeout > 0 lets the lock expire after
	// that duration, so other owners can take it over. A timeout of 0 never expires.
	// Returns whether the lock was acquired, the owner ID needed to release it, and an error if any.
	AcquireLock(key string, timeout time.Duration) (ok bool, ownerID []byte, err error)

	// ReleaseLock releases the lock for the given key.
	// Returns whether the lock was released, and an error if any.
	// The method also returns true if the lock did not exist.
	ReleaseLock(key string, ownerID []byte) (ok bool, err error)
}
