// Package lockmgr implements a locking mechanism on top of any store.IStore.
// With the file store (fstore) this gives advisory locks shared by every process
// that opens the same store file.
//
// The lockmgr only ever stores in the provided IStore and has no other internal
// state. Therefore it is safe to be created multiple times on the same store.
// It is even possible to create a new lockmgr for every acquire or release
// operation. As long as the same store is used every time, all locks will
// work as expected.
//
// Core Functionality:
//   - Lock acquisition with ownership verification
//   - Lock expiration through optional timeouts
//   - Safe release operations that verify ownership
//
// Implementation Approach:
//
//	Locks are records in the namespace "_locks" (see WithNamespace) with the value
//
//	  {"owner": "<hex owner id>", "expires_at": <unix millis or 0>}
//
//	- Lock Acquisition: A free lock is created with a compare-and-swap against
//	  "absent" (store.WithPrevAbsent), so only one requester can create it.
//	  An expired lock is taken over with a compare-and-swap against the expired
//	  record. Losing either race means the lock was not acquired.
//
//	- Timeouts: A lock with a timeout is considered free once it expired. It stays
//	  in the store until it is taken over or released.
//
//	- Safe Release: ReleaseLock compares the stored owner ID with the given one
//	  and deletes the record with a compare-and-delete.
//
// All store calls use wait mode, so every decision is based on the store file itself
// and never on a cached snapshot.
package lockmgr
