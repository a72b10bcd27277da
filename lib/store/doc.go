// Package store defines the interface of a versioned key-value store together with
// the types and errors shared by its implementations.
//
// Key Components:
//
//   - IStore Interface: The operations of the store. Get and List read a single key or a
//     whole namespace, Set and Delete mutate a key, Flush empties the store and Close
//     releases it. Every call accepts functional options (WithNamespace, WithPrevNode,
//     WithPrevAbsent, WithWait).
//
//   - Records and Results: A Record is a key with its JSON value and version. Versions
//     start at 1 and grow by one with every write to the key. Each operation returns a
//     Result holding the action that was performed, the record after the operation and
//     the record it replaced.
//
//   - Conditional Writes: Passing WithPrevNode turns Set into a compare-and-swap and
//     Delete into a compare-and-delete. The write only happens if the stored version
//     matches the version of the given record. WithPrevAbsent expects the key to not exist.
//
//   - Error System: Errors are of type *Error and carry a RetCode. They can be checked
//     with errors.Is against the exported sentinels (ErrNotFound, ErrInvalidKey,
//     ErrVersionConflict, ErrClosed ...).
//
// Implementations:
//
//	- File Store (fstore): Keeps the whole store in one JSON file that can be shared by
//	  several processes. Writes are applied by a single background writer, reads are
//	  served from a periodically refreshed cache unless WithWait is given.
//	  Available in the "github.com/ValentinKolb/fKV/lib/store/fstore" package.
package store
