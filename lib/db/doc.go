// Package db implements the persistent layer of fKV: a single file holding one
// self-contained document with every key of the store.
//
// The package focuses on:
//   - The Document model (root keys plus the reserved namespace index)
//   - The IFileDB interface for exclusive-locked whole-document reads and
//     atomic read-modify-write cycles
//   - The ICodec interface for turning a Document into bytes and back
//
// On-disk Format:
//
//	The file holds one json object. Every top-level key maps to an entry of the
//	form {"v": <any json value>, "i": <version>}. The reserved key "_namespaces"
//	maps a namespace name to a nested object of the same shape:
//
//	{"_namespaces":{"fubar":{"foo":{"v":"bar","i":1}}},"foo1":{"v":42,"i":3}}
//
//	Values are kept as raw json and are never interpreted by this package, so they
//	round-trip byte for byte (modulo whitespace). Decoding accepts HuJSON (comments,
//	trailing commas), the file is always written as standard json.
//
// Locking:
//
//	Every IFileDB method opens the file, takes an exclusive lock (flock(2) on unix,
//	LockFileEx on windows) and holds it for its whole body. Update holds the lock from
//	decoding the current document until the new document has been written and the
//	file truncated to its new length. Other processes sharing the file therefore never
//	observe a half-applied state. The lock is advisory, all processes accessing the file
//	must go through this package.
//
// Usage Example:
//
//	fdb, err := db.OpenFileDB("data/store.json", nil)
//	if err != nil {
//		// handle error
//	}
//
//	err = fdb.Update(func(doc *db.Document) error {
//		doc.Root["foo"] = db.Entry{Value: json.RawMessage(`"bar"`), Version: 1}
//		return nil
//	})
//
// The versioning rules (when versions increase, which keys are valid) are not enforced
// here, they live in the store package which runs its mutation engine inside Update.
package db
