// Package internal implements the versioned mutation engine of the fstore package.
// It operates on a decoded db.Document and knows nothing about files, locks, or queues.
//
// This package is intended for internal use by the store implementations and should
// not be imported directly by external code.
//
// The package consists of two parts:
//
//   - Commands: Set and Delete mutations, each optionally conditional on the expected
//     version of the key (compare-and-swap / compare-and-delete). A Command carries
//     everything needed to apply it later, so the store can either run it directly inside
//     db.IFileDB.Update or hand it to the write queue.
//
//   - Queries: Get and List over a document. Queries never modify the document,
//     in particular they never create a namespace.
//
// Versioning:
//
//	Every key carries a version. It is 1 after the first write and grows by one with
//	every further write. A missing key is treated as version 0, which makes a
//	compare-and-swap against version 0 a create-if-absent. A compare-and-delete of a
//	missing key always fails with NotFound.
//
// Returned records are copies. Callers may keep them after the document changes.
//
// Thread Safety:
//
//	Nothing in this package is synchronized. Callers must hold the file lock (through
//	db.IFileDB.Update) or work on a private document.
package internal
