// Package cmd implements the command-line interface for the fKV file store.
// It provides a hierarchical command structure with operations for reading and
// writing keys and for working with locks.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value store operations (get, list, set, del, flush, backup,
//     restore), an interactive shell and a benchmark
//   - lock: Commands for locking operations (acquire, release)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every command opens the store given by --path. Flags can be set through environment
// variables with the prefix FKV_ and through .env / .env.local files.
//
// See fkv -help for a list of all commands.
package cmd
