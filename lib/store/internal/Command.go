package internal

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/fKV/lib/db"
	"github.com/ValentinKolb/fKV/lib/store"
)

// CommandType defines the possible mutations of a document.
type CommandType uint8

const (
	CommandTSet    CommandType = iota // Insert or update an entry (compare-and-swap if Prev is set).
	CommandTDelete                    // Delete an entry (compare-and-delete if Prev is set).
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTSet:
		return "Set"
	case CommandTDelete:
		return "Delete"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// Command is a single mutation of a document. It is built by the store, then applied either
// directly inside a db.IFileDB.Update call or later by the write queue.
type Command struct {
	Type      CommandType
	Key       string
	Namespace string          // "" = root space
	Value     json.RawMessage // Only used by CommandTSet
	Prev      *store.Record   // Expected current state, nil = unconditional
}

// Action returns the action a successful application of the command reports.
func (command *Command) Action() store.Action {
	switch command.Type {
	case CommandTSet:
		if command.Prev != nil {
			return store.ActionCompareAndSwap
		}
		return store.ActionSet
	case CommandTDelete:
		if command.Prev != nil {
			return store.ActionCompareAndDelete
		}
		return store.ActionDelete
	default:
		return ""
	}
}

// Apply executes the command against doc, mutating it in place.
// On error the document is left untouched.
func (command *Command) Apply(doc *db.Document) (store.Result, error) {
	if err := ValidateKey(command.Key); err != nil {
		return store.Result{}, err
	}

	switch command.Type {
	case CommandTSet:
		if command.Prev != nil {
			return CompareAndSwap(doc, command.Key, command.Namespace, command.Value, command.Prev.Version)
		}
		return Set(doc, command.Key, command.Namespace, command.Value)
	case CommandTDelete:
		if command.Prev != nil {
			return CompareAndDelete(doc, command.Key, command.Namespace, command.Prev.Version)
		}
		return Delete(doc, command.Key, command.Namespace)
	default:
		return store.Result{}, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown command %s", command.Type))
	}
}

// --------------------------------------------------------------------------
// Mutations
// --------------------------------------------------------------------------

// ValidateKey rejects the reserved namespace index key.
func ValidateKey(key string) error {
	if key == db.NamespaceKey {
		return store.NewError(store.RetCInvalidKey, fmt.Sprintf("key %q is reserved", key))
	}
	return nil
}

// Set stores value under key, creating the namespace if needed.
// The version of the key becomes the old version + 1, or 1 if the key did not exist.
func Set(doc *db.Document, key, ns string, value json.RawMessage) (store.Result, error) {
	return set(doc, key, ns, value, store.ActionSet)
}

// CompareAndSwap works like Set but only applies if the current version of key equals prevVersion.
// A missing key has version 0, so prevVersion 0 means the key must not exist yet.
func CompareAndSwap(doc *db.Document, key, ns string, value json.RawMessage, prevVersion uint64) (store.Result, error) {
	var current uint64
	if entry, ok := lookup(doc, key, ns); ok {
		current = entry.Version
	}
	if current != prevVersion {
		return store.Result{}, store.NewError(store.RetCCompareAndSwapFailed,
			fmt.Sprintf("key %q has version %d, expected %d", key, current, prevVersion))
	}
	return set(doc, key, ns, value, store.ActionCompareAndSwap)
}

// Delete removes key. The namespace is removed as well once it has no keys left.
func Delete(doc *db.Document, key, ns string) (store.Result, error) {
	if _, ok := lookup(doc, key, ns); !ok {
		return store.Result{}, notFound(key, ns)
	}
	return remove(doc, key, ns, store.ActionDelete), nil
}

// CompareAndDelete works like Delete but only applies if the current version of key equals prevVersion.
// A missing key is reported as not found, never as a conflict.
func CompareAndDelete(doc *db.Document, key, ns string, prevVersion uint64) (store.Result, error) {
	entry, ok := lookup(doc, key, ns)
	if !ok {
		return store.Result{}, notFound(key, ns)
	}
	if entry.Version != prevVersion {
		return store.Result{}, store.NewError(store.RetCCompareAndDeleteFailed,
			fmt.Sprintf("key %q has version %d, expected %d", key, entry.Version, prevVersion))
	}
	return remove(doc, key, ns, store.ActionCompareAndDelete), nil
}

func set(doc *db.Document, key, ns string, value json.RawMessage, action store.Action) (store.Result, error) {
	if len(value) == 0 {
		value = json.RawMessage("null")
	}

	space := doc.Space(ns, true)
	old, existed := space[key]

	entry := db.Entry{Value: cloneRaw(value), Version: old.Version + 1}
	space[key] = entry

	result := store.Result{Action: action, Node: toRecord(key, entry)}
	if existed {
		result.PrevNode = toRecord(key, old)
	}
	return result, nil
}

func remove(doc *db.Document, key, ns string, action store.Action) store.Result {
	space := doc.Space(ns, false)
	old := space[key]
	delete(space, key)
	doc.DropIfEmpty(ns)

	return store.Result{Action: action, PrevNode: toRecord(key, old)}
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// lookup never creates a namespace
func lookup(doc *db.Document, key, ns string) (db.Entry, bool) {
	space := doc.Space(ns, false)
	if space == nil {
		return db.Entry{}, false
	}
	entry, ok := space[key]
	return entry, ok
}

func notFound(key, ns string) *store.Error {
	if ns == "" {
		return store.NewError(store.RetCNotFound, fmt.Sprintf("key %q not found", key))
	}
	return store.NewError(store.RetCNotFound, fmt.Sprintf("key %q not found in namespace %q", key, ns))
}

// toRecord copies the entry, so records handed out never alias a document
func toRecord(key string, entry db.Entry) *store.Record {
	return &store.Record{
		Key:     key,
		Value:   cloneRaw(entry.Value),
		Version: entry.Version,
	}
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return cp
}
