package internal

import (
	"sort"

	"github.com/ValentinKolb/fKV/lib/db"
	"github.com/ValentinKolb/fKV/lib/store"
)

// Get returns the record stored under key in namespace ns.
// Reading a missing namespace does not create it.
func Get(doc *db.Document, key, ns string) (store.Result, error) {
	entry, ok := lookup(doc, key, ns)
	if !ok || key == db.NamespaceKey {
		return store.Result{}, notFound(key, ns)
	}
	return store.Result{Action: store.ActionGet, Node: toRecord(key, entry)}, nil
}

// List returns one result per key of namespace ns (root space if empty), sorted by key.
// A missing namespace yields an empty, non-nil list.
func List(doc *db.Document, ns string) []store.Result {
	space := doc.Space(ns, false)

	keys := make([]string, 0, len(space))
	for key := range space {
		if key == db.NamespaceKey {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	results := make([]store.Result, 0, len(keys))
	for _, key := range keys {
		results = append(results, store.Result{Action: store.ActionGet, Node: toRecord(key, space[key])})
	}
	return results
}
