package db

import (
	"encoding/json"
	"errors"
)

// --------------------------------------------------------------------------
// Document Types
// --------------------------------------------------------------------------

// NamespaceKey is the reserved top-level key that holds the namespace index.
// It can never be used as a user key, neither in the root space nor inside a namespace.
const NamespaceKey = "_namespaces"

// ErrDecode marks content that is not a valid encoded Document.
var ErrDecode = errors.New("invalid document")

// Entry is the persisted state of a single key: an opaque json value and its version.
// The short json names match the on-disk format {"v": <value>, "i": <version>}.
type Entry struct {
	Value   json.RawMessage `json:"v"`
	Version uint64          `json:"i"`
}

// Document is the entire state of a store file.
// Root holds the keys of the root space, Namespaces maps a namespace name to its keys.
// Both maps are always non-nil for documents created by NewDocument or a codec.
type Document struct {
	Root       map[string]Entry
	Namespaces map[string]map[string]Entry
}

// NewDocument returns the empty skeleton document.
func NewDocument() *Document {
	return &Document{
		Root:       make(map[string]Entry),
		Namespaces: make(map[string]map[string]Entry),
	}
}

// Space returns the key space for the namespace ns (the root space if ns is empty).
// If create is set, a missing namespace is created, otherwise nil is returned for it.
func (d *Document) Space(ns string, create bool) map[string]Entry {
	if ns == "" {
		return d.Root
	}
	space, ok := d.Namespaces[ns]
	if !ok && create {
		space = make(map[string]Entry)
		d.Namespaces[ns] = space
	}
	return space
}

// DropIfEmpty removes the namespace ns if it has no keys left.
func (d *Document) DropIfEmpty(ns string) {
	if ns == "" {
		return
	}
	if space, ok := d.Namespaces[ns]; ok && len(space) == 0 {
		delete(d.Namespaces, ns)
	}
}

// Len returns the total number of keys over all spaces.
func (d *Document) Len() int {
	n := len(d.Root)
	for _, space := range d.Namespaces {
		n += len(space)
	}
	return n
}

// --------------------------------------------------------------------------
// Persistent Store Interface
// --------------------------------------------------------------------------

// IFileDB owns a single store file. Every method takes an exclusive file lock for its whole body,
// so other processes sharing the file never observe a half-written document.
type IFileDB interface {
	// Load reads and decodes the whole document.
	Load() (doc *Document, err error)

	// Update decodes the current document and passes it to fn, which may mutate it in place.
	// If fn returns nil the document is re-encoded and replaces the file content (write, then truncate).
	// If fn returns an error nothing is written and that error is returned unchanged.
	// The lock is held from decode until the new content is written.
	Update(fn func(doc *Document) error) (err error)

	// Reset overwrites the file with the empty skeleton document.
	Reset() (err error)

	// Backup writes a copy of the current document to dst.
	// The copy is written to a temporary file and renamed, so dst is never half-written.
	Backup(dst string) (err error)

	// Restore replaces the whole document with the document stored in src.
	Restore(src string) (err error)

	// Path returns the absolute path of the store file.
	Path() string
}

// Options configures a file db.
type Options struct {
	Codec ICodec // Codec used for the store file (nil = compact json)
	Fsync bool   // Whether to fsync the file after every rewrite
}

// DefaultOptions returns the default options.
func DefaultOptions() *Options {
	return &Options{
		Codec: NewJSONCodec(false),
		Fsync: false,
	}
}
