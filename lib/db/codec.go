package db

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tailscale/hujson"
)

// ICodec converts a Document to bytes and back.
type ICodec interface {
	// Encode serializes the whole document.
	Encode(doc *Document) ([]byte, error)
	// Decode parses b into a new document.
	// It returns an error wrapping ErrDecode if b is not a valid encoded document.
	Decode(b []byte) (*Document, error)
}

// NewJSONCodec creates a codec writing standard json.
// If indent is set the output is pretty-printed, which makes the store file easier to edit by hand.
// Decoding accepts HuJSON (comments and trailing commas), so hand-edited files still load.
func NewJSONCodec(indent bool) ICodec {
	return &jsonCodecImpl{indent: indent}
}

// jsonCodecImpl implements the ICodec interface using json encoding
type jsonCodecImpl struct {
	indent bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.ICodec)
// --------------------------------------------------------------------------

func (c *jsonCodecImpl) Encode(doc *Document) ([]byte, error) {
	out := make(map[string]any, len(doc.Root)+1)
	for key, entry := range doc.Root {
		out[key] = entry
	}

	namespaces := doc.Namespaces
	if namespaces == nil {
		namespaces = map[string]map[string]Entry{}
	}
	out[NamespaceKey] = namespaces

	if c.indent {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}

func (c *jsonCodecImpl) Decode(b []byte) (*Document, error) {
	standardized, err := hujson.Standardize(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(standardized, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	doc := NewDocument()
	for key, value := range raw {
		// case namespace index
		if key == NamespaceKey {
			var namespaces map[string]map[string]Entry
			if err := json.Unmarshal(value, &namespaces); err != nil {
				return nil, fmt.Errorf("%w: namespace index: %v", ErrDecode, err)
			}
			for ns, space := range namespaces {
				// empty namespaces are never persisted by us, drop ones written by others
				if len(space) == 0 {
					continue
				}
				for k, entry := range space {
					if k == NamespaceKey {
						return nil, fmt.Errorf("%w: reserved key in namespace %q", ErrDecode, ns)
					}
					if err := normalizeEntry(&entry); err != nil {
						return nil, fmt.Errorf("%w: key %q in namespace %q: %v", ErrDecode, k, ns, err)
					}
					space[k] = entry
				}
				doc.Namespaces[ns] = space
			}
			continue
		}

		// case root key
		var entry Entry
		if err := json.Unmarshal(value, &entry); err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrDecode, key, err)
		}
		if err := normalizeEntry(&entry); err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrDecode, key, err)
		}
		doc.Root[key] = entry
	}

	return doc, nil
}

// normalizeEntry checks the invariants of a decoded entry and compacts its value.
// Indented files and hand edits add whitespace inside values.
func normalizeEntry(entry *Entry) error {
	if entry.Version == 0 {
		return fmt.Errorf("version must be positive")
	}
	if len(entry.Value) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, entry.Value); err != nil {
		return err
	}
	entry.Value = buf.Bytes()
	return nil
}
