package db

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/natefinch/atomic"
)

var Logger = logger.GetLogger("db")

const (
	filePerm = 0o644 // Permissions of a newly created store file
	dirPerm  = 0o755 // Permissions of newly created parent directories
)

// fileDB implements IFileDB on top of a single file protected by an exclusive file lock
type fileDB struct {
	path  string
	codec ICodec
	fsync bool
}

// --------------------------------------------------------------------------
// Initialization
// --------------------------------------------------------------------------

// OpenFileDB opens the store file at path with the specified options (optional).
// Missing parent directories and the file itself are created. An empty file is initialized
// with the empty skeleton document, existing content must be a valid document.
//
// Thread-safety: The returned db is safe for concurrent use, all methods serialize on the file lock.
func OpenFileDB(path string, opts *Options) (IFileDB, error) {
	if path == "" {
		return nil, errors.New("path is empty")
	}

	if opts == nil {
		opts = DefaultOptions()
	}
	codec := opts.Codec
	if codec == nil {
		codec = NewJSONCodec(false)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), dirPerm); err != nil {
		return nil, fmt.Errorf("create directory for %s: %w", absPath, err)
	}

	f := &fileDB{
		path:  absPath,
		codec: codec,
		fsync: opts.Fsync,
	}

	if err := f.ensure(); err != nil {
		return nil, err
	}

	return f, nil
}

// ensure initializes an empty (or missing) store file with the skeleton document
// and verifies that existing content can be decoded.
func (f *fileDB) ensure() error {
	return f.withLockedFile(os.O_RDWR|os.O_CREATE, func(file *os.File) error {
		content, err := io.ReadAll(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", f.path, err)
		}

		if len(bytes.TrimSpace(content)) == 0 {
			Logger.Infof("initializing empty store at %s", f.path)
			return f.write(file, NewDocument())
		}

		if _, err := f.codec.Decode(content); err != nil {
			return fmt.Errorf("decode %s: %w", f.path, err)
		}
		return nil
	})
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.IFileDB)
// --------------------------------------------------------------------------

func (f *fileDB) Load() (*Document, error) {
	var doc *Document
	err := f.withLockedFile(os.O_RDONLY, func(file *os.File) error {
		var err error
		doc, err = f.read(file)
		return err
	})
	return doc, err
}

func (f *fileDB) Update(fn func(doc *Document) error) error {
	return f.withLockedFile(os.O_RDWR, func(file *os.File) error {
		doc, err := f.read(file)
		if err != nil {
			return err
		}

		// the mutator decides whether anything is written
		if err := fn(doc); err != nil {
			return err
		}

		return f.write(file, doc)
	})
}

func (f *fileDB) Reset() error {
	return f.withLockedFile(os.O_RDWR|os.O_CREATE, func(file *os.File) error {
		return f.write(file, NewDocument())
	})
}

func (f *fileDB) Backup(dst string) error {
	doc, err := f.Load()
	if err != nil {
		return err
	}

	content, err := f.codec.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}

	if err := atomic.WriteFile(dst, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("write backup %s: %w", dst, err)
	}

	Logger.Infof("wrote backup of %s to %s (%d keys)", f.path, dst, doc.Len())
	return nil
}

func (f *fileDB) Restore(src string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read backup %s: %w", src, err)
	}

	restored, err := f.codec.Decode(content)
	if err != nil {
		return fmt.Errorf("decode backup %s: %w", src, err)
	}

	err = f.Update(func(doc *Document) error {
		*doc = *restored
		return nil
	})
	if err != nil {
		return err
	}

	Logger.Infof("restored %s from %s (%d keys)", f.path, src, restored.Len())
	return nil
}

func (f *fileDB) Path() string {
	return f.path
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// withLockedFile opens the store file with the given flags, takes the exclusive lock
// and runs fn. The lock is released and the file closed before returning.
func (f *fileDB) withLockedFile(flag int, fn func(file *os.File) error) (err error) {
	file, err := os.OpenFile(f.path, flag, filePerm)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", f.path, closeErr)
		}
	}()

	if err := lockFile(file); err != nil {
		return fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer func() {
		// closing the file releases the lock as well, so this error is only logged
		if unlockErr := unlockFile(file); unlockErr != nil {
			Logger.Warningf("unlock %s: %v", f.path, unlockErr)
		}
	}()

	return fn(file)
}

// read decodes the whole content of an open file
func (f *fileDB) read(file *os.File) (*Document, error) {
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	doc, err := f.codec.Decode(content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return doc, nil
}

// write replaces the content of an open file with the encoded document.
// The new content is written from offset 0 and the file truncated to its length,
// so a shorter document never leaves stale bytes behind.
func (f *fileDB) write(file *os.File, doc *Document) error {
	content, err := f.codec.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}

	if _, err := file.WriteAt(content, 0); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}

	if err := file.Truncate(int64(len(content))); err != nil {
		return fmt.Errorf("truncate %s: %w", f.path, err)
	}

	if f.fsync {
		if err := file.Sync(); err != nil {
			return fmt.Errorf("sync %s: %w", f.path, err)
		}
	}
	return nil
}
