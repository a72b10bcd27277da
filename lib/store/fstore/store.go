package fstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ValentinKolb/fKV/lib/common"
	"github.com/ValentinKolb/fKV/lib/db"
	"github.com/ValentinKolb/fKV/lib/store"
	"github.com/ValentinKolb/fKV/lib/store/internal"
	"github.com/ValentinKolb/fKV/lib/util"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("store")

// Store is a versioned key-value store backed by a single file.
// It implements store.IStore.
type Store struct {
	conf    common.StoreConfig
	db      db.IFileDB
	queue   *util.LockFreeMPSC[operation]
	metrics *storeMetrics

	// snapshot of the store file, replaced by the refresher
	cacheMu sync.RWMutex
	cache   *db.Document

	// closeMu is held shared by every call and exclusively by Close,
	// so nothing is pushed to the queue after it was closed
	closeMu sync.RWMutex
	closed  bool

	writerDone    chan struct{}
	stopRefresh   chan struct{}
	refresherDone chan struct{}
}

var _ store.IStore = (*Store)(nil)

// --------------------------------------------------------------------------
// Initialization
// --------------------------------------------------------------------------

// Open opens the store file configured in conf, creating it if needed, and starts the
// write queue and the cache refresher. A zero RefreshInterval uses the default interval.
// The returned store must be closed with Close.
func Open(conf common.StoreConfig) (*Store, error) {
	if conf.RefreshInterval == 0 {
		conf.RefreshInterval = common.DefaultRefreshInterval
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}
	if conf.LogLevel != "" {
		if err := common.InitLoggers(conf.LogLevel); err != nil {
			return nil, err
		}
	}

	fileDB, err := db.OpenFileDB(conf.Path, &db.Options{
		Codec: db.NewJSONCodec(conf.Indent),
		Fsync: conf.Fsync,
	})
	if err != nil {
		return nil, err
	}

	// seed the cache, so reads work before the first refresh
	doc, err := fileDB.Load()
	if err != nil {
		return nil, err
	}

	s := &Store{
		conf:          conf,
		db:            fileDB,
		queue:         util.NewLockFreeMPSC[operation](),
		cache:         doc,
		writerDone:    make(chan struct{}),
		stopRefresh:   make(chan struct{}),
		refresherDone: make(chan struct{}),
	}
	s.metrics = newStoreMetrics(s.queue.Len)

	go s.runWriter()
	go s.runRefresher()

	log.Infof("opened store %s (%d keys)", fileDB.Path(), doc.Len())
	return s, nil
}

// Path returns the absolute path of the store file.
func (s *Store) Path() string {
	return s.db.Path()
}

// Pending returns the number of queued operations that were not applied yet.
func (s *Store) Pending() int {
	return s.queue.Len()
}

// WriteMetrics writes the metrics of the store in Prometheus text format to w.
func (s *Store) WriteMetrics(w io.Writer) {
	s.metrics.write(w)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Get(key string, opts ...store.Option) (store.Result, error) {
	o := store.BuildOptions(opts...)

	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return store.Result{}, store.ErrClosed
	}

	doc, err := s.snapshot("get", o.Wait)
	if err != nil {
		return store.Result{}, err
	}
	return internal.Get(doc, key, o.Namespace)
}

func (s *Store) List(opts ...store.Option) ([]store.Result, error) {
	o := store.BuildOptions(opts...)

	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}

	doc, err := s.snapshot("list", o.Wait)
	if err != nil {
		return nil, err
	}
	return internal.List(doc, o.Namespace), nil
}

func (s *Store) Set(key string, value any, opts ...store.Option) (store.Result, error) {
	o := store.BuildOptions(opts...)

	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return store.Result{}, store.ErrClosed
	}

	if err := internal.ValidateKey(key); err != nil {
		return store.Result{}, err
	}
	raw, err := encodeValue(value)
	if err != nil {
		return store.Result{}, err
	}

	return s.submit(&internal.Command{
		Type:      internal.CommandTSet,
		Key:       key,
		Namespace: o.Namespace,
		Value:     raw,
		Prev:      o.PrevNode,
	}, o.Wait)
}

func (s *Store) Delete(key string, opts ...store.Option) (store.Result, error) {
	o := store.BuildOptions(opts...)

	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return store.Result{}, store.ErrClosed
	}

	if err := internal.ValidateKey(key); err != nil {
		return store.Result{}, err
	}

	return s.submit(&internal.Command{
		Type:      internal.CommandTDelete,
		Key:       key,
		Namespace: o.Namespace,
		Prev:      o.PrevNode,
	}, o.Wait)
}

func (s *Store) Flush() error {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return store.ErrClosed
	}

	s.metrics.op("flush", modeSync)
	return s.db.Reset()
}

func (s *Store) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()

	// the writer drains everything that was queued before it exits
	s.queue.Close()
	<-s.writerDone

	close(s.stopRefresh)
	<-s.refresherDone

	log.Infof("closed store %s", s.db.Path())
	return nil
}

// --------------------------------------------------------------------------
// Backup & Restore
// --------------------------------------------------------------------------

// Backup writes a copy of the store file to dst. Queued mutations are not waited for.
func (s *Store) Backup(dst string) error {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return store.ErrClosed
	}

	s.metrics.op("backup", modeSync)
	return s.db.Backup(dst)
}

// Restore replaces the whole content of the store with the backup in src.
func (s *Store) Restore(src string) error {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return store.ErrClosed
	}

	s.metrics.op("restore", modeSync)
	return s.db.Restore(src)
}

// --------------------------------------------------------------------------
// Internal helper
// --------------------------------------------------------------------------

// snapshot returns the document a read operates on.
// Without wait this is the cache. With wait the caller first waits until every operation
// queued before it was applied, then the file is read directly.
//
// Must be called with closeMu held shared.
func (s *Store) snapshot(op string, wait bool) (*db.Document, error) {
	if !wait {
		s.metrics.op(op, modeCache)
		return s.cached(), nil
	}

	s.metrics.op(op, modeSync)
	barrier := make(chan struct{})
	if !s.queue.Push(&operation{barrier: barrier}) {
		return nil, store.ErrClosed
	}
	<-barrier

	return s.db.Load()
}

// submit queues cmd, or applies it right away if wait is set.
//
// Must be called with closeMu held shared.
func (s *Store) submit(cmd *internal.Command, wait bool) (store.Result, error) {
	op := string(cmd.Action())

	switch {
	case !wait:
		s.metrics.op(op, modeAsync)
		if !s.queue.Push(&operation{cmd: cmd}) {
			return store.Result{}, store.ErrClosed
		}
		return store.Result{Action: cmd.Action(), Queued: true}, nil

	case s.conf.OrderedSyncWrites:
		s.metrics.op(op, modeSync)
		reply := make(chan opResult, 1)
		if !s.queue.Push(&operation{cmd: cmd, reply: reply}) {
			return store.Result{}, store.ErrClosed
		}
		r := <-reply
		return r.result, r.err

	default:
		// bypasses the queue, so it may land before mutations that are still queued
		s.metrics.op(op, modeSync)
		return s.apply(cmd)
	}
}

// encodeValue converts a user value to its compact json representation.
// json.RawMessage and []byte holding valid json are stored as they are, minus insignificant whitespace.
func encodeValue(value any) (json.RawMessage, error) {
	switch v := value.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, store.NewError(store.RetCInvalidOperation, "value is not valid json")
		}
		return compactValue(v)
	case []byte:
		if json.Valid(v) {
			return compactValue(v)
		}
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("value is not json serializable: %v", err))
	}
	return raw, nil
}

func compactValue(raw []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("value is not valid json: %v", err))
	}
	return buf.Bytes(), nil
}
