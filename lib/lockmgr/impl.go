package lockmgr

import (
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/fKV/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

// DefaultNamespace is the store namespace lock records are kept in.
const DefaultNamespace = "_locks"

var log = logger.GetLogger("lockmgr")

// lockRecord is the value stored for a held lock
type lockRecord struct {
	Owner     string `json:"owner"`
	ExpiresAt int64  `json:"expires_at"` // unix millis, 0 = never
}

func (r *lockRecord) expired(now time.Time) bool {
	return r.ExpiresAt != 0 && now.UnixMilli() >= r.ExpiresAt
}

type lockMgrImpl struct {
	store     store.IStore
	namespace string
	now       func() time.Time
}

// Option customizes a lock manager.
type Option func(*lockMgrImpl)

// WithNamespace stores the lock records in namespace ns instead of DefaultNamespace.
func WithNamespace(ns string) Option {
	return func(l *lockMgrImpl) {
		l.namespace = ns
	}
}

// WithClock replaces the clock used for lock expiry.
func WithClock(now func() time.Time) Option {
	return func(l *lockMgrImpl) {
		l.now = now
	}
}

// NewLockManager creates a lock manager that keeps its locks in s.
func NewLockManager(s store.IStore, opts ...Option) ILockManager {
	l := &lockMgrImpl{
		store:     s,
		namespace: DefaultNamespace,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// current returns the stored lock record of key, or nil if the lock is not held
func (l *lockMgrImpl) current(key string) (*store.Record, *lockRecord, error) {
	res, err := l.store.Get(key, store.WithNamespace(l.namespace), store.WithWait())
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var held lockRecord
	if err := res.Node.Decode(&held); err != nil {
		return nil, nil, fmt.Errorf("invalid lock record for %q: %w", key, err)
	}
	return res.Node, &held, nil
}

func (l *lockMgrImpl) AcquireLock(key string, timeout time.Duration) (bool, []byte, error) {
	ownerID, err := generateOwnerID()
	if err != nil {
		return false, nil, err
	}

	now := l.now()
	rec := lockRecord{Owner: FormatOwnerID(ownerID)}
	if timeout > 0 {
		rec.ExpiresAt = now.Add(timeout).UnixMilli()
	}

	node, held, err := l.current(key)
	if err != nil {
		return false, nil, err
	}

	// only write if nobody changed the lock since we looked at it
	cond := store.WithPrevAbsent()
	if held != nil {
		if !held.expired(now) {
			return false, nil, nil
		}
		log.Debugf("taking over expired lock %q", key)
		cond = store.WithPrevNode(node)
	}

	_, err = l.store.Set(key, rec, store.WithNamespace(l.namespace), cond, store.WithWait())
	if errors.Is(err, store.ErrVersionConflict) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	return true, ownerID, nil
}

func (l *lockMgrImpl) ReleaseLock(key string, ownerID []byte) (bool, error) {
	node, held, err := l.current(key)
	if err != nil {
		return false, err
	}
	if held == nil {
		return true, nil
	}

	// Check if the lock is owned by us
	if held.Owner != FormatOwnerID(ownerID) {
		return false, nil
	}

	_, err = l.store.Delete(key, store.WithNamespace(l.namespace), store.WithPrevNode(node), store.WithWait())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return true, nil
	case errors.Is(err, store.ErrVersionConflict):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}
