package fstore

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/fKV/lib/db"
	"github.com/ValentinKolb/fKV/lib/store"
	"github.com/ValentinKolb/fKV/lib/store/internal"
)

// operation is a single item of the write queue.
// Exactly one of cmd and barrier is set.
type operation struct {
	cmd     *internal.Command
	barrier chan struct{}  // closed once the writer reaches the operation
	reply   chan opResult // optional, receives the outcome of cmd instead of the error handling
}

type opResult struct {
	result store.Result
	err    error
}

// --------------------------------------------------------------------------
// Write Serializer
// --------------------------------------------------------------------------

// runWriter applies queued operations one after another until the queue is closed and drained.
func (s *Store) runWriter() {
	defer close(s.writerDone)

	for op := range s.queue.Recv() {
		if op.barrier != nil {
			close(op.barrier)
			continue
		}

		res, err := s.apply(op.cmd)
		if op.reply != nil {
			op.reply <- opResult{result: res, err: err}
			continue
		}
		if err != nil {
			s.handleQueueError(op.cmd, err)
		}
	}
}

// apply runs cmd inside a read-modify-write cycle of the store file.
// A panic during the cycle is returned as an internal error.
func (s *Store) apply(cmd *internal.Command) (res store.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = store.NewError(store.RetCInternalError, fmt.Sprintf("panic while applying %s of %q: %v", cmd.Type, cmd.Key, r))
		}
	}()

	err = s.db.Update(func(doc *db.Document) error {
		var applyErr error
		res, applyErr = cmd.Apply(doc)
		return applyErr
	})
	return res, err
}

// handleQueueError discards expected errors of queued mutations and reports all others.
func (s *Store) handleQueueError(cmd *internal.Command, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Debugf("discarding queued %s of %q: %v", cmd.Action(), cmd.Key, err)
		s.metrics.discarded("not_found")
	case errors.Is(err, store.ErrVersionConflict):
		log.Debugf("discarding queued %s of %q: %v", cmd.Action(), cmd.Key, err)
		s.metrics.discarded("version_conflict")
	default:
		log.Errorf("queued %s of %q failed: %v", cmd.Action(), cmd.Key, err)
		s.metrics.queueErrors.Inc()
		s.reportError(err)
	}
}

// reportError passes err to the OnError hook. A panicking hook is logged, the writer keeps running.
func (s *Store) reportError(err error) {
	if s.conf.OnError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("OnError hook panicked: %v", r)
		}
	}()
	s.conf.OnError(err)
}
