package fstore

import (
	"time"

	"github.com/ValentinKolb/fKV/lib/db"
)

// runRefresher reloads the cache every refresh interval until stopRefresh is closed.
func (s *Store) runRefresher() {
	defer close(s.refresherDone)

	ticker := time.NewTicker(s.conf.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopRefresh:
			return
		case <-ticker.C:
			_ = s.refresh()
		}
	}
}

// refresh loads the store file and replaces the cached snapshot.
// On error the previous snapshot is kept.
func (s *Store) refresh() error {
	start := time.Now()
	doc, err := s.db.Load()
	s.metrics.refreshDuration.UpdateDuration(start)
	s.metrics.refreshTotal.Inc()

	if err != nil {
		s.metrics.refreshErrors.Inc()
		log.Warningf("refreshing cache from %s failed: %v", s.db.Path(), err)
		return err
	}

	s.setCache(doc)
	return nil
}

// cached returns the current snapshot. It is never modified, only replaced.
func (s *Store) cached() *db.Document {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache
}

func (s *Store) setCache(doc *db.Document) {
	s.cacheMu.Lock()
	s.cache = doc
	s.cacheMu.Unlock()
}
