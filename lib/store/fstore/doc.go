// Package fstore implements store.IStore on top of a single file (see package db).
//
// A Store consists of three parts:
//
//   - Write queue: mutations are pushed to an unbounded lock-free queue (util.LockFreeMPSC)
//     and applied by a single writer goroutine in the order they were pushed. Each mutation
//     is one locked read-modify-write cycle of the store file. Not-found errors and version
//     conflicts of queued mutations are discarded. All other errors are logged and passed
//     to StoreConfig.OnError.
//
//   - Cache: a snapshot of the store file that a refresher goroutine reloads every
//     StoreConfig.RefreshInterval (100ms by default). Reads without store.WithWait()
//     are served from it and may be up to one interval old.
//
//   - Façade: Get, List, Set, Delete, Flush, Backup and Restore.
//
// Wait mode:
//
//	Mutations with store.WithWait() are applied before the call returns and report their
//	errors. They do not go through the queue, so they can be applied before mutations that
//	are still queued. Set StoreConfig.OrderedSyncWrites to route them through the queue.
//
//	Reads with store.WithWait() push a barrier to the queue, wait until the writer reaches it
//	and then read the file directly. They see every mutation queued before the read started.
//
// Usage:
//
//	s, err := fstore.Open(common.DefaultStoreConfig("data.json"))
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	res, err := s.Set("foo", map[string]int{"a": 1}, store.WithWait())
//	// res.Node.Version == 1
//
//	_, err = s.Set("foo", "bar", store.WithPrevNode(res.Node), store.WithWait())
//	// errors.Is(err, store.ErrVersionConflict) if someone else wrote foo in between
//
// Metrics of a store are available in Prometheus text format through WriteMetrics.
package fstore
