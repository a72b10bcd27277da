// Package util provides a Multi-Producer Single-Consumer (MPSC) queue used by the
// file store to serialize its writes.
//
// Features and Guarantees:
//
//   - Lock-Free appends: producers link items with atomic operations, the mutex is only
//     taken to wake up the consumer
//   - Unbounded Size: the queue can grow to any size as needed, limited only by available memory
//   - Thread-Safe writes: Allows any number of goroutines to safely Push() concurrently
//   - Single Consumer: Designed for a single goroutine to consume values (via the Recv() channel)
//   - FIFO: items are delivered in the order their append succeeded. Items pushed by a single
//     goroutine are therefore delivered in push order
//   - Draining Close: Close() rejects new items but delivers everything already queued
//     before the Recv() channel is closed
//   - O(1) Len(): pending items are tracked with a striped xsync.Counter
package util
