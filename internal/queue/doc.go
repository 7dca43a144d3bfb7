// Package queue provides the priority queue underneath the dispatcher.
//
// # Overview
//
// Work items are ordered by priority (higher first) and, within a priority
// band, by arrival (FIFO). The queue is backed by a real binary heap, so both
// Push and Pop are O(log n); there is no drain-and-resort anywhere, and a
// burst of pushes never forces a full in-memory copy of the pending set.
//
// Pop blocks until an item is available, the caller's context is cancelled,
// or the queue is closed. The three outcomes are distinguishable: an item, a
// context error, or ErrClosed once the queue is both closed and drained.
//
//   - Item: one prioritized unit of work with its payload
//   - Queue: the heap plus the wake signal Pop waits on
//
// Any number of goroutines may Push concurrently. Each queue instance is
// drained by a single logical consumer (one dispatcher loop); the wake signal
// is coalesced on that assumption.
package queue
