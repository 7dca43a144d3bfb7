package queue

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Push after Close, and by Pop once the queue is
// closed and empty.
var ErrClosed = errors.New("queue: closed")

// Item is a single prioritized unit of work.
//
// Priority and arrival order together define a total order: higher priority
// first, FIFO within a band. Arrival is the push sequence number, not the
// wall clock, so two items enqueued in the same nanosecond still pop in push
// order. CreatedAt is kept for logging and queue-latency measurement only.
type Item[T any] struct {
	// ID correlates the item across logs and completion callbacks.
	ID string

	// Priority determines pop order (higher = served first).
	Priority int

	// CreatedAt is stamped on Push when zero.
	CreatedAt time.Time

	// Payload is the actual work. The queue never inspects it.
	Payload T

	// seq is the arrival number, assigned under the queue lock.
	seq uint64
}

// Queue is a thread-safe priority queue.
//
// Producers Push from any goroutine; one consumer loop Pops. The consumer
// suspends in Pop when the queue is empty; there is no polling.
type Queue[T any] struct {
	mu      sync.Mutex
	items   itemHeap[T]
	nextSeq uint64
	closed  bool

	// wake holds at most one token; Push signals it, Pop waits on it.
	// Coalescing is safe because Pop always re-checks the heap first.
	wake chan struct{}
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{
		items: make(itemHeap[T], 0),
		wake:  make(chan struct{}, 1),
	}
	heap.Init(&q.items)
	return q
}

// Push adds an item in priority order and wakes the consumer.
// It never blocks. After Close it fails with ErrClosed.
func (q *Queue[T]) Push(item *Item[T]) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.nextSeq++
	item.seq = q.nextSeq
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	heap.Push(&q.items, item)
	q.mu.Unlock()

	q.signal()
	return nil
}

// Pop removes and returns the highest-priority item.
//
// It blocks until an item is available, ctx is cancelled (ctx.Err() is
// returned), or the queue is closed and drained (ErrClosed). A closed queue
// still hands out items already enqueued, so shutdown does not drop work that
// the consumer is willing to finish.
func (q *Queue[T]) Pop(ctx context.Context) (*Item[T], error) {
	for {
		q.mu.Lock()
		if q.items.Len() > 0 {
			item := heap.Pop(&q.items).(*Item[T])
			q.mu.Unlock()
			return item, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, ErrClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.wake:
			// Re-check the heap; the token may be stale.
		}
	}
}

// TryPop is like Pop but returns (nil, false) immediately if nothing is
// queued. Useful for non-blocking drains and tests.
func (q *Queue[T]) TryPop() (*Item[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() == 0 {
		return nil, false
	}
	return heap.Pop(&q.items).(*Item[T]), true
}

// Remove removes a pending item by ID before the consumer reaches it.
// Returns true if found and removed.
func (q *Queue[T]) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.ID == id {
			heap.Remove(&q.items, i)
			return true
		}
	}
	return false
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Close marks the queue closed and wakes the consumer so it observes the
// closure promptly. Pending items remain poppable; Push fails from now on.
// Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.signal()
}

func (q *Queue[T]) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
		// A token is already pending; the consumer will re-check anyway.
	}
}

// itemHeap implements heap.Interface.
// Higher priority first; within a priority band, lower seq (earlier push) first.
type itemHeap[T any] []*Item[T]

func (h itemHeap[T]) Len() int { return len(h) }

func (h itemHeap[T]) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *itemHeap[T]) Push(x any) {
	*h = append(*h, x.(*Item[T]))
}

func (h *itemHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return item
}
