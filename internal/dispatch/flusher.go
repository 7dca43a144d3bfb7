package dispatch

import (
	"strings"
	"sync"
	"time"
)

// chunkFlusher coalesces streamed body text into at most one emission per
// flush window. Without it a fast endpoint would push a mutation for every
// 16 KiB read and drown the UI loop.
//
// The first chunk after a quiet period arms the timer; chunks arriving
// while it is armed ride the same window. Requests are emitted in first
// arrival order, and each request's text stays in write order.
type chunkFlusher struct {
	every time.Duration
	emit  func(id, text string)

	mu      sync.Mutex
	pending map[string]*strings.Builder
	order   []string
	timer   *time.Timer
}

func newChunkFlusher(every time.Duration, emit func(id, text string)) *chunkFlusher {
	return &chunkFlusher{
		every:   every,
		emit:    emit,
		pending: make(map[string]*strings.Builder),
	}
}

// Add buffers chunk text for id and arms the flush timer if idle.
func (f *chunkFlusher) Add(id, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.pending[id]
	if !ok {
		b = &strings.Builder{}
		f.pending[id] = b
		f.order = append(f.order, id)
	}
	b.WriteString(text)

	if f.timer == nil {
		f.timer = time.AfterFunc(f.every, f.flush)
	}
}

// Drain removes and returns id's buffered text without emitting it, so the
// caller can place it ahead of a final mutation for that request. Holding
// the lock here means a concurrent timer flush either already emitted the
// text or will find nothing; the tail can never land after the caller's
// follow-up.
func (f *chunkFlusher) Drain(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.pending[id]
	if !ok {
		return ""
	}
	delete(f.pending, id)
	for i, queued := range f.order {
		if queued == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return b.String()
}

// Stop cancels the armed timer and emits whatever is still buffered.
func (f *chunkFlusher) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.emitPendingLocked()
}

// flush runs on the timer goroutine after each window.
func (f *chunkFlusher) flush() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.timer = nil
	f.emitPendingLocked()
}

// emitPendingLocked sends buffered text under the lock. Emission stays
// inside the critical section so timer flushes and Drain calls cannot
// interleave their sends for the same request.
func (f *chunkFlusher) emitPendingLocked() {
	for _, id := range f.order {
		b := f.pending[id]
		if b == nil || b.Len() == 0 {
			continue
		}
		f.emit(id, b.String())
	}
	f.pending = make(map[string]*strings.Builder)
	f.order = f.order[:0]
}
