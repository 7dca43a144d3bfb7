package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/billie-coop/volley/internal/csync"
	"github.com/billie-coop/volley/internal/exchange"
	"github.com/billie-coop/volley/internal/queue"
	"github.com/billie-coop/volley/internal/request"
)

const (
	// DefaultFlushInterval is the chunk coalescing window.
	DefaultFlushInterval = 300 * time.Millisecond

	// DefaultJoinTimeout bounds how long Shutdown waits for the workers.
	DefaultJoinTimeout = 5 * time.Second
)

// Dispatcher owns the work and ui queues and the two goroutines that drain
// them. Construct with New, launch with Start, tear down with Shutdown.
type Dispatcher struct {
	log  zerolog.Logger
	pipe *exchange.Pipeline
	sink Sink

	work *queue.Queue[Work]
	ui   *queue.Queue[Mutation]

	inflight   *csync.Map[string, context.CancelFunc]
	flusher    *chunkFlusher
	flushEvery time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// Option tunes a Dispatcher at construction.
type Option func(*Dispatcher)

// WithFlushInterval overrides the chunk coalescing window.
func WithFlushInterval(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.flushEvery = d
		}
	}
}

// New wires a dispatcher around one streaming pipeline and one UI sink.
// The dispatcher's root context is a child of ctx, so cancelling the
// caller's context tears down every queued and in-flight exchange.
func New(ctx context.Context, pipe *exchange.Pipeline, sink Sink, log zerolog.Logger, opts ...Option) *Dispatcher {
	ctx, cancel := context.WithCancel(ctx)

	d := &Dispatcher{
		log:        log,
		pipe:       pipe,
		sink:       sink,
		work:       queue.New[Work](),
		ui:         queue.New[Mutation](),
		inflight:   csync.NewMap[string, context.CancelFunc](),
		flushEvery: DefaultFlushInterval,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.flusher = newChunkFlusher(d.flushEvery, func(id, text string) {
		d.queueMutation(ResponseChunk{RequestID: id, Text: text}, priorityMutation)
	})
	return d
}

// Start launches the request and ui workers.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return errors.New("dispatch: already started")
	}
	d.started = true

	d.wg.Add(2)
	go d.requestLoop()
	go d.uiLoop()

	d.log.Debug().Dur("flush_interval", d.flushEvery).Msg("dispatcher started")
	return nil
}

// QueueHTTPRequest enqueues one send and returns its ID for cancellation.
// It never blocks. After Shutdown it fails with queue.ErrClosed.
func (d *Dispatcher) QueueHTTPRequest(spec *request.Spec, opts ...SendOption) (string, error) {
	cfg := sendConfig{priority: PriorityInteractive}
	for _, opt := range opts {
		opt(&cfg)
	}

	id := uuid.NewString()
	err := d.work.Push(&queue.Item[Work]{
		ID:       id,
		Priority: cfg.priority,
		Payload:  Work{ID: id, Spec: spec},
	})
	if err != nil {
		return "", err
	}

	d.log.Debug().
		Str("id", id).
		Int("priority", cfg.priority).
		Str("url", spec.URL).
		Msg("send queued")
	return id, nil
}

// QueueUIUpdate enqueues a mutation for the ui worker. It never blocks;
// after shutdown the mutation is dropped.
func (d *Dispatcher) QueueUIUpdate(m Mutation) {
	d.queueMutation(m, priorityMutation)
}

// QueueNotification enqueues a toast. Notices outrank paint traffic so an
// error surfaces even when chunk mutations are backed up.
func (d *Dispatcher) QueueNotification(level NoticeLevel, message string) {
	d.queueMutation(Notice{Level: level, Message: message}, priorityNotice)
}

func (d *Dispatcher) queueMutation(m Mutation, priority int) {
	err := d.ui.Push(&queue.Item[Mutation]{
		ID:       uuid.NewString(),
		Priority: priority,
		Payload:  m,
	})
	if err != nil {
		d.log.Debug().Type("mutation", m).Msg("ui update dropped after shutdown")
	}
}

// CancelRequest aborts one send, queued or already on the wire.
// Returns true if the request was found.
func (d *Dispatcher) CancelRequest(id string) bool {
	if cancel, ok := d.inflight.Get(id); ok {
		cancel()
		return true
	}
	return d.work.Remove(id)
}

// CancelInflight fires the token of every running exchange and returns how
// many were cancelled. Queued work is left alone.
func (d *Dispatcher) CancelInflight() int {
	n := 0
	d.inflight.Range(func(id string, cancel context.CancelFunc) bool {
		cancel()
		n++
		return true
	})
	return n
}

// Status is a point-in-time snapshot for the status bar.
type Status struct {
	Pending  int
	Inflight int
	UIDepth  int
}

// GetStatus reports queue depths and in-flight count.
func (d *Dispatcher) GetStatus() Status {
	return Status{
		Pending:  d.work.Len(),
		Inflight: d.inflight.Len(),
		UIDepth:  d.ui.Len(),
	}
}

// Shutdown stops intake, fires every in-flight token, and joins the
// workers. Mutations not yet applied are dropped. An error is returned if
// the workers are still busy after timeout; zero selects
// DefaultJoinTimeout.
func (d *Dispatcher) Shutdown(timeout time.Duration) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	started := d.started
	d.mu.Unlock()

	d.work.Close()
	d.ui.Close()
	d.cancel()
	d.flusher.Stop()

	if !started {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultJoinTimeout
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Debug().Msg("dispatcher stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("dispatch: workers still busy after %s", timeout)
	}
}

// requestLoop drains the work queue one exchange at a time.
func (d *Dispatcher) requestLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		item, err := d.work.Pop(d.ctx)
		if err != nil {
			// Cancelled, or closed and drained.
			return
		}
		d.log.Debug().
			Str("id", item.ID).
			Dur("queued_for", time.Since(item.CreatedAt)).
			Msg("send dequeued")
		d.execute(item.Payload)
	}
}

// execute runs one exchange on the request worker. Panics are contained
// here so a bad spec can never take the loop down.
func (d *Dispatcher) execute(w Work) {
	ctx, cancel := context.WithCancel(d.ctx)
	d.inflight.Set(w.ID, cancel)
	defer func() {
		cancel()
		d.inflight.Delete(w.ID)
	}()

	name := w.Spec.DisplayName()

	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Str("id", w.ID).Interface("panic", r).Msg("request worker recovered")
			d.QueueNotification(NoticeError, fmt.Sprintf("%s: internal error", name))
		}
	}()

	res := d.pipe.Run(ctx, w.Spec,
		func(header string) {
			d.queueMutation(ResponseStarted{RequestID: w.ID, Name: name, Header: header}, priorityMutation)
		},
		func(chunk string) {
			d.flusher.Add(w.ID, chunk)
		},
	)

	// Text still riding the flush window must land before the final
	// mutation for this request.
	if tail := d.flusher.Drain(w.ID); tail != "" {
		d.queueMutation(ResponseChunk{RequestID: w.ID, Text: tail}, priorityMutation)
	}

	if res.Err != nil {
		d.queueMutation(RequestFailed{RequestID: w.ID, Name: name, Result: res}, priorityMutation)
		d.QueueNotification(NoticeError, fmt.Sprintf("%s: %s", name, userFacing(res.Err)))
		return
	}
	d.queueMutation(ResponseFinished{RequestID: w.ID, Result: res}, priorityMutation)
}

// uiLoop drains the ui queue into the sink one mutation at a time.
func (d *Dispatcher) uiLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		item, err := d.ui.Pop(d.ctx)
		if err != nil {
			return
		}
		d.apply(item.Payload)
	}
}

// apply hands one mutation to the sink, containing panics so a rendering
// bug cannot kill the ui worker.
func (d *Dispatcher) apply(m Mutation) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Msg("ui sink recovered")
		}
	}()
	d.sink.Apply(m)
}

// userFacing maps the error taxonomy onto toast text.
func userFacing(err error) string {
	switch {
	case exchange.IsInvalidURL(err):
		return "invalid URL"
	case exchange.IsTimeout(err):
		return "timed out"
	case exchange.IsCancelled(err):
		return "cancelled"
	default:
		return err.Error()
	}
}
