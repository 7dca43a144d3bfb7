// Package dispatch owns the two serial lanes between the UI and the network.
//
// # Overview
//
// Everything the user triggers becomes an item on one of two priority
// queues:
//   - the work queue holds outbound sends, drained by the request worker
//   - the ui queue holds Mutation values, drained by the ui worker
//
// Each queue has exactly one consumer goroutine, so exchanges run one at a
// time in priority order and UI state changes apply one at a time in
// arrival order. Producers never block: enqueueing is a heap push.
//
// # Architecture
//
//   - Work: one outbound exchange (a request spec plus its queue identity)
//   - Mutation: a tagged UI state change (ResponseStarted, ResponseChunk,
//     ResponseFinished, RequestFailed, Notice)
//   - Sink: whatever applies mutations; the TUI's sink buffers them on a
//     channel its event loop drains
//   - chunkFlusher: coalesces streamed body text so a fast response paints
//     at most once per flush window
//   - Dispatcher: wires the queues, workers, flusher, and in-flight
//     cancellation registry together
//
// # Cancellation
//
// Every exchange runs under a child of the dispatcher's root context and
// registers its cancel func by request ID. CancelRequest aborts one send
// whether it is still queued or already on the wire; Shutdown fires the
// root token, closes both queues, and joins the workers with a bounded
// wait.
//
// # Example
//
//	d := dispatch.New(ctx, pipeline, sink, log)
//	if err := d.Start(); err != nil {
//		return err
//	}
//
//	id, err := d.QueueHTTPRequest(spec)
//	if err != nil {
//		return err
//	}
//
//	// Later: user asked to cancel.
//	d.CancelRequest(id)
package dispatch
