package dispatch

import (
	"github.com/billie-coop/volley/internal/exchange"
	"github.com/billie-coop/volley/internal/request"
)

// Outbound priorities. Higher values pop first; equal priorities run in
// arrival order.
const (
	// PriorityInteractive is a send the user is actively waiting on.
	PriorityInteractive = 10

	// PriorityBatch is one entry of a collection run.
	PriorityBatch = 5

	// PriorityBackground is warmup or speculative traffic.
	PriorityBackground = 1
)

// UI queue priorities. Notices may jump ahead of paint traffic; response
// mutations all share one band so they apply in emission order.
const (
	priorityNotice   = 10
	priorityMutation = 5
)

// Work is one outbound exchange waiting for the request worker.
type Work struct {
	ID   string
	Spec *request.Spec
}

// Mutation is a single UI state change. The ui worker applies mutations to
// the sink one at a time, so handlers never need locking. The marker
// method keeps arbitrary types off the UI queue.
type Mutation interface{ mutation() }

// ResponseStarted paints the status line and header block the moment
// headers arrive, before any body bytes.
type ResponseStarted struct {
	RequestID string
	Name      string
	Header    string
}

// ResponseChunk appends coalesced body text to the response view.
type ResponseChunk struct {
	RequestID string
	Text      string
}

// ResponseFinished replaces the streaming view with the final result.
// An HTTP error status is still a finish; only transport-level failures
// take the RequestFailed path.
type ResponseFinished struct {
	RequestID string
	Result    exchange.Result
}

// RequestFailed reports an exchange that did not complete. Result carries
// whatever partial text was captured before the failure.
type RequestFailed struct {
	RequestID string
	Name      string
	Result    exchange.Result
}

// NoticeLevel grades a Notice for display.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient toast independent of any response stream.
type Notice struct {
	Level   NoticeLevel
	Message string
}

func (ResponseStarted) mutation()  {}
func (ResponseChunk) mutation()    {}
func (ResponseFinished) mutation() {}
func (RequestFailed) mutation()    {}
func (Notice) mutation()           {}

// Sink receives mutations on the dispatcher's ui worker goroutine. A sink
// backed by a terminal UI hands each mutation to its own event loop so the
// model only ever changes on one goroutine; Apply may block to apply
// backpressure but must not drop mutations.
type Sink interface {
	Apply(Mutation)
}

// SendOption tunes one queued send.
type SendOption func(*sendConfig)

type sendConfig struct {
	priority int
}

// WithPriority overrides the default interactive priority.
//
// Standard priorities:
//   - 10: user-initiated sends
//   - 5:  collection runs
//   - 1:  background traffic
func WithPriority(p int) SendOption {
	return func(c *sendConfig) { c.priority = p }
}
