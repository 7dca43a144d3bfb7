// Package exchange executes single HTTP exchanges with bounded memory.
//
// One Pipeline.Run call is one complete request/response cycle: build the
// wire request, send it asking for headers first, then stream the body in
// fixed-size chunks. Each chunk is surfaced through a callback as soon as it
// is read, so the caller sees partial content while the download is still
// running. Internally chunks accumulate only up to a configurable capture
// cap; a response of unknown size can never grow the heap past the cap.
//
// Used by: the dispatcher's outbound loop (streaming mode, callbacks wired to
// the UI queue) and the batch runner (single-shot mode, nil callbacks).
package exchange

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/billie-coop/volley/internal/request"
)

const (
	// chunkSize is the fixed read size. Buffers are pooled and reused so a
	// long download allocates a handful of chunks, not thousands.
	chunkSize = 16 * 1024

	// formatMaxBytes caps how large a body is still worth pretty-printing.
	formatMaxBytes = 1 << 20

	// DefaultCaptureBytes is the accumulation cap applied when neither the
	// spec nor the pipeline sets one.
	DefaultCaptureBytes = 100 << 20
)

// chunkPool hands out fixed chunkSize buffers for body reads.
var chunkPool = sync.Pool{
	New: func() any {
		b := make([]byte, chunkSize)
		return &b
	},
}

// Result is the outcome of one exchange.
//
// Success means the exchange completed and produced a response; an HTTP
// error status is still a successful exchange, since the tool's job is to
// show it, not judge it. Err holds the taxonomy error when Success is false.
type Result struct {
	Success    bool
	StatusCode int
	Status     string
	Elapsed    time.Duration
	ByteSize   int64
	Truncated  bool
	FullText   string
	Err        error
}

// Pipeline runs exchanges on a shared transport.
//
// The http.Client (and its connection pool) is shared by every exchange and
// treated as read-only after construction; per-exchange state lives entirely
// in Run's locals, so concurrent Runs never touch each other's buffers.
type Pipeline struct {
	client     *http.Client
	log        zerolog.Logger
	defaultCap int64
}

// New creates a pipeline. defaultCap is the capture cap applied when a spec
// doesn't set its own; zero selects DefaultCaptureBytes.
func New(client *http.Client, log zerolog.Logger, defaultCap int64) *Pipeline {
	if client == nil {
		client = &http.Client{}
	}
	if defaultCap <= 0 {
		defaultCap = DefaultCaptureBytes
	}
	return &Pipeline{client: client, log: log, defaultCap: defaultCap}
}

// Run executes one spec.
//
// onHeader is invoked once with the formatted status line + header dump as
// soon as headers arrive; onChunk is invoked for every body chunk surfaced.
// Either callback may be nil (single-shot mode). The spec's timeout, when
// positive, becomes a child deadline of ctx, so firing either token stops
// the exchange at its next suspension point.
//
// Truncation policy: once the capture cap is reached the read loop stops
// entirely and the capped prefix is the last thing forwarded. The result is
// marked truncated with a visible notice appended.
func (p *Pipeline) Run(ctx context.Context, spec *request.Spec, onHeader func(string), onChunk func(string)) Result {
	start := time.Now()

	if err := spec.Validate(); err != nil {
		// Fails synchronously; no network call is attempted.
		return Result{Elapsed: time.Since(start), Err: err}
	}

	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	req, err := request.BuildHTTPRequest(ctx, spec)
	if err != nil {
		return Result{Elapsed: time.Since(start), Err: err}
	}

	p.log.Debug().
		Str("method", req.Method).
		Str("url", spec.URL).
		Msg("exchange started")

	// Do returns as soon as response headers are in; the body streams.
	resp, err := p.client.Do(req)
	if err != nil {
		return Result{Elapsed: time.Since(start), Err: classify(err, spec.URL)}
	}
	defer resp.Body.Close()

	headerText := formatHeaderDump(resp)
	if onHeader != nil {
		onHeader(headerText)
	}

	limit := spec.MaxCaptureBytes
	if limit <= 0 {
		limit = p.defaultCap
	}

	body, readErr := p.readBody(ctx, resp.Body, limit, onChunk)
	if readErr != nil {
		result := Result{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Elapsed:    time.Since(start),
			ByteSize:   int64(body.buf.Len()),
			FullText:   headerText + body.buf.String(),
			Err:        classify(readErr, spec.URL),
		}
		p.logFinish(spec, result)
		return result
	}

	text := body.buf.String()
	if !body.truncated && int64(len(text)) < formatMaxBytes && spec.FormatJSON && isJSONResponse(resp) {
		// Best effort only; a malformed body stays raw.
		text = prettyJSON(text)
	}

	full := headerText + text
	if body.truncated {
		full += truncationNotice(int64(body.buf.Len()))
	}

	result := Result{
		Success:    true,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Elapsed:    time.Since(start),
		ByteSize:   int64(body.buf.Len()),
		Truncated:  body.truncated,
		FullText:   full,
	}
	p.logFinish(spec, result)
	return result
}

// bodyCapture is the per-exchange accumulator. It is owned by exactly one
// Run call and never shared.
type bodyCapture struct {
	buf       bytes.Buffer
	truncated bool
}

// readBody streams the response in chunkSize reads until EOF, error,
// cancellation, or the capture limit.
//
// A body that is exactly limit bytes long is not truncated: truncation is
// only declared when a read actually overflows the remaining room.
func (p *Pipeline) readBody(ctx context.Context, r io.Reader, limit int64, onChunk func(string)) (*bodyCapture, error) {
	out := &bodyCapture{}

	bufp := chunkPool.Get().(*[]byte)
	defer chunkPool.Put(bufp)
	buf := *bufp

	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		n, err := r.Read(buf)
		if n > 0 {
			room := limit - int64(out.buf.Len())
			if int64(n) > room {
				// Stop-at-cap policy: keep the prefix that fills the cap,
				// then read, forward, and accumulate nothing further.
				if room > 0 {
					chunk := buf[:room]
					if onChunk != nil {
						onChunk(string(chunk))
					}
					out.buf.Write(chunk)
				}
				out.truncated = true
				return out, nil
			}

			chunk := buf[:n]
			if onChunk != nil {
				onChunk(string(chunk))
			}
			out.buf.Write(chunk)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

func (p *Pipeline) logFinish(spec *request.Spec, r Result) {
	p.log.Debug().
		Str("url", spec.URL).
		Int("status", r.StatusCode).
		Int64("bytes", r.ByteSize).
		Bool("truncated", r.Truncated).
		Dur("elapsed", r.Elapsed).
		Msg("exchange finished")
}
