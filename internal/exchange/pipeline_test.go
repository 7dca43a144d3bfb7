package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/billie-coop/volley/internal/request"
)

func testPipeline(client *http.Client) *Pipeline {
	return New(client, zerolog.Nop(), 0)
}

// countingTransport fails every request and records that it was asked at all.
type countingTransport struct {
	calls int32
}

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	atomic.AddInt32(&c.calls, 1)
	return nil, errors.New("transport should not be reached")
}

func TestPipeline_InvalidURLSkipsNetwork(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"relative", "/api/users"},
		{"no_scheme", "example.com/api"},
		{"wrong_scheme", "ftp://example.com/file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := &countingTransport{}
			p := New(&http.Client{Transport: ct}, zerolog.Nop(), 0)

			res := p.Run(context.Background(), &request.Spec{Method: "GET", URL: tt.url}, nil, nil)

			if res.Err == nil || !IsInvalidURL(res.Err) {
				t.Fatalf("Run() err = %v, want invalid URL", res.Err)
			}
			if res.Success {
				t.Error("Run() reported success for an invalid URL")
			}
			if n := atomic.LoadInt32(&ct.calls); n != 0 {
				t.Errorf("transport called %d times, want 0", n)
			}
		})
	}
}

func TestPipeline_HeaderDumpBeforeFirstChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "abc-123")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "hello body")
	}))
	defer srv.Close()

	var order []string
	var headerText string
	var chunks strings.Builder
	res := testPipeline(srv.Client()).Run(context.Background(), &request.Spec{URL: srv.URL},
		func(h string) {
			order = append(order, "header")
			headerText = h
		},
		func(c string) {
			order = append(order, "chunk")
			chunks.WriteString(c)
		},
	)

	if res.Err != nil {
		t.Fatalf("Run() err = %v", res.Err)
	}
	if len(order) < 2 || order[0] != "header" {
		t.Fatalf("callback order = %v, want header before any chunk", order)
	}
	if !strings.Contains(headerText, "200 OK") {
		t.Errorf("header dump missing status line: %q", headerText)
	}
	if !strings.Contains(headerText, "X-Request-Id: abc-123") {
		t.Errorf("header dump missing custom header: %q", headerText)
	}
	if chunks.String() != "hello body" {
		t.Errorf("forwarded chunks = %q, want %q", chunks.String(), "hello body")
	}
	// The accumulated text is exactly the header dump plus the chunk stream.
	if res.FullText != headerText+chunks.String() {
		t.Errorf("FullText = %q, want header dump + chunks", res.FullText)
	}
	if res.ByteSize != int64(len("hello body")) {
		t.Errorf("ByteSize = %d, want %d", res.ByteSize, len("hello body"))
	}
}

func TestPipeline_ErrorStatusStillSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such thing", http.StatusNotFound)
	}))
	defer srv.Close()

	res := testPipeline(srv.Client()).Run(context.Background(), &request.Spec{URL: srv.URL}, nil, nil)

	if res.Err != nil {
		t.Fatalf("Run() err = %v", res.Err)
	}
	if !res.Success {
		t.Error("Run() success = false, want true: a 404 is still a completed exchange")
	}
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestPipeline_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	chunks := 0
	res := testPipeline(srv.Client()).Run(context.Background(), &request.Spec{URL: srv.URL}, nil,
		func(string) { chunks++ })

	if res.Err != nil {
		t.Fatalf("Run() err = %v", res.Err)
	}
	if res.ByteSize != 0 {
		t.Errorf("ByteSize = %d, want 0", res.ByteSize)
	}
	if chunks != 0 {
		t.Errorf("onChunk fired %d times for an empty body", chunks)
	}
	if res.Truncated {
		t.Error("empty body marked truncated")
	}
}

func TestPipeline_TruncatesAtCaptureCap(t *testing.T) {
	body := strings.Repeat("x", 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	var forwarded strings.Builder
	spec := &request.Spec{URL: srv.URL, MaxCaptureBytes: 40}
	res := testPipeline(srv.Client()).Run(context.Background(), spec, nil, func(c string) {
		forwarded.WriteString(c)
	})

	if res.Err != nil {
		t.Fatalf("Run() err = %v", res.Err)
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if res.ByteSize != 40 {
		t.Errorf("ByteSize = %d, want 40", res.ByteSize)
	}
	if forwarded.String() != body[:40] {
		t.Errorf("forwarded = %q, want exactly the capped prefix", forwarded.String())
	}
	if !strings.Contains(res.FullText, "response truncated") {
		t.Errorf("FullText missing truncation notice: %q", res.FullText)
	}
}

func TestPipeline_BodyExactlyAtCapIsNotTruncated(t *testing.T) {
	body := strings.Repeat("y", 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	spec := &request.Spec{URL: srv.URL, MaxCaptureBytes: 64}
	res := testPipeline(srv.Client()).Run(context.Background(), spec, nil, nil)

	if res.Err != nil {
		t.Fatalf("Run() err = %v", res.Err)
	}
	if res.Truncated {
		t.Error("body filling the cap exactly was marked truncated")
	}
	if res.ByteSize != 64 {
		t.Errorf("ByteSize = %d, want 64", res.ByteSize)
	}
	if strings.Contains(res.FullText, "truncated") {
		t.Errorf("FullText has a truncation notice without truncation: %q", res.FullText)
	}
}

func TestPipeline_FormatsJSONBodies(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		format      bool
		want        string
	}{
		{
			name:        "pretty_printed",
			contentType: "application/json",
			body:        `{"name":"volley","ok":true}`,
			format:      true,
			want:        "{\n  \"name\": \"volley\",\n  \"ok\": true\n}",
		},
		{
			name:        "structured_suffix",
			contentType: "application/problem+json; charset=utf-8",
			body:        `{"a":1}`,
			format:      true,
			want:        "{\n  \"a\": 1\n}",
		},
		{
			name:        "malformed_stays_raw",
			contentType: "application/json",
			body:        `{"broken":`,
			format:      true,
			want:        `{"broken":`,
		},
		{
			name:        "non_json_content_type",
			contentType: "text/plain",
			body:        `{"a":1}`,
			format:      true,
			want:        `{"a":1}`,
		},
		{
			name:        "formatting_disabled",
			contentType: "application/json",
			body:        `{"a":1}`,
			format:      false,
			want:        `{"a":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			spec := &request.Spec{URL: srv.URL, FormatJSON: tt.format}
			res := testPipeline(srv.Client()).Run(context.Background(), spec, nil, nil)

			if res.Err != nil {
				t.Fatalf("Run() err = %v", res.Err)
			}
			if !strings.Contains(res.FullText, tt.want) {
				t.Errorf("FullText = %q, want substring %q", res.FullText, tt.want)
			}
		})
	}
}

func TestPipeline_TimeoutClassified(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()

	spec := &request.Spec{URL: srv.URL, Timeout: 50 * time.Millisecond}
	res := testPipeline(srv.Client()).Run(context.Background(), spec, nil, nil)

	if !IsTimeout(res.Err) {
		t.Fatalf("Run() err = %v, want timeout", res.Err)
	}
	if IsCancelled(res.Err) {
		t.Error("timeout must not also classify as cancellation")
	}
}

func TestPipeline_CancelMidStreamClassified(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, strings.Repeat("z", 1024))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	res := testPipeline(srv.Client()).Run(ctx, &request.Spec{URL: srv.URL}, nil, func(string) {
		once.Do(cancel)
	})

	if !IsCancelled(res.Err) {
		t.Fatalf("Run() err = %v, want cancelled", res.Err)
	}
	if IsTimeout(res.Err) {
		t.Error("cancellation must not also classify as timeout")
	}
}

func TestPipeline_TransportErrorClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	res := testPipeline(nil).Run(context.Background(), &request.Spec{URL: target}, nil, nil)

	var te *TransportError
	if !errors.As(res.Err, &te) {
		t.Fatalf("Run() err = %T (%v), want *TransportError", res.Err, res.Err)
	}
	if te.URL != target {
		t.Errorf("TransportError.URL = %q, want %q", te.URL, target)
	}
	if IsTimeout(res.Err) || IsCancelled(res.Err) {
		t.Error("connection failure misclassified as timeout or cancellation")
	}
}

func TestClassify(t *testing.T) {
	reset := errors.New("connection reset by peer")

	tests := []struct {
		name string
		err  error
		want error // sentinel to match, nil means expect *TransportError
	}{
		{"deadline", context.DeadlineExceeded, ErrTimeout},
		{"wrapped_deadline", &url.Error{Op: "Get", URL: "http://x", Err: context.DeadlineExceeded}, ErrTimeout},
		{"cancel", context.Canceled, ErrCancelled},
		{"wrapped_cancel", &url.Error{Op: "Get", URL: "http://x", Err: context.Canceled}, ErrCancelled},
		{"transport", reset, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, "http://x")
			if tt.want != nil {
				if got != tt.want {
					t.Fatalf("classify() = %v, want %v", got, tt.want)
				}
				return
			}
			var te *TransportError
			if !errors.As(got, &te) {
				t.Fatalf("classify() = %T, want *TransportError", got)
			}
			if te.URL != "http://x" {
				t.Errorf("TransportError.URL = %q, want %q", te.URL, "http://x")
			}
			if !errors.Is(got, reset) {
				t.Error("TransportError does not unwrap to the original error")
			}
		})
	}
}
