package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/billie-coop/volley/internal/app"
	"github.com/billie-coop/volley/internal/collection"
	"github.com/billie-coop/volley/internal/config"
	"github.com/billie-coop/volley/internal/dispatch"
	"github.com/billie-coop/volley/internal/exchange"
	"github.com/billie-coop/volley/internal/request"
)

func demoCollection() *collection.Collection {
	return &collection.Collection{
		Name: "demo",
		Entries: []*request.Spec{
			{Name: "list users", Method: "GET", URL: "http://api.test/users"},
			{Name: "create user", Method: "POST", URL: "http://api.test/users"},
		},
	}
}

func TestSinkDeliversInOrder(t *testing.T) {
	s := NewSink()
	s.Apply(dispatch.Notice{Level: dispatch.NoticeInfo, Message: "one"})
	s.Apply(dispatch.ResponseChunk{RequestID: "r", Text: "two"})

	if got := (<-s.Mutations()).(dispatch.Notice); got.Message != "one" {
		t.Fatalf("first mutation = %+v, want notice %q", got, "one")
	}
	if got := (<-s.Mutations()).(dispatch.ResponseChunk); got.Text != "two" {
		t.Fatalf("second mutation = %+v, want chunk %q", got, "two")
	}
}

func TestModelAppliesResponseLifecycle(t *testing.T) {
	m := New(nil, NewSink(), demoCollection())
	m.width, m.height = 100, 30
	m.resizeViewport()
	m.inFlight = true
	m.requestID = "r1"
	m.requestName = "list users"

	m.applyMutation(dispatch.ResponseStarted{RequestID: "r1", Name: "list users", Header: "HTTP/1.1 200 OK\n\n"})
	m.applyMutation(dispatch.ResponseChunk{RequestID: "r1", Text: `[{"id":1}`})
	m.applyMutation(dispatch.ResponseChunk{RequestID: "r1", Text: `]`})

	if !strings.Contains(m.response, `[{"id":1}]`) {
		t.Fatalf("streamed response = %q, want accumulated body", m.response)
	}
	if !m.inFlight {
		t.Fatal("model left the in-flight state before the finish arrived")
	}

	final := "HTTP/1.1 200 OK\n\n[\n  {\n    \"id\": 1\n  }\n]"
	m.applyMutation(dispatch.ResponseFinished{
		RequestID: "r1",
		Result: exchange.Result{
			Success:    true,
			StatusCode: 200,
			Status:     "200 OK",
			Elapsed:    42 * time.Millisecond,
			ByteSize:   9,
			FullText:   final,
		},
	})

	if m.inFlight {
		t.Fatal("model still in flight after the finish")
	}
	if m.response != final {
		t.Fatalf("final view = %q, want the finished FullText", m.response)
	}
	if !strings.Contains(m.status, "200 OK") {
		t.Fatalf("status line = %q, want the finish summary", m.status)
	}
}

func TestModelIgnoresStaleMutations(t *testing.T) {
	m := New(nil, NewSink(), demoCollection())
	m.width, m.height = 100, 30
	m.resizeViewport()
	m.requestID = "current"
	m.response = "kept"

	m.applyMutation(dispatch.ResponseChunk{RequestID: "stale", Text: "late chunk"})
	if m.response != "kept" {
		t.Fatalf("stale chunk mutated the view: %q", m.response)
	}

	m.applyMutation(dispatch.RequestFailed{
		RequestID: "stale",
		Name:      "old send",
		Result:    exchange.Result{Err: exchange.ErrCancelled},
	})
	if strings.Contains(m.status, "old send") {
		t.Fatalf("stale failure reached the status line: %q", m.status)
	}
}

func TestModelNoticeSetsStatusLevel(t *testing.T) {
	m := New(nil, NewSink(), demoCollection())

	m.applyMutation(dispatch.Notice{Level: dispatch.NoticeError, Message: "dispatcher shutting down"})

	if m.status != "dispatcher shutting down" {
		t.Fatalf("status = %q, want the notice text", m.status)
	}
	if m.statusLevel != dispatch.NoticeError {
		t.Fatalf("status level = %q, want error", m.statusLevel)
	}
}

func TestMoveSelectionClamps(t *testing.T) {
	m := New(nil, NewSink(), demoCollection())

	m.moveSelection(-1)
	if m.selected != 0 {
		t.Fatalf("selected = %d after moving above the top", m.selected)
	}

	m.moveSelection(1)
	m.moveSelection(1)
	if m.selected != 1 {
		t.Fatalf("selected = %d, want pinned to the last entry", m.selected)
	}
}

func TestRenderListMarksSelection(t *testing.T) {
	m := New(nil, NewSink(), demoCollection())
	m.width, m.height = 100, 30
	m.selected = 1

	out := m.renderList()

	if !strings.Contains(out, "list users") || !strings.Contains(out, "create user") {
		t.Fatalf("list pane missing entries:\n%s", out)
	}
	if !strings.Contains(out, "> ") {
		t.Fatalf("list pane missing the selection marker:\n%s", out)
	}
}

func TestSendSelectedQueuesWithConfigDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sink := NewSink()
	a := app.New(context.Background(), cfg, zerolog.Nop(), sink)
	defer a.Shutdown(time.Second)
	m := New(a, sink, demoCollection())

	cmd := m.sendSelected()

	if !m.inFlight {
		t.Fatal("sendSelected did not mark the model in flight")
	}
	if m.requestID == "" {
		t.Fatal("sendSelected left no request id to match mutations against")
	}
	if cmd == nil {
		t.Fatal("sendSelected returned no spinner command")
	}

	// A second enter while in flight warns instead of double-sending.
	id := m.requestID
	if cmd := m.sendSelected(); cmd != nil {
		t.Fatal("second send while in flight returned a command")
	}
	if m.requestID != id {
		t.Fatal("second send replaced the in-flight request id")
	}
	if !strings.Contains(m.status, "in flight") {
		t.Fatalf("status = %q, want the in-flight warning", m.status)
	}
}
