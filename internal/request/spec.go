// Package request defines the request model the dispatch core executes: the
// verb, target, headers, credentials, and body of one HTTP call, plus the
// per-request knobs that tune how its response is captured.
package request

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidURL marks a spec whose URL cannot be dispatched. Exchanges fail
// with it synchronously, before any network activity.
var ErrInvalidURL = errors.New("request: invalid URL")

// AuthKind selects how credentials are applied to the wire request.
type AuthKind string

const (
	AuthNone   AuthKind = "none"
	AuthBasic  AuthKind = "basic"
	AuthBearer AuthKind = "bearer"
	AuthAPIKey AuthKind = "apiKey"
)

// Auth describes the credentials for one request.
// Only the fields for the selected Kind are consulted.
type Auth struct {
	Kind     AuthKind `json:"kind"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
	Token    string   `json:"token,omitempty"`
	// HeaderName/HeaderValue carry an API key as an arbitrary header pair.
	HeaderName  string `json:"header_name,omitempty"`
	HeaderValue string `json:"header_value,omitempty"`
}

// Header is one header row. Disabled rows are kept in the model (the editor
// toggles them) but never reach the wire.
type Header struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// Param is one query-string row, same enable semantics as Header.
type Param struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// Spec is everything needed to execute one HTTP exchange.
type Spec struct {
	// Name is the display name used in notices and batch progress.
	Name string `json:"name,omitempty"`

	Method  string   `json:"method"`
	URL     string   `json:"url"`
	Headers []Header `json:"headers,omitempty"`
	Params  []Param  `json:"params,omitempty"`
	Body    string   `json:"body,omitempty"`
	Auth    Auth     `json:"auth"`

	// Timeout bounds the whole exchange; zero means unbounded.
	Timeout time.Duration `json:"timeout,omitempty"`

	// MaxCaptureBytes caps how much of the response body is accumulated.
	// Zero means the mode default (100 MiB single-shot, 10 MiB streaming).
	MaxCaptureBytes int64 `json:"max_capture_bytes,omitempty"`

	// FormatJSON asks for pretty-printed bodies when the response is JSON.
	FormatJSON bool `json:"format_json,omitempty"`
}

// knownMethods is the verb set the tool dispatches.
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// NormalizedMethod returns the upper-cased verb, defaulting to GET.
func (s *Spec) NormalizedMethod() string {
	m := strings.ToUpper(strings.TrimSpace(s.Method))
	if m == "" {
		return "GET"
	}
	return m
}

// Validate checks that the spec is dispatchable: a known verb and an
// absolute http(s) URL. It wraps ErrInvalidURL so callers can classify.
func (s *Spec) Validate() error {
	if !knownMethods[s.NormalizedMethod()] {
		return fmt.Errorf("request: unsupported method %q", s.Method)
	}

	raw := strings.TrimSpace(s.URL)
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q not supported", ErrInvalidURL, u.Scheme)
	}
	return nil
}

// DisplayName returns the name for notices and progress lines, falling back
// to "METHOD URL" for unnamed specs.
func (s *Spec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%s %s", s.NormalizedMethod(), s.URL)
}
