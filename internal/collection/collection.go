// Package collection holds the ordered request list the batch runner and the
// TUI read. The dispatch core only ever reads it; the JSON loader is driver
// input for batch and demo runs, not a persistence format.
package collection

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/billie-coop/volley/internal/request"
)

// Collection is a named, ordered list of request specs. Order is the order
// entries appear in the file and the order the batch reports them in.
type Collection struct {
	Name    string
	Entries []*request.Spec
}

// collectionJSON is a helper struct for decoding a collection document.
type collectionJSON struct {
	Name     string      `json:"name"`
	Requests []entryJSON `json:"requests"`
}

// entryJSON mirrors request.Spec for file input. The timeout is a duration
// string ("5s", "1m30s") rather than nanoseconds, and header/param rows
// missing an "enabled" key default to enabled, so hand-written files behave
// the way they read.
type entryJSON struct {
	Name            string        `json:"name,omitempty"`
	Method          string        `json:"method,omitempty"`
	URL             string        `json:"url"`
	Headers         []rowJSON     `json:"headers,omitempty"`
	Params          []rowJSON     `json:"params,omitempty"`
	Body            string        `json:"body,omitempty"`
	Auth            *request.Auth `json:"auth,omitempty"`
	Timeout         string        `json:"timeout,omitempty"`
	MaxCaptureBytes int64         `json:"max_capture_bytes,omitempty"`
	FormatJSON      bool          `json:"format_json,omitempty"`
}

// rowJSON is one header or query row in a collection file.
type rowJSON struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled *bool  `json:"enabled,omitempty"`
}

func (r rowJSON) enabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// UnmarshalJSON implements json.Unmarshaler for Collection.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var temp collectionJSON
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	c.Name = temp.Name
	c.Entries = make([]*request.Spec, 0, len(temp.Requests))
	for i, e := range temp.Requests {
		spec := &request.Spec{
			Name:            e.Name,
			Method:          e.Method,
			URL:             e.URL,
			Body:            e.Body,
			MaxCaptureBytes: e.MaxCaptureBytes,
			FormatJSON:      e.FormatJSON,
		}

		if e.Auth != nil {
			spec.Auth = *e.Auth
		} else {
			spec.Auth = request.Auth{Kind: request.AuthNone}
		}

		for _, h := range e.Headers {
			spec.Headers = append(spec.Headers, request.Header{
				Key: h.Key, Value: h.Value, Enabled: h.enabled(),
			})
		}
		for _, p := range e.Params {
			spec.Params = append(spec.Params, request.Param{
				Key: p.Key, Value: p.Value, Enabled: p.enabled(),
			})
		}

		if e.Timeout != "" {
			d, err := time.ParseDuration(e.Timeout)
			if err != nil {
				return fmt.Errorf("requests[%d]: timeout %q: %w", i, e.Timeout, err)
			}
			spec.Timeout = d
		}

		c.Entries = append(c.Entries, spec)
	}
	return nil
}

// Load reads and decodes one collection file. A document without a top-level
// name takes the file's base name.
func Load(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("collection %s: %w", path, err)
	}

	if c.Name == "" {
		base := filepath.Base(path)
		c.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return &c, nil
}
