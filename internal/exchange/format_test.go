package exchange

import (
	"net/http"
	"testing"
)

func TestFormatHeaderDump(t *testing.T) {
	resp := &http.Response{
		Proto:  "HTTP/1.1",
		Status: "200 OK",
		Header: http.Header{
			"Zulu":  {"1"},
			"Alpha": {"a1", "a2"},
		},
	}

	want := "HTTP/1.1 200 OK\nAlpha: a1\nAlpha: a2\nZulu: 1\n\n"
	if got := formatHeaderDump(resp); got != want {
		t.Errorf("formatHeaderDump() = %q, want %q", got, want)
	}
}

func TestIsJSONResponse(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        bool
	}{
		{"plain_json", "application/json", true},
		{"json_with_charset", "application/json; charset=utf-8", true},
		{"structured_suffix", "application/problem+json", true},
		{"html", "text/html", false},
		{"missing", "", false},
		{"garbage", ";;;", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.contentType != "" {
				resp.Header.Set("Content-Type", tt.contentType)
			}
			if got := isJSONResponse(resp); got != tt.want {
				t.Errorf("isJSONResponse(%q) = %v, want %v", tt.contentType, got, tt.want)
			}
		})
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{10 * 1024, "10.0 KB"},
		{10 << 20, "10.0 MB"},
		{1536, "1.5 KB"},
	}

	for _, tt := range tests {
		if got := HumanBytes(tt.n); got != tt.want {
			t.Errorf("HumanBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
