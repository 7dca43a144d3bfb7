package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"sort"
	"strings"
)

// formatHeaderDump renders the status line and response headers as the
// opening block of display text, one "Key: value" line per header value.
// Keys are sorted so repeated sends of the same request render identically.
func formatHeaderDump(resp *http.Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", resp.Proto, resp.Status)

	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range resp.Header[k] {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		}
	}
	b.WriteString("\n")
	return b.String()
}

// isJSONResponse reports whether the Content-Type declares a JSON payload,
// including structured-syntax suffixes like application/problem+json.
func isJSONResponse(resp *http.Response) bool {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func prettyJSON(s string) string {
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(s), "", "  "); err != nil {
		// Not valid JSON, return as-is
		return s
	}
	return out.String()
}

// truncationNotice is the visible marker appended to display text when the
// capture cap cut the body short.
func truncationNotice(captured int64) string {
	return fmt.Sprintf("\n\n--- response truncated, showing first %s ---\n", HumanBytes(captured))
}

// HumanBytes renders a byte count the way the status line wants it,
// with one decimal above a kilobyte.
func HumanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
