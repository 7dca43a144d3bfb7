package request

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// methodAllowsBody reports whether a verb carries a request body.
// GET and HEAD never do; everything else may.
func methodAllowsBody(method string) bool {
	return method != http.MethodGet && method != http.MethodHead
}

// BuildHTTPRequest turns a validated Spec into a wire request.
//
// Order matters and is deliberate: the auth descriptor is applied first, then
// the enabled header rows are copied in sequence, skipping an Authorization
// row when the auth step already set one, so credentials win over a stale
// manual header. Enabled query params are appended to the URL in row order.
// A body is attached only for verbs that carry one, with Content-Type taken
// from an explicit header row or defaulted to application/json.
func BuildHTTPRequest(ctx context.Context, spec *Spec) (*http.Request, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	method := spec.NormalizedMethod()
	target := appendParams(strings.TrimSpace(spec.URL), spec.Params)

	var body *strings.Reader
	if spec.Body != "" && methodAllowsBody(method) {
		body = strings.NewReader(spec.Body)
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, target, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, nil)
	}
	if err != nil {
		return nil, err
	}

	authSetAuthorization := applyAuth(req, spec.Auth)

	for _, h := range spec.Headers {
		if !h.Enabled || h.Key == "" {
			continue
		}
		if authSetAuthorization && strings.EqualFold(h.Key, "Authorization") {
			continue
		}
		req.Header.Add(h.Key, h.Value)
	}

	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// applyAuth writes the credential headers for the spec's auth kind and
// reports whether it claimed the Authorization header.
func applyAuth(req *http.Request, auth Auth) bool {
	switch auth.Kind {
	case AuthBasic:
		req.SetBasicAuth(auth.Username, auth.Password)
		return true
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+auth.Token)
		return true
	case AuthAPIKey:
		if auth.HeaderName != "" {
			req.Header.Set(auth.HeaderName, auth.HeaderValue)
		}
		return false
	default:
		return false
	}
}

// appendParams appends the enabled query rows to the raw URL in row order,
// preserving any query string already present.
func appendParams(raw string, params []Param) string {
	var pairs []string
	for _, p := range params {
		if !p.Enabled || p.Key == "" {
			continue
		}
		pairs = append(pairs, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	if len(pairs) == 0 {
		return raw
	}

	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + strings.Join(pairs, "&")
}
