package client

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// BearerTransport adds the provider credential and API headers to every request.
// The credential is only attached to requests for apiHost, so a redirect to another
// host never sees it.
type BearerTransport struct {
	log     *slog.Logger
	token   string
	apiHost string
	base    http.RoundTripper
}

// NewBearerTransport wraps base, http.DefaultTransport when nil. apiURL is the API
// root whose host receives the token.
func NewBearerTransport(log *slog.Logger, token, apiURL string, base http.RoundTripper) *BearerTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	var apiHost string
	if parsed, err := url.Parse(apiURL); err == nil {
		apiHost = parsed.Host
	}
	if apiHost == "" {
		log.Warn("API URL has no host, requests will be sent without credentials", "url", apiURL)
	}

	return &BearerTransport{log: log, token: token, apiHost: apiHost, base: base}
}

// RoundTrip clones the request, never mutating the caller's headers.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.apiHost != "" && strings.EqualFold(clone.URL.Host, t.apiHost) {
		clone.Header.Set("Authorization", "Bearer "+t.token)
	} else {
		clone.Header.Del("Authorization")
	}
	if clone.Header.Get("Accept") == "" {
		clone.Header.Set("Accept", AcceptHeader)
	}
	clone.Header.Set("User-Agent", UserAgent)

	t.log.Debug("Sending request", "method", clone.Method, "URL", clone.URL.Redacted())

	return t.base.RoundTrip(clone)
}
