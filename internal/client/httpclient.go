package client

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	// AcceptHeader selects the versioned JSON media type of the content API.
	AcceptHeader = "application/vnd.github.v3+json"
	// UserAgent identifies the service to the provider.
	UserAgent = "ems-roster/1.0"
)

// CreateHTTPClient initializes an HTTP client authenticating with a bearer token
// against the host of apiURL.
func CreateHTTPClient(log *slog.Logger, token, apiURL string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewBearerTransport(log, token, apiURL, nil),
		CheckRedirect: func(req *http.Request, _ []*http.Request) error {
			log.Debug("Redirected to URL", "URL", req.URL)

			return nil
		},
	}
}
