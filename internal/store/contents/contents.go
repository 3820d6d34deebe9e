// Package contents implements store.DocumentStore on top of a repository content
// API: the roster is one JSON file in a git repository, its blob sha is the revision
// token and every write is a commit.
package contents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Houeta/ems-roster/internal/codec"
	"github.com/Houeta/ems-roster/internal/lib/logger/sl"
	"github.com/Houeta/ems-roster/internal/metrics"
	"github.com/Houeta/ems-roster/internal/models"
	"github.com/Houeta/ems-roster/internal/store"
)

const (
	opRead   = "read"
	opCreate = "create"
	opWrite  = "write"

	maxErrorBody = 64 << 10
)

// Options locates the roster file.
type Options struct {
	APIURL string // APIURL is the API root, e.g. https://api.github.com
	Owner  string
	Repo   string
	Path   string // Path is the file path inside the repository
	Branch string // Branch is optional, the default branch is used when empty
}

// Client reads and writes the roster file through the content API.
type Client struct {
	log        *slog.Logger
	httpClient *http.Client
	metrics    *metrics.Metrics
	docURL     string
	branch     string
}

type contentResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	SHA      string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// New builds a client for the file described by opts. httpClient is expected to carry
// the credential, see client.CreateHTTPClient.
func New(log *slog.Logger, httpClient *http.Client, appMetrics *metrics.Metrics, opts Options) (*Client, error) {
	if opts.APIURL == "" || opts.Owner == "" || opts.Repo == "" || opts.Path == "" {
		return nil, errors.New("api url, owner, repo and path are required")
	}

	docURL, err := url.JoinPath(opts.APIURL, "repos", opts.Owner, opts.Repo, "contents", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to build document url: %w", err)
	}

	return &Client{
		log:        log.With(slog.String("division", "contents")),
		httpClient: httpClient,
		metrics:    appMetrics,
		docURL:     docURL,
		branch:     opts.Branch,
	}, nil
}

// ReadDocument fetches the roster. A missing file is created as an empty array first.
func (c *Client) ReadDocument(ctx context.Context) (store.Document, error) {
	const opn = "Contents.ReadDocument"
	log := c.log.With(slog.String("op", opn))

	content, err := c.get(ctx)
	if errors.Is(err, store.ErrResourceNotFound) {
		log.InfoContext(ctx, "Document does not exist, initializing it", "url", c.docURL)

		revision, createErr := c.put(ctx, opCreate, []models.Employee{}, "", store.MsgInitialize)
		if createErr != nil {
			return store.Document{}, fmt.Errorf("failed to initialize document: %w", createErr)
		}

		return store.Document{Records: []models.Employee{}, Revision: revision}, nil
	}
	if err != nil {
		return store.Document{}, err
	}

	if content.Encoding == "none" || (content.Type != "" && content.Type != "file") {
		return store.Document{}, &store.ProviderError{
			Op:      "read document",
			Status:  http.StatusOK,
			Message: fmt.Sprintf("unsupported content (type %q, encoding %q)", content.Type, content.Encoding),
			Kind:    store.ErrProvider,
		}
	}

	records, err := codec.Decode(content.Content)
	if err != nil {
		log.WarnContext(ctx, "Document content could not be decoded", "revision", content.SHA, sl.Err(err))
		return store.Document{}, fmt.Errorf("%w: %w", store.ErrMalformedDocument, err)
	}

	return store.Document{Records: records, Revision: content.SHA}, nil
}

// WriteDocument commits records, conditioned on expectedRevision when it is not empty.
func (c *Client) WriteDocument(
	ctx context.Context,
	records []models.Employee,
	expectedRevision, message string,
) (string, error) {
	return c.put(ctx, opWrite, records, expectedRevision, message)
}

// Ping checks that the provider answers for the document. A missing document is healthy,
// it is created on first read.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx)
	if err == nil || errors.Is(err, store.ErrResourceNotFound) {
		return nil
	}

	return err
}

func (c *Client) get(ctx context.Context) (contentResponse, error) {
	var content contentResponse

	reqURL := c.docURL
	if c.branch != "" {
		reqURL += "?" + url.Values{"ref": {c.branch}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return content, fmt.Errorf("failed to create new request %s: %w", reqURL, err)
	}

	resp, err := c.do(req, opRead)
	if err != nil {
		return content, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return content, providerError("read document", resp)
	}

	if err = json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return content, fmt.Errorf("read document: %w: failed to decode response: %w", store.ErrTransport, err)
	}

	return content, nil
}

func (c *Client) put(
	ctx context.Context,
	opLabel string,
	records []models.Employee,
	expectedRevision, message string,
) (string, error) {
	encoded, err := codec.Encode(records)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(putRequest{
		Message: message,
		Content: encoded,
		SHA:     expectedRevision,
		Branch:  c.branch,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.docURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create new request %s: %w", c.docURL, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req, opLabel)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", providerError("write document", resp)
	}

	var result putResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("write document: %w: failed to decode response: %w", store.ErrTransport, err)
	}

	c.log.DebugContext(ctx, "Document committed", "message", message, "revision", result.Content.SHA)

	return result.Content.SHA, nil
}

func (c *Client) do(req *http.Request, opLabel string) (*http.Response, error) {
	startTime := time.Now()
	defer func() {
		c.metrics.StoreRequestDuration.WithLabelValues(opLabel).Observe(time.Since(startTime).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.StoreRequests.WithLabelValues(opLabel, "transport_error").Inc()
		return nil, fmt.Errorf("%s %s: %w: %w", req.Method, c.docURL, store.ErrTransport, err)
	}

	c.metrics.StoreRequests.WithLabelValues(opLabel, strconv.Itoa(resp.StatusCode)).Inc()

	return resp, nil
}

// providerError translates a non-success response into the store taxonomy.
func providerError(opn string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload errorResponse
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Message == "" {
		payload.Message = strings.TrimSpace(string(raw))
	}
	if payload.Message == "" {
		payload.Message = http.StatusText(resp.StatusCode)
	}

	kind := store.KindForStatus(resp.StatusCode)
	switch {
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0",
		resp.StatusCode == http.StatusTooManyRequests:
		kind = store.ErrProvider
		payload.Message = "rate limit exceeded: " + payload.Message
	case resp.StatusCode == http.StatusUnprocessableEntity && strings.Contains(payload.Message, "sha"):
		// the file changed or appeared since it was read
		kind = store.ErrRevisionConflict
	}

	return &store.ProviderError{
		Op:      opn,
		Status:  resp.StatusCode,
		Message: payload.Message,
		Kind:    kind,
	}
}
