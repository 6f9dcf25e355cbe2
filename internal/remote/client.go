// Package remote implements factsync.FactSource over HTTP.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hyperengineering/factsync"
)

// DefaultTimeout bounds each request unless overridden.
const DefaultTimeout = 30 * time.Second

// maxErrorBody bounds how much of a failed response body ends up in an error.
const maxErrorBody = 200

// HTTPClient implements factsync.FactSource using net/http.
// It is safe for concurrent use.
type HTTPClient struct {
	httpClient *http.Client
	userAgent  string
	log        *factsync.Channel
}

var _ factsync.FactSource = (*HTTPClient)(nil)

// NewHTTPClient creates a fact source client. timeout <= 0 means DefaultTimeout.
// log may be nil.
func NewHTTPClient(timeout time.Duration, log *factsync.Channel) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "factsync-client/1.0",
		log:        log,
	}
}

// WithHTTPClient sets a custom http.Client (for testing or custom transports).
func (c *HTTPClient) WithHTTPClient(client *http.Client) *HTTPClient {
	c.httpClient = client
	return c
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}

// FetchPage fetches one page of the facts collection.
func (c *HTTPClient) FetchPage(ctx context.Context, url string) (*factsync.Page, error) {
	var dto pageDTO
	if err := c.get(ctx, "fetch_page", url, &dto); err != nil {
		return nil, err
	}
	return dto.page(), nil
}

// FetchOne fetches a single fact.
func (c *HTTPClient) FetchOne(ctx context.Context, url string) (*factsync.FactPayload, error) {
	var dto factDTO
	if err := c.get(ctx, "fetch_one", url, &dto); err != nil {
		return nil, err
	}
	p := dto.payload()
	return &p, nil
}

func (c *HTTPClient) get(ctx context.Context, op, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &factsync.RemoteError{Kind: factsync.RemoteTransport, Operation: op, Err: err}
	}
	c.setHeaders(req)
	c.log.LogRequest(req.Method, url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error(err, "%s %s", op, url)
		return &factsync.RemoteError{Kind: factsync.RemoteTransport, Operation: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &factsync.RemoteError{Kind: factsync.RemoteTransport, Operation: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	c.log.LogResponse(resp.StatusCode, resp.Status, body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(op, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &factsync.RemoteError{Kind: factsync.RemoteDecode, Operation: op, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// newStatusError classifies a non-2xx response. Statuses outside 400-599 are
// reported as transport failures.
func newStatusError(op string, statusCode int, body []byte) *factsync.RemoteError {
	kind, ok := factsync.ClassifyStatus(statusCode)
	if !ok {
		kind = factsync.RemoteTransport
	}

	msg := string(body)
	if len(body) > maxErrorBody {
		msg = string(body[:maxErrorBody]) + "..."
	}

	return &factsync.RemoteError{
		Kind:       kind,
		Operation:  op,
		StatusCode: statusCode,
		Err:        fmt.Errorf("HTTP %d: %s", statusCode, msg),
	}
}
