// Package transport issues HTTP requests against the monitoring backend,
// attaching bearer credentials and classifying responses uniformly.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every request end to end. The backend is a fixed
// REST contract; anything slower than this is treated as connectivity
// failure (status 0), not waited out.
const DefaultTimeout = 5 * time.Second

// TokenSource supplies the current access token. An empty token means no
// Authorization header is attached.
type TokenSource interface {
	AccessToken() string
}

// Client is the single HTTP entry point for all resource and auth calls.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *zap.Logger

	// onUnauthorized is invoked on every 401 before the error is
	// returned. The exactly-once guarantee under concurrent 401s is the
	// callee's job (session.Store.ForceClear no-ops once cleared).
	onUnauthorized func()
}

// NewClient constructs a Client. A non-positive timeout falls back to
// DefaultTimeout. tokens may be nil for an unauthenticated client.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: normalizeBase(baseURL),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		log:     log,
	}
}

// SetUnauthorizedHook registers the 401 side effect (session clear).
// Must be called during wiring, before requests are issued.
func (c *Client) SetUnauthorizedHook(fn func()) { c.onUnauthorized = fn }

func normalizeBase(endpoint string) string {
	if endpoint == "" {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	return strings.TrimRight(endpoint, "/")
}

// Get issues an authenticated GET.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post issues an authenticated POST with a JSON body (nil allowed).
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Patch issues an authenticated PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPatch, path, body)
}

// Put issues an authenticated PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Delete issues an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// Do performs a single request. Expected HTTP failures come back as
// *Error (status > 0) or a connectivity *Error (status 0); only malformed
// calls (unmarshalable body) error out before the network.
func (c *Client) Do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.AccessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	reqID, _ := uuid.NewV4()
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("http",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("req", reqID.String()),
			zap.Error(err),
		)
		return nil, &Error{Status: 0, Message: "cannot reach the monitoring service"}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Status: 0, Message: "cannot reach the monitoring service"}
	}

	c.log.Info("http",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("dur", time.Since(start)),
		zap.String("req", reqID.String()),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return nil, &Error{Status: resp.StatusCode, Body: raw, Message: serverMessage(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, Body: raw, Message: serverMessage(raw)}
	}

	if !isJSON(resp.Header.Get("Content-Type")) || len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	return json.RawMessage(raw), nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
