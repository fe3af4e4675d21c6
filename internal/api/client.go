// Package api is the HTTP client for the remote library service. It
// carries the cookie-based session, sends JSON bodies and treats any
// non-2xx response as a failure of that single call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"go.uber.org/zap"

	"github.com/libridge/shelfsync/internal/models"
)

// DefaultTimeout bounds every request so one stuck call cannot wedge a
// drain cycle forever.
const DefaultTimeout = 15 * time.Second

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: unexpected status %d: %s", e.Code, e.Body)
}

// Client talks to the library API at a fixed base URL.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
	token   string
}

// NewClient builds a Client for baseURL (no trailing slash). A zero
// timeout means DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Jar: jar, Timeout: timeout},
		log:     log,
	}, nil
}

// SetToken attaches a bearer token to every request, for deployments
// where the session is not cookie-based. The cookie jar stays active
// either way.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Do sends method path with body as JSON and discards the response
// body. Used by the sync worker, whose payloads are opaque.
func (c *Client) Do(ctx context.Context, method, path string, body json.RawMessage) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Online reports whether the remote API is currently reachable.
func (c *Client) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode < 500
}

// cartPayload is the body of cart item mutations.
type cartPayload struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity,omitempty"`
}

// FetchCart loads the server-side cart.
func (c *Client) FetchCart(ctx context.Context) (*models.CartSnapshot, error) {
	return c.cartCall(ctx, http.MethodGet, "/api/borrow-carts", nil)
}

// AddCartItem adds quantity copies of a book and returns the confirmed cart.
func (c *Client) AddCartItem(ctx context.Context, bookID int64, quantity int) (*models.CartSnapshot, error) {
	return c.cartCall(ctx, http.MethodPost, "/api/borrow-carts/items", &cartPayload{BookID: bookID, Quantity: quantity})
}

// UpdateCartItem changes the requested quantity for a book.
func (c *Client) UpdateCartItem(ctx context.Context, bookID int64, quantity int) (*models.CartSnapshot, error) {
	return c.cartCall(ctx, http.MethodPut, "/api/borrow-carts/items", &cartPayload{BookID: bookID, Quantity: quantity})
}

// RemoveCartItem drops a book from the cart.
func (c *Client) RemoveCartItem(ctx context.Context, bookID int64) (*models.CartSnapshot, error) {
	return c.cartCall(ctx, http.MethodDelete, "/api/borrow-carts/items", &cartPayload{BookID: bookID})
}

// cartCall issues a cart request and maps the wire response into a
// recomputed CartSnapshot.
func (c *Client) cartCall(ctx context.Context, method, path string, payload *cartPayload) (*models.CartSnapshot, error) {
	var body json.RawMessage
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = buf
	}
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var snap models.CartSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	// aggregates are derived locally, never trusted from the wire
	snap.Recompute()
	return &snap, nil
}

func (c *Client) send(ctx context.Context, method, path string, body json.RawMessage) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		c.log.Debug("api call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(detail))}
	}
	return resp, nil
}
