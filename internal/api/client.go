// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the catchat REST backend.
//
// Every request carries the stored bearer credential. A 401 from any
// endpoint clears the credential store and fails with KindUnauthorized; this
// is the only place deauthentication happens, so callers never special-case
// token expiry. Other failures are reported as *Error with a Kind and a
// human readable message taken from the response body.
//
// The client does not retry. Background callers swallow failures and try
// again on their next tick; foreground callers show the error.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/catachess/catchat-tui/internal/auth"
)

// Configuration constants for the catchat API.
const (
	// DefaultBaseURL is the production backend.
	DefaultBaseURL = "https://api.catachess.com"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit and DefaultRateBurst pace outgoing requests.
	DefaultRateLimit = 20
	DefaultRateBurst = 40

	// MaxResponseSize caps a response body, well above a full message
	// window at the largest history_limit.
	MaxResponseSize = 10 * 1024 * 1024
)

var (
	// sharedTransport is shared by every Client, so the 3s poll and the
	// list refresh reuse one pool of backend connections.
	sharedTransport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	sharedHTTPClient = &http.Client{
		Transport: sharedTransport,
		Timeout:   DefaultTimeout,
	}
)

// RawBody is a request body sent as-is. The client sets no JSON content
// type for it; ContentType is used when non-empty (e.g. a multipart
// boundary).
type RawBody struct {
	Reader      io.Reader
	ContentType string
}

// Client talks to the catchat backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      auth.Store
	limiter    *rate.Limiter
	userAgent  string
	verbose    bool

	mu             sync.RWMutex
	onUnauthorized func()
}

// New creates a client that reads its credential from store.
func New(store auth.Store) *Client {
	return &Client{
		baseURL:    DefaultBaseURL,
		httpClient: sharedHTTPClient,
		store:      store,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateBurst),
		userAgent:  "catchat-tui",
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient = &http.Client{Transport: c.httpClient.Transport, Timeout: timeout}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithRateLimit sets request pacing. A non-positive limit disables it.
func (c *Client) WithRateLimit(perSecond float64, burst int) *Client {
	if perSecond <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return c
}

// WithUserAgent sets the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// WithVerbose enables request/response logging.
func (c *Client) WithVerbose(v bool) *Client {
	c.verbose = v
	return c
}

// OnUnauthorized registers fn to run after a 401 has cleared the store.
// It runs on the goroutine that made the request.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Store returns the credential store the client reads from.
func (c *Client) Store() auth.Store {
	return c.store
}

// =============================================================================
// Request/Response Logging (without sensitive data)
// =============================================================================

// logRequest logs an API request without headers or body.
func (c *Client) logRequest(req *http.Request) {
	if c.verbose {
		log.Printf("API Request: %s %s", req.Method, req.URL.Path)
	}
}

// logResponse logs status and duration only.
func (c *Client) logResponse(req *http.Request, status int, duration time.Duration) {
	if c.verbose {
		log.Printf("API Response: %s %s -> %d (%v)", req.Method, req.URL.Path, status, duration)
	}
}

// =============================================================================
// CORE REQUEST
// =============================================================================

// do performs one request. body is JSON-encoded unless it is a RawBody or
// nil. out, when non-nil, receives the decoded JSON response; it is left
// untouched for 204 responses.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Kind: KindGeneric, Message: err.Error(), Err: err}
	}

	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case RawBody:
		reader = b.Reader
		contentType = b.ContentType
	case *RawBody:
		reader = b.Reader
		contentType = b.ContentType
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token, ok := c.store.Get(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logRequest(req)
	start := time.Now()
	resp, err := c.httpClient.Do(req)

	// The bearer token must not reach logResponse.
	req.Header.Del("Authorization")

	if err != nil {
		return &Error{Kind: KindGeneric, Message: fmt.Sprintf("request failed: %v", err), Err: err}
	}
	defer resp.Body.Close()
	c.logResponse(req, resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized {
		c.deauthenticate()
		return &Error{Kind: KindUnauthorized, Status: resp.StatusCode, Message: ErrUnauthorized.Error()}
	}

	respBody, err := readResponse(resp)
	if err != nil {
		return &Error{Kind: KindGeneric, Status: resp.StatusCode, Message: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleErrorResponse(resp.StatusCode, respBody)
	}

	if resp.StatusCode == http.StatusNoContent || out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Kind: KindGeneric, Status: resp.StatusCode, Message: "failed to parse response", Err: err}
	}
	return nil
}

// deauthenticate is the single global sign-out trigger.
func (c *Client) deauthenticate() {
	if err := c.store.Clear(); err != nil {
		log.Printf("api: clear credentials after 401: %v", err)
	}
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// readResponse reads at most MaxResponseSize bytes of the body.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}
