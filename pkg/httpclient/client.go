// Copyright 2026 Bindu Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpclient provides the retrying HTTP client shared by the push
// dispatcher and the auth introspection client.
package httpclient

import (
	"fmt"
	"math"
	"net/http"
	"time"
)

// Client wraps http.Client with bounded exponential backoff. Server errors
// (5xx) and network failures are retried; client errors (4xx) are returned
// immediately.
type Client struct {
	client      *http.Client
	maxAttempts int
	baseDelay   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// WithMaxAttempts sets the total number of attempts, first try included.
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

// WithBaseDelay sets the backoff base. Attempt n waits baseDelay * 2^(n-1).
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

// New creates a retrying client. Defaults: 5 attempts, 500ms base delay,
// 30s request timeout.
func New(opts ...Option) *Client {
	c := &Client{
		client:      &http.Client{Timeout: 30 * time.Second},
		maxAttempts: 5,
		baseDelay:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Retryable reports whether a status code warrants another attempt.
func Retryable(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

// Do performs the request, retrying per the client policy. The request must
// carry GetBody when it has a body, which http.NewRequest sets for common
// body types. The response body of failed attempts is closed here; the
// final response is the caller's to close.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to recreate request body for retry: %w", err)
			}
			req.Body = body
		}

		resp, err := c.client.Do(req)
		if err == nil {
			if !Retryable(resp.StatusCode) {
				return resp, nil
			}
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			resp.Body.Close()
		} else {
			lastErr = err
		}

		if attempt == c.maxAttempts {
			break
		}
		delay := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseDelay
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

// DoOnce performs the request without retries, still honoring the client
// timeout.
func (c *Client) DoOnce(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}
