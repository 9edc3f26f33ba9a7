// Package client is a typed client for the gift service REST API.
//
// The API predates a uniform error envelope: some routes answer plain text,
// others `{"error": "..."}`. The client tolerates both and always surfaces
// the server's wording verbatim, while transport failures are reported as a
// distinct error type so callers can show a generic connection message.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// TransportError wraps a failure to reach the server at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("connection error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError is a non-2xx response. Message carries the server's own
// wording, extracted from the error envelope when present.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// IsTransport reports whether err was a connection failure rather than a
// server rejection.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Client talks to a gift service backend at a fixed base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL, without a trailing slash.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// NewWithHTTPClient creates a client using a caller-supplied http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

// do issues a request and returns the raw body. Non-2xx responses become
// *ServerError with the body's error text; network failures become
// *TransportError.
func (c *Client) do(ctx context.Context, method, path string, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServerError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorText(data, resp.StatusCode),
		}
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, "", nil)
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(data))
}

// extractErrorText pulls the server's error wording out of a response body,
// regardless of which shape this particular route uses.
func extractErrorText(body []byte, statusCode int) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("request failed with status %d", statusCode)
	}
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return trimmed
}

// decodeStringList coerces null or malformed list payloads to an empty
// slice instead of failing.
func decodeStringList(data []byte) []string {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil || list == nil {
		return []string{}
	}
	return list
}
