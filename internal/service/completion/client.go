// Package completion calls the remote legal-assistant completion endpoint.
// The endpoint is an opaque HTTP service; requests carry the conversation's
// country and language context plus an optional thread token correlating
// follow-up questions into one exchange.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/qanoon/legal-assistant/backend/internal/model/chat"
)

const defaultTimeout = 60 * time.Second

// Request is the completion endpoint's wire format.
type Request struct {
	Message          string        `json:"message"`
	Country          *chat.Country `json:"country"`
	ThreadID         *string       `json:"thread_id"`
	Language         chat.Language `json:"language"`
	ResponseLanguage chat.Language `json:"response_language"`
}

// Reply is a successful completion response. ThreadID is present when the
// service opened or continued a server-side thread.
type Reply struct {
	Response string `json:"response"`
	ThreadID string `json:"thread_id,omitempty"`
}

// StatusError reports a non-2xx response; Body carries the endpoint's error
// text for surfacing.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Client issues completion requests against a fixed base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for the given API base URL. A zero timeout means
// the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL reports the API base the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ask sends one message and blocks until the assistant's reply arrives.
func (c *Client) Ask(ctx context.Context, req Request) (Reply, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Reply{}, fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return Reply{}, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Reply{}, fmt.Errorf("call completion endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Reply{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var reply Reply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("decode completion response: %w", err)
	}
	return reply, nil
}
