// API service for making JSON requests to the study API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/studyx/internal/shared"
	"golang.org/x/oauth2"
)

const DefaultBaseURL = "http://127.0.0.1:8000"

// APIService performs JSON requests against the study API.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API service instance. An empty baseURL uses [DefaultBaseURL]; a nil client uses
// [http.DefaultClient].
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// NewHTTPClient returns a client with the given timeout that sends token as a bearer token when non-empty.
func NewHTTPClient(token string, timeout time.Duration) *http.Client {
	if token == "" {
		return &http.Client{Timeout: timeout}
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	client := oauth2.NewClient(context.Background(), src)
	client.Timeout = timeout
	return client
}

// errorBody is the error payload returned by the API.
type errorBody struct {
	Detail string `json:"detail"`
}

// doRequest sends body as JSON (when non-nil) and decodes the response into result (when non-nil).
func (a *APIService) doRequest(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return fmt.Errorf("%w: %s %s: %v", shared.ErrTimeout, method, path, err)
		}
		return fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

// Raw sends body (when non-empty) to path and returns the response body undecoded.
// Used by the CLI for ad hoc requests.
func (a *APIService) Raw(ctx context.Context, method, path string, body json.RawMessage) (json.RawMessage, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var payload any
	if len(body) > 0 {
		if !json.Valid(body) {
			return nil, fmt.Errorf("%w: body is not valid JSON", shared.ErrInvalidInput)
		}
		payload = body
	}

	var raw json.RawMessage
	if err := a.doRequest(ctx, method, path, payload, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func statusError(status int, data []byte) error {
	message := strings.TrimSpace(string(data))
	var body errorBody
	if json.Unmarshal(data, &body) == nil && body.Detail != "" {
		message = body.Detail
	}

	var sentinel error
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		sentinel = shared.ErrUnauthorized
	case status == http.StatusNotFound:
		sentinel = shared.ErrRecordNotFound
	case status >= 500:
		sentinel = shared.ErrServiceUnavailable
	default:
		sentinel = shared.ErrAPIRequest
	}

	if message == "" {
		return fmt.Errorf("%w: status %d", sentinel, status)
	}
	return fmt.Errorf("%w: status %d: %s", sentinel, status, message)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
