// API service for making raw HTTP requests to the alchemy admin server
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/desertthunder/alchemy/internal/shared"
	"github.com/desertthunder/alchemy/internal/web"
)

// APIOpts configures an [APIService].
type APIOpts struct {
	Token    string        // Bearer token sent on every request
	Attempts uint          // Attempts per request on transport failures (default: 1)
	Delay    time.Duration // Delay between attempts (default: 200ms)
}

// APIService provides methods for making raw HTTP requests to the admin server.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	opts       APIOpts
}

var _ Client = (*APIService)(nil)

// NewAPIService creates a new API service instance for the admin server.
func NewAPIService(baseURL string, client *http.Client, opts APIOpts) *APIService {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	if opts.Delay <= 0 {
		opts.Delay = 200 * time.Millisecond
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		opts:       opts,
	}
}

// BaseURL implements [Client].
func (a *APIService) BaseURL() string { return a.baseURL }

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPost, path, data)
}

// Delete performs a DELETE request to the specified path and returns the raw response.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodDelete, path, nil)
}

func (a *APIService) do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	fullURL := a.baseURL + path

	var apiResp *APIResponse
	err := retry.Do(
		func() error {
			var body io.Reader
			if data != nil {
				body = bytes.NewReader(data)
			}

			req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("%w: failed to create request: %v", shared.ErrAPIRequest, err))
			}
			if data != nil {
				req.Header.Set("Content-Type", "application/json")
			}
			if a.opts.Token != "" {
				req.Header.Set("Authorization", "Bearer "+a.opts.Token)
			}

			resp, err := a.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
			}
			defer resp.Body.Close()

			raw, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
			}

			apiResp = newAPIResponse(resp, raw)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(a.opts.Attempts),
		retry.Delay(a.opts.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return apiResp, nil
}

func newAPIResponse(resp *http.Response, body []byte) *APIResponse {
	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp
}

// Engines fetches the engines table.
func (a *APIService) Engines(ctx context.Context) (*web.Table, error) {
	var table web.Table
	if err := a.getJSON(ctx, "/api/engines", &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// CheckEngine runs the connectivity check of the engine stored under oid.
func (a *APIService) CheckEngine(ctx context.Context, oid string) (*web.CheckResponse, error) {
	resp, err := a.Post(ctx, "/api/engines/"+url.PathEscape(oid)+"/test", nil)
	if err != nil {
		return nil, err
	}
	if err := StatusError(resp); err != nil {
		return nil, err
	}

	var check web.CheckResponse
	if err := json.Unmarshal(resp.Body, &check); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return &check, nil
}

func (a *APIService) getJSON(ctx context.Context, path string, v any) error {
	resp, err := a.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := StatusError(resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// StatusError converts a non-2xx response to an error wrapping the matching sentinel.
func StatusError(resp *APIResponse) error {
	if resp.OK() {
		return nil
	}

	message := strings.TrimSpace(string(resp.Body))
	var body struct {
		Message string `json:"message"`
	}
	if resp.IsJSON && json.Unmarshal(resp.Body, &body) == nil && body.Message != "" {
		message = body.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", shared.ErrForbidden, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrEngineNotFound, message)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, message)
	}
}
