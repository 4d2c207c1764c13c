// package services defines interface Client for talking to a running alchemy admin server
package services

import (
	"context"
	"net/http"
)

// Client defines the raw HTTP surface of the admin API used by the CLI.
type Client interface {
	// Get performs a GET request on path.
	Get(ctx context.Context, path string) (*APIResponse, error)

	// Post performs a POST request on path with a JSON body.
	Post(ctx context.Context, path string, data []byte) (*APIResponse, error)

	// Delete performs a DELETE request on path.
	Delete(ctx context.Context, path string) (*APIResponse, error)

	// BaseURL returns the server root every path is resolved against.
	BaseURL() string
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports whether the response has a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
