package fetcher

import (
	"context"
	"net/http"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Poster sends JSON POST requests to the report backend.
type Poster interface {
	// PostJSON marshals payload as JSON, posts it to url with the given extra
	// headers and returns the read response. Non-2xx statuses are not errors.
	PostJSON(ctx context.Context, url string, header http.Header, payload any) (*Response, error)
}
