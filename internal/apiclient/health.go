package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Ping checks the backend's unauthenticated /health endpoint, which lives at
// the server root rather than under the API prefix. It never touches the
// session.
func (c *Client) Ping(ctx context.Context) error {
	u, err := url.Parse(c.base)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	u.Path = "/health"
	u.RawQuery = ""

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.networkError(ctx, http.MethodGet, "/health", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Method: http.MethodGet, Path: "/health", Status: resp.StatusCode}
	}
	return nil
}
