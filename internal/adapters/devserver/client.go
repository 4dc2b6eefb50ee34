// Package devserver implements the ports.ArtifactSource interface against
// the development HTTP server that serves transpiled output. Fetches are
// plain GETs by relative path; every request carries a bounded timeout so a
// stuck server can never wedge a round-completion flush.
package devserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/dana/stagehand/internal/ports"
)

// DefaultTimeout bounds one artifact fetch.
const DefaultTimeout = 10 * time.Second

// Client fetches compiled artifacts over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the dev server at host:port.
func NewClient(host string, port int) *Client {
	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

// Fetch GETs the artifact at relPath and returns the full body. A non-2xx
// response yields a *ports.StatusError so the caller can log the status;
// transport failures (connection refused during startup races) come back
// as-is.
func (c *Client) Fetch(ctx context.Context, relPath string) ([]byte, error) {
	url := c.baseURL + "/" + path.Clean(relPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", relPath, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ports.StatusError{Path: relPath, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body for %s: %w", relPath, err)
	}
	return body, nil
}
