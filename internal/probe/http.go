package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/touchline/internal/domain/types"
)

// client wraps http.Client with the service base URL.
type client struct {
	http *http.Client
	base string
}

func newClient(base string, timeout time.Duration) *client {
	return &client{
		http: &http.Client{Timeout: timeout},
		base: strings.TrimRight(base, "/"),
	}
}

// get performs a GET request and decodes a JSON body into out when out is
// non-nil. The status code is returned whatever it is.
func (c *client) get(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

// post performs a POST request with a JSON body.
func (c *client) post(ctx context.Context, path string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *client) do(req *http.Request, out any) (int, error) {
	req.Header.Set("X-Request-ID", uuid.NewString())
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return resp.StatusCode, nil
}

// findPath asks POST /path. Every status carries a result body.
func (c *client) findPath(ctx context.Context, p Pair) (types.Result, error) {
	var res types.Result
	if _, err := c.post(ctx, "/path", p, &res); err != nil {
		return types.Result{}, err
	}
	return res, nil
}

// batch asks POST /paths/batch.
func (c *client) batch(ctx context.Context, pairs []Pair) ([]types.Result, error) {
	var out struct {
		Results []types.Result `json:"results"`
	}
	status, err := c.post(ctx, "/paths/batch", map[string]any{"pairs": pairs}, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("batch returned status %d", status)
	}
	if len(out.Results) != len(pairs) {
		return nil, fmt.Errorf("batch returned %d results for %d pairs", len(out.Results), len(pairs))
	}
	return out.Results, nil
}

// peopleCount reads the person count from GET /stats.
func (c *client) peopleCount(ctx context.Context) (int, error) {
	var out struct {
		People int `json:"people"`
	}
	status, err := c.get(ctx, "/stats", &out)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("stats returned status %d", status)
	}
	return out.People, nil
}
