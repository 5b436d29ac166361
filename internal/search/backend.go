package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Result is one search hit returned by a backend.
type Result struct {
	// Title is the hit's display title.
	Title string `json:"title"`
	// URL locates the hit.
	URL string `json:"url"`
	// Snippet is a short excerpt, when the backend provides one.
	Snippet string `json:"snippet,omitempty"`
	// Source names the backend that produced the hit.
	Source string `json:"source,omitempty"`
}

// Backend is a pluggable search source. The provider is agnostic to
// how a backend works: HTTP call, local index, or anything else.
type Backend interface {
	// Name identifies the backend in errors and logs.
	Name() string
	// Search runs the query, returning at most maxResults hits.
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// FuncBackend adapts a function to the Backend interface.
type FuncBackend struct {
	// ID is the backend name.
	ID string
	// Fn performs the search.
	Fn func(ctx context.Context, query string, maxResults int) ([]Result, error)
}

func (b *FuncBackend) Name() string { return b.ID }

func (b *FuncBackend) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	return b.Fn(ctx, query, maxResults)
}

// HTTPBackend queries a JSON search endpoint. The endpoint receives
// `q` and `limit` query parameters and responds with a JSON array of
// results.
type HTTPBackend struct {
	// ID is the backend name.
	ID string
	// Endpoint is the search URL.
	Endpoint string
	// Client is the HTTP client; nil means a 30s-timeout default.
	Client *http.Client
}

func (b *HTTPBackend) Name() string { return b.ID }

func (b *HTTPBackend) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	client := b.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	u, err := url.Parse(b.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("backend %s: parse endpoint: %w", b.ID, err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(maxResults))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("backend %s: build request: %w", b.ID, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", b.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend %s: unexpected status %d", b.ID, resp.StatusCode)
	}
	var results []Result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("backend %s: decode response: %w", b.ID, err)
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	for i := range results {
		if results[i].Source == "" {
			results[i].Source = b.ID
		}
	}
	return results, nil
}
