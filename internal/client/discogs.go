package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/quizbeat/api/internal/config"
)

// catalogGate spaces every outbound catalog request at least one second
// from the previous one, across every client in the process. The
// catalog enforces a strict 1 rps budget per token.
var catalogGate = rate.NewLimiter(rate.Every(time.Second), 1)

// CatalogError is a non-2xx answer from the catalog. Calls are not
// retried.
type CatalogError struct {
	Status int
	Body   string
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog error (status %d): %s", e.Status, e.Body)
}

// DiscogsClient talks to the discography catalog: search, master and
// release lookups.
type DiscogsClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	gate       *rate.Limiter
}

// SearchOptions narrow a catalog search.
type SearchOptions struct {
	Type      string
	PerPage   int
	Sort      string
	SortOrder string
}

// SearchResult is one candidate entry from a catalog search. Title
// carries the "Artist - Title" form.
type SearchResult struct {
	ID     int      `json:"id"`
	Title  string   `json:"title"`
	Year   string   `json:"year"`
	Format []string `json:"format"`
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

// Master is the abstract work a search candidate points at.
type Master struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	Year          int    `json:"year"`
	MainReleaseID int    `json:"main_release"`
	Tracklist     []struct {
		Position string `json:"position"`
		Title    string `json:"title"`
		Duration string `json:"duration"`
	} `json:"tracklist"`
}

// Release is one specific pressing of a master.
type Release struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Released string `json:"released"`
	Formats  []struct {
		Name         string   `json:"name"`
		Descriptions []string `json:"descriptions"`
	} `json:"formats"`
}

// NewDiscogsClient creates a catalog client sharing the process-wide
// rate gate.
func NewDiscogsClient(cfg *config.CatalogConfig) *DiscogsClient {
	return &DiscogsClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		gate:    catalogGate,
	}
}

// Search queries the catalog database.
func (c *DiscogsClient) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	v := url.Values{}
	v.Set("q", query)
	if opts.Type != "" {
		v.Set("type", opts.Type)
	}
	if opts.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.Sort != "" {
		v.Set("sort", opts.Sort)
	}
	if opts.SortOrder != "" {
		v.Set("sort_order", opts.SortOrder)
	}

	var result searchResponse
	if err := c.get(ctx, "/database/search?"+v.Encode(), &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// GetMaster fetches a master by id.
func (c *DiscogsClient) GetMaster(ctx context.Context, id int) (*Master, error) {
	var result Master
	if err := c.get(ctx, fmt.Sprintf("/masters/%d", id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRelease fetches a release by id.
func (c *DiscogsClient) GetRelease(ctx context.Context, id int) (*Release, error) {
	var result Release
	if err := c.get(ctx, fmt.Sprintf("/releases/%d", id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MasterURL returns the citation URL for a master.
func (c *DiscogsClient) MasterURL(id int) string {
	return fmt.Sprintf("https://www.discogs.com/master/%d", id)
}

// get waits on the rate gate, sends a GET request and parses the JSON
// response.
func (c *DiscogsClient) get(ctx context.Context, endpoint string, result interface{}) error {
	if err := c.gate.Wait(ctx); err != nil {
		return fmt.Errorf("rate gate: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Discogs token="+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Catalog] ✗ GET %s — request failed: %v", endpoint, err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[Catalog] ← %d GET %s", resp.StatusCode, endpoint)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &CatalogError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
