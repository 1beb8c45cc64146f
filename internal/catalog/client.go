package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/planetlabs/go-stac"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/log"
)

// Client talks to a STAC search endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	retryWait  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithRetries sets how many attempts each search request gets.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithRetryWait sets the pause between attempts.
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) {
		c.retryWait = d
	}
}

// WithOAuth switches the transport to OAuth2 client credentials, for
// catalogs that require authenticated access.
func WithOAuth(clientID, clientSecret, tokenURL string) Option {
	return func(c *Client) {
		config := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		}
		timeout := c.httpClient.Timeout
		c.httpClient = config.Client(context.Background())
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a catalog client for the given STAC API root.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		retries:   3,
		retryWait: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// searchBody is the POST /search payload.
type searchBody struct {
	Collections []string  `json:"collections"`
	BBox        []float64 `json:"bbox"`
	DateTime    string    `json:"datetime"`
	Limit       int       `json:"limit,omitempty"`
}

// itemCollection is the GeoJSON FeatureCollection a search returns.
type itemCollection struct {
	Type     string       `json:"type"`
	Features []*stac.Item `json:"features"`
}

// search issues a single POST /search request with retries and converts the
// returned items to scenes, preserving provider order.
func (c *Client) search(ctx context.Context, body searchBody) ([]*Scene, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	var resp *http.Response
	for attempt := 1; attempt <= c.retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/geo+json")

		resp, err = c.httpClient.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			break
		}

		if err == nil {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			err = fmt.Errorf("catalog returned status %d: %s", resp.StatusCode, string(respBody))
			resp = nil
		}
		log.Warnw("catalog search attempt failed",
			"attempt", attempt, "retries", c.retries, "error", err.Error())
		if attempt == c.retries {
			return nil, fmt.Errorf("catalog search failed after %d attempts: %w", c.retries, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryWait):
		}
	}
	defer resp.Body.Close()

	var collection itemCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	scenes := make([]*Scene, 0, len(collection.Features))
	for _, item := range collection.Features {
		scene, err := SceneFromItem(item)
		if err != nil {
			log.Warnw("skipping malformed catalog item", "error", err.Error())
			continue
		}
		scenes = append(scenes, scene)
	}
	return scenes, nil
}
