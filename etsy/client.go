package etsy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"

	"golang.org/x/time/rate"

	"etsy-edge/httpclient"
	"etsy-edge/models"
)

var (
	ErrNotFound    = errors.New("listing not found")
	ErrRateLimited = errors.New("etsy api rate limited")
)

// Client is a thin wrapper over the Etsy Open API v3 application surface.
// It knows nothing about scoring or caching; callers layer those on top.
//
// Outbound calls are paced with a client-side limiter so a burst of users
// cannot push the shared API key over Etsy's own quota.
type Client struct {
	base    *httpclient.BaseClient
	apiKey  string
	limiter *rate.Limiter
}

// New builds a Client against baseURL. The API key is read from the
// ETSY_API_KEY environment variable. perMinute <= 0 disables pacing.
func New(baseURL string, perMinute int) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if perMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute/10+1)
	}
	return &Client{
		base:    httpclient.NewBaseClient(baseURL),
		apiKey:  os.Getenv("ETSY_API_KEY"),
		limiter: limiter,
	}
}

// GetListing fetches a single listing by ID.
func (c *Client) GetListing(ctx context.Context, listingID string) (*models.EtsyListing, error) {
	relPath := path.Join("/listings", listingID)
	q := url.Values{}
	q.Set("includes", "Shop")

	var out models.EtsyListing
	if err := c.getJSON(ctx, relPath, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchListings runs an active-listing keyword search.
func (c *Client) SearchListings(ctx context.Context, keywords string, limit int) (*models.EtsySearchResult, error) {
	if limit <= 0 {
		limit = 25
	}
	q := url.Values{}
	q.Set("keywords", keywords)
	q.Set("limit", strconv.Itoa(limit))

	var out models.EtsySearchResult
	if err := c.getJSON(ctx, "/listings/active", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, relPath string, q url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := c.base.NewRequest(ctx, http.MethodGet, relPath, q, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(out)
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("etsy %s: status=%d body=%s", relPath, resp.StatusCode, string(body))
	}
}
