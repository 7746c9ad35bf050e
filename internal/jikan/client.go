// Package jikan wraps the Jikan v4 API (MyAnimeList data) for anime search,
// details and the discovery feeds.
package jikan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/handsomefox/media-tracker/internal/media"
)

const (
	DefaultBaseURL = "https://api.jikan.moe/v4"
	provider       = "jikan"

	// SearchPageSize is the page size requested from /anime.
	SearchPageSize = 15
)

type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	// Jikan throttles at roughly three requests per second per client.
	RequestsPerSecond float64
	Burst             int
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 3
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 3
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (c *Client) Search(ctx context.Context, query string, page int) (SearchPage, error) {
	if page < 1 {
		page = 1
	}
	values := url.Values{}
	values.Set("q", query)
	values.Set("page", strconv.Itoa(page))
	values.Set("limit", strconv.Itoa(SearchPageSize))

	var payload listResponse
	if err := c.get(ctx, "search", "/anime?"+values.Encode(), &payload); err != nil {
		return SearchPage{}, err
	}
	return SearchPage{
		Results:     payload.Data,
		Page:        max(payload.Pagination.CurrentPage, page),
		LastPage:    payload.Pagination.LastVisiblePage,
		HasNextPage: payload.Pagination.HasNextPage,
		Total:       payload.Pagination.Items.Total,
	}, nil
}

func (c *Client) Anime(ctx context.Context, id int64) (Anime, error) {
	if id <= 0 {
		return Anime{}, media.Wrap(media.ErrValidation, "invalid anime id", nil)
	}
	var payload struct {
		Data Anime `json:"data"`
	}
	if err := c.get(ctx, "details", fmt.Sprintf("/anime/%d", id), &payload); err != nil {
		return Anime{}, err
	}
	return payload.Data, nil
}

func (c *Client) Recommendations(ctx context.Context) ([]Recommendation, error) {
	var payload struct {
		Data []Recommendation `json:"data"`
	}
	if err := c.get(ctx, "recommendations", "/recommendations/anime", &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (c *Client) Upcoming(ctx context.Context) ([]Anime, error) {
	var payload listResponse
	if err := c.get(ctx, "upcoming", "/seasons/upcoming", &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (c *Client) Top(ctx context.Context, limit int) ([]Anime, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	path := "/top/anime"
	if len(values) > 0 {
		path += "?" + values.Encode()
	}
	var payload listResponse
	if err := c.get(ctx, "top", path, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (c *Client) get(ctx context.Context, op, path string, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return media.Upstream(provider, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return media.Upstream(provider, op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return media.Upstream(provider, op, err)
	}
	if resp.StatusCode == http.StatusNotFound && op == "details" {
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(media.Wrap(media.ErrNotFound, "anime not found", nil), cerr)
		}
		return media.Wrap(media.ErrNotFound, "anime not found", nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := media.Upstream(provider, op, fmt.Errorf("unexpected status: %s", resp.Status))
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(statusErr, cerr)
		}
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		decodeErr := media.Upstream(provider, op, fmt.Errorf("decode response: %w", err))
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(decodeErr, cerr)
		}
		return decodeErr
	}
	return resp.Body.Close()
}
