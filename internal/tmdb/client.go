// Package tmdb wraps the TMDB API for searching and fetching movie/TV details.
package tmdb

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

	"github.com/handsomefox/media-tracker/internal/media"
)

const (
	DefaultBaseURL = "https://api.themoviedb.org/3"
	provider       = "tmdb"
)

type Client struct {
	baseURL   string
	apiKey    string
	readToken string
	http      *http.Client
}

type Options struct {
	BaseURL   string
	APIKey    string
	ReadToken string
	Timeout   time.Duration
}

type SearchResult struct {
	ID          int64
	MediaType   string
	Title       string
	Year        string
	ReleaseDate string
	PosterPath  string
	Overview    string
	VoteAverage float64
	VoteCount   int
	Popularity  float64
	GenreIDs    []int
}

type SearchPage struct {
	Results      []SearchResult
	Page         int
	TotalPages   int
	TotalResults int
}

type Detail struct {
	TMDBID           int64
	MediaType        string
	Title            string
	Year             string
	ReleaseDate      string
	Genres           []string
	Overview         string
	PosterPath       string
	VoteAverage      float64
	VoteCount        int
	NumberOfEpisodes *int
	Runtime          int
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type searchResponse struct {
	Page         int `json:"page"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
	Results      []struct {
		ID           int64   `json:"id"`
		MediaType    string  `json:"media_type"`
		Title        string  `json:"title"`
		Name         string  `json:"name"`
		ReleaseDate  string  `json:"release_date"`
		FirstAirDate string  `json:"first_air_date"`
		PosterPath   string  `json:"poster_path"`
		Overview     string  `json:"overview"`
		VoteAverage  float64 `json:"vote_average"`
		VoteCount    int     `json:"vote_count"`
		Popularity   float64 `json:"popularity"`
		GenreIDs     []int   `json:"genre_ids"`
	} `json:"results"`
}

type detailResponse struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
	PosterPath       string  `json:"poster_path"`
	Overview         string  `json:"overview"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Runtime          int     `json:"runtime"`
	NumberOfEpisodes *int    `json:"number_of_episodes"`
	Genres           []Genre `json:"genres"`
}

func New(opts Options) *Client {
	apiKey := strings.TrimSpace(opts.APIKey)
	readToken := strings.TrimSpace(opts.ReadToken)
	if readToken == "" && looksLikeJWT(apiKey) {
		readToken = apiKey
		apiKey = ""
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		readToken: readToken,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// SearchPage runs search/multi and keeps only movie and tv results.
func (c *Client) SearchPage(ctx context.Context, query string, page int) (SearchPage, error) {
	if strings.TrimSpace(query) == "" {
		return SearchPage{}, nil
	}
	if page < 1 {
		page = 1
	}
	values := c.values()
	values.Set("query", query)
	values.Set("include_adult", "false")
	values.Set("page", strconv.Itoa(page))

	var payload searchResponse
	if err := c.get(ctx, "search", "/search/multi?"+values.Encode(), &payload); err != nil {
		return SearchPage{}, err
	}

	out := make([]SearchResult, 0, len(payload.Results))
	for i := range payload.Results {
		r := payload.Results[i]
		if r.MediaType != "movie" && r.MediaType != "tv" {
			continue
		}
		res := SearchResult{
			ID:          r.ID,
			MediaType:   r.MediaType,
			PosterPath:  r.PosterPath,
			Overview:    r.Overview,
			VoteAverage: r.VoteAverage,
			VoteCount:   r.VoteCount,
			Popularity:  r.Popularity,
			GenreIDs:    r.GenreIDs,
		}
		if r.MediaType == "movie" {
			res.Title = r.Title
			res.ReleaseDate = r.ReleaseDate
		} else {
			res.Title = r.Name
			res.ReleaseDate = r.FirstAirDate
		}
		res.Year = yearFromDate(res.ReleaseDate)
		out = append(out, res)
	}
	return SearchPage{
		Results:      out,
		Page:         max(payload.Page, 1),
		TotalPages:   payload.TotalPages,
		TotalResults: payload.TotalResults,
	}, nil
}

func (c *Client) FetchDetails(ctx context.Context, id int64, mediaType string) (*Detail, error) {
	if mediaType != "movie" && mediaType != "tv" {
		return nil, media.Wrap(media.ErrValidation, "invalid media type", nil)
	}
	if id <= 0 {
		return nil, media.Wrap(media.ErrValidation, "invalid tmdb id", nil)
	}

	var payload detailResponse
	path := fmt.Sprintf("/%s/%d?%s", mediaType, id, c.values().Encode())
	if err := c.get(ctx, "details", path, &payload); err != nil {
		return nil, err
	}

	detail := &Detail{
		TMDBID:      payload.ID,
		MediaType:   mediaType,
		PosterPath:  payload.PosterPath,
		Overview:    payload.Overview,
		VoteAverage: payload.VoteAverage,
		VoteCount:   payload.VoteCount,
		Runtime:     payload.Runtime,
	}
	if mediaType == "tv" {
		detail.Title = payload.Name
		detail.ReleaseDate = payload.FirstAirDate
		detail.NumberOfEpisodes = payload.NumberOfEpisodes
	} else {
		detail.Title = payload.Title
		detail.ReleaseDate = payload.ReleaseDate
	}
	detail.Year = yearFromDate(detail.ReleaseDate)
	for _, g := range payload.Genres {
		if strings.TrimSpace(g.Name) == "" {
			continue
		}
		detail.Genres = append(detail.Genres, g.Name)
	}
	return detail, nil
}

func (c *Client) FetchGenres(ctx context.Context, mediaType string) ([]Genre, error) {
	if mediaType != "movie" && mediaType != "tv" {
		return nil, media.Wrap(media.ErrValidation, "invalid media type", nil)
	}
	var payload struct {
		Genres []Genre `json:"genres"`
	}
	path := fmt.Sprintf("/genre/%s/list?%s", mediaType, c.values().Encode())
	if err := c.get(ctx, "genres", path, &payload); err != nil {
		return nil, err
	}
	return payload.Genres, nil
}

func (c *Client) values() url.Values {
	values := url.Values{}
	if c.apiKey != "" {
		values.Set("api_key", c.apiKey)
	}
	return values
}

func (c *Client) get(ctx context.Context, op, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return media.Upstream(provider, op, err)
	}
	c.applyAuth(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return media.Upstream(provider, op, err)
	}
	if resp.StatusCode == http.StatusNotFound && op == "details" {
		notFound := media.Wrap(media.ErrNotFound, "tmdb title not found", nil)
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(notFound, cerr)
		}
		return notFound
	}
	if resp.StatusCode >= 400 {
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

func (c *Client) applyAuth(req *http.Request) {
	if c.readToken == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.readToken)
}

func looksLikeJWT(token string) bool {
	parts := strings.Split(strings.TrimSpace(token), ".")
	return len(parts) == 3 && len(token) > 80
}

func yearFromDate(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

func ParseYear(year string) *int {
	year = strings.TrimSpace(year)
	if year == "" {
		return nil
	}
	val, err := strconv.Atoi(year)
	if err != nil {
		return nil
	}
	return &val
}
