// Package tracker implements the list and catalog operations exposed over
// HTTP. It owns no state of its own: entries live in the store, upstream
// pages in the response cache, and status rules in reconcile.
package tracker

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/handsomefox/media-tracker/internal/catalog"
	"github.com/handsomefox/media-tracker/internal/jikan"
	"github.com/handsomefox/media-tracker/internal/logger"
	"github.com/handsomefox/media-tracker/internal/media"
	"github.com/handsomefox/media-tracker/internal/respcache"
	"github.com/handsomefox/media-tracker/internal/store"
	"github.com/handsomefox/media-tracker/internal/tmdb"
)

const (
	SuggestionLimit  = 5
	MinSuggestLength = 2
	FeedLimit        = 10
)

type Store interface {
	Add(ctx context.Context, it *media.Item) error
	Get(ctx context.Context, userID, id string) (media.Item, error)
	FindByExternal(ctx context.Context, userID string, kind media.Kind, externalID int64) (media.Item, bool, error)
	FindMany(ctx context.Context, userID string, query store.ListQuery) (store.ListPage, error)
	Update(ctx context.Context, userID, id string, it *media.Item) error
	DeleteByID(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string, kinds []media.Kind) (int64, error)
	BulkUpdateStatus(ctx context.Context, userID string, kinds []media.Kind, ids []string, status media.Status, now time.Time) (int64, error)
	Stats(ctx context.Context, userID string, kinds []media.Kind) (media.Stats, error)
	Membership(ctx context.Context, userID string, refs []media.Ref) (map[media.Ref]media.Status, error)
}

// AnimeCatalog is the subset of the Jikan client the service calls.
type AnimeCatalog interface {
	Search(ctx context.Context, query string, page int) (jikan.SearchPage, error)
	Anime(ctx context.Context, id int64) (jikan.Anime, error)
	Recommendations(ctx context.Context) ([]jikan.Recommendation, error)
	Upcoming(ctx context.Context) ([]jikan.Anime, error)
	Top(ctx context.Context, limit int) ([]jikan.Anime, error)
}

// ScreenCatalog is the subset of the TMDB client the service calls.
type ScreenCatalog interface {
	SearchPage(ctx context.Context, query string, page int) (tmdb.SearchPage, error)
	FetchDetails(ctx context.Context, id int64, mediaType string) (*tmdb.Detail, error)
	FetchGenres(ctx context.Context, mediaType string) ([]tmdb.Genre, error)
}

type Options struct {
	Store     Store
	Anime     AnimeCatalog
	Screen    ScreenCatalog
	Cache     *respcache.Cache
	ImageBase string
	Logger    *slog.Logger
	Now       func() time.Time
	NewID     func() string
}

type Service struct {
	store     Store
	anime     AnimeCatalog
	screen    ScreenCatalog
	cache     *respcache.Cache
	imageBase string
	log       *slog.Logger
	now       func() time.Time
	newID     func() string
}

func New(opts Options) *Service {
	s := &Service{
		store:     opts.Store,
		anime:     opts.Anime,
		screen:    opts.Screen,
		cache:     opts.Cache,
		imageBase: opts.ImageBase,
		log:       opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if s.cache == nil {
		s.cache = respcache.New(respcache.DefaultTTL)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

type SearchResponse struct {
	Results      []catalog.Result `json:"results"`
	Page         int              `json:"page"`
	TotalResults int              `json:"totalResults"`
	TotalPages   int              `json:"totalPages"`
}

type SuggestResponse struct {
	Results []catalog.Result `json:"results"`
}

// resultPage is the user-neutral form that goes into the cache.
type resultPage struct {
	Results      []catalog.Result
	Page         int
	TotalResults int
	TotalPages   int
}

// Search queries the scope's upstream catalog and flags the titles userID
// already tracks. An empty userID searches anonymously.
func (s *Service) Search(ctx context.Context, scope Scope, userID, query string, page int) (SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResponse{}, media.Wrap(media.ErrValidation, "search query is required", nil)
	}
	page = max(page, 1)

	rp, err := s.searchPage(ctx, scope, query, page)
	if err != nil {
		return SearchResponse{}, err
	}

	results := rp.Results
	if userID != "" && len(results) > 0 {
		membership, err := s.store.Membership(ctx, userID, catalog.Refs(results))
		if err != nil {
			return SearchResponse{}, err
		}
		results = catalog.Merge(results, membership)
	} else {
		results = catalog.Merge(results, nil)
	}

	return SearchResponse{
		Results:      results,
		Page:         rp.Page,
		TotalResults: rp.TotalResults,
		TotalPages:   rp.TotalPages,
	}, nil
}

// Suggest returns the best few title matches for an autocomplete box.
func (s *Service) Suggest(ctx context.Context, scope Scope, query string) (SuggestResponse, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSuggestLength {
		return SuggestResponse{}, media.Wrap(media.ErrValidation, "query must be at least 2 characters", nil)
	}
	rp, err := s.searchPage(ctx, scope, query, 1)
	if err != nil {
		return SuggestResponse{}, err
	}
	return SuggestResponse{Results: catalog.RankSuggestions(query, rp.Results, SuggestionLimit)}, nil
}

func (s *Service) searchPage(ctx context.Context, scope Scope, query string, page int) (resultPage, error) {
	switch scope {
	case ScopeAnime:
		key := respcache.Key(PrefixAnimeSearch, query, strconv.Itoa(page))
		return respcache.Fetch(ctx, s.cache, key, func(ctx context.Context) (resultPage, error) {
			res, err := s.anime.Search(ctx, query, page)
			if err != nil {
				return resultPage{}, err
			}
			return resultPage{
				Results:      catalog.FromAnimeList(res.Results),
				Page:         max(res.Page, page),
				TotalResults: res.Total,
				TotalPages:   res.LastPage,
			}, nil
		})
	case ScopeMedia:
		genres, err := s.screenGenres(ctx)
		if err != nil {
			return resultPage{}, err
		}
		key := respcache.Key(PrefixScreenSearch, query, strconv.Itoa(page))
		return respcache.Fetch(ctx, s.cache, key, func(ctx context.Context) (resultPage, error) {
			res, err := s.screen.SearchPage(ctx, query, page)
			if err != nil {
				return resultPage{}, err
			}
			return resultPage{
				Results:      catalog.FromTMDBList(res.Results, s.imageBase, genres),
				Page:         max(res.Page, page),
				TotalResults: res.TotalResults,
				TotalPages:   res.TotalPages,
			}, nil
		})
	}
	return resultPage{}, media.Wrap(media.ErrValidation, "unknown scope "+string(scope), nil)
}

// screenGenres resolves TMDB genre ids for both movies and tv.
func (s *Service) screenGenres(ctx context.Context) (map[int]string, error) {
	return respcache.Fetch(ctx, s.cache, respcache.Key(PrefixScreenGenres), func(ctx context.Context) (map[int]string, error) {
		out := make(map[int]string)
		for _, mediaType := range []string{"movie", "tv"} {
			genres, err := s.screen.FetchGenres(ctx, mediaType)
			if err != nil {
				return nil, err
			}
			for _, g := range genres {
				out[g.ID] = g.Name
			}
		}
		return out, nil
	})
}

// Recommendations returns the latest community recommendations, one entry
// per title.
func (s *Service) Recommendations(ctx context.Context) ([]catalog.Recommendation, error) {
	return respcache.Fetch(ctx, s.cache, respcache.Key(PrefixRecommendations), func(ctx context.Context) ([]catalog.Recommendation, error) {
		recs, err := s.anime.Recommendations(ctx)
		if err != nil {
			return nil, err
		}
		return catalog.FromRecommendations(recs, 0), nil
	})
}

func (s *Service) Upcoming(ctx context.Context) ([]catalog.Result, error) {
	return respcache.Fetch(ctx, s.cache, respcache.Key(PrefixUpcoming), func(ctx context.Context) ([]catalog.Result, error) {
		items, err := s.anime.Upcoming(ctx)
		if err != nil {
			return nil, err
		}
		return catalog.Dedupe(catalog.FromAnimeList(items), FeedLimit), nil
	})
}

func (s *Service) Top(ctx context.Context) ([]catalog.Result, error) {
	return respcache.Fetch(ctx, s.cache, respcache.Key(PrefixTop), func(ctx context.Context) ([]catalog.Result, error) {
		items, err := s.anime.Top(ctx, FeedLimit)
		if err != nil {
			return nil, err
		}
		return catalog.Dedupe(catalog.FromAnimeList(items), FeedLimit), nil
	})
}

// detail is the upstream metadata copied onto a new list entry.
type detail struct {
	Title         string
	Image         string
	TotalEpisodes *int
}

func (s *Service) fetchDetail(ctx context.Context, kind media.Kind, externalID int64) (detail, error) {
	if kind == media.KindAnime {
		key := respcache.Key(PrefixAnimeDetail, strconv.FormatInt(externalID, 10))
		return respcache.Fetch(ctx, s.cache, key, func(ctx context.Context) (detail, error) {
			a, err := s.anime.Anime(ctx, externalID)
			if err != nil {
				return detail{}, err
			}
			return detail{Title: a.DisplayTitle(), Image: a.ImageURL(), TotalEpisodes: positive(a.Episodes)}, nil
		})
	}

	key := respcache.Key(PrefixScreenDetail, string(kind), strconv.FormatInt(externalID, 10))
	return respcache.Fetch(ctx, s.cache, key, func(ctx context.Context) (detail, error) {
		d, err := s.screen.FetchDetails(ctx, externalID, string(kind))
		if err != nil {
			return detail{}, err
		}
		out := detail{Title: d.Title}
		if d.PosterPath != "" {
			out.Image = strings.TrimRight(s.imageBase, "/") + d.PosterPath
		}
		if kind == media.KindTV {
			out.TotalEpisodes = positive(d.NumberOfEpisodes)
		}
		return out, nil
	})
}

func positive(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	n := *v
	return &n
}

func (s *Service) warn(ctx context.Context, msg string, err error, attrs ...any) {
	s.log.WarnContext(ctx, msg, append(attrs, logger.Error(err))...)
}
