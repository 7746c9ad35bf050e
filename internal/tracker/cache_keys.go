package tracker

// Cache key prefixes for upstream responses. Keys never include a user id;
// membership is merged after the cache.
const (
	// PrefixAnimeSearch keys Jikan search pages (anime-search:{query}:{page})
	PrefixAnimeSearch = "anime-search"

	// PrefixAnimeDetail keys Jikan anime details (anime-detail:{malID})
	PrefixAnimeDetail = "anime-detail"

	// PrefixScreenSearch keys TMDB multi-search pages (media-search:{query}:{page})
	PrefixScreenSearch = "media-search"

	// PrefixScreenDetail keys TMDB details (media-detail:{kind}:{id})
	PrefixScreenDetail = "media-detail"

	// PrefixScreenGenres keys the merged TMDB movie and tv genre table
	PrefixScreenGenres = "media-genres"

	PrefixRecommendations = "anime-recommendations"
	PrefixUpcoming        = "anime-upcoming"
	PrefixTop             = "anime-top"
)
