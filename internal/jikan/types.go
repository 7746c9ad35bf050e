package jikan

import "strings"

type SearchPage struct {
	Results     []Anime
	Page        int
	LastPage    int
	HasNextPage bool
	Total       int
}

// Anime mirrors the subset of the Jikan anime resource the app reads.
// Missing upstream fields decode to zero values or nil pointers.
type Anime struct {
	MalID         int64    `json:"mal_id"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"title_english"`
	TitleJapanese string   `json:"title_japanese"`
	Images        Images   `json:"images"`
	Type          string   `json:"type"`
	Source        string   `json:"source"`
	Episodes      *int     `json:"episodes"`
	Status        string   `json:"status"`
	Airing        bool     `json:"airing"`
	Aired         Aired    `json:"aired"`
	Duration      string   `json:"duration"`
	Rating        string   `json:"rating"`
	Score         *float64 `json:"score"`
	Rank          *int     `json:"rank"`
	Popularity    *int     `json:"popularity"`
	Synopsis      string   `json:"synopsis"`
	Season        string   `json:"season"`
	Year          *int     `json:"year"`
	Broadcast     struct {
		String string `json:"string"`
	} `json:"broadcast"`
	Trailer struct {
		URL string `json:"url"`
	} `json:"trailer"`
	Genres       []Named `json:"genres"`
	Studios      []Named `json:"studios"`
	Demographics []Named `json:"demographics"`
}

type Images struct {
	JPG struct {
		ImageURL      string `json:"image_url"`
		LargeImageURL string `json:"large_image_url"`
	} `json:"jpg"`
}

type Aired struct {
	From   string `json:"from"`
	To     string `json:"to"`
	String string `json:"string"`
}

type Named struct {
	MalID int64  `json:"mal_id"`
	Name  string `json:"name"`
}

type Recommendation struct {
	MalID   string  `json:"mal_id"`
	Entry   []Entry `json:"entry"`
	Content string  `json:"content"`
	User    struct {
		Username string `json:"username"`
	} `json:"user"`
}

type Entry struct {
	MalID  int64  `json:"mal_id"`
	Title  string `json:"title"`
	Images Images `json:"images"`
}

type listResponse struct {
	Pagination struct {
		LastVisiblePage int  `json:"last_visible_page"`
		HasNextPage     bool `json:"has_next_page"`
		CurrentPage     int  `json:"current_page"`
		Items           struct {
			Count   int `json:"count"`
			Total   int `json:"total"`
			PerPage int `json:"per_page"`
		} `json:"items"`
	} `json:"pagination"`
	Data []Anime `json:"data"`
}

// DisplayTitle prefers the English title and falls back to the romanized one.
func (a *Anime) DisplayTitle() string {
	if t := strings.TrimSpace(a.TitleEnglish); t != "" {
		return t
	}
	return strings.TrimSpace(a.Title)
}

func (a *Anime) ImageURL() string {
	return a.Images.JPG.ImageURL
}

func Names(items []Named) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if name := strings.TrimSpace(it.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
