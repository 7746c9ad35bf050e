package handlers

import (
	"bytes"
	"encoding/json"

	"github.com/handsomefox/media-tracker/internal/catalog"
	"github.com/handsomefox/media-tracker/internal/media"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// addRequest takes the upstream id as externalId, or under the legacy names
// animeId and tmdbId.
type addRequest struct {
	ExternalID *int64  `json:"externalId"`
	AnimeID    *int64  `json:"animeId"`
	TMDBID     *int64  `json:"tmdbId"`
	MediaType  string  `json:"mediaType"`
	Status     *string `json:"status"`
}

func (req *addRequest) externalID() int64 {
	for _, v := range []*int64{req.ExternalID, req.AnimeID, req.TMDBID} {
		if v != nil {
			return *v
		}
	}
	return 0
}

// optionalInt tells an absent field (Set false) from an explicit null.
type optionalInt struct {
	Set   bool
	Value *int
}

func (o *optionalInt) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type progressBody struct {
	CurrentEpisode *int `json:"currentEpisode"`
	TotalEpisodes  *int `json:"totalEpisodes"`
}

type updateRequest struct {
	Status   *string       `json:"status"`
	Progress *progressBody `json:"progress"`
	Rating   optionalInt   `json:"rating"`
	Notes    *string       `json:"notes"`
}

type stepRequest struct {
	Delta *int `json:"delta"`
}

type bulkStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

type deleteItemResponse struct {
	Message     string     `json:"message"`
	DeletedItem media.Item `json:"deletedItem"`
}

type deleteAllResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

type bulkStatusResponse struct {
	Message       string `json:"message"`
	ModifiedCount int64  `json:"modifiedCount"`
}

type feedResponse[T any] struct {
	Results []T  `json:"results"`
	Success bool `json:"success"`
}

type recommendationsResponse = feedResponse[catalog.Recommendation]

type animeFeedResponse = feedResponse[catalog.Result]
