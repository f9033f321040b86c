package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"channel-insight/internal/domain"
	"channel-insight/internal/domain/model"
	"channel-insight/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.VideoSource = (*DataAPISource)(nil)

// DataAPISource implements adapter.VideoSource against the YouTube Data API v3.
type DataAPISource struct {
	apiKey      string
	base        string // e.g., https://www.googleapis.com/youtube/v3
	maxVideos   int
	maxComments int
	client      *http.Client
}

func NewDataAPISource(apiKey string, maxVideos, maxComments int) (*DataAPISource, error) {
	if apiKey == "" {
		return nil, errors.New("youtube api key empty")
	}
	if maxVideos <= 0 {
		maxVideos = 50
	}
	if maxComments <= 0 {
		maxComments = 100
	}
	return &DataAPISource{
		apiKey:      apiKey,
		base:        "https://www.googleapis.com/youtube/v3",
		maxVideos:   maxVideos,
		maxComments: maxComments,
		client:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string    `json:"title"`
			Description string    `json:"description"`
			PublishedAt time.Time `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

// List returns the channel's most recent uploads, newest first.
func (s *DataAPISource) List(ctx context.Context, channelID string) ([]model.Video, error) {
	q := url.Values{}
	q.Set("key", s.apiKey)
	q.Set("channelId", channelID)
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("order", "date")
	q.Set("maxResults", strconv.Itoa(s.maxVideos))

	var payload searchResponse
	if err := s.getJSON(ctx, s.base+"/search?"+q.Encode(), &payload); err != nil {
		var he *httpError
		if errors.As(err, &he) && (he.status == http.StatusNotFound || he.status == http.StatusBadRequest) {
			return nil, domain.ErrChannelNotFound
		}
		return nil, err
	}
	if len(payload.Items) == 0 {
		return nil, domain.ErrChannelNotFound
	}

	videos := make([]model.Video, 0, len(payload.Items))
	for _, it := range payload.Items {
		if it.ID.VideoID == "" {
			continue
		}
		videos = append(videos, model.Video{
			ID:          it.ID.VideoID,
			Title:       it.Snippet.Title,
			Description: it.Snippet.Description,
			PublishedAt: it.Snippet.PublishedAt,
		})
	}
	if len(videos) == 0 {
		return nil, domain.ErrChannelNotFound
	}
	return videos, nil
}

type commentThreadsResponse struct {
	Items []struct {
		Snippet struct {
			TopLevelComment struct {
				Snippet struct {
					TextDisplay string `json:"textDisplay"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}

// FetchDetail pulls top-level comments and a best-effort caption transcript.
// A comments failure fails the video; a captions failure only leaves the
// transcript empty (many videos have no captions at all).
func (s *DataAPISource) FetchDetail(ctx context.Context, video model.Video) (model.VideoDetail, error) {
	q := url.Values{}
	q.Set("key", s.apiKey)
	q.Set("videoId", video.ID)
	q.Set("part", "snippet")
	q.Set("order", "relevance")
	q.Set("textFormat", "plainText")
	q.Set("maxResults", strconv.Itoa(s.maxComments))

	var payload commentThreadsResponse
	err := s.getJSON(ctx, s.base+"/commentThreads?"+q.Encode(), &payload)
	var comments []string
	switch {
	case err == nil:
		for _, it := range payload.Items {
			if t := it.Snippet.TopLevelComment.Snippet.TextDisplay; t != "" {
				comments = append(comments, t)
			}
		}
	case isCommentsDisabled(err):
		// Comments turned off is not a failure; analyze captions only.
	default:
		return model.VideoDetail{}, fmt.Errorf("fetch comments for %s: %w", video.ID, err)
	}

	captions, err := fetchCaptions(ctx, s.client, video.ID)
	if err != nil {
		captions = ""
	}

	return model.VideoDetail{
		Video:       video,
		Comments:    comments,
		CaptionText: captions,
	}, nil
}

func isCommentsDisabled(err error) bool {
	var he *httpError
	return errors.As(err, &he) && he.status == http.StatusForbidden
}

type httpError struct {
	status int
	url    string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("youtube http %d for %s", e.status, e.url)
}

func (s *DataAPISource) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &httpError{status: resp.StatusCode, url: req.URL.Path}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
