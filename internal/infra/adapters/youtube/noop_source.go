package youtube

import (
	"context"
	"fmt"
	"time"

	"channel-insight/internal/domain"
	"channel-insight/internal/domain/model"
	"channel-insight/internal/domain/ports/adapter"
)

var _ adapter.VideoSource = (*NoopSource)(nil)

// NoopSource implements adapter.VideoSource for local/dev testing.
// It fabricates a small channel instead of calling the Data API.
type NoopSource struct {
	videos int
}

func NewNoopSource(videos int) *NoopSource {
	if videos <= 0 {
		videos = 3
	}
	return &NoopSource{videos: videos}
}

func (s *NoopSource) List(ctx context.Context, channelID string) ([]model.Video, error) {
	if channelID == "unknown" {
		return nil, domain.ErrChannelNotFound
	}
	out := make([]model.Video, 0, s.videos)
	for i := 1; i <= s.videos; i++ {
		out = append(out, model.Video{
			ID:          fmt.Sprintf("%s-video-%d", channelID, i),
			Title:       fmt.Sprintf("Sample video %d", i),
			PublishedAt: time.Now().Add(-time.Duration(i) * 24 * time.Hour),
		})
	}
	return out, nil
}

func (s *NoopSource) FetchDetail(ctx context.Context, video model.Video) (model.VideoDetail, error) {
	// Simulate the heavy call and respect ctx.
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return model.VideoDetail{}, ctx.Err()
	}
	return model.VideoDetail{
		Video:       video,
		Comments:    []string{"Great video!", "Very helpful, thanks.", "Could be longer."},
		CaptionText: "This is a sample transcript for " + video.Title + ".",
	}, nil
}
