package adapter

import (
	"context"

	"channel-insight/internal/domain/model"
)

// VideoSource is the port for the external video platform.
type VideoSource interface {
	// List returns the channel's videos in upload order (cheap call).
	// Returns domain.ErrChannelNotFound when the channel does not exist
	// or has no videos.
	List(ctx context.Context, channelID string) ([]model.Video, error)

	// FetchDetail augments one video with comments and caption text (heavy
	// call). Failure is per-video and must not abort the batch.
	FetchDetail(ctx context.Context, video model.Video) (model.VideoDetail, error)
}
