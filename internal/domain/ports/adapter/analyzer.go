package adapter

import (
	"context"

	"channel-insight/internal/domain/model"
)

// Analyzer is the port for the sentiment/topic analysis of one video.
//
// Analyze must not fail: when the underlying provider errors out the adapter
// returns a degraded-but-structurally-valid result (model.Degraded) and a nil
// error. The error return exists only for context cancellation.
type Analyzer interface {
	Analyze(ctx context.Context, video model.VideoDetail) (model.VideoAnalysis, error)
}
