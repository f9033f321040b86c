package ai

import (
	"context"
	"time"
)

var _ Provider = (*NoopProvider)(nil)

// NoopProvider implements Provider for local/dev testing. It returns a
// canned analysis instead of calling a real model.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider { return &NoopProvider{} }

func (p *NoopProvider) Name() string { return "noop" }

func (p *NoopProvider) Complete(ctx context.Context, prompt string) (string, error) {
	// Simulate slight processing time and respect ctx.
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return `{"summary":"Viewers respond positively to the content.","sentimentScore":0.6,"topTopics":["content quality","pacing"],"suggestions":["post more often"]}`, nil
}
