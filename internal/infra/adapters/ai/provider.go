package ai

import (
	"context"
	"errors"
	"strings"
)

// Provider is a raw text-completion backend. Providers may fail; the
// Analyzer wrapper is what turns failures into degraded results.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Failover tries each provider in order and returns the first success.
type Failover struct {
	providers []Provider
}

var _ Provider = (*Failover)(nil)

func NewFailover(providers ...Provider) *Failover {
	return &Failover{providers: providers}
}

func (f *Failover) Name() string {
	names := make([]string, 0, len(f.providers))
	for _, p := range f.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, "+")
}

func (f *Failover) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, p := range f.providers {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		out, err := p.Complete(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no providers configured")
	}
	return "", lastErr
}

// Limited bounds concurrent provider calls with a semaphore.
type limited struct {
	inner Provider
	sem   chan struct{}
}

var _ Provider = (*limited)(nil)

func NewLimited(inner Provider, maxConcurrent int) Provider {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limited{inner: inner, sem: make(chan struct{}, maxConcurrent)}
}

func (l *limited) Name() string { return l.inner.Name() }

func (l *limited) Complete(ctx context.Context, prompt string) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Complete(ctx, prompt)
}
