package ai

import (
	"context"
	"errors"
	"time"

	"channel-insight/internal/domain/model"
	"channel-insight/internal/domain/ports/adapter"
	"channel-insight/internal/infra/logging"
	"channel-insight/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ adapter.Analyzer = (*analyzer)(nil)

// analyzer adapts a Provider to the Analyzer port: provider failures become
// degraded-but-valid results so a poisoned video never errors past here.
type analyzer struct {
	provider  Provider
	modelName string
	budget    int
	log       *zerolog.Logger
}

func NewAnalyzer(p Provider, modelName string, promptBudget int, log *zerolog.Logger) adapter.Analyzer {
	return &analyzer{provider: p, modelName: modelName, budget: promptBudget, log: log}
}

func (a *analyzer) Analyze(ctx context.Context, video model.VideoDetail) (model.VideoAnalysis, error) {
	prompt := buildPrompt(video, a.modelName, a.budget)

	start := time.Now()
	raw, err := a.provider.Complete(ctx, prompt)
	latency := int(time.Since(start) / time.Millisecond)

	if err != nil {
		// Cancellation is the caller's concern, not a provider failure.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return model.VideoAnalysis{}, err
		}
		metrics.ObserveAnalyzer(a.provider.Name(), latency, false)
		metrics.IncDegraded(a.provider.Name())
		logging.With(ctx, a.log).Warn().Err(err).Msg("analysis degraded after provider error")
		return model.Degraded(err.Error()), nil
	}
	metrics.ObserveAnalyzer(a.provider.Name(), latency, true)

	res, perr := parseAnalysis(raw)
	if perr != nil {
		metrics.IncDegraded(a.provider.Name())
		logging.With(ctx, a.log).Warn().Err(perr).Msg("analysis reply was not valid JSON")
		deg := model.Degraded("unparseable model reply")
		if raw != "" {
			deg.Summary = truncate(raw, 400)
		}
		return deg, nil
	}
	return res, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
