package analysis

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/quotelab/stock-consensus/internal/llm"
	"github.com/quotelab/stock-consensus/internal/model"
	"github.com/quotelab/stock-consensus/internal/parser"
)

// Dispatcher issues one prompt to a set of models and returns every model's
// settled answer. The error, when non-nil, is a representative per-model
// failure for callers that need a cause after a fully failed batch; it is
// set even when other models succeeded.
type Dispatcher interface {
	Dispatch(ctx context.Context, system, user string, models []model.ModelConfig) ([]model.ModelAnswer, error)
}

// Orchestrator fans one prompt out to all configured models concurrently.
// Launches are staggered to avoid rate-limit bursts; once launched, requests
// run in parallel and the dispatch returns only after every one has settled.
type Orchestrator struct {
	registry *llm.Registry
	limiter  *rate.Limiter
}

// NewOrchestrator builds an orchestrator. stagger is the pause between
// successive request launches within one batch; zero disables staggering.
func NewOrchestrator(registry *llm.Registry, stagger time.Duration) *Orchestrator {
	limit := rate.Inf
	if stagger > 0 {
		limit = rate.Every(stagger)
	}
	return &Orchestrator{
		registry: registry,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Dispatch queries every model for one prompt. Per-model failures become
// synthetic failed answers; the batch never fails fast. The returned slice
// preserves the config order.
func (o *Orchestrator) Dispatch(ctx context.Context, system, user string, models []model.ModelConfig) ([]model.ModelAnswer, error) {
	answers := make([]model.ModelAnswer, len(models))
	errs := make([]error, len(models))

	var g errgroup.Group
	for i, cfg := range models {
		if err := o.limiter.Wait(ctx); err != nil {
			// Cancelled mid-batch: mark the never-launched models as failed
			// and wait out the in-flight ones.
			for j := i; j < len(models); j++ {
				answers[j] = model.FailedAnswer(models[j], err)
				errs[j] = err
			}
			break
		}
		g.Go(func() error {
			answers[i], errs[i] = o.query(ctx, cfg, system, user)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	var lastErr error
	for _, err := range errs {
		if err != nil {
			lastErr = err
		}
	}
	return answers, lastErr
}

// query runs one model call and folds parsing and trust validation into the
// answer. A gateway failure yields a synthetic failed answer plus the error.
func (o *Orchestrator) query(ctx context.Context, cfg model.ModelConfig, system, user string) (model.ModelAnswer, error) {
	log := zap.L().With(zap.String("model", cfg.Name))

	gw, err := o.registry.ForProvider(cfg.Provider)
	if err != nil {
		log.Error("analysis: no gateway for model", zap.Error(err))
		return model.FailedAnswer(cfg, err), err
	}

	raw, err := gw.Complete(ctx, llm.Request{
		ModelID:     cfg.ID,
		System:      system,
		User:        user,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		log.Warn("analysis: model call failed", zap.Error(err))
		return model.FailedAnswer(cfg, err), err
	}

	parsed := parser.Parse(raw.Text)
	flags := parser.Validate(*raw, parsed)
	log.Debug("analysis: model answered",
		zap.String("prediction", string(parsed.Prediction)),
		zap.String("trust", string(flags.TrustLevel)),
		zap.Int("tokens", raw.TokensUsed),
	)

	return model.ModelAnswer{
		ModelName:  cfg.Name,
		ModelID:    cfg.ID,
		Parsed:     parsed,
		Flags:      flags,
		RawText:    raw.Text,
		TokensUsed: raw.TokensUsed,
		Success:    true,
	}, nil
}
