package analysis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quotelab/stock-consensus/internal/company"
	"github.com/quotelab/stock-consensus/internal/consensus"
	"github.com/quotelab/stock-consensus/internal/model"
	"github.com/quotelab/stock-consensus/internal/store"
)

// Options configures one Pipeline.
type Options struct {
	// Models is the fixed model set queried per instrument.
	Models []model.ModelConfig

	// SystemPrompt is sent with every model request.
	SystemPrompt string

	// Template is the instrument prompt template; validated at run start.
	Template string

	// CommitEvery flushes the store after this many processed instruments.
	// Defaults to 10.
	CommitEvery int

	// MaxErrors caps the example error list in RunStats. Defaults to 25.
	MaxErrors int
}

func (o Options) withDefaults() Options {
	if o.CommitEvery <= 0 {
		o.CommitEvery = 10
	}
	if o.MaxErrors <= 0 {
		o.MaxErrors = 25
	}
	return o
}

// Pipeline drives one analysis run: sequentially per instrument, it saves
// the quote snapshot, dispatches the model batch, persists every answer and
// the consensus, and accumulates run statistics. Instruments are processed
// one after another; concurrency lives inside the dispatcher.
//
// The pipeline owns the store's write handle for the duration of a run.
type Pipeline struct {
	opts       Options
	dispatcher Dispatcher
	store      store.Store
	company    company.Provider // optional
	state      model.RunState
}

// NewPipeline builds a pipeline. companyProvider may be nil to skip prompt
// enrichment.
func NewPipeline(opts Options, dispatcher Dispatcher, st store.Store, companyProvider company.Provider) *Pipeline {
	return &Pipeline{
		opts:       opts.withDefaults(),
		dispatcher: dispatcher,
		store:      st,
		company:    companyProvider,
		state:      model.RunStateIdle,
	}
}

// State reports the pipeline lifecycle: idle until Run is called, running
// during a run, then the run's terminal state.
func (p *Pipeline) State() model.RunState {
	return p.state
}

// Run analyzes the instruments in order and returns the run summary. The
// returned error is non-nil only for run-fatal conditions (a bad template);
// per-instrument failures are recorded in the stats and processing
// continues. Cancelling ctx stops the loop promptly and reports the run as
// aborted; committed instruments stay durable.
func (p *Pipeline) Run(ctx context.Context, instruments []model.Instrument) (model.RunStats, error) {
	stats := model.RunStats{
		Total: len(instruments),
		State: model.RunStateRunning,
	}
	p.state = model.RunStateRunning
	defer func() { p.state = stats.State }()
	start := time.Now()
	log := zap.L().With(zap.Int("instruments", len(instruments)), zap.Int("models", len(p.opts.Models)))
	log.Info("analysis: run starting")

	builder, err := NewPromptBuilder(p.opts.Template)
	if err != nil {
		stats.State = model.RunStateAborted
		stats.Elapsed = time.Since(start)
		return stats, err
	}

	day := time.Now().UTC()
	processed := 0
	for _, inst := range instruments {
		if ctx.Err() != nil {
			stats.State = model.RunStateAborted
			break
		}

		tokens, instErr := p.processInstrument(ctx, builder, inst, day)
		stats.TotalTokens += tokens
		processed++

		if instErr != nil {
			if ctx.Err() != nil {
				stats.State = model.RunStateAborted
				break
			}
			stats.Failed++
			if len(stats.Errors) < p.opts.MaxErrors {
				stats.Errors = append(stats.Errors, model.InstrumentError{
					Ticker: inst.Ticker,
					Err:    instErr.Error(),
				})
			}
			log.Warn("analysis: instrument failed",
				zap.String("ticker", inst.Ticker),
				zap.Error(instErr),
			)
		} else {
			stats.Successful++
		}

		if processed%p.opts.CommitEvery == 0 {
			if flushErr := p.store.Flush(ctx); flushErr != nil {
				log.Error("analysis: flush failed", zap.Error(flushErr))
			}
		}
	}

	if flushErr := p.store.Flush(context.WithoutCancel(ctx)); flushErr != nil {
		log.Error("analysis: final flush failed", zap.Error(flushErr))
	}

	if stats.State == model.RunStateRunning {
		stats.State = model.RunStateCompleted
	}
	stats.Elapsed = time.Since(start)
	log.Info("analysis: run finished",
		zap.String("state", string(stats.State)),
		zap.Int("successful", stats.Successful),
		zap.Int("failed", stats.Failed),
		zap.Int("total_tokens", stats.TotalTokens),
		zap.Duration("elapsed", stats.Elapsed),
	)
	return stats, nil
}

// processInstrument runs the full flow for one instrument and returns the
// tokens spent. Any error is a per-instrument failure the run absorbs.
func (p *Pipeline) processInstrument(ctx context.Context, builder *PromptBuilder, inst model.Instrument, day time.Time) (int, error) {
	snapID, err := p.store.SaveSnapshot(ctx, model.Snapshot{
		Ticker:        inst.Ticker,
		Price:         inst.Price,
		ChangePercent: inst.ChangePercent,
		Volume:        inst.Volume,
		Context:       inst.Context,
		Date:          day,
	})
	if err != nil {
		return 0, eris.Wrapf(err, "save snapshot %s", inst.Ticker)
	}

	prompt := builder.Build(inst, p.additionalInfo(ctx, inst))
	answers, err := p.dispatcher.Dispatch(ctx, p.opts.SystemPrompt, prompt, p.opts.Models)
	if err != nil {
		return 0, eris.Wrapf(err, "dispatch %s", inst.Ticker)
	}
	if len(answers) == 0 {
		return 0, errors.New("no model produced an answer")
	}

	tokens := 0
	for _, ans := range answers {
		tokens += ans.TokensUsed
		if _, err := p.store.SaveModelAnswer(ctx, snapID, ans); err != nil {
			return tokens, eris.Wrapf(err, "save answer %s/%s", inst.Ticker, ans.ModelName)
		}
	}

	verdict := consensus.Calculate(answers)
	if _, err := p.store.SaveConsensus(ctx, snapID, verdict); err != nil {
		return tokens, eris.Wrapf(err, "save consensus %s", inst.Ticker)
	}

	zap.L().Info("analysis: instrument done",
		zap.String("ticker", inst.Ticker),
		zap.String("consensus", string(verdict.AgreedPrediction)),
		zap.Int("disagreement", verdict.DisagreementCount),
		zap.Int("tokens", tokens),
	)
	return tokens, nil
}

// additionalInfo merges the instrument's free-text context with the company
// profile. Profile lookups are best effort.
func (p *Pipeline) additionalInfo(ctx context.Context, inst model.Instrument) string {
	parts := make([]string, 0, 2)
	if inst.Context != "" {
		parts = append(parts, inst.Context)
	}
	if p.company != nil {
		info, err := p.company.Info(ctx, inst.Ticker)
		switch {
		case err != nil:
			zap.L().Warn("analysis: company lookup failed",
				zap.String("ticker", inst.Ticker),
				zap.Error(err),
			)
		case info != nil && info.Description != "":
			parts = append(parts, info.Description)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "\n")
}
