package analysis

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/quotelab/stock-consensus/internal/model"
	"github.com/quotelab/stock-consensus/internal/resilience"
)

// errEmptyBatch marks a dispatch that produced zero successful answers.
var errEmptyBatch = eris.New("analysis: no model produced a usable answer")

// RetryController redispatches a whole batch while it contains zero
// successful answers, backing off exponentially between attempts. A single
// success anywhere in the batch ends the loop and returns the full batch,
// other models' failures included.
type RetryController struct {
	dispatcher Dispatcher
	retryCfg   resilience.RetryConfig
}

// NewRetryController wraps a dispatcher with batch-level retries. maxRetries
// is the total number of dispatch attempts; values below 1 default to 3.
func NewRetryController(dispatcher Dispatcher, maxRetries int) *RetryController {
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &RetryController{
		dispatcher: dispatcher,
		retryCfg: resilience.RetryConfig{
			MaxAttempts:    maxRetries,
			InitialBackoff: time.Second,
			Multiplier:     2.0,
			ShouldRetry:    func(error) bool { return true },
			OnRetry:        resilience.RetryLogger("analysis", "dispatch"),
		},
	}
}

// Dispatch runs the wrapped dispatcher until the batch holds at least one
// success or attempts are exhausted. On exhaustion the last real per-model
// error is returned; if the models simply had nothing to say, an empty
// batch with no error is returned and the caller treats the instrument as
// failed.
func (r *RetryController) Dispatch(ctx context.Context, system, user string, models []model.ModelConfig) ([]model.ModelAnswer, error) {
	var lastCause error
	answers, err := resilience.DoVal(ctx, r.retryCfg, func(ctx context.Context) ([]model.ModelAnswer, error) {
		batch, dispatchErr := r.dispatcher.Dispatch(ctx, system, user, models)
		if dispatchErr != nil {
			lastCause = dispatchErr
		}
		if anySuccess(batch) {
			return batch, nil
		}
		return nil, errEmptyBatch
	})
	if err == nil {
		return answers, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if lastCause != nil {
		return nil, lastCause
	}
	return []model.ModelAnswer{}, nil
}

func anySuccess(answers []model.ModelAnswer) bool {
	for _, a := range answers {
		if a.Success {
			return true
		}
	}
	return false
}
