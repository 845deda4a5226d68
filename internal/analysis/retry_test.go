package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quotelab/stock-consensus/internal/model"
	"github.com/quotelab/stock-consensus/internal/resilience"
)

// fastRetryController shrinks backoff so tests run quickly.
func fastRetryController(d Dispatcher, maxRetries int) *RetryController {
	r := NewRetryController(d, maxRetries)
	r.retryCfg.InitialBackoff = time.Millisecond
	return r
}

func successBatch() []model.ModelAnswer {
	return []model.ModelAnswer{
		{ModelName: "gpt-4o", Success: true, Parsed: model.ParsedAnswer{
			Prediction: model.PredictionRising,
			Confidence: model.ConfidenceHigh,
		}},
	}
}

func failedBatch(err error) []model.ModelAnswer {
	return []model.ModelAnswer{model.FailedAnswer(model.ModelConfig{Name: "gpt-4o"}, err)}
}

func TestRetryController_SucceedsAfterTwoEmptyBatches(t *testing.T) {
	transportErr := resilience.NewTransportError(assert.AnError)
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, "sys", "user", mock.Anything).
		Return(failedBatch(transportErr), transportErr).Twice()
	d.On("Dispatch", mock.Anything, "sys", "user", mock.Anything).
		Return(successBatch(), nil).Once()

	r := fastRetryController(d, 3)
	answers, err := r.Dispatch(context.Background(), "sys", "user", testModels())

	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.True(t, answers[0].Success)
	d.AssertNumberOfCalls(t, "Dispatch", 3)
}

func TestRetryController_SingleSuccessEndsLoopImmediately(t *testing.T) {
	transportErr := resilience.NewTransportError(assert.AnError)
	batch := append(successBatch(), model.FailedAnswer(model.ModelConfig{Name: "gemini-pro"}, transportErr))

	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, "sys", "user", mock.Anything).
		Return(batch, transportErr).Once()

	r := fastRetryController(d, 3)
	answers, err := r.Dispatch(context.Background(), "sys", "user", testModels())

	// One success returns the whole batch, the other model's failure included.
	require.NoError(t, err)
	require.Len(t, answers, 2)
	d.AssertNumberOfCalls(t, "Dispatch", 1)
}

func TestRetryController_ExhaustionReturnsLastError(t *testing.T) {
	transportErr := resilience.NewTransportError(assert.AnError)
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, "sys", "user", mock.Anything).
		Return(failedBatch(transportErr), transportErr)

	r := fastRetryController(d, 3)
	answers, err := r.Dispatch(context.Background(), "sys", "user", testModels())

	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Nil(t, answers)
	d.AssertNumberOfCalls(t, "Dispatch", 3)
}

func TestRetryController_NoOpinionsReturnsEmptyBatch(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, "sys", "user", mock.Anything).
		Return([]model.ModelAnswer{}, nil)

	r := fastRetryController(d, 2)
	answers, err := r.Dispatch(context.Background(), "sys", "user", nil)

	require.NoError(t, err)
	assert.Empty(t, answers)
	d.AssertNumberOfCalls(t, "Dispatch", 2)
}

func TestRetryController_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transportErr := resilience.NewTransportError(assert.AnError)

	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, "sys", "user", mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(failedBatch(transportErr), transportErr)

	r := NewRetryController(d, 3)
	_, err := r.Dispatch(ctx, "sys", "user", testModels())

	require.ErrorIs(t, err, context.Canceled)
	d.AssertNumberOfCalls(t, "Dispatch", 1)
}

func TestRetryController_DefaultsInvalidMaxRetries(t *testing.T) {
	r := NewRetryController(&mockDispatcher{}, 0)
	assert.Equal(t, 3, r.retryCfg.MaxAttempts)
}
