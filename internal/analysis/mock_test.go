package analysis

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/quotelab/stock-consensus/internal/llm"
	"github.com/quotelab/stock-consensus/internal/model"
)

// --- Gateway Mock ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Complete(ctx context.Context, req llm.Request) (*llm.RawAnswer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.RawAnswer), args.Error(1)
}

// --- Dispatcher Mock ---

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, system, user string, models []model.ModelConfig) ([]model.ModelAnswer, error) {
	args := m.Called(ctx, system, user, models)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ModelAnswer), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveSnapshot(ctx context.Context, snap model.Snapshot) (string, error) {
	args := m.Called(ctx, snap)
	return args.String(0), args.Error(1)
}

func (m *mockStore) SaveModelAnswer(ctx context.Context, snapshotID string, ans model.ModelAnswer) (string, error) {
	args := m.Called(ctx, snapshotID, ans)
	return args.String(0), args.Error(1)
}

func (m *mockStore) SaveConsensus(ctx context.Context, snapshotID string, c model.ConsensusResult) (string, error) {
	args := m.Called(ctx, snapshotID, c)
	return args.String(0), args.Error(1)
}

func (m *mockStore) QueryAnswers(ctx context.Context, day time.Time, ticker string) ([]model.AnswerRecord, error) {
	args := m.Called(ctx, day, ticker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AnswerRecord), args.Error(1)
}

func (m *mockStore) Flush(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Company Provider Mock ---

type mockCompanyProvider struct {
	mock.Mock
}

func (m *mockCompanyProvider) Info(ctx context.Context, ticker string) (*model.CompanyInfo, error) {
	args := m.Called(ctx, ticker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CompanyInfo), args.Error(1)
}
