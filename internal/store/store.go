// Package store persists analysis output: one quote snapshot per
// (ticker, date), an insert-only history of per-model answers, and the
// consensus verdict per snapshot.
package store

import (
	"context"
	"time"

	"github.com/quotelab/stock-consensus/internal/model"
)

// Store defines the persistence interface for the analysis pipeline.
//
// Writes accumulate in an open transaction owned by the caller for the
// duration of a run; Flush commits the batch. A crash loses at most the
// writes since the last Flush and never corrupts committed state.
type Store interface {
	// SaveSnapshot upserts the quote snapshot for (ticker, date) and returns
	// the snapshot id. Saving the same pair twice updates the row in place.
	SaveSnapshot(ctx context.Context, snap model.Snapshot) (string, error)

	// SaveModelAnswer appends one model's answer under a snapshot. Answers
	// are history rows and always insert.
	SaveModelAnswer(ctx context.Context, snapshotID string, ans model.ModelAnswer) (string, error)

	// SaveConsensus appends the aggregated verdict for a snapshot.
	SaveConsensus(ctx context.Context, snapshotID string, c model.ConsensusResult) (string, error)

	// QueryAnswers returns the persisted answers for a day, optionally
	// filtered to one ticker (empty string matches all).
	QueryAnswers(ctx context.Context, day time.Time, ticker string) ([]model.AnswerRecord, error)

	// Flush commits the pending write batch.
	Flush(ctx context.Context) error

	Migrate(ctx context.Context) error
	Close() error
}
