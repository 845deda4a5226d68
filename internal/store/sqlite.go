package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/quotelab/stock-consensus/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Writes batch into a
// lazily opened transaction that Flush commits.
type SQLiteStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id         TEXT PRIMARY KEY,
	ticker     TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS snapshots (
	id             TEXT PRIMARY KEY,
	company_id     TEXT NOT NULL REFERENCES companies(id),
	analysis_date  TEXT NOT NULL,
	price          REAL NOT NULL,
	change_percent REAL NOT NULL,
	volume         INTEGER NOT NULL,
	context        TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (company_id, analysis_date)
);

CREATE TABLE IF NOT EXISTS model_answers (
	id               TEXT PRIMARY KEY,
	snapshot_id      TEXT NOT NULL REFERENCES snapshots(id),
	model_name       TEXT NOT NULL,
	model_id         TEXT NOT NULL,
	prediction       TEXT NOT NULL,
	rationale        TEXT,
	key_factors      TEXT,
	confidence       TEXT NOT NULL,
	raw_text         TEXT,
	validation_flags TEXT,
	tokens_used      INTEGER NOT NULL DEFAULT 0,
	success          INTEGER NOT NULL,
	error            TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS consensus (
	id                 TEXT PRIMARY KEY,
	snapshot_id        TEXT NOT NULL REFERENCES snapshots(id),
	agreed_prediction  TEXT,
	disagreement_count INTEGER NOT NULL,
	avg_confidence     TEXT NOT NULL,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_snapshots_date ON snapshots(analysis_date);
CREATE INDEX IF NOT EXISTS idx_model_answers_snapshot ON model_answers(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_consensus_snapshot ON consensus(snapshot_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	if s.tx != nil {
		s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}

// ensureTx opens the batch transaction on first write after a Flush.
func (s *SQLiteStore) ensureTx(ctx context.Context) (*sql.Tx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin batch")
	}
	s.tx = tx
	return tx, nil
}

func (s *SQLiteStore) Flush(_ context.Context) error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	return eris.Wrap(err, "sqlite: commit batch")
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap model.Snapshot) (string, error) {
	tx, err := s.ensureTx(ctx)
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO companies (id, ticker) VALUES (?, ?) ON CONFLICT (ticker) DO NOTHING`,
		uuid.New().String(), snap.Ticker,
	); err != nil {
		return "", eris.Wrapf(err, "sqlite: ensure company %s", snap.Ticker)
	}

	var companyID string
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM companies WHERE ticker = ?`, snap.Ticker,
	).Scan(&companyID); err != nil {
		return "", eris.Wrapf(err, "sqlite: lookup company %s", snap.Ticker)
	}

	var id string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO snapshots (id, company_id, analysis_date, price, change_percent, volume, context)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (company_id, analysis_date) DO UPDATE SET
			price = excluded.price,
			change_percent = excluded.change_percent,
			volume = excluded.volume,
			context = excluded.context
		 RETURNING id`,
		uuid.New().String(), companyID, model.DayString(snap.Date),
		snap.Price, snap.ChangePercent, snap.Volume, snap.Context,
	).Scan(&id)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: upsert snapshot %s", snap.Ticker)
	}
	return id, nil
}

func (s *SQLiteStore) SaveModelAnswer(ctx context.Context, snapshotID string, ans model.ModelAnswer) (string, error) {
	tx, err := s.ensureTx(ctx)
	if err != nil {
		return "", err
	}

	factorsJSON, err := json.Marshal(ans.Parsed.KeyFactors)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal key factors")
	}
	flagsJSON, err := json.Marshal(ans.Flags)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal validation flags")
	}

	id := uuid.New().String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO model_answers (id, snapshot_id, model_name, model_id, prediction,
			rationale, key_factors, confidence, raw_text, validation_flags, tokens_used, success, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, snapshotID, ans.ModelName, ans.ModelID, string(ans.Parsed.Prediction),
		ans.Parsed.Rationale, string(factorsJSON), string(ans.Parsed.Confidence),
		ans.RawText, string(flagsJSON), ans.TokensUsed, ans.Success, ans.Error,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: insert answer %s", ans.ModelName)
	}
	return id, nil
}

func (s *SQLiteStore) SaveConsensus(ctx context.Context, snapshotID string, c model.ConsensusResult) (string, error) {
	tx, err := s.ensureTx(ctx)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO consensus (id, snapshot_id, agreed_prediction, disagreement_count, avg_confidence)
		 VALUES (?, ?, ?, ?, ?)`,
		id, snapshotID, string(c.AgreedPrediction), c.DisagreementCount, string(c.AvgConfidence),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert consensus")
	}
	return id, nil
}

func (s *SQLiteStore) QueryAnswers(ctx context.Context, day time.Time, ticker string) ([]model.AnswerRecord, error) {
	query := `SELECT c.ticker, s.price, s.change_percent, s.volume, s.analysis_date,
			a.model_name, a.model_id, a.prediction, a.key_factors, a.confidence,
			a.validation_flags, a.tokens_used, a.success
		FROM model_answers a
		JOIN snapshots s ON s.id = a.snapshot_id
		JOIN companies c ON c.id = s.company_id
		WHERE s.analysis_date = ?`
	args := []any{model.DayString(day)}
	if ticker != "" {
		query += ` AND c.ticker = ?`
		args = append(args, ticker)
	}
	query += ` ORDER BY c.ticker, a.created_at, a.model_name`

	rows, err := s.querier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query answers")
	}
	defer rows.Close()

	var records []model.AnswerRecord
	for rows.Next() {
		var (
			rec         model.AnswerRecord
			date        string
			factorsJSON sql.NullString
			flagsJSON   sql.NullString
		)
		if err := rows.Scan(&rec.Ticker, &rec.Price, &rec.ChangePercent, &rec.Volume, &date,
			&rec.ModelName, &rec.ModelID, &rec.Prediction, &factorsJSON, &rec.Confidence,
			&flagsJSON, &rec.TokensUsed, &rec.Success); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan answer")
		}
		if rec.Date, err = time.Parse("2006-01-02", date); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse date %s", date)
		}
		if factorsJSON.Valid && factorsJSON.String != "" {
			if err := json.Unmarshal([]byte(factorsJSON.String), &rec.KeyFactors); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal key factors")
			}
		}
		if flagsJSON.Valid && flagsJSON.String != "" {
			if err := json.Unmarshal([]byte(flagsJSON.String), &rec.Flags); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal validation flags")
			}
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate answers")
}

// querier routes reads through the open batch so a run can see its own
// uncommitted writes.
func (s *SQLiteStore) querier() interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
} {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}
