package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/quotelab/stock-consensus/internal/db"
	"github.com/quotelab/stock-consensus/internal/model"
)

// PostgresStore implements Store using pgxpool. Like the SQLite driver it
// batches writes into one transaction between Flushes.
type PostgresStore struct {
	pool db.Pool
	tx   pgx.Tx
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; tests hand in a pgxmock pool.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id         TEXT PRIMARY KEY,
	ticker     TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS snapshots (
	id             TEXT PRIMARY KEY,
	company_id     TEXT NOT NULL REFERENCES companies(id),
	analysis_date  DATE NOT NULL,
	price          DOUBLE PRECISION NOT NULL,
	change_percent DOUBLE PRECISION NOT NULL,
	volume         BIGINT NOT NULL,
	context        TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (company_id, analysis_date)
);

CREATE TABLE IF NOT EXISTS model_answers (
	id               TEXT PRIMARY KEY,
	snapshot_id      TEXT NOT NULL REFERENCES snapshots(id),
	model_name       TEXT NOT NULL,
	model_id         TEXT NOT NULL,
	prediction       TEXT NOT NULL,
	rationale        TEXT,
	key_factors      JSONB,
	confidence       TEXT NOT NULL,
	raw_text         TEXT,
	validation_flags JSONB,
	tokens_used      INTEGER NOT NULL DEFAULT 0,
	success          BOOLEAN NOT NULL,
	error            TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS consensus (
	id                 TEXT PRIMARY KEY,
	snapshot_id        TEXT NOT NULL REFERENCES snapshots(id),
	agreed_prediction  TEXT,
	disagreement_count INTEGER NOT NULL,
	avg_confidence     TEXT NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_snapshots_date ON snapshots(analysis_date);
CREATE INDEX IF NOT EXISTS idx_model_answers_snapshot ON model_answers(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_consensus_snapshot ON consensus(snapshot_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.tx != nil {
		s.tx.Rollback(context.Background())
		s.tx = nil
	}
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ensureTx(ctx context.Context) (pgx.Tx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin batch")
	}
	s.tx = tx
	return tx, nil
}

func (s *PostgresStore) Flush(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit(ctx)
	s.tx = nil
	return eris.Wrap(err, "postgres: commit batch")
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap model.Snapshot) (string, error) {
	tx, err := s.ensureTx(ctx)
	if err != nil {
		return "", err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO companies (id, ticker) VALUES ($1, $2) ON CONFLICT (ticker) DO NOTHING`,
		uuid.New().String(), snap.Ticker,
	); err != nil {
		return "", eris.Wrapf(err, "postgres: ensure company %s", snap.Ticker)
	}

	var companyID string
	if err := tx.QueryRow(ctx,
		`SELECT id FROM companies WHERE ticker = $1`, snap.Ticker,
	).Scan(&companyID); err != nil {
		return "", eris.Wrapf(err, "postgres: lookup company %s", snap.Ticker)
	}

	var id string
	err = tx.QueryRow(ctx,
		`INSERT INTO snapshots (id, company_id, analysis_date, price, change_percent, volume, context)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
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
		return "", eris.Wrapf(err, "postgres: upsert snapshot %s", snap.Ticker)
	}
	return id, nil
}

func (s *PostgresStore) SaveModelAnswer(ctx context.Context, snapshotID string, ans model.ModelAnswer) (string, error) {
	tx, err := s.ensureTx(ctx)
	if err != nil {
		return "", err
	}

	factorsJSON, err := json.Marshal(ans.Parsed.KeyFactors)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal key factors")
	}
	flagsJSON, err := json.Marshal(ans.Flags)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal validation flags")
	}

	id := uuid.New().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO model_answers (id, snapshot_id, model_name, model_id, prediction,
			rationale, key_factors, confidence, raw_text, validation_flags, tokens_used, success, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id, snapshotID, ans.ModelName, ans.ModelID, string(ans.Parsed.Prediction),
		ans.Parsed.Rationale, factorsJSON, string(ans.Parsed.Confidence),
		ans.RawText, flagsJSON, ans.TokensUsed, ans.Success, ans.Error,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: insert answer %s", ans.ModelName)
	}
	return id, nil
}

func (s *PostgresStore) SaveConsensus(ctx context.Context, snapshotID string, c model.ConsensusResult) (string, error) {
	tx, err := s.ensureTx(ctx)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO consensus (id, snapshot_id, agreed_prediction, disagreement_count, avg_confidence)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, snapshotID, string(c.AgreedPrediction), c.DisagreementCount, string(c.AvgConfidence),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert consensus")
	}
	return id, nil
}

func (s *PostgresStore) QueryAnswers(ctx context.Context, day time.Time, ticker string) ([]model.AnswerRecord, error) {
	query := `SELECT c.ticker, s.price, s.change_percent, s.volume, s.analysis_date,
			a.model_name, a.model_id, a.prediction, a.key_factors, a.confidence,
			a.validation_flags, a.tokens_used, a.success
		FROM model_answers a
		JOIN snapshots s ON s.id = a.snapshot_id
		JOIN companies c ON c.id = s.company_id
		WHERE s.analysis_date = $1`
	args := []any{model.DayString(day)}
	if ticker != "" {
		query += ` AND c.ticker = $2`
		args = append(args, ticker)
	}
	query += ` ORDER BY c.ticker, a.created_at, a.model_name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query answers")
	}
	defer rows.Close()

	var records []model.AnswerRecord
	for rows.Next() {
		var (
			rec         model.AnswerRecord
			factorsJSON []byte
			flagsJSON   []byte
		)
		if err := rows.Scan(&rec.Ticker, &rec.Price, &rec.ChangePercent, &rec.Volume, &rec.Date,
			&rec.ModelName, &rec.ModelID, &rec.Prediction, &factorsJSON, &rec.Confidence,
			&flagsJSON, &rec.TokensUsed, &rec.Success); err != nil {
			return nil, eris.Wrap(err, "postgres: scan answer")
		}
		if len(factorsJSON) > 0 {
			if err := json.Unmarshal(factorsJSON, &rec.KeyFactors); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal key factors")
			}
		}
		if len(flagsJSON) > 0 {
			if err := json.Unmarshal(flagsJSON, &rec.Flags); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal validation flags")
			}
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate answers")
}
