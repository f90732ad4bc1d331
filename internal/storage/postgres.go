package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/okothc/sauti/internal/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	store := &PostgresStore{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		external_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		phone_number TEXT NOT NULL,
		origin TEXT,
		current_state TEXT NOT NULL,
		state_data JSONB NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		last_activity TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		interactions INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		version INTEGER NOT NULL DEFAULT 1,
		UNIQUE(channel, external_id)
	);

	CREATE TABLE IF NOT EXISTS responses (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		question_id BIGINT,
		phone_number TEXT NOT NULL,
		payload TEXT NOT NULL,
		language TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		transcription TEXT,
		summary TEXT,
		enriched_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS questions (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		question_text TEXT NOT NULL,
		category TEXT,
		language TEXT NOT NULL DEFAULT 'en',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_external ON sessions(channel, external_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_activity ON sessions(is_active, last_activity);
	CREATE INDEX IF NOT EXISTS idx_responses_session ON responses(session_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *PostgresStore) GetSession(ctx context.Context, ch domain.Channel, externalID string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE channel = $1 AND external_id = $2`

	sess, err := scanSession(s.db.QueryRowContext(ctx, query, string(ch), externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess *domain.Session) error {
	stateData, err := domain.EncodeStateData(sess.StateData)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// At most one active session per phone number and channel: a new
	// session supersedes any the caller abandoned.
	_, err = tx.ExecContext(ctx, `
		UPDATE sessions SET is_active = FALSE, ended_at = $1, version = version + 1
		WHERE channel = $2 AND phone_number = $3 AND is_active = TRUE
	`, time.Now(), string(sess.Channel), sess.PhoneNumber)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = tx.ExecContext(
		ctx,
		query,
		sess.ID,
		sess.ExternalID,
		string(sess.Channel),
		sess.PhoneNumber,
		sess.Origin,
		string(sess.CurrentState),
		stateData,
		sess.StartedAt,
		sess.LastActivity,
		nullTime(sess.EndedAt),
		sess.Interactions,
		sess.Active,
		sess.Version,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) UpdateSession(ctx context.Context, sess *domain.Session, resp *domain.Response) error {
	stateData, err := domain.EncodeStateData(sess.StateData)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE sessions
		SET current_state = $1, state_data = $2, last_activity = $3, ended_at = $4,
		    interactions = $5, is_active = $6, version = version + 1
		WHERE id = $7 AND version = $8
	`,
		string(sess.CurrentState),
		stateData,
		sess.LastActivity,
		nullTime(sess.EndedAt),
		sess.Interactions,
		sess.Active,
		sess.ID,
		sess.Version,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConflict
	}

	if resp != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO responses (id, session_id, channel, question_id, phone_number, payload, language, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			resp.ID,
			resp.SessionID,
			string(resp.Channel),
			nullQuestionID(resp.QuestionID),
			resp.PhoneNumber,
			resp.Payload,
			resp.Language,
			resp.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	sess.Version++
	return nil
}

func (s *PostgresStore) GetResponse(ctx context.Context, id string) (*domain.Response, error) {
	query := `
		SELECT id, session_id, channel, question_id, phone_number, payload, language, created_at
		FROM responses WHERE id = $1
	`

	resp, err := scanResponse(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return resp, err
}

func (s *PostgresStore) SaveEnrichment(ctx context.Context, responseID, transcription, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE responses SET transcription = $1, summary = $2, enriched_at = $3 WHERE id = $4
	`, transcription, summary, time.Now(), responseID)
	return err
}

func (s *PostgresStore) ListActiveQuestions(ctx context.Context, language string) ([]domain.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, question_text, category, language
		FROM questions
		WHERE is_active = TRUE AND language = $1
		ORDER BY created_at DESC
		LIMIT 10
	`, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuestions(rows)
}

func (s *PostgresStore) SeedQuestions(ctx context.Context, questions []domain.Question) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range questions {
		lang := q.Language
		if lang == "" {
			lang = "en"
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO questions (title, question_text, category, language, is_active)
			VALUES ($1, $2, $3, $4, TRUE)
		`, q.Title, q.Text, q.Category, lang)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) ListIdleSessions(ctx context.Context, cutoff time.Time) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE is_active = TRUE AND last_activity < $1`

	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	return sessions, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
