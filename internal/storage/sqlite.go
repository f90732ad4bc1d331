package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/okothc/sauti/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		external_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		phone_number TEXT NOT NULL,
		origin TEXT,
		current_state TEXT NOT NULL,
		state_data TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		last_activity DATETIME NOT NULL,
		ended_at DATETIME,
		interactions INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		version INTEGER NOT NULL DEFAULT 1,
		UNIQUE(channel, external_id)
	);

	CREATE TABLE IF NOT EXISTS responses (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		question_id INTEGER,
		phone_number TEXT NOT NULL,
		payload TEXT NOT NULL,
		language TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		transcription TEXT,
		summary TEXT,
		enriched_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		question_text TEXT NOT NULL,
		category TEXT,
		language TEXT NOT NULL DEFAULT 'en',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_external ON sessions(channel, external_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_activity ON sessions(is_active, last_activity);
	CREATE INDEX IF NOT EXISTS idx_responses_session ON responses(session_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

const sessionColumns = `id, external_id, channel, phone_number, origin, current_state,
		state_data, started_at, last_activity, ended_at, interactions, is_active, version`

func (s *SQLiteStore) GetSession(ctx context.Context, ch domain.Channel, externalID string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE channel = ? AND external_id = ?`

	sess, err := scanSession(s.db.QueryRowContext(ctx, query, string(ch), externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *domain.Session) error {
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
		UPDATE sessions SET is_active = 0, ended_at = ?, version = version + 1
		WHERE channel = ? AND phone_number = ? AND is_active = 1
	`, time.Now(), string(sess.Channel), sess.PhoneNumber)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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

// UpdateSession bumps the version, failing with ErrConflict when another
// transition committed first. The response, when present, rides the same
// transaction.
func (s *SQLiteStore) UpdateSession(ctx context.Context, sess *domain.Session, resp *domain.Response) error {
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
		SET current_state = ?, state_data = ?, last_activity = ?, ended_at = ?,
		    interactions = ?, is_active = ?, version = version + 1
		WHERE id = ? AND version = ?
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
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
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

func (s *SQLiteStore) GetResponse(ctx context.Context, id string) (*domain.Response, error) {
	query := `
		SELECT id, session_id, channel, question_id, phone_number, payload, language, created_at
		FROM responses WHERE id = ?
	`

	resp, err := scanResponse(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return resp, err
}

func (s *SQLiteStore) SaveEnrichment(ctx context.Context, responseID, transcription, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE responses SET transcription = ?, summary = ?, enriched_at = ? WHERE id = ?
	`, transcription, summary, time.Now(), responseID)
	return err
}

func (s *SQLiteStore) ListActiveQuestions(ctx context.Context, language string) ([]domain.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, question_text, category, language
		FROM questions
		WHERE is_active = 1 AND language = ?
		ORDER BY created_at DESC
		LIMIT 10
	`, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuestions(rows)
}

func (s *SQLiteStore) SeedQuestions(ctx context.Context, questions []domain.Question) error {
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
			VALUES (?, ?, ?, ?, 1)
		`, q.Title, q.Text, q.Category, lang)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) ListIdleSessions(ctx context.Context, cutoff time.Time) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE is_active = 1 AND last_activity < ?`

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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanQuestions(rows *sql.Rows) ([]domain.Question, error) {
	var questions []domain.Question

	for rows.Next() {
		var q domain.Question
		var category sql.NullString

		if err := rows.Scan(&q.ID, &q.Title, &q.Text, &category, &q.Language); err != nil {
			return nil, err
		}
		q.Category = category.String
		questions = append(questions, q)
	}

	return questions, rows.Err()
}
