package storage

import (
	"database/sql"
	"time"

	"github.com/okothc/sauti/internal/domain"
)

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s         domain.Session
		channel   string
		state     string
		stateData []byte
		endedAt   sql.NullTime
	)

	err := row.Scan(
		&s.ID,
		&s.ExternalID,
		&channel,
		&s.PhoneNumber,
		&s.Origin,
		&state,
		&stateData,
		&s.StartedAt,
		&s.LastActivity,
		&endedAt,
		&s.Interactions,
		&s.Active,
		&s.Version,
	)
	if err != nil {
		return nil, err
	}

	s.Channel = domain.Channel(channel)
	s.CurrentState = domain.SessionState(state)
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}

	data, err := domain.DecodeStateData(s.Channel, stateData)
	if err != nil {
		return nil, err
	}
	s.StateData = data

	return &s, nil
}

func scanResponse(row rowScanner) (*domain.Response, error) {
	var (
		r          domain.Response
		channel    string
		questionID sql.NullInt64
	)

	err := row.Scan(
		&r.ID,
		&r.SessionID,
		&channel,
		&questionID,
		&r.PhoneNumber,
		&r.Payload,
		&r.Language,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Channel = domain.Channel(channel)
	if questionID.Valid {
		r.QuestionID = questionID.Int64
	}

	return &r, nil
}

func nullQuestionID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
