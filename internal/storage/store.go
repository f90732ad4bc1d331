package storage

import (
	"context"
	"errors"
	"time"

	"github.com/okothc/sauti/internal/domain"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrConflict = errors.New("session version conflict")
)

// Store is the durable session/response repository. UpdateSession applies
// an optimistic-concurrency check on Session.Version and, when resp is
// non-nil, writes the session update and the response in one transaction.
type Store interface {
	GetSession(ctx context.Context, ch domain.Channel, externalID string) (*domain.Session, error)

	CreateSession(ctx context.Context, s *domain.Session) error

	UpdateSession(ctx context.Context, s *domain.Session, resp *domain.Response) error

	GetResponse(ctx context.Context, id string) (*domain.Response, error)

	SaveEnrichment(ctx context.Context, responseID, transcription, summary string) error

	ListActiveQuestions(ctx context.Context, language string) ([]domain.Question, error)

	SeedQuestions(ctx context.Context, questions []domain.Question) error

	ListIdleSessions(ctx context.Context, cutoff time.Time) ([]*domain.Session, error)

	Close() error
}
