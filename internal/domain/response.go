package domain

import (
	"time"

	"github.com/google/uuid"
)

// Question is one active research question in a given language.
type Question struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
	Language string `json:"language"`
}

// Response is one captured answer. Immutable once appended; QuestionID is
// zero for legacy free-text flows with no bound question.
type Response struct {
	ID          string
	SessionID   string
	Channel     Channel
	QuestionID  int64
	PhoneNumber string
	Payload     string // answer text, or recording URL for voice
	Language    string
	CreatedAt   time.Time
}

func NewResponse(s *Session, questionID int64, payload string) *Response {
	return &Response{
		ID:          uuid.New().String(),
		SessionID:   s.ID,
		Channel:     s.Channel,
		QuestionID:  questionID,
		PhoneNumber: s.PhoneNumber,
		Payload:     payload,
		Language:    s.StateData.Language(),
		CreatedAt:   time.Now(),
	}
}
