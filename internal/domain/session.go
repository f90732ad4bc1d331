package domain

import (
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelUSSD  Channel = "ussd"
	ChannelVoice Channel = "voice"
)

type SessionState string

// USSD menu states.
const (
	StateMain           SessionState = "main"
	StateInfo           SessionState = "info"
	StateQuestions      SessionState = "questions"
	StateQuestionAnswer SessionState = "question_answer"
	StateLanguage       SessionState = "language"
)

// Voice call states. Every sequential_questions reply ends by arming a
// Record verb, so there is no separate recording state to land in.
const (
	StateWelcome             SessionState = "welcome"
	StateWaitingInput        SessionState = "waiting_input"
	StateSequentialQuestions SessionState = "sequential_questions"
	StateComplete            SessionState = "complete"
)

var ussdStates = map[SessionState]bool{
	StateMain:           true,
	StateInfo:           true,
	StateQuestions:      true,
	StateQuestionAnswer: true,
	StateLanguage:       true,
}

var voiceStates = map[SessionState]bool{
	StateWelcome:             true,
	StateWaitingInput:        true,
	StateSequentialQuestions: true,
	StateComplete:            true,
}

func ValidState(ch Channel, s SessionState) bool {
	switch ch {
	case ChannelUSSD:
		return ussdStates[s]
	case ChannelVoice:
		return voiceStates[s]
	}
	return false
}

func InitialState(ch Channel) SessionState {
	if ch == ChannelVoice {
		return StateWelcome
	}
	return StateMain
}

// Session is one gateway conversation, USSD or voice. ExternalID is the
// gateway-assigned correlation id; Version guards concurrent updates.
type Session struct {
	ID           string
	ExternalID   string
	Channel      Channel
	PhoneNumber  string
	Origin       string // service code for USSD, call direction for voice
	CurrentState SessionState
	StateData    StateData
	StartedAt    time.Time
	LastActivity time.Time
	EndedAt      *time.Time
	Interactions int
	Active       bool
	Version      int
}

func NewSession(ch Channel, externalID, phoneNumber, origin string) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New().String(),
		ExternalID:   externalID,
		Channel:      ch,
		PhoneNumber:  phoneNumber,
		Origin:       origin,
		CurrentState: InitialState(ch),
		StateData:    NewStateData(ch),
		StartedAt:    now,
		LastActivity: now,
		Active:       true,
		Version:      1,
	}
}

// Finalize marks the session inactive. No-op on an already finalized
// session so duplicate terminal callbacks stay idempotent.
func (s *Session) Finalize(at time.Time) {
	if !s.Active {
		return
	}
	s.Active = false
	s.EndedAt = &at
}

func (s *Session) Touch(at time.Time) {
	s.LastActivity = at
	s.Interactions++
}
