// Package voice drives the IVR call flow: scripted greeting and menu,
// then the sequential question loop with one recording per question.
package voice

import (
	"context"
	"fmt"

	"github.com/okothc/sauti/internal/domain"
	"github.com/okothc/sauti/internal/menu"
)

type EventKind string

const (
	EventConnect       EventKind = "connect"
	EventDigits        EventKind = "digits"
	EventRecordingDone EventKind = "recording"
	EventStatus        EventKind = "status"
)

// Event is one gateway callback decoded into the kind that drives the
// state machine.
type Event struct {
	Kind         EventKind
	Digits       string
	RecordingURL string
	Duration     int
	Status       string
	HangupCause  string
}

// Terminal provider call statuses. Any of these finalizes the session
// regardless of navigation state.
func TerminalStatus(status string) bool {
	switch status {
	case "Completed", "Failed", "Busy", "NoAnswer":
		return true
	}
	return false
}

// Result of one transition. State "" means unchanged; Markup "" means the
// reply path owes the gateway no spoken output (status acks).
type Result struct {
	State    domain.SessionState
	Data     *domain.VoiceStateData
	Response *domain.Response
	Markup   string
	Terminal bool
}

type QuestionSource interface {
	ListActiveQuestions(ctx context.Context, language string) ([]domain.Question, error)
}

type Machine struct {
	catalog   *menu.Catalog
	questions QuestionSource
	baseURL   string // public base for callback attrs in GetDigits/Record
}

func NewMachine(catalog *menu.Catalog, questions QuestionSource, baseURL string) *Machine {
	return &Machine{catalog: catalog, questions: questions, baseURL: baseURL}
}

// Step applies one call event to the session. It never mutates the session.
func (m *Machine) Step(ctx context.Context, s *domain.Session, ev Event) Result {
	data := s.StateData.Voice
	if data == nil {
		data = &domain.VoiceStateData{Language: "en"}
	}

	if ev.Kind == EventStatus {
		return m.stepStatus(data, ev)
	}

	switch s.CurrentState {
	case domain.StateWelcome:
		return m.stepWelcome(data)
	case domain.StateWaitingInput:
		return m.stepWaitingInput(ctx, data, ev)
	case domain.StateSequentialQuestions:
		return m.stepRecording(s, data, ev)
	case domain.StateComplete:
		return m.hangupResult(data, "voice_goodbye", true)
	default:
		return m.hangupResult(data, "voice_goodbye", true)
	}
}

// stepWelcome plays the greeting and menu in a single reply and lands in
// waiting_input; the gateway calls back with the selected digit.
func (m *Machine) stepWelcome(data *domain.VoiceStateData) Result {
	lang := data.Language
	markup := RenderMarkup(
		say(m.catalog.Text("voice_welcome", lang)),
		Pause{Length: 1},
		say(m.catalog.Text("voice_menu", lang)),
		GetDigits{
			Timeout:     10,
			FinishOnKey: "#",
			CallbackURL: m.baseURL + "/voice/callback",
			Say:         say(m.catalog.Text("voice_make_selection", lang)),
		},
		say(m.catalog.Text("voice_no_selection", lang)),
		Hangup{},
	)
	return Result{State: domain.StateWaitingInput, Data: data, Markup: markup}
}

func (m *Machine) stepWaitingInput(ctx context.Context, data *domain.VoiceStateData, ev Event) Result {
	lang := data.Language
	switch ev.Digits {
	case "1":
		questions, err := m.questions.ListActiveQuestions(ctx, lang)
		if err != nil {
			return m.hangupResult(data, "voice_error", true)
		}
		if len(questions) == 0 {
			return m.hangupResult(data, "no_questions", true)
		}
		next := *data
		next.Questions = questions
		next.Cursor = 0
		return Result{
			State:  domain.StateSequentialQuestions,
			Data:   &next,
			Markup: m.questionMarkup(&next),
		}

	case "0":
		return m.hangupResult(data, "voice_goodbye", true)

	default:
		markup := RenderMarkup(
			say(m.catalog.Text("voice_menu", lang)),
			GetDigits{
				Timeout:     10,
				FinishOnKey: "#",
				CallbackURL: m.baseURL + "/voice/callback",
				Say:         say(m.catalog.Text("voice_make_selection", lang)),
			},
			say(m.catalog.Text("voice_no_selection", lang)),
			Hangup{},
		)
		return Result{Data: data, Markup: markup}
	}
}

// stepRecording handles a recording-completion callback for the question
// at the cursor. Replayed callbacks (a URL already accepted for any
// question, or a question already answered) produce no Response.
func (m *Machine) stepRecording(s *domain.Session, data *domain.VoiceStateData, ev Event) Result {
	if ev.Kind != EventRecordingDone {
		// A stray connect or digit mid-recording replays the current position.
		return Result{Data: data, Markup: m.positionMarkup(data)}
	}
	if data.Cursor >= len(data.Questions) {
		return m.hangupResult(data, "voice_complete", true)
	}

	question := data.Questions[data.Cursor]
	if ev.RecordingURL == "" || data.HasRecording(ev.RecordingURL) || data.HasAnswered(question.ID) {
		return Result{Data: data, Markup: m.positionMarkup(data)}
	}

	next := *data
	next.Answered = append(append([]int64(nil), data.Answered...), question.ID)
	next.Recordings = append(append([]string(nil), data.Recordings...), ev.RecordingURL)
	next.Cursor = data.Cursor + 1
	if ev.Duration > 0 {
		next.Duration += ev.Duration
	}

	res := Result{
		Data:     &next,
		Response: domain.NewResponse(s, question.ID, ev.RecordingURL),
	}

	if next.Cursor >= len(next.Questions) {
		res.State = domain.StateComplete
		res.Terminal = true
		res.Markup = RenderMarkup(
			say(m.catalog.Text("voice_recorded", next.Language)),
			Pause{Length: 1},
			say(m.catalog.Text("voice_complete", next.Language)),
			Hangup{},
		)
		return res
	}

	res.State = domain.StateSequentialQuestions
	res.Markup = m.questionMarkup(&next)
	return res
}

// stepStatus finalizes the call on any terminal provider status. The call
// has already ended, so no markup is produced.
func (m *Machine) stepStatus(data *domain.VoiceStateData, ev Event) Result {
	next := *data
	next.Status = ev.Status
	if ev.Duration > 0 {
		next.Duration = ev.Duration
	}
	if ev.HangupCause != "" {
		next.HangupCase = ev.HangupCause
	}
	if TerminalStatus(ev.Status) {
		return Result{State: domain.StateComplete, Data: &next, Terminal: true}
	}
	return Result{Data: &next}
}

// questionMarkup speaks question cursor+1 of N and starts recording.
func (m *Machine) questionMarkup(data *domain.VoiceStateData) string {
	lang := data.Language
	q := data.Questions[data.Cursor]
	counter := fmt.Sprintf(m.catalog.Text("voice_question_counter", lang), data.Cursor+1, len(data.Questions))
	return RenderMarkup(
		say(m.catalog.Text("voice_question_prompt", lang)),
		Pause{Length: 1},
		say(counter),
		say(q.Text),
		Record{
			Timeout:     120,
			TrimSilence: true,
			CallbackURL: m.baseURL + "/voice/recording",
			Say:         say(m.catalog.Text("voice_speak_after_beep", lang)),
		},
	)
}

// positionMarkup re-renders whatever the cursor currently points at.
func (m *Machine) positionMarkup(data *domain.VoiceStateData) string {
	if data.Cursor >= len(data.Questions) {
		return m.Goodbye(data.Language)
	}
	return m.questionMarkup(data)
}

// Goodbye is the safe reply for unknown or finalized calls.
func (m *Machine) Goodbye(lang string) string {
	return RenderMarkup(say(m.catalog.Text("voice_goodbye", lang)), Hangup{})
}

// Apology is the reply when something broke before a state was computed.
func (m *Machine) Apology(lang string) string {
	return RenderMarkup(say(m.catalog.Text("voice_error", lang)), Hangup{})
}

func (m *Machine) hangupResult(data *domain.VoiceStateData, key string, terminal bool) Result {
	return Result{
		Data:     data,
		Markup:   RenderMarkup(say(m.catalog.Text(key, data.Language)), Hangup{}),
		Terminal: terminal,
	}
}
