// Package ussd interprets one USSD callback at a time against the menu
// tree and produces the next CON/END page.
package ussd

import (
	"context"
	"strconv"
	"strings"

	"github.com/okothc/sauti/internal/domain"
	"github.com/okothc/sauti/internal/menu"
)

type ReplyType string

const (
	ReplyCON ReplyType = "CON"
	ReplyEND ReplyType = "END"
)

type Reply struct {
	Type    ReplyType
	Message string
}

// Render formats the reply the way the gateway expects on the wire.
func (r Reply) Render() string {
	return string(r.Type) + " " + menu.Clamp(r.Message)
}

// Result is the outcome of one transition. Response is non-nil when an
// answer was captured this step; Notify asks the orchestrator to queue a
// confirmation message after the response is persisted.
type Result struct {
	State    domain.SessionState
	Data     *domain.USSDStateData
	Response *domain.Response
	Reply    Reply
	Terminal bool
	Notify   *domain.Question
}

// QuestionSource supplies the active question list for a language.
type QuestionSource interface {
	ListActiveQuestions(ctx context.Context, language string) ([]domain.Question, error)
}

// Dialer places an outbound voice call. The gateway client is an external
// collaborator; a no-op implementation is fine for tests.
type Dialer interface {
	PlaceCall(ctx context.Context, phoneNumber, language string) error
}

type Machine struct {
	catalog   *menu.Catalog
	questions QuestionSource
	dialer    Dialer
}

func NewMachine(catalog *menu.Catalog, questions QuestionSource, dialer Dialer) *Machine {
	return &Machine{catalog: catalog, questions: questions, dialer: dialer}
}

// Apology is the safe terminal reply when a transition cannot be applied:
// unknown session, stale write, store trouble.
func (m *Machine) Apology(lang string) Reply {
	return Reply{Type: ReplyEND, Message: m.catalog.Text("error_message", lang)}
}

// LastFragment extracts the most recent input from the gateway's
// accumulated text. The gateway joins the session's input history with
// "*" (some deployments use ":"); only the trailing fragment is new.
func LastFragment(text string) string {
	if i := strings.LastIndexAny(text, "*:"); i >= 0 {
		return text[i+1:]
	}
	return text
}

// Step applies one input fragment to the session and returns the
// transition outcome. It never mutates the session.
func (m *Machine) Step(ctx context.Context, s *domain.Session, text string) Result {
	data := s.StateData.USSD
	if data == nil {
		data = &domain.USSDStateData{Language: "en"}
	}
	input := LastFragment(text)

	switch s.CurrentState {
	case domain.StateInfo:
		return m.stepInfo(data, input)
	case domain.StateQuestions:
		return m.stepQuestions(data, input)
	case domain.StateQuestionAnswer:
		return m.stepQuestionAnswer(s, data, input)
	case domain.StateLanguage:
		return m.stepLanguage(data, input)
	default:
		return m.stepMain(ctx, s, data, input)
	}
}

func (m *Machine) stepMain(ctx context.Context, s *domain.Session, data *domain.USSDStateData, input string) Result {
	lang := data.Language
	switch input {
	case "":
		return m.con(domain.StateMain, data, m.catalog.Render(domain.StateMain, lang))

	case "1":
		return m.con(domain.StateInfo, data, m.catalog.Render(domain.StateInfo, lang))

	case "2":
		questions, err := m.questions.ListActiveQuestions(ctx, lang)
		if err != nil {
			return m.end(data, m.catalog.Text("error_message", lang))
		}
		if len(questions) == 0 {
			return m.end(data, m.catalog.Text("no_questions", lang))
		}
		next := *data
		next.Questions = questions
		return m.con(domain.StateQuestions, &next, m.catalog.RenderQuestions(questions, lang))

	case "3":
		if err := m.dialer.PlaceCall(ctx, s.PhoneNumber, lang); err != nil {
			return m.end(data, m.catalog.Text("voice_call_error", lang))
		}
		return m.end(data, m.catalog.Text("voice_call_initiated", lang))

	case "4":
		return m.end(data, m.catalog.Text("summary_feature_coming", lang))

	case "5":
		return m.con(domain.StateLanguage, data, m.catalog.Render(domain.StateLanguage, lang))

	case "0":
		return m.end(data, m.catalog.Text("goodbye", lang))

	default:
		return m.invalid(domain.StateMain, data, m.catalog.Render(domain.StateMain, lang))
	}
}

func (m *Machine) stepInfo(data *domain.USSDStateData, input string) Result {
	lang := data.Language
	switch input {
	case "1":
		return m.end(data, m.catalog.Text("about_research", lang))
	case "2":
		return m.end(data, m.catalog.Text("how_to_participate", lang))
	case "3":
		return m.end(data, m.catalog.Text("privacy_info", lang))
	case "4":
		return m.end(data, m.catalog.Text("contact_info", lang))
	case "0":
		return m.con(domain.StateMain, data, m.catalog.Render(domain.StateMain, lang))
	default:
		return m.invalid(domain.StateInfo, data, m.catalog.Render(domain.StateInfo, lang))
	}
}

func (m *Machine) stepQuestions(data *domain.USSDStateData, input string) Result {
	lang := data.Language
	if input == "0" {
		next := *data
		next.Questions = nil
		return m.con(domain.StateMain, &next, m.catalog.Render(domain.StateMain, lang))
	}

	idx, err := strconv.Atoi(input)
	if err == nil && idx >= 1 && idx <= len(data.Questions) {
		selected := data.Questions[idx-1]
		next := *data
		next.Selected = &selected
		prompt := selected.Text + "\n\n" + m.catalog.Text("type_answer", lang)
		return m.con(domain.StateQuestionAnswer, &next, prompt)
	}

	return m.invalid(domain.StateQuestions, data, m.catalog.RenderQuestions(data.Questions, lang))
}

func (m *Machine) stepQuestionAnswer(s *domain.Session, data *domain.USSDStateData, input string) Result {
	lang := data.Language
	if data.Selected == nil {
		// Stale session with no bound question; recover to the main menu.
		return m.con(domain.StateMain, data, m.catalog.Render(domain.StateMain, lang))
	}
	if input == "" {
		prompt := data.Selected.Text + "\n\n" + m.catalog.Text("type_answer", lang)
		return m.invalid(domain.StateQuestionAnswer, data, prompt)
	}

	question := *data.Selected
	res := m.end(data, m.catalog.Text("response_saved_with_sms", lang))
	res.Response = domain.NewResponse(s, question.ID, input)
	res.Notify = &question
	return res
}

func (m *Machine) stepLanguage(data *domain.USSDStateData, input string) Result {
	switch input {
	case "1":
		next := *data
		next.Language = "en"
		return m.con(domain.StateMain, &next, m.catalog.Render(domain.StateMain, "en"))
	case "2":
		next := *data
		next.Language = "sw"
		return m.con(domain.StateMain, &next, m.catalog.Render(domain.StateMain, "sw"))
	case "0":
		return m.con(domain.StateMain, data, m.catalog.Render(domain.StateMain, data.Language))
	default:
		msg := "Invalid option / Chaguo batili\n\n" + m.catalog.Render(domain.StateLanguage, data.Language)
		return Result{
			State: domain.StateLanguage,
			Data:  data,
			Reply: Reply{Type: ReplyCON, Message: msg},
		}
	}
}

func (m *Machine) con(state domain.SessionState, data *domain.USSDStateData, msg string) Result {
	return Result{
		State: state,
		Data:  data,
		Reply: Reply{Type: ReplyCON, Message: msg},
	}
}

// end signals a terminal transition. State is left empty: END is an
// outcome, not a menu, so the session keeps its last state in history.
func (m *Machine) end(data *domain.USSDStateData, msg string) Result {
	return Result{
		Data:     data,
		Reply:    Reply{Type: ReplyEND, Message: msg},
		Terminal: true,
	}
}

func (m *Machine) invalid(state domain.SessionState, data *domain.USSDStateData, page string) Result {
	msg := m.catalog.Text("invalid_option", data.Language) + "\n\n" + page
	return Result{
		State: state,
		Data:  data,
		Reply: Reply{Type: ReplyCON, Message: msg},
	}
}
