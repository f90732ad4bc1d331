package ussd_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/okothc/sauti/internal/domain"
	"github.com/okothc/sauti/internal/menu"
	"github.com/okothc/sauti/internal/ussd"
)

type fakeQuestions struct {
	questions []domain.Question
	err       error
}

func (f fakeQuestions) ListActiveQuestions(_ context.Context, language string) ([]domain.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Question
	for _, q := range f.questions {
		if q.Language == language {
			out = append(out, q)
		}
	}
	return out, nil
}

type fakeDialer struct {
	calls int
	err   error
}

func (f *fakeDialer) PlaceCall(_ context.Context, phoneNumber, language string) error {
	f.calls++
	return f.err
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, Title: "Water Access", Text: "How far do you travel for clean water?", Language: "en"},
		{ID: 2, Title: "Health Services", Text: "How would you rate local health services?", Language: "en"},
	}
}

func newMachine(qs []domain.Question) *ussd.Machine {
	return ussd.NewMachine(menu.NewCatalog(), fakeQuestions{questions: qs}, &fakeDialer{})
}

func newSession() *domain.Session {
	return domain.NewSession(domain.ChannelUSSD, "ext-1", "+254700000001", "*384#")
}

func TestLastFragment(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"", ""},
		{"1", "1"},
		{"1*2", "2"},
		{"2*1*my answer", "my answer"},
		{"1:2:3", "3"},
		{"1*", ""},
	}
	for _, tt := range tests {
		if got := ussd.LastFragment(tt.text); got != tt.want {
			t.Errorf("LastFragment(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestInitialRequestShowsMainMenu(t *testing.T) {
	m := newMachine(nil)
	s := newSession()

	res := m.Step(context.Background(), s, "")

	if res.Reply.Type != ussd.ReplyCON {
		t.Fatalf("expected CON, got %s", res.Reply.Type)
	}
	if !strings.HasPrefix(res.Reply.Message, "Research Information System") {
		t.Fatalf("unexpected main menu: %q", res.Reply.Message)
	}
	for _, opt := range []string{"1.", "2.", "3.", "4.", "5.", "0."} {
		if !strings.Contains(res.Reply.Message, opt) {
			t.Errorf("main menu missing option %s", opt)
		}
	}
}

func TestInfoSubmenuAndLeaf(t *testing.T) {
	m := newMachine(nil)
	s := newSession()

	res := m.Step(context.Background(), s, "1")
	if res.Reply.Type != ussd.ReplyCON || res.State != domain.StateInfo {
		t.Fatalf("expected CON into info, got %s state %s", res.Reply.Type, res.State)
	}
	if !strings.Contains(res.Reply.Message, "How to Participate") {
		t.Fatalf("info menu missing entry: %q", res.Reply.Message)
	}

	s.CurrentState = domain.StateInfo
	res = m.Step(context.Background(), s, "1*2")
	if res.Reply.Type != ussd.ReplyEND || !res.Terminal {
		t.Fatalf("expected terminal END, got %s", res.Reply.Type)
	}
	if !strings.Contains(res.Reply.Message, "participate by answering questions") {
		t.Fatalf("unexpected leaf text: %q", res.Reply.Message)
	}
}

func TestNoActiveQuestions(t *testing.T) {
	m := newMachine(nil)
	s := newSession()

	res := m.Step(context.Background(), s, "2")

	if res.Reply.Type != ussd.ReplyEND {
		t.Fatalf("expected END, got %s", res.Reply.Type)
	}
	if res.Reply.Message != "No research questions available at the moment." {
		t.Fatalf("unexpected message: %q", res.Reply.Message)
	}
}

func TestQuestionAnswerFlow(t *testing.T) {
	m := newMachine(sampleQuestions())
	s := newSession()
	ctx := context.Background()

	res := m.Step(ctx, s, "2")
	if res.Reply.Type != ussd.ReplyCON || res.State != domain.StateQuestions {
		t.Fatalf("expected questions menu, got %s state %s", res.Reply.Type, res.State)
	}
	if !strings.Contains(res.Reply.Message, "1. Water Access") {
		t.Fatalf("questions menu missing title: %q", res.Reply.Message)
	}

	s.CurrentState = res.State
	s.StateData.USSD = res.Data

	res = m.Step(ctx, s, "2*1")
	if res.State != domain.StateQuestionAnswer {
		t.Fatalf("expected question_answer, got %s", res.State)
	}
	if !strings.Contains(res.Reply.Message, "How far do you travel") {
		t.Fatalf("prompt missing question text: %q", res.Reply.Message)
	}

	s.CurrentState = res.State
	s.StateData.USSD = res.Data

	res = m.Step(ctx, s, "2*1*about two hours")
	if res.Reply.Type != ussd.ReplyEND || !res.Terminal {
		t.Fatalf("expected terminal END after answer")
	}
	if res.Response == nil {
		t.Fatalf("expected a captured response")
	}
	if res.Response.QuestionID != 1 {
		t.Errorf("response bound to question %d, want 1", res.Response.QuestionID)
	}
	if res.Response.Payload != "about two hours" {
		t.Errorf("response payload = %q", res.Response.Payload)
	}
	if res.Response.Channel != domain.ChannelUSSD {
		t.Errorf("response channel = %s", res.Response.Channel)
	}
	if res.Notify == nil || res.Notify.ID != 1 {
		t.Errorf("expected notification context for question 1")
	}
}

func TestEmptyAnswerReprompts(t *testing.T) {
	m := newMachine(sampleQuestions())
	s := newSession()
	q := sampleQuestions()[0]
	s.CurrentState = domain.StateQuestionAnswer
	s.StateData.USSD = &domain.USSDStateData{Language: "en", Selected: &q}

	res := m.Step(context.Background(), s, "2*1*")

	if res.Reply.Type != ussd.ReplyCON || res.Response != nil {
		t.Fatalf("empty answer must re-prompt without recording")
	}
	if !strings.Contains(res.Reply.Message, "How far do you travel") {
		t.Fatalf("re-prompt missing question: %q", res.Reply.Message)
	}
}

func TestInvalidOptionRerenders(t *testing.T) {
	m := newMachine(nil)
	s := newSession()

	res := m.Step(context.Background(), s, "9")

	if res.Reply.Type != ussd.ReplyCON {
		t.Fatalf("invalid input must keep the session open")
	}
	if !strings.HasPrefix(res.Reply.Message, "Invalid option.") {
		t.Fatalf("missing invalid notice: %q", res.Reply.Message)
	}
	if !strings.Contains(res.Reply.Message, "Research Information System") {
		t.Fatalf("menu not re-rendered: %q", res.Reply.Message)
	}
}

func TestLanguageToggle(t *testing.T) {
	m := newMachine(nil)
	s := newSession()
	ctx := context.Background()

	res := m.Step(ctx, s, "5")
	if res.State != domain.StateLanguage {
		t.Fatalf("expected language menu, got %s", res.State)
	}

	s.CurrentState = res.State
	res = m.Step(ctx, s, "5*2")

	if res.State != domain.StateMain {
		t.Fatalf("expected return to main, got %s", res.State)
	}
	if res.Data.Language != "sw" {
		t.Fatalf("language = %q, want sw", res.Data.Language)
	}
	if !strings.HasPrefix(res.Reply.Message, "Mfumo wa Taarifa za Utafiti") {
		t.Fatalf("main menu not re-rendered in Kiswahili: %q", res.Reply.Message)
	}
}

func TestExit(t *testing.T) {
	m := newMachine(nil)
	s := newSession()

	res := m.Step(context.Background(), s, "0")

	if res.Reply.Type != ussd.ReplyEND || !res.Terminal {
		t.Fatalf("expected terminal END on exit")
	}
	if res.Reply.Message != "Thank you for participating in our research!" {
		t.Fatalf("unexpected goodbye: %q", res.Reply.Message)
	}
}

func TestVoiceCallOption(t *testing.T) {
	d := &fakeDialer{}
	m := ussd.NewMachine(menu.NewCatalog(), fakeQuestions{}, d)
	s := newSession()

	res := m.Step(context.Background(), s, "3")

	if d.calls != 1 {
		t.Fatalf("expected one outbound call, got %d", d.calls)
	}
	if res.Reply.Type != ussd.ReplyEND {
		t.Fatalf("expected END after initiating call")
	}
	if !strings.Contains(res.Reply.Message, "receive a call shortly") {
		t.Fatalf("unexpected message: %q", res.Reply.Message)
	}

	d.err = errors.New("gateway down")
	res = m.Step(context.Background(), s, "3")
	if !strings.Contains(res.Reply.Message, "Unable to initiate voice call") {
		t.Fatalf("expected call failure message, got %q", res.Reply.Message)
	}
}

func TestQuestionSourceErrorEndsPolitely(t *testing.T) {
	m := ussd.NewMachine(menu.NewCatalog(), fakeQuestions{err: errors.New("db down")}, &fakeDialer{})
	s := newSession()

	res := m.Step(context.Background(), s, "2")

	if res.Reply.Type != ussd.ReplyEND {
		t.Fatalf("store failure must terminate politely")
	}
	if !strings.Contains(res.Reply.Message, "Sorry, there was an error") {
		t.Fatalf("unexpected apology: %q", res.Reply.Message)
	}
}

func TestReplyRenderClampsOversizedPages(t *testing.T) {
	long := strings.Repeat("a", 500)
	r := ussd.Reply{Type: ussd.ReplyCON, Message: long}

	out := r.Render()
	if len(out) > len("CON ")+menu.MaxPageLen {
		t.Fatalf("rendered page not clamped: %d bytes", len(out))
	}
	if !strings.HasPrefix(out, "CON a") {
		t.Fatalf("unexpected prefix: %q", out[:10])
	}
}
