package voice_test

import (
	"context"
	"strings"
	"testing"

	"github.com/okothc/sauti/internal/domain"
	"github.com/okothc/sauti/internal/menu"
	"github.com/okothc/sauti/internal/voice"
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

func twoQuestions() []domain.Question {
	return []domain.Question{
		{ID: 10, Title: "Water Access", Text: "How far do you travel for clean water?", Language: "en"},
		{ID: 11, Title: "Health Services", Text: "How would you rate local health services?", Language: "en"},
	}
}

func newMachine(qs []domain.Question) *voice.Machine {
	return voice.NewMachine(menu.NewCatalog(), fakeQuestions{questions: qs}, "https://example.com")
}

func newCall() *domain.Session {
	return domain.NewSession(domain.ChannelVoice, "call-1", "+254700000002", "inbound")
}

func apply(s *domain.Session, res voice.Result) {
	if res.State != "" {
		s.CurrentState = res.State
	}
	if res.Data != nil {
		s.StateData.Voice = res.Data
	}
}

func TestConnectPlaysWelcomeAndMenu(t *testing.T) {
	m := newMachine(twoQuestions())
	s := newCall()

	res := m.Step(context.Background(), s, voice.Event{Kind: voice.EventConnect})

	if res.State != domain.StateWaitingInput {
		t.Fatalf("expected waiting_input, got %s", res.State)
	}
	if res.Terminal {
		t.Fatalf("connect must not be terminal")
	}
	for _, want := range []string{
		"Welcome to the Research Information System",
		"Press 1 to answer research questions",
		"<GetDigits",
		`callbackUrl="https://example.com/voice/callback"`,
	} {
		if !strings.Contains(res.Markup, want) {
			t.Errorf("markup missing %q:\n%s", want, res.Markup)
		}
	}
}

func TestFullTwoQuestionCall(t *testing.T) {
	m := newMachine(twoQuestions())
	s := newCall()
	ctx := context.Background()

	apply(s, m.Step(ctx, s, voice.Event{Kind: voice.EventConnect}))

	res := m.Step(ctx, s, voice.Event{Kind: voice.EventDigits, Digits: "1"})
	if res.State != domain.StateSequentialQuestions {
		t.Fatalf("expected sequential_questions state, got %s", res.State)
	}
	if !strings.Contains(res.Markup, "Question 1 of 2.") {
		t.Fatalf("expected question counter, got:\n%s", res.Markup)
	}
	if !strings.Contains(res.Markup, "How far do you travel") {
		t.Fatalf("expected first question text")
	}
	if !strings.Contains(res.Markup, "<Record") {
		t.Fatalf("expected Record verb")
	}
	apply(s, res)

	res = m.Step(ctx, s, voice.Event{Kind: voice.EventRecordingDone, RecordingURL: "https://cdn/rec1.wav", Duration: 20})
	if res.Response == nil {
		t.Fatalf("first recording must create a response")
	}
	if res.Response.QuestionID != 10 {
		t.Errorf("first response bound to %d, want 10", res.Response.QuestionID)
	}
	if res.Response.Payload != "https://cdn/rec1.wav" {
		t.Errorf("payload = %q", res.Response.Payload)
	}
	if !strings.Contains(res.Markup, "Question 2 of 2.") {
		t.Fatalf("expected second question, got:\n%s", res.Markup)
	}
	if res.Data.Cursor != 1 {
		t.Fatalf("cursor = %d, want 1", res.Data.Cursor)
	}
	apply(s, res)

	res = m.Step(ctx, s, voice.Event{Kind: voice.EventRecordingDone, RecordingURL: "https://cdn/rec2.wav", Duration: 15})
	if res.Response == nil || res.Response.QuestionID != 11 {
		t.Fatalf("second recording must bind question 11")
	}
	if res.State != domain.StateComplete || !res.Terminal {
		t.Fatalf("expected terminal complete, got %s", res.State)
	}
	if !strings.Contains(res.Markup, "Thank you for participating in our research") {
		t.Fatalf("expected completion script, got:\n%s", res.Markup)
	}
	if !strings.Contains(res.Markup, "<Hangup") {
		t.Fatalf("expected hangup")
	}
	if res.Data.Cursor != 2 {
		t.Fatalf("cursor = %d, want 2", res.Data.Cursor)
	}
}

func TestDuplicateRecordingIsIgnored(t *testing.T) {
	m := newMachine(twoQuestions())
	s := newCall()
	ctx := context.Background()

	apply(s, m.Step(ctx, s, voice.Event{Kind: voice.EventConnect}))
	apply(s, m.Step(ctx, s, voice.Event{Kind: voice.EventDigits, Digits: "1"}))

	first := m.Step(ctx, s, voice.Event{Kind: voice.EventRecordingDone, RecordingURL: "https://cdn/rec1.wav"})
	if first.Response == nil {
		t.Fatalf("first delivery must record")
	}
	apply(s, first)

	replay := m.Step(ctx, s, voice.Event{Kind: voice.EventRecordingDone, RecordingURL: "https://cdn/rec1.wav"})
	if replay.Response != nil {
		t.Fatalf("replayed recording must not create a second response")
	}
	if replay.Data != nil && replay.Data.Cursor != s.StateData.Voice.Cursor {
		t.Fatalf("replay moved the cursor")
	}
}

func TestRedeliveredEarlierRecordingIsIgnored(t *testing.T) {
	questions := []domain.Question{
		{ID: 10, Title: "Water Access", Text: "How far do you travel for clean water?", Language: "en"},
		{ID: 11, Title: "Health Services", Text: "How would you rate local health services?", Language: "en"},
		{ID: 12, Title: "Schooling", Text: "Do children in your area attend school regularly?", Language: "en"},
	}
	m := newMachine(questions)
	s := newCall()
	ctx := context.Background()

	apply(s, m.Step(ctx, s, voice.Event{Kind: voice.EventConnect}))
	apply(s, m.Step(ctx, s, voice.Event{Kind: voice.EventDigits, Digits: "1"}))

	apply(s, m.Step(ctx, s, voice.Event{Kind: voice.EventRecordingDone, RecordingURL: "https://cdn/rec1.wav"}))
	apply(s, m.Step(ctx, s, voice.Event{Kind: voice.EventRecordingDone, RecordingURL: "https://cdn/rec2.wav"}))

	// The gateway redelivers the first question's callback while question
	// three is pending.
	res := m.Step(ctx, s, voice.Event{Kind: voice.EventRecordingDone, RecordingURL: "https://cdn/rec1.wav"})
	if res.Response != nil {
		t.Fatalf("redelivered recording must not become the answer to question 3")
	}
	if res.Terminal {
		t.Fatalf("redelivered recording must not finalize the call")
	}
	apply(s, res)
	if s.StateData.Voice.Cursor != 2 {
		t.Fatalf("cursor = %d, want 2", s.StateData.Voice.Cursor)
	}
	if !strings.Contains(res.Markup, "Question 3 of 3.") {
		t.Fatalf("question 3 not re-prompted:\n%s", res.Markup)
	}

	res = m.Step(ctx, s, voice.Event{Kind: voice.EventRecordingDone, RecordingURL: "https://cdn/rec3.wav"})
	if res.Response == nil || res.Response.QuestionID != 12 {
		t.Fatalf("real third answer must still be accepted")
	}
	if res.State != domain.StateComplete || !res.Terminal {
		t.Fatalf("expected terminal complete, got %s", res.State)
	}
}

func TestCursorNeverDecreases(t *testing.T) {
	m := newMachine(twoQuestions())
	s := newCall()
	ctx := context.Background()

	apply(s, m.Step(ctx, s, voice.Event{Kind: voice.EventConnect}))
	apply(s, m.Step(ctx, s, voice.Event{Kind: voice.EventDigits, Digits: "1"}))

	last := 0
	events := []voice.Event{
		{Kind: voice.EventRecordingDone, RecordingURL: "https://cdn/a.wav"},
		{Kind: voice.EventRecordingDone, RecordingURL: "https://cdn/a.wav"},
		{Kind: voice.EventConnect},
		{Kind: voice.EventRecordingDone, RecordingURL: "https://cdn/b.wav"},
	}
	for i, ev := range events {
		res := m.Step(ctx, s, ev)
		apply(s, res)
		if s.StateData.Voice.Cursor < last {
			t.Fatalf("event %d decreased cursor %d -> %d", i, last, s.StateData.Voice.Cursor)
		}
		last = s.StateData.Voice.Cursor
	}
}

func TestExitDigitHangsUp(t *testing.T) {
	m := newMachine(nil)
	s := newCall()
	ctx := context.Background()

	apply(s, m.Step(ctx, s, voice.Event{Kind: voice.EventConnect}))
	res := m.Step(ctx, s, voice.Event{Kind: voice.EventDigits, Digits: "0"})

	if !res.Terminal {
		t.Fatalf("digit 0 must end the call")
	}
	if !strings.Contains(res.Markup, "Thank you for calling. Goodbye.") {
		t.Fatalf("expected goodbye, got:\n%s", res.Markup)
	}
}

func TestUnknownDigitReplaysMenu(t *testing.T) {
	m := newMachine(twoQuestions())
	s := newCall()
	ctx := context.Background()

	apply(s, m.Step(ctx, s, voice.Event{Kind: voice.EventConnect}))
	res := m.Step(ctx, s, voice.Event{Kind: voice.EventDigits, Digits: "7"})

	if res.Terminal || res.State != "" {
		t.Fatalf("unknown digit must stay in waiting_input")
	}
	if !strings.Contains(res.Markup, "Press 1 to answer research questions") {
		t.Fatalf("menu not replayed:\n%s", res.Markup)
	}
}

func TestNoQuestionsHangsUp(t *testing.T) {
	m := newMachine(nil)
	s := newCall()
	ctx := context.Background()

	apply(s, m.Step(ctx, s, voice.Event{Kind: voice.EventConnect}))
	res := m.Step(ctx, s, voice.Event{Kind: voice.EventDigits, Digits: "1"})

	if !res.Terminal {
		t.Fatalf("no questions must end the call")
	}
	if !strings.Contains(res.Markup, "No research questions available") {
		t.Fatalf("expected no-questions script:\n%s", res.Markup)
	}
}

func TestStatusFinalizesMidQuestions(t *testing.T) {
	m := newMachine(twoQuestions())
	s := newCall()
	ctx := context.Background()

	apply(s, m.Step(ctx, s, voice.Event{Kind: voice.EventConnect}))
	apply(s, m.Step(ctx, s, voice.Event{Kind: voice.EventDigits, Digits: "1"}))

	res := m.Step(ctx, s, voice.Event{Kind: voice.EventStatus, Status: "Failed", Duration: 42, HangupCause: "NETWORK_ERROR"})

	if !res.Terminal || res.State != domain.StateComplete {
		t.Fatalf("Failed status must finalize regardless of cursor")
	}
	if res.Markup != "" {
		t.Fatalf("status updates must not speak: %q", res.Markup)
	}
	if res.Data.Status != "Failed" || res.Data.Duration != 42 {
		t.Fatalf("status data not recorded: %+v", res.Data)
	}
}

func TestNonTerminalStatusKeepsCallAlive(t *testing.T) {
	m := newMachine(nil)
	s := newCall()

	res := m.Step(context.Background(), s, voice.Event{Kind: voice.EventStatus, Status: "Ringing"})

	if res.Terminal {
		t.Fatalf("Ringing must not finalize the call")
	}
	if res.Data.Status != "Ringing" {
		t.Fatalf("status not recorded")
	}
}

func TestTerminalStatus(t *testing.T) {
	for _, status := range []string{"Completed", "Failed", "Busy", "NoAnswer"} {
		if !voice.TerminalStatus(status) {
			t.Errorf("%s should be terminal", status)
		}
	}
	for _, status := range []string{"Ringing", "Answered", ""} {
		if voice.TerminalStatus(status) {
			t.Errorf("%s should not be terminal", status)
		}
	}
}

func TestMarkupEscapesText(t *testing.T) {
	out := voice.RenderMarkup(voice.Say{Voice: "woman", Text: "Fish & chips <now>"})

	if !strings.Contains(out, "Fish &amp; chips &lt;now&gt;") {
		t.Fatalf("text not escaped: %s", out)
	}
	if !strings.HasPrefix(out, "<?xml") {
		t.Fatalf("missing XML header: %s", out)
	}
}
