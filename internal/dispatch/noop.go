package dispatch

import (
	"context"
	"log"

	"github.com/okothc/sauti/internal/domain"
)

// LogEnricher stands in when no AI backend is configured. It records an
// empty transcription so the response is still marked processed.
type LogEnricher struct{}

func (LogEnricher) ProcessRecording(_ context.Context, resp *domain.Response) (string, string, error) {
	log.Printf("enrichment: no backend configured, skipping response %s (%s)", resp.ID, resp.Payload)
	return "", "", nil
}

// LogDialer stands in when no telephony gateway is configured for
// outbound calls.
type LogDialer struct{}

func (LogDialer) PlaceCall(_ context.Context, phoneNumber, language string) error {
	log.Printf("dialer: would place outbound call to %s lang=%s", phoneNumber, language)
	return nil
}

// LogNotifier stands in when no messaging gateway is configured.
type LogNotifier struct{}

func (LogNotifier) SendThankYou(_ context.Context, phoneNumber, language string, question domain.Question) error {
	log.Printf("notify: would send thank-you to %s lang=%s question=%q", phoneNumber, language, question.Title)
	return nil
}
