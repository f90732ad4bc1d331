// Package httpapi exposes the gateway callback endpoints. Every handler
// answers HTTP 200 with a well-formed protocol reply; errors surface to
// the caller only as polite terminal messages.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okothc/sauti/internal/orchestrator"
)

func NewRouter(orch *orchestrator.Orchestrator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", health)

	r.Post("/ussd/callback", USSDCallback(orch))
	r.Post("/voice/callback", VoiceCallback(orch))
	r.Post("/voice/recording", VoiceRecording(orch))
	r.Post("/voice/status", VoiceStatus(orch))

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

func USSDCallback(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostFormValue("sessionId") == "" {
			log.Printf("ussd: malformed callback: %v", err)
			respondText(w, "END Sorry, there was an error processing your request. Please try again later.")
			return
		}

		reply := orch.HandleUSSD(r.Context(), orchestrator.USSDCallback{
			SessionID:   r.PostFormValue("sessionId"),
			ServiceCode: r.PostFormValue("serviceCode"),
			PhoneNumber: r.PostFormValue("phoneNumber"),
			Text:        r.PostFormValue("text"),
		})

		respondText(w, reply)
	}
}

func VoiceCallback(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostFormValue("sessionId") == "" {
			log.Printf("voice: malformed callback: %v", err)
			respondXML(w, safeHangupXML)
			return
		}

		markup := orch.HandleVoice(r.Context(), orchestrator.VoiceCallback{
			SessionID:   r.PostFormValue("sessionId"),
			PhoneNumber: r.PostFormValue("phoneNumber"),
			DTMFDigits:  r.PostFormValue("dtmfDigits"),
		})

		respondXML(w, markup)
	}
}

func VoiceRecording(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostFormValue("sessionId") == "" {
			log.Printf("voice: malformed recording callback: %v", err)
			respondXML(w, safeHangupXML)
			return
		}

		phone := r.PostFormValue("callerNumber")
		if phone == "" {
			phone = r.PostFormValue("phoneNumber")
		}

		markup := orch.HandleRecording(r.Context(), orchestrator.RecordingCallback{
			SessionID:    r.PostFormValue("sessionId"),
			PhoneNumber:  phone,
			RecordingURL: r.PostFormValue("recordingUrl"),
			Duration:     atoiOrZero(r.PostFormValue("durationInSeconds")),
		})

		respondXML(w, markup)
	}
}

func VoiceStatus(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostFormValue("sessionId") == "" {
			log.Printf("voice: malformed status callback: %v", err)
			respondJSON(w, map[string]string{"error": "malformed callback"}, http.StatusOK)
			return
		}

		err := orch.HandleStatus(r.Context(), orchestrator.StatusCallback{
			SessionID:   r.PostFormValue("sessionId"),
			Status:      r.PostFormValue("status"),
			Duration:    atoiOrZero(r.PostFormValue("durationInSeconds")),
			HangupCause: r.PostFormValue("hangupCause"),
		})
		if err != nil {
			respondJSON(w, map[string]any{"success": false}, http.StatusInternalServerError)
			return
		}

		respondJSON(w, map[string]any{"success": true}, http.StatusOK)
	}
}

// safeHangupXML is the last-resort reply when the callback shape is too
// broken to even reach the state machines.
const safeHangupXML = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
	`<Response><Say voice="woman">Sorry, there was an error. Please try again later.</Say><Hangup></Hangup></Response>`

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func respondText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func respondXML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
