// Package orchestrator correlates raw gateway callbacks with session
// state, runs the channel state machine, persists the outcome, and
// queues downstream work off the reply path.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/okothc/sauti/internal/domain"
	"github.com/okothc/sauti/internal/storage"
	"github.com/okothc/sauti/internal/ussd"
	"github.com/okothc/sauti/internal/voice"
)

// Dispatcher is the fire-and-forget side of the house. Both calls must
// return immediately.
type Dispatcher interface {
	EnqueueEnrichment(responseID string)
	EnqueueNotification(phoneNumber, language string, question domain.Question)
}

type USSDCallback struct {
	SessionID   string
	ServiceCode string
	PhoneNumber string
	Text        string
}

type VoiceCallback struct {
	SessionID   string
	PhoneNumber string
	DTMFDigits  string
}

type RecordingCallback struct {
	SessionID    string
	PhoneNumber  string
	RecordingURL string
	Duration     int
}

type StatusCallback struct {
	SessionID   string
	Status      string
	Duration    int
	HangupCause string
}

type Orchestrator struct {
	store      storage.Store
	ussd       *ussd.Machine
	voice      *voice.Machine
	dispatcher Dispatcher
	locks      *sessionLocks
	cache      *callCache

	idleTimeout   time.Duration
	sweepInterval time.Duration
	stop          chan struct{}
}

type Option func(*Orchestrator)

func WithIdleTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.idleTimeout = d }
}

func WithSweepInterval(d time.Duration) Option {
	return func(o *Orchestrator) { o.sweepInterval = d }
}

func WithCacheSize(n int) Option {
	return func(o *Orchestrator) { o.cache = newCallCache(n) }
}

func New(store storage.Store, um *ussd.Machine, vm *voice.Machine, d Dispatcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:         store,
		ussd:          um,
		voice:         vm,
		dispatcher:    d,
		locks:         newSessionLocks(),
		cache:         newCallCache(0),
		idleTimeout:   10 * time.Minute,
		sweepInterval: 5 * time.Minute,
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleUSSD processes one USSD callback and returns the wire reply
// ("CON ..." or "END ..."). It never returns an error: every failure maps
// to a safe terminal page.
func (o *Orchestrator) HandleUSSD(ctx context.Context, cb USSDCallback) string {
	release := o.locks.Lock("ussd:" + cb.SessionID)
	defer release()

	sess, err := o.store.GetSession(ctx, domain.ChannelUSSD, cb.SessionID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if cb.Text != "" {
			// Late or replayed continuation for a session we never saw.
			log.Printf("ussd: continuation for unknown session %s", cb.SessionID)
			return o.ussd.Apology("en").Render()
		}
		sess = domain.NewSession(domain.ChannelUSSD, cb.SessionID, cb.PhoneNumber, cb.ServiceCode)
		if err := o.store.CreateSession(ctx, sess); err != nil {
			log.Printf("ussd: create session %s: %v", cb.SessionID, err)
			return o.ussd.Apology("en").Render()
		}
	case err != nil:
		log.Printf("ussd: load session %s: %v", cb.SessionID, err)
		return o.ussd.Apology("en").Render()
	}

	lang := sess.StateData.Language()
	if !sess.Active {
		log.Printf("ussd: callback for finalized session %s", cb.SessionID)
		return o.ussd.Apology(lang).Render()
	}

	res := o.ussd.Step(ctx, sess, cb.Text)

	now := time.Now()
	if res.State != "" && domain.ValidState(domain.ChannelUSSD, res.State) {
		sess.CurrentState = res.State
	}
	if res.Data != nil {
		sess.StateData.USSD = res.Data
	}
	sess.Touch(now)
	if res.Terminal {
		sess.Finalize(now)
	}

	if err := o.store.UpdateSession(ctx, sess, res.Response); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			log.Printf("ussd: concurrent transition lost for session %s", cb.SessionID)
		} else {
			log.Printf("ussd: persist session %s: %v", cb.SessionID, err)
		}
		return o.ussd.Apology(lang).Render()
	}

	if res.Response != nil && res.Notify != nil {
		o.dispatcher.EnqueueNotification(sess.PhoneNumber, lang, *res.Notify)
	}

	return res.Reply.Render()
}

// HandleVoice processes a call-connected or DTMF callback and returns
// call-control markup.
func (o *Orchestrator) HandleVoice(ctx context.Context, cb VoiceCallback) string {
	release := o.locks.Lock("voice:" + cb.SessionID)
	defer release()

	sess, err := o.loadCall(ctx, cb.SessionID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if cb.DTMFDigits != "" {
			log.Printf("voice: digits for unknown call %s", cb.SessionID)
			return o.voice.Goodbye("en")
		}
		sess = domain.NewSession(domain.ChannelVoice, cb.SessionID, cb.PhoneNumber, "inbound")
		if err := o.store.CreateSession(ctx, sess); err != nil {
			log.Printf("voice: create call %s: %v", cb.SessionID, err)
			return o.voice.Apology("en")
		}
	case err != nil:
		log.Printf("voice: load call %s: %v", cb.SessionID, err)
		return o.voice.Apology("en")
	}

	lang := sess.StateData.Language()
	if !sess.Active {
		log.Printf("voice: callback for finalized call %s", cb.SessionID)
		return o.voice.Goodbye(lang)
	}

	ev := voice.Event{Kind: voice.EventConnect}
	if cb.DTMFDigits != "" {
		ev = voice.Event{Kind: voice.EventDigits, Digits: cb.DTMFDigits}
	}

	markup, ok := o.applyVoice(ctx, sess, ev)
	if !ok {
		return o.voice.Apology(lang)
	}
	return markup
}

// HandleRecording processes a recording-completion callback. Accepted
// recordings append a Response and queue enrichment.
func (o *Orchestrator) HandleRecording(ctx context.Context, cb RecordingCallback) string {
	release := o.locks.Lock("voice:" + cb.SessionID)
	defer release()

	sess, err := o.loadCall(ctx, cb.SessionID)
	if err != nil {
		log.Printf("voice: recording for unknown call %s: %v", cb.SessionID, err)
		return o.voice.Goodbye("en")
	}

	lang := sess.StateData.Language()
	if !sess.Active {
		log.Printf("voice: recording for finalized call %s", cb.SessionID)
		return o.voice.Goodbye(lang)
	}

	ev := voice.Event{
		Kind:         voice.EventRecordingDone,
		RecordingURL: cb.RecordingURL,
		Duration:     cb.Duration,
	}

	markup, ok := o.applyVoice(ctx, sess, ev)
	if !ok {
		return o.voice.Apology(lang)
	}
	return markup
}

// HandleStatus processes a provider call-status callback. Terminal
// statuses finalize the session whatever navigation state it was in; the
// call has already ended, so nothing is spoken.
func (o *Orchestrator) HandleStatus(ctx context.Context, cb StatusCallback) error {
	release := o.locks.Lock("voice:" + cb.SessionID)
	defer release()

	sess, err := o.loadCall(ctx, cb.SessionID)
	if err != nil {
		log.Printf("voice: status %s for unknown call %s", cb.Status, cb.SessionID)
		return nil
	}
	if !sess.Active {
		return nil
	}

	ev := voice.Event{
		Kind:        voice.EventStatus,
		Status:      cb.Status,
		Duration:    cb.Duration,
		HangupCause: cb.HangupCause,
	}

	if _, ok := o.applyVoice(ctx, sess, ev); !ok {
		return errors.New("status update not persisted")
	}
	return nil
}

// loadCall prefers the in-process cache; the durable store is the source
// of truth on any miss.
func (o *Orchestrator) loadCall(ctx context.Context, externalID string) (*domain.Session, error) {
	if sess, ok := o.cache.Get(externalID); ok {
		return sess, nil
	}
	return o.store.GetSession(ctx, domain.ChannelVoice, externalID)
}

// applyVoice runs one voice transition, persists it, and maintains the
// call cache and downstream queues. Returns ok=false on a failed write.
func (o *Orchestrator) applyVoice(ctx context.Context, sess *domain.Session, ev voice.Event) (string, bool) {
	res := o.voice.Step(ctx, sess, ev)

	now := time.Now()
	if res.State != "" && domain.ValidState(domain.ChannelVoice, res.State) {
		sess.CurrentState = res.State
	}
	if res.Data != nil {
		sess.StateData.Voice = res.Data
	}
	sess.Touch(now)
	if res.Terminal {
		sess.Finalize(now)
	}

	if err := o.store.UpdateSession(ctx, sess, res.Response); err != nil {
		o.cache.Delete(sess.ExternalID)
		if errors.Is(err, storage.ErrConflict) {
			log.Printf("voice: concurrent transition lost for call %s", sess.ExternalID)
		} else {
			log.Printf("voice: persist call %s: %v", sess.ExternalID, err)
		}
		return "", false
	}

	if res.Terminal {
		o.cache.Delete(sess.ExternalID)
	} else {
		o.cache.Put(sess)
	}

	if res.Response != nil {
		o.dispatcher.EnqueueEnrichment(res.Response.ID)
	}

	return res.Markup, true
}
