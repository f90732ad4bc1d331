// Package dispatch runs the fire-and-forget downstream work: AI
// enrichment of recorded answers and confirmation messaging. Nothing in
// here is allowed to touch the synchronous protocol reply path.
package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/okothc/sauti/internal/domain"
	"github.com/okothc/sauti/internal/storage"
)

// Enricher turns a recorded answer into a transcription and summary.
// Real speech-to-text and summarization live outside this service.
type Enricher interface {
	ProcessRecording(ctx context.Context, resp *domain.Response) (transcription, summary string, err error)
}

// Notifier sends the respondent a confirmation message.
type Notifier interface {
	SendThankYou(ctx context.Context, phoneNumber, language string, question domain.Question) error
}

type taskKind int

const (
	taskEnrichment taskKind = iota
	taskNotification
)

type task struct {
	kind        taskKind
	responseID  string
	phoneNumber string
	language    string
	question    domain.Question
}

// Dispatcher consumes tasks on worker goroutines. Enrichment is
// deduplicated by response id; a response is never enriched twice even if
// it gets enqueued again.
type Dispatcher struct {
	store    storage.Store
	enricher Enricher
	notifier Notifier

	tasks chan task
	stop  chan struct{}
	wg    sync.WaitGroup

	mu       sync.Mutex
	enriched map[string]bool
}

func NewDispatcher(store storage.Store, enricher Enricher, notifier Notifier, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	d := &Dispatcher{
		store:    store,
		enricher: enricher,
		notifier: notifier,
		tasks:    make(chan task, queueSize),
		stop:     make(chan struct{}),
		enriched: make(map[string]bool),
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

// EnqueueEnrichment schedules transcription+summary for a recorded
// response. Never blocks; a full queue drops the task with a log line.
func (d *Dispatcher) EnqueueEnrichment(responseID string) {
	d.enqueue(task{kind: taskEnrichment, responseID: responseID})
}

// EnqueueNotification schedules a thank-you message. Never blocks.
func (d *Dispatcher) EnqueueNotification(phoneNumber, language string, question domain.Question) {
	d.enqueue(task{
		kind:        taskNotification,
		phoneNumber: phoneNumber,
		language:    language,
		question:    question,
	})
}

func (d *Dispatcher) enqueue(t task) {
	select {
	case d.tasks <- t:
	default:
		log.Printf("dispatch: queue full, dropping task kind=%d response=%s", t.kind, t.responseID)
	}
}

// Stop drains nothing: queued work that has not started is abandoned.
func (d *Dispatcher) Stop() {
	close(d.stop)
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case t := <-d.tasks:
			d.run(t)
		case <-d.stop:
			return
		}
	}
}

func (d *Dispatcher) run(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch t.kind {
	case taskEnrichment:
		d.runEnrichment(ctx, t.responseID)
	case taskNotification:
		if err := d.notifier.SendThankYou(ctx, t.phoneNumber, t.language, t.question); err != nil {
			log.Printf("dispatch: thank-you notification failed for %s: %v", t.phoneNumber, err)
		}
	}
}

func (d *Dispatcher) runEnrichment(ctx context.Context, responseID string) {
	d.mu.Lock()
	if d.enriched[responseID] {
		d.mu.Unlock()
		return
	}
	d.enriched[responseID] = true
	d.mu.Unlock()

	resp, err := d.store.GetResponse(ctx, responseID)
	if err != nil {
		log.Printf("dispatch: load response %s: %v", responseID, err)
		d.unmark(responseID)
		return
	}

	transcription, summary, err := d.enricher.ProcessRecording(ctx, resp)
	if err != nil {
		log.Printf("dispatch: enrichment failed for response %s: %v", responseID, err)
		d.unmark(responseID)
		return
	}

	if err := d.store.SaveEnrichment(ctx, responseID, transcription, summary); err != nil {
		log.Printf("dispatch: save enrichment for response %s: %v", responseID, err)
		d.unmark(responseID)
	}
}

// unmark lets a failed response be retried on a later enqueue.
func (d *Dispatcher) unmark(responseID string) {
	d.mu.Lock()
	delete(d.enriched, responseID)
	d.mu.Unlock()
}
