package orchestrator

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/okothc/sauti/internal/storage"
)

// StartSweeper runs the idle-session sweep until Stop is called. The
// gateway never cancels a session once a reply is sent, so abandoned
// sessions only ever end here.
func (o *Orchestrator) StartSweeper() {
	go func() {
		ticker := time.NewTicker(o.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				o.SweepIdle(context.Background())
			case <-o.stop:
				return
			}
		}
	}()
}

func (o *Orchestrator) Stop() {
	close(o.stop)
}

// SweepIdle force-finalizes sessions whose last activity is older than
// the idle timeout. Returns how many were finalized.
func (o *Orchestrator) SweepIdle(ctx context.Context) int {
	cutoff := time.Now().Add(-o.idleTimeout)

	idle, err := o.store.ListIdleSessions(ctx, cutoff)
	if err != nil {
		log.Printf("sweep: list idle sessions: %v", err)
		return 0
	}

	swept := 0
	for _, sess := range idle {
		release := o.locks.Lock(string(sess.Channel) + ":" + sess.ExternalID)

		// Re-read under the lock; a callback may have just landed.
		fresh, err := o.store.GetSession(ctx, sess.Channel, sess.ExternalID)
		if err != nil || !fresh.Active || fresh.LastActivity.After(cutoff) {
			release()
			continue
		}

		fresh.Finalize(time.Now())
		if err := o.store.UpdateSession(ctx, fresh, nil); err != nil {
			if !errors.Is(err, storage.ErrConflict) {
				log.Printf("sweep: finalize session %s: %v", fresh.ExternalID, err)
			}
			release()
			continue
		}

		o.cache.Delete(fresh.ExternalID)
		swept++
		release()
	}

	if swept > 0 {
		log.Printf("sweep: finalized %d idle sessions", swept)
	}
	return swept
}
