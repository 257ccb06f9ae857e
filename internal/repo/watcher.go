package repo

import (
	"context"
	"log"
	"time"

	"github.com/arielsw/dayflow/internal/models"
)

// DefaultWatchInterval is how often the watch feed polls the remote
// store for running-activity changes.
const DefaultWatchInterval = 5 * time.Second

// RunningUpdate is one event from the running-activity watch feed.
// Activity is nil when the authoritative store reports nothing running:
// an explicit "none", not an error.
type RunningUpdate struct {
	Activity *models.Activity
}

// WatchRunningActivity polls the authoritative store for the owner's
// running activity and emits an update whenever the answer changes
// (including changes to "none"). The channel closes when ctx is
// cancelled. Poll failures are logged and skipped; the feed keeps going.
func (r *Repository) WatchRunningActivity(ctx context.Context, owner string, interval time.Duration) <-chan RunningUpdate {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	ch := make(chan RunningUpdate, 1)

	go func() {
		defer close(ch)

		// Sentinel so the first successful poll always emits, giving
		// subscribers an initial authoritative answer.
		lastID := "\x00unknown"

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			a, err := r.pollRunning(owner)
			if err != nil {
				log.Printf("repo: watch poll: %v", err)
			} else {
				id := ""
				if a != nil {
					id = a.ID
				}
				if id != lastID {
					lastID = id
					select {
					case ch <- RunningUpdate{Activity: a}:
					case <-ctx.Done():
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return ch
}

// pollRunning reads the running activity from the remote store so the
// watch feed reflects the authoritative answer. Offline-only setups fall
// back to the local store, which is then the only truth there is.
func (r *Repository) pollRunning(owner string) (*models.Activity, error) {
	if r.remote == nil {
		return runningIn(r.local, owner)
	}
	return runningIn(r.remote, owner)
}
