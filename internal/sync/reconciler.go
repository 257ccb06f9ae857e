// Package sync reconciles the local cache against the remote
// authoritative store. The remote answer for "what is running" always
// wins, including an explicit "nothing"; local mutations are pushed
// opportunistically as queued best-effort events. Cross-device races are
// resolved by re-adopting the server record on every read and watch
// event, not by locking: two devices may briefly both believe they won
// a start, and the next reconciliation settles it.
package sync

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/arielsw/dayflow/internal/activity"
	"github.com/arielsw/dayflow/internal/models"
	"github.com/arielsw/dayflow/internal/repo"
	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued events are pushed in Run.
const DefaultFlushInterval = 30 * time.Second

// Reconciler keeps local and remote state agreeing. It never mutates the
// activity cache directly; it calls the coordinator's Adopt/Clear entry
// points so there is one writer.
type Reconciler struct {
	repo   *repo.Repository
	acts   *activity.Coordinator
	owner  string
	device string
	clock  func() time.Time
}

// New creates a Reconciler.
func New(r *repo.Repository, acts *activity.Coordinator, owner, device string) *Reconciler {
	return &Reconciler{
		repo:   r,
		acts:   acts,
		owner:  owner,
		device: device,
		clock:  time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (r *Reconciler) SetClock(clock func() time.Time) { r.clock = clock }

// PushEvent queues a best-effort sync hint and tries to flush it
// immediately. Never blocks the caller on remote availability; a failed
// flush leaves the event queued for the next opportunity.
func (r *Reconciler) PushEvent(kind, payload string) {
	ev := models.SyncEvent{
		Owner:   r.owner,
		Device:  r.device,
		Kind:    kind,
		Payload: payload,
	}
	if err := r.repo.Local().Create(&ev).Error; err != nil {
		log.Printf("sync: queue event %s: %v", kind, err)
		return
	}
	go func() {
		if _, err := r.Flush(); err != nil {
			log.Printf("sync: flush after %s: %v", kind, err)
		}
	}()
}

// Flush pushes all queued events to the remote store, marking each sent.
// Returns how many were delivered.
func (r *Reconciler) Flush() (int, error) {
	if !r.repo.HasRemote() {
		return 0, nil
	}

	var pending []models.SyncEvent
	err := r.repo.Local().Where("owner = ? AND sent_at IS NULL", r.owner).
		Order("created_at ASC").Find(&pending).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range pending {
		ev := pending[i]
		remote := ev
		remote.ID = 0 // remote assigns its own id
		now := r.clock()
		remote.SentAt = &now
		if err := r.repo.Remote().Create(&remote).Error; err != nil {
			// Stop at the first failure; order is part of the hint.
			return sent, err
		}
		ev.SentAt = &now
		if err := r.repo.Local().Save(&ev).Error; err != nil {
			log.Printf("sync: mark event %d sent: %v", ev.ID, err)
		}
		sent++
	}
	return sent, nil
}

// FullSync pulls the authoritative running-activity record and adopts it
// unconditionally; a missing remote record clears any stale local
// cache. It also reconciles the mode flag by newest timestamp and
// flushes queued events. Used by explicit "sync now" actions and at
// daemon start.
func (r *Reconciler) FullSync(ctx context.Context) error {
	if r.repo.HasRemote() {
		running, err := runningRemote(r.repo, r.owner)
		if err != nil {
			return err
		}
		r.acts.Adopt(running) // nil clears: server-says-none wins
	}

	if err := r.ResolveModeFlag(); err != nil {
		log.Printf("sync: mode flag: %v", err)
	}

	if n, err := r.Flush(); err != nil {
		log.Printf("sync: flush: %v", err)
	} else if n > 0 {
		log.Printf("sync: pushed %d queued events", n)
	}
	return ctx.Err()
}

// runningRemote reads the running activity from the remote store only.
func runningRemote(r *repo.Repository, owner string) (*models.Activity, error) {
	var a models.Activity
	err := r.Remote().Where("owner = ? AND running = ?", owner, true).
		Order("started_at DESC").First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ResolveModeFlag settles a two-sided mode flag edit: the record with
// the later updated-at timestamp wins in full. Field-level merge is not
// attempted.
func (r *Reconciler) ResolveModeFlag() error {
	local, err := r.repo.ModeFlag(r.owner)
	if err != nil {
		return err
	}
	remote, err := r.repo.RemoteModeFlag(r.owner)
	if err != nil {
		return err
	}
	if remote == nil {
		return nil
	}
	if remote.Newer(local) {
		return r.repo.SaveModeFlagLocal(remote)
	}
	return r.repo.SaveModeFlag(local)
}

// Run consumes the running-activity watch feed until ctx is cancelled,
// adopting every update, and flushes queued events periodically.
func (r *Reconciler) Run(ctx context.Context, watchInterval time.Duration) {
	updates := r.repo.WatchRunningActivity(ctx, r.owner, watchInterval)

	flush := time.NewTicker(DefaultFlushInterval)
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			// Adopt handles both cases: a record means a (possibly
			// different) runner; nil means the server says none.
			r.acts.Adopt(u.Activity)
		case <-flush.C:
			if _, err := r.Flush(); err != nil {
				log.Printf("sync: periodic flush: %v", err)
			}
			if err := r.ResolveModeFlag(); err != nil {
				log.Printf("sync: periodic mode flag: %v", err)
			}
		}
	}
}
