// Package activity owns the current-activity invariant: at most one
// running activity per owner, pause/resume accounting, and ghost-session
// cleanup.
package activity

import (
	"log"
	"sync"
	"time"

	"github.com/arielsw/dayflow/internal/models"
	"github.com/arielsw/dayflow/internal/repo"
	"github.com/google/uuid"
)

// EventPusher receives best-effort sync hints. Pushes never block or
// fail the calling operation.
type EventPusher interface {
	PushEvent(kind, payload string)
}

// nopPusher is used when no reconciler is wired (e.g. offline commands).
type nopPusher struct{}

func (nopPusher) PushEvent(string, string) {}

// Coordinator owns the cached current-activity reference. All lifecycle
// operations are serialized behind one mutex because they read then
// write the same reference.
type Coordinator struct {
	repo   *repo.Repository
	owner  string
	pusher EventPusher
	clock  func() time.Time

	mu        sync.Mutex
	current   *models.Activity
	sanitized bool
	listeners []func(*models.Activity)
}

// StartOpts holds parameters for starting an activity.
type StartOpts struct {
	Name       string
	Category   string
	Origin     string
	FlowID     string // originating flow template, for guided activities
	PrevStepID string // chain back-reference to the prior step's activity
}

// New creates a Coordinator for one owner. pusher may be nil.
func New(r *repo.Repository, owner string, pusher EventPusher) *Coordinator {
	if pusher == nil {
		pusher = nopPusher{}
	}
	return &Coordinator{
		repo:   r,
		owner:  owner,
		pusher: pusher,
		clock:  time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (c *Coordinator) SetClock(clock func() time.Time) { c.clock = clock }

// SetPusher wires the sync pusher after construction. The coordinator
// and reconciler reference each other, so one of them is attached late.
func (c *Coordinator) SetPusher(p EventPusher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p == nil {
		p = nopPusher{}
	}
	c.pusher = p
}

// OnActivityChanged registers a listener invoked with the new current
// activity (nil when cleared) after every change. Listeners run inline;
// they must not call back into the coordinator.
func (c *Coordinator) OnActivityChanged(fn func(*models.Activity)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Coordinator) notifyLocked() {
	snap := c.snapshotLocked()
	for _, fn := range c.listeners {
		fn(snap)
	}
}

func (c *Coordinator) snapshotLocked() *models.Activity {
	if c.current == nil {
		return nil
	}
	cp := *c.current
	return &cp
}

// SanitizeGhosts force-closes activities still flagged running more than
// 24 hours after their start: end = start + 1h, running = false. It must
// complete before any lifecycle operation; Start/Stop/Pause/Resume run
// it lazily if it hasn't happened yet.
func (c *Coordinator) SanitizeGhosts() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sanitizeLocked()
}

func (c *Coordinator) sanitizeLocked() error {
	if c.sanitized {
		return nil
	}
	now := c.clock().UTC()
	ghosts, err := c.repo.RunningOlderThan(c.owner, now.Add(-models.GhostAge))
	if err != nil {
		return err
	}
	for i := range ghosts {
		g := &ghosts[i]
		end := g.StartedAt.Add(models.GhostDuration)
		g.EndedAt = &end
		g.Running = false
		g.Paused = false
		g.PausedAt = nil
		if err := c.repo.SaveActivity(g); err != nil {
			return err
		}
		log.Printf("activity: closed ghost %s (%s, started %s)", g.ID, g.Name, g.StartedAt.Format(time.RFC3339))
	}
	c.sanitized = true
	return nil
}

// Start begins a new activity. If one is already running it is stopped
// first: starting always wins. The new record goes through the
// read-after-write path so the cached reference is the server-confirmed
// row.
func (c *Coordinator) Start(opts StartOpts) (*models.Activity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sanitizeLocked(); err != nil {
		log.Printf("activity: ghost sweep: %v", err)
	}

	// Re-adopt any server-known runner before enforcing single-running,
	// so a start on this device closes a runner begun elsewhere too.
	if c.current == nil {
		if running, err := c.repo.RunningActivity(c.owner); err == nil && running != nil {
			c.current = running
		}
	}

	if c.current != nil {
		if err := c.stopLocked(); err != nil {
			return nil, err
		}
	}

	origin := opts.Origin
	if origin == "" {
		origin = models.OriginManual
	}

	now := c.clock().UTC()
	a := &models.Activity{
		ID:        uuid.NewString(),
		Owner:     c.owner,
		Name:      opts.Name,
		Category:  opts.Category,
		Origin:    origin,
		StartedAt: now,
		Running:   true,
	}
	if opts.FlowID != "" {
		a.FlowID = &opts.FlowID
	}
	if opts.PrevStepID != "" {
		a.PrevStepID = &opts.PrevStepID
	}

	confirmed, err := c.repo.CreateActivityDirect(a)
	if err != nil {
		return nil, err
	}
	c.current = confirmed
	c.notifyLocked()
	c.pusher.PushEvent(models.EventActivityStarted, confirmed.ID)
	return c.snapshotLocked(), nil
}

// Stop ends the current activity. No-op when nothing is running. The end
// time and running flag are persisted before the call returns; there is
// no observable state with running=true and a non-nil end.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sanitizeLocked(); err != nil {
		log.Printf("activity: ghost sweep: %v", err)
	}
	if c.current == nil {
		return nil
	}
	return c.stopLocked()
}

func (c *Coordinator) stopLocked() error {
	a := c.current
	now := c.clock().UTC()

	if a.Paused && a.PausedAt != nil {
		a.PausedSeconds += int64(now.Sub(*a.PausedAt) / time.Second)
		a.Paused = false
		a.PausedAt = nil
		c.closeOpenPauseLog(a.ID, now)
	}

	end := now
	a.EndedAt = &end
	a.Running = false

	if err := c.repo.SaveActivity(a); err != nil {
		return err
	}

	stoppedID := a.ID
	c.current = nil
	c.notifyLocked()
	c.pusher.PushEvent(models.EventActivityDone, stoppedID)
	return nil
}

// Pause suspends the current activity. No-op unless running and not
// already paused.
func (c *Coordinator) Pause(reason, note string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sanitizeLocked(); err != nil {
		log.Printf("activity: ghost sweep: %v", err)
	}
	a := c.current
	if a == nil || a.Paused {
		return nil
	}

	if reason == "" {
		reason = models.PauseReasonOther
	}
	now := c.clock().UTC()

	if _, err := c.repo.CreatePauseLog(&models.PauseLog{
		ActivityID: a.ID,
		PausedAt:   now,
		Reason:     reason,
		Note:       note,
	}); err != nil {
		log.Printf("activity: create pause log: %v", err)
	}

	a.Paused = true
	a.PausedAt = &now
	if err := c.repo.SaveActivity(a); err != nil {
		return err
	}
	c.notifyLocked()
	c.pusher.PushEvent(models.EventPaused, a.ID)
	return nil
}

// Resume ends the current pause interval, folding its whole seconds into
// the accumulated pause counter. No-op unless paused.
func (c *Coordinator) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sanitizeLocked(); err != nil {
		log.Printf("activity: ghost sweep: %v", err)
	}
	a := c.current
	if a == nil || !a.Paused {
		return nil
	}

	now := c.clock().UTC()
	if a.PausedAt != nil {
		a.PausedSeconds += int64(now.Sub(*a.PausedAt) / time.Second)
	}
	a.Paused = false
	a.PausedAt = nil
	c.closeOpenPauseLog(a.ID, now)

	if err := c.repo.SaveActivity(a); err != nil {
		return err
	}
	c.notifyLocked()
	c.pusher.PushEvent(models.EventResumed, a.ID)
	return nil
}

// closeOpenPauseLog closes the activity's open pause interval, if any.
// Best-effort: a missing or unsaveable log is diagnostic, not fatal.
func (c *Coordinator) closeOpenPauseLog(activityID string, resumedAt time.Time) {
	p, err := c.repo.OpenPauseLog(activityID)
	if err != nil {
		log.Printf("activity: open pause log: %v", err)
		return
	}
	if p == nil {
		return
	}
	p.ResumedAt = &resumedAt
	if err := c.repo.SavePauseLog(p); err != nil {
		log.Printf("activity: close pause log: %v", err)
	}
}

// Adopt overwrites the cached current activity with a server-confirmed
// record. Called by the sync reconciler; the coordinator stays the only
// writer of the reference.
func (c *Coordinator) Adopt(a *models.Activity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a == nil {
		c.clearLocked()
		return
	}
	if c.current != nil && c.current.ID == a.ID {
		c.current = a
		return
	}
	c.current = a
	c.notifyLocked()
}

// Clear drops the cached current activity without writing anything: the
// server said nothing is running, so the cache was a ghost session.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Coordinator) clearLocked() {
	if c.current == nil {
		return
	}
	c.current = nil
	c.notifyLocked()
}

// Current returns a copy of the cached current activity, or nil.
func (c *Coordinator) Current() *models.Activity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Refresh re-reads the running activity from the repository and adopts
// the answer, including "none". Used by read paths that must defer to
// the authoritative store.
func (c *Coordinator) Refresh() (*models.Activity, error) {
	running, err := c.repo.RunningActivity(c.owner)
	if err != nil {
		return c.Current(), err
	}
	c.Adopt(running)
	return c.Current(), nil
}

// Elapsed returns the current activity's pause-adjusted elapsed time, or
// zero when nothing is running.
func (c *Coordinator) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return 0
	}
	return c.current.Duration(c.clock().UTC())
}

// PausedFor returns how long the current in-flight pause has lasted, or
// zero when nothing is paused.
func (c *Coordinator) PausedFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || !c.current.Paused || c.current.PausedAt == nil {
		return 0
	}
	return c.clock().UTC().Sub(*c.current.PausedAt)
}
