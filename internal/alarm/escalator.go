// Package alarm drives repeating, undismissable safety-window alerts
// until acknowledged.
package alarm

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultRepeatInterval is how often an unacknowledged alarm re-fires.
const DefaultRepeatInterval = 2 * time.Minute

// Alert is one alarm delivery.
type Alert struct {
	WindowID string
	Title    string
	Body     string
	Repeat   int // 0 for the initial fire, then 1, 2, ...
}

// Notifier delivers an alert through one channel (desktop command,
// Discord, Slack). Implementations must be safe for concurrent use.
type Notifier interface {
	Alert(ctx context.Context, a Alert) error
}

// Escalator repeats alarms for active safety windows until acknowledged.
// The only transition out of "alerting" is Acknowledge; there is no
// snooze and no per-fire dismissal.
type Escalator struct {
	notifiers []Notifier
	interval  time.Duration

	mu     sync.Mutex
	active map[string]chan struct{} // windowID -> stop channel
}

// New creates an Escalator fanning out to the given notifiers. A
// non-positive interval uses DefaultRepeatInterval.
func New(interval time.Duration, notifiers ...Notifier) *Escalator {
	if interval <= 0 {
		interval = DefaultRepeatInterval
	}
	return &Escalator{
		notifiers: notifiers,
		interval:  interval,
		active:    make(map[string]chan struct{}),
	}
}

// Trigger fires the alarm immediately and then re-fires every repeat
// interval until Acknowledge is called for the same window. Triggering
// an already-alerting window is a no-op.
func (e *Escalator) Trigger(ctx context.Context, windowID, title, body string) {
	e.mu.Lock()
	if _, alerting := e.active[windowID]; alerting {
		e.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	e.active[windowID] = stop
	e.mu.Unlock()

	e.fire(ctx, Alert{WindowID: windowID, Title: title, Body: body})

	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		repeat := 0
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				e.Acknowledge(windowID)
				return
			case <-ticker.C:
				repeat++
				e.fire(ctx, Alert{WindowID: windowID, Title: title, Body: body, Repeat: repeat})
			}
		}
	}()
}

// Acknowledge silences the window's alarm and cancels its repeat timer.
// Idempotent: acknowledging a window with no active alarm is a no-op.
func (e *Escalator) Acknowledge(windowID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	stop, alerting := e.active[windowID]
	if !alerting {
		return
	}
	delete(e.active, windowID)
	close(stop)
}

// Alerting reports whether the window currently has an active alarm.
func (e *Escalator) Alerting(windowID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[windowID]
	return ok
}

// ActiveWindows returns the IDs of all currently alerting windows.
func (e *Escalator) ActiveWindows() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.active))
	for id := range e.active {
		out = append(out, id)
	}
	return out
}

// Shutdown silences every active alarm. Used on daemon teardown so no
// repeat timer fires against disposed state.
func (e *Escalator) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, stop := range e.active {
		delete(e.active, id)
		close(stop)
	}
}

// fire fans the alert out to every notifier. A failing notifier is
// logged and skipped; the remaining channels still deliver, which is the
// audio-fails-fall-back-to-vibration rule generalized.
func (e *Escalator) fire(ctx context.Context, a Alert) {
	for _, n := range e.notifiers {
		if err := n.Alert(ctx, a); err != nil {
			log.Printf("alarm: notifier %T: %v", n, err)
		}
	}
}
