package flow

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/arielsw/dayflow/internal/activity"
	"github.com/arielsw/dayflow/internal/alarm"
	"github.com/arielsw/dayflow/internal/models"
	"github.com/arielsw/dayflow/internal/repo"
	"github.com/google/uuid"
)

// State is the live flow state machine state. Per-day terminal outcomes
// (missed, skipped, abandoned) live on the FlowLog, not here.
type State string

const (
	StateIdle       State = "idle"
	StateWaiting    State = "waiting"
	StateInProgress State = "in_progress"
)

// SkipDecision is a pending yes/no question exposed to the caller when a
// window opens for a skip-listed category while cycle mode is active.
// The caller resolves it through Coordinator.ResolveSkip; the state
// machine holds here instead of awaiting a UI callback.
type SkipDecision struct {
	TemplateID   string
	TemplateName string
	Question     string
}

// StepView is a read-only snapshot of the current step for callers.
type StepView struct {
	Index        int
	Total        int
	Condition    string
	Action       string
	ActivityName string
	Minutes      int
	Optional     bool
}

// Coordinator owns the guided-flow state machine. One flow may be live
// at a time, mirroring the single-activity rule; all entry points are
// serialized behind one mutex.
type Coordinator struct {
	repo   *repo.Repository
	acts   *activity.Coordinator
	alarms *alarm.Escalator
	pusher activity.EventPusher
	owner  string
	skip   map[string]bool
	clock  func() time.Time
	ctx    context.Context

	mu         sync.Mutex
	state      State
	tmpl       *models.FlowTemplate
	flowLog    *models.FlowLog
	steps      []models.FlowStep
	stepIdx    int
	prevStepID string // prior step's activity id, the chain context
	pending    *SkipDecision
	pendingDay string
	listeners  []func(State)
}

// New creates a flow Coordinator. skipCategories lists the flow
// categories diverted to the skip branch while cycle mode is active.
// pusher may be nil.
func New(r *repo.Repository, acts *activity.Coordinator, alarms *alarm.Escalator, owner string, skipCategories []string, pusher activity.EventPusher) *Coordinator {
	skip := make(map[string]bool, len(skipCategories))
	for _, c := range skipCategories {
		skip[c] = true
	}
	c := &Coordinator{
		repo:   r,
		acts:   acts,
		alarms: alarms,
		pusher: pusher,
		owner:  owner,
		skip:   skip,
		clock:  time.Now,
		ctx:    context.Background(),
		state:  StateIdle,
	}
	return c
}

// SetClock overrides the time source, for tests.
func (c *Coordinator) SetClock(clock func() time.Time) { c.clock = clock }

// SetContext sets the base context used for alarm delivery. Defaults to
// context.Background.
func (c *Coordinator) SetContext(ctx context.Context) { c.ctx = ctx }

// OnFlowStateChanged registers a listener invoked after every state
// change. Listeners run inline and must not call back into the
// coordinator.
func (c *Coordinator) OnFlowStateChanged(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Coordinator) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	for _, fn := range c.listeners {
		fn(s)
	}
}

// Evaluate runs one safety-window check: sweep stale logs, record missed
// windows, and open the first active window that has no log for today.
// Called by the daemon's minute tick and again on every app open, so a
// late open still sees the enforced prompt. Persistence failures are
// logged and retried on the next call.
func (c *Coordinator) Evaluate(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tmpls, err := c.repo.Templates()
	if err != nil {
		log.Printf("flow: evaluate: %v", err)
		return
	}

	c.expirePendingLocked(tmpls, now)
	c.sweepStaleLocked(now)
	c.sweepMissedLocked(tmpls, now)

	// One live flow at a time; a pending skip question also blocks.
	if c.state != StateIdle || c.pending != nil {
		return
	}

	mode, err := c.repo.ModeFlag(c.owner)
	if err != nil {
		log.Printf("flow: mode flag: %v", err)
		mode = &models.ModeFlag{Owner: c.owner}
	}

	day := models.DayOf(now)
	for i := range tmpls {
		t := &tmpls[i]
		w, err := WindowOf(t)
		if err != nil {
			log.Printf("flow: window of %s: %v", t.Name, err)
			continue
		}
		if w == nil || !w.Contains(now) {
			continue
		}
		existing, err := c.repo.FlowLogForDay(t.ID, day)
		if err != nil {
			log.Printf("flow: log lookup %s: %v", t.Name, err)
			continue
		}
		if existing != nil {
			continue // already triggered, missed, or skipped today
		}

		if mode.Active && c.skip[t.Category] {
			c.pending = &SkipDecision{
				TemplateID:   t.ID,
				TemplateName: t.Name,
				Question:     fmt.Sprintf("Cycle mode is on. Still skip %q today?", t.Name),
			}
			c.pendingDay = day
			return // first matching window wins
		}

		c.openLocked(t, w, now, false)
		return // first matching window wins
	}
}

// openLocked creates today's flow log and enters waiting with the alarm
// sounding. filtered drops skippable steps (the mixed-template skip
// branch).
func (c *Coordinator) openLocked(t *models.FlowTemplate, w *Window, now time.Time, filtered bool) {
	steps := effectiveSteps(t, filtered)
	if len(steps) == 0 {
		return
	}

	l := &models.FlowLog{
		ID:          uuid.NewString(),
		TemplateID:  t.ID,
		FlowName:    t.Name,
		Day:         models.DayOf(now),
		TriggeredAt: now,
		TotalSteps:  len(steps),
	}
	if err := c.repo.CreateFlowLog(l); err != nil {
		// Stay idle; the next tick retries the open.
		log.Printf("flow: create log for %s: %v", t.Name, err)
		return
	}

	c.tmpl = t
	c.flowLog = l
	c.steps = steps
	c.stepIdx = 0
	c.prevStepID = ""
	c.setStateLocked(StateWaiting)

	c.alarms.Trigger(c.ctx, t.ID,
		fmt.Sprintf("Dayflow: %s", t.Name),
		fmt.Sprintf("Safety window %s is active. Acknowledge to begin.", w))
}

func effectiveSteps(t *models.FlowTemplate, filtered bool) []models.FlowStep {
	if !filtered {
		return t.Steps
	}
	var out []models.FlowStep
	for _, s := range t.Steps {
		if !s.Skippable {
			out = append(out, s)
		}
	}
	return out
}

// Acknowledge is the "ON IT" transition: waiting to in-progress. The
// alarm is silenced, the acknowledgement is stamped on the log, and the
// step's activity starts as origin=guided with the prior step's activity
// as chain context.
func (c *Coordinator) Acknowledge() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateWaiting {
		return fmt.Errorf("flow: nothing awaiting acknowledgement")
	}

	now := c.clock()
	c.alarms.Acknowledge(c.tmpl.ID)

	if c.flowLog.AcknowledgedAt == nil {
		ack := now
		c.flowLog.AcknowledgedAt = &ack
		if err := c.repo.SaveFlowLog(c.flowLog); err != nil {
			log.Printf("flow: stamp acknowledgement: %v", err)
		}
	}

	step := c.steps[c.stepIdx]
	started, err := c.acts.Start(activity.StartOpts{
		Name:       step.ActivityName,
		Category:   c.tmpl.Category,
		Origin:     models.OriginGuided,
		FlowID:     c.tmpl.ID,
		PrevStepID: c.prevStepID,
	})
	if err != nil {
		log.Printf("flow: start step activity: %v", err)
	} else {
		c.prevStepID = started.ID
	}

	c.setStateLocked(StateInProgress)
	return nil
}

// CompleteStep marks the current step done: the step's activity stops,
// the log's counter advances, and the machine moves to waiting for the
// next step or to completed-and-idle after the last one.
func (c *Coordinator) CompleteStep() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress {
		return fmt.Errorf("flow: no step in progress")
	}

	if err := c.acts.Stop(); err != nil {
		log.Printf("flow: stop step activity: %v", err)
	}

	now := c.clock()
	c.flowLog.StepsDone++
	c.stepIdx++

	if c.stepIdx >= len(c.steps) {
		done := now
		c.flowLog.CompletedAt = &done
		if err := c.repo.SaveFlowLog(c.flowLog); err != nil {
			log.Printf("flow: save completed log: %v", err)
		}
		c.tmpl.LastCompletedAt = &done
		if err := c.repo.SaveTemplate(c.tmpl); err != nil {
			log.Printf("flow: stamp template completion: %v", err)
		}
		c.resetLocked()
		return nil
	}

	if err := c.repo.SaveFlowLog(c.flowLog); err != nil {
		log.Printf("flow: save log: %v", err)
	}
	c.setStateLocked(StateWaiting)
	return nil
}

// Pending returns the unresolved skip question, or nil.
func (c *Coordinator) Pending() *SkipDecision {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	cp := *c.pending
	return &cp
}

// ResolveSkip answers the pending skip question. Affirming logs the
// whole template as skipped, or triggers a filtered template when it
// mixes skippable and non-skippable steps. Denying deactivates cycle
// mode and runs the template normally, alarm included.
func (c *Coordinator) ResolveSkip(stillSkipping bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return fmt.Errorf("flow: no pending skip decision")
	}

	now := c.clock()
	tmplID := c.pending.TemplateID
	c.pending = nil
	c.pendingDay = ""

	t, err := c.templateByID(tmplID)
	if err != nil {
		return err
	}

	mode, err := c.repo.ModeFlag(c.owner)
	if err != nil {
		log.Printf("flow: mode flag: %v", err)
		mode = &models.ModeFlag{Owner: c.owner, Active: true}
	}
	prompted := now
	mode.LastPromptedAt = &prompted

	if !stillSkipping {
		mode.Active = false
		if err := c.repo.SaveModeFlag(mode); err != nil {
			log.Printf("flow: deactivate cycle mode: %v", err)
		}
		if c.pusher != nil {
			c.pusher.PushEvent(models.EventModeChanged, "off")
		}
		w, werr := WindowOf(t)
		if werr != nil || w == nil {
			return fmt.Errorf("flow: template %s has no window", t.Name)
		}
		c.openLocked(t, w, now, false)
		return nil
	}

	if err := c.repo.SaveModeFlag(mode); err != nil {
		log.Printf("flow: stamp mode prompt: %v", err)
	}

	remaining := effectiveSteps(t, true)
	if len(remaining) > 0 {
		w, werr := WindowOf(t)
		if werr != nil || w == nil {
			return fmt.Errorf("flow: template %s has no window", t.Name)
		}
		c.openLocked(t, w, now, true)
		return nil
	}

	// Every step is skippable: log the whole template as skipped. The
	// missed sweep will see the log and leave the day alone.
	l := &models.FlowLog{
		ID:          uuid.NewString(),
		TemplateID:  t.ID,
		FlowName:    t.Name,
		Day:         models.DayOf(now),
		TriggeredAt: now,
		TotalSteps:  len(t.Steps),
		Outcome:     models.OutcomeSkipped,
	}
	if err := c.repo.CreateFlowLog(l); err != nil {
		log.Printf("flow: log skip for %s: %v", t.Name, err)
	}
	return nil
}

func (c *Coordinator) templateByID(id string) (*models.FlowTemplate, error) {
	tmpls, err := c.repo.Templates()
	if err != nil {
		return nil, err
	}
	for i := range tmpls {
		if tmpls[i].ID == id {
			return &tmpls[i], nil
		}
	}
	return nil, fmt.Errorf("flow: template %s not found", id)
}

// expirePendingLocked drops a skip question left unanswered past its
// window or past midnight. The missed sweep then treats the window like
// any other unacknowledged one, and later windows can open again.
func (c *Coordinator) expirePendingLocked(tmpls []models.FlowTemplate, now time.Time) {
	if c.pending == nil {
		return
	}
	if models.DayOf(now) == c.pendingDay {
		for i := range tmpls {
			if tmpls[i].ID != c.pending.TemplateID {
				continue
			}
			w, err := WindowOf(&tmpls[i])
			if err == nil && w != nil && !w.EndedBy(now) {
				return // still answerable
			}
			break
		}
	}
	log.Printf("flow: skip question for %s expired unanswered", c.pending.TemplateName)
	c.pending = nil
	c.pendingDay = ""
}

// sweepMissedLocked records a missed outcome for every window that ended
// today without an acknowledgement. Acknowledged flows are never marked
// missed, even if unfinished.
func (c *Coordinator) sweepMissedLocked(tmpls []models.FlowTemplate, now time.Time) {
	day := models.DayOf(now)
	for i := range tmpls {
		t := &tmpls[i]
		w, err := WindowOf(t)
		if err != nil || w == nil || !w.EndedBy(now) {
			continue
		}

		l, err := c.repo.FlowLogForDay(t.ID, day)
		if err != nil {
			log.Printf("flow: missed sweep %s: %v", t.Name, err)
			continue
		}

		switch {
		case l == nil:
			miss := &models.FlowLog{
				ID:          uuid.NewString(),
				TemplateID:  t.ID,
				FlowName:    t.Name,
				Day:         day,
				TriggeredAt: now,
				TotalSteps:  len(t.Steps),
				Outcome:     models.OutcomeMissed,
			}
			if err := c.repo.CreateFlowLog(miss); err != nil {
				log.Printf("flow: record miss for %s: %v", t.Name, err)
			}
		case l.Closed() || l.AcknowledgedAt != nil:
			// Completed, already carries an outcome, or the user pressed
			// ON IT. Never missed.
		default:
			l.Outcome = models.OutcomeMissed
			if err := c.repo.SaveFlowLog(l); err != nil {
				log.Printf("flow: record miss for %s: %v", t.Name, err)
			}
			if c.flowLog != nil && c.flowLog.ID == l.ID {
				c.alarms.Acknowledge(t.ID)
				c.resetLocked()
			}
		}
	}
}

// sweepStaleLocked closes out logs left over from previous days: an
// acknowledged but unfinished flow is abandoned, an unacknowledged one
// missed. Also resets a live flow that crossed midnight.
func (c *Coordinator) sweepStaleLocked(now time.Time) {
	day := models.DayOf(now)

	if c.flowLog != nil && c.flowLog.Day != day {
		c.alarms.Acknowledge(c.flowLog.TemplateID)
		c.resetLocked()
	}

	stale, err := c.repo.OpenFlowLogsBefore(day)
	if err != nil {
		log.Printf("flow: stale sweep: %v", err)
		return
	}
	for i := range stale {
		l := &stale[i]
		if l.AcknowledgedAt != nil {
			l.Outcome = models.OutcomeAbandoned
		} else {
			l.Outcome = models.OutcomeMissed
		}
		if err := c.repo.SaveFlowLog(l); err != nil {
			log.Printf("flow: close stale log %s: %v", l.ID, err)
		}
	}
}

func (c *Coordinator) resetLocked() {
	c.tmpl = nil
	c.flowLog = nil
	c.steps = nil
	c.stepIdx = 0
	c.prevStepID = ""
	c.setStateLocked(StateIdle)
}

// State returns the live state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveFlowName returns the live template's name, or empty.
func (c *Coordinator) ActiveFlowName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tmpl == nil {
		return ""
	}
	return c.tmpl.Name
}

// CurrentStep returns a snapshot of the step the machine is on, or nil
// when idle.
func (c *Coordinator) CurrentStep() *StepView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tmpl == nil || c.stepIdx >= len(c.steps) {
		return nil
	}
	s := c.steps[c.stepIdx]
	return &StepView{
		Index:        c.stepIdx,
		Total:        len(c.steps),
		Condition:    s.Condition,
		Action:       s.Action,
		ActivityName: s.ActivityName,
		Minutes:      s.EstimatedMinutes,
		Optional:     s.Optional,
	}
}
