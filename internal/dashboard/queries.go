package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/arielsw/dayflow/internal/models"
	"github.com/arielsw/dayflow/internal/repo"
)

// ActivityInfo is the status view of the current activity.
type ActivityInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Origin    string `json:"origin"`
	Paused    bool   `json:"paused"`
	PausedFor string `json:"paused_for,omitempty"`
	Started   string `json:"started"`
	Elapsed   string `json:"elapsed"`
}

// FlowInfo is the status view of the live flow state machine.
type FlowInfo struct {
	State        string `json:"state"`
	Name         string `json:"name,omitempty"`
	StepIndex    int    `json:"step_index,omitempty"`
	StepTotal    int    `json:"step_total,omitempty"`
	StepActivity string `json:"step_activity,omitempty"`
	StepAction   string `json:"step_action,omitempty"`
	Pending      string `json:"pending_question,omitempty"`
}

// StatusInfo aggregates everything the status command and dashboard show.
type StatusInfo struct {
	Owner      string        `json:"owner"`
	Activity   *ActivityInfo `json:"activity"`
	Flow       FlowInfo      `json:"flow"`
	Alerting   []string      `json:"alerting,omitempty"`
	ModeActive bool          `json:"mode_active"`
	Reprompt   bool          `json:"mode_reprompt"`
}

// Status builds the aggregated status view. Coordinator-backed fields
// degrade gracefully when the daemon components aren't wired (direct CLI
// reads): the repository alone still answers what is running.
func Status(opts StartOpts) (*StatusInfo, error) {
	now := time.Now()
	info := &StatusInfo{Owner: opts.Owner, Flow: FlowInfo{State: "idle"}}

	var current *models.Activity
	if opts.Acts != nil {
		current, _ = opts.Acts.Refresh()
	} else {
		var err error
		current, err = opts.Repo.RunningActivity(opts.Owner)
		if err != nil {
			return nil, err
		}
	}
	if current != nil {
		info.Activity = &ActivityInfo{
			ID:       current.ID,
			Name:     current.Name,
			Category: current.Category,
			Origin:   current.Origin,
			Paused:   current.Paused,
			Started:  current.StartedAt.Local().Format("15:04:05"),
			Elapsed:  current.Duration(now.UTC()).Round(time.Second).String(),
		}
		if current.Paused && current.PausedAt != nil {
			info.Activity.PausedFor = now.UTC().Sub(*current.PausedAt).Round(time.Second).String()
		}
	}

	if opts.Flows != nil {
		info.Flow.State = string(opts.Flows.State())
		info.Flow.Name = opts.Flows.ActiveFlowName()
		if step := opts.Flows.CurrentStep(); step != nil {
			info.Flow.StepIndex = step.Index + 1
			info.Flow.StepTotal = step.Total
			info.Flow.StepActivity = step.ActivityName
			info.Flow.StepAction = step.Action
		}
		if p := opts.Flows.Pending(); p != nil {
			info.Flow.Pending = p.Question
		}
	}

	if opts.Alarms != nil {
		info.Alerting = opts.Alarms.ActiveWindows()
	}

	if mode, err := opts.Repo.ModeFlag(opts.Owner); err == nil {
		info.ModeActive = mode.Active
		info.Reprompt = mode.ShouldReprompt(now)
	}

	return info, nil
}

// FormatStatus renders a StatusInfo for terminal output.
func FormatStatus(info *StatusInfo) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Dayflow status for %s\n\n", info.Owner)

	if info.Activity == nil {
		b.WriteString("Activity:  none running\n")
	} else {
		state := "running"
		if info.Activity.Paused {
			state = "paused"
			if info.Activity.PausedFor != "" {
				state = "paused " + info.Activity.PausedFor
			}
		}
		fmt.Fprintf(&b, "Activity:  %s (%s) - %s, started %s, elapsed %s\n",
			info.Activity.Name, info.Activity.Category, state,
			info.Activity.Started, info.Activity.Elapsed)
	}

	fmt.Fprintf(&b, "Flow:      %s", info.Flow.State)
	if info.Flow.Name != "" {
		fmt.Fprintf(&b, " - %s", info.Flow.Name)
		if info.Flow.StepTotal > 0 {
			fmt.Fprintf(&b, " (step %d/%d: %s)", info.Flow.StepIndex, info.Flow.StepTotal, info.Flow.StepActivity)
		}
	}
	b.WriteString("\n")

	if info.Flow.Pending != "" {
		fmt.Fprintf(&b, "Pending:   %s (answer with `dayflow flow skip --yes|--no`)\n", info.Flow.Pending)
	}
	if len(info.Alerting) > 0 {
		fmt.Fprintf(&b, "Alarms:    %d window(s) sounding\n", len(info.Alerting))
	}

	mode := "off"
	if info.ModeActive {
		mode = "on"
	}
	fmt.Fprintf(&b, "Cycle mode: %s", mode)
	if info.Reprompt {
		b.WriteString(" (due for re-check: still applicable?)")
	}
	b.WriteString("\n")

	return b.String()
}

// todayFlowLogs returns today's flow logs.
func todayFlowLogs(r *repo.Repository) ([]models.FlowLog, error) {
	return r.FlowLogsForDate(models.DayOf(time.Now()))
}

// todayActivities returns today's activities for the owner.
func todayActivities(r *repo.Repository, owner string) ([]models.Activity, error) {
	return r.ActivitiesForDate(owner, time.Now())
}
