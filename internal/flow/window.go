// Package flow implements the guided-flow state machine: safety-window
// scheduling, per-day outcome logging, and the cycle-mode skip branch.
package flow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arielsw/dayflow/internal/models"
)

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (ClockTime, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("flow: bad clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return ClockTime{}, fmt.Errorf("flow: bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return ClockTime{}, fmt.Errorf("flow: bad minute in %q", s)
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

// Minutes returns the clock time as minutes after midnight.
func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Window is a recurring daily safety window bound to one flow template.
// Pure value type, evaluated against wall-clock time on every check;
// occurrences are never persisted.
type Window struct {
	TemplateID string
	Start      ClockTime
	End        ClockTime
}

// WindowOf builds the template's safety window, or nil when the template
// has none.
func WindowOf(t *models.FlowTemplate) (*Window, error) {
	if !t.HasWindow() {
		return nil, nil
	}
	start, err := ParseClock(t.WindowStart)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(t.WindowEnd)
	if err != nil {
		return nil, err
	}
	return &Window{TemplateID: t.ID, Start: start, End: end}, nil
}

// Contains reports whether now's clock time falls inside the window
// (start inclusive, end exclusive).
func (w *Window) Contains(now time.Time) bool {
	m := now.Hour()*60 + now.Minute()
	return m >= w.Start.Minutes() && m < w.End.Minutes()
}

// EndedBy reports whether today's occurrence of the window is already
// over at now.
func (w *Window) EndedBy(now time.Time) bool {
	m := now.Hour()*60 + now.Minute()
	return m >= w.End.Minutes()
}

func (w *Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}
