package models

import "time"

// FlowLog outcome values. Empty means no negative outcome (the flow is
// untouched, underway, or completed). A log never carries more than one
// outcome; the column replaces the three independent booleans the
// original data kept.
const (
	OutcomeNone      = ""
	OutcomeAbandoned = "abandoned"
	OutcomeMissed    = "missed"
	OutcomeSkipped   = "skipped"
)

// FlowLog records one triggering of a flow template on a given day.
// Created at trigger time with StepsDone=0, mutated as steps complete,
// and never mutated after completion or after an outcome is set.
type FlowLog struct {
	ID             string    `gorm:"primaryKey;size:36"`
	TemplateID     string    `gorm:"size:36;not null;index"`
	FlowName       string    `gorm:"size:128"`
	Day            string    `gorm:"size:10;not null;index"`
	TriggeredAt    time.Time `gorm:"not null"`
	AcknowledgedAt *time.Time
	CompletedAt    *time.Time
	StepsDone      int
	TotalSteps     int
	Outcome        string `gorm:"size:16;default:''"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsCompleted reports whether every step finished and no negative
// outcome was recorded. Acknowledging alone never completes a flow.
func (l *FlowLog) IsCompleted() bool {
	return l.TotalSteps > 0 && l.StepsDone >= l.TotalSteps && l.Outcome == OutcomeNone
}

// Closed reports whether the log can no longer change: completed or
// carrying a terminal outcome.
func (l *FlowLog) Closed() bool {
	return l.Outcome != OutcomeNone || l.CompletedAt != nil
}

// DayOf formats t as the calendar-day key used by FlowLog.Day.
func DayOf(t time.Time) string { return t.Format("2006-01-02") }
