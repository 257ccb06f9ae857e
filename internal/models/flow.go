package models

import "time"

// FlowTemplate is a multi-step guided routine, optionally bound to a
// daily safety window (WindowStart/WindowEnd as "HH:MM" clock times).
// A template is either a system default (seeded from config) or
// user-authored.
type FlowTemplate struct {
	ID              string `gorm:"primaryKey;size:36"`
	Name            string `gorm:"size:128;not null;uniqueIndex"`
	Category        string `gorm:"size:32;index"`
	System          bool
	Position        int    `gorm:"default:0"`
	WindowStart     string `gorm:"size:5"`
	WindowEnd       string `gorm:"size:5"`
	LastCompletedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Steps []FlowStep `gorm:"foreignKey:TemplateID"`
}

// HasWindow reports whether the template is bound to a safety window.
func (t *FlowTemplate) HasWindow() bool {
	return t.WindowStart != "" && t.WindowEnd != ""
}

// FlowStep is one ordered step of a flow template. Skippable steps are
// dropped when the template runs in cycle mode; Optional steps may be
// passed over by the user without counting against completion.
type FlowStep struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	TemplateID       string `gorm:"size:36;not null;index"`
	Position         int    `gorm:"not null"`
	Condition        string `gorm:"type:text"`
	Action           string `gorm:"type:text"`
	ActivityName     string `gorm:"size:128;not null"`
	EstimatedMinutes int
	Optional         bool
	Skippable        bool
}
