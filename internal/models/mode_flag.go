package models

import "time"

// Re-prompt bounds for cycle mode: once the cycle has run at least
// repromptMinDays the user is asked whether it still applies, at most
// once per day, and the question stops after repromptMaxDays.
const (
	repromptMinDays  = 5
	repromptMaxDays  = 10
	repromptCooldown = 24 * time.Hour
)

// ModeFlag is the per-owner cycle-mode toggle. While active, flow
// templates whose category is on the configured skip list divert to the
// skip branch instead of normal window enforcement. One row per owner;
// cross-device conflicts resolve by newest UpdatedAt.
type ModeFlag struct {
	Owner          string `gorm:"primaryKey;size:64"`
	Active         bool
	CycleStartedAt *time.Time
	LastPromptedAt *time.Time
	UpdatedAt      time.Time
}

// ShouldReprompt reports whether the owner should be asked if cycle mode
// still applies: 5-10 days into the cycle and not asked in the last day.
func (m *ModeFlag) ShouldReprompt(now time.Time) bool {
	if !m.Active || m.CycleStartedAt == nil {
		return false
	}
	age := now.Sub(*m.CycleStartedAt)
	if age < repromptMinDays*24*time.Hour || age > repromptMaxDays*24*time.Hour {
		return false
	}
	if m.LastPromptedAt != nil && now.Sub(*m.LastPromptedAt) < repromptCooldown {
		return false
	}
	return true
}

// Newer reports whether m's UpdatedAt is strictly later than other's.
func (m *ModeFlag) Newer(other *ModeFlag) bool {
	if other == nil {
		return true
	}
	return m.UpdatedAt.After(other.UpdatedAt)
}
