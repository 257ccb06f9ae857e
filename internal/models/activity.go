package models

import "time"

// Activity origin tags.
const (
	OriginManual = "manual"
	OriginGuided = "guided"
	OriginAdhoc  = "adhoc"
)

// GhostAge is how long an activity may stay running before it is
// considered a ghost and force-closed at startup.
const GhostAge = 24 * time.Hour

// GhostDuration is the conservative duration assigned to a force-closed
// ghost activity. The real elapsed time is unknowable by then.
const GhostDuration = time.Hour

// Activity is a contiguous span of user-declared work or rest.
// At most one Activity per owner may have Running=true at any instant,
// globally across devices.
type Activity struct {
	ID            string    `gorm:"primaryKey;size:36"`
	Owner         string    `gorm:"size:64;not null;index"`
	Name          string    `gorm:"size:128;not null"`
	Category      string    `gorm:"size:32;index"`
	Origin        string    `gorm:"size:16;default:manual"`
	FlowID        *string   `gorm:"size:36"`
	PrevStepID    *string   `gorm:"size:36"`
	StartedAt     time.Time `gorm:"not null;index"`
	EndedAt       *time.Time
	Running       bool `gorm:"index"`
	Paused        bool
	PausedSeconds int64
	PausedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	PauseLogs []PauseLog `gorm:"foreignKey:ActivityID"`
}

// Duration returns elapsed time minus accumulated pauses. For a running
// activity the end is taken as now; an in-flight pause is counted up to
// now as well. Never negative.
func (a *Activity) Duration(now time.Time) time.Duration {
	end := now
	if a.EndedAt != nil {
		end = *a.EndedAt
	}
	paused := time.Duration(a.PausedSeconds) * time.Second
	if a.Paused && a.PausedAt != nil && a.PausedAt.Before(end) {
		paused += end.Sub(*a.PausedAt)
	}
	d := end.Sub(a.StartedAt) - paused
	if d < 0 {
		return 0
	}
	return d
}

// IsGhost reports whether the activity has been running longer than
// GhostAge as of now.
func (a *Activity) IsGhost(now time.Time) bool {
	return a.Running && now.Sub(a.StartedAt) > GhostAge
}
