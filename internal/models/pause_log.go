package models

import "time"

// Pause reason tags.
const (
	PauseReasonBreak     = "break"
	PauseReasonInterrupt = "interrupt"
	PauseReasonPrayer    = "prayer"
	PauseReasonOther     = "other"
)

// PauseLog records one pause interval for an activity. At most one
// PauseLog per activity is open (ResumedAt nil) at a time; it is closed
// on resume or on stop.
type PauseLog struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	ActivityID string    `gorm:"size:36;not null;index"`
	PausedAt   time.Time `gorm:"not null"`
	ResumedAt  *time.Time
	Reason     string `gorm:"size:32;default:other"`
	Note       string `gorm:"type:text"`
	CreatedAt  time.Time

	Activity Activity `gorm:"foreignKey:ActivityID"`
}

// Open reports whether the pause interval has not been closed yet.
func (p *PauseLog) Open() bool { return p.ResumedAt == nil }
