package models

import "time"

// Sync event kinds. Each is a hint for the push layer, not a strict
// protocol message; the authoritative mutation already happened through
// the repository's direct write path.
const (
	EventActivityStarted = "activity-started"
	EventActivityDone    = "activity-done"
	EventPaused          = "paused"
	EventResumed         = "resumed"
	EventModeChanged     = "mode-changed"
	EventAppOpened       = "app-opened"
	EventManualSync      = "manual-sync"
)

// SyncEvent is a locally queued, best-effort notification of a local
// mutation. Rows are created locally with SentAt nil and flushed to the
// remote store opportunistically; a failed flush leaves them queued.
type SyncEvent struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Owner     string `gorm:"size:64;not null;index"`
	Device    string `gorm:"size:64"`
	Kind      string `gorm:"size:32;not null"`
	Payload   string `gorm:"type:text"`
	CreatedAt time.Time
	SentAt    *time.Time `gorm:"index"`
}
