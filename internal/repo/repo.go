// Package repo is the data repository consumed by the coordinators: a
// uniform CRUD and query surface over the local cache store and the
// remote authoritative store.
package repo

import (
	"fmt"
	"log"
	"time"

	"github.com/arielsw/dayflow/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository wraps the local store and, when reachable, the remote
// authoritative store. Remote may be nil for offline-only operation;
// every remote-touching method degrades to the local store in that case.
type Repository struct {
	local  *gorm.DB
	remote *gorm.DB
}

// New creates a Repository. remote may be nil.
func New(local, remote *gorm.DB) *Repository {
	return &Repository{local: local, remote: remote}
}

// Local exposes the local store handle for read-only consumers.
func (r *Repository) Local() *gorm.DB { return r.local }

// Remote exposes the remote store handle, nil when offline.
func (r *Repository) Remote() *gorm.DB { return r.remote }

// HasRemote reports whether a remote store is configured.
func (r *Repository) HasRemote() bool { return r.remote != nil }

// CreateActivityDirect writes a new activity through the read-after-write
// path: the remote store is written first and the server-confirmed row is
// re-read and mirrored into the local cache. When the remote is
// unreachable the write lands locally and is reconciled later.
func (r *Repository) CreateActivityDirect(a *models.Activity) (*models.Activity, error) {
	confirmed := *a

	if r.remote != nil {
		if err := r.remote.Create(a).Error; err != nil {
			log.Printf("repo: remote create activity %s: %v (falling back to local)", a.ID, err)
		} else {
			var read models.Activity
			if err := r.remote.First(&read, "id = ?", a.ID).Error; err != nil {
				log.Printf("repo: read-after-write activity %s: %v", a.ID, err)
			} else {
				confirmed = read
			}
		}
	}

	if err := r.mirrorActivity(&confirmed); err != nil {
		return nil, err
	}
	return &confirmed, nil
}

// SaveActivity persists an updated activity to the local store and,
// best-effort, to the remote store. The local write is the one that must
// succeed; a remote failure is logged and left for the next sync.
func (r *Repository) SaveActivity(a *models.Activity) error {
	if err := r.local.Save(a).Error; err != nil {
		return fmt.Errorf("repo: save activity %s: %w", a.ID, err)
	}
	if r.remote != nil {
		if err := r.remote.Save(a).Error; err != nil {
			log.Printf("repo: remote save activity %s: %v", a.ID, err)
		}
	}
	return nil
}

// mirrorActivity upserts the confirmed activity row into the local cache.
func (r *Repository) mirrorActivity(a *models.Activity) error {
	err := r.local.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(a).Error
	if err != nil {
		return fmt.Errorf("repo: mirror activity %s: %w", a.ID, err)
	}
	return nil
}

// RunningActivity returns the owner's currently running activity, or nil
// if none. The remote store is authoritative; it is consulted first and
// its answer (including "none") wins. Only when the remote is unreachable
// does the local cache answer.
func (r *Repository) RunningActivity(owner string) (*models.Activity, error) {
	if r.remote != nil {
		a, err := runningIn(r.remote, owner)
		if err == nil {
			return a, nil
		}
		log.Printf("repo: remote running query: %v (using local)", err)
	}
	return runningIn(r.local, owner)
}

func runningIn(gdb *gorm.DB, owner string) (*models.Activity, error) {
	var a models.Activity
	err := gdb.Where("owner = ? AND running = ?", owner, true).
		Order("started_at DESC").First(&a).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repo: running activity for %s: %w", owner, err)
	}
	return &a, nil
}

// RunningOlderThan returns activities still flagged running whose start
// time is before cutoff. Both stores are consulted: a ghost may live only
// remotely when this device's cache was wiped or the device that started
// it never came back. Rows present in both are returned once, the remote
// row winning. Used by the ghost sweep.
func (r *Repository) RunningOlderThan(owner string, cutoff time.Time) ([]models.Activity, error) {
	var out []models.Activity
	seen := make(map[string]bool)

	if r.remote != nil {
		var remote []models.Activity
		err := r.remote.Where("owner = ? AND running = ? AND started_at < ?", owner, true, cutoff).
			Find(&remote).Error
		if err != nil {
			log.Printf("repo: remote ghost query: %v (local only)", err)
		} else {
			for i := range remote {
				out = append(out, remote[i])
				seen[remote[i].ID] = true
			}
		}
	}

	var local []models.Activity
	err := r.local.Where("owner = ? AND running = ? AND started_at < ?", owner, true, cutoff).
		Find(&local).Error
	if err != nil {
		return nil, fmt.Errorf("repo: running older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	for i := range local {
		if !seen[local[i].ID] {
			out = append(out, local[i])
		}
	}
	return out, nil
}

// ActivitiesForDate returns the owner's activities that started on the
// given local calendar day, oldest first.
func (r *Repository) ActivitiesForDate(owner string, day time.Time) ([]models.Activity, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)
	var out []models.Activity
	err := r.local.Where("owner = ? AND started_at >= ? AND started_at < ?", owner, start, end).
		Order("started_at ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("repo: activities for %s: %w", models.DayOf(day), err)
	}
	return out, nil
}

// CreatePauseLog opens a new pause interval through the read-after-write
// path, mirroring the confirmed row locally.
func (r *Repository) CreatePauseLog(p *models.PauseLog) (*models.PauseLog, error) {
	confirmed := *p
	if r.remote != nil {
		if err := r.remote.Create(p).Error; err != nil {
			log.Printf("repo: remote create pause log: %v (falling back to local)", err)
		} else {
			confirmed = *p
		}
	}
	if err := r.local.Clauses(clause.OnConflict{UpdateAll: true}).Create(&confirmed).Error; err != nil {
		return nil, fmt.Errorf("repo: create pause log: %w", err)
	}
	return &confirmed, nil
}

// OpenPauseLog returns the activity's open pause interval, or nil.
func (r *Repository) OpenPauseLog(activityID string) (*models.PauseLog, error) {
	var p models.PauseLog
	err := r.local.Where("activity_id = ? AND resumed_at IS NULL", activityID).
		Order("paused_at DESC").First(&p).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repo: open pause log for %s: %w", activityID, err)
	}
	return &p, nil
}

// SavePauseLog persists an updated pause log locally and best-effort
// remotely.
func (r *Repository) SavePauseLog(p *models.PauseLog) error {
	if err := r.local.Save(p).Error; err != nil {
		return fmt.Errorf("repo: save pause log %d: %w", p.ID, err)
	}
	if r.remote != nil {
		if err := r.remote.Save(p).Error; err != nil {
			log.Printf("repo: remote save pause log %d: %v", p.ID, err)
		}
	}
	return nil
}

// Templates returns all flow templates in canonical window order, with
// steps loaded and ordered.
func (r *Repository) Templates() ([]models.FlowTemplate, error) {
	var out []models.FlowTemplate
	err := r.local.Preload("Steps", func(gdb *gorm.DB) *gorm.DB {
		return gdb.Order("position ASC")
	}).Order("position ASC, name ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("repo: templates: %w", err)
	}
	return out, nil
}

// TemplateByName returns the named template with its steps, or nil.
func (r *Repository) TemplateByName(name string) (*models.FlowTemplate, error) {
	var t models.FlowTemplate
	err := r.local.Preload("Steps", func(gdb *gorm.DB) *gorm.DB {
		return gdb.Order("position ASC")
	}).Where("name = ?", name).First(&t).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repo: template %q: %w", name, err)
	}
	return &t, nil
}

// SaveTemplate persists template changes (e.g. last-completed stamp).
func (r *Repository) SaveTemplate(t *models.FlowTemplate) error {
	if err := r.local.Omit("Steps").Save(t).Error; err != nil {
		return fmt.Errorf("repo: save template %s: %w", t.ID, err)
	}
	if r.remote != nil {
		if err := r.remote.Omit("Steps").Save(t).Error; err != nil {
			log.Printf("repo: remote save template %s: %v", t.ID, err)
		}
	}
	return nil
}

// FlowLogForDay returns the template's log for the given day, or nil.
func (r *Repository) FlowLogForDay(templateID, day string) (*models.FlowLog, error) {
	var l models.FlowLog
	err := r.local.Where("template_id = ? AND day = ?", templateID, day).First(&l).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repo: flow log %s/%s: %w", templateID, day, err)
	}
	return &l, nil
}

// FlowLogsForDate returns all flow logs for the given day.
func (r *Repository) FlowLogsForDate(day string) ([]models.FlowLog, error) {
	var out []models.FlowLog
	err := r.local.Where("day = ?", day).Order("triggered_at ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("repo: flow logs for %s: %w", day, err)
	}
	return out, nil
}

// OpenFlowLogsBefore returns acknowledged but unfinished logs from days
// before the given day. Used by the abandonment sweep.
func (r *Repository) OpenFlowLogsBefore(day string) ([]models.FlowLog, error) {
	var out []models.FlowLog
	err := r.local.Where("day < ? AND completed_at IS NULL AND outcome = ?", day, models.OutcomeNone).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("repo: open flow logs before %s: %w", day, err)
	}
	return out, nil
}

// CreateFlowLog persists a new flow log locally and best-effort remotely.
func (r *Repository) CreateFlowLog(l *models.FlowLog) error {
	if err := r.local.Create(l).Error; err != nil {
		return fmt.Errorf("repo: create flow log %s: %w", l.ID, err)
	}
	if r.remote != nil {
		if err := r.remote.Create(l).Error; err != nil {
			log.Printf("repo: remote create flow log %s: %v", l.ID, err)
		}
	}
	return nil
}

// SaveFlowLog persists flow log changes locally and best-effort remotely.
func (r *Repository) SaveFlowLog(l *models.FlowLog) error {
	if err := r.local.Save(l).Error; err != nil {
		return fmt.Errorf("repo: save flow log %s: %w", l.ID, err)
	}
	if r.remote != nil {
		if err := r.remote.Save(l).Error; err != nil {
			log.Printf("repo: remote save flow log %s: %v", l.ID, err)
		}
	}
	return nil
}

// ModeFlag returns the owner's mode flag from the local store, creating
// an inactive default row if none exists yet.
func (r *Repository) ModeFlag(owner string) (*models.ModeFlag, error) {
	var m models.ModeFlag
	err := r.local.Where("owner = ?", owner).First(&m).Error
	if err == gorm.ErrRecordNotFound {
		m = models.ModeFlag{Owner: owner}
		if err := r.local.Create(&m).Error; err != nil {
			return nil, fmt.Errorf("repo: create mode flag for %s: %w", owner, err)
		}
		return &m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repo: mode flag for %s: %w", owner, err)
	}
	return &m, nil
}

// RemoteModeFlag returns the owner's mode flag from the remote store, or
// nil when absent or unreachable.
func (r *Repository) RemoteModeFlag(owner string) (*models.ModeFlag, error) {
	if r.remote == nil {
		return nil, nil
	}
	var m models.ModeFlag
	err := r.remote.Where("owner = ?", owner).First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repo: remote mode flag for %s: %w", owner, err)
	}
	return &m, nil
}

// SaveModeFlag persists the mode flag locally and best-effort remotely.
func (r *Repository) SaveModeFlag(m *models.ModeFlag) error {
	if err := upsertModeFlag(r.local, m); err != nil {
		return fmt.Errorf("repo: save mode flag for %s: %w", m.Owner, err)
	}
	if r.remote != nil {
		if err := upsertModeFlag(r.remote, m); err != nil {
			log.Printf("repo: remote save mode flag for %s: %v", m.Owner, err)
		}
	}
	return nil
}

// SaveModeFlagLocal writes the flag to the local store only, used when
// adopting a remote value during conflict resolution.
func (r *Repository) SaveModeFlagLocal(m *models.ModeFlag) error {
	if err := upsertModeFlag(r.local, m); err != nil {
		return fmt.Errorf("repo: save local mode flag for %s: %w", m.Owner, err)
	}
	return nil
}

func upsertModeFlag(gdb *gorm.DB, m *models.ModeFlag) error {
	return gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}},
		UpdateAll: true,
	}).Create(m).Error
}
