package db

import (
	"fmt"

	"github.com/arielsw/dayflow/internal/config"
	"github.com/arielsw/dayflow/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Activity{},
		&models.PauseLog{},
		&models.FlowTemplate{},
		&models.FlowStep{},
		&models.FlowLog{},
		&models.ModeFlag{},
		&models.SyncEvent{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedFlows upserts system flow templates from configuration. Template
// names are the upsert key so re-running init keeps user edits to other
// templates intact while refreshing the seeded set.
func SeedFlows(gdb *gorm.DB, flows []config.FlowConfig) error {
	for i, fc := range flows {
		var winStart, winEnd string
		if fc.Window != "" {
			var err error
			winStart, winEnd, err = config.SplitWindow(fc.Window)
			if err != nil {
				return fmt.Errorf("db: seed flow %q: %w", fc.Name, err)
			}
		}

		tmpl := models.FlowTemplate{
			ID:          uuid.NewString(),
			Name:        fc.Name,
			Category:    fc.Category,
			System:      true,
			Position:    i,
			WindowStart: winStart,
			WindowEnd:   winEnd,
		}

		result := gdb.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"category", "system", "position", "window_start", "window_end"}),
		}).Create(&tmpl)
		if result.Error != nil {
			return fmt.Errorf("db: seed flow %q: %w", fc.Name, result.Error)
		}

		// The upsert may have kept an existing row's ID; re-read it so
		// steps attach to the right template.
		var saved models.FlowTemplate
		if err := gdb.Where("name = ?", fc.Name).First(&saved).Error; err != nil {
			return fmt.Errorf("db: re-read flow %q: %w", fc.Name, err)
		}

		if err := gdb.Where("template_id = ?", saved.ID).Delete(&models.FlowStep{}).Error; err != nil {
			return fmt.Errorf("db: clear steps for %q: %w", fc.Name, err)
		}
		for j, sc := range fc.Steps {
			step := models.FlowStep{
				TemplateID:       saved.ID,
				Position:         j,
				Condition:        sc.Condition,
				Action:           sc.Action,
				ActivityName:     sc.Activity,
				EstimatedMinutes: sc.Minutes,
				Optional:         sc.Optional,
				Skippable:        sc.Skippable,
			}
			if err := gdb.Create(&step).Error; err != nil {
				return fmt.Errorf("db: seed step %d of %q: %w", j, fc.Name, err)
			}
		}
	}
	return nil
}
