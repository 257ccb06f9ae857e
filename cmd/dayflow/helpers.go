package main

import (
	"fmt"
	"log"

	"github.com/arielsw/dayflow/internal/activity"
	"github.com/arielsw/dayflow/internal/config"
	"github.com/arielsw/dayflow/internal/db"
	"github.com/arielsw/dayflow/internal/models"
	"github.com/arielsw/dayflow/internal/repo"
	syncpkg "github.com/arielsw/dayflow/internal/sync"
)

const defaultConfigPath = "dayflow.yaml"

// openRepo loads config and opens both stores. The remote store is
// best-effort: if the server is unreachable the repository runs
// local-only and the reconciler catches up later.
func openRepo(configPath string) (*config.Config, *repo.Repository, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	local, err := db.ConnectLocal(cfg.Local.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrate(local); err != nil {
		return nil, nil, err
	}

	remote, err := db.ConnectRemote(cfg.Remote)
	if err == nil {
		if sqlDB, derr := remote.DB(); derr != nil || sqlDB.Ping() != nil {
			remote = nil
		}
	} else {
		remote = nil
	}
	if remote == nil {
		log.Printf("remote store unreachable, running local-only")
	}

	return cfg, repo.New(local, remote), nil
}

// buildCoordinator wires an activity coordinator with its reconciler for
// one-shot CLI commands. Ghost sanitization runs before the coordinator
// is handed out, and an app-opened event marks the touch.
func buildCoordinator(cfg *config.Config, rep *repo.Repository) (*activity.Coordinator, *syncpkg.Reconciler, error) {
	acts := activity.New(rep, cfg.Owner, nil)
	rec := syncpkg.New(rep, acts, cfg.Owner, cfg.Device)
	acts.SetPusher(rec)

	if err := acts.SanitizeGhosts(); err != nil {
		return nil, nil, fmt.Errorf("ghost sweep: %w", err)
	}
	rec.PushEvent(models.EventAppOpened, cfg.Device)
	return acts, rec, nil
}
