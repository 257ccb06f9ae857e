package main

import (
	"fmt"

	"github.com/arielsw/dayflow/internal/models"
	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile local state against the remote store",
		Long:  "Pulls the authoritative running-activity record (the remote answer wins, including \"nothing running\"), settles the mode flag by newest edit, and pushes queued events.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	return cmd
}

func runSync(cmd *cobra.Command, configPath string) error {
	cfg, rep, err := openRepo(configPath)
	if err != nil {
		return err
	}
	acts, rec, err := buildCoordinator(cfg, rep)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !rep.HasRemote() {
		fmt.Fprintln(out, "Remote store unreachable; nothing to reconcile.")
		return nil
	}

	rec.PushEvent(models.EventManualSync, cfg.Device)
	if err := rec.FullSync(cmd.Context()); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if current := acts.Current(); current != nil {
		fmt.Fprintf(out, "Synced. Running: %q (started %s)\n", current.Name, current.StartedAt.Local().Format("15:04:05"))
	} else {
		fmt.Fprintln(out, "Synced. Nothing is running.")
	}
	return nil
}
