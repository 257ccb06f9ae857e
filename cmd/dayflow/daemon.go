package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arielsw/dayflow/internal/activity"
	"github.com/arielsw/dayflow/internal/alarm"
	"github.com/arielsw/dayflow/internal/config"
	"github.com/arielsw/dayflow/internal/dashboard"
	"github.com/arielsw/dayflow/internal/flow"
	"github.com/arielsw/dayflow/internal/models"
	"github.com/arielsw/dayflow/internal/repo"
	syncpkg "github.com/arielsw/dayflow/internal/sync"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func newDaemonCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the Dayflow daemon",
		Long:  "Runs the long-lived process: safety-window enforcement, alarm escalation, sync reconciliation, and the dashboard HTTP API. Stop with Ctrl-C.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	return cmd
}

func runDaemon(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, rep, err := openRepo(configPath)
	if err != nil {
		return err
	}

	acts := activity.New(rep, cfg.Owner, nil)
	rec := syncpkg.New(rep, acts, cfg.Owner, cfg.Device)
	acts.SetPusher(rec)

	if err := acts.SanitizeGhosts(); err != nil {
		return fmt.Errorf("ghost sweep: %w", err)
	}

	esc := alarm.New(time.Duration(cfg.Alarm.RepeatMinutes)*time.Minute, buildNotifiers(cfg.Alarm)...)
	flows := flow.New(rep, acts, esc, cfg.Owner, cfg.Mode.SkipCategories, rec)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	flows.SetContext(ctx)

	// Daemon start is an app open: reconcile, then evaluate windows so a
	// late start still sees the enforced prompt.
	rec.PushEvent(models.EventAppOpened, cfg.Device)
	if err := rec.FullSync(ctx); err != nil {
		log.Printf("daemon: initial sync: %v", err)
	}
	flows.Evaluate(time.Now())

	c := cron.New()
	if _, err := c.AddFunc("* * * * *", func() {
		now := time.Now()
		flows.Evaluate(now)
		checkReprompt(rep, cfg.Owner, now)
	}); err != nil {
		return fmt.Errorf("schedule window checks: %w", err)
	}
	c.Start()
	defer c.Stop()

	go rec.Run(ctx, repo.DefaultWatchInterval)

	fmt.Fprintf(out, "Dayflow daemon running for %s (device %s)\n", cfg.Owner, cfg.Device)
	if !rep.HasRemote() {
		fmt.Fprintln(out, "Remote store unreachable; running local-only until it returns.")
	}

	err = dashboard.Start(ctx, dashboard.StartOpts{
		Addr:   cfg.Dashboard.Addr,
		Owner:  cfg.Owner,
		Repo:   rep,
		Acts:   acts,
		Flows:  flows,
		Alarms: esc,
		Out:    out,
	})

	esc.Shutdown()
	fmt.Fprintln(out, "Dayflow daemon stopped.")
	return err
}

// buildNotifiers assembles the alarm fan-out from config. The command
// notifier is always present (it no-ops on an empty command); chat
// notifiers join when configured.
func buildNotifiers(ac config.AlarmConfig) []alarm.Notifier {
	notifiers := []alarm.Notifier{&alarm.CommandNotifier{Command: ac.Command}}

	if ac.Discord.Token != "" && ac.Discord.ChannelID != "" {
		dn, err := alarm.NewDiscordNotifier(ac.Discord.Token, ac.Discord.ChannelID)
		if err != nil {
			log.Printf("daemon: discord notifier: %v", err)
		} else {
			notifiers = append(notifiers, dn)
		}
	}
	if ac.Slack.Token != "" && ac.Slack.ChannelID != "" {
		notifiers = append(notifiers, alarm.NewSlackNotifier(ac.Slack.Token, ac.Slack.ChannelID))
	}
	return notifiers
}

// checkReprompt stamps the cycle-mode re-check question when due. The
// question itself surfaces through status views; stamping here keeps it
// at most once per day.
func checkReprompt(rep *repo.Repository, owner string, now time.Time) {
	mode, err := rep.ModeFlag(owner)
	if err != nil {
		log.Printf("daemon: mode flag: %v", err)
		return
	}
	if !mode.ShouldReprompt(now) {
		return
	}
	log.Printf("daemon: cycle mode active for %d+ days; asking whether it still applies",
		int(now.Sub(*mode.CycleStartedAt).Hours()/24))
	prompted := now.UTC()
	mode.LastPromptedAt = &prompted
	if err := rep.SaveModeFlag(mode); err != nil {
		log.Printf("daemon: stamp reprompt: %v", err)
	}
}
