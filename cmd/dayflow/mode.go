package main

import (
	"fmt"
	"time"

	"github.com/arielsw/dayflow/internal/models"
	"github.com/spf13/cobra"
)

func newModeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Cycle-mode commands (Haid Mode)",
		Long:  "Toggles cycle mode. While on, flows in the configured skip categories prompt a confirm-skip question instead of running.",
	}

	cmd.AddCommand(newModeOnCmd())
	cmd.AddCommand(newModeOffCmd())
	cmd.AddCommand(newModeStatusCmd())
	return cmd
}

func newModeOnCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "on",
		Short: "Turn cycle mode on",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModeSet(cmd, configPath, true)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	return cmd
}

func newModeOffCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "off",
		Short: "Turn cycle mode off",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModeSet(cmd, configPath, false)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	return cmd
}

func runModeSet(cmd *cobra.Command, configPath string, active bool) error {
	cfg, rep, err := openRepo(configPath)
	if err != nil {
		return err
	}
	_, rec, err := buildCoordinator(cfg, rep)
	if err != nil {
		return err
	}

	mode, err := rep.ModeFlag(cfg.Owner)
	if err != nil {
		return fmt.Errorf("read mode flag: %w", err)
	}

	out := cmd.OutOrStdout()
	if mode.Active == active {
		state := "off"
		if active {
			state = "on"
		}
		fmt.Fprintf(out, "Cycle mode is already %s.\n", state)
		return nil
	}

	mode.Active = active
	if active {
		now := time.Now().UTC()
		mode.CycleStartedAt = &now
		mode.LastPromptedAt = nil
	}
	if err := rep.SaveModeFlag(mode); err != nil {
		return fmt.Errorf("save mode flag: %w", err)
	}
	rec.PushEvent(models.EventModeChanged, fmt.Sprintf("active=%t", active))
	rec.Flush()

	if active {
		fmt.Fprintf(out, "Cycle mode on. Flows in categories %v now prompt before running.\n", cfg.Mode.SkipCategories)
	} else {
		fmt.Fprintln(out, "Cycle mode off. All flows run normally.")
	}
	return nil
}

func newModeStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show cycle mode state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModeStatus(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	return cmd
}

func runModeStatus(cmd *cobra.Command, configPath string) error {
	cfg, rep, err := openRepo(configPath)
	if err != nil {
		return err
	}

	mode, err := rep.ModeFlag(cfg.Owner)
	if err != nil {
		return fmt.Errorf("read mode flag: %w", err)
	}

	out := cmd.OutOrStdout()
	if !mode.Active {
		fmt.Fprintln(out, "Cycle mode: off")
		return nil
	}

	fmt.Fprintln(out, "Cycle mode: on")
	if mode.CycleStartedAt != nil {
		days := int(time.Since(*mode.CycleStartedAt).Hours() / 24)
		fmt.Fprintf(out, "  started %s (%d day(s) ago)\n", mode.CycleStartedAt.Local().Format("2006-01-02"), days)
	}
	if mode.ShouldReprompt(time.Now()) {
		fmt.Fprintln(out, "  due for re-check: does it still apply?")
	}
	fmt.Fprintf(out, "  skip categories: %v\n", cfg.Mode.SkipCategories)
	return nil
}
