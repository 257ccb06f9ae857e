package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/arielsw/dayflow/internal/activity"
	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	var (
		configPath string
		category   string
	)

	cmd := &cobra.Command{
		Use:   "start <name>",
		Short: "Start an activity",
		Long:  "Starts tracking a new activity. If another activity is running it is stopped first; starting always wins.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivityStart(cmd, configPath, strings.Join(args, " "), category)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	cmd.Flags().StringVar(&category, "category", "", "activity category (e.g. work, ibadah, exercise)")
	return cmd
}

func runActivityStart(cmd *cobra.Command, configPath, name, category string) error {
	cfg, rep, err := openRepo(configPath)
	if err != nil {
		return err
	}
	acts, rec, err := buildCoordinator(cfg, rep)
	if err != nil {
		return err
	}

	prev, err := acts.Refresh()
	if err != nil {
		return fmt.Errorf("read running activity: %w", err)
	}
	a, err := acts.Start(activity.StartOpts{Name: name, Category: category})
	if err != nil {
		return fmt.Errorf("start activity: %w", err)
	}
	rec.Flush()

	out := cmd.OutOrStdout()
	if prev != nil {
		fmt.Fprintf(out, "Stopped %q\n", prev.Name)
	}
	fmt.Fprintf(out, "Started %q", a.Name)
	if a.Category != "" {
		fmt.Fprintf(out, " (%s)", a.Category)
	}
	fmt.Fprintf(out, " at %s\n", a.StartedAt.Local().Format("15:04:05"))
	return nil
}

func newStopCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the current activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivityStop(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	return cmd
}

func runActivityStop(cmd *cobra.Command, configPath string) error {
	cfg, rep, err := openRepo(configPath)
	if err != nil {
		return err
	}
	acts, rec, err := buildCoordinator(cfg, rep)
	if err != nil {
		return err
	}

	current, err := acts.Refresh()
	if err != nil {
		return fmt.Errorf("read running activity: %w", err)
	}
	out := cmd.OutOrStdout()
	if current == nil {
		fmt.Fprintln(out, "Nothing is running.")
		return nil
	}

	elapsed := acts.Elapsed().Round(time.Second)
	if err := acts.Stop(); err != nil {
		return fmt.Errorf("stop activity: %w", err)
	}
	rec.Flush()

	fmt.Fprintf(out, "Stopped %q after %s\n", current.Name, elapsed)
	return nil
}

func newPauseCmd() *cobra.Command {
	var (
		configPath string
		reason     string
		note       string
	)

	cmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause the current activity",
		Long:  "Suspends the current activity without ending it. Paused time is excluded from the activity's effective duration.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivityPause(cmd, configPath, reason, note)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	cmd.Flags().StringVar(&reason, "reason", "", "pause reason: break, interrupt, prayer, other")
	cmd.Flags().StringVar(&note, "note", "", "free-form note")
	return cmd
}

func runActivityPause(cmd *cobra.Command, configPath, reason, note string) error {
	cfg, rep, err := openRepo(configPath)
	if err != nil {
		return err
	}
	acts, rec, err := buildCoordinator(cfg, rep)
	if err != nil {
		return err
	}

	current, err := acts.Refresh()
	if err != nil {
		return fmt.Errorf("read running activity: %w", err)
	}
	out := cmd.OutOrStdout()
	if current == nil {
		fmt.Fprintln(out, "Nothing is running.")
		return nil
	}
	if current.Paused {
		fmt.Fprintf(out, "%q is already paused.\n", current.Name)
		return nil
	}

	if err := acts.Pause(reason, note); err != nil {
		return fmt.Errorf("pause activity: %w", err)
	}
	rec.Flush()

	fmt.Fprintf(out, "Paused %q\n", current.Name)
	return nil
}

func newResumeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume the paused activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivityResume(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	return cmd
}

func runActivityResume(cmd *cobra.Command, configPath string) error {
	cfg, rep, err := openRepo(configPath)
	if err != nil {
		return err
	}
	acts, rec, err := buildCoordinator(cfg, rep)
	if err != nil {
		return err
	}

	current, err := acts.Refresh()
	if err != nil {
		return fmt.Errorf("read running activity: %w", err)
	}
	out := cmd.OutOrStdout()
	if current == nil {
		fmt.Fprintln(out, "Nothing is running.")
		return nil
	}
	if !current.Paused {
		fmt.Fprintf(out, "%q is not paused.\n", current.Name)
		return nil
	}

	if err := acts.Resume(); err != nil {
		return fmt.Errorf("resume activity: %w", err)
	}
	rec.Flush()

	fmt.Fprintf(out, "Resumed %q\n", current.Name)
	return nil
}
