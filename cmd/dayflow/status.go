package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/arielsw/dayflow/internal/dashboard"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var (
		configPath string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show current activity and flow status",
		Long:  "Displays the current activity, live flow state, sounding alarms, and cycle mode. Asks the running daemon first and falls back to the stores directly. Use --watch for auto-refresh.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath, watch)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	cmd.Flags().BoolVar(&watch, "watch", false, "auto-refresh every second")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath string, watch bool) error {
	cfg, rep, err := openRepo(configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	for {
		info, err := fetchDaemonStatus(cfg.Dashboard.Addr)
		if err != nil {
			// No daemon: answer from the stores. Flow state and alarms
			// live in the daemon process and show as idle here.
			info, err = dashboard.Status(dashboard.StartOpts{Owner: cfg.Owner, Repo: rep})
			if err != nil {
				return err
			}
		}

		if watch {
			// Clear screen.
			fmt.Fprint(out, "\033[2J\033[H")
		}

		fmt.Fprint(out, dashboard.FormatStatus(info))

		if !watch {
			return nil
		}
		time.Sleep(time.Second)
	}
}

// fetchDaemonStatus asks the daemon's dashboard API for the live status.
func fetchDaemonStatus(addr string) (*dashboard.StatusInfo, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/api/status", addr))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon returned %s", resp.Status)
	}
	var info dashboard.StatusInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}
