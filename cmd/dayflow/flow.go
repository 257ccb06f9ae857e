package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/arielsw/dayflow/internal/models"
	"github.com/spf13/cobra"
)

func newFlowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Guided flow commands",
	}

	cmd.AddCommand(newFlowListCmd())
	cmd.AddCommand(newFlowOnItCmd())
	cmd.AddCommand(newFlowDoneCmd())
	cmd.AddCommand(newFlowSkipCmd())
	return cmd
}

func newFlowListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List flow templates and today's outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlowList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	return cmd
}

func runFlowList(cmd *cobra.Command, configPath string) error {
	_, rep, err := openRepo(configPath)
	if err != nil {
		return err
	}

	templates, err := rep.Templates()
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}
	logs, err := rep.FlowLogsForDate(models.DayOf(time.Now()))
	if err != nil {
		return fmt.Errorf("read today's logs: %w", err)
	}
	byTemplate := make(map[string]*models.FlowLog, len(logs))
	for i := range logs {
		byTemplate[logs[i].TemplateID] = &logs[i]
	}

	out := cmd.OutOrStdout()
	if len(templates) == 0 {
		fmt.Fprintln(out, "No flow templates. Seed some with `dayflow db init`.")
		return nil
	}

	for _, t := range templates {
		window := "no window"
		if t.HasWindow() {
			window = t.WindowStart + "-" + t.WindowEnd
		}

		today := "not yet"
		if l := byTemplate[t.ID]; l != nil {
			switch {
			case l.IsCompleted():
				today = "completed"
			case l.Outcome != models.OutcomeNone:
				today = l.Outcome
			case l.AcknowledgedAt != nil:
				today = fmt.Sprintf("in progress (%d/%d)", l.StepsDone, l.TotalSteps)
			default:
				today = "waiting"
			}
		}

		fmt.Fprintf(out, "%-24s %-12s %-13s %d steps  today: %s\n",
			t.Name, t.Category, window, len(t.Steps), today)
	}
	return nil
}

func newFlowOnItCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "onit",
		Aliases: []string{"ack"},
		Short:   "Acknowledge the prompting flow and start its first step",
		Long:    "Answers ON IT to the flow currently prompting. Silences the alarm, starts the step's activity, and commits the flow so it can no longer be marked missed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlowAction(cmd, configPath, "/api/flow/acknowledge", nil, "On it. Alarm silenced, step activity started.")
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	return cmd
}

func newFlowDoneCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "done",
		Short: "Complete the current flow step",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlowAction(cmd, configPath, "/api/flow/complete", nil, "Step done.")
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	return cmd
}

func newFlowSkipCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
		no         bool
	)

	cmd := &cobra.Command{
		Use:   "skip",
		Short: "Answer the pending skip question",
		Long: `Answers the skip question a cycle-mode flow is waiting on.

--yes confirms the skip still applies: the flow is skipped for today
(non-skippable steps still run). --no turns cycle mode off and runs the
flow normally.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes == no {
				return fmt.Errorf("pass exactly one of --yes or --no")
			}
			body := map[string]bool{"still_skipping": yes}
			msg := "Skip confirmed."
			if no {
				msg = "Cycle mode turned off; flow runs normally."
			}
			return runFlowAction(cmd, configPath, "/api/flow/skip", body, msg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the skip still applies")
	cmd.Flags().BoolVar(&no, "no", false, "deny the skip and resume normal flows")
	return cmd
}

// runFlowAction posts a flow action to the daemon's dashboard API. Flow
// state lives in the daemon, so there is no offline fallback.
func runFlowAction(cmd *cobra.Command, configPath, path string, body any, okMsg string) error {
	cfg, _, err := openRepo(configPath)
	if err != nil {
		return err
	}

	state, err := postFlowAction(cfg.Dashboard.Addr, path, body)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, okMsg)
	fmt.Fprintf(out, "Flow state: %s\n", state)
	return nil
}

// postFlowAction sends the request and decodes the daemon's answer.
func postFlowAction(addr, path string, body any) (string, error) {
	payload := []byte("{}")
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return "", err
		}
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post("http://"+addr+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("reach daemon at %s (is `dayflow daemon` running?): %w", addr, err)
	}
	defer resp.Body.Close()

	var answer struct {
		State string `json:"state"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return "", fmt.Errorf("decode daemon answer: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("daemon: %s", answer.Error)
	}
	return answer.State, nil
}
