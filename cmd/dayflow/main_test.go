package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "dayflow dev") {
		t.Errorf("expected output to contain 'dayflow dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "dayflow 1.0.0") {
		t.Errorf("expected output to contain 'dayflow 1.0.0', got: %s", out)
	}
	if !strings.Contains(out, "built: 2026-01-01") {
		t.Errorf("expected output to contain 'built: 2026-01-01', got: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Dayflow") {
		t.Errorf("expected help output to contain 'Dayflow', got: %s", out)
	}
	for _, sub := range []string{"start", "stop", "pause", "resume", "status", "flow", "mode", "sync", "daemon", "db"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help output to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestStatusWatchRefreshesPerSecond(t *testing.T) {
	cmd := newStatusCmd()
	flag := cmd.Flags().Lookup("watch")
	if flag == nil {
		t.Fatal("status command is missing the --watch flag")
	}
	if !strings.Contains(flag.Usage, "every second") {
		t.Errorf("watch flag usage = %q, want the per-second cadence", flag.Usage)
	}
}

func TestRootCmdNoArgs(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	// Root command with no args should print help (not error)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("root command with no args failed: %v", err)
	}
}

func TestExecuteSuccess(t *testing.T) {
	code := execute(newVersionCmd())
	if code != 0 {
		t.Errorf("execute() = %d, want 0", code)
	}
}

func TestExecuteFailure(t *testing.T) {
	cmd := &cobra.Command{
		Use:           "boom",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("boom")
		},
	}
	if code := execute(cmd); code != 1 {
		t.Errorf("execute() = %d, want 1", code)
	}
}

// writeTestConfig writes a minimal config pointing both stores at the
// test's temp directory; the remote side stays unreachable.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dayflow.yaml")
	cfg := fmt.Sprintf(`
owner: aisha
device: test
local:
  path: %s
remote:
  host: 127.0.0.1
  port: 1
flows:
  - name: subuh
    category: ibadah
    window: "04:30-06:00"
    steps:
      - activity: "Subuh prayer"
`, filepath.Join(dir, "dayflow.db"))
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestActivityLifecycleCommands_LocalOnly(t *testing.T) {
	cfgPath := writeTestConfig(t)

	run := func(args ...string) string {
		t.Helper()
		cmd := newRootCmd()
		buf := new(bytes.Buffer)
		cmd.SetOut(buf)
		cmd.SetErr(buf)
		cmd.SetArgs(append(args, "--config", cfgPath))
		if err := cmd.Execute(); err != nil {
			t.Fatalf("%v failed: %v\n%s", args, err, buf.String())
		}
		return buf.String()
	}

	if out := run("start", "Deep", "work", "--category", "work"); !strings.Contains(out, `Started "Deep work"`) {
		t.Errorf("start output = %s", out)
	}
	if out := run("pause", "--reason", "prayer"); !strings.Contains(out, `Paused "Deep work"`) {
		t.Errorf("pause output = %s", out)
	}
	if out := run("resume"); !strings.Contains(out, `Resumed "Deep work"`) {
		t.Errorf("resume output = %s", out)
	}
	if out := run("stop"); !strings.Contains(out, `Stopped "Deep work"`) {
		t.Errorf("stop output = %s", out)
	}
	if out := run("stop"); !strings.Contains(out, "Nothing is running") {
		t.Errorf("second stop output = %s", out)
	}
}

func TestModeCommands_LocalOnly(t *testing.T) {
	cfgPath := writeTestConfig(t)

	run := func(args ...string) string {
		t.Helper()
		cmd := newRootCmd()
		buf := new(bytes.Buffer)
		cmd.SetOut(buf)
		cmd.SetErr(buf)
		cmd.SetArgs(append(args, "--config", cfgPath))
		if err := cmd.Execute(); err != nil {
			t.Fatalf("%v failed: %v\n%s", args, err, buf.String())
		}
		return buf.String()
	}

	if out := run("mode", "status"); !strings.Contains(out, "Cycle mode: off") {
		t.Errorf("mode status output = %s", out)
	}
	if out := run("mode", "on"); !strings.Contains(out, "Cycle mode on") {
		t.Errorf("mode on output = %s", out)
	}
	if out := run("mode", "on"); !strings.Contains(out, "already on") {
		t.Errorf("repeated mode on output = %s", out)
	}
	if out := run("mode", "status"); !strings.Contains(out, "Cycle mode: on") {
		t.Errorf("mode status output = %s", out)
	}
	if out := run("mode", "off"); !strings.Contains(out, "Cycle mode off") {
		t.Errorf("mode off output = %s", out)
	}
}

func TestFlowSkipCmd_RequiresAnswer(t *testing.T) {
	cfgPath := writeTestConfig(t)

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"flow", "skip", "--config", cfgPath})

	if err := cmd.Execute(); err == nil {
		t.Error("flow skip without --yes/--no should fail")
	}
}
