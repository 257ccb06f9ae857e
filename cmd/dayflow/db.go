package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/arielsw/dayflow/internal/config"
	"github.com/arielsw/dayflow/internal/db"
	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Dayflow stores",
		Long:  "Creates the remote database, migrates both stores, and seeds the configured flow templates.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded config for owner %q from %s\n", cfg.Owner, configPath)

	// Local store first: it must work even with no server in reach.
	local, err := db.ConnectLocal(cfg.Local.Path)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(local); err != nil {
		return err
	}
	if err := db.SeedFlows(local, cfg.Flows); err != nil {
		return err
	}
	fmt.Fprintf(out, "Local store ready at %s (%d tables, %d flows)\n",
		cfg.Local.Path, len(db.AllModels()), len(cfg.Flows))

	// Remote store: create database, migrate, seed.
	adminDB, err := db.ConnectRemoteAdmin(cfg.Remote)
	if err != nil {
		fmt.Fprintf(out, "Remote server at %s:%d unreachable; skipping remote init\n", cfg.Remote.Host, cfg.Remote.Port)
		fmt.Fprintln(out, "\nDayflow local store initialized successfully.")
		return nil
	}
	fmt.Fprintf(out, "Connected to server at %s:%d\n", cfg.Remote.Host, cfg.Remote.Port)

	if err := db.CreateDatabase(adminDB, cfg.Remote.Database); err != nil {
		return err
	}
	fmt.Fprintf(out, "Database %s ready\n", cfg.Remote.Database)

	remote, err := db.ConnectRemote(cfg.Remote)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Remote.Database, err)
	}
	if err := db.AutoMigrate(remote); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedFlows(remote, cfg.Flows); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d flows:", len(cfg.Flows))
	for _, f := range cfg.Flows {
		fmt.Fprintf(out, " %s", f.Name)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "\nDayflow stores initialized successfully.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		dbName     string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the remote database",
		Long: `Drops the remote Dayflow database and re-creates it from config.

By default, reads the config file to determine the database name, drops it,
then re-initializes (migrate + seed). With --database, drops the named
database without re-init. The local store is never touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, dbName, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Dayflow config file")
	cmd.Flags().StringVar(&dbName, "database", "", "explicit database name (skip re-init)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath, dbName string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	var cfg *config.Config
	reinit := false

	if dbName == "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		dbName = cfg.Remote.Database
		reinit = true
		fmt.Fprintf(out, "Loaded config for owner %q from %s\n", cfg.Owner, configPath)
	}

	if !skipConfirm {
		if !confirmReset(cmd, dbName) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	rc := config.RemoteConfig{Host: "127.0.0.1", Port: 3306, User: "root"}
	if cfg != nil {
		rc = cfg.Remote
	}

	adminDB, err := db.ConnectRemoteAdmin(rc)
	if err != nil {
		return fmt.Errorf("connect to server at %s:%d: %w", rc.Host, rc.Port, err)
	}
	fmt.Fprintf(out, "Connected to server at %s:%d\n", rc.Host, rc.Port)

	if err := db.DropDatabase(adminDB, dbName); err != nil {
		return err
	}
	fmt.Fprintf(out, "Dropped database %s\n", dbName)

	if !reinit {
		fmt.Fprintln(out, "\nDatabase dropped successfully.")
		return nil
	}

	if err := db.CreateDatabase(adminDB, dbName); err != nil {
		return err
	}
	fmt.Fprintf(out, "Database %s re-created\n", dbName)

	remote, err := db.ConnectRemote(cfg.Remote)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", dbName, err)
	}
	if err := db.AutoMigrate(remote); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedFlows(remote, cfg.Flows); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d flows:", len(cfg.Flows))
	for _, f := range cfg.Flows {
		fmt.Fprintf(out, " %s", f.Name)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "\nDayflow database reset and re-initialized successfully.")
	return nil
}

func confirmReset(cmd *cobra.Command, dbName string) bool {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	fmt.Fprintf(out, "WARNING: This will permanently delete all data in database %q.\n", dbName)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
