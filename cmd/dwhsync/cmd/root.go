// Package cmd provides the CLI commands for dwhsync.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dwhsync/dwhsync/internal/config"
	dwherrors "github.com/dwhsync/dwhsync/internal/errors"
	"github.com/dwhsync/dwhsync/internal/logging"
	"github.com/dwhsync/dwhsync/pkg/version"
)

// Persistent flags shared by all subcommands.
var (
	configPath string
	debugMode  bool
)

// NewRootCmd creates the root command for the dwhsync CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dwhsync",
		Short: "Clinical export to warehouse sync agent",
		Long: `dwhsync watches a clinical export directory and keeps a single-file
SQLite warehouse in step with its contents.

Document exports (PDF, DOCX) named {IPP}_{DOCID} and the patient
spreadsheet are polled on a fixed interval; new and changed files are
extracted and upserted, deleted files are removed.

Just run 'dwhsync' in a configured directory to start the agent.`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Unknown arguments get help rather than a silent watch.
			if len(args) > 0 {
				return cmd.Help()
			}
			return runWatch(cmd)
		},
	}

	cmd.SetVersionTemplate("dwhsync version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: dwhsync.yaml in the working directory)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newBackupCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command. Failures are printed in the CLI error
// format, with hint and code, before the caller exits non-zero.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprint(os.Stderr, dwherrors.FormatForCLI(err))
	}
	return err
}

// loadConfig loads the layered configuration, honoring the persistent
// --config flag.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(".")
}

// setupLogging configures slog from the logging config, honoring the
// persistent --debug flag. toStderr mirrors log output to stderr so
// systemd or docker capture the agent's stream; one-shot commands keep
// it off to leave stdout for their own output.
func setupLogging(cfg *config.Config, toStderr bool) (*slog.Logger, func(), error) {
	level := cfg.Logging.Level
	if debugMode {
		level = "debug"
	}

	logger, cleanup, err := logging.Setup(logging.Config{
		Level:         level,
		FilePath:      cfg.Logging.File,
		MaxSizeMB:     cfg.Logging.MaxSizeMB,
		MaxBackups:    cfg.Logging.MaxBackups,
		WriteToStderr: toStderr,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("setup logging: %w", err)
	}

	slog.SetDefault(logger)
	return logger, cleanup, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
