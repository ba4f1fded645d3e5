package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dwhsync/dwhsync/configs"
	"github.com/dwhsync/dwhsync/internal/config"
	"github.com/dwhsync/dwhsync/internal/output"
	"github.com/dwhsync/dwhsync/pkg/version"
)

func newInitCmd() *cobra.Command {
	var (
		user  bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a dwhsync configuration",
		Long: `Initialize dwhsync in the current directory.

This command:
1. Writes a commented dwhsync.yaml configuration template
2. Creates the default watch directory

The generated file is optional: dwhsync works with built-in defaults,
and every value can also come from DWHSYNC_* environment variables.`,
		Example: `  # Create dwhsync.yaml in the current directory
  dwhsync init

  # Overwrite an existing configuration
  dwhsync init --force

  # Create the machine-wide user config instead
  dwhsync init --user`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, user, force)
		},
	}

	cmd.Flags().BoolVar(&user, "user", false, "Create the user config at ~/.config/dwhsync/config.yaml")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(cmd *cobra.Command, user, force bool) error {
	out := output.New(cmd.OutOrStdout())

	if user {
		return initUserConfig(out, force)
	}

	out.Statusf("🚀", "dwhsync %s - Initializing...", version.Version)
	out.Newline()

	const yamlPath = "dwhsync.yaml"

	// Check both extensions (don't overwrite user customizations)
	if !force {
		if fileExists(yamlPath) {
			out.Warningf("%s already exists", yamlPath)
			out.Status("💡", "Use --force to overwrite")
			return nil
		}
		if fileExists("dwhsync.yml") {
			out.Warning("dwhsync.yml already exists")
			out.Status("💡", "Use --force to overwrite")
			return nil
		}
	}

	// Write template from embedded config (see configs/embed.go for source)
	if err := os.WriteFile(yamlPath, []byte(configs.AgentConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", yamlPath, err)
	}
	out.Statusf("📝", "Created %s", yamlPath)

	// Create the default watch directory so the first cycle does not
	// report it missing.
	cfg := config.NewConfig()
	if err := os.MkdirAll(cfg.Watch.Dir, 0o755); err != nil {
		out.Warningf("Could not create %s: %v", cfg.Watch.Dir, err)
	} else {
		out.Statusf("📁", "Watch directory: %s", cfg.Watch.Dir)
	}

	out.Newline()
	out.Success("Initialization complete!")
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Statusf("", "  1. Drop document exports into %s", cfg.Watch.Dir)
	out.Statusf("", "  2. Place the patient spreadsheet at %s", cfg.SpreadsheetPath())
	out.Status("", "  3. Run 'dwhsync watch' to start the agent")

	// Hint about user config for machine-wide settings
	if !config.UserConfigExists() {
		out.Newline()
		out.Status("💡", "For machine-wide settings (database location, logging):")
		out.Status("", "   Run 'dwhsync init --user' to create the user config")
	}

	return nil
}

func initUserConfig(out *output.Writer, force bool) error {
	path := config.GetUserConfigPath()

	if fileExists(path) && !force {
		out.Warningf("%s already exists", path)
		out.Status("💡", "Use --force to overwrite")
		return nil
	}

	if err := os.MkdirAll(config.GetUserConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configs.UserConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	out.Statusf("📝", "Created %s", path)
	return nil
}
