package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dwhsync/dwhsync/internal/logging"
)

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	noColor bool
	logFile string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View agent logs",
		Long: `View and tail agent logs.

By default, shows the last 50 lines of the configured log file, falling
back to ~/.dwhsync/logs/agent.log. Use -f to follow new entries in
real-time (like 'tail -f').

Examples:
  dwhsync logs                  # Show last 50 lines
  dwhsync logs -n 100           # Show last 100 lines
  dwhsync logs -f               # Follow logs in real-time
  dwhsync logs --level error    # Show only error entries
  dwhsync logs --filter "12345" # Filter by pattern (e.g. an IPP)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogsCmd(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.follow, "follow", "f", false, "Stream new entries as they arrive")
	f.IntVarP(&opts.lines, "lines", "n", 50, "How many trailing lines to show")
	f.StringVar(&opts.level, "level", "", "Only show entries at this level or above (debug|info|warn|error)")
	f.StringVar(&opts.filter, "filter", "", "Only show lines matching this regex")
	f.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	f.StringVar(&opts.logFile, "file", "", "Log file to read (overrides config)")

	return cmd
}

func runLogsCmd(cmd *cobra.Command, opts logsOptions) error {
	// The configured log file takes priority over the default path,
	// the --file flag over both.
	explicit := opts.logFile
	if explicit == "" {
		if cfg, err := loadConfig(); err == nil {
			explicit = cfg.Logging.File
		}
	}

	path, err := logging.FindLogFile(explicit)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		if pattern, err = regexp.Compile(opts.filter); err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: opts.noColor,
	}, cmd.OutOrStdout())

	fmt.Fprintf(cmd.ErrOrStderr(), "Log file: %s\n", path)
	if opts.follow {
		fmt.Fprintf(cmd.ErrOrStderr(), "Following... (Ctrl+C to stop)\n")
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "---")

	if opts.follow {
		return runLogsFollow(cmd, viewer, path)
	}

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)
	return nil
}

// runLogsFollow streams entries to stdout until interrupted.
func runLogsFollow(cmd *cobra.Command, viewer *logging.Viewer, path string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	entries := make(chan logging.LogEntry, 100)
	followErr := make(chan error, 1)
	go func() { followErr <- viewer.Follow(ctx, path, entries) }()

	for {
		select {
		case entry := <-entries:
			fmt.Fprintln(cmd.OutOrStdout(), viewer.FormatEntry(entry))
		case err := <-followErr:
			return err
		case <-ctx.Done():
			fmt.Fprintln(cmd.ErrOrStderr(), "\n---")
			fmt.Fprintln(cmd.ErrOrStderr(), "Stopped.")
			return nil
		}
	}
}
