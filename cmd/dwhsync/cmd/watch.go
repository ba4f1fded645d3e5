package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	dwherrors "github.com/dwhsync/dwhsync/internal/errors"
	"github.com/dwhsync/dwhsync/internal/extract"
	"github.com/dwhsync/dwhsync/internal/lockfile"
	"github.com/dwhsync/dwhsync/internal/source"
	"github.com/dwhsync/dwhsync/internal/store"
	"github.com/dwhsync/dwhsync/internal/syncd"
	"github.com/dwhsync/dwhsync/internal/watch"
	"github.com/dwhsync/dwhsync/pkg/version"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the sync agent in the foreground",
		Long: `Run the sync agent in the foreground.

The agent polls the export directory on a fixed interval and mirrors
document and patient changes into the warehouse. With watch.notify
enabled, filesystem events wake the next cycle early; polling remains
the source of truth either way.

A lock file next to the database refuses a second agent on the same
warehouse. Stop with Ctrl+C or SIGTERM; the running cycle finishes and
the snapshot is persisted before exit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd)
		},
	}
}

func runWatch(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, cleanup, err := setupLogging(cfg, true)
	if err != nil {
		return err
	}
	defer cleanup()

	lock := lockfile.New(cfg.Database.Path)
	acquired, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire warehouse lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("another agent holds %s, refusing to start", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	orch, err := syncd.New(syncd.Options{
		Lister: syncd.DirLister{
			Dir:         cfg.Watch.Dir,
			Extensions:  cfg.Watch.Extensions,
			Spreadsheet: cfg.Watch.Spreadsheet,
		},
		SheetReader:  source.NewReader(cfg.Spreadsheet.Sheet),
		Extractor:    extract.Default(),
		Store:        st,
		SheetPath:    cfg.SpreadsheetPath(),
		PollInterval: cfg.PollIntervalDuration(),
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	logger.Info("agent starting",
		"version", version.Version,
		"watch_dir", cfg.Watch.Dir,
		"database", st.Path(),
		"poll_interval", cfg.Watch.PollInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return orch.Run(gctx)
	})

	if cfg.Watch.Notify {
		notifier, err := watch.New(watch.Options{
			Dir:         cfg.Watch.Dir,
			Extensions:  cfg.Watch.Extensions,
			Spreadsheet: cfg.Watch.Spreadsheet,
			Notify:      orch.Wake,
			Logger:      logger,
		})
		if err != nil {
			// The poll timer alone keeps the warehouse in sync.
			logger.Warn("filesystem notifications unavailable, polling only",
				dwherrors.LogAttrs(err)...)
		} else {
			g.Go(func() error {
				return notifier.Run(gctx)
			})
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("agent stopped")
	return nil
}
