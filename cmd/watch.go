package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/siteforge/internal/config"
	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/logging"
	"github.com/conneroisu/siteforge/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Rebuild whenever a watched directory changes",
	Long: `Watch builds once, then watches the input directory and every configured
watch target. Each burst of changes triggers a full rebuild with the
configuration reloaded from scratch. A failed rebuild is reported and the
watch continues.

Examples:
  siteforge watch                   # Rebuild 300ms after the last change
  siteforge watch --debounce 1s     # Wait longer for editors that save in bursts`,
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "Quiet period before a rebuild starts")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger(cmd.ErrOrStderr())
	handler := siteerrors.NewErrorHandler(logger)

	cfg, site, err := loadSite(ctx, logger)
	if err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving project directory: %w", err)
	}

	fileWatcher, err := watcher.NewFileWatcher(wd, watchDebounce, logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.NoOutputFilter(cfg.Output))
	fileWatcher.AddFilter(watcher.NoTempFilter)
	fileWatcher.AddFilter(watcher.NoGitFilter)
	fileWatcher.AddHandler(rebuildHandler(logger, handler))

	for _, target := range watchTargets(cfg, site.Rules().WatchTargets()) {
		if err := fileWatcher.AddRecursive(target); err != nil {
			return fmt.Errorf("failed to watch %s: %w", target, err)
		}
		logger.Info(ctx, "Watching", "target", target)
	}

	if _, err := site.Build(ctx); err != nil {
		handler.Handle(ctx, err)
	}

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes... (Press Ctrl+C to stop)")
	<-ctx.Done()
	return nil
}

// watchTargets is the input directory followed by the configured targets,
// without duplicates. Targets added to the configuration while watching take
// effect on the next start.
func watchTargets(cfg *config.Config, targets []string) []string {
	seen := map[string]bool{cfg.Input: true}
	out := []string{cfg.Input}
	for _, t := range targets {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func rebuildHandler(logger logging.Logger, handler *siteerrors.ErrorHandler) watcher.ChangeHandler {
	return func(ctx context.Context, events []watcher.ChangeEvent) error {
		for _, event := range events {
			logger.Debug(ctx, "Change detected", "type", event.Type.String(), "path", event.Path)
		}
		logger.Info(ctx, "Rebuilding", "changes", len(events))

		_, site, err := loadSite(ctx, logger)
		if err != nil {
			handler.Handle(ctx, err)
			return nil
		}
		if _, err := site.Build(ctx); err != nil {
			handler.Handle(ctx, err)
		}
		return nil
	}
}
