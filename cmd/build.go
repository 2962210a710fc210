package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/siteforge/internal/build"
	"github.com/conneroisu/siteforge/internal/config"
	"github.com/conneroisu/siteforge/internal/logging"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build the site into the output directory",
	Long: `Build copies passthrough files, assembles bundles, and renders pages into
the output directory. Configuration errors are reported before anything is
written.

Examples:
  siteforge build                       # Build into _site
  siteforge build --output dist         # Build into dist
  siteforge build --clean               # Remove the output directory first
  siteforge build --metrics-file m.prom # Write Prometheus metrics after the build`,
	RunE: runBuild,
}

var buildMetricsFile string

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringP("output", "o", "", "Output directory (default _site)")
	buildCmd.Flags().Bool("clean", false, "Remove the output directory before building")
	buildCmd.Flags().Int("concurrency", 0, "Parallel copy, bundle and render workers (default NumCPU)")
	buildCmd.Flags().StringVar(&buildMetricsFile, "metrics-file", "", "Write build metrics in Prometheus text format to this file")

	bindFlag(buildCmd, "output", "output")
	bindFlag(buildCmd, "build.clean", "clean")
	bindFlag(buildCmd, "build.concurrency", "concurrency")
}

func runBuild(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd.ErrOrStderr())

	cfg, site, err := loadSite(cmd.Context(), logger)
	if err != nil {
		return err
	}

	result, err := site.Build(cmd.Context())
	if buildMetricsFile != "" {
		if merr := site.Metrics().WriteToTextfile(buildMetricsFile); merr != nil {
			logger.Warn(cmd.Context(), merr, "Cannot write metrics file", "path", buildMetricsFile)
		}
	}
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), cfg, result)
	return nil
}

// loadSite reads configuration from scratch and compiles it into a Site
// rooted at the working directory.
func loadSite(ctx context.Context, logger logging.Logger) (*config.Config, *build.Site, error) {
	if err := readConfigFile(ctx, logger); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	fs, err := projectFS()
	if err != nil {
		return nil, nil, err
	}
	site, err := build.New(fs, cfg, build.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return cfg, site, nil
}

func printSummary(w io.Writer, cfg *config.Config, result *build.Result) {
	fmt.Fprintf(w, "Built %s in %v\n", cfg.Output, result.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "   - %d files copied\n", len(result.Copied))
	fmt.Fprintf(w, "   - %d bundles\n", len(result.Bundles))
	fmt.Fprintf(w, "   - %d pages\n", len(result.Pages))
	if n := len(result.Warnings); n > 0 {
		fmt.Fprintf(w, "   - %d warnings\n", n)
	}
}
