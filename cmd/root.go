// Package cmd provides the siteforge command-line interface.
//
// Configuration is read from, highest priority first:
//
//  1. command-line flags (--output, --clean, ...)
//  2. SITEFORGE_* environment variables (SITEFORGE_OUTPUT, SITEFORGE_BUILD_CONCURRENCY, ...)
//  3. the file named by --config or SITEFORGE_CONFIG_FILE
//  4. .siteforge.yml in the working directory
//
// With no configuration at all the defaults reproduce a plain site: src/ in,
// _site/ out, CSS and JS bundles, favicons copied when present.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "siteforge",
	Short: "Declarative build configuration for static sites",
	Long: `siteforge turns a small rule file into a static site build: files copied
verbatim into the output tree, CSS and JS bundles run through external
minifiers, templates rendered with a registry of filters, and a watch loop
that rebuilds on change.

Quick Start:
  siteforge build               Build src/ into _site/
  siteforge rules               Show what a build would write
  siteforge watch               Rebuild whenever a watched directory changes`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. SIGINT and SIGTERM cancel the running command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		siteerrors.NewErrorHandler(newLogger(os.Stderr)).Handle(ctx, err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .siteforge.yml, can also use SITEFORGE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
}

// initConfig points the global viper instance at the configuration file and
// enables SITEFORGE_ environment overrides. The file itself is read by
// readConfigFile.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("SITEFORGE_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".siteforge")
	}

	viper.SetEnvPrefix("SITEFORGE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// readConfigFile loads the configuration file into viper. Only an absent
// .siteforge.yml is tolerated; a file named by --config or
// SITEFORGE_CONFIG_FILE must exist, and any file found must parse.
func readConfigFile(ctx context.Context, logger logging.Logger) error {
	err := viper.ReadInConfig()
	if err == nil {
		logger.Debug(ctx, "Using config file", "path", viper.ConfigFileUsed())
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	explicit := cfgFile != "" || os.Getenv("SITEFORGE_CONFIG_FILE") != ""
	if !explicit && errors.As(err, &notFound) {
		logger.Debug(ctx, "No config file found, using defaults")
		return nil
	}
	return siteerrors.Wrap(err, siteerrors.ErrorTypeConfig, siteerrors.ErrCodeInvalidRule,
		"cannot read configuration file").WithPath(viper.ConfigFileUsed())
}

// newLogger builds the CLI logger from the global flags. An unknown level
// falls back to info.
func newLogger(out io.Writer) logging.Logger {
	level, err := logging.ParseLevel(logLevel)
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: logFormat,
		Output: out,
	})
	if err != nil {
		logger.Warn(context.Background(), err, "Falling back to info level")
	}
	return logger
}

// projectFS roots every build path at the working directory.
func projectFS() (afero.Fs, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving project directory: %w", err)
	}
	return afero.NewBasePathFs(afero.NewOsFs(), wd), nil
}
